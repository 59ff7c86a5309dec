package ws

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"stationsim/internal"
	"stationsim/metrics/counters"
	"stationsim/ocpp"
	"stationsim/types"
	"stationsim/utility"
)

const callTimeout = 30 * time.Second

// CallHandler processes a central system request and returns either a
// response payload or an error carrying an OCPP error code.
type CallHandler interface {
	Handle(action string, payload json.RawMessage) (ocpp.Response, error)
}

// ErrorCoder is implemented by errors that map to a specific OCPP-J error
// code; anything else becomes an InternalError frame.
type ErrorCoder interface {
	ErrorCode() ocpp.ErrorCode
}

type pendingCall struct {
	result chan callOutcome
}

type callOutcome struct {
	payload json.RawMessage
	err     error
}

// Client is the station side websocket connection: it serializes outgoing
// calls, matches results to pending calls and feeds incoming requests to
// the handler.
type Client struct {
	id      string
	url     string
	conn    *websocket.Conn
	handler CallHandler
	logger  internal.LogHandler

	writeMux sync.Mutex
	mux      sync.Mutex
	pending  map[string]*pendingCall
	closed   bool
	done     chan struct{}

	pingInterval time.Duration
	pingReset    chan time.Duration
}

func NewClient(id, endpoint string, logger internal.LogHandler) *Client {
	return &Client{
		id:           id,
		url:          endpoint + "/" + id,
		logger:       logger,
		pending:      make(map[string]*pendingCall),
		done:         make(chan struct{}),
		pingInterval: 60 * time.Second,
		pingReset:    make(chan time.Duration, 1),
	}
}

func (c *Client) SetCallHandler(handler CallHandler) {
	c.handler = handler
}

// Connect dials the central system with the ocpp1.6 subprotocol and starts
// the reader and ping loops.
func (c *Client) Connect() error {
	dialer := websocket.Dialer{
		Subprotocols:     []string{types.SubProtocol16},
		HandshakeTimeout: 30 * time.Second,
	}
	conn, response, err := dialer.Dial(c.url, http.Header{})
	if err != nil {
		return utility.Errf("dialing %s: %v", c.url, err)
	}
	if response != nil && response.Header.Get("Sec-WebSocket-Protocol") != types.SubProtocol16 {
		c.logger.Warn(fmt.Sprintf("%s: central system did not confirm subprotocol %s", c.id, types.SubProtocol16))
	}
	c.conn = conn
	counters.ObserveConnection(c.id, true)
	go c.messageReader()
	go c.pingLoop()
	return nil
}

// Close terminates the connection and fails every pending call.
func (c *Client) Close() {
	c.mux.Lock()
	if c.closed {
		c.mux.Unlock()
		return
	}
	c.closed = true
	close(c.done)
	for id, call := range c.pending {
		call.result <- callOutcome{err: utility.Err("connection closed")}
		delete(c.pending, id)
	}
	c.mux.Unlock()
	if c.conn != nil {
		_ = c.conn.Close()
	}
	counters.ObserveConnection(c.id, false)
}

// Send delivers a Call frame and blocks until the matching CallResult or
// CallError arrives.
func (c *Client) Send(request ocpp.Request) (json.RawMessage, error) {
	uniqueId := utility.NewUUID()
	call := &ocpp.Call{
		UniqueId: uniqueId,
		Action:   request.GetFeatureName(),
		Payload:  request,
	}
	data, err := call.MarshalJSON()
	if err != nil {
		return nil, utility.Errf("encoding %s: %v", request.GetFeatureName(), err)
	}
	pending := &pendingCall{result: make(chan callOutcome, 1)}
	c.mux.Lock()
	if c.closed {
		c.mux.Unlock()
		return nil, utility.Err("connection closed")
	}
	c.pending[uniqueId] = pending
	c.mux.Unlock()
	if err = c.write(data); err != nil {
		c.dropPending(uniqueId)
		return nil, err
	}
	select {
	case outcome := <-pending.result:
		return outcome.payload, outcome.err
	case <-time.After(callTimeout):
		c.dropPending(uniqueId)
		return nil, utility.Errf("%s timed out", request.GetFeatureName())
	case <-c.done:
		return nil, utility.Err("connection closed")
	}
}

func (c *Client) dropPending(uniqueId string) {
	c.mux.Lock()
	delete(c.pending, uniqueId)
	c.mux.Unlock()
}

func (c *Client) write(data []byte) error {
	c.writeMux.Lock()
	defer c.writeMux.Unlock()
	if c.conn == nil {
		return utility.Err("not connected")
	}
	c.logger.RawDataEvent("OUT", string(data))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

func (c *Client) messageReader() {
	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Debug(fmt.Sprintf("%s: central system closed session", c.id))
			} else {
				c.logger.Debug(fmt.Sprintf("%s: session ended %s", c.id, err))
			}
			c.Close()
			return
		}
		c.logger.RawDataEvent("IN", string(message))
		if err = c.handleMessage(message); err != nil {
			c.logger.Error(fmt.Sprintf("%s: handling message", c.id), err)
		}
	}
}

func (c *Client) handleMessage(data []byte) error {
	message, err := ocpp.ParseMessage(data)
	if err != nil {
		return err
	}
	switch message.Type {
	case ocpp.CallTypeRequest:
		// handlers may await their own round trips, the reader must stay
		// free to resolve them
		go func() {
			if err := c.handleCall(message); err != nil {
				c.logger.Error(fmt.Sprintf("%s: answering %s", c.id, message.Action), err)
			}
		}()
	case ocpp.CallTypeResult:
		c.resolvePending(message.UniqueId, callOutcome{payload: message.Payload})
	case ocpp.CallTypeError:
		c.resolvePending(message.UniqueId, callOutcome{
			err: utility.Errf("%s: %s", message.Code, message.Reason),
		})
	}
	return nil
}

func (c *Client) resolvePending(uniqueId string, outcome callOutcome) {
	c.mux.Lock()
	pending, ok := c.pending[uniqueId]
	if ok {
		delete(c.pending, uniqueId)
	}
	c.mux.Unlock()
	if !ok {
		c.logger.Warn(fmt.Sprintf("%s: no pending call for id %s", c.id, uniqueId))
		return
	}
	pending.result <- outcome
}

func (c *Client) handleCall(message *ocpp.IncomingMessage) error {
	if c.handler == nil {
		return utility.Err("no call handler registered")
	}
	response, err := c.handler.Handle(message.Action, message.Payload)
	if err != nil {
		code := ocpp.ErrorInternal
		if coder, ok := err.(ErrorCoder); ok {
			code = coder.ErrorCode()
		}
		callError := &ocpp.CallError{
			UniqueId:    message.UniqueId,
			Code:        code,
			Description: err.Error(),
		}
		data, marshalErr := callError.MarshalJSON()
		if marshalErr != nil {
			return marshalErr
		}
		return c.write(data)
	}
	callResult := &ocpp.CallResult{
		UniqueId: message.UniqueId,
		Payload:  response,
	}
	data, err := callResult.MarshalJSON()
	if err != nil {
		return err
	}
	return c.write(data)
}

// RestartPing applies a new ping interval; zero disables pinging.
func (c *Client) RestartPing(interval time.Duration) {
	select {
	case c.pingReset <- interval:
	default:
	}
}

func (c *Client) pingLoop() {
	interval := c.pingInterval
	timer := time.NewTimer(interval)
	defer timer.Stop()
	for {
		select {
		case <-c.done:
			return
		case interval = <-c.pingReset:
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			if interval > 0 {
				timer.Reset(interval)
			}
		case <-timer.C:
			c.writeMux.Lock()
			err := c.conn.WriteMessage(websocket.PingMessage, nil)
			c.writeMux.Unlock()
			if err != nil {
				c.logger.Warn(fmt.Sprintf("%s: ping failed %s", c.id, err))
			}
			if interval > 0 {
				timer.Reset(interval)
			}
		}
	}
}
