package ws

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"stationsim/ocpp"
	"stationsim/types"
)

type nopLogger struct{}

func (nopLogger) FeatureEvent(_, _, _ string) {}
func (nopLogger) Debug(_ string)              {}
func (nopLogger) Warn(_ string)               {}
func (nopLogger) Error(_ string, _ error)     {}
func (nopLogger) RawDataEvent(_, _ string)    {}

type echoRequest struct {
	Value string `json:"value"`
}

func (r echoRequest) GetFeatureName() string {
	return "Echo"
}

type echoResponse struct {
	Echo string `json:"echo"`
}

func (r echoResponse) GetFeatureName() string {
	return "Echo"
}

type scriptedHandler struct {
	handle func(action string, payload json.RawMessage) (ocpp.Response, error)
}

func (h *scriptedHandler) Handle(action string, payload json.RawMessage) (ocpp.Response, error) {
	return h.handle(action, payload)
}

type codedError struct {
	code ocpp.ErrorCode
}

func (e *codedError) Error() string {
	return "rejected"
}

func (e *codedError) ErrorCode() ocpp.ErrorCode {
	return e.code
}

// newTestServer upgrades incoming sessions and hands the connection to serve.
func newTestServer(t *testing.T, serve func(conn *websocket.Conn)) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{Subprotocols: []string{types.SubProtocol16}}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()
		serve(conn)
	}))
	t.Cleanup(server.Close)
	return server
}

func wsEndpoint(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func connectedClient(t *testing.T, server *httptest.Server) *Client {
	t.Helper()
	client := NewClient("CP001", wsEndpoint(server), nopLogger{})
	if err := client.Connect(); err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(client.Close)
	return client
}

func TestSendResolvesResult(t *testing.T) {
	server := newTestServer(t, func(conn *websocket.Conn) {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		message, err := ocpp.ParseMessage(data)
		if err != nil {
			t.Errorf("parse: %v", err)
			return
		}
		if message.Action != "Echo" {
			t.Errorf("action %s, want Echo", message.Action)
		}
		result := &ocpp.CallResult{UniqueId: message.UniqueId, Payload: echoResponse{Echo: "hello"}}
		frame, _ := result.MarshalJSON()
		_ = conn.WriteMessage(websocket.TextMessage, frame)
		_, _, _ = conn.ReadMessage()
	})
	client := connectedClient(t, server)

	payload, err := client.Send(echoRequest{Value: "hello"})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	var response echoResponse
	if err = json.Unmarshal(payload, &response); err != nil {
		t.Fatalf("decoding payload: %v", err)
	}
	if response.Echo != "hello" {
		t.Errorf("echo %q, want hello", response.Echo)
	}
}

func TestSendResolvesCallError(t *testing.T) {
	server := newTestServer(t, func(conn *websocket.Conn) {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		message, _ := ocpp.ParseMessage(data)
		callError := &ocpp.CallError{UniqueId: message.UniqueId, Code: ocpp.ErrorNotSupported, Description: "nope"}
		frame, _ := callError.MarshalJSON()
		_ = conn.WriteMessage(websocket.TextMessage, frame)
		_, _, _ = conn.ReadMessage()
	})
	client := connectedClient(t, server)

	if _, err := client.Send(echoRequest{Value: "x"}); err == nil {
		t.Fatal("expected an error from the CallError frame")
	} else if !strings.Contains(err.Error(), string(ocpp.ErrorNotSupported)) {
		t.Errorf("error %q should carry the code", err.Error())
	}
}

func TestIncomingCallAnswered(t *testing.T) {
	answered := make(chan *ocpp.IncomingMessage, 1)
	server := newTestServer(t, func(conn *websocket.Conn) {
		call := &ocpp.Call{UniqueId: "srv-1", Action: "Echo", Payload: echoRequest{Value: "ping"}}
		frame, _ := call.MarshalJSON()
		_ = conn.WriteMessage(websocket.TextMessage, frame)
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		message, err := ocpp.ParseMessage(data)
		if err != nil {
			t.Errorf("parse: %v", err)
			return
		}
		answered <- message
		_, _, _ = conn.ReadMessage()
	})
	client := connectedClient(t, server)
	client.SetCallHandler(&scriptedHandler{handle: func(action string, payload json.RawMessage) (ocpp.Response, error) {
		var request echoRequest
		if err := json.Unmarshal(payload, &request); err != nil {
			return nil, err
		}
		return echoResponse{Echo: request.Value}, nil
	}})

	select {
	case message := <-answered:
		if message.Type != ocpp.CallTypeResult || message.UniqueId != "srv-1" {
			t.Errorf("unexpected answer %+v", message)
		}
		var response echoResponse
		if err := json.Unmarshal(message.Payload, &response); err != nil {
			t.Fatalf("decoding answer: %v", err)
		}
		if response.Echo != "ping" {
			t.Errorf("echo %q, want ping", response.Echo)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no answer before deadline")
	}
}

func TestIncomingCallHandlerErrorBecomesCallError(t *testing.T) {
	answered := make(chan *ocpp.IncomingMessage, 1)
	server := newTestServer(t, func(conn *websocket.Conn) {
		call := &ocpp.Call{UniqueId: "srv-2", Action: "Echo", Payload: echoRequest{}}
		frame, _ := call.MarshalJSON()
		_ = conn.WriteMessage(websocket.TextMessage, frame)
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		message, _ := ocpp.ParseMessage(data)
		answered <- message
		_, _, _ = conn.ReadMessage()
	})
	client := connectedClient(t, server)
	client.SetCallHandler(&scriptedHandler{handle: func(string, json.RawMessage) (ocpp.Response, error) {
		return nil, &codedError{code: ocpp.ErrorSecurity}
	}})

	select {
	case message := <-answered:
		if message.Type != ocpp.CallTypeError || message.Code != ocpp.ErrorSecurity {
			t.Errorf("unexpected answer %+v", message)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no answer before deadline")
	}
}

func TestSendAfterClose(t *testing.T) {
	server := newTestServer(t, func(conn *websocket.Conn) {
		_, _, _ = conn.ReadMessage()
	})
	client := connectedClient(t, server)
	client.Close()
	if _, err := client.Send(echoRequest{Value: "x"}); err == nil {
		t.Fatal("send on a closed connection must fail")
	}
	// closing again is a no-op
	client.Close()
}
