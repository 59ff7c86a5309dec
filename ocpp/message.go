package ocpp

import (
	"encoding/json"
	"fmt"

	"stationsim/utility"
)

type CallType int

const (
	CallTypeRequest CallType = 2
	CallTypeResult  CallType = 3
	CallTypeError   CallType = 4
)

type ErrorCode string

const (
	ErrorNotImplemented       ErrorCode = "NotImplemented"
	ErrorNotSupported         ErrorCode = "NotSupported"
	ErrorInternal             ErrorCode = "InternalError"
	ErrorSecurity             ErrorCode = "SecurityError"
	ErrorFormationViolation   ErrorCode = "FormationViolation"
	ErrorOccurrenceConstraint ErrorCode = "OccurenceConstraintViolation"
	ErrorTypeConstraint       ErrorCode = "TypeConstraintViolation"
	ErrorGeneric              ErrorCode = "GenericError"
)

// Call is an OCPP-J request message: [2, uniqueId, action, payload].
type Call struct {
	UniqueId string
	Action   string
	Payload  Request
}

func (call *Call) MarshalJSON() ([]byte, error) {
	fields := make([]interface{}, 4)
	fields[0] = int(CallTypeRequest)
	fields[1] = call.UniqueId
	fields[2] = call.Action
	fields[3] = call.Payload
	return json.Marshal(fields)
}

// CallResult is an OCPP-J result message: [3, uniqueId, payload].
type CallResult struct {
	UniqueId string
	Payload  Response
}

func (callResult *CallResult) MarshalJSON() ([]byte, error) {
	fields := make([]interface{}, 3)
	fields[0] = int(CallTypeResult)
	fields[1] = callResult.UniqueId
	fields[2] = callResult.Payload
	return json.Marshal(fields)
}

// CallError is an OCPP-J error message: [4, uniqueId, errorCode, description, details].
type CallError struct {
	UniqueId    string
	Code        ErrorCode
	Description string
}

func (callError *CallError) MarshalJSON() ([]byte, error) {
	fields := make([]interface{}, 5)
	fields[0] = int(CallTypeError)
	fields[1] = callError.UniqueId
	fields[2] = string(callError.Code)
	fields[3] = callError.Description
	fields[4] = struct{}{}
	return json.Marshal(fields)
}

// IncomingMessage is one decoded frame received from the central system,
// either a server-initiated request or the result of a request of ours.
type IncomingMessage struct {
	Type     CallType
	UniqueId string
	Action   string          // requests only
	Payload  json.RawMessage // request payload or result payload
	Code     ErrorCode       // errors only
	Reason   string          // errors only
}

// ParseMessage decodes a raw OCPP-J frame without assuming the action is known;
// request payload decoding is left to the command dispatcher.
func ParseMessage(data []byte) (*IncomingMessage, error) {
	var fields []json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, err
	}
	if len(fields) < 3 {
		return nil, utility.Err("incompatible message structure; expected at least 3 elements")
	}
	var rawType int
	if err := json.Unmarshal(fields[0], &rawType); err != nil {
		return nil, utility.Err("invalid message type id")
	}
	message := &IncomingMessage{Type: CallType(rawType)}
	if err := json.Unmarshal(fields[1], &message.UniqueId); err != nil {
		return nil, utility.Err("invalid message unique id")
	}
	switch message.Type {
	case CallTypeRequest:
		if len(fields) != 4 {
			return nil, utility.Err("unsupported request format; expected length: 4 elements")
		}
		if err := json.Unmarshal(fields[2], &message.Action); err != nil {
			return nil, utility.Err("invalid action in request")
		}
		message.Payload = fields[3]
	case CallTypeResult:
		message.Payload = fields[2]
	case CallTypeError:
		var code string
		if err := json.Unmarshal(fields[2], &code); err != nil {
			return nil, utility.Err("invalid error code in error message")
		}
		message.Code = ErrorCode(code)
		if len(fields) > 3 {
			_ = json.Unmarshal(fields[3], &message.Reason)
		}
	default:
		return nil, fmt.Errorf("invalid message type id: %v", rawType)
	}
	return message, nil
}
