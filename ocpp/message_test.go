package ocpp

import (
	"encoding/json"
	"testing"
)

type pingRequest struct {
	Value string `json:"value"`
}

func (r pingRequest) GetFeatureName() string {
	return "Ping"
}

type pingResponse struct {
	Echo string `json:"echo"`
}

func (r pingResponse) GetFeatureName() string {
	return "Ping"
}

func TestCallMarshal(t *testing.T) {
	call := &Call{UniqueId: "id-1", Action: "Ping", Payload: pingRequest{Value: "hello"}}
	data, err := json.Marshal(call)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `[2,"id-1","Ping",{"value":"hello"}]`
	if string(data) != want {
		t.Errorf("frame %s, want %s", data, want)
	}
}

func TestCallResultMarshal(t *testing.T) {
	result := &CallResult{UniqueId: "id-2", Payload: pingResponse{Echo: "hello"}}
	data, err := json.Marshal(result)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `[3,"id-2",{"echo":"hello"}]`
	if string(data) != want {
		t.Errorf("frame %s, want %s", data, want)
	}
}

func TestCallErrorMarshal(t *testing.T) {
	callError := &CallError{UniqueId: "id-3", Code: ErrorNotSupported, Description: "no such feature"}
	data, err := json.Marshal(callError)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `[4,"id-3","NotSupported","no such feature",{}]`
	if string(data) != want {
		t.Errorf("frame %s, want %s", data, want)
	}
}

func TestParseMessageRequest(t *testing.T) {
	message, err := ParseMessage([]byte(`[2,"abc","Reset",{"type":"Soft"}]`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if message.Type != CallTypeRequest || message.UniqueId != "abc" || message.Action != "Reset" {
		t.Errorf("unexpected message %+v", message)
	}
	if string(message.Payload) != `{"type":"Soft"}` {
		t.Errorf("payload %s", message.Payload)
	}
}

func TestParseMessageResult(t *testing.T) {
	message, err := ParseMessage([]byte(`[3,"abc",{"status":"Accepted"}]`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if message.Type != CallTypeResult || message.UniqueId != "abc" {
		t.Errorf("unexpected message %+v", message)
	}
	if string(message.Payload) != `{"status":"Accepted"}` {
		t.Errorf("payload %s", message.Payload)
	}
}

func TestParseMessageError(t *testing.T) {
	message, err := ParseMessage([]byte(`[4,"abc","InternalError","broken",{}]`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if message.Type != CallTypeError || message.Code != ErrorInternal || message.Reason != "broken" {
		t.Errorf("unexpected message %+v", message)
	}
}

func TestParseMessageRejectsBadFrames(t *testing.T) {
	frames := []string{
		`{"not":"an array"}`,
		`[2,"abc"]`,
		`[2,"abc","Reset"]`,
		`["two","abc","Reset",{}]`,
		`[9,"abc",{}]`,
	}
	for _, frame := range frames {
		if _, err := ParseMessage([]byte(frame)); err == nil {
			t.Errorf("frame %s should not parse", frame)
		}
	}
}
