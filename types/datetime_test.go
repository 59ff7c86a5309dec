package types

import (
	"encoding/json"
	"testing"
	"time"
)

func TestParseDateTimeLayouts(t *testing.T) {
	values := []string{
		"2024-05-01T12:00:00Z",
		"2024-05-01T12:00:00.123Z",
		"2024-05-01T12:00:00+02:00",
		"2024-05-01T12:00:00",
		"2024-05-01 12:00:00",
	}
	for _, value := range values {
		if _, err := ParseDateTime(value); err != nil {
			t.Errorf("parse %q: %v", value, err)
		}
	}
	if _, err := ParseDateTime("yesterday"); err == nil {
		t.Error("nonsense value should not parse")
	}
}

func TestDateTimeMarshalUTC(t *testing.T) {
	zone := time.FixedZone("CEST", 2*3600)
	dt := NewDateTime(time.Date(2024, 5, 1, 14, 0, 0, 0, zone))
	data, err := json.Marshal(dt)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `"2024-05-01T12:00:00Z"` {
		t.Errorf("marshalled %s, want UTC", data)
	}
}

func TestDateTimeUnmarshal(t *testing.T) {
	var payload struct {
		Timestamp *DateTime `json:"timestamp"`
	}
	if err := json.Unmarshal([]byte(`{"timestamp":"2024-05-01T12:00:00Z"}`), &payload); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	want := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	if payload.Timestamp == nil || !payload.Timestamp.Time.Equal(want) {
		t.Errorf("unmarshalled %v, want %s", payload.Timestamp, want)
	}
}

func TestDateTimeUnmarshalNull(t *testing.T) {
	var payload struct {
		Timestamp *DateTime `json:"timestamp"`
	}
	if err := json.Unmarshal([]byte(`{"timestamp":null}`), &payload); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if payload.Timestamp != nil {
		t.Errorf("unmarshalled %v, want nil", payload.Timestamp)
	}
}
