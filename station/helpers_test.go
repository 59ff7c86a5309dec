package station

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"stationsim/internal/config"
	"stationsim/ocpp"
	"stationsim/types"
)

type nopLogger struct{}

func (nopLogger) FeatureEvent(_, _, _ string) {}
func (nopLogger) Debug(_ string)              {}
func (nopLogger) Warn(_ string)               {}
func (nopLogger) Error(_ string, _ error)     {}
func (nopLogger) RawDataEvent(_, _ string)    {}

// fakeSender records outgoing requests and answers them from a script.
// Unscripted features get an empty payload.
type fakeSender struct {
	mux       sync.Mutex
	requests  []ocpp.Request
	responses map[string]json.RawMessage
	errs      map[string]error
}

func newFakeSender() *fakeSender {
	return &fakeSender{
		responses: make(map[string]json.RawMessage),
		errs:      make(map[string]error),
	}
}

func (f *fakeSender) Send(request ocpp.Request) (json.RawMessage, error) {
	f.mux.Lock()
	defer f.mux.Unlock()
	f.requests = append(f.requests, request)
	feature := request.GetFeatureName()
	if err, ok := f.errs[feature]; ok {
		return nil, err
	}
	if response, ok := f.responses[feature]; ok {
		return response, nil
	}
	return json.RawMessage("{}"), nil
}

func (f *fakeSender) respond(t *testing.T, feature string, response interface{}) {
	t.Helper()
	data, err := json.Marshal(response)
	if err != nil {
		t.Fatalf("encoding scripted response for %s: %v", feature, err)
	}
	f.mux.Lock()
	f.responses[feature] = data
	f.mux.Unlock()
}

func (f *fakeSender) requestsFor(feature string) []ocpp.Request {
	f.mux.Lock()
	defer f.mux.Unlock()
	out := make([]ocpp.Request, 0)
	for _, request := range f.requests {
		if request.GetFeatureName() == feature {
			out = append(out, request)
		}
	}
	return out
}

// fakeClock advances instantly on Sleep so timer driven simulations run
// synchronously in tests. Deferred functions are collected and fired on
// demand.
type fakeClock struct {
	mux     sync.Mutex
	now     time.Time
	onSleep func(d time.Duration)
	after   []deferred
}

type deferred struct {
	due time.Time
	fn  func()
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mux.Lock()
	defer c.mux.Unlock()
	return c.now
}

func (c *fakeClock) Sleep(d time.Duration) {
	c.mux.Lock()
	c.now = c.now.Add(d)
	hook := c.onSleep
	c.mux.Unlock()
	if hook != nil {
		hook(d)
	}
}

func (c *fakeClock) AfterFunc(d time.Duration, fn func()) {
	c.mux.Lock()
	defer c.mux.Unlock()
	c.after = append(c.after, deferred{due: c.now.Add(d), fn: fn})
}

// advance moves the clock forward and runs every deferred function that
// became due.
func (c *fakeClock) advance(d time.Duration) {
	c.mux.Lock()
	c.now = c.now.Add(d)
	now := c.now
	due := make([]func(), 0)
	remaining := c.after[:0]
	for _, entry := range c.after {
		if !entry.due.After(now) {
			due = append(due, entry.fn)
		} else {
			remaining = append(remaining, entry)
		}
	}
	c.after = remaining
	c.mux.Unlock()
	for _, fn := range due {
		fn()
	}
}

func testStationConfig() config.Station {
	return config.Station{
		Id:                "CP001",
		Vendor:            "stationsim",
		Model:             "virtual-cp",
		Connectors:        2,
		StrictCompliance:  true,
		HeartbeatInterval: 600,
		ResetTime:         1,
		LogDir:            ".",
		FeatureProfiles: []string{
			string(types.FeatureProfileCore),
			string(types.FeatureProfileSmartCharging),
			string(types.FeatureProfileReservation),
			string(types.FeatureProfileFirmwareManagement),
			string(types.FeatureProfileRemoteTrigger),
		},
		Firmware: config.Firmware{MinDelay: 1, MaxDelay: 2, Reset: false},
	}
}

// newTestStation returns a registered station with a fake sender and a
// fake clock installed.
func newTestStation(t *testing.T, mutate ...func(*config.Station)) (*Station, *fakeSender, *fakeClock) {
	t.Helper()
	conf := testStationConfig()
	for _, m := range mutate {
		m(&conf)
	}
	st := NewStation(conf, nopLogger{})
	sender := newFakeSender()
	clock := newFakeClock()
	st.SetSender(sender)
	st.SetClock(clock)
	accepted := types.RegistrationStatusAccepted
	st.bootStatus = &accepted
	return st, sender, clock
}

func mustMarshal(t *testing.T, value interface{}) json.RawMessage {
	t.Helper()
	data, err := json.Marshal(value)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return data
}

// startTestTransaction drives a transaction start through the fake sender.
func startTestTransaction(t *testing.T, st *Station, sender *fakeSender, connectorId, transactionId int, idTag string) {
	t.Helper()
	sender.respond(t, "StartTransaction", map[string]interface{}{
		"idTagInfo":     map[string]string{"status": "Accepted"},
		"transactionId": transactionId,
	})
	started, err := st.startTransaction(connectorId, idTag, false)
	if err != nil {
		t.Fatalf("start transaction: %v", err)
	}
	if !started {
		t.Fatalf("transaction on connector %d not started", connectorId)
	}
}
