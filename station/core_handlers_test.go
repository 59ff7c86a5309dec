package station

import (
	"encoding/json"
	"testing"
	"time"

	"stationsim/ocpp/core"
	"stationsim/types"
)

func TestChangeConfigurationUnknownKey(t *testing.T) {
	st, _, _ := newTestStation(t)
	response, err := st.handleChangeConfiguration(&core.ChangeConfigurationRequest{Key: "NoSuchKey", Value: "1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if response.Status != core.ConfigurationStatusNotSupported {
		t.Errorf("expected NotSupported, got %s", response.Status)
	}
}

func TestChangeConfigurationReadonlyKey(t *testing.T) {
	st, _, _ := newTestStation(t)
	response, err := st.handleChangeConfiguration(&core.ChangeConfigurationRequest{Key: KeyNumberOfConnectors, Value: "5"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if response.Status != core.ConfigurationStatusRejected {
		t.Errorf("expected Rejected, got %s", response.Status)
	}
}

func TestChangeConfigurationHeartbeatKeysStayInSync(t *testing.T) {
	st, _, _ := newTestStation(t)
	var restarted time.Duration
	st.SetHeartbeatRestart(func(interval time.Duration) { restarted = interval })
	response, err := st.handleChangeConfiguration(&core.ChangeConfigurationRequest{Key: KeyHeartbeatInterval, Value: "120"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if response.Status != core.ConfigurationStatusAccepted {
		t.Fatalf("expected Accepted, got %s", response.Status)
	}
	for _, name := range []string{KeyHeartBeatInterval, KeyHeartbeatInterval} {
		if value, _ := st.configuration.Value(name); value != "120" {
			t.Errorf("%s = %q, want 120", name, value)
		}
	}
	if restarted != 120*time.Second {
		t.Errorf("heartbeat restarted with %s, want 2m0s", restarted)
	}
}

func TestChangeConfigurationWebSocketPingInterval(t *testing.T) {
	st, _, _ := newTestStation(t)
	var restarted time.Duration
	st.SetWebSocketPingRestart(func(interval time.Duration) { restarted = interval })
	if _, err := st.handleChangeConfiguration(&core.ChangeConfigurationRequest{Key: KeyWebSocketPingInterval, Value: "30"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if restarted != 30*time.Second {
		t.Errorf("ping restarted with %s, want 30s", restarted)
	}
}

func TestChangeConfigurationRebootRequired(t *testing.T) {
	st, _, _ := newTestStation(t)
	st.configuration.Add(ConfigurationKey{Key: "MeterValueSampleInterval", Visible: true, Reboot: true, Value: "60"})
	response, err := st.handleChangeConfiguration(&core.ChangeConfigurationRequest{Key: "MeterValueSampleInterval", Value: "30"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if response.Status != core.ConfigurationStatusRebootRequired {
		t.Errorf("expected RebootRequired, got %s", response.Status)
	}
}

func TestGetConfigurationSubset(t *testing.T) {
	st, _, _ := newTestStation(t)
	response, err := st.handleGetConfiguration(&core.GetConfigurationRequest{Key: []string{KeyNumberOfConnectors, "Bogus"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(response.ConfigurationKey) != 1 || response.ConfigurationKey[0].Key != KeyNumberOfConnectors {
		t.Errorf("unexpected keys %v", response.ConfigurationKey)
	}
	if len(response.UnknownKey) != 1 || response.UnknownKey[0] != "Bogus" {
		t.Errorf("unexpected unknown keys %v", response.UnknownKey)
	}
}

func TestGetConfigurationHidesInvisibleKeys(t *testing.T) {
	st, _, _ := newTestStation(t)
	response, err := st.handleGetConfiguration(&core.GetConfigurationRequest{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, key := range response.ConfigurationKey {
		if key.Key == KeyHeartbeatInterval {
			t.Errorf("alias key %s should stay hidden", KeyHeartbeatInterval)
		}
	}

	response, err = st.handleGetConfiguration(&core.GetConfigurationRequest{Key: []string{KeyHeartbeatInterval}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(response.ConfigurationKey) != 0 {
		t.Error("hidden key must not be listed")
	}
	if len(response.UnknownKey) != 0 {
		t.Error("hidden key must not be reported unknown")
	}
}

func TestChangeAvailabilityImmediate(t *testing.T) {
	st, sender, _ := newTestStation(t)
	response, err := st.handleChangeAvailability(&core.ChangeAvailabilityRequest{ConnectorId: 1, Type: types.AvailabilityTypeInoperative})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if response.Status != core.AvailabilityStatusAccepted {
		t.Fatalf("expected Accepted, got %s", response.Status)
	}
	if st.Connector(1).Status() != core.ChargePointStatusUnavailable {
		t.Errorf("connector status %s, want Unavailable", st.Connector(1).Status())
	}
	if len(sender.requestsFor("StatusNotification")) != 1 {
		t.Error("expected one status notification")
	}
}

func TestChangeAvailabilityScheduledDuringTransaction(t *testing.T) {
	st, sender, _ := newTestStation(t)
	startTestTransaction(t, st, sender, 1, 77, "TAG1")
	response, err := st.handleChangeAvailability(&core.ChangeAvailabilityRequest{ConnectorId: 1, Type: types.AvailabilityTypeInoperative})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if response.Status != core.AvailabilityStatusScheduled {
		t.Fatalf("expected Scheduled, got %s", response.Status)
	}
	// the change applies when the transaction ends
	if _, err = st.StopTransactionOnConnector(1, core.ReasonLocal); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if st.Connector(1).Availability() != types.AvailabilityTypeInoperative {
		t.Error("availability change was not applied at transaction end")
	}
	if st.Connector(1).Status() != core.ChargePointStatusUnavailable {
		t.Errorf("connector status %s, want Unavailable", st.Connector(1).Status())
	}
}

func TestChangeAvailabilityConnectorZeroFansOut(t *testing.T) {
	st, _, _ := newTestStation(t)
	response, err := st.handleChangeAvailability(&core.ChangeAvailabilityRequest{ConnectorId: 0, Type: types.AvailabilityTypeInoperative})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if response.Status != core.AvailabilityStatusAccepted {
		t.Fatalf("expected Accepted, got %s", response.Status)
	}
	for _, id := range st.ConnectorIds() {
		if st.Connector(id).Availability() != types.AvailabilityTypeInoperative {
			t.Errorf("connector %d still operative", id)
		}
	}
}

func TestChangeAvailabilityOperativeRejectedWhileStationInoperative(t *testing.T) {
	st, _, _ := newTestStation(t)
	st.Connector(0).availability = types.AvailabilityTypeInoperative
	response, err := st.handleChangeAvailability(&core.ChangeAvailabilityRequest{ConnectorId: 1, Type: types.AvailabilityTypeOperative})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if response.Status != core.AvailabilityStatusRejected {
		t.Errorf("expected Rejected while the station is inoperative, got %s", response.Status)
	}
}

func TestUnlockConnectorStopsTransaction(t *testing.T) {
	st, sender, _ := newTestStation(t)
	startTestTransaction(t, st, sender, 1, 42, "TAG1")
	sender.respond(t, "StopTransaction", map[string]interface{}{
		"idTagInfo": map[string]string{"status": "Accepted"},
	})
	response, err := st.handleUnlockConnector(&core.UnlockConnectorRequest{ConnectorId: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if response.Status != core.UnlockStatusUnlocked {
		t.Fatalf("expected Unlocked, got %s", response.Status)
	}
	stops := sender.requestsFor("StopTransaction")
	if len(stops) != 1 {
		t.Fatal("expected one StopTransaction request")
	}
	stop := stops[0].(*core.StopTransactionRequest)
	if stop.Reason != core.ReasonUnlockCommand {
		t.Errorf("stop reason %s, want UnlockCommand", stop.Reason)
	}
	if st.Connector(1).TransactionStarted() {
		t.Error("transaction still marked running")
	}
}

func TestUnlockConnectorUnknown(t *testing.T) {
	st, _, _ := newTestStation(t)
	for _, connectorId := range []int{0, 9} {
		response, err := st.handleUnlockConnector(&core.UnlockConnectorRequest{ConnectorId: connectorId})
		if err != nil {
			t.Fatalf("connector %d: unexpected error: %v", connectorId, err)
		}
		if response.Status != core.UnlockStatusNotSupported {
			t.Errorf("connector %d: expected NotSupported, got %s", connectorId, response.Status)
		}
	}
}

func TestUnlockConnectorForcesAvailable(t *testing.T) {
	st, sender, _ := newTestStation(t)
	st.Connector(1).status = core.ChargePointStatusPreparing
	response, err := st.handleUnlockConnector(&core.UnlockConnectorRequest{ConnectorId: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if response.Status != core.UnlockStatusUnlocked {
		t.Fatalf("expected Unlocked, got %s", response.Status)
	}
	if st.Connector(1).Status() != core.ChargePointStatusAvailable {
		t.Errorf("connector status %s, want Available", st.Connector(1).Status())
	}
	if len(sender.requestsFor("StatusNotification")) != 1 {
		t.Error("expected one status notification")
	}
}

func TestUnlockConnectorZeroDispatched(t *testing.T) {
	st, _, _ := newTestStation(t)
	response, err := st.Handle("UnlockConnector", json.RawMessage(`{"connectorId":0}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	unlock, ok := response.(*core.UnlockConnectorResponse)
	if !ok {
		t.Fatalf("unexpected response type %T", response)
	}
	if unlock.Status != core.UnlockStatusNotSupported {
		t.Errorf("expected NotSupported, got %s", unlock.Status)
	}
}

func TestClearCacheDropsAuthorizationCache(t *testing.T) {
	st, sender, _ := newTestStation(t)
	sender.respond(t, "Authorize", map[string]interface{}{
		"idTagInfo": map[string]string{"status": "Accepted"},
	})
	if !st.isIdTagAuthorized("TAG9") {
		t.Fatal("expected tag to authorize")
	}
	if !st.authCache["TAG9"] {
		t.Fatal("expected tag to be cached")
	}
	if _, err := st.handleClearCache(&core.ClearCacheRequest{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if st.authCache["TAG9"] {
		t.Error("cache should be empty after ClearCache")
	}
}

func TestDataTransferUnknownVendor(t *testing.T) {
	st, _, _ := newTestStation(t)
	response, err := st.handleDataTransfer(&core.DataTransferRequest{VendorId: "acme"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if response.Status != core.DataTransferStatusUnknownVendorId {
		t.Errorf("expected UnknownVendorId, got %s", response.Status)
	}
}

func TestDataTransferKnownVendorEchoesData(t *testing.T) {
	st, _, _ := newTestStation(t)
	response, err := st.handleDataTransfer(&core.DataTransferRequest{VendorId: "stationsim", Data: "ping"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if response.Status != core.DataTransferStatusAccepted {
		t.Fatalf("expected Accepted, got %s", response.Status)
	}
	if response.Data != "ping" {
		t.Errorf("expected data echo, got %v", response.Data)
	}
}

func TestResetStopsTransactionsAndSchedulesReboot(t *testing.T) {
	st, sender, clock := newTestStation(t)
	startTestTransaction(t, st, sender, 1, 55, "TAG1")
	sender.respond(t, "StopTransaction", map[string]interface{}{})
	rebooted := make(chan struct{}, 1)
	st.SetRebootHook(func() { rebooted <- struct{}{} })
	st.reset(core.ReasonSoftReset)
	stops := sender.requestsFor("StopTransaction")
	if len(stops) != 1 {
		t.Fatal("expected one StopTransaction request")
	}
	if stops[0].(*core.StopTransactionRequest).Reason != core.ReasonSoftReset {
		t.Errorf("stop reason %s, want SoftReset", stops[0].(*core.StopTransactionRequest).Reason)
	}
	if !st.InUnknownState() {
		t.Error("registration state should be dropped on reset")
	}
	clock.advance(2 * time.Second)
	select {
	case <-rebooted:
	default:
		t.Error("reboot hook was not called")
	}
}
