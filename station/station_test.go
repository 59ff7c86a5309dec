package station

import (
	"testing"
	"time"

	"stationsim/internal/config"
	"stationsim/ocpp/core"
	"stationsim/types"
)

func TestBootAccepted(t *testing.T) {
	st, sender, clock := NewStation(testStationConfig(), nopLogger{}), newFakeSender(), newFakeClock()
	st.SetSender(sender)
	st.SetClock(clock)
	sender.respond(t, "BootNotification", map[string]interface{}{
		"status":      "Accepted",
		"currentTime": "2024-05-01T12:00:00Z",
		"interval":    300,
	})
	interval, err := st.Boot()
	if err != nil {
		t.Fatalf("boot: %v", err)
	}
	if interval != 300*time.Second {
		t.Errorf("interval %s, want 5m0s", interval)
	}
	if !st.IsRegistered() {
		t.Error("station should be registered")
	}
	for _, name := range []string{KeyHeartBeatInterval, KeyHeartbeatInterval} {
		if value, _ := st.configuration.Value(name); value != "300" {
			t.Errorf("%s = %q, want 300", name, value)
		}
	}
}

func TestBootPending(t *testing.T) {
	st, sender, clock := NewStation(testStationConfig(), nopLogger{}), newFakeSender(), newFakeClock()
	st.SetSender(sender)
	st.SetClock(clock)
	sender.respond(t, "BootNotification", map[string]interface{}{
		"status":      "Pending",
		"currentTime": "2024-05-01T12:00:00Z",
		"interval":    60,
	})
	interval, err := st.Boot()
	if err != nil {
		t.Fatalf("boot: %v", err)
	}
	if interval != 0 {
		t.Errorf("interval %s, want 0 while pending", interval)
	}
	if st.IsRegistered() {
		t.Error("pending station must not count as registered")
	}
	if !st.InPendingState() {
		t.Error("station should be in pending state")
	}
	// the proposed interval still drives the boot retry cadence
	if st.HeartbeatInterval() != 60*time.Second {
		t.Errorf("heartbeat interval %s, want 1m0s", st.HeartbeatInterval())
	}
}

func TestHeartbeat(t *testing.T) {
	st, sender, _ := newTestStation(t)
	sender.respond(t, "Heartbeat", map[string]interface{}{
		"currentTime": "2024-05-01T12:00:05Z",
	})
	if err := st.Heartbeat(); err != nil {
		t.Fatalf("heartbeat: %v", err)
	}
	if len(sender.requestsFor("Heartbeat")) != 1 {
		t.Error("expected one heartbeat request")
	}
}

func TestStartLocalTransactionRequiresAuthorization(t *testing.T) {
	st, sender, _ := newTestStation(t)
	sender.respond(t, "Authorize", map[string]interface{}{
		"idTagInfo": map[string]string{"status": "Invalid"},
	})
	if err := st.StartLocalTransaction(1, "BADTAG"); err == nil {
		t.Error("expected an error for an unauthorized tag")
	}
}

func TestStartLocalTransactionWithLocalAuthList(t *testing.T) {
	st, sender, _ := newTestStation(t, func(conf *config.Station) {
		conf.LocalAuthTags = []string{"LOCAL1"}
	})
	sender.respond(t, "StartTransaction", map[string]interface{}{
		"idTagInfo":     map[string]string{"status": "Accepted"},
		"transactionId": 200,
	})
	if err := st.StartLocalTransaction(1, "LOCAL1"); err != nil {
		t.Fatalf("start: %v", err)
	}
	// no Authorize round trip for a locally known tag
	if len(sender.requestsFor("Authorize")) != 0 {
		t.Error("local auth list tags must not authorize online")
	}
	if st.Connector(1).Status() != core.ChargePointStatusCharging {
		t.Errorf("connector status %s, want Charging", st.Connector(1).Status())
	}
}

func TestStartTransactionRejectedRestoresStatus(t *testing.T) {
	st, sender, _ := newTestStation(t)
	sender.respond(t, "StartTransaction", map[string]interface{}{
		"idTagInfo":     map[string]string{"status": "Blocked"},
		"transactionId": 0,
	})
	started, err := st.startTransaction(1, "TAG1", false)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if started {
		t.Fatal("blocked tag must not start a transaction")
	}
	if st.Connector(1).Status() != core.ChargePointStatusAvailable {
		t.Errorf("connector status %s, want Available again", st.Connector(1).Status())
	}
}

func TestStopTransactionTreatsMissingIdTagInfoAsAccepted(t *testing.T) {
	st, sender, _ := newTestStation(t)
	startTestTransaction(t, st, sender, 1, 80, "TAG1")
	sender.respond(t, "StopTransaction", map[string]interface{}{})
	stopped, err := st.StopTransactionOnConnector(1, core.ReasonEVDisconnected)
	if err != nil {
		t.Fatalf("stop: %v", err)
	}
	if !stopped {
		t.Fatal("stop should succeed without id tag info")
	}
	if st.Connector(1).TransactionStarted() {
		t.Error("transaction should be closed")
	}
}

func TestStopTransactionClearsTxProfiles(t *testing.T) {
	st, sender, clock := newTestStation(t)
	startTestTransaction(t, st, sender, 1, 81, "TAG1")
	connector := st.Connector(1)
	connector.setChargingProfile(testProfile(1, 0, types.ChargingProfilePurposeTxProfile,
		absoluteSchedule(clock.Now(), 600, types.ChargingSchedulePeriod{StartPeriod: 0, Limit: 16})))
	connector.setChargingProfile(testProfile(2, 0, types.ChargingProfilePurposeTxDefaultProfile,
		absoluteSchedule(clock.Now(), 600, types.ChargingSchedulePeriod{StartPeriod: 0, Limit: 32})))
	sender.respond(t, "StopTransaction", map[string]interface{}{})
	if _, err := st.StopTransactionOnConnector(1, core.ReasonLocal); err != nil {
		t.Fatalf("stop: %v", err)
	}
	remaining := connector.ChargingProfiles()
	if len(remaining) != 1 || remaining[0].ChargingProfilePurpose != types.ChargingProfilePurposeTxDefaultProfile {
		t.Errorf("unexpected profiles after stop %+v", remaining)
	}
}

func TestReportFaultBeforeConnection(t *testing.T) {
	st := NewStation(testStationConfig(), nopLogger{})
	if err := st.ReportFault(1, core.GroundFailure); err != nil {
		t.Fatalf("report fault: %v", err)
	}
	if st.Connector(1).Status() != core.ChargePointStatusFaulted {
		t.Errorf("connector status %s, want Faulted", st.Connector(1).Status())
	}
}

func TestReportFaultStopsTransaction(t *testing.T) {
	st, sender, _ := newTestStation(t)
	startTestTransaction(t, st, sender, 1, 95, "TAG1")
	sender.respond(t, "StopTransaction", map[string]interface{}{})
	if err := st.ReportFault(1, core.GroundFailure); err != nil {
		t.Fatalf("report fault: %v", err)
	}
	if st.Connector(1).TransactionStarted() {
		t.Error("transaction should be stopped on fault")
	}
	if st.Connector(1).Status() != core.ChargePointStatusFaulted {
		t.Errorf("connector status %s, want Faulted", st.Connector(1).Status())
	}
	notifications := sender.requestsFor("StatusNotification")
	last := notifications[len(notifications)-1].(*core.StatusNotificationRequest)
	if last.ErrorCode != core.GroundFailure {
		t.Errorf("error code %s, want GroundFailure", last.ErrorCode)
	}
}

func TestClearFault(t *testing.T) {
	st, sender, _ := newTestStation(t)
	if err := st.ReportFault(2, core.HighTemperature); err != nil {
		t.Fatalf("report fault: %v", err)
	}
	if err := st.ClearFault(2); err != nil {
		t.Fatalf("clear fault: %v", err)
	}
	if st.Connector(2).Status() != core.ChargePointStatusAvailable {
		t.Errorf("connector status %s, want Available", st.Connector(2).Status())
	}
	if err := st.ClearFault(2); err == nil {
		t.Error("clearing a healthy connector should fail")
	}
	if len(sender.requestsFor("StatusNotification")) != 2 {
		t.Error("expected a notification for the fault and one for the recovery")
	}
}

func TestNotifyAllStatuses(t *testing.T) {
	st, sender, _ := newTestStation(t)
	st.NotifyAllStatuses()
	if len(sender.requestsFor("StatusNotification")) != 3 {
		t.Errorf("expected a notification per connector, got %d", len(sender.requestsFor("StatusNotification")))
	}
}

func TestSnapshot(t *testing.T) {
	st, sender, _ := newTestStation(t)
	startTestTransaction(t, st, sender, 2, 90, "TAG1")
	snapshot := st.Snapshot()
	if snapshot.Id != "CP001" || !snapshot.Registered {
		t.Errorf("unexpected snapshot header %+v", snapshot)
	}
	if len(snapshot.Connectors) != 3 {
		t.Fatalf("expected 3 connectors, got %d", len(snapshot.Connectors))
	}
	var found bool
	for _, cs := range snapshot.Connectors {
		if cs.Id == 2 {
			found = true
			if cs.TransactionId == nil || *cs.TransactionId != 90 {
				t.Errorf("connector 2 snapshot %+v, want transaction 90", cs)
			}
			if cs.Status != string(core.ChargePointStatusCharging) {
				t.Errorf("connector 2 status %s, want Charging", cs.Status)
			}
		}
	}
	if !found {
		t.Fatal("connector 2 missing from snapshot")
	}
}
