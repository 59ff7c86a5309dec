package station

import (
	"testing"
	"time"

	"stationsim/ocpp/core"
	"stationsim/ocpp/remotetrigger"
)

func TestTriggerHeartbeat(t *testing.T) {
	st, sender, clock := newTestStation(t)
	response, err := st.handleTriggerMessage(&remotetrigger.TriggerMessageRequest{RequestedMessage: remotetrigger.MessageTriggerHeartbeat})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if response.Status != remotetrigger.TriggerMessageStatusAccepted {
		t.Fatalf("expected Accepted, got %s", response.Status)
	}
	if len(sender.requestsFor("Heartbeat")) != 0 {
		t.Fatal("triggered message must not go out before the delay")
	}
	clock.advance(triggerMessageDelay)
	if len(sender.requestsFor("Heartbeat")) != 1 {
		t.Error("expected the triggered heartbeat after the delay")
	}
}

func TestTriggerBootNotification(t *testing.T) {
	st, sender, clock := newTestStation(t)
	if _, err := st.handleTriggerMessage(&remotetrigger.TriggerMessageRequest{RequestedMessage: remotetrigger.MessageTriggerBootNotification}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	clock.advance(triggerMessageDelay)
	boots := sender.requestsFor("BootNotification")
	if len(boots) != 1 {
		t.Fatal("expected a triggered boot notification")
	}
	boot := boots[0].(*core.BootNotificationRequest)
	if boot.ChargePointVendor != "stationsim" || boot.ChargePointModel != "virtual-cp" {
		t.Errorf("unexpected boot payload %+v", boot)
	}
}

func TestTriggerStatusNotificationSingleConnector(t *testing.T) {
	st, sender, clock := newTestStation(t)
	one := 1
	response, err := st.handleTriggerMessage(&remotetrigger.TriggerMessageRequest{
		RequestedMessage: remotetrigger.MessageTriggerStatusNotification,
		ConnectorId:      &one,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if response.Status != remotetrigger.TriggerMessageStatusAccepted {
		t.Fatalf("expected Accepted, got %s", response.Status)
	}
	clock.advance(triggerMessageDelay)
	notifications := sender.requestsFor("StatusNotification")
	if len(notifications) != 1 {
		t.Fatalf("expected one status notification, got %d", len(notifications))
	}
	notification := notifications[0].(*core.StatusNotificationRequest)
	if notification.ConnectorId != 1 || notification.Status != core.ChargePointStatusAvailable {
		t.Errorf("unexpected notification %+v", notification)
	}
}

func TestTriggerStatusNotificationAllConnectors(t *testing.T) {
	st, sender, clock := newTestStation(t)
	if _, err := st.handleTriggerMessage(&remotetrigger.TriggerMessageRequest{
		RequestedMessage: remotetrigger.MessageTriggerStatusNotification,
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	clock.advance(triggerMessageDelay)
	notifications := sender.requestsFor("StatusNotification")
	// connector 0 reports alongside the physical connectors
	if len(notifications) != 3 {
		t.Errorf("expected 3 status notifications, got %d", len(notifications))
	}
}

func TestTriggerStatusNotificationUnknownConnector(t *testing.T) {
	st, _, _ := newTestStation(t)
	nine := 9
	response, err := st.handleTriggerMessage(&remotetrigger.TriggerMessageRequest{
		RequestedMessage: remotetrigger.MessageTriggerStatusNotification,
		ConnectorId:      &nine,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if response.Status != remotetrigger.TriggerMessageStatusRejected {
		t.Errorf("expected Rejected, got %s", response.Status)
	}
}

func TestTriggerMeterValuesNotImplemented(t *testing.T) {
	st, _, _ := newTestStation(t)
	response, err := st.handleTriggerMessage(&remotetrigger.TriggerMessageRequest{
		RequestedMessage: remotetrigger.MessageTriggerMeterValues,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if response.Status != remotetrigger.TriggerMessageStatusNotImplemented {
		t.Errorf("expected NotImplemented, got %s", response.Status)
	}
}

func TestTriggeredMessageSkippedAfterTeardown(t *testing.T) {
	st, sender, clock := newTestStation(t)
	if _, err := st.handleTriggerMessage(&remotetrigger.TriggerMessageRequest{RequestedMessage: remotetrigger.MessageTriggerHeartbeat}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	st.Teardown()
	clock.advance(triggerMessageDelay + time.Second)
	if len(sender.requestsFor("Heartbeat")) != 0 {
		t.Error("triggered message must not go out after teardown")
	}
}
