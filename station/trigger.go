package station

import (
	"fmt"
	"time"

	"stationsim/ocpp"
	"stationsim/ocpp/core"
	"stationsim/ocpp/remotetrigger"
	"stationsim/types"
)

// delay before a triggered message goes out
const triggerMessageDelay = 2 * time.Second

// handleTriggerMessage accepts BootNotification, Heartbeat and
// StatusNotification triggers and schedules the requested message.
func (s *Station) handleTriggerMessage(request *remotetrigger.TriggerMessageRequest) (*remotetrigger.TriggerMessageResponse, error) {
	if !s.hasFeatureProfile(types.FeatureProfileRemoteTrigger) {
		return remotetrigger.NewTriggerMessageResponse(remotetrigger.TriggerMessageStatusNotImplemented), nil
	}
	switch request.RequestedMessage {
	case remotetrigger.MessageTriggerBootNotification:
		s.scheduleTriggered(func() []ocpp.Request {
			return []ocpp.Request{core.NewBootNotificationRequest(s.vendor, s.model)}
		})
	case remotetrigger.MessageTriggerHeartbeat:
		s.scheduleTriggered(func() []ocpp.Request {
			return []ocpp.Request{core.NewHeartbeatRequest()}
		})
	case remotetrigger.MessageTriggerStatusNotification:
		if request.ConnectorId != nil {
			connectorId := *request.ConnectorId
			connector, ok := s.connectors[connectorId]
			if !ok {
				return remotetrigger.NewTriggerMessageResponse(remotetrigger.TriggerMessageStatusRejected), nil
			}
			status := connector.status
			s.scheduleTriggered(func() []ocpp.Request {
				return []ocpp.Request{core.NewStatusNotificationRequest(connectorId, status)}
			})
		} else {
			s.scheduleTriggered(func() []ocpp.Request {
				s.mux.Lock()
				defer s.mux.Unlock()
				requests := make([]ocpp.Request, 0, len(s.connectors))
				for _, id := range s.ConnectorIds() {
					requests = append(requests, core.NewStatusNotificationRequest(id, s.connectors[id].status))
				}
				return requests
			})
		}
	default:
		return remotetrigger.NewTriggerMessageResponse(remotetrigger.TriggerMessageStatusNotImplemented), nil
	}
	return remotetrigger.NewTriggerMessageResponse(remotetrigger.TriggerMessageStatusAccepted), nil
}

func (s *Station) scheduleTriggered(build func() []ocpp.Request) {
	s.clock.AfterFunc(triggerMessageDelay, func() {
		if s.isClosed() {
			return
		}
		for _, request := range build() {
			if _, err := s.sender.Send(request); err != nil {
				s.logger.Error(fmt.Sprintf("%s: triggered %s", s.id, request.GetFeatureName()), err)
			}
		}
	})
}
