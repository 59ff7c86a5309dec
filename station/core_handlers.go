package station

import (
	"strconv"
	"time"

	"stationsim/ocpp/core"
	"stationsim/types"
)

// vendor ids accepted by DataTransfer
var dataTransferVendorIds = []string{"stationsim"}

func (s *Station) handleReset(request *core.ResetRequest) (*core.ResetResponse, error) {
	reason := core.ReasonSoftReset
	if request.Type == core.ResetTypeHard {
		reason = core.ReasonHardReset
	}
	// the confirmation goes out before the station actually goes down
	go s.reset(reason)
	return core.NewResetResponse(core.ResetStatusAccepted), nil
}

func (s *Station) handleClearCache(_ *core.ClearCacheRequest) (*core.ClearCacheResponse, error) {
	s.authCache = make(map[string]bool)
	return core.NewClearCacheResponse(core.ClearCacheStatusAccepted), nil
}

// handleUnlockConnector stops any running transaction with reason
// UnlockCommand before reporting the connector unlocked.
func (s *Station) handleUnlockConnector(request *core.UnlockConnectorRequest) (*core.UnlockConnectorResponse, error) {
	connector, ok := s.connectors[request.ConnectorId]
	if !ok || request.ConnectorId == 0 {
		return core.NewUnlockConnectorResponse(core.UnlockStatusNotSupported), nil
	}
	if connector.isTransacting() {
		stopped, err := s.StopTransactionOnConnector(request.ConnectorId, core.ReasonUnlockCommand)
		if err != nil {
			s.logger.Error(s.id+": stop transaction on unlock", err)
			return core.NewUnlockConnectorResponse(core.UnlockStatusUnlockFailed), nil
		}
		if !stopped {
			return core.NewUnlockConnectorResponse(core.UnlockStatusUnlockFailed), nil
		}
	} else {
		s.sendAndSetConnectorStatus(request.ConnectorId, core.ChargePointStatusAvailable)
	}
	return core.NewUnlockConnectorResponse(core.UnlockStatusUnlocked), nil
}

// handleGetConfiguration returns the visible keys, or the named subset with
// unknown names echoed back.
func (s *Station) handleGetConfiguration(request *core.GetConfigurationRequest) (*core.GetConfigurationResponse, error) {
	response := &core.GetConfigurationResponse{}
	if len(request.Key) == 0 {
		response.ConfigurationKey = s.configuration.Visible()
		return response, nil
	}
	for _, name := range request.Key {
		key := s.configuration.Get(name)
		if key == nil {
			response.UnknownKey = append(response.UnknownKey, name)
			continue
		}
		if !key.Visible {
			continue
		}
		value := key.Value
		response.ConfigurationKey = append(response.ConfigurationKey, core.ConfigurationKey{
			Key:      key.Key,
			Readonly: key.Readonly,
			Value:    &value,
		})
	}
	return response, nil
}

func (s *Station) handleChangeConfiguration(request *core.ChangeConfigurationRequest) (*core.ChangeConfigurationResponse, error) {
	key := s.configuration.Get(request.Key)
	if key == nil {
		return core.NewChangeConfigurationResponse(core.ConfigurationStatusNotSupported), nil
	}
	if key.Readonly {
		return core.NewChangeConfigurationResponse(core.ConfigurationStatusRejected), nil
	}
	key.Value = request.Value
	s.applyConfigurationChange(key.Key, request.Value)
	if key.Reboot {
		return core.NewChangeConfigurationResponse(core.ConfigurationStatusRebootRequired), nil
	}
	return core.NewChangeConfigurationResponse(core.ConfigurationStatusAccepted), nil
}

// applyConfigurationChange propagates side effects of a changed key. The two
// spellings of the heartbeat interval key stay in sync.
func (s *Station) applyConfigurationChange(name, value string) {
	switch name {
	case KeyHeartBeatInterval, KeyHeartbeatInterval:
		seconds, err := strconv.Atoi(value)
		if err != nil || seconds <= 0 {
			s.warnf("ignoring heartbeat interval %q", value)
			return
		}
		s.configuration.Set(KeyHeartBeatInterval, value)
		s.configuration.Set(KeyHeartbeatInterval, value)
		s.heartbeatInterval = time.Duration(seconds) * time.Second
		if s.heartbeatRestart != nil {
			s.heartbeatRestart(s.heartbeatInterval)
		}
	case KeyWebSocketPingInterval:
		seconds, err := strconv.Atoi(value)
		if err != nil || seconds < 0 {
			s.warnf("ignoring ws ping interval %q", value)
			return
		}
		if s.wsPingRestart != nil {
			s.wsPingRestart(time.Duration(seconds) * time.Second)
		}
	}
}

// handleChangeAvailability fans connector 0 out to every connector. A
// connector with a running transaction defers the change to transaction end
// and turns the aggregate response into Scheduled.
func (s *Station) handleChangeAvailability(request *core.ChangeAvailabilityRequest) (*core.ChangeAvailabilityResponse, error) {
	var ids []int
	if request.ConnectorId == 0 {
		ids = s.ConnectorIds()
	} else {
		if _, ok := s.connectors[request.ConnectorId]; !ok {
			return core.NewChangeAvailabilityResponse(core.AvailabilityStatusRejected), nil
		}
		// while the station itself is out of service a single connector
		// may only be taken further out, not back in
		if request.Type == types.AvailabilityTypeOperative &&
			s.connectors[0].availability == types.AvailabilityTypeInoperative {
			return core.NewChangeAvailabilityResponse(core.AvailabilityStatusRejected), nil
		}
		ids = []int{request.ConnectorId}
	}
	status := core.AvailabilityStatusAccepted
	for _, id := range ids {
		connector := s.connectors[id]
		if connector.isTransacting() {
			status = core.AvailabilityStatusScheduled
			scheduled := request.Type
			connector.scheduledAvailability = &scheduled
			continue
		}
		connector.availability = request.Type
		if status == core.AvailabilityStatusAccepted {
			s.sendAndSetConnectorStatus(id, s.availabilityStatus(connector))
		}
	}
	return core.NewChangeAvailabilityResponse(status), nil
}

func (s *Station) handleDataTransfer(request *core.DataTransferRequest) (*core.DataTransferResponse, error) {
	known := false
	for _, vendorId := range dataTransferVendorIds {
		if vendorId == request.VendorId {
			known = true
			break
		}
	}
	if !known {
		return core.NewDataTransferResponse(core.DataTransferStatusUnknownVendorId), nil
	}
	response := core.NewDataTransferResponse(core.DataTransferStatusAccepted)
	response.Data = request.Data
	return response, nil
}
