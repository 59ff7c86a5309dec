package station

import (
	"encoding/json"
	"fmt"

	"stationsim/metrics/counters"
	"stationsim/ocpp"
	"stationsim/ocpp/core"
	"stationsim/ocpp/firmware"
	"stationsim/ocpp/remotetrigger"
	"stationsim/ocpp/reservation"
	"stationsim/ocpp/smartcharging"
	"stationsim/types"
)

// command binds an action name to a request prototype and its handler.
type command struct {
	newRequest func() ocpp.Request
	handle     func(request ocpp.Request) (ocpp.Response, error)
}

func (s *Station) registerCommands() {
	s.commands = map[string]command{
		core.ResetFeatureName: {
			newRequest: func() ocpp.Request { return &core.ResetRequest{} },
			handle: func(r ocpp.Request) (ocpp.Response, error) {
				return s.handleReset(r.(*core.ResetRequest))
			},
		},
		core.ClearCacheFeatureName: {
			newRequest: func() ocpp.Request { return &core.ClearCacheRequest{} },
			handle: func(r ocpp.Request) (ocpp.Response, error) {
				return s.handleClearCache(r.(*core.ClearCacheRequest))
			},
		},
		core.ChangeAvailabilityFeatureName: {
			newRequest: func() ocpp.Request { return &core.ChangeAvailabilityRequest{} },
			handle: func(r ocpp.Request) (ocpp.Response, error) {
				return s.handleChangeAvailability(r.(*core.ChangeAvailabilityRequest))
			},
		},
		core.GetConfigurationFeatureName: {
			newRequest: func() ocpp.Request { return &core.GetConfigurationRequest{} },
			handle: func(r ocpp.Request) (ocpp.Response, error) {
				return s.handleGetConfiguration(r.(*core.GetConfigurationRequest))
			},
		},
		core.ChangeConfigurationFeatureName: {
			newRequest: func() ocpp.Request { return &core.ChangeConfigurationRequest{} },
			handle: func(r ocpp.Request) (ocpp.Response, error) {
				return s.handleChangeConfiguration(r.(*core.ChangeConfigurationRequest))
			},
		},
		core.UnlockConnectorFeatureName: {
			newRequest: func() ocpp.Request { return &core.UnlockConnectorRequest{} },
			handle: func(r ocpp.Request) (ocpp.Response, error) {
				return s.handleUnlockConnector(r.(*core.UnlockConnectorRequest))
			},
		},
		core.RemoteStartTransactionFeatureName: {
			newRequest: func() ocpp.Request { return &core.RemoteStartTransactionRequest{} },
			handle: func(r ocpp.Request) (ocpp.Response, error) {
				return s.handleRemoteStartTransaction(r.(*core.RemoteStartTransactionRequest))
			},
		},
		core.RemoteStopTransactionFeatureName: {
			newRequest: func() ocpp.Request { return &core.RemoteStopTransactionRequest{} },
			handle: func(r ocpp.Request) (ocpp.Response, error) {
				return s.handleRemoteStopTransaction(r.(*core.RemoteStopTransactionRequest))
			},
		},
		core.DataTransferFeatureName: {
			newRequest: func() ocpp.Request { return &core.DataTransferRequest{} },
			handle: func(r ocpp.Request) (ocpp.Response, error) {
				return s.handleDataTransfer(r.(*core.DataTransferRequest))
			},
		},
		smartcharging.SetChargingProfileFeatureName: {
			newRequest: func() ocpp.Request { return &smartcharging.SetChargingProfileRequest{} },
			handle: func(r ocpp.Request) (ocpp.Response, error) {
				return s.handleSetChargingProfile(r.(*smartcharging.SetChargingProfileRequest))
			},
		},
		smartcharging.ClearChargingProfileFeatureName: {
			newRequest: func() ocpp.Request { return &smartcharging.ClearChargingProfileRequest{} },
			handle: func(r ocpp.Request) (ocpp.Response, error) {
				return s.handleClearChargingProfile(r.(*smartcharging.ClearChargingProfileRequest))
			},
		},
		smartcharging.GetCompositeScheduleFeatureName: {
			newRequest: func() ocpp.Request { return &smartcharging.GetCompositeScheduleRequest{} },
			handle: func(r ocpp.Request) (ocpp.Response, error) {
				return s.handleGetCompositeSchedule(r.(*smartcharging.GetCompositeScheduleRequest))
			},
		},
		reservation.ReserveNowFeatureName: {
			newRequest: func() ocpp.Request { return &reservation.ReserveNowRequest{} },
			handle: func(r ocpp.Request) (ocpp.Response, error) {
				return s.handleReserveNow(r.(*reservation.ReserveNowRequest))
			},
		},
		reservation.CancelReservationFeatureName: {
			newRequest: func() ocpp.Request { return &reservation.CancelReservationRequest{} },
			handle: func(r ocpp.Request) (ocpp.Response, error) {
				return s.handleCancelReservation(r.(*reservation.CancelReservationRequest))
			},
		},
		firmware.UpdateFirmwareFeatureName: {
			newRequest: func() ocpp.Request { return &firmware.UpdateFirmwareRequest{} },
			handle: func(r ocpp.Request) (ocpp.Response, error) {
				return s.handleUpdateFirmware(r.(*firmware.UpdateFirmwareRequest))
			},
		},
		firmware.GetDiagnosticsFeatureName: {
			newRequest: func() ocpp.Request { return &firmware.GetDiagnosticsRequest{} },
			handle: func(r ocpp.Request) (ocpp.Response, error) {
				return s.handleGetDiagnostics(r.(*firmware.GetDiagnosticsRequest))
			},
		},
		remotetrigger.TriggerMessageFeatureName: {
			newRequest: func() ocpp.Request { return &remotetrigger.TriggerMessageRequest{} },
			handle: func(r ocpp.Request) (ocpp.Response, error) {
				return s.handleTriggerMessage(r.(*remotetrigger.TriggerMessageRequest))
			},
		},
	}
	s.supported = make(map[string]bool, len(s.commands))
	for action := range s.commands {
		s.supported[action] = true
	}
}

// SetCommandSupported toggles a command's availability without removing its
// handler; unsupported commands are answered with a NotSupported error.
func (s *Station) SetCommandSupported(action string, supported bool) {
	s.mux.Lock()
	defer s.mux.Unlock()
	if _, ok := s.commands[action]; ok {
		s.supported[action] = supported
	}
}

// Handle runs one central system command through the dispatch gates and
// returns either a response payload or an error to encode as a CallError.
func (s *Station) Handle(action string, payload json.RawMessage) (ocpp.Response, error) {
	response, err := s.dispatch(action, payload)
	outcome := "accepted"
	if err != nil {
		if ocppErr, ok := err.(*OCPPError); ok {
			outcome = string(ocppErr.Code)
		} else {
			outcome = string(ocpp.ErrorInternal)
		}
	}
	counters.ObserveCommand(s.id, action, outcome)
	return response, err
}

func (s *Station) dispatch(action string, payload json.RawMessage) (ocpp.Response, error) {
	s.mux.Lock()
	defer s.mux.Unlock()
	if s.strictCompliance && s.InPendingState() &&
		(action == core.RemoteStartTransactionFeatureName || action == core.RemoteStopTransactionFeatureName) {
		return nil, securityError(fmt.Sprintf("%s is not allowed in pending state", action))
	}
	if !s.IsRegistered() && !(!s.strictCompliance && s.InUnknownState()) {
		return nil, securityError(fmt.Sprintf("%s rejected while not registered", action))
	}
	cmd, ok := s.commands[action]
	if !ok {
		return nil, notImplemented(action)
	}
	if !s.supported[action] {
		return nil, notSupported(action)
	}
	request := cmd.newRequest()
	if err := json.Unmarshal(payload, request); err != nil {
		return nil, formationViolation(action, err)
	}
	if err := types.Validate.Struct(request); err != nil {
		return nil, occurrenceConstraintViolation(action, err)
	}
	response, err := cmd.handle(request)
	if err != nil {
		s.logger.Error(fmt.Sprintf("%s: handling %s", s.id, action), err)
		return nil, err
	}
	return response, nil
}
