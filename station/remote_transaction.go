package station

import (
	"stationsim/ocpp/core"
	"stationsim/types"
)

// handleRemoteStartTransaction validates the request against connector
// state and reservations, then runs the full start sequence. The answer is
// Accepted only when the central system accepted the StartTransaction
// round trip; any rejection restores the connector's status.
func (s *Station) handleRemoteStartTransaction(request *core.RemoteStartTransactionRequest) (*core.RemoteStartTransactionResponse, error) {
	if request.ConnectorId == nil {
		return core.NewRemoteStartTransactionResponse(types.RemoteStartStopStatusRejected), nil
	}
	connectorId := *request.ConnectorId
	connector, ok := s.connectors[connectorId]
	if !ok || connectorId == 0 {
		return core.NewRemoteStartTransactionResponse(types.RemoteStartStopStatusRejected), nil
	}
	if connector.isTransacting() || connector.availability == types.AvailabilityTypeInoperative {
		return core.NewRemoteStartTransactionResponse(types.RemoteStartStopStatusRejected), nil
	}
	switch connector.status {
	case core.ChargePointStatusAvailable, core.ChargePointStatusPreparing:
	case core.ChargePointStatusReserved:
		if connector.reservation != nil && connector.reservation.IdTag != request.IdTag {
			return core.NewRemoteStartTransactionResponse(types.RemoteStartStopStatusRejected), nil
		}
	default:
		return core.NewRemoteStartTransactionResponse(types.RemoteStartStopStatusRejected), nil
	}
	if request.ChargingProfile != nil {
		if request.ChargingProfile.ChargingProfilePurpose != types.ChargingProfilePurposeTxProfile {
			return core.NewRemoteStartTransactionResponse(types.RemoteStartStopStatusRejected), nil
		}
		connector.setChargingProfile(*request.ChargingProfile)
	}
	if s.authorizeRemoteTx && !s.isIdTagAuthorized(request.IdTag) {
		return core.NewRemoteStartTransactionResponse(types.RemoteStartStopStatusRejected), nil
	}
	started, err := s.startTransaction(connectorId, request.IdTag, true)
	if err != nil {
		s.logger.Error(s.id+": remote start", err)
		return core.NewRemoteStartTransactionResponse(types.RemoteStartStopStatusRejected), nil
	}
	if !started {
		s.debugf("remote start on connector %d not accepted", connectorId)
		return core.NewRemoteStartTransactionResponse(types.RemoteStartStopStatusRejected), nil
	}
	return core.NewRemoteStartTransactionResponse(types.RemoteStartStopStatusAccepted), nil
}

// handleRemoteStopTransaction accepts when a connector is running the
// referenced transaction; the stop sequence runs asynchronously.
func (s *Station) handleRemoteStopTransaction(request *core.RemoteStopTransactionRequest) (*core.RemoteStopTransactionResponse, error) {
	for id, connector := range s.connectors {
		if connector.isTransacting() && connector.transactionId != nil && *connector.transactionId == request.TransactionId {
			go s.remoteStopSequence(id)
			return core.NewRemoteStopTransactionResponse(types.RemoteStartStopStatusAccepted), nil
		}
	}
	return core.NewRemoteStopTransactionResponse(types.RemoteStartStopStatusRejected), nil
}

func (s *Station) remoteStopSequence(connectorId int) {
	s.mux.Lock()
	defer s.mux.Unlock()
	if s.closed {
		return
	}
	s.sendAndSetConnectorStatus(connectorId, core.ChargePointStatusFinishing)
	if _, err := s.StopTransactionOnConnector(connectorId, core.ReasonRemote); err != nil {
		s.logger.Error(s.id+": remote stop", err)
	}
}
