package station

import (
	"time"

	"stationsim/ocpp/core"
	"stationsim/ocpp/reservation"
	"stationsim/types"
)

// Reservation pins a connector to an id tag until its expiry date.
type Reservation struct {
	Id          int
	ConnectorId int
	IdTag       string
	ParentIdTag string
	ExpiryDate  time.Time
}

func (r *Reservation) expired(now time.Time) bool {
	return !now.Before(r.ExpiryDate)
}

func (s *Station) handleReserveNow(request *reservation.ReserveNowRequest) (*reservation.ReserveNowResponse, error) {
	if !s.hasFeatureProfile(types.FeatureProfileReservation) {
		return reservation.NewReserveNowResponse(reservation.ReservationStatusRejected), nil
	}
	if !s.isIdTagAuthorized(request.IdTag) {
		return reservation.NewReserveNowResponse(reservation.ReservationStatusRejected), nil
	}
	s.removeExpiredReservations()
	connectorId := request.ConnectorId
	if connectorId == 0 && !s.reserveConnectorZero {
		return reservation.NewReserveNowResponse(reservation.ReservationStatusRejected), nil
	}
	connector, ok := s.connectors[connectorId]
	if !ok {
		return reservation.NewReserveNowResponse(reservation.ReservationStatusRejected), nil
	}
	if connector.availability == types.AvailabilityTypeInoperative {
		return reservation.NewReserveNowResponse(reservation.ReservationStatusRejected), nil
	}
	switch connector.status {
	case core.ChargePointStatusFaulted:
		return reservation.NewReserveNowResponse(reservation.ReservationStatusFaulted), nil
	case core.ChargePointStatusPreparing, core.ChargePointStatusCharging,
		core.ChargePointStatusSuspendedEV, core.ChargePointStatusSuspendedEVSE,
		core.ChargePointStatusFinishing:
		return reservation.NewReserveNowResponse(reservation.ReservationStatusOccupied), nil
	case core.ChargePointStatusUnavailable:
		return reservation.NewReserveNowResponse(reservation.ReservationStatusUnavailable), nil
	case core.ChargePointStatusReserved:
		if !s.canReplaceReservation(request.ReservationId, request.IdTag, connectorId) {
			return reservation.NewReserveNowResponse(reservation.ReservationStatusOccupied), nil
		}
		fallthrough
	default:
		if !s.isConnectorReservable(request.ReservationId, request.IdTag, connectorId) {
			return reservation.NewReserveNowResponse(reservation.ReservationStatusRejected), nil
		}
		s.addReservation(&Reservation{
			Id:          request.ReservationId,
			ConnectorId: connectorId,
			IdTag:       request.IdTag,
			ParentIdTag: request.ParentIdTag,
			ExpiryDate:  request.ExpiryDate.Time,
		})
		return reservation.NewReserveNowResponse(reservation.ReservationStatusAccepted), nil
	}
}

func (s *Station) handleCancelReservation(request *reservation.CancelReservationRequest) (*reservation.CancelReservationResponse, error) {
	if !s.hasFeatureProfile(types.FeatureProfileReservation) {
		return reservation.NewCancelReservationResponse(reservation.CancelReservationStatusRejected), nil
	}
	res := s.reservationById(request.ReservationId)
	if res == nil {
		return reservation.NewCancelReservationResponse(reservation.CancelReservationStatusRejected), nil
	}
	s.removeReservation(res)
	return reservation.NewCancelReservationResponse(reservation.CancelReservationStatusAccepted), nil
}

// addReservation replaces any existing reservation with the same id,
// then marks the connector Reserved.
func (s *Station) addReservation(res *Reservation) {
	if existing := s.reservationById(res.Id); existing != nil {
		s.removeReservation(existing)
	}
	s.reservations = append(s.reservations, res)
	if connector, ok := s.connectors[res.ConnectorId]; ok {
		connector.reservation = res
		s.sendAndSetConnectorStatus(res.ConnectorId, core.ChargePointStatusReserved)
	}
}

// removeReservation releases the reservation and returns the connector
// to Available.
func (s *Station) removeReservation(res *Reservation) {
	for i, r := range s.reservations {
		if r.Id == res.Id {
			s.reservations = append(s.reservations[:i], s.reservations[i+1:]...)
			break
		}
	}
	if connector, ok := s.connectors[res.ConnectorId]; ok && connector.reservation != nil && connector.reservation.Id == res.Id {
		connector.reservation = nil
		if connector.status == core.ChargePointStatusReserved {
			s.sendAndSetConnectorStatus(res.ConnectorId, core.ChargePointStatusAvailable)
		}
	}
}

func (s *Station) reservationById(id int) *Reservation {
	for _, r := range s.reservations {
		if r.Id == id {
			return r
		}
	}
	return nil
}

// canReplaceReservation reports whether the incoming request may take over
// the reservation currently holding the connector.
func (s *Station) canReplaceReservation(reservationId int, idTag string, connectorId int) bool {
	connector, ok := s.connectors[connectorId]
	if !ok || connector.reservation == nil {
		return false
	}
	return connector.reservation.Id == reservationId && connector.reservation.IdTag == idTag
}

// isConnectorReservable rejects a reservation when the id tag already holds
// a different reservation, unless that reservation is the one being replaced.
func (s *Station) isConnectorReservable(reservationId int, idTag string, connectorId int) bool {
	for _, r := range s.reservations {
		if r.Id == reservationId {
			continue
		}
		if r.IdTag == idTag {
			return false
		}
		if r.ConnectorId == connectorId {
			return false
		}
	}
	return true
}

// SweepReservations removes expired reservations; the simulator runtime
// calls it on a timer.
func (s *Station) SweepReservations() {
	s.mux.Lock()
	defer s.mux.Unlock()
	s.removeExpiredReservations()
}

// removeExpiredReservations sweeps reservations whose expiry date has
// passed. The sweep is idempotent and safe to run from a timer.
func (s *Station) removeExpiredReservations() {
	now := s.clock.Now()
	expired := make([]*Reservation, 0)
	for _, r := range s.reservations {
		if r.expired(now) {
			expired = append(expired, r)
		}
	}
	for _, r := range expired {
		s.debugf("reservation %d on connector %d expired", r.Id, r.ConnectorId)
		s.removeReservation(r)
	}
}
