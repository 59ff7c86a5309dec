package reservation

import (
	"github.com/go-playground/validator/v10"

	"stationsim/types"
)

func init() {
	_ = types.Validate.RegisterValidation("reservationStatus", isValidReservationStatus)
	_ = types.Validate.RegisterValidation("cancelReservationStatus", isValidCancelReservationStatus)
}

func isValidReservationStatus(fl validator.FieldLevel) bool {
	switch ReservationStatus(fl.Field().String()) {
	case ReservationStatusAccepted, ReservationStatusFaulted, ReservationStatusOccupied,
		ReservationStatusRejected, ReservationStatusUnavailable:
		return true
	default:
		return false
	}
}

func isValidCancelReservationStatus(fl validator.FieldLevel) bool {
	switch CancelReservationStatus(fl.Field().String()) {
	case CancelReservationStatusAccepted, CancelReservationStatusRejected:
		return true
	default:
		return false
	}
}
