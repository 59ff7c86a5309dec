package smartcharging

import (
	"github.com/go-playground/validator/v10"

	"stationsim/types"
)

func init() {
	_ = types.Validate.RegisterValidation("chargingProfileStatus", isValidChargingProfileStatus)
	_ = types.Validate.RegisterValidation("clearChargingProfileStatus", isValidClearChargingProfileStatus)
	_ = types.Validate.RegisterValidation("getCompositeScheduleStatus", isValidGetCompositeScheduleStatus)
}

func isValidChargingProfileStatus(fl validator.FieldLevel) bool {
	switch ChargingProfileStatus(fl.Field().String()) {
	case ChargingProfileStatusAccepted, ChargingProfileStatusRejected, ChargingProfileStatusNotSupported:
		return true
	default:
		return false
	}
}

func isValidClearChargingProfileStatus(fl validator.FieldLevel) bool {
	switch ClearChargingProfileStatus(fl.Field().String()) {
	case ClearChargingProfileStatusAccepted, ClearChargingProfileStatusUnknown:
		return true
	default:
		return false
	}
}

func isValidGetCompositeScheduleStatus(fl validator.FieldLevel) bool {
	switch GetCompositeScheduleStatus(fl.Field().String()) {
	case GetCompositeScheduleStatusAccepted, GetCompositeScheduleStatusRejected:
		return true
	default:
		return false
	}
}
