package types

import "github.com/go-playground/validator/v10"

// Validate is the shared validator for incoming payloads. Feature packages
// register their enumeration checks against it in their init functions.
var Validate = validator.New()

func init() {
	_ = Validate.RegisterValidation("registrationStatus", isValidRegistrationStatus)
	_ = Validate.RegisterValidation("authorizationStatus", isValidAuthorizationStatus)
	_ = Validate.RegisterValidation("remoteStartStopStatus", isValidRemoteStartStopStatus)
	_ = Validate.RegisterValidation("availabilityType", isValidAvailabilityType)
	_ = Validate.RegisterValidation("chargingProfilePurpose", isValidChargingProfilePurpose)
	_ = Validate.RegisterValidation("chargingProfileKind", isValidChargingProfileKind)
	_ = Validate.RegisterValidation("recurrencyKind", isValidRecurrencyKind)
	_ = Validate.RegisterValidation("chargingRateUnit", isValidChargingRateUnit)
}

func isValidRegistrationStatus(fl validator.FieldLevel) bool {
	switch RegistrationStatus(fl.Field().String()) {
	case RegistrationStatusAccepted, RegistrationStatusPending, RegistrationStatusRejected:
		return true
	default:
		return false
	}
}

func isValidAuthorizationStatus(fl validator.FieldLevel) bool {
	switch AuthorizationStatus(fl.Field().String()) {
	case AuthorizationStatusAccepted, AuthorizationStatusBlocked, AuthorizationStatusExpired,
		AuthorizationStatusInvalid, AuthorizationStatusConcurrentTx:
		return true
	default:
		return false
	}
}

func isValidRemoteStartStopStatus(fl validator.FieldLevel) bool {
	switch RemoteStartStopStatus(fl.Field().String()) {
	case RemoteStartStopStatusAccepted, RemoteStartStopStatusRejected:
		return true
	default:
		return false
	}
}

func isValidAvailabilityType(fl validator.FieldLevel) bool {
	switch AvailabilityType(fl.Field().String()) {
	case AvailabilityTypeOperative, AvailabilityTypeInoperative:
		return true
	default:
		return false
	}
}

func isValidChargingProfilePurpose(fl validator.FieldLevel) bool {
	switch ChargingProfilePurposeType(fl.Field().String()) {
	case ChargingProfilePurposeChargePointMaxProfile, ChargingProfilePurposeTxDefaultProfile, ChargingProfilePurposeTxProfile:
		return true
	default:
		return false
	}
}

func isValidChargingProfileKind(fl validator.FieldLevel) bool {
	switch ChargingProfileKindType(fl.Field().String()) {
	case ChargingProfileKindAbsolute, ChargingProfileKindRecurring, ChargingProfileKindRelative:
		return true
	default:
		return false
	}
}

func isValidRecurrencyKind(fl validator.FieldLevel) bool {
	switch RecurrencyKindType(fl.Field().String()) {
	case RecurrencyKindDaily, RecurrencyKindWeekly:
		return true
	default:
		return false
	}
}

func isValidChargingRateUnit(fl validator.FieldLevel) bool {
	switch ChargingRateUnitType(fl.Field().String()) {
	case ChargingRateUnitWatts, ChargingRateUnitAmperes:
		return true
	default:
		return false
	}
}
