package core

import (
	"github.com/go-playground/validator/v10"

	"stationsim/types"
)

func init() {
	_ = types.Validate.RegisterValidation("chargePointStatus", isValidChargePointStatus)
	_ = types.Validate.RegisterValidation("chargePointErrorCode", isValidChargePointErrorCode)
	_ = types.Validate.RegisterValidation("stopReason", isValidReason)
	_ = types.Validate.RegisterValidation("resetType", isValidResetType)
	_ = types.Validate.RegisterValidation("resetStatus", isValidResetStatus)
	_ = types.Validate.RegisterValidation("clearCacheStatus", isValidClearCacheStatus)
	_ = types.Validate.RegisterValidation("unlockStatus", isValidUnlockStatus)
	_ = types.Validate.RegisterValidation("configurationStatus", isValidConfigurationStatus)
	_ = types.Validate.RegisterValidation("availabilityStatus", isValidAvailabilityStatus)
	_ = types.Validate.RegisterValidation("dataTransferStatus", isValidDataTransferStatus)
}

func isValidChargePointStatus(fl validator.FieldLevel) bool {
	switch ChargePointStatus(fl.Field().String()) {
	case ChargePointStatusAvailable, ChargePointStatusPreparing, ChargePointStatusCharging,
		ChargePointStatusSuspendedEVSE, ChargePointStatusSuspendedEV, ChargePointStatusFinishing,
		ChargePointStatusReserved, ChargePointStatusUnavailable, ChargePointStatusFaulted:
		return true
	default:
		return false
	}
}

func isValidChargePointErrorCode(fl validator.FieldLevel) bool {
	switch ChargePointErrorCode(fl.Field().String()) {
	case ConnectorLockFailure, EVCommunicationError, GroundFailure, HighTemperature,
		InternalError, LocalListConflict, NoError, OtherError, OverCurrentFailure,
		OverVoltage, PowerMeterFailure, PowerSwitchFailure, ReaderFailure, ResetFailure,
		UnderVoltage, WeakSignal:
		return true
	default:
		return false
	}
}

func isValidReason(fl validator.FieldLevel) bool {
	switch Reason(fl.Field().String()) {
	case ReasonDeAuthorized, ReasonEmergencyStop, ReasonEVDisconnected, ReasonHardReset,
		ReasonLocal, ReasonOther, ReasonPowerLoss, ReasonReboot, ReasonRemote,
		ReasonSoftReset, ReasonUnlockCommand:
		return true
	default:
		return false
	}
}

func isValidResetType(fl validator.FieldLevel) bool {
	switch ResetType(fl.Field().String()) {
	case ResetTypeHard, ResetTypeSoft:
		return true
	default:
		return false
	}
}

func isValidResetStatus(fl validator.FieldLevel) bool {
	switch ResetStatus(fl.Field().String()) {
	case ResetStatusAccepted, ResetStatusRejected:
		return true
	default:
		return false
	}
}

func isValidClearCacheStatus(fl validator.FieldLevel) bool {
	switch ClearCacheStatus(fl.Field().String()) {
	case ClearCacheStatusAccepted, ClearCacheStatusRejected:
		return true
	default:
		return false
	}
}

func isValidUnlockStatus(fl validator.FieldLevel) bool {
	switch UnlockStatus(fl.Field().String()) {
	case UnlockStatusUnlocked, UnlockStatusUnlockFailed, UnlockStatusNotSupported:
		return true
	default:
		return false
	}
}

func isValidConfigurationStatus(fl validator.FieldLevel) bool {
	switch ConfigurationStatus(fl.Field().String()) {
	case ConfigurationStatusAccepted, ConfigurationStatusRejected,
		ConfigurationStatusRebootRequired, ConfigurationStatusNotSupported:
		return true
	default:
		return false
	}
}

func isValidAvailabilityStatus(fl validator.FieldLevel) bool {
	switch AvailabilityStatus(fl.Field().String()) {
	case AvailabilityStatusAccepted, AvailabilityStatusRejected, AvailabilityStatusScheduled:
		return true
	default:
		return false
	}
}

func isValidDataTransferStatus(fl validator.FieldLevel) bool {
	switch DataTransferStatus(fl.Field().String()) {
	case DataTransferStatusAccepted, DataTransferStatusRejected,
		DataTransferStatusUnknownVendorId, DataTransferStatusUnknownMsgId:
		return true
	default:
		return false
	}
}
