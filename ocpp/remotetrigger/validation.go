package remotetrigger

import (
	"github.com/go-playground/validator/v10"

	"stationsim/types"
)

func init() {
	_ = types.Validate.RegisterValidation("messageTrigger", isValidMessageTrigger)
	_ = types.Validate.RegisterValidation("triggerMessageStatus", isValidTriggerMessageStatus)
}

func isValidMessageTrigger(fl validator.FieldLevel) bool {
	switch MessageTrigger(fl.Field().String()) {
	case MessageTriggerBootNotification, MessageTriggerDiagnosticsStatusNotification,
		MessageTriggerFirmwareStatusNotification, MessageTriggerHeartbeat,
		MessageTriggerMeterValues, MessageTriggerStatusNotification:
		return true
	default:
		return false
	}
}

func isValidTriggerMessageStatus(fl validator.FieldLevel) bool {
	switch TriggerMessageStatus(fl.Field().String()) {
	case TriggerMessageStatusAccepted, TriggerMessageStatusRejected, TriggerMessageStatusNotImplemented:
		return true
	default:
		return false
	}
}
