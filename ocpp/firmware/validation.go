package firmware

import (
	"github.com/go-playground/validator/v10"

	"stationsim/types"
)

func init() {
	_ = types.Validate.RegisterValidation("firmwareStatus", isValidFirmwareStatus)
	_ = types.Validate.RegisterValidation("diagnosticsStatus", isValidDiagnosticsStatus)
}

func isValidFirmwareStatus(fl validator.FieldLevel) bool {
	switch Status(fl.Field().String()) {
	case StatusDownloaded, StatusDownloadFailed, StatusDownloading, StatusIdle,
		StatusInstallationFailed, StatusInstalling, StatusInstalled:
		return true
	default:
		return false
	}
}

func isValidDiagnosticsStatus(fl validator.FieldLevel) bool {
	switch DiagnosticsStatus(fl.Field().String()) {
	case DiagnosticsStatusIdle, DiagnosticsStatusUploaded, DiagnosticsStatusUploadFailed, DiagnosticsStatusUploading:
		return true
	default:
		return false
	}
}
