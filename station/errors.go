package station

import (
	"fmt"

	"stationsim/ocpp"
)

// OCPPError is returned by the dispatcher when a command must be answered
// with a CallError instead of a result payload.
type OCPPError struct {
	Code        ocpp.ErrorCode
	Description string
}

func (e *OCPPError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

// ErrorCode lets the transport pick the CallError code without knowing
// this package's error type.
func (e *OCPPError) ErrorCode() ocpp.ErrorCode {
	return e.Code
}

func securityError(description string) *OCPPError {
	return &OCPPError{Code: ocpp.ErrorSecurity, Description: description}
}

func notImplemented(feature string) *OCPPError {
	return &OCPPError{Code: ocpp.ErrorNotImplemented, Description: fmt.Sprintf("%s is not implemented", feature)}
}

func notSupported(feature string) *OCPPError {
	return &OCPPError{Code: ocpp.ErrorNotSupported, Description: fmt.Sprintf("%s is not supported", feature)}
}

func formationViolation(feature string, err error) *OCPPError {
	return &OCPPError{Code: ocpp.ErrorFormationViolation, Description: fmt.Sprintf("invalid %s payload: %v", feature, err)}
}

func occurrenceConstraintViolation(feature string, err error) *OCPPError {
	return &OCPPError{Code: ocpp.ErrorOccurrenceConstraint, Description: fmt.Sprintf("%s payload failed validation: %v", feature, err)}
}
