package protocol

import (
	"errors"
	"fmt"
)

// ErrorCode classifies a failed plugin call.
type ErrorCode string

const (
	ErrorCodeValidation                 ErrorCode = "VALIDATION_ERROR"
	ErrorCodeUnsupportedContractVersion ErrorCode = "UNSUPPORTED_CONTRACT_VERSION"
	ErrorCodeAccessDenied               ErrorCode = "ACCESS_DENIED"
	ErrorCodeTimeout                    ErrorCode = "TIMEOUT"
	ErrorCodeThrottled                  ErrorCode = "THROTTLED"
	ErrorCodeGeneric                    ErrorCode = "ERROR"
)

// Error is a failure raised deliberately by the plugin, carrying the code
// reported back to notation.
type Error struct {
	Code    ErrorCode
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// NewValidationError returns an Error with ErrorCodeValidation.
func NewValidationError(msg string) *Error {
	return &Error{Code: ErrorCodeValidation, Message: msg}
}

// NewValidationErrorf formats a message into a validation Error.
func NewValidationErrorf(format string, args ...any) *Error {
	return NewValidationError(fmt.Sprintf(format, args...))
}

// NewGenericError returns an Error with ErrorCodeGeneric.
func NewGenericError(msg string) *Error {
	return &Error{Code: ErrorCodeGeneric, Message: msg}
}

// AsError returns the plugin Error in err's chain. Any other error becomes a
// generic Error that keeps the original message text.
func AsError(err error) *Error {
	var perr *Error
	if errors.As(err, &perr) {
		return perr
	}
	return NewGenericError(err.Error())
}

// Response converts the error into its wire form.
func (e *Error) Response() ErrorResponse {
	return ErrorResponse{ErrorCode: e.Code, ErrorMessage: e.Message}
}
