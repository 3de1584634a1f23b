package rpc

import "fmt"

// ErrorCode classifies server-reported failures.
type ErrorCode string

const (
	ErrInvalidRequest ErrorCode = "INVALID_REQUEST"
	ErrInvalidNonce   ErrorCode = "INVALID_NONCE"
	ErrNotFound       ErrorCode = "NOT_FOUND"
	ErrRejected       ErrorCode = "REJECTED"
	ErrInternal       ErrorCode = "INTERNAL"
)

// CodedError is a stable error with a machine-readable code and a human
// message, carrying the HTTP status it arrived with.
type CodedError struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	HTTPStatus int       `json:"-"`
}

func (e *CodedError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func NewError(code ErrorCode, message string) *CodedError {
	return &CodedError{Code: code, Message: message}
}
