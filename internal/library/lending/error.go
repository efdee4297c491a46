package lending

import (
	"errors"
	"fmt"
	"net/http"
)

type DomainError struct {
	Code    string
	Message string
}

func (e *DomainError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

const (
	ErrCodeNotFound        = "NOT_FOUND"
	ErrCodeUnavailable     = "UNAVAILABLE"
	ErrCodeConflict        = "CONFLICT"
	ErrCodeForbidden       = "FORBIDDEN"
	ErrCodeInvalidArgument = "INVALID_ARGUMENT"
	ErrCodeInternal        = "INTERNAL"
)

func NewNotFoundError(msg string) error {
	return &DomainError{Code: ErrCodeNotFound, Message: msg}
}

// NewUnavailableError reports that no free copy was left at commit time.
// Expected under contention, not an error condition worth logging.
func NewUnavailableError(msg string) error {
	return &DomainError{Code: ErrCodeUnavailable, Message: msg}
}

func NewConflictError(msg string) error {
	return &DomainError{Code: ErrCodeConflict, Message: msg}
}

func NewForbiddenError(msg string) error {
	return &DomainError{Code: ErrCodeForbidden, Message: msg}
}

func NewInvalidArgumentError(msg string) error {
	return &DomainError{Code: ErrCodeInvalidArgument, Message: msg}
}

func NewInternalError(msg string) error {
	return &DomainError{Code: ErrCodeInternal, Message: msg}
}

func ToHTTPStatus(err error) int {
	var de *DomainError
	if errors.As(err, &de) {
		switch de.Code {
		case ErrCodeNotFound:
			return http.StatusNotFound
		case ErrCodeUnavailable, ErrCodeConflict:
			return http.StatusConflict
		case ErrCodeForbidden:
			return http.StatusForbidden
		case ErrCodeInvalidArgument:
			return http.StatusBadRequest
		default:
			return http.StatusInternalServerError
		}
	}
	return http.StatusInternalServerError
}
