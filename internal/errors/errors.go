// Package errors defines the error taxonomy shared by the analytics layer and
// its HTTP surface. Errors are built with the fluent builder and marked with
// one of the sentinels below; the HTTP layer maps marks to status codes.
package errors

import (
	"fmt"
	"net/http"

	"github.com/cockroachdb/errors"
)

const (
	ErrCodeValidation = "validation_error"
	ErrCodeDataAccess = "data_access_error"
	ErrCodeUpstream   = "upstream_error"
	ErrCodeSystem     = "system_error"
)

var (
	ErrValidation = new(ErrCodeValidation, "validation error")
	ErrDataAccess = new(ErrCodeDataAccess, "data access error")
	ErrUpstream   = new(ErrCodeUpstream, "upstream service error")
	ErrSystem     = new(ErrCodeSystem, "system error")

	// order matters: the first matching mark wins
	statusCodes = []struct {
		ref    error
		status int
	}{
		{ErrValidation, http.StatusBadRequest},
		{ErrUpstream, http.StatusBadGateway},
		{ErrDataAccess, http.StatusInternalServerError},
		{ErrSystem, http.StatusInternalServerError},
	}
)

// InternalError is a coded sentinel used as a mark reference.
type InternalError struct {
	Code    string
	Message string
	Err     error
}

func (e *InternalError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Err.Error())
}

func (e *InternalError) Unwrap() error {
	return e.Err
}

// Is matches on code so wrapped copies still compare equal to the sentinel.
func (e *InternalError) Is(target error) bool {
	t, ok := target.(*InternalError)
	if !ok {
		return errors.Is(e.Err, target)
	}
	return e.Code == t.Code
}

func new(code, message string) *InternalError {
	return &InternalError{Code: code, Message: message}
}

// UpstreamError carries the status and body returned by a collaborator service
// that answered with a non-success status.
type UpstreamError struct {
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream responded with status %d", e.StatusCode)
}

func As(err error, target any) bool {
	return errors.As(err, target)
}

func Is(err, target error) bool {
	return errors.Is(err, target)
}

func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

func IsDataAccess(err error) bool {
	return errors.Is(err, ErrDataAccess)
}

func IsUpstream(err error) bool {
	return errors.Is(err, ErrUpstream)
}

// Code returns the machine-readable code of the first sentinel err is marked with.
func Code(err error) string {
	for _, sc := range statusCodes {
		if errors.Is(err, sc.ref) {
			return sc.ref.(*InternalError).Code
		}
	}
	return ErrCodeSystem
}

// HTTPStatusFromErr maps err to a response status. Upstream failures relay the
// collaborator's own status when one was received.
func HTTPStatusFromErr(err error) int {
	if errors.Is(err, ErrUpstream) {
		var upstream *UpstreamError
		if errors.As(err, &upstream) && upstream.StatusCode >= 400 {
			return upstream.StatusCode
		}
		return http.StatusBadGateway
	}
	for _, sc := range statusCodes {
		if errors.Is(err, sc.ref) {
			return sc.status
		}
	}
	return http.StatusInternalServerError
}
