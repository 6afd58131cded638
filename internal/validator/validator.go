package validator

import (
	"sync"

	"github.com/go-playground/validator/v10"

	ierr "invoicedash/internal/errors"
)

var (
	validate *validator.Validate
	once     sync.Once
)

// GetValidator returns the process-wide validator, creating it on first use.
func GetValidator() *validator.Validate {
	once.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// ValidateRequest validates a tagged struct and converts failures into a
// validation error whose details name each offending field.
func ValidateRequest(req any) error {
	if err := GetValidator().Struct(req); err != nil {
		details := make(map[string]any)
		var validateErrs validator.ValidationErrors
		if ierr.As(err, &validateErrs) {
			for _, fe := range validateErrs {
				details[fe.Field()] = fe.Error()
			}
		}
		return ierr.WithError(err).
			WithHint("Request validation failed").
			WithReportableDetails(details).
			Mark(ierr.ErrValidation)
	}
	return nil
}
