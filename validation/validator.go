package validation

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/kbukum/pipekit/errors"
)

// FieldError is one failed check.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Validator accumulates checks that struct tags cannot express, such as
// rules spanning several fields. Checks chain:
//
//	err := validation.New().
//		Custom(a != b, "pipeline", "exactly one of pipeline or name is required").
//		OptionalUUID("run_id", id).
//		Validate()
type Validator struct {
	errs []FieldError
}

// New returns an empty Validator.
func New() *Validator {
	return &Validator{}
}

// AddError records a failure for field.
func (v *Validator) AddError(field, message string) {
	v.errs = append(v.errs, FieldError{Field: field, Message: message})
}

// Errors returns the failures recorded so far.
func (v *Validator) Errors() []FieldError {
	return v.errs
}

// Custom records message against field unless ok holds.
func (v *Validator) Custom(ok bool, field, message string) *Validator {
	if !ok {
		v.AddError(field, message)
	}
	return v
}

// OptionalUUID accepts an empty value or a parseable UUID.
func (v *Validator) OptionalUUID(field, value string) *Validator {
	if value == "" {
		return v
	}
	if _, err := uuid.Parse(value); err != nil {
		v.AddError(field, "must be a valid UUID")
	}
	return v
}

// Validate folds the recorded failures into one INVALID_INPUT error, or
// returns nil. The field detail is set only when a single field failed.
func (v *Validator) Validate() error {
	if len(v.errs) == 0 {
		return nil
	}
	parts := make([]string, len(v.errs))
	for i, e := range v.errs {
		parts[i] = fmt.Sprintf("%s %s", e.Field, e.Message)
	}
	var field string
	if len(v.errs) == 1 {
		field = v.errs[0].Field
	}
	return errors.InvalidInput(field, strings.Join(parts, "; ")).WithDetail("fields", v.errs)
}
