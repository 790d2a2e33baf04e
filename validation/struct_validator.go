package validation

import (
	stderrors "errors"
	"reflect"
	"strings"
	"sync"
	"unicode"

	"github.com/go-playground/validator/v10"

	"github.com/kbukum/pipekit/errors"
)

// structValidator reports fields by their json, then mapstructure, name.
var structValidator = sync.OnceValue(func() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		for _, tag := range []string{"json", "mapstructure"} {
			name, _, _ := strings.Cut(fld.Tag.Get(tag), ",")
			if name != "" && name != "-" {
				return name
			}
		}
		return toSnakeCase(fld.Name)
	})
	return v
})

// Validate validates a struct using `validate` tags. The returned error is an
// INVALID_INPUT AppError listing every failing field.
func Validate(s any) error {
	err := structValidator().Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !stderrors.As(err, &fieldErrs) {
		return errors.InvalidInput("", err.Error())
	}

	v := New()
	for _, e := range fieldErrs {
		v.AddError(fieldPath(e), formatValidationError(e))
	}
	return v.Validate()
}

// fieldPath drops the top-level struct name from the namespace.
func fieldPath(e validator.FieldError) string {
	ns := e.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return e.Field()
}

// tagMessages maps a failed tag to its message. Messages ending in a space
// are completed with the tag parameter.
var tagMessages = map[string]string{
	"required":      "is required",
	"required_if":   "is required",
	"min":           "must be at least ",
	"max":           "must be at most ",
	"gte":           "must be greater than or equal to ",
	"gt":            "must be greater than ",
	"lte":           "must be less than or equal to ",
	"oneof":         "must be one of: ",
	"url":           "must be a valid URL",
	"hostname_port": "must be host:port",
	"uuid":          "must be a valid UUID",
}

func formatValidationError(e validator.FieldError) string {
	msg, ok := tagMessages[e.Tag()]
	if !ok {
		return "is invalid"
	}
	if strings.HasSuffix(msg, " ") {
		return msg + e.Param()
	}
	return msg
}

// toSnakeCase turns a Go field name into the key it has in config files.
func toSnakeCase(s string) string {
	var b strings.Builder
	for i, r := range s {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('_')
			}
			r = unicode.ToLower(r)
		}
		b.WriteRune(r)
	}
	return b.String()
}
