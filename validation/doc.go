// Package validation validates configuration and request payloads.
//
// Struct tags are checked with go-playground/validator:
//
//	type RunRequest struct {
//	    Pipeline json.RawMessage `json:"pipeline" validate:"required"`
//	    Combine  string          `json:"combine" validate:"omitempty,oneof=string array"`
//	}
//	err := validation.Validate(req)
//
// Checks that tags cannot express are collected programmatically:
//
//	v := validation.New()
//	v.OptionalUUID("run_id", req.RunID)
//	err := v.Validate()
package validation
