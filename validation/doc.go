// Package validation validates stream definitions and configuration.
//
// It supports struct tag validation (backed by go-playground/validator) and
// programmatic validation with error collection. Both report failures as an
// internal *errors.Error listing every offending field.
//
// # Struct Tag Validation
//
//	type Target struct {
//	    Endpoint string `validate:"required,url"`
//	}
//	err := validation.Validate(target)
//
// # Programmatic Validation
//
//	v := validation.New()
//	v.Required("endpoint", cfg.Endpoint).OneOf("mode", cfg.Mode, "ndjson", "sse", "websocket")
//	err := v.Err()
package validation
