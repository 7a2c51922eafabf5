// internal/config/validator.go
//
// Thin wrapper around go-playground/validator.
//
// Context
// -------
// `internal/config/loader.go` calls `validateStruct` immediately after it
// unmarshals the merged Koanf tree into a `Config` instance.  Any tag
// mismatch or validation error aborts startup (or rejects a reload), so the
// binary never runs with partial or malformed configuration.
//
// Custom rules registered here:
//
//   • csrfkey – base64url (raw or padded) decoding to at least 32 bytes.

package config

import (
	"github.com/go-playground/validator/v10"

	"github.com/yanizio/contactform/internal/form"
)

//
// validator instance (package-level singleton)
//

var v = newValidator()

func newValidator() *validator.Validate {
	val := validator.New()
	_ = val.RegisterValidation("csrfkey", func(fl validator.FieldLevel) bool {
		return len(form.DecodeKey(fl.Field().String())) >= 32
	})
	return val
}

//
// public API
//

// validateStruct returns the validation errors, or nil on success.
func validateStruct(c *Config) error {
	return v.Struct(c)
}
