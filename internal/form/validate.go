// internal/form/validate.go
//
// Forms subsystem: field validation.
//
// Context
//   Every change to a field and every submit runs the same pure derivation:
//   FieldDef rules + current values → Errors.  Rules are translated into
//   go-playground/validator tags (required, min, max, email, numeric) and
//   checked with validator.Var, so the server speaks the same rule language
//   as the config loader.  Regex patterns are checked afterwards.
//
// Workflow
//   •  Validate walks the FormDef in definition order and asks ValidateField
//      for each value.  Only the first failing rule per field is reported.
//   •  Messages name the field by its submission key, e.g.
//      “email must be a valid email address”, unless the YAML provides a
//      custom `error` text.
//   •  Errors is an ordered slice so templates and tests see a stable order.
//      Form-level problems (CSRF, timing) use an empty Name.
//
//------------------------------------------------------------------------------

package form

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

// validate is the package-level validator singleton.  It is safe for
// concurrent use and caches parsed tags.
var validate = validator.New()

// -----------------------------------------------------------------------------
// Error types
// -----------------------------------------------------------------------------

// ErrorField describes a single validation failure so the template can render
// a field-level message.
type ErrorField struct {
	Name    string `json:"field"`   // field name, empty for form-level errors
	Message string `json:"message"` // user-facing message
}

// Errors is the ordered set of current failures.  A field appears at most
// once, and only while it fails its rule.
type Errors []ErrorField

// Get returns the message recorded for name.
func (e Errors) Get(name string) (string, bool) {
	for _, f := range e {
		if f.Name == name {
			return f.Message, true
		}
	}
	return "", false
}

// Map returns the errors keyed by field name.
func (e Errors) Map() map[string]string {
	out := make(map[string]string, len(e))
	for _, f := range e {
		out[f.Name] = f.Message
	}
	return out
}

// Messages returns the user-facing texts in order.
func (e Errors) Messages() []string {
	out := make([]string, len(e))
	for i, f := range e {
		out[i] = f.Message
	}
	return out
}

// filter keeps form-level errors and those whose field is in keep.
func (e Errors) filter(keep map[string]bool) Errors {
	var out Errors
	for _, f := range e {
		if f.Name == "" || keep[f.Name] {
			out = append(out, f)
		}
	}
	return out
}

// validationError wraps Errors and satisfies the error interface.
//
// It allows callers (HandleSubmit, component handlers) to distinguish user
// input errors from system failures via errors.As / IsValidationError.
type validationError struct{ Fields Errors }

func (ve validationError) Error() string {
	return fmt.Sprintf("form validation failed: %d error(s)", len(ve.Fields))
}

// IsValidationError reports whether err came from failed validation.
func IsValidationError(err error) bool {
	var ve validationError
	return errors.As(err, &ve)
}

// FieldErrors extracts the Errors carried by a validation error.
func FieldErrors(err error) Errors {
	var ve validationError
	if errors.As(err, &ve) {
		return ve.Fields
	}
	return nil
}

// -----------------------------------------------------------------------------
// Public API
// -----------------------------------------------------------------------------

// Validate derives the Errors for vals.  It has no side effects.
func Validate(fd *FormDef, vals Values) Errors {
	var errs Errors
	for i := range fd.Fields {
		f := &fd.Fields[i]
		if msg := ValidateField(f, vals[f.Name]); msg != "" {
			errs = append(errs, ErrorField{Name: f.Name, Message: msg})
		}
	}
	return errs
}

// ValidateField checks one raw value against f and returns the user-facing
// message of the first failing rule, or "" when the value passes.
func ValidateField(f *FieldDef, raw string) string {
	val := strings.TrimSpace(raw)

	if err := validate.Var(val, ruleTags(f)); err != nil {
		var ve validator.ValidationErrors
		if errors.As(err, &ve) && len(ve) > 0 {
			return message(f, ve[0].Tag(), ve[0].Param())
		}
		return message(f, "", "")
	}
	if f.re != nil && val != "" && !f.re.MatchString(val) {
		return message(f, "pattern", f.Pattern)
	}
	return ""
}

// -----------------------------------------------------------------------------
// Helpers
// -----------------------------------------------------------------------------

// ruleTags translates f into a validator tag string.  Order matters: the
// validator stops at the first failing tag.
func ruleTags(f *FieldDef) string {
	tags := make([]string, 0, 4)
	if f.Required {
		tags = append(tags, "required")
	} else {
		tags = append(tags, "omitempty")
	}
	if f.MinLength > 0 {
		tags = append(tags, "min="+strconv.Itoa(f.MinLength))
	}
	if f.MaxLength > 0 {
		tags = append(tags, "max="+strconv.Itoa(f.MaxLength))
	}
	switch f.Type {
	case TypeEmail:
		tags = append(tags, "email")
	case TypeNumber:
		tags = append(tags, "numeric")
	}
	return strings.Join(tags, ",")
}

// message renders the user-facing text for a failed tag.
func message(f *FieldDef, tag, param string) string {
	if f.ErrorMsg != "" {
		return f.ErrorMsg
	}
	switch tag {
	case "required":
		return f.Name + " is a required field"
	case "min":
		return fmt.Sprintf("%s must have at least %s characters", f.Name, param)
	case "max":
		return fmt.Sprintf("%s must have at most %s characters", f.Name, param)
	case "email":
		return f.Name + " must be a valid email address"
	case "numeric":
		return f.Name + " must be a number"
	case "pattern":
		return f.Name + " must match the required format"
	default:
		return f.Name + " is invalid"
	}
}
