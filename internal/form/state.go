// internal/form/state.go
//
// Forms subsystem: per-instance form state.
//
// Context
//   A State is one live instance of a form: the current field values, the
//   set of fields the user has touched, the errors derived from those
//   values, and the last accepted Submission.  HTTP handlers build one per
//   request from posted values; the live websocket keeps one per connection.
//
// Workflow
//   •  Set stores a value, marks the field touched, and re-runs Validate.
//   •  Errors returns only the failures of touched fields, which is what the
//      page shows.  AllErrors returns every failure.
//   •  Submit touches every field.  When nothing fails it snapshots the
//      values into an immutable Submission and resets values and touched
//      fields to their initial state.  Otherwise it returns a validation
//      error and the previous Submission stays in place.
//
// A State is NOT safe for concurrent use.
//
//------------------------------------------------------------------------------

package form

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrUnknownField is returned when a caller names a field the FormDef does
// not declare.
var ErrUnknownField = errors.New("unknown form field")

// Values maps field name → current string value.
type Values map[string]string

func (v Values) clone() Values {
	out := make(Values, len(v))
	for k, val := range v {
		out[k] = val
	}
	return out
}

// -----------------------------------------------------------------------------
// Submission
// -----------------------------------------------------------------------------

// Submission is the snapshot of values captured at a valid submit.  Its map
// is private so the snapshot cannot change after the fact.
type Submission struct {
	FormID      string
	SubmittedAt time.Time
	values      Values
}

// Get returns the submitted value for name.
func (s Submission) Get(name string) string { return s.values[name] }

// Values returns a copy of every submitted value.
func (s Submission) Values() Values { return s.values.clone() }

// MarshalJSON renders the snapshot for the live session and log actions.
func (s Submission) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		FormID      string    `json:"form"`
		SubmittedAt time.Time `json:"submitted_at"`
		Values      Values    `json:"values"`
	}{s.FormID, s.SubmittedAt, s.values})
}

// -----------------------------------------------------------------------------
// State
// -----------------------------------------------------------------------------

// State holds one form instance.  Zero value is invalid; use NewState.
type State struct {
	def     *FormDef
	values  Values
	touched map[string]bool
	errs    Errors
	last    *Submission

	now func() time.Time
}

// NewState returns a State with every field empty and untouched.
func NewState(def *FormDef) *State {
	s := &State{def: def, now: time.Now}
	s.Reset()
	return s
}

// Def returns the form definition behind s.
func (s *State) Def() *FormDef { return s.def }

// Set stores value for field name, marks it touched, and recomputes errors.
func (s *State) Set(name, value string) error {
	if _, ok := s.def.Field(name); !ok {
		return fmt.Errorf("%w %q in form %s", ErrUnknownField, name, s.def.ID)
	}
	s.values[name] = value
	s.touched[name] = true
	s.errs = Validate(s.def, s.values)
	return nil
}

// Touch marks name as visited without changing its value.
func (s *State) Touch(name string) error {
	if _, ok := s.def.Field(name); !ok {
		return fmt.Errorf("%w %q in form %s", ErrUnknownField, name, s.def.ID)
	}
	s.touched[name] = true
	return nil
}

// Value returns the current value of name.
func (s *State) Value(name string) string { return s.values[name] }

// Values returns a copy of the current values.
func (s *State) Values() Values { return s.values.clone() }

// Touched reports whether name has been edited or submitted.
func (s *State) Touched(name string) bool { return s.touched[name] }

// AllErrors returns every current failure, touched or not.
func (s *State) AllErrors() Errors { return s.errs }

// Errors returns the failures of touched fields, in definition order.
func (s *State) Errors() Errors { return s.errs.filter(s.touched) }

// Submit validates every field.  On success it stores and returns the new
// Submission and resets the field values.  On failure it returns an error
// satisfying IsValidationError.
func (s *State) Submit() (Submission, error) {
	for _, f := range s.def.Fields {
		s.touched[f.Name] = true
	}
	s.errs = Validate(s.def, s.values)
	if len(s.errs) > 0 {
		return Submission{}, validationError{Fields: s.errs}
	}

	snap := make(Values, len(s.def.Fields))
	for _, f := range s.def.Fields {
		snap[f.Name] = strings.TrimSpace(s.values[f.Name])
	}
	sub := Submission{FormID: s.def.ID, SubmittedAt: s.now().UTC(), values: snap}
	s.last = &sub
	s.Reset()
	return sub, nil
}

// Submission returns the last accepted snapshot.  The boolean is false until
// the first valid submit.
func (s *State) Submission() (Submission, bool) {
	if s.last == nil {
		return Submission{}, false
	}
	return *s.last, true
}

// Reset clears values and touched fields.  The last Submission is kept.
func (s *State) Reset() {
	s.values = make(Values, len(s.def.Fields))
	for _, f := range s.def.Fields {
		s.values[f.Name] = ""
	}
	s.touched = make(map[string]bool, len(s.def.Fields))
	s.errs = Validate(s.def, s.values)
}
