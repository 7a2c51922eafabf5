// internal/form/submit.go
//
// Forms subsystem: consolidated Submit helper.
//
// Context
//   Most handlers want one call that parses the POST body, runs the
//   form-level checks, validates input through a fresh State, executes
//   configured actions, and returns either the accepted Submission or a
//   validation error.  HandleSubmit provides that so component code stays
//   terse.
//
//------------------------------------------------------------------------------

package form

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/yanizio/contactform/internal/metrics"
)

// FieldTouched is the repeated hidden input listing fields the user visited.
const FieldTouched = "_touched"

// StateFromPost builds a State holding the posted values.  Only the fields
// listed under FieldTouched count as touched.
func StateFromPost(fd *FormDef, posted url.Values) *State {
	s := NewState(fd)
	for _, f := range fd.Fields {
		s.values[f.Name] = posted.Get(f.Name)
	}
	for _, name := range posted[FieldTouched] {
		if _, ok := fd.Field(name); ok {
			s.touched[name] = true
		}
	}
	s.errs = Validate(fd, s.values)
	return s
}

// HandleSubmit parses r, checks the CSRF token and timing, validates against
// formID, and executes post-submit actions.  It always returns the State so
// the caller can re-render it.  On user errors the error satisfies
// IsValidationError; any other error is a system failure.
func HandleSubmit(formID string, r *http.Request) (*State, Submission, error) {
	fd, ok := GetFormDef(formID)
	if !ok {
		return nil, Submission{}, fmt.Errorf("HandleSubmit: unknown form %q", formID)
	}
	if err := r.ParseForm(); err != nil {
		return nil, Submission{}, fmt.Errorf("HandleSubmit: parse body: %w", err)
	}

	s := StateFromPost(fd, r.PostForm)

	if fe := CheckRequest(r.PostForm); fe != nil {
		metrics.FormSubmissionsTotal.WithLabelValues(fd.ID, "refused").Inc()
		return s, Submission{}, validationError{Fields: Errors{*fe}}
	}

	sub, err := s.Submit()
	Observe(r.Context(), fd, sub, err)
	return s, sub, err
}

// Observe records the outcome of State.Submit in metrics and, when the
// submit was accepted, runs the form's actions.
func Observe(ctx context.Context, fd *FormDef, sub Submission, err error) {
	if err != nil {
		metrics.FormSubmissionsTotal.WithLabelValues(fd.ID, "rejected").Inc()
		for _, fe := range FieldErrors(err) {
			metrics.FormValidationErrorsTotal.WithLabelValues(fd.ID, fe.Name).Inc()
		}
		return
	}
	metrics.FormSubmissionsTotal.WithLabelValues(fd.ID, "accepted").Inc()
	ExecuteActions(ctx, fd, sub)
}
