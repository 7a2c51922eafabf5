// internal/form/funcs.go
//
// Forms subsystem: template integration.
//
// Page templates embed form markup through these helpers instead of calling
// the renderer from Go:
//
//	{{ formErrors .Errors }}
//	{{ formFields .State }}
//	{{ if .HasSubmission }}{{ formSubmission .Def .Submission }}{{ end }}
//
// formFields mints a fresh CSRF token on every call, so pages that use it
// must never be cached.

package form

import "html/template"

// FuncMap returns the form helpers for html/template.
func FuncMap() template.FuncMap {
	return template.FuncMap{
		"formFields":     RenderForm,
		"formErrors":     RenderErrors,
		"formSubmission": RenderSubmission,
	}
}
