// internal/form/renderer.go
//
// Forms subsystem: HTML renderer.
//
// Context
//   Given a State (definition + current values + visible errors) this file
//   produces safe, accessible HTML fragments.  The page template decides
//   where each fragment goes; the renderer never writes <html> or <form>.
//
// Fragments
//   •  RenderForm       – labelled inputs, inline errors, hidden CSRF token
//                         and render timestamp, submit button.
//   •  RenderErrors     – aggregate list, one <li data-testid="error"> per
//                         visible error.  The <ul id="form-errors"> is
//                         always written so the live script can refill it.
//   •  RenderSubmission – submitted values, one data-testid="<name>Display"
//                         element per non-empty value.
//
// Style
//   Output HTML is deliberately plain – no framework classes – so themes can
//   style via element selectors or class hooks.  Each input gets
//   id="fld-{name}" and is wrapped in <div class="form-field">.
//
//------------------------------------------------------------------------------

package form

import (
	"bytes"
	"fmt"
	"html"
	"html/template"
	"strconv"
	"time"
)

// RenderForm returns the field markup for s, including security inputs and
// the submit button.
func RenderForm(s *State) (template.HTML, error) {
	fd := s.Def()
	visible := s.Errors()

	var buf bytes.Buffer
	// Form wrapper div to allow per-form CSS targeting if desired.
	buf.WriteString(`<div class="form-fields" data-form="` + html.EscapeString(fd.ID) + `">` + "\n")

	for i := range fd.Fields {
		f := &fd.Fields[i]
		msg, _ := visible.Get(f.Name)
		if err := writeField(&buf, f, s.Value(f.Name), msg); err != nil {
			return "", err
		}
	}

	// Hidden meta inputs.
	tok, err := GenerateToken()
	if err != nil {
		return "", fmt.Errorf("RenderForm: csrf token: %w", err)
	}
	buf.WriteString(`<input type="hidden" name="` + FieldCSRF + `" value="` + tok + `">` + "\n")
	buf.WriteString(`<input type="hidden" name="` + FieldRenderTS + `" value="` + strconv.FormatInt(time.Now().UnixMicro(), 10) + `">` + "\n")

	buf.WriteString(`<button type="submit">` + html.EscapeString(fd.SubmitLabel()) + `</button>` + "\n")
	buf.WriteString(`</div>`)
	return template.HTML(buf.String()), nil
}

// writeField emits HTML for an individual field into buf, applying the
// current value, validation attributes, and inline error text.
func writeField(buf *bytes.Buffer, f *FieldDef, val, errMsg string) error {
	name := html.EscapeString(f.Name)
	id := "fld-" + name

	buf.WriteString(`<div class="form-field">` + "\n")

	// Label first (for accessibility).
	buf.WriteString(`<label for="` + id + `">` + html.EscapeString(f.Label))
	if f.Required {
		buf.WriteString(`<span class="required">*</span>`)
	}
	buf.WriteString(`</label>` + "\n")

	attrs := `id="` + id + `" name="` + name + `"`
	if f.Placeholder != "" {
		attrs += ` placeholder="` + html.EscapeString(f.Placeholder) + `"`
	}
	if f.Required {
		attrs += ` required`
	}
	if f.MinLength > 0 {
		attrs += ` minlength="` + strconv.Itoa(f.MinLength) + `"`
	}
	if f.MaxLength > 0 {
		attrs += ` maxlength="` + strconv.Itoa(f.MaxLength) + `"`
	}
	if errMsg != "" {
		attrs += ` aria-invalid="true" aria-describedby="err-` + name + `"`
	}

	switch f.Type {
	case TypeText, TypeEmail:
		if f.Pattern != "" {
			attrs += ` pattern="` + html.EscapeString(f.Pattern) + `"`
		}
		buf.WriteString(`<input ` + attrs + ` type="` + f.Type + `" value="` + html.EscapeString(val) + `">` + "\n")

	case TypeNumber:
		buf.WriteString(`<input ` + attrs + ` type="text" inputmode="decimal" value="` + html.EscapeString(val) + `">` + "\n")

	case TypeTextarea:
		buf.WriteString(`<textarea ` + attrs + `>` + html.EscapeString(val) + `</textarea>` + "\n")

	default:
		return fmt.Errorf("writeField: unsupported field type %q in form field %s", f.Type, f.Name)
	}

	// Inline error slot, filled on server re-render or by the live script.
	buf.WriteString(`<span class="field-error" id="err-` + name + `" aria-live="polite">`)
	if errMsg != "" {
		buf.WriteString(`Error: ` + html.EscapeString(errMsg))
	}
	buf.WriteString(`</span>` + "\n")

	buf.WriteString(`</div>` + "\n")
	return nil
}

// RenderErrors returns the aggregate error list.  An empty errs still yields
// the container, with data-count="0" and no items.
func RenderErrors(errs Errors) template.HTML {
	var buf bytes.Buffer
	buf.WriteString(`<ul id="form-errors" class="form-errors" aria-live="polite" data-count="` + strconv.Itoa(len(errs)) + `">` + "\n")
	for _, e := range errs {
		buf.WriteString(`<li data-testid="error">` + html.EscapeString(e.Message) + `</li>` + "\n")
	}
	buf.WriteString(`</ul>`)
	return template.HTML(buf.String())
}

// RenderSubmission returns the submitted values in definition order.  Fields
// submitted empty are omitted entirely.
func RenderSubmission(fd *FormDef, sub Submission) template.HTML {
	var buf bytes.Buffer
	buf.WriteString(`<section class="form-submission" data-testid="submission">` + "\n")
	buf.WriteString(`<h2>You Submitted:</h2>` + "\n")
	for _, f := range fd.Fields {
		v := sub.Get(f.Name)
		if v == "" {
			continue
		}
		buf.WriteString(`<p data-testid="` + html.EscapeString(f.Name) + `Display">`)
		buf.WriteString(html.EscapeString(f.Label) + `: ` + html.EscapeString(v))
		buf.WriteString(`</p>` + "\n")
	}
	buf.WriteString(`</section>`)
	return template.HTML(buf.String())
}
