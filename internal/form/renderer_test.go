package form

import (
	"bytes"
	"html/template"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderFormEmpty(t *testing.T) {
	withProtection(t, Protection{Key: testKey()})
	s := newTestState(t)

	out, err := RenderForm(s)
	require.NoError(t, err)
	html := string(out)

	assert.Contains(t, html, `data-form="contact/contact"`)
	assert.Contains(t, html, `<label for="fld-firstName">First Name<span class="required">*</span></label>`)
	assert.Contains(t, html, `id="fld-email" name="email" required type="email" value=""`)
	assert.Contains(t, html, `<textarea id="fld-message" name="message"></textarea>`)
	assert.Contains(t, html, `minlength="3"`)
	assert.Contains(t, html, `name="`+FieldCSRF+`"`)
	assert.Contains(t, html, `name="`+FieldRenderTS+`"`)
	assert.Contains(t, html, `<button type="submit">Submit</button>`)
	assert.NotContains(t, html, "aria-invalid", "no touched fields, no inline errors")
}

func TestRenderFormShowsTouchedErrorsAndEscapes(t *testing.T) {
	withProtection(t, Protection{Key: testKey()})
	s := newTestState(t)
	require.NoError(t, s.Set("firstName", `<b`))
	require.NoError(t, s.Set("message", "This sucks"))

	out, err := RenderForm(s)
	require.NoError(t, err)
	html := string(out)

	assert.Contains(t, html, `value="&lt;b"`)
	assert.NotContains(t, html, `value="<b"`)
	assert.Contains(t, html, `aria-invalid="true" aria-describedby="err-firstName"`)
	assert.Contains(t, html, `<span class="field-error" id="err-firstName" aria-live="polite">Error: firstName must have at least 3 characters</span>`)
	assert.Contains(t, html, `>This sucks</textarea>`)
	assert.Equal(t, 1, strings.Count(html, "aria-invalid"))
}

func TestRenderErrors(t *testing.T) {
	empty := string(RenderErrors(nil))
	assert.Contains(t, empty, `<ul id="form-errors"`)
	assert.Contains(t, empty, `data-count="0"`)
	assert.Zero(t, strings.Count(empty, `data-testid="error"`))

	out := string(RenderErrors(Errors{
		{Name: "firstName", Message: "firstName is a required field"},
		{Name: "email", Message: "email must be a valid email address"},
	}))
	assert.Contains(t, out, `data-count="2"`)
	assert.Equal(t, 2, strings.Count(out, `data-testid="error"`))
	assert.Contains(t, out, "email must be a valid email address")
}

func TestRenderSubmission(t *testing.T) {
	s := newTestState(t)
	require.NoError(t, s.Set("firstName", "Jack"))
	require.NoError(t, s.Set("lastName", "Nunnink"))
	require.NoError(t, s.Set("email", "asdf@asdf.com"))
	sub, err := s.Submit()
	require.NoError(t, err)

	out := string(RenderSubmission(s.Def(), sub))
	assert.Contains(t, out, `<p data-testid="firstNameDisplay">First Name: Jack</p>`)
	assert.Contains(t, out, `<p data-testid="lastNameDisplay">Last Name: Nunnink</p>`)
	assert.Contains(t, out, `<p data-testid="emailDisplay">Email: asdf@asdf.com</p>`)
	assert.NotContains(t, out, "messageDisplay", "empty message is omitted")
}

func TestFuncMap(t *testing.T) {
	withProtection(t, Protection{Key: testKey()})
	s := newTestState(t)
	require.NoError(t, s.Set("email", "jack"))

	tmpl := template.Must(template.New("page").Funcs(FuncMap()).Parse(
		`{{ formErrors .Errs }}<form>{{ formFields .State }}</form>`))

	var buf bytes.Buffer
	require.NoError(t, tmpl.Execute(&buf, map[string]any{"State": s, "Errs": s.Errors()}))
	assert.Contains(t, buf.String(), `<li data-testid="error">email must be a valid email address</li>`)
	assert.Contains(t, buf.String(), `<form><div class="form-fields"`)
}
