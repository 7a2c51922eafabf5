package form

import (
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFormDef(t *testing.T) {
	fd := contactDef(t)

	assert.Equal(t, "contact/contact", fd.ID)
	assert.Equal(t, "Contact Form", fd.Title)
	assert.Equal(t, "Submit", fd.SubmitLabel())
	require.Len(t, fd.Fields, 4)
	require.Len(t, fd.Actions, 2)
	assert.Equal(t, "log", fd.Actions[0].Type)

	f, ok := fd.Field("email")
	require.True(t, ok)
	assert.Equal(t, TypeEmail, f.Type)
	assert.True(t, f.Required)

	_, ok = fd.Field("phone")
	assert.False(t, ok)
}

func TestParseFormDefActionParams(t *testing.T) {
	fd, err := ParseFormDef([]byte(`
id: a/b
fields:
  - {name: x, label: X, type: text}
actions:
  - type: log
    level: debug
    fields: [x]
`), "inline")
	require.NoError(t, err)
	require.Len(t, fd.Actions, 1)
	assert.Equal(t, "debug", fd.Actions[0].Params["level"])
	assert.Equal(t, []any{"x"}, fd.Actions[0].Params["fields"])
}

func TestParseFormDefRejects(t *testing.T) {
	cases := map[string]string{
		"missing id":     "fields: [{name: x, label: X, type: text}]",
		"flat id":        "id: contact\nfields: [{name: x, label: X, type: text}]",
		"no fields":      "id: a/b",
		"missing label":  "id: a/b\nfields: [{name: x, type: text}]",
		"missing type":   "id: a/b\nfields: [{name: x, label: X}]",
		"bad type":       "id: a/b\nfields: [{name: x, label: X, type: date}]",
		"reserved name":  "id: a/b\nfields: [{name: _csrf_token, label: X, type: text}]",
		"duplicate name": "id: a/b\nfields: [{name: x, label: X, type: text}, {name: x, label: Y, type: text}]",
		"bad regex":      "id: a/b\nfields: [{name: x, label: X, type: text, pattern: '('}]",
		"min over max":   "id: a/b\nfields: [{name: x, label: X, type: text, minlength: 5, maxlength: 2}]",
		"bad yaml":       "id: [",
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseFormDef([]byte(raw), name)
			assert.Error(t, err)
		})
	}
}

func TestRegisterFS(t *testing.T) {
	fsys := fstest.MapFS{
		"forms/one.yaml":   {Data: []byte("id: test/one\nfields: [{name: x, label: X, type: text}]")},
		"forms/readme.txt": {Data: []byte("ignored")},
	}
	require.NoError(t, RegisterFS(fsys, "forms"))

	fd, ok := GetFormDef("test/one")
	require.True(t, ok)
	assert.Equal(t, "x", fd.Fields[0].Name)
}

func TestRegisterFSFailsOnBadDefinition(t *testing.T) {
	fsys := fstest.MapFS{
		"forms/bad.yaml": {Data: []byte("id: nope")},
	}
	assert.Error(t, RegisterFS(fsys, "forms"))
}

func TestRegisterFormsPrecedence(t *testing.T) {
	override := t.TempDir()
	base := t.TempDir()
	write := func(dir, title string) {
		raw := "id: test/prec\ntitle: " + title + "\nfields: [{name: x, label: X, type: text}]"
		require.NoError(t, os.WriteFile(filepath.Join(dir, "prec.yaml"), []byte(raw), 0o644))
	}
	write(override, "Override")
	write(base, "Base")

	require.NoError(t, RegisterForms([]string{override, base, filepath.Join(base, "missing")}))

	fd, ok := GetFormDef("test/prec")
	require.True(t, ok)
	assert.Equal(t, "Override", fd.Title)
}

func TestRegisterFormsNeedsDirs(t *testing.T) {
	assert.Error(t, RegisterForms(nil))
}

func TestLoadFormDef(t *testing.T) {
	p := filepath.Join(t.TempDir(), "contact.yaml")
	require.NoError(t, os.WriteFile(p, []byte(contactYAML), 0o644))

	fd, err := LoadFormDef(p)
	require.NoError(t, err)
	assert.Equal(t, "contact/contact", fd.ID)

	_, err = LoadFormDef(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
