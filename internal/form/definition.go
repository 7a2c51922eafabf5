// internal/form/definition.go
//
// Forms subsystem: YAML definition loader.
//
// Context
//   Each HTML form is declared in a YAML file.  The file defines the form’s
//   identifier, title, submit label, fields, and any post-submit actions.
//   Components embed their “forms/*.yaml” and register them at start-up; the
//   resulting FormDef lives in an in-memory registry.  The validator, state,
//   renderer, and actions fetch definitions from this registry by ID, which
//   keeps one source of truth for every rule.
//
// Workflow
//   •  Structs mirror the YAML schema: FormDef → FieldDef / ActionDef.
//   •  ParseFormDef decodes one document and validates structural rules.
//   •  RegisterFS walks an fs.FS (embedded or on disk), loads every YAML, and
//      adds it to the registry.  RegisterForms does the same for override
//      directories on disk, ordered by precedence.
//   •  GetFormDef offers safe, read-only access to a parsed form by ID.
//
// Style
//   Full sentences, two spaces after periods, and Oxford commas.
//
//------------------------------------------------------------------------------

package form

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"regexp"
	"strings"
	"sync"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Field types understood by the validator and renderer.
const (
	TypeText     = "text"
	TypeEmail    = "email"
	TypeTextarea = "textarea"
	TypeNumber   = "number"
)

// -----------------------------------------------------------------------------
// Data structures
// -----------------------------------------------------------------------------

// FormDef represents one form definition loaded from YAML.
//
// The form is uniquely identified by ID which should be namespaced by
// component, e.g. “contact/contact”.  Actions run after a valid submit.
type FormDef struct {
	ID      string      `yaml:"id"`      // Component-scoped identifier.
	Title   string      `yaml:"title"`   // Display heading, optional.
	Submit  string      `yaml:"submit"`  // Button label.  Defaults to “Submit”.
	Fields  []FieldDef  `yaml:"fields"`  // Fields in display order.
	Actions []ActionDef `yaml:"actions"` // Post-submit actions.  May be empty.
}

// FieldDef describes a single input control on the form.  Validation metadata
// lives inline so the server enforces the same rules the markup hints at.
type FieldDef struct {
	Name        string `yaml:"name"`        // Submission key.  Required.
	Label       string `yaml:"label"`       // Human-readable label.  Required.
	Type        string `yaml:"type"`        // text, email, textarea, or number.
	Placeholder string `yaml:"placeholder"` // Optional placeholder text.
	Required    bool   `yaml:"required"`    // True if input is mandatory.
	MinLength   int    `yaml:"minlength"`   // ≥ 0, 0 means unset.
	MaxLength   int    `yaml:"maxlength"`   // ≥ 0, 0 means unset.
	Pattern     string `yaml:"pattern"`     // Regex pattern string.
	ErrorMsg    string `yaml:"error"`       // Custom error message, optional.

	re *regexp.Regexp // compiled Pattern
}

// ActionDef configures an in-process action executed after a valid submit.
//
// Params are loosely typed so new kinds can be introduced without schema
// churn.  Unknown keys are tolerated here; executor code validates later.
type ActionDef struct {
	Type   string         `yaml:"type"`    // log or metrics.
	Params map[string]any `yaml:",inline"` // Action-specific fields inline.
}

// SubmitLabel returns the button caption.
func (fd *FormDef) SubmitLabel() string {
	if fd.Submit == "" {
		return "Submit"
	}
	return fd.Submit
}

// Field returns the definition for name.
func (fd *FormDef) Field(name string) (*FieldDef, bool) {
	for i := range fd.Fields {
		if fd.Fields[i].Name == name {
			return &fd.Fields[i], true
		}
	}
	return nil, false
}

// -----------------------------------------------------------------------------
// Registry
// -----------------------------------------------------------------------------

// registry maps compositeID (“comp/form”) → *FormDef.  Guarded by mutex.
var (
	registryMu sync.RWMutex
	registry   = make(map[string]*FormDef)
)

// GetFormDef returns a parsed FormDef by composite ID (“component/form”).
// The boolean is false when the ID is unknown.
func GetFormDef(id string) (*FormDef, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	fd, ok := registry[id]
	return fd, ok
}

// -----------------------------------------------------------------------------
// Loader API
// -----------------------------------------------------------------------------

// ParseFormDef decodes one YAML document, validates its structure, and
// returns a populated FormDef.  src only labels errors.  It NEVER mutates the
// global registry.
func ParseFormDef(raw []byte, src string) (*FormDef, error) {
	var fd FormDef
	if err := yaml.Unmarshal(raw, &fd); err != nil {
		return nil, fmt.Errorf("parse YAML %s: %w", src, err)
	}
	if err := validateFormDef(&fd, src); err != nil {
		return nil, err
	}
	return &fd, nil
}

// LoadFormDef reads and parses one YAML file from disk.
func LoadFormDef(p string) (*FormDef, error) {
	raw, err := os.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("read form file %s: %w", p, err)
	}
	return ParseFormDef(raw, p)
}

// RegisterFS loads every “*.yaml” below root in fsys and registers it.  A
// later registration of the same ID overrides the earlier one.
func RegisterFS(fsys fs.FS, root string) error {
	return fs.WalkDir(fsys, root, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".yaml") {
			return nil // skip non-YAML
		}

		raw, err := fs.ReadFile(fsys, p)
		if err != nil {
			return fmt.Errorf("read form file %s: %w", p, err)
		}
		fd, err := ParseFormDef(raw, p)
		if err != nil {
			return err // fail fast so issues surface loudly.
		}
		register(fd)
		return nil
	})
}

// RegisterForms loads every “*.yaml” found below each directory in dirs.
// The slice is ordered by precedence with overrides FIRST, so it is applied
// in reverse and the first entry wins.  Missing directories are skipped.
func RegisterForms(dirs []string) error {
	if len(dirs) == 0 {
		return errors.New("RegisterForms: no directories provided")
	}

	for i := len(dirs) - 1; i >= 0; i-- {
		err := RegisterFS(os.DirFS(dirs[i]), ".")
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err // propagate IO or parse errors.
		}
	}
	return nil
}

// register inserts or overrides the form in the global registry.  Caller
// must ensure the FormDef passed validation.
func register(fd *FormDef) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, dup := registry[fd.ID]; dup {
		zap.S().Debugw("form definition overridden", "form", fd.ID)
	}
	registry[fd.ID] = fd
}

// -----------------------------------------------------------------------------
// Validation helpers
// -----------------------------------------------------------------------------

// knownActions lists the action kinds ExecuteActions can dispatch.
var knownActions = map[string]bool{
	"log":     true,
	"metrics": true,
}

// validateFormDef enforces structural rules that cannot be expressed via YAML
// tags alone.  It returns a descriptive error referencing the offending file.
func validateFormDef(fd *FormDef, src string) error {
	if fd.ID == "" {
		return fmt.Errorf("form definition %s: missing required 'id'", src)
	}
	if !strings.Contains(fd.ID, "/") || path.Clean(fd.ID) != fd.ID {
		return fmt.Errorf("form definition %s: id %q must look like 'component/form'", src, fd.ID)
	}
	if len(fd.Fields) == 0 {
		return fmt.Errorf("form definition %s: must have 'fields'", src)
	}

	fieldNames := make(map[string]struct{}, len(fd.Fields))
	for i := range fd.Fields {
		if err := validateField(&fd.Fields[i], src); err != nil {
			return err
		}
		if _, dup := fieldNames[fd.Fields[i].Name]; dup {
			return fmt.Errorf("form %s: duplicate field name '%s'", src, fd.Fields[i].Name)
		}
		fieldNames[fd.Fields[i].Name] = struct{}{}
	}

	// Unknown action types are allowed for forward compatibility but emit a
	// warning so developers notice.
	for _, ac := range fd.Actions {
		if !knownActions[ac.Type] {
			zap.S().Warnw("unrecognized form action", "form", fd.ID, "action", ac.Type)
		}
	}

	return nil
}

// validateField confirms that essential attributes are present and sane.
func validateField(f *FieldDef, src string) error {
	if f.Name == "" {
		return fmt.Errorf("form %s: field missing 'name'", src)
	}
	if strings.HasPrefix(f.Name, "_") {
		return fmt.Errorf("form %s: field '%s' uses the reserved '_' prefix", src, f.Name)
	}
	if f.Label == "" {
		return fmt.Errorf("form %s: field '%s' missing 'label'", src, f.Name)
	}

	switch f.Type {
	case TypeText, TypeEmail, TypeTextarea, TypeNumber:
	case "":
		return fmt.Errorf("form %s: field '%s' missing 'type'", src, f.Name)
	default:
		return fmt.Errorf("form %s: field '%s' has unsupported type %q", src, f.Name, f.Type)
	}

	if f.Pattern != "" {
		re, err := regexp.Compile(f.Pattern)
		if err != nil {
			return fmt.Errorf("form %s: field '%s' invalid regex pattern: %v", src, f.Name, err)
		}
		f.re = re
	}

	if f.MinLength < 0 || f.MaxLength < 0 {
		return fmt.Errorf("form %s: field '%s' minlength/maxlength cannot be negative", src, f.Name)
	}
	if f.MaxLength > 0 && f.MinLength > f.MaxLength {
		return fmt.Errorf("form %s: field '%s' minlength greater than maxlength", src, f.Name)
	}

	return nil
}
