// internal/view/render.go
//
// View engine: template lookup, override chain, func-map injection, and an
// LRU of parsed *template.Template* sets.
//
// Public helpers
// --------------
//   - Render         – write rendered HTML to an http.ResponseWriter.
//   - RenderToString – return template.HTML (fragments, tests).
//
// Lookup precedence (first hit wins):
//   1. <override dir>/templates/<name>.html   (optional, on disk)
//   2. <component fs>/templates/<name>.html   (embedded)
//
// All templates in the same directory are parsed as one set so sub-templates
// ({{ template "row" . }}) work out-of-the-box.  Concurrent cache misses for
// the same key parse once via singleflight.
//
// execName() chooses the template to execute:
//   – If the set contains "<name>.html", we run that (file has no define).
//   – Else we fall back to "<name>" (root template defined via {{ define }}).

package view

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"path"

	"golang.org/x/sync/singleflight"

	"github.com/yanizio/contactform/internal/cache"
)

// Engine renders the templates of one component.  Safe for concurrent use.
type Engine struct {
	sources []fs.FS // precedence order, first hit wins
	funcs   template.FuncMap

	sets *cache.LRU[string, *template.Template]
	sfg  singleflight.Group
}

// New returns an Engine over sources, ordered by precedence.  nil sources
// are skipped so callers can pass an optional override directly.
func New(funcs template.FuncMap, sources ...fs.FS) *Engine {
	e := &Engine{
		funcs: template.FuncMap{"dict": dict},
		sets:  cache.New[string, *template.Template](64),
	}
	for k, fn := range funcs {
		e.funcs[k] = fn
	}
	for _, s := range sources {
		if s != nil {
			e.sources = append(e.sources, s)
		}
	}
	return e
}

// Render executes the named template into a buffer, then writes status and
// body to w.  Nothing is written when execution fails, so the caller can
// still send an error page.
func (e *Engine) Render(w http.ResponseWriter, status int, name string, data any) error {
	out, err := e.RenderToString(name, data)
	if err != nil {
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err = w.Write([]byte(out))
	return err
}

// RenderToString executes and returns HTML.
func (e *Engine) RenderToString(name string, data any) (template.HTML, error) {
	t, err := e.load(name)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, execName(t, name), data); err != nil {
		return "", fmt.Errorf("view: execute %s: %w", name, err)
	}
	return template.HTML(buf.String()), nil
}

// Flush drops every parsed set, e.g. after override templates change.
func (e *Engine) Flush() { e.sets.Purge() }

//
// internal: load
//

// load finds and (if necessary) parses the template set for name.
func (e *Engine) load(name string) (*template.Template, error) {
	if t, ok := e.sets.Get(name); ok {
		return t, nil
	}

	v, err, _ := e.sfg.Do(name, func() (any, error) {
		base := path.Join("templates", name+".html")
		for _, src := range e.sources {
			if _, err := fs.Stat(src, base); err != nil {
				continue
			}
			// Parse all *.html in the same directory so sub-templates work.
			pattern := path.Join(path.Dir(base), "*.html")
			t, err := template.New(name).Funcs(e.funcs).ParseFS(src, pattern)
			if err != nil {
				return nil, fmt.Errorf("view: parse %s: %w", pattern, err)
			}
			e.sets.Add(name, t)
			return t, nil
		}
		return nil, fmt.Errorf("view: template %q: %w", name, fs.ErrNotExist)
	})
	if err != nil {
		return nil, err
	}
	return v.(*template.Template), nil
}

//
// helpers
//

// execName picks the template name to execute.
//
// Priority:
//  1. If the set has "<name>.html" (file-based template), run that.
//  2. Otherwise, fall back to "<name>" (root template defined in code).
func execName(t *template.Template, name string) string {
	if tmpl := t.Lookup(name + ".html"); tmpl != nil {
		return name + ".html"
	}
	return name
}

// dict builds a map in templates: {{ dict "k" 1 "k2" "v" }}.
func dict(kv ...any) (map[string]any, error) {
	if len(kv)%2 != 0 {
		return nil, errors.New("dict: odd number of arguments")
	}
	m := make(map[string]any, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			return nil, fmt.Errorf("dict: key %v is not a string", kv[i])
		}
		m[key] = kv[i+1]
	}
	return m, nil
}
