// internal/component/registry.go
//
// Component registry (cycle-free).
//
// Each concrete component lives under components/<name> and calls
// component.Register() in an init() function.  The server mounts every
// component's Routes() at "/" and, before mounting, invokes Init() when the
// component implements the Initializer interface.  Config reloads reach
// components that implement Reloader through ReloadAll.

package component

import (
	"sort"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/yanizio/contactform/internal/config"
)

// Initializer is optional.  If a Component implements it, the server calls
// Init(cfg) once before the component's routes are mounted.
type Initializer interface {
	Init(cfg *config.Config) error
}

// Reloader is optional.  ReloadAll calls Reload(cfg) after every config
// reload so a component can drop caches derived from the old config.
type Reloader interface {
	Reload(cfg *config.Config)
}

// Component contract.
//
// Routes() should mount BOTH page and API endpoints, e.g:
//
//	r := chi.NewRouter()
//	r.Get("/contact", getPage)
//	r.Post("/contact/validate", postValidate)
//	return r
type Component interface {
	Name() string
	Routes() chi.Router
}

var (
	mu       sync.RWMutex
	registry = map[string]Component{}
)

// Register is invoked from component init() functions.  A later call with
// the same name replaces the earlier one.
func Register(c Component) {
	mu.Lock()
	registry[c.Name()] = c
	mu.Unlock()
}

// Unregister removes the component registered under name, if any.
func Unregister(name string) {
	mu.Lock()
	delete(registry, name)
	mu.Unlock()
}

// Get returns the component registered under name.
func Get(name string) (Component, bool) {
	mu.RLock()
	defer mu.RUnlock()
	c, ok := registry[name]
	return c, ok
}

// All returns every registered component sorted by name so mount order is
// stable across runs.
func All() []Component {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]Component, 0, len(registry))
	for _, c := range registry {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// ReloadAll passes cfg to every registered Reloader, in name order.
func ReloadAll(cfg *config.Config) {
	for _, c := range All() {
		if r, ok := c.(Reloader); ok {
			r.Reload(cfg)
		}
	}
}
