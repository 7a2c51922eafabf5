// components/contact/contact.go
//
// Contact component – the contact form page, its live-validation endpoints,
// and the static script that drives them.
//
// Routes
//   GET  /contact           empty form
//   POST /contact           submit; 422 with errors, or 200 with the
//                           submitted values and cleared inputs
//   POST /contact/validate  JSON {count, errors} for the touched fields
//   GET  /contact/live      websocket session (see live.go)
//   GET  /assets/*          embedded static files
//
//------------------------------------------------------------------------------

package contact

import (
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"

	"github.com/yanizio/contactform/internal/component"
	"github.com/yanizio/contactform/internal/config"
	"github.com/yanizio/contactform/internal/form"
	"github.com/yanizio/contactform/internal/logger"
	"github.com/yanizio/contactform/internal/view"
)

// FormID is the registry key of the contact form definition.
const FormID = "contact/contact"

//go:embed forms/*.yaml templates/*.html assets/*
var files embed.FS

// Compile-time assertions.
var (
	_ component.Component   = (*Component)(nil)
	_ component.Initializer = (*Component)(nil)
	_ component.Reloader    = (*Component)(nil)
)

// Component serves the contact form.
type Component struct {
	views *view.Engine
}

/*────────────────── component.Component methods ───────────────────────────*/

// Name returns the canonical component key.
func (c *Component) Name() string { return "contact" }

// Init registers the embedded form definition, then any overrides under
// form.definitions, and builds the view engine.  Templates found at
// <root>/templates/contact.html take precedence over the embedded ones.
func (c *Component) Init(cfg *config.Config) error {
	if err := form.RegisterFS(files, "forms"); err != nil {
		return fmt.Errorf("contact: register forms: %w", err)
	}
	if cfg.Form.Definitions != "" {
		if err := form.RegisterForms([]string{cfg.Form.Definitions}); err != nil {
			return fmt.Errorf("contact: register form overrides: %w", err)
		}
	}
	if _, ok := form.GetFormDef(FormID); !ok {
		return fmt.Errorf("contact: form %s not registered", FormID)
	}

	var override fs.FS
	if cfg.Paths.Root != "" {
		override = os.DirFS(cfg.Paths.Root)
	}
	c.views = view.New(form.FuncMap(), override, files)
	return nil
}

// Reload drops parsed templates so edits under <root>/templates show up
// after the next config reload.
func (c *Component) Reload(*config.Config) {
	if c.views != nil {
		c.views.Flush()
	}
}

// Routes builds and returns the router mounted at “/”.
func (c *Component) Routes() chi.Router {
	assets, _ := fs.Sub(files, "assets")

	r := chi.NewRouter()
	r.Get("/contact", c.handlePageGET)
	r.Post("/contact", c.handlePagePOST)
	r.Post("/contact/validate", c.handleValidate)
	r.Get("/contact/live", c.handleLive)
	r.Handle("/assets/*", http.StripPrefix("/assets/", http.FileServer(http.FS(assets))))
	return r
}

// Register component at program start.
func init() { component.Register(&Component{}) }

// Definition parses the embedded contact form without touching the
// registry.  The CLI uses it to validate offline.
func Definition() (*form.FormDef, error) {
	raw, err := files.ReadFile("forms/contact.yaml")
	if err != nil {
		return nil, fmt.Errorf("contact: read definition: %w", err)
	}
	return form.ParseFormDef(raw, "forms/contact.yaml")
}

/*──────────────────────────── Page data ────────────────────────────────────*/

// page is the data passed to templates/contact.html.
type page struct {
	Def           *form.FormDef
	State         *form.State
	Errors        form.Errors
	Submission    form.Submission
	HasSubmission bool
}

/*──────────────────────────── Handlers ─────────────────────────────────────*/

func (c *Component) handlePageGET(w http.ResponseWriter, r *http.Request) {
	fd, ok := form.GetFormDef(FormID)
	if !ok {
		c.fail(w, r, fmt.Errorf("contact: form %s not registered", FormID))
		return
	}
	s := form.NewState(fd)
	c.render(w, r, http.StatusOK, page{Def: fd, State: s})
}

func (c *Component) handlePagePOST(w http.ResponseWriter, r *http.Request) {
	s, sub, err := form.HandleSubmit(FormID, r)
	switch {
	case err == nil:
		c.render(w, r, http.StatusOK, page{
			Def:           s.Def(),
			State:         s,
			Submission:    sub,
			HasSubmission: true,
		})
	case form.IsValidationError(err):
		c.render(w, r, http.StatusUnprocessableEntity, page{
			Def:    s.Def(),
			State:  s,
			Errors: pageErrors(s, err),
		})
	default:
		c.fail(w, r, err)
	}
}

// validateResponse is the JSON body of POST /contact/validate.
type validateResponse struct {
	Count  int         `json:"count"`
	Errors form.Errors `json:"errors"`
}

func (c *Component) handleValidate(w http.ResponseWriter, r *http.Request) {
	fd, ok := form.GetFormDef(FormID)
	if !ok {
		c.fail(w, r, fmt.Errorf("contact: form %s not registered", FormID))
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form body", http.StatusBadRequest)
		return
	}

	errs := form.StateFromPost(fd, r.PostForm).Errors()
	if errs == nil {
		errs = form.Errors{}
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	if err := json.NewEncoder(w).Encode(validateResponse{Count: len(errs), Errors: errs}); err != nil {
		logger.FromContext(r.Context()).Warnw("validate response write failed", "err", err)
	}
}

/*──────────────────────────── helpers ─────────────────────────────────────*/

// render writes the contact page.  Rendered pages carry a fresh CSRF token,
// so they are never cached.
func (c *Component) render(w http.ResponseWriter, r *http.Request, status int, p page) {
	w.Header().Set("Cache-Control", "no-store")
	if err := c.views.Render(w, status, "contact", p); err != nil {
		c.fail(w, r, err)
	}
}

// pageErrors lists the form-level failures carried by err (CSRF, timing)
// ahead of the field errors s currently shows, so the aggregate list and
// the inline slots agree.
func pageErrors(s *form.State, err error) form.Errors {
	var out form.Errors
	for _, fe := range form.FieldErrors(err) {
		if fe.Name == "" {
			out = append(out, fe)
		}
	}
	return append(out, s.Errors()...)
}

// fail logs a system error and answers 500.
func (c *Component) fail(w http.ResponseWriter, r *http.Request, err error) {
	logger.FromContext(r.Context()).Errorw("contact request failed",
		"path", r.URL.Path, "err", err)
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}
