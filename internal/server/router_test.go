package server

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yanizio/contactform/internal/component"
	"github.com/yanizio/contactform/internal/config"
	"github.com/yanizio/contactform/internal/requestinfo"
)

// probe is a minimal component that records Init and request info.
type probe struct {
	name    string
	initErr error
	inited  bool
}

func (p *probe) Name() string { return p.name }

func (p *probe) Init(*config.Config) error {
	p.inited = true
	return p.initErr
}

func (p *probe) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/probe", func(w http.ResponseWriter, r *http.Request) {
		if requestinfo.FromContext(r.Context()) == nil {
			http.Error(w, "no request info", http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(p.name))
	})
	return r
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestRouterMountsComponentsAndServiceEndpoints(t *testing.T) {
	p := &probe{name: "zz-probe"}
	component.Register(p)
	t.Cleanup(func() { component.Unregister(p.name) })
	cfg := config.Defaults()

	h, err := Router(&cfg)
	require.NoError(t, err)
	assert.True(t, p.inited)

	rec := get(t, h, "/probe")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "zz-probe", rec.Body.String())
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))

	rec = get(t, h, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	rec = get(t, h, "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	body, _ := io.ReadAll(rec.Body)
	assert.Contains(t, string(body), "contact_form_live_sessions")
}

func TestRouterFailsOnInitError(t *testing.T) {
	p := &probe{name: "zz-broken", initErr: errors.New("boom")}
	component.Register(p)
	t.Cleanup(func() { component.Unregister(p.name) })
	cfg := config.Defaults()

	_, err := Router(&cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "zz-broken")
}

func TestNewAppliesTimeouts(t *testing.T) {
	srv := New(":0", http.NotFoundHandler())
	assert.Equal(t, ":0", srv.Addr)
	assert.Equal(t, ReadHeaderTimeout, srv.ReadHeaderTimeout)
	assert.Equal(t, 15*time.Second, srv.WriteTimeout)
	assert.Equal(t, IdleTimeout, srv.IdleTimeout)
}
