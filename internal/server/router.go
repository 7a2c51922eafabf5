// internal/server/router.go
//
// Root router.
//
// Middleware order (outermost first):
//
//  1. RequestID        – chi, tags the request for the access log.
//  2. AccessLog        – request-scoped zap logger + one line per request.
//  3. Recoverer        – chi, turns handler panics into 500s.
//  4. ForceHTTPS       – 308 to https when http.force_https is set.
//  5. Security         – default security headers.
//  6. requestinfo      – UA + GeoIP enrichment for form actions.
//
// Every registered component is initialised and mounted at "/".  The
// service endpoints /metrics and /healthz sit beside them.

package server

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/yanizio/contactform/internal/component"
	"github.com/yanizio/contactform/internal/config"
	"github.com/yanizio/contactform/internal/middleware"
	"github.com/yanizio/contactform/internal/requestinfo"
)

// Router builds the root handler from cfg and the component registry.
func Router(cfg *config.Config) (http.Handler, error) {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(middleware.AccessLog)
	r.Use(chimw.Recoverer)
	r.Use(func(next http.Handler) http.Handler {
		return middleware.ForceHTTPS(forceHTTPS, next)
	})
	r.Use(middleware.Security)
	r.Use(requestinfo.Enrich)

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})

	for _, c := range component.All() {
		if in, ok := c.(component.Initializer); ok {
			if err := in.Init(cfg); err != nil {
				return nil, fmt.Errorf("server: init component %s: %w", c.Name(), err)
			}
		}
		r.Mount("/", c.Routes())
		zap.S().Debugw("component mounted", "component", c.Name())
	}
	return r, nil
}

// forceHTTPS reads the live config so a reload toggles the redirect.
func forceHTTPS() bool {
	if cfg := config.Get(); cfg != nil {
		return cfg.HTTP.ForceHTTPS
	}
	return false
}
