// cmd/contactform/serve.go
//
// serve – HTTP entry point.
//
// Start-up
// --------
//
//  1. Load config (.env → global.yaml → CONTACT_* env).
//  2. Start the rotating file logger (tees to console in a TTY).
//  3. Apply runtime settings: log level, CSRF protection, GeoIP reader.
//  4. Build the root router; components register their forms in Init.
//  5. Run the server and the config watcher under one errgroup; each reload
//     reapplies step 3 and flushes component caches.
//  6. On SIGINT/SIGTERM, shut down gracefully within ShutdownTimeout.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/yanizio/contactform/internal/component"
	"github.com/yanizio/contactform/internal/config"
	"github.com/yanizio/contactform/internal/form"
	"github.com/yanizio/contactform/internal/logger"
	"github.com/yanizio/contactform/internal/requestinfo"
	"github.com/yanizio/contactform/internal/server"
)

var serveCmd = &cobra.Command{
	Use:     "serve",
	Aliases: []string{"s"},
	Short:   "Run the contact form HTTP server",
	RunE:    runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log, err := logger.New(cfg.Paths.Root, logger.Options{
		Level:   cfg.Log.Level,
		Console: cfg.Log.Console || runningInTTY(),
	})
	if err != nil {
		return fmt.Errorf("start logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	var rt runtimeSettings
	rt.apply(cfg)

	handler, err := server.Router(cfg)
	if err != nil {
		return err
	}
	srv := server.New(cfg.HTTP.ListenAddr, handler)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Infow("listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		// A missing conf dir only disables hot reload.
		if err := config.Watch(gctx, rt.reload); err != nil {
			log.Warnw("config watcher disabled", "err", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Infow("shutting down", "timeout", server.ShutdownTimeout)
		sctx, cancel := context.WithTimeout(context.Background(), server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(sctx)
	})

	return g.Wait()
}

// runtimeSettings applies the parts of Config that can change while the
// server runs.
type runtimeSettings struct {
	mu      sync.Mutex
	form    *config.Form
	geoPath string
	geoInit bool
}

// reload applies cfg, then lets components drop what they derived from the
// previous config.
func (rt *runtimeSettings) reload(cfg *config.Config) {
	rt.apply(cfg)
	component.ReloadAll(cfg)
}

func (rt *runtimeSettings) apply(cfg *config.Config) {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	if err := logger.SetLevel(cfg.Log.Level); err != nil {
		zap.S().Warnw("log level not applied", "level", cfg.Log.Level, "err", err)
	}

	// An unchanged section keeps the current key, which may be ephemeral.
	if rt.form == nil || *rt.form != cfg.Form {
		form.Configure(form.Protection{
			Key:     form.DecodeKey(cfg.Form.CSRFKey),
			MaxAge:  cfg.Form.TokenMaxAge,
			MinFill: cfg.Form.MinFillTime,
		})
		fc := cfg.Form
		rt.form = &fc
	}

	// Reopen the GeoIP reader only when the path changes; closing a reader
	// unmaps memory that in-flight lookups may still read.
	if !rt.geoInit || cfg.GeoIP.CityDB != rt.geoPath {
		if err := requestinfo.InitGeo(cfg.GeoIP.CityDB); err != nil {
			zap.S().Warnw("geoip disabled", "err", err)
		} else {
			rt.geoPath, rt.geoInit = cfg.GeoIP.CityDB, true
		}
	}
}
