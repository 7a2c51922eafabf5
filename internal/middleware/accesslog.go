// internal/middleware/accesslog.go
//
// Access-log middleware.  Each request gets a request-scoped child of the
// global zap logger (tagged with chi's request ID) stored in the context,
// and one INFO line on completion with method, path, status, bytes, and
// duration.  Must run after chi's RequestID middleware.

package middleware

import (
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/yanizio/contactform/internal/logger"
)

// AccessLog logs one line per request and exposes the request logger via
// logger.FromContext.
func AccessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		log := zap.S().With("req_id", chimw.GetReqID(r.Context()))

		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r.WithContext(logger.WithContext(r.Context(), log)))

		log.Infow("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
		)
	})
}
