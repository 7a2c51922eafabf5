// internal/requestinfo/middleware.go
//
// Enrich attaches a *RequestInfo to every page request: parsed User-Agent,
// primary Accept-Language tag, client IP, and GeoLite2 data when a database
// is configured.  Form actions read it to annotate submissions.
//
// Forwarding headers (X-Forwarded-For, X-Real-Ip) are honoured only when
// the TCP peer is a loopback or private address, i.e. a reverse proxy we
// run.  A public peer is the client, whatever headers it sends.
//
// Service endpoints (/metrics, /healthz) and static assets skip the work.
package requestinfo

import (
	"net"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

var skipPrefixes = []string{"/assets/", "/metrics", "/healthz"}

// Enrich wraps next and stores a *RequestInfo in the request context.
func Enrich(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if skip(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		ip := clientIP(r)
		info := &RequestInfo{
			UA:        parseUA(r.UserAgent(), r.Header.Get("Accept-Language")),
			Geo:       lookupGeo(ip),
			URL:       r.URL,
			Timestamp: time.Now().UTC(),
		}
		zap.S().Debugw("request info",
			"ip", ip,
			"country", info.Geo.CountryISO,
			"browser", info.UA.Browser,
			"bot", info.UA.IsBot,
			"path", r.URL.Path,
		)
		next.ServeHTTP(w, r.WithContext(NewContext(r.Context(), info)))
	})
}

func skip(p string) bool {
	for _, pre := range skipPrefixes {
		if strings.HasPrefix(p, pre) {
			return true
		}
	}
	return false
}

// clientIP returns the peer address, or the left-most valid forwarded
// address when the peer is a trusted proxy.  nil when RemoteAddr is junk.
func clientIP(r *http.Request) net.IP {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return nil
	}
	peer := net.ParseIP(host)
	if peer == nil || !(peer.IsLoopback() || peer.IsPrivate()) {
		return peer
	}

	for _, part := range strings.Split(r.Header.Get("X-Forwarded-For"), ",") {
		if ip := net.ParseIP(strings.TrimSpace(part)); ip != nil {
			return ip
		}
	}
	if ip := net.ParseIP(strings.TrimSpace(r.Header.Get("X-Real-Ip"))); ip != nil {
		return ip
	}
	return peer
}
