// Package middleware holds small, composable HTTP wrappers.
package middleware

import (
	"net"
	"net/http"
)

// ForceHTTPS wraps h.  When enabled() reports true, the request is plain
// HTTP, and the host is not a loopback name, the wrapper issues a 308
// Permanent Redirect to the HTTPS version of the same URL.  Otherwise it
// calls the next handler unchanged.  enabled is read per request so config
// reloads take effect immediately.
func ForceHTTPS(enabled func() bool, h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Disabled, already HTTPS, or dev host → continue.
		if !enabled() || isHTTPS(r) || isLoopback(stripPort(r.Host)) {
			h.ServeHTTP(w, r)
			return
		}

		target := "https://" + r.Host + r.URL.RequestURI()
		http.Redirect(w, r, target, http.StatusPermanentRedirect)
	})
}

// stripPort removes the :port suffix from Host when present.
func stripPort(h string) string {
	if host, _, err := net.SplitHostPort(h); err == nil {
		return host
	}
	return h
}

// isLoopback reports whether host is localhost or a loopback IP.
func isLoopback(host string) bool {
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
