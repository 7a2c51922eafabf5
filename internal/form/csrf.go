// internal/form/csrf.go
//
// Forms subsystem: stateless CSRF tokens and render-timing checks.
//
// Context
//   Rendered forms embed a hidden `csrf_token` and a `render_ts`.  The server
//   verifies both on POST so a submission must come from a form it rendered,
//   and must not arrive suspiciously fast or long after render.  The token
//   is stateless:
//
//      base64url( nonce | unixMicro | HMAC_SHA256(secret, nonce+unixMicro) )
//
//   •  nonce – 16 random bytes.
//   •  unixMicro – microseconds since Unix epoch, 8 bytes, big-endian.
//   •  HMAC – keyed with the configured secret.
//
//   No server-side sessions are required, so any instance can verify any
//   token.
//
// Workflow
//   •  Configure(Protection) installs key and windows (config load/reload).
//   •  GenerateToken()   → token string for the renderer.
//   •  VerifyToken(tok) → constant-time verify; false on any failure.
//   •  CheckRequest(v)  → form-level ErrorField or nil.
//
//------------------------------------------------------------------------------

package form

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"net/url"
	"strconv"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Hidden input names written by the renderer.
const (
	FieldCSRF     = "_csrf_token"
	FieldRenderTS = "_render_ts"
)

const (
	tokenBytes    = 16 + 8 + sha256.Size // nonce + ts + sig
	defaultMaxAge = 2 * time.Hour
	minKeyBytes   = 32
)

// Protection configures token signing and timing windows.
type Protection struct {
	Key     []byte        // HMAC secret, ≥ 32 bytes.  Random when shorter.
	MaxAge  time.Duration // token and form validity window
	MinFill time.Duration // reject submits faster than this; 0 disables
}

var current atomic.Pointer[Protection]

// Configure installs p for all later token operations.
func Configure(p Protection) {
	if len(p.Key) < minKeyBytes {
		p.Key = randomKey()
		zap.S().Warnw("csrf key missing or short, using an ephemeral random key")
	}
	if p.MaxAge <= 0 {
		p.MaxAge = defaultMaxAge
	}
	current.Store(&p)
}

// protection returns the active settings, generating an ephemeral key on
// first use when Configure was never called.
func protection() *Protection {
	if p := current.Load(); p != nil {
		return p
	}
	p := &Protection{Key: randomKey(), MaxAge: defaultMaxAge}
	if current.CompareAndSwap(nil, p) {
		return p
	}
	return current.Load()
}

// DecodeKey parses a base64url (raw or padded) key from configuration.
func DecodeKey(s string) []byte {
	if s == "" {
		return nil
	}
	if b, err := base64.RawURLEncoding.DecodeString(s); err == nil {
		return b
	}
	if b, err := base64.URLEncoding.DecodeString(s); err == nil {
		return b
	}
	return nil
}

// GenerateToken creates a new CSRF token.  Call once per form render.
func GenerateToken() (string, error) {
	p := protection()

	nonce := make([]byte, 16)
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}

	ts := make([]byte, 8)
	binary.BigEndian.PutUint64(ts, uint64(time.Now().UnixMicro()))

	buf := make([]byte, 0, tokenBytes)
	buf = append(buf, nonce...)
	buf = append(buf, ts...)
	buf = append(buf, sign(p.Key, nonce, ts)...)

	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// VerifyToken returns true if tok passes HMAC and age checks.
func VerifyToken(tok string) bool {
	p := protection()

	raw, err := base64.RawURLEncoding.DecodeString(tok)
	if err != nil || len(raw) != tokenBytes {
		return false
	}

	nonce := raw[:16]
	tsBytes := raw[16:24]
	sig := raw[24:]

	issued := time.UnixMicro(int64(binary.BigEndian.Uint64(tsBytes)))
	if time.Since(issued) > p.MaxAge || time.Until(issued) > time.Minute {
		// Older than MaxAge, or from the future beyond clock skew.
		return false
	}

	return hmac.Equal(sig, sign(p.Key, nonce, tsBytes))
}

// CheckRequest runs the form-level checks on posted values: CSRF token, then
// render timestamp.  It returns nil when both pass.
func CheckRequest(posted url.Values) *ErrorField {
	if tok := posted.Get(FieldCSRF); tok == "" || !VerifyToken(tok) {
		return &ErrorField{Message: "Security token invalid.  Please refresh and try again."}
	}
	if msg := checkTiming(posted.Get(FieldRenderTS)); msg != "" {
		return &ErrorField{Message: msg}
	}
	return nil
}

// checkTiming ensures the form was not submitted suspiciously fast or too
// late.  Returns empty string on success, user-visible message on failure.
func checkTiming(tsRaw string) string {
	if tsRaw == "" {
		return "Timestamp missing.  Please reload the page."
	}
	ts, err := strconv.ParseInt(tsRaw, 10, 64)
	if err != nil {
		return "Bad timestamp.  Please retry."
	}
	p := protection()
	delta := time.Since(time.UnixMicro(ts))
	switch {
	case p.MinFill > 0 && delta < p.MinFill:
		return "Form submitted too quickly.  Please enter the fields manually."
	case delta > p.MaxAge:
		return "Form expired.  Please reload and submit again."
	default:
		return ""
	}
}

func sign(key, nonce, ts []byte) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write(nonce)
	mac.Write(ts)
	return mac.Sum(nil)
}

func randomKey() []byte {
	k := make([]byte, minKeyBytes)
	_, _ = rand.Read(k)
	return k
}
