package form

import (
	"bytes"
	"encoding/base64"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// withProtection installs p for the duration of the test.
func withProtection(t *testing.T, p Protection) {
	t.Helper()
	prev := current.Load()
	Configure(p)
	t.Cleanup(func() { current.Store(prev) })
}

func testKey() []byte { return bytes.Repeat([]byte{7}, 32) }

func TestTokenRoundTrip(t *testing.T) {
	withProtection(t, Protection{Key: testKey()})

	tok, err := GenerateToken()
	require.NoError(t, err)
	assert.True(t, VerifyToken(tok))

	other, err := GenerateToken()
	require.NoError(t, err)
	assert.NotEqual(t, tok, other, "nonce makes every token unique")
}

func TestTokenRejects(t *testing.T) {
	withProtection(t, Protection{Key: testKey()})
	tok, err := GenerateToken()
	require.NoError(t, err)

	raw, err := base64.RawURLEncoding.DecodeString(tok)
	require.NoError(t, err)
	raw[len(raw)-1] ^= 0xff
	tampered := base64.RawURLEncoding.EncodeToString(raw)

	assert.False(t, VerifyToken(""))
	assert.False(t, VerifyToken("not base64!"))
	assert.False(t, VerifyToken(tok[:10]))
	assert.False(t, VerifyToken(tampered))

	// A key rotation invalidates earlier tokens.
	Configure(Protection{Key: bytes.Repeat([]byte{9}, 32)})
	assert.False(t, VerifyToken(tok))
}

func TestConfigureDefaults(t *testing.T) {
	withProtection(t, Protection{Key: []byte("short")})

	p := protection()
	assert.Len(t, p.Key, minKeyBytes)
	assert.NotEqual(t, []byte("short"), p.Key)
	assert.Equal(t, defaultMaxAge, p.MaxAge)
}

func TestDecodeKey(t *testing.T) {
	key := testKey()
	assert.Equal(t, key, DecodeKey(base64.RawURLEncoding.EncodeToString(key)))
	assert.Equal(t, key, DecodeKey(base64.URLEncoding.EncodeToString(key)))
	assert.Nil(t, DecodeKey(""))
	assert.Nil(t, DecodeKey("%%%"))
}

func renderTS(age time.Duration) string {
	return strconv.FormatInt(time.Now().Add(-age).UnixMicro(), 10)
}

func TestCheckRequest(t *testing.T) {
	withProtection(t, Protection{Key: testKey(), MaxAge: time.Hour, MinFill: 2 * time.Second})
	tok, err := GenerateToken()
	require.NoError(t, err)

	cases := []struct {
		name   string
		posted url.Values
		want   string
	}{
		{"ok", url.Values{FieldCSRF: {tok}, FieldRenderTS: {renderTS(5 * time.Second)}}, ""},
		{"no token", url.Values{FieldRenderTS: {renderTS(5 * time.Second)}}, "Security token invalid.  Please refresh and try again."},
		{"bad token", url.Values{FieldCSRF: {"junk"}, FieldRenderTS: {renderTS(5 * time.Second)}}, "Security token invalid.  Please refresh and try again."},
		{"no timestamp", url.Values{FieldCSRF: {tok}}, "Timestamp missing.  Please reload the page."},
		{"bad timestamp", url.Values{FieldCSRF: {tok}, FieldRenderTS: {"yesterday"}}, "Bad timestamp.  Please retry."},
		{"too fast", url.Values{FieldCSRF: {tok}, FieldRenderTS: {renderTS(0)}}, "Form submitted too quickly.  Please enter the fields manually."},
		{"expired", url.Values{FieldCSRF: {tok}, FieldRenderTS: {renderTS(2 * time.Hour)}}, "Form expired.  Please reload and submit again."},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fe := CheckRequest(tc.posted)
			if tc.want == "" {
				assert.Nil(t, fe)
				return
			}
			require.NotNil(t, fe)
			assert.Equal(t, "", fe.Name, "form-level error")
			assert.Equal(t, tc.want, fe.Message)
		})
	}
}

func TestCheckRequestMinFillDisabled(t *testing.T) {
	withProtection(t, Protection{Key: testKey()})
	tok, err := GenerateToken()
	require.NoError(t, err)

	assert.Nil(t, CheckRequest(url.Values{FieldCSRF: {tok}, FieldRenderTS: {renderTS(0)}}))
}
