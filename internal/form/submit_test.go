package form

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/yanizio/contactform/internal/logger"
	"github.com/yanizio/contactform/internal/metrics"
	"github.com/yanizio/contactform/internal/requestinfo"
)

// postRequest builds a form POST carrying a valid token and timestamp.
func postRequest(t *testing.T, vals url.Values) *http.Request {
	t.Helper()
	tok, err := GenerateToken()
	require.NoError(t, err)
	vals.Set(FieldCSRF, tok)
	vals.Set(FieldRenderTS, strconv.FormatInt(time.Now().Add(-5*time.Second).UnixMicro(), 10))

	r := httptest.NewRequest(http.MethodPost, "/contact", strings.NewReader(vals.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return r
}

// observed returns a context whose logger records into the returned logs.
func observed() (context.Context, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return logger.WithContext(context.Background(), zap.New(core).Sugar()), logs
}

func counter(formID, result string) float64 {
	return testutil.ToFloat64(metrics.FormSubmissionsTotal.WithLabelValues(formID, result))
}

func TestHandleSubmitUnknownForm(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/x", nil)
	s, _, err := HandleSubmit("nope/nope", r)
	require.Error(t, err)
	assert.False(t, IsValidationError(err))
	assert.Nil(t, s)
}

func TestHandleSubmitRefusesMissingToken(t *testing.T) {
	withProtection(t, Protection{Key: testKey()})
	fd := registerContact(t)
	before := counter(fd.ID, "refused")

	body := url.Values{"firstName": {"Jack"}}
	r := httptest.NewRequest(http.MethodPost, "/contact", strings.NewReader(body.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	s, _, err := HandleSubmit(fd.ID, r)
	require.Error(t, err)
	require.True(t, IsValidationError(err))
	fe := FieldErrors(err)
	require.Len(t, fe, 1)
	assert.Equal(t, "", fe[0].Name)
	assert.Equal(t, "Jack", s.Value("firstName"), "posted values are kept for re-render")
	assert.Equal(t, before+1, counter(fd.ID, "refused"))
}

func TestHandleSubmitRejectsInvalid(t *testing.T) {
	withProtection(t, Protection{Key: testKey()})
	fd := registerContact(t)
	before := counter(fd.ID, "rejected")
	emailBefore := testutil.ToFloat64(metrics.FormValidationErrorsTotal.WithLabelValues(fd.ID, "email"))

	s, _, err := HandleSubmit(fd.ID, postRequest(t, url.Values{}))
	require.Error(t, err)
	assert.Len(t, FieldErrors(err), 3)
	assert.Len(t, s.Errors(), 3)
	assert.Equal(t, before+1, counter(fd.ID, "rejected"))
	assert.Equal(t, emailBefore+1,
		testutil.ToFloat64(metrics.FormValidationErrorsTotal.WithLabelValues(fd.ID, "email")))
}

func TestHandleSubmitAccepts(t *testing.T) {
	withProtection(t, Protection{Key: testKey()})
	fd := registerContact(t)
	before := counter(fd.ID, "accepted")
	filledBefore := testutil.ToFloat64(metrics.FormFieldsFilledTotal.WithLabelValues(fd.ID, "email"))

	s, sub, err := HandleSubmit(fd.ID, postRequest(t, url.Values{
		"firstName": {"Jack"},
		"lastName":  {"Nunnink"},
		"email":     {"asdf@asdf.com"},
	}))
	require.NoError(t, err)
	assert.Equal(t, "Nunnink", sub.Get("lastName"))
	assert.Equal(t, "", s.Value("lastName"), "inputs cleared after submit")
	assert.Equal(t, before+1, counter(fd.ID, "accepted"))
	assert.Equal(t, filledBefore+1,
		testutil.ToFloat64(metrics.FormFieldsFilledTotal.WithLabelValues(fd.ID, "email")))
}

func TestStateFromPostTouchedOnly(t *testing.T) {
	fd := contactDef(t)
	s := StateFromPost(fd, url.Values{
		"firstName":  {"J"},
		"email":      {"jack"},
		FieldTouched: {"firstName", "bogus"},
	})

	assert.Equal(t, "jack", s.Value("email"))
	assert.True(t, s.Touched("firstName"))
	assert.False(t, s.Touched("email"))
	assert.Equal(t, []string{"firstName must have at least 3 characters"}, s.Errors().Messages())
	assert.Len(t, s.AllErrors(), 3)
}

func TestExecuteActionsLog(t *testing.T) {
	fd := contactDef(t)
	s := NewState(fd)
	require.NoError(t, s.Set("firstName", "Jack"))
	require.NoError(t, s.Set("lastName", "Nunnink"))
	require.NoError(t, s.Set("email", "asdf@asdf.com"))
	sub, err := s.Submit()
	require.NoError(t, err)

	ctx, logs := observed()
	ctx = requestinfo.NewContext(ctx, &requestinfo.RequestInfo{
		UA:  requestinfo.UA{Browser: "Firefox", Device: "Computer"},
		Geo: requestinfo.Geo{IP: net.ParseIP("203.0.113.7"), CountryISO: "NZ"},
	})

	ExecuteActions(ctx, fd, sub)

	entries := logs.FilterMessage("form submission").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	assert.Equal(t, "contact/contact", fields["form"])
	assert.Equal(t, "NZ", fields["country"])
	assert.Equal(t, "Firefox", fields["browser"])
	assert.Equal(t, "203.0.113.7", fields["ip"])
}

func TestExecuteActionsReportsBadParams(t *testing.T) {
	fd, err := ParseFormDef([]byte(`
id: test/actions
fields:
  - {name: x, label: X, type: text}
actions:
  - type: log
    level: loud
  - type: metrics
    fields: [y]
  - type: webhook
`), "inline")
	require.NoError(t, err)

	ctx, logs := observed()
	ExecuteActions(ctx, fd, Submission{FormID: fd.ID, values: Values{"x": "1"}})

	assert.Equal(t, 2, logs.FilterMessage("form action failed").Len())
	assert.Equal(t, 1, logs.FilterMessage("form action warning").Len())
	assert.Equal(t, 0, logs.FilterMessage("form submission").Len())
}

func TestFieldList(t *testing.T) {
	fd := contactDef(t)

	all, err := fieldList(fd, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"firstName", "lastName", "email", "message"}, all)

	some, err := fieldList(fd, map[string]any{"fields": []any{"email"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"email"}, some)

	_, err = fieldList(fd, map[string]any{"fields": "email"})
	assert.Error(t, err)
	_, err = fieldList(fd, map[string]any{"fields": []any{1}})
	assert.Error(t, err)
}
