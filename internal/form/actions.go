// internal/form/actions.go
//
// Forms subsystem: post-submit actions.
//
// Context
//   A FormDef may list actions that run after a valid submit.  Actions stay
//   in-process: the form itself never calls out over the network.
//
//   •  log     – structured record of the submission plus request metadata.
//                Params: `level` (debug|info|warn, default info) and
//                `fields` (list of field names; default all).
//   •  metrics – bumps contact_form_fields_filled_total for every non-empty
//                field, or only those listed under `fields`.
//
//   Errors are logged, never returned, keeping the user flow uninterrupted.
//
//------------------------------------------------------------------------------

package form

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/yanizio/contactform/internal/logger"
	"github.com/yanizio/contactform/internal/metrics"
	"github.com/yanizio/contactform/internal/requestinfo"
)

// ExecuteActions performs all YAML-declared actions for an accepted sub.
func ExecuteActions(ctx context.Context, fd *FormDef, sub Submission) {
	for _, ac := range fd.Actions {
		var err error
		switch ac.Type {
		case "log":
			err = runLog(ctx, fd, ac.Params, sub)
		case "metrics":
			err = runMetrics(fd, ac.Params, sub)
		default:
			logWarn(ctx, fd.ID, ac.Type, "unsupported action")
			continue
		}
		if err != nil {
			logErr(ctx, fd.ID, ac.Type, err)
		}
	}
}

// -----------------------------------------------------------------------------
// Log action
// -----------------------------------------------------------------------------

func runLog(ctx context.Context, fd *FormDef, p map[string]any, sub Submission) error {
	names, err := fieldList(fd, p)
	if err != nil {
		return err
	}

	vals := make(map[string]string, len(names))
	for _, n := range names {
		vals[n] = sub.Get(n)
	}

	kv := []any{
		"form", fd.ID,
		"submitted_at", sub.SubmittedAt,
		"values", vals,
	}
	if ri := requestinfo.FromContext(ctx); ri != nil {
		kv = append(kv,
			"ip", ri.Geo.IP.String(),
			"country", ri.Geo.CountryISO,
			"browser", ri.UA.Browser,
			"device", ri.UA.Device,
			"bot", ri.UA.IsBot,
		)
	}

	log := logger.FromContext(ctx)
	level, _ := p["level"].(string)
	switch level {
	case "debug":
		log.Debugw("form submission", kv...)
	case "", "info":
		log.Infow("form submission", kv...)
	case "warn":
		log.Warnw("form submission", kv...)
	default:
		return fmt.Errorf("log action: unknown level %q", level)
	}
	return nil
}

// -----------------------------------------------------------------------------
// Metrics action
// -----------------------------------------------------------------------------

func runMetrics(fd *FormDef, p map[string]any, sub Submission) error {
	names, err := fieldList(fd, p)
	if err != nil {
		return err
	}
	for _, n := range names {
		if sub.Get(n) != "" {
			metrics.FormFieldsFilledTotal.WithLabelValues(fd.ID, n).Inc()
		}
	}
	return nil
}

// -----------------------------------------------------------------------------
// Helpers
// -----------------------------------------------------------------------------

// fieldList reads the optional `fields` param.  Missing means every field.
func fieldList(fd *FormDef, p map[string]any) ([]string, error) {
	raw, ok := p["fields"]
	if !ok {
		out := make([]string, len(fd.Fields))
		for i, f := range fd.Fields {
			out[i] = f.Name
		}
		return out, nil
	}

	list, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("'fields' must be a list, got %T", raw)
	}
	out := make([]string, 0, len(list))
	for _, e := range list {
		s, ok := e.(string)
		if !ok {
			return nil, fmt.Errorf("'fields' entries must be strings, got %T", e)
		}
		if _, known := fd.Field(s); !known {
			return nil, fmt.Errorf("'fields' names unknown field %q", s)
		}
		out = append(out, s)
	}
	return out, nil
}

func logErr(ctx context.Context, formID, action string, err error) {
	logger.FromContext(ctx).Errorw("form action failed",
		"form", formID, "action", action, zap.Error(err))
}

func logWarn(ctx context.Context, formID, action, msg string) {
	logger.FromContext(ctx).Warnw("form action warning",
		"form", formID, "action", action, "warning", msg)
}
