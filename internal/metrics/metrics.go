// Package metrics holds Prometheus instruments that are used across the
// service.  All collectors are registered with the global registry, so
// importing this package is enough to expose them on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	FormSubmissionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contact_form_submissions_total",
			Help: "Submit attempts by form and result (accepted, rejected, refused).",
		}, []string{"form", "result"})

	FormValidationErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contact_form_validation_errors_total",
			Help: "Field errors that blocked a submit, by form and field.",
		}, []string{"form", "field"})

	FormFieldsFilledTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contact_form_fields_filled_total",
			Help: "Accepted submissions carrying a non-empty value, by form and field.",
		}, []string{"form", "field"})

	LiveSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "contact_form_live_sessions",
			Help: "Number of open live-validation websocket sessions.",
		})

	ConfigReloadTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contact_config_reloads_total",
			Help: "Configuration reload attempts by result.",
		}, []string{"result"})
)

func init() {
	prometheus.MustRegister(
		FormSubmissionsTotal,
		FormValidationErrorsTotal,
		FormFieldsFilledTotal,
		LiveSessions,
		ConfigReloadTotal,
	)
}
