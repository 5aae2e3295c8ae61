// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ldapgate Contributors

package auth

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Result labels for auth metrics.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
	ResultGuest   = "guest"
	ResultError   = "error"
)

// LoginAttempts counts login attempts by result.
// Use RegisterMetrics to register this with a Prometheus registry.
var LoginAttempts = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "ldapgate_login_attempts_total",
		Help: "Total number of login attempts",
	},
	[]string{"result"},
)

// SessionChecks counts session validity checks by result.
// Use RegisterMetrics to register this with a Prometheus registry.
var SessionChecks = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "ldapgate_session_checks_total",
		Help: "Total number of session validity checks",
	},
	[]string{"result"},
)

// Logouts counts logouts.
// Use RegisterMetrics to register this with a Prometheus registry.
var Logouts = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "ldapgate_logouts_total",
		Help: "Total number of logouts",
	},
)

// RegisterMetrics registers auth package metrics with the given Prometheus
// registry. Call once at startup to expose them on /metrics.
// Panics if registration fails (following prometheus convention).
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(LoginAttempts)
	reg.MustRegister(SessionChecks)
	reg.MustRegister(Logouts)
}

func recordLoginAttempt(result string) {
	LoginAttempts.WithLabelValues(result).Inc()
}

func recordSessionCheck(result string) {
	SessionChecks.WithLabelValues(result).Inc()
}

func recordLogout() {
	Logouts.Inc()
}
