// Package metrics holds the business counters of the account service.
// HTTP RED metrics live in the transport middleware.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "account_service"

var (
	RegistrationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "registrations_total",
		Help:      "Pending records created by registration",
	})

	VerificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "verifications_total",
		Help:      "Verification attempts by outcome",
	}, []string{"status"}) // verified, invalid_code

	LoginAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "login_attempts_total",
		Help:      "Login attempts by outcome",
	}, []string{"status"}) // success, unknown_email, bad_password, not_verified, demo

	PasswordChangesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "password_changes_total",
		Help:      "Password change attempts by outcome",
	}, []string{"status"})

	DemoAccountsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "demo_accounts_total",
		Help:      "Demo account lifecycle events",
	}, []string{"action"}) // created, deleted

	HumanVerificationFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "human_verification_failures_total",
		Help:      "Failed anti-bot checks",
	}, []string{"reason"}) // rejected, error

	EmailDispatchFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "email_dispatch_failures_total",
		Help:      "Verification emails that could not be handed off",
	})
)

// Observe maps a service audit action onto the counters above.
// Unknown actions are ignored.
func Observe(action string, fields map[string]string) {
	switch action {
	case "registered":
		RegistrationsTotal.Inc()
	case "verified":
		VerificationsTotal.WithLabelValues("verified").Inc()
	case "verification_failed":
		VerificationsTotal.WithLabelValues("invalid_code").Inc()
	case "login_succeeded":
		LoginAttemptsTotal.WithLabelValues("success").Inc()
	case "login_failed":
		reason := fields["reason"]
		if reason == "" {
			reason = "unknown"
		}
		LoginAttemptsTotal.WithLabelValues(reason).Inc()
	case "password_changed":
		PasswordChangesTotal.WithLabelValues("success").Inc()
	case "password_change_failed":
		PasswordChangesTotal.WithLabelValues("invalid_credentials").Inc()
	case "demo_created":
		DemoAccountsTotal.WithLabelValues("created").Inc()
	case "demo_deleted":
		DemoAccountsTotal.WithLabelValues("deleted").Inc()
	case "human_verification_rejected":
		HumanVerificationFailuresTotal.WithLabelValues("rejected").Inc()
	case "human_verification_error":
		HumanVerificationFailuresTotal.WithLabelValues("error").Inc()
	case "email_dispatch_failed":
		EmailDispatchFailuresTotal.Inc()
	}
}
