package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus collectors for auth operations.
type Metrics struct {
	Logins           *prometheus.CounterVec
	LoginFailures    *prometheus.CounterVec
	Logouts          prometheus.Counter
	TokensIssued     prometheus.Counter
	TokensRevoked    prometheus.Counter
	AuthRejections   *prometheus.CounterVec
	PasswordResets   prometheus.Counter
	LoginDurationMs  prometheus.Histogram
	RevocationErrors prometheus.Counter
}

// New registers and returns auth metrics collectors.
func New() *Metrics {
	return &Metrics{
		Logins: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "vras_logins_total",
			Help: "Total number of successful logins",
		}, []string{"kind"}),
		LoginFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "vras_login_failures_total",
			Help: "Total number of failed login attempts",
		}, []string{"kind", "reason"}),
		Logouts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "vras_logouts_total",
			Help: "Total number of logouts",
		}),
		TokensIssued: promauto.NewCounter(prometheus.CounterOpts{
			Name: "vras_tokens_issued_total",
			Help: "Total number of session tokens issued",
		}),
		TokensRevoked: promauto.NewCounter(prometheus.CounterOpts{
			Name: "vras_tokens_revoked_total",
			Help: "Total number of session tokens revoked",
		}),
		AuthRejections: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "vras_auth_rejections_total",
			Help: "Total number of requests rejected by the auth middleware",
		}, []string{"reason"}),
		PasswordResets: promauto.NewCounter(prometheus.CounterOpts{
			Name: "vras_password_resets_total",
			Help: "Total number of completed password resets",
		}),
		LoginDurationMs: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "vras_login_duration_ms",
			Help:    "Duration of login operations in milliseconds",
			Buckets: []float64{10, 50, 100, 250, 500, 1000, 2500},
		}),
		RevocationErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "vras_revocation_errors_total",
			Help: "Total number of revocation list write failures",
		}),
	}
}

func (m *Metrics) IncrementLogins(kind string) {
	m.Logins.WithLabelValues(kind).Inc()
}

func (m *Metrics) IncrementLoginFailures(kind, reason string) {
	m.LoginFailures.WithLabelValues(kind, reason).Inc()
}

func (m *Metrics) IncrementLogouts() {
	m.Logouts.Inc()
}

func (m *Metrics) IncrementTokensIssued() {
	m.TokensIssued.Inc()
}

func (m *Metrics) IncrementTokensRevoked() {
	m.TokensRevoked.Inc()
}

func (m *Metrics) IncrementAuthRejections(reason string) {
	m.AuthRejections.WithLabelValues(reason).Inc()
}

func (m *Metrics) IncrementPasswordResets() {
	m.PasswordResets.Inc()
}

func (m *Metrics) ObserveLoginDuration(durationMs float64) {
	m.LoginDurationMs.Observe(durationMs)
}

func (m *Metrics) IncrementRevocationErrors() {
	m.RevocationErrors.Inc()
}
