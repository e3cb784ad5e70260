package observability

import (
	"context"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics records operation and domain measurements for every module.
type Metrics interface {
	RecordOperationAttempt(ctx context.Context, operation, service string)
	RecordOperationSuccess(ctx context.Context, operation, service string)
	RecordOperationFailure(ctx context.Context, operation, service string)
	RecordOperationDuration(ctx context.Context, operation, service string, duration time.Duration)

	RecordGuess(ctx context.Context, correct, evaluation bool)
	RecordBudgetConsumed(ctx context.Context, provider string, amount float64)
	RecordBudgetRejected(ctx context.Context, provider string)
	RecordSubmissionSkipped(ctx context.Context, reason string)
	RecordLeaderboardSource(ctx context.Context, source string)
}

// PrometheusMetrics implements Metrics on a prometheus registry.
type PrometheusMetrics struct {
	attempts       *prometheus.CounterVec
	successes      *prometheus.CounterVec
	failures       *prometheus.CounterVec
	durations      *prometheus.HistogramVec
	guesses        *prometheus.CounterVec
	budgetConsumed *prometheus.CounterVec
	budgetRejected *prometheus.CounterVec
	skipped        *prometheus.CounterVec
	leaderboard    *prometheus.CounterVec
}

var _ Metrics = (*PrometheusMetrics)(nil)

// NewPrometheusMetrics registers the ctf collectors on reg.
func NewPrometheusMetrics(reg prometheus.Registerer) *PrometheusMetrics {
	m := &PrometheusMetrics{
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ctf",
			Name:      "operation_attempts_total",
			Help:      "Service operations started.",
		}, []string{"service", "operation"}),
		successes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ctf",
			Name:      "operation_success_total",
			Help:      "Service operations completed successfully.",
		}, []string{"service", "operation"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ctf",
			Name:      "operation_failures_total",
			Help:      "Service operations that returned an error.",
		}, []string{"service", "operation"}),
		durations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "ctf",
			Name:      "operation_duration_seconds",
			Help:      "Service operation latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"service", "operation"}),
		guesses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ctf",
			Name:      "guesses_total",
			Help:      "Guesses recorded by the ledger.",
		}, []string{"correct", "evaluation"}),
		budgetConsumed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ctf",
			Name:      "budget_consumed_total",
			Help:      "Budget consumed per provider.",
		}, []string{"provider"}),
		budgetRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ctf",
			Name:      "budget_rejected_total",
			Help:      "Consumption attempts rejected for insufficient budget.",
		}, []string{"provider"}),
		skipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ctf",
			Name:      "leaderboard_submissions_skipped_total",
			Help:      "Submissions left out of a leaderboard computation.",
		}, []string{"reason"}),
		leaderboard: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ctf",
			Name:      "leaderboard_reads_total",
			Help:      "Leaderboard reads by source.",
		}, []string{"source"}),
	}

	reg.MustRegister(
		m.attempts, m.successes, m.failures, m.durations,
		m.guesses, m.budgetConsumed, m.budgetRejected, m.skipped, m.leaderboard,
	)
	return m
}

func (m *PrometheusMetrics) RecordOperationAttempt(_ context.Context, operation, service string) {
	m.attempts.WithLabelValues(service, operation).Inc()
}

func (m *PrometheusMetrics) RecordOperationSuccess(_ context.Context, operation, service string) {
	m.successes.WithLabelValues(service, operation).Inc()
}

func (m *PrometheusMetrics) RecordOperationFailure(_ context.Context, operation, service string) {
	m.failures.WithLabelValues(service, operation).Inc()
}

func (m *PrometheusMetrics) RecordOperationDuration(_ context.Context, operation, service string, duration time.Duration) {
	m.durations.WithLabelValues(service, operation).Observe(duration.Seconds())
}

func (m *PrometheusMetrics) RecordGuess(_ context.Context, correct, evaluation bool) {
	m.guesses.WithLabelValues(strconv.FormatBool(correct), strconv.FormatBool(evaluation)).Inc()
}

func (m *PrometheusMetrics) RecordBudgetConsumed(_ context.Context, provider string, amount float64) {
	m.budgetConsumed.WithLabelValues(provider).Add(amount)
}

func (m *PrometheusMetrics) RecordBudgetRejected(_ context.Context, provider string) {
	m.budgetRejected.WithLabelValues(provider).Inc()
}

func (m *PrometheusMetrics) RecordSubmissionSkipped(_ context.Context, reason string) {
	m.skipped.WithLabelValues(reason).Inc()
}

func (m *PrometheusMetrics) RecordLeaderboardSource(_ context.Context, source string) {
	m.leaderboard.WithLabelValues(source).Inc()
}

// NoOpMetrics discards every measurement.
type NoOpMetrics struct{}

var _ Metrics = NoOpMetrics{}

func (NoOpMetrics) RecordOperationAttempt(context.Context, string, string)                 {}
func (NoOpMetrics) RecordOperationSuccess(context.Context, string, string)                 {}
func (NoOpMetrics) RecordOperationFailure(context.Context, string, string)                 {}
func (NoOpMetrics) RecordOperationDuration(context.Context, string, string, time.Duration) {}
func (NoOpMetrics) RecordGuess(context.Context, bool, bool)                                {}
func (NoOpMetrics) RecordBudgetConsumed(context.Context, string, float64)                  {}
func (NoOpMetrics) RecordBudgetRejected(context.Context, string)                           {}
func (NoOpMetrics) RecordSubmissionSkipped(context.Context, string)                        {}
func (NoOpMetrics) RecordLeaderboardSource(context.Context, string)                        {}
