package app

import (
	"log/slog"
	"os"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/components/metrics"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	TestEnvironmentFlag  = "APP_ENV"
	TestEnvironmentValue = "test"
)

// NewRouter builds the watermill router shared by the module routers. Router
// metrics are registered on registry unless running under APP_ENV=test.
func NewRouter(logger *slog.Logger, registry *prometheus.Registry) (*message.Router, error) {
	watermillLogger := watermill.NewSlogLogger(logger)

	router, err := message.NewRouter(message.RouterConfig{CloseTimeout: 30 * time.Second}, watermillLogger)
	if err != nil {
		return nil, err
	}

	if registry != nil && os.Getenv(TestEnvironmentFlag) != TestEnvironmentValue {
		logger.Info("Adding Prometheus router metrics middleware")
		builder := metrics.NewPrometheusMetricsBuilder(registry, "ctf", "")
		builder.AddPrometheusRouterMetrics(router)
	} else {
		logger.Info("Skipping Prometheus router metrics middleware")
	}

	router.AddMiddleware(
		middleware.CorrelationID,
		middleware.Recoverer,
		middleware.Retry{
			MaxRetries:      3,
			InitialInterval: 100 * time.Millisecond,
			Multiplier:      2,
			Logger:          watermillLogger,
		}.Middleware,
	)
	return router, nil
}
