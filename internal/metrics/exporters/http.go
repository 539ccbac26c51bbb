// Package exporters serves the collected metrics to scrapers.
package exporters

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ScrapeTimeout bounds a single /metrics request.
const ScrapeTimeout = 5 * time.Second

// HTTPHandler serves every promauto metric in the text or OpenMetrics
// format. Gather errors are logged to logger and the remaining metrics are
// still served.
func HTTPHandler(logger *slog.Logger) http.Handler {
	return Handler(prometheus.DefaultRegisterer, prometheus.DefaultGatherer, logger)
}

// Handler is HTTPHandler for an explicit registry. Scrape counts are
// registered on reg.
func Handler(reg prometheus.Registerer, g prometheus.Gatherer, logger *slog.Logger) http.Handler {
	opts := promhttp.HandlerOpts{
		ErrorHandling:       promhttp.ContinueOnError,
		EnableOpenMetrics:   true,
		MaxRequestsInFlight: 2,
		Timeout:             ScrapeTimeout,
	}
	if logger != nil {
		opts.ErrorLog = slog.NewLogLogger(logger.Handler(), slog.LevelWarn)
	}
	return promhttp.InstrumentMetricHandler(reg, promhttp.HandlerFor(g, opts))
}
