package api

import (
	"github.com/smazurov/rpirtspd/internal/metrics/exporters"
)

// registerMetricsRoutes mounts the Prometheus scrape endpoint. It bypasses
// huma, so neither auth nor request logging applies.
func (s *Server) registerMetricsRoutes() {
	handler := s.options.PrometheusHandler
	if handler == nil {
		handler = exporters.HTTPHandler(s.logger)
	}
	s.mux.Handle("GET /metrics", handler)
}
