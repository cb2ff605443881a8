package httpapi

import (
	"log/slog"
	"net/http"
	"time"

	"satquery/internal/config"
	"satquery/internal/metrics"
)

func NewServer(cfg config.Config, mux *http.ServeMux, logger *slog.Logger, m *metrics.Metrics) *http.Server {
	return &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           Handler(cfg, mux, logger, m),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
		ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelWarn),
	}
}

// Handler wraps mux with the middleware chain, outermost first: request
// logging, then CORS.
func Handler(cfg config.Config, mux *http.ServeMux, logger *slog.Logger, m *metrics.Metrics) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return requestLogger(logger, m, cors(cfg.CORSAllowedOrigins, mux))
}
