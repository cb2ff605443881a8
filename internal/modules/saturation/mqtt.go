package saturation

import (
	"context"
	"log/slog"

	"satquery/internal/config"
	"satquery/internal/logging"
	"satquery/internal/metrics"
	"satquery/internal/modules/saturation/service"
	"satquery/internal/mqtt"
)

// NewMQTTResponder answers /sat queries published on the request topic.
func NewMQTTResponder(cfg config.Config, logger *slog.Logger, m *metrics.Metrics, svc service.SaturationService) (*mqtt.Responder, error) {
	if logger == nil {
		logger = slog.Default()
	}
	handlerLogger := logger.With("component", "mqtt", "topic", cfg.MQTTRequestTopic)
	return mqtt.NewResponder(cfg, logger, m, func(ctx context.Context, payload []byte) []byte {
		return svc.HandleMessage(logging.WithLogger(ctx, handlerLogger), payload)
	})
}
