package service

import (
	"context"
	"encoding/json"
	"net/http"

	"satquery/internal/logging"
	"satquery/internal/modules/saturation/types"
)

// HandleMessage decodes a /sat request body from payload, evaluates it and
// returns the JSON Reply. The correlation id is echoed even when the payload
// fails validation, as long as it is readable.
func (s *saturationServiceImpl) HandleMessage(ctx context.Context, payload []byte) []byte {
	logger := logging.FromContext(ctx)

	req, err := DecodeRequest(payload)
	if err != nil {
		var probe struct {
			CorrelationID string `json:"correlation_id"`
		}
		_ = json.Unmarshal(payload, &probe)
		logger.Debug("mqtt request rejected", "correlation_id", probe.CorrelationID, "error", err)
		return marshalReply(errorReply(probe.CorrelationID, err))
	}

	resp, err := s.Query(ctx, req)
	if err != nil {
		logger.Debug("mqtt query failed", "correlation_id", req.CorrelationID, "species", req.Species, "error", err)
		return marshalReply(errorReply(req.CorrelationID, err))
	}

	logger.Debug("mqtt query answered", "correlation_id", req.CorrelationID, "species", req.Species)
	return marshalReply(types.Reply{
		CorrelationID: req.CorrelationID,
		Status:        http.StatusOK,
		Result:        &resp,
	})
}

func errorReply(correlationID string, err error) types.Reply {
	status := StatusFor(err)
	return types.Reply{
		CorrelationID: correlationID,
		Status:        status,
		Error:         http.StatusText(status),
		Message:       err.Error(),
	}
}

func marshalReply(r types.Reply) []byte {
	b, err := json.Marshal(r)
	if err != nil {
		b, _ = json.Marshal(types.Reply{
			CorrelationID: r.CorrelationID,
			Status:        http.StatusInternalServerError,
			Error:         http.StatusText(http.StatusInternalServerError),
			Message:       "failed to encode reply",
		})
	}
	return b
}
