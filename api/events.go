package api

import (
	"context"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/warp/swap-engine/event"
)

// logSink writes every committed event to the service log.
type logSink struct {
	log *zap.Logger
}

func (s logSink) Publish(_ context.Context, events []event.Envelope) {
	for _, e := range events {
		s.log.Info("event",
			zap.String("kind", e.Kind),
			zap.String("id", e.ID.String()),
			zap.Any("payload", e.Event),
		)
	}
}

// ListEvents returns retained events with a sequence number above ?after=.
// GET /api/events
func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	var after uint64
	if raw := r.URL.Query().Get("after"); raw != "" {
		n, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid after parameter", err)
			return
		}
		after = n
	}

	envelopes := h.events.Events(after)
	dtos := make([]EventDTO, len(envelopes))
	for i, e := range envelopes {
		dtos[i] = EventDTO{
			ID:         e.ID.String(),
			Seq:        e.Seq,
			Kind:       e.Kind,
			OccurredAt: e.OccurredAt,
			Payload:    e.Event,
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}
