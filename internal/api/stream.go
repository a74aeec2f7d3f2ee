package api

import (
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/starfederation/datastar-go/datastar"

	"scale-dashboard/internal/nodes"
)

// nodeHealthSignals is the signal patch sent to datastar clients.
type nodeHealthSignals struct {
	NodeHealth nodes.Summary `json:"nodeHealth"`
}

/* ---------------- GET /api/nodes/health/stream ---------------- */

// StreamNodeHealth patches the current summary into the client's signals
// and again after every publish, until the client disconnects.
func (h *Handler) StreamNodeHealth(w http.ResponseWriter, r *http.Request) {
	sse := datastar.NewSSE(w, r)

	updates := h.nodes.Subscribe()
	defer h.nodes.Unsubscribe(updates)

	if err := sse.MarshalAndPatchSignals(nodeHealthSignals{NodeHealth: h.nodes.Snapshot()}); err != nil {
		return
	}

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-updates:
			if err := sse.MarshalAndPatchSignals(nodeHealthSignals{NodeHealth: h.nodes.Snapshot()}); err != nil {
				h.logger.Warn("node health stream write failed", "error", err, "request_id", middleware.GetReqID(ctx))
				return
			}
		}
	}
}
