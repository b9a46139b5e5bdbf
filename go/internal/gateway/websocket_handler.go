package gateway

import (
	"net/http"

	"github.com/rs/zerolog/log"
)

// WebSocketHandler handles WebSocket upgrade requests for pool countdowns
type WebSocketHandler struct {
	connectionManager *ConnectionManager
	app               PoolApp
}

// NewWebSocketHandler creates a new WebSocket handler
func NewWebSocketHandler(cm *ConnectionManager, app PoolApp) *WebSocketHandler {
	return &WebSocketHandler{
		connectionManager: cm,
		app:               app,
	}
}

// HandlePoolConnection handles GET /ws/pool?pool_id=...
func (h *WebSocketHandler) HandlePoolConnection(w http.ResponseWriter, r *http.Request) {
	poolID := r.URL.Query().Get("pool_id")
	if poolID == "" {
		writeError(w, errMissingPoolID)
		return
	}

	p, err := h.app.GetPool(r.Context(), poolID)
	if err != nil {
		writeError(w, err)
		return
	}
	pools, err := h.app.ListPools(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	now := h.app.Now()
	view, err := NewPoolView(*p, pools, h.app.Rules(), now)
	if err != nil {
		writeError(w, err)
		return
	}
	snapshot, err := NewPoolEvent(poolID, EventTypePoolSnapshot, now, view)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.connectionManager.UpgradeConnection(w, r, poolID, snapshot); err != nil {
		// The upgrader has already replied to the client.
		log.Error().
			Err(err).
			Str("pool_id", poolID).
			Msg("failed to upgrade WebSocket connection")
		return
	}
}

// HandleConnectionStats returns statistics about active connections
func (h *WebSocketHandler) HandleConnectionStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.connectionManager.GetConnectionStats())
}

// RegisterRoutes registers WebSocket routes with an HTTP mux
func (h *WebSocketHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/ws/pool", h.HandlePoolConnection)
	mux.HandleFunc("/ws/stats", h.HandleConnectionStats)
}
