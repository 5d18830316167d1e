package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/vitaltrack/internal/auth"
	"github.com/dukerupert/vitaltrack/internal/sync"
	"github.com/dukerupert/vitaltrack/internal/websocket"
)

type SyncHandler struct {
	engine *sync.Engine
	hub    *websocket.Hub
	logger *slog.Logger
}

func NewSyncHandler(engine *sync.Engine, hub *websocket.Hub, logger *slog.Logger) *SyncHandler {
	return &SyncHandler{engine: engine, hub: hub, logger: logger}
}

type pushRequest struct {
	Operations []sync.Operation `json:"operations" validate:"dive"`
	LastSyncAt *string          `json:"lastSyncAt"`
}

type pushResponse struct {
	Results        []sync.Result `json:"results"`
	SuccessCount   int           `json:"successCount"`
	ErrorCount     int           `json:"errorCount"`
	OrphansDeleted int           `json:"orphansDeleted"`
	ServerTime     time.Time     `json:"serverTime"`
}

func summaryResponse(summary *sync.PushSummary) pushResponse {
	return pushResponse{
		Results:        summary.Results,
		SuccessCount:   summary.SuccessCount,
		ErrorCount:     summary.ErrorCount,
		OrphansDeleted: summary.OrphansDeleted,
		ServerTime:     time.Now().UTC(),
	}
}

// Push applies a batch of offline operations. A storage fault is the only
// thing that fails the request; individual operation failures come back in
// the results.
func (h *SyncHandler) Push(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	var req pushRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	summary, err := h.engine.Push(userID, req.Operations)
	if err != nil {
		h.logger.Error("push failed", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "sync push failed")
		return
	}

	if h.hub != nil && summary.SuccessCount > 0 {
		h.hub.NotifyUser(userID, websocket.Message{Type: "sync", Action: "pushed"})
	}

	writeJSON(w, http.StatusOK, summaryResponse(summary))
}

// Pull returns the owner's complete server state.
func (h *SyncHandler) Pull(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	snap, err := h.engine.Snapshot(userID)
	if err != nil {
		h.logger.Error("pull failed", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "sync pull failed")
		return
	}

	writeJSON(w, http.StatusOK, snap)
}

type fullSyncResponse struct {
	Push     pushResponse   `json:"push"`
	Snapshot *sync.Snapshot `json:"snapshot"`
}

// Full pushes the batch and returns the post-push snapshot in one round trip.
func (h *SyncHandler) Full(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	var req pushRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	summary, snap, err := h.engine.FullSync(userID, req.Operations)
	if err != nil {
		h.logger.Error("full sync failed", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "full sync failed")
		return
	}

	if h.hub != nil && summary.SuccessCount > 0 {
		h.hub.NotifyUser(userID, websocket.Message{Type: "sync", Action: "pushed"})
	}

	writeJSON(w, http.StatusOK, fullSyncResponse{
		Push:     summaryResponse(summary),
		Snapshot: snap,
	})
}
