package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/dukerupert/vitaltrack/internal/auth"
	"github.com/dukerupert/vitaltrack/internal/model"
	"github.com/dukerupert/vitaltrack/internal/store"
)

const defaultActivityLimit = 50

type ActivityHandler struct {
	activity *store.ActivityStore
	logger   *slog.Logger
}

func NewActivityHandler(activity *store.ActivityStore, logger *slog.Logger) *ActivityHandler {
	return &ActivityHandler{activity: activity, logger: logger}
}

func (h *ActivityHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := defaultActivityLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 500 {
			writeError(w, http.StatusBadRequest, "limit must be between 1 and 500")
			return
		}
		limit = n
	}

	entries, err := h.activity.ListRecent(auth.UserID(r.Context()), limit)
	if err != nil {
		h.logger.Error("list activity", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list activity")
		return
	}
	if entries == nil {
		entries = []model.ActivityLog{}
	}
	writeJSON(w, http.StatusOK, entries)
}
