package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/dukerupert/vitaltrack/internal/auth"
	"github.com/dukerupert/vitaltrack/internal/model"
	"github.com/dukerupert/vitaltrack/internal/store"
	"github.com/dukerupert/vitaltrack/internal/websocket"
)

type CategoryHandler struct {
	cats   *store.CategoryStore
	items  *store.ItemStore
	hub    *websocket.Hub
	logger *slog.Logger
}

func NewCategoryHandler(cats *store.CategoryStore, items *store.ItemStore, hub *websocket.Hub, logger *slog.Logger) *CategoryHandler {
	return &CategoryHandler{cats: cats, items: items, hub: hub, logger: logger}
}

func (h *CategoryHandler) notify(userID, action string) {
	if h.hub != nil {
		h.hub.NotifyUser(userID, websocket.Message{Type: "change", Entity: "category", Action: action})
	}
}

type categoryRequest struct {
	Name         *string `json:"name"`
	Description  *string `json:"description"`
	DisplayOrder *int    `json:"displayOrder"`
	IsDefault    *bool   `json:"isDefault"`
}

func (h *CategoryHandler) List(w http.ResponseWriter, r *http.Request) {
	cats, err := h.cats.List(auth.UserID(r.Context()))
	if err != nil {
		h.logger.Error("list categories", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list categories")
		return
	}
	if cats == nil {
		cats = []model.Category{}
	}
	writeJSON(w, http.StatusOK, cats)
}

func (h *CategoryHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	var req categoryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	name := ""
	if req.Name != nil {
		name = strings.TrimSpace(*req.Name)
	}
	if name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	cat := &model.Category{
		UserID:      userID,
		Name:        name,
		Description: req.Description,
	}
	if req.DisplayOrder != nil {
		cat.DisplayOrder = *req.DisplayOrder
	}
	if req.IsDefault != nil {
		cat.IsDefault = *req.IsDefault
	}

	created, err := h.cats.Create(cat)
	if err != nil {
		h.logger.Error("create category", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create category")
		return
	}

	h.notify(userID, "created")
	writeJSON(w, http.StatusCreated, created)
}

func (h *CategoryHandler) Get(w http.ResponseWriter, r *http.Request) {
	cat, err := h.cats.GetByID(auth.UserID(r.Context()), r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get category")
		return
	}
	if cat == nil {
		writeError(w, http.StatusNotFound, "category not found")
		return
	}
	writeJSON(w, http.StatusOK, cat)
}

func (h *CategoryHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	cat, err := h.cats.GetByID(userID, r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get category")
		return
	}
	if cat == nil {
		writeError(w, http.StatusNotFound, "category not found")
		return
	}

	var req categoryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			writeError(w, http.StatusBadRequest, "name cannot be empty")
			return
		}
		cat.Name = name
	}
	if req.Description != nil {
		cat.Description = req.Description
	}
	if req.DisplayOrder != nil {
		cat.DisplayOrder = *req.DisplayOrder
	}
	if req.IsDefault != nil {
		cat.IsDefault = *req.IsDefault
	}

	updated, err := h.cats.Update(cat)
	if err != nil {
		h.logger.Error("update category", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update category")
		return
	}

	h.notify(userID, "updated")
	writeJSON(w, http.StatusOK, updated)
}

// Delete removes the category. Items in the category are removed with it by
// the cascade.
func (h *CategoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	cat, err := h.cats.GetByID(userID, r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get category")
		return
	}
	if cat == nil {
		writeError(w, http.StatusNotFound, "category not found")
		return
	}

	if err := h.cats.Delete(userID, cat.ID); err != nil {
		h.logger.Error("delete category", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete category")
		return
	}

	h.notify(userID, "deleted")
	w.WriteHeader(http.StatusNoContent)
}
