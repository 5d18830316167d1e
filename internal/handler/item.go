package handler

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dukerupert/vitaltrack/internal/auth"
	"github.com/dukerupert/vitaltrack/internal/model"
	"github.com/dukerupert/vitaltrack/internal/store"
	"github.com/dukerupert/vitaltrack/internal/websocket"
)

type ItemHandler struct {
	items    *store.ItemStore
	cats     *store.CategoryStore
	activity *store.ActivityStore
	hub      *websocket.Hub
	logger   *slog.Logger
}

func NewItemHandler(items *store.ItemStore, cats *store.CategoryStore, activity *store.ActivityStore, hub *websocket.Hub, logger *slog.Logger) *ItemHandler {
	return &ItemHandler{items: items, cats: cats, activity: activity, hub: hub, logger: logger}
}

func (h *ItemHandler) notify(userID, action string) {
	if h.hub != nil {
		h.hub.NotifyUser(userID, websocket.Message{Type: "change", Entity: "item", Action: action})
	}
}

func (h *ItemHandler) record(userID string, action model.ActivityAction, item *model.Item, details string) {
	entry := &model.ActivityLog{
		UserID:   userID,
		Action:   action,
		ItemName: item.Name,
		ItemID:   &item.ID,
	}
	if details != "" {
		entry.Details = &details
	}
	if err := h.activity.Record(entry); err != nil {
		h.logger.Error("record activity", "error", err)
	}
}

type itemRequest struct {
	CategoryID      *string `json:"categoryId"`
	Name            *string `json:"name"`
	Quantity        *int    `json:"quantity"`
	Unit            *string `json:"unit"`
	MinimumStock    *int    `json:"minimumStock"`
	Description     *string `json:"description"`
	ExpiryDate      *string `json:"expiryDate"`
	Brand           *string `json:"brand"`
	Notes           *string `json:"notes"`
	SupplierName    *string `json:"supplierName"`
	SupplierContact *string `json:"supplierContact"`
	PurchaseLink    *string `json:"purchaseLink"`
	ImageURI        *string `json:"imageUri"`
	IsActive        *bool   `json:"isActive"`
	IsCritical      *bool   `json:"isCritical"`
}

func (h *ItemHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	var (
		items []model.Item
		err   error
	)
	if categoryID := r.URL.Query().Get("categoryId"); categoryID != "" {
		items, err = h.items.ListByCategory(userID, categoryID)
	} else {
		items, err = h.items.List(userID)
	}
	if err != nil {
		h.logger.Error("list items", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list items")
		return
	}

	if r.URL.Query().Get("needsAttention") == "true" {
		filtered := items[:0]
		for _, it := range items {
			if it.NeedsAttention() {
				filtered = append(filtered, it)
			}
		}
		items = filtered
	}
	if items == nil {
		items = []model.Item{}
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *ItemHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	var req itemRequest
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
	if req.CategoryID == nil || *req.CategoryID == "" {
		writeError(w, http.StatusBadRequest, "categoryId is required")
		return
	}

	cat, err := h.cats.GetByID(userID, *req.CategoryID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to check category")
		return
	}
	if cat == nil {
		writeError(w, http.StatusBadRequest, "category not found")
		return
	}

	item := &model.Item{
		UserID:          userID,
		CategoryID:      cat.ID,
		Name:            name,
		Unit:            "pieces",
		Description:     req.Description,
		ExpiryDate:      req.ExpiryDate,
		Brand:           req.Brand,
		Notes:           req.Notes,
		SupplierName:    req.SupplierName,
		SupplierContact: req.SupplierContact,
		PurchaseLink:    req.PurchaseLink,
		ImageURI:        req.ImageURI,
		IsActive:        true,
	}
	if req.Quantity != nil {
		item.Quantity = *req.Quantity
	}
	if req.Unit != nil && *req.Unit != "" {
		item.Unit = *req.Unit
	}
	if req.MinimumStock != nil {
		item.MinimumStock = *req.MinimumStock
	}
	if req.IsActive != nil {
		item.IsActive = *req.IsActive
	}
	if req.IsCritical != nil {
		item.IsCritical = *req.IsCritical
	}

	created, err := h.items.Create(item)
	if err != nil {
		h.logger.Error("create item", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create item")
		return
	}

	h.record(userID, model.ActivityItemCreate, created, "")
	h.notify(userID, "created")
	writeJSON(w, http.StatusCreated, created)
}

func (h *ItemHandler) Get(w http.ResponseWriter, r *http.Request) {
	item, err := h.items.GetByID(auth.UserID(r.Context()), r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get item")
		return
	}
	if item == nil {
		writeError(w, http.StatusNotFound, "item not found")
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (h *ItemHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	item, err := h.items.GetByID(userID, r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get item")
		return
	}
	if item == nil {
		writeError(w, http.StatusNotFound, "item not found")
		return
	}

	var req itemRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.CategoryID != nil && *req.CategoryID != item.CategoryID {
		cat, err := h.cats.GetByID(userID, *req.CategoryID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to check category")
			return
		}
		if cat == nil {
			writeError(w, http.StatusBadRequest, "category not found")
			return
		}
		item.CategoryID = cat.ID
	}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			writeError(w, http.StatusBadRequest, "name cannot be empty")
			return
		}
		item.Name = name
	}
	if req.Quantity != nil {
		item.Quantity = *req.Quantity
	}
	if req.Unit != nil && *req.Unit != "" {
		item.Unit = *req.Unit
	}
	if req.MinimumStock != nil {
		item.MinimumStock = *req.MinimumStock
	}
	if req.Description != nil {
		item.Description = req.Description
	}
	if req.ExpiryDate != nil {
		item.ExpiryDate = req.ExpiryDate
	}
	if req.Brand != nil {
		item.Brand = req.Brand
	}
	if req.Notes != nil {
		item.Notes = req.Notes
	}
	if req.SupplierName != nil {
		item.SupplierName = req.SupplierName
	}
	if req.SupplierContact != nil {
		item.SupplierContact = req.SupplierContact
	}
	if req.PurchaseLink != nil {
		item.PurchaseLink = req.PurchaseLink
	}
	if req.ImageURI != nil {
		item.ImageURI = req.ImageURI
	}
	if req.IsActive != nil {
		item.IsActive = *req.IsActive
	}
	if req.IsCritical != nil {
		item.IsCritical = *req.IsCritical
	}

	updated, err := h.items.Update(item)
	if err != nil {
		h.logger.Error("update item", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update item")
		return
	}

	h.record(userID, model.ActivityItemUpdate, updated, "")
	h.notify(userID, "updated")
	writeJSON(w, http.StatusOK, updated)
}

func (h *ItemHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	item, err := h.items.GetByID(userID, r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get item")
		return
	}
	if item == nil {
		writeError(w, http.StatusNotFound, "item not found")
		return
	}

	if err := h.items.Delete(userID, item.ID); err != nil {
		h.logger.Error("delete item", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete item")
		return
	}

	h.record(userID, model.ActivityItemDelete, item, "")
	h.notify(userID, "deleted")
	w.WriteHeader(http.StatusNoContent)
}

type stockRequest struct {
	Delta int `json:"delta" validate:"required"`
}

// AdjustStock applies a signed quantity change to an item. Stock never goes
// below zero.
func (h *ItemHandler) AdjustStock(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	item, err := h.items.GetByID(userID, r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get item")
		return
	}
	if item == nil {
		writeError(w, http.StatusNotFound, "item not found")
		return
	}

	var req stockRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	oldQty := item.Quantity
	item.Quantity += req.Delta
	if item.Quantity < 0 {
		item.Quantity = 0
	}

	updated, err := h.items.Update(item)
	if err != nil {
		h.logger.Error("adjust stock", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to adjust stock")
		return
	}

	h.record(userID, model.ActivityStockUpdate, updated,
		fmt.Sprintf("%d -> %d %s", oldQty, updated.Quantity, updated.Unit))
	h.notify(userID, "updated")
	writeJSON(w, http.StatusOK, updated)
}
