package handler

import (
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dukerupert/vitaltrack/internal/auth"
	"github.com/dukerupert/vitaltrack/internal/model"
	"github.com/dukerupert/vitaltrack/internal/store"
	"github.com/dukerupert/vitaltrack/internal/websocket"
)

type OrderHandler struct {
	db       *sql.DB
	orders   *store.OrderStore
	items    *store.ItemStore
	activity *store.ActivityStore
	hub      *websocket.Hub
	logger   *slog.Logger
	now      func() time.Time
}

func NewOrderHandler(db *sql.DB, orders *store.OrderStore, items *store.ItemStore, activity *store.ActivityStore, hub *websocket.Hub, logger *slog.Logger) *OrderHandler {
	return &OrderHandler{
		db:       db,
		orders:   orders,
		items:    items,
		activity: activity,
		hub:      hub,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (h *OrderHandler) notify(userID, action string) {
	if h.hub != nil {
		h.hub.NotifyUser(userID, websocket.Message{Type: "change", Entity: "order", Action: action})
	}
}

func (h *OrderHandler) record(userID string, action model.ActivityAction, order *model.Order, details string) {
	entry := &model.ActivityLog{
		UserID:    userID,
		Action:    action,
		ItemName:  order.Code,
		OrderCode: &order.Code,
	}
	if details != "" {
		entry.Details = &details
	}
	if err := h.activity.Record(entry); err != nil {
		h.logger.Error("record activity", "error", err)
	}
}

type orderLineRequest struct {
	ItemID   string `json:"itemId" validate:"required"`
	Quantity int    `json:"quantity" validate:"required,min=1"`
}

type orderRequest struct {
	Items []orderLineRequest `json:"items" validate:"required,min=1,dive"`
	Notes *string            `json:"notes"`
}

// Create exports a new order. Line items are snapshots of the live items at
// this moment; totals are computed here and never recomputed.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	var req orderRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	lines := make([]model.OrderItem, 0, len(req.Items))
	totalUnits := 0
	for _, l := range req.Items {
		item, err := h.items.GetByID(userID, l.ItemID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to check item")
			return
		}
		if item == nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("item %s not found", l.ItemID))
			return
		}
		lines = append(lines, model.OrderItem{
			ItemID:       item.ID,
			Name:         item.Name,
			Brand:        item.Brand,
			Unit:         item.Unit,
			Quantity:     l.Quantity,
			CurrentStock: item.Quantity,
			MinimumStock: item.MinimumStock,
			ImageURI:     item.ImageURI,
			SupplierName: item.SupplierName,
			PurchaseLink: item.PurchaseLink,
		})
		totalUnits += l.Quantity
	}

	now := h.now()
	code, err := h.nextCode(userID, now)
	if err != nil {
		h.logger.Error("generate order code", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create order")
		return
	}

	order := &model.Order{
		UserID:     userID,
		Code:       code,
		TotalItems: len(lines),
		TotalUnits: totalUnits,
		Status:     model.OrderPending,
		ExportedAt: now,
		Notes:      req.Notes,
		Items:      lines,
	}
	created, err := h.orders.Create(order)
	if err != nil {
		h.logger.Error("create order", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create order")
		return
	}

	h.record(userID, model.ActivityOrderCreated, created,
		fmt.Sprintf("%d items, %d units", created.TotalItems, created.TotalUnits))
	h.notify(userID, "created")
	writeJSON(w, http.StatusCreated, created)
}

// nextCode assigns the owner's next daily order code, disambiguating when
// another owner already claimed it.
func (h *OrderHandler) nextCode(userID string, now time.Time) (string, error) {
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	count, err := h.orders.CountExportedSince(userID, startOfDay)
	if err != nil {
		return "", err
	}
	code := store.GenerateCode(now, count)
	taken, err := h.orders.CodeExists(code)
	if err != nil {
		return "", err
	}
	if taken {
		disambiguated := store.DisambiguateCode(code, userID)
		h.logger.Warn("order code collision", "code", code, "disambiguated", disambiguated)
		code = disambiguated
	}
	return code, nil
}

func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.List(auth.UserID(r.Context()))
	if err != nil {
		h.logger.Error("list orders", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list orders")
		return
	}
	if orders == nil {
		orders = []model.Order{}
	}
	writeJSON(w, http.StatusOK, orders)
}

// Get looks the order up by server id, falling back to the order code so
// clients can resolve a code scanned from a printed export.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())
	id := r.PathValue("id")

	order, err := h.orders.GetByID(userID, id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get order")
		return
	}
	if order == nil && strings.HasPrefix(id, "ORD-") {
		order, err = h.orders.GetByCode(userID, id)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to get order")
			return
		}
	}
	if order == nil {
		writeError(w, http.StatusNotFound, "order not found")
		return
	}
	writeJSON(w, http.StatusOK, order)
}

type statusRequest struct {
	Status string  `json:"status" validate:"required"`
	Notes  *string `json:"notes"`
}

// UpdateStatus moves the order through its lifecycle and stamps the matching
// timestamp.
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	order, err := h.orders.GetByID(userID, r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get order")
		return
	}
	if order == nil {
		writeError(w, http.StatusNotFound, "order not found")
		return
	}

	var req statusRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !model.ValidOrderStatus(req.Status) {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid order status: %s", req.Status))
		return
	}

	now := h.now()
	order.Status = model.OrderStatus(req.Status)
	switch order.Status {
	case model.OrderOrdered:
		order.OrderedAt = &now
	case model.OrderReceived, model.OrderPartiallyReceived:
		order.ReceivedAt = &now
	case model.OrderDeclined:
		order.DeclinedAt = &now
	}
	if req.Notes != nil {
		order.Notes = req.Notes
	}

	updated, err := h.orders.Update(order)
	if err != nil {
		h.logger.Error("update order status", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update order")
		return
	}

	switch updated.Status {
	case model.OrderReceived:
		h.record(userID, model.ActivityOrderReceived, updated, "")
	case model.OrderDeclined:
		h.record(userID, model.ActivityOrderDeclined, updated, "")
	}
	h.notify(userID, "updated")
	writeJSON(w, http.StatusOK, updated)
}

// Apply adds the received order's line quantities onto live item stock. The
// order must be in received status; it moves to stock_updated afterwards so
// stock is never applied twice. The whole adjustment runs in one transaction.
func (h *OrderHandler) Apply(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	order, err := h.orders.GetByID(userID, r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get order")
		return
	}
	if order == nil {
		writeError(w, http.StatusNotFound, "order not found")
		return
	}
	if order.Status != model.OrderReceived {
		writeError(w, http.StatusConflict,
			fmt.Sprintf("order must be received to apply stock, current status: %s", order.Status))
		return
	}

	updated, err := h.applyToStock(userID, order)
	if err != nil {
		h.logger.Error("apply order to stock", "order", order.Code, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to apply order to stock")
		return
	}

	h.record(userID, model.ActivityOrderApplied, updated,
		fmt.Sprintf("%d units added to stock", updated.TotalUnits))
	h.notify(userID, "updated")
	writeJSON(w, http.StatusOK, updated)
}

func (h *OrderHandler) applyToStock(userID string, order *model.Order) (*model.Order, error) {
	tx, err := h.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin apply: %w", err)
	}
	defer tx.Rollback()

	txItems := h.items.WithTx(tx)
	txOrders := h.orders.WithTx(tx)

	for _, line := range order.Items {
		item, err := txItems.GetByID(userID, line.ItemID)
		if err != nil {
			return nil, err
		}
		if item == nil {
			// Item deleted since the order was exported; nothing to restock.
			h.logger.Warn("order line item missing", "order", order.Code, "item_id", line.ItemID)
			continue
		}
		item.Quantity += line.Quantity
		if _, err := txItems.Update(item); err != nil {
			return nil, err
		}
	}

	now := h.now()
	order.Status = model.OrderStockUpdated
	order.AppliedAt = &now
	updated, err := txOrders.Update(order)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit apply: %w", err)
	}
	return updated, nil
}

func (h *OrderHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	order, err := h.orders.GetByID(userID, r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get order")
		return
	}
	if order == nil {
		writeError(w, http.StatusNotFound, "order not found")
		return
	}

	if err := h.orders.Delete(userID, order.ID); err != nil {
		h.logger.Error("delete order", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete order")
		return
	}

	h.notify(userID, "deleted")
	w.WriteHeader(http.StatusNoContent)
}
