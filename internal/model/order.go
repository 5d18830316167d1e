package model

import "time"

// OrderStatus is the lifecycle state of a purchase order.
type OrderStatus string

const (
	OrderPending           OrderStatus = "pending"
	OrderOrdered           OrderStatus = "ordered"
	OrderPartiallyReceived OrderStatus = "partially_received"
	OrderReceived          OrderStatus = "received"
	OrderStockUpdated      OrderStatus = "stock_updated"
	OrderDeclined          OrderStatus = "declined"
)

// ValidOrderStatus reports whether s is a known order status.
func ValidOrderStatus(s string) bool {
	switch OrderStatus(s) {
	case OrderPending, OrderOrdered, OrderPartiallyReceived,
		OrderReceived, OrderStockUpdated, OrderDeclined:
		return true
	}
	return false
}

// Order is a purchase order. Code is the human-readable order code
// (ORD-YYYYMMDD-NNNN), unique across all users. Totals are snapshots taken
// at creation time.
type Order struct {
	ID         string      `json:"id"`
	UserID     string      `json:"userId"`
	Code       string      `json:"orderId"`
	TotalItems int         `json:"totalItems"`
	TotalUnits int         `json:"totalUnits"`
	Status     OrderStatus `json:"status"`
	ExportedAt time.Time   `json:"exportedAt"`
	OrderedAt  *time.Time  `json:"orderedAt"`
	ReceivedAt *time.Time  `json:"receivedAt"`
	AppliedAt  *time.Time  `json:"appliedAt"`
	DeclinedAt *time.Time  `json:"declinedAt"`
	Notes      *string     `json:"notes"`
	LocalID    *string     `json:"localId"`
	CreatedAt  time.Time   `json:"createdAt"`
	UpdatedAt  time.Time   `json:"updatedAt"`

	Items []OrderItem `json:"items"`
}

// OrderItem is a snapshot of an inventory item at order time. ItemID is a
// denormalized reference only; the line item never tracks the live record.
type OrderItem struct {
	ID           string    `json:"id"`
	OrderID      string    `json:"orderId"`
	ItemID       string    `json:"itemId"`
	Name         string    `json:"name"`
	Brand        *string   `json:"brand"`
	Unit         string    `json:"unit"`
	Quantity     int       `json:"quantity"`
	CurrentStock int       `json:"currentStock"`
	MinimumStock int       `json:"minimumStock"`
	ImageURI     *string   `json:"imageUri"`
	SupplierName *string   `json:"supplierName"`
	PurchaseLink *string   `json:"purchaseLink"`
	CreatedAt    time.Time `json:"createdAt"`
}
