package model

import "time"

// Item is a tracked inventory item. Every item belongs to a category owned by
// the same user. ExpiryDate is an ISO date string (YYYY-MM-DD).
type Item struct {
	ID              string    `json:"id"`
	UserID          string    `json:"userId"`
	CategoryID      string    `json:"categoryId"`
	Name            string    `json:"name"`
	Quantity        int       `json:"quantity"`
	Unit            string    `json:"unit"`
	MinimumStock    int       `json:"minimumStock"`
	Description     *string   `json:"description"`
	ExpiryDate      *string   `json:"expiryDate"`
	Brand           *string   `json:"brand"`
	Notes           *string   `json:"notes"`
	SupplierName    *string   `json:"supplierName"`
	SupplierContact *string   `json:"supplierContact"`
	PurchaseLink    *string   `json:"purchaseLink"`
	ImageURI        *string   `json:"imageUri"`
	IsActive        bool      `json:"isActive"`
	IsCritical      bool      `json:"isCritical"`
	LocalID         *string   `json:"localId"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// OutOfStock reports whether the item has no stock left.
func (i *Item) OutOfStock() bool {
	return i.Quantity <= 0
}

// LowStock reports whether the item is below its minimum stock threshold but
// not yet out of stock.
func (i *Item) LowStock() bool {
	return i.Quantity > 0 && i.Quantity < i.MinimumStock
}

// NeedsAttention reports whether the item is either out of stock or low.
func (i *Item) NeedsAttention() bool {
	return i.OutOfStock() || i.LowStock()
}
