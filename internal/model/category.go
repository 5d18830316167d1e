package model

import "time"

// Category groups inventory items. LocalID is the client-generated identifier
// used by offline-first sync to match records across devices; it is unique per
// owner when present.
type Category struct {
	ID           string    `json:"id"`
	UserID       string    `json:"userId"`
	Name         string    `json:"name"`
	Description  *string   `json:"description"`
	DisplayOrder int       `json:"displayOrder"`
	IsDefault    bool      `json:"isDefault"`
	LocalID      *string   `json:"localId"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}
