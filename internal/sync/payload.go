package sync

import (
	"encoding/json"
	"fmt"
	"time"
)

// Entity payloads are typed partial-update structures. Every field is a
// pointer so a field that is absent from the JSON stays nil and is left
// untouched on update; field names follow the client's camelCase convention.

type CategoryPayload struct {
	Name         *string `json:"name"`
	Description  *string `json:"description"`
	DisplayOrder *int    `json:"displayOrder"`
	IsDefault    *bool   `json:"isDefault"`
}

type ItemPayload struct {
	CategoryID      *string `json:"categoryId"`
	Name            *string `json:"name"`
	Description     *string `json:"description"`
	Quantity        *int    `json:"quantity"`
	Unit            *string `json:"unit"`
	MinimumStock    *int    `json:"minimumStock"`
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

type OrderPayload struct {
	Code       *string            `json:"orderId"`
	Status     *string            `json:"status"`
	TotalItems *int               `json:"totalItems"`
	TotalUnits *int               `json:"totalUnits"`
	ExportedAt *string            `json:"exportedAt"`
	OrderedAt  *string            `json:"orderedAt"`
	ReceivedAt *string            `json:"receivedAt"`
	AppliedAt  *string            `json:"appliedAt"`
	DeclinedAt *string            `json:"declinedAt"`
	Notes      *string            `json:"notes"`
	Items      []OrderLinePayload `json:"items"`
}

// OrderLinePayload is a line-item snapshot in an order payload. ItemID may be
// absent; older clients send the inventory item's id under "id" instead.
type OrderLinePayload struct {
	ItemID       *string `json:"itemId"`
	ID           *string `json:"id"`
	Name         *string `json:"name"`
	Brand        *string `json:"brand"`
	Unit         *string `json:"unit"`
	Quantity     *int    `json:"quantity"`
	CurrentStock *int    `json:"currentStock"`
	MinimumStock *int    `json:"minimumStock"`
	ImageURI     *string `json:"imageUri"`
	SupplierName *string `json:"supplierName"`
	PurchaseLink *string `json:"purchaseLink"`
}

func decodeCategoryPayload(raw json.RawMessage) (*CategoryPayload, error) {
	var p CategoryPayload
	if len(raw) == 0 {
		return &p, nil
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("decode category payload: %w", err)
	}
	return &p, nil
}

func decodeItemPayload(raw json.RawMessage) (*ItemPayload, error) {
	var p ItemPayload
	if len(raw) == 0 {
		return &p, nil
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("decode item payload: %w", err)
	}
	return &p, nil
}

func decodeOrderPayload(raw json.RawMessage) (*OrderPayload, error) {
	var p OrderPayload
	if len(raw) == 0 {
		return &p, nil
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("decode order payload: %w", err)
	}
	return &p, nil
}

// parseTime parses a client timestamp string. Unparseable or empty values
// yield nil rather than an error; clients send RFC 3339 with or without
// fractional seconds.
func parseTime(s *string) *time.Time {
	if s == nil || *s == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, *s); err == nil {
			return &t
		}
	}
	return nil
}

func strDefault(s *string, def string) string {
	if s == nil || *s == "" {
		return def
	}
	return *s
}

func intDefault(v *int, def int) int {
	if v == nil {
		return def
	}
	return *v
}

func boolDefault(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}
