package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dukerupert/vitaltrack/internal/model"
)

type OrderStore struct {
	db dbtx
}

func NewOrderStore(db *sql.DB) *OrderStore {
	return &OrderStore{db: db}
}

// WithTx returns a copy of the store bound to the given transaction.
func (s *OrderStore) WithTx(tx *sql.Tx) *OrderStore {
	return &OrderStore{db: tx}
}

func scanOrder(scanner interface{ Scan(...any) error }) (*model.Order, error) {
	var o model.Order
	var orderedAt, receivedAt, appliedAt, declinedAt sql.NullTime
	var notes, localID sql.NullString
	var status string
	err := scanner.Scan(
		&o.ID, &o.UserID, &o.Code, &o.TotalItems, &o.TotalUnits, &status,
		&o.ExportedAt, &orderedAt, &receivedAt, &appliedAt, &declinedAt,
		&notes, &localID, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	o.Status = model.OrderStatus(status)
	o.OrderedAt = timePtr(orderedAt)
	o.ReceivedAt = timePtr(receivedAt)
	o.AppliedAt = timePtr(appliedAt)
	o.DeclinedAt = timePtr(declinedAt)
	o.Notes = strPtr(notes)
	o.LocalID = strPtr(localID)
	return &o, nil
}

const orderCols = `id, user_id, order_code, total_items, total_units, status, exported_at,
	ordered_at, received_at, applied_at, declined_at, notes, local_id, created_at, updated_at`

// GenerateCode builds an order code like ORD-20260830-0001 from the number of
// orders the owner already exported today.
func GenerateCode(now time.Time, todayCount int) string {
	return fmt.Sprintf("ORD-%s-%04d", now.UTC().Format("20060102"), todayCount+1)
}

// DisambiguateCode derives a still-unique order code from one that collided
// globally, using the owner's id prefix and a short random suffix.
func DisambiguateCode(code, userID string) string {
	prefix := userID
	if len(prefix) > 4 {
		prefix = prefix[:4]
	}
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("%s-%s-%s", code, prefix, suffix)
}

// CodeExists checks the order code against all owners. The code space is
// global even though order data is per-owner.
func (s *OrderStore) CodeExists(code string) (bool, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM orders WHERE order_code = ?`, code).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check order code: %w", err)
	}
	return count > 0, nil
}

// CountExportedSince returns how many orders the owner exported at or after
// the given instant. Used for the daily code sequence.
func (s *OrderStore) CountExportedSince(userID string, since time.Time) (int, error) {
	var count int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM orders WHERE user_id = ? AND exported_at >= ?`,
		userID, since,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count orders: %w", err)
	}
	return count, nil
}

// Create inserts the order header and all of its line items.
func (s *OrderStore) Create(o *model.Order) (*model.Order, error) {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	_, err := s.db.Exec(
		`INSERT INTO orders (id, user_id, order_code, total_items, total_units, status,
		 exported_at, ordered_at, received_at, applied_at, declined_at, notes, local_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		o.ID, o.UserID, o.Code, o.TotalItems, o.TotalUnits, string(o.Status),
		o.ExportedAt, nullTime(o.OrderedAt), nullTime(o.ReceivedAt),
		nullTime(o.AppliedAt), nullTime(o.DeclinedAt), nullStr(o.Notes), nullStr(o.LocalID),
	)
	if err != nil {
		return nil, fmt.Errorf("insert order: %w", err)
	}
	if err := s.insertItems(o.ID, o.Items); err != nil {
		return nil, err
	}
	return s.GetByID(o.UserID, o.ID)
}

func (s *OrderStore) insertItems(orderID string, items []model.OrderItem) error {
	for _, it := range items {
		id := it.ID
		if id == "" {
			id = uuid.NewString()
		}
		_, err := s.db.Exec(
			`INSERT INTO order_items (id, order_id, item_id, name, brand, unit, quantity,
			 current_stock, minimum_stock, image_uri, supplier_name, purchase_link)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			id, orderID, it.ItemID, it.Name, nullStr(it.Brand), it.Unit, it.Quantity,
			it.CurrentStock, it.MinimumStock, nullStr(it.ImageURI),
			nullStr(it.SupplierName), nullStr(it.PurchaseLink),
		)
		if err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
	}
	return nil
}

// ReplaceItems deletes the order's line items and inserts the given set.
// Line items are snapshots and are never patched individually.
func (s *OrderStore) ReplaceItems(orderID string, items []model.OrderItem) error {
	if _, err := s.db.Exec(`DELETE FROM order_items WHERE order_id = ?`, orderID); err != nil {
		return fmt.Errorf("delete order items: %w", err)
	}
	return s.insertItems(orderID, items)
}

func (s *OrderStore) loadItems(o *model.Order) error {
	rows, err := s.db.Query(
		`SELECT id, order_id, item_id, name, brand, unit, quantity, current_stock,
		 minimum_stock, image_uri, supplier_name, purchase_link, created_at
		 FROM order_items WHERE order_id = ? ORDER BY created_at ASC, id ASC`,
		o.ID,
	)
	if err != nil {
		return fmt.Errorf("list order items: %w", err)
	}
	defer rows.Close()

	items := []model.OrderItem{}
	for rows.Next() {
		var it model.OrderItem
		var brand, imageURI, supplierName, purchaseLink sql.NullString
		err := rows.Scan(
			&it.ID, &it.OrderID, &it.ItemID, &it.Name, &brand, &it.Unit,
			&it.Quantity, &it.CurrentStock, &it.MinimumStock,
			&imageURI, &supplierName, &purchaseLink, &it.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("scan order item: %w", err)
		}
		it.Brand = strPtr(brand)
		it.ImageURI = strPtr(imageURI)
		it.SupplierName = strPtr(supplierName)
		it.PurchaseLink = strPtr(purchaseLink)
		items = append(items, it)
	}
	o.Items = items
	return rows.Err()
}

func (s *OrderStore) GetByID(userID, id string) (*model.Order, error) {
	row := s.db.QueryRow(`SELECT `+orderCols+` FROM orders WHERE user_id = ? AND id = ?`, userID, id)
	o, err := scanOrder(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	if err := s.loadItems(o); err != nil {
		return nil, err
	}
	return o, nil
}

func (s *OrderStore) GetByLocalID(userID, localID string) (*model.Order, error) {
	row := s.db.QueryRow(`SELECT `+orderCols+` FROM orders WHERE user_id = ? AND local_id = ?`, userID, localID)
	o, err := scanOrder(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get order by local id: %w", err)
	}
	if err := s.loadItems(o); err != nil {
		return nil, err
	}
	return o, nil
}

// GetByCode finds the owner's order by its human-readable code.
func (s *OrderStore) GetByCode(userID, code string) (*model.Order, error) {
	row := s.db.QueryRow(`SELECT `+orderCols+` FROM orders WHERE user_id = ? AND order_code = ?`, userID, code)
	o, err := scanOrder(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get order by code: %w", err)
	}
	if err := s.loadItems(o); err != nil {
		return nil, err
	}
	return o, nil
}

// Resolve finds an order by server id first, falling back to the client-local
// id, both scoped to the owner.
func (s *OrderStore) Resolve(userID, id, localID string) (*model.Order, error) {
	if id != "" {
		o, err := s.GetByID(userID, id)
		if err != nil || o != nil {
			return o, err
		}
	}
	if localID != "" {
		return s.GetByLocalID(userID, localID)
	}
	return nil, nil
}

func (s *OrderStore) List(userID string) ([]model.Order, error) {
	rows, err := s.db.Query(
		`SELECT `+orderCols+` FROM orders WHERE user_id = ? ORDER BY exported_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var orders []model.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for idx := range orders {
		if err := s.loadItems(&orders[idx]); err != nil {
			return nil, err
		}
	}
	return orders, nil
}

// Update writes the order's header fields. Line items are handled separately
// via ReplaceItems.
func (s *OrderStore) Update(o *model.Order) (*model.Order, error) {
	_, err := s.db.Exec(
		`UPDATE orders SET order_code = ?, total_items = ?, total_units = ?, status = ?,
		 exported_at = ?, ordered_at = ?, received_at = ?, applied_at = ?, declined_at = ?,
		 notes = ?, local_id = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE user_id = ? AND id = ?`,
		o.Code, o.TotalItems, o.TotalUnits, string(o.Status),
		o.ExportedAt, nullTime(o.OrderedAt), nullTime(o.ReceivedAt),
		nullTime(o.AppliedAt), nullTime(o.DeclinedAt), nullStr(o.Notes), nullStr(o.LocalID),
		o.UserID, o.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("update order: %w", err)
	}
	return s.GetByID(o.UserID, o.ID)
}

// Delete removes the order and its line items. The line items are deleted
// explicitly rather than relying on the cascade alone.
func (s *OrderStore) Delete(userID, id string) error {
	if _, err := s.db.Exec(`DELETE FROM order_items WHERE order_id = ?`, id); err != nil {
		return fmt.Errorf("delete order items: %w", err)
	}
	if _, err := s.db.Exec(`DELETE FROM orders WHERE user_id = ? AND id = ?`, userID, id); err != nil {
		return fmt.Errorf("delete order: %w", err)
	}
	return nil
}

// ListOrphans returns the owner's orders whose local id is set but not in keep.
func (s *OrderStore) ListOrphans(userID string, keep []string) ([]model.Order, error) {
	if len(keep) == 0 {
		return nil, nil
	}
	marks, args := inPlaceholders(keep)
	query := `SELECT ` + orderCols + ` FROM orders
		 WHERE user_id = ? AND local_id IS NOT NULL AND local_id NOT IN (` + marks + `)`
	rows, err := s.db.Query(query, append([]any{userID}, args...)...)
	if err != nil {
		return nil, fmt.Errorf("list orphan orders: %w", err)
	}
	defer rows.Close()

	var orders []model.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, *o)
	}
	return orders, rows.Err()
}
