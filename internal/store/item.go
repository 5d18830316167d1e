package store

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/dukerupert/vitaltrack/internal/model"
)

type ItemStore struct {
	db dbtx
}

func NewItemStore(db *sql.DB) *ItemStore {
	return &ItemStore{db: db}
}

// WithTx returns a copy of the store bound to the given transaction.
func (s *ItemStore) WithTx(tx *sql.Tx) *ItemStore {
	return &ItemStore{db: tx}
}

func scanItem(scanner interface{ Scan(...any) error }) (*model.Item, error) {
	var i model.Item
	var description, expiryDate, brand, notes sql.NullString
	var supplierName, supplierContact, purchaseLink, imageURI, localID sql.NullString
	var isActive, isCritical int
	err := scanner.Scan(
		&i.ID, &i.UserID, &i.CategoryID, &i.Name, &i.Quantity, &i.Unit,
		&i.MinimumStock, &description, &expiryDate, &brand, &notes,
		&supplierName, &supplierContact, &purchaseLink, &imageURI,
		&isActive, &isCritical, &localID, &i.CreatedAt, &i.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	i.Description = strPtr(description)
	i.ExpiryDate = strPtr(expiryDate)
	i.Brand = strPtr(brand)
	i.Notes = strPtr(notes)
	i.SupplierName = strPtr(supplierName)
	i.SupplierContact = strPtr(supplierContact)
	i.PurchaseLink = strPtr(purchaseLink)
	i.ImageURI = strPtr(imageURI)
	i.IsActive = isActive != 0
	i.IsCritical = isCritical != 0
	i.LocalID = strPtr(localID)
	return &i, nil
}

const itemCols = `id, user_id, category_id, name, quantity, unit, minimum_stock, description,
	expiry_date, brand, notes, supplier_name, supplier_contact, purchase_link, image_uri,
	is_active, is_critical, local_id, created_at, updated_at`

func (s *ItemStore) Create(i *model.Item) (*model.Item, error) {
	if i.ID == "" {
		i.ID = uuid.NewString()
	}
	_, err := s.db.Exec(
		`INSERT INTO items (id, user_id, category_id, name, quantity, unit, minimum_stock,
		 description, expiry_date, brand, notes, supplier_name, supplier_contact,
		 purchase_link, image_uri, is_active, is_critical, local_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		i.ID, i.UserID, i.CategoryID, i.Name, i.Quantity, i.Unit, i.MinimumStock,
		nullStr(i.Description), nullStr(i.ExpiryDate), nullStr(i.Brand), nullStr(i.Notes),
		nullStr(i.SupplierName), nullStr(i.SupplierContact), nullStr(i.PurchaseLink),
		nullStr(i.ImageURI), boolToInt(i.IsActive), boolToInt(i.IsCritical), nullStr(i.LocalID),
	)
	if err != nil {
		return nil, fmt.Errorf("insert item: %w", err)
	}
	return s.GetByID(i.UserID, i.ID)
}

func (s *ItemStore) GetByID(userID, id string) (*model.Item, error) {
	row := s.db.QueryRow(`SELECT `+itemCols+` FROM items WHERE user_id = ? AND id = ?`, userID, id)
	i, err := scanItem(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	return i, nil
}

func (s *ItemStore) GetByLocalID(userID, localID string) (*model.Item, error) {
	row := s.db.QueryRow(`SELECT `+itemCols+` FROM items WHERE user_id = ? AND local_id = ?`, userID, localID)
	i, err := scanItem(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get item by local id: %w", err)
	}
	return i, nil
}

// Resolve finds an item by server id first, falling back to the client-local
// id, both scoped to the owner.
func (s *ItemStore) Resolve(userID, id, localID string) (*model.Item, error) {
	if id != "" {
		i, err := s.GetByID(userID, id)
		if err != nil || i != nil {
			return i, err
		}
	}
	if localID != "" {
		return s.GetByLocalID(userID, localID)
	}
	return nil, nil
}

func (s *ItemStore) List(userID string) ([]model.Item, error) {
	rows, err := s.db.Query(`SELECT `+itemCols+` FROM items WHERE user_id = ? ORDER BY name ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()
	return collectItems(rows)
}

func (s *ItemStore) ListByCategory(userID, categoryID string) ([]model.Item, error) {
	rows, err := s.db.Query(
		`SELECT `+itemCols+` FROM items WHERE user_id = ? AND category_id = ? ORDER BY name ASC`,
		userID, categoryID,
	)
	if err != nil {
		return nil, fmt.Errorf("list items by category: %w", err)
	}
	defer rows.Close()
	return collectItems(rows)
}

func collectItems(rows *sql.Rows) ([]model.Item, error) {
	var items []model.Item
	for rows.Next() {
		i, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, *i)
	}
	return items, rows.Err()
}

func (s *ItemStore) Update(i *model.Item) (*model.Item, error) {
	_, err := s.db.Exec(
		`UPDATE items SET category_id = ?, name = ?, quantity = ?, unit = ?, minimum_stock = ?,
		 description = ?, expiry_date = ?, brand = ?, notes = ?, supplier_name = ?,
		 supplier_contact = ?, purchase_link = ?, image_uri = ?, is_active = ?, is_critical = ?,
		 local_id = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE user_id = ? AND id = ?`,
		i.CategoryID, i.Name, i.Quantity, i.Unit, i.MinimumStock,
		nullStr(i.Description), nullStr(i.ExpiryDate), nullStr(i.Brand), nullStr(i.Notes),
		nullStr(i.SupplierName), nullStr(i.SupplierContact), nullStr(i.PurchaseLink),
		nullStr(i.ImageURI), boolToInt(i.IsActive), boolToInt(i.IsCritical),
		nullStr(i.LocalID), i.UserID, i.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("update item: %w", err)
	}
	return s.GetByID(i.UserID, i.ID)
}

func (s *ItemStore) Delete(userID, id string) error {
	_, err := s.db.Exec(`DELETE FROM items WHERE user_id = ? AND id = ?`, userID, id)
	if err != nil {
		return fmt.Errorf("delete item: %w", err)
	}
	return nil
}

// CountByCategory returns how many items reference the category. Orphan
// cleanup uses this to keep categories that still have items.
func (s *ItemStore) CountByCategory(categoryID string) (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM items WHERE category_id = ?`, categoryID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count items by category: %w", err)
	}
	return count, nil
}

// ListOrphans returns the owner's items whose local id is set but not in keep.
func (s *ItemStore) ListOrphans(userID string, keep []string) ([]model.Item, error) {
	if len(keep) == 0 {
		return nil, nil
	}
	marks, args := inPlaceholders(keep)
	query := `SELECT ` + itemCols + ` FROM items
		 WHERE user_id = ? AND local_id IS NOT NULL AND local_id NOT IN (` + marks + `)`
	rows, err := s.db.Query(query, append([]any{userID}, args...)...)
	if err != nil {
		return nil, fmt.Errorf("list orphan items: %w", err)
	}
	defer rows.Close()
	return collectItems(rows)
}
