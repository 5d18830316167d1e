package store

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/dukerupert/vitaltrack/internal/model"
)

type CategoryStore struct {
	db dbtx
}

func NewCategoryStore(db *sql.DB) *CategoryStore {
	return &CategoryStore{db: db}
}

// WithTx returns a copy of the store bound to the given transaction.
func (s *CategoryStore) WithTx(tx *sql.Tx) *CategoryStore {
	return &CategoryStore{db: tx}
}

func scanCategory(scanner interface{ Scan(...any) error }) (*model.Category, error) {
	var c model.Category
	var description, localID sql.NullString
	var isDefault int
	err := scanner.Scan(
		&c.ID, &c.UserID, &c.Name, &description, &c.DisplayOrder,
		&isDefault, &localID, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	c.Description = strPtr(description)
	c.IsDefault = isDefault != 0
	c.LocalID = strPtr(localID)
	return &c, nil
}

const categoryCols = `id, user_id, name, description, display_order, is_default, local_id, created_at, updated_at`

func (s *CategoryStore) Create(c *model.Category) (*model.Category, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	_, err := s.db.Exec(
		`INSERT INTO categories (id, user_id, name, description, display_order, is_default, local_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.UserID, c.Name, nullStr(c.Description), c.DisplayOrder,
		boolToInt(c.IsDefault), nullStr(c.LocalID),
	)
	if err != nil {
		return nil, fmt.Errorf("insert category: %w", err)
	}
	return s.GetByID(c.UserID, c.ID)
}

func (s *CategoryStore) GetByID(userID, id string) (*model.Category, error) {
	row := s.db.QueryRow(`SELECT `+categoryCols+` FROM categories WHERE user_id = ? AND id = ?`, userID, id)
	c, err := scanCategory(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get category: %w", err)
	}
	return c, nil
}

func (s *CategoryStore) GetByLocalID(userID, localID string) (*model.Category, error) {
	row := s.db.QueryRow(`SELECT `+categoryCols+` FROM categories WHERE user_id = ? AND local_id = ?`, userID, localID)
	c, err := scanCategory(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get category by local id: %w", err)
	}
	return c, nil
}

// Resolve finds a category by server id first, falling back to the
// client-local id. Both lookups are scoped to the owner; either reference
// may be empty.
func (s *CategoryStore) Resolve(userID, id, localID string) (*model.Category, error) {
	if id != "" {
		c, err := s.GetByID(userID, id)
		if err != nil || c != nil {
			return c, err
		}
	}
	if localID != "" {
		return s.GetByLocalID(userID, localID)
	}
	return nil, nil
}

func (s *CategoryStore) List(userID string) ([]model.Category, error) {
	rows, err := s.db.Query(
		`SELECT `+categoryCols+` FROM categories WHERE user_id = ? ORDER BY display_order ASC, name ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var categories []model.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, *c)
	}
	return categories, rows.Err()
}

func (s *CategoryStore) Update(c *model.Category) (*model.Category, error) {
	_, err := s.db.Exec(
		`UPDATE categories SET name = ?, description = ?, display_order = ?, is_default = ?, local_id = ?,
		 updated_at = CURRENT_TIMESTAMP WHERE user_id = ? AND id = ?`,
		c.Name, nullStr(c.Description), c.DisplayOrder, boolToInt(c.IsDefault),
		nullStr(c.LocalID), c.UserID, c.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("update category: %w", err)
	}
	return s.GetByID(c.UserID, c.ID)
}

// Delete removes the category; items referencing it go with it via the
// foreign-key cascade.
func (s *CategoryStore) Delete(userID, id string) error {
	_, err := s.db.Exec(`DELETE FROM categories WHERE user_id = ? AND id = ?`, userID, id)
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	return nil
}

// ListOrphans returns the owner's categories whose local id is set but not in
// keep. Records without a local id have never been through sync and are left
// alone.
func (s *CategoryStore) ListOrphans(userID string, keep []string) ([]model.Category, error) {
	if len(keep) == 0 {
		return nil, nil
	}
	marks, args := inPlaceholders(keep)
	query := `SELECT ` + categoryCols + ` FROM categories
		 WHERE user_id = ? AND local_id IS NOT NULL AND local_id NOT IN (` + marks + `)`
	rows, err := s.db.Query(query, append([]any{userID}, args...)...)
	if err != nil {
		return nil, fmt.Errorf("list orphan categories: %w", err)
	}
	defer rows.Close()

	var categories []model.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, *c)
	}
	return categories, rows.Err()
}
