package store

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/dukerupert/vitaltrack/internal/model"
)

type ActivityStore struct {
	db dbtx
}

func NewActivityStore(db *sql.DB) *ActivityStore {
	return &ActivityStore{db: db}
}

// WithTx returns a copy of the store bound to the given transaction.
func (s *ActivityStore) WithTx(tx *sql.Tx) *ActivityStore {
	return &ActivityStore{db: tx}
}

func (s *ActivityStore) Record(a *model.ActivityLog) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	_, err := s.db.Exec(
		`INSERT INTO activity_logs (id, user_id, action, item_name, item_id, order_code, details)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.UserID, string(a.Action), a.ItemName,
		nullStr(a.ItemID), nullStr(a.OrderCode), nullStr(a.Details),
	)
	if err != nil {
		return fmt.Errorf("insert activity: %w", err)
	}
	return nil
}

func (s *ActivityStore) ListRecent(userID string, limit int) ([]model.ActivityLog, error) {
	rows, err := s.db.Query(
		`SELECT id, user_id, action, item_name, item_id, order_code, details, created_at
		 FROM activity_logs WHERE user_id = ? ORDER BY created_at DESC, id DESC LIMIT ?`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list activity: %w", err)
	}
	defer rows.Close()

	var entries []model.ActivityLog
	for rows.Next() {
		var a model.ActivityLog
		var itemID, orderCode, details sql.NullString
		var action string
		err := rows.Scan(&a.ID, &a.UserID, &action, &a.ItemName, &itemID, &orderCode, &details, &a.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		a.Action = model.ActivityAction(action)
		a.ItemID = strPtr(itemID)
		a.OrderCode = strPtr(orderCode)
		a.Details = strPtr(details)
		entries = append(entries, a)
	}
	return entries, rows.Err()
}
