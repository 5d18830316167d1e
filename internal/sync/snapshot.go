package sync

import (
	"fmt"
	"time"

	"github.com/dukerupert/vitaltrack/internal/model"
)

// Snapshot is the owner's complete entity graph. Pull always returns
// everything: a timestamp-filtered pull cannot express deletions without a
// tombstone log, which this system does not keep, so DeletedIDs stays empty
// and HasMore false.
type Snapshot struct {
	Categories []model.Category `json:"categories"`
	Items      []model.Item     `json:"items"`
	Orders     []model.Order    `json:"orders"`
	DeletedIDs []string         `json:"deletedIds"`
	ServerTime time.Time        `json:"serverTime"`
	HasMore    bool             `json:"hasMore"`
}

// Snapshot assembles the owner's full current state.
func (e *Engine) Snapshot(userID string) (*Snapshot, error) {
	cats, err := e.cats.List(userID)
	if err != nil {
		return nil, err
	}
	items, err := e.items.List(userID)
	if err != nil {
		return nil, err
	}
	orders, err := e.orders.List(userID)
	if err != nil {
		return nil, err
	}

	if cats == nil {
		cats = []model.Category{}
	}
	if items == nil {
		items = []model.Item{}
	}
	if orders == nil {
		orders = []model.Order{}
	}

	details := fmt.Sprintf("%d categories, %d items, %d orders", len(cats), len(items), len(orders))
	if err := e.activity.Record(&model.ActivityLog{
		UserID:   userID,
		Action:   model.ActivitySyncPull,
		ItemName: "Sync Pull",
		Details:  &details,
	}); err != nil {
		return nil, err
	}

	e.logger.Info("pull complete", "user_id", userID,
		"categories", len(cats), "items", len(items), "orders", len(orders))

	return &Snapshot{
		Categories: cats,
		Items:      items,
		Orders:     orders,
		DeletedIDs: []string{},
		ServerTime: e.now(),
	}, nil
}

// FullSync pushes the batch, then assembles the post-push snapshot.
func (e *Engine) FullSync(userID string, ops []Operation) (*PushSummary, *Snapshot, error) {
	summary, err := e.Push(userID, ops)
	if err != nil {
		return nil, nil, err
	}
	snap, err := e.Snapshot(userID)
	if err != nil {
		return nil, nil, err
	}
	return summary, snap, nil
}
