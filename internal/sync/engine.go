package sync

import (
	"database/sql"
	"fmt"
	"log/slog"
	stdsync "sync"
	"time"

	"github.com/dukerupert/vitaltrack/internal/model"
	"github.com/dukerupert/vitaltrack/internal/store"
)

// Engine reconciles client push batches against server state. Each push runs
// as a single transaction: operations are applied in dependency order, failed
// operations are recorded in the results without aborting the batch, and
// orphan cleanup runs once all operations have been processed.
type Engine struct {
	db       *sql.DB
	cats     *store.CategoryStore
	items    *store.ItemStore
	orders   *store.OrderStore
	activity *store.ActivityStore
	logger   *slog.Logger
	now      func() time.Time

	// Pushes from the same user are serialized so two devices syncing at
	// once cannot race each other's orphan cleanup.
	locks stdsync.Map // userID -> *stdsync.Mutex
}

func NewEngine(db *sql.DB, logger *slog.Logger) *Engine {
	return &Engine{
		db:       db,
		cats:     store.NewCategoryStore(db),
		items:    store.NewItemStore(db),
		orders:   store.NewOrderStore(db),
		activity: store.NewActivityStore(db),
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// PushSummary is the outcome of one push batch.
type PushSummary struct {
	Results        []Result
	SuccessCount   int
	ErrorCount     int
	OrphansDeleted int
}

// txStores bundles the per-transaction store handles used while applying
// a batch.
type txStores struct {
	cats     *store.CategoryStore
	items    *store.ItemStore
	orders   *store.OrderStore
	activity *store.ActivityStore
}

func (e *Engine) lockUser(userID string) func() {
	v, _ := e.locks.LoadOrStore(userID, &stdsync.Mutex{})
	mu := v.(*stdsync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// Push applies a batch of operations for the given owner. The returned error
// is non-nil only for store-wide faults (begin/commit); per-operation
// failures are reported inside the summary.
func (e *Engine) Push(userID string, ops []Operation) (*PushSummary, error) {
	unlock := e.lockUser(userID)
	defer unlock()

	e.logger.Info("push received", "user_id", userID, "operations", len(ops))

	tx, err := e.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin push: %w", err)
	}
	defer tx.Rollback()

	st := txStores{
		cats:     e.cats.WithTx(tx),
		items:    e.items.WithTx(tx),
		orders:   e.orders.WithTx(tx),
		activity: e.activity.WithTx(tx),
	}

	summary := &PushSummary{Results: make([]Result, 0, len(ops))}

	// Local ids seen in non-delete operations, per type; these drive orphan
	// cleanup after the batch is applied.
	pushed := map[EntityType][]string{}

	for _, op := range Sequence(ops) {
		if op.Type != OpDelete {
			pushed[op.Entity] = append(pushed[op.Entity], op.LocalID)
		}

		res := e.apply(st, userID, op)
		summary.Results = append(summary.Results, res)
		if res.Success {
			summary.SuccessCount++
		} else {
			summary.ErrorCount++
			e.logger.Warn("operation failed", "operation_id", op.ID, "error", res.Error)
		}
	}

	deleted, err := e.cleanupOrphans(st, userID, pushed)
	if err != nil {
		return nil, err
	}
	summary.OrphansDeleted = deleted

	details := fmt.Sprintf("%d succeeded, %d failed, %d orphans deleted",
		summary.SuccessCount, summary.ErrorCount, summary.OrphansDeleted)
	if err := st.activity.Record(&model.ActivityLog{
		UserID:   userID,
		Action:   model.ActivitySyncPush,
		ItemName: "Sync Push",
		Details:  &details,
	}); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit push: %w", err)
	}

	e.logger.Info("push complete", "user_id", userID,
		"succeeded", summary.SuccessCount, "failed", summary.ErrorCount,
		"orphans_deleted", summary.OrphansDeleted)
	return summary, nil
}

func (e *Engine) apply(st txStores, userID string, op Operation) Result {
	var (
		res Result
		err error
	)
	switch op.Entity {
	case EntityCategory:
		res, err = e.applyCategory(st, userID, op)
	case EntityItem:
		res, err = e.applyItem(st, userID, op)
	case EntityOrder:
		res, err = e.applyOrder(st, userID, op)
	default:
		return Result{
			OperationID: op.ID,
			EntityID:    op.EntityID,
			Error:       fmt.Sprintf("unknown entity type: %s", op.Entity),
		}
	}
	if err != nil {
		// A failed operation is contained: it is reported in the results and
		// the rest of the batch keeps going.
		return Result{OperationID: op.ID, EntityID: op.EntityID, Error: err.Error()}
	}
	return res
}

// --- Category ---

func (e *Engine) applyCategory(st txStores, userID string, op Operation) (Result, error) {
	switch op.Type {
	case OpCreate:
		p, err := decodeCategoryPayload(op.Data)
		if err != nil {
			return Result{}, err
		}

		existing, err := st.cats.GetByLocalID(userID, op.LocalID)
		if err != nil {
			return Result{}, err
		}
		if existing != nil {
			// Idempotent re-push: update the record already bound to this
			// local id.
			applyCategoryPayload(existing, p)
			if _, err := st.cats.Update(existing); err != nil {
				return Result{}, err
			}
			return Result{OperationID: op.ID, Success: true, EntityID: op.EntityID, ServerID: existing.ID}, nil
		}

		localID := op.LocalID
		cat := &model.Category{
			UserID:       userID,
			Name:         strDefault(p.Name, "Untitled"),
			Description:  p.Description,
			DisplayOrder: intDefault(p.DisplayOrder, 0),
			IsDefault:    boolDefault(p.IsDefault, false),
			LocalID:      &localID,
		}
		created, err := st.cats.Create(cat)
		if err != nil {
			return Result{}, err
		}
		e.logger.Debug("category created", "id", created.ID, "local_id", op.LocalID)
		return Result{OperationID: op.ID, Success: true, EntityID: op.EntityID, ServerID: created.ID}, nil

	case OpUpdate:
		cat, err := st.cats.Resolve(userID, op.EntityID, op.LocalID)
		if err != nil {
			return Result{}, err
		}
		if cat == nil {
			// Created offline and never synced; fall back to create.
			op.Type = OpCreate
			return e.applyCategory(st, userID, op)
		}
		p, err := decodeCategoryPayload(op.Data)
		if err != nil {
			return Result{}, err
		}
		applyCategoryPayload(cat, p)
		if _, err := st.cats.Update(cat); err != nil {
			return Result{}, err
		}
		return Result{OperationID: op.ID, Success: true, EntityID: op.EntityID, ServerID: cat.ID}, nil

	case OpDelete:
		cat, err := st.cats.Resolve(userID, op.EntityID, op.LocalID)
		if err != nil {
			return Result{}, err
		}
		if cat != nil {
			if err := st.cats.Delete(userID, cat.ID); err != nil {
				return Result{}, err
			}
			e.logger.Debug("category deleted", "local_id", op.LocalID)
		}
		// Deleting an already-absent record still succeeds.
		return Result{OperationID: op.ID, Success: true, EntityID: op.EntityID}, nil
	}

	return Result{OperationID: op.ID, EntityID: op.EntityID,
		Error: fmt.Sprintf("unknown operation type: %s", op.Type)}, nil
}

func applyCategoryPayload(c *model.Category, p *CategoryPayload) {
	if p.Name != nil {
		c.Name = *p.Name
	}
	if p.Description != nil {
		c.Description = p.Description
	}
	if p.DisplayOrder != nil {
		c.DisplayOrder = *p.DisplayOrder
	}
	if p.IsDefault != nil {
		c.IsDefault = *p.IsDefault
	}
}

// --- Item ---

func (e *Engine) applyItem(st txStores, userID string, op Operation) (Result, error) {
	switch op.Type {
	case OpCreate:
		p, err := decodeItemPayload(op.Data)
		if err != nil {
			return Result{}, err
		}

		existing, err := st.items.GetByLocalID(userID, op.LocalID)
		if err != nil {
			return Result{}, err
		}
		if existing != nil {
			if err := e.applyItemPayload(st, userID, existing, p); err != nil {
				return Result{}, err
			}
			if _, err := st.items.Update(existing); err != nil {
				return Result{}, err
			}
			return Result{OperationID: op.ID, Success: true, EntityID: op.EntityID, ServerID: existing.ID}, nil
		}

		// A new item must land in a resolvable category; storing it dangling
		// would corrupt the pull snapshot.
		if p.CategoryID == nil || *p.CategoryID == "" {
			return Result{OperationID: op.ID, EntityID: op.EntityID,
				Error: "item has no category reference"}, nil
		}
		cat, err := st.cats.Resolve(userID, *p.CategoryID, *p.CategoryID)
		if err != nil {
			return Result{}, err
		}
		if cat == nil {
			return Result{OperationID: op.ID, EntityID: op.EntityID,
				Error: fmt.Sprintf("category %q not found for item %q", *p.CategoryID, strDefault(p.Name, "Untitled"))}, nil
		}

		localID := op.LocalID
		item := &model.Item{
			UserID:          userID,
			CategoryID:      cat.ID,
			Name:            strDefault(p.Name, "Untitled"),
			Quantity:        intDefault(p.Quantity, 0),
			Unit:            strDefault(p.Unit, "pieces"),
			MinimumStock:    intDefault(p.MinimumStock, 0),
			Description:     p.Description,
			ExpiryDate:      p.ExpiryDate,
			Brand:           p.Brand,
			Notes:           p.Notes,
			SupplierName:    p.SupplierName,
			SupplierContact: p.SupplierContact,
			PurchaseLink:    p.PurchaseLink,
			ImageURI:        p.ImageURI,
			IsActive:        boolDefault(p.IsActive, true),
			IsCritical:      boolDefault(p.IsCritical, false),
			LocalID:         &localID,
		}
		created, err := st.items.Create(item)
		if err != nil {
			return Result{}, err
		}
		e.logger.Debug("item created", "id", created.ID, "local_id", op.LocalID)
		return Result{OperationID: op.ID, Success: true, EntityID: op.EntityID, ServerID: created.ID}, nil

	case OpUpdate:
		item, err := st.items.Resolve(userID, op.EntityID, op.LocalID)
		if err != nil {
			return Result{}, err
		}
		if item == nil {
			op.Type = OpCreate
			return e.applyItem(st, userID, op)
		}
		p, err := decodeItemPayload(op.Data)
		if err != nil {
			return Result{}, err
		}
		if err := e.applyItemPayload(st, userID, item, p); err != nil {
			return Result{}, err
		}
		if _, err := st.items.Update(item); err != nil {
			return Result{}, err
		}
		return Result{OperationID: op.ID, Success: true, EntityID: op.EntityID, ServerID: item.ID}, nil

	case OpDelete:
		item, err := st.items.Resolve(userID, op.EntityID, op.LocalID)
		if err != nil {
			return Result{}, err
		}
		if item != nil {
			if err := st.items.Delete(userID, item.ID); err != nil {
				return Result{}, err
			}
			e.logger.Debug("item deleted", "local_id", op.LocalID)
		}
		return Result{OperationID: op.ID, Success: true, EntityID: op.EntityID}, nil
	}

	return Result{OperationID: op.ID, EntityID: op.EntityID,
		Error: fmt.Sprintf("unknown operation type: %s", op.Type)}, nil
}

// applyItemPayload copies present payload fields onto an existing item. The
// category link only moves when the new reference resolves; an existing link
// is never broken by an unresolvable one.
func (e *Engine) applyItemPayload(st txStores, userID string, item *model.Item, p *ItemPayload) error {
	if p.CategoryID != nil && *p.CategoryID != "" {
		cat, err := st.cats.Resolve(userID, *p.CategoryID, *p.CategoryID)
		if err != nil {
			return err
		}
		if cat != nil {
			item.CategoryID = cat.ID
		}
	}
	if p.Name != nil {
		item.Name = *p.Name
	}
	if p.Description != nil {
		item.Description = p.Description
	}
	if p.Quantity != nil {
		item.Quantity = *p.Quantity
	}
	if p.Unit != nil {
		item.Unit = *p.Unit
	}
	if p.MinimumStock != nil {
		item.MinimumStock = *p.MinimumStock
	}
	if p.ExpiryDate != nil {
		item.ExpiryDate = p.ExpiryDate
	}
	if p.Brand != nil {
		item.Brand = p.Brand
	}
	if p.Notes != nil {
		item.Notes = p.Notes
	}
	if p.SupplierName != nil {
		item.SupplierName = p.SupplierName
	}
	if p.SupplierContact != nil {
		item.SupplierContact = p.SupplierContact
	}
	if p.PurchaseLink != nil {
		item.PurchaseLink = p.PurchaseLink
	}
	if p.ImageURI != nil {
		item.ImageURI = p.ImageURI
	}
	if p.IsActive != nil {
		item.IsActive = *p.IsActive
	}
	if p.IsCritical != nil {
		item.IsCritical = *p.IsCritical
	}
	return nil
}

// --- Order ---

func (e *Engine) applyOrder(st txStores, userID string, op Operation) (Result, error) {
	switch op.Type {
	case OpCreate:
		p, err := decodeOrderPayload(op.Data)
		if err != nil {
			return Result{}, err
		}

		existing, err := st.orders.GetByLocalID(userID, op.LocalID)
		if err != nil {
			return Result{}, err
		}
		if existing == nil && p.Code != nil && *p.Code != "" {
			// The client may have generated its own order code.
			existing, err = st.orders.GetByCode(userID, *p.Code)
			if err != nil {
				return Result{}, err
			}
		}

		if existing != nil {
			return e.updateOrderInPlace(st, existing, p, op)
		}

		code := strDefault(p.Code, fallbackOrderCode(op.LocalID))
		taken, err := st.orders.CodeExists(code)
		if err != nil {
			return Result{}, err
		}
		if taken {
			// Order codes are globally unique across owners; derive a
			// disambiguated code rather than failing the operation.
			disambiguated := store.DisambiguateCode(code, userID)
			e.logger.Warn("order code collision", "code", code, "disambiguated", disambiguated)
			code = disambiguated
		}

		status := model.OrderPending
		if p.Status != nil {
			if !model.ValidOrderStatus(*p.Status) {
				return Result{OperationID: op.ID, EntityID: op.EntityID,
					Error: fmt.Sprintf("invalid order status: %s", *p.Status)}, nil
			}
			status = model.OrderStatus(*p.Status)
		}

		exportedAt := parseTime(p.ExportedAt)
		if exportedAt == nil {
			now := e.now()
			exportedAt = &now
		}

		localID := op.LocalID
		order := &model.Order{
			UserID:     userID,
			Code:       code,
			TotalItems: intDefault(p.TotalItems, 0),
			TotalUnits: intDefault(p.TotalUnits, 0),
			Status:     status,
			ExportedAt: *exportedAt,
			OrderedAt:  parseTime(p.OrderedAt),
			ReceivedAt: parseTime(p.ReceivedAt),
			AppliedAt:  parseTime(p.AppliedAt),
			DeclinedAt: parseTime(p.DeclinedAt),
			Notes:      p.Notes,
			LocalID:    &localID,
			Items:      orderLinesFromPayload(p.Items),
		}
		created, err := st.orders.Create(order)
		if err != nil {
			return Result{}, err
		}
		e.logger.Debug("order created", "id", created.ID, "code", created.Code,
			"line_items", len(created.Items))
		return Result{OperationID: op.ID, Success: true, EntityID: op.EntityID, ServerID: created.ID}, nil

	case OpUpdate:
		// Upsert semantics: the create path already resolves existing orders.
		op.Type = OpCreate
		return e.applyOrder(st, userID, op)

	case OpDelete:
		order, err := st.orders.Resolve(userID, op.EntityID, op.LocalID)
		if err != nil {
			return Result{}, err
		}
		if order != nil {
			if err := st.orders.Delete(userID, order.ID); err != nil {
				return Result{}, err
			}
			e.logger.Debug("order deleted", "local_id", op.LocalID)
		}
		return Result{OperationID: op.ID, Success: true, EntityID: op.EntityID}, nil
	}

	return Result{OperationID: op.ID, EntityID: op.EntityID,
		Error: fmt.Sprintf("unknown operation type: %s", op.Type)}, nil
}

func (e *Engine) updateOrderInPlace(st txStores, order *model.Order, p *OrderPayload, op Operation) (Result, error) {
	if p.Status != nil {
		if !model.ValidOrderStatus(*p.Status) {
			return Result{OperationID: op.ID, EntityID: op.EntityID,
				Error: fmt.Sprintf("invalid order status: %s", *p.Status)}, nil
		}
		order.Status = model.OrderStatus(*p.Status)
	}
	if p.TotalItems != nil {
		order.TotalItems = *p.TotalItems
	}
	if p.TotalUnits != nil {
		order.TotalUnits = *p.TotalUnits
	}
	if t := parseTime(p.OrderedAt); t != nil {
		order.OrderedAt = t
	}
	if t := parseTime(p.ReceivedAt); t != nil {
		order.ReceivedAt = t
	}
	if t := parseTime(p.AppliedAt); t != nil {
		order.AppliedAt = t
	}
	if t := parseTime(p.DeclinedAt); t != nil {
		order.DeclinedAt = t
	}
	if p.Notes != nil {
		order.Notes = p.Notes
	}

	if len(p.Items) > 0 {
		// Line items are replaced wholesale, never merged.
		if err := st.orders.ReplaceItems(order.ID, orderLinesFromPayload(p.Items)); err != nil {
			return Result{}, err
		}
	}
	if _, err := st.orders.Update(order); err != nil {
		return Result{}, err
	}
	return Result{OperationID: op.ID, Success: true, EntityID: op.EntityID, ServerID: order.ID}, nil
}

func orderLinesFromPayload(lines []OrderLinePayload) []model.OrderItem {
	out := make([]model.OrderItem, 0, len(lines))
	for _, l := range lines {
		itemID := strDefault(l.ItemID, strDefault(l.ID, ""))
		out = append(out, model.OrderItem{
			ItemID:       itemID,
			Name:         strDefault(l.Name, "Unknown"),
			Brand:        l.Brand,
			Unit:         strDefault(l.Unit, "pieces"),
			Quantity:     intDefault(l.Quantity, 1),
			CurrentStock: intDefault(l.CurrentStock, 0),
			MinimumStock: intDefault(l.MinimumStock, 0),
			ImageURI:     l.ImageURI,
			SupplierName: l.SupplierName,
			PurchaseLink: l.PurchaseLink,
		})
	}
	return out
}

func fallbackOrderCode(localID string) string {
	if len(localID) > 8 {
		localID = localID[:8]
	}
	return "ORD-" + localID
}

// --- Orphan cleanup ---

// cleanupOrphans deletes records the batch no longer mentions. Cleanup is
// per-type and only runs for a type that appeared in the batch, so an empty
// or unrelated push never wipes stored records. Categories that still hold
// items survive even when orphaned.
func (e *Engine) cleanupOrphans(st txStores, userID string, pushed map[EntityType][]string) (int, error) {
	deleted := 0

	if keep := pushed[EntityItem]; len(keep) > 0 {
		orphans, err := st.items.ListOrphans(userID, keep)
		if err != nil {
			return 0, err
		}
		for _, item := range orphans {
			if err := st.items.Delete(userID, item.ID); err != nil {
				return 0, err
			}
			e.logger.Info("orphan item deleted", "local_id", derefStr(item.LocalID), "name", item.Name)
			deleted++
		}
	}

	if keep := pushed[EntityCategory]; len(keep) > 0 {
		orphans, err := st.cats.ListOrphans(userID, keep)
		if err != nil {
			return 0, err
		}
		for _, cat := range orphans {
			count, err := st.items.CountByCategory(cat.ID)
			if err != nil {
				return 0, err
			}
			if count > 0 {
				// Referential safety wins over cleanup.
				continue
			}
			if err := st.cats.Delete(userID, cat.ID); err != nil {
				return 0, err
			}
			e.logger.Info("orphan category deleted", "local_id", derefStr(cat.LocalID), "name", cat.Name)
			deleted++
		}
	}

	if keep := pushed[EntityOrder]; len(keep) > 0 {
		orphans, err := st.orders.ListOrphans(userID, keep)
		if err != nil {
			return 0, err
		}
		for _, order := range orphans {
			if err := st.orders.Delete(userID, order.ID); err != nil {
				return 0, err
			}
			e.logger.Info("orphan order deleted", "local_id", derefStr(order.LocalID), "code", order.Code)
			deleted++
		}
	}

	return deleted, nil
}

func derefStr(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
