package sync

import (
	"encoding/json"
	"slices"
	"sort"
)

// OpType is the kind of mutation a client pushes.
type OpType string

const (
	OpCreate OpType = "create"
	OpUpdate OpType = "update"
	OpDelete OpType = "delete"
)

// EntityType identifies which entity an operation targets.
type EntityType string

const (
	EntityCategory EntityType = "category"
	EntityItem     EntityType = "item"
	EntityOrder    EntityType = "order"
)

// Operation is one client-originated mutation in a push batch. LocalID is the
// client-generated identifier; EntityID is the server identifier when the
// client already knows it. Data carries the entity payload and is decoded
// into a typed partial structure per entity.
type Operation struct {
	ID         string          `json:"operationId" validate:"required"`
	Type       OpType          `json:"type" validate:"required,oneof=create update delete"`
	Entity     EntityType      `json:"entity" validate:"required,oneof=category item order"`
	EntityID   string          `json:"entityId"`
	LocalID    string          `json:"localId" validate:"required"`
	Data       json.RawMessage `json:"data"`
	Timestamp  string          `json:"timestamp"`
	RetryCount int             `json:"retryCount"`
}

// Result is the per-operation outcome reported back to the client.
type Result struct {
	OperationID string `json:"operationId"`
	Success     bool   `json:"success"`
	EntityID    string `json:"entityId,omitempty"`
	ServerID    string `json:"serverId,omitempty"`
	Error       string `json:"error,omitempty"`
}

func entityPriority(e EntityType) int {
	switch e {
	case EntityCategory:
		return 0
	case EntityItem:
		return 1
	case EntityOrder:
		return 2
	}
	return 3
}

// Sequence orders a batch so that categories are applied before items and
// items before orders. Operations of equal priority keep their submission
// order, so an item created earlier in the batch can reference a category
// created in the same batch.
func Sequence(ops []Operation) []Operation {
	out := slices.Clone(ops)
	sort.SliceStable(out, func(i, j int) bool {
		return entityPriority(out[i].Entity) < entityPriority(out[j].Entity)
	})
	return out
}
