package model

import "time"

// ActivityAction identifies what kind of event an activity log entry records.
type ActivityAction string

const (
	ActivityItemCreate    ActivityAction = "item_create"
	ActivityItemUpdate    ActivityAction = "item_update"
	ActivityItemDelete    ActivityAction = "item_delete"
	ActivityStockUpdate   ActivityAction = "stock_update"
	ActivityOrderCreated  ActivityAction = "order_created"
	ActivityOrderReceived ActivityAction = "order_received"
	ActivityOrderDeclined ActivityAction = "order_declined"
	ActivityOrderApplied  ActivityAction = "order_applied"
	ActivitySyncPush      ActivityAction = "sync_push"
	ActivitySyncPull      ActivityAction = "sync_pull"
	ActivityUserRegister  ActivityAction = "user_register"
	ActivityUserLogin     ActivityAction = "user_login"
)

// ActivityLog is a persisted audit entry.
type ActivityLog struct {
	ID        string         `json:"id"`
	UserID    string         `json:"userId"`
	Action    ActivityAction `json:"action"`
	ItemName  string         `json:"itemName"`
	ItemID    *string        `json:"itemId"`
	OrderCode *string        `json:"orderCode"`
	Details   *string        `json:"details"`
	CreatedAt time.Time      `json:"createdAt"`
}
