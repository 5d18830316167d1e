package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dukerupert/vitaltrack/internal/auth"
	"github.com/dukerupert/vitaltrack/internal/database"
	"github.com/dukerupert/vitaltrack/internal/store"
	"github.com/dukerupert/vitaltrack/internal/sync"
)

func setupSyncTest(t *testing.T) (*SyncHandler, string) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	user, err := store.NewUserStore(db).Create("sync@example.com", "hashed", nil, nil)
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	engine := sync.NewEngine(db, discardLogger())
	return NewSyncHandler(engine, nil, discardLogger()), user.ID
}

func syncRequest(t *testing.T, userID, method, path string, body any) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	r := httptest.NewRequest(method, path, &buf)
	return r.WithContext(auth.WithUser(r.Context(), auth.Context{UserID: userID, Email: "sync@example.com"}))
}

func TestSyncPushEndpoint(t *testing.T) {
	h, userID := setupSyncTest(t)

	body := map[string]any{
		"operations": []map[string]any{
			{
				"operationId": "op-1",
				"type":        "create",
				"entity":      "category",
				"localId":     "local-cat-1",
				"data":        map[string]any{"name": "Medications"},
			},
			{
				"operationId": "op-2",
				"type":        "create",
				"entity":      "item",
				"localId":     "local-item-1",
				"data":        map[string]any{"categoryId": "local-cat-1", "name": "Aspirin"},
			},
		},
	}

	rec := httptest.NewRecorder()
	h.Push(rec, syncRequest(t, userID, http.MethodPost, "/api/v1/sync/push", body))
	if rec.Code != http.StatusOK {
		t.Fatalf("push status = %d, body = %s", rec.Code, rec.Body)
	}

	var resp pushResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.SuccessCount != 2 || resp.ErrorCount != 0 {
		t.Errorf("response = %+v", resp)
	}
	if len(resp.Results) != 2 {
		t.Fatalf("got %d results, want 2", len(resp.Results))
	}
	for _, res := range resp.Results {
		if !res.Success || res.ServerID == "" {
			t.Errorf("result = %+v, want success with server id", res)
		}
	}
}

func TestSyncPushRejectsMalformedOperation(t *testing.T) {
	h, userID := setupSyncTest(t)

	// Operation without an id fails validation before touching the engine.
	body := map[string]any{
		"operations": []map[string]any{
			{"type": "create", "entity": "category", "localId": "x"},
		},
	}

	rec := httptest.NewRecorder()
	h.Push(rec, syncRequest(t, userID, http.MethodPost, "/api/v1/sync/push", body))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestSyncPullEndpoint(t *testing.T) {
	h, userID := setupSyncTest(t)

	rec := httptest.NewRecorder()
	h.Pull(rec, syncRequest(t, userID, http.MethodGet, "/api/v1/sync/pull", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("pull status = %d, body = %s", rec.Code, rec.Body)
	}

	var snap sync.Snapshot
	if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if snap.Categories == nil || snap.Items == nil || snap.Orders == nil || snap.DeletedIDs == nil {
		t.Error("snapshot fields must encode as arrays, not null")
	}
	if snap.HasMore {
		t.Error("hasMore must be false")
	}
}

func TestSyncFullEndpoint(t *testing.T) {
	h, userID := setupSyncTest(t)

	body := map[string]any{
		"operations": []map[string]any{
			{
				"operationId": "op-1",
				"type":        "create",
				"entity":      "category",
				"localId":     "local-cat-1",
				"data":        map[string]any{"name": "Medications"},
			},
		},
	}

	rec := httptest.NewRecorder()
	h.Full(rec, syncRequest(t, userID, http.MethodPost, "/api/v1/sync/full", body))
	if rec.Code != http.StatusOK {
		t.Fatalf("full status = %d, body = %s", rec.Code, rec.Body)
	}

	var resp fullSyncResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Push.SuccessCount != 1 {
		t.Errorf("push = %+v", resp.Push)
	}
	if len(resp.Snapshot.Categories) != 1 || resp.Snapshot.Categories[0].Name != "Medications" {
		t.Errorf("snapshot categories = %+v", resp.Snapshot.Categories)
	}
}
