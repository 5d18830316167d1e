package store

import (
	"strings"
	"testing"
	"time"

	"github.com/dukerupert/vitaltrack/internal/model"
)

func TestGenerateCode(t *testing.T) {
	now := time.Date(2026, 8, 30, 14, 0, 0, 0, time.UTC)

	if got := GenerateCode(now, 0); got != "ORD-20260830-0001" {
		t.Errorf("GenerateCode(0) = %q, want ORD-20260830-0001", got)
	}
	if got := GenerateCode(now, 41); got != "ORD-20260830-0042" {
		t.Errorf("GenerateCode(41) = %q, want ORD-20260830-0042", got)
	}
}

func TestDisambiguateCode(t *testing.T) {
	code := DisambiguateCode("ORD-20260830-0001", "abcdef12-3456")

	if !strings.HasPrefix(code, "ORD-20260830-0001-abcd-") {
		t.Errorf("code = %q, want prefix ORD-20260830-0001-abcd-", code)
	}
	if code == DisambiguateCode("ORD-20260830-0001", "abcdef12-3456") {
		t.Error("expected random suffix to differ between calls")
	}
}

func testOrder(userID, code string) *model.Order {
	return &model.Order{
		UserID:     userID,
		Code:       code,
		TotalItems: 2,
		TotalUnits: 7,
		Status:     model.OrderPending,
		ExportedAt: time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC),
		Items: []model.OrderItem{
			{ItemID: "item-1", Name: "Aspirin", Unit: "tablets", Quantity: 5, CurrentStock: 2, MinimumStock: 10},
			{ItemID: "item-2", Name: "Bandages", Unit: "boxes", Quantity: 2, CurrentStock: 0, MinimumStock: 3},
		},
	}
}

func TestOrderCreateAndGet(t *testing.T) {
	db := setupTestDB(t)
	userID := createTestUser(t, db, "order@example.com")
	os := NewOrderStore(db)

	created, err := os.Create(testOrder(userID, "ORD-20260830-0001"))
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	if created.Code != "ORD-20260830-0001" {
		t.Errorf("code = %q", created.Code)
	}
	if len(created.Items) != 2 {
		t.Fatalf("got %d line items, want 2", len(created.Items))
	}
	if created.Items[0].Name != "Aspirin" || created.Items[0].Quantity != 5 {
		t.Errorf("line[0] = %+v", created.Items[0])
	}

	byCode, err := os.GetByCode(userID, "ORD-20260830-0001")
	if err != nil {
		t.Fatalf("get by code: %v", err)
	}
	if byCode == nil || byCode.ID != created.ID {
		t.Errorf("get by code = %+v, want id %s", byCode, created.ID)
	}
}

func TestOrderCodeGlobalUniqueness(t *testing.T) {
	db := setupTestDB(t)
	alice := createTestUser(t, db, "alice-ord@example.com")
	bob := createTestUser(t, db, "bob-ord@example.com")
	os := NewOrderStore(db)

	if _, err := os.Create(testOrder(alice, "ORD-20260830-0001")); err != nil {
		t.Fatalf("create order: %v", err)
	}

	// The code space spans all owners.
	taken, err := os.CodeExists("ORD-20260830-0001")
	if err != nil {
		t.Fatalf("code exists: %v", err)
	}
	if !taken {
		t.Error("expected code to be taken globally")
	}

	// Bob cannot see Alice's order, even by its code.
	got, err := os.GetByCode(bob, "ORD-20260830-0001")
	if err != nil {
		t.Fatalf("cross-owner get by code: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil for other owner, got %+v", got)
	}
}

func TestOrderReplaceItems(t *testing.T) {
	db := setupTestDB(t)
	userID := createTestUser(t, db, "replace@example.com")
	os := NewOrderStore(db)

	created, err := os.Create(testOrder(userID, "ORD-20260830-0001"))
	if err != nil {
		t.Fatalf("create order: %v", err)
	}

	err = os.ReplaceItems(created.ID, []model.OrderItem{
		{ItemID: "item-3", Name: "Gauze", Unit: "rolls", Quantity: 4, CurrentStock: 1, MinimumStock: 2},
	})
	if err != nil {
		t.Fatalf("replace items: %v", err)
	}

	got, err := os.GetByID(userID, created.ID)
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if len(got.Items) != 1 || got.Items[0].Name != "Gauze" {
		t.Errorf("items = %+v, want single Gauze line", got.Items)
	}
}

func TestOrderCountExportedSince(t *testing.T) {
	db := setupTestDB(t)
	userID := createTestUser(t, db, "count@example.com")
	os := NewOrderStore(db)

	o1 := testOrder(userID, "ORD-20260830-0001")
	o1.ExportedAt = time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC)
	o2 := testOrder(userID, "ORD-20260830-0002")
	o2.ExportedAt = time.Date(2026, 8, 29, 9, 0, 0, 0, time.UTC)
	for _, o := range []*model.Order{o1, o2} {
		if _, err := os.Create(o); err != nil {
			t.Fatalf("create order: %v", err)
		}
	}

	count, err := os.CountExportedSince(userID, time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("count exported: %v", err)
	}
	if count != 1 {
		t.Errorf("count = %d, want 1", count)
	}
}

func TestOrderDeleteRemovesLines(t *testing.T) {
	db := setupTestDB(t)
	userID := createTestUser(t, db, "del@example.com")
	os := NewOrderStore(db)

	created, err := os.Create(testOrder(userID, "ORD-20260830-0001"))
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	if err := os.Delete(userID, created.ID); err != nil {
		t.Fatalf("delete order: %v", err)
	}

	var lines int
	if err := db.QueryRow(`SELECT COUNT(*) FROM order_items WHERE order_id = ?`, created.ID).Scan(&lines); err != nil {
		t.Fatalf("count lines: %v", err)
	}
	if lines != 0 {
		t.Errorf("got %d leftover line items, want 0", lines)
	}
}

func TestOrderListOrphans(t *testing.T) {
	db := setupTestDB(t)
	userID := createTestUser(t, db, "ordorphans@example.com")
	os := NewOrderStore(db)

	kept := testOrder(userID, "ORD-20260830-0001")
	kept.LocalID = strp("keep-1")
	gone := testOrder(userID, "ORD-20260830-0002")
	gone.LocalID = strp("gone-1")
	server := testOrder(userID, "ORD-20260830-0003")

	for _, o := range []*model.Order{kept, gone, server} {
		if _, err := os.Create(o); err != nil {
			t.Fatalf("create order %s: %v", o.Code, err)
		}
	}

	orphans, err := os.ListOrphans(userID, []string{"keep-1"})
	if err != nil {
		t.Fatalf("list orphans: %v", err)
	}
	if len(orphans) != 1 || orphans[0].Code != "ORD-20260830-0002" {
		t.Errorf("orphans = %+v, want only ORD-20260830-0002", orphans)
	}
}
