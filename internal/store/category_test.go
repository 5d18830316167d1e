package store

import (
	"testing"

	"github.com/dukerupert/vitaltrack/internal/model"
)

func TestCategoryCRUD(t *testing.T) {
	db := setupTestDB(t)
	userID := createTestUser(t, db, "cat@example.com")
	cs := NewCategoryStore(db)

	created, err := cs.Create(&model.Category{
		UserID:       userID,
		Name:         "Medications",
		Description:  strp("Daily meds"),
		DisplayOrder: 2,
	})
	if err != nil {
		t.Fatalf("create category: %v", err)
	}
	if created.ID == "" {
		t.Fatal("expected generated id")
	}
	if created.Name != "Medications" {
		t.Errorf("name = %q, want %q", created.Name, "Medications")
	}

	got, err := cs.GetByID(userID, created.ID)
	if err != nil {
		t.Fatalf("get category: %v", err)
	}
	if got == nil || got.Description == nil || *got.Description != "Daily meds" {
		t.Errorf("got = %+v, want description %q", got, "Daily meds")
	}

	got.Name = "Supplements"
	got.DisplayOrder = 5
	updated, err := cs.Update(got)
	if err != nil {
		t.Fatalf("update category: %v", err)
	}
	if updated.Name != "Supplements" || updated.DisplayOrder != 5 {
		t.Errorf("updated = %+v", updated)
	}

	if err := cs.Delete(userID, created.ID); err != nil {
		t.Fatalf("delete category: %v", err)
	}
	got, err = cs.GetByID(userID, created.ID)
	if err != nil {
		t.Fatalf("get after delete: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil after delete, got %+v", got)
	}
}

func TestCategoryOwnerScoping(t *testing.T) {
	db := setupTestDB(t)
	alice := createTestUser(t, db, "alice@example.com")
	bob := createTestUser(t, db, "bob@example.com")
	cs := NewCategoryStore(db)

	created, err := cs.Create(&model.Category{UserID: alice, Name: "Private"})
	if err != nil {
		t.Fatalf("create category: %v", err)
	}

	got, err := cs.GetByID(bob, created.ID)
	if err != nil {
		t.Fatalf("cross-owner get: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil for other owner, got %+v", got)
	}
}

func TestCategoryResolve(t *testing.T) {
	db := setupTestDB(t)
	userID := createTestUser(t, db, "resolve@example.com")
	cs := NewCategoryStore(db)

	created, err := cs.Create(&model.Category{
		UserID:  userID,
		Name:    "Vitamins",
		LocalID: strp("local-cat-1"),
	})
	if err != nil {
		t.Fatalf("create category: %v", err)
	}

	// Server id wins.
	got, err := cs.Resolve(userID, created.ID, "local-cat-1")
	if err != nil || got == nil {
		t.Fatalf("resolve by server id: %v, %+v", err, got)
	}

	// Falls back to local id when the server id is unknown.
	got, err = cs.Resolve(userID, "no-such-id", "local-cat-1")
	if err != nil {
		t.Fatalf("resolve by local id: %v", err)
	}
	if got == nil || got.ID != created.ID {
		t.Errorf("resolve by local id = %+v, want id %s", got, created.ID)
	}

	got, err = cs.Resolve(userID, "no-such-id", "no-such-local")
	if err != nil {
		t.Fatalf("resolve miss: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil for unknown ids, got %+v", got)
	}
}

func TestCategoryListOrphans(t *testing.T) {
	db := setupTestDB(t)
	userID := createTestUser(t, db, "orphans@example.com")
	cs := NewCategoryStore(db)

	mustCreate := func(name string, localID *string) *model.Category {
		t.Helper()
		c, err := cs.Create(&model.Category{UserID: userID, Name: name, LocalID: localID})
		if err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
		return c
	}
	mustCreate("Kept", strp("keep-1"))
	orphan := mustCreate("Orphan", strp("gone-1"))
	mustCreate("ServerOnly", nil)

	orphans, err := cs.ListOrphans(userID, []string{"keep-1"})
	if err != nil {
		t.Fatalf("list orphans: %v", err)
	}
	if len(orphans) != 1 || orphans[0].ID != orphan.ID {
		t.Errorf("orphans = %+v, want only %s", orphans, orphan.ID)
	}

	// An empty keep set never reports orphans.
	orphans, err = cs.ListOrphans(userID, nil)
	if err != nil {
		t.Fatalf("list orphans empty keep: %v", err)
	}
	if len(orphans) != 0 {
		t.Errorf("expected no orphans for empty keep, got %+v", orphans)
	}
}
