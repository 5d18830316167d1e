package store

import (
	"database/sql"
	"testing"

	"github.com/dukerupert/vitaltrack/internal/model"
)

func createTestCategory(t *testing.T, db *sql.DB, userID, name string) *model.Category {
	t.Helper()
	cat, err := NewCategoryStore(db).Create(&model.Category{UserID: userID, Name: name})
	if err != nil {
		t.Fatalf("create test category: %v", err)
	}
	return cat
}

func TestItemCRUD(t *testing.T) {
	db := setupTestDB(t)
	userID := createTestUser(t, db, "item@example.com")
	cat := createTestCategory(t, db, userID, "Medications")
	is := NewItemStore(db)

	created, err := is.Create(&model.Item{
		UserID:       userID,
		CategoryID:   cat.ID,
		Name:         "Ibuprofen",
		Quantity:     20,
		Unit:         "tablets",
		MinimumStock: 10,
		Brand:        strp("Generic"),
		IsActive:     true,
	})
	if err != nil {
		t.Fatalf("create item: %v", err)
	}
	if created.ID == "" || created.Quantity != 20 {
		t.Fatalf("created = %+v", created)
	}

	got, err := is.GetByID(userID, created.ID)
	if err != nil {
		t.Fatalf("get item: %v", err)
	}
	if got.Brand == nil || *got.Brand != "Generic" {
		t.Errorf("brand = %v, want Generic", got.Brand)
	}
	if !got.IsActive {
		t.Error("expected item active")
	}

	got.Quantity = 5
	got.Notes = strp("running low")
	updated, err := is.Update(got)
	if err != nil {
		t.Fatalf("update item: %v", err)
	}
	if updated.Quantity != 5 || updated.Notes == nil || *updated.Notes != "running low" {
		t.Errorf("updated = %+v", updated)
	}

	if err := is.Delete(userID, created.ID); err != nil {
		t.Fatalf("delete item: %v", err)
	}
	got, err = is.GetByID(userID, created.ID)
	if err != nil {
		t.Fatalf("get after delete: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil after delete, got %+v", got)
	}
}

func TestItemListByCategory(t *testing.T) {
	db := setupTestDB(t)
	userID := createTestUser(t, db, "bycat@example.com")
	meds := createTestCategory(t, db, userID, "Medications")
	food := createTestCategory(t, db, userID, "Food")
	is := NewItemStore(db)

	for _, spec := range []struct {
		name  string
		catID string
	}{
		{"Aspirin", meds.ID},
		{"Bandages", meds.ID},
		{"Rice", food.ID},
	} {
		if _, err := is.Create(&model.Item{
			UserID: userID, CategoryID: spec.catID, Name: spec.name, Unit: "pieces", IsActive: true,
		}); err != nil {
			t.Fatalf("create %s: %v", spec.name, err)
		}
	}

	items, err := is.ListByCategory(userID, meds.ID)
	if err != nil {
		t.Fatalf("list by category: %v", err)
	}
	if len(items) != 2 {
		t.Errorf("got %d items in category, want 2", len(items))
	}

	count, err := is.CountByCategory(food.ID)
	if err != nil {
		t.Fatalf("count by category: %v", err)
	}
	if count != 1 {
		t.Errorf("count = %d, want 1", count)
	}
}

func TestItemCategoryCascade(t *testing.T) {
	db := setupTestDB(t)
	userID := createTestUser(t, db, "cascade@example.com")
	cat := createTestCategory(t, db, userID, "Doomed")
	is := NewItemStore(db)

	item, err := is.Create(&model.Item{
		UserID: userID, CategoryID: cat.ID, Name: "Orphan-to-be", Unit: "pieces", IsActive: true,
	})
	if err != nil {
		t.Fatalf("create item: %v", err)
	}

	if err := NewCategoryStore(db).Delete(userID, cat.ID); err != nil {
		t.Fatalf("delete category: %v", err)
	}

	got, err := is.GetByID(userID, item.ID)
	if err != nil {
		t.Fatalf("get item: %v", err)
	}
	if got != nil {
		t.Errorf("expected item removed by cascade, got %+v", got)
	}
}

func TestItemListOrphans(t *testing.T) {
	db := setupTestDB(t)
	userID := createTestUser(t, db, "itemorphans@example.com")
	cat := createTestCategory(t, db, userID, "Medications")
	is := NewItemStore(db)

	mustCreate := func(name string, localID *string) *model.Item {
		t.Helper()
		it, err := is.Create(&model.Item{
			UserID: userID, CategoryID: cat.ID, Name: name, Unit: "pieces",
			IsActive: true, LocalID: localID,
		})
		if err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
		return it
	}
	mustCreate("Kept", strp("keep-1"))
	orphan := mustCreate("Orphan", strp("gone-1"))
	mustCreate("ServerOnly", nil)

	orphans, err := is.ListOrphans(userID, []string{"keep-1"})
	if err != nil {
		t.Fatalf("list orphans: %v", err)
	}
	if len(orphans) != 1 || orphans[0].ID != orphan.ID {
		t.Errorf("orphans = %+v, want only %s", orphans, orphan.ID)
	}
}
