package store

import (
	"database/sql"
	"testing"

	"github.com/mhutchens/chorebank/internal/database"
	"github.com/mhutchens/chorebank/internal/model"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// seedFamily creates a family with one parent and two children.
func seedFamily(t *testing.T, db *sql.DB) (*model.Family, *model.User, *model.User, *model.User) {
	t.Helper()
	families := NewFamilyStore(db)
	users := NewUserStore(db)

	family, err := families.Create("Hutchens")
	if err != nil {
		t.Fatalf("create family: %v", err)
	}
	parent, err := users.Create(family.ID, "Morgan", model.RoleParent)
	if err != nil {
		t.Fatalf("create parent: %v", err)
	}
	childA, err := users.Create(family.ID, "Avery", model.RoleChild)
	if err != nil {
		t.Fatalf("create child A: %v", err)
	}
	childB, err := users.Create(family.ID, "Blake", model.RoleChild)
	if err != nil {
		t.Fatalf("create child B: %v", err)
	}
	return family, parent, childA, childB
}

func seedTemplate(t *testing.T, db *sql.DB, familyID, createdBy int64, mode string) *model.ChoreTemplate {
	t.Helper()
	templates := NewTemplateStore(db)
	tmpl, err := templates.Create(familyID, createdBy, "Dishes", "", model.RewardFixed, 10, 0, 0, true, 1, mode)
	if err != nil {
		t.Fatalf("create template: %v", err)
	}
	return tmpl
}
