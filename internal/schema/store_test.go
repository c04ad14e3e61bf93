package schema

import (
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	if err := db.AutoMigrate(&Keyspace{}, &Table{}, &Column{}); err != nil {
		t.Fatalf("auto-migrate: %v", err)
	}
	return &Store{db: db}
}

func TestUpdateKeyspaces_ReplacesHostSchema(t *testing.T) {
	s := newTestStore(t)

	err := s.UpdateKeyspaces("10.0.0.1",
		[]KeyspaceRow{{Name: "system"}, {Name: "app"}},
		[]TableRow{{Keyspace: "app", Name: "users"}},
		[]ColumnRow{{Keyspace: "app", Table: "users", Name: "id", Type: "uuid"}},
	)
	if err != nil {
		t.Fatalf("UpdateKeyspaces: %v", err)
	}

	var ksCount int64
	s.db.Model(&Keyspace{}).Where("host = ?", "10.0.0.1").Count(&ksCount)
	if ksCount != 2 {
		t.Fatalf("expected 2 keyspaces, got %d", ksCount)
	}

	// A second full refresh with fewer keyspaces must drop the stale one.
	if err := s.UpdateKeyspaces("10.0.0.1", []KeyspaceRow{{Name: "system"}}, nil, nil); err != nil {
		t.Fatalf("UpdateKeyspaces (second): %v", err)
	}
	s.db.Model(&Keyspace{}).Where("host = ?", "10.0.0.1").Count(&ksCount)
	if ksCount != 1 {
		t.Fatalf("expected 1 keyspace after replacement, got %d", ksCount)
	}

	var tblCount int64
	s.db.Model(&Table{}).Where("host = ?", "10.0.0.1").Count(&tblCount)
	if tblCount != 0 {
		t.Fatalf("expected tables dropped with keyspace, got %d", tblCount)
	}
}

func TestUpdateKeyspace_ScopedToOneKeyspace(t *testing.T) {
	s := newTestStore(t)
	if err := s.UpdateKeyspaces("10.0.0.1",
		[]KeyspaceRow{{Name: "app"}, {Name: "other"}},
		[]TableRow{{Keyspace: "app", Name: "users"}, {Keyspace: "other", Name: "widgets"}},
		nil,
	); err != nil {
		t.Fatalf("seed: %v", err)
	}

	if err := s.UpdateKeyspace("10.0.0.1", KeyspaceRow{Name: "app"}, []TableRow{{Keyspace: "app", Name: "orders"}}, nil); err != nil {
		t.Fatalf("UpdateKeyspace: %v", err)
	}

	var appTables []Table
	s.db.Where("host = ? AND keyspace = ?", "10.0.0.1", "app").Find(&appTables)
	if len(appTables) != 1 || appTables[0].Name != "orders" {
		t.Fatalf("expected app tables replaced with [orders], got %+v", appTables)
	}

	var otherTables []Table
	s.db.Where("host = ? AND keyspace = ?", "10.0.0.1", "other").Find(&otherTables)
	if len(otherTables) != 1 || otherTables[0].Name != "widgets" {
		t.Fatalf("expected other keyspace untouched, got %+v", otherTables)
	}
}

func TestUpdateTable_ReplacesOnlyItsColumns(t *testing.T) {
	s := newTestStore(t)
	if err := s.UpdateKeyspaces("10.0.0.1",
		[]KeyspaceRow{{Name: "app"}},
		[]TableRow{{Keyspace: "app", Name: "users"}},
		[]ColumnRow{{Keyspace: "app", Table: "users", Name: "id"}},
	); err != nil {
		t.Fatalf("seed: %v", err)
	}

	err := s.UpdateTable("10.0.0.1", "app", TableRow{Keyspace: "app", Name: "users"},
		[]ColumnRow{{Keyspace: "app", Table: "users", Name: "id"}, {Keyspace: "app", Table: "users", Name: "email"}})
	if err != nil {
		t.Fatalf("UpdateTable: %v", err)
	}

	var cols []Column
	s.db.Where("host = ? AND keyspace = ? AND \"table\" = ?", "10.0.0.1", "app", "users").Find(&cols)
	if len(cols) != 2 {
		t.Fatalf("expected 2 columns, got %d", len(cols))
	}
}
