package schema

import (
	"fmt"
	"os"
	"path/filepath"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// KeyspaceRow is the subset of a system.schema_keyspaces row the store needs.
type KeyspaceRow struct {
	Name          string
	DurableWrites bool
	Strategy      string
	StrategyOpts  string
}

// TableRow is the subset of a system.schema_columnfamilies row the store needs.
type TableRow struct {
	Keyspace string
	Name     string
	Comment  string
}

// ColumnRow is the subset of a system.schema_columns row the store needs.
type ColumnRow struct {
	Keyspace string
	Table    string
	Name     string
	Kind     string
	Type     string
}

// Store is the gorm-backed Cluster Schema collaborator.
type Store struct {
	db *gorm.DB
}

// Open opens (creating if necessary) the sqlite-backed schema store at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create schema db directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("open schema database: %w", err)
	}

	if err := db.AutoMigrate(&Keyspace{}, &Table{}, &Column{}); err != nil {
		return nil, fmt.Errorf("auto-migrate schema database: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// UpdateKeyspaces replaces the entire cached schema for host with a fresh
// full-refresh result: every keyspace, table, and column previously recorded
// for host is dropped and replaced.
func (s *Store) UpdateKeyspaces(host string, keyspaces []KeyspaceRow, tables []TableRow, columns []ColumnRow) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := deleteHostSchema(tx, host); err != nil {
			return err
		}
		for _, k := range keyspaces {
			if err := upsertKeyspace(tx, host, k); err != nil {
				return err
			}
		}
		for _, t := range tables {
			if err := upsertTable(tx, host, t); err != nil {
				return err
			}
		}
		for _, c := range columns {
			if err := upsertColumn(tx, host, c); err != nil {
				return err
			}
		}
		return nil
	})
}

// UpdateKeyspace replaces the cached schema for a single keyspace on host:
// its tables and columns are dropped and replaced, other keyspaces on host
// are untouched.
func (s *Store) UpdateKeyspace(host string, keyspace KeyspaceRow, tables []TableRow, columns []ColumnRow) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("host = ? AND keyspace = ?", host, keyspace.Name).Delete(&Table{}).Error; err != nil {
			return fmt.Errorf("delete tables for keyspace %s: %w", keyspace.Name, err)
		}
		if err := tx.Where("host = ? AND keyspace = ?", host, keyspace.Name).Delete(&Column{}).Error; err != nil {
			return fmt.Errorf("delete columns for keyspace %s: %w", keyspace.Name, err)
		}
		if err := upsertKeyspace(tx, host, keyspace); err != nil {
			return err
		}
		for _, t := range tables {
			if err := upsertTable(tx, host, t); err != nil {
				return err
			}
		}
		for _, c := range columns {
			if err := upsertColumn(tx, host, c); err != nil {
				return err
			}
		}
		return nil
	})
}

// UpdateTable replaces the cached schema for a single table on host: its
// columns are dropped and replaced.
func (s *Store) UpdateTable(host, keyspace string, table TableRow, columns []ColumnRow) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("host = ? AND keyspace = ? AND \"table\" = ?", host, keyspace, table.Name).Delete(&Column{}).Error; err != nil {
			return fmt.Errorf("delete columns for table %s.%s: %w", keyspace, table.Name, err)
		}
		if err := upsertTable(tx, host, table); err != nil {
			return err
		}
		for _, c := range columns {
			if err := upsertColumn(tx, host, c); err != nil {
				return err
			}
		}
		return nil
	})
}

func deleteHostSchema(tx *gorm.DB, host string) error {
	if err := tx.Where("host = ?", host).Delete(&Keyspace{}).Error; err != nil {
		return fmt.Errorf("delete keyspaces for host %s: %w", host, err)
	}
	if err := tx.Where("host = ?", host).Delete(&Table{}).Error; err != nil {
		return fmt.Errorf("delete tables for host %s: %w", host, err)
	}
	if err := tx.Where("host = ?", host).Delete(&Column{}).Error; err != nil {
		return fmt.Errorf("delete columns for host %s: %w", host, err)
	}
	return nil
}

func upsertKeyspace(tx *gorm.DB, host string, k KeyspaceRow) error {
	row := Keyspace{
		Host:          host,
		Name:          k.Name,
		DurableWrites: k.DurableWrites,
		Strategy:      k.Strategy,
		StrategyOpts:  k.StrategyOpts,
	}
	return tx.Where("host = ? AND name = ?", host, k.Name).
		Assign(row).
		FirstOrCreate(&Keyspace{}).Error
}

func upsertTable(tx *gorm.DB, host string, t TableRow) error {
	row := Table{Host: host, Keyspace: t.Keyspace, Name: t.Name, Comment: t.Comment}
	return tx.Where("host = ? AND keyspace = ? AND name = ?", host, t.Keyspace, t.Name).
		Assign(row).
		FirstOrCreate(&Table{}).Error
}

func upsertColumn(tx *gorm.DB, host string, c ColumnRow) error {
	row := Column{Host: host, Keyspace: c.Keyspace, Table: c.Table, Name: c.Name, Kind: c.Kind, Type: c.Type}
	return tx.Where("host = ? AND keyspace = ? AND \"table\" = ? AND name = ?", host, c.Keyspace, c.Table, c.Name).
		Assign(row).
		FirstOrCreate(&Column{}).Error
}
