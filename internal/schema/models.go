// Package schema is the Cluster Schema collaborator: a cache of keyspaces,
// tables, and columns discovered via schema refresh, persisted with gorm in
// sqlite. The control connection only writes to it: every connect still runs
// a full schema fetch, and nothing reads the cache back at startup.
package schema

// Keyspace mirrors a system.schema_keyspaces row, scoped to the host that
// reported it (the same keyspace can legitimately be reported by several
// hosts across successive refreshes; only the latest per-host row matters).
type Keyspace struct {
	ID           uint   `gorm:"primarykey"`
	Host         string `gorm:"index:idx_keyspace_host,unique"`
	Name         string `gorm:"index:idx_keyspace_host,unique"`
	DurableWrites bool
	Strategy     string
	StrategyOpts string
}

// Table mirrors a system.schema_columnfamilies row.
type Table struct {
	ID       uint   `gorm:"primarykey"`
	Host     string `gorm:"index:idx_table_host,unique"`
	Keyspace string `gorm:"index:idx_table_host,unique"`
	Name     string `gorm:"index:idx_table_host,unique"`
	Comment  string
}

// Column mirrors a system.schema_columns row.
type Column struct {
	ID       uint   `gorm:"primarykey"`
	Host     string `gorm:"index:idx_column_host,unique"`
	Keyspace string `gorm:"index:idx_column_host,unique"`
	Table    string `gorm:"index:idx_column_host,unique"`
	Name     string `gorm:"index:idx_column_host,unique"`
	Kind     string
	Type     string
}
