package controlconn

import (
	"context"

	"github.com/gluk-w/cqlcontrol/internal/schema"
	"github.com/gluk-w/cqlcontrol/internal/transport"
)

// refreshSchema is the full granularity: every keyspace, table, and column
// known to the current connection's host.
func (cc *ControlConnection) refreshSchema(ctx context.Context, conn *transport.Connection) error {
	ctx, cancel := cc.opts.requestCtx(ctx)
	defer cancel()

	keyspaces, tables, columns, err := cc.fetchSchema(ctx, conn, transport.SelectSchemaKeyspaces, transport.SelectSchemaColumnFamilies, transport.SelectSchemaColumns, nil)
	if err != nil {
		return err
	}
	if !cc.registry.HasHost(conn.Host) {
		return nil
	}
	return cc.schema.UpdateKeyspaces(conn.Host, keyspaces, tables, columns)
}

// refreshKeyspace is the per-keyspace granularity, triggered by a
// CREATED/DROPPED event naming a table, or an UPDATED event with no table.
func (cc *ControlConnection) refreshKeyspace(ctx context.Context, conn *transport.Connection, name string) error {
	ctx, cancel := cc.opts.requestCtx(ctx)
	defer cancel()

	keyspaces, tables, columns, err := cc.fetchSchema(ctx, conn, transport.SelectSchemaKeyspacesByName, transport.SelectSchemaColumnFamiliesByName, transport.SelectSchemaColumnsByName, []string{name})
	if err != nil {
		return err
	}
	if len(keyspaces) == 0 {
		return nil
	}
	if !cc.registry.HasHost(conn.Host) {
		return nil
	}
	return cc.schema.UpdateKeyspace(conn.Host, keyspaces[0], tables, columns)
}

// refreshTable is the per-table granularity, triggered by an UPDATED event
// naming a table.
func (cc *ControlConnection) refreshTable(ctx context.Context, conn *transport.Connection, keyspace, table string) error {
	ctx, cancel := cc.opts.requestCtx(ctx)
	defer cancel()

	tableCh := make(chan queryResult, 1)
	columnCh := make(chan queryResult, 1)

	go func() {
		rows, err := cc.runner.Execute(ctx, conn, transport.Request{Statement: transport.SelectSchemaColumnFamiliesByTable, Args: []string{keyspace, table}})
		tableCh <- queryResult{rows, err}
	}()
	go func() {
		rows, err := cc.runner.Execute(ctx, conn, transport.Request{Statement: transport.SelectSchemaColumnsByTable, Args: []string{keyspace, table}})
		columnCh <- queryResult{rows, err}
	}()

	tableResult := <-tableCh
	if tableResult.err != nil {
		return tableResult.err
	}
	columnResult := <-columnCh
	if columnResult.err != nil {
		return columnResult.err
	}

	if len(tableResult.rows) == 0 {
		return nil
	}
	if !cc.registry.HasHost(conn.Host) {
		return nil
	}

	columns := make([]schema.ColumnRow, 0, len(columnResult.rows))
	for _, row := range columnResult.rows {
		columns = append(columns, rowToColumnRow(row))
	}

	return cc.schema.UpdateTable(conn.Host, keyspace, rowToTableRow(tableResult.rows[0]), columns)
}

// fetchSchema runs the three schema queries concurrently, optionally
// filtered by a single keyspace-name argument, and joins the results.
func (cc *ControlConnection) fetchSchema(ctx context.Context, conn *transport.Connection, keyspaceStmt, tableStmt, columnStmt string, args []string) ([]schema.KeyspaceRow, []schema.TableRow, []schema.ColumnRow, error) {
	keyspaceCh := make(chan queryResult, 1)
	tableCh := make(chan queryResult, 1)
	columnCh := make(chan queryResult, 1)

	go func() {
		rows, err := cc.runner.Execute(ctx, conn, transport.Request{Statement: keyspaceStmt, Args: args})
		keyspaceCh <- queryResult{rows, err}
	}()
	go func() {
		rows, err := cc.runner.Execute(ctx, conn, transport.Request{Statement: tableStmt, Args: args})
		tableCh <- queryResult{rows, err}
	}()
	go func() {
		rows, err := cc.runner.Execute(ctx, conn, transport.Request{Statement: columnStmt, Args: args})
		columnCh <- queryResult{rows, err}
	}()

	keyspaceResult := <-keyspaceCh
	tableResult := <-tableCh
	columnResult := <-columnCh

	if keyspaceResult.err != nil {
		return nil, nil, nil, keyspaceResult.err
	}
	if tableResult.err != nil {
		return nil, nil, nil, tableResult.err
	}
	if columnResult.err != nil {
		return nil, nil, nil, columnResult.err
	}

	keyspaces := make([]schema.KeyspaceRow, 0, len(keyspaceResult.rows))
	for _, row := range keyspaceResult.rows {
		keyspaces = append(keyspaces, rowToKeyspaceRow(row))
	}
	tables := make([]schema.TableRow, 0, len(tableResult.rows))
	for _, row := range tableResult.rows {
		tables = append(tables, rowToTableRow(row))
	}
	columns := make([]schema.ColumnRow, 0, len(columnResult.rows))
	for _, row := range columnResult.rows {
		columns = append(columns, rowToColumnRow(row))
	}

	return keyspaces, tables, columns, nil
}

func rowToKeyspaceRow(row transport.Row) schema.KeyspaceRow {
	return schema.KeyspaceRow{
		Name:          row["keyspace_name"],
		DurableWrites: row["durable_writes"] == "true",
		Strategy:      row["strategy_class"],
		StrategyOpts:  row["strategy_options"],
	}
}

func rowToTableRow(row transport.Row) schema.TableRow {
	return schema.TableRow{
		Keyspace: row["keyspace_name"],
		Name:     row["columnfamily_name"],
		Comment:  row["comment"],
	}
}

func rowToColumnRow(row transport.Row) schema.ColumnRow {
	return schema.ColumnRow{
		Keyspace: row["keyspace_name"],
		Table:    row["columnfamily_name"],
		Name:     row["column_name"],
		Kind:     row["kind"],
		Type:     row["type"],
	}
}
