package controlconn

import (
	"context"
	"testing"

	"github.com/gluk-w/cqlcontrol/internal/transport"
)

func TestRefreshSchema_FullRefreshCallsUpdateKeyspaces(t *testing.T) {
	runner := newFakeRunner()
	runner.responses[transport.SelectSchemaKeyspaces] = transport.Rows{{"keyspace_name": "ks1", "durable_writes": "true"}}
	runner.responses[transport.SelectSchemaColumnFamilies] = transport.Rows{{"keyspace_name": "ks1", "columnfamily_name": "t1"}}
	runner.responses[transport.SelectSchemaColumns] = transport.Rows{{"keyspace_name": "ks1", "columnfamily_name": "t1", "column_name": "c1", "kind": "regular", "type": "text"}}

	schemaStore := &fakeSchemaStore{}
	cc := newTestControlConnection(t, newFakeConnector(t), runner, fakeLoadBalancing{}, schemaStore)
	cc.registry.HostFound("10.0.0.1", rowToRegistryRow(localRow()))
	conn := newPipedConnection(t, "10.0.0.1")

	if err := cc.refreshSchema(context.Background(), conn); err != nil {
		t.Fatalf("refreshSchema: %v", err)
	}
	if schemaStore.updateKeyspaces != 1 {
		t.Errorf("expected one UpdateKeyspaces call, got %d", schemaStore.updateKeyspaces)
	}
}

func TestRefreshSchema_UnknownHostIsSkippedSilently(t *testing.T) {
	runner := newFakeRunner()
	runner.responses[transport.SelectSchemaKeyspaces] = transport.Rows{{"keyspace_name": "ks1"}}

	schemaStore := &fakeSchemaStore{}
	cc := newTestControlConnection(t, newFakeConnector(t), runner, fakeLoadBalancing{}, schemaStore)
	conn := newPipedConnection(t, "10.0.0.1") // never registered

	if err := cc.refreshSchema(context.Background(), conn); err != nil {
		t.Fatalf("refreshSchema: %v", err)
	}
	if schemaStore.updateKeyspaces != 0 {
		t.Error("expected no store update for a host the registry doesn't know about")
	}
}

func TestRefreshKeyspace_EmptyResultIsANoop(t *testing.T) {
	runner := newFakeRunner()
	schemaStore := &fakeSchemaStore{}
	cc := newTestControlConnection(t, newFakeConnector(t), runner, fakeLoadBalancing{}, schemaStore)
	cc.registry.HostFound("10.0.0.1", rowToRegistryRow(localRow()))
	conn := newPipedConnection(t, "10.0.0.1")

	if err := cc.refreshKeyspace(context.Background(), conn, "ghost"); err != nil {
		t.Fatalf("refreshKeyspace: %v", err)
	}
	if len(schemaStore.updateKeyspaceArg) != 0 {
		t.Error("expected no UpdateKeyspace call when the keyspace query is empty")
	}
}

func TestRefreshKeyspace_FetchErrorPropagates(t *testing.T) {
	runner := newFakeRunner()
	runner.errs[transport.SelectSchemaKeyspacesByName] = &transport.QueryError{Message: "boom"}
	schemaStore := &fakeSchemaStore{}
	cc := newTestControlConnection(t, newFakeConnector(t), runner, fakeLoadBalancing{}, schemaStore)
	cc.registry.HostFound("10.0.0.1", rowToRegistryRow(localRow()))
	conn := newPipedConnection(t, "10.0.0.1")

	if err := cc.refreshKeyspace(context.Background(), conn, "ks1"); err == nil {
		t.Fatal("expected the query error to propagate")
	}
}

func TestRefreshTable_EmptyResultIsANoop(t *testing.T) {
	runner := newFakeRunner()
	schemaStore := &fakeSchemaStore{}
	cc := newTestControlConnection(t, newFakeConnector(t), runner, fakeLoadBalancing{}, schemaStore)
	cc.registry.HostFound("10.0.0.1", rowToRegistryRow(localRow()))
	conn := newPipedConnection(t, "10.0.0.1")

	if err := cc.refreshTable(context.Background(), conn, "ks1", "ghost"); err != nil {
		t.Fatalf("refreshTable: %v", err)
	}
	if len(schemaStore.updateTableArg) != 0 {
		t.Error("expected no UpdateTable call when the table query is empty")
	}
}

func TestRowConverters(t *testing.T) {
	k := rowToKeyspaceRow(transport.Row{"keyspace_name": "ks1", "durable_writes": "true", "strategy_class": "SimpleStrategy", "strategy_options": "{\"replication_factor\":3}"})
	if k.Name != "ks1" || !k.DurableWrites || k.Strategy != "SimpleStrategy" {
		t.Errorf("unexpected keyspace row: %+v", k)
	}

	tb := rowToTableRow(transport.Row{"keyspace_name": "ks1", "columnfamily_name": "t1", "comment": "c"})
	if tb.Keyspace != "ks1" || tb.Name != "t1" || tb.Comment != "c" {
		t.Errorf("unexpected table row: %+v", tb)
	}

	col := rowToColumnRow(transport.Row{"keyspace_name": "ks1", "columnfamily_name": "t1", "column_name": "c1", "kind": "partition_key", "type": "uuid"})
	if col.Keyspace != "ks1" || col.Table != "t1" || col.Name != "c1" || col.Kind != "partition_key" || col.Type != "uuid" {
		t.Errorf("unexpected column row: %+v", col)
	}
}
