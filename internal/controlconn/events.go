package controlconn

import (
	"context"
	"log"

	"github.com/gluk-w/cqlcontrol/internal/logutil"
	"github.com/gluk-w/cqlcontrol/internal/transport"
)

// dispatchEvents runs for the lifetime of conn, routing every pushed event
// to its refresh action. It never blocks the caller of postDial: it is
// always started in its own goroutine. A refresh triggered here runs
// synchronously within this goroutine, which is what gives metadata updates
// for a given keyspace their total order (they are all queued on the same
// connection's dispatch goroutine).
func (cc *ControlConnection) dispatchEvents(conn *transport.Connection, events <-chan transport.Event) {
	for ev := range events {
		cc.handleEvent(context.Background(), conn, ev)
	}
}

func (cc *ControlConnection) handleEvent(ctx context.Context, conn *transport.Connection, ev transport.Event) {
	var err error
	switch ev.Type {
	case transport.SchemaChange:
		err = cc.handleSchemaChange(ctx, conn, ev)
	case transport.StatusChange:
		err = cc.handleStatusChange(ctx, conn, ev)
	case transport.TopologyChange:
		err = cc.handleTopologyChange(ctx, conn, ev)
	default:
		log.Printf("[controlconn] ignoring event with unknown type %v", ev.Type)
		return
	}

	if err != nil {
		log.Printf("[controlconn] event %s/%s for %s failed: %v", ev.Type, ev.Change, logutil.SanitizeForLog(ev.Address), err)
	}
}

func (cc *ControlConnection) handleSchemaChange(ctx context.Context, conn *transport.Connection, ev transport.Event) error {
	switch ev.Change {
	case transport.Created, transport.Dropped:
		if ev.Table == "" {
			return cc.refreshSchema(ctx, conn)
		}
		return cc.refreshKeyspace(ctx, conn, ev.Keyspace)
	case transport.Updated:
		if ev.Table == "" {
			return cc.refreshKeyspace(ctx, conn, ev.Keyspace)
		}
		return cc.refreshTable(ctx, conn, ev.Keyspace, ev.Table)
	default:
		log.Printf("[controlconn] ignoring SCHEMA_CHANGE with unknown change %v", ev.Change)
		return nil
	}
}

func (cc *ControlConnection) handleStatusChange(ctx context.Context, conn *transport.Connection, ev transport.Event) error {
	switch ev.Change {
	case transport.Up:
		if cc.registry.HasHost(ev.Address) {
			return cc.refreshHost(ctx, conn, ev.Address)
		}
		return nil
	case transport.Down:
		cc.HostDown(ev.Address)
		return nil
	default:
		log.Printf("[controlconn] ignoring STATUS_CHANGE with unknown change %v", ev.Change)
		return nil
	}
}

func (cc *ControlConnection) handleTopologyChange(ctx context.Context, conn *transport.Connection, ev transport.Event) error {
	switch ev.Change {
	case transport.NewNode:
		if !cc.registry.HasHost(ev.Address) {
			return cc.refreshHost(ctx, conn, ev.Address)
		}
		return nil
	case transport.RemovedNode:
		cc.HostLost(ev.Address)
		return nil
	default:
		log.Printf("[controlconn] ignoring TOPOLOGY_CHANGE with unknown change %v", ev.Change)
		return nil
	}
}
