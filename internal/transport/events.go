package transport

import (
	"encoding/json"
	"log"
)

type wireEvent struct {
	Type     string `json:"type"`
	Change   string `json:"change"`
	Keyspace string `json:"keyspace,omitempty"`
	Table    string `json:"table,omitempty"`
	Address  string `json:"address"`
}

var eventTypes = map[string]EventType{
	"SCHEMA_CHANGE":   SchemaChange,
	"STATUS_CHANGE":   StatusChange,
	"TOPOLOGY_CHANGE": TopologyChange,
}

var changeTypes = map[string]ChangeType{
	"CREATED":      Created,
	"DROPPED":      Dropped,
	"UPDATED":      Updated,
	"UP":           Up,
	"DOWN":         Down,
	"NEW_NODE":     NewNode,
	"REMOVED_NODE": RemovedNode,
}

// Subscribe starts accepting server-initiated yamux streams on conn, each
// carrying one JSON-encoded event, and decodes them into the tagged-variant
// Event type. The returned channel is closed when the session closes. Events
// with an unrecognized type or change string are logged and dropped rather
// than propagated, since a single malformed push must never take down event
// dispatch for the rest of the connection's lifetime.
func Subscribe(conn *Connection) (<-chan Event, error) {
	conn.mu.Lock()
	session := conn.session
	conn.mu.Unlock()
	if session == nil {
		return nil, &QueryError{Message: "not connected"}
	}

	out := make(chan Event, 16)
	go func() {
		defer close(out)
		for {
			stream, err := session.AcceptStream()
			if err != nil {
				return
			}
			var we wireEvent
			err = json.NewDecoder(stream).Decode(&we)
			stream.Close()
			if err != nil {
				continue
			}

			evType, ok := eventTypes[we.Type]
			if !ok {
				log.Printf("[transport] dropping event with unknown type %q", we.Type)
				continue
			}
			change, ok := changeTypes[we.Change]
			if !ok {
				log.Printf("[transport] dropping event with unknown change %q", we.Change)
				continue
			}

			out <- Event{Type: evType, Change: change, Keyspace: we.Keyspace, Table: we.Table, Address: we.Address}
		}
	}()
	return out, nil
}
