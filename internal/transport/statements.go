package transport

// Outbound CQL statement text the control connection depends on verbatim.
// These are never built dynamically beyond the documented WHERE-clause
// suffixes, so that wire captures and server-side query logs match what an
// operator expects from a wide-column-store driver.
const (
	SelectLocal = "SELECT rack, data_center, host_id, release_version FROM system.local"

	SelectPeers = "SELECT peer, rack, data_center, host_id, rpc_address, release_version FROM system.peers"

	SelectPeerByAddress = SelectPeers + " WHERE peer = ?"

	SelectSchemaKeyspaces            = "SELECT * FROM system.schema_keyspaces"
	SelectSchemaKeyspacesByName      = SelectSchemaKeyspaces + " WHERE keyspace_name = ?"
	SelectSchemaColumnFamilies       = "SELECT * FROM system.schema_columnfamilies"
	SelectSchemaColumnFamiliesByName = SelectSchemaColumnFamilies + " WHERE keyspace_name = ?"
	SelectSchemaColumnFamiliesByTable = SelectSchemaColumnFamiliesByName + " AND columnfamily_name = ?"
	SelectSchemaColumns              = "SELECT * FROM system.schema_columns"
	SelectSchemaColumnsByName        = SelectSchemaColumns + " WHERE keyspace_name = ?"
	SelectSchemaColumnsByTable       = SelectSchemaColumnsByName + " AND columnfamily_name = ?"
)

// EventType is the top-level class of a server-pushed event.
type EventType int

const (
	SchemaChange EventType = iota
	StatusChange
	TopologyChange
)

func (t EventType) String() string {
	switch t {
	case SchemaChange:
		return "SCHEMA_CHANGE"
	case StatusChange:
		return "STATUS_CHANGE"
	case TopologyChange:
		return "TOPOLOGY_CHANGE"
	default:
		return "UNKNOWN_EVENT"
	}
}

// ChangeType is the specific change an event reports, scoped within its
// EventType (e.g. CREATED only ever appears on a SCHEMA_CHANGE event).
type ChangeType int

const (
	Created ChangeType = iota
	Dropped
	Updated
	Up
	Down
	NewNode
	RemovedNode
)

func (c ChangeType) String() string {
	switch c {
	case Created:
		return "CREATED"
	case Dropped:
		return "DROPPED"
	case Updated:
		return "UPDATED"
	case Up:
		return "UP"
	case Down:
		return "DOWN"
	case NewNode:
		return "NEW_NODE"
	case RemovedNode:
		return "REMOVED_NODE"
	default:
		return "UNKNOWN_CHANGE"
	}
}

// Event is the payload of a server-pushed notification, already lifted from
// the wire's stringly-typed form into the tagged-variant enumerations above.
type Event struct {
	Type     EventType
	Change   ChangeType
	Keyspace string
	Table    string
	Address  string
}

// RegisterEventTypes is sent once per connection, right after it is
// established, to subscribe to all three event streams this driver acts on.
var RegisterEventTypes = []string{"TOPOLOGY_CHANGE", "STATUS_CHANGE", "SCHEMA_CHANGE"}
