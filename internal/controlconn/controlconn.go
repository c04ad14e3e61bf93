package controlconn

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/gluk-w/cqlcontrol/internal/policy"
	"github.com/gluk-w/cqlcontrol/internal/reactor"
	"github.com/gluk-w/cqlcontrol/internal/registry"
	"github.com/gluk-w/cqlcontrol/internal/schema"
	"github.com/gluk-w/cqlcontrol/internal/transport"
)

// Registry is the Cluster Registry collaborator contract. registry.Registry
// satisfies it; tests substitute fakes.
type Registry interface {
	HostFound(ip string, row registry.Row)
	HostLost(ip string)
	HostDown(ip string)
	HostUp(ip string)
	Host(ip string) (registry.Host, bool)
	HasHost(ip string) bool
	EachHost(fn func(registry.Host))
}

// SchemaStore is the Cluster Schema collaborator contract. schema.Store
// satisfies it.
type SchemaStore interface {
	UpdateKeyspaces(host string, keyspaces []schema.KeyspaceRow, tables []schema.TableRow, columns []schema.ColumnRow) error
	UpdateKeyspace(host string, keyspace schema.KeyspaceRow, tables []schema.TableRow, columns []schema.ColumnRow) error
	UpdateTable(host, keyspace string, table schema.TableRow, columns []schema.ColumnRow) error
}

// ControlConnection is the single logical actor described in the package
// doc: it owns at most one live Connection and guards every status
// transition and refreshingStatuses mutation with mu. No external call
// (reactor, connector, request runner) is ever made while mu is held.
type ControlConnection struct {
	mu     sync.Mutex
	status Status
	conn   *transport.Connection

	refreshingStatuses map[string]struct{}

	opts *ConnectionOptions

	reactor   reactor.Reactor
	connector transport.Connector
	runner    transport.RequestRunner
	lbPolicy  policy.LoadBalancingPolicy
	reconn    policy.ReconnectionPolicy
	registry  Registry
	schema    SchemaStore

	keyspace string
}

// Config bundles the collaborators a ControlConnection needs. Every
// collaborator field is required; Keyspace, the auth fields and the
// timeouts may be left zero.
type Config struct {
	Reactor            reactor.Reactor
	Connector          transport.Connector
	Runner             transport.RequestRunner
	LoadBalancing      policy.LoadBalancingPolicy
	Reconnection       policy.ReconnectionPolicy
	Registry           Registry
	Schema             SchemaStore
	ProtocolVersion    int
	Keyspace           string
	AuthUsername       string
	AuthPassword       string

	// ConnectTimeout/RequestTimeout bound each dial and each metadata query
	// respectively. Zero means unbounded (aside from ctx's own deadline).
	ConnectTimeout time.Duration
	RequestTimeout time.Duration
}

// New constructs a ControlConnection in the closed state. Call Connect to
// establish it.
func New(cfg Config) *ControlConnection {
	opts := NewConnectionOptions(cfg.ProtocolVersion)
	opts.AuthUsername = cfg.AuthUsername
	opts.AuthPassword = cfg.AuthPassword
	opts.Keyspace = cfg.Keyspace
	opts.ConnectTimeout = int64(cfg.ConnectTimeout)
	opts.RequestTimeout = int64(cfg.RequestTimeout)

	return &ControlConnection{
		status:             Closed,
		refreshingStatuses: make(map[string]struct{}),
		opts:               opts,
		reactor:            cfg.Reactor,
		connector:          cfg.Connector,
		runner:             cfg.Runner,
		lbPolicy:           cfg.LoadBalancing,
		reconn:             cfg.Reconnection,
		registry:           cfg.Registry,
		schema:             cfg.Schema,
		keyspace:           cfg.Keyspace,
	}
}

// Status returns the current lifecycle status.
func (cc *ControlConnection) Status() Status {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.status
}

// Connect establishes the control connection. It is idempotent while
// connecting or connected: additional calls return nil immediately without
// attempting a second dial.
func (cc *ControlConnection) Connect(ctx context.Context) error {
	cc.mu.Lock()
	switch cc.status {
	case Connecting, Connected:
		cc.mu.Unlock()
		return nil
	case Reconnecting:
		// A reconnect episode already owns the transition into Connected;
		// entering Connecting here too would race it for cc.conn.
		cc.mu.Unlock()
		return nil
	case Closing:
		cc.mu.Unlock()
		return fmt.Errorf("control connection is closing")
	}
	cc.status = Connecting
	cc.mu.Unlock()

	conn, err := cc.connectToFirstAvailable(ctx)
	if err != nil {
		cc.mu.Lock()
		cc.status = Closed
		cc.mu.Unlock()
		return err
	}

	cc.mu.Lock()
	cc.conn = conn
	cc.status = Connected
	cc.mu.Unlock()

	conn.OnClosed(func() { cc.onConnectionClosed() })

	log.Printf("[controlconn] connected to %s", conn.Host)
	return nil
}

// Close tears down the control connection. It is idempotent while closing or
// closed.
func (cc *ControlConnection) Close(ctx context.Context) error {
	cc.mu.Lock()
	switch cc.status {
	case Closing, Closed:
		cc.mu.Unlock()
		return nil
	}
	cc.status = Closing
	conn := cc.conn
	cc.mu.Unlock()

	cc.reactor.Stop()

	if conn != nil {
		cc.connector.Close(conn.Host, conn)
	} else {
		// No live connection: nothing will fire onConnectionClosed to make
		// the closing->closed transition, so do it here.
		cc.mu.Lock()
		cc.status = Closed
		cc.mu.Unlock()
	}

	log.Printf("[controlconn] closed")
	return nil
}

// onConnectionClosed is the Connection.OnClosed callback. It never blocks
// and never calls back into a collaborator while mu is held.
func (cc *ControlConnection) onConnectionClosed() {
	cc.mu.Lock()
	var startReconnect bool
	switch cc.status {
	case Closing:
		cc.status = Closed
	case Connected:
		cc.status = Reconnecting
		cc.conn = nil
		startReconnect = true
	default:
		// Connecting/Reconnecting/Closed: this connection's death is
		// already being handled by the code path that owns it (the connect
		// pipeline, or a previous reconnect episode); nothing to do.
	}
	cc.mu.Unlock()

	if startReconnect {
		log.Printf("[controlconn] connection lost, entering reconnecting")
		go cc.reconnectLoop(context.Background(), cc.reconn.NewSchedule())
	}
}
