package controlconn

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/hashicorp/yamux"

	"github.com/gluk-w/cqlcontrol/internal/policy"
	"github.com/gluk-w/cqlcontrol/internal/schema"
	"github.com/gluk-w/cqlcontrol/internal/transport"
)

// fakeReactor fires every timer immediately, so tests never wait out real
// backoff durations.
type fakeReactor struct{}

func (fakeReactor) Start() {}
func (fakeReactor) Stop() {}
func (fakeReactor) ScheduleTimer(d time.Duration) <-chan time.Time {
	ch := make(chan time.Time, 1)
	ch <- time.Now()
	return ch
}

type fakeSchedule struct{}

func (fakeSchedule) Next() time.Duration { return 0 }

type fakeReconnectionPolicy struct{}

func (fakeReconnectionPolicy) NewSchedule() policy.Schedule { return fakeSchedule{} }

// fakePlan replays a fixed host order, exactly the distilled spec's
// "fresh, one-shot ranked enumeration" contract.
type fakePlan struct {
	hosts []string
	pos   int
}

func (p *fakePlan) Next() (string, bool) {
	if p.pos >= len(p.hosts) {
		return "", false
	}
	h := p.hosts[p.pos]
	p.pos++
	return h, true
}

type fakeLoadBalancing struct {
	hosts []string
}

func (f fakeLoadBalancing) Plan(ctx context.Context, keyspace string) (policy.HostIter, error) {
	return &fakePlan{hosts: append([]string(nil), f.hosts...)}, nil
}

// fakeRunner answers a fixed Rows/error for a given statement, recording
// every request it sees for assertions.
type fakeRunner struct {
	mu        sync.Mutex
	responses map[string]transport.Rows
	errs      map[string]error
	calls     []transport.Request
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{responses: map[string]transport.Rows{}, errs: map[string]error{}}
}

func (r *fakeRunner) Execute(ctx context.Context, conn *transport.Connection, req transport.Request) (transport.Rows, error) {
	r.mu.Lock()
	r.calls = append(r.calls, req)
	err := r.errs[req.Statement]
	rows := r.responses[req.Statement]
	r.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *fakeRunner) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

// fakeSchemaStore records every apply call instead of touching sqlite.
type fakeSchemaStore struct {
	mu                sync.Mutex
	updateKeyspaces   int
	updateKeyspaceArg []schema.KeyspaceRow
	updateTableArg    []schema.TableRow
}

func (s *fakeSchemaStore) UpdateKeyspaces(host string, keyspaces []schema.KeyspaceRow, tables []schema.TableRow, columns []schema.ColumnRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updateKeyspaces++
	return nil
}

func (s *fakeSchemaStore) UpdateKeyspace(host string, keyspace schema.KeyspaceRow, tables []schema.TableRow, columns []schema.ColumnRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updateKeyspaceArg = append(s.updateKeyspaceArg, keyspace)
	return nil
}

func (s *fakeSchemaStore) UpdateTable(host, keyspace string, table schema.TableRow, columns []schema.ColumnRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updateTableArg = append(s.updateTableArg, table)
	return nil
}

// newPipedConnection builds a real yamux client/server pair over an in
// memory net.Pipe, so Connection.Close/OnClosed behave exactly as they would
// against a real transport. The server side is left draining in the
// background so nothing blocks when the client opens or accepts streams.
func newPipedConnection(t *testing.T, host string) *transport.Connection {
	t.Helper()
	clientConn, serverConn := net.Pipe()

	client, err := yamux.Client(clientConn, nil)
	if err != nil {
		t.Fatalf("yamux client: %v", err)
	}
	server, err := yamux.Server(serverConn, nil)
	if err != nil {
		t.Fatalf("yamux server: %v", err)
	}
	t.Cleanup(func() {
		client.Close()
		server.Close()
	})

	return transport.NewConnection(host, client)
}

// fakeConnector replays a fixed queue of outcomes per host: either a
// successful dial (backed by a real yamux pair) or an error.
type fakeConnector struct {
	t       *testing.T
	mu      sync.Mutex
	queues  map[string][]error // nil entry means "succeed"
	closed  []string
}

func newFakeConnector(t *testing.T) *fakeConnector {
	return &fakeConnector{t: t, queues: map[string][]error{}}
}

func (f *fakeConnector) fail(host string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queues[host] = append(f.queues[host], err)
}

func (f *fakeConnector) succeed(host string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queues[host] = append(f.queues[host], nil)
}

func (f *fakeConnector) Connect(ctx context.Context, host string, protocolVersion int) (*transport.Connection, error) {
	f.mu.Lock()
	queue := f.queues[host]
	var next error
	hasNext := len(queue) > 0
	if hasNext {
		next = queue[0]
		f.queues[host] = queue[1:]
	}
	f.mu.Unlock()

	if !hasNext {
		return nil, &transport.QueryError{Message: "fake connector: " + host + " exhausted"}
	}
	if next != nil {
		return nil, next
	}
	return newPipedConnection(f.t, host), nil
}

func (f *fakeConnector) Close(host string, conn *transport.Connection) {
	f.mu.Lock()
	f.closed = append(f.closed, host)
	f.mu.Unlock()
	if conn != nil {
		conn.Close()
	}
}

// waitForProberConvergence polls cc's in-flight-probe set until ip is no
// longer present or the deadline passes. fakeReactor fires every timer
// instantly, so a probe loop backed only by fakes converges within a few
// scheduler turns; this just gives those turns a chance to run.
func waitForProberConvergence(t *testing.T, cc *ControlConnection, ip string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		cc.mu.Lock()
		_, probing := cc.refreshingStatuses[ip]
		cc.mu.Unlock()
		if !probing {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("probe for %s never converged", ip)
}
