package housekeeping

import (
	"context"
	"errors"
	"sync"
	"testing"
)

type fakeTarget struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakeTarget) RefreshHosts(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.err
}

func (f *fakeTarget) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestNew_RejectsInvalidCronExpression(t *testing.T) {
	if _, err := New(&fakeTarget{}, "not a cron expression"); err == nil {
		t.Fatal("expected an error for a malformed cron expression")
	}
}

func TestRunRefresh_CallsTargetOnce(t *testing.T) {
	target := &fakeTarget{}
	s, err := New(target, "0 0 1 1 *") // valid but irrelevant; runRefresh is invoked directly
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	s.runRefresh()

	if target.count() != 1 {
		t.Errorf("expected exactly one RefreshHosts call, got %d", target.count())
	}
}

func TestRunRefresh_SwallowsTargetError(t *testing.T) {
	target := &fakeTarget{err: errors.New("no live connection")}
	s, err := New(target, "0 0 1 1 *")
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	s.runRefresh() // must not panic even though RefreshHosts failed

	if target.count() != 1 {
		t.Errorf("expected RefreshHosts to still be called once, got %d", target.count())
	}
}
