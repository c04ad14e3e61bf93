// Package housekeeping runs periodic safety-net maintenance against the
// control connection, independent of the server-pushed events it otherwise
// relies on.
package housekeeping

import (
	"context"
	"log"

	"github.com/robfig/cron/v3"
)

// RefreshHoster is the subset of ControlConnection the scheduler drives. It
// is a narrow interface so tests can substitute a spy without constructing a
// real control connection.
type RefreshHoster interface {
	RefreshHosts(ctx context.Context) error
}

// Scheduler wraps a cron.Cron that periodically re-runs topology refresh, as
// a fallback in case a TOPOLOGY_CHANGE or STATUS_CHANGE event was missed or
// the server never pushed one (e.g. a node rejoined silently).
type Scheduler struct {
	cron   *cron.Cron
	target RefreshHoster
}

// New builds a Scheduler that will call target.RefreshHosts on the given
// cron expression once Start is called. It does not start the cron runner.
func New(target RefreshHoster, expr string) (*Scheduler, error) {
	c := cron.New()
	s := &Scheduler{cron: c, target: target}

	if _, err := c.AddFunc(expr, s.runRefresh); err != nil {
		return nil, err
	}
	return s, nil
}

// Start begins the cron runner in its own goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts the cron runner, waiting for any in-flight job to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Scheduler) runRefresh() {
	if err := s.target.RefreshHosts(context.Background()); err != nil {
		log.Printf("[housekeeping] periodic topology refresh failed: %v", err)
	}
}
