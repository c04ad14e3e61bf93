package controlconn

import (
	"context"
	"log"

	"github.com/gluk-w/cqlcontrol/internal/logutil"
	"github.com/gluk-w/cqlcontrol/internal/policy"
	"github.com/gluk-w/cqlcontrol/internal/registry"
)

// HostFound forwards a registry-change notification from another subsystem
// (e.g. a data-plane pool that discovered a host some other way).
func (cc *ControlConnection) HostFound(ip string, row registry.Row) {
	cc.registry.HostFound(ip, row)
}

// HostLost forwards a registry-change notification that a host is gone for
// good (distinct from merely unreachable).
func (cc *ControlConnection) HostLost(ip string) {
	cc.registry.HostLost(ip)
}

// HostUp is the inbound notification that a previously down host is
// reachable again. It stops any in-flight prober for it and, if this
// control connection is Closed (truly missing, not already mid-transition),
// kicks off a connect attempt rather than waiting for the reconnection
// loop's own timer. Connecting and Reconnecting already own the path into
// Connected; triggering a second Connect from here would race them for
// cc.conn.
func (cc *ControlConnection) HostUp(ip string) {
	cc.registry.HostUp(ip)

	cc.mu.Lock()
	delete(cc.refreshingStatuses, ip)
	missing := cc.status == Closed
	cc.mu.Unlock()

	if missing {
		go func() {
			if err := cc.Connect(context.Background()); err != nil {
				log.Printf("[prober] reconnect after host_up(%s) failed: %v", logutil.SanitizeForLog(ip), err)
			}
		}()
	}
}

// HostDown is the inbound notification that a host is unreachable. It always
// marks the host down in the registry. It starts no probe while this control
// connection is healthy (the next topology refresh will notice the host is
// still down and schedule a probe itself) or while a probe for this host is
// already running; otherwise it starts one.
func (cc *ControlConnection) HostDown(ip string) {
	cc.registry.HostDown(ip)

	cc.mu.Lock()
	if cc.status == Connected {
		cc.mu.Unlock()
		return
	}
	if _, probing := cc.refreshingStatuses[ip]; probing {
		cc.mu.Unlock()
		return
	}
	cc.mu.Unlock()

	cc.startProber(ip)
}

// startProber adds ip to refreshingStatuses and launches its probe loop,
// unless one is already running. It is also used by topology refresh to
// begin probing a host that came back in the seen set but is still marked
// down.
func (cc *ControlConnection) startProber(ip string) {
	cc.mu.Lock()
	if _, already := cc.refreshingStatuses[ip]; already {
		cc.mu.Unlock()
		return
	}
	cc.refreshingStatuses[ip] = struct{}{}
	cc.mu.Unlock()

	go cc.probeLoop(ip, cc.reconn.NewSchedule())
}

// probeLoop is the at-most-one-per-host retry loop from the distilled spec's
// per-host status prober: wait, re-check membership, attempt a throwaway
// connect purely as a reachability test, and recurse with the same schedule
// on failure.
func (cc *ControlConnection) probeLoop(ip string, schedule policy.Schedule) {
	timeout := schedule.Next()
	timer := cc.reactor.ScheduleTimer(timeout)
	<-timer

	cc.mu.Lock()
	_, stillProbing := cc.refreshingStatuses[ip]
	cc.mu.Unlock()
	if !stillProbing {
		return
	}

	conn, err := cc.connector.Connect(context.Background(), ip, cc.opts.ProtocolVersion())
	if err != nil {
		log.Printf("[prober] %s still unreachable: %v", logutil.SanitizeForLog(ip), err)
		cc.probeLoop(ip, schedule)
		return
	}

	cc.connector.Close(ip, conn)
	cc.HostUp(ip)
}
