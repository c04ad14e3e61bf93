package controlconn

import (
	"context"
	"log"

	"github.com/gluk-w/cqlcontrol/internal/policy"
)

// reconnectLoop runs one reconnection episode: wait out the schedule's next
// backoff, confirm the episode hasn't been superseded by a Close, then
// attempt a fresh connect. A failed attempt recurses with the same schedule
// instance so backoff keeps advancing; Close aborts the episode at the next
// monitor-guarded check.
func (cc *ControlConnection) reconnectLoop(ctx context.Context, schedule policy.Schedule) {
	timeout := schedule.Next()
	timer := cc.reactor.ScheduleTimer(timeout)
	<-timer

	cc.mu.Lock()
	stillReconnecting := cc.status == Reconnecting
	cc.mu.Unlock()
	if !stillReconnecting {
		return
	}

	conn, err := cc.connectToFirstAvailable(ctx)
	if err != nil {
		log.Printf("[controlconn] reconnect attempt failed: %v", err)
		cc.reconnectLoop(ctx, schedule)
		return
	}

	cc.mu.Lock()
	cc.conn = conn
	cc.status = Connected
	cc.mu.Unlock()

	conn.OnClosed(func() { cc.onConnectionClosed() })

	log.Printf("[controlconn] reconnected to %s", conn.Host)
}
