package controlconn

import (
	"context"
	"fmt"
)

// RefreshHosts re-runs topology refresh against the current connection, if
// any. It is exported for the housekeeping scheduler's periodic safety-net
// trigger; postDial calls the unexported refreshHosts directly with the
// connection it just dialed. Event handlers do not run a full topology
// refresh: they use the single-host refreshHost.
func (cc *ControlConnection) RefreshHosts(ctx context.Context) error {
	cc.mu.Lock()
	conn := cc.conn
	cc.mu.Unlock()

	if conn == nil {
		return fmt.Errorf("control connection is not connected")
	}
	return cc.refreshHosts(ctx, conn)
}
