package controlconn

import (
	"context"
	"sync/atomic"
	"time"
)

// ConnectionOptions holds the mutable, process-wide dial parameters. The
// only field that changes after construction is the protocol version, and
// only monotonically downward; it is an atomic int32 rather than a field
// guarded by the main monitor so connectToHost can read/downgrade it without
// acquiring ControlConnection.mu (see design note on avoiding a shared
// mutable options object).
type ConnectionOptions struct {
	protocolVersion atomic.Int32

	AuthUsername string
	AuthPassword string
	Keyspace     string

	ConnectTimeout  int64 // nanoseconds
	RequestTimeout  int64 // nanoseconds
}

// NewConnectionOptions builds options starting at the given protocol
// version.
func NewConnectionOptions(protocolVersion int) *ConnectionOptions {
	o := &ConnectionOptions{}
	o.protocolVersion.Store(int32(protocolVersion))
	return o
}

// withTimeout returns a context bounded by d if d > 0, and a cancel func
// that must always be called. A zero d leaves ctx unbounded.
func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, d)
}

// ProtocolVersion returns the current (possibly downgraded) protocol
// version.
func (o *ConnectionOptions) ProtocolVersion() int {
	return int(o.protocolVersion.Load())
}

// connectCtx bounds ctx by the configured dial timeout, if any.
func (o *ConnectionOptions) connectCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return withTimeout(ctx, time.Duration(o.ConnectTimeout))
}

// requestCtx bounds ctx by the configured per-request timeout, if any.
func (o *ConnectionOptions) requestCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return withTimeout(ctx, time.Duration(o.RequestTimeout))
}

// Downgrade decrements the protocol version by one and reports whether it
// did so. It is a no-op (returning false) once the version has reached the
// floor of 1, per the monotonicity invariant.
func (o *ConnectionOptions) Downgrade() bool {
	for {
		cur := o.protocolVersion.Load()
		if cur <= 1 {
			return false
		}
		if o.protocolVersion.CompareAndSwap(cur, cur-1) {
			return true
		}
	}
}
