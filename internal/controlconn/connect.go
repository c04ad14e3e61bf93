package controlconn

import (
	"context"
	"errors"
	"log"

	"github.com/gluk-w/cqlcontrol/internal/transport"
)

// connectToFirstAvailable walks a fresh load-balancing plan in order,
// attempting each host until one fully succeeds (dial, downgrade handling,
// event subscription, topology refresh, schema refresh) or the plan is
// exhausted. The plan's order is never altered.
func (cc *ControlConnection) connectToFirstAvailable(ctx context.Context) (*transport.Connection, error) {
	plan, err := cc.lbPolicy.Plan(ctx, cc.keyspace)
	if err != nil {
		return nil, err
	}

	errs := map[string]error{}
	for {
		host, ok := plan.Next()
		if !ok {
			return nil, &transport.NoHostsAvailable{Errors: errs}
		}

		conn, err := cc.connectToHost(ctx, host)
		if err == nil {
			return conn, nil
		}

		var authErr *transport.AuthenticationError
		if errors.As(err, &authErr) {
			return nil, err
		}
		var queryErr *transport.QueryError
		if errors.As(err, &queryErr) && queryErr.Code == transport.CodeAuthError {
			return nil, &transport.AuthenticationError{Message: queryErr.Message}
		}

		log.Printf("[controlconn] connect to %s failed: %v", host, err)
		errs[host] = err
	}
}

// connectToHost dials host, retrying in place on a protocol-downgrade error,
// then runs the post-dial pipeline (event subscription, topology refresh,
// schema refresh). Any failure tears the dial down again and is returned
// for the caller to classify.
func (cc *ControlConnection) connectToHost(ctx context.Context, host string) (*transport.Connection, error) {
	for {
		dialCtx, cancel := cc.opts.connectCtx(ctx)
		conn, err := cc.connector.Connect(dialCtx, host, cc.opts.ProtocolVersion())
		cancel()
		if err != nil {
			var qe *transport.QueryError
			if errors.As(err, &qe) && qe.Code == transport.CodeProtocolError && cc.opts.ProtocolVersion() > 1 {
				cc.opts.Downgrade()
				log.Printf("[controlconn] %s: downgrading protocol to %d and retrying", host, cc.opts.ProtocolVersion())
				continue
			}
			return nil, err
		}

		if err := cc.postDial(ctx, conn); err != nil {
			cc.connector.Close(host, conn)
			return nil, err
		}
		return conn, nil
	}
}

// postDial subscribes to server events and performs the initial topology and
// schema refresh. It runs before the connection is committed as "current",
// so any failure here simply discards this dial and lets the caller try the
// next plan entry (or surface an auth failure).
func (cc *ControlConnection) postDial(ctx context.Context, conn *transport.Connection) error {
	events, err := transport.Subscribe(conn)
	if err != nil {
		return err
	}

	reqCtx, cancel := cc.opts.requestCtx(ctx)
	_, err = cc.runner.Execute(reqCtx, conn, registerRequest())
	cancel()
	if err != nil {
		return err
	}

	go cc.dispatchEvents(conn, events)

	if err := cc.refreshHosts(ctx, conn); err != nil {
		return err
	}

	if err := cc.refreshSchema(ctx, conn); err != nil {
		return err
	}

	return nil
}

func registerRequest() transport.Request {
	return transport.Request{Statement: "REGISTER", Args: transport.RegisterEventTypes}
}
