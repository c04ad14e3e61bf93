package controlconn

import (
	"context"

	"github.com/gluk-w/cqlcontrol/internal/registry"
	"github.com/gluk-w/cqlcontrol/internal/transport"
)

type queryResult struct {
	rows transport.Rows
	err  error
}

// refreshHosts runs the two topology queries concurrently against conn,
// reconciles the registry against what came back, and kicks off probes for
// any host that is still marked down. It is used both right after dial and
// by the housekeeping scheduler's periodic safety net.
func (cc *ControlConnection) refreshHosts(ctx context.Context, conn *transport.Connection) error {
	ctx, cancel := cc.opts.requestCtx(ctx)
	defer cancel()

	localCh := make(chan queryResult, 1)
	peersCh := make(chan queryResult, 1)

	go func() {
		rows, err := cc.runner.Execute(ctx, conn, transport.Request{Statement: transport.SelectLocal})
		localCh <- queryResult{rows, err}
	}()
	go func() {
		rows, err := cc.runner.Execute(ctx, conn, transport.Request{Statement: transport.SelectPeers})
		peersCh <- queryResult{rows, err}
	}()

	local := <-localCh
	if local.err != nil {
		return local.err
	}
	peers := <-peersCh
	if peers.err != nil {
		return peers.err
	}

	if len(local.rows) == 0 && len(peers.rows) == 0 {
		return transport.ErrNoHosts
	}

	seen := make(map[string]struct{})

	localIP := conn.Host
	if len(local.rows) > 0 {
		seen[localIP] = struct{}{}
		cc.registry.HostFound(localIP, rowToRegistryRow(local.rows[0]))
	}

	for _, row := range peers.rows {
		ip := peerIP(row)
		seen[ip] = struct{}{}
		cc.registry.HostFound(ip, rowToRegistryRow(row))
	}

	var toLose []string
	var toProbe []string
	cc.registry.EachHost(func(h registry.Host) {
		if _, ok := seen[h.IP]; !ok {
			toLose = append(toLose, h.IP)
			return
		}
		if h.Down {
			toProbe = append(toProbe, h.IP)
		}
	})

	for _, ip := range toLose {
		cc.registry.HostLost(ip)
	}
	for _, ip := range toProbe {
		cc.startProber(ip)
	}

	return nil
}

// refreshHost re-reads a single host's topology row: system.local if it is
// the current connection's own address, otherwise system.peers filtered by
// peer. A non-empty result calls registry.HostFound, which is how a
// NEW_NODE topology event actually gets a host into the registry for the
// first time; an UP status event only refreshes a host already known.
func (cc *ControlConnection) refreshHost(ctx context.Context, conn *transport.Connection, address string) error {
	ctx, cancel := cc.opts.requestCtx(ctx)
	defer cancel()

	var (
		rows transport.Rows
		err  error
	)
	if address == conn.Host {
		rows, err = cc.runner.Execute(ctx, conn, transport.Request{Statement: transport.SelectLocal})
	} else {
		rows, err = cc.runner.Execute(ctx, conn, transport.Request{Statement: transport.SelectPeerByAddress, Args: []string{address}})
	}
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}

	row := rows[0]
	if address != conn.Host {
		address = peerIP(row)
	}
	cc.registry.HostFound(address, rowToRegistryRow(row))
	return nil
}

// peerIP applies the peer_ip masking rule: rpc_address unless it is
// "0.0.0.0", in which case fall back to peer.
func peerIP(row transport.Row) string {
	if addr := row["rpc_address"]; addr != "" && addr != "0.0.0.0" {
		return addr
	}
	return row["peer"]
}

func rowToRegistryRow(row transport.Row) registry.Row {
	return registry.Row{
		DataCenter:     row["data_center"],
		Rack:           row["rack"],
		HostID:         row["host_id"],
		ReleaseVersion: row["release_version"],
	}
}
