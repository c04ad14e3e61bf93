package policy

import (
	"context"
	"sync/atomic"
)

// HostIter is a one-shot, ranked enumeration of candidate hosts. It is never
// reused or reordered by the control connection; a fresh plan is requested
// for every connect attempt.
type HostIter interface {
	// Next returns the next candidate IP, or ok=false when the plan is
	// exhausted.
	Next() (ip string, ok bool)
}

// LoadBalancingPolicy produces a fresh plan for each connection attempt.
type LoadBalancingPolicy interface {
	Plan(ctx context.Context, keyspace string) (HostIter, error)
}

// KnownHosts is the minimal view the round-robin policy needs of the
// Cluster Registry: its currently reachable members.
type KnownHosts interface {
	// LiveHosts returns the IPs of hosts not currently marked down.
	LiveHosts() []string
}

// SeedSource supplies bootstrap contact points, used when the registry is
// still empty (before the first successful topology refresh).
type SeedSource interface {
	Seeds(ctx context.Context) ([]string, error)
}

// RoundRobin ranks live registry hosts first (rotating the start position on
// each call for fairness across repeated connect attempts), falling back to
// the seed list when the registry has nothing yet.
type RoundRobin struct {
	hosts KnownHosts
	seeds SeedSource
	pos   atomic.Uint64
}

// NewRoundRobin builds a RoundRobin policy over hosts (typically the cluster
// registry) with seeds as the pre-topology-refresh fallback.
func NewRoundRobin(hosts KnownHosts, seeds SeedSource) *RoundRobin {
	return &RoundRobin{hosts: hosts, seeds: seeds}
}

// Plan ignores keyspace: this policy has no per-keyspace replica awareness,
// matching the distilled spec's narrow interface (keyspace is accepted for
// forward-compatibility with smarter policies, not consulted here).
func (p *RoundRobin) Plan(ctx context.Context, keyspace string) (HostIter, error) {
	candidates := p.hosts.LiveHosts()
	if len(candidates) == 0 {
		seeds, err := p.seeds.Seeds(ctx)
		if err != nil {
			return nil, err
		}
		candidates = seeds
	}
	if len(candidates) == 0 {
		return &sliceIter{}, nil
	}

	start := int(p.pos.Add(1)-1) % len(candidates)
	rotated := make([]string, 0, len(candidates))
	rotated = append(rotated, candidates[start:]...)
	rotated = append(rotated, candidates[:start]...)
	return &sliceIter{hosts: rotated}, nil
}

type sliceIter struct {
	hosts []string
	pos   int
}

func (it *sliceIter) Next() (string, bool) {
	if it.pos >= len(it.hosts) {
		return "", false
	}
	ip := it.hosts[it.pos]
	it.pos++
	return ip, true
}
