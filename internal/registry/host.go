// Package registry is the Cluster Registry collaborator: an externally
// synchronized catalogue of known cluster members and their up/down state.
// The control connection core never locks it directly; every exported method
// takes its own lock internally, mirroring the teacher's TunnelManager.
package registry

import (
	"sync"

	"github.com/google/uuid"
)

// Host is a known cluster member.
type Host struct {
	IP             string
	DataCenter     string
	Rack           string
	HostID         uuid.UUID
	ReleaseVersion string
	Down           bool
}

// Row is the subset of a system.local/system.peers result row the registry
// needs to populate or refresh a Host. Callers derive it from a transport.Row.
type Row struct {
	DataCenter     string
	Rack           string
	HostID         string
	ReleaseVersion string
}

// Registry tracks the set of known hosts. It is safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	hosts map[string]*Host
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{hosts: make(map[string]*Host)}
}

// HostFound records (or refreshes) a host from a topology/status row. A
// previously unknown host is added as up; a known host has its metadata
// replaced but its Down flag is left untouched (liveness is only ever
// changed by HostDown/HostUp).
func (r *Registry) HostFound(ip string, row Row) {
	r.mu.Lock()
	defer r.mu.Unlock()

	h, ok := r.hosts[ip]
	if !ok {
		h = &Host{IP: ip}
		r.hosts[ip] = h
	}
	h.DataCenter = row.DataCenter
	h.Rack = row.Rack
	h.ReleaseVersion = row.ReleaseVersion
	if id, err := uuid.Parse(row.HostID); err == nil {
		h.HostID = id
	}
}

// HostLost removes a host the control connection no longer sees in topology.
func (r *Registry) HostLost(ip string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.hosts, ip)
}

// HostDown marks a known host unreachable. Unknown IPs are ignored.
func (r *Registry) HostDown(ip string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if h, ok := r.hosts[ip]; ok {
		h.Down = true
	}
}

// HostUp marks a known host reachable again. Unknown IPs are ignored.
func (r *Registry) HostUp(ip string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if h, ok := r.hosts[ip]; ok {
		h.Down = false
	}
}

// Host returns the host for ip and whether it is known.
func (r *Registry) Host(ip string) (Host, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.hosts[ip]
	if !ok {
		return Host{}, false
	}
	return *h, true
}

// HasHost reports whether ip is known.
func (r *Registry) HasHost(ip string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.hosts[ip]
	return ok
}

// LiveHosts returns the IPs of hosts not currently marked down, satisfying
// the load balancing policy's KnownHosts contract.
func (r *Registry) LiveHosts() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	live := make([]string, 0, len(r.hosts))
	for ip, h := range r.hosts {
		if !h.Down {
			live = append(live, ip)
		}
	}
	return live
}

// EachHost calls fn once per known host. fn receives a copy, so it may be
// called without holding the registry's lock.
func (r *Registry) EachHost(fn func(Host)) {
	r.mu.RLock()
	snapshot := make([]Host, 0, len(r.hosts))
	for _, h := range r.hosts {
		snapshot = append(snapshot, *h)
	}
	r.mu.RUnlock()

	for _, h := range snapshot {
		fn(h)
	}
}
