// Package tunnel implements the GRE tunnel registry: a Tunnel binds a
// virtual interface name to a remote IP, and the Map indexes tunnels both
// ways for the forwarding engine's encapsulation and decapsulation paths.
package tunnel

import (
	"sync"

	"github.com/lirlia/100day_challenge_backend/day72_pwospf_router/internal/netaddr"
)

// Mode is always GRE for now; kept as a field (rather than assumed) so the
// operator command layer and config loader have somewhere to record it.
type Mode int

const GRE Mode = 0

// Tunnel binds a local virtual interface to a remote endpoint.
type Tunnel struct {
	Name            string
	LocalInterface  string
	RemoteIP        netaddr.IPv4
	Mode            Mode
}

// Map indexes tunnels by name and by remote IP under one coarse lock.
type Map struct {
	mu         sync.RWMutex
	byName     map[string]*Tunnel
	byRemoteIP map[netaddr.IPv4]*Tunnel
}

func NewMap() *Map {
	return &Map{
		byName:     make(map[string]*Tunnel),
		byRemoteIP: make(map[netaddr.IPv4]*Tunnel),
	}
}

// Add registers t, replacing any prior tunnel of the same name.
func (m *Map) Add(t *Tunnel) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if old, ok := m.byName[t.Name]; ok {
		delete(m.byRemoteIP, old.RemoteIP)
	}
	m.byName[t.Name] = t
	m.byRemoteIP[t.RemoteIP] = t
}

// Remove deletes the tunnel named name.
func (m *Map) Remove(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.byName[name]
	if !ok {
		return
	}
	delete(m.byName, name)
	delete(m.byRemoteIP, t.RemoteIP)
}

// ByName returns the tunnel registered under name, or nil.
func (m *Map) ByName(name string) *Tunnel {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.byName[name]
}

// ByRemoteIP returns the tunnel whose remote endpoint is ip, or nil.
func (m *Map) ByRemoteIP(ip netaddr.IPv4) *Tunnel {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.byRemoteIP[ip]
}

// All returns every registered tunnel, in no particular order.
func (m *Map) All() []*Tunnel {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Tunnel, 0, len(m.byName))
	for _, t := range m.byName {
		out = append(out, t)
	}
	return out
}
