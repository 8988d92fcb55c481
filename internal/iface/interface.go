// Package iface implements the router's named-port model: Interface and
// the InterfaceMap that indexes them by name and by configured IP.
package iface

import (
	"sync"

	"github.com/lirlia/100day_challenge_backend/day72_pwospf_router/internal/netaddr"
	"github.com/lirlia/100day_challenge_backend/day72_pwospf_router/internal/notify"
)

// Type distinguishes a physical (hardware) port from a tunnel endpoint
// (virtual), matching the routing table and forwarding engine's handling
// of GRE-bound egress.
type Type int

const (
	Hardware Type = iota
	Virtual
)

func (t Type) String() string {
	if t == Virtual {
		return "virtual"
	}
	return "hardware"
}

// MACEvent, IPEvent, and EnabledEvent are the payloads delivered by an
// Interface's onMAC/onIP/onEnabled notifiers.
type MACEvent struct {
	Interface *Interface
	Old, New  netaddr.MAC
}

type IPEvent struct {
	Interface *Interface
	Old, New  netaddr.IPv4
}

type EnabledEvent struct {
	Interface *Interface
	Enabled   bool
}

// Interface is a named router port: its MAC/IP/mask, enabled state, type,
// and (for hardware ports) the OS file descriptor used to send/receive
// frames. Mutations to mac/ip/enabled fire the matching notifier.
type Interface struct {
	mu sync.RWMutex

	name    string
	mac     netaddr.MAC
	ip      netaddr.IPv4
	mask    netaddr.IPv4
	speed   int
	enabled bool
	kind    Type
	fd      int // OS file descriptor for hardware ports; unused for virtual

	OnMAC     notify.Notifier[MACEvent]
	OnIP      notify.Notifier[IPEvent]
	OnEnabled notify.Notifier[EnabledEvent]
}

// New constructs an Interface with fd set to -1 (no OS descriptor yet).
func New(name string, kind Type) *Interface {
	return &Interface{name: name, kind: kind, fd: -1, enabled: true}
}

func (i *Interface) Name() string { return i.name }
func (i *Interface) Type() Type   { return i.kind }

func (i *Interface) MAC() netaddr.MAC {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.mac
}

func (i *Interface) SetMAC(m netaddr.MAC) {
	i.mu.Lock()
	old := i.mac
	i.mac = m
	i.mu.Unlock()
	if old != m {
		i.OnMAC.Notify(MACEvent{Interface: i, Old: old, New: m})
	}
}

func (i *Interface) IP() netaddr.IPv4 {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.ip
}

func (i *Interface) SetIP(ip netaddr.IPv4) {
	i.mu.Lock()
	old := i.ip
	i.ip = ip
	i.mu.Unlock()
	if old != ip {
		i.OnIP.Notify(IPEvent{Interface: i, Old: old, New: ip})
	}
}

func (i *Interface) Mask() netaddr.IPv4 {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.mask
}

func (i *Interface) SetMask(m netaddr.IPv4) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.mask = m
}

func (i *Interface) Speed() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.speed
}

func (i *Interface) SetSpeed(s int) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.speed = s
}

func (i *Interface) Enabled() bool {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.enabled
}

func (i *Interface) SetEnabled(v bool) {
	i.mu.Lock()
	old := i.enabled
	i.enabled = v
	i.mu.Unlock()
	if old != v {
		i.OnEnabled.Notify(EnabledEvent{Interface: i, Enabled: v})
	}
}

func (i *Interface) FD() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.fd
}

func (i *Interface) SetFD(fd int) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.fd = fd
}

// Subnet returns this interface's configured IP masked by its subnet mask.
func (i *Interface) Subnet() netaddr.IPv4 {
	return i.IP().Mask(i.Mask())
}

// Map indexes a set of Interfaces by name and by configured IP, under a
// single coarse lock shared by both indexes (the packet-handling and timer
// contexts both read this map; the acquisition order documented for the
// router as a whole puts the interface map lock first).
type Map struct {
	mu      sync.RWMutex
	byName  map[string]*Interface
	byIP    map[netaddr.IPv4]*Interface
}

func NewMap() *Map {
	return &Map{
		byName: make(map[string]*Interface),
		byIP:   make(map[netaddr.IPv4]*Interface),
	}
}

// Add registers iface under its name and, once it has one, its IP.
// Re-adding a name already present replaces the prior entry.
func (m *Map) Add(i *Interface) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byName[i.Name()] = i
	if !i.IP().IsZero() {
		m.byIP[i.IP()] = i
	}
}

// Remove deletes the interface named name from both indexes.
func (m *Map) Remove(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i, ok := m.byName[name]
	if !ok {
		return
	}
	delete(m.byName, name)
	delete(m.byIP, i.IP())
}

// ByName returns the interface named name, or nil if none.
func (m *Map) ByName(name string) *Interface {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.byName[name]
}

// InterfaceAddr returns the interface whose configured IP equals ip, or
// nil if none has that address.
func (m *Map) InterfaceAddr(ip netaddr.IPv4) *Interface {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.byIP[ip]
}

// NoteIPChanged refreshes the IP index after i.SetIP has changed i's
// address; callers that mutate an interface's IP through this map (rather
// than directly) should call this so InterfaceAddr stays correct.
func (m *Map) NoteIPChanged(i *Interface, old netaddr.IPv4) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !old.IsZero() {
		delete(m.byIP, old)
	}
	if !i.IP().IsZero() {
		m.byIP[i.IP()] = i
	}
}

// All returns every interface currently registered, in no particular order.
func (m *Map) All() []*Interface {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Interface, 0, len(m.byName))
	for _, i := range m.byName {
		out = append(out, i)
	}
	return out
}
