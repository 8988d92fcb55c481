package ospf

import (
	"sync"
	"time"

	"github.com/lirlia/100day_challenge_backend/day72_pwospf_router/internal/iface"
	"github.com/lirlia/100day_challenge_backend/day72_pwospf_router/internal/netaddr"
)

// GatewayState tracks whether a neighbor's advertised link back to us has
// been confirmed by a matching LSU advertisement yet.
type GatewayState int

const (
	Unconfirmed GatewayState = iota
	Confirmed
)

// DefaultHelloInt and DefaultLSUInt are the PWOSPF default intervals
// (§6); LSUTimeout is 3x the LSU interval, per spec.
const (
	DefaultHelloInt = 10 * time.Second
	DefaultLSUInt   = 30 * time.Second
	LSUTimeout      = 3 * DefaultLSUInt
)

// Gateway is one directly-connected OSPF neighbor reached on a local
// interface: created unconfirmed from the first HELLO received from it,
// promoted to confirmed once its LSU claims us as a neighbor on the
// matching subnet.
type Gateway struct {
	mu sync.Mutex

	RouterID  RouterID
	GatewayIP netaddr.IPv4 // the neighbor's IP on the wire, i.e. the next hop
	Neighbor  *Node

	state        GatewayState
	lastHello    time.Time
}

func newGateway(id RouterID, gatewayIP netaddr.IPv4, neighbor *Node) *Gateway {
	return &Gateway{RouterID: id, GatewayIP: gatewayIP, Neighbor: neighbor, lastHello: time.Now()}
}

func (g *Gateway) State() GatewayState {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

func (g *Gateway) setState(s GatewayState) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.state = s
}

// Confirm transitions the gateway to Confirmed: reached once the
// neighbor's own LSU advertises this router as its neighbor over the
// matching subnet (§4.5).
func (g *Gateway) Confirm() { g.setState(Confirmed) }

func (g *Gateway) TouchHello(now time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.lastHello = now
}

func (g *Gateway) HelloAge(now time.Time) time.Duration {
	g.mu.Lock()
	defer g.mu.Unlock()
	return now.Sub(g.lastHello)
}

// Interface is the OSPF-level state attached to one of the router's
// physical interfaces: its HELLO interval, the time of the last HELLO we
// sent, and the set of directly-connected gateways discovered on it,
// indexed both by the neighbor's router-id and by its on-the-wire IP.
type Interface struct {
	mu sync.Mutex

	Underlying   *iface.Interface
	HelloInt     time.Duration
	lastHelloOut time.Time

	byRouterID map[RouterID]*Gateway
	byGatewayIP map[netaddr.IPv4]*Gateway
}

// NewInterface builds OSPF interface state over phys with the default
// HELLO interval.
func NewInterface(phys *iface.Interface) *Interface {
	return &Interface{
		Underlying:  phys,
		HelloInt:    DefaultHelloInt,
		byRouterID:  make(map[RouterID]*Gateway),
		byGatewayIP: make(map[netaddr.IPv4]*Gateway),
	}
}

// GatewayByRouterID returns the gateway keyed by neighbor router-id, or
// nil.
func (i *Interface) GatewayByRouterID(id RouterID) *Gateway {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.byRouterID[id]
}

// GatewayOrNew returns the existing gateway for id on this interface,
// creating it (unconfirmed, neighbor = neighborNode) if absent.
func (i *Interface) GatewayOrNew(id RouterID, gatewayIP netaddr.IPv4, neighborNode *Node) *Gateway {
	i.mu.Lock()
	defer i.mu.Unlock()
	if g, ok := i.byRouterID[id]; ok {
		return g
	}
	g := newGateway(id, gatewayIP, neighborNode)
	i.byRouterID[id] = g
	i.byGatewayIP[gatewayIP] = g
	return g
}

// RemoveGateway deletes the gateway keyed by id, if present.
func (i *Interface) RemoveGateway(id RouterID) {
	i.mu.Lock()
	defer i.mu.Unlock()
	g, ok := i.byRouterID[id]
	if !ok {
		return
	}
	delete(i.byRouterID, id)
	delete(i.byGatewayIP, g.GatewayIP)
}

// Gateways returns a snapshot of every gateway on this interface.
func (i *Interface) Gateways() []*Gateway {
	i.mu.Lock()
	defer i.mu.Unlock()
	out := make([]*Gateway, 0, len(i.byRouterID))
	for _, g := range i.byRouterID {
		out = append(out, g)
	}
	return out
}

// DueForHello reports whether HelloInt has elapsed since the last HELLO
// this router sent on this interface.
func (i *Interface) DueForHello(now time.Time) bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return now.Sub(i.lastHelloOut) >= i.HelloInt
}

func (i *Interface) TouchHelloOut(now time.Time) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.lastHelloOut = now
}

// InterfaceMap indexes Interface OSPF state by the underlying physical
// interface's name.
type InterfaceMap struct {
	mu   sync.Mutex
	byName map[string]*Interface
}

func NewInterfaceMap() *InterfaceMap {
	return &InterfaceMap{byName: make(map[string]*Interface)}
}

// OrNew returns the OSPF interface state for phys, creating it if this is
// the first time phys has been seen.
func (m *InterfaceMap) OrNew(phys *iface.Interface) *Interface {
	m.mu.Lock()
	defer m.mu.Unlock()
	if i, ok := m.byName[phys.Name()]; ok {
		return i
	}
	i := NewInterface(phys)
	m.byName[phys.Name()] = i
	return i
}

func (m *InterfaceMap) ByName(name string) *Interface {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.byName[name]
}

// All returns every OSPF interface currently tracked, in no particular
// order.
func (m *InterfaceMap) All() []*Interface {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Interface, 0, len(m.byName))
	for _, i := range m.byName {
		out = append(out, i)
	}
	return out
}
