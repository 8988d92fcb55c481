// Package forward implements the forwarding engine: inbound dispatch,
// the outbound IP path (LPM, GRE encapsulation, fragmentation, ARP
// resolution), and ICMP error generation.
package forward

import (
	"log"
	"sync/atomic"

	"github.com/lirlia/100day_challenge_backend/day72_pwospf_router/internal/arp"
	"github.com/lirlia/100day_challenge_backend/day72_pwospf_router/internal/iface"
	"github.com/lirlia/100day_challenge_backend/day72_pwospf_router/internal/netaddr"
	"github.com/lirlia/100day_challenge_backend/day72_pwospf_router/internal/netdev"
	"github.com/lirlia/100day_challenge_backend/day72_pwospf_router/internal/packet"
	"github.com/lirlia/100day_challenge_backend/day72_pwospf_router/internal/rtable"
	"github.com/lirlia/100day_challenge_backend/day72_pwospf_router/internal/tunnel"
)

// OSPFHandler is implemented by internal/ospf's Router; kept as an
// interface here (rather than an import) so the forwarding engine and the
// OSPF router can each depend on the other's narrow surface without an
// import cycle: forward calls into OSPF on inbound HELLO/LSU, and OSPF
// calls back into forward's Outbound to emit HELLO/LSU packets it builds.
type OSPFHandler interface {
	HandleHello(on *iface.Interface, src netaddr.IPv4, v *packet.OSPF)
	HandleLSU(on *iface.Interface, src netaddr.IPv4, v *packet.OSPF)
}

// TCPHandler is the excluded external TCP stack hook; UDP has no hook and
// always yields ICMP Protocol Unreachable per spec.
type TCPHandler interface {
	HandleTCP(src, dst netaddr.IPv4, payload []byte)
}

// Engine ties together every table the forwarding path reads or mutates.
type Engine struct {
	Ifaces   *iface.Map
	Routes   *rtable.Table
	ARPCache *arp.Cache
	ARPQueue *arp.Queue
	Tunnels  *tunnel.Map
	Driver   netdev.Driver
	OSPF     OSPFHandler
	TCP      TCPHandler
	Logger   *log.Logger

	ipID atomic.Uint32 // monotonic source for originated packets' identification field
}

// New constructs an Engine over the given tables and driver. OSPF and TCP
// may be set after construction (router wiring assigns them once the OSPF
// subsystem exists, since it in turn depends on this Engine).
func New(ifaces *iface.Map, routes *rtable.Table, cache *arp.Cache, queue *arp.Queue, tunnels *tunnel.Map, driver netdev.Driver, logger *log.Logger) *Engine {
	if logger == nil {
		logger = log.Default()
	}
	return &Engine{
		Ifaces: ifaces, Routes: routes, ARPCache: cache, ARPQueue: queue,
		Tunnels: tunnels, Driver: driver, Logger: logger,
	}
}

func (e *Engine) nextIdentification() uint16 {
	return uint16(e.ipID.Add(1))
}

// HandleFrame is the packet-handling context's entry point: it parses a
// raw inbound Ethernet frame and dispatches it, recovering a panic (e.g.
// an out-of-range buffer access, which per the error-handling design is a
// programmer-fatal condition that must not take down the whole router) so
// that only the current frame's processing is lost.
func (e *Engine) HandleFrame(ifaceName string, frame []byte) {
	defer func() {
		if r := recover(); r != nil {
			e.Logger.Printf("forward: recovered panic handling frame on %s: %v", ifaceName, r)
		}
	}()

	in := e.Ifaces.ByName(ifaceName)
	if in == nil {
		e.Logger.Printf("forward: frame on unknown interface %q dropped", ifaceName)
		return
	}

	eth := packet.ParseEthernet(frame)
	if !eth.Valid() {
		e.Logger.Printf("forward: invalid Ethernet frame on %s dropped", ifaceName)
		return
	}

	h := &inboundHandler{engine: e, in: in}
	packet.Dispatch(eth, h)
}

// inboundHandler implements packet.Handler for the inbound pipeline.
type inboundHandler struct {
	engine *Engine
	in     *iface.Interface
}

func (h *inboundHandler) HandleEthernet(v *packet.Ethernet) {
	if !v.Valid() {
		h.engine.Logger.Printf("forward: invalid Ethernet header dropped")
		return
	}
	packet.Dispatch(v.Payload(), h)
}

func (h *inboundHandler) HandleUnknown(v *packet.Unknown) {}

func (h *inboundHandler) HandleARP(v *packet.ARP) {
	if !v.Valid() {
		h.engine.Logger.Printf("forward: invalid ARP packet dropped")
		return
	}
	h.engine.handleInboundARP(h.in, v)
}

func (h *inboundHandler) HandleIPv4(v *packet.IPv4) {
	if !v.Valid() {
		h.engine.Logger.Printf("forward: invalid IPv4 packet dropped")
		return
	}
	h.engine.handleInboundIPv4(h.in, v)
}

// HandleICMP, HandleGRE, and HandleOSPF are never reached via Dispatch on
// the inbound path: deliverLocal (in inbound.go) switches on ip.Protocol()
// and asserts ip.Payload() itself, since routing an IP-layer protocol needs the
// enclosing IPv4 view's fields (source/destination/TTL) alongside it.
// They exist only to satisfy packet.Handler.
func (h *inboundHandler) HandleICMP(v *packet.ICMP) {}
func (h *inboundHandler) HandleGRE(v *packet.GRE)   {}
func (h *inboundHandler) HandleOSPF(v *packet.OSPF) {}
