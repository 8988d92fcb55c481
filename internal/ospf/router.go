package ospf

import (
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lirlia/100day_challenge_backend/day72_pwospf_router/internal/forward"
	"github.com/lirlia/100day_challenge_backend/day72_pwospf_router/internal/iface"
	"github.com/lirlia/100day_challenge_backend/day72_pwospf_router/internal/netaddr"
	"github.com/lirlia/100day_challenge_backend/day72_pwospf_router/internal/packet"
	"github.com/lirlia/100day_challenge_backend/day72_pwospf_router/internal/pbuf"
	"github.com/lirlia/100day_challenge_backend/day72_pwospf_router/internal/rtable"
)

// Router is the PWOSPF control-plane state machine: it implements
// forward.OSPFHandler to react to inbound HELLO/LSU packets, floods LSUs
// and emits HELLOs on its own periodic schedule (driven externally by
// internal/sched), and keeps the routing table's OSPF-derived dynamic
// entries synchronized with the topology's shortest-path spanning tree.
type Router struct {
	RouterID RouterID
	AreaID   uint32

	Ifaces  *iface.Map
	Routes  *rtable.Table
	Forward *forward.Engine
	Logger  *log.Logger

	Topology   *Topology
	OSPFIfaces *InterfaceMap

	advStaged *AdvertisementSet

	mu         sync.Mutex
	enabled    bool
	seqno      uint32 // truncated to uint16 on the wire
	lastFlood  time.Time
	linksDirty bool // local advertised set changed since last flood

	ospfIfaceSet atomic.Bool // at least one interface registered, gates periodic tasks
}

// New constructs a Router rooted at routerID, with OSPF initially disabled
// (operator command "ospf up" enables it; see internal/operator).
func New(routerID RouterID, areaID uint32, ifaces *iface.Map, routes *rtable.Table, fwd *forward.Engine, logger *log.Logger) *Router {
	if logger == nil {
		logger = log.Default()
	}
	root := NewNode(routerID)
	r := &Router{
		RouterID:   routerID,
		AreaID:     areaID,
		Ifaces:     ifaces,
		Routes:     routes,
		Forward:    fwd,
		Logger:     logger,
		Topology:   NewTopology(root),
		OSPFIfaces: NewInterfaceMap(),
		advStaged:  NewAdvertisementSet(),
		lastFlood:  time.Unix(0, 0),
	}
	r.Topology.OnDirtyCleared.Register(func(struct{}) { r.syncRoutingTable() })
	return r
}

func (r *Router) SetEnabled(v bool) {
	r.mu.Lock()
	r.enabled = v
	r.mu.Unlock()
}

func (r *Router) Enabled() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.enabled
}

// AddInterface registers phys as an OSPF-speaking interface, eligible for
// HELLO emission and advertisement.
func (r *Router) AddInterface(phys *iface.Interface) *Interface {
	return r.OSPFIfaces.OrNew(phys)
}

func (r *Router) nextSeqno() uint16 {
	return uint16(atomic.AddUint32(&r.seqno, 1))
}

// HandleHello implements forward.OSPFHandler (§4.5.1).
func (r *Router) HandleHello(on *iface.Interface, src netaddr.IPv4, v *packet.OSPF) {
	if !r.Enabled() || !v.Valid() || v.Type() != packet.OSPFTypeHello {
		return
	}
	h := v.Hello()
	if v.AreaID() != r.AreaID {
		return
	}
	if h.SubnetMask() != on.Mask() {
		return
	}
	ospfIface := r.OSPFIfaces.OrNew(on)
	if h.HelloInt() != uint16(ospfIface.HelloInt/time.Second) {
		return
	}

	senderID := RouterID(v.RouterID())
	neighborNode := r.Topology.Node(senderID)
	if neighborNode == nil {
		neighborNode = r.Topology.NodeOrNew(senderID)
	}
	gw := ospfIface.GatewayOrNew(senderID, src, neighborNode)
	gw.TouchHello(time.Now())
}

// HandleLSU implements forward.OSPFHandler (§4.5.2).
func (r *Router) HandleLSU(on *iface.Interface, src netaddr.IPv4, v *packet.OSPF) {
	if !r.Enabled() || !v.Valid() || v.Type() != packet.OSPFTypeLSU {
		return
	}
	l := v.LSU()
	senderID := RouterID(v.RouterID())
	if senderID == r.RouterID {
		return
	}

	sender := r.Topology.NodeOrNew(senderID)
	seqno, has := sender.Seqno()
	if has && !seqnoNewer(l.Seqno(), seqno) {
		return
	}
	sender.SetSeqno(l.Seqno())
	sender.TouchSeen(time.Now())

	if l.TTL() > 1 {
		r.forwardLSUFlood(l, v, on, src)
	}

	confirmed := NewAdvertisementSet()
	now := time.Now()
	for i := 0; i < int(l.AdvCount()); i++ {
		adv := l.Advertisement(i)
		advNbr := RouterID(adv.RouterID())
		subnet, mask := adv.Subnet(), adv.Mask()

		switch {
		case advNbr == r.RouterID:
			// Sender claims us as its neighbor on (subnet, mask): the
			// gateway's own HELLO-established existence on a matching
			// local interface IS the reverse half, so confirmation is a
			// local lookup rather than a wait on advs_staged.
			if gw := r.confirmGatewayTo(senderID, subnet, mask); gw != nil {
				r.commitLink(r.Topology.Root(), sender, subnet, mask, now)
				// Stage our own half of the link so the §8 binding
				// invariant (every committed link has a matching
				// advertisement in advStaged) holds even though this
				// branch confirms via gateway state rather than by
				// waiting on the reverse advertisement.
				r.advStaged.Add(r.RouterID, senderID, subnet, mask)
				confirmed.Add(senderID, r.RouterID, subnet, mask)
			}
		case advNbr == PassiveRouterID && !mask.IsZero():
			r.commitLink(sender, r.Topology.PassiveEndpoint(), subnet, mask, now)
			confirmed.Add(senderID, PassiveRouterID, subnet, mask)
		default:
			advNode := r.Topology.Node(advNbr)
			if advNode != nil && advNode.LinkTo(senderID, subnet, mask) != nil {
				// Already committed from the other side's symmetric pass.
				confirmed.Add(senderID, advNbr, subnet, mask)
			} else if r.advStaged.Contains(advNbr, senderID, subnet, mask) {
				// The reverse half (advNbr claiming sender) was staged
				// when advNbr's own LSU was processed earlier: commit now.
				advNode = r.Topology.NodeOrNew(advNbr)
				r.commitLink(sender, advNode, subnet, mask, now)
				r.advStaged.Remove(advNbr, senderID, subnet, mask)
				confirmed.Add(senderID, advNbr, subnet, mask)
			} else {
				r.advStaged.Add(senderID, advNbr, subnet, mask)
			}
		}
	}

	r.removeUnconfirmed(sender, confirmed, now)
	r.Topology.MarkDirty()
	r.Topology.OnUpdate()
}

// seqnoNewer reports whether next is strictly newer than last under 16-bit
// wraparound arithmetic (PWOSPF sequence numbers wrap).
func seqnoNewer(next, last uint16) bool {
	return int16(next-last) > 0
}

// confirmGatewayTo returns (and marks Confirmed) the gateway keyed by
// senderID whose underlying interface's subnet matches (subnet, mask), or
// nil if no such gateway exists yet (the HELLO that would have created it
// hasn't arrived).
func (r *Router) confirmGatewayTo(senderID RouterID, subnet, mask netaddr.IPv4) *Gateway {
	subnet = subnet.Mask(mask)
	for _, on := range r.OSPFIfaces.All() {
		if on.Underlying.Mask() != mask || on.Underlying.Subnet() != subnet {
			continue
		}
		if gw := on.GatewayByRouterID(senderID); gw != nil {
			gw.Confirm()
			return gw
		}
	}
	return nil
}

// commitLink adds a bidirectional link a<->b over (subnet, mask): a link
// from a to b and, unless b is the shared passive endpoint, the reverse
// link from b to a.
func (r *Router) commitLink(a, b *Node, subnet, mask netaddr.IPv4, now time.Time) {
	link := NewLink(b, subnet, mask)
	link.TouchLSU(now)
	a.AddLink(link)
	if b.RouterID() != PassiveRouterID {
		reverse := NewLink(a, subnet, mask)
		reverse.TouchLSU(now)
		b.AddLink(reverse)
	}
}

// removeUnconfirmed drops any of sender's links whose (subnet, mask) is
// not in confirmed and whose age exceeds LSUTimeout.
func (r *Router) removeUnconfirmed(sender *Node, confirmed *AdvertisementSet, now time.Time) {
	var stale []*Link
	for _, l := range sender.Links() {
		neighborID := PassiveRouterID
		if l.Node != r.Topology.PassiveEndpoint() {
			neighborID = l.Node.RouterID()
		}
		if confirmed.Contains(sender.RouterID(), neighborID, l.Subnet, l.Mask) {
			continue
		}
		if l.AgeLSU(now) > LSUTimeout {
			stale = append(stale, l)
		}
	}
	if len(stale) == 0 {
		return
	}
	drop := make(map[*Link]bool, len(stale))
	for _, l := range stale {
		drop[l] = true
	}
	sender.mu.Lock()
	defer sender.mu.Unlock()
	kept := sender.links[:0]
	for _, l := range sender.links {
		if !drop[l] {
			kept = append(kept, l)
		}
	}
	sender.links = kept
}

// forwardLSUFlood decrements the received LSU's TTL and re-floods it,
// unchanged otherwise, to every directly connected neighbor except the one
// it arrived from.
func (r *Router) forwardLSUFlood(l *packet.OSPFLSU, v *packet.OSPF, arrivedOn *iface.Interface, arrivedFrom netaddr.IPv4) {
	for _, ospfIface := range r.OSPFIfaces.All() {
		for _, gw := range ospfIface.Gateways() {
			if ospfIface.Underlying == arrivedOn && gw.GatewayIP == arrivedFrom {
				continue
			}
			r.sendLSUCopy(v, l, ospfIface, gw)
		}
	}
}

// sendLSUCopy rebuilds and unicasts an independent copy of an LSU packet
// (received or freshly built) to one neighbor, with TTL decremented by one
// from the source packet's value.
func (r *Router) sendLSUCopy(v *packet.OSPF, l *packet.OSPFLSU, on *Interface, gw *Gateway) {
	advs := make([]lsuAdv, l.AdvCount())
	for i := range advs {
		a := l.Advertisement(i)
		advs[i] = lsuAdv{subnet: a.Subnet(), mask: a.Mask(), routerID: RouterID(a.RouterID())}
	}
	r.emitLSU(on, gw, v.RouterID(), l.Seqno(), l.TTL()-1, advs)
}

type lsuAdv struct {
	subnet   netaddr.IPv4
	mask     netaddr.IPv4
	routerID RouterID
}

// FloodLSU emits a fresh LSU — this router's own current set of
// advertisements — to every directly connected neighbor, per §4.5.4. Called
// by the periodic task runner when LSU-INT has elapsed or the local
// advertised set changed.
func (r *Router) FloodLSU() {
	if !r.Enabled() {
		return
	}
	advs := r.localAdvertisements()
	seqno := r.nextSeqno()
	for _, on := range r.OSPFIfaces.All() {
		for _, gw := range on.Gateways() {
			r.emitLSU(on, gw, uint32(r.RouterID), seqno, 64, advs)
		}
	}
	r.mu.Lock()
	r.lastFlood = time.Now()
	r.linksDirty = false
	r.mu.Unlock()
}

// localAdvertisements enumerates (subnet, mask, neighbor-rid) for every
// OSPF interface's gateways plus, for each hardware interface with no
// gateways yet, a passive-stub advertisement of its own subnet.
func (r *Router) localAdvertisements() []lsuAdv {
	var advs []lsuAdv
	for _, on := range r.OSPFIfaces.All() {
		gws := on.Gateways()
		if len(gws) == 0 {
			advs = append(advs, lsuAdv{
				subnet: on.Underlying.Subnet(), mask: on.Underlying.Mask(), routerID: PassiveRouterID,
			})
			continue
		}
		for _, gw := range gws {
			advs = append(advs, lsuAdv{
				subnet: on.Underlying.Subnet(), mask: on.Underlying.Mask(), routerID: gw.RouterID,
			})
		}
	}
	return advs
}

// DueForFlood reports whether LSUInt has elapsed since the last flood, or
// the locally advertised set changed since then.
func (r *Router) DueForFlood(now time.Time, lsuInt time.Duration) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.linksDirty || now.Sub(r.lastFlood) >= lsuInt
}

// EmitHellos sends a HELLO on every OSPF interface due for one (§4.5.4).
func (r *Router) EmitHellos(now time.Time) {
	if !r.Enabled() {
		return
	}
	for _, on := range r.OSPFIfaces.All() {
		if !on.DueForHello(now) {
			continue
		}
		r.emitHello(on)
		on.TouchHelloOut(now)
	}
}

// TickNeighborTimeout implements §4.5.5: drop gateways whose last HELLO
// exceeds 3xHELLOINT, and topology nodes whose age exceeds LSU-TIMEOUT.
func (r *Router) TickNeighborTimeout(now time.Time) {
	for _, on := range r.OSPFIfaces.All() {
		for _, gw := range on.Gateways() {
			if gw.HelloAge(now) > 3*on.HelloInt {
				on.RemoveGateway(gw.RouterID)
				r.Topology.MarkDirty()
			}
		}
	}
	for _, n := range r.Topology.Nodes() {
		if n.Age(now) > LSUTimeout {
			r.Topology.RemoveNode(n.RouterID())
		}
	}
	r.Topology.OnUpdate()
}

// emitHello builds and sends a HELLO frame directly on on's underlying
// interface, addressed to the all-OSPF-routers multicast and broadcast on
// the wire: HELLO has no routing-table entry to LPM against, so it bypasses
// the forwarding engine's outbound path entirely.
func (r *Router) emitHello(on *Interface) {
	phys := on.Underlying
	buf := pbuf.New(packet.OSPFHelloBodyLen)

	ospfView := packet.PrependOSPF(buf, nil)
	hello := ospfView.Hello()
	hello.SetSubnetMask(phys.Mask())
	hello.SetHelloInt(uint16(on.HelloInt / time.Second))
	hello.ZeroPadding()
	ospfView.SetRouterID(uint32(r.RouterID))
	r.fillCommonHeader(ospfView, packet.OSPFTypeHello, packet.OSPFHeaderLen+packet.OSPFHelloBodyLen)

	ip := packet.PrependIPv4(buf, nil)
	ip.FillHeader(0, 0, 0, packet.DefaultTTL, packet.ProtoOSPF, phys.IP(), packet.HelloMulticast,
		uint16(packet.IPv4MinHeaderLen+packet.OSPFHeaderLen+packet.OSPFHelloBodyLen))

	eth := packet.PrependEthernet(buf)
	eth.SetSrc(phys.MAC())
	eth.SetDst(netaddr.MACBroadcast)
	eth.SetEthertype(packet.EthertypeIPv4)

	if err := r.Forward.Driver.Send(phys.Name(), eth.Bytes()); err != nil {
		r.Logger.Printf("ospf: send hello on %s failed: %v", phys.Name(), err)
	}
}

// emitLSU builds one LSU packet carrying advs and unicasts it to gw over
// on, recursing into the forwarding engine's normal outbound path (the
// neighbor is directly connected, so LPM resolves it via the interface's
// connected route).
func (r *Router) emitLSU(on *Interface, gw *Gateway, routerID uint32, seqno uint16, ttl uint16, advs []lsuAdv) {
	bodyLen := packet.OSPFLSUBodyLen + len(advs)*packet.OSPFAdvLen
	buf := pbuf.New(bodyLen)

	ospfView := packet.PrependOSPF(buf, nil)
	lsu := ospfView.LSU()
	lsu.SetSeqno(seqno)
	lsu.SetTTL(ttl)
	lsu.SetAdvCount(uint32(len(advs)))
	for i, a := range advs {
		entry := lsu.Advertisement(i)
		entry.SetSubnet(a.subnet)
		entry.SetMask(a.mask)
		entry.SetRouterID(uint32(a.routerID))
	}
	ospfView.SetRouterID(routerID)
	r.fillCommonHeader(ospfView, packet.OSPFTypeLSU, packet.OSPFHeaderLen+bodyLen)

	ip := packet.PrependIPv4(buf, nil)
	ip.FillHeader(0, 0, 0, packet.DefaultTTL, packet.ProtoOSPF, on.Underlying.IP(), gw.GatewayIP,
		uint16(packet.IPv4MinHeaderLen+packet.OSPFHeaderLen+bodyLen))

	r.Forward.Outbound(ip)
}

// fillCommonHeader stamps version/type/len/area-id, zeroes autype/auth,
// and recomputes the checksum. The caller must set RouterID beforehand:
// HELLO and self-originated LSUs carry this router's own id, but a
// forwarded LSU keeps the original sender's id unchanged.
func (r *Router) fillCommonHeader(v *packet.OSPF, typ uint8, length int) {
	v.SetVersion(packet.OSPFVersion)
	v.SetType(typ)
	v.SetLen(uint16(length))
	v.SetAreaID(r.AreaID)
	v.ZeroAutypeAndAuth()
	v.RecomputeChecksum()
}

// syncRoutingTable implements §4.5.3's routing-table reactor: clear every
// OSPF-derived dynamic entry, then add one per (subnet, mask) link of each
// reachable non-root node, next-hopped through the root-adjacent gateway
// on its shortest path.
func (r *Router) syncRoutingTable() {
	r.Routes.RemoveKind(rtable.Dynamic)

	for _, n := range r.Topology.Nodes() {
		if n == r.Topology.PassiveEndpoint() {
			continue
		}
		gwIface, gwIP, ok := r.firstHop(n)
		if !ok {
			continue
		}
		for _, l := range n.Links() {
			r.Routes.Insert(&rtable.Entry{
				Subnet: l.Subnet, Mask: l.Mask, Gateway: gwIP, Interface: gwIface, Kind: rtable.Dynamic,
			})
		}
	}
}

// firstHop walks n's prev-chain back to the root-adjacent node N1 and
// returns the local interface N1's gateway lives on, and that gateway's
// IP (the actual next hop on the wire).
func (r *Router) firstHop(n *Node) (*iface.Interface, netaddr.IPv4, bool) {
	if n.distanceValue() >= MaxDistance {
		return nil, netaddr.Zero, false
	}
	cur := n
	for {
		p := cur.prevNode()
		if p == nil {
			return nil, netaddr.Zero, false
		}
		if p.RouterID() == r.RouterID {
			break
		}
		cur = p
	}
	n1 := cur
	for _, on := range r.OSPFIfaces.All() {
		for _, gw := range on.Gateways() {
			if gw.RouterID == n1.RouterID() {
				return on.Underlying, gw.GatewayIP, true
			}
		}
	}
	return nil, netaddr.Zero, false
}
