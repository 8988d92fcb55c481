package forward

import (
	"time"

	"github.com/lirlia/100day_challenge_backend/day72_pwospf_router/internal/arp"
	"github.com/lirlia/100day_challenge_backend/day72_pwospf_router/internal/iface"
	"github.com/lirlia/100day_challenge_backend/day72_pwospf_router/internal/packet"
)

// handleInboundIPv4 is the inbound IP decision point: locally-addressed
// traffic (including the OSPF all-routers multicast) is delivered to this
// router's own protocol handlers; everything else is TTL-decremented once
// (the ingress decrement the design calls out) and handed to the outbound
// path.
func (e *Engine) handleInboundIPv4(in *iface.Interface, ip *packet.IPv4) {
	dst := ip.Dst()
	if dst == packet.HelloMulticast || e.Ifaces.InterfaceAddr(dst) != nil {
		e.deliverLocal(in, ip)
		return
	}

	if ip.TTL() <= 1 {
		e.sendICMPError(ip, packet.ICMPTypeTimeExceeded, packet.ICMPCodeTTLExceeded, 0)
		return
	}
	ip.SetTTL(ip.TTL() - 1)
	ip.RecomputeChecksum()
	e.outbound(ip)
}

// deliverLocal handles a packet addressed to one of our own interfaces (or
// the OSPF multicast group).
func (e *Engine) deliverLocal(in *iface.Interface, ip *packet.IPv4) {
	switch ip.Protocol() {
	case packet.ProtoICMP:
		if v, ok := ip.Payload().(*packet.ICMP); ok {
			e.handleLocalICMP(ip, v)
		}
	case packet.ProtoGRE:
		if v, ok := ip.Payload().(*packet.GRE); ok {
			e.handleInboundGRE(in, v)
		}
	case packet.ProtoOSPF:
		if v, ok := ip.Payload().(*packet.OSPF); ok && v.Valid() && e.OSPF != nil {
			switch v.Type() {
			case packet.OSPFTypeHello:
				e.OSPF.HandleHello(in, ip.Src(), v)
			case packet.OSPFTypeLSU:
				e.OSPF.HandleLSU(in, ip.Src(), v)
			}
		}
	case packet.ProtoTCP:
		if e.TCP != nil {
			e.TCP.HandleTCP(ip.Src(), ip.Dst(), ip.PayloadBytes())
		}
	case packet.ProtoUDP:
		e.sendICMPError(ip, packet.ICMPTypeDestUnreach, packet.ICMPCodeProtoUnreachable, 0)
	default:
		e.sendICMPError(ip, packet.ICMPTypeDestUnreach, packet.ICMPCodeProtoUnreachable, 0)
	}
}

// handleLocalICMP answers an Echo Request in place (swap src/dst, flip the
// type, recompute both checksums) and re-enters the outbound path; any
// other locally-addressed ICMP type is dropped, matching the spec's
// silence on handling Echo Reply or error messages addressed to us.
func (e *Engine) handleLocalICMP(ip *packet.IPv4, icmp *packet.ICMP) {
	if !icmp.Valid() || icmp.Type() != packet.ICMPTypeEchoRequest {
		return
	}
	icmp.SetType(packet.ICMPTypeEchoReply)
	icmp.RecomputeChecksum()

	src, dst := ip.Src(), ip.Dst()
	ip.SetSrc(dst)
	ip.SetDst(src)
	ip.SetTTL(packet.DefaultTTL)
	ip.RecomputeChecksum()
	e.outbound(ip)
}

// handleInboundGRE decapsulates a GRE-tunneled IP packet addressed to one
// of our tunnel endpoints and re-enters inbound processing on the inner
// packet, as if it had just arrived on the tunnel's local virtual
// interface.
func (e *Engine) handleInboundGRE(in *iface.Interface, gre *packet.GRE) {
	if !gre.Valid() {
		return
	}
	inner, ok := gre.Payload().(*packet.IPv4)
	if !ok || !inner.Valid() {
		return
	}

	outerSrc := gre.Enclosing().(*packet.IPv4).Src()
	tunIface := in
	if tun := e.Tunnels.ByRemoteIP(outerSrc); tun != nil {
		if local := e.Ifaces.ByName(tun.LocalInterface); local != nil {
			tunIface = local
		}
	}
	e.handleInboundIPv4(tunIface, inner)
}

// handleInboundARP implements the merge-flag rule: refresh the cache for
// (sender IP, sender MAC) if already present, add it as dynamic if this
// packet is addressed to one of our interfaces, answer requests in place,
// and always drain the ARP queue for the sender IP afterward (this covers
// both the reply case the queue exists for and the harmless no-op when
// nothing was queued).
func (e *Engine) handleInboundARP(in *iface.Interface, a *packet.ARP) {
	now := time.Now()
	existing, merged := e.ARPCache.Lookup(a.SenderIP())
	if merged {
		e.ARPCache.Add(now, a.SenderIP(), a.SenderMAC(), existing.Kind)
	}

	if a.TargetIP() == in.IP() {
		if !merged {
			e.ARPCache.Add(now, a.SenderIP(), a.SenderMAC(), arp.Dynamic)
		}
		if a.Oper() == packet.ARPOperRequest {
			e.sendARPReply(in, a)
		}
	}

	e.drainARPQueue(a.SenderIP(), a.SenderMAC())
}

// sendARPReply turns an inbound request into a reply in place: swap
// sender/target, set our own MAC/IP as sender, rewrite the enclosing
// Ethernet frame's addresses, and send back out the same interface.
func (e *Engine) sendARPReply(in *iface.Interface, a *packet.ARP) {
	replyMAC, replyIP := a.SenderMAC(), a.SenderIP()
	a.SetTargetMAC(replyMAC)
	a.SetTargetIP(replyIP)
	a.SetSenderMAC(in.MAC())
	a.SetSenderIP(in.IP())
	a.SetOper(packet.ARPOperReply)

	if eth, ok := a.Enclosing().(*packet.Ethernet); ok {
		eth.SetDst(replyMAC)
		eth.SetSrc(in.MAC())
	}
	e.sendFrame(in, a.Buf().Data())
}

