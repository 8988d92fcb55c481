package forward

import (
	"github.com/lirlia/100day_challenge_backend/day72_pwospf_router/internal/arp"
	"github.com/lirlia/100day_challenge_backend/day72_pwospf_router/internal/iface"
	"github.com/lirlia/100day_challenge_backend/day72_pwospf_router/internal/netaddr"
	"github.com/lirlia/100day_challenge_backend/day72_pwospf_router/internal/packet"
	"github.com/lirlia/100day_challenge_backend/day72_pwospf_router/internal/pbuf"
	"github.com/lirlia/100day_challenge_backend/day72_pwospf_router/internal/rtable"
)

// Outbound runs the 8-step outbound path (spec §4.2) for an IP packet this
// router originated itself, e.g. an OSPF HELLO or LSU built by
// internal/ospf. Exported so packages outside forward can submit
// originated packets without reaching into the engine's internals.
func (e *Engine) Outbound(ip *packet.IPv4) { e.outbound(ip) }

// outbound runs the 8-step outbound path (spec §4.2) for ip, which may
// either be a packet just decremented off the forwarding path or one this
// router originated itself (an ICMP error, an Echo Reply, a GRE-wrapped
// outer packet, a fragment).
func (e *Engine) outbound(ip *packet.IPv4) {
	if ip.TTL() < 1 {
		e.sendICMPError(ip, packet.ICMPTypeTimeExceeded, packet.ICMPCodeTTLExceeded, 0)
		return
	}

	if e.Ifaces.InterfaceAddr(ip.Dst()) != nil {
		return // addressed to us but reached the outbound path: drop, don't loop
	}

	rt := e.Routes.LPM(ip.Dst())
	if rt == nil {
		if !isICMPDestUnreachable(ip) {
			e.sendICMPError(ip, packet.ICMPTypeDestUnreach, packet.ICMPCodeHostUnreachable, 0)
		}
		return
	}

	if rt.Interface.Type() == iface.Virtual {
		e.encapsulateGRE(ip, rt)
		return
	}

	if int(ip.TotalLen()) > packet.EthernetMTU {
		e.fragment(ip, rt)
		return
	}

	e.sendOverEthernet(ip, rt.Interface, nextHop(rt, ip.Dst()))
}

func nextHop(rt *rtable.Entry, dst netaddr.IPv4) netaddr.IPv4 {
	if rt.Gateway.IsZero() {
		return dst
	}
	return rt.Gateway
}

func isICMPDestUnreachable(ip *packet.IPv4) bool {
	if ip.Protocol() != packet.ProtoICMP {
		return false
	}
	icmp, ok := ip.Payload().(*packet.ICMP)
	return ok && icmp.Valid() && icmp.Type() == packet.ICMPTypeDestUnreach
}

// sendOverEthernet is outbound steps 6-8: resolve (or queue-and-request)
// the next hop's MAC, framing ip in the Ethernet header it arrived in if
// it has one (the ordinary forwarding case: rewrite in place rather than
// stack a second header) or a fresh one otherwise (originated packets).
func (e *Engine) sendOverEthernet(ip *packet.IPv4, out *iface.Interface, hop netaddr.IPv4) {
	eth, ok := ip.Enclosing().(*packet.Ethernet)
	if !ok || eth == nil {
		// A decapsulated packet still has the outer IP and GRE headers in
		// front of it in the buffer; drop them so the new header frames ip.
		ip.Buf().Truncate(ip.Buf().Len() - ip.Offset())
		eth = packet.PrependEthernet(ip.Buf())
	}
	eth.SetSrc(out.MAC())
	eth.SetEthertype(packet.EthertypeIPv4)
	e.resolveAndSend(hop, out, eth)
}

// resolveAndSend fills in the destination MAC and transmits immediately
// if hop is already cached; otherwise it queues the frame and, for the
// first packet queued against a given unresolved hop, emits an ARP
// request.
func (e *Engine) resolveAndSend(hop netaddr.IPv4, out *iface.Interface, eth *packet.Ethernet) {
	if entry, ok := e.ARPCache.Lookup(hop); ok {
		eth.SetDst(entry.MAC)
		e.sendFrame(out, eth.Buf().Data())
		return
	}

	shouldRequest := e.ARPQueue.Push(hop, out, arp.PendingFrame{Buf: eth.Buf()})
	if shouldRequest {
		req := packet.BuildRequest(out.MAC(), out.IP(), hop)
		e.sendFrame(out, req.Buf().Data())
	}
}

// drainARPQueue is called once a reply resolves senderIP/senderMAC: every
// frame queued for that next hop gets its destination MAC filled in and is
// sent, in arrival order.
func (e *Engine) drainARPQueue(senderIP netaddr.IPv4, senderMAC netaddr.MAC) {
	frames, out, ok := e.ARPQueue.Drain(senderIP)
	if !ok {
		return
	}
	for _, f := range frames {
		eth := packet.ParseEthernet(f.Buf.Data())
		eth.SetDst(senderMAC)
		e.sendFrame(out, eth.Buf().Data())
	}
}

func (e *Engine) sendFrame(out *iface.Interface, frame []byte) {
	if err := e.Driver.Send(out.Name(), frame); err != nil {
		e.Logger.Printf("forward: send on %s failed: %v", out.Name(), err)
	}
}

// encapsulateGRE implements §4.2.1: the tunnel's remote IP is routed
// independently to find the physical egress interface to source the
// outer packet from, then a GRE header and a fresh outer IP header are
// prepended onto the same buffer (exercising the tail-offset invariant:
// the inner packet's fields stay correct through both prepends) and the
// outer packet recurses back into outbound, which re-runs the full
// algorithm (LPM, MTU check, ARP resolution) for it.
func (e *Engine) encapsulateGRE(inner *packet.IPv4, rt *rtable.Entry) {
	tun := e.Tunnels.ByName(rt.Interface.Name())
	if tun == nil {
		e.Logger.Printf("forward: virtual interface %s has no tunnel binding", rt.Interface.Name())
		return
	}
	physRoute := e.Routes.LPM(tun.RemoteIP)
	if physRoute == nil {
		e.Logger.Printf("forward: no route to tunnel %s remote %s", tun.Name, tun.RemoteIP)
		return
	}

	// Drop any bytes still in front of the inner packet (the Ethernet
	// header it arrived in, or a previous tunnel's outer headers) so the
	// GRE header lands directly in front of it.
	inner.Buf().Truncate(inner.Buf().Len() - inner.Offset())

	innerLen := inner.TotalLen()
	gre := packet.PrependGRE(inner.Buf(), nil)
	gre.FillHeader()

	outer := packet.PrependIPv4(inner.Buf(), nil)
	outer.FillHeader(e.nextIdentification(), 0, 0, packet.DefaultTTL, packet.ProtoGRE,
		physRoute.Interface.IP(), tun.RemoteIP,
		uint16(packet.IPv4MinHeaderLen+packet.GREHeaderLen)+innerLen)

	e.outbound(outer)
}

// fragment implements §4.2.2: split ip's payload into at-most-1480-byte
// chunks, each emitted as an independent IP packet through the outbound
// path (skipping straight to sendOverEthernet, since a fragment is by
// construction no larger than the MTU). Per the spec, every fragment
// shares the ORIGINAL packet's checksum value as its identification field.
func (e *Engine) fragment(ip *packet.IPv4, rt *rtable.Entry) {
	if ip.Flags()&packet.FlagDF != 0 {
		e.sendICMPError(ip, packet.ICMPTypeDestUnreach, packet.ICMPCodeFragRequired, packet.EthernetMTU)
		return
	}

	payload := append([]byte(nil), ip.PayloadBytes()...)
	identification := ip.Checksum()
	proto, ttl := ip.Protocol(), ip.TTL()
	src, dst := ip.Src(), ip.Dst()
	hop := nextHop(rt, dst)

	for offset := 0; offset < len(payload); offset += packet.MaxFragmentPayload {
		end := offset + packet.MaxFragmentPayload
		if end > len(payload) {
			end = len(payload)
		}
		chunk := payload[offset:end]
		more := end < len(payload)

		buf := pbuf.New(len(chunk))
		copy(buf.Data(), chunk)
		frag := packet.PrependIPv4(buf, nil)
		var flags uint8
		if more {
			flags = packet.FlagMF
		}
		frag.FillHeader(identification, flags, uint16(offset/8), ttl, proto, src, dst,
			uint16(packet.IPv4MinHeaderLen+len(chunk)))
		e.sendOverEthernet(frag, rt.Interface, hop)
	}
}
