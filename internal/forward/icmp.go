package forward

import (
	"github.com/lirlia/100day_challenge_backend/day72_pwospf_router/internal/packet"
	"github.com/lirlia/100day_challenge_backend/day72_pwospf_router/internal/pbuf"
)

// sendICMPError builds and emits an error ICMP message per §4.2.4: sourced
// from the egress interface LPM would use to reach the offender's source
// (so the reply looks like it came from the router's interface on that
// path), destined to the offender's source, DF set, default TTL, with a
// payload of the offending packet's IP header plus the first 8 bytes of
// its payload. nextHopMTU is only meaningful for Destination Unreachable /
// Fragmentation Required and ignored otherwise.
func (e *Engine) sendICMPError(offender *packet.IPv4, icmpType, icmpCode uint8, nextHopMTU uint16) {
	rt := e.Routes.LPM(offender.Src())
	if rt == nil {
		e.Logger.Printf("forward: no route to source %s, dropping ICMP error", offender.Src())
		return
	}

	hdrLen := int(offender.IHL()) * 4
	raw := offender.Bytes()
	if hdrLen > len(raw) {
		hdrLen = len(raw)
	}
	payload := offender.PayloadBytes()
	echoLen := 8
	if echoLen > len(payload) {
		echoLen = len(payload)
	}
	echoed := make([]byte, 0, hdrLen+echoLen)
	echoed = append(echoed, raw[:hdrLen]...)
	echoed = append(echoed, payload[:echoLen]...)

	buf := pbuf.New(len(echoed))
	copy(buf.Data(), echoed)

	icmp := packet.PrependICMP(buf, nil)
	icmp.SetType(icmpType)
	icmp.SetCode(icmpCode)
	icmp.SetIdentifier(0)
	if icmpType == packet.ICMPTypeDestUnreach && icmpCode == packet.ICMPCodeFragRequired {
		icmp.SetNextHopMTU(nextHopMTU)
	} else {
		icmp.SetSequence(0)
	}
	icmp.RecomputeChecksum()

	ip := packet.PrependIPv4(buf, nil)
	totalLen := uint16(packet.IPv4MinHeaderLen+packet.ICMPHeaderLen) + uint16(len(echoed))
	ip.FillHeader(e.nextIdentification(), packet.FlagDF, 0, packet.DefaultTTL, packet.ProtoICMP,
		rt.Interface.IP(), offender.Src(), totalLen)

	e.outbound(ip)
}
