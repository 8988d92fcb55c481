package packet

import (
	"encoding/binary"

	"github.com/lirlia/100day_challenge_backend/day72_pwospf_router/internal/netaddr"
	"github.com/lirlia/100day_challenge_backend/day72_pwospf_router/internal/pbuf"
)

// IPv4MinHeaderLen is the fixed RFC-791 header length this router parses
// and emits; IP options are never generated and are skipped on parse by
// honoring the header-length field.
const IPv4MinHeaderLen = 20

// EthernetMTU bounds the IP payload a single Ethernet frame may carry.
const EthernetMTU = 1500

// MaxFragmentPayload is the largest inner-payload slice a single fragment
// may carry: MTU minus one IP header, rounded down to a multiple of 8 so
// fragmentOffset (counted in 8-byte units) lands on an exact boundary.
const MaxFragmentPayload = 1480

// IP protocol numbers this router inspects.
const (
	ProtoICMP uint8 = 1
	ProtoTCP  uint8 = 6
	ProtoUDP  uint8 = 17
	ProtoGRE  uint8 = 0x2F
	ProtoOSPF uint8 = 89
)

// IP header flag bits, as they sit in the high 3 bits of the
// flags+fragmentOffset 16-bit field.
const (
	FlagReserved uint8 = 0x4
	FlagDF       uint8 = 0x2
	FlagMF       uint8 = 0x1
)

// DefaultTTL is used for packets this router originates itself (ICMP
// errors, ARP requests' encapsulating frames have no TTL, OSPF HELLO/LSU).
const DefaultTTL = 64

// IPv4 is a view over an RFC-791 IPv4 header with no options: version+IHL,
// DSCP/ECN, total length, identification, flags+fragmentOffset, TTL,
// protocol, checksum, source, destination.
type IPv4 struct{ base }

// NewIPv4 builds an IPv4 view at offset off within buf, over header bytes
// already in place (for example reserved by an earlier Prepend). The
// forwarding engine's ICMP-error and GRE paths build their headers with
// PrependIPv4 instead.
func NewIPv4(buf *pbuf.Buffer, off int, enclosing View) *IPv4 {
	return &IPv4{base: newBase(buf, off, enclosing)}
}

// PrependIPv4 grows buf's headroom by a bare IPv4 header and returns a
// fresh view over it, fields zeroed for the caller to fill via FillHeader.
// Whatever content already sits in buf (an inner GRE-wrapped packet, an
// ICMP message just built, a fragment's payload slice) becomes this
// header's payload, since Prepend always adds bytes in front.
func PrependIPv4(buf *pbuf.Buffer, enclosing View) *IPv4 {
	buf.Prepend(IPv4MinHeaderLen)
	return &IPv4{base: newBase(buf, 0, enclosing)}
}

func (p *IPv4) Kind() Kind { return KindIPv4 }

func (p *IPv4) Valid() bool {
	b := p.Bytes()
	if len(b) < IPv4MinHeaderLen {
		return false
	}
	if p.Version() != 4 {
		return false
	}
	if int(p.IHL())*4 < IPv4MinHeaderLen {
		return false
	}
	if int(p.TotalLen()) > len(b) {
		return false
	}
	return verifyChecksum16(b[:p.headerLen()])
}

func (p *IPv4) headerLen() int { return int(p.IHL()) * 4 }

func (p *IPv4) Version() uint8 { return p.Bytes()[0] >> 4 }
func (p *IPv4) IHL() uint8     { return p.Bytes()[0] & 0x0F }

func (p *IPv4) SetVersionIHL(ihlWords uint8) {
	p.Bytes()[0] = (4 << 4) | (ihlWords & 0x0F)
}

func (p *IPv4) DSCP() uint8 { return p.Bytes()[1] }
func (p *IPv4) SetDSCP(v uint8) { p.Bytes()[1] = v }

func (p *IPv4) TotalLen() uint16 { return binary.BigEndian.Uint16(p.Bytes()[2:4]) }
func (p *IPv4) SetTotalLen(v uint16) { binary.BigEndian.PutUint16(p.Bytes()[2:4], v) }

func (p *IPv4) Identification() uint16 { return binary.BigEndian.Uint16(p.Bytes()[4:6]) }
func (p *IPv4) SetIdentification(v uint16) { binary.BigEndian.PutUint16(p.Bytes()[4:6], v) }

func (p *IPv4) flagsAndOffset() uint16 { return binary.BigEndian.Uint16(p.Bytes()[6:8]) }
func (p *IPv4) setFlagsAndOffset(v uint16) { binary.BigEndian.PutUint16(p.Bytes()[6:8], v) }

func (p *IPv4) Flags() uint8 { return uint8(p.flagsAndOffset() >> 13) }
func (p *IPv4) FragmentOffset() uint16 { return p.flagsAndOffset() & 0x1FFF }

func (p *IPv4) SetFlags(f uint8) {
	p.setFlagsAndOffset((uint16(f&0x7) << 13) | p.FragmentOffset())
}

func (p *IPv4) SetFragmentOffset(off uint16) {
	p.setFlagsAndOffset((uint16(p.Flags()) << 13) | (off & 0x1FFF))
}

func (p *IPv4) TTL() uint8 { return p.Bytes()[8] }
func (p *IPv4) SetTTL(v uint8) { p.Bytes()[8] = v }

func (p *IPv4) Protocol() uint8 { return p.Bytes()[9] }
func (p *IPv4) SetProtocol(v uint8) { p.Bytes()[9] = v }

func (p *IPv4) Checksum() uint16 { return binary.BigEndian.Uint16(p.Bytes()[10:12]) }

func (p *IPv4) Src() netaddr.IPv4 { return netaddr.IPv4FromBytes(p.Bytes()[12:16]) }
func (p *IPv4) SetSrc(a netaddr.IPv4) { a.PutBytes(p.Bytes()[12:16]) }

func (p *IPv4) Dst() netaddr.IPv4 { return netaddr.IPv4FromBytes(p.Bytes()[16:20]) }
func (p *IPv4) SetDst(a netaddr.IPv4) { a.PutBytes(p.Bytes()[16:20]) }

// RecomputeChecksum zeroes the checksum field and rewrites it with the
// RFC-791 one's-complement sum over the header bytes only.
func (p *IPv4) RecomputeChecksum() {
	h := p.Bytes()[:p.headerLen()]
	binary.BigEndian.PutUint16(h[10:12], 0)
	binary.BigEndian.PutUint16(h[10:12], checksum16(h))
}

// PayloadBytes returns the bytes after the (option-free) header, up to
// TotalLen; used by fragmentation and ICMP error generation, which both
// need the inner payload independent of any further view layering.
func (p *IPv4) PayloadBytes() []byte {
	h := p.headerLen()
	total := int(p.TotalLen())
	b := p.Bytes()
	if total > len(b) {
		total = len(b)
	}
	return b[h:total]
}

// Payload returns the next-layer view (ICMP, GRE, OSPF, or Unknown) over
// the bytes following this header, enclosed by p.
func (p *IPv4) Payload() View {
	inner := p.Offset() + p.headerLen()
	switch p.Protocol() {
	case ProtoICMP:
		return &ICMP{base: newBase(p.Buf(), inner, p)}
	case ProtoGRE:
		return &GRE{base: newBase(p.Buf(), inner, p)}
	case ProtoOSPF:
		return &OSPF{base: newBase(p.Buf(), inner, p)}
	default:
		return newUnknown(p.Buf(), inner, p)
	}
}

// FillHeader writes every field of a fresh IPv4 header this router
// originates: version/IHL, DSCP=0, identification, flags/fragmentOffset,
// ttl, protocol, src/dst, then recomputes the checksum. totalLen must
// already account for the header plus whatever payload follows it in buf.
func (p *IPv4) FillHeader(id uint16, flags uint8, fragOffset uint16, ttl, proto uint8, src, dst netaddr.IPv4, totalLen uint16) {
	p.SetVersionIHL(IPv4MinHeaderLen / 4)
	p.SetDSCP(0)
	p.SetTotalLen(totalLen)
	p.SetIdentification(id)
	p.setFlagsAndOffset((uint16(flags&0x7) << 13) | (fragOffset & 0x1FFF))
	p.SetTTL(ttl)
	p.SetProtocol(proto)
	p.SetSrc(src)
	p.SetDst(dst)
	p.RecomputeChecksum()
}
