package packet

import (
	"encoding/binary"

	"github.com/lirlia/100day_challenge_backend/day72_pwospf_router/internal/netaddr"
	"github.com/lirlia/100day_challenge_backend/day72_pwospf_router/internal/pbuf"
)

// OSPFVersion is the only version this router speaks (PWOSPF is modeled on
// OSPFv2's wire format).
const OSPFVersion uint8 = 2

// OSPF packet types.
const (
	OSPFTypeHello uint8 = 1
	OSPFTypeLSU   uint8 = 4
)

// HelloMulticast is the PWOSPF all-SPF-routers address HELLO packets are
// sent to, 224.0.0.5.
const HelloMulticast netaddr.IPv4 = 0xE0000005

// OSPFHeaderLen is the 24-byte header shared by HELLO and LSU packets:
// version, type, len, router-id, area-id, checksum, autype, auth.
const OSPFHeaderLen = 24

// OSPFHelloBodyLen is the 8 bytes following the common header in a HELLO
// packet: subnet mask, helloint, padding.
const OSPFHelloBodyLen = 8

// OSPFLSUBodyLen is the 8 bytes following the common header in an LSU
// packet before its advertisement list: seqno, ttl, advCount.
const OSPFLSUBodyLen = 8

// OSPFAdvLen is the 12-byte size of a single LSU advertisement: subnet,
// mask, router-id.
const OSPFAdvLen = 12

// OSPF is a view over the 24-byte header common to HELLO and LSU packets.
type OSPF struct{ base }

// PrependOSPF grows buf's headroom by OSPFHeaderLen and returns a fresh
// OSPF common-header view over it. The caller fills the HELLO or LSU body
// that follows directly (via OSPFHelloBodyLen/OSPFLSUBodyLen offsets)
// before prepending the enclosing IPv4 header.
func PrependOSPF(buf *pbuf.Buffer, enclosing View) *OSPF {
	buf.Prepend(OSPFHeaderLen)
	return &OSPF{base: newBase(buf, 0, enclosing)}
}

func (o *OSPF) Kind() Kind { return KindOSPF }

func (o *OSPF) Valid() bool {
	b := o.Bytes()
	if len(b) < OSPFHeaderLen {
		return false
	}
	if int(o.Len()) > len(b) {
		return false
	}
	if o.Version() != OSPFVersion {
		return false
	}
	if o.autype() != 0 || o.auth() != 0 {
		return false
	}
	if o.Type() != OSPFTypeHello && o.Type() != OSPFTypeLSU {
		return false
	}
	return verifyChecksum16(b[:o.Len()])
}

func (o *OSPF) Version() uint8 { return o.Bytes()[0] }
func (o *OSPF) SetVersion(v uint8) { o.Bytes()[0] = v }

func (o *OSPF) Type() uint8 { return o.Bytes()[1] }
func (o *OSPF) SetType(t uint8) { o.Bytes()[1] = t }

func (o *OSPF) Len() uint16 { return binary.BigEndian.Uint16(o.Bytes()[2:4]) }
func (o *OSPF) SetLen(v uint16) { binary.BigEndian.PutUint16(o.Bytes()[2:4], v) }

func (o *OSPF) RouterID() uint32 { return binary.BigEndian.Uint32(o.Bytes()[4:8]) }
func (o *OSPF) SetRouterID(id uint32) { binary.BigEndian.PutUint32(o.Bytes()[4:8], id) }

func (o *OSPF) AreaID() uint32 { return binary.BigEndian.Uint32(o.Bytes()[8:12]) }
func (o *OSPF) SetAreaID(id uint32) { binary.BigEndian.PutUint32(o.Bytes()[8:12], id) }

func (o *OSPF) Checksum() uint16 { return binary.BigEndian.Uint16(o.Bytes()[12:14]) }

func (o *OSPF) autype() uint16 { return binary.BigEndian.Uint16(o.Bytes()[14:16]) }
func (o *OSPF) auth() uint64 { return binary.BigEndian.Uint64(o.Bytes()[16:24]) }

// ZeroAutypeAndAuth writes the always-zero autype/auth fields, as PWOSPF
// requires.
func (o *OSPF) ZeroAutypeAndAuth() {
	binary.BigEndian.PutUint16(o.Bytes()[14:16], 0)
	binary.BigEndian.PutUint64(o.Bytes()[16:24], 0)
}

// RecomputeChecksum zeroes the checksum field and rewrites it with the
// RFC-791 sum over the whole packet (header + body), using Len() to bound
// the region the way the original implementation does.
func (o *OSPF) RecomputeChecksum() {
	b := o.Bytes()[:o.Len()]
	binary.BigEndian.PutUint16(b[12:14], 0)
	binary.BigEndian.PutUint16(b[12:14], checksum16(b))
}

// Hello returns this header reinterpreted as a HELLO packet. Callers must
// check Type() == OSPFTypeHello first.
func (o *OSPF) Hello() *OSPFHello { return &OSPFHello{base: o.base} }

// LSU returns this header reinterpreted as an LSU packet. Callers must
// check Type() == OSPFTypeLSU first.
func (o *OSPF) LSU() *OSPFLSU { return &OSPFLSU{base: o.base} }

// OSPFHello is an OSPF view specialized to the HELLO body: subnet mask,
// helloint, padding.
type OSPFHello struct{ base }

func (h *OSPFHello) Kind() Kind { return KindOSPF }
func (h *OSPFHello) Valid() bool { return (&OSPF{base: h.base}).Valid() }

func (h *OSPFHello) SubnetMask() netaddr.IPv4 {
	return netaddr.IPv4FromBytes(h.Bytes()[OSPFHeaderLen : OSPFHeaderLen+4])
}
func (h *OSPFHello) SetSubnetMask(m netaddr.IPv4) {
	m.PutBytes(h.Bytes()[OSPFHeaderLen : OSPFHeaderLen+4])
}

func (h *OSPFHello) HelloInt() uint16 {
	return binary.BigEndian.Uint16(h.Bytes()[OSPFHeaderLen+4 : OSPFHeaderLen+6])
}
func (h *OSPFHello) SetHelloInt(v uint16) {
	binary.BigEndian.PutUint16(h.Bytes()[OSPFHeaderLen+4:OSPFHeaderLen+6], v)
}

func (h *OSPFHello) ZeroPadding() {
	binary.BigEndian.PutUint16(h.Bytes()[OSPFHeaderLen+6:OSPFHeaderLen+8], 0)
}

// OSPFLSU is an OSPF view specialized to the LSU body: seqno, ttl,
// advCount, followed by advCount 12-byte advertisements.
type OSPFLSU struct{ base }

func (l *OSPFLSU) Kind() Kind { return KindOSPF }
func (l *OSPFLSU) Valid() bool {
	if !(&OSPF{base: l.base}).Valid() {
		return false
	}
	need := OSPFHeaderLen + OSPFLSUBodyLen + int(l.AdvCount())*OSPFAdvLen
	return len(l.Bytes()) >= need
}

func (l *OSPFLSU) Seqno() uint16 {
	return binary.BigEndian.Uint16(l.Bytes()[OSPFHeaderLen : OSPFHeaderLen+2])
}
func (l *OSPFLSU) SetSeqno(v uint16) {
	binary.BigEndian.PutUint16(l.Bytes()[OSPFHeaderLen:OSPFHeaderLen+2], v)
}

func (l *OSPFLSU) TTL() uint16 {
	return binary.BigEndian.Uint16(l.Bytes()[OSPFHeaderLen+2 : OSPFHeaderLen+4])
}
func (l *OSPFLSU) SetTTL(v uint16) {
	binary.BigEndian.PutUint16(l.Bytes()[OSPFHeaderLen+2:OSPFHeaderLen+4], v)
}

func (l *OSPFLSU) AdvCount() uint32 {
	return binary.BigEndian.Uint32(l.Bytes()[OSPFHeaderLen+4 : OSPFHeaderLen+8])
}
func (l *OSPFLSU) SetAdvCount(v uint32) {
	binary.BigEndian.PutUint32(l.Bytes()[OSPFHeaderLen+4:OSPFHeaderLen+8], v)
}

// Advertisement returns the i-th (0-based) advertisement in this LSU's
// body. The caller must ensure i < AdvCount().
func (l *OSPFLSU) Advertisement(i int) *LSUAdvertisement {
	off := OSPFHeaderLen + OSPFLSUBodyLen + i*OSPFAdvLen
	return &LSUAdvertisement{base: newBase(l.Buf(), l.Offset()+off, l)}
}

// LSUAdvertisement is a single 12-byte entry in an LSU packet's
// advertisement list: subnet, mask, router-id.
type LSUAdvertisement struct{ base }

func (a *LSUAdvertisement) Kind() Kind { return KindOSPF }
func (a *LSUAdvertisement) Valid() bool { return len(a.Bytes()) >= OSPFAdvLen }

func (a *LSUAdvertisement) Subnet() netaddr.IPv4 { return netaddr.IPv4FromBytes(a.Bytes()[0:4]) }
func (a *LSUAdvertisement) SetSubnet(s netaddr.IPv4) { s.PutBytes(a.Bytes()[0:4]) }

func (a *LSUAdvertisement) Mask() netaddr.IPv4 { return netaddr.IPv4FromBytes(a.Bytes()[4:8]) }
func (a *LSUAdvertisement) SetMask(m netaddr.IPv4) { m.PutBytes(a.Bytes()[4:8]) }

func (a *LSUAdvertisement) RouterID() uint32 { return binary.BigEndian.Uint32(a.Bytes()[8:12]) }
func (a *LSUAdvertisement) SetRouterID(id uint32) { binary.BigEndian.PutUint32(a.Bytes()[8:12], id) }
