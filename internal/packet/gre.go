package packet

import (
	"encoding/binary"

	"github.com/lirlia/100day_challenge_backend/day72_pwospf_router/internal/pbuf"
)

// GREHeaderLen is the fixed 8-byte header this router emits and requires
// on parse: flags+version (2), protocol type (2), checksum (2), reserved1
// (2). The spec always sets the checksum bit, so this router never deals
// with the variable-length form that omits the last 4 bytes.
const GREHeaderLen = 8

const (
	greFlagChecksumPresent uint16 = 0x8000
	greVersion             uint16 = 0
)

// GRE is a view over a GRE-encapsulated IP-in-IP tunnel header.
type GRE struct{ base }

// PrependGRE grows buf's headroom by a bare GRE header and returns a fresh
// view over it; whatever already sits in buf (the inner IP packet being
// tunneled) becomes this header's payload. FillHeader must be called once
// the inner packet is fully built, since its checksum covers both.
func PrependGRE(buf *pbuf.Buffer, enclosing View) *GRE {
	buf.Prepend(GREHeaderLen)
	return &GRE{base: newBase(buf, 0, enclosing)}
}

func (g *GRE) Kind() Kind { return KindGRE }

func (g *GRE) Valid() bool {
	b := g.Bytes()
	if len(b) < GREHeaderLen {
		return false
	}
	flagsVer := binary.BigEndian.Uint16(b[0:2])
	if flagsVer&0x8000 == 0 {
		return false
	}
	if flagsVer&0x0007 != greVersion {
		return false
	}
	if g.Ptype() != EthertypeIPv4 {
		return false
	}
	return verifyChecksum16(b)
}

func (g *GRE) Ptype() uint16 { return binary.BigEndian.Uint16(g.Bytes()[2:4]) }

func (g *GRE) Checksum() uint16 { return binary.BigEndian.Uint16(g.Bytes()[4:6]) }

// Payload returns the inner IPv4 view carried by the tunnel.
func (g *GRE) Payload() View {
	return &IPv4{base: newBase(g.Buf(), g.Offset()+GREHeaderLen, g)}
}

// FillHeader sets C=1, Ver=0, Ptype=IP, zeroes reserved1, and computes the
// checksum over the GRE header plus whatever inner payload already sits in
// buf after it (the inner IP packet must be fully built first).
func (g *GRE) FillHeader() {
	b := g.Bytes()
	binary.BigEndian.PutUint16(b[0:2], greFlagChecksumPresent|greVersion)
	binary.BigEndian.PutUint16(b[2:4], EthertypeIPv4)
	binary.BigEndian.PutUint16(b[6:8], 0) // reserved1
	binary.BigEndian.PutUint16(b[4:6], 0)
	binary.BigEndian.PutUint16(b[4:6], checksum16(b))
}
