package packet

import (
	"encoding/binary"

	"github.com/lirlia/100day_challenge_backend/day72_pwospf_router/internal/pbuf"
)

// ICMP message types this router generates or terminates.
const (
	ICMPTypeEchoReply      uint8 = 0
	ICMPTypeDestUnreach    uint8 = 3
	ICMPTypeEchoRequest    uint8 = 8
	ICMPTypeTimeExceeded   uint8 = 11
)

// Destination Unreachable codes.
const (
	ICMPCodeNetUnreachable   uint8 = 0
	ICMPCodeHostUnreachable  uint8 = 1
	ICMPCodeProtoUnreachable uint8 = 2
	ICMPCodePortUnreachable  uint8 = 3
	ICMPCodeFragRequired     uint8 = 4
)

// Time Exceeded codes.
const ICMPCodeTTLExceeded uint8 = 0

// ICMPHeaderLen is the fixed 8-byte type/code/checksum/rest-of-header
// region common to every ICMP message this router builds.
const ICMPHeaderLen = 8

// ICMP is a view over the common type/code/checksum/rest-of-header
// layout; the "rest of header" 4 bytes vary by type (unused for plain
// messages, identifier+sequence for echo, unused-then-MTU for
// fragmentation-required, all zero for the other error subtypes).
type ICMP struct{ base }

// PrependICMP grows buf's headroom by the 8-byte common ICMP header and
// returns a fresh view over it; whatever already sits in buf (the echoed
// offending-packet fragment for an error message, or nothing for a plain
// echo reply body) becomes this header's payload.
func PrependICMP(buf *pbuf.Buffer, enclosing View) *ICMP {
	buf.Prepend(ICMPHeaderLen)
	return &ICMP{base: newBase(buf, 0, enclosing)}
}

func (c *ICMP) Kind() Kind { return KindICMP }

func (c *ICMP) Valid() bool {
	if len(c.Bytes()) < ICMPHeaderLen {
		return false
	}
	return verifyChecksum16(c.Bytes())
}

func (c *ICMP) Type() uint8 { return c.Bytes()[0] }
func (c *ICMP) SetType(t uint8) { c.Bytes()[0] = t }

func (c *ICMP) Code() uint8 { return c.Bytes()[1] }
func (c *ICMP) SetCode(v uint8) { c.Bytes()[1] = v }

func (c *ICMP) Checksum() uint16 { return binary.BigEndian.Uint16(c.Bytes()[2:4]) }

func (c *ICMP) Identifier() uint16 { return binary.BigEndian.Uint16(c.Bytes()[4:6]) }
func (c *ICMP) SetIdentifier(v uint16) { binary.BigEndian.PutUint16(c.Bytes()[4:6], v) }

func (c *ICMP) Sequence() uint16 { return binary.BigEndian.Uint16(c.Bytes()[6:8]) }
func (c *ICMP) SetSequence(v uint16) { binary.BigEndian.PutUint16(c.Bytes()[6:8], v) }

// NextHopMTU is the "rest of header" field used by Fragmentation Required
// (type 3, code 4): bytes 2-3 of the rest-of-header are the link MTU,
// bytes 0-1 unused.
func (c *ICMP) NextHopMTU() uint16 { return binary.BigEndian.Uint16(c.Bytes()[6:8]) }
func (c *ICMP) SetNextHopMTU(v uint16) { binary.BigEndian.PutUint16(c.Bytes()[6:8], v) }

// Payload returns the bytes following the 8-byte header, to the end of the
// buffer's logical window (ICMP has no further typed view; the payload is
// either an echoed datagram fragment or application data, read as bytes).
func (c *ICMP) Payload() []byte { return c.Bytes()[ICMPHeaderLen:] }

// RecomputeChecksum zeroes the checksum field and rewrites it with the
// RFC-791 sum over the whole message (header + payload).
func (c *ICMP) RecomputeChecksum() {
	b := c.Bytes()
	binary.BigEndian.PutUint16(b[2:4], 0)
	binary.BigEndian.PutUint16(b[2:4], checksum16(b))
}
