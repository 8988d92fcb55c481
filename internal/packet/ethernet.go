package packet

import (
	"encoding/binary"

	"github.com/lirlia/100day_challenge_backend/day72_pwospf_router/internal/netaddr"
)

const EthernetHeaderLen = 14

// Ethertype values this router understands on the wire.
const (
	EthertypeIPv4 uint16 = 0x0800
	EthertypeARP  uint16 = 0x0806
)

// Ethernet is the outermost view over a raw frame: 6 bytes destination
// MAC, 6 bytes source MAC, 2 bytes ethertype, then payload.
type Ethernet struct{ base }

func (e *Ethernet) Kind() Kind { return KindEthernet }

func (e *Ethernet) Valid() bool {
	return len(e.Bytes()) >= EthernetHeaderLen
}

func (e *Ethernet) Dst() netaddr.MAC {
	return netaddr.MACFromBytes(e.Bytes()[0:6])
}

func (e *Ethernet) SetDst(m netaddr.MAC) {
	copy(e.Bytes()[0:6], m[:])
}

func (e *Ethernet) Src() netaddr.MAC {
	return netaddr.MACFromBytes(e.Bytes()[6:12])
}

func (e *Ethernet) SetSrc(m netaddr.MAC) {
	copy(e.Bytes()[6:12], m[:])
}

func (e *Ethernet) Ethertype() uint16 {
	return binary.BigEndian.Uint16(e.Bytes()[12:14])
}

func (e *Ethernet) SetEthertype(t uint16) {
	binary.BigEndian.PutUint16(e.Bytes()[12:14], t)
}

// Payload returns the next-layer view (ARP, IPv4, or Unknown) over the
// bytes following the Ethernet header, with its enclosing back-reference
// set to e so a handler may later rewrite e's addresses (e.g. after
// swapping an inner ARP request into a reply).
func (e *Ethernet) Payload() View {
	inner := e.Offset() + EthernetHeaderLen
	switch e.Ethertype() {
	case EthertypeIPv4:
		return &IPv4{base: newBase(e.Buf(), inner, e)}
	case EthertypeARP:
		return &ARP{base: newBase(e.Buf(), inner, e)}
	default:
		return newUnknown(e.Buf(), inner, e)
	}
}

// PrependEthernet grows buf's headroom by an Ethernet header and returns a
// fresh *Ethernet view over that new header region, with src/dst/ethertype
// fields zeroed for the caller to fill in. Used by the forwarding engine
// when constructing an outbound frame around an already-built IP (or ARP)
// payload that may itself have been assembled by prepending onto this same
// buffer (e.g. GRE encapsulation, ICMP error generation): since the
// Ethernet header is always the outermost layer, it sits at offset 0 after
// the prepend, regardless of how many inner headers were already built.
func PrependEthernet(buf *pbuf.Buffer) *Ethernet {
	buf.Prepend(EthernetHeaderLen)
	return &Ethernet{base: newBase(buf, 0, nil)}
}
