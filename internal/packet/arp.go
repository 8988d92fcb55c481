package packet

import (
	"encoding/binary"

	"github.com/lirlia/100day_challenge_backend/day72_pwospf_router/internal/netaddr"
	"github.com/lirlia/100day_challenge_backend/day72_pwospf_router/internal/pbuf"
)

const ARPHeaderLen = 28

const (
	ARPHTypeEthernet uint16 = 1
	ARPPTypeIPv4     uint16 = 0x0800
)

const (
	ARPOperRequest uint16 = 1
	ARPOperReply   uint16 = 2
)

// ARP is a fixed 28-byte request/reply for Ethernet-over-IPv4: htype,
// ptype, hlen, plen, oper, sender MAC, sender IP, target MAC, target IP.
type ARP struct{ base }

func (a *ARP) Kind() Kind { return KindARP }

func (a *ARP) Valid() bool {
	if len(a.Bytes()) < ARPHeaderLen {
		return false
	}
	return a.HType() == ARPHTypeEthernet && a.PType() == ARPPTypeIPv4 &&
		a.HLen() == 6 && a.PLen() == 4
}

func (a *ARP) HType() uint16 { return binary.BigEndian.Uint16(a.Bytes()[0:2]) }
func (a *ARP) PType() uint16 { return binary.BigEndian.Uint16(a.Bytes()[2:4]) }
func (a *ARP) HLen() uint8   { return a.Bytes()[4] }
func (a *ARP) PLen() uint8   { return a.Bytes()[5] }
func (a *ARP) Oper() uint16  { return binary.BigEndian.Uint16(a.Bytes()[6:8]) }

func (a *ARP) SetOper(op uint16) { binary.BigEndian.PutUint16(a.Bytes()[6:8], op) }

func (a *ARP) SenderMAC() netaddr.MAC { return netaddr.MACFromBytes(a.Bytes()[8:14]) }
func (a *ARP) SenderIP() netaddr.IPv4 { return netaddr.IPv4FromBytes(a.Bytes()[14:18]) }
func (a *ARP) TargetMAC() netaddr.MAC { return netaddr.MACFromBytes(a.Bytes()[18:24]) }
func (a *ARP) TargetIP() netaddr.IPv4 { return netaddr.IPv4FromBytes(a.Bytes()[24:28]) }

func (a *ARP) SetSenderMAC(m netaddr.MAC) { copy(a.Bytes()[8:14], m[:]) }
func (a *ARP) SetSenderIP(ip netaddr.IPv4) { ip.PutBytes(a.Bytes()[14:18]) }
func (a *ARP) SetTargetMAC(m netaddr.MAC) { copy(a.Bytes()[18:24], m[:]) }
func (a *ARP) SetTargetIP(ip netaddr.IPv4) { ip.PutBytes(a.Bytes()[24:28]) }

// fillHeader writes the fixed htype/ptype/hlen/plen fields common to every
// ARP packet this router emits.
func (a *ARP) fillHeader() {
	binary.BigEndian.PutUint16(a.Bytes()[0:2], ARPHTypeEthernet)
	binary.BigEndian.PutUint16(a.Bytes()[2:4], ARPPTypeIPv4)
	a.Bytes()[4] = 6
	a.Bytes()[5] = 4
}

// NewARP builds an ARP view at offset off within buf. Used when the
// forwarding engine needs a bare ARP view with no enclosing Ethernet frame
// yet constructed (BuildRequest wraps this with the standard broadcast
// framing).
func NewARP(buf *pbuf.Buffer, off int, enclosing View) *ARP {
	return &ARP{base: newBase(buf, off, enclosing)}
}

// BuildRequest builds an Ethernet+ARP request frame from scratch, asking
// who has targetIP, from senderMAC/senderIP, broadcast on the wire.
//
// The ARP body is built FIRST (innermost content, at the tail of the
// fresh buffer) and the Ethernet header is prepended LAST, exactly
// mirroring PrependEthernet's own contract: since Prepend always grows a
// buffer's front, whichever header is prepended last ends up at offset 0,
// i.e. outermost on the wire. Prepending Ethernet before the ARP body
// would instead leave Ethernet sitting AFTER the ARP bytes once the body
// is added.
func BuildRequest(senderMAC netaddr.MAC, senderIP netaddr.IPv4, targetIP netaddr.IPv4) *ARP {
	buf := pbuf.New(0)
	buf.Prepend(ARPHeaderLen)
	a := NewARP(buf, 0, nil)
	a.fillHeader()
	a.SetOper(ARPOperRequest)
	a.SetSenderMAC(senderMAC)
	a.SetSenderIP(senderIP)
	a.SetTargetMAC(netaddr.MACZero)
	a.SetTargetIP(targetIP)

	eth := PrependEthernet(buf)
	eth.SetDst(netaddr.MACBroadcast)
	eth.SetSrc(senderMAC)
	eth.SetEthertype(EthertypeARP)
	a.setEnclosing(eth)
	return a
}
