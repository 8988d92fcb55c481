package packet_test

import (
	"testing"

	"github.com/lirlia/100day_challenge_backend/day72_pwospf_router/internal/netaddr"
	"github.com/lirlia/100day_challenge_backend/day72_pwospf_router/internal/packet"
	"github.com/lirlia/100day_challenge_backend/day72_pwospf_router/internal/pbuf"
	"github.com/stretchr/testify/require"
)

var (
	macA = netaddr.MustParseMAC("aa:aa:aa:aa:aa:01")
	macB = netaddr.MustParseMAC("bb:bb:bb:bb:bb:02")
	ipA  = netaddr.MustParseIPv4("10.0.0.1")
	ipB  = netaddr.MustParseIPv4("10.0.0.2")
)

// buildFrame returns (buf, eth): the live buffer the frame was written
// into, so callers that need to keep prepending onto it (rather than a
// frozen copy) can do so, and the Ethernet view over it; most tests only
// need the frozen bytes.
func buildFrame(t *testing.T, proto uint8, payload []byte) (*pbuf.Buffer, *packet.Ethernet) {
	t.Helper()
	buf := pbuf.New(len(payload))
	copy(buf.Data(), payload)

	buf.Prepend(packet.IPv4MinHeaderLen)
	buf.Prepend(packet.EthernetHeaderLen)

	eth := packet.ParseEthernet(buf.Data())
	eth.SetDst(macB)
	eth.SetSrc(macA)
	eth.SetEthertype(packet.EthertypeIPv4)

	ipv4 := eth.Payload().(*packet.IPv4)
	ipv4.FillHeader(1, 0, 0, packet.DefaultTTL, proto, ipA, ipB,
		uint16(packet.IPv4MinHeaderLen+len(payload)))

	return buf, eth
}

func buildIPv4Frame(t *testing.T, proto uint8, payload []byte) []byte {
	t.Helper()
	buf, _ := buildFrame(t, proto, payload)
	return append([]byte(nil), buf.Data()...)
}

func TestEthernetIPv4RoundTrip(t *testing.T) {
	frame := buildIPv4Frame(t, packet.ProtoICMP, []byte{1, 2, 3, 4})

	eth := packet.ParseEthernet(frame)
	require.True(t, eth.Valid())
	require.Equal(t, macB, eth.Dst())
	require.Equal(t, macA, eth.Src())
	require.Equal(t, packet.EthertypeIPv4, eth.Ethertype())

	ip, ok := eth.Payload().(*packet.IPv4)
	require.True(t, ok)
	require.True(t, ip.Valid())
	require.Equal(t, ipA, ip.Src())
	require.Equal(t, ipB, ip.Dst())
	require.Equal(t, packet.ProtoICMP, ip.Protocol())
	require.Equal(t, []byte{1, 2, 3, 4}, ip.PayloadBytes())
}

// TestPrependAfterParseKeepsInnerViewValid exercises the exact scenario the
// view offset model exists for: an inner IPv4 view is built first, then a
// new outer header (GRE) is prepended onto the SAME buffer, mirroring GRE
// encapsulation's "prepend GRE header, then an outer IP header, onto the
// packet already sitting in the outbound buffer". The inner view's fields
// must still read correctly afterward because its position is tracked as a
// distance from the end of the buffer, not a forward offset the prepend
// would invalidate.
func TestPrependAfterParseKeepsInnerViewValid(t *testing.T) {
	payload := []byte{9, 9}
	buf := pbuf.New(len(payload))
	copy(buf.Data(), payload)
	buf.Prepend(packet.IPv4MinHeaderLen)

	innerIP := packet.NewIPv4(buf, 0, nil)
	innerIP.FillHeader(1, 0, 0, packet.DefaultTTL, packet.ProtoICMP, ipA, ipB,
		uint16(packet.IPv4MinHeaderLen+len(payload)))
	require.Equal(t, ipA, innerIP.Src())
	beforeDst := innerIP.Dst()

	// Now prepend a GRE header in front of it, as GRE encapsulation does.
	buf.Prepend(packet.GREHeaderLen)

	// The inner view must still report the same fields and the same
	// bytes after the prepend grew the buffer's front, because its tail
	// distance from the end never changed.
	require.Equal(t, ipA, innerIP.Src())
	require.Equal(t, beforeDst, innerIP.Dst())
	require.Equal(t, packet.GREHeaderLen, innerIP.Offset())

	// And a further outer IP header in front of the GRE header, as the
	// encapsulation step's second prepend does.
	buf.Prepend(packet.IPv4MinHeaderLen)
	require.Equal(t, ipA, innerIP.Src())
	require.Equal(t, packet.IPv4MinHeaderLen+packet.GREHeaderLen, innerIP.Offset())
}

func TestIPv4ChecksumNeverZero(t *testing.T) {
	frame := buildIPv4Frame(t, packet.ProtoICMP, nil)
	eth := packet.ParseEthernet(frame)
	ip := eth.Payload().(*packet.IPv4)
	require.NotEqual(t, uint16(0), ip.Checksum())
	require.True(t, ip.Valid())
}

func TestARPRequestBuild(t *testing.T) {
	a := packet.BuildRequest(macA, ipA, ipB)
	require.True(t, a.Valid())
	require.Equal(t, packet.ARPOperRequest, a.Oper())
	require.Equal(t, macA, a.SenderMAC())
	require.Equal(t, ipA, a.SenderIP())
	require.Equal(t, ipB, a.TargetIP())

	eth, ok := a.Enclosing().(*packet.Ethernet)
	require.True(t, ok)
	require.True(t, eth.Dst().IsBroadcast())
}
