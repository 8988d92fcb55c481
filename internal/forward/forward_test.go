package forward_test

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/lirlia/100day_challenge_backend/day72_pwospf_router/internal/arp"
	"github.com/lirlia/100day_challenge_backend/day72_pwospf_router/internal/forward"
	"github.com/lirlia/100day_challenge_backend/day72_pwospf_router/internal/iface"
	"github.com/lirlia/100day_challenge_backend/day72_pwospf_router/internal/netaddr"
	"github.com/lirlia/100day_challenge_backend/day72_pwospf_router/internal/packet"
	"github.com/lirlia/100day_challenge_backend/day72_pwospf_router/internal/pbuf"
	"github.com/lirlia/100day_challenge_backend/day72_pwospf_router/internal/rtable"
	"github.com/lirlia/100day_challenge_backend/day72_pwospf_router/internal/tunnel"
	"github.com/stretchr/testify/require"
)

// captureDriver records every frame handed to the interface output, keyed
// by interface name, so tests can inspect what the engine emitted without
// a real device.
type captureDriver struct {
	mu   sync.Mutex
	sent map[string][][]byte
}

func newCaptureDriver() *captureDriver {
	return &captureDriver{sent: make(map[string][][]byte)}
}

func (d *captureDriver) Send(ifaceName string, frame []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	cp := append([]byte(nil), frame...)
	d.sent[ifaceName] = append(d.sent[ifaceName], cp)
	return nil
}

func (d *captureDriver) Recv() (string, []byte, error) { return "", nil, fmt.Errorf("unused") }
func (d *captureDriver) Close() error                   { return nil }

func (d *captureDriver) framesOn(name string) [][]byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.sent[name]
}

func newTestEngine() (*forward.Engine, *iface.Interface, *iface.Interface, *captureDriver) {
	ifaces := iface.NewMap()
	in := iface.New("eth0", iface.Hardware)
	in.SetMAC(netaddr.MustParseMAC("aa:aa:aa:aa:aa:01"))
	in.SetIP(netaddr.MustParseIPv4("10.0.0.1"))
	in.SetMask(netaddr.MustParseIPv4("255.255.255.0"))
	ifaces.Add(in)

	out := iface.New("eth1", iface.Hardware)
	out.SetMAC(netaddr.MustParseMAC("aa:aa:aa:aa:aa:02"))
	out.SetIP(netaddr.MustParseIPv4("192.168.1.1"))
	out.SetMask(netaddr.MustParseIPv4("255.255.255.0"))
	ifaces.Add(out)

	routes := rtable.New()
	routes.Insert(&rtable.Entry{
		Subnet: netaddr.MustParseIPv4("192.168.1.0"), Mask: netaddr.MustParseIPv4("255.255.255.0"),
		Interface: out, Kind: rtable.Static,
	})
	routes.Insert(&rtable.Entry{
		Subnet: netaddr.MustParseIPv4("10.0.0.0"), Mask: netaddr.MustParseIPv4("255.255.255.0"),
		Interface: in, Kind: rtable.Static,
	})

	driver := newCaptureDriver()
	e := forward.New(ifaces, routes, arp.NewCache(32), arp.NewQueue(), tunnel.NewMap(), driver, nil)
	return e, in, out, driver
}

// buildInboundFrame constructs a raw inbound Ethernet+IPv4(+payload) frame as it
// would arrive off the wire on interface "in".
func buildInboundFrame(srcMAC, dstMAC netaddr.MAC, srcIP, dstIP netaddr.IPv4, ttl, proto uint8, payload []byte) []byte {
	buf := pbuf.New(len(payload))
	copy(buf.Data(), payload)
	buf.Prepend(packet.IPv4MinHeaderLen)
	ip := packet.NewIPv4(buf, 0, nil)
	ip.FillHeader(1, 0, 0, ttl, proto, srcIP, dstIP, uint16(packet.IPv4MinHeaderLen+len(payload)))

	eth := packet.PrependEthernet(buf)
	eth.SetSrc(srcMAC)
	eth.SetDst(dstMAC)
	eth.SetEthertype(packet.EthertypeIPv4)
	return append([]byte(nil), buf.Data()...)
}

func TestTTLExpiryGeneratesICMPTimeExceeded(t *testing.T) {
	e, in, _, driver := newTestEngine()

	remoteHost := netaddr.MustParseIPv4("172.16.0.9")
	frame := buildInboundFrame(netaddr.MustParseMAC("bb:bb:bb:bb:bb:01"), in.MAC(),
		remoteHost, netaddr.MustParseIPv4("192.168.1.50"), 1, packet.ProtoICMP, []byte{1, 2, 3, 4})

	e.HandleFrame("eth0", frame)

	// No route to 172.16.0.9 either, so the ICMP error itself can't be
	// sourced/sent — but TTL<=1 must still short-circuit before reaching
	// the "no route" branch. Add a route back to the sender and retry.
	e.Routes.Insert(&rtable.Entry{
		Subnet: netaddr.MustParseIPv4("172.16.0.0"), Mask: netaddr.MustParseIPv4("255.255.0.0"),
		Interface: in, Kind: rtable.Static,
	})
	e.ARPCache.Add(time.Now(), remoteHost, netaddr.MustParseMAC("bb:bb:bb:bb:bb:01"), arp.Static)

	e.HandleFrame("eth0", frame)

	sent := driver.framesOn("eth0")
	require.NotEmpty(t, sent)
	eth := packet.ParseEthernet(sent[len(sent)-1])
	ip, ok := eth.Payload().(*packet.IPv4)
	require.True(t, ok)
	require.True(t, ip.Valid())
	icmp, ok := ip.Payload().(*packet.ICMP)
	require.True(t, ok)
	require.Equal(t, packet.ICMPTypeTimeExceeded, icmp.Type())
	require.Equal(t, packet.ICMPCodeTTLExceeded, icmp.Code())
	require.Equal(t, remoteHost, ip.Dst())
}

func TestARPResolutionQueuesThenDrains(t *testing.T) {
	e, _, out, driver := newTestEngine()

	dst := netaddr.MustParseIPv4("192.168.1.50")
	srcMAC := netaddr.MustParseMAC("bb:bb:bb:bb:bb:01")
	frame := buildInboundFrame(srcMAC, netaddr.MustParseMAC("aa:aa:aa:aa:aa:01"),
		netaddr.MustParseIPv4("10.0.0.9"), dst, 64, packet.ProtoICMP, []byte{1, 2, 3, 4})

	e.HandleFrame("eth0", frame)

	// Not yet resolved: an ARP request must have gone out on eth1, and
	// nothing else yet.
	reqs := driver.framesOn("eth1")
	require.Len(t, reqs, 1)
	reqEth := packet.ParseEthernet(reqs[0])
	reqARP, ok := reqEth.Payload().(*packet.ARP)
	require.True(t, ok)
	require.Equal(t, packet.ARPOperRequest, reqARP.Oper())
	require.Equal(t, dst, reqARP.TargetIP())

	// Simulate the ARP reply arriving on eth1.
	replyFrame := buildARPReply(out.MAC(), out.IP(), netaddr.MustParseMAC("cc:cc:cc:cc:cc:01"), dst)
	e.HandleFrame("eth1", replyFrame)

	drained := driver.framesOn("eth1")
	require.Len(t, drained, 2) // the original request, then the drained data frame
	finalEth := packet.ParseEthernet(drained[1])
	require.Equal(t, netaddr.MustParseMAC("cc:cc:cc:cc:cc:01"), finalEth.Dst())
	ip, ok := finalEth.Payload().(*packet.IPv4)
	require.True(t, ok)
	require.Equal(t, dst, ip.Dst())
}

func buildARPReply(requesterMAC netaddr.MAC, requesterIP netaddr.IPv4, replyMAC netaddr.MAC, replyIP netaddr.IPv4) []byte {
	buf := pbuf.New(0)
	buf.Prepend(packet.ARPHeaderLen)
	a := packet.NewARP(buf, 0, nil)
	a.SetOper(packet.ARPOperReply)

	eth := packet.PrependEthernet(buf)
	eth.SetSrc(replyMAC)
	eth.SetDst(requesterMAC)
	eth.SetEthertype(packet.EthertypeARP)

	// fillHeader isn't exported; replicate the fixed fields a valid ARP
	// packet must carry.
	raw := buf.Data()[packet.EthernetHeaderLen:]
	raw[0], raw[1] = 0, 1 // htype = Ethernet
	raw[2], raw[3] = 0x08, 0x00 // ptype = IPv4
	raw[4] = 6
	raw[5] = 4

	a.SetSenderMAC(replyMAC)
	a.SetSenderIP(replyIP)
	a.SetTargetMAC(requesterMAC)
	a.SetTargetIP(requesterIP)
	return append([]byte(nil), buf.Data()...)
}

func TestFragmentationSplitsOversizedPacket(t *testing.T) {
	e, in, _, driver := newTestEngine()
	e.ARPCache.Add(time.Now(), netaddr.MustParseIPv4("192.168.1.50"),
		netaddr.MustParseMAC("cc:cc:cc:cc:cc:02"), arp.Static)

	payload := make([]byte, 1980)
	for i := range payload {
		payload[i] = byte(i)
	}
	frame := buildInboundFrame(netaddr.MustParseMAC("bb:bb:bb:bb:bb:01"), in.MAC(),
		netaddr.MustParseIPv4("10.0.0.9"), netaddr.MustParseIPv4("192.168.1.50"),
		64, packet.ProtoUDP, payload)

	e.HandleFrame("eth0", frame)

	sent := driver.framesOn("eth1")
	require.Len(t, sent, 2)

	eth0 := packet.ParseEthernet(sent[0])
	ip0 := eth0.Payload().(*packet.IPv4)
	require.Equal(t, uint16(0), ip0.FragmentOffset())
	require.Equal(t, packet.FlagMF, ip0.Flags())
	require.Len(t, ip0.PayloadBytes(), 1480)

	eth1 := packet.ParseEthernet(sent[1])
	ip1 := eth1.Payload().(*packet.IPv4)
	require.Equal(t, uint16(185), ip1.FragmentOffset())
	require.Equal(t, uint8(0), ip1.Flags())
	require.Len(t, ip1.PayloadBytes(), 500)

	require.Equal(t, ip0.Identification(), ip1.Identification())
}

func TestGREEncapsulationWraps(t *testing.T) {
	e, in, _, driver := newTestEngine()

	tunIface := iface.New("gre0", iface.Virtual)
	tunIface.SetMAC(netaddr.MustParseMAC("aa:aa:aa:aa:aa:03"))
	tunIface.SetIP(netaddr.MustParseIPv4("10.1.0.1"))
	e.Ifaces.Add(tunIface)
	e.Tunnels.Add(&tunnel.Tunnel{Name: "gre0", LocalInterface: "gre0", RemoteIP: netaddr.MustParseIPv4("192.168.1.99")})
	e.Routes.Insert(&rtable.Entry{
		Subnet: netaddr.MustParseIPv4("10.1.0.0"), Mask: netaddr.MustParseIPv4("255.255.255.0"),
		Interface: tunIface, Kind: rtable.Static,
	})
	e.ARPCache.Add(time.Now(), netaddr.MustParseIPv4("192.168.1.99"),
		netaddr.MustParseMAC("dd:dd:dd:dd:dd:01"), arp.Static)

	frame := buildInboundFrame(netaddr.MustParseMAC("bb:bb:bb:bb:bb:01"), in.MAC(),
		netaddr.MustParseIPv4("10.0.0.9"), netaddr.MustParseIPv4("10.1.0.55"),
		64, packet.ProtoICMP, []byte{7, 7, 7, 7})

	e.HandleFrame("eth0", frame)

	sent := driver.framesOn("eth1")
	require.Len(t, sent, 1)
	eth := packet.ParseEthernet(sent[0])
	outer, ok := eth.Payload().(*packet.IPv4)
	require.True(t, ok)
	require.True(t, outer.Valid())
	require.Equal(t, packet.ProtoGRE, outer.Protocol())
	require.Equal(t, netaddr.MustParseIPv4("192.168.1.99"), outer.Dst())

	gre, ok := outer.Payload().(*packet.GRE)
	require.True(t, ok)
	require.True(t, gre.Valid())
	inner, ok := gre.Payload().(*packet.IPv4)
	require.True(t, ok)
	require.True(t, inner.Valid())
	require.Equal(t, netaddr.MustParseIPv4("10.1.0.55"), inner.Dst())
}
