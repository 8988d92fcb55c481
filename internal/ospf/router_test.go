package ospf_test

import (
	"fmt"
	"log"
	"testing"

	"github.com/lirlia/100day_challenge_backend/day72_pwospf_router/internal/arp"
	"github.com/lirlia/100day_challenge_backend/day72_pwospf_router/internal/forward"
	"github.com/lirlia/100day_challenge_backend/day72_pwospf_router/internal/iface"
	"github.com/lirlia/100day_challenge_backend/day72_pwospf_router/internal/netaddr"
	"github.com/lirlia/100day_challenge_backend/day72_pwospf_router/internal/ospf"
	"github.com/lirlia/100day_challenge_backend/day72_pwospf_router/internal/packet"
	"github.com/lirlia/100day_challenge_backend/day72_pwospf_router/internal/pbuf"
	"github.com/lirlia/100day_challenge_backend/day72_pwospf_router/internal/rtable"
	"github.com/lirlia/100day_challenge_backend/day72_pwospf_router/internal/tunnel"
	"github.com/stretchr/testify/require"
)

// nullDriver discards every frame it is handed; these tests drive
// HandleHello/HandleLSU directly and only care about resulting state, not
// what (if anything) gets sent on the wire.
type nullDriver struct{}

func (nullDriver) Send(string, []byte) error        { return nil }
func (nullDriver) Recv() (string, []byte, error)     { return "", nil, fmt.Errorf("unused") }
func (nullDriver) Close() error                      { return nil }

func newTestRouter(t *testing.T) (*ospf.Router, *iface.Interface) {
	t.Helper()
	phys := iface.New("eth0", iface.Hardware)
	phys.SetMAC(netaddr.MustParseMAC("02:00:00:00:00:01"))
	phys.SetIP(netaddr.MustParseIPv4("10.0.0.1"))
	phys.SetMask(netaddr.MustParseIPv4("255.255.255.0"))

	ifaces := iface.NewMap()
	ifaces.Add(phys)
	routes := rtable.New()
	routes.Insert(&rtable.Entry{
		Subnet: phys.Subnet(), Mask: phys.Mask(), Interface: phys, Kind: rtable.Static,
	})

	fwd := forward.New(ifaces, routes, arp.NewCache(16), arp.NewQueue(), tunnel.NewMap(), nullDriver{}, log.Default())
	r := ospf.New(ospf.RouterID(netaddr.MustParseIPv4("10.0.0.1")), 0, ifaces, routes, fwd, log.Default())
	fwd.OSPF = r
	r.SetEnabled(true)
	r.AddInterface(phys)
	return r, phys
}

// buildHello constructs a standalone OSPF HELLO view (no IP/Ethernet
// wrapper), mirroring Router.emitHello's body-then-header build order.
func buildHello(routerID ospf.RouterID, areaID uint32, mask netaddr.IPv4, helloInt uint16) *packet.OSPF {
	buf := pbuf.New(packet.OSPFHelloBodyLen)
	v := packet.PrependOSPF(buf, nil)
	hello := v.Hello()
	hello.SetSubnetMask(mask)
	hello.SetHelloInt(helloInt)
	hello.ZeroPadding()
	v.SetRouterID(uint32(routerID))
	v.SetVersion(packet.OSPFVersion)
	v.SetType(packet.OSPFTypeHello)
	v.SetLen(uint16(packet.OSPFHeaderLen + packet.OSPFHelloBodyLen))
	v.SetAreaID(areaID)
	v.ZeroAutypeAndAuth()
	v.RecomputeChecksum()
	return v
}

// buildLSU constructs a standalone OSPF LSU view carrying advs.
func buildLSU(routerID ospf.RouterID, areaID uint32, seqno, ttl uint16, advs []struct {
	Subnet, Mask netaddr.IPv4
	RouterID     ospf.RouterID
}) *packet.OSPF {
	bodyLen := packet.OSPFLSUBodyLen + len(advs)*packet.OSPFAdvLen
	buf := pbuf.New(bodyLen)
	v := packet.PrependOSPF(buf, nil)
	lsu := v.LSU()
	lsu.SetSeqno(seqno)
	lsu.SetTTL(ttl)
	lsu.SetAdvCount(uint32(len(advs)))
	for i, a := range advs {
		entry := lsu.Advertisement(i)
		entry.SetSubnet(a.Subnet)
		entry.SetMask(a.Mask)
		entry.SetRouterID(uint32(a.RouterID))
	}
	v.SetRouterID(uint32(routerID))
	v.SetVersion(packet.OSPFVersion)
	v.SetType(packet.OSPFTypeLSU)
	v.SetLen(uint16(packet.OSPFHeaderLen + bodyLen))
	v.SetAreaID(areaID)
	v.ZeroAutypeAndAuth()
	v.RecomputeChecksum()
	return v
}

func TestHandleHelloCreatesUnconfirmedGateway(t *testing.T) {
	r, phys := newTestRouter(t)
	neighborIP := netaddr.MustParseIPv4("10.0.0.2")
	neighborID := ospf.RouterID(neighborIP)

	hello := buildHello(neighborID, 0, phys.Mask(), uint16(ospf.DefaultHelloInt.Seconds()))
	r.HandleHello(phys, neighborIP, hello)

	on := r.OSPFIfaces.ByName(phys.Name())
	require.NotNil(t, on)
	gw := on.GatewayByRouterID(neighborID)
	require.NotNil(t, gw)
	require.Equal(t, ospf.Unconfirmed, gw.State())
}

func TestHandleHelloRejectsWrongArea(t *testing.T) {
	r, phys := newTestRouter(t)
	neighborIP := netaddr.MustParseIPv4("10.0.0.2")
	neighborID := ospf.RouterID(neighborIP)

	hello := buildHello(neighborID, 7, phys.Mask(), uint16(ospf.DefaultHelloInt.Seconds()))
	r.HandleHello(phys, neighborIP, hello)

	on := r.OSPFIfaces.ByName(phys.Name())
	require.NotNil(t, on)
	require.Nil(t, on.GatewayByRouterID(neighborID))
}

func TestHandleLSUConfirmsGatewayAndCommitsLink(t *testing.T) {
	r, phys := newTestRouter(t)
	neighborIP := netaddr.MustParseIPv4("10.0.0.2")
	neighborID := ospf.RouterID(neighborIP)

	hello := buildHello(neighborID, 0, phys.Mask(), uint16(ospf.DefaultHelloInt.Seconds()))
	r.HandleHello(phys, neighborIP, hello)

	subnet := phys.Subnet()
	mask := phys.Mask()
	lsu := buildLSU(neighborID, 0, 1, 64, []struct {
		Subnet, Mask netaddr.IPv4
		RouterID     ospf.RouterID
	}{
		{Subnet: subnet, Mask: mask, RouterID: r.RouterID},
	})
	r.HandleLSU(phys, neighborIP, lsu)

	on := r.OSPFIfaces.ByName(phys.Name())
	gw := on.GatewayByRouterID(neighborID)
	require.NotNil(t, gw)
	require.Equal(t, ospf.Confirmed, gw.State())

	root := r.Topology.Root()
	neighborNode := r.Topology.Node(neighborID)
	require.NotNil(t, neighborNode)
	require.NotNil(t, root.LinkTo(neighborID, subnet, mask))
	require.NotNil(t, neighborNode.LinkTo(r.RouterID, subnet, mask))

	entries := r.Routes.All()
	found := false
	for _, e := range entries {
		if e.Kind == rtable.Dynamic && e.Subnet == subnet && e.Mask == mask {
			found = true
			require.Equal(t, neighborIP, e.Gateway)
			require.Equal(t, phys, e.Interface)
		}
	}
	require.True(t, found, "expected a dynamic route for the confirmed link's subnet")
}

func TestHandleLSUIgnoresOlderSeqno(t *testing.T) {
	r, phys := newTestRouter(t)
	neighborIP := netaddr.MustParseIPv4("10.0.0.2")
	neighborID := ospf.RouterID(neighborIP)

	hello := buildHello(neighborID, 0, phys.Mask(), uint16(ospf.DefaultHelloInt.Seconds()))
	r.HandleHello(phys, neighborIP, hello)

	adv := []struct {
		Subnet, Mask netaddr.IPv4
		RouterID     ospf.RouterID
	}{{Subnet: phys.Subnet(), Mask: phys.Mask(), RouterID: r.RouterID}}

	r.HandleLSU(phys, neighborIP, buildLSU(neighborID, 0, 5, 64, adv))
	seqno, ok := r.Topology.Node(neighborID).Seqno()
	require.True(t, ok)
	require.EqualValues(t, 5, seqno)

	r.HandleLSU(phys, neighborIP, buildLSU(neighborID, 0, 3, 64, adv))
	seqno, ok = r.Topology.Node(neighborID).Seqno()
	require.True(t, ok)
	require.EqualValues(t, 5, seqno, "an older sequence number must not overwrite a newer one")
}
