package iface_test

import (
	"testing"

	"github.com/lirlia/100day_challenge_backend/day72_pwospf_router/internal/iface"
	"github.com/lirlia/100day_challenge_backend/day72_pwospf_router/internal/netaddr"
	"github.com/stretchr/testify/require"
)

func TestSetIPFiresNotification(t *testing.T) {
	i := iface.New("eth0", iface.Hardware)
	var got []iface.IPEvent
	i.OnIP.Register(func(e iface.IPEvent) { got = append(got, e) })

	ip := netaddr.MustParseIPv4("10.0.0.1")
	i.SetIP(ip)

	require.Len(t, got, 1)
	require.Equal(t, ip, got[0].New)
	require.True(t, got[0].Old.IsZero())

	// Setting the same value again must not re-fire.
	i.SetIP(ip)
	require.Len(t, got, 1)
}

func TestMapInterfaceAddr(t *testing.T) {
	m := iface.NewMap()
	eth0 := iface.New("eth0", iface.Hardware)
	eth0.SetIP(netaddr.MustParseIPv4("10.0.0.1"))
	m.Add(eth0)

	require.Equal(t, eth0, m.ByName("eth0"))
	require.Equal(t, eth0, m.InterfaceAddr(netaddr.MustParseIPv4("10.0.0.1")))
	require.Nil(t, m.InterfaceAddr(netaddr.MustParseIPv4("10.0.0.2")))
}

func TestMapRemove(t *testing.T) {
	m := iface.NewMap()
	eth0 := iface.New("eth0", iface.Hardware)
	eth0.SetIP(netaddr.MustParseIPv4("10.0.0.1"))
	m.Add(eth0)
	m.Remove("eth0")

	require.Nil(t, m.ByName("eth0"))
	require.Nil(t, m.InterfaceAddr(netaddr.MustParseIPv4("10.0.0.1")))
}

func TestNoteIPChangedUpdatesIndex(t *testing.T) {
	m := iface.NewMap()
	eth0 := iface.New("eth0", iface.Hardware)
	m.Add(eth0)

	old := eth0.IP()
	eth0.SetIP(netaddr.MustParseIPv4("10.0.0.5"))
	m.NoteIPChanged(eth0, old)

	require.Equal(t, eth0, m.InterfaceAddr(netaddr.MustParseIPv4("10.0.0.5")))
}
