package rtable_test

import (
	"testing"

	"github.com/lirlia/100day_challenge_backend/day72_pwospf_router/internal/iface"
	"github.com/lirlia/100day_challenge_backend/day72_pwospf_router/internal/netaddr"
	"github.com/lirlia/100day_challenge_backend/day72_pwospf_router/internal/rtable"
	"github.com/stretchr/testify/require"
)

func enabledIface(name string) *iface.Interface {
	i := iface.New(name, iface.Hardware)
	i.SetEnabled(true)
	return i
}

func TestLPMPrefersLongerMask(t *testing.T) {
	tbl := rtable.New()
	eth0 := enabledIface("eth0")
	eth1 := enabledIface("eth1")

	tbl.Insert(&rtable.Entry{
		Subnet: netaddr.MustParseIPv4("10.0.0.0"), Mask: netaddr.CIDRMask(8),
		Interface: eth0, Kind: rtable.Static,
	})
	tbl.Insert(&rtable.Entry{
		Subnet: netaddr.MustParseIPv4("10.0.1.0"), Mask: netaddr.CIDRMask(24),
		Interface: eth1, Kind: rtable.Static,
	})

	got := tbl.LPM(netaddr.MustParseIPv4("10.0.1.5"))
	require.NotNil(t, got)
	require.Equal(t, eth1, got.Interface)
}

func TestLPMSkipsDisabledInterface(t *testing.T) {
	tbl := rtable.New()
	eth0 := enabledIface("eth0")
	eth0.SetEnabled(false)

	tbl.Insert(&rtable.Entry{
		Subnet: netaddr.MustParseIPv4("10.0.0.0"), Mask: netaddr.CIDRMask(8),
		Interface: eth0, Kind: rtable.Static,
	})

	require.Nil(t, tbl.LPM(netaddr.MustParseIPv4("10.0.0.5")))
}

func TestInsertReplacesDuplicateSubnetMask(t *testing.T) {
	tbl := rtable.New()
	eth0 := enabledIface("eth0")
	eth1 := enabledIface("eth1")

	tbl.Insert(&rtable.Entry{Subnet: netaddr.MustParseIPv4("10.0.0.0"), Mask: netaddr.CIDRMask(24), Interface: eth0})
	tbl.Insert(&rtable.Entry{Subnet: netaddr.MustParseIPv4("10.0.0.0"), Mask: netaddr.CIDRMask(24), Interface: eth1})

	require.Len(t, tbl.All(), 1)
	require.Equal(t, eth1, tbl.All()[0].Interface)
}

func TestRemoveKind(t *testing.T) {
	tbl := rtable.New()
	eth0 := enabledIface("eth0")

	tbl.Insert(&rtable.Entry{Subnet: netaddr.MustParseIPv4("10.0.0.0"), Mask: netaddr.CIDRMask(24), Interface: eth0, Kind: rtable.Static})
	tbl.Insert(&rtable.Entry{Subnet: netaddr.MustParseIPv4("10.0.1.0"), Mask: netaddr.CIDRMask(24), Interface: eth0, Kind: rtable.Dynamic})

	tbl.RemoveKind(rtable.Dynamic)

	require.Len(t, tbl.All(), 1)
	require.Equal(t, rtable.Static, tbl.All()[0].Kind)
}
