package arp_test

import (
	"testing"
	"time"

	"github.com/lirlia/100day_challenge_backend/day72_pwospf_router/internal/arp"
	"github.com/lirlia/100day_challenge_backend/day72_pwospf_router/internal/iface"
	"github.com/lirlia/100day_challenge_backend/day72_pwospf_router/internal/netaddr"
	"github.com/lirlia/100day_challenge_backend/day72_pwospf_router/internal/pbuf"
	"github.com/stretchr/testify/require"
)

var (
	ip1  = netaddr.MustParseIPv4("10.0.0.1")
	ip2  = netaddr.MustParseIPv4("10.0.0.2")
	ip3  = netaddr.MustParseIPv4("10.0.0.3")
	mac1 = netaddr.MustParseMAC("aa:aa:aa:aa:aa:01")
)

func TestCacheAddAndLookup(t *testing.T) {
	c := arp.NewCache(10)
	now := time.Unix(1000, 0)
	c.Add(now, ip1, mac1, arp.Dynamic)

	e, ok := c.Lookup(ip1)
	require.True(t, ok)
	require.Equal(t, mac1, e.MAC)
	require.Equal(t, arp.Dynamic, e.Kind)
}

func TestCacheEvictsOldestDynamicOnCapacity(t *testing.T) {
	c := arp.NewCache(2)
	now := time.Unix(1000, 0)
	c.Add(now, ip1, mac1, arp.Dynamic)
	c.Add(now.Add(time.Second), ip2, mac1, arp.Dynamic)
	c.Add(now.Add(2*time.Second), ip3, mac1, arp.Dynamic)

	_, ok := c.Lookup(ip1)
	require.False(t, ok, "oldest dynamic entry must be evicted")
	_, ok = c.Lookup(ip2)
	require.True(t, ok)
	_, ok = c.Lookup(ip3)
	require.True(t, ok)
}

func TestCacheNeverEvictsStatic(t *testing.T) {
	c := arp.NewCache(1)
	now := time.Unix(1000, 0)
	c.Add(now, ip1, mac1, arp.Static)
	c.Add(now, ip2, mac1, arp.Dynamic)

	_, ok := c.Lookup(ip1)
	require.True(t, ok, "static entry must survive even over capacity")
}

func TestAgeOutRemovesOnlyStaleDynamic(t *testing.T) {
	c := arp.NewCache(10)
	t0 := time.Unix(1000, 0)
	c.Add(t0, ip1, mac1, arp.Dynamic)
	c.Add(t0, ip2, mac1, arp.Static)

	c.AgeOut(t0.Add(arp.AgeLimit + time.Second))

	_, ok := c.Lookup(ip1)
	require.False(t, ok)
	_, ok = c.Lookup(ip2)
	require.True(t, ok, "static entries are never aged out")
}

func TestCacheOnChangeFires(t *testing.T) {
	c := arp.NewCache(10)
	var events []arp.ChangeEvent
	c.OnChange.Register(func(e arp.ChangeEvent) { events = append(events, e) })

	now := time.Unix(1000, 0)
	c.Add(now, ip1, mac1, arp.Dynamic)
	c.Delete(ip1)

	require.Len(t, events, 2)
	require.False(t, events[0].Deleted)
	require.True(t, events[1].Deleted)
}

func TestQueuePushDrainFIFO(t *testing.T) {
	q := arp.NewQueue()
	out := iface.New("eth0", iface.Hardware)

	first := q.Push(ip1, out, arp.PendingFrame{Buf: pbuf.New(4)})
	require.True(t, first, "first push for a next hop must request resolution")

	second := q.Push(ip1, out, arp.PendingFrame{Buf: pbuf.New(8)})
	require.False(t, second)

	frames, gotOut, ok := q.Drain(ip1)
	require.True(t, ok)
	require.Equal(t, out, gotOut)
	require.Len(t, frames, 2)
	require.Equal(t, 4, frames[0].Buf.Len())
	require.Equal(t, 8, frames[1].Buf.Len())

	_, _, ok = q.Drain(ip1)
	require.False(t, ok, "drain empties the entry")
}
