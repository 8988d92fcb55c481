package router_test

import (
	"context"
	"log"
	"testing"
	"time"

	"github.com/lirlia/100day_challenge_backend/day72_pwospf_router/internal/config"
	"github.com/lirlia/100day_challenge_backend/day72_pwospf_router/internal/netaddr"
	"github.com/lirlia/100day_challenge_backend/day72_pwospf_router/internal/netdev"
	"github.com/lirlia/100day_challenge_backend/day72_pwospf_router/internal/router"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Router {
	enabled := true
	return &config.Router{
		RouterID: "10.0.0.1",
		AreaID:   0,
		Interfaces: []config.InterfaceConfig{
			{Name: "eth0", MAC: "02:00:00:00:00:01", IP: "10.0.0.1", Mask: "255.255.255.0", Enabled: &enabled},
		},
		OSPF: config.OSPFConfig{Enabled: false, HelloIntSec: 10, LSUIntSec: 30},
	}
}

func TestNewBuildsTablesFromConfig(t *testing.T) {
	cfg := testConfig()
	r, err := router.New(cfg, netdev.NewChannelDriver(), log.Default())
	require.NoError(t, err)

	in := r.Ifaces.ByName("eth0")
	require.NotNil(t, in)
	require.Equal(t, "10.0.0.1", in.IP().String())

	entries := r.Routes.All()
	require.Len(t, entries, 1)
	require.Equal(t, "10.0.0.0", entries[0].Subnet.String())
}

func TestResolveRouterIDFallsBackToFirstHardwareInterface(t *testing.T) {
	cfg := testConfig()
	cfg.RouterID = ""
	r, err := router.New(cfg, netdev.NewChannelDriver(), log.Default())
	require.NoError(t, err)
	require.Equal(t, "10.0.0.1", netaddrString(r))
}

func netaddrString(r *router.Router) string {
	return netaddr.IPv4(r.ID).String()
}

func TestStartStopLifecycle(t *testing.T) {
	cfg := testConfig()
	driver := netdev.NewChannelDriver()
	r, err := router.New(cfg, driver, log.Default())
	require.NoError(t, err)

	require.NoError(t, r.Start(context.Background()))
	require.True(t, r.IsRunning())

	require.Error(t, r.Start(context.Background()), "starting twice must fail")

	require.NoError(t, r.Stop())
	require.False(t, r.IsRunning())
	require.Error(t, r.Stop(), "stopping twice must fail")
}

func TestStartStopDoesNotHang(t *testing.T) {
	cfg := testConfig()
	r, err := router.New(cfg, netdev.NewChannelDriver(), log.Default())
	require.NoError(t, err)

	require.NoError(t, r.Start(context.Background()))

	done := make(chan struct{})
	go func() {
		r.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return in time")
	}
}
