// Package router wires every subsystem (interfaces, routing table, ARP,
// tunnels, the forwarding engine, PWOSPF, and the periodic task runner)
// into one running router, the way the teacher's router.Router owns a TUN
// device and its neighbor links: one struct, a context-scoped lifetime,
// and a single reader goroutine per network driver.
package router

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/lirlia/100day_challenge_backend/day72_pwospf_router/internal/arp"
	"github.com/lirlia/100day_challenge_backend/day72_pwospf_router/internal/config"
	"github.com/lirlia/100day_challenge_backend/day72_pwospf_router/internal/forward"
	"github.com/lirlia/100day_challenge_backend/day72_pwospf_router/internal/iface"
	"github.com/lirlia/100day_challenge_backend/day72_pwospf_router/internal/netaddr"
	"github.com/lirlia/100day_challenge_backend/day72_pwospf_router/internal/netdev"
	"github.com/lirlia/100day_challenge_backend/day72_pwospf_router/internal/ospf"
	"github.com/lirlia/100day_challenge_backend/day72_pwospf_router/internal/rtable"
	"github.com/lirlia/100day_challenge_backend/day72_pwospf_router/internal/sched"
	"github.com/lirlia/100day_challenge_backend/day72_pwospf_router/internal/tunnel"
)

// ARPCacheCapacity bounds the dynamic ARP cache, matching the teacher's
// fixed-size tables rather than an unbounded map.
const ARPCacheCapacity = 1024

// Router is the single running instance of this daemon: every table the
// forwarding and OSPF packages read or mutate, plus the driver and
// periodic task runner that drive them.
type Router struct {
	ID       ospf.RouterID
	Ifaces   *iface.Map
	Routes   *rtable.Table
	ARPCache *arp.Cache
	ARPQueue *arp.Queue
	Tunnels  *tunnel.Map
	Forward  *forward.Engine
	OSPF     *ospf.Router
	Driver   netdev.Driver
	Logger   *log.Logger

	runner *sched.Runner

	mu        sync.Mutex
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	isRunning bool
}

// New builds a Router from a loaded configuration, constructing every
// table and wiring the forwarding engine's OSPF hook back to the OSPF
// router. OSPF itself starts disabled; cfg.OSPF.Enabled (or an operator
// "ospf up") turns it on.
func New(cfg *config.Router, driver netdev.Driver, logger *log.Logger) (*Router, error) {
	if logger == nil {
		logger = log.Default()
	}

	ifaces := iface.NewMap()
	routes := rtable.New()
	cache := arp.NewCache(ARPCacheCapacity)
	queue := arp.NewQueue()
	tunnels := tunnel.NewMap()

	for _, ic := range cfg.Interfaces {
		in, err := buildInterface(ic)
		if err != nil {
			return nil, fmt.Errorf("router: interface %s: %w", ic.Name, err)
		}
		ifaces.Add(in)
		routes.Insert(&rtable.Entry{
			Subnet: in.Subnet(), Mask: in.Mask(), Gateway: netaddr.Zero, Interface: in, Kind: rtable.Static,
		})
	}

	for _, rc := range cfg.Routes {
		entry, err := buildRoute(rc, ifaces)
		if err != nil {
			return nil, fmt.Errorf("router: route %s/%s: %w", rc.Subnet, rc.Mask, err)
		}
		routes.Insert(entry)
	}

	for _, ac := range cfg.ARP {
		ip, err := netaddr.ParseIPv4(ac.IP)
		if err != nil {
			return nil, fmt.Errorf("router: arp entry %s: %w", ac.IP, err)
		}
		mac, err := netaddr.ParseMAC(ac.MAC)
		if err != nil {
			return nil, fmt.Errorf("router: arp entry %s: %w", ac.MAC, err)
		}
		cache.Add(time.Now(), ip, mac, arp.Static)
	}

	for _, tc := range cfg.Tunnels {
		remote, err := netaddr.ParseIPv4(tc.RemoteIP)
		if err != nil {
			return nil, fmt.Errorf("router: tunnel %s: %w", tc.Name, err)
		}
		tunnels.Add(&tunnel.Tunnel{Name: tc.Name, LocalInterface: tc.LocalInterface, RemoteIP: remote})

		virt := iface.New(tc.Name, iface.Virtual)
		ifaces.Add(virt)
	}

	routerID, err := resolveRouterID(cfg.RouterID, ifaces)
	if err != nil {
		return nil, err
	}

	fwd := forward.New(ifaces, routes, cache, queue, tunnels, driver, logger)

	ospfRouter := ospf.New(ospf.RouterID(routerID), cfg.AreaID, ifaces, routes, fwd, logger)
	fwd.OSPF = ospfRouter
	ospfRouter.SetEnabled(cfg.OSPF.Enabled)
	for _, in := range ifaces.All() {
		if in.Type() == iface.Hardware {
			ospfRouter.AddInterface(in)
		}
	}
	if cfg.OSPF.HelloIntSec > 0 {
		for _, on := range ospfRouter.OSPFIfaces.All() {
			on.HelloInt = time.Duration(cfg.OSPF.HelloIntSec) * time.Second
		}
	}

	r := &Router{
		ID:       routerID,
		Ifaces:   ifaces,
		Routes:   routes,
		ARPCache: cache,
		ARPQueue: queue,
		Tunnels:  tunnels,
		Forward:  fwd,
		OSPF:     ospfRouter,
		Driver:   driver,
		Logger:   logger,
		runner:   sched.NewRunner(),
	}
	r.registerTasks(cfg)
	return r, nil
}

func buildInterface(ic config.InterfaceConfig) (*iface.Interface, error) {
	kind := iface.Hardware
	if ic.Type == "virtual" {
		kind = iface.Virtual
	}
	in := iface.New(ic.Name, kind)
	if ic.MAC != "" {
		mac, err := netaddr.ParseMAC(ic.MAC)
		if err != nil {
			return nil, err
		}
		in.SetMAC(mac)
	}
	ip, err := netaddr.ParseIPv4(ic.IP)
	if err != nil {
		return nil, err
	}
	mask, err := netaddr.ParseIPv4(ic.Mask)
	if err != nil {
		return nil, err
	}
	in.SetIP(ip)
	in.SetMask(mask)
	if ic.Speed > 0 {
		in.SetSpeed(ic.Speed)
	}
	if ic.Enabled != nil {
		in.SetEnabled(*ic.Enabled)
	}
	return in, nil
}

func buildRoute(rc config.RouteConfig, ifaces *iface.Map) (*rtable.Entry, error) {
	subnet, err := netaddr.ParseIPv4(rc.Subnet)
	if err != nil {
		return nil, err
	}
	mask, err := netaddr.ParseIPv4(rc.Mask)
	if err != nil {
		return nil, err
	}
	in := ifaces.ByName(rc.Interface)
	if in == nil {
		return nil, fmt.Errorf("unknown interface %q", rc.Interface)
	}
	var gw netaddr.IPv4
	if rc.Gateway != "" {
		gw, err = netaddr.ParseIPv4(rc.Gateway)
		if err != nil {
			return nil, err
		}
	}
	return &rtable.Entry{Subnet: subnet, Mask: mask, Gateway: gw, Interface: in, Kind: rtable.Static}, nil
}

// resolveRouterID parses an explicit router-id, falling back to the first
// hardware interface's IP if the configuration leaves it blank — router-ids
// are conventionally one of the router's own addresses.
func resolveRouterID(s string, ifaces *iface.Map) (ospf.RouterID, error) {
	if s != "" {
		ip, err := netaddr.ParseIPv4(s)
		if err != nil {
			return 0, fmt.Errorf("router: router_id %q: %w", s, err)
		}
		return ospf.RouterID(ip), nil
	}
	for _, in := range ifaces.All() {
		if in.Type() == iface.Hardware && !in.IP().IsZero() {
			return ospf.RouterID(in.IP()), nil
		}
	}
	return 0, fmt.Errorf("router: no router_id configured and no hardware interface to derive one from")
}

// registerTasks wires the periodic task runner per spec §4.6: ARP aging,
// OSPF HELLO emission, LSU flooding, and neighbor/node timeout, each driven
// by the same wall-clock sample passed into Advance.
func (r *Router) registerTasks(cfg *config.Router) {
	r.runner.AddTask("arp-age", arp.AgeLimit/3, func(now time.Time) {
		r.ARPCache.AgeOut(now)
	})

	helloInt := time.Duration(cfg.OSPF.HelloIntSec) * time.Second
	lsuInt := time.Duration(cfg.OSPF.LSUIntSec) * time.Second

	r.runner.AddTask("ospf-hello", helloInt, func(now time.Time) {
		r.OSPF.EmitHellos(now)
	})
	r.runner.AddTask("ospf-flood", lsuInt/3, func(now time.Time) {
		if r.OSPF.DueForFlood(now, lsuInt) {
			r.OSPF.FloodLSU()
		}
	})
	r.runner.AddTask("ospf-neighbor-timeout", helloInt, func(now time.Time) {
		r.OSPF.TickNeighborTimeout(now)
	})
}

// Start launches the driver's receive loop and the periodic task ticker.
// Both run until the context passed to Stop's companion cancel fires.
func (r *Router) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.isRunning {
		r.mu.Unlock()
		return fmt.Errorf("router: already running")
	}
	r.ctx, r.cancel = context.WithCancel(ctx)
	r.isRunning = true
	r.mu.Unlock()

	r.wg.Add(2)
	go r.recvLoop()
	go r.tickLoop()

	r.Logger.Printf("router: started, router-id %s, area %d", netaddr.IPv4(r.ID), r.OSPF.AreaID)
	return nil
}

// recvLoop reads frames off the driver until it errors or the router is
// stopped, handing each one to the forwarding engine's dispatch entry
// point. A single malformed or oversized frame cannot take this goroutine
// down: HandleFrame recovers its own panics.
func (r *Router) recvLoop() {
	defer r.wg.Done()
	for {
		select {
		case <-r.ctx.Done():
			return
		default:
		}
		name, frame, err := r.Driver.Recv()
		if err != nil {
			if r.ctx.Err() != nil {
				return
			}
			r.Logger.Printf("router: driver recv error: %v", err)
			return
		}
		r.Forward.HandleFrame(name, frame)
	}
}

// tickLoop advances the periodic task runner once a second, the timer
// context spec §4.6 describes.
func (r *Router) tickLoop() {
	defer r.wg.Done()
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-r.ctx.Done():
			return
		case now := <-ticker.C:
			r.runner.Advance(now)
		}
	}
}

// Stop cancels the router's context, closes the driver, and waits for both
// background goroutines to exit.
func (r *Router) Stop() error {
	r.mu.Lock()
	if !r.isRunning {
		r.mu.Unlock()
		return fmt.Errorf("router: not running")
	}
	r.isRunning = false
	cancel := r.cancel
	r.mu.Unlock()

	cancel()
	err := r.Driver.Close()
	r.wg.Wait()
	r.Logger.Printf("router: stopped")
	return err
}

func (r *Router) IsRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.isRunning
}
