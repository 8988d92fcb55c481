// Package config loads the router's static bootstrap configuration: its
// interfaces, static routes, static ARP entries, tunnels, and OSPF
// defaults. The reader/CLI front-end that locates this file is the
// excluded external collaborator; this package only parses it.
package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

// Router is the top-level configuration document.
type Router struct {
	RouterID string           `yaml:"router_id"`
	AreaID   uint32           `yaml:"area_id,omitempty"`
	Interfaces []InterfaceConfig `yaml:"interfaces"`
	Routes     []RouteConfig     `yaml:"routes,omitempty"`
	ARP        []ARPConfig       `yaml:"arp,omitempty"`
	Tunnels    []TunnelConfig    `yaml:"tunnels,omitempty"`
	OSPF       OSPFConfig        `yaml:"ospf,omitempty"`
	Status     StatusConfig      `yaml:"status,omitempty"`
}

// InterfaceConfig describes one named port.
type InterfaceConfig struct {
	Name    string `yaml:"name"`
	MAC     string `yaml:"mac"`
	IP      string `yaml:"ip"`
	Mask    string `yaml:"mask"`
	Speed   int    `yaml:"speed,omitempty"`
	Type    string `yaml:"type,omitempty"` // "hardware" (default) or "virtual"
	Enabled *bool  `yaml:"enabled,omitempty"`
}

// RouteConfig is one operator-configured static route.
type RouteConfig struct {
	Subnet    string `yaml:"subnet"`
	Mask      string `yaml:"mask"`
	Gateway   string `yaml:"gateway,omitempty"`
	Interface string `yaml:"interface"`
}

// ARPConfig is one operator-configured static ARP entry.
type ARPConfig struct {
	IP  string `yaml:"ip"`
	MAC string `yaml:"mac"`
}

// TunnelConfig is one GRE tunnel.
type TunnelConfig struct {
	Name           string `yaml:"name"`
	LocalInterface string `yaml:"local_interface"`
	RemoteIP       string `yaml:"remote_ip"`
}

// OSPFConfig holds the router-wide PWOSPF defaults; per-interface HELLOINT
// overrides are not modeled (the spec's OSPF interface record defaults to
// the same HELLOINT for every interface that runs OSPF).
type OSPFConfig struct {
	Enabled     bool `yaml:"enabled,omitempty"`
	HelloIntSec int  `yaml:"hello_interval_seconds,omitempty"`
	LSUIntSec   int  `yaml:"lsu_interval_seconds,omitempty"`
}

// StatusConfig configures the optional read-only echo status server.
type StatusConfig struct {
	Enabled bool   `yaml:"enabled,omitempty"`
	Addr    string `yaml:"addr,omitempty"`
}

const (
	DefaultHelloIntSec = 10
	DefaultLSUIntSec   = 30
	DefaultStatusAddr  = ":7080"
)

// Load reads and parses path, filling in defaults the same way the
// ambient config loader this is grounded on does: zero values in the YAML
// are replaced with the router's documented defaults rather than left at
// their unusable zero state.
func Load(path string) (*Router, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Router
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	if cfg.OSPF.HelloIntSec == 0 {
		cfg.OSPF.HelloIntSec = DefaultHelloIntSec
	}
	if cfg.OSPF.LSUIntSec == 0 {
		cfg.OSPF.LSUIntSec = DefaultLSUIntSec
	}
	if cfg.Status.Enabled && cfg.Status.Addr == "" {
		cfg.Status.Addr = DefaultStatusAddr
	}
	for i := range cfg.Interfaces {
		if cfg.Interfaces[i].Type == "" {
			cfg.Interfaces[i].Type = "hardware"
		}
		if cfg.Interfaces[i].Enabled == nil {
			enabled := true
			cfg.Interfaces[i].Enabled = &enabled
		}
	}

	return &cfg, nil
}
