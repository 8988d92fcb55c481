// Package operator implements the text command protocol of spec.md §6
// against a running router.Router, plus a read-only HTTP status surface.
// The line reader/socket front-end that feeds Execute (telnet session,
// local CLI, whatever) is the excluded external collaborator; this package
// is only the part of the surface that belongs to the core and can be
// unit-tested directly, grounded in the teacher's web/handler.go request
// handlers translated to a line-oriented protocol.
package operator

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/lirlia/100day_challenge_backend/day72_pwospf_router/internal/arp"
	"github.com/lirlia/100day_challenge_backend/day72_pwospf_router/internal/iface"
	"github.com/lirlia/100day_challenge_backend/day72_pwospf_router/internal/netaddr"
	"github.com/lirlia/100day_challenge_backend/day72_pwospf_router/internal/ospf"
	"github.com/lirlia/100day_challenge_backend/day72_pwospf_router/internal/packet"
	"github.com/lirlia/100day_challenge_backend/day72_pwospf_router/internal/pbuf"
	"github.com/lirlia/100day_challenge_backend/day72_pwospf_router/internal/router"
	"github.com/lirlia/100day_challenge_backend/day72_pwospf_router/internal/rtable"
	"github.com/lirlia/100day_challenge_backend/day72_pwospf_router/internal/tunnel"
)

// ErrShutdown is returned by Execute for the "shutdown" command, signaling
// the caller's line-reader loop to stop calling Execute and terminate
// cleanly — the exit-code-0 clean shutdown spec.md §6 describes.
var ErrShutdown = fmt.Errorf("operator: shutdown requested")

// Execute parses and runs one line of the text protocol against core,
// returning the line's textual response (possibly multi-line, with no
// trailing newline) or an error for a malformed command or invalid
// argument.
func Execute(core *router.Router, line string) (string, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return "", fmt.Errorf("operator: empty command")
	}

	switch fields[0] {
	case "show":
		return execShow(core, fields[1:])
	case "arp":
		return execARP(core, fields[1:])
	case "ip":
		return execIP(core, fields[1:])
	case "ospf":
		return execOSPF(core, fields[1:])
	case "ping":
		return execPing(core, fields[1:])
	case "shutdown":
		return "shutting down", ErrShutdown
	default:
		return "", fmt.Errorf("operator: unknown command %q", fields[0])
	}
}

func execShow(core *router.Router, args []string) (string, error) {
	if len(args) < 2 || args[0] != "ip" {
		return "", fmt.Errorf("operator: usage: show ip arp|intf|route|tunnel")
	}
	switch args[1] {
	case "arp":
		return showARP(core), nil
	case "intf":
		return showIntf(core), nil
	case "route":
		return showRoute(core), nil
	case "tunnel":
		return showTunnel(core), nil
	default:
		return "", fmt.Errorf("operator: unknown show target %q", args[1])
	}
}

func showARP(core *router.Router) string {
	entries := core.ARPCache.All()
	sort.Slice(entries, func(i, j int) bool { return entries[i].IP < entries[j].IP })
	var b strings.Builder
	for _, e := range entries {
		kind := "dynamic"
		if e.Kind == arp.Static {
			kind = "static"
		}
		fmt.Fprintf(&b, "%s %s %s\n", e.IP, e.MAC, kind)
	}
	return strings.TrimRight(b.String(), "\n")
}

func showIntf(core *router.Router) string {
	ifaces := core.Ifaces.All()
	sort.Slice(ifaces, func(i, j int) bool { return ifaces[i].Name() < ifaces[j].Name() })
	var b strings.Builder
	for _, in := range ifaces {
		state := "down"
		if in.Enabled() {
			state = "up"
		}
		fmt.Fprintf(&b, "%s %s %s %s %s %s\n", in.Name(), in.Type(), in.IP(), in.Mask(), in.MAC(), state)
	}
	return strings.TrimRight(b.String(), "\n")
}

func showRoute(core *router.Router) string {
	entries := core.Routes.All()
	var b strings.Builder
	for _, e := range entries {
		kind := "static"
		if e.Kind == rtable.Dynamic {
			kind = "dynamic"
		}
		gw := "-"
		if !e.Gateway.IsZero() {
			gw = e.Gateway.String()
		}
		fmt.Fprintf(&b, "%s %s %s %s %s\n", e.Subnet, e.Mask, gw, e.Interface.Name(), kind)
	}
	return strings.TrimRight(b.String(), "\n")
}

func showTunnel(core *router.Router) string {
	tuns := core.Tunnels.All()
	sort.Slice(tuns, func(i, j int) bool { return tuns[i].Name < tuns[j].Name })
	var b strings.Builder
	for _, t := range tuns {
		fmt.Fprintf(&b, "%s gre %s %s\n", t.Name, t.LocalInterface, t.RemoteIP)
	}
	return strings.TrimRight(b.String(), "\n")
}

func execARP(core *router.Router, args []string) (string, error) {
	if len(args) == 0 {
		return "", fmt.Errorf("operator: usage: arp add|del|purge ...")
	}
	switch args[0] {
	case "add":
		if len(args) != 3 {
			return "", fmt.Errorf("operator: usage: arp add <ip> <mac>")
		}
		ip, err := netaddr.ParseIPv4(args[1])
		if err != nil {
			return "", err
		}
		mac, err := netaddr.ParseMAC(args[2])
		if err != nil {
			return "", err
		}
		core.ARPCache.Add(time.Now(), ip, mac, arp.Static)
		return "ok", nil
	case "del":
		if len(args) != 2 {
			return "", fmt.Errorf("operator: usage: arp del <ip>")
		}
		ip, err := netaddr.ParseIPv4(args[1])
		if err != nil {
			return "", err
		}
		core.ARPCache.Delete(ip)
		return "ok", nil
	case "purge":
		if len(args) != 2 {
			return "", fmt.Errorf("operator: usage: arp purge dyn|sta|all")
		}
		return "ok", purgeARP(core, args[1])
	default:
		return "", fmt.Errorf("operator: unknown arp subcommand %q", args[0])
	}
}

func purgeARP(core *router.Router, which string) error {
	for _, e := range core.ARPCache.All() {
		switch which {
		case "dyn":
			if e.Kind == arp.Dynamic {
				core.ARPCache.Delete(e.IP)
			}
		case "sta":
			if e.Kind == arp.Static {
				core.ARPCache.Delete(e.IP)
			}
		case "all":
			core.ARPCache.Delete(e.IP)
		default:
			return fmt.Errorf("operator: unknown purge scope %q", which)
		}
	}
	return nil
}

func execIP(core *router.Router, args []string) (string, error) {
	if len(args) == 0 {
		return "", fmt.Errorf("operator: usage: ip intf|route|tunnel ...")
	}
	switch args[0] {
	case "intf":
		return execIPIntf(core, args[1:])
	case "route":
		return execIPRoute(core, args[1:])
	case "tunnel":
		return execIPTunnel(core, args[1:])
	default:
		return "", fmt.Errorf("operator: unknown ip subcommand %q", args[0])
	}
}

func execIPIntf(core *router.Router, args []string) (string, error) {
	if len(args) < 2 {
		return "", fmt.Errorf("operator: usage: ip intf set|up|down ...")
	}
	switch args[0] {
	case "set":
		if len(args) != 4 {
			return "", fmt.Errorf("operator: usage: ip intf set <name> <ip> <mask>")
		}
		in := core.Ifaces.ByName(args[1])
		if in == nil {
			return "", fmt.Errorf("operator: unknown interface %q", args[1])
		}
		ip, err := netaddr.ParseIPv4(args[2])
		if err != nil {
			return "", err
		}
		mask, err := netaddr.ParseIPv4(args[3])
		if err != nil {
			return "", err
		}
		old := in.IP()
		in.SetIP(ip)
		in.SetMask(mask)
		core.Ifaces.NoteIPChanged(in, old)
		return "ok", nil
	case "up":
		return setIntfEnabled(core, args[1], true)
	case "down":
		return setIntfEnabled(core, args[1], false)
	default:
		return "", fmt.Errorf("operator: unknown ip intf subcommand %q", args[0])
	}
}

func setIntfEnabled(core *router.Router, name string, enabled bool) (string, error) {
	in := core.Ifaces.ByName(name)
	if in == nil {
		return "", fmt.Errorf("operator: unknown interface %q", name)
	}
	in.SetEnabled(enabled)
	return "ok", nil
}

func execIPRoute(core *router.Router, args []string) (string, error) {
	if len(args) == 0 {
		return "", fmt.Errorf("operator: usage: ip route add|del|purge ...")
	}
	switch args[0] {
	case "add":
		if len(args) != 5 {
			return "", fmt.Errorf("operator: usage: ip route add <dest> <gw> <mask> <name>")
		}
		dest, err := netaddr.ParseIPv4(args[1])
		if err != nil {
			return "", err
		}
		var gw netaddr.IPv4
		if args[2] != "-" {
			gw, err = netaddr.ParseIPv4(args[2])
			if err != nil {
				return "", err
			}
		}
		mask, err := netaddr.ParseIPv4(args[3])
		if err != nil {
			return "", err
		}
		in := core.Ifaces.ByName(args[4])
		if in == nil {
			return "", fmt.Errorf("operator: unknown interface %q", args[4])
		}
		core.Routes.Insert(&rtable.Entry{Subnet: dest, Mask: mask, Gateway: gw, Interface: in, Kind: rtable.Static})
		return "ok", nil
	case "del":
		if len(args) != 3 {
			return "", fmt.Errorf("operator: usage: ip route del <dest> <mask>")
		}
		dest, err := netaddr.ParseIPv4(args[1])
		if err != nil {
			return "", err
		}
		mask, err := netaddr.ParseIPv4(args[2])
		if err != nil {
			return "", err
		}
		core.Routes.Remove(dest, mask)
		return "ok", nil
	case "purge":
		if len(args) != 2 {
			return "", fmt.Errorf("operator: usage: ip route purge dyn|sta|all")
		}
		switch args[1] {
		case "dyn":
			core.Routes.RemoveKind(rtable.Dynamic)
		case "sta":
			core.Routes.RemoveKind(rtable.Static)
		case "all":
			core.Routes.RemoveKind(rtable.Static)
			core.Routes.RemoveKind(rtable.Dynamic)
		default:
			return "", fmt.Errorf("operator: unknown purge scope %q", args[1])
		}
		return "ok", nil
	default:
		return "", fmt.Errorf("operator: unknown ip route subcommand %q", args[0])
	}
}

func execIPTunnel(core *router.Router, args []string) (string, error) {
	if len(args) == 0 {
		return "", fmt.Errorf("operator: usage: ip tunnel add|change|del ...")
	}
	switch args[0] {
	case "add", "change":
		if len(args) != 4 || args[2] != "gre" {
			return "", fmt.Errorf("operator: usage: ip tunnel add|change <name> gre <remote>")
		}
		remote, err := netaddr.ParseIPv4(args[3])
		if err != nil {
			return "", err
		}
		name := args[1]
		existing := core.Tunnels.ByName(name)
		local := name
		if existing != nil {
			local = existing.LocalInterface
		}
		core.Tunnels.Add(&tunnel.Tunnel{Name: name, LocalInterface: local, RemoteIP: remote, Mode: tunnel.GRE})
		if core.Ifaces.ByName(name) == nil {
			core.Ifaces.Add(iface.New(name, iface.Virtual))
		}
		return "ok", nil
	case "del":
		if len(args) != 2 {
			return "", fmt.Errorf("operator: usage: ip tunnel del <name>")
		}
		core.Tunnels.Remove(args[1])
		core.Ifaces.Remove(args[1])
		return "ok", nil
	default:
		return "", fmt.Errorf("operator: unknown ip tunnel subcommand %q", args[0])
	}
}

func execOSPF(core *router.Router, args []string) (string, error) {
	if len(args) != 1 {
		return "", fmt.Errorf("operator: usage: ospf up|down")
	}
	switch args[0] {
	case "up":
		core.OSPF.SetEnabled(true)
		return "ok", nil
	case "down":
		core.OSPF.SetEnabled(false)
		return "ok", nil
	default:
		return "", fmt.Errorf("operator: unknown ospf subcommand %q", args[0])
	}
}

// execPing sends a single ICMP Echo Request (unlike the original tool's
// hardware-bound partial implementation, excluded per SPEC_FULL.md §9 Open
// Question 2): it builds an Echo Request addressed to the target, submits
// it through the forwarding engine's own outbound path, and reports
// whether a route exists. It does not wait for or report an Echo Reply —
// this process has no sockets of its own to receive one on.
func execPing(core *router.Router, args []string) (string, error) {
	if len(args) != 1 {
		return "", fmt.Errorf("operator: usage: ping <ip>")
	}
	dst, err := netaddr.ParseIPv4(args[0])
	if err != nil {
		return "", err
	}

	rt := core.Routes.LPM(dst)
	if rt == nil {
		return fmt.Sprintf("ping: %s: no route to host", dst), nil
	}

	buf := pbuf.New(0)
	icmp := packet.PrependICMP(buf, nil)
	icmp.SetType(packet.ICMPTypeEchoRequest)
	icmp.SetCode(0)
	icmp.SetIdentifier(uint16(time.Now().UnixNano()))
	icmp.SetSequence(1)
	icmp.RecomputeChecksum()

	ip := packet.PrependIPv4(buf, nil)
	ip.FillHeader(0, packet.FlagDF, 0, packet.DefaultTTL, packet.ProtoICMP,
		rt.Interface.IP(), dst, uint16(packet.IPv4MinHeaderLen+packet.ICMPHeaderLen))

	core.Forward.Outbound(ip)
	return fmt.Sprintf("ping: request sent to %s via %s", dst, rt.Interface.Name()), nil
}

// lsdbRows renders the OSPF topology as (router-id, neighbor-id, subnet,
// mask) rows for "show ospf lsdb"-style output, also reused by the HTTP
// status surface.
func lsdbRows(core *router.Router) [][4]string {
	var rows [][4]string
	for _, n := range core.OSPF.Topology.Nodes() {
		for _, l := range n.Links() {
			neighbor := "passive"
			if l.Node.RouterID() != ospf.PassiveRouterID {
				neighbor = strconv.FormatUint(uint64(netaddr.IPv4(l.Node.RouterID())), 10)
			}
			rows = append(rows, [4]string{
				netaddr.IPv4(n.RouterID()).String(), neighbor, l.Subnet.String(), l.Mask.String(),
			})
		}
	}
	return rows
}
