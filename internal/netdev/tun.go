package netdev

import (
	"fmt"
	"io"
	"log"
	"net"
	"os/exec"
	"runtime"
	"sync"

	"github.com/songgao/water"
)

// port pairs a configured TAP device with the logical interface name the
// rest of the router knows it by.
type port struct {
	ifaceName string
	dev       *water.Interface
}

// TUNDriver reads and writes whole Ethernet frames through one
// water.Interface per router-facing port, in TAP mode (TUN would strip
// the Ethernet header this router's packet pipeline expects). Each port
// is brought up with the OS-specific ip/ifconfig commands the original
// tool used, adapted to TAP semantics.
type TUNDriver struct {
	mu    sync.Mutex
	ports map[string]*port
	recvQ chan frameOrErr
}

type frameOrErr struct {
	ifaceName string
	frame     []byte
	err       error
}

// NewTUNDriver constructs a driver with no ports yet; call AddPort for
// each interface the router owns.
func NewTUNDriver() *TUNDriver {
	return &TUNDriver{
		ports: make(map[string]*port),
		recvQ: make(chan frameOrErr, 64),
	}
}

// AddPort creates a TAP device for ifaceName, assigns it cidr (e.g.
// "10.0.0.1/24"), and starts a reader goroutine feeding Recv.
func (d *TUNDriver) AddPort(ifaceName, cidr string, mtu int) error {
	dev, err := water.New(water.Config{DeviceType: water.TAP})
	if err != nil {
		return fmt.Errorf("netdev: create TAP device for %s: %w", ifaceName, err)
	}
	if err := configureDevice(dev.Name(), cidr, mtu); err != nil {
		return err
	}

	d.mu.Lock()
	d.ports[ifaceName] = &port{ifaceName: ifaceName, dev: dev}
	d.mu.Unlock()

	go d.readLoop(ifaceName, dev)
	return nil
}

func (d *TUNDriver) readLoop(ifaceName string, dev *water.Interface) {
	buf := make([]byte, 65536)
	for {
		n, err := dev.Read(buf)
		if err != nil {
			if err == io.EOF {
				return
			}
			d.recvQ <- frameOrErr{ifaceName: ifaceName, err: fmt.Errorf("netdev: read %s: %w", ifaceName, err)}
			return
		}
		frame := make([]byte, n)
		copy(frame, buf[:n])
		d.recvQ <- frameOrErr{ifaceName: ifaceName, frame: frame}
	}
}

func (d *TUNDriver) Send(ifaceName string, frame []byte) error {
	d.mu.Lock()
	p, ok := d.ports[ifaceName]
	d.mu.Unlock()
	if !ok {
		return fmt.Errorf("netdev: unknown interface %q", ifaceName)
	}
	_, err := p.dev.Write(frame)
	return err
}

func (d *TUNDriver) Recv() (string, []byte, error) {
	r := <-d.recvQ
	return r.ifaceName, r.frame, r.err
}

func (d *TUNDriver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	var firstErr error
	for _, p := range d.ports {
		if err := p.dev.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// configureDevice assigns cidr and mtu to devName and brings it up, using
// the OS-specific command sequence.
func configureDevice(devName, cidr string, mtu int) error {
	ip, ipNet, err := net.ParseCIDR(cidr)
	if err != nil {
		return fmt.Errorf("netdev: invalid CIDR %q: %w", cidr, err)
	}
	ipNet.IP = ip

	var cmds []*exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		mask := ipMaskString(ipNet.Mask)
		cmds = []*exec.Cmd{
			exec.Command("sudo", "ifconfig", devName, ip.String(), "netmask", mask, "mtu", fmt.Sprintf("%d", mtu), "up"),
		}
	case "linux":
		cmds = []*exec.Cmd{
			exec.Command("sudo", "ip", "addr", "add", ipNet.String(), "dev", devName),
			exec.Command("sudo", "ip", "link", "set", "dev", devName, "mtu", fmt.Sprintf("%d", mtu)),
			exec.Command("sudo", "ip", "link", "set", "dev", devName, "up"),
		}
	default:
		return fmt.Errorf("netdev: unsupported OS %s", runtime.GOOS)
	}

	for _, cmd := range cmds {
		out, err := cmd.CombinedOutput()
		if err != nil {
			return fmt.Errorf("netdev: %s: %w (%s)", cmd.String(), err, string(out))
		}
		log.Printf("netdev: %s", cmd.String())
	}
	return nil
}

func ipMaskString(mask net.IPMask) string {
	return fmt.Sprintf("%d.%d.%d.%d", mask[0], mask[1], mask[2], mask[3])
}
