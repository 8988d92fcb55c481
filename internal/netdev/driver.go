// Package netdev implements the router's interface-driver seam: the
// external collaborator that actually moves Ethernet frames on and off the
// wire. Driver is the interface the forwarding engine depends on;
// TUNDriver adapts github.com/songgao/water for real hosts, and
// ChannelDriver links routers (or a router and a test) together in
// memory.
package netdev

// Driver reads and writes whole Ethernet frames for one or more named
// interfaces. Recv blocks until a frame arrives on any of them.
type Driver interface {
	Send(ifaceName string, frame []byte) error
	Recv() (ifaceName string, frame []byte, err error)
	Close() error
}
