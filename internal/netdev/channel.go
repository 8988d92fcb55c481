package netdev

import (
	"fmt"
	"sync"
)

// ChannelDriver links a named set of interfaces to in-memory channels
// instead of real devices, the way the teacher's NeighborLink wires two
// routers together with a ToNeighborChan/FromNeighborChan pair. Used by
// tests and by router-to-router links within a single process.
type ChannelDriver struct {
	mu    sync.Mutex
	send  map[string]chan []byte // ifaceName -> outbound channel
	recvQ chan frameOrErr
	done  chan struct{}
}

// NewChannelDriver constructs a driver with no ports registered.
func NewChannelDriver() *ChannelDriver {
	return &ChannelDriver{
		send:  make(map[string]chan []byte),
		recvQ: make(chan frameOrErr, 64),
		done:  make(chan struct{}),
	}
}

// Link registers ifaceName's outbound channel (what Send writes to) and
// starts forwarding inbound reads from recvChan into Recv(). Typically
// recvChan is the peer's send channel and vice versa, forming a full
// duplex pair between two ChannelDrivers.
func (d *ChannelDriver) Link(ifaceName string, sendChan, recvChan chan []byte) {
	d.mu.Lock()
	d.send[ifaceName] = sendChan
	d.mu.Unlock()

	go func() {
		for {
			select {
			case frame, ok := <-recvChan:
				if !ok {
					return
				}
				select {
				case d.recvQ <- frameOrErr{ifaceName: ifaceName, frame: frame}:
				case <-d.done:
					return
				}
			case <-d.done:
				return
			}
		}
	}()
}

func (d *ChannelDriver) Send(ifaceName string, frame []byte) error {
	d.mu.Lock()
	ch, ok := d.send[ifaceName]
	d.mu.Unlock()
	if !ok {
		return fmt.Errorf("netdev: unknown interface %q", ifaceName)
	}
	cp := make([]byte, len(frame))
	copy(cp, frame)
	ch <- cp
	return nil
}

func (d *ChannelDriver) Recv() (string, []byte, error) {
	select {
	case r := <-d.recvQ:
		return r.ifaceName, r.frame, r.err
	case <-d.done:
		return "", nil, fmt.Errorf("netdev: driver closed")
	}
}

func (d *ChannelDriver) Close() error {
	close(d.done)
	return nil
}
