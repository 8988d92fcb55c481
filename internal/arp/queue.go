package arp

import (
	"sync"

	"github.com/lirlia/100day_challenge_backend/day72_pwospf_router/internal/iface"
	"github.com/lirlia/100day_challenge_backend/day72_pwospf_router/internal/netaddr"
	"github.com/lirlia/100day_challenge_backend/day72_pwospf_router/internal/pbuf"
)

// PendingFrame is one outbound Ethernet frame waiting on ARP resolution.
// The source MAC and Ethertype are already written; only the destination
// MAC, filled in once the next hop resolves, is missing.
type PendingFrame struct {
	Buf *pbuf.Buffer
}

// queueEntry holds the frames queued for one not-yet-resolved next hop.
type queueEntry struct {
	NextHop   netaddr.IPv4
	Interface *iface.Interface
	Frames    []PendingFrame
}

// Queue is the per-next-hop pending-packet queue: a next hop with no ARP
// cache entry accumulates outbound frames here (FIFO) until a reply
// resolves it, at which point every queued frame is drained in arrival
// order.
type Queue struct {
	mu      sync.Mutex
	entries map[netaddr.IPv4]*queueEntry
}

func NewQueue() *Queue {
	return &Queue{entries: make(map[netaddr.IPv4]*queueEntry)}
}

// Push appends frame to nextHop's pending list, creating the entry (with
// its egress interface) if this is the first frame waiting on nextHop.
// Reports whether a fresh ARP request should be emitted for nextHop (true
// only the first time a list is created).
func (q *Queue) Push(nextHop netaddr.IPv4, out *iface.Interface, frame PendingFrame) (shouldRequest bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	e, ok := q.entries[nextHop]
	if !ok {
		e = &queueEntry{NextHop: nextHop, Interface: out}
		q.entries[nextHop] = e
		shouldRequest = true
	}
	e.Frames = append(e.Frames, frame)
	return shouldRequest
}

// Drain removes and returns every frame queued for nextHop, in arrival
// order, along with the egress interface they were queued against. The
// second return is false if nothing was queued.
func (q *Queue) Drain(nextHop netaddr.IPv4) ([]PendingFrame, *iface.Interface, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	e, ok := q.entries[nextHop]
	if !ok {
		return nil, nil, false
	}
	delete(q.entries, nextHop)
	return e.Frames, e.Interface, true
}
