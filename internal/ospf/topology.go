// Package ospf implements the PWOSPF router: HELLO and LSU packet
// handling, the per-interface gateway/neighbor state machine, the
// router-ID-keyed topology graph with its shortest-path spanning tree, and
// the reactor that keeps the routing table's dynamic entries in sync with
// that tree.
package ospf

import (
	"sync"
	"time"

	"github.com/lirlia/100day_challenge_backend/day72_pwospf_router/internal/netaddr"
	"github.com/lirlia/100day_challenge_backend/day72_pwospf_router/internal/notify"
)

// RouterID is a PWOSPF router identifier — in practice an IPv4 address of
// one of the router's own interfaces.
type RouterID uint32

// MaxDistance marks a node unreachable in the spanning tree.
const MaxDistance uint16 = 0xFFFF

// PassiveRouterID is the reserved router-id (0) used by advertisements of
// passive, non-OSPF-speaking stub subnets; the topology maps every such
// advertisement onto one shared passive endpoint node.
const PassiveRouterID RouterID = 0

// Link is one edge out of a Node: either to another OSPF-speaking Node, or
// (when Node.RouterID() == PassiveRouterID) to the shared passive stub
// endpoint.
type Link struct {
	Node     *Node
	Subnet   netaddr.IPv4
	Mask     netaddr.IPv4
	lastLSU  time.Time
}

// NewLink builds a link to neighbor over (subnet, mask), pre-masking the
// subnet and stamping lastLSU as of now.
func NewLink(neighbor *Node, subnet, mask netaddr.IPv4) *Link {
	return &Link{Node: neighbor, Subnet: subnet.Mask(mask), Mask: mask, lastLSU: time.Now()}
}

func (l *Link) TouchLSU(now time.Time) { l.lastLSU = now }
func (l *Link) AgeLSU(now time.Time) time.Duration { return now.Sub(l.lastLSU) }

// Node is one router (or the shared passive endpoint) in the topology.
type Node struct {
	mu sync.Mutex

	id       RouterID
	links    []*Link
	lastSeen time.Time
	seqno    uint16
	hasSeqno bool

	distance uint16
	prev     *Node
}

// NewNode constructs a node with no links yet, stamped as seen now.
func NewNode(id RouterID) *Node {
	return &Node{id: id, lastSeen: time.Now(), distance: MaxDistance}
}

func (n *Node) RouterID() RouterID { return n.id }

func (n *Node) Age(now time.Time) time.Duration {
	n.mu.Lock()
	defer n.mu.Unlock()
	return now.Sub(n.lastSeen)
}

func (n *Node) TouchSeen(now time.Time) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.lastSeen = now
}

// Seqno and HasSeqno report the latest LSU sequence number seen from this
// node, if any.
func (n *Node) Seqno() (uint16, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.seqno, n.hasSeqno
}

func (n *Node) SetSeqno(seqno uint16) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.seqno, n.hasSeqno = seqno, true
}

// Links returns a snapshot of this node's outgoing links.
func (n *Node) Links() []*Link {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]*Link, len(n.links))
	copy(out, n.links)
	return out
}

// LinkTo returns the link to neighbor on (subnet, mask), or nil.
func (n *Node) LinkTo(neighbor RouterID, subnet, mask netaddr.IPv4) *Link {
	subnet = subnet.Mask(mask)
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, l := range n.links {
		if l.Node.RouterID() == neighbor && l.Subnet == subnet && l.Mask == mask {
			return l
		}
	}
	return nil
}

// AddLink appends l, replacing any existing link to the same (neighbor,
// subnet, mask) triple.
func (n *Node) AddLink(l *Link) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for i, existing := range n.links {
		if existing.Node.RouterID() == l.Node.RouterID() && existing.Subnet == l.Subnet && existing.Mask == l.Mask {
			n.links[i] = l
			return
		}
	}
	n.links = append(n.links, l)
}

// RemoveStaleLinks drops every link whose age exceeds maxAge, reporting
// whether any were removed.
func (n *Node) RemoveStaleLinks(now time.Time, maxAge time.Duration) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	kept := n.links[:0]
	removed := false
	for _, l := range n.links {
		if l.AgeLSU(now) > maxAge {
			removed = true
			continue
		}
		kept = append(kept, l)
	}
	n.links = kept
	return removed
}

func (n *Node) prevNode() *Node {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.prev
}

func (n *Node) distanceValue() uint16 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.distance
}

func (n *Node) setSPT(prev *Node, distance uint16) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.prev, n.distance = prev, distance
}

// Topology is a router-id-keyed graph rooted at this router's own node.
// Mutating a node's links marks the topology dirty; OnUpdate recomputes
// the shortest-path spanning tree (Dijkstra, unit edge weights) and clears
// the flag, firing OnDirtyCleared.
type Topology struct {
	mu      sync.Mutex
	root    *Node
	nodes   map[RouterID]*Node
	passive *Node
	dirty   bool

	OnDirtyCleared notify.Notifier[struct{}]
}

// NewTopology builds a topology rooted at root, with the shared passive
// endpoint node pre-created.
func NewTopology(root *Node) *Topology {
	t := &Topology{
		root:    root,
		nodes:   make(map[RouterID]*Node),
		passive: NewNode(PassiveRouterID),
	}
	t.nodes[root.RouterID()] = root
	return t
}

func (t *Topology) Root() *Node { return t.root }

// PassiveEndpoint returns the singleton node every passive-stub
// advertisement attaches to.
func (t *Topology) PassiveEndpoint() *Node { return t.passive }

// Node returns the node for id, or nil.
func (t *Topology) Node(id RouterID) *Node {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.nodes[id]
}

// NodeOrNew returns the existing node for id, creating and registering a
// fresh one (and marking the topology dirty) if none exists yet.
func (t *Topology) NodeOrNew(id RouterID) *Node {
	t.mu.Lock()
	if n, ok := t.nodes[id]; ok {
		t.mu.Unlock()
		return n
	}
	n := NewNode(id)
	t.nodes[id] = n
	t.dirty = true
	t.mu.Unlock()
	return n
}

// RemoveNode deletes id from the topology and marks it dirty. The root
// node cannot be removed.
func (t *Topology) RemoveNode(id RouterID) {
	if id == t.root.RouterID() {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.nodes[id]; !ok {
		return
	}
	delete(t.nodes, id)
	t.dirty = true
}

// MarkDirty flags the topology for SPT recomputation on the next OnUpdate.
func (t *Topology) MarkDirty() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.dirty = true
}

// Dirty reports whether an SPT recomputation is pending.
func (t *Topology) Dirty() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.dirty
}

// Nodes returns every node in the topology except the root, in no
// particular order.
func (t *Topology) Nodes() []*Node {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]*Node, 0, len(t.nodes))
	for id, n := range t.nodes {
		if id == t.root.RouterID() {
			continue
		}
		out = append(out, n)
	}
	return out
}

// OnUpdate recomputes the shortest-path spanning tree if dirty, then
// clears the dirty flag and fires OnDirtyCleared. A no-op if already
// clean.
func (t *Topology) OnUpdate() {
	t.mu.Lock()
	if !t.dirty {
		t.mu.Unlock()
		return
	}
	nodes := make([]*Node, 0, len(t.nodes)+1)
	for _, n := range t.nodes {
		nodes = append(nodes, n)
	}
	nodes = append(nodes, t.passive)
	root := t.root
	t.mu.Unlock()

	computeSPT(root, nodes)

	t.mu.Lock()
	t.dirty = false
	t.mu.Unlock()
	t.OnDirtyCleared.Notify(struct{}{})
}

// computeSPT runs Dijkstra with unit edge weights from root over nodes
// (which must include root), writing prev/distance on every node.
// Unreachable nodes are left at distance MaxDistance with prev == nil.
func computeSPT(root *Node, nodes []*Node) {
	byID := make(map[RouterID]*Node, len(nodes))
	for _, n := range nodes {
		n.setSPT(nil, MaxDistance)
		byID[n.RouterID()] = n
	}
	root.setSPT(nil, 0)

	unvisited := make(map[RouterID]bool, len(nodes))
	for _, n := range nodes {
		unvisited[n.RouterID()] = true
	}

	for len(unvisited) > 0 {
		var current *Node
		currentDist := int(MaxDistance) + 1
		for id := range unvisited {
			n := byID[id]
			if d := int(n.distanceValue()); d < currentDist {
				current, currentDist = n, d
			}
		}
		if current == nil || currentDist >= int(MaxDistance) {
			break // remaining nodes are unreachable
		}
		delete(unvisited, current.RouterID())

		for _, l := range current.Links() {
			neighbor, ok := byID[l.Node.RouterID()]
			if !ok || !unvisited[neighbor.RouterID()] {
				continue
			}
			alt := uint16(currentDist + 1)
			if alt < neighbor.distanceValue() {
				neighbor.setSPT(current, alt)
			}
		}
	}
}
