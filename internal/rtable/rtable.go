// Package rtable implements the routing table: an ordered set of
// subnet/mask/gateway/interface entries with longest-prefix-match lookup.
package rtable

import (
	"sync"

	"github.com/lirlia/100day_challenge_backend/day72_pwospf_router/internal/iface"
	"github.com/lirlia/100day_challenge_backend/day72_pwospf_router/internal/netaddr"
)

// Kind distinguishes an operator-configured entry from one learned via
// PWOSPF, used for operator "remove by kind" commands. LPM does not read
// it: Insert keeps one entry per (subnet, mask), so no two entries that
// match the same destination share a mask length.
type Kind int

const (
	Static Kind = iota
	Dynamic
)

// Entry is one routing table row. Subnet is stored pre-masked (subnet ==
// subnet & mask) by Insert.
type Entry struct {
	Subnet    netaddr.IPv4
	Mask      netaddr.IPv4
	Gateway   netaddr.IPv4 // zero means "directly connected": next hop is the destination itself
	Interface *iface.Interface
	Kind      Kind
}

// Table is the ordered sequence of routing entries. Ordering is insertion
// order; lpm iterates every enabled-interface entry and keeps the one with
// the longest matching mask, so a later, shorter-mask entry never displaces
// an earlier, longer-mask match — this is the strict
// longer-mask-wins rule the design notes call out by name.
type Table struct {
	mu      sync.RWMutex
	entries []*Entry
}

func New() *Table { return &Table{} }

// Insert adds entry, pre-masking its subnet. An existing entry whose
// (subnet, mask) already matches is replaced in place (same position);
// otherwise entry is prepended, so later inserts are found before earlier
// ones of equal mask length — entries are otherwise ordered by insertion.
func (t *Table) Insert(e *Entry) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e.Subnet = e.Subnet.Mask(e.Mask)
	for i, existing := range t.entries {
		if existing.Subnet == e.Subnet && existing.Mask == e.Mask {
			t.entries[i] = e
			return
		}
	}
	t.entries = append([]*Entry{e}, t.entries...)
}

// Remove deletes every entry matching (subnet, mask) exactly.
func (t *Table) Remove(subnet, mask netaddr.IPv4) {
	t.mu.Lock()
	defer t.mu.Unlock()
	subnet = subnet.Mask(mask)
	out := t.entries[:0]
	for _, e := range t.entries {
		if e.Subnet == subnet && e.Mask == mask {
			continue
		}
		out = append(out, e)
	}
	t.entries = out
}

// RemoveKind deletes every entry of the given kind, for operator commands
// like "ip route purge dyn".
func (t *Table) RemoveKind(k Kind) {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := t.entries[:0]
	for _, e := range t.entries {
		if e.Kind == k {
			continue
		}
		out = append(out, e)
	}
	t.entries = out
}

// LPM returns the enabled-interface entry whose mask is longest among
// those whose pre-masked subnet equals dst & mask, or nil if none match.
// Ties (equal mask length) are broken by whichever entry was found first
// in the current ordering, which places more recently inserted entries
// ahead of older ones of the same mask length.
func (t *Table) LPM(dst netaddr.IPv4) *Entry {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var best *Entry
	for _, e := range t.entries {
		if e.Interface == nil || !e.Interface.Enabled() {
			continue
		}
		if dst.Mask(e.Mask) != e.Subnet {
			continue
		}
		if best == nil || e.Mask.PrefixLen() > best.Mask.PrefixLen() {
			best = e
		}
	}
	return best
}

// All returns every entry in the table, in current order.
func (t *Table) All() []*Entry {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]*Entry, len(t.entries))
	copy(out, t.entries)
	return out
}
