// Package arp implements the ARP cache (bounded, LRU-style eviction of
// dynamic entries, periodic aging) and the per-next-hop pending-packet
// queue drained on resolution.
package arp

import (
	"sync"
	"time"

	"github.com/lirlia/100day_challenge_backend/day72_pwospf_router/internal/netaddr"
	"github.com/lirlia/100day_challenge_backend/day72_pwospf_router/internal/notify"
)

// EntryKind distinguishes an operator-configured static entry (never aged
// out) from one learned dynamically off the wire.
type EntryKind int

const (
	Dynamic EntryKind = iota
	Static
)

// AgeLimit is how long a dynamic entry may sit unrefreshed before the
// aging daemon reclaims it.
const AgeLimit = 30 * time.Second

// Entry is one resolved IP-to-MAC mapping.
type Entry struct {
	IP       netaddr.IPv4
	MAC      netaddr.MAC
	Kind     EntryKind
	lastSeen time.Time
}

// Age reports how long it has been since entry was last refreshed, as of
// now (the caller's wall-clock sample; the cache never calls time.Now
// itself so its behavior is deterministic under test).
func (e Entry) Age(now time.Time) time.Duration { return now.Sub(e.lastSeen) }

// ChangeEvent is delivered to observers on both add and delete. Per the
// notifier contract, observers run synchronously on the mutator's
// goroutine and MUST NOT call back into the cache.
type ChangeEvent struct {
	Entry   Entry
	Deleted bool
}

// Cache is the bounded IP→MAC table. Capacity is enforced on Add: once
// full, the oldest dynamic entry (by insertion order) is evicted to make
// room; static entries are never evicted.
//
// The aging daemon (AgeOut) must scan for stale entries and delete them
// within the SAME lock acquisition the original implementation used,
// rather than releasing the lock between the scan and each deletion —
// releasing it there would let an ARP reply race in and resurrect an
// entry the scan had already decided to evict. Rather than a literal
// recursive mutex, this is expressed the idiomatic Go way: every exported
// method takes the lock once and delegates to an unexported *Locked
// counterpart that assumes it is already held, so AgeOut's scan-then-
// delete is one critical section instead of a nested Lock/Lock.
type Cache struct {
	mu       sync.Mutex
	byIP     map[netaddr.IPv4]*Entry
	order    []netaddr.IPv4 // insertion order, for oldest-dynamic eviction
	capacity int

	OnChange notify.Notifier[ChangeEvent]
}

// NewCache constructs a cache bounded to capacity entries.
func NewCache(capacity int) *Cache {
	return &Cache{
		byIP:     make(map[netaddr.IPv4]*Entry),
		capacity: capacity,
	}
}

// Lookup returns the entry for ip and whether it was present.
func (c *Cache) Lookup(ip netaddr.IPv4) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.byIP[ip]
	if !ok {
		return Entry{}, false
	}
	return *e, true
}

// Add inserts or refreshes the mapping ip -> mac as kind, stamping
// lastSeen = now. If this is a fresh insert and the cache is at capacity,
// the oldest dynamic entry is evicted first; if every entry is static, the
// new entry is still added (the spec bounds dynamic churn, not the
// operator's own static configuration).
func (c *Cache) Add(now time.Time, ip netaddr.IPv4, mac netaddr.MAC, kind EntryKind) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.addLocked(now, ip, mac, kind)
}

func (c *Cache) addLocked(now time.Time, ip netaddr.IPv4, mac netaddr.MAC, kind EntryKind) {
	if existing, ok := c.byIP[ip]; ok {
		existing.MAC = mac
		existing.Kind = kind
		existing.lastSeen = now
		c.OnChange.Notify(ChangeEvent{Entry: *existing})
		return
	}

	if len(c.byIP) >= c.capacity {
		c.evictOldestDynamicLocked()
	}

	e := &Entry{IP: ip, MAC: mac, Kind: kind, lastSeen: now}
	c.byIP[ip] = e
	c.order = append(c.order, ip)
	c.OnChange.Notify(ChangeEvent{Entry: *e})
}

func (c *Cache) evictOldestDynamicLocked() {
	for idx, ip := range c.order {
		e, ok := c.byIP[ip]
		if !ok {
			continue
		}
		if e.Kind == Static {
			continue
		}
		c.order = append(c.order[:idx], c.order[idx+1:]...)
		delete(c.byIP, ip)
		c.OnChange.Notify(ChangeEvent{Entry: *e, Deleted: true})
		return
	}
}

// Delete removes ip's entry, if present, firing OnChange with Deleted=true.
func (c *Cache) Delete(ip netaddr.IPv4) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deleteLocked(ip)
}

func (c *Cache) deleteLocked(ip netaddr.IPv4) {
	e, ok := c.byIP[ip]
	if !ok {
		return
	}
	delete(c.byIP, ip)
	for idx, o := range c.order {
		if o == ip {
			c.order = append(c.order[:idx], c.order[idx+1:]...)
			break
		}
	}
	c.OnChange.Notify(ChangeEvent{Entry: *e, Deleted: true})
}

// AgeOut deletes every dynamic entry whose age (relative to now) is at
// least AgeLimit, scanning and deleting within one lock acquisition so a
// concurrent Add cannot resurrect an entry already condemned by this scan.
// Called by the periodic task runner in the timer context.
func (c *Cache) AgeOut(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var stale []netaddr.IPv4
	for ip, e := range c.byIP {
		if e.Kind == Dynamic && e.Age(now) >= AgeLimit {
			stale = append(stale, ip)
		}
	}
	for _, ip := range stale {
		c.deleteLocked(ip)
	}
}

// All returns a snapshot of every entry currently cached.
func (c *Cache) All() []Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Entry, 0, len(c.byIP))
	for _, e := range c.byIP {
		out = append(out, *e)
	}
	return out
}
