// Package notify implements the observer plumbing shared by the interface
// set, ARP cache, and OSPF topology (the routing table has no notifier and
// reports no changes): a notifier holds a list
// of callbacks and delivers events to a snapshot of that list taken at
// dispatch time, so a callback that registers or unregisters another
// observer never affects the event currently being delivered.
package notify

import "sync"

// Handle identifies a registered observer for later Unregister calls.
type Handle int

// Notifier is a generic, snapshotted-at-dispatch notification list. T is
// the event payload delivered to every registered observer.
type Notifier[T any] struct {
	mu        sync.Mutex
	nextID    Handle
	observers map[Handle]func(T)
}

// Register adds fn as an observer and returns a handle for Unregister.
func (n *Notifier[T]) Register(fn func(T)) Handle {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.observers == nil {
		n.observers = make(map[Handle]func(T))
	}
	n.nextID++
	id := n.nextID
	n.observers[id] = fn
	return id
}

// Unregister removes the observer identified by h, if still present.
func (n *Notifier[T]) Unregister(h Handle) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.observers, h)
}

// Notify delivers event to a snapshot of the currently registered
// observers, synchronously, in an unspecified order. Observers added or
// removed by a callback during this call do not affect this delivery.
func (n *Notifier[T]) Notify(event T) {
	n.mu.Lock()
	snapshot := make([]func(T), 0, len(n.observers))
	for _, fn := range n.observers {
		snapshot = append(snapshot, fn)
	}
	n.mu.Unlock()

	for _, fn := range snapshot {
		fn(event)
	}
}
