package ospf

import (
	"sync"

	"github.com/lirlia/100day_challenge_backend/day72_pwospf_router/internal/netaddr"
)

// advKey is the four-tuple an LSU advertisement is staged or confirmed
// under: the sender that advertised it, the neighbor router-id it claims,
// and the (subnet, mask) of the shared link.
type advKey struct {
	Sender    RouterID
	Neighbor  RouterID
	Subnet    netaddr.IPv4
	Mask      netaddr.IPv4
}

// AdvertisementSet is a bare keyed set used two ways: persistently, to
// stage half-advertisements awaiting the reverse direction before a
// bidirectional link is committed to the topology; and transiently, as the
// per-LSU "confirmed" accumulator used to decide which of sender's
// existing links survive (§4.5.2).
type AdvertisementSet struct {
	mu   sync.Mutex
	keys map[advKey]struct{}
}

func NewAdvertisementSet() *AdvertisementSet {
	return &AdvertisementSet{keys: make(map[advKey]struct{})}
}

func (s *AdvertisementSet) Add(sender, neighbor RouterID, subnet, mask netaddr.IPv4) {
	k := advKey{sender, neighbor, subnet.Mask(mask), mask}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys[k] = struct{}{}
}

func (s *AdvertisementSet) Remove(sender, neighbor RouterID, subnet, mask netaddr.IPv4) {
	k := advKey{sender, neighbor, subnet.Mask(mask), mask}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.keys, k)
}

func (s *AdvertisementSet) Contains(sender, neighbor RouterID, subnet, mask netaddr.IPv4) bool {
	k := advKey{sender, neighbor, subnet.Mask(mask), mask}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.keys[k]
	return ok
}
