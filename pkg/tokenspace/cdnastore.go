package tokenspace

import (
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const hotSliceCacheTTL = 300 * time.Second

// CdnaStore is the single owner of the live Cdna record: it validates and
// atomically replaces it, caches hot slices for hotSliceCacheTTL, and
// publishes a CDNA_UPDATED event on every accepted change (§6, grounded on
// the original source's guardian update_cdna/get_cdna_slice pair).
type CdnaStore struct {
	mu    sync.RWMutex
	cdna  Cdna
	cache *expirable.LRU[HotSliceComponent, []byte]
	bus   *SubscriptionBus

	reads, writes, hits, misses uint64
}

// NewCdnaStore returns a store seeded with initial, publishing updates on bus.
func NewCdnaStore(initial Cdna, bus *SubscriptionBus) *CdnaStore {
	return &CdnaStore{
		cdna:  initial,
		cache: expirable.NewLRU[HotSliceComponent, []byte](16, nil, hotSliceCacheTTL),
		bus:   bus,
	}
}

// Slice returns the hot slice for component, serving from cache when fresh.
func (s *CdnaStore) Slice(component HotSliceComponent) []byte {
	s.mu.Lock()
	s.reads++
	s.mu.Unlock()

	if data, ok := s.cache.Get(component); ok {
		s.mu.Lock()
		s.hits++
		s.mu.Unlock()
		return data
	}

	s.mu.Lock()
	s.misses++
	data := s.cdna.HotSlice(component)
	s.mu.Unlock()

	s.cache.Add(component, data)
	return data
}

// Full returns the complete packed record.
func (s *CdnaStore) Full() [CdnaSize]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reads++
	return s.cdna.Pack()
}

// Current returns the live record.
func (s *CdnaStore) Current() Cdna {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cdna
}

// Update validates next and, if acceptable, atomically replaces the live
// record, clears every cached hot slice, and publishes CDNA_UPDATED. A
// validation failure leaves the store untouched and is returned to the
// caller (§6: invalid records are rejected outright, never clamped).
func (s *CdnaStore) Update(updaterID string, next Cdna, affected map[string]struct{}) error {
	if err := next.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	oldChecksum := s.cdna.Checksum()
	s.cdna = next
	s.writes++
	s.mu.Unlock()

	s.cache.Purge()

	if affected == nil {
		affected = map[string]struct{}{
			"graph": {}, "coordinate_system": {}, "token": {}, "evolution": {},
		}
	}
	if s.bus == nil {
		return nil
	}
	packed := next.Pack()
	s.bus.Publish(Event{
		Type:               EventCdnaUpdated,
		AffectedComponents: affected,
		ChangedData:        packed[:],
		Metadata: map[string]any{
			"updater":      updaterID,
			"old_checksum": oldChecksum,
		},
	})
	return nil
}

// CdnaStoreStats is a snapshot of cumulative read/write/cache counters.
type CdnaStoreStats struct {
	Reads, Writes, CacheHits, CacheMisses uint64
	CachedSlices                         int
}

// Stats returns a snapshot of cumulative counters.
func (s *CdnaStore) Stats() CdnaStoreStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return CdnaStoreStats{
		Reads:        s.reads,
		Writes:       s.writes,
		CacheHits:    s.hits,
		CacheMisses:  s.misses,
		CachedSlices: s.cache.Len(),
	}
}
