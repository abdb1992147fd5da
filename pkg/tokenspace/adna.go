package tokenspace

import (
	"strings"
	"sync"
)

// AdnaStore holds the keyed, loosely-typed runtime parameters that sit
// alongside the fixed CDNA record (§6 ADNA), grounded on the original
// source's guardian update_adna/_guess_affected_components pair.
type AdnaStore struct {
	mu     sync.RWMutex
	values map[string]any
	bus    *SubscriptionBus
}

// NewAdnaStore returns an empty store that publishes ADNA_UPDATED events on bus.
func NewAdnaStore(bus *SubscriptionBus) *AdnaStore {
	return &AdnaStore{values: make(map[string]any), bus: bus}
}

// Get returns the current value for key, or def if unset.
func (a *AdnaStore) Get(key string, def any) any {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if v, ok := a.values[key]; ok {
		return v
	}
	return def
}

// Update sets key to value and, if the value actually changed, publishes an
// ADNA_UPDATED event. When affected is nil the set of interested components
// is inferred from keywords in the key (§6).
func (a *AdnaStore) Update(key string, value any, updaterID string, affected map[string]struct{}) {
	a.mu.Lock()
	old, existed := a.values[key]
	a.values[key] = value
	a.mu.Unlock()

	if existed && valuesEqual(old, value) {
		return
	}
	if affected == nil {
		affected = guessAffectedComponents(key)
	}
	if a.bus == nil {
		return
	}
	a.bus.Publish(Event{
		Type:               EventAdnaUpdated,
		AffectedComponents: affected,
		ChangedData:        []byte(key),
		Metadata: map[string]any{
			"key":       key,
			"old_value": old,
			"new_value": value,
			"updater":   updaterID,
		},
	})
}

func valuesEqual(a, b any) (eq bool) {
	defer func() {
		if recover() != nil {
			eq = false
		}
	}()
	return a == b
}

// guessAffectedComponents maps a dotted/snake ADNA key to the set of
// components likely to care about it, by keyword, matching the original
// source's guardian._guess_affected_components (§6).
func guessAffectedComponents(key string) map[string]struct{} {
	lower := strings.ToLower(key)
	out := make(map[string]struct{})

	addIfAny := func(component string, words ...string) {
		for _, w := range words {
			if strings.Contains(lower, w) {
				out[component] = struct{}{}
				return
			}
		}
	}

	addIfAny("graph", "graph", "connection", "edge", "node")
	addIfAny("coordinate_system", "coordinate", "spatial", "grid")
	addIfAny("token", "token", "weight", "flag")
	addIfAny("evolution", "evolution", "mutation", "fitness")

	if len(out) == 0 {
		out["unknown"] = struct{}{}
	}
	return out
}
