package tokenspace

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// EventType names a kind of configuration change broadcast on the bus.
type EventType string

const (
	EventCdnaUpdated EventType = "CDNA_UPDATED"
	EventAdnaUpdated EventType = "ADNA_UPDATED"
)

// Event describes one CDNA or ADNA change (§4.6/§7).
type Event struct {
	EventID            string
	Type               EventType
	AffectedComponents map[string]struct{}
	ChangedData        []byte
	Metadata           map[string]any
	Timestamp          time.Time
}

// Subscription is one component's registered interest in bus events (§7).
type Subscription struct {
	SubscriberID      string
	Component         string
	CdnaBlocks        map[string]struct{}
	AdnaSections      map[string]struct{}
	Callback          func(Event)
	LastNotification  time.Time
}

// interestedIn mirrors DNASubscription.is_interested_in_event: a direct
// component match always qualifies; a non-empty CdnaBlocks set is treated as
// interest in any CDNA event (the block-level detail lives in the changed
// binary slice, not the event itself); an ADNA event additionally qualifies
// if its metadata "key" contains one of the subscriber's adna sections.
func (s *Subscription) interestedIn(e Event) bool {
	if _, ok := e.AffectedComponents[s.Component]; ok {
		return true
	}
	if len(s.CdnaBlocks) > 0 && e.Type == EventCdnaUpdated {
		return true
	}
	if e.Type == EventAdnaUpdated && len(s.AdnaSections) > 0 {
		if key, ok := e.Metadata["key"].(string); ok {
			for section := range s.AdnaSections {
				if strings.Contains(strings.ToLower(key), strings.ToLower(section)) {
					return true
				}
			}
		}
	}
	return false
}

const maxEventHistory = 1000
const eventHistoryTrimTo = 500
const recentEventsWindow = time.Hour

// BusStats tracks cumulative publish/subscribe counters (§7 statistics).
type BusStats struct {
	EventsPublished   uint64
	ActiveSubscriptions int
	CachedSlices      int
}

// SubscriptionBus is the central mediator between CDNA/ADNA changes and the
// components interested in them (§7), grounded on the teacher's
// single-writer/notify-outside-lock pattern used for chart cache
// invalidation, generalized to an arbitrary event type.
type SubscriptionBus struct {
	mu      sync.RWMutex
	subs    map[string]*Subscription
	history []Event
	stats   BusStats
}

// NewSubscriptionBus returns an empty bus.
func NewSubscriptionBus() *SubscriptionBus {
	return &SubscriptionBus{subs: make(map[string]*Subscription)}
}

// Subscribe registers or replaces sub under its SubscriberID.
func (b *SubscriptionBus) Subscribe(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[sub.SubscriberID] = sub
}

// Unsubscribe removes a subscription by id, a no-op if absent.
func (b *SubscriptionBus) Unsubscribe(subscriberID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subs, subscriberID)
}

// Publish broadcasts e to every interested subscriber. EventID and Timestamp
// are filled in if zero. History drops entries older than recentEventsWindow,
// and once it exceeds maxEventHistory entries it is cut back to the newest
// eventHistoryTrimTo. Subscriber callbacks run outside the bus lock and a panicking callback is
// recovered and logged rather than propagated (§7).
func (b *SubscriptionBus) Publish(e Event) {
	if e.EventID == "" {
		e.EventID = uuid.NewString()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}

	b.mu.Lock()
	b.stats.EventsPublished++
	b.history = append(b.history, e)
	cutoff := time.Now().Add(-recentEventsWindow)
	stale := 0
	for stale < len(b.history) && b.history[stale].Timestamp.Before(cutoff) {
		stale++
	}
	b.history = b.history[stale:]
	if len(b.history) > maxEventHistory {
		b.history = append([]Event(nil), b.history[len(b.history)-eventHistoryTrimTo:]...)
	}

	var interested []*Subscription
	for _, sub := range b.subs {
		if sub.interestedIn(e) {
			interested = append(interested, sub)
		}
	}
	b.mu.Unlock()

	for _, sub := range interested {
		notify(sub, e)
	}
}

func notify(sub *Subscription, e Event) {
	defer func() {
		if r := recover(); r != nil {
			logrus.WithFields(logrus.Fields{
				"subscriber": sub.SubscriberID,
				"event_type": e.Type,
			}).Errorf("subscription bus: callback panicked: %v", r)
		}
	}()
	if sub.Callback != nil {
		sub.Callback(e)
		sub.LastNotification = e.Timestamp
	}
}

// RecentEvents returns every event published within window of now.
func (b *SubscriptionBus) RecentEvents(window time.Duration) []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()
	cutoff := time.Now().Add(-window)
	var out []Event
	for _, e := range b.history {
		if e.Timestamp.After(cutoff) {
			out = append(out, e)
		}
	}
	return out
}

// Stats returns a snapshot of publish/subscribe counters.
func (b *SubscriptionBus) Stats() BusStats {
	b.mu.RLock()
	defer b.mu.RUnlock()
	s := b.stats
	s.ActiveSubscriptions = len(b.subs)
	return s
}
