package tokenspace

import "testing"

func TestAdnaStoreGetDefault(t *testing.T) {
	store := NewAdnaStore(nil)
	if got := store.Get("missing", "fallback"); got != "fallback" {
		t.Errorf("Get() = %v, want fallback", got)
	}
}

func TestAdnaStoreUpdatePublishesInferredComponent(t *testing.T) {
	bus := NewSubscriptionBus()
	store := NewAdnaStore(bus)

	var received Event
	bus.Subscribe(&Subscription{
		SubscriberID: "graph-watcher",
		Component:    "graph",
		Callback:     func(e Event) { received = e },
	})

	store.Update("max_connections_per_node", 32, "tester", nil)

	if received.Type != EventAdnaUpdated {
		t.Fatalf("event type = %v, want EventAdnaUpdated", received.Type)
	}
	if _, ok := received.AffectedComponents["graph"]; !ok {
		t.Errorf("AffectedComponents = %v, want to include graph", received.AffectedComponents)
	}
	if got := store.Get("max_connections_per_node", nil); got != 32 {
		t.Errorf("Get() after Update() = %v, want 32", got)
	}
}

func TestAdnaStoreUpdateNoEventWhenUnchanged(t *testing.T) {
	bus := NewSubscriptionBus()
	store := NewAdnaStore(bus)

	calls := 0
	bus.Subscribe(&Subscription{
		SubscriberID: "counter",
		Component:    "evolution",
		Callback:     func(e Event) { calls++ },
	})

	store.Update("mutation_rate", 0.05, "tester", nil)
	store.Update("mutation_rate", 0.05, "tester", nil)

	if calls != 1 {
		t.Errorf("callback invoked %d times, want 1 (second Update with same value is a no-op)", calls)
	}
}

func TestGuessAffectedComponents(t *testing.T) {
	cases := map[string]string{
		"graph_decay_rate":        "graph",
		"coordinate_scale":        "coordinate_system",
		"token_weight_min":        "token",
		"evolution_mutation_rate": "evolution",
		"something_unrelated":     "unknown",
	}
	for key, want := range cases {
		got := guessAffectedComponents(key)
		if _, ok := got[want]; !ok {
			t.Errorf("guessAffectedComponents(%q) = %v, want to include %q", key, got, want)
		}
	}
}
