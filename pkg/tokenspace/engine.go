package tokenspace

import (
	"github.com/sirupsen/logrus"
)

// EngineOptions configures a new Engine.
type EngineOptions struct {
	// Cdna seeds the live configuration record. Zero value uses DefaultCdna().
	Cdna *Cdna

	// MaxDegree caps the number of distinct neighbors any token may have in
	// the graph index. Zero means unlimited.
	MaxDegree int

	// Logger receives structured diagnostics. Defaults to logrus.StandardLogger().
	Logger *logrus.Logger
}

// DefaultEngineOptions returns engine options with defaults.
func DefaultEngineOptions() EngineOptions {
	return EngineOptions{
		MaxDegree: 64,
	}
}

// Engine is the single entry point wiring the coordinate system, graph
// index, CDNA/ADNA stores and subscription bus together (grounded on the
// teacher's manager, which composed a catalog, loader and cache behind one
// facade the same way).
type Engine struct {
	bus    *SubscriptionBus
	cdna   *CdnaStore
	adna   *AdnaStore
	coords *CoordinateSystem
	graph  *GraphIndex
	log    *logrus.Logger
}

// NewEngine builds a fully wired Engine: the coordinate system subscribes to
// CDNA_UPDATED so that GRID_PHYSICS scale changes propagate automatically.
func NewEngine(opts EngineOptions) *Engine {
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	initial := DefaultCdna()
	if opts.Cdna != nil {
		initial = *opts.Cdna
	}

	bus := NewSubscriptionBus()
	cdnaStore := NewCdnaStore(initial, bus)
	adnaStore := NewAdnaStore(bus)
	coords := NewCoordinateSystem(levelConfigsFromCdna(initial))
	graph := NewGraphIndex(opts.MaxDegree, coords)

	e := &Engine{bus: bus, cdna: cdnaStore, adna: adnaStore, coords: coords, graph: graph, log: logger}

	bus.Subscribe(&Subscription{
		SubscriberID: "coordinate_system",
		Component:    "coordinate_system",
		Callback:     e.onCdnaUpdated,
	})

	return e
}

func levelConfigsFromCdna(c Cdna) [NumLevels]LevelConfig {
	configs := DefaultLevelConfigs()
	for i, s := range c.GridPhysics.Scales {
		configs[i].Scale = s
	}
	return configs
}

func (e *Engine) onCdnaUpdated(ev Event) {
	if ev.Type != EventCdnaUpdated {
		return
	}
	current := e.cdna.Current()
	e.coords.ApplyScales(current.GridPhysics.Scales)
	e.log.WithField("event_id", ev.EventID).Debug("engine: coordinate system rescaled from CDNA update")
}

// Coordinates returns the owned coordinate system, for direct use by callers
// that need region/radius/k-NN queries.
func (e *Engine) Coordinates() *CoordinateSystem { return e.coords }

// Graph returns the owned graph index.
func (e *Engine) Graph() *GraphIndex { return e.graph }

// Cdna returns the owned CDNA store.
func (e *Engine) Cdna() *CdnaStore { return e.cdna }

// Adna returns the owned ADNA store.
func (e *Engine) Adna() *AdnaStore { return e.adna }

// Bus returns the owned subscription bus, for registering additional
// component subscriptions.
func (e *Engine) Bus() *SubscriptionBus { return e.bus }

// PlaceToken registers token at coords via the coordinate system.
func (e *Engine) PlaceToken(token *Token, coords MultiCoordinate) error {
	return e.coords.Place(token, coords)
}

// RemoveToken deletes a token from every space and from the graph index -
// edges, adjacency, and the temporal index entry alike.
func (e *Engine) RemoveToken(tokenID uint32) bool {
	e.graph.Remove(tokenID)
	return e.coords.Remove(tokenID)
}

// Connect creates a graph edge between two placed tokens.
func (e *Engine) Connect(a, b uint32, meta EdgeMetadata) error {
	if _, ok := e.coords.Token(a); !ok {
		return &ErrUnknownToken{TokenID: a}
	}
	if _, ok := e.coords.Token(b); !ok {
		return &ErrUnknownToken{TokenID: b}
	}
	return e.graph.Connect(a, b, meta)
}

// EngineStats aggregates the stats exposed by each owned subsystem.
type EngineStats struct {
	Coordinates CoordinateSystemStats
	Cdna        CdnaStoreStats
	Bus         BusStats
	GraphEdges  int
	Tokens      int
}

// Stats returns a snapshot across every owned subsystem.
func (e *Engine) Stats() EngineStats {
	return EngineStats{
		Coordinates: e.coords.Stats(),
		Cdna:        e.cdna.Stats(),
		Bus:         e.bus.Stats(),
		GraphEdges:  e.graph.Len(),
		Tokens:      e.coords.Len(),
	}
}
