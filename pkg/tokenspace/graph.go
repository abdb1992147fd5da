package tokenspace

import (
	"math"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	lru "github.com/hashicorp/golang-lru/v2"
)

// EdgeKind classifies the semantic relationship an edge represents (§3.4):
// a closed enum, never extended at runtime.
type EdgeKind uint8

const (
	EdgeAssociation EdgeKind = iota
	EdgeInfluence
	EdgeInheritance
	EdgeSimilar
	EdgeHypernym
	EdgeProximity
	EdgeCausality
	EdgeSequence
	EdgeSpatialProximity
	EdgeTemporalProximity
)

// Directionality controls how an edge contributes to each endpoint's
// directed in/out degree (§3.4). Connectivity (Neighbors, Path) always
// treats the underlying adjacency as symmetric regardless of this value;
// only Degree's in/out breakdown is affected.
type Directionality uint8

const (
	DirDirected Directionality = iota
	DirUndirected
	DirBidirectional
)

// Persistence classifies how long an edge is expected to live (§3.4); the
// graph index itself never expires an edge based on this value - it is
// advisory metadata for callers (e.g. an eviction policy layered on top).
type Persistence uint8

const (
	PersistenceTransient Persistence = iota
	PersistencePersistent
	PersistencePermanent
)

// EdgeMetadata carries everything the force model, degree accounting, and
// cache layers need for one connection between two tokens (§3.4).
type EdgeMetadata struct {
	From, To uint32 // the pair as given to Connect, used only to resolve directed degree

	Kind              EdgeKind
	Weight            float32
	Confidence        float32
	Directionality    Directionality
	Persistence       Persistence
	PreferredDistance float32
	PullStrength      float32
	Rigidity          float32
	CreatedAt         time.Time
	LastUpdated       time.Time
	History           []WeightSample // bounded (ts, weight) history, updated on reconnect
}

// WeightSample is one entry of an edge's bounded weight history.
type WeightSample struct {
	At     time.Time
	Weight float32
}

const maxEdgeHistory = 64

func (m *EdgeMetadata) recordWeightChange(at time.Time, weight float32) {
	m.History = append(m.History, WeightSample{At: at, Weight: weight})
	if len(m.History) > maxEdgeHistory {
		m.History = m.History[len(m.History)-maxEdgeHistory:]
	}
}

// Force computes the spring-like force magnitude at the given separation
// distance, per §4.5: a function of (distance-preferred)/preferred scaled by
// pull_strength*rigidity, continuous and odd-symmetric about
// preferred_distance, clamped to [-1, 1]. Positive means attraction (pull
// the pair closer); negative means repulsion.
func (m EdgeMetadata) Force(distance float32) float32 {
	if m.PreferredDistance == 0 {
		return 0
	}
	normalized := (distance - m.PreferredDistance) / m.PreferredDistance
	force := m.PullStrength * m.Rigidity * normalized
	return float32(math.Max(-1, math.Min(1, float64(force))))
}

type edgeKey struct{ a, b uint32 }

func orderedKey(a, b uint32) edgeKey {
	if a <= b {
		return edgeKey{a, b}
	}
	return edgeKey{b, a}
}

// Degree is the {in, out, total} breakdown returned for a token (§4.5).
// Total counts distinct neighbors regardless of direction; undirected and
// bidirectional edges contribute to both In and Out.
type Degree struct {
	In, Out, Total int
}

// GraphIndex is the token adjacency graph (§4.5): one symmetric connectivity
// map used for neighbor/path queries (an edge's Directionality only affects
// the in/out breakdown reported by Degree, matching the literal example in
// §8.4 where three directed out-edges from A still let path(B, C) traverse
// through A), plus bounded LRU caches for path and distance queries.
type GraphIndex struct {
	mu sync.RWMutex

	edges      map[edgeKey]*EdgeMetadata
	adjacency  map[uint32]map[uint32]struct{}
	nodes      map[uint32]struct{} // added via Add, independent of having any edge
	timestamps map[uint32]uint32   // token_id -> last known Token.Timestamp, for find_temporal_neighbors

	maxDegree int

	pathCache     *lru.Cache[uint64, []uint32]
	distanceCache *lru.Cache[uint64, float32]

	coords *CoordinateSystem

	autoConnect           bool
	spatialConnectRadius  float32
	temporalConnectWindow uint32
}

const defaultCacheSize = 10000

// NewGraphIndex builds an empty graph. maxDegree is the per-node connection
// cap (§4.5 max_connections_per_node); coords may be nil if flag maintenance
// on Token records and spatial auto-connect are not needed (e.g. in isolated
// tests).
func NewGraphIndex(maxDegree int, coords *CoordinateSystem) *GraphIndex {
	pathCache, _ := lru.New[uint64, []uint32](defaultCacheSize)
	distCache, _ := lru.New[uint64, float32](defaultCacheSize)
	return &GraphIndex{
		edges:         make(map[edgeKey]*EdgeMetadata),
		adjacency:     make(map[uint32]map[uint32]struct{}),
		nodes:         make(map[uint32]struct{}),
		timestamps:    make(map[uint32]uint32),
		maxDegree:     maxDegree,
		pathCache:     pathCache,
		distanceCache: distCache,
		coords:        coords,
	}
}

// EnableAutoConnect turns on the opportunistic auto-connect policy (§4.5):
// every subsequent Add(id) also connects id to existing nodes within radius
// in any coordinate level, and to nodes whose last known timestamp falls
// within window seconds, subject to the degree cap. Per §9, auto-connect is
// best-effort and not part of the transactional contract of Add.
func (g *GraphIndex) EnableAutoConnect(radius float32, window uint32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.autoConnect = true
	g.spatialConnectRadius = radius
	g.temporalConnectWindow = window
}

// Add inserts id into the adjacency and temporal index, idempotently. If
// auto-connect is enabled and a CoordinateSystem is attached, it also
// attempts opportunistic connections to spatially and temporally nearby
// nodes (§4.5); failures to connect (e.g. DegreeCap) are ignored silently,
// since auto-connect is opportunistic, not a contract (§9).
func (g *GraphIndex) Add(id uint32, timestamp uint32) {
	g.mu.Lock()
	if _, exists := g.nodes[id]; exists {
		g.timestamps[id] = timestamp
		g.mu.Unlock()
		return
	}
	g.nodes[id] = struct{}{}
	if g.adjacency[id] == nil {
		g.adjacency[id] = make(map[uint32]struct{})
	}
	g.timestamps[id] = timestamp
	autoConnect := g.autoConnect
	radius := g.spatialConnectRadius
	window := g.temporalConnectWindow
	g.mu.Unlock()

	if !autoConnect || g.coords == nil {
		return
	}
	for level := Level(0); level < NumLevels; level++ {
		for _, other := range g.FindSpatialNeighbors(id, level, radius) {
			_ = g.Connect(id, other, EdgeMetadata{Kind: EdgeSpatialProximity, Directionality: DirUndirected, Weight: 1})
		}
	}
	for _, other := range g.FindTemporalNeighbors(id, window) {
		_ = g.Connect(id, other, EdgeMetadata{Kind: EdgeTemporalProximity, Directionality: DirUndirected, Weight: 1})
	}
}

// Remove deletes every edge touching id, then the node itself (§4.5).
func (g *GraphIndex) Remove(id uint32) {
	g.mu.RLock()
	neighbors := make([]uint32, 0, len(g.adjacency[id]))
	for n := range g.adjacency[id] {
		neighbors = append(neighbors, n)
	}
	g.mu.RUnlock()

	for _, n := range neighbors {
		g.Disconnect(id, n)
	}

	g.mu.Lock()
	delete(g.nodes, id)
	delete(g.adjacency, id)
	delete(g.timestamps, id)
	g.mu.Unlock()
}

func (g *GraphIndex) degreeLocked(id uint32) int {
	return len(g.adjacency[id])
}

// Degree returns the {in, out, total} breakdown for id (§4.5).
func (g *GraphIndex) Degree(id uint32) Degree {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var d Degree
	for n := range g.adjacency[id] {
		meta := g.edges[orderedKey(id, n)]
		if meta == nil {
			continue
		}
		switch meta.Directionality {
		case DirDirected:
			if meta.From == id {
				d.Out++
			} else {
				d.In++
			}
		default: // undirected, bidirectional
			d.Out++
			d.In++
		}
	}
	d.Total = g.degreeLocked(id)
	return d
}

// Connect creates or replaces the edge between a and b (§4.5). A self-loop or
// a degree-cap violation on either endpoint is rejected without mutating
// state. Connecting clears cached paths/distances that might involve either
// endpoint and updates both tokens' hub/leaf/root flags.
func (g *GraphIndex) Connect(a, b uint32, meta EdgeMetadata) error {
	if a == b {
		return &ErrSelfLoop{TokenID: a}
	}

	g.mu.Lock()
	key := orderedKey(a, b)
	_, exists := g.edges[key]
	if !exists {
		if g.maxDegree > 0 && g.degreeLocked(a) >= g.maxDegree {
			g.mu.Unlock()
			return &ErrDegreeCap{TokenID: a, Degree: g.degreeLocked(a), Cap: g.maxDegree}
		}
		if g.maxDegree > 0 && g.degreeLocked(b) >= g.maxDegree {
			g.mu.Unlock()
			return &ErrDegreeCap{TokenID: b, Degree: g.degreeLocked(b), Cap: g.maxDegree}
		}
	}

	now := time.Now()
	m := meta
	m.From, m.To = a, b
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now
	}
	m.LastUpdated = now
	if prev, ok := g.edges[key]; ok {
		m.History = prev.History
	}
	m.recordWeightChange(now, m.Weight)
	g.edges[key] = &m

	if g.adjacency[a] == nil {
		g.adjacency[a] = make(map[uint32]struct{})
	}
	if g.adjacency[b] == nil {
		g.adjacency[b] = make(map[uint32]struct{})
	}
	g.adjacency[a][b] = struct{}{}
	g.adjacency[b][a] = struct{}{}
	g.nodes[a] = struct{}{}
	g.nodes[b] = struct{}{}

	g.pathCache.Purge()
	g.distanceCache.Purge()
	g.mu.Unlock()

	g.maintainFlags(a)
	g.maintainFlags(b)
	return nil
}

// Disconnect removes the edge between a and b, reporting whether it existed.
func (g *GraphIndex) Disconnect(a, b uint32) bool {
	g.mu.Lock()
	key := orderedKey(a, b)
	if _, ok := g.edges[key]; !ok {
		g.mu.Unlock()
		return false
	}
	delete(g.edges, key)
	delete(g.adjacency[a], b)
	delete(g.adjacency[b], a)
	g.pathCache.Purge()
	g.distanceCache.Purge()
	g.mu.Unlock()

	g.maintainFlags(a)
	g.maintainFlags(b)
	return true
}

const hubDegreeThreshold = 11 // degree > 10 sets hub (§4.5, §8 boundary behaviours)

// maintainFlags updates FlagHub/FlagLeaf/FlagRoot/FlagActiveGraph on the
// owned Token record from id's current degree breakdown (§4.5): a token
// with no edges carries none of these flags; any edge sets ActiveGraph;
// exactly one neighbor also sets Leaf; a pure source (only directed
// outgoing edges, no incoming) sets Root; total degree at or above
// hubDegreeThreshold sets Hub.
func (g *GraphIndex) maintainFlags(id uint32) {
	if g.coords == nil {
		return
	}
	d := g.Degree(id)
	g.coords.MutateToken(id, func(t *Token) {
		t.ClearFlag(FlagActiveGraph | FlagHub | FlagLeaf | FlagRoot)
		if d.Total == 0 {
			return
		}
		t.SetFlag(FlagActiveGraph)
		if d.Total == 1 {
			t.SetFlag(FlagLeaf)
		}
		if d.In == 0 && d.Out > 0 {
			t.SetFlag(FlagRoot)
		}
		if d.Total >= hubDegreeThreshold {
			t.SetFlag(FlagHub)
		}
	})
}

// Neighbors returns the distinct ids directly connected to id, in either
// direction.
func (g *GraphIndex) Neighbors(id uint32) []uint32 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]uint32, 0, len(g.adjacency[id]))
	for n := range g.adjacency[id] {
		out = append(out, n)
	}
	return out
}

// Edge returns the metadata for the edge between a and b, if any.
func (g *GraphIndex) Edge(a, b uint32) (EdgeMetadata, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	m, ok := g.edges[orderedKey(a, b)]
	if !ok {
		return EdgeMetadata{}, false
	}
	return *m, true
}

func pathCacheKey(from, to uint32, maxDepth int) uint64 {
	h := xxhash.New()
	var buf [12]byte
	buf[0], buf[1], buf[2], buf[3] = byte(from), byte(from>>8), byte(from>>16), byte(from>>24)
	buf[4], buf[5], buf[6], buf[7] = byte(to), byte(to>>8), byte(to>>16), byte(to>>24)
	md := uint32(maxDepth)
	buf[8], buf[9], buf[10], buf[11] = byte(md), byte(md>>8), byte(md>>16), byte(md>>24)
	h.Write(buf[:])
	return h.Sum64()
}

// Path finds a shortest path (by edge count) from `from` to `to`, bounded by
// maxDepth hops, via breadth-first search over the symmetric adjacency
// (§4.5). Returns (nil, false) if no path within maxDepth exists. Results
// are cached by (from, to, maxDepth); the cache is cleared on any adjacency
// change touching either endpoint.
func (g *GraphIndex) Path(from, to uint32, maxDepth int) ([]uint32, bool) {
	key := pathCacheKey(from, to, maxDepth)
	if cached, ok := g.pathCache.Get(key); ok {
		return cached, cached != nil
	}

	g.mu.RLock()
	path, found := bfsPath(g.adjacency, from, to, maxDepth)
	g.mu.RUnlock()

	if found {
		g.pathCache.Add(key, path)
	} else {
		g.pathCache.Add(key, nil)
	}
	return path, found
}

func bfsPath(adjacency map[uint32]map[uint32]struct{}, from, to uint32, maxDepth int) ([]uint32, bool) {
	if from == to {
		return []uint32{from}, true
	}
	visited := map[uint32]bool{from: true}
	prev := map[uint32]uint32{}
	queue := []uint32{from}
	depth := map[uint32]int{from: 0}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if depth[cur] >= maxDepth {
			continue
		}
		for n := range adjacency[cur] {
			if visited[n] {
				continue
			}
			visited[n] = true
			prev[n] = cur
			depth[n] = depth[cur] + 1
			if n == to {
				return reconstructPath(prev, from, to), true
			}
			queue = append(queue, n)
		}
	}
	return nil, false
}

func reconstructPath(prev map[uint32]uint32, from, to uint32) []uint32 {
	path := []uint32{to}
	for path[len(path)-1] != from {
		path = append(path, prev[path[len(path)-1]])
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

func distanceCacheKey(a, b uint32, level Level) uint64 {
	h := xxhash.New()
	var buf [9]byte
	buf[0], buf[1], buf[2], buf[3] = byte(a), byte(a>>8), byte(a>>16), byte(a>>24)
	buf[4], buf[5], buf[6], buf[7] = byte(b), byte(b>>8), byte(b>>16), byte(b>>24)
	buf[8] = byte(level)
	h.Write(buf[:])
	return h.Sum64()
}

// SpatialDistance returns the Euclidean distance between a and b at level,
// serving from the bounded distance cache when present (§5). Returns false
// if either token is absent from level.
func (g *GraphIndex) SpatialDistance(a, b uint32, level Level) (float32, bool) {
	if g.coords == nil {
		return 0, false
	}
	key := distanceCacheKey(a, b, level)
	if d, ok := g.distanceCache.Get(key); ok {
		return d, true
	}
	points := g.coords.Project([]uint32{a, b}, level)
	if len(points) != 2 {
		return 0, false
	}
	d := dist3(points[0].X, points[0].Y, points[0].Z, points[1].X, points[1].Y, points[1].Z)
	g.distanceCache.Add(key, d)
	return d, true
}

// InvalidateDistanceCache clears every cached distance, used by callers
// after a coordinate change to either endpoint (§5: evicted on coordinate
// change of either endpoint - a full purge is a conservative but correct
// implementation of that eviction rule).
func (g *GraphIndex) InvalidateDistanceCache() {
	g.distanceCache.Purge()
}

// FindSpatialNeighbors is a thin wrapper consulting the attached
// CoordinateSystem for tokens within radius of id's own position at level
// (§4.5).
func (g *GraphIndex) FindSpatialNeighbors(id uint32, level Level, radius float32) []uint32 {
	if g.coords == nil {
		return nil
	}
	points := g.coords.Project([]uint32{id}, level)
	if len(points) != 1 {
		return nil
	}
	var out []uint32
	for _, n := range g.coords.FindInRadius(points[0], level, radius) {
		if n != id {
			out = append(out, n)
		}
	}
	return out
}

// FindTemporalNeighbors returns ids added via Add whose last known timestamp
// falls within window seconds of id's own (§4.5).
func (g *GraphIndex) FindTemporalNeighbors(id uint32, window uint32) []uint32 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	ts, ok := g.timestamps[id]
	if !ok {
		return nil
	}
	var out []uint32
	for other, ots := range g.timestamps {
		if other == id {
			continue
		}
		var delta uint32
		if ots > ts {
			delta = ots - ts
		} else {
			delta = ts - ots
		}
		if delta <= window {
			out = append(out, other)
		}
	}
	return out
}

// Len returns the number of distinct edges currently stored.
func (g *GraphIndex) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.edges)
}
