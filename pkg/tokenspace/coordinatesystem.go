package tokenspace

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// CoordinateSystemStats tracks cumulative mutation counts for introspection.
type CoordinateSystemStats struct {
	Placements uint64
	Moves      uint64
	Removes    uint64
}

// CoordinateSystem owns the set of per-space spatial indexes and the
// token→multi-coordinate registry (§4.4). It also owns the Token records
// themselves (§3.6): external callers hold only ids.
type CoordinateSystem struct {
	mu       sync.RWMutex
	indexes  [NumLevels]SpatialIndex
	configs  [NumLevels]LevelConfig
	registry map[uint32]MultiCoordinate
	tokens   map[uint32]*Token
	stats    CoordinateSystemStats
}

// NewCoordinateSystem builds a CoordinateSystem with one SpatialIndex per
// level, chosen by each LevelConfig's Kind.
func NewCoordinateSystem(configs [NumLevels]LevelConfig) *CoordinateSystem {
	cs := &CoordinateSystem{
		configs:  configs,
		registry: make(map[uint32]MultiCoordinate),
		tokens:   make(map[uint32]*Token),
	}
	for i, cfg := range configs {
		cs.indexes[i] = newSpatialIndex(cfg)
	}
	return cs
}

func newSpatialIndex(cfg LevelConfig) SpatialIndex {
	switch cfg.Kind {
	case IndexSpatialHash:
		return NewSpatialHash(cfg.CellSize)
	default:
		return NewSparseGrid(cfg.Precision)
	}
}

// Token returns the owned record for id, if placed.
func (cs *CoordinateSystem) Token(id uint32) (*Token, bool) {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	t, ok := cs.tokens[id]
	return t, ok
}

// MutateToken applies fn to the owned token record under the write lock,
// used by GraphIndex to maintain graph-derived flags (§4.5).
func (cs *CoordinateSystem) MutateToken(id uint32, fn func(*Token)) bool {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	t, ok := cs.tokens[id]
	if !ok {
		return false
	}
	fn(t)
	return true
}

// Place registers token at coords, replacing any existing record for the
// same id. On validation failure the operation is rolled back to the
// pre-call state and no index is touched (§4.4).
func (cs *CoordinateSystem) Place(token *Token, coords MultiCoordinate) error {
	for level, p := range coords {
		if int(level) < 0 || int(level) >= NumLevels {
			return &ErrOutOfRange{Field: "level", Value: float64(level)}
		}
		cfg := cs.configs[level]
		if !cfg.ValidateCoordinate(p.X) || !cfg.ValidateCoordinate(p.Y) || !cfg.ValidateCoordinate(p.Z) {
			return &ErrOutOfRange{Field: level.String(), Min: float64(cfg.Min), Max: float64(cfg.Max)}
		}
	}

	cs.mu.Lock()
	defer cs.mu.Unlock()

	if _, exists := cs.tokens[token.ID]; exists {
		cs.removeLocked(token.ID)
	}

	placed := make([]Level, 0, len(coords))
	for level, p := range coords {
		p.Level = level
		cs.indexes[level].Insert(p, token.ID)
		placed = append(placed, level)
	}

	cs.registry[token.ID] = coords.Clone()
	cs.tokens[token.ID] = token
	cs.stats.Placements++
	return nil
}

// Move is equivalent to Remove followed by Place of the current token at
// newCoords (§4.4).
func (cs *CoordinateSystem) Move(tokenID uint32, newCoords MultiCoordinate) error {
	cs.mu.Lock()
	token, ok := cs.tokens[tokenID]
	if !ok {
		cs.mu.Unlock()
		return &ErrUnknownToken{TokenID: tokenID}
	}
	cs.mu.Unlock()

	if err := cs.Place(token, newCoords); err != nil {
		return err
	}
	cs.mu.Lock()
	cs.stats.Moves++
	cs.mu.Unlock()
	return nil
}

// Remove deletes tokenID from every space it occupied and from the registry,
// reporting whether it was present.
func (cs *CoordinateSystem) Remove(tokenID uint32) bool {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return cs.removeLocked(tokenID)
}

func (cs *CoordinateSystem) removeLocked(tokenID uint32) bool {
	coords, ok := cs.registry[tokenID]
	if !ok {
		return false
	}
	for level, p := range coords {
		cs.indexes[level].Remove(p, tokenID)
	}
	delete(cs.registry, tokenID)
	delete(cs.tokens, tokenID)
	cs.stats.Removes++
	return true
}

// Get returns the union, deduplicated, of QueryPoint across every level
// present in coords (§4.4).
func (cs *CoordinateSystem) Get(coords map[Level]Point3D) []uint32 {
	seen := make(map[uint32]struct{})
	var out []uint32
	for level, p := range coords {
		for _, id := range cs.indexes[level].QueryPoint(p) {
			if _, dup := seen[id]; !dup {
				seen[id] = struct{}{}
				out = append(out, id)
			}
		}
	}
	return out
}

// FindInRegion delegates to the given level's index.
func (cs *CoordinateSystem) FindInRegion(r Rect, level Level) []uint32 {
	return cs.indexes[level].QueryRegion(r)
}

// FindInRadius delegates to the given level's index.
func (cs *CoordinateSystem) FindInRadius(center Point3D, level Level, radius float32) []uint32 {
	return cs.indexes[level].QueryRadius(center, radius)
}

// KNearest delegates to the given level's index.
func (cs *CoordinateSystem) KNearest(p Point3D, level Level, k int) []Neighbor {
	return cs.indexes[level].KNearest(p, k)
}

// Density delegates to the given level's index.
func (cs *CoordinateSystem) Density(center Point3D, level Level, radius float32) float32 {
	return cs.indexes[level].Density(center, radius)
}

// FieldInfluence sums each nearby token's own field_strength/field_radius
// kernel contribution, looking the values up from the owned token record.
func (cs *CoordinateSystem) FieldInfluence(center Point3D, level Level, radius float32) float32 {
	strengthOf := func(id uint32) (float32, float32) {
		cs.mu.RLock()
		defer cs.mu.RUnlock()
		t, ok := cs.tokens[id]
		if !ok {
			return 0, 0
		}
		return t.DecodeFieldRadius(), t.DecodeFieldStrength()
	}
	return cs.indexes[level].FieldInfluence(center, radius, strengthOf)
}

// FindAcrossLevels intersects, for each level present in query, the set of
// token ids within tol of that level's point (§4.4).
func (cs *CoordinateSystem) FindAcrossLevels(query map[Level]Point3D, tol float32) []uint32 {
	if len(query) == 0 {
		return nil
	}
	var levels []Level
	for level := range query {
		levels = append(levels, level)
	}

	counts := make(map[uint32]int)
	for _, level := range levels {
		for _, id := range cs.indexes[level].QueryRadius(query[level], tol) {
			counts[id]++
		}
	}

	var out []uint32
	for id, n := range counts {
		if n == len(levels) {
			out = append(out, id)
		}
	}
	return out
}

// Project returns coordinates in targetLevel for each of tokenIDs, omitting
// any token absent from that level (§4.4).
func (cs *CoordinateSystem) Project(tokenIDs []uint32, targetLevel Level) []Point3D {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	var out []Point3D
	for _, id := range tokenIDs {
		coords, ok := cs.registry[id]
		if !ok {
			continue
		}
		if p, ok := coords[targetLevel]; ok {
			out = append(out, p)
		}
	}
	return out
}

// ApplyScales updates every level's published scale from a fresh CDNA
// GRID_PHYSICS hot slice (§4.4 CDNA coupling). Because the spatial indexes
// store canonical float positions rather than scale-dependent quantized
// ones, no re-index pass is required - the new scale only changes what
// Scales() returns, which callers pass to Token.SetCoordinates and
// Token.GetCoordinates to encode and decode int16 coordinates.
func (cs *CoordinateSystem) ApplyScales(scales [NumLevels]float32) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	changed := false
	for i := range cs.configs {
		if cs.configs[i].Scale != scales[i] {
			cs.configs[i].Scale = scales[i]
			changed = true
		}
	}
	if changed {
		logrus.Info("coordinate_system: CDNA scales updated, spatial indexes unaffected (canonical float storage)")
	}
}

// Scales returns the currently configured per-level scale factors.
func (cs *CoordinateSystem) Scales() [NumLevels]float32 {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	var out [NumLevels]float32
	for i, c := range cs.configs {
		out[i] = c.Scale
	}
	return out
}

// Stats returns a snapshot of cumulative mutation counters.
func (cs *CoordinateSystem) Stats() CoordinateSystemStats {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return cs.stats
}

// Len returns the number of tokens currently registered in any space.
func (cs *CoordinateSystem) Len() int {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return len(cs.registry)
}
