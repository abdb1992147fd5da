package tokenspace

import (
	"math"
	"sync"
)

// gridKey is the quantized coordinate used to bucket tokens in SparseGrid.
type gridKey struct {
	x, y, z int64
}

// SparseGrid is the "sparse_grid" SpatialIndex variant (§4.3.1): a flat hash
// map keyed by the quantized coordinate (round(x,p), round(y,p), round(z,p)),
// where p is the space's decimal precision. Token positions are kept in
// canonical float space in the reverse map, so a CDNA scale change never
// invalidates an already-placed entry (§9 design note, option (a)).
type SparseGrid struct {
	mu        sync.RWMutex
	precision int
	cells     map[gridKey][]uint32
	reverse   map[uint32]Point3D
}

// NewSparseGrid constructs an empty grid quantizing to precision decimal places.
func NewSparseGrid(precision int) *SparseGrid {
	return &SparseGrid{
		precision: precision,
		cells:     make(map[gridKey][]uint32),
		reverse:   make(map[uint32]Point3D),
	}
}

func (g *SparseGrid) quantize(p Point3D) gridKey {
	scale := math.Pow(10, float64(g.precision))
	return gridKey{
		x: int64(math.Round(float64(p.X) * scale)),
		y: int64(math.Round(float64(p.Y) * scale)),
		z: int64(math.Round(float64(p.Z) * scale)),
	}
}

// Insert places tokenID at p, normalising the key to the grid's precision.
func (g *SparseGrid) Insert(p Point3D, tokenID uint32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	key := g.quantize(p)
	g.cells[key] = append(g.cells[key], tokenID)
	g.reverse[tokenID] = p
}

// Remove deletes tokenID using its last-known point from the reverse map,
// reporting whether it was present.
func (g *SparseGrid) Remove(p Point3D, tokenID uint32) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	last, ok := g.reverse[tokenID]
	if !ok {
		return false
	}
	key := g.quantize(last)
	bucket := g.cells[key]
	removed := false
	for i, id := range bucket {
		if id == tokenID {
			bucket = append(bucket[:i], bucket[i+1:]...)
			removed = true
			break
		}
	}
	if len(bucket) == 0 {
		delete(g.cells, key)
	} else {
		g.cells[key] = bucket
	}
	delete(g.reverse, tokenID)
	return removed
}

// QueryPoint returns token ids registered at exactly p (after quantization).
func (g *SparseGrid) QueryPoint(p Point3D) []uint32 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	key := g.quantize(p)
	out := make([]uint32, len(g.cells[key]))
	copy(out, g.cells[key])
	return out
}

// QueryRegion returns every token id whose canonical point lies in r.
func (g *SparseGrid) QueryRegion(r Rect) []uint32 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	var out []uint32
	for id, p := range g.reverse {
		if r.Contains(p) {
			out = append(out, id)
		}
	}
	return out
}

// QueryRadius returns every token id within radius of center.
func (g *SparseGrid) QueryRadius(center Point3D, radius float32) []uint32 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	var out []uint32
	for id, p := range g.reverse {
		if dist3(center.X, center.Y, center.Z, p.X, p.Y, p.Z) <= radius {
			out = append(out, id)
		}
	}
	return out
}

// KNearest returns the k closest tokens to p, growing the search radius per §4.3.3.
func (g *SparseGrid) KNearest(p Point3D, k int) []Neighbor {
	return knnRadiusSearch(p, k, 1<<20, func(center Point3D, radius float32) []Neighbor {
		g.mu.RLock()
		defer g.mu.RUnlock()
		var found []Neighbor
		for id, pt := range g.reverse {
			d := dist3(center.X, center.Y, center.Z, pt.X, pt.Y, pt.Z)
			if d <= radius {
				found = append(found, Neighbor{TokenID: id, Distance: d})
			}
		}
		return found
	})
}

// Density returns count/volume within radius of center.
func (g *SparseGrid) Density(center Point3D, radius float32) float32 {
	count := len(g.QueryRadius(center, radius))
	vol := sphereVolume(radius)
	if vol == 0 {
		return 0
	}
	return float32(count) / vol
}

// FieldInfluence sums strengthOf(id).strength * kernel(d/radius2) over tokens
// within radius of p; strengthOf supplies each candidate's own field radius
// and strength (looked up by the caller, typically CoordinateSystem).
func (g *SparseGrid) FieldInfluence(p Point3D, radius float32, strengthOf func(uint32) (radius2, strength float32)) float32 {
	ids := g.QueryRadius(p, radius)
	g.mu.RLock()
	defer g.mu.RUnlock()
	var total float32
	for _, id := range ids {
		pt, ok := g.reverse[id]
		if !ok {
			continue
		}
		d := dist3(p.X, p.Y, p.Z, pt.X, pt.Y, pt.Z)
		fr, fs := strengthOf(id)
		total += fs * kernel(d, fr)
	}
	return total
}

// Bounds returns the union of every registered point, or false if empty.
func (g *SparseGrid) Bounds() (Rect, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if len(g.reverse) == 0 {
		return Rect{}, false
	}
	first := true
	var r Rect
	for _, p := range g.reverse {
		pr := Rect{MinX: p.X, MinY: p.Y, MinZ: p.Z, MaxX: p.X, MaxY: p.Y, MaxZ: p.Z}
		if first {
			r = pr
			first = false
			continue
		}
		r = r.Union(pr)
	}
	return r, true
}

// Len returns the number of tokens currently registered.
func (g *SparseGrid) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.reverse)
}
