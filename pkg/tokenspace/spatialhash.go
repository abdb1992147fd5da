package tokenspace

import (
	"sync"

	"github.com/dhconnelly/rtreego"
)

// rtreeEntry wraps a token's point for storage in the R-tree. Bounds() pads a
// degenerate (zero-volume) point to a small cube, mirroring the epsilon trick
// used for point features in the teacher's chart spatial index.
type rtreeEntry struct {
	tokenID uint32
	point   Point3D
}

const hashEpsilon = 1e-4

func (e *rtreeEntry) Bounds() rtreego.Rect {
	p := rtreego.Point{float64(e.point.X), float64(e.point.Y), float64(e.point.Z)}
	lengths := []float64{hashEpsilon, hashEpsilon, hashEpsilon}
	rect, _ := rtreego.NewRect(p, lengths)
	return rect
}

// SpatialHash is the "spatial_hash" SpatialIndex variant (§4.3.2), backed by
// an R-tree instead of literal integer cell buckets: the R-tree gives the
// same discretised-region query semantics (rectangle and radius queries
// filtered by a bounding volume) with O(log n) lookups, and - because it
// indexes real-valued rectangles rather than quantized cells - never needs
// re-quantization when a CDNA scale changes (§9 design note, option (a)).
type SpatialHash struct {
	mu      sync.RWMutex
	cellSize float64
	tree    *rtreego.Rtree
	entries map[uint32]*rtreeEntry
}

// NewSpatialHash constructs an empty index. cellSize is stored but does not
// affect any query: the R-tree indexes real-valued points, and QueryRadius
// searches a cube of side 2*radius around the center.
func NewSpatialHash(cellSize float64) *SpatialHash {
	if cellSize <= 0 {
		cellSize = 1
	}
	return &SpatialHash{
		cellSize: cellSize,
		tree:     rtreego.NewTree(3, 8, 24),
		entries:  make(map[uint32]*rtreeEntry),
	}
}

// Insert places tokenID at p, replacing any prior entry for the same id.
func (h *SpatialHash) Insert(p Point3D, tokenID uint32) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if old, ok := h.entries[tokenID]; ok {
		h.tree.Delete(old)
	}
	e := &rtreeEntry{tokenID: tokenID, point: p}
	h.tree.Insert(e)
	h.entries[tokenID] = e
}

// Remove deletes tokenID, reporting whether it was present.
func (h *SpatialHash) Remove(p Point3D, tokenID uint32) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	e, ok := h.entries[tokenID]
	if !ok {
		return false
	}
	h.tree.Delete(e)
	delete(h.entries, tokenID)
	return true
}

// QueryPoint returns token ids registered at exactly p.
func (h *SpatialHash) QueryPoint(p Point3D) []uint32 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	var out []uint32
	for id, e := range h.entries {
		if e.point.X == p.X && e.point.Y == p.Y && e.point.Z == p.Z {
			out = append(out, id)
		}
	}
	return out
}

func rectToRtree(r Rect) rtreego.Rect {
	point := rtreego.Point{float64(r.MinX), float64(r.MinY), float64(r.MinZ)}
	lengths := []float64{
		float64(r.MaxX-r.MinX) + hashEpsilon,
		float64(r.MaxY-r.MinY) + hashEpsilon,
		float64(r.MaxZ-r.MinZ) + hashEpsilon,
	}
	rect, _ := rtreego.NewRect(point, lengths)
	return rect
}

// QueryRegion returns token ids intersecting r.
func (h *SpatialHash) QueryRegion(r Rect) []uint32 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	spatials := h.tree.SearchIntersect(rectToRtree(r))
	out := make([]uint32, 0, len(spatials))
	for _, s := range spatials {
		out = append(out, s.(*rtreeEntry).tokenID)
	}
	return out
}

// QueryRadius searches the bounding cube of side 2*radius around center, then
// filters by true Euclidean distance (§4.3.2).
func (h *SpatialHash) QueryRadius(center Point3D, radius float32) []uint32 {
	cube := Rect{
		MinX: center.X - radius, MinY: center.Y - radius, MinZ: center.Z - radius,
		MaxX: center.X + radius, MaxY: center.Y + radius, MaxZ: center.Z + radius,
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	spatials := h.tree.SearchIntersect(rectToRtree(cube))
	out := make([]uint32, 0, len(spatials))
	for _, s := range spatials {
		e := s.(*rtreeEntry)
		if dist3(center.X, center.Y, center.Z, e.point.X, e.point.Y, e.point.Z) <= radius {
			out = append(out, e.tokenID)
		}
	}
	return out
}

// KNearest returns the k closest tokens to p, growing the search radius per §4.3.3.
func (h *SpatialHash) KNearest(p Point3D, k int) []Neighbor {
	return knnRadiusSearch(p, k, 1<<20, func(center Point3D, radius float32) []Neighbor {
		ids := h.QueryRadius(center, radius)
		h.mu.RLock()
		defer h.mu.RUnlock()
		found := make([]Neighbor, 0, len(ids))
		for _, id := range ids {
			e, ok := h.entries[id]
			if !ok {
				continue
			}
			found = append(found, Neighbor{TokenID: id, Distance: dist3(center.X, center.Y, center.Z, e.point.X, e.point.Y, e.point.Z)})
		}
		return found
	})
}

// Density returns count/volume within radius of center.
func (h *SpatialHash) Density(center Point3D, radius float32) float32 {
	count := len(h.QueryRadius(center, radius))
	vol := sphereVolume(radius)
	if vol == 0 {
		return 0
	}
	return float32(count) / vol
}

// FieldInfluence sums strengthOf(id).strength * kernel(d, radius2) over
// tokens within radius of p.
func (h *SpatialHash) FieldInfluence(p Point3D, radius float32, strengthOf func(uint32) (radius2, strength float32)) float32 {
	ids := h.QueryRadius(p, radius)
	h.mu.RLock()
	defer h.mu.RUnlock()
	var total float32
	for _, id := range ids {
		e, ok := h.entries[id]
		if !ok {
			continue
		}
		d := dist3(p.X, p.Y, p.Z, e.point.X, e.point.Y, e.point.Z)
		fr, fs := strengthOf(id)
		total += fs * kernel(d, fr)
	}
	return total
}

// Bounds returns the union of every registered point, or false if empty.
func (h *SpatialHash) Bounds() (Rect, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if len(h.entries) == 0 {
		return Rect{}, false
	}
	first := true
	var r Rect
	for _, e := range h.entries {
		p := e.point
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
func (h *SpatialHash) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.entries)
}
