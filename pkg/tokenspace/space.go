package tokenspace

import "fmt"

// Level identifies one of the eight coordinate spaces.
type Level int

// The eight coordinate spaces (§3.2). Semantic labels follow the source
// system's naming; the engine itself only cares about the numeric index.
const (
	LPhysical Level = iota // L1
	LSensory                // L2
	LMotor                  // L3
	LEmotional              // L4
	LCognitive              // L5
	LSocial                 // L6
	LTemporal               // L7 - Z axis uses a distinct scale, see SetCoordinates
	LAbstract               // L8
)

func (l Level) String() string {
	names := [NumLevels]string{
		"L1_PHYSICAL", "L2_SENSORY", "L3_MOTOR", "L4_EMOTIONAL",
		"L5_COGNITIVE", "L6_SOCIAL", "L7_TEMPORAL", "L8_ABSTRACT",
	}
	if l < 0 || int(l) >= NumLevels {
		return fmt.Sprintf("L?(%d)", int(l))
	}
	return names[l]
}

// IndexKind selects which SpatialIndex implementation backs a level.
type IndexKind uint8

const (
	IndexSparseGrid IndexKind = iota
	IndexSpatialHash
)

// LevelConfig carries the immutable-per-call-site parameters for one
// coordinate space (§4.2). Scales are published via CDNA and may change at
// runtime; Precision and Kind are index-construction parameters.
type LevelConfig struct {
	Min, Max  float32
	Precision int // decimal places used by the sparse-grid quantizer
	Scale     float32
	Kind      IndexKind
	CellSize  float64 // cell edge length used by the spatial-hash variant
}

// DefaultLevelConfigs returns the eight spaces' default parameters, matching
// the scales used when a token's coordinates are first decoded (§4.1).
func DefaultLevelConfigs() [NumLevels]LevelConfig {
	return [NumLevels]LevelConfig{
		{Min: -327.67, Max: 327.67, Precision: 2, Scale: 100, Kind: IndexSparseGrid, CellSize: 1.0},
		{Min: 0, Max: 1, Precision: 4, Scale: 10000, Kind: IndexSparseGrid, CellSize: 0.05},
		{Min: -32.767, Max: 32.767, Precision: 3, Scale: 1000, Kind: IndexSpatialHash, CellSize: 1.0},
		{Min: -1, Max: 1, Precision: 4, Scale: 10000, Kind: IndexSparseGrid, CellSize: 0.1},
		{Min: 0, Max: 1, Precision: 4, Scale: 10000, Kind: IndexSparseGrid, CellSize: 0.05},
		{Min: -1, Max: 1, Precision: 4, Scale: 10000, Kind: IndexSpatialHash, CellSize: 0.1},
		{Min: -327, Max: 327, Precision: 2, Scale: 100, Kind: IndexSpatialHash, CellSize: 1.0},
		{Min: -1, Max: 1, Precision: 4, Scale: 10000, Kind: IndexSparseGrid, CellSize: 0.1},
	}
}

// ValidateCoordinate reports whether v lies within [cfg.Min, cfg.Max].
func (cfg LevelConfig) ValidateCoordinate(v float32) bool {
	return v >= cfg.Min && v <= cfg.Max
}

// Point3D is a coordinate triple tagged with the space it belongs to, so a
// Point3D can never be mistaken for a point in a different space (§3.3).
type Point3D struct {
	Level Level
	X, Y, Z float32
}

// Rect is an axis-aligned query region in a single coordinate space.
type Rect struct {
	MinX, MinY, MinZ float32
	MaxX, MaxY, MaxZ float32
}

// Contains reports whether p falls within the rectangle (inclusive bounds).
func (r Rect) Contains(p Point3D) bool {
	return p.X >= r.MinX && p.X <= r.MaxX &&
		p.Y >= r.MinY && p.Y <= r.MaxY &&
		p.Z >= r.MinZ && p.Z <= r.MaxZ
}

// Union returns the smallest rectangle containing both r and o.
func (r Rect) Union(o Rect) Rect {
	return Rect{
		MinX: minF(r.MinX, o.MinX), MinY: minF(r.MinY, o.MinY), MinZ: minF(r.MinZ, o.MinZ),
		MaxX: maxF(r.MaxX, o.MaxX), MaxY: maxF(r.MaxY, o.MaxY), MaxZ: maxF(r.MaxZ, o.MaxZ),
	}
}

func minF(a, b float32) float32 {
	if a < b {
		return a
	}
	return b
}

func maxF(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}

// MultiCoordinate is a token's sparse set of positions across the eight
// spaces: {level -> Point3D}. A token absent from a space is simply missing
// from the map (§3.3).
type MultiCoordinate map[Level]Point3D

// Clone returns a deep copy, used by CoordinateSystem.Place so the registry
// holds its own copy of the caller's map.
func (mc MultiCoordinate) Clone() MultiCoordinate {
	out := make(MultiCoordinate, len(mc))
	for k, v := range mc {
		out[k] = v
	}
	return out
}
