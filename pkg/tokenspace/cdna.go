package tokenspace

import (
	"encoding/binary"
	"math"

	"github.com/cespare/xxhash/v2"
)

// CdnaSize is the total packed size of a CDNA record in bytes.
const CdnaSize = 128

const cdnaBlockSize = 32

// GridPhysics is the GRID_PHYSICS section (bytes 0:32): the per-level scale
// factors published to CoordinateSystem (§4.1, §4.4 CDNA coupling).
type GridPhysics struct {
	Scales [NumLevels]float32
}

// GraphTopology is the NEURO_RULES section (bytes 32:64): global constraints
// on the graph index (§4.5).
type GraphTopology struct {
	MaxConnections     uint32
	DecayRate          float32
	SymmetryTolerance  float32
}

// TokenProperties is the TOKEN_PROPERTIES section (bytes 64:96): global
// bounds on Token fields (§3.1).
type TokenProperties struct {
	WeightMin           float32
	WeightMax           float32
	BaseFlagsAllowed    uint32
	MaxCoordinateLevels uint32
}

// EvolutionConstraints is the META/evolution section (bytes 96:128):
// parameters consumed by the evolution subsystem this record feeds.
type EvolutionConstraints struct {
	MutationRateBase    float32
	MutationRateMax     float32
	CrossoverRate       float32
	SelectionPressure   float32
}

// Cdna is the complete 128-byte configuration record (§6): four fixed
// 32-byte sections plus a derived checksum.
type Cdna struct {
	GridPhysics          GridPhysics
	GraphTopology        GraphTopology
	TokenProperties      TokenProperties
	EvolutionConstraints EvolutionConstraints
}

// DefaultCdna returns a record whose values match DefaultLevelConfigs and
// reasonable graph/evolution defaults.
func DefaultCdna() Cdna {
	configs := DefaultLevelConfigs()
	var gp GridPhysics
	for i, c := range configs {
		gp.Scales[i] = c.Scale
	}
	return Cdna{
		GridPhysics: gp,
		GraphTopology: GraphTopology{
			MaxConnections:    32,
			DecayRate:         0.01,
			SymmetryTolerance: 0.05,
		},
		TokenProperties: TokenProperties{
			WeightMin:           0,
			WeightMax:           1,
			BaseFlagsAllowed:    0xFFFF,
			MaxCoordinateLevels: NumLevels,
		},
		EvolutionConstraints: EvolutionConstraints{
			MutationRateBase:  0.01,
			MutationRateMax:   0.1,
			CrossoverRate:     0.05,
			SelectionPressure: 0.8,
		},
	}
}

// Pack serializes c to its 128-byte wire form.
func (c Cdna) Pack() [CdnaSize]byte {
	var out [CdnaSize]byte

	for i, s := range c.GridPhysics.Scales {
		binary.LittleEndian.PutUint32(out[i*4:i*4+4], math.Float32bits(s))
	}

	b := out[32:64]
	binary.LittleEndian.PutUint32(b[0:4], c.GraphTopology.MaxConnections)
	binary.LittleEndian.PutUint32(b[4:8], math.Float32bits(c.GraphTopology.DecayRate))
	binary.LittleEndian.PutUint32(b[8:12], math.Float32bits(c.GraphTopology.SymmetryTolerance))

	b = out[64:96]
	binary.LittleEndian.PutUint32(b[0:4], math.Float32bits(c.TokenProperties.WeightMin))
	binary.LittleEndian.PutUint32(b[4:8], math.Float32bits(c.TokenProperties.WeightMax))
	binary.LittleEndian.PutUint32(b[8:12], c.TokenProperties.BaseFlagsAllowed)
	binary.LittleEndian.PutUint32(b[12:16], c.TokenProperties.MaxCoordinateLevels)

	b = out[96:128]
	binary.LittleEndian.PutUint32(b[0:4], math.Float32bits(c.EvolutionConstraints.MutationRateBase))
	binary.LittleEndian.PutUint32(b[4:8], math.Float32bits(c.EvolutionConstraints.MutationRateMax))
	binary.LittleEndian.PutUint32(b[8:12], math.Float32bits(c.EvolutionConstraints.CrossoverRate))
	binary.LittleEndian.PutUint32(b[12:16], math.Float32bits(c.EvolutionConstraints.SelectionPressure))

	return out
}

// UnpackCdna parses a 128-byte wire record produced by Pack.
func UnpackCdna(data []byte) (Cdna, error) {
	if len(data) != CdnaSize {
		return Cdna{}, &ErrMalformedCdna{Reason: "data is not 128 bytes"}
	}
	var c Cdna
	for i := 0; i < NumLevels; i++ {
		c.GridPhysics.Scales[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4 : i*4+4]))
	}

	b := data[32:64]
	c.GraphTopology.MaxConnections = binary.LittleEndian.Uint32(b[0:4])
	c.GraphTopology.DecayRate = math.Float32frombits(binary.LittleEndian.Uint32(b[4:8]))
	c.GraphTopology.SymmetryTolerance = math.Float32frombits(binary.LittleEndian.Uint32(b[8:12]))

	b = data[64:96]
	c.TokenProperties.WeightMin = math.Float32frombits(binary.LittleEndian.Uint32(b[0:4]))
	c.TokenProperties.WeightMax = math.Float32frombits(binary.LittleEndian.Uint32(b[4:8]))
	c.TokenProperties.BaseFlagsAllowed = binary.LittleEndian.Uint32(b[8:12])
	c.TokenProperties.MaxCoordinateLevels = binary.LittleEndian.Uint32(b[12:16])

	b = data[96:128]
	c.EvolutionConstraints.MutationRateBase = math.Float32frombits(binary.LittleEndian.Uint32(b[0:4]))
	c.EvolutionConstraints.MutationRateMax = math.Float32frombits(binary.LittleEndian.Uint32(b[4:8]))
	c.EvolutionConstraints.CrossoverRate = math.Float32frombits(binary.LittleEndian.Uint32(b[8:12]))
	c.EvolutionConstraints.SelectionPressure = math.Float32frombits(binary.LittleEndian.Uint32(b[12:16]))

	return c, nil
}

// Checksum returns the xxhash64 digest of the packed record. CdnaStore.Update
// reports the replaced record's checksum in its event metadata.
func (c Cdna) Checksum() uint64 {
	packed := c.Pack()
	return xxhash.Sum64(packed[:])
}

// Validate rejects a record with out-of-order bounds or non-positive scales
// (§6 validation); callers that would otherwise accept an invalid record
// should reject the update entirely rather than clamp it.
func (c Cdna) Validate() error {
	if c.TokenProperties.WeightMin > c.TokenProperties.WeightMax {
		return &ErrValidationFailed{Reason: "token_properties.weight_min > weight_max"}
	}
	for i, s := range c.GridPhysics.Scales {
		if s <= 0 {
			return &ErrValidationFailed{Reason: "grid_physics.scales[" + Level(i).String() + "] must be positive"}
		}
	}
	if c.EvolutionConstraints.MutationRateBase > c.EvolutionConstraints.MutationRateMax {
		return &ErrValidationFailed{Reason: "evolution_constraints.mutation_rate_base > mutation_rate_max"}
	}
	return nil
}

// HotSliceComponent names a subscriber-facing CDNA hot slice.
type HotSliceComponent string

const (
	HotSliceGraph            HotSliceComponent = "graph"
	HotSliceCoordinateSystem HotSliceComponent = "coordinate_system"
	HotSliceEvolution        HotSliceComponent = "evolution"
	HotSliceToken            HotSliceComponent = "token"
	HotSliceAll              HotSliceComponent = "all"
)

// HotSlice returns the byte range(s) of the packed record relevant to
// component, matching the original section layout: graph gets
// [32:96) (topology+token properties), coordinate_system gets [0:32)+[64:96),
// evolution gets [32:128), token gets [64:96) (§6).
func (c Cdna) HotSlice(component HotSliceComponent) []byte {
	full := c.Pack()
	switch component {
	case HotSliceGraph:
		out := make([]byte, 64)
		copy(out, full[32:96])
		return out
	case HotSliceCoordinateSystem:
		out := make([]byte, 64)
		copy(out[0:32], full[0:32])
		copy(out[32:64], full[64:96])
		return out
	case HotSliceEvolution:
		out := make([]byte, 96)
		copy(out, full[32:128])
		return out
	case HotSliceToken:
		out := make([]byte, 32)
		copy(out, full[64:96])
		return out
	case HotSliceAll:
		fallthrough
	default:
		out := make([]byte, CdnaSize)
		copy(out, full[:])
		return out
	}
}
