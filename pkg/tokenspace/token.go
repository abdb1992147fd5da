package tokenspace

import (
	"encoding/binary"
	"math"

	"github.com/sirupsen/logrus"
)

// TokenSize is the exact on-wire size of a packed Token, in bytes.
const TokenSize = 64

// CoordUndefined is the sentinel stored in the first axis of a coordinate
// triple to mark that space as absent for a token.
const CoordUndefined int16 = 127

// NumLevels is the number of coordinate spaces a token can occupy (L1..L8).
const NumLevels = 8

// System flag bits (low byte of Flags).
const (
	FlagActive     uint16 = 1 << 0
	FlagPersistent uint16 = 1 << 1
	FlagMutable    uint16 = 1 << 2
	FlagSynced     uint16 = 1 << 3
	FlagCompressed uint16 = 1 << 4
	FlagEncrypted  uint16 = 1 << 5
	FlagDirty      uint16 = 1 << 6
	FlagLocked     uint16 = 1 << 7

	// Graph-maintenance flags, set/cleared by GraphIndex (§4.5); they live in
	// the user-flag nibble (bits 12-15) so they never collide with entity_type.
	FlagActiveGraph uint16 = 1 << 12
	FlagHub         uint16 = 1 << 13
	FlagLeaf        uint16 = 1 << 14
	FlagRoot        uint16 = 1 << 15
)

const entityTypeMask uint16 = 0x0F00
const entityTypeShift = 8

// Token is the fixed 64-byte positioned record: the atomic unit of the store.
//
// A token exists simultaneously in up to 8 coordinate spaces (L1..L8); absent
// spaces carry CoordUndefined in the first axis of their triple. See
// pack/unpack for the exact wire layout.
type Token struct {
	Coordinates   [NumLevels][3]int16
	ID            uint32
	Flags         uint16
	Weight        float32
	FieldRadius   uint8 // decoded as FieldRadius/100 meters
	FieldStrength uint8 // decoded as FieldStrength/255, in [0,1]
	Timestamp     uint32
}

// MakeTokenID packs the {domain:4 | entity_type:4 | local_id:24} identifier.
func MakeTokenID(domain, entityType uint8, localID uint32) uint32 {
	return (uint32(domain&0xF) << 28) | (uint32(entityType&0xF) << 24) | (localID & 0xFFFFFF)
}

// TokenIDParts decomposes a 32-bit token id into its bit-packed fields.
func TokenIDParts(id uint32) (domain, entityType uint8, localID uint32) {
	return uint8(id >> 28), uint8((id >> 24) & 0xF), id & 0xFFFFFF
}

// NewToken returns a token with FlagActive set and Timestamp left to the caller.
func NewToken(id uint32) *Token {
	t := &Token{ID: id, Flags: FlagActive}
	for i := range t.Coordinates {
		t.Coordinates[i][0] = CoordUndefined
	}
	return t
}

// SetFlag sets the given bit(s) in Flags.
func (t *Token) SetFlag(flag uint16) { t.Flags |= flag }

// ClearFlag clears the given bit(s) in Flags.
func (t *Token) ClearFlag(flag uint16) { t.Flags &^= flag }

// HasFlag reports whether every bit in flag is set.
func (t *Token) HasFlag(flag uint16) bool { return t.Flags&flag == flag }

// EntityType returns the 4-bit entity type nibble mirrored into Flags (bits 8-11).
func (t *Token) EntityType() uint8 {
	return uint8((t.Flags & entityTypeMask) >> entityTypeShift)
}

// SetEntityType sets the entity type nibble, preserving every other flag bit.
func (t *Token) SetEntityType(entityType uint8) {
	t.Flags = (t.Flags &^ entityTypeMask) | (uint16(entityType&0xF) << entityTypeShift)
}

// ClampWeight forces Weight into [min, max], logging a warning if it had to.
// Per §4.1, an out-of-band weight is clamped and never rejected.
func (t *Token) ClampWeight(min, max float32) {
	if t.Weight >= min && t.Weight <= max {
		return
	}
	clamped := t.Weight
	if clamped < min {
		clamped = min
	}
	if clamped > max {
		clamped = max
	}
	logrus.WithFields(logrus.Fields{
		"token_id": t.ID,
		"weight":   t.Weight,
		"min":      min,
		"max":      max,
	}).Warn("token weight clamped to configured range")
	t.Weight = clamped
}

// levelScale returns the per-axis scale for a level, honoring L7's split
// X/Y-vs-Z scale (§4.1 edge cases).
func levelScale(level int, axis int, scales [NumLevels]float32) float32 {
	if level == 6 && axis == 2 {
		// L7 (temporal) encodes Z (frequency) at 10x the X/Y scale by convention;
		// the factor is fixed and cannot be overridden per call.
		return scales[level] * 10
	}
	return scales[level]
}

// SetCoordinates encodes (x, y, z) into the coordinate triple for level using
// the per-level scale from scales. Any axis given as nil is written as
// CoordUndefined ("none"); a non-nil axis is round(value*scale), saturated to
// [-32767, 32767] rather than panicking on overflow.
func (t *Token) SetCoordinates(level int, x, y, z *float32, scales [NumLevels]float32) {
	axes := [3]*float32{x, y, z}
	for axis, v := range axes {
		if v == nil {
			t.Coordinates[level][axis] = CoordUndefined
			continue
		}
		scale := levelScale(level, axis, scales)
		t.Coordinates[level][axis] = encodeAxis(*v, scale)
	}
}

func encodeAxis(value float32, scale float32) int16 {
	scaled := math.Round(float64(value) * float64(scale))
	if scaled > 32767 {
		scaled = 32767
	}
	if scaled < -32767 {
		scaled = -32767
	}
	return int16(scaled)
}

// GetCoordinates decodes the coordinate triple for level, returning false iff
// the first axis is the sentinel ("unset").
func (t *Token) GetCoordinates(level int, scales [NumLevels]float32) (x, y, z float32, ok bool) {
	tri := t.Coordinates[level]
	if tri[0] == CoordUndefined {
		return 0, 0, 0, false
	}
	x = float32(tri[0]) / levelScale(level, 0, scales)
	y = float32(tri[1]) / levelScale(level, 1, scales)
	z = float32(tri[2]) / levelScale(level, 2, scales)
	return x, y, z, true
}

// DecodeFieldRadius returns FieldRadius in meters (FieldRadius/100).
func (t *Token) DecodeFieldRadius() float32 { return float32(t.FieldRadius) / 100 }

// EncodeFieldRadius sets FieldRadius from meters, saturating to the 8-bit range.
func (t *Token) EncodeFieldRadius(meters float32) {
	t.FieldRadius = saturateU8(meters * 100)
}

// DecodeFieldStrength returns FieldStrength scaled to [0,1].
func (t *Token) DecodeFieldStrength() float32 { return float32(t.FieldStrength) / 255 }

// EncodeFieldStrength sets FieldStrength from a [0,1] value, saturating to the 8-bit range.
func (t *Token) EncodeFieldStrength(v float32) {
	t.FieldStrength = saturateU8(v * 255)
}

func saturateU8(v float32) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}

// Pack serializes the token to its 64-byte little-endian wire form.
// Layout: coords[24]int16, id uint32, flags uint16, weight float32,
// field_radius uint8, field_strength uint8, timestamp uint32.
func (t *Token) Pack() [TokenSize]byte {
	var buf [TokenSize]byte
	off := 0
	for level := 0; level < NumLevels; level++ {
		for axis := 0; axis < 3; axis++ {
			binary.LittleEndian.PutUint16(buf[off:], uint16(t.Coordinates[level][axis]))
			off += 2
		}
	}
	binary.LittleEndian.PutUint32(buf[off:], t.ID)
	off += 4
	binary.LittleEndian.PutUint16(buf[off:], t.Flags)
	off += 2
	binary.LittleEndian.PutUint32(buf[off:], math.Float32bits(t.Weight))
	off += 4
	buf[off] = t.FieldRadius
	off++
	buf[off] = t.FieldStrength
	off++
	binary.LittleEndian.PutUint32(buf[off:], t.Timestamp)
	off += 4
	return buf
}

// UnpackToken deserializes a 64-byte wire record, failing with
// ErrMalformedToken if data is not exactly TokenSize bytes.
func UnpackToken(data []byte) (*Token, error) {
	if len(data) != TokenSize {
		return nil, &ErrMalformedToken{Reason: "length != 64"}
	}
	t := &Token{}
	off := 0
	for level := 0; level < NumLevels; level++ {
		for axis := 0; axis < 3; axis++ {
			t.Coordinates[level][axis] = int16(binary.LittleEndian.Uint16(data[off:]))
			off += 2
		}
	}
	t.ID = binary.LittleEndian.Uint32(data[off:])
	off += 4
	t.Flags = binary.LittleEndian.Uint16(data[off:])
	off += 2
	t.Weight = math.Float32frombits(binary.LittleEndian.Uint32(data[off:]))
	off += 4
	t.FieldRadius = data[off]
	off++
	t.FieldStrength = data[off]
	off++
	t.Timestamp = binary.LittleEndian.Uint32(data[off:])
	return t, nil
}
