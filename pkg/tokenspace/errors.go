package tokenspace

import "fmt"

// ErrOutOfRange indicates a coordinate or parameter fell outside its validated bounds.
type ErrOutOfRange struct {
	Field string
	Value float64
	Min   float64
	Max   float64
}

func (e *ErrOutOfRange) Error() string {
	return fmt.Sprintf("out of range: %s=%g (want [%g, %g])", e.Field, e.Value, e.Min, e.Max)
}

// ErrUnknownToken indicates an operation referenced a token id that is not registered.
type ErrUnknownToken struct {
	TokenID uint32
}

func (e *ErrUnknownToken) Error() string {
	return fmt.Sprintf("unknown token: 0x%08x", e.TokenID)
}

// ErrUnknownEdge indicates disconnect or lookup referenced a pair with no edge.
type ErrUnknownEdge struct {
	A, B uint32
}

func (e *ErrUnknownEdge) Error() string {
	return fmt.Sprintf("unknown edge: %d <-> %d", e.A, e.B)
}

// ErrSelfLoop indicates a connect() call named the same token on both ends.
type ErrSelfLoop struct {
	TokenID uint32
}

func (e *ErrSelfLoop) Error() string {
	return fmt.Sprintf("self loop not allowed: token %d", e.TokenID)
}

// ErrDegreeCap indicates connect() would push a token's degree past max_connections_per_node.
type ErrDegreeCap struct {
	TokenID uint32
	Degree  int
	Cap     int
}

func (e *ErrDegreeCap) Error() string {
	return fmt.Sprintf("degree cap exceeded for token %d: %d >= %d", e.TokenID, e.Degree, e.Cap)
}

// ErrValidationFailed indicates a record failed validation and was rejected outright
// (as opposed to clamped). Used for CDNA records, never for token weight.
type ErrValidationFailed struct {
	Reason string
}

func (e *ErrValidationFailed) Error() string {
	return fmt.Sprintf("validation failed: %s", e.Reason)
}

// ErrMalformedToken indicates pack/unpack received data that cannot be a valid token.
type ErrMalformedToken struct {
	Reason string
}

func (e *ErrMalformedToken) Error() string {
	return fmt.Sprintf("malformed token: %s", e.Reason)
}

// ErrMalformedCdna indicates pack/unpack received data that cannot be a valid CDNA record.
type ErrMalformedCdna struct {
	Reason string
}

func (e *ErrMalformedCdna) Error() string {
	return fmt.Sprintf("malformed CDNA: %s", e.Reason)
}
