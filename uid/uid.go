// Package uid provides a 128-bit identifier type used throughout the
// runtime to name agents, goals, plans, intentions, and events without
// holding direct pointers between them.
package uid

import (
	"encoding/binary"
	"encoding/hex"
	"errors"
	"strings"

	"github.com/google/uuid"
)

// ErrMalformed indicates a hex string could not be parsed into an ID.
var ErrMalformed = errors.New("uid: malformed hex string")

// ID is a 128-bit identifier stored as two 64-bit halves. The zero value
// is Nil and is never returned by New.
type ID struct {
	hi uint64
	lo uint64
}

// Nil is the zero-valued, invalid ID.
var Nil ID

// New returns a random ID backed by a version 4 UUID.
func New() ID {
	b := uuid.New()
	return ID{
		hi: binary.BigEndian.Uint64(b[0:8]),
		lo: binary.BigEndian.Uint64(b[8:16]),
	}
}

// FromHex parses a 32-character lowercase hex string (optionally prefixed
// with "0x" or "x") into an ID.
func FromHex(s string) (ID, error) {
	s = strings.TrimPrefix(s, "0x")
	s = strings.TrimPrefix(s, "x")
	if len(s) != 32 {
		return Nil, ErrMalformed
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return Nil, ErrMalformed
	}
	return ID{
		hi: binary.BigEndian.Uint64(b[0:8]),
		lo: binary.BigEndian.Uint64(b[8:16]),
	}, nil
}

// String returns the 32-character lowercase hex form of the ID.
func (id ID) String() string {
	var b [16]byte
	binary.BigEndian.PutUint64(b[0:8], id.hi)
	binary.BigEndian.PutUint64(b[8:16], id.lo)
	return hex.EncodeToString(b[:])
}

// Valid reports whether the ID is non-zero.
func (id ID) Valid() bool {
	return id.hi != 0 || id.lo != 0
}

// Equal reports whether two IDs hold the same raw bytes.
func (id ID) Equal(other ID) bool {
	return id.hi == other.hi && id.lo == other.lo
}

// Compare orders IDs by their raw bytes, high half first. It returns -1, 0,
// or 1, matching the convention used by strings.Compare, so IDs can back
// sorted maps or deterministic iteration order (e.g. resource lock
// acquisition order).
func (id ID) Compare(other ID) int {
	switch {
	case id.hi < other.hi:
		return -1
	case id.hi > other.hi:
		return 1
	case id.lo < other.lo:
		return -1
	case id.lo > other.lo:
		return 1
	default:
		return 0
	}
}

// MarshalText implements encoding.TextMarshaler so IDs round-trip cleanly
// through YAML/JSON bootstrap documents.
func (id ID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *ID) UnmarshalText(text []byte) error {
	parsed, err := FromHex(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
