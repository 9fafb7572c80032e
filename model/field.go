// Package model defines the typed record system (Message/Schema) that
// backs belief sets, goal parameters, action payloads, and resource
// percepts throughout the runtime.
package model

import (
	"strconv"

	"github.com/cortexagents/bdi/uid"
)

// Kind enumerates the supported scalar, container, and nested value types
// a Field may hold. This is the closed tagged union the runtime uses in
// place of the original implementation's std::any-style variant; opaque
// user types are supported through KindOpaque with a caller-defined tag.
type Kind int

const (
	// KindInvalid is the zero value and is never a valid field type.
	KindInvalid Kind = iota
	KindBool
	KindI8
	KindI16
	KindI32
	KindI64
	KindU8
	KindU16
	KindU32
	KindU64
	KindF32
	KindF64
	KindString
	KindUniqueID
	KindMessage
	KindArray
	// KindOpaque escapes the closed union for user-registered types that
	// are identified by an out-of-band type tag rather than a Kind.
	KindOpaque
)

// String returns a human-readable name for the kind, used in validation
// error messages.
func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindI8:
		return "i8"
	case KindI16:
		return "i16"
	case KindI32:
		return "i32"
	case KindI64:
		return "i64"
	case KindU8:
		return "u8"
	case KindU16:
		return "u16"
	case KindU32:
		return "u32"
	case KindU64:
		return "u64"
	case KindF32:
		return "f32"
	case KindF64:
		return "f64"
	case KindString:
		return "string"
	case KindUniqueID:
		return "uid"
	case KindMessage:
		return "message"
	case KindArray:
		return "array"
	case KindOpaque:
		return "opaque"
	default:
		return "invalid"
	}
}

// Value is a variant value carried by a Field: a scalar, a nested Message,
// or an array of Values. Exactly one field is meaningful depending on
// Kind; Values are built with the Kind-specific constructors (Bool, Int64,
// String, UniqueID, ...) and read through the field that matches Kind.
type Value struct {
	Kind     Kind
	Bool     bool
	Int      int64
	Uint     uint64
	Float    float64
	Str      string
	ID       uid.ID
	Msg      *Message
	Array    []Value
	OpaqueID string
	Opaque   any
}

// Field describes one named slot in a Schema: its type, and the default
// value used when a Message is constructed from the schema's factory.
type Field struct {
	Name    string
	Type    Kind
	Default Value
}

// TypeMatches reports whether v's Kind is compatible with the field's
// declared Type. Arrays match on Kind alone; the kinds of their elements
// are not checked.
func (f Field) TypeMatches(v Value) bool {
	return f.Type == v.Kind
}

// Bool constructs a boolean Value.
func Bool(b bool) Value { return Value{Kind: KindBool, Bool: b} }

// Int64 constructs a signed 64-bit Value (also used for i8/i16/i32 by
// convention; range is not narrowed at this layer).
func Int64(i int64) Value { return Value{Kind: KindI64, Int: i} }

// Uint64 constructs an unsigned 64-bit Value.
func Uint64(u uint64) Value { return Value{Kind: KindU64, Uint: u} }

// Float64 constructs a 64-bit floating point Value.
func Float64(f float64) Value { return Value{Kind: KindF64, Float: f} }

// String constructs a string Value.
func String(s string) Value { return Value{Kind: KindString, Str: s} }

// UniqueID constructs a Value wrapping a uid.ID.
func UniqueID(id uid.ID) Value { return Value{Kind: KindUniqueID, ID: id} }

// NestedMessage constructs a Value wrapping a nested Message.
func NestedMessage(m *Message) Value { return Value{Kind: KindMessage, Msg: m} }

// ArrayOf constructs a Value wrapping an array of Values.
func ArrayOf(items ...Value) Value { return Value{Kind: KindArray, Array: items} }

// Opaque constructs a Value carrying a caller-defined type tag and payload
// for types outside the closed union.
func Opaque(typeTag string, payload any) Value {
	return Value{Kind: KindOpaque, OpaqueID: typeTag, Opaque: payload}
}

// String renders a Value for display (log lines, Print tasks, error
// messages). It is not a wire format; use MarshalMessageFields for that.
func (v Value) String() string {
	switch v.Kind {
	case KindBool:
		if v.Bool {
			return "true"
		}
		return "false"
	case KindI8, KindI16, KindI32, KindI64:
		return strconv.FormatInt(v.Int, 10)
	case KindU8, KindU16, KindU32, KindU64:
		return strconv.FormatUint(v.Uint, 10)
	case KindF32, KindF64:
		return strconv.FormatFloat(v.Float, 'g', -1, 64)
	case KindString:
		return v.Str
	case KindUniqueID:
		return v.ID.String()
	case KindMessage:
		if v.Msg == nil {
			return "<nil message>"
		}
		return v.Msg.SchemaName
	case KindArray:
		return "[" + strconv.Itoa(len(v.Array)) + " items]"
	case KindOpaque:
		return v.OpaqueID
	default:
		return "<invalid>"
	}
}
