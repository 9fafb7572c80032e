package model

import "errors"

// ErrValidation is the sentinel wrapped by every validation failure raised
// while committing schemas or setting messages against them.
var ErrValidation = errors.New("model: validation error")

// Message is a named record: a schema name plus a field-name to Value
// mapping. Messages are small values and are copied freely into events,
// beliefsets, and goal parameter slots.
type Message struct {
	SchemaName string
	Fields     map[string]Value
}

// NewMessage constructs an empty message against the given schema name.
// Prefer Schema.Default when a registered schema is available, since it
// populates declared defaults.
func NewMessage(schemaName string) *Message {
	return &Message{SchemaName: schemaName, Fields: make(map[string]Value)}
}

// Clone returns a deep-enough copy of the message: the field map is
// copied, but nested Message/array values are shared by pointer/slice
// header since the runtime treats Messages as otherwise-immutable once
// constructed.
func (m *Message) Clone() *Message {
	if m == nil {
		return nil
	}
	fields := make(map[string]Value, len(m.Fields))
	for k, v := range m.Fields {
		fields[k] = v
	}
	return &Message{SchemaName: m.SchemaName, Fields: fields}
}

// Get returns the value for the given field name and whether it was
// present. Callers that only care about a default value should use
// GetOr.
func (m *Message) Get(field string) (Value, bool) {
	if m == nil {
		return Value{}, false
	}
	v, ok := m.Fields[field]
	return v, ok
}

// GetOr returns the named field's value, or def when the field is absent.
func (m *Message) GetOr(field string, def Value) Value {
	if v, ok := m.Get(field); ok {
		return v
	}
	return def
}

// Set replaces (or inserts) the value for the given field name.
func (m *Message) Set(field string, v Value) {
	if m.Fields == nil {
		m.Fields = make(map[string]Value)
	}
	m.Fields[field] = v
}

// Bool returns the boolean value of a field, or false if absent or of a
// different kind.
func (m *Message) Bool(field string) bool {
	v, _ := m.Get(field)
	return v.Bool
}

// Int returns the signed integer value of a field, or 0 if absent.
func (m *Message) Int(field string) int64 {
	v, _ := m.Get(field)
	return v.Int
}

// Str returns the string value of a field, or "" if absent.
func (m *Message) Str(field string) string {
	v, _ := m.Get(field)
	return v.Str
}

// Equal reports whether two messages carry the same schema name and an
// equal set of scalar field values. Nested messages and arrays are
// compared by recursively calling Equal / elementwise Value equality.
func (m *Message) Equal(other *Message) bool {
	if m == nil || other == nil {
		return m == other
	}
	if m.SchemaName != other.SchemaName || len(m.Fields) != len(other.Fields) {
		return false
	}
	for k, v := range m.Fields {
		ov, ok := other.Fields[k]
		if !ok || !valuesEqual(v, ov) {
			return false
		}
	}
	return true
}

func valuesEqual(a, b Value) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KindBool:
		return a.Bool == b.Bool
	case KindI8, KindI16, KindI32, KindI64:
		return a.Int == b.Int
	case KindU8, KindU16, KindU32, KindU64:
		return a.Uint == b.Uint
	case KindF32, KindF64:
		return a.Float == b.Float
	case KindString:
		return a.Str == b.Str
	case KindUniqueID:
		return a.ID.Equal(b.ID)
	case KindMessage:
		return a.Msg.Equal(b.Msg)
	case KindArray:
		if len(a.Array) != len(b.Array) {
			return false
		}
		for i := range a.Array {
			if !valuesEqual(a.Array[i], b.Array[i]) {
				return false
			}
		}
		return true
	case KindOpaque:
		return a.OpaqueID == b.OpaqueID
	default:
		return false
	}
}
