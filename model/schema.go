package model

import "fmt"

// Schema is a named record shape: a set of Fields plus a factory that
// builds a default Message. Schemas are registered once with the engine
// and never mutated afterwards; Message instances are cheap values
// copied out of a Schema's defaults.
type Schema struct {
	Name   string
	Fields []Field
}

// NewSchema constructs a Schema from a name and field list. It does not
// validate uniqueness of field names; use Verify or the engine's commit
// path for that.
func NewSchema(name string, fields ...Field) *Schema {
	return &Schema{Name: name, Fields: fields}
}

// FieldByName returns the Field with the given name and whether it was
// found.
func (s *Schema) FieldByName(name string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Default builds a new Message populated with each field's default
// value, satisfying this schema by construction.
func (s *Schema) Default() *Message {
	fields := make(map[string]Value, len(s.Fields))
	for _, f := range s.Fields {
		fields[f.Name] = f.Default
	}
	return &Message{SchemaName: s.Name, Fields: fields}
}

// duplicateFieldNames returns names that appear more than once, used by
// Verify to reject malformed schemas at commit time rather than at first
// use.
func (s *Schema) duplicateFieldNames() []string {
	seen := make(map[string]int, len(s.Fields))
	var dups []string
	for _, f := range s.Fields {
		seen[f.Name]++
		if seen[f.Name] == 2 {
			dups = append(dups, f.Name)
		}
	}
	return dups
}

// Verify checks the schema's internal consistency (non-empty name, no
// duplicate field names, no KindInvalid fields). It does not check
// messages; see VerifyMessage for that.
func (s *Schema) Verify() error {
	if s.Name == "" {
		return fmt.Errorf("%w: schema has no name", ErrValidation)
	}
	if dups := s.duplicateFieldNames(); len(dups) > 0 {
		return fmt.Errorf("%w: schema %q declares duplicate fields %v", ErrValidation, s.Name, dups)
	}
	for _, f := range s.Fields {
		if f.Type == KindInvalid {
			return fmt.Errorf("%w: schema %q field %q has no type", ErrValidation, s.Name, f.Name)
		}
		if f.Type == KindMessage || f.Type == KindArray {
			continue
		}
		if !f.TypeMatches(f.Default) && f.Default.Kind != KindInvalid {
			return fmt.Errorf("%w: schema %q field %q default does not match declared type %s", ErrValidation, s.Name, f.Name, f.Type)
		}
	}
	return nil
}

// VerifyMessage checks that m is valid against this schema: the schema
// name matches, and every declared field is present with a matching
// type-tag.
//
// Full field-level verification is always enabled here; earlier
// implementations of this check were known to special-case it out and
// silently accept malformed messages, which this runtime deliberately
// does not reproduce.
func (s *Schema) VerifyMessage(m *Message) error {
	if m == nil {
		return fmt.Errorf("%w: nil message", ErrValidation)
	}
	if m.SchemaName != s.Name {
		return fmt.Errorf("%w: message schema %q does not match expected %q", ErrValidation, m.SchemaName, s.Name)
	}
	for _, f := range s.Fields {
		v, ok := m.Fields[f.Name]
		if !ok {
			return fmt.Errorf("%w: message %q missing field %q", ErrValidation, s.Name, f.Name)
		}
		if !f.TypeMatches(v) {
			return fmt.Errorf("%w: message %q field %q has type %s, expected %s", ErrValidation, s.Name, f.Name, v.Kind, f.Type)
		}
	}
	return nil
}
