package model

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// SchemaDocument is a JSON-Schema-backed alternative to the programmatic
// Field builder for declaring a Message schema. It is useful when schemas
// arrive from configuration (see engine.Engine.CommitMessageSchemaFromJSON) rather than being
// authored directly in Go.
//
// A SchemaDocument only constrains the *shape* of messages exchanged
// against the named schema (via Validate); it does not replace the
// Field-based Schema used for default-value construction. Callers that
// need both register a Schema for defaults and a SchemaDocument for
// stricter structural validation at the belt-and-braces boundary (e.g.
// messages arriving from a BusAdapter).
type SchemaDocument struct {
	Name   string
	Raw    json.RawMessage
	schema *jsonschema.Schema
}

// CompileSchemaDocument compiles the given JSON-Schema document (draft
// 2020-12 by default) and binds it to the named message schema. The
// document is compiled eagerly so malformed schemas are rejected at
// commit time rather than on first use.
func CompileSchemaDocument(name string, raw json.RawMessage) (*SchemaDocument, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: schema document has no name", ErrValidation)
	}
	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("%w: schema document %q is not valid JSON: %v", ErrValidation, name, err)
	}

	url := "mem://schema/" + name
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(url, decoded); err != nil {
		return nil, fmt.Errorf("%w: schema document %q could not be added: %v", ErrValidation, name, err)
	}
	compiled, err := compiler.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("%w: schema document %q failed to compile: %v", ErrValidation, name, err)
	}
	return &SchemaDocument{Name: name, Raw: raw, schema: compiled}, nil
}

// Validate checks an arbitrary JSON payload (typically the wire
// representation of a Message's fields) against the compiled JSON
// Schema, returning a validation error listing every violation found.
func (d *SchemaDocument) Validate(payload json.RawMessage) error {
	var decoded any
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return fmt.Errorf("%w: payload for schema %q is not valid JSON: %v", ErrValidation, d.Name, err)
	}
	if err := d.schema.Validate(decoded); err != nil {
		return fmt.Errorf("%w: payload failed schema %q: %v", ErrValidation, d.Name, err)
	}
	return nil
}

// MarshalMessageFields renders the scalar subset of a Message's fields as
// a JSON object suitable for SchemaDocument.Validate. Nested messages and
// arrays are rendered recursively; opaque values are rendered as their
// type tag string since their payload has no general JSON form.
func MarshalMessageFields(m *Message) (json.RawMessage, error) {
	out := make(map[string]any, len(m.Fields))
	for name, v := range m.Fields {
		rendered, err := renderValue(v)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", name, err)
		}
		out[name] = rendered
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	if err := enc.Encode(out); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func renderValue(v Value) (any, error) {
	switch v.Kind {
	case KindBool:
		return v.Bool, nil
	case KindI8, KindI16, KindI32, KindI64:
		return v.Int, nil
	case KindU8, KindU16, KindU32, KindU64:
		return v.Uint, nil
	case KindF32, KindF64:
		return v.Float, nil
	case KindString:
		return v.Str, nil
	case KindUniqueID:
		return v.ID.String(), nil
	case KindMessage:
		if v.Msg == nil {
			return nil, nil
		}
		fields := make(map[string]any, len(v.Msg.Fields))
		for name, fv := range v.Msg.Fields {
			rendered, err := renderValue(fv)
			if err != nil {
				return nil, err
			}
			fields[name] = rendered
		}
		return fields, nil
	case KindArray:
		items := make([]any, len(v.Array))
		for i, elem := range v.Array {
			rendered, err := renderValue(elem)
			if err != nil {
				return nil, err
			}
			items[i] = rendered
		}
		return items, nil
	case KindOpaque:
		return v.OpaqueID, nil
	default:
		return nil, fmt.Errorf("unrenderable value kind %s", v.Kind)
	}
}
