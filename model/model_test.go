package model_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cortexagents/bdi/model"
)

func countSchema() *model.Schema {
	return model.NewSchema("counter.count",
		model.Field{Name: "value", Type: model.KindI64, Default: model.Int64(0)},
		model.Field{Name: "label", Type: model.KindString, Default: model.String("")},
	)
}

func TestSchemaDefaultSatisfiesSchema(t *testing.T) {
	s := countSchema()
	msg := s.Default()
	require.NoError(t, s.VerifyMessage(msg))
}

func TestVerifyMessageRejectsMissingField(t *testing.T) {
	s := countSchema()
	msg := model.NewMessage("counter.count")
	msg.Set("value", model.Int64(1))
	// "label" is missing.
	err := s.VerifyMessage(msg)
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrValidation)
}

func TestVerifyMessageRejectsWrongType(t *testing.T) {
	s := countSchema()
	msg := s.Default()
	msg.Set("value", model.String("not-a-number"))
	err := s.VerifyMessage(msg)
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrValidation)
}

func TestVerifyMessageRejectsWrongSchemaName(t *testing.T) {
	s := countSchema()
	msg := model.NewMessage("other.schema")
	err := s.VerifyMessage(msg)
	require.Error(t, err)
}

func TestSchemaVerifyRejectsDuplicateFields(t *testing.T) {
	s := model.NewSchema("dup",
		model.Field{Name: "a", Type: model.KindBool},
		model.Field{Name: "a", Type: model.KindBool},
	)
	err := s.Verify()
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrValidation)
}

func TestMessageEqual(t *testing.T) {
	s := countSchema()
	a := s.Default()
	b := s.Default()
	assert.True(t, a.Equal(b))

	b.Set("value", model.Int64(42))
	assert.False(t, a.Equal(b))
}

func TestMessageCloneIsIndependent(t *testing.T) {
	s := countSchema()
	a := s.Default()
	b := a.Clone()
	b.Set("value", model.Int64(99))
	assert.Equal(t, int64(0), a.Int("value"))
	assert.Equal(t, int64(99), b.Int("value"))
}

func TestCompileSchemaDocumentValidatesPayload(t *testing.T) {
	doc, err := model.CompileSchemaDocument("counter.count", []byte(`{
		"type": "object",
		"required": ["value", "label"],
		"properties": {
			"value": {"type": "integer"},
			"label": {"type": "string"}
		}
	}`))
	require.NoError(t, err)

	s := countSchema()
	msg := s.Default()
	msg.Set("value", model.Int64(7))
	msg.Set("label", model.String("ticks"))

	payload, err := model.MarshalMessageFields(msg)
	require.NoError(t, err)
	require.NoError(t, doc.Validate(payload))
}

func TestCompileSchemaDocumentRejectsBadPayload(t *testing.T) {
	doc, err := model.CompileSchemaDocument("counter.count", []byte(`{
		"type": "object",
		"required": ["value"],
		"properties": {"value": {"type": "integer"}}
	}`))
	require.NoError(t, err)

	require.Error(t, doc.Validate([]byte(`{"value": "not-a-number"}`)))
}
