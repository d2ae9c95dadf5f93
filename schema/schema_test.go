package schema_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spacetimedb/sdk-go/schema"
)

const personDoc = `{
  "typespace": {
    "types": [
      { "tag": "U64" },
      { "tag": "String" },
      { "tag": "U32" },
      { "tag": "Product", "elements": [
          { "name": "id", "type": { "tag": "Ref", "ref": 0 } },
          { "name": "name", "type": { "tag": "Ref", "ref": 1 } },
          { "name": "age", "type": { "tag": "Ref", "ref": 2 } }
      ] }
    ]
  },
  "tables": [
    { "name": "person", "product_type_ref": 3, "primary_key": [0] }
  ],
  "reducers": [
    { "name": "set_age", "params": [
        { "name": "id", "type": { "tag": "Ref", "ref": 0 } },
        { "name": "age", "type": { "tag": "Ref", "ref": 2 } }
    ] }
  ]
}`

func TestParseValidDocument(t *testing.T) {
	require.NoError(t, schema.Validate([]byte(personDoc)))

	s, err := schema.Parse([]byte(personDoc))
	require.NoError(t, err)

	cols, err := s.ColumnsFor("person")
	require.NoError(t, err)
	require.Len(t, cols, 3)
	assert.Equal(t, "id", cols[0].Name)
	assert.Equal(t, schema.KindU64, cols[0].Type.Kind)
	assert.Equal(t, "name", cols[1].Name)
	assert.Equal(t, schema.KindString, cols[1].Type.Kind)

	pk, err := s.PrimaryKeyFor("person")
	require.NoError(t, err)
	assert.Equal(t, []int{0}, pk)

	r, err := s.Reducer("set_age")
	require.NoError(t, err)
	require.Len(t, r.Params, 2)
	assert.Equal(t, "age", r.Params[1].Name)
}

func TestParseUnknownTableAndReducer(t *testing.T) {
	s, err := schema.Parse([]byte(personDoc))
	require.NoError(t, err)

	_, err = s.ColumnsFor("does_not_exist")
	require.Error(t, err)
	var se *schema.Error
	require.ErrorAs(t, err, &se)
	assert.Equal(t, schema.UnknownTable, se.Kind)

	_, err = s.Reducer("does_not_exist")
	require.Error(t, err)
	require.ErrorAs(t, err, &se)
	assert.Equal(t, schema.UnknownReducer, se.Kind)
}

func TestValidateRejectsMalformedDocument(t *testing.T) {
	err := schema.Validate([]byte(`{"typespace": {}, "tables": "not-an-array"}`))
	require.Error(t, err)
	var se *schema.Error
	require.ErrorAs(t, err, &se)
	assert.Equal(t, schema.InvalidDocument, se.Kind)
}
