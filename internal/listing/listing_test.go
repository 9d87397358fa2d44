package listing

import (
	"encoding/json"
	"testing"

	"github.com/sashabaranov/go-openai/jsonschema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchema(t *testing.T) {
	schema, err := Schema()
	require.NoError(t, err)

	assert.Equal(t, jsonschema.Array, schema.Type)
	require.NotNil(t, schema.Items)
	assert.Equal(t, jsonschema.Object, schema.Items.Type)
	assert.Contains(t, schema.Items.Properties, "id_url")
	assert.Contains(t, schema.Items.Properties, "title")
	assert.ElementsMatch(t, []string{"id_url", "title"}, schema.Items.Required)

	_, err = json.Marshal(schema)
	assert.NoError(t, err)
}

func TestRecordJSONFieldNames(t *testing.T) {
	data, err := json.Marshal(Record{IDURL: "185XKQP", Title: "Plombier"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"id_url":"185XKQP","title":"Plombier"}`, string(data))
}
