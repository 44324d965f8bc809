package llm

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClientWithoutKey(t *testing.T) {
	assert.Nil(t, NewClient("  ", ""))
	assert.NotNil(t, NewClient("sk-test", "http://localhost:1234/v1/"))
}

func TestSchemaIsClosedAndRequiresFields(t *testing.T) {
	type answer struct {
		Title string   `json:"title"`
		Tags  []string `json:"tags"`
	}

	raw, err := json.Marshal(Schema[answer]())
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.Equal(t, "object", doc["type"])
	assert.Equal(t, false, doc["additionalProperties"])
	assert.ElementsMatch(t, []any{"title", "tags"}, doc["required"])
}
