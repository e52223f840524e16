package jsoncodec

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type tickPayload struct {
	N     int               `json:"n"`
	Label string            `json:"label"`
	Tags  map[string]string `json:"tags,omitempty"`
}

func TestMarshalAndUnmarshal(t *testing.T) {
	in := tickPayload{N: 42, Label: "tick"}
	data, err := Marshal(in)
	require.NoError(t, err)
	assert.JSONEq(t, `{"n":42,"label":"tick"}`, string(data))

	var out tickPayload
	require.NoError(t, Unmarshal(data, &out))
	assert.Equal(t, in, out)
}

func TestMarshalDocumentIsStable(t *testing.T) {
	in := tickPayload{N: 1, Tags: map[string]string{"z": "1", "a": "2", "m": "3"}}

	first, err := MarshalDocument(in)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := MarshalDocument(in)
		require.NoError(t, err)
		assert.Equal(t, string(first), string(again))
	}

	doc := string(first)
	assert.True(t, strings.HasSuffix(doc, "}\n"))
	assert.Contains(t, doc, "\n  \"n\": 1")
	assert.Less(t, strings.Index(doc, `"a"`), strings.Index(doc, `"z"`))
}

func TestValid(t *testing.T) {
	assert.True(t, Valid([]byte(`{"n":1}`)))
	assert.False(t, Valid([]byte(`{"n":`)))
}
