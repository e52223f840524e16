// Package jsoncodec is the JSON encoding used for event payloads and the
// binding manifest.
package jsoncodec

import (
	"github.com/bytedance/sonic"
)

// sorted keys keep manifests stable across runs.
var api = sonic.Config{
	EscapeHTML:       true,
	SortMapKeys:      true,
	ValidateString:   true,
	CompactMarshaler: true,
}.Froze()

func Marshal(v any) ([]byte, error) {
	return api.Marshal(v)
}

func Unmarshal(data []byte, v any) error {
	return api.Unmarshal(data, v)
}

// MarshalDocument renders v indented with two spaces and a trailing
// newline, the layout used for files written to disk.
func MarshalDocument(v any) ([]byte, error) {
	data, err := api.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// Valid reports whether data is well-formed JSON.
func Valid(data []byte) bool {
	return api.Valid(data)
}
