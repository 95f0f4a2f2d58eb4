package normalize

import (
	"fmt"

	jsoniter "github.com/json-iterator/go"
)

// codec keeps numbers as json.Number so integer ids survive decoding intact.
var codec = jsoniter.Config{
	UseNumber:              true,
	EscapeHTML:             true,
	SortMapKeys:            true,
	ValidateJsonRawMessage: true,
}.Froze()

// Decode parses a JSON document into untyped values: objects become
// map[string]any, arrays []any and numbers json.Number.
func Decode(data []byte) (any, error) {
	var v any
	if err := codec.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("unmarshal json: %w", err)
	}
	return v, nil
}

// Encode marshals v with the same settings Decode uses.
func Encode(v any) ([]byte, error) {
	return codec.Marshal(v)
}
