// Package json provides a JSON codec implementation.
package json

import (
	"bytes"
	"encoding/json"

	wizard "github.com/rnag/dataclass-wizard-sub001"
)

// jsonCodec implements wizard.Codec for JSON.
type jsonCodec struct{}

// New returns a JSON codec. Numbers decode as json.Number so integer
// precision survives the trip through the generic tree.
func New() wizard.Codec {
	return &jsonCodec{}
}

// ContentType returns the MIME type for JSON.
func (c *jsonCodec) ContentType() string {
	return "application/json"
}

// Marshal encodes v as JSON.
func (c *jsonCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

// Unmarshal decodes JSON data into v.
func (c *jsonCodec) Unmarshal(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec.Decode(v)
}
