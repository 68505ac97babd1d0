// Package toml provides a TOML codec implementation.
package toml

import (
	"github.com/pelletier/go-toml/v2"

	wizard "github.com/rnag/dataclass-wizard-sub001"
)

// tomlCodec implements wizard.Codec for TOML.
type tomlCodec struct{}

// New returns a TOML codec.
func New() wizard.Codec {
	return &tomlCodec{}
}

// ContentType returns the MIME type for TOML.
func (c *tomlCodec) ContentType() string {
	return "application/toml"
}

// Marshal encodes v as TOML.
func (c *tomlCodec) Marshal(v any) ([]byte, error) {
	return toml.Marshal(v)
}

// Unmarshal decodes TOML data into v.
func (c *tomlCodec) Unmarshal(data []byte, v any) error {
	return toml.Unmarshal(data, v)
}
