package model

import (
	"github.com/goccy/go-yaml"
)

// DecodeStrict unmarshals YAML with unknown fields rejected. Every on-disk
// document kind goes through this helper so deny-unknown-fields semantics
// hold at every layer.
func DecodeStrict(data []byte, v any) error {
	return yaml.UnmarshalWithOptions(data, v, yaml.Strict())
}
