package model

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// Format is a template file encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat accepts "json", "yaml" or "yml".
func ParseFormat(s string) (Format, error) {
	switch s {
	case "json", "":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("unknown template format %q (use json or yaml)", s)
}

// Decode reads a Template in the given format.
func Decode(r io.Reader, f Format) (Template, error) {
	var t Template
	switch f {
	case FormatYAML:
		if err := yaml.NewDecoder(r).Decode(&t); err != nil {
			return Template{}, fmt.Errorf("decode yaml template: %w", err)
		}
	default:
		if err := json.NewDecoder(r).Decode(&t); err != nil {
			return Template{}, fmt.Errorf("decode json template: %w", err)
		}
	}
	return t, nil
}

// Encode writes t in the given format.
func Encode(w io.Writer, t Template, f Format) error {
	return EncodeValue(w, t, f)
}

// EncodeValue writes any value in the given format, indented.
func EncodeValue(w io.Writer, v any, f Format) error {
	switch f {
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
}
