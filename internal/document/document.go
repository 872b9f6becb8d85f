// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package document reads concept, pattern, and observation documents from
// disk and writes engine results.
package document

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/concept-engine/pkg/types"
)

// ErrUnsupportedFormat is returned for file extensions other than .yaml,
// .yml, and .json, and for unknown output formats.
var ErrUnsupportedFormat = errors.New("unsupported format")

// Output formats for Encode.
const (
	FormatYAML = "yaml"
	FormatJSON = "json"
)

// LoadConcept reads a file holding exactly one concept.
func LoadConcept(path string) (*types.Concept, error) {
	var c types.Concept
	if err := decodeFile(path, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// LoadConcepts reads every path in order. Each file may hold a single
// concept or a list of concepts.
func LoadConcepts(paths ...string) ([]types.Concept, error) {
	var out []types.Concept
	for _, path := range paths {
		data, err := readFile(path)
		if err != nil {
			return nil, err
		}

		if isList(path, data) {
			var list []types.Concept
			if err := decode(path, data, &list); err != nil {
				return nil, err
			}
			out = append(out, list...)
			continue
		}

		var c types.Concept
		if err := decode(path, data, &c); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// LoadPattern reads a pattern document.
func LoadPattern(path string) (*types.Pattern, error) {
	var p types.Pattern
	if err := decodeFile(path, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// LoadObservation reads an observation document.
func LoadObservation(path string) (*types.Observation, error) {
	var obs types.Observation
	if err := decodeFile(path, &obs); err != nil {
		return nil, err
	}
	return &obs, nil
}

// Encode writes v to w as YAML or JSON. JSON output is indented.
func Encode(w io.Writer, v any, format string) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case FormatYAML, "":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
}

func decodeFile(path string, v any) error {
	data, err := readFile(path)
	if err != nil {
		return err
	}
	return decode(path, data, v)
}

func decode(path string, data []byte, v any) error {
	var err error
	if isJSON(path) {
		err = json.Unmarshal(data, v)
	} else {
		err = yaml.Unmarshal(data, v)
	}
	if err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	return nil
}

// isList reports whether the document's top level is a sequence.
func isList(path string, data []byte) bool {
	if isJSON(path) {
		trimmed := bytes.TrimSpace(data)
		return len(trimmed) > 0 && trimmed[0] == '['
	}
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil || len(node.Content) == 0 {
		return false
	}
	return node.Content[0].Kind == yaml.SequenceNode
}

func isJSON(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".json")
}

func readFile(path string) ([]byte, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml", ".json":
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return data, nil
}
