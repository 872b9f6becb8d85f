// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"encoding/json"
	"fmt"
	"strings"

	"go.yaml.in/yaml/v3"
)

// TextList is a list of text fragments that also accepts a single string when
// decoded, since extractors emit nearby text either way.
type TextList []string

// UnmarshalJSON accepts a JSON string or array of strings.
func (t *TextList) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*t = textListOf(single)
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return fmt.Errorf("text list: expected string or array of strings: %w", err)
	}
	*t = many
	return nil
}

// UnmarshalYAML accepts a YAML scalar or sequence of scalars.
func (t *TextList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		*t = textListOf(node.Value)
		return nil
	case yaml.SequenceNode:
		var many []string
		if err := node.Decode(&many); err != nil {
			return fmt.Errorf("text list: %w", err)
		}
		*t = many
		return nil
	default:
		return fmt.Errorf("text list: expected scalar or sequence at line %d", node.Line)
	}
}

// String joins the fragments with single spaces.
func (t TextList) String() string {
	return strings.Join(t, " ")
}

func textListOf(s string) TextList {
	if s == "" {
		return nil
	}
	return TextList{s}
}

// DOMEvidence is the DOM modality of a Candidate.
type DOMEvidence struct {
	// Attrs holds element attributes (autocomplete, name, id, type, ...).
	Attrs map[string]string `json:"attrs,omitempty" yaml:"attrs,omitempty"`

	Role        string   `json:"role,omitempty" yaml:"role,omitempty"`
	Type        string   `json:"type,omitempty" yaml:"type,omitempty"`
	LabelText   string   `json:"label_text,omitempty" yaml:"label_text,omitempty"`
	Placeholder string   `json:"placeholder,omitempty" yaml:"placeholder,omitempty"`
	AriaLabel   string   `json:"aria_label,omitempty" yaml:"aria_label,omitempty"`
	NearbyText  TextList `json:"nearby_text,omitempty" yaml:"nearby_text,omitempty"`

	// Text is the element's own text content. Not part of the text
	// containment haystack; matchers reach it through attrs or labels.
	Text string `json:"text,omitempty" yaml:"text,omitempty"`
}

// Attr returns the named attribute, or "" if absent.
func (d *DOMEvidence) Attr(name string) string {
	if d == nil || d.Attrs == nil {
		return ""
	}
	return d.Attrs[name]
}

// VisionEvidence is the vision modality of a Candidate. OCR tokens are
// extracted upstream.
type VisionEvidence struct {
	OCRNearby []string `json:"ocr_nearby,omitempty" yaml:"ocr_nearby,omitempty"`
}

// Candidate is one observed entity eligible to match a Concept.
type Candidate struct {
	// CandidateID is unique within its Observation.
	CandidateID string `json:"candidate_id" yaml:"candidate_id" validate:"required"`

	DOM    *DOMEvidence    `json:"dom,omitempty" yaml:"dom,omitempty"`
	Vision *VisionEvidence `json:"vision,omitempty" yaml:"vision,omitempty"`
}

// Observation is the ordered set of candidates from one page or scene.
type Observation struct {
	PageID     string      `json:"page_id" yaml:"page_id"`
	Candidates []Candidate `json:"candidates" yaml:"candidates" validate:"dive"`
}
