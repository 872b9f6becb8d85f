// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package evaluate

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"github.com/pdiddy/concept-engine/pkg/types"
)

// Built-in evaluator names.
const (
	AttrIn            = "dom.attr_in"
	TextContainsAny   = "dom.text_contains_any"
	RoleIs            = "dom.role_is"
	TypeIs            = "dom.type_is"
	OCRNearbyContains = "vision.ocr_nearby_contains"
)

func registerBuiltins(r *Registry) {
	r.Register(AttrIn, attrIn)
	r.Register(TextContainsAny, textContainsAny)
	r.Register(RoleIs, roleIs)
	r.Register(TypeIs, typeIs)
	r.Register(OCRNearbyContains, ocrNearbyContains)
}

// attrIn scores 1 when dom.attrs[attr] is one of values.
// Params: attr string, values []string.
func attrIn(c *types.Candidate, params map[string]any) float64 {
	v := fold(domOf(c).Attr(stringParam(params, "attr")))
	if v == "" {
		return 0
	}
	for _, want := range stringsParam(params, "values") {
		if fold(want) == v {
			return 1
		}
	}
	return 0
}

// textContainsAny scores 1 when any term occurs in the candidate's textual
// fields. Params: terms []string.
func textContainsAny(c *types.Candidate, params map[string]any) float64 {
	d := domOf(c)
	if d == nil {
		return 0
	}
	fields := []string{
		d.LabelText,
		d.Placeholder,
		d.AriaLabel,
		d.NearbyText.String(),
		d.Attr("name"),
		d.Attr("id"),
	}
	return containsAny(fields, stringsParam(params, "terms"))
}

// roleIs scores 1 when dom.role equals role.
// Params: role string.
func roleIs(c *types.Candidate, params map[string]any) float64 {
	var role string
	if d := domOf(c); d != nil {
		role = d.Role
	}
	if fold(role) == fold(stringParam(params, "role")) {
		return 1
	}
	return 0
}

// typeIs scores 1 when dom.type (or dom.attrs.type) is an accepted type.
// Params: types []string, or type as a string or list.
func typeIs(c *types.Candidate, params map[string]any) float64 {
	d := domOf(c)
	if d == nil {
		return 0
	}
	observed := d.Type
	if observed == "" {
		observed = d.Attr("type")
	}
	if observed == "" {
		return 0
	}

	key := "types"
	if _, ok := params[key]; !ok {
		key = "type"
	}
	observed = fold(observed)
	for _, want := range stringsParam(params, key) {
		if fold(want) == observed {
			return 1
		}
	}
	return 0
}

// ocrNearbyContains scores 1 when any term occurs in the OCR tokens near a
// vision candidate. Params: terms []string.
func ocrNearbyContains(c *types.Candidate, params map[string]any) float64 {
	if c == nil || c.Vision == nil {
		return 0
	}
	return containsAny(c.Vision.OCRNearby, stringsParam(params, "terms"))
}

func domOf(c *types.Candidate) *types.DOMEvidence {
	if c == nil {
		return nil
	}
	return c.DOM
}

func containsAny(fields, terms []string) float64 {
	var parts []string
	for _, f := range fields {
		if f != "" {
			parts = append(parts, f)
		}
	}
	hay := fold(strings.Join(parts, " "))
	for _, t := range terms {
		if strings.Contains(hay, fold(t)) {
			return 1
		}
	}
	return 0
}

// fold NFKC-normalizes and case-folds s for caseless comparison. A fresh
// Caser is used per call because Casers are not safe for concurrent use.
func fold(s string) string {
	if s == "" {
		return ""
	}
	return cases.Fold().String(norm.NFKC.String(s))
}

func stringParam(params map[string]any, key string) string {
	v, ok := params[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// stringsParam reads a list param. A scalar becomes a one-element list.
func stringsParam(params map[string]any, key string) []string {
	switch v := params[key].(type) {
	case nil:
		return nil
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if item == nil {
				continue
			}
			if s, ok := item.(string); ok {
				out = append(out, s)
			} else {
				out = append(out, fmt.Sprint(item))
			}
		}
		return out
	case string:
		return []string{v}
	default:
		return []string{fmt.Sprint(v)}
	}
}
