package ingestion

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html"
	"strings"

	"github.com/coreybb/versefeed/models"
	"github.com/microcosm-cc/bluemonday"
)

// flatWrapperKey is the field some translation dumps wrap their array in.
const flatWrapperKey = "quran"

// TextCleaner strips markup from source text so only plain text reaches
// records and cards.
type TextCleaner struct {
	stripTagsPolicy *bluemonday.Policy
}

func NewTextCleaner() *TextCleaner {
	return &TextCleaner{stripTagsPolicy: bluemonday.StripTagsPolicy()}
}

// Clean removes tags, then undoes the entity escaping the policy applies.
func (c *TextCleaner) Clean(s string) string {
	if s == "" {
		return ""
	}
	return strings.TrimSpace(html.UnescapeString(c.stripTagsPolicy.Sanitize(s)))
}

// DecodeGroups parses the nested primary source and validates its ordinals.
func DecodeGroups(data []byte, cleaner *TextCleaner) ([]models.RawGroup, error) {
	var groups []models.RawGroup
	if err := json.Unmarshal(data, &groups); err != nil {
		return nil, fmt.Errorf("invalid primary source JSON: %w", err)
	}
	if len(groups) == 0 {
		return nil, fmt.Errorf("primary source contains no groups")
	}

	for gi := range groups {
		g := &groups[gi]
		if g.Ordinal < 1 {
			return nil, fmt.Errorf("group at position %d has invalid ordinal %d", gi, g.Ordinal)
		}
		g.Name = cleaner.Clean(g.Name)

		seen := make(map[int]struct{}, len(g.Verses))
		for vi := range g.Verses {
			v := &g.Verses[vi]
			if v.Ordinal < 1 {
				return nil, fmt.Errorf("verse at position %d of group %d has invalid ordinal %d", vi, g.Ordinal, v.Ordinal)
			}
			if _, dup := seen[v.Ordinal]; dup {
				return nil, fmt.Errorf("group %d repeats verse ordinal %d", g.Ordinal, v.Ordinal)
			}
			seen[v.Ordinal] = struct{}{}

			v.Text = cleaner.Clean(v.Text)
			v.Translation = cleaner.Clean(v.Translation)
			if v.Text == "" {
				return nil, fmt.Errorf("verse %d:%d has empty primary text", g.Ordinal, v.Ordinal)
			}
		}
	}
	return groups, nil
}

// DecodeFlat parses the flat translation source. It accepts a bare array or
// an object wrapping the array, either as its only field or under "quran".
func DecodeFlat(data []byte, cleaner *TextCleaner) ([]models.RawFlatItem, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("secondary source is empty")
	}

	payload := trimmed
	if trimmed[0] == '{' {
		var wrapper map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &wrapper); err != nil {
			return nil, fmt.Errorf("invalid secondary source JSON: %w", err)
		}
		inner, ok := unwrapFlat(wrapper)
		if !ok {
			return nil, fmt.Errorf("secondary source object must hold a single array field or %q", flatWrapperKey)
		}
		payload = inner
	}

	var items []models.RawFlatItem
	if err := json.Unmarshal(payload, &items); err != nil {
		return nil, fmt.Errorf("invalid secondary source JSON: %w", err)
	}
	for i := range items {
		items[i].Text = cleaner.Clean(items[i].Text)
	}
	return items, nil
}

func unwrapFlat(wrapper map[string]json.RawMessage) (json.RawMessage, bool) {
	if inner, ok := wrapper[flatWrapperKey]; ok {
		return inner, true
	}
	if len(wrapper) != 1 {
		return nil, false
	}
	for _, inner := range wrapper {
		return inner, true
	}
	return nil, false
}
