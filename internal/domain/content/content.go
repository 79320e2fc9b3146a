package content

import "encoding/json"

// Document is semi-structured prompt content. Two shapes occur in practice:
// the sectioned shape ({sections: [{id, label, content}], variables, metadata})
// and a flat key/value object. Nothing here assumes one shape — callers probe
// via Sections / IsSectioned and fall back to top-level keys.
type Document map[string]any

// Section is one ordered unit of a sectioned document.
type Section struct {
	ID      string `json:"id"`
	Label   string `json:"label,omitempty"`
	Content string `json:"content"`
}

// IsSectioned reports whether the document follows the sections convention.
func (d Document) IsSectioned() bool {
	_, ok := d["sections"].([]any)
	return ok
}

// Sections returns the document's sections in order. Entries that are not
// objects or lack an id are skipped rather than erroring — content arrives
// from callers the store has already accepted.
func (d Document) Sections() []Section {
	raw, ok := d["sections"].([]any)
	if !ok {
		return nil
	}
	sections := make([]Section, 0, len(raw))
	for _, item := range raw {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		id, ok := m["id"].(string)
		if !ok || id == "" {
			continue
		}
		s := Section{ID: id}
		if label, ok := m["label"].(string); ok {
			s.Label = label
		}
		if text, ok := m["content"].(string); ok {
			s.Content = text
		}
		sections = append(sections, s)
	}
	return sections
}

// SectionMap returns sections keyed by id, preserving the raw section objects
// so fields beyond id/label/content survive a round trip through merge.
func (d Document) SectionMap() map[string]map[string]any {
	raw, ok := d["sections"].([]any)
	if !ok {
		return nil
	}
	out := make(map[string]map[string]any, len(raw))
	for _, item := range raw {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		id, ok := m["id"].(string)
		if !ok || id == "" {
			continue
		}
		out[id] = m
	}
	return out
}

// Variables returns the variables map, or nil for flat documents.
func (d Document) Variables() map[string]any {
	m, _ := d["variables"].(map[string]any)
	return m
}

// Metadata returns the metadata map, or nil.
func (d Document) Metadata() map[string]any {
	m, _ := d["metadata"].(map[string]any)
	return m
}

// Keys returns the top-level keys, unordered.
func (d Document) Keys() []string {
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	return keys
}

// TextLeaf is a reachable piece of textual content paired with its location
// path (e.g. "sections.constraints", "variables.tone", or a top-level key for
// flat documents).
type TextLeaf struct {
	Location string
	Text     string
}

// TextLeaves walks the document and returns every textual leaf. Sectioned
// documents yield section bodies and string variables; flat documents yield
// every top-level string value. This is the surface the injection scanner
// operates on.
func (d Document) TextLeaves() []TextLeaf {
	if d.IsSectioned() {
		var leaves []TextLeaf
		for _, s := range d.Sections() {
			leaves = append(leaves, TextLeaf{Location: "sections." + s.ID, Text: s.Content})
		}
		for key, val := range d.Variables() {
			if text, ok := val.(string); ok {
				leaves = append(leaves, TextLeaf{Location: "variables." + key, Text: text})
			}
		}
		return leaves
	}

	var leaves []TextLeaf
	for key, val := range d {
		if text, ok := val.(string); ok {
			leaves = append(leaves, TextLeaf{Location: key, Text: text})
		}
	}
	return leaves
}

// SerializedSize is the JSON-encoded byte length of v. Used for regression
// percentages and field-diff length annotations — a cheap, format-agnostic
// proxy for "how much content is here".
func SerializedSize(v any) int {
	data, err := json.Marshal(v)
	if err != nil {
		return 0
	}
	return len(data)
}

// Clone returns a deep copy via a JSON round trip. Documents are
// JSON-decoded maps by construction, so no information is lost.
func (d Document) Clone() Document {
	if d == nil {
		return nil
	}
	data, err := json.Marshal(d)
	if err != nil {
		return Document{}
	}
	var out Document
	if err := json.Unmarshal(data, &out); err != nil {
		return Document{}
	}
	return out
}
