package diff

import (
	"fmt"
	"sort"
	"strings"

	"github.com/MikeSquared-Agency/PromptForge/internal/domain/content"
)

type ChangeType string

const (
	ChangeAdded    ChangeType = "added"
	ChangeRemoved  ChangeType = "removed"
	ChangeModified ChangeType = "modified"
)

// SectionChange is one entry in a structural diff. For added/removed sections
// Content carries the section body; for modified sections Before/After carry
// the two bodies and Similarity a 0..1 text-similarity ratio (display only,
// never used for gating). Variable and metadata changes appear as single
// modified entries under the synthetic ids "_variables" / "_metadata" with
// the whole before/after maps.
type SectionChange struct {
	SectionID  string     `json:"section_id"`
	Type       ChangeType `json:"type"`
	Content    string     `json:"content,omitempty"`
	Before     any        `json:"before,omitempty"`
	After      any        `json:"after,omitempty"`
	Similarity float64    `json:"similarity,omitempty"`
}

// StructuralResult is a section-granular diff between two documents.
type StructuralResult struct {
	Changes []SectionChange `json:"changes"`
	Summary string          `json:"summary"`
}

// Structural compares two documents at section granularity. Sections are
// matched by id; order changes alone are not reported.
func Structural(old, new content.Document) StructuralResult {
	oldSections := old.Sections()
	newByID := make(map[string]content.Section)
	for _, s := range new.Sections() {
		newByID[s.ID] = s
	}
	oldByID := make(map[string]content.Section, len(oldSections))

	var changes []SectionChange

	for _, oldSec := range oldSections {
		oldByID[oldSec.ID] = oldSec
		newSec, ok := newByID[oldSec.ID]
		if !ok {
			changes = append(changes, SectionChange{
				SectionID: oldSec.ID,
				Type:      ChangeRemoved,
				Content:   oldSec.Content,
			})
			continue
		}
		if oldSec.Content != newSec.Content {
			changes = append(changes, SectionChange{
				SectionID:  oldSec.ID,
				Type:       ChangeModified,
				Before:     oldSec.Content,
				After:      newSec.Content,
				Similarity: similarity(oldSec.Content, newSec.Content),
			})
		}
	}

	for _, newSec := range new.Sections() {
		if _, ok := oldByID[newSec.ID]; !ok {
			changes = append(changes, SectionChange{
				SectionID: newSec.ID,
				Type:      ChangeAdded,
				Content:   newSec.Content,
			})
		}
	}

	// Variables and metadata are compared as whole objects: one modified
	// entry with full before/after, not a field-by-field walk.
	if !mapsEqual(old.Variables(), new.Variables()) {
		changes = append(changes, SectionChange{
			SectionID: "_variables",
			Type:      ChangeModified,
			Before:    old.Variables(),
			After:     new.Variables(),
		})
	}
	if !mapsEqual(old.Metadata(), new.Metadata()) {
		changes = append(changes, SectionChange{
			SectionID: "_metadata",
			Type:      ChangeModified,
			Before:    old.Metadata(),
			After:     new.Metadata(),
		})
	}

	return StructuralResult{Changes: changes, Summary: summarize(changes)}
}

func summarize(changes []SectionChange) string {
	var added, removed, modified int
	for _, c := range changes {
		switch c.Type {
		case ChangeAdded:
			added++
		case ChangeRemoved:
			removed++
		case ChangeModified:
			modified++
		}
	}

	var parts []string
	if added > 0 {
		parts = append(parts, fmt.Sprintf("%d section(s) added", added))
	}
	if removed > 0 {
		parts = append(parts, fmt.Sprintf("%d section(s) removed", removed))
	}
	if modified > 0 {
		parts = append(parts, fmt.Sprintf("%d section(s) modified", modified))
	}
	if len(parts) == 0 {
		return "No changes"
	}
	return strings.Join(parts, ", ")
}

// FieldChange is one entry in a field-level diff. FromLength/ToLength are
// serialized sizes of the two values — not a text diff — so the comparison
// stays format-agnostic.
type FieldChange struct {
	Field      string     `json:"field"`
	Action     ChangeType `json:"action"`
	FromLength int        `json:"from_length,omitempty"`
	ToLength   int        `json:"to_length,omitempty"`
}

// FieldSummary counts per-action fields plus the signed total-size change
// percentage (negative means the document shrank).
type FieldSummary struct {
	Added            int     `json:"added"`
	Removed          int     `json:"removed"`
	Modified         int     `json:"modified"`
	Unchanged        int     `json:"unchanged"`
	ContentChangePct float64 `json:"content_change_pct"`
}

// FieldResult is a top-level key comparison between two versions.
type FieldResult struct {
	FromVersion int           `json:"from_version"`
	ToVersion   int           `json:"to_version"`
	Changes     []FieldChange `json:"changes"`
	Summary     FieldSummary  `json:"summary"`
}

// Fields compares top-level keys between two documents, regardless of shape.
// Removed keys come first, then added, then modified, each sorted ascending.
func Fields(old, new content.Document, fromVersion, toVersion int) FieldResult {
	var changes []FieldChange
	summary := FieldSummary{}

	for _, key := range sortedKeys(old) {
		if _, ok := new[key]; !ok {
			changes = append(changes, FieldChange{Field: key, Action: ChangeRemoved})
			summary.Removed++
		}
	}
	for _, key := range sortedKeys(new) {
		if _, ok := old[key]; !ok {
			changes = append(changes, FieldChange{Field: key, Action: ChangeAdded})
			summary.Added++
		}
	}
	for _, key := range sortedKeys(old) {
		newVal, ok := new[key]
		if !ok {
			continue
		}
		oldVal := old[key]
		if valuesEqual(oldVal, newVal) {
			summary.Unchanged++
			continue
		}
		changes = append(changes, FieldChange{
			Field:      key,
			Action:     ChangeModified,
			FromLength: content.SerializedSize(oldVal),
			ToLength:   content.SerializedSize(newVal),
		})
		summary.Modified++
	}

	oldTotal := content.SerializedSize(old)
	newTotal := content.SerializedSize(new)
	if oldTotal > 0 {
		summary.ContentChangePct = round1(float64(newTotal-oldTotal) / float64(oldTotal) * 100)
	}

	return FieldResult{
		FromVersion: fromVersion,
		ToVersion:   toVersion,
		Changes:     changes,
		Summary:     summary,
	}
}

func sortedKeys(d content.Document) []string {
	keys := d.Keys()
	sort.Strings(keys)
	return keys
}

func round1(f float64) float64 {
	if f >= 0 {
		return float64(int(f*10+0.5)) / 10
	}
	return -float64(int(-f*10+0.5)) / 10
}
