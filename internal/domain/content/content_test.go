package content_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MikeSquared-Agency/PromptForge/internal/domain/content"
)

func sectioned(sections ...map[string]any) content.Document {
	raw := make([]any, 0, len(sections))
	for _, s := range sections {
		raw = append(raw, s)
	}
	return content.Document{"sections": raw}
}

func section(id, text string) map[string]any {
	return map[string]any{"id": id, "content": text}
}

// ── Merge ─────────────────────────────────────────────────────────────────────

func TestMerge_EmptyPatchIsIdentity(t *testing.T) {
	base := content.Document{"a": "x", "nested": map[string]any{"b": float64(1)}}
	merged := content.Merge(base, content.Document{})
	assert.Equal(t, base, merged)
}

func TestMerge_NullDeletesKey(t *testing.T) {
	base := content.Document{"a": "x", "b": "y"}

	merged := content.Merge(base, content.Document{"a": nil})
	assert.NotContains(t, merged, "a")
	assert.Equal(t, "y", merged["b"])

	// Deleting an absent key is a no-op, not an error.
	merged = content.Merge(base, content.Document{"missing": nil})
	assert.NotContains(t, merged, "missing")
	assert.Len(t, merged, 2)
}

func TestMerge_NestedObjectsRecurse(t *testing.T) {
	base := content.Document{"cfg": map[string]any{"keep": "1", "change": "old"}}
	patch := content.Document{"cfg": map[string]any{"change": "new", "add": "2"}}

	merged := content.Merge(base, patch)
	cfg := merged["cfg"].(map[string]any)
	assert.Equal(t, "1", cfg["keep"])
	assert.Equal(t, "new", cfg["change"])
	assert.Equal(t, "2", cfg["add"])
}

func TestMerge_ArraysReplaceWholesale(t *testing.T) {
	base := content.Document{"tags": []any{"a", "b", "c"}}
	merged := content.Merge(base, content.Document{"tags": []any{"z"}})
	assert.Equal(t, []any{"z"}, merged["tags"])
}

func TestMerge_DoesNotMutateInputs(t *testing.T) {
	base := content.Document{"cfg": map[string]any{"a": "1"}}
	patch := content.Document{"cfg": map[string]any{"b": "2"}}

	_ = content.Merge(base, patch)

	assert.NotContains(t, base["cfg"].(map[string]any), "b")
	assert.NotContains(t, patch["cfg"].(map[string]any), "a")
}

// ── SectionMerge ──────────────────────────────────────────────────────────────

func TestSectionMerge_SourceWinsTargetOrderPreserved(t *testing.T) {
	target := sectioned(section("intro", "target intro"), section("rules", "target rules"))
	source := sectioned(section("rules", "source rules"), section("extra", "source extra"))

	merged := content.SectionMerge(target, source)
	got := merged.Sections()
	require.Len(t, got, 3)

	assert.Equal(t, "intro", got[0].ID)
	assert.Equal(t, "target intro", got[0].Content)
	assert.Equal(t, "rules", got[1].ID)
	assert.Equal(t, "source rules", got[1].Content, "source wins on id collision")
	assert.Equal(t, "extra", got[2].ID, "source-only sections append after target order")
}

func TestSectionMerge_VariablesSourcePrecedence(t *testing.T) {
	target := content.Document{"sections": []any{}, "variables": map[string]any{"tone": "formal", "lang": "en"}}
	source := content.Document{"sections": []any{}, "variables": map[string]any{"tone": "casual"}}

	merged := content.SectionMerge(target, source)
	vars := merged.Variables()
	assert.Equal(t, "casual", vars["tone"])
	assert.Equal(t, "en", vars["lang"])
}

// ── Document accessors ────────────────────────────────────────────────────────

func TestSections_SkipsMalformedEntries(t *testing.T) {
	doc := content.Document{"sections": []any{
		section("ok", "text"),
		"not an object",
		map[string]any{"content": "no id"},
	}}
	got := doc.Sections()
	require.Len(t, got, 1)
	assert.Equal(t, "ok", got[0].ID)
}

func TestTextLeaves_SectionedDocument(t *testing.T) {
	doc := content.Document{
		"sections":  []any{section("intro", "hello")},
		"variables": map[string]any{"tone": "formal", "count": float64(3)},
	}

	leaves := doc.TextLeaves()
	locations := make(map[string]string, len(leaves))
	for _, l := range leaves {
		locations[l.Location] = l.Text
	}

	assert.Equal(t, "hello", locations["sections.intro"])
	assert.Equal(t, "formal", locations["variables.tone"])
	assert.NotContains(t, locations, "variables.count", "non-string variables are not text leaves")
}

func TestTextLeaves_FlatDocument(t *testing.T) {
	doc := content.Document{"greeting": "hi", "n": float64(1)}
	leaves := doc.TextLeaves()
	require.Len(t, leaves, 1)
	assert.Equal(t, "greeting", leaves[0].Location)
}

func TestClone_IsDeep(t *testing.T) {
	doc := content.Document{"cfg": map[string]any{"a": "1"}}
	clone := doc.Clone()

	clone["cfg"].(map[string]any)["a"] = "changed"
	assert.Equal(t, "1", doc["cfg"].(map[string]any)["a"])
}
