package regression_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MikeSquared-Agency/PromptForge/internal/domain/content"
	"github.com/MikeSquared-Agency/PromptForge/internal/domain/regression"
)

func warningCodes(r regression.Report) []string {
	codes := make([]string, 0, len(r.Warnings))
	for _, w := range r.Warnings {
		codes = append(codes, w.Code)
	}
	return codes
}

func TestCheck_IdentityIsClean(t *testing.T) {
	doc := content.Document{"a": "some text", "b": "more text"}
	report := regression.Check(doc, doc.Clone())

	assert.False(t, report.Warn)
	assert.False(t, report.Block)
	assert.Empty(t, report.KeysRemoved)
	assert.Empty(t, report.Warnings)
	assert.Zero(t, report.ContentReductionPct)
}

func TestCheck_RemovedKeyWarns(t *testing.T) {
	parent := content.Document{"a": "x", "b": "y"}
	candidate := content.Document{"a": "x"}

	report := regression.Check(parent, candidate)

	assert.True(t, report.Warn)
	assert.Equal(t, []string{"b"}, report.KeysRemoved)
	assert.Contains(t, warningCodes(report), "keys_removed")
	assert.InDelta(t, 50.0, report.KeysRemovedPct, 0.01)
	assert.False(t, report.Block, "half the keys removed is warn territory, not block")
}

func TestCheck_EmptiedFieldsReported(t *testing.T) {
	parent := content.Document{"rules": "be careful", "tags": []any{"a"}}
	candidate := content.Document{"rules": "", "tags": []any{}}

	report := regression.Check(parent, candidate)

	assert.ElementsMatch(t, []string{"rules", "tags"}, report.FieldsEmptied)
	assert.Contains(t, warningCodes(report), "fields_emptied")
}

func TestCheck_MassiveReductionBlocks(t *testing.T) {
	parent := content.Document{
		"a": strings.Repeat("x", 200),
		"b": strings.Repeat("y", 200),
	}
	candidate := content.Document{"a": strings.Repeat("x", 20), "b": "y"}

	report := regression.Check(parent, candidate)

	require.True(t, report.Block)
	assert.True(t, report.Warn)
	assert.Greater(t, report.ContentReductionPct, 50.0)
	assert.Contains(t, warningCodes(report), "content_reduction")
}

func TestCheck_MajorityKeysRemovedBlocks(t *testing.T) {
	// Padding keeps byte-size reduction small so the key-removal rule alone
	// triggers the block.
	parent := content.Document{"a": strings.Repeat("x", 100), "b": "1", "c": "2"}
	candidate := content.Document{"a": strings.Repeat("x", 100)}

	report := regression.Check(parent, candidate)

	assert.True(t, report.Block)
	assert.Greater(t, report.KeysRemovedPct, 50.0)
	assert.Less(t, report.ContentReductionPct, 50.0)
}

func TestCheck_GrowthClampsReductionToZero(t *testing.T) {
	parent := content.Document{"a": "short"}
	candidate := content.Document{"a": strings.Repeat("long", 50)}

	report := regression.Check(parent, candidate)

	assert.Zero(t, report.ContentReductionPct)
	assert.False(t, report.Warn)
	assert.False(t, report.Block)
}

func TestCheck_AddedKeysNeverWarn(t *testing.T) {
	parent := content.Document{"a": "x"}
	candidate := content.Document{"a": "x", "b": "new"}

	report := regression.Check(parent, candidate)

	assert.Equal(t, []string{"b"}, report.KeysAdded)
	assert.False(t, report.Warn)
	assert.False(t, report.Block)
}
