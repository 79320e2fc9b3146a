// Package regression implements the heuristic guard that flags candidate
// versions which look like accidental content loss relative to their parent.
package regression

import (
	"fmt"
	"sort"

	"github.com/MikeSquared-Agency/PromptForge/internal/domain/content"
)

// Fixed policy thresholds. Deliberately not configurable per call — the guard
// is a fleet-wide safety net, not a tunable.
const (
	warnReductionPct  = 20.0
	blockReductionPct = 50.0
	blockKeysPct      = 50.0
)

// Warning is one triggered guard condition with a machine-readable detail
// and a human message.
type Warning struct {
	Code    string `json:"code"`
	Detail  any    `json:"detail"`
	Message string `json:"message"`
}

// Report is the outcome of comparing a candidate document to its parent.
// Block is advisory: callers honour it unless the author explicitly
// acknowledges the reduction, in which case the warnings still attach to
// the committed result.
type Report struct {
	KeysRemoved         []string  `json:"keys_removed"`
	KeysAdded           []string  `json:"keys_added"`
	FieldsEmptied       []string  `json:"fields_emptied"`
	ContentReductionPct float64   `json:"content_reduction_pct"`
	KeysRemovedPct      float64   `json:"keys_removed_pct"`
	Warn                bool      `json:"warn"`
	Block               bool      `json:"block"`
	Warnings            []Warning `json:"warnings"`
}

// Check compares candidate against parent. Identity is never a regression.
func Check(parent, candidate content.Document) Report {
	report := Report{
		KeysRemoved:   keyDifference(parent, candidate),
		KeysAdded:     keyDifference(candidate, parent),
		FieldsEmptied: emptiedFields(parent, candidate),
	}

	parentSize := content.SerializedSize(parent)
	candidateSize := content.SerializedSize(candidate)
	if parentSize > 0 && candidateSize < parentSize {
		report.ContentReductionPct = round1(float64(parentSize-candidateSize) / float64(parentSize) * 100)
	}
	if len(parent) > 0 {
		report.KeysRemovedPct = round1(float64(len(report.KeysRemoved)) / float64(len(parent)) * 100)
	}

	report.Warn = len(report.KeysRemoved) > 0 || report.ContentReductionPct > warnReductionPct
	report.Block = report.ContentReductionPct > blockReductionPct || report.KeysRemovedPct > blockKeysPct

	if len(report.KeysRemoved) > 0 {
		report.Warnings = append(report.Warnings, Warning{
			Code:   "keys_removed",
			Detail: report.KeysRemoved,
			Message: fmt.Sprintf("%d field(s) removed relative to the previous version: %v",
				len(report.KeysRemoved), report.KeysRemoved),
		})
	}
	if len(report.FieldsEmptied) > 0 {
		report.Warnings = append(report.Warnings, Warning{
			Code:   "fields_emptied",
			Detail: report.FieldsEmptied,
			Message: fmt.Sprintf("%d field(s) emptied relative to the previous version: %v",
				len(report.FieldsEmptied), report.FieldsEmptied),
		})
	}
	if report.ContentReductionPct > warnReductionPct {
		report.Warnings = append(report.Warnings, Warning{
			Code:   "content_reduction",
			Detail: report.ContentReductionPct,
			Message: fmt.Sprintf("content shrank by %.1f%% relative to the previous version",
				report.ContentReductionPct),
		})
	}

	return report
}

// keyDifference returns keys of a that are absent from b, sorted.
func keyDifference(a, b content.Document) []string {
	var diff []string
	for k := range a {
		if _, ok := b[k]; !ok {
			diff = append(diff, k)
		}
	}
	sort.Strings(diff)
	return diff
}

// emptiedFields returns keys present in both documents where the parent value
// was truthy and the candidate value is an empty string or array.
func emptiedFields(parent, candidate content.Document) []string {
	var emptied []string
	for k, oldVal := range parent {
		newVal, ok := candidate[k]
		if !ok || !truthy(oldVal) {
			continue
		}
		switch v := newVal.(type) {
		case string:
			if v == "" {
				emptied = append(emptied, k)
			}
		case []any:
			if len(v) == 0 {
				emptied = append(emptied, k)
			}
		}
	}
	sort.Strings(emptied)
	return emptied
}

func truthy(v any) bool {
	switch val := v.(type) {
	case nil:
		return false
	case string:
		return val != ""
	case bool:
		return val
	case float64:
		return val != 0
	case []any:
		return len(val) > 0
	case map[string]any:
		return len(val) > 0
	default:
		return true
	}
}

func round1(f float64) float64 {
	return float64(int(f*10+0.5)) / 10
}
