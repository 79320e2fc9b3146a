// Package scan is the pre-commit injection gate. It pattern-matches every
// textual leaf of a document against known prompt-injection families and
// reports findings; it never mutates content. False negatives are expected —
// this is a gate against obvious attacks, not a content classifier.
package scan

import (
	"encoding/base64"
	"fmt"
	"regexp"
	"strings"

	"github.com/MikeSquared-Agency/PromptForge/internal/domain/content"
)

type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

var severityRank = map[Severity]int{
	SeverityLow:      0,
	SeverityMedium:   1,
	SeverityHigh:     2,
	SeverityCritical: 3,
}

// Exceeds reports whether s is strictly more severe than other.
func (s Severity) Exceeds(other Severity) bool {
	return severityRank[s] > severityRank[other]
}

// Finding is a single matched pattern.
type Finding struct {
	PatternName string   `json:"pattern_name"`
	MatchedText string   `json:"matched_text"`
	Location    string   `json:"location"`
	Severity    Severity `json:"severity"`
	Description string   `json:"description"`
}

// Result of scanning a document. RiskLevel is the maximum severity observed,
// defaulting to low; Clean iff there are no findings at all.
type Result struct {
	Clean     bool      `json:"clean"`
	Findings  []Finding `json:"findings"`
	RiskLevel Severity  `json:"risk_level"`
}

type pattern struct {
	name        string
	re          *regexp.Regexp
	severity    Severity
	description string
}

// The three pattern families. Patterns match on lowercased text.
var instructionOverridePatterns = []pattern{
	{"ignore_previous", regexp.MustCompile(`ignore\s+(all\s+)?previous\s+instructions`), SeverityCritical, "Attempts to override previous instructions"},
	{"disregard_above", regexp.MustCompile(`disregard\s+(everything\s+)?(above|previous)`), SeverityCritical, "Attempts to disregard prior context"},
	{"forget_everything", regexp.MustCompile(`forget\s+everything`), SeverityCritical, "Attempts to clear instruction memory"},
	{"new_instructions", regexp.MustCompile(`new\s+instructions\s*:`), SeverityCritical, "Injects new instructions"},
	{"system_prompt_override", regexp.MustCompile(`system\s+prompt\s+override`), SeverityCritical, "Attempts to override system prompt"},
}

var roleManipulationPatterns = []pattern{
	{"you_are_now", regexp.MustCompile(`you\s+are\s+now\b`), SeverityHigh, "Attempts to redefine the assistant's role"},
	{"pretend_you_are", regexp.MustCompile(`pretend\s+(that\s+)?you\s+are`), SeverityHigh, "Attempts role manipulation via pretending"},
	{"act_as_if_instructions", regexp.MustCompile(`act\s+as\s+if\s+your\s+instructions`), SeverityHigh, "Attempts to manipulate instruction interpretation"},
}

var dataExfiltrationPatterns = []pattern{
	{"repeat_system_prompt", regexp.MustCompile(`repeat\s+your\s+system\s+prompt`), SeverityCritical, "Attempts to extract system prompt"},
	{"output_instructions", regexp.MustCompile(`output\s+your\s+instructions`), SeverityCritical, "Attempts to extract instructions"},
	{"what_were_you_told", regexp.MustCompile(`what\s+were\s+you\s+told`), SeverityHigh, "Attempts to extract instructions"},
}

var (
	zeroWidthRe = regexp.MustCompile("[\u200b\u200c\u200d\u2060\ufeff]")
	base64Re    = regexp.MustCompile(`[A-Za-z0-9+/]{20,}={0,2}`)
	codeBlockRe = regexp.MustCompile("```[\\s\\S]*?```")
	tagInnerRe  = regexp.MustCompile(`<[^>]+>([^<]+)</[^>]+>`)
)

var suspiciousKeywords = []string{"ignore", "instructions", "system prompt", "you are now"}

var delimiterKeywords = []string{"ignore previous", "new instructions", "system prompt"}

// lenientSections are section ids where persona-style phrasing ("you are
// now a helpful assistant") is legitimate; only critical findings survive.
var lenientSections = map[string]bool{"persona": true, "identity": true}

// Scanner scans documents for injection attempts.
type Scanner struct{}

func NewScanner() *Scanner {
	return &Scanner{}
}

// Scan runs all checks over every textual leaf of the document.
func (s *Scanner) Scan(doc content.Document) Result {
	var findings []Finding

	for _, leaf := range doc.TextLeaves() {
		leafFindings := s.ScanText(leaf.Text, leaf.Location)

		if id, ok := strings.CutPrefix(leaf.Location, "sections."); ok && lenientSections[id] {
			kept := leafFindings[:0]
			for _, f := range leafFindings {
				if f.Severity == SeverityCritical {
					kept = append(kept, f)
				}
			}
			leafFindings = kept
		}

		findings = append(findings, leafFindings...)
	}

	risk := SeverityLow
	for _, f := range findings {
		if f.Severity.Exceeds(risk) {
			risk = f.Severity
		}
	}

	return Result{
		Clean:     len(findings) == 0,
		Findings:  findings,
		RiskLevel: risk,
	}
}

// ScanText scans a single piece of text, reporting findings at location.
func (s *Scanner) ScanText(text, location string) []Finding {
	var findings []Finding
	lower := strings.ToLower(text)

	for _, family := range [][]pattern{instructionOverridePatterns, roleManipulationPatterns, dataExfiltrationPatterns} {
		for _, p := range family {
			if match := p.re.FindString(lower); match != "" {
				findings = append(findings, Finding{
					PatternName: p.name,
					MatchedText: match,
					Location:    location,
					Severity:    p.severity,
					Description: p.description,
				})
			}
		}
	}

	findings = append(findings, checkEncodingTricks(text, location)...)
	findings = append(findings, checkDelimiterAttacks(text, location)...)
	return findings
}

func checkEncodingTricks(text, location string) []Finding {
	var findings []Finding

	if hidden := zeroWidthRe.FindAllString(text, -1); len(hidden) > 0 {
		findings = append(findings, Finding{
			PatternName: "zero_width_chars",
			MatchedText: fmt.Sprintf("Found %d zero-width character(s)", len(hidden)),
			Location:    location,
			Severity:    SeverityMedium,
			Description: "Zero-width characters detected, may hide injected content",
		})
	}

	for _, token := range base64Re.FindAllString(text, -1) {
		decoded, err := base64.StdEncoding.DecodeString(token)
		if err != nil {
			decoded, err = base64.RawStdEncoding.DecodeString(token)
			if err != nil {
				continue
			}
		}
		lower := strings.ToLower(string(decoded))
		if containsAny(lower, suspiciousKeywords) {
			findings = append(findings, Finding{
				PatternName: "base64_injection",
				MatchedText: truncate(token, 40) + "...",
				Location:    location,
				Severity:    SeverityHigh,
				Description: "Base64-encoded suspicious content detected",
			})
		}
	}

	return findings
}

func checkDelimiterAttacks(text, location string) []Finding {
	var findings []Finding

	for _, block := range codeBlockRe.FindAllString(text, -1) {
		inner := strings.ToLower(strings.Trim(block, "`"))
		if containsAny(inner, delimiterKeywords) {
			findings = append(findings, Finding{
				PatternName: "code_block_injection",
				MatchedText: truncate(block, 60) + "...",
				Location:    location,
				Severity:    SeverityHigh,
				Description: "Instructions hidden in code block",
			})
		}
	}

	for _, m := range tagInnerRe.FindAllStringSubmatch(text, -1) {
		inner := strings.ToLower(m[1])
		if containsAny(inner, delimiterKeywords) {
			findings = append(findings, Finding{
				PatternName: "tag_injection",
				MatchedText: truncate(m[1], 60),
				Location:    location,
				Severity:    SeverityHigh,
				Description: "Instructions hidden in XML/HTML tags",
			})
		}
	}

	return findings
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// BlockedError is returned when a commit is rejected because scanning found
// critical-severity injection attempts. The hard gate with no override.
type BlockedError struct {
	Findings []Finding
}

func (e *BlockedError) Error() string {
	details := make([]string, len(e.Findings))
	for i, f := range e.Findings {
		details[i] = f.PatternName + ": " + f.Description
	}
	return "critical injection findings detected: " + strings.Join(details, "; ")
}
