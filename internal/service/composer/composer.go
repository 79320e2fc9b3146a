package composer

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/MikeSquared-Agency/PromptForge/internal/domain/content"
	registrysvc "github.com/MikeSquared-Agency/PromptForge/internal/service/registry"
	resolversvc "github.com/MikeSquared-Agency/PromptForge/internal/service/resolver"
)

// ComponentRef records the provenance of one resolved component.
type ComponentRef struct {
	Slug    string `json:"slug"`
	Type    string `json:"type"`
	Version int    `json:"version"`
	Branch  string `json:"branch"`
}

// Manifest is the provenance record emitted alongside an assembled prompt.
type Manifest struct {
	ComposedAt       time.Time         `json:"composed_at"`
	Components       []ComponentRef    `json:"components"`
	VariablesApplied map[string]string `json:"variables_applied"`
	EstimatedTokens  int               `json:"estimated_tokens"`
}

// Result is an assembled prompt plus its manifest and advisory warnings.
type Result struct {
	Prompt   string   `json:"prompt"`
	Manifest Manifest `json:"manifest"`
	Warnings []string `json:"warnings"`
}

// Request names the components to assemble.
type Request struct {
	PersonaSlug     string
	SkillSlugs      []string
	ConstraintSlugs []string
	Variables       map[string]string
	Branch          string
	Strategy        resolversvc.Strategy
}

// Service assembles agent prompts from persona, skill, and constraint
// components, resolving each through the inheritance chain.
// [SRP] Assembly only; resolution belongs to resolver, layering to registry.
type Service struct {
	resolver *resolversvc.Service
	registry *registrysvc.Service
}

func NewService(resolver *resolversvc.Service, registry *registrysvc.Service) *Service {
	return &Service{resolver: resolver, registry: registry}
}

var placeholderRe = regexp.MustCompile(`\{\{(\w+)\}\}`)

// Compose assembles persona -> skills -> constraints, blank-line separated.
// Persona failure is fatal; a skill or constraint that fails to resolve is
// downgraded to a warning and omitted — a mostly-working composition beats
// total failure.
func (s *Service) Compose(ctx context.Context, req Request) (Result, error) {
	branch := req.Branch
	if branch == "" {
		branch = "main"
	}
	variables := req.Variables
	if variables == nil {
		variables = map[string]string{}
	}

	var warnings []string
	var components []ComponentRef
	var pieces []string

	personaText, personaRef, err := s.resolveComponent(ctx, req.PersonaSlug, "persona", branch, req.Strategy)
	if err != nil {
		return Result{}, fmt.Errorf("resolving persona %q: %w", req.PersonaSlug, err)
	}
	components = append(components, personaRef)
	pieces = append(pieces, personaText)

	for _, slug := range req.SkillSlugs {
		text, ref, err := s.resolveComponent(ctx, slug, "skill", branch, req.Strategy)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("failed to resolve skill %q: %v", slug, err))
			continue
		}
		components = append(components, ref)
		pieces = append(pieces, text)
	}
	for _, slug := range req.ConstraintSlugs {
		text, ref, err := s.resolveComponent(ctx, slug, "constraint", branch, req.Strategy)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("failed to resolve constraint %q: %v", slug, err))
			continue
		}
		components = append(components, ref)
		pieces = append(pieces, text)
	}

	text := strings.Join(pieces, "\n\n")
	text = applyVariables(text, variables)

	if unresolved := unresolvedVariables(text); len(unresolved) > 0 {
		warnings = append(warnings, "unresolved variables: "+strings.Join(unresolved, ", "))
	}
	warnings = append(warnings, detectConflicts(pieces)...)

	// Rough heuristic: one token per four characters.
	estimatedTokens := len(text) / 4

	slog.InfoContext(ctx, "compose.assembled",
		"persona", req.PersonaSlug,
		"skills", len(req.SkillSlugs),
		"constraints", len(req.ConstraintSlugs),
		"tokens", estimatedTokens)

	return Result{
		Prompt: text,
		Manifest: Manifest{
			ComposedAt:       time.Now().UTC(),
			Components:       components,
			VariablesApplied: variables,
			EstimatedTokens:  estimatedTokens,
		},
		Warnings: warnings,
	}, nil
}

// resolveComponent resolves a slug for provenance and, separately, its
// effective (inheritance-layered) content for assembly.
func (s *Service) resolveComponent(ctx context.Context, slug, componentType, branch string, strategy resolversvc.Strategy) (string, ComponentRef, error) {
	v, err := s.resolver.Resolve(ctx, slug, branch, nil, strategy)
	if err != nil {
		return "", ComponentRef{}, err
	}

	effective, err := s.registry.EffectiveContent(ctx, slug, branch, nil)
	if err != nil {
		return "", ComponentRef{}, err
	}

	ref := ComponentRef{Slug: slug, Type: componentType, Version: v.Number, Branch: branch}
	return extractText(effective, v.Content), ref, nil
}

// extractText flattens a document to readable text: section bodies joined by
// blank lines, falling back to the resolved version's content when the
// effective document has no sections (flat shape).
func extractText(effective, resolved content.Document) string {
	if sections := effective.Sections(); len(sections) > 0 {
		parts := make([]string, 0, len(sections))
		for _, sec := range sections {
			parts = append(parts, sec.Content)
		}
		return strings.Join(parts, "\n\n")
	}
	if sections := resolved.Sections(); len(sections) > 0 {
		parts := make([]string, 0, len(sections))
		for _, sec := range sections {
			parts = append(parts, sec.Content)
		}
		return strings.Join(parts, "\n\n")
	}
	if text, ok := resolved["text"].(string); ok {
		return text
	}
	return fmt.Sprintf("%v", map[string]any(resolved))
}

func applyVariables(text string, variables map[string]string) string {
	for key, value := range variables {
		text = strings.ReplaceAll(text, "{{"+key+"}}", value)
	}
	return text
}

func unresolvedVariables(text string) []string {
	seen := make(map[string]bool)
	var names []string
	for _, m := range placeholderRe.FindAllStringSubmatch(text, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			names = append(names, m[1])
		}
	}
	return names
}

var formatKeywords = []string{"json", "markdown", "plain text", "xml", "yaml"}

// detectConflicts flags contradictory output-format directives across
// components ("respond in json" vs "respond in markdown").
func detectConflicts(pieces []string) []string {
	found := make(map[string]bool)
	for _, piece := range pieces {
		lower := strings.ToLower(piece)
		for _, format := range formatKeywords {
			if strings.Contains(lower, "respond in "+format) || strings.Contains(lower, "output in "+format) {
				found[format] = true
			}
		}
	}
	if len(found) <= 1 {
		return nil
	}

	formats := make([]string, 0, len(found))
	for f := range found {
		formats = append(formats, f)
	}
	sort.Strings(formats)
	return []string{"conflicting output formats detected: " + strings.Join(formats, ", ")}
}
