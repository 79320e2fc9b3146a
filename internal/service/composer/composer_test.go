package composer_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MikeSquared-Agency/PromptForge/internal/adapter/memory"
	"github.com/MikeSquared-Agency/PromptForge/internal/domain/content"
	domainprompt "github.com/MikeSquared-Agency/PromptForge/internal/domain/prompt"
	"github.com/MikeSquared-Agency/PromptForge/internal/domain/scan"
	composersvc "github.com/MikeSquared-Agency/PromptForge/internal/service/composer"
	registrysvc "github.com/MikeSquared-Agency/PromptForge/internal/service/registry"
	resolversvc "github.com/MikeSquared-Agency/PromptForge/internal/service/resolver"
	vcssvc "github.com/MikeSquared-Agency/PromptForge/internal/service/vcs"
)

type fixture struct {
	registry *registrysvc.Service
	composer *composersvc.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	bus := memory.NewEventBus()
	vcs := vcssvc.NewService(store, scan.NewScanner(), memory.NewLocker(), bus)
	registry := registrysvc.NewService(store, bus)
	resolver := resolversvc.NewService(store, vcs)
	return &fixture{
		registry: registry,
		composer: composersvc.NewService(resolver, registry),
	}
}

func (f *fixture) seed(t *testing.T, slug string, promptType domainprompt.Type, text string) {
	t.Helper()
	_, err := f.registry.Create(context.Background(), registrysvc.CreateParams{
		Slug: slug, Name: slug, Type: promptType,
		InitialContent: content.Document{
			"sections": []any{map[string]any{"id": "body", "content": text}},
		},
	})
	require.NoError(t, err)
}

func TestCompose_AssemblyOrder(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seed(t, "reviewer", domainprompt.TypePersona, "You review code.")
	f.seed(t, "sql", domainprompt.TypeSkill, "You know SQL.")
	f.seed(t, "no-secrets", domainprompt.TypeConstraint, "Never echo credentials.")

	result, err := f.composer.Compose(ctx, composersvc.Request{
		PersonaSlug:     "reviewer",
		SkillSlugs:      []string{"sql"},
		ConstraintSlugs: []string{"no-secrets"},
	})
	require.NoError(t, err)

	assert.Equal(t, "You review code.\n\nYou know SQL.\n\nNever echo credentials.", result.Prompt)
	assert.Empty(t, result.Warnings)

	require.Len(t, result.Manifest.Components, 3)
	assert.Equal(t, composersvc.ComponentRef{Slug: "reviewer", Type: "persona", Version: 1, Branch: "main"}, result.Manifest.Components[0])
	assert.Equal(t, "skill", result.Manifest.Components[1].Type)
	assert.Equal(t, "constraint", result.Manifest.Components[2].Type)
	assert.Equal(t, len(result.Prompt)/4, result.Manifest.EstimatedTokens)
}

func TestCompose_MissingPersonaIsFatal(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.composer.Compose(ctx, composersvc.Request{PersonaSlug: "ghost"})
	require.Error(t, err)
	assert.ErrorIs(t, err, domainprompt.ErrNotFound)
	assert.Contains(t, err.Error(), `resolving persona "ghost"`)
}

func TestCompose_MissingSkillDowngradesToWarning(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seed(t, "reviewer", domainprompt.TypePersona, "You review code.")

	result, err := f.composer.Compose(ctx, composersvc.Request{
		PersonaSlug: "reviewer",
		SkillSlugs:  []string{"ghost-skill"},
	})
	require.NoError(t, err)
	assert.Equal(t, "You review code.", result.Prompt)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], `failed to resolve skill "ghost-skill"`)
	assert.Len(t, result.Manifest.Components, 1, "the missing component is omitted, not stubbed")
}

func TestCompose_VariableSubstitution(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seed(t, "reviewer", domainprompt.TypePersona, "Review {{language}} code in a {{tone}} tone.")

	result, err := f.composer.Compose(ctx, composersvc.Request{
		PersonaSlug: "reviewer",
		Variables:   map[string]string{"language": "Go", "tone": "direct"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Review Go code in a direct tone.", result.Prompt)
	assert.Empty(t, result.Warnings)
	assert.Equal(t, map[string]string{"language": "Go", "tone": "direct"}, result.Manifest.VariablesApplied)
}

func TestCompose_UnresolvedVariablesWarn(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seed(t, "reviewer", domainprompt.TypePersona, "Review {{language}} code for {{audience}}.")

	result, err := f.composer.Compose(ctx, composersvc.Request{
		PersonaSlug: "reviewer",
		Variables:   map[string]string{"language": "Go"},
	})
	require.NoError(t, err)
	assert.Contains(t, result.Prompt, "{{audience}}", "unresolved placeholders stay in the text")
	require.Len(t, result.Warnings, 1)
	assert.Equal(t, "unresolved variables: audience", result.Warnings[0])
}

func TestCompose_ConflictingFormatDirectives(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seed(t, "reviewer", domainprompt.TypePersona, "Always respond in markdown.")
	f.seed(t, "api-skill", domainprompt.TypeSkill, "Respond in JSON when calling tools.")

	result, err := f.composer.Compose(ctx, composersvc.Request{
		PersonaSlug: "reviewer",
		SkillSlugs:  []string{"api-skill"},
	})
	require.NoError(t, err)
	require.Len(t, result.Warnings, 1)
	assert.Equal(t, "conflicting output formats detected: json, markdown", result.Warnings[0])
}

func TestCompose_InheritedContentFlowsIn(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seed(t, "base-persona", domainprompt.TypePersona, "Shared identity.")

	_, err := f.registry.Create(ctx, registrysvc.CreateParams{
		Slug: "reviewer", Name: "reviewer", Type: domainprompt.TypePersona, ParentSlug: "base-persona",
		InitialContent: content.Document{
			"sections": []any{map[string]any{"id": "specialty", "content": "You review code."}},
		},
	})
	require.NoError(t, err)

	result, err := f.composer.Compose(ctx, composersvc.Request{PersonaSlug: "reviewer"})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(result.Prompt, "Shared identity."), "ancestor sections layer in root-first")
	assert.Contains(t, result.Prompt, "You review code.")
}
