package registry

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/MikeSquared-Agency/PromptForge/internal/domain/content"
	"github.com/MikeSquared-Agency/PromptForge/internal/domain/event"
	domainprompt "github.com/MikeSquared-Agency/PromptForge/internal/domain/prompt"
	domainversion "github.com/MikeSquared-Agency/PromptForge/internal/domain/version"
	porteventbus "github.com/MikeSquared-Agency/PromptForge/internal/port/eventbus"
	portstore "github.com/MikeSquared-Agency/PromptForge/internal/port/store"
)

// Service manages prompt lifecycle: create, read, update, archive, plus
// inheritance-chain resolution. Prompts are never physically deleted.
// [SRP] Metadata and inheritance only — version content belongs to vcs.
// [DIP] Depends on the RecordStore port, not on any concrete storage.
type Service struct {
	store portstore.RecordStore
	bus   porteventbus.EventBus
}

func NewService(store portstore.RecordStore, bus porteventbus.EventBus) *Service {
	return &Service{store: store, bus: bus}
}

// CreateParams carries everything needed to register a prompt. When
// InitialContent is non-nil, version 1 is seeded on main.
type CreateParams struct {
	Slug           string
	Name           string
	Type           domainprompt.Type
	Description    string
	Tags           []string
	Metadata       map[string]any
	ParentSlug     string
	InitialContent content.Document
	InitialMessage string
}

func (s *Service) Create(ctx context.Context, params CreateParams) (domainprompt.Prompt, error) {
	p := domainprompt.New(params.Slug, params.Name, params.Type, params.Description, params.Tags, params.Metadata, params.ParentSlug)
	if err := p.Validate(); err != nil {
		return domainprompt.Prompt{}, err
	}

	existing, err := s.store.Select(ctx, portstore.CollectionPrompts, portstore.Filters{"slug": params.Slug}, portstore.SelectOpts{Limit: 1})
	if err != nil {
		return domainprompt.Prompt{}, fmt.Errorf("checking slug %q: %w", params.Slug, err)
	}
	if len(existing) > 0 {
		return domainprompt.Prompt{}, fmt.Errorf("slug %q: %w", params.Slug, domainprompt.ErrDuplicateSlug)
	}

	if params.ParentSlug != "" {
		parents, err := s.store.Select(ctx, portstore.CollectionPrompts, portstore.Filters{"slug": params.ParentSlug}, portstore.SelectOpts{Limit: 1})
		if err != nil {
			return domainprompt.Prompt{}, fmt.Errorf("checking parent %q: %w", params.ParentSlug, err)
		}
		if len(parents) == 0 {
			return domainprompt.Prompt{}, fmt.Errorf("parent prompt %q: %w", params.ParentSlug, domainprompt.ErrNotFound)
		}
	}

	rec, err := s.store.Insert(ctx, portstore.CollectionPrompts, promptToRecord(p))
	if err != nil {
		return domainprompt.Prompt{}, fmt.Errorf("inserting prompt: %w", err)
	}
	created := promptFromRecord(rec)

	if params.InitialContent != nil {
		message := params.InitialMessage
		if message == "" {
			message = "Initial version"
		}
		seed := portstore.Record{
			"prompt_id":         created.ID.String(),
			"branch":            domainversion.DefaultBranch,
			"version":           1,
			"content":           params.InitialContent,
			"message":           message,
			"author":            "system",
			"parent_version_id": nil,
			"created_at":        time.Now().UTC().Format(time.RFC3339Nano),
		}
		if _, err := s.store.Insert(ctx, portstore.CollectionVersions, seed); err != nil {
			return domainprompt.Prompt{}, fmt.Errorf("seeding initial version: %w", err)
		}
	}

	slog.InfoContext(ctx, "prompt.created", "slug", created.Slug, "type", created.Type)
	if err := s.bus.Publish(ctx, event.New(event.TypePromptCreated, created.ID)); err != nil {
		slog.ErrorContext(ctx, "failed to publish PromptCreated event", "slug", created.Slug, "error", err)
	}
	return created, nil
}

// Get returns a prompt by slug, archived or not.
func (s *Service) Get(ctx context.Context, slug string) (domainprompt.Prompt, error) {
	recs, err := s.store.Select(ctx, portstore.CollectionPrompts, portstore.Filters{"slug": slug}, portstore.SelectOpts{Limit: 1})
	if err != nil {
		return domainprompt.Prompt{}, fmt.Errorf("looking up prompt %q: %w", slug, err)
	}
	if len(recs) == 0 {
		return domainprompt.Prompt{}, fmt.Errorf("prompt %q: %w", slug, domainprompt.ErrNotFound)
	}
	return promptFromRecord(recs[0]), nil
}

func (s *Service) List(ctx context.Context, filters domainprompt.ListFilters) ([]domainprompt.Prompt, error) {
	storeFilters := portstore.Filters{"archived": filters.Archived}
	if filters.Type != "" {
		storeFilters["type"] = string(filters.Type)
	}

	recs, err := s.store.Select(ctx, portstore.CollectionPrompts, storeFilters, portstore.SelectOpts{OrderBy: "slug"})
	if err != nil {
		return nil, fmt.Errorf("listing prompts: %w", err)
	}

	// Tag and search filtering happen client-side: the record store only
	// speaks equality filters.
	prompts := make([]domainprompt.Prompt, 0, len(recs))
	for _, rec := range recs {
		p := promptFromRecord(rec)
		if filters.Tag != "" && !p.HasTag(filters.Tag) {
			continue
		}
		if filters.Search != "" && !p.MatchesSearch(filters.Search) {
			continue
		}
		prompts = append(prompts, p)
	}
	return prompts, nil
}

// Update applies a partial metadata update. Slug, type, and parent are
// immutable; content changes go through the version store.
func (s *Service) Update(ctx context.Context, slug string, fields domainprompt.UpdateFields) (domainprompt.Prompt, error) {
	p, err := s.Get(ctx, slug)
	if err != nil {
		return domainprompt.Prompt{}, err
	}

	partial := portstore.Record{"updated_at": time.Now().UTC().Format(time.RFC3339Nano)}
	if fields.Name != nil {
		partial["name"] = *fields.Name
	}
	if fields.Description != nil {
		partial["description"] = *fields.Description
	}
	if fields.Tags != nil {
		partial["tags"] = fields.Tags
	}
	if fields.Metadata != nil {
		partial["metadata"] = fields.Metadata
	}

	rec, err := s.store.Update(ctx, portstore.CollectionPrompts, p.ID.String(), partial)
	if err != nil {
		return domainprompt.Prompt{}, fmt.Errorf("updating prompt %q: %w", slug, err)
	}

	slog.InfoContext(ctx, "prompt.updated", "slug", slug)
	if err := s.bus.Publish(ctx, event.New(event.TypePromptUpdated, p.ID)); err != nil {
		slog.ErrorContext(ctx, "failed to publish PromptUpdated event", "slug", slug, "error", err)
	}
	return promptFromRecord(rec), nil
}

// Archive soft-deletes a prompt. Versions and branches stay readable.
func (s *Service) Archive(ctx context.Context, slug string) error {
	p, err := s.Get(ctx, slug)
	if err != nil {
		return err
	}

	partial := portstore.Record{
		"archived":   true,
		"updated_at": time.Now().UTC().Format(time.RFC3339Nano),
	}
	if _, err := s.store.Update(ctx, portstore.CollectionPrompts, p.ID.String(), partial); err != nil {
		return fmt.Errorf("archiving prompt %q: %w", slug, err)
	}

	slog.InfoContext(ctx, "prompt.archived", "slug", slug)
	if err := s.bus.Publish(ctx, event.New(event.TypePromptArchived, p.ID)); err != nil {
		slog.ErrorContext(ctx, "failed to publish PromptArchived event", "slug", slug, "error", err)
	}
	return nil
}

// Chain returns the inheritance chain child-first (slug, parent,
// grandparent, ...). A revisited slug fails with CircularInheritanceError
// naming the whole cycle; a missing ancestor fails with ErrNotFound.
func (s *Service) Chain(ctx context.Context, slug string) ([]domainprompt.Prompt, error) {
	var chain []domainprompt.Prompt
	seen := make(map[string]bool)
	current := slug

	for current != "" {
		if seen[current] {
			cycle := make([]string, 0, len(chain)+1)
			for _, p := range chain {
				cycle = append(cycle, p.Slug)
			}
			cycle = append(cycle, current)
			return nil, &domainprompt.CircularInheritanceError{Cycle: cycle}
		}
		seen[current] = true

		p, err := s.Get(ctx, current)
		if err != nil {
			return nil, fmt.Errorf("walking inheritance chain of %q: %w", slug, err)
		}
		chain = append(chain, p)
		current = p.ParentSlug
	}
	return chain, nil
}

// EffectiveContent resolves inheritance for a prompt: ancestors are layered
// root-first, each child's sections overriding parent sections that share an
// id; variables and metadata shallow-union with the child winning. A pinned
// version (non-nil) applies only to the requested prompt, ancestors always
// contribute their branch head.
func (s *Service) EffectiveContent(ctx context.Context, slug, branch string, pinned *int) (content.Document, error) {
	chain, err := s.Chain(ctx, slug)
	if err != nil {
		return nil, err
	}

	mergedSections := make(map[string]map[string]any)
	var sectionOrder []string
	mergedVariables := make(map[string]any)
	mergedMetadata := make(map[string]any)

	for i := len(chain) - 1; i >= 0; i-- {
		p := chain[i]

		filters := portstore.Filters{"prompt_id": p.ID.String(), "branch": branch}
		opts := portstore.SelectOpts{OrderBy: "version", Descending: true, Limit: 1}
		if pinned != nil && p.Slug == slug {
			filters["version"] = *pinned
			opts = portstore.SelectOpts{Limit: 1}
		}
		recs, err := s.store.Select(ctx, portstore.CollectionVersions, filters, opts)
		if err != nil {
			return nil, fmt.Errorf("loading content for %q: %w", p.Slug, err)
		}
		if len(recs) == 0 {
			continue // ancestors without versions contribute nothing
		}

		doc := content.Document(portstore.Map(recs[0], "content"))
		for id, section := range doc.SectionMap() {
			if _, ok := mergedSections[id]; !ok {
				sectionOrder = append(sectionOrder, id)
			}
			mergedSections[id] = section
		}
		for k, v := range doc.Variables() {
			mergedVariables[k] = v
		}
		for k, v := range doc.Metadata() {
			mergedMetadata[k] = v
		}
	}

	sections := make([]any, 0, len(sectionOrder))
	for _, id := range sectionOrder {
		sections = append(sections, mergedSections[id])
	}

	return content.Document{
		"sections":  sections,
		"variables": mergedVariables,
		"metadata":  mergedMetadata,
	}, nil
}

func promptToRecord(p domainprompt.Prompt) portstore.Record {
	return portstore.Record{
		"id":          p.ID.String(),
		"slug":        p.Slug,
		"name":        p.Name,
		"type":        string(p.Type),
		"description": p.Description,
		"tags":        p.Tags,
		"metadata":    p.Metadata,
		"archived":    p.Archived,
		"parent_slug": p.ParentSlug,
		"created_at":  p.CreatedAt.Format(time.RFC3339Nano),
		"updated_at":  p.UpdatedAt.Format(time.RFC3339Nano),
	}
}

func promptFromRecord(rec portstore.Record) domainprompt.Prompt {
	return domainprompt.Prompt{
		ID:          portstore.UUID(rec, "id"),
		Slug:        portstore.String(rec, "slug"),
		Name:        portstore.String(rec, "name"),
		Type:        domainprompt.Type(portstore.String(rec, "type")),
		Description: portstore.String(rec, "description"),
		Tags:        portstore.Strings(rec, "tags"),
		Metadata:    portstore.Map(rec, "metadata"),
		Archived:    portstore.Bool(rec, "archived"),
		ParentSlug:  portstore.String(rec, "parent_slug"),
		CreatedAt:   portstore.Time(rec, "created_at"),
		UpdatedAt:   portstore.Time(rec, "updated_at"),
	}
}
