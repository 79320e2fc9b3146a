package prompt

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	TypePersona    Type = "persona"
	TypeSkill      Type = "skill"
	TypeConstraint Type = "constraint"
	TypeTemplate   Type = "template"
	TypeMeta       Type = "meta"
)

func (t Type) Valid() bool {
	switch t {
	case TypePersona, TypeSkill, TypeConstraint, TypeTemplate, TypeMeta:
		return true
	}
	return false
}

// Prompt is registry metadata for one managed document. Content lives in
// versions, never here. Prompts are soft-deleted via Archived and are never
// physically removed.
type Prompt struct {
	ID          uuid.UUID      `json:"id"`
	Slug        string         `json:"slug"`
	Name        string         `json:"name"`
	Type        Type           `json:"type"`
	Description string         `json:"description"`
	Tags        []string       `json:"tags"`
	Metadata    map[string]any `json:"metadata"`
	Archived    bool           `json:"archived"`
	ParentSlug  string         `json:"parent_slug,omitempty"` // single-parent inheritance
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

func New(slug, name string, promptType Type, description string, tags []string, metadata map[string]any, parentSlug string) Prompt {
	now := time.Now().UTC()
	if tags == nil {
		tags = []string{}
	}
	if metadata == nil {
		metadata = map[string]any{}
	}
	return Prompt{
		ID:          uuid.New(),
		Slug:        slug,
		Name:        name,
		Type:        promptType,
		Description: description,
		Tags:        tags,
		Metadata:    metadata,
		ParentSlug:  parentSlug,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

var slugRe = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*[a-z0-9]$`)

// ValidSlug reports whether slug is lowercase alphanumeric with hyphens,
// 2-100 chars, not starting or ending with a hyphen.
func ValidSlug(slug string) bool {
	return len(slug) >= 2 && len(slug) <= 100 && slugRe.MatchString(slug)
}

var (
	ErrNotFound      = errors.New("prompt not found")
	ErrDuplicateSlug = errors.New("prompt slug already exists")
)

// CircularInheritanceError names the full cycle encountered while walking a
// parent chain.
type CircularInheritanceError struct {
	Cycle []string
}

func (e *CircularInheritanceError) Error() string {
	return "circular inheritance detected: " + strings.Join(e.Cycle, " -> ")
}

// UpdateFields is a partial metadata update. Nil pointers leave the field
// untouched; slug, type, and parent are immutable after creation.
type UpdateFields struct {
	Name        *string
	Description *string
	Tags        []string
	Metadata    map[string]any
}

func (f UpdateFields) Empty() bool {
	return f.Name == nil && f.Description == nil && f.Tags == nil && f.Metadata == nil
}

// ListFilters narrows registry listings.
type ListFilters struct {
	Type     Type
	Tag      string
	Search   string
	Archived bool
}

// MatchesSearch does a case-insensitive substring match over name,
// description, and slug.
func (p Prompt) MatchesSearch(search string) bool {
	s := strings.ToLower(search)
	return strings.Contains(strings.ToLower(p.Name), s) ||
		strings.Contains(strings.ToLower(p.Description), s) ||
		strings.Contains(strings.ToLower(p.Slug), s)
}

func (p Prompt) HasTag(tag string) bool {
	for _, t := range p.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Validate checks creation invariants.
func (p Prompt) Validate() error {
	if !ValidSlug(p.Slug) {
		return fmt.Errorf("invalid slug %q: must be 2-100 lowercase alphanumeric/hyphen chars", p.Slug)
	}
	if p.Name == "" {
		return errors.New("name is required")
	}
	if !p.Type.Valid() {
		return fmt.Errorf("invalid prompt type %q", p.Type)
	}
	return nil
}
