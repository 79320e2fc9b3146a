package version

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/PromptForge/internal/domain/content"
	"github.com/MikeSquared-Agency/PromptForge/internal/domain/scan"
)

// DefaultBranch is the line every prompt starts on.
const DefaultBranch = "main"

// Version is one immutable entry in a (prompt, branch) log. Number is the
// 1-based position within that line — contiguous, never reused, and not
// shared across branches. ParentVersionID points at the head at the moment
// of commit, nil only for version 1.
type Version struct {
	ID              uuid.UUID        `json:"id"`
	PromptID        uuid.UUID        `json:"prompt_id"`
	Branch          string           `json:"branch"`
	Number          int              `json:"version"`
	Content         content.Document `json:"content"`
	Message         string           `json:"message"`
	Author          string           `json:"author"`
	ParentVersionID *uuid.UUID       `json:"parent_version_id,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`

	// ScanWarnings carries non-critical scanner findings from the commit
	// that produced this version; ContentWarnings carries the advisory
	// secret/size checks. Both are side information, never persisted.
	ScanWarnings    []scan.Finding `json:"scan_warnings,omitempty"`
	ContentWarnings []string       `json:"content_warnings,omitempty"`
}

type BranchStatus string

const (
	BranchActive   BranchStatus = "active"
	BranchMerged   BranchStatus = "merged"
	BranchRejected BranchStatus = "rejected"
)

// Branch tracks one named line of versions for a prompt. Merged and rejected
// are terminal statuses; the store does not hard-enforce "no commits after
// terminal", it only stops expecting them.
type Branch struct {
	ID            uuid.UUID    `json:"id"`
	PromptID      uuid.UUID    `json:"prompt_id"`
	Name          string       `json:"name"`
	HeadVersionID *uuid.UUID   `json:"head_version_id,omitempty"`
	BaseVersionID *uuid.UUID   `json:"base_version_id,omitempty"`
	Status        BranchStatus `json:"status"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
}

// MergeStrategy selects how branch heads combine on merge.
type MergeStrategy string

const (
	// MergeOurs keeps the target head content verbatim.
	MergeOurs MergeStrategy = "ours"
	// MergeTheirs replaces with the source head content verbatim.
	MergeTheirs MergeStrategy = "theirs"
	// MergeSections unions sections with source winning on id collisions;
	// variables and metadata shallow-merge with source precedence.
	MergeSections MergeStrategy = "section_merge"
)

func (s MergeStrategy) Valid() bool {
	switch s {
	case MergeOurs, MergeTheirs, MergeSections:
		return true
	}
	return false
}

var (
	ErrVersionNotFound = errors.New("version not found")
	ErrBranchNotFound  = errors.New("branch not found")
	ErrDuplicateBranch = errors.New("branch already exists")
	ErrNoVersions      = errors.New("branch has no versions")
)

// UnknownStrategyError reports an invalid merge strategy name.
type UnknownStrategyError struct {
	Strategy string
}

func (e *UnknownStrategyError) Error() string {
	return fmt.Sprintf("unknown merge strategy: %q", e.Strategy)
}
