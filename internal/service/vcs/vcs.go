package vcs

import (
	"context"
	"fmt"
	"hash/fnv"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/PromptForge/internal/domain/content"
	"github.com/MikeSquared-Agency/PromptForge/internal/domain/event"
	"github.com/MikeSquared-Agency/PromptForge/internal/domain/scan"
	domainversion "github.com/MikeSquared-Agency/PromptForge/internal/domain/version"
	porteventbus "github.com/MikeSquared-Agency/PromptForge/internal/port/eventbus"
	portlocker "github.com/MikeSquared-Agency/PromptForge/internal/port/locker"
	portstore "github.com/MikeSquared-Agency/PromptForge/internal/port/store"
)

// Service is the git-like version store: an append-only, 1-indexed log per
// (prompt_id, branch). Versions are immutable; the only mutation is
// appending a successor. Commit is the single hard injection gate.
// [DIP] Depends on ports, never on adapters or transport.
type Service struct {
	store   portstore.RecordStore
	scanner *scan.Scanner
	locker  portlocker.AdvisoryLocker
	bus     porteventbus.EventBus
}

func NewService(store portstore.RecordStore, scanner *scan.Scanner, locker portlocker.AdvisoryLocker, bus porteventbus.EventBus) *Service {
	return &Service{store: store, scanner: scanner, locker: locker, bus: bus}
}

// Commit appends a new version to (promptID, branch). Content is scanned
// first: critical findings reject the commit with scan.BlockedError — no
// override exists for this gate. Non-critical findings and advisory content
// warnings attach to the returned version, never blocking.
//
// The head lookup and insert run under the per-line advisory lock, so
// concurrent commits to one line can never compute the same version number.
func (s *Service) Commit(ctx context.Context, promptID uuid.UUID, doc content.Document, message, author, branch string) (domainversion.Version, error) {
	scanResult := s.scanner.Scan(doc)
	if scanResult.RiskLevel == scan.SeverityCritical {
		return domainversion.Version{}, &scan.BlockedError{Findings: scanResult.Findings}
	}

	var v domainversion.Version
	err := s.locker.WithLock(ctx, lineKey(promptID, branch), func(ctx context.Context) error {
		var err error
		v, err = s.append(ctx, promptID, doc, message, author, branch)
		return err
	})
	if err != nil {
		return domainversion.Version{}, err
	}

	v.ScanWarnings = scanResult.Findings
	v.ContentWarnings = scan.ContentWarnings(doc)

	slog.InfoContext(ctx, "vcs.commit", "prompt_id", promptID, "version", v.Number, "branch", branch, "author", author)
	if err := s.bus.Publish(ctx, event.New(event.TypeVersionCommitted, promptID)); err != nil {
		slog.ErrorContext(ctx, "failed to publish VersionCommitted event", "prompt_id", promptID, "error", err)
	}
	return v, nil
}

// append performs the unguarded read-head-then-insert. Callers must hold the
// line lock for (promptID, branch).
func (s *Service) append(ctx context.Context, promptID uuid.UUID, doc content.Document, message, author, branch string) (domainversion.Version, error) {
	head, err := s.head(ctx, promptID, branch)
	if err != nil {
		return domainversion.Version{}, err
	}

	next := 1
	var parentID *uuid.UUID
	if head != nil {
		next = head.Number + 1
		id := head.ID
		parentID = &id
	}

	rec := portstore.Record{
		"prompt_id":  promptID.String(),
		"branch":     branch,
		"version":    next,
		"content":    doc,
		"message":    message,
		"author":     author,
		"created_at": time.Now().UTC().Format(time.RFC3339Nano),
	}
	if parentID != nil {
		rec["parent_version_id"] = parentID.String()
	} else {
		rec["parent_version_id"] = nil
	}

	inserted, err := s.store.Insert(ctx, portstore.CollectionVersions, rec)
	if err != nil {
		return domainversion.Version{}, fmt.Errorf("inserting version %d on %q: %w", next, branch, err)
	}
	return versionFromRecord(inserted), nil
}

// head returns the latest version on a line, or nil when the line is empty.
func (s *Service) head(ctx context.Context, promptID uuid.UUID, branch string) (*domainversion.Version, error) {
	recs, err := s.store.Select(ctx, portstore.CollectionVersions,
		portstore.Filters{"prompt_id": promptID.String(), "branch": branch},
		portstore.SelectOpts{OrderBy: "version", Descending: true, Limit: 1})
	if err != nil {
		return nil, fmt.Errorf("reading head of %q: %w", branch, err)
	}
	if len(recs) == 0 {
		return nil, nil
	}
	v := versionFromRecord(recs[0])
	return &v, nil
}

// Head returns the latest version on a branch, or ErrNoVersions.
func (s *Service) Head(ctx context.Context, promptID uuid.UUID, branch string) (domainversion.Version, error) {
	head, err := s.head(ctx, promptID, branch)
	if err != nil {
		return domainversion.Version{}, err
	}
	if head == nil {
		return domainversion.Version{}, fmt.Errorf("branch %q: %w", branch, domainversion.ErrNoVersions)
	}
	return *head, nil
}

// History returns up to limit versions, most recent first.
func (s *Service) History(ctx context.Context, promptID uuid.UUID, branch string, limit int) ([]domainversion.Version, error) {
	recs, err := s.store.Select(ctx, portstore.CollectionVersions,
		portstore.Filters{"prompt_id": promptID.String(), "branch": branch},
		portstore.SelectOpts{OrderBy: "version", Descending: true, Limit: limit})
	if err != nil {
		return nil, fmt.Errorf("reading history of %q: %w", branch, err)
	}
	versions := make([]domainversion.Version, 0, len(recs))
	for _, rec := range recs {
		versions = append(versions, versionFromRecord(rec))
	}
	return versions, nil
}

// GetVersion returns an exact version, or ErrVersionNotFound.
func (s *Service) GetVersion(ctx context.Context, promptID uuid.UUID, number int, branch string) (domainversion.Version, error) {
	recs, err := s.store.Select(ctx, portstore.CollectionVersions,
		portstore.Filters{"prompt_id": promptID.String(), "branch": branch, "version": number},
		portstore.SelectOpts{Limit: 1})
	if err != nil {
		return domainversion.Version{}, fmt.Errorf("reading version %d on %q: %w", number, branch, err)
	}
	if len(recs) == 0 {
		return domainversion.Version{}, fmt.Errorf("version %d on branch %q: %w", number, branch, domainversion.ErrVersionNotFound)
	}
	return versionFromRecord(recs[0]), nil
}

// Rollback re-commits the content of an old version as a brand-new version.
// History is never rewritten. Fails with ErrVersionNotFound when the target
// does not exist.
func (s *Service) Rollback(ctx context.Context, promptID uuid.UUID, number int, author, branch string) (domainversion.Version, error) {
	target, err := s.GetVersion(ctx, promptID, number, branch)
	if err != nil {
		return domainversion.Version{}, err
	}

	v, err := s.Commit(ctx, promptID, target.Content, fmt.Sprintf("Rollback to version %d", number), author, branch)
	if err != nil {
		return domainversion.Version{}, err
	}

	if err := s.bus.Publish(ctx, event.New(event.TypeVersionRolledBack, promptID)); err != nil {
		slog.ErrorContext(ctx, "failed to publish VersionRolledBack event", "prompt_id", promptID, "error", err)
	}
	return v, nil
}

// CreateBranch forks fromBranch's head as version 1 of a new branch. The
// duplicate check, branch record insert, and seed commit run as one unit
// under the new line's lock, so a created branch always has its seed version.
func (s *Service) CreateBranch(ctx context.Context, promptID uuid.UUID, name, fromBranch string) (domainversion.Branch, error) {
	var branch domainversion.Branch
	err := s.locker.WithLock(ctx, lineKey(promptID, name), func(ctx context.Context) error {
		existing, err := s.store.Select(ctx, portstore.CollectionBranches,
			portstore.Filters{"prompt_id": promptID.String(), "name": name},
			portstore.SelectOpts{Limit: 1})
		if err != nil {
			return fmt.Errorf("checking branch %q: %w", name, err)
		}
		if len(existing) > 0 {
			return fmt.Errorf("branch %q: %w", name, domainversion.ErrDuplicateBranch)
		}

		head, err := s.head(ctx, promptID, fromBranch)
		if err != nil {
			return err
		}
		if head == nil {
			return fmt.Errorf("source branch %q: %w", fromBranch, domainversion.ErrNoVersions)
		}

		now := time.Now().UTC().Format(time.RFC3339Nano)
		rec, err := s.store.Insert(ctx, portstore.CollectionBranches, portstore.Record{
			"prompt_id":       promptID.String(),
			"name":            name,
			"head_version_id": head.ID.String(),
			"base_version_id": head.ID.String(),
			"status":          string(domainversion.BranchActive),
			"created_at":      now,
			"updated_at":      now,
		})
		if err != nil {
			return fmt.Errorf("inserting branch %q: %w", name, err)
		}
		branch = branchFromRecord(rec)

		message := fmt.Sprintf("Branch %q from %q v%d", name, fromBranch, head.Number)
		if _, err := s.append(ctx, promptID, head.Content, message, "system", name); err != nil {
			return fmt.Errorf("seeding branch %q: %w", name, err)
		}
		return nil
	})
	if err != nil {
		return domainversion.Branch{}, err
	}

	slog.InfoContext(ctx, "vcs.branch_created", "prompt_id", promptID, "branch", name, "from_branch", fromBranch)
	if err := s.bus.Publish(ctx, event.New(event.TypeBranchCreated, promptID)); err != nil {
		slog.ErrorContext(ctx, "failed to publish BranchCreated event", "prompt_id", promptID, "error", err)
	}
	return branch, nil
}

func (s *Service) ListBranches(ctx context.Context, promptID uuid.UUID) ([]domainversion.Branch, error) {
	recs, err := s.store.Select(ctx, portstore.CollectionBranches,
		portstore.Filters{"prompt_id": promptID.String()},
		portstore.SelectOpts{OrderBy: "created_at"})
	if err != nil {
		return nil, fmt.Errorf("listing branches: %w", err)
	}
	branches := make([]domainversion.Branch, 0, len(recs))
	for _, rec := range recs {
		branches = append(branches, branchFromRecord(rec))
	}
	return branches, nil
}

// GetBranch returns the branch record, or ErrBranchNotFound.
func (s *Service) GetBranch(ctx context.Context, promptID uuid.UUID, name string) (domainversion.Branch, error) {
	recs, err := s.store.Select(ctx, portstore.CollectionBranches,
		portstore.Filters{"prompt_id": promptID.String(), "name": name},
		portstore.SelectOpts{Limit: 1})
	if err != nil {
		return domainversion.Branch{}, fmt.Errorf("looking up branch %q: %w", name, err)
	}
	if len(recs) == 0 {
		return domainversion.Branch{}, fmt.Errorf("branch %q: %w", name, domainversion.ErrBranchNotFound)
	}
	return branchFromRecord(recs[0]), nil
}

// RejectBranch flips a branch to rejected — terminal, no content change.
func (s *Service) RejectBranch(ctx context.Context, promptID uuid.UUID, name string) (domainversion.Branch, error) {
	branch, err := s.GetBranch(ctx, promptID, name)
	if err != nil {
		return domainversion.Branch{}, err
	}

	rec, err := s.store.Update(ctx, portstore.CollectionBranches, branch.ID.String(), portstore.Record{
		"status":     string(domainversion.BranchRejected),
		"updated_at": time.Now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return domainversion.Branch{}, fmt.Errorf("rejecting branch %q: %w", name, err)
	}

	slog.InfoContext(ctx, "vcs.branch_rejected", "prompt_id", promptID, "branch", name)
	if err := s.bus.Publish(ctx, event.New(event.TypeBranchRejected, promptID)); err != nil {
		slog.ErrorContext(ctx, "failed to publish BranchRejected event", "prompt_id", promptID, "error", err)
	}
	return branchFromRecord(rec), nil
}

// MergeBranch combines the source head into target per strategy and commits
// the result as an ordinary single-parent version on target (never a
// multi-parent merge commit), then flips the source branch to merged.
func (s *Service) MergeBranch(ctx context.Context, promptID uuid.UUID, source, target string, strategy domainversion.MergeStrategy, author string) (domainversion.Version, error) {
	if !strategy.Valid() {
		return domainversion.Version{}, &domainversion.UnknownStrategyError{Strategy: string(strategy)}
	}

	sourceHead, err := s.head(ctx, promptID, source)
	if err != nil {
		return domainversion.Version{}, err
	}
	if sourceHead == nil {
		return domainversion.Version{}, fmt.Errorf("source branch %q: %w", source, domainversion.ErrNoVersions)
	}
	targetHead, err := s.head(ctx, promptID, target)
	if err != nil {
		return domainversion.Version{}, err
	}
	if targetHead == nil {
		return domainversion.Version{}, fmt.Errorf("target branch %q: %w", target, domainversion.ErrNoVersions)
	}

	var merged content.Document
	switch strategy {
	case domainversion.MergeOurs:
		merged = targetHead.Content
	case domainversion.MergeTheirs:
		merged = sourceHead.Content
	case domainversion.MergeSections:
		merged = content.SectionMerge(targetHead.Content, sourceHead.Content)
	}

	message := fmt.Sprintf("Merge %q into %q (%s)", source, target, strategy)
	v, err := s.Commit(ctx, promptID, merged, message, author, target)
	if err != nil {
		return domainversion.Version{}, err
	}

	// Flip source status. A missing branch record (e.g. merging main
	// itself) is not an error.
	if branch, err := s.GetBranch(ctx, promptID, source); err == nil {
		if _, err := s.store.Update(ctx, portstore.CollectionBranches, branch.ID.String(), portstore.Record{
			"status":     string(domainversion.BranchMerged),
			"updated_at": time.Now().UTC().Format(time.RFC3339Nano),
		}); err != nil {
			return domainversion.Version{}, fmt.Errorf("marking branch %q merged: %w", source, err)
		}
	}

	slog.InfoContext(ctx, "vcs.branch_merged", "prompt_id", promptID, "source", source, "target", target, "strategy", strategy)
	if err := s.bus.Publish(ctx, event.New(event.TypeBranchMerged, promptID)); err != nil {
		slog.ErrorContext(ctx, "failed to publish BranchMerged event", "prompt_id", promptID, "error", err)
	}
	return v, nil
}

// lineKey hashes a (promptID, branch) line to a stable int64 advisory key.
func lineKey(promptID uuid.UUID, branch string) int64 {
	h := fnv.New64a()
	h.Write(promptID[:])
	h.Write([]byte(branch))
	return int64(h.Sum64())
}

func versionFromRecord(rec portstore.Record) domainversion.Version {
	v := domainversion.Version{
		ID:        portstore.UUID(rec, "id"),
		PromptID:  portstore.UUID(rec, "prompt_id"),
		Branch:    portstore.String(rec, "branch"),
		Number:    portstore.Int(rec, "version"),
		Content:   content.Document(portstore.Map(rec, "content")),
		Message:   portstore.String(rec, "message"),
		Author:    portstore.String(rec, "author"),
		CreatedAt: portstore.Time(rec, "created_at"),
	}
	if parent := portstore.UUID(rec, "parent_version_id"); parent != uuid.Nil {
		v.ParentVersionID = &parent
	}
	return v
}

func branchFromRecord(rec portstore.Record) domainversion.Branch {
	b := domainversion.Branch{
		ID:        portstore.UUID(rec, "id"),
		PromptID:  portstore.UUID(rec, "prompt_id"),
		Name:      portstore.String(rec, "name"),
		Status:    domainversion.BranchStatus(portstore.String(rec, "status")),
		CreatedAt: portstore.Time(rec, "created_at"),
		UpdatedAt: portstore.Time(rec, "updated_at"),
	}
	if head := portstore.UUID(rec, "head_version_id"); head != uuid.Nil {
		b.HeadVersionID = &head
	}
	if base := portstore.UUID(rec, "base_version_id"); base != uuid.Nil {
		b.BaseVersionID = &base
	}
	return b
}
