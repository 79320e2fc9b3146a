package resolver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	domainprompt "github.com/MikeSquared-Agency/PromptForge/internal/domain/prompt"
	domainusage "github.com/MikeSquared-Agency/PromptForge/internal/domain/usage"
	domainversion "github.com/MikeSquared-Agency/PromptForge/internal/domain/version"
	portstore "github.com/MikeSquared-Agency/PromptForge/internal/port/store"
	vcssvc "github.com/MikeSquared-Agency/PromptForge/internal/service/vcs"
)

type Strategy string

const (
	StrategyLatest         Strategy = "latest"
	StrategyPinned         Strategy = "pinned"
	StrategyBestPerforming Strategy = "best_performing"
)

func (s Strategy) Valid() bool {
	switch s {
	case StrategyLatest, StrategyPinned, StrategyBestPerforming:
		return true
	}
	return false
}

// minUsesForBest is the floor below which usage data is too thin to prefer a
// version over latest.
const minUsesForBest = 3

// Service turns (slug, branch, strategy) into a concrete version.
// [SRP] Strategy dispatch only; the version log belongs to vcs, usage
// aggregation to the usage collection.
type Service struct {
	store portstore.RecordStore
	vcs   *vcssvc.Service
}

func NewService(store portstore.RecordStore, vcs *vcssvc.Service) *Service {
	return &Service{store: store, vcs: vcs}
}

// Resolve fails with prompt.ErrNotFound when the slug is missing or
// archived. Pinned requires an explicit version number.
func (s *Service) Resolve(ctx context.Context, slug, branch string, pinned *int, strategy Strategy) (domainversion.Version, error) {
	if strategy == "" {
		strategy = StrategyLatest
	}
	if !strategy.Valid() {
		return domainversion.Version{}, fmt.Errorf("unknown resolution strategy %q", strategy)
	}

	recs, err := s.store.Select(ctx, portstore.CollectionPrompts,
		portstore.Filters{"slug": slug, "archived": false},
		portstore.SelectOpts{Limit: 1})
	if err != nil {
		return domainversion.Version{}, fmt.Errorf("looking up prompt %q: %w", slug, err)
	}
	if len(recs) == 0 {
		return domainversion.Version{}, fmt.Errorf("prompt %q missing or archived: %w", slug, domainprompt.ErrNotFound)
	}
	promptID := portstore.UUID(recs[0], "id")

	switch strategy {
	case StrategyPinned:
		if pinned == nil {
			return domainversion.Version{}, errors.New("pinned strategy requires a version number")
		}
		return s.vcs.GetVersion(ctx, promptID, *pinned, branch)
	case StrategyBestPerforming:
		return s.resolveBestPerforming(ctx, promptID, branch)
	default:
		return s.vcs.Head(ctx, promptID, branch)
	}
}

// resolveBestPerforming picks the version with the highest success rate
// among versions with at least minUsesForBest recorded uses, falling back to
// latest when usage data is absent or too thin. Ties keep the first version
// encountered in the branch's natural (ascending) order.
func (s *Service) resolveBestPerforming(ctx context.Context, promptID uuid.UUID, branch string) (domainversion.Version, error) {
	versionRecs, err := s.store.Select(ctx, portstore.CollectionVersions,
		portstore.Filters{"prompt_id": promptID.String(), "branch": branch},
		portstore.SelectOpts{OrderBy: "version"})
	if err != nil {
		return domainversion.Version{}, fmt.Errorf("listing versions: %w", err)
	}
	if len(versionRecs) == 0 {
		return domainversion.Version{}, fmt.Errorf("branch %q: %w", branch, domainversion.ErrNoVersions)
	}

	logs, err := s.store.Select(ctx, portstore.CollectionUsageLog,
		portstore.Filters{"prompt_id": promptID.String()}, portstore.SelectOpts{})
	if err != nil {
		return domainversion.Version{}, fmt.Errorf("listing usage logs: %w", err)
	}
	if len(logs) == 0 {
		slog.InfoContext(ctx, "resolver.best_performing_no_data", "prompt_id", promptID)
		return s.vcs.Head(ctx, promptID, branch)
	}

	type stats struct{ total, success int }
	onBranch := make(map[string]bool, len(versionRecs))
	for _, rec := range versionRecs {
		onBranch[portstore.String(rec, "id")] = true
	}

	perVersion := make(map[string]*stats)
	for _, l := range logs {
		vid := portstore.String(l, "version_id")
		if !onBranch[vid] {
			continue
		}
		st := perVersion[vid]
		if st == nil {
			st = &stats{}
			perVersion[vid] = st
		}
		st.total++
		if domainusage.Outcome(portstore.String(l, "outcome")) == domainusage.OutcomeSuccess {
			st.success++
		}
	}

	bestRate := -1.0
	var bestID string
	for _, rec := range versionRecs {
		vid := portstore.String(rec, "id")
		st := perVersion[vid]
		if st == nil || st.total < minUsesForBest {
			continue
		}
		rate := float64(st.success) / float64(st.total)
		if rate > bestRate {
			bestRate = rate
			bestID = vid
		}
	}

	if bestID == "" {
		slog.InfoContext(ctx, "resolver.best_performing_insufficient_data", "prompt_id", promptID)
		return s.vcs.Head(ctx, promptID, branch)
	}

	for _, rec := range versionRecs {
		if portstore.String(rec, "id") == bestID {
			slog.InfoContext(ctx, "resolver.best_performing_resolved",
				"prompt_id", promptID, "version_id", bestID, "success_rate", bestRate)
			return s.vcs.GetVersion(ctx, promptID, portstore.Int(rec, "version"), branch)
		}
	}
	return s.vcs.Head(ctx, promptID, branch)
}
