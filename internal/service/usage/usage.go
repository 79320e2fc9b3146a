package usage

import (
	"context"
	"fmt"
	"time"

	"github.com/MikeSquared-Agency/PromptForge/internal/domain/prompt"
	domainusage "github.com/MikeSquared-Agency/PromptForge/internal/domain/usage"
	portstore "github.com/MikeSquared-Agency/PromptForge/internal/port/store"
)

// Service records prompt usage outcomes and aggregates per-prompt stats.
// The best_performing resolution strategy reads the same collection.
type Service struct {
	store portstore.RecordStore
}

func NewService(store portstore.RecordStore) *Service {
	return &Service{store: store}
}

func (s *Service) Record(ctx context.Context, l domainusage.Log) (domainusage.Log, error) {
	rec := portstore.Record{
		"prompt_id":  l.PromptID.String(),
		"version_id": l.VersionID.String(),
		"agent_id":   l.AgentID,
		"outcome":    string(l.Outcome),
		"feedback":   l.Feedback,
		"created_at": time.Now().UTC().Format(time.RFC3339Nano),
	}
	if l.LatencyMs != nil {
		rec["latency_ms"] = *l.LatencyMs
	}

	inserted, err := s.store.Insert(ctx, portstore.CollectionUsageLog, rec)
	if err != nil {
		return domainusage.Log{}, fmt.Errorf("recording usage: %w", err)
	}
	return logFromRecord(inserted), nil
}

func (s *Service) Stats(ctx context.Context, slug string) (domainusage.Stats, error) {
	prompts, err := s.store.Select(ctx, portstore.CollectionPrompts,
		portstore.Filters{"slug": slug}, portstore.SelectOpts{Limit: 1})
	if err != nil {
		return domainusage.Stats{}, fmt.Errorf("looking up prompt %q: %w", slug, err)
	}
	if len(prompts) == 0 {
		return domainusage.Stats{}, fmt.Errorf("prompt %q: %w", slug, prompt.ErrNotFound)
	}
	promptID := portstore.String(prompts[0], "id")

	logs, err := s.store.Select(ctx, portstore.CollectionUsageLog,
		portstore.Filters{"prompt_id": promptID}, portstore.SelectOpts{})
	if err != nil {
		return domainusage.Stats{}, fmt.Errorf("listing usage logs: %w", err)
	}

	stats := domainusage.Stats{
		PromptSlug:       slug,
		TotalUses:        len(logs),
		VersionBreakdown: make(map[string]int),
	}

	successes := 0
	var latencySum, latencyCount int
	for _, l := range logs {
		if domainusage.Outcome(portstore.String(l, "outcome")) == domainusage.OutcomeSuccess {
			successes++
		}
		if _, ok := l["latency_ms"]; ok {
			latencySum += portstore.Int(l, "latency_ms")
			latencyCount++
		}
		stats.VersionBreakdown[portstore.String(l, "version_id")]++
	}

	if stats.TotalUses > 0 {
		stats.SuccessRate = float64(successes) / float64(stats.TotalUses)
	}
	if latencyCount > 0 {
		avg := float64(latencySum) / float64(latencyCount)
		stats.AvgLatencyMs = &avg
	}
	return stats, nil
}

func logFromRecord(rec portstore.Record) domainusage.Log {
	l := domainusage.Log{
		ID:        portstore.UUID(rec, "id"),
		PromptID:  portstore.UUID(rec, "prompt_id"),
		VersionID: portstore.UUID(rec, "version_id"),
		AgentID:   portstore.String(rec, "agent_id"),
		Outcome:   domainusage.Outcome(portstore.String(rec, "outcome")),
		Feedback:  portstore.String(rec, "feedback"),
		CreatedAt: portstore.Time(rec, "created_at"),
	}
	if _, ok := rec["latency_ms"]; ok {
		ms := portstore.Int(rec, "latency_ms")
		l.LatencyMs = &ms
	}
	return l
}
