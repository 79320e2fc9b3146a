package usage

import (
	"time"

	"github.com/google/uuid"
)

type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
	OutcomeUnknown Outcome = "unknown"
)

func (o Outcome) Valid() bool {
	switch o {
	case OutcomeSuccess, OutcomeFailure, OutcomeUnknown:
		return true
	}
	return false
}

// Log is one recorded use of a prompt version by an agent.
type Log struct {
	ID        uuid.UUID `json:"id"`
	PromptID  uuid.UUID `json:"prompt_id"`
	VersionID uuid.UUID `json:"version_id"`
	AgentID   string    `json:"agent_id,omitempty"`
	Outcome   Outcome   `json:"outcome"`
	LatencyMs *int      `json:"latency_ms,omitempty"`
	Feedback  string    `json:"feedback,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Stats aggregates a prompt's usage across versions.
type Stats struct {
	PromptSlug       string         `json:"prompt_slug"`
	TotalUses        int            `json:"total_uses"`
	SuccessRate      float64        `json:"success_rate"`
	AvgLatencyMs     *float64       `json:"avg_latency_ms,omitempty"`
	VersionBreakdown map[string]int `json:"version_breakdown"`
}
