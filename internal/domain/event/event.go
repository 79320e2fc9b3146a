package event

import (
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	TypeVersionCommitted  Type = "version_committed"
	TypeVersionRestored   Type = "version_restored"
	TypeVersionRolledBack Type = "version_rolled_back"
	TypeBranchCreated     Type = "branch_created"
	TypeBranchMerged      Type = "branch_merged"
	TypeBranchRejected    Type = "branch_rejected"
	TypePromptCreated     Type = "prompt_created"
	TypePromptUpdated     Type = "prompt_updated"
	TypePromptArchived    Type = "prompt_archived"
)

// Channel is a domain-scoped Postgres NOTIFY channel.
// All event types within a domain share one LISTEN connection.
type Channel string

const (
	ChannelPrompt  Channel = "prompt"
	ChannelVersion Channel = "version"
	ChannelBranch  Channel = "branch"
)

var typeToChannel = map[Type]Channel{
	TypeVersionCommitted:  ChannelVersion,
	TypeVersionRestored:   ChannelVersion,
	TypeVersionRolledBack: ChannelVersion,
	TypeBranchCreated:     ChannelBranch,
	TypeBranchMerged:      ChannelBranch,
	TypeBranchRejected:    ChannelBranch,
	TypePromptCreated:     ChannelPrompt,
	TypePromptUpdated:     ChannelPrompt,
	TypePromptArchived:    ChannelPrompt,
}

// ChannelFor returns the domain channel for a given event type.
func ChannelFor(t Type) Channel { return typeToChannel[t] }

// Event carries identifiers only, not full state.
// Subscribers fetch fresh state through the registry or version store.
type Event struct {
	Type      Type      `json:"type"`
	EntityID  uuid.UUID `json:"entity_id"`
	Timestamp time.Time `json:"timestamp"`
}

func New(eventType Type, entityID uuid.UUID) Event {
	return Event{
		Type:      eventType,
		EntityID:  entityID,
		Timestamp: time.Now().UTC(),
	}
}
