package store

import "context"

// Record is one keyed row in a collection. Every persisted record has an
// "id" field (uuid string) assigned by Insert.
type Record = map[string]any

// Filters is an equality-filter map: every key must match exactly.
type Filters = map[string]any

// SelectOpts shape a Select beyond filtering.
type SelectOpts struct {
	OrderBy    string
	Descending bool
	Limit      int // 0 = no limit
}

// RecordStore is the persistence abstraction for all collections (prompts,
// versions, branches, usage logs). Implementations guarantee that Insert and
// Update are individually atomic; cross-record atomicity is the caller's
// problem (the version store serialises read-then-append per line via the
// advisory locker).
// [DIP] Services depend on this interface, never on a concrete engine.
type RecordStore interface {
	Insert(ctx context.Context, collection string, record Record) (Record, error)
	Select(ctx context.Context, collection string, filters Filters, opts SelectOpts) ([]Record, error)
	Update(ctx context.Context, collection string, id string, partial Record) (Record, error)
	Delete(ctx context.Context, collection string, id string) error
}

// Collection names.
const (
	CollectionPrompts  = "prompts"
	CollectionVersions = "prompt_versions"
	CollectionBranches = "prompt_branches"
	CollectionUsageLog = "prompt_usage_log"
)
