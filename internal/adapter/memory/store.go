package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	portstore "github.com/MikeSquared-Agency/PromptForge/internal/port/store"
)

// Store implements port/store.RecordStore in memory. Used by unit tests and
// dev mode. Records round-trip through JSON on the way in and out, matching
// the type normalisation a jsonb-backed store produces (numbers as float64,
// times as RFC3339 strings) so services see the same shapes in both modes.
// [LSP] Substitutes for the Postgres store everywhere.
type Store struct {
	mu          sync.RWMutex
	collections map[string][]portstore.Record
}

func NewStore() *Store {
	return &Store{
		collections: make(map[string][]portstore.Record),
	}
}

func (s *Store) Insert(_ context.Context, collection string, record portstore.Record) (portstore.Record, error) {
	clone, err := cloneRecord(record)
	if err != nil {
		return nil, fmt.Errorf("encoding record for %s: %w", collection, err)
	}
	if _, ok := clone["id"]; !ok {
		clone["id"] = uuid.NewString()
	}

	s.mu.Lock()
	s.collections[collection] = append(s.collections[collection], clone)
	s.mu.Unlock()

	return cloneRecord(clone)
}

func (s *Store) Select(_ context.Context, collection string, filters portstore.Filters, opts portstore.SelectOpts) ([]portstore.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []portstore.Record
	for _, rec := range s.collections[collection] {
		if matchesFilters(rec, filters) {
			clone, err := cloneRecord(rec)
			if err != nil {
				return nil, fmt.Errorf("decoding record from %s: %w", collection, err)
			}
			matched = append(matched, clone)
		}
	}

	if opts.OrderBy != "" {
		field := opts.OrderBy
		sort.SliceStable(matched, func(i, j int) bool {
			less := lessValue(matched[i][field], matched[j][field])
			if opts.Descending {
				return !less && !equalValue(matched[i][field], matched[j][field])
			}
			return less
		})
	}

	if opts.Limit > 0 && len(matched) > opts.Limit {
		matched = matched[:opts.Limit]
	}
	return matched, nil
}

func (s *Store) Update(_ context.Context, collection string, id string, partial portstore.Record) (portstore.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, rec := range s.collections[collection] {
		if rec["id"] == id {
			updated, err := cloneRecord(rec)
			if err != nil {
				return nil, fmt.Errorf("decoding record from %s: %w", collection, err)
			}
			normalized, err := cloneRecord(partial)
			if err != nil {
				return nil, fmt.Errorf("encoding partial for %s: %w", collection, err)
			}
			for k, v := range normalized {
				updated[k] = v
			}
			s.collections[collection][i] = updated
			return cloneRecord(updated)
		}
	}
	return nil, fmt.Errorf("record %s not found in %s", id, collection)
}

func (s *Store) Delete(_ context.Context, collection string, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records := s.collections[collection]
	for i, rec := range records {
		if rec["id"] == id {
			s.collections[collection] = append(records[:i], records[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("record %s not found in %s", id, collection)
}

func cloneRecord(rec portstore.Record) (portstore.Record, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, err
	}
	var out portstore.Record
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func matchesFilters(rec portstore.Record, filters portstore.Filters) bool {
	for key, want := range filters {
		if !equalValue(rec[key], normalize(want)) {
			return false
		}
	}
	return true
}

// normalize pushes a filter value through the same JSON round trip records
// get, so an int filter matches a float64 field.
func normalize(v any) any {
	data, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return v
	}
	return out
}

func equalValue(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	af, aok := asFloat(a)
	bf, bok := asFloat(b)
	if aok && bok {
		return af == bf
	}
	return fmt.Sprintf("%v", a) == fmt.Sprintf("%v", b)
}

// lessValue orders numerics numerically and everything else lexically.
// RFC3339 strings sort chronologically under lexical order.
func lessValue(a, b any) bool {
	af, aok := asFloat(a)
	bf, bok := asFloat(b)
	if aok && bok {
		return af < bf
	}
	return fmt.Sprintf("%v", a) < fmt.Sprintf("%v", b)
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}
