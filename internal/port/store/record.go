package store

import (
	"time"

	"github.com/google/uuid"
)

// Field coercion helpers. Records round-trip through JSON in every backend
// (jsonb columns, the in-memory store's copy-on-write), so numbers may come
// back as float64 and timestamps as RFC3339 strings. Readers go through
// these instead of raw type assertions.

func String(r Record, key string) string {
	s, _ := r[key].(string)
	return s
}

func Bool(r Record, key string) bool {
	b, _ := r[key].(bool)
	return b
}

func Int(r Record, key string) int {
	switch v := r[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}

func Time(r Record, key string) time.Time {
	switch v := r[key].(type) {
	case time.Time:
		return v
	case string:
		if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
			return t
		}
	}
	return time.Time{}
}

func UUID(r Record, key string) uuid.UUID {
	switch v := r[key].(type) {
	case uuid.UUID:
		return v
	case string:
		if id, err := uuid.Parse(v); err == nil {
			return id
		}
	}
	return uuid.Nil
}

func Map(r Record, key string) map[string]any {
	m, _ := r[key].(map[string]any)
	return m
}

func Strings(r Record, key string) []string {
	switch v := r[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
