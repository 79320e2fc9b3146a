package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	portstore "github.com/MikeSquared-Agency/PromptForge/internal/port/store"
)

// Store implements port/store.RecordStore on Postgres. Each collection is a
// table of (id text primary key, doc jsonb); records round-trip through jsonb
// so services see the same value shapes as the in-memory store (numbers as
// float64, times as RFC3339 strings).
// [DIP] Services depend on the RecordStore port, never on pgx.
type Store struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Collection and field names are interpolated into SQL, so restrict them to
// identifier-safe characters. All values still travel as bind parameters.
var identRe = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

func checkIdent(name string) error {
	if !identRe.MatchString(name) {
		return fmt.Errorf("invalid identifier %q", name)
	}
	return nil
}

func (s *Store) Insert(ctx context.Context, collection string, record portstore.Record) (portstore.Record, error) {
	if err := checkIdent(collection); err != nil {
		return nil, err
	}

	doc := make(portstore.Record, len(record)+1)
	for k, v := range record {
		doc[k] = v
	}
	if _, ok := doc["id"]; !ok {
		doc["id"] = uuid.NewString()
	}

	payload, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encoding record for %s: %w", collection, err)
	}

	query := fmt.Sprintf(`INSERT INTO %s (id, doc) VALUES ($1, $2) RETURNING doc`, collection)

	var out []byte
	if err := s.pool.QueryRow(ctx, query, doc["id"], payload).Scan(&out); err != nil {
		return nil, fmt.Errorf("inserting into %s: %w", collection, err)
	}
	return decodeDoc(collection, out)
}

func (s *Store) Select(ctx context.Context, collection string, filters portstore.Filters, opts portstore.SelectOpts) ([]portstore.Record, error) {
	if err := checkIdent(collection); err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`SELECT doc FROM %s WHERE 1=1`, collection)
	args := []any{}
	argIdx := 1

	if len(filters) > 0 {
		// jsonb containment gives equality on every filtered key at once.
		match, err := json.Marshal(filters)
		if err != nil {
			return nil, fmt.Errorf("encoding filters for %s: %w", collection, err)
		}
		query += fmt.Sprintf(" AND doc @> $%d", argIdx)
		args = append(args, match)
		argIdx++
	}

	if opts.OrderBy != "" {
		if err := checkIdent(opts.OrderBy); err != nil {
			return nil, err
		}
		// doc->'key' keeps jsonb ordering: numbers compare numerically,
		// RFC3339 strings chronologically.
		query += fmt.Sprintf(" ORDER BY doc->'%s'", opts.OrderBy)
		if opts.Descending {
			query += " DESC"
		}
	}
	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, opts.Limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("selecting from %s: %w", collection, err)
	}
	defer rows.Close()

	var records []portstore.Record
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scanning row from %s: %w", collection, err)
		}
		rec, err := decodeDoc(collection, raw)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rows from %s: %w", collection, err)
	}
	return records, nil
}

func (s *Store) Update(ctx context.Context, collection string, id string, partial portstore.Record) (portstore.Record, error) {
	if err := checkIdent(collection); err != nil {
		return nil, err
	}

	payload, err := json.Marshal(partial)
	if err != nil {
		return nil, fmt.Errorf("encoding partial for %s: %w", collection, err)
	}

	query := fmt.Sprintf(`UPDATE %s SET doc = doc || $2 WHERE id = $1 RETURNING doc`, collection)

	var out []byte
	if err := s.pool.QueryRow(ctx, query, id, payload).Scan(&out); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("record %s not found in %s", id, collection)
		}
		return nil, fmt.Errorf("updating %s in %s: %w", id, collection, err)
	}
	return decodeDoc(collection, out)
}

func (s *Store) Delete(ctx context.Context, collection string, id string) error {
	if err := checkIdent(collection); err != nil {
		return err
	}

	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, collection)
	tag, err := s.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("deleting %s from %s: %w", id, collection, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("record %s not found in %s", id, collection)
	}
	return nil
}

func decodeDoc(collection string, raw []byte) (portstore.Record, error) {
	var rec portstore.Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("decoding record from %s: %w", collection, err)
	}
	return rec, nil
}
