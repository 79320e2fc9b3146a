//go:build integration

package store_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pgstore "github.com/MikeSquared-Agency/PromptForge/internal/adapter/postgres/store"
	portstore "github.com/MikeSquared-Agency/PromptForge/internal/port/store"
	"github.com/MikeSquared-Agency/PromptForge/internal/testutil"
)

func insertPrompt(t *testing.T, ctx context.Context, s *pgstore.Store, slug string) portstore.Record {
	t.Helper()
	rec, err := s.Insert(ctx, portstore.CollectionPrompts, portstore.Record{
		"slug": slug,
		"name": "Test " + slug,
		"type": "persona",
	})
	require.NoError(t, err)
	return rec
}

func TestStore_InsertSelect(t *testing.T) {
	pool := testutil.SetupTestDB(t)
	ctx := context.Background()
	s := pgstore.New(pool)

	slug := "it-" + uuid.New().String()[:8]
	created := insertPrompt(t, ctx, s, slug)
	require.NotEmpty(t, created["id"])

	got, err := s.Select(ctx, portstore.CollectionPrompts, portstore.Filters{"slug": slug}, portstore.SelectOpts{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, slug, got[0]["slug"])
	assert.Equal(t, created["id"], got[0]["id"])
}

func TestStore_SelectOrderAndLimit(t *testing.T) {
	pool := testutil.SetupTestDB(t)
	ctx := context.Background()
	s := pgstore.New(pool)

	promptID := uuid.NewString()
	for i := 1; i <= 3; i++ {
		_, err := s.Insert(ctx, portstore.CollectionVersions, portstore.Record{
			"prompt_id": promptID,
			"branch":    "main",
			"version":   i,
			"content":   map[string]any{"text": "v"},
		})
		require.NoError(t, err)
	}

	got, err := s.Select(ctx, portstore.CollectionVersions,
		portstore.Filters{"prompt_id": promptID},
		portstore.SelectOpts{OrderBy: "version", Descending: true, Limit: 2})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, float64(3), got[0]["version"])
	assert.Equal(t, float64(2), got[1]["version"])
}

func TestStore_UpdateMergesPartial(t *testing.T) {
	pool := testutil.SetupTestDB(t)
	ctx := context.Background()
	s := pgstore.New(pool)

	created := insertPrompt(t, ctx, s, "it-"+uuid.New().String()[:8])
	id := created["id"].(string)

	updated, err := s.Update(ctx, portstore.CollectionPrompts, id, portstore.Record{"archived": true})
	require.NoError(t, err)
	assert.Equal(t, true, updated["archived"])
	assert.Equal(t, created["slug"], updated["slug"], "unmentioned fields survive partial update")
}

func TestStore_UpdateMissing(t *testing.T) {
	pool := testutil.SetupTestDB(t)
	ctx := context.Background()
	s := pgstore.New(pool)

	_, err := s.Update(ctx, portstore.CollectionPrompts, uuid.NewString(), portstore.Record{"archived": true})
	require.Error(t, err)
}

func TestStore_Delete(t *testing.T) {
	pool := testutil.SetupTestDB(t)
	ctx := context.Background()
	s := pgstore.New(pool)

	created := insertPrompt(t, ctx, s, "it-"+uuid.New().String()[:8])
	id := created["id"].(string)

	require.NoError(t, s.Delete(ctx, portstore.CollectionPrompts, id))
	err := s.Delete(ctx, portstore.CollectionPrompts, id)
	require.Error(t, err, "second delete must fail")
}

func TestStore_UniqueVersionPerLine(t *testing.T) {
	pool := testutil.SetupTestDB(t)
	ctx := context.Background()
	s := pgstore.New(pool)

	promptID := uuid.NewString()
	rec := portstore.Record{
		"prompt_id": promptID,
		"branch":    "main",
		"version":   1,
		"content":   map[string]any{"text": "v"},
	}
	_, err := s.Insert(ctx, portstore.CollectionVersions, rec)
	require.NoError(t, err)

	_, err = s.Insert(ctx, portstore.CollectionVersions, rec)
	require.Error(t, err, "duplicate (prompt, branch, version) must be rejected")
}
