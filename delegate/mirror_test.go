package delegate_test

import (
	"context"
	"testing"

	"github.com/doorward/doorward/delegate"
	"github.com/doorward/doorward/internal/testutil"
	"github.com/stretchr/testify/require"
)

func TestUpsertReplacesExisting(t *testing.T) {
	ctx := context.Background()
	profiles, cleanup := testutil.AcquireProfileStore(ctx, t, "profiles")
	defer cleanup()

	require.NoError(t, profiles.Upsert(ctx, delegate.Profile{ID: "ext-1", Email: "ana@example.com", Name: "Ana"}))
	require.NoError(t, profiles.Upsert(ctx, delegate.Profile{ID: "ext-1", Email: "ana@example.com", Name: "Ana Maria"}))

	p, err := profiles.Get(ctx, "ext-1")
	require.NoError(t, err)
	require.Equal(t, "Ana Maria", p.Name)
}

func TestJournalReplay(t *testing.T) {
	ctx := context.Background()
	profiles, cleanup := testutil.AcquireProfileStore(ctx, t, "profiles")
	defer cleanup()

	require.NoError(t, profiles.Journal(ctx, delegate.Profile{ID: "ext-1", Email: "ana@example.com", Name: "Ana"}))
	require.NoError(t, profiles.Journal(ctx, delegate.Profile{ID: "ext-2", Email: "bob@example.com", Name: "Bob"}))

	replayed, err := profiles.ReplayJournal(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, replayed)

	for _, id := range []string{"ext-1", "ext-2"} {
		_, err := profiles.Get(ctx, id)
		require.NoError(t, err)
	}

	// entries replay only once
	replayed, err = profiles.ReplayJournal(ctx)
	require.NoError(t, err)
	require.Equal(t, 0, replayed)
}
