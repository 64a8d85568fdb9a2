package sqlite_test

import (
	"path/filepath"
	"testing"

	"github.com/aussiebroadwan/sessionkit/internal/store"
	"github.com/aussiebroadwan/sessionkit/internal/store/drivers/sqlite"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T, dsn string) *sqlite.Store {
	t.Helper()

	s, err := sqlite.NewStore(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.ApplyMigrations())
	return s
}

func TestStoreLifecycle(t *testing.T) {
	t.Parallel()

	s := newStore(t, ":memory:")
	ctx := t.Context()

	_, err := s.Get(ctx, "session.user")
	require.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, s.Set(ctx, "session.user", "first"))
	require.NoError(t, s.Set(ctx, "session.user", "second"))

	v, err := s.Get(ctx, "session.user")
	require.NoError(t, err)
	require.Equal(t, "second", v, "set overwrites")

	require.NoError(t, s.Delete(ctx, "session.user"))
	require.NoError(t, s.Delete(ctx, "session.user"))
	_, err = s.Get(ctx, "session.user")
	require.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, s.Ping(ctx))
}

func TestMigrationsAreIdempotent(t *testing.T) {
	t.Parallel()

	s := newStore(t, ":memory:")
	require.NoError(t, s.ApplyMigrations())
}

func TestStoreSurvivesReopen(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "session.db")

	first, err := sqlite.NewStore(path)
	require.NoError(t, err)
	require.NoError(t, first.ApplyMigrations())
	require.NoError(t, first.Set(t.Context(), "session.anonymous", `{"user_uuid":null}`))
	require.NoError(t, first.Close())

	second := newStore(t, path)
	v, err := second.Get(t.Context(), "session.anonymous")
	require.NoError(t, err)
	require.Equal(t, `{"user_uuid":null}`, v)
}
