package settings

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// newTestSettings opens an in-memory settings store for testing.
func newTestSettings(t *testing.T) *Settings {
	t.Helper()

	s, err := Open(":memory:")
	require.NoError(t, err, "failed to open settings")

	t.Cleanup(func() {
		s.Close()
	})
	return s
}

func TestGetSetDelete(t *testing.T) {
	s := newTestSettings(t)
	ctx := context.Background()

	_, ok, err := s.Get(ctx, "missing")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, s.Set(ctx, "a", "1"))
	require.NoError(t, s.Set(ctx, "a", "2"))

	v, ok, err := s.Get(ctx, "a")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "2", v)

	require.NoError(t, s.Delete(ctx, "a", "never-set"))
	_, ok, err = s.Get(ctx, "a")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestSaveConnectionValidation(t *testing.T) {
	s := newTestSettings(t)
	ctx := context.Background()

	require.ErrorIs(t, s.SaveConnection(ctx, "", "k"), ErrIncomplete)
	require.ErrorIs(t, s.SaveConnection(ctx, "postgres://db/x", " "), ErrIncomplete)
	require.ErrorIs(t, s.SaveConnection(ctx, "https://x.supabase.co", "k"), ErrInvalidURL)

	conn, err := s.Resolve(ctx, "", "")
	require.NoError(t, err)
	require.Equal(t, SourceNone, conn.Source)
}

func TestResolvePrecedence(t *testing.T) {
	s := newTestSettings(t)
	ctx := context.Background()

	conn, err := s.Resolve(ctx, "postgres://env/db", "envkey")
	require.NoError(t, err)
	require.Equal(t, Connection{URL: "postgres://env/db", Key: "envkey", Source: SourceEnv}, conn)

	require.NoError(t, s.SaveConnection(ctx, "postgres://local/db", "localkey"))
	conn, err = s.Resolve(ctx, "postgres://env/db", "envkey")
	require.NoError(t, err)
	require.Equal(t, Connection{URL: "postgres://local/db", Key: "localkey", Source: SourceLocal}, conn)

	require.NoError(t, s.ClearConnection(ctx))
	conn, err = s.Resolve(ctx, "", "")
	require.NoError(t, err)
	require.Equal(t, Connection{Source: SourceNone}, conn)
}

func TestPersistsAcrossOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.db")
	ctx := context.Background()

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.SaveConnection(ctx, "postgres://local/db", "k"))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()

	conn, err := s.Resolve(ctx, "", "")
	require.NoError(t, err)
	require.Equal(t, SourceLocal, conn.Source)
	require.Equal(t, "postgres://local/db", conn.URL)
}
