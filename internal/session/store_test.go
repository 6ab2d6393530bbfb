package session

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ziadkadry99/feedback-coach/internal/db"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	d, err := db.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })
	return NewStore(d)
}

func TestStore_TokenLifecycle(t *testing.T) {
	s := newStore(t)
	assert.Empty(t, s.Token())
	assert.False(t, s.SignedIn())

	require.NoError(t, s.SetToken("tok-1"))
	assert.Equal(t, "tok-1", s.Token())
	assert.True(t, s.SignedIn())

	require.NoError(t, s.SetToken("tok-2"))
	assert.Equal(t, "tok-2", s.Token())

	require.NoError(t, s.Clear())
	assert.Empty(t, s.Token())
}

func TestStore_InvalidateKeepsRememberedEmail(t *testing.T) {
	s := newStore(t)
	require.NoError(t, s.SetToken("tok"))
	require.NoError(t, s.RememberEmail("ada@example.com"))

	s.Invalidate()

	assert.Empty(t, s.Token())
	assert.Equal(t, "ada@example.com", s.RememberedEmail())
}

func TestStore_ForgetEmail(t *testing.T) {
	s := newStore(t)
	require.NoError(t, s.RememberEmail("ada@example.com"))
	require.NoError(t, s.ForgetEmail())
	assert.Empty(t, s.RememberedEmail())
	require.NoError(t, s.ForgetEmail())
}

func TestStore_PersistsAcrossOpens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "coach.db")

	d, err := db.Open(path)
	require.NoError(t, err)
	require.NoError(t, NewStore(d).SetToken("persisted"))
	require.NoError(t, d.Close())

	d, err = db.Open(path)
	require.NoError(t, err)
	defer d.Close()
	assert.Equal(t, "persisted", NewStore(d).Token())
}
