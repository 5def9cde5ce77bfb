package session

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chat-gateway/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "session.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestLoadEmptyStore(t *testing.T) {
	s := newTestStore(t)

	token, user, err := s.Load()
	require.NoError(t, err)
	assert.Empty(t, token)
	assert.Nil(t, user)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.Save("tok-123", models.User{ID: "me", Username: "io"}))

	token, user, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, "tok-123", token)
	require.NotNil(t, user)
	assert.Equal(t, "me", user.ID)
	assert.Equal(t, "io", user.Username)
}

func TestSaveReplacesPreviousSession(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.Save("tok-vecchio", models.User{ID: "me", Username: "io"}))
	require.NoError(t, s.Save("tok-nuovo", models.User{ID: "me", Username: "io"}))

	token, _, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, "tok-nuovo", token)
}

func TestClearRemovesSession(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.Save("tok-123", models.User{ID: "me", Username: "io"}))
	require.NoError(t, s.Clear())

	token, user, err := s.Load()
	require.NoError(t, err)
	assert.Empty(t, token)
	assert.Nil(t, user)

	// cancellare due volte non è un errore
	assert.NoError(t, s.Clear())
}
