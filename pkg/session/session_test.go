package session

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/hostel-out-api/internal/models"
)

func TestHolderLifecycle(t *testing.T) {
	h := NewHolder(nil)
	assert.False(t, h.IsLoggedIn())

	require.NoError(t, h.Set(Session{UserID: "u1", Role: models.RoleTeacher, AccessToken: "tok"}))
	s, ok := h.Current()
	require.True(t, ok)
	assert.Equal(t, models.RoleTeacher, s.Role)
	assert.True(t, h.IsLoggedIn())

	require.NoError(t, h.UpdateTokens("tok2", "ref2"))
	s, _ = h.Current()
	assert.Equal(t, "tok2", s.AccessToken)

	require.NoError(t, h.Clear())
	assert.False(t, h.IsLoggedIn())
}

func TestHolderConcurrentAccess(t *testing.T) {
	h := NewHolder(nil)
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = h.Set(Session{UserID: "u", AccessToken: "t"})
		}()
		go func() {
			defer wg.Done()
			_, _ = h.Current()
		}()
	}
	wg.Wait()
	assert.True(t, h.IsLoggedIn())
}

func TestFileStorePersistsAcrossHolders(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session")
	store, err := NewFileStore(path, []byte("0123456789abcdef0123456789abcdef"), []byte("0123456789abcdef"))
	require.NoError(t, err)

	first := NewHolder(store)
	require.NoError(t, first.Set(Session{UserID: "w1", Role: models.RoleWarden, AccessToken: "a", RefreshToken: "r"}))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "w1")

	second := NewHolder(store)
	require.NoError(t, second.Restore())
	s, ok := second.Current()
	require.True(t, ok)
	assert.Equal(t, "w1", s.UserID)
	assert.Equal(t, models.RoleWarden, s.Role)

	require.NoError(t, second.Clear())
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestFileStoreRejectsForeignKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session")
	store, err := NewFileStore(path, []byte("key-one"), nil)
	require.NoError(t, err)
	require.NoError(t, store.Save(Session{UserID: "s1"}))

	other, err := NewFileStore(path, []byte("key-two"), nil)
	require.NoError(t, err)
	_, err = other.Load()
	assert.Error(t, err)
}

func TestNewFileStoreValidation(t *testing.T) {
	_, err := NewFileStore("", []byte("k"), nil)
	assert.Error(t, err)
	_, err = NewFileStore("x", nil, nil)
	assert.Error(t, err)
	_, err = NewFileStore("x", []byte("k"), []byte("short"))
	assert.Error(t, err)
}

func TestRestoreWithoutFile(t *testing.T) {
	store, err := NewFileStore(filepath.Join(t.TempDir(), "none"), []byte("k"), nil)
	require.NoError(t, err)
	h := NewHolder(store)
	require.NoError(t, h.Restore())
	assert.False(t, h.IsLoggedIn())
}

func TestHolderKeepsStateWhenSaveFails(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o600))
	store, err := NewFileStore(filepath.Join(blocker, "session"), []byte("0123456789abcdef0123456789abcdef"), nil)
	require.NoError(t, err)

	h := NewHolder(store)
	assert.Error(t, h.Set(Session{UserID: "s1", AccessToken: "a"}))
	assert.False(t, h.IsLoggedIn())

	h = NewHolder(nil)
	require.NoError(t, h.Set(Session{UserID: "s1", AccessToken: "a", RefreshToken: "r"}))
	h.store = store
	assert.Error(t, h.UpdateTokens("a2", "r2"))
	s, ok := h.Current()
	require.True(t, ok)
	assert.Equal(t, "a", s.AccessToken)
	assert.Equal(t, "r", s.RefreshToken)
}
