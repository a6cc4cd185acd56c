package credential

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStoreRoundTrip(t *testing.T) {
	fs := afero.NewMemMapFs()
	store := NewFileStore(fs, "/run/user/1000/chatty")

	got, err := store.Get("APP_TOKEN")
	require.NoError(t, err)
	assert.Empty(t, got)

	require.NoError(t, store.Set("APP_TOKEN", "secret"))
	got, err = store.Get("APP_TOKEN")
	require.NoError(t, err)
	assert.Equal(t, "secret", got)

	info, err := fs.Stat("/run/user/1000/chatty/APP_TOKEN")
	require.NoError(t, err)
	assert.Equal(t, "-rw-------", info.Mode().Perm().String())

	require.NoError(t, store.Set("APP_TOKEN", "  "))
	exists, err := afero.Exists(fs, "/run/user/1000/chatty/APP_TOKEN")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestFileStoreDeleteMissing(t *testing.T) {
	store := NewFileStore(afero.NewMemMapFs(), "/tmp/chatty")
	assert.NoError(t, store.Delete("APP_TOKEN"))
}

func TestFileStoreRejectsPathKeys(t *testing.T) {
	store := NewFileStore(afero.NewMemMapFs(), "/tmp/chatty")

	_, err := store.Get("../etc/passwd")
	assert.ErrorIs(t, err, ErrInvalidKey)
	assert.ErrorIs(t, store.Set("a/b", "x"), ErrInvalidKey)
}

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore()

	require.NoError(t, store.Set("k", "v"))
	got, _ := store.Get("k")
	assert.Equal(t, "v", got)

	require.NoError(t, store.Set("k", ""))
	got, _ = store.Get("k")
	assert.Empty(t, got)
}
