package storage_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/storage"
	"storefront/internal/storage/storagetest"
)

func TestMemoryStorage(t *testing.T) {
	backend := storage.NewMemoryBackend()
	storagetest.RunContract(t, func(_ *testing.T, origin string) storage.Storage {
		return backend.For(origin)
	})
}

func TestFileStorage(t *testing.T) {
	dir := t.TempDir()
	storagetest.RunContract(t, func(t *testing.T, origin string) storage.Storage {
		s, err := storage.NewFile(dir, origin)
		require.NoError(t, err)
		return s
	})
}

func TestFileStorageLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	s, err := storage.NewFile(dir, "shop")
	require.NoError(t, err)
	require.NoError(t, s.Set(context.Background(), "session", []byte("{}")))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "shop:session", entries[0].Name())
	_, err = os.Stat(filepath.Join(dir, entries[0].Name()))
	assert.NoError(t, err)
}

func TestNamespacedKey(t *testing.T) {
	assert.Equal(t, "shop:session", storage.NamespacedKey("shop", storage.KeySession))
}
