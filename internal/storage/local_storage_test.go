package storage

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"socialnet/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStorage(t *testing.T) FileStorageService {
	t.Helper()
	dir := t.TempDir()
	svc, err := NewLocalStorageService(config.StorageConfig{LocalPath: dir}, "/uploads")
	require.NoError(t, err)
	return svc
}

func TestUploadFile(t *testing.T) {
	ctx := context.Background()

	t.Run("writes the file and returns its URL", func(t *testing.T) {
		svc := newTestStorage(t)
		content := []byte("fake image bytes")

		info, err := svc.UploadFile(ctx, bytes.NewReader(content), int64(len(content)), "avatar.png", "image/png")
		require.NoError(t, err)
		assert.Equal(t, int64(len(content)), info.Size)
		assert.Equal(t, "avatar.png", info.FileName)
		assert.Equal(t, "image/png", info.MimeType)
		assert.True(t, strings.HasPrefix(info.URL, "/uploads/"))
		assert.True(t, strings.HasSuffix(info.Path, ".png"), "original extension is kept")

		written, err := os.ReadFile(info.Path)
		require.NoError(t, err)
		assert.Equal(t, content, written)
	})

	t.Run("generated names do not collide", func(t *testing.T) {
		svc := newTestStorage(t)
		content := []byte("x")

		a, err := svc.UploadFile(ctx, bytes.NewReader(content), 1, "same.png", "image/png")
		require.NoError(t, err)
		b, err := svc.UploadFile(ctx, bytes.NewReader(content), 1, "same.png", "image/png")
		require.NoError(t, err)
		assert.NotEqual(t, a.Path, b.Path)
	})

	t.Run("rejects a size mismatch and removes the partial file", func(t *testing.T) {
		svc := newTestStorage(t)
		content := []byte("short")

		info, err := svc.UploadFile(ctx, bytes.NewReader(content), 100, "avatar.png", "image/png")
		require.Error(t, err)
		assert.Nil(t, info)
	})

	t.Run("infers the extension from the mime type", func(t *testing.T) {
		svc := newTestStorage(t)
		content := []byte("fake jpeg")

		info, err := svc.UploadFile(ctx, bytes.NewReader(content), int64(len(content)), "noextension", "image/jpeg")
		require.NoError(t, err)
		assert.NotEqual(t, "", filepath.Ext(info.Path), "an extension is inferred when the name has none")
	})
}
