package media

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStore_PutDeleteServe(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStore(dir, "http://localhost:8080/media/")
	require.NoError(t, err)

	ctx := context.Background()
	key := "submissions/user/one.png"

	url, err := store.Put(ctx, key, "image/png", pngHeader)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/media/submissions/user/one.png", url)

	onDisk, err := os.ReadFile(filepath.Join(dir, "submissions", "user", "one.png"))
	require.NoError(t, err)
	assert.Equal(t, pngHeader, onDisk)

	handler := http.StripPrefix("/media", store.Handler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/media/submissions/user/one.png", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, pngHeader, rec.Body.Bytes())
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/media/submissions/user/", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code, "directory listings are refused")

	require.NoError(t, store.Delete(ctx, key))
	_, err = os.Stat(filepath.Join(dir, "submissions", "user", "one.png"))
	assert.True(t, os.IsNotExist(err))

	assert.NoError(t, store.Delete(ctx, key), "deleting a missing key succeeds")
}

func TestLocalStore_RejectsEscapingKeys(t *testing.T) {
	store, err := NewLocalStore(t.TempDir(), "http://localhost/media")
	require.NoError(t, err)

	_, err = store.Put(context.Background(), "../outside.png", "image/png", pngHeader)
	assert.ErrorIs(t, err, ErrInvalidKey)

	assert.ErrorIs(t, store.Delete(context.Background(), "/etc/passwd"), ErrInvalidKey)
}

func TestLocalStore_HonoursCancelledContext(t *testing.T) {
	store, err := NewLocalStore(t.TempDir(), "http://localhost/media")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = store.Put(ctx, "a.png", "image/png", pngHeader)
	assert.ErrorIs(t, err, context.Canceled)
}
