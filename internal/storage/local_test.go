package storage

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorage_SaveAndDelete(t *testing.T) {
	root := t.TempDir()
	s, err := NewLocalStorage(Config{BasePath: root, BaseURL: "/media/"})
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, "recipes/images/a.png", bytes.NewReader([]byte("png")), "image/png"))

	data, err := os.ReadFile(filepath.Join(root, "recipes", "images", "a.png"))
	require.NoError(t, err)
	assert.Equal(t, "png", string(data))
	assert.Equal(t, "/media/recipes/images/a.png", s.URL("recipes/images/a.png"))

	require.NoError(t, s.Delete(ctx, "recipes/images/a.png"))
	_, err = os.Stat(filepath.Join(root, "recipes", "images", "a.png"))
	assert.True(t, os.IsNotExist(err))

	assert.NoError(t, s.Delete(ctx, "recipes/images/a.png"), "deleting a missing object is not an error")
}

func TestLocalStorage_KeysStayInsideRoot(t *testing.T) {
	root := t.TempDir()
	s, err := NewLocalStorage(Config{BasePath: root})
	require.NoError(t, err)

	require.NoError(t, s.Save(context.Background(), "../../escape.txt", bytes.NewReader([]byte("x")), "text/plain"))

	_, err = os.Stat(filepath.Join(root, "escape.txt"))
	assert.NoError(t, err)
}

func TestNewStorage_UnknownType(t *testing.T) {
	_, err := NewStorage(context.Background(), Config{Type: "ftp"})
	assert.Error(t, err)
}
