package blob

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObjectName(t *testing.T) {
	now := time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC)
	name := ObjectName("/invoices/12/", "../../etc/my file.pdf", now)

	assert.True(t, strings.HasPrefix(name, "invoices/12/20250304050607_"), name)
	assert.True(t, strings.HasSuffix(name, "_my_file.pdf"), name)
	assert.NotContains(t, name, "..")
}

func TestLocalStore_SaveAndDelete(t *testing.T) {
	root := t.TempDir()
	store, err := NewLocalStore(root)
	require.NoError(t, err)

	publicPath, err := store.Save(context.Background(), "checks/3", "scan.png", strings.NewReader("png-bytes"))
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(publicPath, "/uploads/checks/3/"), publicPath)

	onDisk := filepath.Join(root, filepath.FromSlash(strings.TrimPrefix(publicPath, PublicPrefix)))
	body, err := os.ReadFile(onDisk)
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(body))

	require.NoError(t, store.Delete(context.Background(), publicPath))
	_, err = os.Stat(onDisk)
	assert.True(t, os.IsNotExist(err))

	assert.NoError(t, store.Delete(context.Background(), publicPath), "second delete is a no-op")
}

func TestLocalStore_DeleteRejectsEscapes(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)
	assert.Error(t, store.Delete(context.Background(), "/uploads/../secret"))
	assert.Error(t, store.Delete(context.Background(), "/etc/passwd"))
}
