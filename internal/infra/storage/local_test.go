package storage

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cseek/xfms/internal/repository"
)

func TestLocalFileStore_SaveOpenRoundTrip(t *testing.T) {
	store, err := NewLocalFileStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	content := "firmware binary payload"
	key, md5sum, size, err := store.Save(ctx, repository.FileCategoryFirmware, "fw_v1.5.1.bin", strings.NewReader(content))
	require.NoError(t, err)

	assert.Equal(t, int64(len(content)), size)
	wantMD5 := md5.Sum([]byte(content))
	assert.Equal(t, hex.EncodeToString(wantMD5[:]), md5sum)

	// 键保留类别前缀和原始文件名，中间是生成的目录
	assert.True(t, strings.HasPrefix(key, repository.FileCategoryFirmware+"/"), "key %q", key)
	assert.True(t, strings.HasSuffix(key, "/fw_v1.5.1.bin"), "key %q", key)

	rc, gotSize, err := store.Open(ctx, key)
	require.NoError(t, err)
	defer rc.Close()
	assert.Equal(t, size, gotSize)

	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, content, string(data))
}

func TestLocalFileStore_SaveStripsPathFromFilename(t *testing.T) {
	store, err := NewLocalFileStore(t.TempDir())
	require.NoError(t, err)

	key, _, _, err := store.Save(context.Background(), repository.FileCategoryFirmware, "../../etc/fw.bin", strings.NewReader("x"))
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(key, "/fw.bin"), "key %q", key)
	assert.NotContains(t, key, "..")
}

func TestLocalFileStore_UniqueKeysForSameFilename(t *testing.T) {
	store, err := NewLocalFileStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	key1, _, _, err := store.Save(ctx, repository.FileCategoryFirmware, "fw.bin", strings.NewReader("one"))
	require.NoError(t, err)
	key2, _, _, err := store.Save(ctx, repository.FileCategoryFirmware, "fw.bin", strings.NewReader("two"))
	require.NoError(t, err)

	assert.NotEqual(t, key1, key2)
}

func TestLocalFileStore_OpenMissingKey(t *testing.T) {
	store, err := NewLocalFileStore(t.TempDir())
	require.NoError(t, err)

	_, _, err = store.Open(context.Background(), "firmwares/nope/fw.bin")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	_, _, err = store.Open(context.Background(), "")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestLocalFileStore_OpenRejectsEscapingKey(t *testing.T) {
	store, err := NewLocalFileStore(t.TempDir())
	require.NoError(t, err)

	_, _, err = store.Open(context.Background(), "../outside/secret.txt")
	require.Error(t, err)
	assert.NotErrorIs(t, err, repository.ErrNotFound)
}

func TestLocalFileStore_RemoveDeletesWholeDir(t *testing.T) {
	root := t.TempDir()
	store, err := NewLocalFileStore(root)
	require.NoError(t, err)
	ctx := context.Background()

	key, _, _, err := store.Save(ctx, repository.FileCategoryTestReport, "report.pdf", strings.NewReader("pdf"))
	require.NoError(t, err)

	dir := filepath.Dir(filepath.Join(root, filepath.FromSlash(key)))
	_, err = os.Stat(dir)
	require.NoError(t, err)

	require.NoError(t, store.Remove(ctx, key))

	_, err = os.Stat(dir)
	assert.True(t, os.IsNotExist(err))

	// 目录已不存在时再删不报错
	assert.NoError(t, store.Remove(ctx, key))
}
