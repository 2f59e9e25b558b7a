// Package storage 提供 FileStore 接口的本地磁盘实现。
package storage

import (
	"context"
	"crypto/md5"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cseek/xfms/internal/repository"
)

// LocalFileStore 把文件保存在配置的根目录下。
// 每次上传生成一个 "<类别>/<时间戳>-<随机后缀>/<原始文件名>" 形式的键，
// 新目录保证并发上传同名文件互不冲突；键整体存入数据库，
// 根目录之外的布局细节对记录不可见。
type LocalFileStore struct {
	root string
}

// NewLocalFileStore 创建 LocalFileStore，root 不存在时自动创建。
func NewLocalFileStore(root string) (*LocalFileStore, error) {
	if root == "" {
		return nil, fmt.Errorf("file store root cannot be empty")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve file store root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create file store root: %w", err)
	}
	return &LocalFileStore{root: abs}, nil
}

// Save 流式写入文件并同时计算 MD5
func (s *LocalFileStore) Save(ctx context.Context, category, filename string, r io.Reader) (string, string, int64, error) {
	if err := ctx.Err(); err != nil {
		return "", "", 0, err
	}
	filename = filepath.Base(filename)
	if filename == "" || filename == "." || filename == string(filepath.Separator) {
		return "", "", 0, fmt.Errorf("invalid filename")
	}

	dirName, err := uniqueDirName()
	if err != nil {
		return "", "", 0, err
	}
	key := category + "/" + dirName + "/" + filename

	dir := filepath.Join(s.root, category, dirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", "", 0, fmt.Errorf("create upload dir: %w", err)
	}

	dst, err := os.Create(filepath.Join(dir, filename))
	if err != nil {
		os.RemoveAll(dir)
		return "", "", 0, fmt.Errorf("create upload file: %w", err)
	}

	hash := md5.New()
	size, err := io.Copy(io.MultiWriter(dst, hash), r)
	if cerr := dst.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.RemoveAll(dir)
		return "", "", 0, fmt.Errorf("write upload file: %w", err)
	}

	return key, hex.EncodeToString(hash.Sum(nil)), size, nil
}

// Open 按键打开文件供下载
func (s *LocalFileStore) Open(ctx context.Context, key string) (io.ReadCloser, int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	path, err := s.resolve(key)
	if err != nil {
		return nil, 0, err
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, 0, repository.ErrNotFound
		}
		return nil, 0, fmt.Errorf("open stored file %s: %w", key, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, fmt.Errorf("stat stored file %s: %w", key, err)
	}
	return f, info.Size(), nil
}

// Remove 删除键所在的整个目录
func (s *LocalFileStore) Remove(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := s.resolve(key)
	if err != nil {
		return err
	}
	// 整个上传目录一起删，不留空目录。
	if err := os.RemoveAll(filepath.Dir(path)); err != nil {
		return fmt.Errorf("remove stored dir of %s: %w", key, err)
	}
	return nil
}

// resolve 把不透明键映射为根目录下的绝对路径，并拒绝越界的键。
func (s *LocalFileStore) resolve(key string) (string, error) {
	if key == "" {
		return "", repository.ErrNotFound
	}
	path := filepath.Join(s.root, filepath.FromSlash(key))
	if !strings.HasPrefix(path, s.root+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid storage key %q", key)
	}
	return path, nil
}

// uniqueDirName 生成 "时间戳-随机后缀" 形式的目录名。
func uniqueDirName() (string, error) {
	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate upload dir name: %w", err)
	}
	return time.Now().Format("20060102150405") + "-" + hex.EncodeToString(buf), nil
}
