package fetcher

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/hyperschedule/hyperschedule-sub000/internal/linker"
	"github.com/hyperschedule/hyperschedule-sub000/internal/model"
	apperrors "github.com/hyperschedule/hyperschedule-sub000/pkg/errors"
)

const (
	cacheDirPerm  fs.FileMode = 0o700
	cacheFilePerm fs.FileMode = 0o600
)

// FileStore 原始数据的磁盘缓存：<dir>/<TERM>/<saveAs>
type FileStore struct {
	dir    string
	logger *zap.Logger
}

// NewFileStore 创建磁盘缓存
func NewFileStore(dir string, logger *zap.Logger) *FileStore {
	return &FileStore{dir: dir, logger: logger}
}

// Path 数据源在指定学期下的缓存路径
func (s *FileStore) Path(src Source, term model.TermIdentifier) string {
	return filepath.Join(s.dir, term.String(), src.SaveAs)
}

// Save 原子写入：临时文件写完并 fsync 后 rename 覆盖
func (s *FileStore) Save(src Source, term model.TermIdentifier, content string) error {
	dest := s.Path(src, term)
	dir := filepath.Dir(dest)
	if err := os.MkdirAll(dir, cacheDirPerm); err != nil {
		return fmt.Errorf("创建缓存目录失败: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	_ = os.Chmod(tmpPath, cacheFilePerm)

	if _, err := tmp.WriteString(content); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	_ = syncDir(dir)

	s.logger.Info("原始数据已写入磁盘",
		zap.String("path", dest), zap.Float64("size_kb", float64(len(content))/1024))
	return nil
}

// Load 读取单个数据源；文件不存在时返回包装 ErrCacheMissing 的错误
func (s *FileStore) Load(src Source, term model.TermIdentifier) (string, error) {
	path := s.Path(src, term)
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", apperrors.ErrCacheMissing, path)
		}
		return "", fmt.Errorf("读取缓存文件 %s 失败: %w", path, err)
	}
	return string(b), nil
}

// LoadAll 读取全部数据源，任一缺失即失败
func (s *FileStore) LoadAll(sources []Source, term model.TermIdentifier) (linker.Files, error) {
	files := make(linker.Files, len(sources))
	for _, src := range sources {
		content, err := s.Load(src, term)
		if err != nil {
			return nil, err
		}
		files[src.Name] = content
	}
	return files, nil
}

// syncDir 尽力 fsync 父目录，让 rename 落盘
func syncDir(dir string) error {
	f, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Sync()
}
