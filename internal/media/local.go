package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// LocalStorage keeps media on the local filesystem under a base directory.
type LocalStorage struct {
	baseDir string
	logger  *zap.Logger
}

// NewLocalStorage creates baseDir if needed.
func NewLocalStorage(baseDir string, logger *zap.Logger) (*LocalStorage, error) {
	abs, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, storageError("NewLocalStorage", baseDir, err)
	}

	if err := os.MkdirAll(abs, 0o750); err != nil {
		return nil, storageError("NewLocalStorage", baseDir, err)
	}

	return &LocalStorage{baseDir: abs, logger: logger}, nil
}

func (s *LocalStorage) resolve(key string) (string, error) {
	if err := validateKey(key); err != nil {
		return "", err
	}

	full := filepath.Join(s.baseDir, filepath.FromSlash(key))
	if !strings.HasPrefix(full, s.baseDir+string(filepath.Separator)) {
		return "", fmt.Errorf("path escape attempt: %s", key)
	}

	return full, nil
}

// Put writes to a temp file in the target directory and renames it into place.
func (s *LocalStorage) Put(_ context.Context, key string, r io.Reader, size int64, _ string) error {
	full, err := s.resolve(key)
	if err != nil {
		return storageError("Put", key, err)
	}

	dir := filepath.Dir(full)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return storageError("Put", key, err)
	}

	tmp, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return storageError("Put", key, err)
	}

	var succeeded bool

	defer func() {
		_ = tmp.Close()

		if !succeeded {
			_ = os.Remove(tmp.Name())
		}
	}()

	written, err := io.Copy(tmp, r)
	if err != nil {
		return storageError("Put", key, err)
	}

	if size > 0 && written != size {
		return storageError("Put", key, fmt.Errorf("size mismatch: expected %d bytes, wrote %d", size, written))
	}

	if err := tmp.Close(); err != nil {
		return storageError("Put", key, err)
	}

	if err := os.Rename(tmp.Name(), full); err != nil {
		return storageError("Put", key, err)
	}

	succeeded = true

	s.logger.Debug("media stored", zap.String("key", key), zap.Int64("size", written))

	return nil
}

func (s *LocalStorage) Open(_ context.Context, key string) (io.ReadCloser, error) {
	full, err := s.resolve(key)
	if err != nil {
		return nil, storageError("Open", key, err)
	}

	f, err := os.Open(full)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, storageError("Open", key, fmt.Errorf("%w: %w", ErrNotFound, err))
		}

		return nil, storageError("Open", key, err)
	}

	return f, nil
}

func (s *LocalStorage) Delete(_ context.Context, key string) error {
	full, err := s.resolve(key)
	if err != nil {
		return storageError("Delete", key, err)
	}

	if err := os.Remove(full); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return storageError("Delete", key, err)
	}

	return nil
}

var _ Storage = (*LocalStorage)(nil)
