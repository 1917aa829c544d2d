// Package media stores uploaded ringtone audio and thumbnails.
package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
)

// ErrNotFound is wrapped by storage errors for keys that do not exist.
var ErrNotFound = errors.New("media not found")

// Storage is a flat key/value blob store. Keys are slash-separated relative
// paths such as "ringtones/<uuid>.mp3".
type Storage interface {
	// Put writes r under key. A positive size must match the bytes written.
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error

	// Open returns a reader for key. The caller closes it.
	Open(ctx context.Context, key string) (io.ReadCloser, error)

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

// StorageError records the operation and key of a failed storage call.
type StorageError struct {
	Op  string
	Key string
	Err error
}

func (e *StorageError) Error() string {
	if e.Key != "" {
		return e.Op + " " + e.Key + ": " + e.Err.Error()
	}

	return e.Op + ": " + e.Err.Error()
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

func storageError(op, key string, err error) *StorageError {
	return &StorageError{Op: op, Key: key, Err: err}
}

// validateKey rejects keys that could escape the storage root.
func validateKey(key string) error {
	if key == "" {
		return errors.New("empty key")
	}

	if strings.ContainsRune(key, '\x00') {
		return errors.New("null byte in key")
	}

	if strings.HasPrefix(key, "/") || strings.Contains(key, "\\") {
		return fmt.Errorf("key must be relative: %s", key)
	}

	for _, part := range strings.Split(key, "/") {
		if part == ".." {
			return fmt.Errorf("path traversal not allowed: %s", key)
		}
	}

	if cleaned := path.Clean(key); cleaned == "." {
		return fmt.Errorf("invalid key: %s", key)
	}

	return nil
}
