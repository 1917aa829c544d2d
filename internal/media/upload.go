package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/serroba/ringtones/internal/filetype"
)

var (
	ErrUnsupportedType   = errors.New("unsupported file type")
	ErrTooLarge          = errors.New("file too large")
	ErrSignatureMismatch = errors.New("file content does not match an allowed type")
)

// Kind selects the rules applied to an upload.
type Kind string

const (
	KindAudio Kind = "audio"
	KindImage Kind = "image"
)

// Rule constrains one Kind of upload.
type Rule struct {
	Dir        string
	MaxSize    int64
	Extensions []string
	Accepted   []filetype.Type
}

// Rules are the upload constraints per kind.
var Rules = map[Kind]Rule{
	KindAudio: {
		Dir:        "ringtones",
		MaxSize:    10 << 20,
		Extensions: []string{"mp3", "m4r", "ogg", "wav", "aac"},
		Accepted:   filetype.AudioTypes,
	},
	KindImage: {
		Dir:        "thumbnails",
		MaxSize:    5 << 20,
		Extensions: []string{"jpg", "jpeg", "png", "gif", "webp"},
		Accepted:   filetype.ImageTypes,
	},
}

// Stored describes a successfully stored upload.
type Stored struct {
	Key  string
	Size int64
	Type filetype.Type
}

// Uploader validates uploads and writes them to a Storage under fresh names.
type Uploader struct {
	storage Storage
	newName func() string
}

func NewUploader(storage Storage) *Uploader {
	return &Uploader{
		storage: storage,
		newName: func() string { return uuid.NewString() },
	}
}

// Store checks the extension, then the declared size, then the leading
// bytes, and only then writes the file.
func (u *Uploader) Store(ctx context.Context, kind Kind, filename string, size int64, body io.Reader) (*Stored, error) {
	rule, ok := Rules[kind]
	if !ok {
		return nil, fmt.Errorf("%w: unknown kind %q", ErrUnsupportedType, kind)
	}

	ext := strings.ToLower(strings.TrimPrefix(path.Ext(filename), "."))
	if !slices.Contains(rule.Extensions, ext) {
		return nil, fmt.Errorf("%w: allowed %s", ErrUnsupportedType, strings.Join(rule.Extensions, ", "))
	}

	if size > rule.MaxSize {
		return nil, fmt.Errorf("%w: maximum size is %d MB", ErrTooLarge, rule.MaxSize>>20)
	}

	header := make([]byte, filetype.HeaderSize)

	n, err := io.ReadFull(body, header)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read upload: %w", err)
	}

	header = header[:n]

	detected := filetype.Detect(header, rule.Accepted...)
	if !detected.Valid {
		return nil, fmt.Errorf("%w: detected %s", ErrSignatureMismatch, detected.Type)
	}

	key := rule.Dir + "/" + u.newName() + "." + ext
	content := io.MultiReader(bytes.NewReader(header), io.LimitReader(body, rule.MaxSize-int64(n)))

	if err := u.storage.Put(ctx, key, content, size, detected.Type.MIMEType()); err != nil {
		return nil, err
	}

	return &Stored{Key: key, Size: size, Type: detected.Type}, nil
}

// Delete removes a previously stored key. Empty keys are ignored.
func (u *Uploader) Delete(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}

	return u.storage.Delete(ctx, key)
}
