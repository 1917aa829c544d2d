package catalog

import (
	"fmt"
	"path"
	"regexp"
	"strings"

	"github.com/jaevor/go-nanoid"
)

// NumericIDLength is the number of digits in generated numeric ids.
const NumericIDLength = 9

var (
	slugStrip    = regexp.MustCompile(`[^\w\s-]`)
	slugSeparate = regexp.MustCompile(`[\s_-]+`)
	fileUnsafe   = regexp.MustCompile(`[^a-zA-Z0-9._-]`)
	fileRepeat   = regexp.MustCompile(`_+`)
	digits       = regexp.MustCompile(`^\d+$`)
)

// Slugify lowercases s and joins its words with hyphens.
func Slugify(s string) string {
	s = strings.ToLower(s)
	s = slugStrip.ReplaceAllString(s, "")
	s = slugSeparate.ReplaceAllString(s, "-")

	return strings.Trim(s, "-")
}

// IsNumericID reports whether s is a non-empty string of ASCII digits.
func IsNumericID(s string) bool {
	return digits.MatchString(s)
}

// SanitizeFilename replaces anything outside [a-zA-Z0-9._-] with underscores.
func SanitizeFilename(name string) string {
	name = fileUnsafe.ReplaceAllString(name, "_")
	name = fileRepeat.ReplaceAllString(name, "_")

	return strings.ToLower(name)
}

// DownloadFilename is the attachment name offered for r.
func DownloadFilename(r *Ringtone) string {
	return SanitizeFilename(r.Name) + path.Ext(r.FileKey)
}

// IDGenerator returns a new numeric id on every call.
type IDGenerator func() string

// NewNumericIDGenerator returns a generator of NumericIDLength random digits.
func NewNumericIDGenerator() (IDGenerator, error) {
	gen, err := nanoid.CustomASCII("0123456789", NumericIDLength)
	if err != nil {
		return nil, fmt.Errorf("numeric id generator: %w", err)
	}

	return gen, nil
}
