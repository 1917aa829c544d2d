// Package downloadtoken issues short-lived download tickets used to deter
// hot-linking. Tokens are encoded, not signed: anyone can decode one and
// build a fresh one, so they must never guard anything that needs real
// access control.
package downloadtoken

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"strconv"
	"strings"
	"time"
)

// DefaultMaxAge is how long a token stays valid when no age is configured.
const DefaultMaxAge = 5 * time.Minute

// ErrMalformed is returned by Parse for tokens that do not decode to
// "<resource>:<issued-ms>:<marker>".
var ErrMalformed = errors.New("malformed download token")

// Claims is the decoded content of a token.
type Claims struct {
	ResourceID string
	IssuedAt   time.Time
	Marker     string
}

// Issuer creates and checks tokens.
type Issuer struct {
	marker string
	now    func() time.Time
}

// Option configures an Issuer.
type Option func(*Issuer)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(i *Issuer) { i.now = now }
}

// New creates an Issuer. Only a short digest of secret ends up in tokens.
func New(secret string, opts ...Option) *Issuer {
	sum := sha256.Sum256([]byte(secret))

	i := &Issuer{
		marker: hex.EncodeToString(sum[:])[:8],
		now:    time.Now,
	}

	for _, opt := range opts {
		opt(i)
	}

	return i
}

// Issue returns a token for resourceID stamped with the current time.
func (i *Issuer) Issue(resourceID string) string {
	ms := strconv.FormatInt(i.now().UnixMilli(), 10)

	return base64.RawURLEncoding.EncodeToString([]byte(resourceID + ":" + ms + ":" + i.marker))
}

// Parse decodes token. The marker is returned as found and not compared.
func (i *Issuer) Parse(token string) (Claims, error) {
	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(token, "="))
	if err != nil {
		return Claims{}, ErrMalformed
	}

	s := string(raw)

	markerAt := strings.LastIndexByte(s, ':')
	if markerAt < 0 {
		return Claims{}, ErrMalformed
	}

	issuedAt := strings.LastIndexByte(s[:markerAt], ':')
	if issuedAt < 0 {
		return Claims{}, ErrMalformed
	}

	ms, err := strconv.ParseInt(s[issuedAt+1:markerAt], 10, 64)
	if err != nil {
		return Claims{}, ErrMalformed
	}

	return Claims{
		ResourceID: s[:issuedAt],
		IssuedAt:   time.UnixMilli(ms),
		Marker:     s[markerAt+1:],
	}, nil
}

// Validate reports whether token decodes and is younger than maxAge.
// Tokens stamped in the future count as fresh.
func (i *Issuer) Validate(token string, maxAge time.Duration) bool {
	c, err := i.Parse(token)
	if err != nil {
		return false
	}

	return i.now().Sub(c.IssuedAt) < maxAge
}

// ValidateFor is Validate plus a check that the token was issued for resourceID.
func (i *Issuer) ValidateFor(token, resourceID string, maxAge time.Duration) bool {
	c, err := i.Parse(token)
	if err != nil || c.ResourceID != resourceID {
		return false
	}

	return i.now().Sub(c.IssuedAt) < maxAge
}
