package downloadtoken_test

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/serroba/ringtones/internal/downloadtoken"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clock struct{ now time.Time }

func (c *clock) Now() time.Time { return c.now }

func newIssuer() (*downloadtoken.Issuer, *clock) {
	c := &clock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}

	return downloadtoken.New("s3cret", downloadtoken.WithClock(c.Now)), c
}

func TestIssuer_Validate(t *testing.T) {
	t.Run("fresh token is valid", func(t *testing.T) {
		issuer, _ := newIssuer()

		assert.True(t, issuer.Validate(issuer.Issue("42"), downloadtoken.DefaultMaxAge))
	})

	t.Run("token expires after max age", func(t *testing.T) {
		issuer, c := newIssuer()
		token := issuer.Issue("42")

		c.now = c.now.Add(1001 * time.Millisecond)

		assert.False(t, issuer.Validate(token, time.Second))
	})

	t.Run("token is invalid exactly at max age", func(t *testing.T) {
		issuer, c := newIssuer()
		token := issuer.Issue("42")

		c.now = c.now.Add(time.Second)

		assert.False(t, issuer.Validate(token, time.Second))
	})

	t.Run("token is replayable within the window", func(t *testing.T) {
		issuer, c := newIssuer()
		token := issuer.Issue("42")

		for range 5 {
			c.now = c.now.Add(30 * time.Second)
			assert.True(t, issuer.Validate(token, downloadtoken.DefaultMaxAge))
		}
	})

	t.Run("future timestamps are accepted", func(t *testing.T) {
		issuer, c := newIssuer()
		token := issuer.Issue("42")

		c.now = c.now.Add(-time.Hour)

		assert.True(t, issuer.Validate(token, time.Second))
	})

	t.Run("tokens from another secret still validate", func(t *testing.T) {
		issuer, c := newIssuer()
		other := downloadtoken.New("different", downloadtoken.WithClock(c.Now))

		assert.True(t, issuer.Validate(other.Issue("42"), time.Minute))
	})
}

func TestIssuer_Validate_Malformed(t *testing.T) {
	issuer, _ := newIssuer()
	enc := func(s string) string { return base64.RawURLEncoding.EncodeToString([]byte(s)) }

	tests := []struct {
		name  string
		token string
	}{
		{"not base64", "not-a-valid-token!"},
		{"plain words", "not-a-valid-token"},
		{"empty", ""},
		{"single field", enc("42")},
		{"two fields", enc("42:1714564800000")},
		{"non numeric timestamp", enc("42:yesterday:abcd1234")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.False(t, issuer.Validate(tt.token, downloadtoken.DefaultMaxAge))
		})
	}
}

func TestIssuer_Parse(t *testing.T) {
	issuer, c := newIssuer()

	t.Run("round trips resource and time", func(t *testing.T) {
		claims, err := issuer.Parse(issuer.Issue("123456789"))

		require.NoError(t, err)
		assert.Equal(t, "123456789", claims.ResourceID)
		assert.True(t, c.now.Equal(claims.IssuedAt))
		assert.Len(t, claims.Marker, 8)
	})

	t.Run("resource ids may contain colons", func(t *testing.T) {
		claims, err := issuer.Parse(issuer.Issue("a:b:c"))

		require.NoError(t, err)
		assert.Equal(t, "a:b:c", claims.ResourceID)
	})

	t.Run("token does not contain the secret", func(t *testing.T) {
		raw, err := base64.RawURLEncoding.DecodeString(issuer.Issue("42"))

		require.NoError(t, err)
		assert.NotContains(t, string(raw), "s3cret")
	})

	t.Run("accepts padded input", func(t *testing.T) {
		token := base64.URLEncoding.EncodeToString([]byte("7:1714564800000:abcd1234"))

		claims, err := issuer.Parse(token)

		require.NoError(t, err)
		assert.Equal(t, "7", claims.ResourceID)
	})

	t.Run("malformed", func(t *testing.T) {
		_, err := issuer.Parse("@@@")

		assert.ErrorIs(t, err, downloadtoken.ErrMalformed)
	})
}

func TestIssuer_ValidateFor(t *testing.T) {
	issuer, c := newIssuer()
	token := issuer.Issue("42")

	assert.True(t, issuer.ValidateFor(token, "42", time.Minute))
	assert.False(t, issuer.ValidateFor(token, "43", time.Minute))

	c.now = c.now.Add(2 * time.Minute)

	assert.False(t, issuer.ValidateFor(token, "42", time.Minute))
}
