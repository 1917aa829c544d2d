package middleware_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/serroba/ringtones/internal/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/time/rate"
)

const adminKey = "s3cret-key"

func adminHash(t *testing.T) string {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(adminKey), bcrypt.MinCost)
	require.NoError(t, err)

	return string(hash)
}

func newAdminAPI(t *testing.T, hash string, uploads *rate.Limiter) http.Handler {
	t.Helper()

	router, api := newTestAPI(t)
	api.UseMiddleware(middleware.AdminGuard(api, hash, uploads, zap.NewNop()))

	huma.Register(api, huma.Operation{Method: http.MethodGet, Path: "/public"}, okHandler)
	huma.Register(api, huma.Operation{
		Method:   http.MethodPost,
		Path:     "/admin/upload",
		Metadata: map[string]any{middleware.AdminMetadataKey: middleware.AdminConfig{Upload: true}},
	}, okHandler)
	huma.Register(api, huma.Operation{
		Method:   http.MethodDelete,
		Path:     "/admin/item",
		Metadata: map[string]any{middleware.AdminMetadataKey: middleware.AdminConfig{}},
	}, okHandler)

	return router
}

func TestAdminGuard(t *testing.T) {
	hash := adminHash(t)
	withKey := map[string]string{middleware.HeaderAdminKey: adminKey}

	t.Run("public operations pass", func(t *testing.T) {
		router := newAdminAPI(t, hash, nil)

		assert.Equal(t, http.StatusOK, serve(router, http.MethodGet, "/public", nil).Code)
	})

	t.Run("valid key passes", func(t *testing.T) {
		router := newAdminAPI(t, hash, nil)

		assert.Equal(t, http.StatusOK, serve(router, http.MethodDelete, "/admin/item", withKey).Code)
	})

	t.Run("missing or wrong key is 401", func(t *testing.T) {
		router := newAdminAPI(t, hash, nil)

		assert.Equal(t, http.StatusUnauthorized, serve(router, http.MethodDelete, "/admin/item", nil).Code)
		assert.Equal(t, http.StatusUnauthorized, serve(router, http.MethodDelete, "/admin/item",
			map[string]string{middleware.HeaderAdminKey: "nope"}).Code)
	})

	t.Run("no configured hash disables admin", func(t *testing.T) {
		router := newAdminAPI(t, "", nil)

		assert.Equal(t, http.StatusForbidden, serve(router, http.MethodDelete, "/admin/item", withKey).Code)
	})

	t.Run("uploads are throttled", func(t *testing.T) {
		router := newAdminAPI(t, hash, rate.NewLimiter(rate.Every(time.Hour), 1))

		require.Equal(t, http.StatusOK, serve(router, http.MethodPost, "/admin/upload", withKey).Code)

		rec := serve(router, http.MethodPost, "/admin/upload", withKey)
		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
		assert.NotEmpty(t, rec.Header().Get(middleware.HeaderRetryAfter))

		assert.Equal(t, http.StatusOK, serve(router, http.MethodDelete, "/admin/item", withKey).Code,
			"non-upload admin operations are not throttled")
	})
}

func TestHashAdminKey(t *testing.T) {
	hash, err := middleware.HashAdminKey(adminKey)
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte(adminKey)))

	_, err = middleware.HashAdminKey("")
	assert.ErrorIs(t, err, middleware.ErrAdminDisabled)
}
