package middleware_test

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/serroba/ringtones/internal/middleware"
	"github.com/serroba/ringtones/internal/ratelimit"
	"github.com/serroba/ringtones/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type failingStore struct{}

func (failingStore) Check(context.Context, string, ratelimit.Config) (ratelimit.Result, error) {
	return ratelimit.Result{}, errors.New("store down")
}

func (failingStore) Reset(context.Context, string) error { return nil }

func newLimitedAPI(t *testing.T, s ratelimit.Store, policy *ratelimit.Policy) (http.Handler, huma.API) {
	t.Helper()

	limiter, err := ratelimit.NewLimiter(s, policy)
	require.NoError(t, err)

	router, api := newTestAPI(t)
	api.UseMiddleware(middleware.PolicyRateLimiter(api, limiter, ratelimit.NewOperationScopeResolver(), zap.NewNop()))

	return router, api
}

func register(api huma.API, path string, cfg *ratelimit.EndpointConfig) {
	op := huma.Operation{Method: http.MethodGet, Path: path}
	if cfg != nil {
		op.Metadata = map[string]any{ratelimit.MetadataKey: *cfg}
	}

	huma.Register(api, op, okHandler)
}

func TestPolicyRateLimiter(t *testing.T) {
	policy := ratelimit.NewPolicyBuilder().
		SetLimit(ratelimit.ScopeDownload, 2, time.Minute).
		SetLimit(ratelimit.ScopeAPI, 3, time.Minute).
		Build()

	t.Run("sets quota headers and denies past the limit", func(t *testing.T) {
		router, api := newLimitedAPI(t, store.NewRateLimitMemoryStore(), policy)
		register(api, "/download", &ratelimit.EndpointConfig{Scope: ratelimit.ScopeDownload})

		first := serve(router, http.MethodGet, "/download", nil)
		require.Equal(t, http.StatusOK, first.Code)
		assert.Equal(t, "2", first.Header().Get(middleware.HeaderLimit))
		assert.Equal(t, "1", first.Header().Get(middleware.HeaderRemaining))

		reset, err := strconv.ParseInt(first.Header().Get(middleware.HeaderReset), 10, 64)
		require.NoError(t, err)
		assert.InDelta(t, time.Now().Add(time.Minute).Unix(), reset, 2)

		second := serve(router, http.MethodGet, "/download", nil)
		require.Equal(t, http.StatusOK, second.Code)
		assert.Equal(t, "0", second.Header().Get(middleware.HeaderRemaining))

		denied := serve(router, http.MethodGet, "/download", nil)
		require.Equal(t, http.StatusTooManyRequests, denied.Code)
		assert.Equal(t, "0", denied.Header().Get(middleware.HeaderRemaining))
		assert.Equal(t, "60", denied.Header().Get(middleware.HeaderRetryAfter))
		assert.Contains(t, denied.Body.String(), "rate limit exceeded")
	})

	t.Run("clients are limited independently", func(t *testing.T) {
		router, api := newLimitedAPI(t, store.NewRateLimitMemoryStore(), policy)
		register(api, "/download", &ratelimit.EndpointConfig{Scope: ratelimit.ScopeDownload})

		a := map[string]string{"X-Forwarded-For": "10.0.0.1"}
		b := map[string]string{"X-Forwarded-For": "10.0.0.2"}

		for range 2 {
			require.Equal(t, http.StatusOK, serve(router, http.MethodGet, "/download", a).Code)
		}

		assert.Equal(t, http.StatusTooManyRequests, serve(router, http.MethodGet, "/download", a).Code)
		assert.Equal(t, http.StatusOK, serve(router, http.MethodGet, "/download", b).Code)
	})

	t.Run("scopes do not share counters", func(t *testing.T) {
		router, api := newLimitedAPI(t, store.NewRateLimitMemoryStore(), policy)
		register(api, "/download", &ratelimit.EndpointConfig{Scope: ratelimit.ScopeDownload})
		register(api, "/plain", nil)

		for range 2 {
			serve(router, http.MethodGet, "/download", nil)
		}

		rec := serve(router, http.MethodGet, "/plain", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "3", rec.Header().Get(middleware.HeaderLimit), "unconfigured operations use the api scope")
	})

	t.Run("disabled endpoints skip the limiter", func(t *testing.T) {
		router, api := newLimitedAPI(t, failingStore{}, policy)
		register(api, "/free", &ratelimit.EndpointConfig{Disabled: true})

		rec := serve(router, http.MethodGet, "/free", nil)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, rec.Header().Get(middleware.HeaderLimit))
	})

	t.Run("scope without quota passes without headers", func(t *testing.T) {
		router, api := newLimitedAPI(t, store.NewRateLimitMemoryStore(), policy)
		register(api, "/search", &ratelimit.EndpointConfig{Scope: ratelimit.ScopeSearch})

		rec := serve(router, http.MethodGet, "/search", nil)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, rec.Header().Get(middleware.HeaderLimit))
	})

	t.Run("store errors are 500", func(t *testing.T) {
		router, api := newLimitedAPI(t, failingStore{}, policy)
		register(api, "/plain", nil)

		assert.Equal(t, http.StatusInternalServerError, serve(router, http.MethodGet, "/plain", nil).Code)
	})
}
