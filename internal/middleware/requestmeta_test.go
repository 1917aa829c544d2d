package middleware_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/danielgtaylor/huma/v2"
	"github.com/serroba/ringtones/internal/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithRequestMeta(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		want    middleware.RequestMeta
	}{
		{
			name:    "remote address without port",
			headers: map[string]string{"User-Agent": "TestAgent/1.0", "Referer": "https://example.com"},
			want:    middleware.RequestMeta{ClientIP: "192.0.2.1", UserAgent: "TestAgent/1.0", Referrer: "https://example.com"},
		},
		{
			name:    "first forwarded hop wins",
			headers: map[string]string{"X-Forwarded-For": " 10.0.0.1 , 10.0.0.2", "X-Real-IP": "10.9.9.9"},
			want:    middleware.RequestMeta{ClientIP: "10.0.0.1"},
		},
		{
			name:    "single forwarded address",
			headers: map[string]string{"X-Forwarded-For": "203.0.113.7"},
			want:    middleware.RequestMeta{ClientIP: "203.0.113.7"},
		},
		{
			name:    "real ip when not forwarded",
			headers: map[string]string{"X-Real-IP": "10.9.9.9"},
			want:    middleware.RequestMeta{ClientIP: "10.9.9.9"},
		},
		{
			name:    "blank forwarded header falls through",
			headers: map[string]string{"X-Forwarded-For": " , 10.0.0.2"},
			want:    middleware.RequestMeta{ClientIP: "192.0.2.1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, api := newTestAPI(t)
			api.UseMiddleware(middleware.WithRequestMeta(api))

			var got middleware.RequestMeta

			huma.Get(api, "/test", func(ctx context.Context, _ *struct{}) (*testOutput, error) {
				got = middleware.RequestMetaFromContext(ctx)

				return &testOutput{Body: "ok"}, nil
			})

			rec := serve(router, http.MethodGet, "/test", tt.headers)

			require.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRequestMetaFromContext_Empty(t *testing.T) {
	assert.Equal(t, middleware.RequestMeta{}, middleware.RequestMetaFromContext(context.Background()))
}
