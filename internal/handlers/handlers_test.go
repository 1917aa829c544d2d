package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/serroba/ringtones/internal/analytics"
	"github.com/serroba/ringtones/internal/catalog"
	"github.com/serroba/ringtones/internal/downloadtoken"
	"github.com/serroba/ringtones/internal/handlers"
	"github.com/serroba/ringtones/internal/media"
	"github.com/serroba/ringtones/internal/middleware"
	"github.com/serroba/ringtones/internal/store"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const baseURL = "http://ringtones.test"

var (
	mp3Bytes = append([]byte("ID3\x03\x00\x00\x00\x00\x00\x00\x00\x00"), bytes.Repeat([]byte{0x55}, 128)...)
	pngBytes = append([]byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1A, '\n', 0, 0, 0, 0x0D, 'I', 'H', 'D', 'R'}, bytes.Repeat([]byte{0}, 64)...)
)

type testServer struct {
	router  *chi.Mux
	repo    *store.CatalogMemoryStore
	storage *media.LocalStorage
	dir     string
	tokens  *downloadtoken.Issuer
	now     time.Time
	bell    *catalog.Ringtone
	chime   *catalog.Ringtone
	rock    *catalog.Category
	funny   *catalog.Tag
}

func (s *testServer) advance(d time.Duration) { s.now = s.now.Add(d) }

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	ctx := context.Background()
	s := &testServer{
		repo: store.NewCatalogMemoryStore(),
		now:  time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
	}

	s.dir = t.TempDir()

	storage, err := media.NewLocalStorage(s.dir, zap.NewNop())
	require.NoError(t, err)

	s.storage = storage
	s.tokens = downloadtoken.New("test-secret", downloadtoken.WithClock(func() time.Time { return s.now }))

	s.rock = &catalog.Category{Name: "Rock", Slug: "rock"}
	require.NoError(t, s.repo.UpsertCategory(ctx, s.rock))

	s.funny = &catalog.Tag{Name: "Funny", Slug: "funny"}
	require.NoError(t, s.repo.UpsertTag(ctx, s.funny))

	require.NoError(t, storage.Put(ctx, "ringtones/bell.mp3", bytes.NewReader(mp3Bytes), int64(len(mp3Bytes)), "audio/mpeg"))
	require.NoError(t, storage.Put(ctx, "thumbnails/bell-cover.png", bytes.NewReader(pngBytes), int64(len(pngBytes)), "image/png"))

	s.bell = &catalog.Ringtone{
		NumericID:    "123456789",
		Name:         "Bell Tower",
		Slug:         "bell-tower",
		FileKey:      "ringtones/bell.mp3",
		FileSize:     int64(len(mp3Bytes)),
		ThumbnailKey: "thumbnails/bell-cover.png",
		CategoryID:   &s.rock.ID,
		Active:       true,
		CreatedAt:    s.now,
	}
	require.NoError(t, s.repo.CreateRingtone(ctx, s.bell, []int64{s.funny.ID}))

	s.chime = &catalog.Ringtone{
		NumericID: "987654321",
		Name:      "Chime",
		Slug:      "chime",
		FileKey:   "ringtones/missing.mp3",
		Active:    true,
		CreatedAt: s.now.Add(time.Minute),
	}
	require.NoError(t, s.repo.CreateRingtone(ctx, s.chime, nil))

	logger := zap.NewNop()
	recorder := analytics.NewRecorder(s.repo, logger)
	gen, err := catalog.NewNumericIDGenerator()
	require.NoError(t, err)

	s.router = chi.NewMux()
	api := humachi.New(s.router, huma.DefaultConfig("Test", "1.0.0"))
	api.UseMiddleware(middleware.WithRequestMeta(api))

	handlers.RegisterRoutes(api, handlers.Handlers{
		Catalog:   handlers.NewCatalogHandler(s.repo, baseURL, logger),
		Downloads: handlers.NewDownloadHandler(s.repo, storage, s.tokens, 5*time.Minute, recorder, baseURL, logger),
		Ads:       handlers.NewAdHandler(s.repo, recorder, logger),
		Admin: handlers.NewAdminHandler(
			catalog.NewService(s.repo, gen), s.repo, media.NewUploader(storage), baseURL, logger,
		),
	})

	return s
}

func (s *testServer) do(t *testing.T, method, target string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, target, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	return rec
}

func (s *testServer) get(t *testing.T, target string) *httptest.ResponseRecorder {
	t.Helper()

	return s.do(t, http.MethodGet, target, nil, "")
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())

	return v
}
