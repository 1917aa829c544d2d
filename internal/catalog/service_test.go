package catalog_test

import (
	"context"
	"testing"
	"time"

	"github.com/serroba/ringtones/internal/catalog"
	"github.com/serroba/ringtones/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sequence(ids ...string) catalog.IDGenerator {
	i := 0

	return func() string {
		id := ids[i%len(ids)]
		i++

		return id
	}
}

func TestService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("generates a numeric id and slug", func(t *testing.T) {
		repo := store.NewCatalogMemoryStore()
		svc := catalog.NewService(repo, sequence("123456789"))

		r, err := svc.Create(ctx, catalog.NewRingtone{Name: "Morning Alarm", FileKey: "ringtones/x.mp3"})

		require.NoError(t, err)
		assert.Equal(t, "123456789", r.NumericID)
		assert.Equal(t, "morning-alarm", r.Slug)
		assert.True(t, r.Active)
		assert.NotZero(t, r.ID)

		got, err := repo.GetRingtone(ctx, "123456789")
		require.NoError(t, err)
		assert.Equal(t, "ringtones/x.mp3", got.FileKey)
	})

	t.Run("keeps a caller chosen numeric id", func(t *testing.T) {
		svc := catalog.NewService(store.NewCatalogMemoryStore(), sequence("1"))

		r, err := svc.Create(ctx, catalog.NewRingtone{Name: "x", NumericID: "4242"})

		require.NoError(t, err)
		assert.Equal(t, "4242", r.NumericID)
	})

	t.Run("rejects non numeric ids", func(t *testing.T) {
		svc := catalog.NewService(store.NewCatalogMemoryStore(), sequence("1"))

		_, err := svc.Create(ctx, catalog.NewRingtone{Name: "x", NumericID: "12ab"})

		assert.ErrorIs(t, err, catalog.ErrInvalidNumericID)
	})

	t.Run("duplicate chosen id fails", func(t *testing.T) {
		svc := catalog.NewService(store.NewCatalogMemoryStore(), sequence("1"))

		_, err := svc.Create(ctx, catalog.NewRingtone{Name: "a", NumericID: "77"})
		require.NoError(t, err)

		_, err = svc.Create(ctx, catalog.NewRingtone{Name: "b", NumericID: "77"})
		assert.ErrorIs(t, err, catalog.ErrDuplicateNumericID)
	})

	t.Run("retries generated collisions", func(t *testing.T) {
		repo := store.NewCatalogMemoryStore()
		svc := catalog.NewService(repo, sequence("111", "111", "222"))

		_, err := svc.Create(ctx, catalog.NewRingtone{Name: "first"})
		require.NoError(t, err)

		r, err := svc.Create(ctx, catalog.NewRingtone{Name: "second"})

		require.NoError(t, err)
		assert.Equal(t, "222", r.NumericID)
	})

	t.Run("gives up after repeated collisions", func(t *testing.T) {
		svc := catalog.NewService(store.NewCatalogMemoryStore(), sequence("111"))

		_, err := svc.Create(ctx, catalog.NewRingtone{Name: "first"})
		require.NoError(t, err)

		_, err = svc.Create(ctx, catalog.NewRingtone{Name: "second"})
		assert.ErrorIs(t, err, catalog.ErrDuplicateNumericID)
	})

	t.Run("unknown tag surfaces not found", func(t *testing.T) {
		svc := catalog.NewService(store.NewCatalogMemoryStore(), sequence("1"))

		_, err := svc.Create(ctx, catalog.NewRingtone{Name: "x", TagIDs: []int64{42}})

		assert.ErrorIs(t, err, catalog.ErrNotFound)
	})
}

func TestService_Update(t *testing.T) {
	ctx := context.Background()
	repo := store.NewCatalogMemoryStore()
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	svc := catalog.NewService(repo, sequence("555"), catalog.WithClock(func() time.Time { return now }))

	tag := catalog.Tag{Name: "Calm", Slug: "calm"}
	require.NoError(t, repo.UpsertTag(ctx, &tag))

	current, err := svc.Create(ctx, catalog.NewRingtone{
		Name: "Old Name", FileKey: "ringtones/old.mp3", FileSize: 10, ThumbnailKey: "thumbnails/old.png",
	})
	require.NoError(t, err)

	t.Run("renames and retags, keeping files", func(t *testing.T) {
		got, err := svc.Update(ctx, current, catalog.RingtoneUpdate{Name: "New Name", TagIDs: []int64{tag.ID}})

		require.NoError(t, err)
		assert.Equal(t, "new-name", got.Slug)
		assert.Equal(t, "ringtones/old.mp3", got.FileKey)
		assert.Equal(t, int64(10), got.FileSize)
		assert.Equal(t, "thumbnails/old.png", got.ThumbnailKey)
		assert.True(t, got.Active, "nil Active keeps the state")
		assert.Equal(t, now, got.UpdatedAt)
		require.Len(t, got.Tags, 1)
	})

	t.Run("replaces files and deactivates", func(t *testing.T) {
		off := false

		got, err := svc.Update(ctx, current, catalog.RingtoneUpdate{
			Name: "New Name", Active: &off, FileKey: "ringtones/new.mp3", FileSize: 20, ThumbnailKey: "thumbnails/new.png",
		})

		require.NoError(t, err)
		assert.False(t, got.Active)
		assert.Equal(t, "ringtones/new.mp3", got.FileKey)
		assert.Equal(t, int64(20), got.FileSize)
		assert.Equal(t, "thumbnails/new.png", got.ThumbnailKey)
		assert.Empty(t, got.Tags)
	})

	t.Run("unknown category", func(t *testing.T) {
		missing := int64(4242)

		_, err := svc.Update(ctx, current, catalog.RingtoneUpdate{Name: "x", CategoryID: &missing})

		assert.ErrorIs(t, err, catalog.ErrNotFound)
	})
}

func TestService_Stats(t *testing.T) {
	ctx := context.Background()
	repo := store.NewCatalogMemoryStore()
	now := time.Date(2024, 5, 20, 15, 0, 0, 0, time.UTC)
	svc := catalog.NewService(repo, sequence("1", "2"), catalog.WithClock(func() time.Time { return now }))

	quiet, err := svc.Create(ctx, catalog.NewRingtone{Name: "Quiet"})
	require.NoError(t, err)

	loud, err := svc.Create(ctx, catalog.NewRingtone{Name: "Loud"})
	require.NoError(t, err)

	for _, at := range []time.Time{
		now.AddDate(0, -2, 0), // outside the month
		now.AddDate(0, 0, -10),
		now.AddDate(0, 0, -1),
		now.Add(-time.Hour),
		now.Add(-2 * time.Hour),
	} {
		require.NoError(t, repo.RecordDownload(ctx, catalog.DownloadLog{RingtoneID: loud.ID, CreatedAt: at}))
	}

	require.NoError(t, repo.RecordDownload(ctx, catalog.DownloadLog{RingtoneID: quiet.ID, CreatedAt: now}))

	header := catalog.Placement{Name: "Header", Slug: "header"}
	require.NoError(t, repo.UpsertPlacement(ctx, &header))

	seen := &catalog.Advertisement{Name: "seen", PlacementSlug: "header", Active: true}
	unseen := &catalog.Advertisement{Name: "unseen", PlacementSlug: "header", Active: true}
	require.NoError(t, repo.CreateAdvertisement(ctx, seen))
	require.NoError(t, repo.CreateAdvertisement(ctx, unseen))
	require.NoError(t, repo.RecordImpression(ctx, seen.ID))
	require.NoError(t, repo.RecordImpression(ctx, seen.ID))

	t.Run("counters", func(t *testing.T) {
		stats, err := svc.Stats(ctx, 0)

		require.NoError(t, err)
		assert.Equal(t, int64(6), stats.TotalDownloads)
		assert.Equal(t, int64(3), stats.TodayDownloads)
		assert.Equal(t, int64(4), stats.WeeklyDownloads)
		assert.Equal(t, int64(5), stats.MonthlyDownloads)
		assert.Equal(t, int64(2), stats.TotalImpressions)
	})

	t.Run("daily series ends today and fills gaps", func(t *testing.T) {
		stats, err := svc.Stats(ctx, 0)

		require.NoError(t, err)
		require.Len(t, stats.Daily, catalog.DefaultStatsDays)
		assert.Equal(t, "2024-05-14", stats.Daily[0].Date)
		assert.Equal(t, catalog.DailyDownloads{Date: "2024-05-19", Downloads: 1}, stats.Daily[5])
		assert.Equal(t, catalog.DailyDownloads{Date: "2024-05-20", Downloads: 3}, stats.Daily[6])
		assert.Zero(t, stats.Daily[0].Downloads)
	})

	t.Run("top lists", func(t *testing.T) {
		stats, err := svc.Stats(ctx, 1)

		require.NoError(t, err)
		require.Len(t, stats.Daily, 1)
		require.Len(t, stats.TopRingtones, 2)
		assert.Equal(t, "Loud", stats.TopRingtones[0].Name)
		require.Len(t, stats.TopAds, 2)
		assert.Equal(t, "seen", stats.TopAds[0].Name)
	})

	t.Run("days are clamped", func(t *testing.T) {
		stats, err := svc.Stats(ctx, 1000)

		require.NoError(t, err)
		assert.Len(t, stats.Daily, catalog.MaxStatsDays)
	})
}

func TestSearchQuery_Normalize(t *testing.T) {
	q := catalog.SearchQuery{Query: "  rock ", Page: -1, Limit: 500, Sort: "POPULAR"}.Normalize()

	assert.Equal(t, "rock", q.Query)
	assert.Equal(t, 1, q.Page)
	assert.Equal(t, catalog.MaxPageSize, q.Limit)
	assert.Equal(t, catalog.SortPopular, q.Sort)
	assert.Equal(t, 0, q.Offset())

	q = catalog.SearchQuery{Page: 3, Sort: "bogus"}.Normalize()

	assert.Equal(t, catalog.DefaultPageSize, q.Limit)
	assert.Equal(t, catalog.SortLatest, q.Sort)
	assert.Equal(t, 40, q.Offset())
}

func TestNewSearchPage(t *testing.T) {
	q := catalog.SearchQuery{Page: 1, Limit: 20}

	assert.Equal(t, 3, catalog.NewSearchPage(q, nil, 41).TotalPages)
	assert.Equal(t, 0, catalog.NewSearchPage(q, nil, 0).TotalPages)
}
