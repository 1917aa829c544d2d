package catalog

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"time"
)

const (
	DefaultStatsDays = 7
	MaxStatsDays     = 90
	statsTopLimit    = 10
)

// Stats summarises downloads and ad impressions for the back office.
type Stats struct {
	TotalDownloads   int64
	TodayDownloads   int64
	WeeklyDownloads  int64
	MonthlyDownloads int64
	TotalImpressions int64
	// Daily has one entry per day, oldest first, ending today.
	Daily        []DailyDownloads
	TopRingtones []Ringtone
	TopAds       []Advertisement
}

// Stats reports download counters and the most popular ringtones and ads.
// days is clamped to [1, MaxStatsDays]; zero means DefaultStatsDays.
func (s *Service) Stats(ctx context.Context, days int) (*Stats, error) {
	switch {
	case days == 0:
		days = DefaultStatsDays
	case days < 1:
		days = 1
	case days > MaxStatsDays:
		days = MaxStatsDays
	}

	now := s.now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	out := &Stats{}

	counters := []struct {
		since time.Time
		dst   *int64
	}{
		{time.Time{}, &out.TotalDownloads},
		{today, &out.TodayDownloads},
		{now.AddDate(0, 0, -7), &out.WeeklyDownloads},
		{now.AddDate(0, -1, 0), &out.MonthlyDownloads},
	}

	for _, c := range counters {
		n, err := s.repo.CountDownloads(ctx, c.since)
		if err != nil {
			return nil, fmt.Errorf("count downloads: %w", err)
		}

		*c.dst = n
	}

	start := today.AddDate(0, 0, -(days - 1))

	daily, err := s.repo.DailyDownloads(ctx, start)
	if err != nil {
		return nil, fmt.Errorf("daily downloads: %w", err)
	}

	byDay := make(map[string]int64, len(daily))
	for _, d := range daily {
		byDay[d.Date] = d.Downloads
	}

	out.Daily = make([]DailyDownloads, 0, days)
	for day := start; !day.After(today); day = day.AddDate(0, 0, 1) {
		date := day.Format(time.DateOnly)
		out.Daily = append(out.Daily, DailyDownloads{Date: date, Downloads: byDay[date]})
	}

	popular, err := s.repo.Search(ctx, SearchQuery{Sort: SortPopular, Limit: statsTopLimit})
	if err != nil {
		return nil, fmt.Errorf("top ringtones: %w", err)
	}

	out.TopRingtones = popular.Ringtones

	ads, err := s.repo.ListAdvertisements(ctx)
	if err != nil {
		return nil, fmt.Errorf("list ads: %w", err)
	}

	for _, ad := range ads {
		out.TotalImpressions += ad.Impressions
	}

	slices.SortStableFunc(ads, func(a, b Advertisement) int {
		return cmp.Compare(b.Impressions, a.Impressions)
	})

	out.TopAds = ads[:min(len(ads), statsTopLimit)]

	return out, nil
}
