package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"go.uber.org/zap"
)

func (h *AdminHandler) GetSettings(ctx context.Context, _ *struct{}) (*SettingsResponse, error) {
	settings, err := h.repo.Settings(ctx)
	if err != nil {
		h.logger.Error("failed to load settings", zap.Error(err))

		return nil, huma.Error500InternalServerError("failed to fetch settings")
	}

	resp := &SettingsResponse{}
	resp.Body.Settings = settings

	return resp, nil
}

// SaveSettings upserts the given keys and returns the full settings map.
func (h *AdminHandler) SaveSettings(ctx context.Context, req *SaveSettingsRequest) (*SettingsResponse, error) {
	settings := make(map[string]string, len(req.Body.Settings))

	for k, v := range req.Body.Settings {
		key := strings.TrimSpace(k)
		if key == "" {
			return nil, huma.Error400BadRequest("setting keys must not be empty")
		}

		text, err := settingText(v)
		if err != nil {
			return nil, huma.Error400BadRequest("setting " + key + " must be a string, number or boolean")
		}

		settings[key] = text
	}

	if err := h.repo.SaveSettings(ctx, settings); err != nil {
		h.logger.Error("failed to save settings", zap.Error(err))

		return nil, huma.Error500InternalServerError("failed to save settings")
	}

	h.logger.Info("settings saved", zap.Int("keys", len(settings)))

	return h.GetSettings(ctx, nil)
}

// settingText stores scalars the way they would be typed into a form.
func settingText(v any) (string, error) {
	switch v := v.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case bool:
		return strconv.FormatBool(v), nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case json.Number:
		return v.String(), nil
	default:
		return "", fmt.Errorf("unsupported setting value %T", v)
	}
}

// Analytics summarises downloads and ad impressions over the last days.
func (h *AdminHandler) Analytics(ctx context.Context, req *AnalyticsRequest) (*AnalyticsResponse, error) {
	stats, err := h.service.Stats(ctx, req.Days)
	if err != nil {
		h.logger.Error("failed to compute analytics", zap.Error(err))

		return nil, huma.Error500InternalServerError("failed to fetch analytics")
	}

	resp := &AnalyticsResponse{}
	resp.Body.Stats = StatsBody{
		TotalDownloads:   stats.TotalDownloads,
		TodayDownloads:   stats.TodayDownloads,
		WeeklyDownloads:  stats.WeeklyDownloads,
		MonthlyDownloads: stats.MonthlyDownloads,
		TotalImpressions: stats.TotalImpressions,
	}

	resp.Body.DailyStats = make([]DailyStatBody, 0, len(stats.Daily))
	for _, d := range stats.Daily {
		resp.Body.DailyStats = append(resp.Body.DailyStats, DailyStatBody{Date: d.Date, Downloads: d.Downloads})
	}

	resp.Body.TopRingtones = make([]TopRingtoneBody, 0, len(stats.TopRingtones))
	for _, r := range stats.TopRingtones {
		resp.Body.TopRingtones = append(resp.Body.TopRingtones, TopRingtoneBody{
			ID:            r.ID,
			NumericID:     r.NumericID,
			Name:          r.Name,
			DownloadCount: r.DownloadCount,
		})
	}

	resp.Body.TopAds = make([]TopAdBody, 0, len(stats.TopAds))
	for _, ad := range stats.TopAds {
		resp.Body.TopAds = append(resp.Body.TopAds, TopAdBody{
			ID:          ad.ID,
			Name:        ad.Name,
			Impressions: ad.Impressions,
			Placement:   ad.PlacementSlug,
		})
	}

	return resp, nil
}
