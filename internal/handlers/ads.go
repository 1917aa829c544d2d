package handlers

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/serroba/ringtones/internal/analytics"
	"github.com/serroba/ringtones/internal/catalog"
	"go.uber.org/zap"
)

// AdHandler serves ad placements and counts impressions.
type AdHandler struct {
	repo   catalog.Repository
	sink   analytics.Sink
	logger *zap.Logger
}

func NewAdHandler(repo catalog.Repository, sink analytics.Sink, logger *zap.Logger) *AdHandler {
	return &AdHandler{repo: repo, sink: sink, logger: logger}
}

func (h *AdHandler) GetAd(ctx context.Context, req *AdRequest) (*AdResponse, error) {
	placement := strings.TrimSpace(req.Placement)
	if placement == "" {
		return nil, huma.Error400BadRequest("placement is required")
	}

	resp := &AdResponse{}

	ad, err := h.repo.ActiveAd(ctx, placement)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return resp, nil
		}

		h.logger.Error("failed to fetch ad", zap.String("placement", placement), zap.Error(err))

		return nil, huma.Error500InternalServerError("failed to fetch ad")
	}

	resp.Body.Ad = &AdBody{ID: ad.ID, Name: ad.Name, Code: ad.Code}

	return resp, nil
}

func (h *AdHandler) Impression(ctx context.Context, req *ImpressionRequest) (*struct{}, error) {
	if req.Body.AdID <= 0 {
		return nil, huma.Error400BadRequest("adId is required")
	}

	err := h.sink.Impression(ctx, &analytics.AdImpression{AdID: req.Body.AdID, OccurredAt: time.Now().UTC()})
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return nil, huma.Error404NotFound("ad not found")
		}

		h.logger.Error("failed to track impression", zap.Int64("ad_id", req.Body.AdID), zap.Error(err))

		return nil, huma.Error500InternalServerError("failed to track impression")
	}

	return nil, nil
}
