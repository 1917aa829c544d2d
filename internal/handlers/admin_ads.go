package handlers

import (
	"context"
	"errors"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"github.com/serroba/ringtones/internal/catalog"
	"go.uber.org/zap"
)

// ListAds returns every ad, newest first, with the placements they can use.
func (h *AdminHandler) ListAds(ctx context.Context, _ *struct{}) (*AdminAdsResponse, error) {
	ads, err := h.repo.ListAdvertisements(ctx)
	if err != nil {
		h.logger.Error("failed to list ads", zap.Error(err))

		return nil, huma.Error500InternalServerError("failed to fetch ads")
	}

	placements, err := h.repo.ListPlacements(ctx)
	if err != nil {
		h.logger.Error("failed to list placements", zap.Error(err))

		return nil, huma.Error500InternalServerError("failed to fetch ads")
	}

	resp := &AdminAdsResponse{}
	resp.Body.Ads = make([]AdminAdBody, 0, len(ads))
	resp.Body.Placements = make([]PlacementBody, 0, len(placements))

	for i := range ads {
		resp.Body.Ads = append(resp.Body.Ads, toAdminAdBody(&ads[i]))
	}

	for _, p := range placements {
		resp.Body.Placements = append(resp.Body.Placements, PlacementBody{ID: p.ID, Name: p.Name, Slug: p.Slug})
	}

	return resp, nil
}

func (h *AdminHandler) GetAd(ctx context.Context, req *AdminAdRequest) (*AdminAdResponse, error) {
	ad, err := h.findAd(ctx, req.ID)
	if err != nil {
		return nil, err
	}

	return adResponse(ad), nil
}

// CreateAd requires a name, code and placement. Ads start active unless
// isActive is false.
func (h *AdminHandler) CreateAd(ctx context.Context, req *CreateAdRequest) (*AdminAdResponse, error) {
	in := req.Body
	if err := requireAdFields(in); err != nil {
		return nil, err
	}

	ad := &catalog.Advertisement{Active: true}
	applyAdInput(ad, in)

	if err := h.repo.CreateAdvertisement(ctx, ad); err != nil {
		return nil, h.adWriteError("create", ad.ID, err)
	}

	h.logger.Info("ad created", zap.Int64("id", ad.ID), zap.String("placement", ad.PlacementSlug))

	return adResponse(ad), nil
}

// ReplaceAd overwrites name, code and placement. An omitted isActive keeps
// the current state.
func (h *AdminHandler) ReplaceAd(ctx context.Context, req *UpdateAdRequest) (*AdminAdResponse, error) {
	if err := requireAdFields(req.Body); err != nil {
		return nil, err
	}

	return h.updateAd(ctx, req.ID, req.Body)
}

// PatchAd changes only the fields present, which is how ads are toggled.
func (h *AdminHandler) PatchAd(ctx context.Context, req *UpdateAdRequest) (*AdminAdResponse, error) {
	return h.updateAd(ctx, req.ID, req.Body)
}

func (h *AdminHandler) DeleteAd(ctx context.Context, req *AdminAdRequest) (*struct{}, error) {
	if err := h.repo.DeleteAdvertisement(ctx, req.ID); err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return nil, huma.Error404NotFound("ad not found")
		}

		h.logger.Error("failed to delete ad", zap.Int64("id", req.ID), zap.Error(err))

		return nil, huma.Error500InternalServerError("failed to delete ad")
	}

	h.logger.Info("ad deleted", zap.Int64("id", req.ID))

	return nil, nil
}

func (h *AdminHandler) updateAd(ctx context.Context, id int64, in AdInput) (*AdminAdResponse, error) {
	ad, err := h.findAd(ctx, id)
	if err != nil {
		return nil, err
	}

	applyAdInput(ad, in)

	if err := h.repo.UpdateAdvertisement(ctx, ad); err != nil {
		return nil, h.adWriteError("update", id, err)
	}

	h.logger.Info("ad updated", zap.Int64("id", ad.ID), zap.Bool("active", ad.Active))

	return adResponse(ad), nil
}

func (h *AdminHandler) findAd(ctx context.Context, id int64) (*catalog.Advertisement, error) {
	ad, err := h.repo.GetAdvertisement(ctx, id)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return nil, huma.Error404NotFound("ad not found")
		}

		h.logger.Error("failed to fetch ad", zap.Int64("id", id), zap.Error(err))

		return nil, huma.Error500InternalServerError("failed to fetch ad")
	}

	return ad, nil
}

// adWriteError reports an unknown placement as a bad request. The ad itself
// was looked up beforehand.
func (h *AdminHandler) adWriteError(op string, id int64, err error) error {
	if errors.Is(err, catalog.ErrNotFound) {
		return huma.Error400BadRequest("unknown placement")
	}

	h.logger.Error("failed to "+op+" ad", zap.Int64("id", id), zap.Error(err))

	return huma.Error500InternalServerError("failed to " + op + " ad")
}

func requireAdFields(in AdInput) error {
	if strings.TrimSpace(in.Name) == "" || strings.TrimSpace(in.Code) == "" || strings.TrimSpace(in.Placement) == "" {
		return huma.Error400BadRequest("name, ad code, and placement are required")
	}

	return nil
}

func applyAdInput(ad *catalog.Advertisement, in AdInput) {
	if name := strings.TrimSpace(in.Name); name != "" {
		ad.Name = name
	}

	if code := strings.TrimSpace(in.Code); code != "" {
		ad.Code = code
	}

	if placement := strings.TrimSpace(in.Placement); placement != "" {
		ad.PlacementSlug = placement
	}

	if in.Active != nil {
		ad.Active = *in.Active
	}
}

func adResponse(ad *catalog.Advertisement) *AdminAdResponse {
	resp := &AdminAdResponse{}
	resp.Body.Ad = toAdminAdBody(ad)

	return resp
}
