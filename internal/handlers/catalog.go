package handlers

import (
	"context"
	"errors"

	"github.com/danielgtaylor/huma/v2"
	"github.com/serroba/ringtones/internal/catalog"
	"go.uber.org/zap"
)

const (
	autocompleteMinLength = 2
	autocompleteLimit     = 8
)

// CatalogHandler serves read-only catalog lookups.
type CatalogHandler struct {
	repo    catalog.Repository
	baseURL string
	logger  *zap.Logger
}

func NewCatalogHandler(repo catalog.Repository, baseURL string, logger *zap.Logger) *CatalogHandler {
	return &CatalogHandler{repo: repo, baseURL: baseURL, logger: logger}
}

func (h *CatalogHandler) GetRingtone(ctx context.Context, req *GetRingtoneRequest) (*RingtoneResponse, error) {
	r, err := h.repo.GetRingtone(ctx, req.ID)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return nil, huma.Error404NotFound("ringtone not found")
		}

		h.logger.Error("failed to get ringtone", zap.String("id", req.ID), zap.Error(err))

		return nil, huma.Error500InternalServerError("failed to fetch ringtone")
	}

	resp := &RingtoneResponse{}
	resp.Body.Ringtone = toRingtoneBody(h.baseURL, r)

	return resp, nil
}

func (h *CatalogHandler) Search(ctx context.Context, req *SearchRequest) (*SearchResponse, error) {
	page, err := h.repo.Search(ctx, req.query())
	if err != nil {
		h.logger.Error("search failed", zap.String("q", req.Query), zap.Error(err))

		return nil, huma.Error500InternalServerError("search failed")
	}

	return toSearchResponse(h.baseURL, page), nil
}

// Autocomplete returns up to eight suggestions, plus the exact ringtone when
// the query is a known numeric id. Queries shorter than two characters
// return nothing.
func (h *CatalogHandler) Autocomplete(ctx context.Context, req *AutocompleteRequest) (*AutocompleteResponse, error) {
	resp := &AutocompleteResponse{}
	resp.Body.Results = []SuggestionBody{}

	if len([]rune(req.Query)) < autocompleteMinLength {
		return resp, nil
	}

	if catalog.IsNumericID(req.Query) {
		r, err := h.repo.GetRingtone(ctx, req.Query)

		switch {
		case err == nil && r.NumericID == req.Query:
			resp.Body.ExactMatch = &SuggestionBody{
				ID:           r.ID,
				NumericID:    r.NumericID,
				Name:         r.Name,
				CategoryName: r.CategoryName,
			}
		case err != nil && !errors.Is(err, catalog.ErrNotFound):
			h.logger.Error("exact match lookup failed", zap.String("q", req.Query), zap.Error(err))
		}
	}

	suggestions, err := h.repo.Autocomplete(ctx, req.Query, autocompleteLimit)
	if err != nil {
		h.logger.Error("autocomplete failed", zap.String("q", req.Query), zap.Error(err))

		return nil, huma.Error500InternalServerError("autocomplete failed")
	}

	for _, s := range suggestions {
		resp.Body.Results = append(resp.Body.Results, toSuggestionBody(s))
	}

	return resp, nil
}

func (h *CatalogHandler) ListCategories(ctx context.Context, _ *struct{}) (*CategoriesResponse, error) {
	categories, err := h.repo.ListCategories(ctx)
	if err != nil {
		h.logger.Error("failed to list categories", zap.Error(err))

		return nil, huma.Error500InternalServerError("failed to list categories")
	}

	resp := &CategoriesResponse{}
	resp.Body.Categories = make([]CategoryBody, 0, len(categories))

	for _, c := range categories {
		resp.Body.Categories = append(resp.Body.Categories, CategoryBody{
			ID:            c.ID,
			Name:          c.Name,
			Slug:          c.Slug,
			Description:   c.Description,
			Icon:          c.Icon,
			Order:         c.Order,
			ParentID:      c.ParentID,
			RingtoneCount: c.RingtoneCount,
		})
	}

	return resp, nil
}

func (h *CatalogHandler) ListTags(ctx context.Context, _ *struct{}) (*TagsResponse, error) {
	tags, err := h.repo.ListTags(ctx)
	if err != nil {
		h.logger.Error("failed to list tags", zap.Error(err))

		return nil, huma.Error500InternalServerError("failed to list tags")
	}

	resp := &TagsResponse{}
	resp.Body.Tags = toTagBodies(tags)

	return resp, nil
}
