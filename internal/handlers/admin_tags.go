package handlers

import (
	"context"
	"errors"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"github.com/serroba/ringtones/internal/catalog"
	"go.uber.org/zap"
)

func (h *AdminHandler) ListTags(ctx context.Context, _ *struct{}) (*AdminTagsResponse, error) {
	tags, err := h.repo.ListTags(ctx)
	if err != nil {
		h.logger.Error("failed to list tags", zap.Error(err))

		return nil, huma.Error500InternalServerError("failed to fetch tags")
	}

	resp := &AdminTagsResponse{}
	resp.Body.Tags = make([]AdminTagBody, 0, len(tags))

	for _, t := range tags {
		resp.Body.Tags = append(resp.Body.Tags, AdminTagBody{
			ID:            t.ID,
			Name:          t.Name,
			Slug:          t.Slug,
			RingtoneCount: t.RingtoneCount,
		})
	}

	return resp, nil
}

// CreateTag derives the slug from the name.
func (h *AdminHandler) CreateTag(ctx context.Context, req *CreateTagRequest) (*TagResponse, error) {
	name := strings.TrimSpace(req.Body.Name)
	if name == "" {
		return nil, huma.Error400BadRequest("name is required")
	}

	t := &catalog.Tag{Name: name, Slug: catalog.Slugify(name)}
	if t.Slug == "" {
		return nil, huma.Error400BadRequest("name must contain letters or digits")
	}

	if err := h.repo.CreateTag(ctx, t); err != nil {
		if errors.Is(err, catalog.ErrDuplicateSlug) {
			return nil, huma.Error409Conflict("tag with this name already exists")
		}

		h.logger.Error("failed to create tag", zap.String("name", name), zap.Error(err))

		return nil, huma.Error500InternalServerError("failed to create tag")
	}

	h.logger.Info("tag created", zap.Int64("id", t.ID), zap.String("slug", t.Slug))

	resp := &TagResponse{}
	resp.Body.Tag = AdminTagBody{ID: t.ID, Name: t.Name, Slug: t.Slug}

	return resp, nil
}

// DeleteTag detaches the tag from every ringtone and removes it.
func (h *AdminHandler) DeleteTag(ctx context.Context, req *DeleteTagRequest) (*struct{}, error) {
	if err := h.repo.DeleteTag(ctx, req.ID); err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return nil, huma.Error404NotFound("tag not found")
		}

		h.logger.Error("failed to delete tag", zap.Int64("id", req.ID), zap.Error(err))

		return nil, huma.Error500InternalServerError("failed to delete tag")
	}

	h.logger.Info("tag deleted", zap.Int64("id", req.ID))

	return nil, nil
}
