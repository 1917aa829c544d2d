package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"strconv"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"github.com/serroba/ringtones/internal/catalog"
	"github.com/serroba/ringtones/internal/media"
	"github.com/serroba/ringtones/internal/metrics"
	"go.uber.org/zap"
)

// AdminHandler serves the back office: ringtones and their stored files,
// tags, ads, site settings and analytics.
type AdminHandler struct {
	service  *catalog.Service
	repo     catalog.Repository
	uploader *media.Uploader
	baseURL  string
	logger   *zap.Logger
}

func NewAdminHandler(
	service *catalog.Service,
	repo catalog.Repository,
	uploader *media.Uploader,
	baseURL string,
	logger *zap.Logger,
) *AdminHandler {
	return &AdminHandler{
		service:  service,
		repo:     repo,
		uploader: uploader,
		baseURL:  baseURL,
		logger:   logger,
	}
}

// CreateRingtone accepts multipart fields name, numericId, description,
// categoryId, tagIds (a JSON array) and the files audio and thumbnail.
// Uploaded files are removed again if the ringtone cannot be created.
func (h *AdminHandler) CreateRingtone(ctx context.Context, req *CreateRingtoneRequest) (*RingtoneResponse, error) {
	form := &req.RawBody

	in, err := parseNewRingtone(form)
	if err != nil {
		return nil, err
	}

	audio := firstFile(form, "audio")
	if audio == nil {
		return nil, huma.Error400BadRequest("name and audio file are required")
	}

	stored, err := h.store(ctx, media.KindAudio, audio)
	if err != nil {
		return nil, err
	}

	in.FileKey = stored.Key
	in.FileSize = stored.Size

	if thumb := firstFile(form, "thumbnail"); thumb != nil && thumb.Size > 0 {
		storedThumb, err := h.store(ctx, media.KindImage, thumb)
		if err != nil {
			h.cleanup(ctx, stored.Key)

			return nil, err
		}

		in.ThumbnailKey = storedThumb.Key
	}

	r, err := h.service.Create(ctx, in)
	if err != nil {
		h.cleanup(ctx, in.FileKey, in.ThumbnailKey)

		switch {
		case errors.Is(err, catalog.ErrInvalidNumericID):
			return nil, huma.Error400BadRequest(err.Error())
		case errors.Is(err, catalog.ErrDuplicateNumericID):
			return nil, huma.Error409Conflict("numeric id already exists")
		case errors.Is(err, catalog.ErrNotFound):
			return nil, huma.Error400BadRequest("unknown category or tag")
		}

		h.logger.Error("failed to create ringtone", zap.Error(err))

		return nil, huma.Error500InternalServerError("failed to create ringtone")
	}

	h.logger.Info("ringtone created",
		zap.Int64("id", r.ID),
		zap.String("numeric_id", r.NumericID),
		zap.String("file_key", r.FileKey),
	)

	resp := &RingtoneResponse{}
	resp.Body.Ringtone = toRingtoneBody(h.baseURL, r)

	return resp, nil
}

// DeleteRingtone removes a ringtone and its audio and thumbnail files.
func (h *AdminHandler) DeleteRingtone(ctx context.Context, req *DeleteRingtoneRequest) (*DeleteRingtoneResponse, error) {
	r, err := h.repo.DeleteRingtone(ctx, req.ID)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return nil, huma.Error404NotFound("ringtone not found")
		}

		h.logger.Error("failed to delete ringtone", zap.Int64("id", req.ID), zap.Error(err))

		return nil, huma.Error500InternalServerError("failed to delete ringtone")
	}

	h.cleanup(ctx, r.FileKey, r.ThumbnailKey)

	h.logger.Info("ringtone deleted", zap.Int64("id", r.ID), zap.String("numeric_id", r.NumericID))

	resp := &DeleteRingtoneResponse{}
	resp.Body.Deleted = toRingtoneBody(h.baseURL, r)

	return resp, nil
}

// GetRingtone returns a ringtone by internal id, including inactive ones.
func (h *AdminHandler) GetRingtone(ctx context.Context, req *AdminRingtoneRequest) (*RingtoneResponse, error) {
	r, err := h.find(ctx, req.ID)
	if err != nil {
		return nil, err
	}

	resp := &RingtoneResponse{}
	resp.Body.Ringtone = toRingtoneBody(h.baseURL, r)

	return resp, nil
}

// ListRingtones searches the whole catalog, inactive ringtones included.
func (h *AdminHandler) ListRingtones(ctx context.Context, req *SearchRequest) (*SearchResponse, error) {
	q := req.query()
	q.IncludeInactive = true

	page, err := h.repo.Search(ctx, q)
	if err != nil {
		h.logger.Error("failed to list ringtones", zap.Error(err))

		return nil, huma.Error500InternalServerError("failed to list ringtones")
	}

	return toSearchResponse(h.baseURL, page), nil
}

// UpdateRingtone replaces name, description, category and tags, optionally
// toggles isActive, and swaps in new audio or thumbnail files when given.
// Replaced files are removed only after the update is stored.
func (h *AdminHandler) UpdateRingtone(ctx context.Context, req *UpdateRingtoneRequest) (*RingtoneResponse, error) {
	current, err := h.find(ctx, req.ID)
	if err != nil {
		return nil, err
	}

	form := &req.RawBody

	in, err := parseRingtoneUpdate(form)
	if err != nil {
		return nil, err
	}

	var added []string

	if audio := firstFile(form, "audio"); audio != nil && audio.Size > 0 {
		stored, err := h.store(ctx, media.KindAudio, audio)
		if err != nil {
			return nil, err
		}

		in.FileKey, in.FileSize = stored.Key, stored.Size
		added = append(added, stored.Key)
	}

	if thumb := firstFile(form, "thumbnail"); thumb != nil && thumb.Size > 0 {
		stored, err := h.store(ctx, media.KindImage, thumb)
		if err != nil {
			h.cleanup(ctx, added...)

			return nil, err
		}

		in.ThumbnailKey = stored.Key
		added = append(added, stored.Key)
	}

	r, err := h.service.Update(ctx, current, in)
	if err != nil {
		h.cleanup(ctx, added...)

		if errors.Is(err, catalog.ErrNotFound) {
			return nil, huma.Error400BadRequest("unknown category or tag")
		}

		h.logger.Error("failed to update ringtone", zap.Int64("id", req.ID), zap.Error(err))

		return nil, huma.Error500InternalServerError("failed to update ringtone")
	}

	var replaced []string
	if in.FileKey != "" && current.FileKey != "" {
		replaced = append(replaced, current.FileKey)
	}

	if in.ThumbnailKey != "" && current.ThumbnailKey != "" {
		replaced = append(replaced, current.ThumbnailKey)
	}

	h.cleanup(ctx, replaced...)

	h.logger.Info("ringtone updated",
		zap.Int64("id", r.ID),
		zap.Bool("active", r.Active),
		zap.Strings("replaced", replaced),
	)

	resp := &RingtoneResponse{}
	resp.Body.Ringtone = toRingtoneBody(h.baseURL, r)

	return resp, nil
}

func (h *AdminHandler) find(ctx context.Context, id int64) (*catalog.Ringtone, error) {
	r, err := h.repo.FindRingtone(ctx, id)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return nil, huma.Error404NotFound("ringtone not found")
		}

		h.logger.Error("failed to find ringtone", zap.Int64("id", id), zap.Error(err))

		return nil, huma.Error500InternalServerError("failed to fetch ringtone")
	}

	return r, nil
}

func (h *AdminHandler) store(ctx context.Context, kind media.Kind, fh *multipart.FileHeader) (*media.Stored, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, huma.Error400BadRequest("unreadable upload")
	}
	defer f.Close()

	stored, err := h.uploader.Store(ctx, kind, fh.Filename, fh.Size, f)
	if err != nil {
		metrics.UploadsTotal.WithLabelValues(string(kind), uploadRejection(err)).Inc()

		switch {
		case errors.Is(err, media.ErrUnsupportedType), errors.Is(err, media.ErrSignatureMismatch):
			return nil, huma.Error400BadRequest(err.Error())
		case errors.Is(err, media.ErrTooLarge):
			return nil, huma.Error413RequestEntityTooLarge(err.Error())
		}

		h.logger.Error("failed to store upload", zap.String("kind", string(kind)), zap.Error(err))

		return nil, huma.Error500InternalServerError("failed to store upload")
	}

	metrics.UploadsTotal.WithLabelValues(string(kind), "stored").Inc()

	return stored, nil
}

func (h *AdminHandler) cleanup(ctx context.Context, keys ...string) {
	for _, key := range keys {
		if err := h.uploader.Delete(ctx, key); err != nil {
			h.logger.Warn("failed to remove stored file", zap.String("key", key), zap.Error(err))
		}
	}
}

func uploadRejection(err error) string {
	switch {
	case errors.Is(err, media.ErrUnsupportedType):
		return "unsupported_type"
	case errors.Is(err, media.ErrTooLarge):
		return "too_large"
	case errors.Is(err, media.ErrSignatureMismatch):
		return "signature_mismatch"
	default:
		return "error"
	}
}

type ringtoneFields struct {
	name        string
	description string
	categoryID  *int64
	tagIDs      []int64
}

func parseRingtoneFields(form *multipart.Form) (ringtoneFields, error) {
	f := ringtoneFields{
		name:        strings.TrimSpace(formValue(form, "name")),
		description: strings.TrimSpace(formValue(form, "description")),
	}

	if raw := strings.TrimSpace(formValue(form, "categoryId")); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return f, huma.Error400BadRequest("categoryId must be an integer")
		}

		f.categoryID = &id
	}

	if raw := strings.TrimSpace(formValue(form, "tagIds")); raw != "" {
		if err := json.Unmarshal([]byte(raw), &f.tagIDs); err != nil {
			return f, huma.Error400BadRequest("tagIds must be a JSON array of integers")
		}
	}

	return f, nil
}

func parseNewRingtone(form *multipart.Form) (catalog.NewRingtone, error) {
	f, err := parseRingtoneFields(form)
	if err != nil {
		return catalog.NewRingtone{}, err
	}

	if f.name == "" {
		return catalog.NewRingtone{}, huma.Error400BadRequest("name and audio file are required")
	}

	return catalog.NewRingtone{
		Name:        f.name,
		NumericID:   strings.TrimSpace(formValue(form, "numericId")),
		Description: f.description,
		CategoryID:  f.categoryID,
		TagIDs:      f.tagIDs,
	}, nil
}

// parseRingtoneUpdate reads the same fields as a create. An omitted isActive
// keeps the current state.
func parseRingtoneUpdate(form *multipart.Form) (catalog.RingtoneUpdate, error) {
	f, err := parseRingtoneFields(form)
	if err != nil {
		return catalog.RingtoneUpdate{}, err
	}

	if f.name == "" {
		return catalog.RingtoneUpdate{}, huma.Error400BadRequest("name is required")
	}

	in := catalog.RingtoneUpdate{
		Name:        f.name,
		Description: f.description,
		CategoryID:  f.categoryID,
		TagIDs:      f.tagIDs,
	}

	if raw := strings.TrimSpace(formValue(form, "isActive")); raw != "" {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			return in, huma.Error400BadRequest("isActive must be true or false")
		}

		in.Active = &active
	}

	return in, nil
}

func formValue(form *multipart.Form, name string) string {
	if vs := form.Value[name]; len(vs) > 0 {
		return vs[0]
	}

	return ""
}

func firstFile(form *multipart.Form, name string) *multipart.FileHeader {
	if fs := form.File[name]; len(fs) > 0 {
		return fs[0]
	}

	return nil
}
