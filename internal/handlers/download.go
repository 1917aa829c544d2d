package handlers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/gabriel-vasile/mimetype"
	"github.com/serroba/ringtones/internal/analytics"
	"github.com/serroba/ringtones/internal/catalog"
	"github.com/serroba/ringtones/internal/downloadtoken"
	"github.com/serroba/ringtones/internal/filetype"
	"github.com/serroba/ringtones/internal/media"
	"github.com/serroba/ringtones/internal/metrics"
	"github.com/serroba/ringtones/internal/middleware"
	"go.uber.org/zap"
)

// sniffSize is how much of a file is read to detect its content type.
const sniffSize = 3072

var thumbnailName = regexp.MustCompile(`^[A-Za-z0-9-]+\.[a-z0-9]+$`)

// DownloadHandler issues download tokens and streams media files.
type DownloadHandler struct {
	repo    catalog.Repository
	storage media.Storage
	tokens  *downloadtoken.Issuer
	maxAge  time.Duration
	sink    analytics.Sink
	baseURL string
	logger  *zap.Logger
	now     func() time.Time
}

func NewDownloadHandler(
	repo catalog.Repository,
	storage media.Storage,
	tokens *downloadtoken.Issuer,
	maxAge time.Duration,
	sink analytics.Sink,
	baseURL string,
	logger *zap.Logger,
) *DownloadHandler {
	if maxAge <= 0 {
		maxAge = downloadtoken.DefaultMaxAge
	}

	return &DownloadHandler{
		repo:    repo,
		storage: storage,
		tokens:  tokens,
		maxAge:  maxAge,
		sink:    sink,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		logger:  logger,
		now:     time.Now,
	}
}

// Ticket issues a short-lived download token for a ringtone, as the download
// page does before rendering its button.
func (h *DownloadHandler) Ticket(ctx context.Context, req *TicketRequest) (*TicketResponse, error) {
	r, err := h.repo.GetRingtone(ctx, req.ID)
	if err != nil {
		return nil, h.lookupError(req.ID, err)
	}

	issued := h.now()
	token := h.tokens.Issue(r.NumericID)
	metrics.DownloadTokensIssued.Inc()

	resp := &TicketResponse{}
	resp.Body.Token = token
	resp.Body.DownloadURL = fmt.Sprintf("%s/api/download/%s?token=%s",
		h.baseURL, url.PathEscape(r.NumericID), url.QueryEscape(token))
	resp.Body.ExpiresAt = issued.Add(h.maxAge).UTC()

	return resp, nil
}

// Download streams a ringtone file. The token must be present, unexpired, and
// issued for this ringtone; otherwise the response is 403.
func (h *DownloadHandler) Download(ctx context.Context, req *DownloadRequest) (*huma.StreamResponse, error) {
	if req.Token == "" || !h.tokens.Validate(req.Token, h.maxAge) {
		metrics.DownloadsTotal.WithLabelValues(metrics.OutcomeForbidden).Inc()

		return nil, huma.Error403Forbidden("invalid download request")
	}

	r, err := h.repo.GetRingtone(ctx, req.ID)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			metrics.DownloadsTotal.WithLabelValues(metrics.OutcomeNotFound).Inc()
		}

		return nil, h.lookupError(req.ID, err)
	}

	if !h.tokens.ValidateFor(req.Token, r.NumericID, h.maxAge) {
		metrics.DownloadsTotal.WithLabelValues(metrics.OutcomeForbidden).Inc()

		return nil, huma.Error403Forbidden("invalid download request")
	}

	file, err := h.storage.Open(ctx, r.FileKey)
	if err != nil {
		if errors.Is(err, media.ErrNotFound) {
			metrics.DownloadsTotal.WithLabelValues(metrics.OutcomeNotFound).Inc()
			h.logger.Warn("ringtone file missing", zap.String("key", r.FileKey), zap.Int64("ringtone_id", r.ID))

			return nil, huma.Error404NotFound("file not found")
		}

		metrics.DownloadsTotal.WithLabelValues(metrics.OutcomeError).Inc()
		h.logger.Error("failed to open ringtone file", zap.String("key", r.FileKey), zap.Error(err))

		return nil, huma.Error500InternalServerError("download failed")
	}

	h.recordDownload(ctx, r)
	metrics.DownloadsTotal.WithLabelValues(metrics.OutcomeServed).Inc()

	filename := catalog.DownloadFilename(r)

	return &huma.StreamResponse{
		Body: func(hctx huma.Context) {
			defer file.Close()

			hctx.SetHeader("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
			hctx.SetHeader("Cache-Control", "no-store")
			h.stream(hctx, file, r.FileKey)
		},
	}, nil
}

// Thumbnail serves a stored thumbnail image by file name.
func (h *DownloadHandler) Thumbnail(ctx context.Context, req *ThumbnailRequest) (*huma.StreamResponse, error) {
	if !thumbnailName.MatchString(req.Name) {
		return nil, huma.Error404NotFound("thumbnail not found")
	}

	key := media.Rules[media.KindImage].Dir + "/" + req.Name

	file, err := h.storage.Open(ctx, key)
	if err != nil {
		if errors.Is(err, media.ErrNotFound) {
			return nil, huma.Error404NotFound("thumbnail not found")
		}

		h.logger.Error("failed to open thumbnail", zap.String("key", key), zap.Error(err))

		return nil, huma.Error500InternalServerError("failed to load thumbnail")
	}

	return &huma.StreamResponse{
		Body: func(hctx huma.Context) {
			defer file.Close()

			hctx.SetHeader("Cache-Control", "public, max-age=86400")
			h.stream(hctx, file, key)
		},
	}, nil
}

// stream sniffs the content type from the leading bytes, falling back to the
// key's extension, then copies the file to the response.
func (h *DownloadHandler) stream(hctx huma.Context, file io.Reader, key string) {
	head := make([]byte, sniffSize)

	n, err := io.ReadFull(file, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		h.logger.Error("failed to read file", zap.String("key", key), zap.Error(err))
		hctx.SetStatus(http.StatusInternalServerError)

		return
	}

	head = head[:n]

	hctx.SetHeader("Content-Type", contentType(head, key))
	hctx.SetStatus(http.StatusOK)

	if _, err := io.Copy(hctx.BodyWriter(), io.MultiReader(bytes.NewReader(head), file)); err != nil {
		h.logger.Warn("download interrupted", zap.String("key", key), zap.Error(err))
	}
}

func contentType(head []byte, key string) string {
	if detected := mimetype.Detect(head); detected.String() != "application/octet-stream" {
		return detected.String()
	}

	t, _ := filetype.ParseType(path.Ext(key))

	return t.MIMEType()
}

func (h *DownloadHandler) recordDownload(ctx context.Context, r *catalog.Ringtone) {
	meta := middleware.RequestMetaFromContext(ctx)
	event := &analytics.RingtoneDownloaded{
		RingtoneID: r.ID,
		NumericID:  r.NumericID,
		IPAddress:  meta.ClientIP,
		UserAgent:  meta.UserAgent,
		Referer:    meta.Referrer,
		OccurredAt: h.now().UTC(),
	}

	if err := h.sink.Downloaded(ctx, event); err != nil {
		h.logger.Error("failed to record download",
			zap.Int64("ringtone_id", r.ID),
			zap.Error(err),
		)
	}
}

func (h *DownloadHandler) lookupError(id string, err error) error {
	if errors.Is(err, catalog.ErrNotFound) {
		return huma.Error404NotFound("ringtone not found")
	}

	h.logger.Error("failed to get ringtone", zap.String("id", id), zap.Error(err))

	return huma.Error500InternalServerError("download failed")
}
