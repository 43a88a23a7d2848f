package httptransport

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"custodia/internal/backend/objectstore"
	"custodia/internal/media"
	"custodia/internal/platform/middleware"
	"custodia/internal/transport/http/shared"
	dErrors "custodia/pkg/domain-errors"
	"custodia/pkg/platform/sentinel"
)

// maxPhotoBytes caps multipart photo uploads.
const maxPhotoBytes = 10 << 20

// MediaService is the object store gateway as seen by the photo endpoints.
type MediaService interface {
	UploadPersonPhotoData(ctx context.Context, data []byte, fileName string, onProgress media.ProgressFunc) (string, error)
	DeletePersonPhoto(ctx context.Context, downloadURL string) error
}

// MediaHandler serves /fotos.
type MediaHandler struct {
	media  MediaService
	logger *slog.Logger
}

func NewMediaHandler(media MediaService, logger *slog.Logger) *MediaHandler {
	return &MediaHandler{media: media, logger: logger}
}

func (h *MediaHandler) Register(r chi.Router) {
	r.Post("/fotos", h.handleUpload)
	r.Delete("/fotos", h.handleDelete)
}

// handleUpload accepts a multipart form with the photo in the "file" field.
func (h *MediaHandler) handleUpload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	r.Body = http.MaxBytesReader(w, r.Body, maxPhotoBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		h.writeError(ctx, w, "upload photo", dErrors.Wrap(err, dErrors.CodeBadRequest, "file is required"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		h.writeError(ctx, w, "upload photo", dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid file"))
		return
	}
	link, err := h.media.UploadPersonPhotoData(ctx, data, header.Filename, nil)
	if err != nil {
		h.writeError(ctx, w, "upload photo", err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, map[string]string{"url": link})
}

func (h *MediaHandler) handleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	link := r.URL.Query().Get("url")
	if link == "" {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "url is required"))
		return
	}
	if err := h.media.DeletePersonPhoto(ctx, link); err != nil {
		h.writeError(ctx, w, "delete photo", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *MediaHandler) writeError(ctx context.Context, w http.ResponseWriter, op string, err error) {
	h.logger.WarnContext(ctx, "media request failed",
		"operation", op,
		"request_id", middleware.GetRequestID(ctx),
		"error", err,
	)
	shared.WriteError(w, err)
}

// ObjectHandler serves the download URLs minted by the object store backends.
type ObjectHandler struct {
	bucket objectstore.Bucket
	name   string
	logger *slog.Logger
}

func NewObjectHandler(bucket objectstore.Bucket, name string, logger *slog.Logger) *ObjectHandler {
	return &ObjectHandler{bucket: bucket, name: name, logger: logger}
}

func (h *ObjectHandler) Register(r chi.Router) {
	r.Get("/v0/b/{bucket}/o/{object}", h.handleDownload)
}

func (h *ObjectHandler) handleDownload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	bucket, _ := url.PathUnescape(chi.URLParam(r, "bucket"))
	objectPath, err := url.PathUnescape(chi.URLParam(r, "object"))
	if err != nil || bucket != h.name {
		shared.WriteError(w, dErrors.New(dErrors.CodeNotFound, "object not found"))
		return
	}

	rc, info, err := h.bucket.Open(ctx, objectPath)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			shared.WriteError(w, dErrors.New(dErrors.CodeNotFound, "object not found"))
			return
		}
		h.logger.ErrorContext(ctx, "object open failed",
			"object", objectPath,
			"request_id", middleware.GetRequestID(ctx),
			"error", err,
		)
		shared.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "object unavailable"))
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", info.ContentType)
	w.Header().Set("Content-Length", strconv.FormatInt(info.Size, 10))
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, rc); err != nil {
		h.logger.WarnContext(ctx, "object download interrupted",
			"object", objectPath,
			"error", err,
		)
	}
}
