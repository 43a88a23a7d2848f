// Package media is the gateway between the application and the object store:
// person photos, generated reports and spreadsheets.
package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"custodia/internal/backend/objectstore"
	"custodia/internal/platform/logger"
	"custodia/internal/platform/metrics"
	dErrors "custodia/pkg/domain-errors"
	"custodia/pkg/platform/sentinel"
	"custodia/pkg/requestcontext"
)

const (
	msgUploadPhoto  = "Erro ao enviar foto"
	msgDeletePhoto  = "Erro ao excluir foto"
	msgUploadReport = "Erro ao enviar relatório"
)

const (
	pdfContentType  = "application/pdf"
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// ProgressFunc receives the upload progress as a percentage in [0, 100].
type ProgressFunc func(percent float64)

// BlobReader loads the bytes behind a local resource URI.
type BlobReader interface {
	ReadBlob(ctx context.Context, uri string) ([]byte, error)
}

// FileReader reads local files; a leading file:// scheme is accepted.
type FileReader struct{}

func (FileReader) ReadBlob(_ context.Context, uri string) ([]byte, error) {
	path := strings.TrimPrefix(uri, "file://")
	if path == "" {
		return nil, errors.New("empty file uri")
	}
	return os.ReadFile(path)
}

// Gateway uploads and deletes objects on behalf of the application.
type Gateway struct {
	bucket  objectstore.Bucket
	reader  BlobReader
	logger  *slog.Logger
	metrics *metrics.Metrics
}

type Option func(*Gateway)

func WithBlobReader(r BlobReader) Option {
	return func(g *Gateway) {
		if r != nil {
			g.reader = r
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(g *Gateway) {
		if logger != nil {
			g.logger = logger
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(g *Gateway) {
		g.metrics = m
	}
}

func New(bucket objectstore.Bucket, opts ...Option) *Gateway {
	g := &Gateway{
		bucket: bucket,
		reader: FileReader{},
		logger: logger.Discard(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// UploadPersonPhoto reads localURI and stores it under fotos/. See
// UploadPersonPhotoData for the upload modes.
func (g *Gateway) UploadPersonPhoto(ctx context.Context, localURI, fileName string, onProgress ProgressFunc) (string, error) {
	data, err := g.reader.ReadBlob(ctx, localURI)
	if err != nil {
		return "", g.fail(ctx, "media.upload_photo", err, dErrors.CodeUpload, msgUploadPhoto, "uri", localURI)
	}
	return g.UploadPersonPhotoData(ctx, data, fileName, onProgress)
}

// UploadPersonPhotoData stores data at fotos/{millis}-{sanitized name} and
// returns its download URL. With a progress callback the upload is resumable and
// the callback fires after every chunk; without one it is a single call.
func (g *Gateway) UploadPersonPhotoData(ctx context.Context, data []byte, fileName string, onProgress ProgressFunc) (string, error) {
	defer g.metrics.ObserveOperation("media.upload_photo", time.Now())

	objectPath := PhotoPath(requestcontext.Now(ctx), fileName)
	contentType := contentTypeFor(fileName, "image/jpeg")

	var err error
	if onProgress != nil {
		err = g.bucket.UploadResumable(ctx, objectPath, bytes.NewReader(data), int64(len(data)), contentType,
			func(transferred, total int64) {
				onProgress(percent(transferred, total))
			})
	} else {
		err = g.bucket.Upload(ctx, objectPath, data, contentType)
	}
	if err != nil {
		return "", g.fail(ctx, "media.upload_photo", err, dErrors.CodeUpload, msgUploadPhoto, "path", objectPath)
	}

	downloadURL, err := g.bucket.DownloadURL(ctx, objectPath)
	if err != nil {
		return "", g.fail(ctx, "media.upload_photo", err, dErrors.CodeUpload, msgUploadPhoto, "path", objectPath)
	}
	g.metrics.IncrementUploads("photo")
	return downloadURL, nil
}

// DeletePersonPhoto deletes the object behind downloadURL. An empty URL and an
// already deleted object are both successes.
func (g *Gateway) DeletePersonPhoto(ctx context.Context, downloadURL string) error {
	if downloadURL == "" {
		return nil
	}
	objectPath := ObjectPath(downloadURL)
	if err := g.bucket.Delete(ctx, objectPath); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			g.logger.InfoContext(ctx, "photo already deleted", "path", objectPath)
			return nil
		}
		return g.fail(ctx, "media.delete_photo", err, dErrors.CodeDelete, msgDeletePhoto, "path", objectPath)
	}
	return nil
}

// UploadReport stores a PDF at relatorios/{userID}/{millis}-{sanitized}.pdf.
func (g *Gateway) UploadReport(ctx context.Context, localURI, reportName, userID string) (string, error) {
	data, err := g.reader.ReadBlob(ctx, localURI)
	if err != nil {
		return "", g.fail(ctx, "media.upload_report", err, dErrors.CodeUpload, msgUploadReport, "uri", localURI)
	}
	return g.uploadReport(ctx, data, ReportPath(requestcontext.Now(ctx), userID, reportName, ".pdf"), pdfContentType, "report")
}

// UploadSpreadsheet stores an xlsx export next to the user's PDF reports.
func (g *Gateway) UploadSpreadsheet(ctx context.Context, data []byte, reportName, userID string) (string, error) {
	return g.uploadReport(ctx, data, ReportPath(requestcontext.Now(ctx), userID, reportName, ".xlsx"), xlsxContentType, "spreadsheet")
}

func (g *Gateway) uploadReport(ctx context.Context, data []byte, objectPath, contentType, kind string) (string, error) {
	defer g.metrics.ObserveOperation("media.upload_"+kind, time.Now())

	if err := g.bucket.Upload(ctx, objectPath, data, contentType); err != nil {
		return "", g.fail(ctx, "media.upload_"+kind, err, dErrors.CodeUpload, msgUploadReport, "path", objectPath)
	}
	downloadURL, err := g.bucket.DownloadURL(ctx, objectPath)
	if err != nil {
		return "", g.fail(ctx, "media.upload_"+kind, err, dErrors.CodeUpload, msgUploadReport, "path", objectPath)
	}
	g.metrics.IncrementUploads(kind)
	return downloadURL, nil
}

func (g *Gateway) fail(ctx context.Context, op string, err error, code dErrors.Code, msg string, attrs ...any) error {
	g.metrics.IncrementBackendFailures(op)
	g.logger.ErrorContext(ctx, "media operation failed",
		append([]any{"operation", op, "error", err}, attrs...)...,
	)
	return dErrors.Wrap(err, code, msg)
}

var whitespace = regexp.MustCompile(`\s+`)

// SanitizeFileName collapses every whitespace run into one underscore.
func SanitizeFileName(name string) string {
	return whitespace.ReplaceAllString(name, "_")
}

// PhotoPath is the object path of a person photo uploaded at now.
func PhotoPath(now time.Time, fileName string) string {
	return fmt.Sprintf("fotos/%d-%s", now.UnixMilli(), SanitizeFileName(fileName))
}

// ReportPath is the object path of a report owned by userID.
func ReportPath(now time.Time, userID, reportName, ext string) string {
	return fmt.Sprintf("relatorios/%s/%d-%s%s", userID, now.UnixMilli(), SanitizeFileName(reportName), ext)
}

// ObjectPath extracts the object path from a download URL: the URL-decoded
// text between "/o/" and "?alt=". Input lacking either marker is returned as is.
func ObjectPath(downloadURL string) string {
	start := strings.Index(downloadURL, "/o/")
	end := strings.Index(downloadURL, "?alt=")
	if start < 0 || end < 0 || end < start+len("/o/") {
		return downloadURL
	}
	encoded := downloadURL[start+len("/o/") : end]
	decoded, err := url.PathUnescape(encoded)
	if err != nil {
		return encoded
	}
	return decoded
}

func percent(transferred, total int64) float64 {
	if total <= 0 {
		return 100
	}
	return float64(transferred) / float64(total) * 100
}

func contentTypeFor(name, fallback string) string {
	if ct := mime.TypeByExtension(strings.ToLower(filepath.Ext(name))); ct != "" {
		return ct
	}
	return fallback
}
