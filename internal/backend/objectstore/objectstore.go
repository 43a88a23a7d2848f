// Package objectstore is the blob-store contract consumed by the media gateway,
// with in-memory and filesystem backends. Objects are addressed by slash-separated
// paths and exposed through download URLs of the form
// {public}/v0/b/{bucket}/o/{escaped path}?alt=media.
package objectstore

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"
	"time"
)

//go:generate mockgen -source=objectstore.go -destination=mocks/mocks.go -package=mocks Bucket

// ProgressFunc observes a resumable upload after every transferred chunk.
type ProgressFunc func(transferred, total int64)

// ObjectInfo describes a stored object.
type ObjectInfo struct {
	Path        string
	ContentType string
	Size        int64
	UpdatedAt   time.Time
}

// Bucket stores binary objects.
type Bucket interface {
	// Upload stores data in a single call.
	Upload(ctx context.Context, objectPath string, data []byte, contentType string) error
	// UploadResumable streams r in chunks, reporting progress after each one.
	UploadResumable(ctx context.Context, objectPath string, r io.Reader, size int64, contentType string, onProgress ProgressFunc) error
	DownloadURL(ctx context.Context, objectPath string) (string, error)
	// Delete returns sentinel.ErrNotFound when the object does not exist.
	Delete(ctx context.Context, objectPath string) error
	Open(ctx context.Context, objectPath string) (io.ReadCloser, ObjectInfo, error)
}

const defaultChunkSize = 256 * 1024

// URLBuilder renders public download URLs for a bucket.
type URLBuilder struct {
	PublicURL string
	Bucket    string
}

// URL returns the download URL of objectPath. The path is escaped as a single
// segment so "/" becomes %2F.
func (b URLBuilder) URL(objectPath string) string {
	base := strings.TrimRight(b.PublicURL, "/")
	return fmt.Sprintf("%s/v0/b/%s/o/%s?alt=media", base, url.PathEscape(b.Bucket), url.PathEscape(objectPath))
}

// cleanPath normalizes an object path and rejects traversal outside the bucket.
func cleanPath(objectPath string) (string, error) {
	if strings.TrimSpace(objectPath) == "" {
		return "", fmt.Errorf("object path is required")
	}
	cleaned := strings.TrimPrefix(path.Clean("/"+objectPath), "/")
	if cleaned == "" || cleaned == "." {
		return "", fmt.Errorf("invalid object path %q", objectPath)
	}
	return cleaned, nil
}

// copyChunks copies r to w in fixed chunks, calling onProgress after each write.
func copyChunks(ctx context.Context, w io.Writer, r io.Reader, size int64, chunkSize int, onProgress ProgressFunc) (int64, error) {
	if chunkSize <= 0 {
		chunkSize = defaultChunkSize
	}
	buf := make([]byte, chunkSize)
	var transferred int64
	for {
		if err := ctx.Err(); err != nil {
			return transferred, err
		}
		n, readErr := r.Read(buf)
		if n > 0 {
			if _, err := w.Write(buf[:n]); err != nil {
				return transferred, err
			}
			transferred += int64(n)
			if onProgress != nil {
				onProgress(transferred, size)
			}
		}
		if readErr == io.EOF {
			return transferred, nil
		}
		if readErr != nil {
			return transferred, readErr
		}
	}
}
