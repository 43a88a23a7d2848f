package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"os"
	"path"
	"path/filepath"

	"custodia/pkg/platform/sentinel"
)

// Filesystem stores objects as files below a root directory.
type Filesystem struct {
	root      string
	urls      URLBuilder
	chunkSize int
}

// FilesystemOption configures a Filesystem bucket.
type FilesystemOption func(*Filesystem)

// WithChunkSize sets the resumable upload chunk size.
func WithChunkSize(n int) FilesystemOption {
	return func(f *Filesystem) {
		f.chunkSize = n
	}
}

// NewFilesystem creates the root directory when missing.
func NewFilesystem(root string, urls URLBuilder, opts ...FilesystemOption) (*Filesystem, error) {
	if root == "" {
		return nil, fmt.Errorf("object store root is required")
	}
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("create object store root: %w", err)
	}
	f := &Filesystem{root: root, urls: urls, chunkSize: defaultChunkSize}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

func (f *Filesystem) filePath(objectPath string) (string, string, error) {
	p, err := cleanPath(objectPath)
	if err != nil {
		return "", "", err
	}
	return p, filepath.Join(f.root, filepath.FromSlash(p)), nil
}

func (f *Filesystem) Upload(ctx context.Context, objectPath string, data []byte, contentType string) error {
	_, target, err := f.filePath(objectPath)
	if err != nil {
		return err
	}
	return f.write(target, func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
}

func (f *Filesystem) UploadResumable(ctx context.Context, objectPath string, r io.Reader, size int64, contentType string, onProgress ProgressFunc) error {
	_, target, err := f.filePath(objectPath)
	if err != nil {
		return err
	}
	return f.write(target, func(w io.Writer) error {
		_, err := copyChunks(ctx, w, r, size, f.chunkSize, onProgress)
		return err
	})
}

// write stages into a temp file so readers never observe a partial object.
func (f *Filesystem) write(target string, fill func(io.Writer) error) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o750); err != nil {
		return fmt.Errorf("create object directory: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(target), ".upload-*")
	if err != nil {
		return fmt.Errorf("stage object: %w", err)
	}
	defer func() {
		_ = os.Remove(tmp.Name())
	}()
	if err := fill(tmp); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write object: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close object: %w", err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		return fmt.Errorf("commit object: %w", err)
	}
	return nil
}

func (f *Filesystem) DownloadURL(_ context.Context, objectPath string) (string, error) {
	p, target, err := f.filePath(objectPath)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(target); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", sentinel.ErrNotFound
		}
		return "", fmt.Errorf("stat object: %w", err)
	}
	return f.urls.URL(p), nil
}

func (f *Filesystem) Delete(_ context.Context, objectPath string) error {
	_, target, err := f.filePath(objectPath)
	if err != nil {
		return err
	}
	if err := os.Remove(target); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return sentinel.ErrNotFound
		}
		return fmt.Errorf("delete object: %w", err)
	}
	return nil
}

func (f *Filesystem) Open(_ context.Context, objectPath string) (io.ReadCloser, ObjectInfo, error) {
	p, target, err := f.filePath(objectPath)
	if err != nil {
		return nil, ObjectInfo{}, err
	}
	file, err := os.Open(target)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ObjectInfo{}, sentinel.ErrNotFound
		}
		return nil, ObjectInfo{}, fmt.Errorf("open object: %w", err)
	}
	stat, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, ObjectInfo{}, fmt.Errorf("stat object: %w", err)
	}
	return file, ObjectInfo{
		Path:        p,
		ContentType: mime.TypeByExtension(path.Ext(p)),
		Size:        stat.Size(),
		UpdatedAt:   stat.ModTime(),
	}, nil
}
