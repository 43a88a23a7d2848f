package objectstore

import (
	"bytes"
	"context"
	"io"
	"sync"
	"time"

	"custodia/pkg/platform/sentinel"
)

type memoryObject struct {
	data []byte
	info ObjectInfo
}

// Memory keeps objects in process memory.
type Memory struct {
	mu        sync.RWMutex
	objects   map[string]memoryObject
	urls      URLBuilder
	chunkSize int
}

// MemoryOption configures a Memory bucket.
type MemoryOption func(*Memory)

// WithMemoryChunkSize sets the resumable upload chunk size.
func WithMemoryChunkSize(n int) MemoryOption {
	return func(m *Memory) {
		m.chunkSize = n
	}
}

func NewMemory(urls URLBuilder, opts ...MemoryOption) *Memory {
	m := &Memory{
		objects:   make(map[string]memoryObject),
		urls:      urls,
		chunkSize: defaultChunkSize,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Memory) Upload(_ context.Context, objectPath string, data []byte, contentType string) error {
	p, err := cleanPath(objectPath)
	if err != nil {
		return err
	}
	m.put(p, append([]byte(nil), data...), contentType)
	return nil
}

func (m *Memory) UploadResumable(ctx context.Context, objectPath string, r io.Reader, size int64, contentType string, onProgress ProgressFunc) error {
	p, err := cleanPath(objectPath)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if _, err := copyChunks(ctx, &buf, r, size, m.chunkSize, onProgress); err != nil {
		return err
	}
	m.put(p, buf.Bytes(), contentType)
	return nil
}

func (m *Memory) put(p string, data []byte, contentType string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[p] = memoryObject{
		data: data,
		info: ObjectInfo{Path: p, ContentType: contentType, Size: int64(len(data)), UpdatedAt: time.Now()},
	}
}

func (m *Memory) DownloadURL(_ context.Context, objectPath string) (string, error) {
	p, err := cleanPath(objectPath)
	if err != nil {
		return "", err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, ok := m.objects[p]; !ok {
		return "", sentinel.ErrNotFound
	}
	return m.urls.URL(p), nil
}

func (m *Memory) Delete(_ context.Context, objectPath string) error {
	p, err := cleanPath(objectPath)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.objects[p]; !ok {
		return sentinel.ErrNotFound
	}
	delete(m.objects, p)
	return nil
}

func (m *Memory) Open(_ context.Context, objectPath string) (io.ReadCloser, ObjectInfo, error) {
	p, err := cleanPath(objectPath)
	if err != nil {
		return nil, ObjectInfo{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	obj, ok := m.objects[p]
	if !ok {
		return nil, ObjectInfo{}, sentinel.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(obj.data)), obj.info, nil
}

// Exists reports whether an object is stored at objectPath.
func (m *Memory) Exists(objectPath string) bool {
	p, err := cleanPath(objectPath)
	if err != nil {
		return false
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.objects[p]
	return ok
}
