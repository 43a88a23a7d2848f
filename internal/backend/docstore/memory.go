package docstore

import (
	"context"
	"reflect"
	"sync"
	"time"

	"github.com/google/uuid"

	"custodia/pkg/platform/sentinel"
)

// Memory is an in-process document store. It keeps the development server and
// the store tests free of external services.
type Memory struct {
	mu          sync.RWMutex
	collections map[string]map[string]Document
	clock       func() time.Time
}

// MemoryOption configures a Memory store.
type MemoryOption func(*Memory)

// WithClock overrides the clock used for ServerTimestamp.
func WithClock(clock func() time.Time) MemoryOption {
	return func(m *Memory) {
		if clock != nil {
			m.clock = clock
		}
	}
}

func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{
		collections: make(map[string]map[string]Document),
		clock:       time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Memory) Collection(name string) Collection {
	return &memoryCollection{store: m, name: name}
}

type memoryCollection struct {
	store *Memory
	name  string
}

func (c *memoryCollection) NewID() string {
	return uuid.NewString()
}

func (c *memoryCollection) docs() map[string]Document {
	docs, ok := c.store.collections[c.name]
	if !ok {
		docs = make(map[string]Document)
		c.store.collections[c.name] = docs
	}
	return docs
}

func (c *memoryCollection) Set(_ context.Context, id string, doc Document) error {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()
	c.docs()[id] = resolveServerTimestamps(doc, c.store.clock())
	return nil
}

func (c *memoryCollection) Get(_ context.Context, id string) (Document, error) {
	c.store.mu.RLock()
	defer c.store.mu.RUnlock()
	doc, ok := c.store.collections[c.name][id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return copyDocument(doc), nil
}

func (c *memoryCollection) Update(_ context.Context, id string, fields Document) error {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()
	doc, ok := c.docs()[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	merged := copyDocument(doc)
	for k, v := range resolveServerTimestamps(fields, c.store.clock()) {
		merged[k] = v
	}
	c.docs()[id] = merged
	return nil
}

func (c *memoryCollection) Delete(_ context.Context, id string) error {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()
	delete(c.docs(), id)
	return nil
}

func (c *memoryCollection) Query(_ context.Context, filters ...Filter) ([]Record, error) {
	c.store.mu.RLock()
	defer c.store.mu.RUnlock()
	var out []Record
	for id, doc := range c.store.collections[c.name] {
		if matches(doc, filters) {
			out = append(out, Record{ID: id, Data: copyDocument(doc)})
		}
	}
	return out, nil
}

func matches(doc Document, filters []Filter) bool {
	for _, f := range filters {
		v, present := doc[f.Field]
		switch f.Op {
		case OpEqual:
			if !present || !sameValue(v, f.Value) {
				return false
			}
		case OpNotEqual:
			// Documents missing the field never match an inequality.
			if !present || sameValue(v, f.Value) {
				return false
			}
		default:
			return false
		}
	}
	return true
}

func sameValue(a, b any) bool {
	return reflect.DeepEqual(normalizeValue(a), normalizeValue(b))
}

func normalizeValue(v any) any {
	switch n := v.(type) {
	case int:
		return float64(n)
	case int32:
		return float64(n)
	case int64:
		return float64(n)
	case float32:
		return float64(n)
	case time.Time:
		return n.UTC().Format(time.RFC3339Nano)
	}
	return v
}

func copyDocument(doc Document) Document {
	out := make(Document, len(doc))
	for k, v := range doc {
		out[k] = v
	}
	return out
}
