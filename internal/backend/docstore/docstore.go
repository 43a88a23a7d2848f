// Package docstore is the document-database contract the record stores consume,
// together with the backends that satisfy it. A collection is a flat namespace of
// documents keyed by id; queries are conjunctions of equality and inequality
// filters with no ordering guarantee.
package docstore

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

//go:generate mockgen -source=docstore.go -destination=mocks/mocks.go -package=mocks Store,Collection

// Document is the loosely typed payload of one record.
type Document map[string]any

// Record pairs a document with its id.
type Record struct {
	ID   string
	Data Document
}

// Op is a filter comparison.
type Op string

const (
	OpEqual    Op = "=="
	OpNotEqual Op = "!="
)

// Filter restricts a query to documents whose Field compares to Value under Op.
type Filter struct {
	Field string
	Op    Op
	Value any
}

// Where builds an equality filter.
func Where(field string, value any) Filter {
	return Filter{Field: field, Op: OpEqual, Value: value}
}

// WhereNot builds an inequality filter.
func WhereNot(field string, value any) Filter {
	return Filter{Field: field, Op: OpNotEqual, Value: value}
}

// Store hands out collection handles.
type Store interface {
	Collection(name string) Collection
}

// Collection is one document collection.
type Collection interface {
	// NewID generates an id without writing anything.
	NewID() string
	// Set writes the full document, replacing any existing one.
	Set(ctx context.Context, id string, doc Document) error
	// Get returns sentinel.ErrNotFound when the document does not exist.
	Get(ctx context.Context, id string) (Document, error)
	// Update merges fields into an existing document; sentinel.ErrNotFound when absent.
	Update(ctx context.Context, id string, fields Document) error
	// Delete removes the document. Deleting a missing id is not an error.
	Delete(ctx context.Context, id string) error
	Query(ctx context.Context, filters ...Filter) ([]Record, error)
}

type serverTimestamp struct{}

// ServerTimestamp is replaced by the backend's clock when written.
var ServerTimestamp any = serverTimestamp{}

func resolveServerTimestamps(doc Document, now time.Time) Document {
	out := make(Document, len(doc))
	for k, v := range doc {
		if _, ok := v.(serverTimestamp); ok {
			out[k] = now
			continue
		}
		out[k] = v
	}
	return out
}

// Time decodes a timestamp field. Backends hand back time.Time or an RFC3339
// string depending on their wire format; anything else yields the zero time.
func Time(v any) time.Time {
	switch t := v.(type) {
	case time.Time:
		return t
	case *time.Time:
		if t != nil {
			return *t
		}
	case string:
		if parsed, err := time.Parse(time.RFC3339Nano, t); err == nil {
			return parsed
		}
	}
	return time.Time{}
}

// Int decodes an integer field, tolerating JSON numbers.
func Int(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case int32:
		return int(n)
	case float64:
		return int(n)
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			f, _ := n.Float64()
			return int(f)
		}
		return int(i)
	case string:
		i, _ := strconv.Atoi(n)
		return i
	}
	return 0
}

// String decodes a text field; nil yields "".
func String(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case fmt.Stringer:
		return s.String()
	default:
		return fmt.Sprint(s)
	}
}

// Bool decodes a flag field.
func Bool(v any) bool {
	switch b := v.(type) {
	case bool:
		return b
	case string:
		parsed, _ := strconv.ParseBool(b)
		return parsed
	}
	return false
}
