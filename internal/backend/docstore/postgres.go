package docstore

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"custodia/pkg/platform/sentinel"
)

const documentsSchema = `
CREATE TABLE IF NOT EXISTS documents (
	collection TEXT NOT NULL,
	id         TEXT NOT NULL,
	data       JSONB NOT NULL,
	PRIMARY KEY (collection, id)
);
CREATE INDEX IF NOT EXISTS documents_data_gin ON documents USING GIN (data);
`

// Postgres persists every collection in one JSONB table.
type Postgres struct {
	db    *sql.DB
	clock func() time.Time
}

// PostgresOption configures a Postgres store.
type PostgresOption func(*Postgres)

// WithPostgresClock overrides the clock used for ServerTimestamp.
func WithPostgresClock(clock func() time.Time) PostgresOption {
	return func(p *Postgres) {
		if clock != nil {
			p.clock = clock
		}
	}
}

// NewPostgres constructs a PostgreSQL-backed document store.
func NewPostgres(db *sql.DB, opts ...PostgresOption) *Postgres {
	p := &Postgres{db: db, clock: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	return p
}

// EnsureSchema creates the documents table when missing.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx, documentsSchema); err != nil {
		return fmt.Errorf("ensure documents schema: %w", err)
	}
	return nil
}

func (p *Postgres) Collection(name string) Collection {
	return &postgresCollection{store: p, name: name}
}

type postgresCollection struct {
	store *Postgres
	name  string
}

func (c *postgresCollection) NewID() string {
	return uuid.NewString()
}

func (c *postgresCollection) Set(ctx context.Context, id string, doc Document) error {
	payload, err := json.Marshal(resolveServerTimestamps(doc, c.store.clock().UTC()))
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}
	query := `
		INSERT INTO documents (collection, id, data)
		VALUES ($1, $2, $3)
		ON CONFLICT (collection, id) DO UPDATE SET
			data = EXCLUDED.data
	`
	if _, err := c.store.db.ExecContext(ctx, query, c.name, id, payload); err != nil {
		return fmt.Errorf("set document %s/%s: %w", c.name, id, err)
	}
	return nil
}

func (c *postgresCollection) Get(ctx context.Context, id string) (Document, error) {
	var raw []byte
	err := c.store.db.QueryRowContext(ctx,
		`SELECT data FROM documents WHERE collection = $1 AND id = $2`, c.name, id,
	).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get document %s/%s: %w", c.name, id, err)
	}
	return decodeDocument(raw)
}

func (c *postgresCollection) Update(ctx context.Context, id string, fields Document) error {
	payload, err := json.Marshal(resolveServerTimestamps(fields, c.store.clock().UTC()))
	if err != nil {
		return fmt.Errorf("marshal document fields: %w", err)
	}
	res, err := c.store.db.ExecContext(ctx,
		`UPDATE documents SET data = data || $3::jsonb WHERE collection = $1 AND id = $2`,
		c.name, id, payload,
	)
	if err != nil {
		return fmt.Errorf("update document %s/%s: %w", c.name, id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update document %s/%s: %w", c.name, id, err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (c *postgresCollection) Delete(ctx context.Context, id string) error {
	if _, err := c.store.db.ExecContext(ctx,
		`DELETE FROM documents WHERE collection = $1 AND id = $2`, c.name, id,
	); err != nil {
		return fmt.Errorf("delete document %s/%s: %w", c.name, id, err)
	}
	return nil
}

func (c *postgresCollection) Query(ctx context.Context, filters ...Filter) ([]Record, error) {
	query, args, err := buildQuery(c.name, filters)
	if err != nil {
		return nil, err
	}
	rows, err := c.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", c.name, err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var id string
		var raw []byte
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, fmt.Errorf("scan %s: %w", c.name, err)
		}
		doc, err := decodeDocument(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, Record{ID: id, Data: doc})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", c.name, err)
	}
	return out, nil
}

// buildQuery compiles filters into a parameterized statement. Values are compared
// as JSONB so strings, numbers and booleans keep their types.
func buildQuery(collection string, filters []Filter) (string, []any, error) {
	var b strings.Builder
	b.WriteString(`SELECT id, data FROM documents WHERE collection = $1`)
	args := []any{collection}
	for _, f := range filters {
		value, err := json.Marshal(f.Value)
		if err != nil {
			return "", nil, fmt.Errorf("marshal filter value for %q: %w", f.Field, err)
		}
		args = append(args, f.Field, value)
		field, param := len(args)-1, len(args)
		switch f.Op {
		case OpEqual:
			fmt.Fprintf(&b, ` AND data->$%d = $%d::jsonb`, field, param)
		case OpNotEqual:
			fmt.Fprintf(&b, ` AND data->$%d IS NOT NULL AND data->$%d <> $%d::jsonb`, field, field, param)
		default:
			return "", nil, fmt.Errorf("unsupported filter op %q", f.Op)
		}
	}
	return b.String(), args, nil
}

func decodeDocument(raw []byte) (Document, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var doc Document
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	if doc == nil {
		doc = Document{}
	}
	return doc, nil
}
