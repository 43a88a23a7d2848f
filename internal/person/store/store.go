// Package store persists person records in the "presos" collection of the
// document store. Every backend failure is logged with its cause and returned as
// a domain error carrying only a localized message.
package store

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"custodia/internal/backend/docstore"
	"custodia/internal/person/models"
	"custodia/internal/platform/logger"
	"custodia/internal/platform/metrics"
	dErrors "custodia/pkg/domain-errors"
	"custodia/pkg/platform/sentinel"
	"custodia/pkg/requestcontext"
)

// Collection is the document collection holding person records.
const Collection = "presos"

const (
	msgCreate = "Erro ao cadastrar preso"
	msgUpdate = "Erro ao atualizar preso"
	msgDelete = "Erro ao excluir preso"
	msgGet    = "Erro ao buscar preso"
	msgList   = "Erro ao listar presos"
)

// Store is the person record store.
type Store struct {
	people  docstore.Collection
	logger  *slog.Logger
	metrics *metrics.Metrics
	tracer  trace.Tracer
}

type Option func(*Store)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Store) {
		s.metrics = m
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(s *Store) {
		if t != nil {
			s.tracer = t
		}
	}
}

// New builds a Store over ds.
func New(ds docstore.Store, opts ...Option) *Store {
	s := &Store{
		people: ds.Collection(Collection),
		logger: logger.Discard(),
		tracer: otel.Tracer("custodia/internal/person/store"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create normalizes in, stamps the creation time and writes a new record.
// Retrying a failed Create may produce duplicates: every call mints a new id.
func (s *Store) Create(ctx context.Context, in models.Input) (string, error) {
	ctx, span := s.start(ctx, "person.Create")
	defer span.End()
	defer s.metrics.ObserveOperation("person.create", time.Now())

	fields := models.Normalize(in)
	id := s.people.NewID()
	doc := docstore.Document(fields.Input())
	doc[models.FieldCreatedAt] = requestcontext.Now(ctx).UTC()

	if err := s.people.Set(ctx, id, doc); err != nil {
		return "", s.fail(ctx, span, "person.create", err, dErrors.CodePersistence, msgCreate, "preso_id", id)
	}
	span.SetAttributes(attribute.String("preso.id", id))
	s.metrics.IncrementPersonsCreated()
	return id, nil
}

// Update applies a partial change. Fields that normalize to empty text, and
// fields the caller did not send, keep their stored values.
func (s *Store) Update(ctx context.Context, id string, in models.Input) error {
	ctx, span := s.start(ctx, "person.Update", attribute.String("preso.id", id))
	defer span.End()
	defer s.metrics.ObserveOperation("person.update", time.Now())

	patch := models.NormalizePatch(in)
	if len(patch) == 0 {
		return nil
	}
	if err := s.people.Update(ctx, id, docstore.Document(patch)); err != nil {
		return s.fail(ctx, span, "person.update", err, dErrors.CodePersistence, msgUpdate, "preso_id", id)
	}
	return nil
}

// Delete removes the record. Deleting an unknown id succeeds.
func (s *Store) Delete(ctx context.Context, id string) error {
	ctx, span := s.start(ctx, "person.Delete", attribute.String("preso.id", id))
	defer span.End()
	defer s.metrics.ObserveOperation("person.delete", time.Now())

	if err := s.people.Delete(ctx, id); err != nil {
		return s.fail(ctx, span, "person.delete", err, dErrors.CodePersistence, msgDelete, "preso_id", id)
	}
	return nil
}

// Get returns the record, or nil with no error when id does not exist.
func (s *Store) Get(ctx context.Context, id string) (*models.Person, error) {
	ctx, span := s.start(ctx, "person.Get", attribute.String("preso.id", id))
	defer span.End()
	defer s.metrics.ObserveOperation("person.get", time.Now())

	doc, err := s.people.Get(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, nil
		}
		return nil, s.fail(ctx, span, "person.get", err, dErrors.CodeQuery, msgGet, "preso_id", id)
	}
	p := fromDocument(id, doc)
	return &p, nil
}

// ListAll materializes the whole collection.
func (s *Store) ListAll(ctx context.Context) ([]models.Person, error) {
	return s.list(ctx, "person.list_all")
}

// ListByLocation returns the people in pavilion who are not hospitalized.
func (s *Store) ListByLocation(ctx context.Context, pavilion string) ([]models.Person, error) {
	return s.list(ctx, "person.list_by_location",
		docstore.Where(models.FieldPavilion, pavilion),
		docstore.WhereNot(models.FieldStatus, string(models.StatusHospitalizado)),
	)
}

// ListByStatus returns the people with exactly status. An empty status lists
// the hospitalized.
func (s *Store) ListByStatus(ctx context.Context, status models.Status) ([]models.Person, error) {
	if status == "" {
		status = models.StatusHospitalizado
	}
	return s.list(ctx, "person.list_by_status", docstore.Where(models.FieldStatus, string(status)))
}

// FindByRegistrationNumber returns the first record with the registration
// number, or nil when there is none. Uniqueness is a convention, not a
// constraint: with duplicates the backend's first match wins.
func (s *Store) FindByRegistrationNumber(ctx context.Context, registration string) (*models.Person, error) {
	people, err := s.list(ctx, "person.find_by_registration", docstore.Where(models.FieldRegistrationNumber, registration))
	if err != nil {
		return nil, err
	}
	if len(people) == 0 {
		return nil, nil
	}
	if len(people) > 1 {
		s.logger.WarnContext(ctx, "duplicate registration number",
			"matricula", registration,
			"matches", len(people),
		)
	}
	return &people[0], nil
}

func (s *Store) list(ctx context.Context, op string, filters ...docstore.Filter) ([]models.Person, error) {
	ctx, span := s.start(ctx, op)
	defer span.End()
	defer s.metrics.ObserveOperation(op, time.Now())

	recs, err := s.people.Query(ctx, filters...)
	if err != nil {
		return nil, s.fail(ctx, span, op, err, dErrors.CodeQuery, msgList)
	}
	out := make([]models.Person, 0, len(recs))
	for _, rec := range recs {
		out = append(out, fromDocument(rec.ID, rec.Data))
	}
	span.SetAttributes(attribute.Int("preso.count", len(out)))
	return out, nil
}

// fromDocument reads a stored document through Normalize so records written
// under older key spellings still decode.
func fromDocument(id string, doc docstore.Document) models.Person {
	return models.Person{
		ID:        id,
		Fields:    models.Normalize(models.Input(doc)),
		CreatedAt: docstore.Time(doc[models.FieldCreatedAt]),
	}
}

func (s *Store) start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

func (s *Store) fail(ctx context.Context, span trace.Span, op string, err error, code dErrors.Code, msg string, attrs ...any) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, msg)
	s.metrics.IncrementBackendFailures(op)
	s.logger.ErrorContext(ctx, "person store operation failed",
		append([]any{"operation", op, "error", err}, attrs...)...,
	)
	return dErrors.Wrap(err, code, msg)
}
