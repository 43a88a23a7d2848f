// Package store persists roll-call records in the "conferencias" collection.
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
	"golang.org/x/sync/errgroup"

	"custodia/internal/backend/docstore"
	"custodia/internal/conference/models"
	"custodia/internal/platform/logger"
	"custodia/internal/platform/metrics"
	dErrors "custodia/pkg/domain-errors"
	"custodia/pkg/platform/sentinel"
)

// Collection is the document collection holding roll-call records.
const Collection = "conferencias"

const (
	msgCreate = "Erro ao salvar conferência"
	msgList   = "Erro ao buscar conferências"
	msgGet    = "Erro ao buscar conferência"
	msgDelete = "Erro ao excluir conferência"
	msgClear  = "Erro ao limpar histórico"
)

// Store is the roll-call record store.
type Store struct {
	conferences docstore.Collection
	logger      *slog.Logger
	metrics     *metrics.Metrics
	tracer      trace.Tracer
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

func New(ds docstore.Store, opts ...Option) *Store {
	s := &Store{
		conferences: ds.Collection(Collection),
		logger:      logger.Discard(),
		tracer:      otel.Tracer("custodia/internal/conference/store"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create writes a new record stamped with the document store's clock.
func (s *Store) Create(ctx context.Context, in models.NewConference) (string, error) {
	if err := in.Validate(); err != nil {
		return "", err
	}
	ctx, span := s.tracer.Start(ctx, "conference.Create", trace.WithAttributes(attribute.String("user.id", in.UserID)))
	defer span.End()
	defer s.metrics.ObserveOperation("conference.create", time.Now())

	id := s.conferences.NewID()
	err := s.conferences.Set(ctx, id, docstore.Document{
		models.FieldNote:          in.Note,
		models.FieldFacilityID:    in.FacilityID,
		models.FieldTotalChecked:  in.TotalChecked,
		models.FieldTotalExpected: in.TotalExpected,
		models.FieldUserID:        in.UserID,
		models.FieldCreatedAt:     docstore.ServerTimestamp,
	})
	if err != nil {
		return "", s.fail(ctx, span, "conference.create", err, dErrors.CodePersistence, msgCreate, "user_id", in.UserID)
	}
	s.metrics.IncrementConferencesRecorded()
	return id, nil
}

// ListForUser returns the user's records, newest first. Ordering happens here
// because the backend gives no order guarantee for filtered queries.
func (s *Store) ListForUser(ctx context.Context, userID string) ([]models.Conference, error) {
	ctx, span := s.tracer.Start(ctx, "conference.ListForUser", trace.WithAttributes(attribute.String("user.id", userID)))
	defer span.End()
	defer s.metrics.ObserveOperation("conference.list_for_user", time.Now())

	recs, err := s.conferences.Query(ctx, docstore.Where(models.FieldUserID, userID))
	if err != nil {
		return nil, s.fail(ctx, span, "conference.list_for_user", err, dErrors.CodeQuery, msgList, "user_id", userID)
	}
	out := make([]models.Conference, 0, len(recs))
	for _, rec := range recs {
		out = append(out, fromDocument(rec.ID, rec.Data))
	}
	models.SortNewestFirst(out)
	return out, nil
}

// Get returns the record, or nil with no error when id does not exist.
func (s *Store) Get(ctx context.Context, id string) (*models.Conference, error) {
	ctx, span := s.tracer.Start(ctx, "conference.Get", trace.WithAttributes(attribute.String("conferencia.id", id)))
	defer span.End()
	defer s.metrics.ObserveOperation("conference.get", time.Now())

	doc, err := s.conferences.Get(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, nil
		}
		return nil, s.fail(ctx, span, "conference.get", err, dErrors.CodeQuery, msgGet, "conferencia_id", id)
	}
	c := fromDocument(id, doc)
	return &c, nil
}

// Delete removes one record unconditionally.
func (s *Store) Delete(ctx context.Context, id string) error {
	ctx, span := s.tracer.Start(ctx, "conference.Delete", trace.WithAttributes(attribute.String("conferencia.id", id)))
	defer span.End()
	defer s.metrics.ObserveOperation("conference.delete", time.Now())

	if err := s.conferences.Delete(ctx, id); err != nil {
		return s.fail(ctx, span, "conference.delete", err, dErrors.CodePersistence, msgDelete, "conferencia_id", id)
	}
	return nil
}

// ClearForUser deletes every record of the user, issuing all deletes at once.
// If any delete fails the call fails; records already deleted stay deleted.
func (s *Store) ClearForUser(ctx context.Context, userID string) error {
	ctx, span := s.tracer.Start(ctx, "conference.ClearForUser", trace.WithAttributes(attribute.String("user.id", userID)))
	defer span.End()
	defer s.metrics.ObserveOperation("conference.clear_for_user", time.Now())

	recs, err := s.conferences.Query(ctx, docstore.Where(models.FieldUserID, userID))
	if err != nil {
		return s.fail(ctx, span, "conference.clear_for_user", err, dErrors.CodePersistence, msgClear, "user_id", userID)
	}

	// A failed delete must not cancel the others, so the group has no shared context.
	var g errgroup.Group
	for _, rec := range recs {
		id := rec.ID
		g.Go(func() error {
			if err := s.conferences.Delete(ctx, id); err != nil {
				s.logger.ErrorContext(ctx, "conference delete failed during clear",
					"conferencia_id", id,
					"user_id", userID,
					"error", err,
				)
				return err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return s.fail(ctx, span, "conference.clear_for_user", err, dErrors.CodePersistence, msgClear,
			"user_id", userID, "records", len(recs))
	}
	span.SetAttributes(attribute.Int("conferencia.deleted", len(recs)))
	return nil
}

func fromDocument(id string, doc docstore.Document) models.Conference {
	return models.Conference{
		ID:            id,
		Note:          docstore.String(doc[models.FieldNote]),
		FacilityID:    docstore.String(doc[models.FieldFacilityID]),
		TotalChecked:  docstore.Int(doc[models.FieldTotalChecked]),
		TotalExpected: docstore.Int(doc[models.FieldTotalExpected]),
		UserID:        docstore.String(doc[models.FieldUserID]),
		CreatedAt:     docstore.Time(doc[models.FieldCreatedAt]),
	}
}

func (s *Store) fail(ctx context.Context, span trace.Span, op string, err error, code dErrors.Code, msg string, attrs ...any) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, msg)
	s.metrics.IncrementBackendFailures(op)
	s.logger.ErrorContext(ctx, "conference store operation failed",
		append([]any{"operation", op, "error", err}, attrs...)...,
	)
	return dErrors.Wrap(err, code, msg)
}
