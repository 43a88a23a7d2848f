package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/mock/gomock"

	"custodia/internal/backend/docstore"
	"custodia/internal/backend/docstore/mocks"
	"custodia/internal/conference/models"
	dErrors "custodia/pkg/domain-errors"
	"custodia/pkg/platform/sentinel"
)

type ConferenceStoreSuite struct {
	suite.Suite
	docs  *docstore.Memory
	store *Store
	ctx   context.Context
	now   time.Time
}

func TestConferenceStoreSuite(t *testing.T) {
	suite.Run(t, new(ConferenceStoreSuite))
}

func (s *ConferenceStoreSuite) SetupTest() {
	s.now = time.Date(2024, 7, 1, 6, 0, 0, 0, time.UTC)
	// Every write observes a later server time.
	s.docs = docstore.NewMemory(docstore.WithClock(func() time.Time {
		s.now = s.now.Add(time.Minute)
		return s.now
	}))
	s.store = New(s.docs)
	s.ctx = context.Background()
}

func (s *ConferenceStoreSuite) create(userID string, checked int) string {
	id, err := s.store.Create(s.ctx, models.NewConference{
		UserID: userID, FacilityID: "f1", TotalChecked: checked, TotalExpected: 10, Note: "rotina",
	})
	s.Require().NoError(err)
	return id
}

func (s *ConferenceStoreSuite) TestCreateUsesServerTimestamp() {
	id := s.create("u1", 9)

	doc, err := s.docs.Collection(Collection).Get(s.ctx, id)
	s.Require().NoError(err)
	s.Equal(s.now, docstore.Time(doc["createdAt"]))
	s.Equal(9, docstore.Int(doc["totalConferidos"]))
	s.Equal("u1", doc["userId"])
}

func (s *ConferenceStoreSuite) TestCreateRejectsInvalidInput() {
	_, err := s.store.Create(s.ctx, models.NewConference{UserID: "u1", TotalExpected: -2})
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

func (s *ConferenceStoreSuite) TestListForUserNewestFirst() {
	first := s.create("u1", 1)
	s.create("u2", 2)
	second := s.create("u1", 3)
	third := s.create("u1", 4)

	list, err := s.store.ListForUser(s.ctx, "u1")
	s.Require().NoError(err)
	s.Require().Len(list, 3)
	s.Equal([]string{third, second, first}, []string{list[0].ID, list[1].ID, list[2].ID})
	for i := 1; i < len(list); i++ {
		s.GreaterOrEqual(list[i-1].CreatedAt.Unix(), list[i].CreatedAt.Unix())
	}
	s.Equal(4, list[0].TotalChecked)
	s.Equal(10, list[0].TotalExpected)
	s.Equal("rotina", list[0].Note)
}

func (s *ConferenceStoreSuite) TestGet() {
	id := s.create("u1", 7)

	c, err := s.store.Get(s.ctx, id)
	s.Require().NoError(err)
	s.Require().NotNil(c)
	s.Equal("u1", c.UserID)
	s.Equal(7, c.TotalChecked)

	missing, err := s.store.Get(s.ctx, "missing")
	s.Require().NoError(err)
	s.Nil(missing)
}

func (s *ConferenceStoreSuite) TestWithTracerRecordsSpans() {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	traced := New(s.docs, WithTracer(tp.Tracer("test")))

	_, err := traced.Create(s.ctx, models.NewConference{UserID: "u1", TotalExpected: 1})
	s.Require().NoError(err)
	_, err = traced.ListForUser(s.ctx, "u1")
	s.Require().NoError(err)

	var names []string
	for _, span := range recorder.Ended() {
		names = append(names, span.Name())
	}
	s.Equal([]string{"conference.Create", "conference.ListForUser"}, names)
}

func (s *ConferenceStoreSuite) TestDelete() {
	id := s.create("u1", 1)
	s.Require().NoError(s.store.Delete(s.ctx, id))
	s.Require().NoError(s.store.Delete(s.ctx, id))

	list, err := s.store.ListForUser(s.ctx, "u1")
	s.Require().NoError(err)
	s.Empty(list)
}

func (s *ConferenceStoreSuite) TestClearForUser() {
	s.create("u1", 1)
	s.create("u1", 2)
	s.create("u1", 3)
	other := s.create("u2", 4)

	s.Require().NoError(s.store.ClearForUser(s.ctx, "u1"))

	list, err := s.store.ListForUser(s.ctx, "u1")
	s.Require().NoError(err)
	s.Empty(list)

	remaining, err := s.store.ListForUser(s.ctx, "u2")
	s.Require().NoError(err)
	s.Require().Len(remaining, 1)
	s.Equal(other, remaining[0].ID)
}

func (s *ConferenceStoreSuite) TestClearForUserWithNoRecords() {
	s.NoError(s.store.ClearForUser(s.ctx, "nobody"))
}

// barrierCollection blocks every Delete until n deletes are in flight, proving
// they were issued concurrently.
type barrierCollection struct {
	docstore.Collection
	n       int
	mu      sync.Mutex
	waiting int
	release chan struct{}
}

func (b *barrierCollection) Delete(ctx context.Context, id string) error {
	b.mu.Lock()
	b.waiting++
	if b.waiting == b.n {
		close(b.release)
	}
	b.mu.Unlock()

	select {
	case <-b.release:
		return b.Collection.Delete(ctx, id)
	case <-time.After(2 * time.Second):
		return errors.New("deletes were not issued concurrently")
	}
}

type barrierStore struct {
	col *barrierCollection
}

func (b barrierStore) Collection(string) docstore.Collection { return b.col }

func TestClearForUserFansOut(t *testing.T) {
	ctx := context.Background()
	mem := docstore.NewMemory()
	col := mem.Collection(Collection)
	for i := 0; i < 5; i++ {
		require.NoError(t, col.Set(ctx, col.NewID(), docstore.Document{"userId": "u1"}))
	}

	s := New(barrierStore{col: &barrierCollection{Collection: col, n: 5, release: make(chan struct{})}})
	require.NoError(t, s.ClearForUser(ctx, "u1"))

	recs, err := col.Query(ctx, docstore.Where("userId", "u1"))
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestClearForUserPartialFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	ds := mocks.NewMockStore(ctrl)
	col := mocks.NewMockCollection(ctrl)
	ds.EXPECT().Collection(Collection).Return(col)

	col.EXPECT().Query(gomock.Any(), docstore.Where("userId", "u1")).Return([]docstore.Record{
		{ID: "c1"}, {ID: "c2"}, {ID: "c3"},
	}, nil)
	cause := errors.New("deadline exceeded")
	col.EXPECT().Delete(gomock.Any(), "c1").Return(nil)
	col.EXPECT().Delete(gomock.Any(), "c2").Return(cause)
	col.EXPECT().Delete(gomock.Any(), "c3").Return(nil)

	err := New(ds).ClearForUser(context.Background(), "u1")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodePersistence))
	assert.Equal(t, "Erro ao limpar histórico", err.Error())
	assert.ErrorIs(t, err, cause)
}

func TestConferenceStoreFailures(t *testing.T) {
	ctx := context.Background()
	cause := sentinel.ErrUnavailable

	setup := func(t *testing.T) (*Store, *mocks.MockCollection) {
		ctrl := gomock.NewController(t)
		ds := mocks.NewMockStore(ctrl)
		col := mocks.NewMockCollection(ctrl)
		ds.EXPECT().Collection(Collection).Return(col)
		return New(ds), col
	}

	t.Run("create", func(t *testing.T) {
		s, col := setup(t)
		col.EXPECT().NewID().Return("c1")
		col.EXPECT().Set(gomock.Any(), "c1", gomock.Any()).Return(cause)
		_, err := s.Create(ctx, models.NewConference{UserID: "u1"})
		assert.True(t, dErrors.HasCode(err, dErrors.CodePersistence))
		assert.Equal(t, "Erro ao salvar conferência", err.Error())
	})

	t.Run("list", func(t *testing.T) {
		s, col := setup(t)
		col.EXPECT().Query(gomock.Any(), gomock.Any()).Return(nil, cause)
		_, err := s.ListForUser(ctx, "u1")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeQuery))
		assert.Equal(t, "Erro ao buscar conferências", err.Error())
	})

	t.Run("get", func(t *testing.T) {
		s, col := setup(t)
		col.EXPECT().Get(gomock.Any(), "c1").Return(nil, cause)
		_, err := s.Get(ctx, "c1")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeQuery))
		assert.Equal(t, "Erro ao buscar conferência", err.Error())
	})

	t.Run("delete", func(t *testing.T) {
		s, col := setup(t)
		col.EXPECT().Delete(gomock.Any(), "c1").Return(cause)
		err := s.Delete(ctx, "c1")
		assert.True(t, dErrors.HasCode(err, dErrors.CodePersistence))
		assert.Equal(t, "Erro ao excluir conferência", err.Error())
	})

	t.Run("clear query", func(t *testing.T) {
		s, col := setup(t)
		col.EXPECT().Query(gomock.Any(), gomock.Any()).Return(nil, cause)
		err := s.ClearForUser(ctx, "u1")
		assert.Equal(t, "Erro ao limpar histórico", err.Error())
	})
}
