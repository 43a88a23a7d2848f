package docstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"custodia/pkg/platform/sentinel"
)

type MemoryStoreSuite struct {
	suite.Suite
	store *Memory
	col   Collection
	ctx   context.Context
	now   time.Time
}

func TestMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(MemoryStoreSuite))
}

func (s *MemoryStoreSuite) SetupTest() {
	s.now = time.Date(2024, 3, 10, 8, 30, 0, 0, time.UTC)
	s.store = NewMemory(WithClock(func() time.Time { return s.now }))
	s.col = s.store.Collection("presos")
	s.ctx = context.Background()
}

func (s *MemoryStoreSuite) TestSetGetUpdate() {
	s.Run("get returns ErrNotFound for unknown id", func() {
		_, err := s.col.Get(s.ctx, "missing")
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("set then get round-trips", func() {
		id := s.col.NewID()
		s.Require().NoError(s.col.Set(s.ctx, id, Document{"nome": "João", "cela": "3"}))

		doc, err := s.col.Get(s.ctx, id)
		s.Require().NoError(err)
		s.Equal("João", doc["nome"])
	})

	s.Run("update merges and keeps untouched fields", func() {
		id := s.col.NewID()
		s.Require().NoError(s.col.Set(s.ctx, id, Document{"nome": "Ana", "cela": "1"}))
		s.Require().NoError(s.col.Update(s.ctx, id, Document{"cela": "2"}))

		doc, err := s.col.Get(s.ctx, id)
		s.Require().NoError(err)
		s.Equal("Ana", doc["nome"])
		s.Equal("2", doc["cela"])
	})

	s.Run("update of missing document fails with ErrNotFound", func() {
		err := s.col.Update(s.ctx, "missing", Document{"cela": "2"})
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("returned documents are copies", func() {
		id := s.col.NewID()
		s.Require().NoError(s.col.Set(s.ctx, id, Document{"nome": "Ana"}))
		doc, err := s.col.Get(s.ctx, id)
		s.Require().NoError(err)
		doc["nome"] = "changed"

		again, err := s.col.Get(s.ctx, id)
		s.Require().NoError(err)
		s.Equal("Ana", again["nome"])
	})
}

func (s *MemoryStoreSuite) TestServerTimestamp() {
	id := s.col.NewID()
	s.Require().NoError(s.col.Set(s.ctx, id, Document{"createdAt": ServerTimestamp}))

	doc, err := s.col.Get(s.ctx, id)
	s.Require().NoError(err)
	s.Equal(s.now, Time(doc["createdAt"]))
}

func (s *MemoryStoreSuite) TestDeleteIsUnconditional() {
	s.Require().NoError(s.col.Delete(s.ctx, "never-existed"))

	id := s.col.NewID()
	s.Require().NoError(s.col.Set(s.ctx, id, Document{"nome": "x"}))
	s.Require().NoError(s.col.Delete(s.ctx, id))
	_, err := s.col.Get(s.ctx, id)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *MemoryStoreSuite) TestQueryFilters() {
	seed := map[string]Document{
		"a": {"pavilhao": "A", "status": "Sentenciado"},
		"b": {"pavilhao": "A", "status": "Hospitalizado"},
		"c": {"pavilhao": "B", "status": "Triagem"},
		"d": {"pavilhao": "A"},
	}
	for id, doc := range seed {
		s.Require().NoError(s.col.Set(s.ctx, id, doc))
	}

	s.Run("no filters returns everything", func() {
		recs, err := s.col.Query(s.ctx)
		s.Require().NoError(err)
		s.Len(recs, 4)
	})

	s.Run("equality", func() {
		recs, err := s.col.Query(s.ctx, Where("pavilhao", "A"))
		s.Require().NoError(err)
		s.ElementsMatch([]string{"a", "b", "d"}, ids(recs))
	})

	s.Run("equality and inequality compose", func() {
		recs, err := s.col.Query(s.ctx, Where("pavilhao", "A"), WhereNot("status", "Hospitalizado"))
		s.Require().NoError(err)
		s.ElementsMatch([]string{"a"}, ids(recs))
	})

	s.Run("numbers compare across integer widths", func() {
		s.Require().NoError(s.col.Set(s.ctx, "n", Document{"total": int64(3)}))
		recs, err := s.col.Query(s.ctx, Where("total", 3))
		s.Require().NoError(err)
		s.ElementsMatch([]string{"n"}, ids(recs))
	})
}

func ids(recs []Record) []string {
	out := make([]string, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.ID)
	}
	return out
}
