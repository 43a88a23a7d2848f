package draft

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// StoreSuite runs the same behavior checks against every backend.
type StoreSuite struct {
	suite.Suite
	newStore func(t *testing.T) Store
	store    Store
	ctx      context.Context
}

func TestMemoryStore(t *testing.T) {
	suite.Run(t, &StoreSuite{newStore: func(*testing.T) Store { return NewMemory() }})
}

func TestRedisStore(t *testing.T) {
	suite.Run(t, &StoreSuite{newStore: func(t *testing.T) Store {
		mr := miniredis.RunT(t)
		return NewRedis(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	}})
}

func (s *StoreSuite) SetupTest() {
	s.store = s.newStore(s.T())
	s.ctx = context.Background()
}

func sample() Draft {
	return Draft{
		Pavilions: []Pavilion{
			{Name: "A", Cells: []Cell{{ID: "1", Expected: 4, Checked: 3}, {ID: "2", Expected: 2, Checked: 2}}},
			{Name: "B", Cells: []Cell{{ID: "1", Expected: 5, Checked: 0}}},
		},
		Note:      "turno da manhã",
		UpdatedAt: time.Date(2024, 7, 1, 6, 30, 0, 0, time.UTC),
	}
}

func (s *StoreSuite) TestLoadWithoutDraft() {
	d, err := s.store.Load(s.ctx, "u1")
	s.Require().NoError(err)
	s.Nil(d)
}

func (s *StoreSuite) TestSaveAndLoad() {
	s.Require().NoError(s.store.Save(s.ctx, "u1", sample()))

	d, err := s.store.Load(s.ctx, "u1")
	s.Require().NoError(err)
	s.Require().NotNil(d)
	s.Equal(sample(), *d)

	other, err := s.store.Load(s.ctx, "u2")
	s.Require().NoError(err)
	s.Nil(other)
}

func (s *StoreSuite) TestSaveReplaces() {
	s.Require().NoError(s.store.Save(s.ctx, "u1", sample()))
	s.Require().NoError(s.store.Save(s.ctx, "u1", Draft{Note: "novo"}))

	d, err := s.store.Load(s.ctx, "u1")
	s.Require().NoError(err)
	s.Equal("novo", d.Note)
	s.Empty(d.Pavilions)
}

func (s *StoreSuite) TestDiscard() {
	s.Require().NoError(s.store.Save(s.ctx, "u1", sample()))
	s.Require().NoError(s.store.Discard(s.ctx, "u1"))
	s.Require().NoError(s.store.Discard(s.ctx, "u1"))

	d, err := s.store.Load(s.ctx, "u1")
	s.Require().NoError(err)
	s.Nil(d)
}

func TestRedisDraftExpires(t *testing.T) {
	mr := miniredis.RunT(t)
	store := NewRedis(redis.NewClient(&redis.Options{Addr: mr.Addr()}), WithTTL(time.Hour))
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "u1", sample()))
	assert.True(t, mr.Exists("draft:u1"))
	assert.Equal(t, time.Hour, mr.TTL("draft:u1"))

	mr.FastForward(time.Hour + time.Second)
	d, err := store.Load(ctx, "u1")
	require.NoError(t, err)
	assert.Nil(t, d)
}

func TestRedisUnavailable(t *testing.T) {
	mr := miniredis.RunT(t)
	store := NewRedis(redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1}))
	mr.Close()

	_, err := store.Load(context.Background(), "u1")
	assert.Error(t, err)
}

func TestMemoryLoadReturnsCopy(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, "u1", sample()))

	d, err := store.Load(ctx, "u1")
	require.NoError(t, err)
	d.Pavilions[0].Cells[0].Checked = 99

	again, err := store.Load(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 3, again.Pavilions[0].Cells[0].Checked)
}

func TestTotals(t *testing.T) {
	expected, checked := sample().Totals()
	assert.Equal(t, 11, expected)
	assert.Equal(t, 5, checked)

	expected, checked = Draft{}.Totals()
	assert.Zero(t, expected)
	assert.Zero(t, checked)
}
