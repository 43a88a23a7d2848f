package docstore

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"custodia/pkg/platform/sentinel"
)

func setupMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock, Collection) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	fixed := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	store := NewPostgres(db, WithPostgresClock(func() time.Time { return fixed }))
	return db, mock, store.Collection("presos")
}

func TestPostgresSet(t *testing.T) {
	db, mock, col := setupMockDB(t)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO documents (collection, id, data)`)).
		WithArgs("presos", "p1", []byte(`{"createdAt":"2024-01-02T03:04:05Z","nome":"Ana"}`)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := col.Set(context.Background(), "p1", Document{"nome": "Ana", "createdAt": ServerTimestamp})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresGet(t *testing.T) {
	t.Run("decodes stored document", func(t *testing.T) {
		db, mock, col := setupMockDB(t)
		defer db.Close()

		rows := sqlmock.NewRows([]string{"data"}).
			AddRow([]byte(`{"nome":"Ana","totalEsperados":12,"createdAt":"2024-01-02T03:04:05Z"}`))
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT data FROM documents WHERE collection = $1 AND id = $2`)).
			WithArgs("presos", "p1").
			WillReturnRows(rows)

		doc, err := col.Get(context.Background(), "p1")
		require.NoError(t, err)
		assert.Equal(t, "Ana", doc["nome"])
		assert.Equal(t, 12, Int(doc["totalEsperados"]))
		assert.Equal(t, time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC), Time(doc["createdAt"]))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("maps no rows to ErrNotFound", func(t *testing.T) {
		db, mock, col := setupMockDB(t)
		defer db.Close()

		mock.ExpectQuery(`SELECT data FROM documents`).
			WithArgs("presos", "missing").
			WillReturnError(sql.ErrNoRows)

		_, err := col.Get(context.Background(), "missing")
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})

	t.Run("wraps driver errors", func(t *testing.T) {
		db, mock, col := setupMockDB(t)
		defer db.Close()

		driverErr := errors.New("connection reset")
		mock.ExpectQuery(`SELECT data FROM documents`).
			WithArgs("presos", "p1").
			WillReturnError(driverErr)

		_, err := col.Get(context.Background(), "p1")
		assert.ErrorIs(t, err, driverErr)
		assert.NotErrorIs(t, err, sentinel.ErrNotFound)
	})
}

func TestPostgresUpdate(t *testing.T) {
	t.Run("merges fields", func(t *testing.T) {
		db, mock, col := setupMockDB(t)
		defer db.Close()

		mock.ExpectExec(regexp.QuoteMeta(`UPDATE documents SET data = data || $3::jsonb`)).
			WithArgs("presos", "p1", []byte(`{"cela":"7"}`)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, col.Update(context.Background(), "p1", Document{"cela": "7"}))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing document yields ErrNotFound", func(t *testing.T) {
		db, mock, col := setupMockDB(t)
		defer db.Close()

		mock.ExpectExec(`UPDATE documents`).
			WithArgs("presos", "gone", []byte(`{"cela":"7"}`)).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := col.Update(context.Background(), "gone", Document{"cela": "7"})
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})
}

func TestPostgresDelete(t *testing.T) {
	db, mock, col := setupMockDB(t)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM documents WHERE collection = $1 AND id = $2`)).
		WithArgs("presos", "p1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, col.Delete(context.Background(), "p1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresQuery(t *testing.T) {
	db, mock, col := setupMockDB(t)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"id", "data"}).
		AddRow("p1", []byte(`{"pavilhao":"A","status":"Sentenciado"}`)).
		AddRow("p2", []byte(`{"pavilhao":"A","status":"Triagem"}`))

	mock.ExpectQuery(regexp.QuoteMeta(
		`SELECT id, data FROM documents WHERE collection = $1 AND data->$2 = $3::jsonb AND data->$4 IS NOT NULL AND data->$4 <> $5::jsonb`,
	)).
		WithArgs("presos", "pavilhao", []byte(`"A"`), "status", []byte(`"Hospitalizado"`)).
		WillReturnRows(rows)

	recs, err := col.Query(context.Background(), Where("pavilhao", "A"), WhereNot("status", "Hospitalizado"))
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "p1", recs[0].ID)
	assert.Equal(t, "Sentenciado", recs[0].Data["status"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBuildQueryRejectsUnknownOp(t *testing.T) {
	_, _, err := buildQuery("presos", []Filter{{Field: "x", Op: "<", Value: 1}})
	assert.Error(t, err)
}
