package cache

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	return &PostgresStore{pool: mock}, mock
}

func TestPostgresStore_Get_Missing(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT payload, created_at FROM cache_entries`).
		WithArgs("query", "nope").
		WillReturnError(pgx.ErrNoRows)

	entry, err := s.Get(context.Background(), "query", "nope")
	require.NoError(t, err)
	assert.Nil(t, entry)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Get_Found(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	created := time.Now().UTC().Add(-time.Hour)
	mock.ExpectQuery(`SELECT payload, created_at FROM cache_entries`).
		WithArgs("baseline", "region").
		WillReturnRows(pgxmock.NewRows([]string{"payload", "created_at"}).
			AddRow([]byte(`{"total_incidents":1200}`), created))

	entry, err := s.Get(context.Background(), "baseline", "region")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, created, entry.CreatedAt)
	assert.JSONEq(t, `{"total_incidents":1200}`, string(entry.Payload))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Put_Upsert(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`ON CONFLICT`).
		WithArgs("query", "abc", []byte(`{}`), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := s.Put(context.Background(), "query", "abc", []byte(`{}`))
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Invalidate(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`DELETE FROM cache_entries`).
		WithArgs("query", "abc").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	err := s.Invalidate(context.Background(), "query", "abc")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
