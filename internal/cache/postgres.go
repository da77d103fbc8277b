package cache

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
)

// pool is the minimal pgx surface used by PostgresStore, satisfied by both
// pgxpool.Pool and pgxmock.
type pool interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Ping(ctx context.Context) error
	Close()
}

// PostgresStore implements Store on a shared Postgres instance, for
// deployments where several workers want one warm cache.
type PostgresStore struct {
	pool pool
}

// NewPostgres connects to Postgres and ensures the cache table exists.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	p, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, eris.Wrap(err, "cache: postgres connect")
	}
	if err := p.Ping(ctx); err != nil {
		p.Close()
		return nil, eris.Wrap(err, "cache: postgres ping")
	}

	s := &PostgresStore{pool: p}
	if err := s.migrate(ctx); err != nil {
		p.Close()
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS cache_entries (
			namespace  TEXT NOT NULL,
			key        TEXT NOT NULL,
			payload    BYTEA NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			PRIMARY KEY (namespace, key)
		)`)
	return eris.Wrap(err, "cache: postgres migrate")
}

func (s *PostgresStore) Get(ctx context.Context, namespace, key string) (*Entry, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT payload, created_at FROM cache_entries WHERE namespace = $1 AND key = $2`,
		namespace, key,
	)

	var payload []byte
	var createdAt time.Time
	if err := row.Scan(&payload, &createdAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "cache: postgres get %s/%s", namespace, key)
	}

	return &Entry{Key: key, CreatedAt: createdAt, Payload: payload}, nil
}

func (s *PostgresStore) Put(ctx context.Context, namespace, key string, payload []byte) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO cache_entries (namespace, key, payload, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (namespace, key) DO UPDATE SET
			payload = EXCLUDED.payload,
			created_at = EXCLUDED.created_at`,
		namespace, key, payload, time.Now().UTC(),
	)
	return eris.Wrapf(err, "cache: postgres put %s/%s", namespace, key)
}

func (s *PostgresStore) Invalidate(ctx context.Context, namespace, key string) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM cache_entries WHERE namespace = $1 AND key = $2`,
		namespace, key,
	)
	return eris.Wrapf(err, "cache: postgres invalidate %s/%s", namespace, key)
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
