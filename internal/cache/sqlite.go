package cache

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path, configures WAL mode,
// and creates the cache table if needed.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "cache: sqlite open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "cache: sqlite exec %s", pragma)
		}
	}

	const migration = `
CREATE TABLE IF NOT EXISTS cache_entries (
	namespace  TEXT NOT NULL,
	key        TEXT NOT NULL,
	payload    BLOB NOT NULL,
	created_at DATETIME NOT NULL,
	PRIMARY KEY (namespace, key)
);`
	if _, err := db.Exec(migration); err != nil {
		db.Close()
		return nil, eris.Wrap(err, "cache: sqlite migrate")
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Get(ctx context.Context, namespace, key string) (*Entry, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT payload, created_at FROM cache_entries WHERE namespace = ? AND key = ?`,
		namespace, key,
	)

	var payload []byte
	var createdAt time.Time
	if err := row.Scan(&payload, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "cache: sqlite get %s/%s", namespace, key)
	}

	return &Entry{Key: key, CreatedAt: createdAt, Payload: payload}, nil
}

func (s *SQLiteStore) Put(ctx context.Context, namespace, key string, payload []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO cache_entries (namespace, key, payload, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (namespace, key) DO UPDATE SET
			payload = excluded.payload,
			created_at = excluded.created_at`,
		namespace, key, payload, time.Now().UTC(),
	)
	return eris.Wrapf(err, "cache: sqlite put %s/%s", namespace, key)
}

func (s *SQLiteStore) Invalidate(ctx context.Context, namespace, key string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM cache_entries WHERE namespace = ? AND key = ?`,
		namespace, key,
	)
	return eris.Wrapf(err, "cache: sqlite invalidate %s/%s", namespace, key)
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
