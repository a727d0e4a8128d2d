package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const createCacheTable = `
CREATE TABLE IF NOT EXISTS RankingCache (
  key TEXT NOT NULL PRIMARY KEY,
  value BLOB NOT NULL,
  expires_at INTEGER NOT NULL
);
`

// SQLite is a Store backed by a local SQLite file, the backend used by the
// CLI. Expired rows are dropped lazily on read.
type SQLite struct {
	db *sql.DB

	// now is swapped out in tests.
	now func() time.Time
}

func NewSQLite(dbPath string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if _, err := db.Exec(createCacheTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating cache table: %w", err)
	}

	return &SQLite{db: db, now: time.Now}, nil
}

func (s *SQLite) Get(ctx context.Context, key string, dest interface{}) error {
	var data []byte
	var expiresAt int64
	err := s.db.QueryRowContext(ctx,
		"SELECT value, expires_at FROM RankingCache WHERE key = ?", key).
		Scan(&data, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrMiss
	}
	if err != nil {
		return fmt.Errorf("reading %q: %w", key, err)
	}

	if s.now().Unix() >= expiresAt {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM RankingCache WHERE key = ?", key); err != nil {
			return fmt.Errorf("expiring %q: %w", key, err)
		}
		return ErrMiss
	}

	return json.Unmarshal(data, dest)
}

func (s *SQLite) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("serializing %q: %w", key, err)
	}

	_, err = s.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO RankingCache (key, value, expires_at) VALUES (?, ?, ?)",
		key, data, s.now().Add(ttl).Unix())
	if err != nil {
		return fmt.Errorf("writing %q: %w", key, err)
	}
	return nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}
