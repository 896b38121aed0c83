package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	_ "modernc.org/sqlite"
)

// SQLiteStore keeps the entries in a local_storage key/value table, so a
// session survives restarts of the client.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

var _ Store = (*SQLiteStore)(nil)

// OpenSQLite opens (creating if needed) the store at path.
func OpenSQLite(ctx context.Context, path string, logger *slog.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("session: opening %s: %w", path, err)
	}
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	_, err = db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS local_storage (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("session: creating local_storage: %w", err)
	}
	return &SQLiteStore{db: db, logger: logger}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Read(ctx context.Context) (*Session, error) {
	user, hasUser, err := s.get(ctx, KeyUser)
	if err != nil {
		return nil, err
	}
	token, hasToken, err := s.get(ctx, KeyToken)
	if err != nil {
		return nil, err
	}
	return decode(s.logger, user, hasUser, token, hasToken), nil
}

// Save writes both entries in one transaction.
func (s *SQLiteStore) Save(ctx context.Context, sess Session) error {
	user, token, err := encode(sess)
	if err != nil {
		return err
	}
	return s.inTx(ctx, func(tx *sql.Tx) error {
		for _, kv := range [][2]string{{KeyUser, user}, {KeyToken, token}} {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO local_storage (key, value) VALUES (?, ?)
				ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
				kv[0], kv[1],
			)
			if err != nil {
				return fmt.Errorf("session: writing %s: %w", kv[0], err)
			}
		}
		return nil
	})
}

func (s *SQLiteStore) Clear(ctx context.Context) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `DELETE FROM local_storage WHERE key IN (?, ?)`, KeyUser, KeyToken)
		if err != nil {
			return fmt.Errorf("session: clearing: %w", err)
		}
		return nil
	})
}

// SetRaw writes one entry verbatim. Tests use it to plant malformed data.
func (s *SQLiteStore) SetRaw(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO local_storage (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	return err
}

func (s *SQLiteStore) get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM local_storage WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("session: reading %s: %w", key, err)
	}
	return value, true, nil
}

func (s *SQLiteStore) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("session: beginning transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("session: committing: %w", err)
	}
	return nil
}
