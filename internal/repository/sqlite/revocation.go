package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/vibecoders/vibecoders/internal/repository"
)

// RevocationDB stores logged-out token IDs in the revoked_tokens table.
// expires_at is kept as unix seconds so purging is a plain integer comparison.
type RevocationDB struct {
	conn *sql.DB
}

var _ repository.RevocationStore = (*RevocationDB)(nil)

// Revocations returns the RevocationStore backed by db.
func (db *DB) Revocations() *RevocationDB {
	return &RevocationDB{conn: db.conn}
}

// Revoke records tokenID. Revoking twice is not an error.
func (r *RevocationDB) Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error {
	_, err := r.conn.ExecContext(ctx,
		`INSERT OR REPLACE INTO revoked_tokens (token_id, expires_at) VALUES (?, ?)`,
		tokenID, expiresAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("sqlite: revoking token %s: %w", tokenID, err)
	}
	return nil
}

func (r *RevocationDB) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	var count int
	err := r.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM revoked_tokens WHERE token_id = ?`, tokenID,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("sqlite: checking token %s: %w", tokenID, err)
	}
	return count > 0, nil
}

// PurgeExpired deletes revocations whose token would have expired anyway.
func (r *RevocationDB) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.conn.ExecContext(ctx,
		`DELETE FROM revoked_tokens WHERE expires_at <= ?`, now.Unix(),
	)
	if err != nil {
		return 0, fmt.Errorf("sqlite: purging revoked tokens: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	return n, nil
}
