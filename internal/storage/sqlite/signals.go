package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/sandevgo/bobbin/internal/core"
)

// Signals persists preference signals with an expiry. Expired rows stay in
// the table until overwritten; they just never match the read query.
type Signals struct {
	db *sql.DB
}

func NewSignals(db *sql.DB) *Signals {
	return &Signals{db: db}
}

func (s *Signals) ActiveSignals(ctx context.Context, sessionID string, now time.Time, limit int) ([]core.StoredSignal, error) {
	query := `SELECT key, value, expires_at FROM signals
		WHERE session_id = ? AND expires_at > ? ORDER BY created_at DESC LIMIT ?`

	rows, err := s.db.QueryContext(ctx, query, sessionID, now, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query signals: %w", err)
	}
	defer rows.Close()

	var out []core.StoredSignal
	for rows.Next() {
		var sig core.StoredSignal
		if err := rows.Scan(&sig.Key, &sig.Value, &sig.ExpiresAt); err != nil {
			return nil, fmt.Errorf("failed to scan signal: %w", err)
		}
		out = append(out, sig)
	}
	return out, rows.Err()
}

func (s *Signals) UpsertSignal(ctx context.Context, sessionID string, sig core.StoredSignal) error {
	query := `INSERT INTO signals (session_id, key, value, expires_at) VALUES (?, ?, ?, ?)
		ON CONFLICT (session_id, key) DO UPDATE SET value = excluded.value, expires_at = excluded.expires_at`
	if _, err := s.db.ExecContext(ctx, query, sessionID, sig.Key, sig.Value, sig.ExpiresAt); err != nil {
		return fmt.Errorf("failed to upsert signal: %w", err)
	}
	return nil
}
