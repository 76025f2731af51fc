package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/sandevgo/bobbin/internal/core"
	"github.com/sandevgo/bobbin/pkg/log"
)

// Transcripts archives raw turns outside the continuity record. The archive
// is observability data: writes are best-effort from the caller's side.
type Transcripts struct {
	db *sql.DB
}

func NewTranscripts(db *sql.DB) *Transcripts {
	return &Transcripts{db: db}
}

func (t *Transcripts) AddTurn(ctx context.Context, sessionID string, turnNumber int, turn core.Turn) error {
	query := `INSERT INTO turns (session_id, turn_number, role, content) VALUES (?, ?, ?, ?)`
	if _, err := t.db.ExecContext(ctx, query, sessionID, turnNumber, turn.Role, turn.Content); err != nil {
		return fmt.Errorf("failed to insert turn: %w", err)
	}
	return nil
}

func (t *Transcripts) RecentTurns(ctx context.Context, sessionID string, limit int) ([]core.StoredTurn, error) {
	// Fetch the LAST 'limit' turns by ordering DESC
	query := `SELECT id, session_id, turn_number, role, content, created_at
		FROM turns WHERE session_id = ? ORDER BY id DESC LIMIT ?`

	rows, err := t.db.QueryContext(ctx, query, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query turns: %w", err)
	}
	defer rows.Close()

	var turns []core.StoredTurn
	for rows.Next() {
		var st core.StoredTurn
		var content sql.NullString
		if err := rows.Scan(&st.ID, &st.SessionID, &st.TurnNumber, &st.Role, &content, &st.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan turn: %w", err)
		}
		st.Content = content.String
		turns = append(turns, st)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Reverse back to chronological order (oldest -> newest).
	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}

	log.FromCtx(ctx).Debug().Int("count", len(turns)).Msg("loaded archived turns")
	return turns, nil
}
