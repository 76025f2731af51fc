package core

import (
	"context"
	"time"
)

// TranscriptRepository archives raw turns outside the continuity record.
// Writes are best-effort from the orchestrator's point of view.
type TranscriptRepository interface {
	AddTurn(ctx context.Context, sessionID string, turnNumber int, t Turn) error
	RecentTurns(ctx context.Context, sessionID string, limit int) ([]StoredTurn, error)
}

type StoredTurn struct {
	ID         int64     `json:"id"`
	SessionID  string    `json:"session_id"`
	TurnNumber int       `json:"turn_number"`
	Role       string    `json:"role"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"created_at"`
}

// StoredSignal is one persisted preference signal. Expired rows are never
// surfaced to callers.
type StoredSignal struct {
	Key       string    `json:"key"`
	Value     float64   `json:"value"`
	ExpiresAt time.Time `json:"expires_at"`
}
