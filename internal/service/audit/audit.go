// Package audit appends one JSONL record per committed turn. Records are
// never rewritten; the log is the only place auxiliary-path failures become
// visible.
package audit

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/sandevgo/bobbin/internal/state"
)

// TurnRecord is the audit trail of one committed turn, including the full
// continuity snapshot before and after.
type TurnRecord struct {
	TsUTC       string      `json:"ts_utc"`
	SessionID   string      `json:"session_id"`
	TurnNumber  int         `json:"turn_number"`
	UserInput   string      `json:"user_input"`
	FinalOutput string      `json:"final_output"`
	Think       string      `json:"think"`
	Tools       []string    `json:"tools"`
	StateBefore state.State `json:"state_before"`
	StateAfter  state.State `json:"state_after"`
}

type Logger struct {
	mu   sync.Mutex
	path string
}

func NewLogger(path string) (*Logger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create audit directory: %w", err)
	}
	return &Logger{path: path}, nil
}

// Append writes one record as a single line. The file is opened per call with
// O_APPEND so an external rotation never leaves a stale handle.
func (l *Logger) Append(rec TurnRecord) error {
	if rec.Tools == nil {
		rec.Tools = []string{}
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal turn record: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open audit log: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("append audit record: %w", err)
	}
	return nil
}
