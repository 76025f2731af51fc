package state

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/sandevgo/bobbin/internal/core"
)

// Store owns the continuity record for one session. One writer at a time: the
// mutex serializes Snapshot and Commit so a turn in flight can never observe
// or produce a half-applied record.
type Store struct {
	mu          sync.Mutex
	path        string
	systemID    string
	displayName string
	state       State
}

// NewStore loads the record at path, or initializes defaults when the file is
// missing or unreadable. A corrupt record loses history by design: continuity
// is an aid, not a source of truth, so reinit beats refusing to start.
func NewStore(path, systemID, displayName string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create state directory: %w", err)
	}

	s := &Store{path: path, systemID: systemID, displayName: displayName}
	if err := s.loadOrInit(); err != nil {
		return nil, err
	}
	return s, nil
}

// Snapshot returns a deep, independent copy of the current record.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Commit describes the fields a commit replaces. Nil fields are untouched.
type Commit struct {
	ActiveContext       []string
	OpenThreads         []string
	ConversationSummary *string
	LiveChat            []core.Turn
	ContextMetrics      *ContextMetrics
	LastContextRebuild  *string
	Affect              *Affect
	Integrity           *Integrity
	ToneActive          *string
}

// Apply replaces the supplied fields, increments the turn counter exactly
// once, stamps the update time and persists the whole record before
// returning. The write is atomic: temp file then rename.
func (s *Store) Apply(c Commit) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c.ActiveContext != nil {
		s.state.ActiveContext = append([]string(nil), c.ActiveContext...)
	}
	if c.OpenThreads != nil {
		s.state.OpenThreads = append([]string(nil), c.OpenThreads...)
	}
	if c.ConversationSummary != nil {
		s.state.ConversationSummary = *c.ConversationSummary
	}
	if c.LiveChat != nil {
		s.state.LiveChat = append([]core.Turn(nil), c.LiveChat...)
	}
	if c.ContextMetrics != nil {
		s.state.ContextMetrics = *c.ContextMetrics
	}
	if c.LastContextRebuild != nil {
		s.state.LastContextRebuild = *c.LastContextRebuild
	}
	if c.Affect != nil {
		s.state.Affect = c.Affect.clamped()
	}
	if c.Integrity != nil {
		s.state.Integrity = *c.Integrity
	}
	if c.ToneActive != nil {
		s.state.Identity.ToneActive = *c.ToneActive
	}

	s.state.TurnCounter++
	s.state.LastUpdatedUTC = NowUTC()
	return s.write()
}

func (s *Store) loadOrInit() error {
	data, err := os.ReadFile(s.path)
	if err == nil {
		if st, perr := unmarshalState(data, s.systemID, s.displayName); perr == nil {
			s.state = st
			return nil
		}
		// corrupt record: fall through to reinit
	}

	s.state = NewState(s.systemID, s.displayName)
	s.state.LastUpdatedUTC = NowUTC()
	return s.write()
}

func (s *Store) write() error {
	data, err := marshalState(s.state)
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write state temp file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace state file: %w", err)
	}
	return nil
}

func StringPtr(v string) *string { return &v }
