package state

import (
	"encoding/json"

	"github.com/sandevgo/bobbin/internal/core"
)

// On-disk layout of the continuity record. The nesting is part of the
// external contract: top-level identity, affect_state, continuity and meta,
// readable by a fresh process with defaults applied for anything missing.

type fileRecord struct {
	Identity    *Identity       `json:"identity"`
	AffectState *Affect         `json:"affect_state"`
	Continuity  *fileContinuity `json:"continuity"`
	Meta        *fileMeta       `json:"meta"`
}

type fileContinuity struct {
	ActiveContext       []string    `json:"active_context"`
	OpenThreads         []string    `json:"open_threads"`
	ConversationSummary string      `json:"conversation_summary"`
	LiveChat            []core.Turn `json:"live_chat"`
	Integrity           *Integrity  `json:"integrity"`
}

type fileMeta struct {
	LastUpdatedUTC     string          `json:"last_updated_utc"`
	TurnCounter        int             `json:"turn_counter"`
	ContextMetrics     *ContextMetrics `json:"context_metrics"`
	LastContextRebuild string          `json:"last_context_rebuild"`
}

// MarshalJSON emits the on-disk record shape, so audit records and the state
// file serialize identically.
func (s State) MarshalJSON() ([]byte, error) {
	return marshalState(s)
}

func (s *State) UnmarshalJSON(data []byte) error {
	st, err := unmarshalState(data, "", "")
	if err != nil {
		return err
	}
	*s = st
	return nil
}

func marshalState(s State) ([]byte, error) {
	rec := fileRecord{
		Identity:    &s.Identity,
		AffectState: &s.Affect,
		Continuity: &fileContinuity{
			ActiveContext:       emptyIfNil(s.ActiveContext),
			OpenThreads:         emptyIfNil(s.OpenThreads),
			ConversationSummary: s.ConversationSummary,
			LiveChat:            emptyTurnsIfNil(s.LiveChat),
			Integrity:           &s.Integrity,
		},
		Meta: &fileMeta{
			LastUpdatedUTC:     s.LastUpdatedUTC,
			TurnCounter:        s.TurnCounter,
			ContextMetrics:     &s.ContextMetrics,
			LastContextRebuild: s.LastContextRebuild,
		},
	}
	return json.MarshalIndent(rec, "", "  ")
}

func unmarshalState(data []byte, systemID, displayName string) (State, error) {
	var rec fileRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return State{}, err
	}

	s := NewState(systemID, displayName)
	if rec.Identity != nil {
		s.Identity = applyIdentityDefaults(*rec.Identity, s.Identity)
	}
	if rec.AffectState != nil {
		s.Affect = rec.AffectState.clamped()
	}
	if c := rec.Continuity; c != nil {
		s.ActiveContext = append([]string(nil), c.ActiveContext...)
		s.OpenThreads = append([]string(nil), c.OpenThreads...)
		s.ConversationSummary = c.ConversationSummary
		s.LiveChat = append([]core.Turn(nil), c.LiveChat...)
		if c.Integrity != nil {
			s.Integrity = *c.Integrity
		}
	}
	if m := rec.Meta; m != nil {
		s.LastUpdatedUTC = m.LastUpdatedUTC
		s.TurnCounter = m.TurnCounter
		if m.ContextMetrics != nil {
			s.ContextMetrics = *m.ContextMetrics
		}
		s.LastContextRebuild = m.LastContextRebuild
	}
	return s, nil
}

func applyIdentityDefaults(in, def Identity) Identity {
	out := in
	if out.SystemID == "" {
		out.SystemID = def.SystemID
	}
	if out.DisplayName == "" {
		out.DisplayName = firstNonEmpty(out.AgentName, def.DisplayName)
	}
	if out.AgentName == "" {
		out.AgentName = out.DisplayName
	}
	if out.Version == "" {
		out.Version = def.Version
	}
	if out.Role == "" {
		out.Role = def.Role
	}
	if out.CoreDirective == "" {
		out.CoreDirective = def.CoreDirective
	}
	if out.ToneBaseline == "" {
		out.ToneBaseline = def.ToneBaseline
	}
	if out.ToneActive == "" {
		out.ToneActive = def.ToneActive
	}
	return out
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func emptyIfNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func emptyTurnsIfNil(s []core.Turn) []core.Turn {
	if s == nil {
		return []core.Turn{}
	}
	return s
}
