// Package state holds the authoritative persisted record of conversational
// continuity: active context, open threads, rolling summary, live chat and
// the identity/affect scalars that ride along with them.
package state

import (
	"time"

	"github.com/sandevgo/bobbin/internal/core"
	"github.com/sandevgo/bobbin/internal/tokens"
)

const (
	MaxActiveContext   = 6
	MaxOpenThreads     = 4
	MaxResolvedThreads = 4
	MaxEntryLength     = 140
)

// Identity describes who the agent presents as. Mutated only explicitly.
type Identity struct {
	SystemID      string `json:"system_id"`
	DisplayName   string `json:"display_name"`
	AgentName     string `json:"agent_name"`
	Version       string `json:"version"`
	Role          string `json:"role"`
	CoreDirective string `json:"core_directive"`
	ToneBaseline  string `json:"tone_baseline"`
	ToneActive    string `json:"tone_active"`
}

func DefaultIdentity(systemID, displayName string) Identity {
	if systemID == "" {
		systemID = "bobbin"
	}
	if displayName == "" {
		displayName = core.BobbinName
	}
	return Identity{
		SystemID:      systemID,
		DisplayName:   displayName,
		AgentName:     displayName,
		Version:       "v1",
		Role:          "conversational companion",
		CoreDirective: "Maintain coherent reasoning, assist the user, and preserve continuity across turns.",
		ToneBaseline:  "curious, grounded, lightly irreverent",
		ToneActive:    "engaged",
	}
}

// Affect carries bounded [0,1] scalar traits. Values outside the range are
// clamped at the deserialization boundary.
type Affect struct {
	Curiosity  float64 `json:"curiosity"`
	Calm       float64 `json:"calm"`
	Confidence float64 `json:"confidence"`
	Tension    float64 `json:"tension"`
	Engagement float64 `json:"engagement"`
}

func DefaultAffect() Affect {
	return Affect{
		Curiosity:  0.75,
		Calm:       0.6,
		Confidence: 0.55,
		Tension:    0.2,
		Engagement: 0.65,
	}
}

func (a Affect) clamped() Affect {
	return Affect{
		Curiosity:  clamp01(a.Curiosity),
		Calm:       clamp01(a.Calm),
		Confidence: clamp01(a.Confidence),
		Tension:    clamp01(a.Tension),
		Engagement: clamp01(a.Engagement),
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

type Integrity struct {
	LastTurnConsistent     bool `json:"last_turn_consistent"`
	ContradictionsDetected bool `json:"contradictions_detected"`
}

func DefaultIntegrity() Integrity {
	return Integrity{LastTurnConsistent: true}
}

// ContextMetrics is the last committed set of bucket measurements, kept for
// observability and overwritten on every commit.
type ContextMetrics struct {
	Pre              tokens.BucketMetrics `json:"pre"`
	Fit              tokens.BucketMetrics `json:"fit"`
	Post             tokens.BucketMetrics `json:"post"`
	RebuildTriggered bool                 `json:"rebuild_triggered"`
	InputTruncated   bool                 `json:"input_truncated"`
}

// State is the whole continuity record for one session. No transcripts beyond
// the live-chat buffer, no chain-of-thought, no long plans.
type State struct {
	Identity            Identity
	Affect              Affect
	Integrity           Integrity
	ActiveContext       []string
	OpenThreads         []string
	ConversationSummary string
	LiveChat            []core.Turn
	LastUpdatedUTC      string
	TurnCounter         int
	ContextMetrics      ContextMetrics
	LastContextRebuild  string
}

func NewState(systemID, displayName string) State {
	return State{
		Identity:  DefaultIdentity(systemID, displayName),
		Affect:    DefaultAffect(),
		Integrity: DefaultIntegrity(),
	}
}

// Clone returns a deep, independent copy. Callers of Snapshot must never
// observe partial writes, so every slice is copied.
func (s State) Clone() State {
	out := s
	out.ActiveContext = append([]string(nil), s.ActiveContext...)
	out.OpenThreads = append([]string(nil), s.OpenThreads...)
	out.LiveChat = append([]core.Turn(nil), s.LiveChat...)
	return out
}

func NowUTC() string {
	return time.Now().UTC().Format(time.RFC3339)
}
