package state

import (
	"encoding/json"
	"testing"

	"github.com/sandevgo/bobbin/internal/core"
	"github.com/stretchr/testify/require"
)

func TestAffectClamped(t *testing.T) {
	a := Affect{
		Curiosity:  1.5,
		Calm:       -0.3,
		Confidence: 0.5,
		Tension:    2,
		Engagement: 0,
	}.clamped()

	require.Equal(t, 1.0, a.Curiosity)
	require.Equal(t, 0.0, a.Calm)
	require.Equal(t, 0.5, a.Confidence)
	require.Equal(t, 1.0, a.Tension)
	require.Equal(t, 0.0, a.Engagement)
}

func TestNewStateDefaults(t *testing.T) {
	s := NewState("", "")
	require.Equal(t, "bobbin", s.Identity.SystemID)
	require.Equal(t, core.BobbinName, s.Identity.DisplayName)
	require.True(t, s.Integrity.LastTurnConsistent)
	require.Zero(t, s.TurnCounter)

	s = NewState("sess-1", "Ada")
	require.Equal(t, "sess-1", s.Identity.SystemID)
	require.Equal(t, "Ada", s.Identity.DisplayName)
	require.Equal(t, "Ada", s.Identity.AgentName)
}

func TestCloneIsDeep(t *testing.T) {
	s := NewState("id", "name")
	s.ActiveContext = []string{"topic"}
	s.OpenThreads = []string{"thread"}
	s.LiveChat = []core.Turn{core.UserTurn("hi")}

	c := s.Clone()
	c.ActiveContext[0] = "mutated"
	c.OpenThreads[0] = "mutated"
	c.LiveChat[0].Content = "mutated"

	require.Equal(t, "topic", s.ActiveContext[0])
	require.Equal(t, "thread", s.OpenThreads[0])
	require.Equal(t, "hi", s.LiveChat[0].Content)
}

func TestStateJSONRoundTrip(t *testing.T) {
	s := NewState("sess-7", "Ada")
	s.ActiveContext = []string{"go modules", "token budgets"}
	s.OpenThreads = []string{"what about streaming?"}
	s.ConversationSummary = "Discussed context windows."
	s.LiveChat = []core.Turn{core.UserTurn("hi"), core.AssistantTurn("hello")}
	s.TurnCounter = 12
	s.LastUpdatedUTC = "2026-01-02T03:04:05Z"
	s.LastContextRebuild = "2026-01-01T00:00:00Z"
	s.ContextMetrics.RebuildTriggered = true

	data, err := json.Marshal(s)
	require.NoError(t, err)

	// On-disk contract: top-level sections named exactly this way.
	var shape map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &shape))
	for _, key := range []string{"identity", "affect_state", "continuity", "meta"} {
		require.Contains(t, shape, key)
	}

	var back State
	require.NoError(t, json.Unmarshal(data, &back))
	require.Equal(t, s.Identity, back.Identity)
	require.Equal(t, s.Affect, back.Affect)
	require.Equal(t, s.ActiveContext, back.ActiveContext)
	require.Equal(t, s.OpenThreads, back.OpenThreads)
	require.Equal(t, s.ConversationSummary, back.ConversationSummary)
	require.Equal(t, s.LiveChat, back.LiveChat)
	require.Equal(t, s.TurnCounter, back.TurnCounter)
	require.Equal(t, s.LastUpdatedUTC, back.LastUpdatedUTC)
	require.Equal(t, s.LastContextRebuild, back.LastContextRebuild)
	require.True(t, back.ContextMetrics.RebuildTriggered)
}

func TestUnmarshalStateMissingSectionsGetDefaults(t *testing.T) {
	st, err := unmarshalState([]byte(`{}`), "sess-x", "Ada")
	require.NoError(t, err)
	require.Equal(t, "sess-x", st.Identity.SystemID)
	require.Equal(t, "Ada", st.Identity.DisplayName)
	require.Equal(t, DefaultAffect(), st.Affect)
	require.True(t, st.Integrity.LastTurnConsistent)
}

func TestUnmarshalStateClampsAffect(t *testing.T) {
	raw := `{"affect_state":{"curiosity":9,"calm":-2,"confidence":0.4,"tension":0.1,"engagement":0.9}}`
	st, err := unmarshalState([]byte(raw), "", "")
	require.NoError(t, err)
	require.Equal(t, 1.0, st.Affect.Curiosity)
	require.Equal(t, 0.0, st.Affect.Calm)
	require.Equal(t, 0.4, st.Affect.Confidence)
}

func TestUnmarshalStatePartialIdentityBackfilled(t *testing.T) {
	raw := `{"identity":{"agent_name":"Custom"}}`
	st, err := unmarshalState([]byte(raw), "sess-1", "Default")
	require.NoError(t, err)
	require.Equal(t, "Custom", st.Identity.AgentName)
	require.Equal(t, "Custom", st.Identity.DisplayName)
	require.Equal(t, "sess-1", st.Identity.SystemID)
	require.NotEmpty(t, st.Identity.ToneBaseline)
}
