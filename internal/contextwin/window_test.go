package contextwin

import (
	"strings"
	"testing"

	"github.com/sandevgo/bobbin/internal/core"
	"github.com/sandevgo/bobbin/internal/tokens"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T, budget tokens.Budget) *Manager {
	t.Helper()
	tok, err := tokens.NewTokenizer(tokens.DefaultEncoding)
	require.NoError(t, err)
	return NewManager(tok, budget)
}

func TestFormatLiveChat(t *testing.T) {
	tests := []struct {
		name     string
		input    []core.Turn
		expected string
	}{
		{
			name:     "empty",
			input:    nil,
			expected: "",
		},
		{
			name: "user and assistant",
			input: []core.Turn{
				core.UserTurn("hi"),
				core.AssistantTurn("hello"),
			},
			expected: "User: hi\nAssistant: hello",
		},
		{
			name: "empty content skipped",
			input: []core.Turn{
				core.UserTurn("hi"),
				core.AssistantTurn("   "),
				core.UserTurn("still there?"),
			},
			expected: "User: hi\nUser: still there?",
		},
		{
			name: "unknown role rendered as user",
			input: []core.Turn{
				{Role: "system", Content: "note"},
			},
			expected: "User: note",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatLiveChat(tt.input); got != tt.expected {
				t.Errorf("FormatLiveChat() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestKeepLastTurns(t *testing.T) {
	msgs := []core.Turn{
		core.UserTurn("u1"), core.AssistantTurn("a1"),
		core.UserTurn("u2"), core.AssistantTurn("a2"),
		core.UserTurn("u3"), core.AssistantTurn("a3"),
	}

	got := KeepLastTurns(msgs, 2)
	require.Len(t, got, 4)
	require.Equal(t, "u2", got[0].Content)
	require.Equal(t, "a3", got[3].Content)

	// shorter than the cap: returned verbatim
	got = KeepLastTurns(msgs, 10)
	require.Equal(t, msgs, got)

	// zero or negative turn counts clamp to one pair
	got = KeepLastTurns(msgs, 0)
	require.Len(t, got, 2)
	require.Equal(t, "u3", got[0].Content)

	// input never aliased
	got = KeepLastTurns(msgs, 10)
	got[0].Content = "mutated"
	require.Equal(t, "u1", msgs[0].Content)
}

func TestCountBuckets(t *testing.T) {
	m := newTestManager(t, tokens.Budget{
		ModelWindowTokens:    100000,
		SummaryTargetTokens:  20000,
		LiveChatTargetTokens: 50000,
		ReservedBufferTokens: 10000,
	})

	metrics := m.CountBuckets(Input{
		SystemBlock:         "You are a helpful assistant.",
		ConversationSummary: "We discussed token budgets.",
		LiveChat: []core.Turn{
			core.UserTurn("hello"),
			core.AssistantTurn("hi there"),
		},
		CurrentUserInput: "what next?",
	})

	require.Greater(t, metrics.SystemBlock, 0)
	require.Greater(t, metrics.ConversationSummary, 0)
	require.Greater(t, metrics.LiveChatBuffer, 0)
	require.Zero(t, metrics.ToolInjections)
	require.Greater(t, metrics.CurrentUserInput, 0)
	require.Equal(t, metrics.UsedWithoutReserve,
		metrics.SystemBlock+metrics.ConversationSummary+metrics.LiveChatBuffer+metrics.ToolInjections+metrics.CurrentUserInput)
	require.Equal(t, metrics.TotalWithReserve, metrics.UsedWithoutReserve+metrics.ReservedBuffer)
	require.False(t, metrics.Pressure)
}

func TestFitLiveChatToBudgetEvictsOldestFirst(t *testing.T) {
	m := newTestManager(t, tokens.Budget{
		ModelWindowTokens:    220,
		ReservedBufferTokens: 20,
	})

	var liveChat []core.Turn
	for i := 0; i < 20; i++ {
		liveChat = append(liveChat,
			core.UserTurn(strings.Repeat("question about budgets ", 3)),
			core.AssistantTurn(strings.Repeat("answer about budgets ", 3)),
		)
	}

	in := Input{
		SystemBlock:      "system",
		LiveChat:         liveChat,
		CurrentUserInput: "short",
	}
	require.True(t, m.CountBuckets(in).Pressure, "test setup must start under pressure")

	trimmed, metrics := m.FitLiveChatToBudget(in)
	require.False(t, metrics.Pressure)
	require.NotEmpty(t, trimmed)
	require.Less(t, len(trimmed), len(liveChat))

	// result is a strict suffix of the input: same order, no edits
	offset := len(liveChat) - len(trimmed)
	for i, turn := range trimmed {
		require.Equal(t, liveChat[offset+i], turn)
	}

	// the original slice is untouched
	require.Len(t, liveChat, 40)
}

func TestFitLiveChatToBudgetExhaustion(t *testing.T) {
	// The window is smaller than system+input alone: eviction empties the
	// buffer and residual pressure is reported, not raised.
	m := newTestManager(t, tokens.Budget{
		ModelWindowTokens:    10,
		ReservedBufferTokens: 5,
	})

	trimmed, metrics := m.FitLiveChatToBudget(Input{
		SystemBlock:      strings.Repeat("long system block ", 10),
		LiveChat:         []core.Turn{core.UserTurn("hi"), core.AssistantTurn("hello")},
		CurrentUserInput: "current question",
	})
	require.Empty(t, trimmed)
	require.True(t, metrics.Pressure)
}

func TestFitLiveChatToBudgetNoPressureNoEviction(t *testing.T) {
	m := newTestManager(t, tokens.Budget{ModelWindowTokens: 100000})

	liveChat := []core.Turn{core.UserTurn("hi"), core.AssistantTurn("hello")}
	trimmed, metrics := m.FitLiveChatToBudget(Input{LiveChat: liveChat})
	require.Equal(t, liveChat, trimmed)
	require.False(t, metrics.Pressure)
}

func TestRenderPrompt(t *testing.T) {
	got := RenderPrompt("the summary", []core.Turn{core.UserTurn("hi")}, "now what?", "")
	require.Contains(t, got, "Conversation Summary (non-authoritative):\nthe summary")
	require.Contains(t, got, "Live Chat (recent turns):\nUser: hi")
	require.Contains(t, got, "Current User Input:\nnow what?")
	require.NotContains(t, got, "(none)")

	got = RenderPrompt("", nil, "hello", "")
	require.Contains(t, got, "Conversation Summary (non-authoritative):\n(none)")
	require.Contains(t, got, "Live Chat (recent turns):\n(none)")

	got = RenderPrompt("", nil, "q", "Tool Results:\n42")
	require.Contains(t, got, "Tool Results:\n42")
}
