package turn

import (
	"context"
	"strings"
	"testing"

	"github.com/sandevgo/bobbin/internal/contextwin"
	"github.com/sandevgo/bobbin/internal/core"
	"github.com/sandevgo/bobbin/internal/tokens"
	"github.com/stretchr/testify/require"
)

func newRebuildOrchestrator(t *testing.T, fc *fakeChat, budget tokens.Budget) *Orchestrator {
	t.Helper()
	tok, err := tokens.NewTokenizer(tokens.DefaultEncoding)
	require.NoError(t, err)
	return &Orchestrator{
		chat:         fc,
		window:       contextwin.NewManager(tok, budget),
		systemPrompt: "sys",
	}
}

func TestRebuildSummaryTwoPasses(t *testing.T) {
	fc := &fakeChat{textScript: []fakeReply{
		{text: "coarse digest of the chat"},
		{text: "refined continuity summary"},
	}}
	o := newRebuildOrchestrator(t, fc, tokens.Budget{
		ModelWindowTokens:   100000,
		SummaryTargetTokens: 20000,
	})

	liveChat := []core.Turn{core.UserTurn("hi"), core.AssistantTurn("hello")}
	got := o.rebuildSummary(context.Background(), "prior summary", liveChat)
	require.Equal(t, "refined continuity summary", got)

	require.Len(t, fc.textPrompts, 2)
	// pass one sees the prior summary and the live chat
	require.Contains(t, fc.textPrompts[0], "prior summary")
	require.Contains(t, fc.textPrompts[0], "User: hi")
	// pass two refines pass one's output, not the raw transcript
	require.Contains(t, fc.textPrompts[1], "coarse digest of the chat")
	require.NotContains(t, fc.textPrompts[1], "User: hi")
}

func TestRebuildSummaryNeverFailsTheTurn(t *testing.T) {
	// Both passes error: the result degrades to the transcript itself, so the
	// prior summary content survives a fully broken chat client.
	fc := &fakeChat{}
	o := newRebuildOrchestrator(t, fc, tokens.Budget{
		ModelWindowTokens:   100000,
		SummaryTargetTokens: 20000,
	})

	got := o.rebuildSummary(context.Background(), "prior summary survives", []core.Turn{
		core.UserTurn("hi"),
	})
	require.Contains(t, got, "prior summary survives")
}

func TestRebuildSummaryTruncatesToTarget(t *testing.T) {
	long := strings.Repeat("token after token after token. ", 200)
	fc := &fakeChat{textScript: []fakeReply{
		{text: "coarse"},
		{text: long},
	}}
	o := newRebuildOrchestrator(t, fc, tokens.Budget{
		ModelWindowTokens:   100000,
		SummaryTargetTokens: 10, // below the floor: the floor wins
	})

	got := o.rebuildSummary(context.Background(), "", nil)
	tok := o.window.Tokenizer()
	require.LessOrEqual(t, tok.Count(got), summaryPassFloor)
	require.Less(t, len(got), len(long))
}

func TestSummaryPassFallsBackToSource(t *testing.T) {
	fc := &fakeChat{textScript: []fakeReply{
		{err: errScriptExhausted},
	}}
	o := newRebuildOrchestrator(t, fc, tokens.Budget{ModelWindowTokens: 100000})

	got := o.summaryPass(context.Background(), coarseSummaryInstruction, "the source text")
	require.Equal(t, "the source text", got)
}
