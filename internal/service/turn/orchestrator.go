// Package turn sequences one conversational turn: read the continuity
// snapshot, rebuild the rolling summary if the window demands it, fit the
// live chat to the budget, stream the response, update continuity and commit.
package turn

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sandevgo/bobbin/internal/contextwin"
	"github.com/sandevgo/bobbin/internal/core"
	"github.com/sandevgo/bobbin/internal/service/audit"
	"github.com/sandevgo/bobbin/internal/state"
	"github.com/sandevgo/bobbin/internal/tokens"
	"github.com/sandevgo/bobbin/pkg/log"
	"github.com/sandevgo/bobbin/pkg/retry"
)

const (
	responseMaxTokens = 2000
	responseTimeout   = 180 * time.Second
)

type Session struct {
	ID          string
	TurnCounter int
}

// Options carry the orchestrator knobs that are not collaborator handles.
type Options struct {
	SystemPromptPath        string
	RetainTurnsAfterRebuild int
	Temperature             float64
}

type Orchestrator struct {
	store       *state.Store
	window      *contextwin.Manager
	chat        core.ChatClient
	audit       *audit.Logger
	signals     core.SignalProvider       // optional
	transcripts core.TranscriptRepository // optional
	opts        Options
	retrier     *retry.Retrier

	systemPrompt string

	// turnMu enforces one in-flight turn per orchestrator. The commit path
	// is read-modify-write on the whole record; concurrent turns would race.
	turnMu sync.Mutex
}

func NewOrchestrator(
	store *state.Store,
	window *contextwin.Manager,
	chat core.ChatClient,
	auditLog *audit.Logger,
	signals core.SignalProvider,
	transcripts core.TranscriptRepository,
	opts Options,
) *Orchestrator {
	if opts.RetainTurnsAfterRebuild < 1 {
		opts.RetainTurnsAfterRebuild = 1
	}
	if opts.Temperature == 0 {
		opts.Temperature = 0.7
	}
	return &Orchestrator{
		store:        store,
		window:       window,
		chat:         chat,
		audit:        auditLog,
		signals:      signals,
		transcripts:  transcripts,
		opts:         opts,
		retrier: retry.NewRetrier(&retry.Config{
			MaxRetries:    2,
			BackoffFactor: 2,
			InitialDelay:  100 * time.Millisecond,
			MaxDelay:      time.Second,
			Jitter:        25 * time.Millisecond,
		}),
		systemPrompt: loadSystemPrompt(opts.SystemPromptPath),
	}
}

// RunTurn executes one full turn, streaming response fragments to onDelta as
// they arrive. State is committed only after the stream drained cleanly: a
// failed or cancelled stream leaves the continuity record untouched and the
// error is the caller's to surface. Auxiliary model calls (rebuild,
// continuity update) degrade internally and never fail the turn.
func (o *Orchestrator) RunTurn(ctx context.Context, session *Session, userInput string, onDelta core.StreamFunc) (string, error) {
	o.turnMu.Lock()
	defer o.turnMu.Unlock()

	logger := log.FromCtx(ctx)
	session.TurnCounter++

	before := o.store.Snapshot()
	summary := before.ConversationSummary
	liveChat := before.LiveChat
	systemBlock := o.buildSystemBlock(ctx, before, session.ID)
	toolInjections := ""

	preMetrics := o.window.CountBuckets(contextwin.Input{
		SystemBlock:         systemBlock,
		ConversationSummary: summary,
		LiveChat:            liveChat,
		ToolInjections:      toolInjections,
		CurrentUserInput:    userInput,
	})

	rebuilt := false
	if preMetrics.LiveChatBuffer > o.window.Budget().LiveChatTargetTokens || preMetrics.Pressure {
		summary = o.rebuildSummary(ctx, summary, liveChat)
		liveChat = contextwin.KeepLastTurns(liveChat, o.opts.RetainTurnsAfterRebuild)
		rebuilt = true
		logger.Info().
			Int("live_chat_tokens", preMetrics.LiveChatBuffer).
			Bool("pressure", preMetrics.Pressure).
			Msg("context rebuild triggered")
	}

	liveChat, fitMetrics := o.window.FitLiveChatToBudget(contextwin.Input{
		SystemBlock:         systemBlock,
		ConversationSummary: summary,
		LiveChat:            liveChat,
		ToolInjections:      toolInjections,
		CurrentUserInput:    userInput,
	})

	// Even an empty live chat may not fit when system/summary/input alone
	// overflow. Policy: truncate the current user input to the remaining
	// headroom; the system block and summary are session invariants.
	inputTruncated := false
	if fitMetrics.Pressure && len(liveChat) == 0 {
		userInput, fitMetrics, inputTruncated = o.truncateUserInput(systemBlock, summary, toolInjections, userInput)
		if inputTruncated {
			logger.Warn().Int("input_tokens", fitMetrics.CurrentUserInput).Msg("user input truncated to fit window")
		}
	}

	promptUser := contextwin.RenderPrompt(summary, liveChat, userInput, toolInjections)

	output, err := o.chat.ChatTextStream(ctx, []core.Message{
		{Role: core.RoleSystem, Content: systemBlock},
		{Role: core.RoleUser, Content: fmt.Sprintf("%s\n\n%s\n\nRespond to the user.", respondWindowRules, promptUser)},
	}, core.ChatOptions{
		Temperature: o.opts.Temperature,
		MaxTokens:   responseMaxTokens,
		Timeout:     responseTimeout,
	}, onDelta)
	if err != nil {
		// Primary response failure is fatal to the turn; nothing committed.
		return "", fmt.Errorf("response generation: %w", err)
	}
	output = strings.TrimSpace(output)

	liveChatAfter := append(append([]core.Turn{}, liveChat...),
		core.UserTurn(userInput),
		core.AssistantTurn(output),
	)

	postMetrics := o.window.CountBuckets(contextwin.Input{
		SystemBlock:         systemBlock,
		ConversationSummary: summary,
		LiveChat:            liveChatAfter,
		ToolInjections:      toolInjections,
	})

	activeContext, openThreads := o.updateContinuity(ctx, before, userInput, output)

	metrics := state.ContextMetrics{
		Pre:              preMetrics,
		Fit:              fitMetrics,
		Post:             postMetrics,
		RebuildTriggered: rebuilt,
		InputTruncated:   inputTruncated,
	}
	lastRebuild := before.LastContextRebuild
	if rebuilt {
		lastRebuild = state.NowUTC()
	}

	if err := o.store.Apply(state.Commit{
		ActiveContext:       activeContext,
		OpenThreads:         openThreads,
		ConversationSummary: state.StringPtr(summary),
		LiveChat:            liveChatAfter,
		ContextMetrics:      &metrics,
		LastContextRebuild:  state.StringPtr(lastRebuild),
	}); err != nil {
		return "", fmt.Errorf("commit continuity state: %w", err)
	}
	after := o.store.Snapshot()

	if err := o.audit.Append(audit.TurnRecord{
		TsUTC:       state.NowUTC(),
		SessionID:   session.ID,
		TurnNumber:  session.TurnCounter,
		UserInput:   userInput,
		FinalOutput: output,
		StateBefore: before,
		StateAfter:  after,
	}); err != nil {
		logger.Error().Err(err).Msg("audit append failed")
	}

	o.archiveTurns(ctx, session, userInput, output)

	return output, nil
}

// truncateUserInput shrinks the current input bucket to whatever headroom the
// other buckets leave. Returns the possibly-shortened input and fresh metrics;
// residual pressure (oversized system/summary alone) stays reported.
func (o *Orchestrator) truncateUserInput(systemBlock, summary, toolInjections, userInput string) (string, tokens.BucketMetrics, bool) {
	tok := o.window.Tokenizer()

	base := o.window.CountBuckets(contextwin.Input{
		SystemBlock:         systemBlock,
		ConversationSummary: summary,
		ToolInjections:      toolInjections,
	})
	// Headroom for the whole input bucket, minus its fixed block prefix.
	room := o.window.Budget().Headroom(base.UsedWithoutReserve) - tok.Count("Current User Input:\n")
	if room < 0 {
		room = 0
	}

	trimmed := tok.TruncateToTokens(strings.TrimSpace(userInput), room)
	metrics := o.window.CountBuckets(contextwin.Input{
		SystemBlock:         systemBlock,
		ConversationSummary: summary,
		ToolInjections:      toolInjections,
		CurrentUserInput:    trimmed,
	})
	if trimmed == strings.TrimSpace(userInput) {
		return userInput, metrics, false
	}
	return trimmed, metrics, true
}

func (o *Orchestrator) buildSystemBlock(ctx context.Context, st state.State, sessionID string) string {
	var b strings.Builder
	b.WriteString(o.systemPrompt)

	b.WriteString("\n\nIdentity: ")
	b.WriteString(st.Identity.DisplayName)
	if st.Identity.Role != "" {
		b.WriteString(" — ")
		b.WriteString(st.Identity.Role)
	}
	b.WriteString("\nTone: ")
	b.WriteString(st.Identity.ToneActive)

	if o.signals != nil {
		if line := o.signalLine(ctx, sessionID); line != "" {
			b.WriteString("\n")
			b.WriteString(line)
		}
	}
	return b.String()
}

// signalLine renders preference signals from the memory substrate. The
// provider is trusted to be bounded and allow-listed; values are still
// re-clamped here before entering the prompt.
func (o *Orchestrator) signalLine(ctx context.Context, sessionID string) string {
	signals, err := o.signals.PreferenceSignals(ctx, sessionID)
	if err != nil {
		log.FromCtx(ctx).Debug().Err(err).Msg("preference signals unavailable")
		return ""
	}
	if len(signals) == 0 {
		return ""
	}

	keys := make([]string, 0, len(signals))
	for k := range signals {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		v := signals[k]
		if v < 0 {
			v = 0
		}
		if v > 1 {
			v = 1
		}
		parts = append(parts, fmt.Sprintf("%s=%.2f", k, v))
	}
	return "Preference Signals: " + strings.Join(parts, " ")
}

func (o *Orchestrator) archiveTurns(ctx context.Context, session *Session, userInput, output string) {
	if o.transcripts == nil {
		return
	}
	logger := log.FromCtx(ctx)
	for _, t := range []core.Turn{core.UserTurn(userInput), core.AssistantTurn(output)} {
		err := o.retrier.Do(ctx, func() error {
			return o.transcripts.AddTurn(ctx, session.ID, session.TurnCounter, t)
		})
		if err != nil {
			logger.Error().Err(err).Str("role", t.Role).Msg("transcript archive failed")
		}
	}
}

func loadSystemPrompt(path string) string {
	if path != "" {
		if content, err := os.ReadFile(path); err == nil && len(strings.TrimSpace(string(content))) > 0 {
			return strings.TrimSpace(string(content))
		}
	}
	return systemPromptFallback
}
