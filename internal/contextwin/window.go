// Package contextwin decides what subset of conversational state fits into
// the model window on each turn. It measures per-bucket token counts and
// evicts the oldest live-chat turns until the window fits.
package contextwin

import (
	"strings"

	"github.com/sandevgo/bobbin/internal/core"
	"github.com/sandevgo/bobbin/internal/tokens"
)

// Input is one candidate window state: the five text buckets that compete
// for the model window.
type Input struct {
	SystemBlock         string
	ConversationSummary string
	LiveChat            []core.Turn
	ToolInjections      string
	CurrentUserInput    string
}

type Manager struct {
	tok    *tokens.Tokenizer
	budget tokens.Budget
}

func NewManager(tok *tokens.Tokenizer, budget tokens.Budget) *Manager {
	return &Manager{tok: tok, budget: budget}
}

func (m *Manager) Budget() tokens.Budget {
	return m.budget
}

func (m *Manager) Tokenizer() *tokens.Tokenizer {
	return m.tok
}

// CountBuckets tokenizes each bucket independently and derives the pressure
// signal. The summary and user-input buckets are measured with the same block
// prefixes the rendered prompt uses, so counts match what the model sees.
func (m *Manager) CountBuckets(in Input) tokens.BucketMetrics {
	summaryBlock := strings.TrimSpace("Conversation Summary (non-authoritative):\n" + strings.TrimSpace(in.ConversationSummary))
	userBlock := "Current User Input:\n" + strings.TrimSpace(in.CurrentUserInput)

	return m.budget.Evaluate(
		m.tok.Count(in.SystemBlock),
		m.tok.Count(summaryBlock),
		m.tok.Count(FormatLiveChat(in.LiveChat)),
		m.tok.Count(in.ToolInjections),
		m.tok.Count(userBlock),
	)
}

// FitLiveChatToBudget evicts whole turns, oldest first, until pressure clears
// or the buffer is empty. Each step recounts from scratch: formatting skips
// empty-content turns, so incremental accounting would drift. Residual
// pressure after exhausting the buffer is reported in the metrics, never
// raised; handling it is the caller's policy decision.
func (m *Manager) FitLiveChatToBudget(in Input) ([]core.Turn, tokens.BucketMetrics) {
	msgs := make([]core.Turn, len(in.LiveChat))
	copy(msgs, in.LiveChat)

	in.LiveChat = msgs
	metrics := m.CountBuckets(in)
	for len(msgs) > 0 && metrics.Pressure {
		msgs = msgs[1:]
		in.LiveChat = msgs
		metrics = m.CountBuckets(in)
	}
	return msgs, metrics
}

// KeepLastTurns returns at most the last 2n entries (n user+assistant pairs)
// verbatim. Used to seed the live-chat buffer after a rebuild, not as a
// budgeting mechanism.
func KeepLastTurns(messages []core.Turn, turns int) []core.Turn {
	if turns < 1 {
		turns = 1
	}
	max := turns * 2
	out := make([]core.Turn, 0, max)
	if len(messages) <= max {
		return append(out, messages...)
	}
	return append(out, messages[len(messages)-max:]...)
}

// FormatLiveChat renders the buffer as "User:"/"Assistant:" lines, skipping
// turns with empty content.
func FormatLiveChat(messages []core.Turn) string {
	var b strings.Builder
	for _, m := range messages {
		content := strings.TrimSpace(m.Content)
		if content == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		if strings.ToLower(strings.TrimSpace(m.Role)) == core.RoleAssistant {
			b.WriteString("Assistant: ")
		} else {
			b.WriteString("User: ")
		}
		b.WriteString(content)
	}
	return b.String()
}

// RenderPrompt lays out the chat-first user prompt: summary, live chat,
// optional tool injections, then the current user input.
func RenderPrompt(conversationSummary string, liveChat []core.Turn, currentUserInput, toolInjections string) string {
	blocks := []string{
		"Conversation Summary (non-authoritative):",
		orNone(conversationSummary),
		"",
		"Live Chat (recent turns):",
		orNone(FormatLiveChat(liveChat)),
	}
	if t := strings.TrimSpace(toolInjections); t != "" {
		blocks = append(blocks, "", t)
	}
	blocks = append(blocks, "", "Current User Input:", strings.TrimSpace(currentUserInput))
	return strings.TrimSpace(strings.Join(blocks, "\n"))
}

func orNone(s string) string {
	if s = strings.TrimSpace(s); s == "" {
		return "(none)"
	}
	return s
}
