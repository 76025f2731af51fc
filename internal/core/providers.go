package core

import (
	"context"
	"time"
)

// ChatOptions carry per-call sampling and resource limits. Timeout is the
// client's contract to enforce; callers treat expiry as a plain call failure.
type ChatOptions struct {
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

// StreamFunc receives generated text fragments in order. Returning an error
// aborts the stream; the call then fails as a whole.
type StreamFunc func(delta string) error

// ChatClient is the chat-completion boundary. ChatText never returns partial
// text: it either yields the full completion or an error. ChatTextStream
// delivers fragments through onDelta and returns the concatenated text only
// when the stream drained cleanly, so a mid-stream failure means the turn
// failed, not that it partially succeeded.
type ChatClient interface {
	ChatText(ctx context.Context, messages []Message, opts ChatOptions) (string, error)
	ChatTextStream(ctx context.Context, messages []Message, opts ChatOptions, onDelta StreamFunc) (string, error)
}

// SignalProvider is the narrow slice of the long-term memory substrate this
// runtime consumes: a small mapping of abstract preference signals. The
// implementation is trusted to keep it bounded, expiring and allow-listed;
// consumers still re-clamp at the boundary.
type SignalProvider interface {
	PreferenceSignals(ctx context.Context, sessionID string) (map[string]float64, error)
}
