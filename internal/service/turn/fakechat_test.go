package turn

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/sandevgo/bobbin/internal/core"
)

var errScriptExhausted = errors.New("no scripted reply left")

type fakeReply struct {
	text string
	err  error
}

type fakeStream struct {
	deltas []string
	err    error // returned after the deltas were delivered
}

// fakeChat plays back scripted replies in order. An exhausted script fails
// every further call, which doubles as an always-failing client when both
// scripts start empty.
type fakeChat struct {
	mu           sync.Mutex
	textScript   []fakeReply
	streamScript []fakeStream

	textPrompts []string // user-message content of each ChatText call
	streamCalls int
}

func (f *fakeChat) ChatText(_ context.Context, messages []core.Message, _ core.ChatOptions) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, m := range messages {
		if m.Role == core.RoleUser {
			f.textPrompts = append(f.textPrompts, m.Content)
		}
	}

	if len(f.textScript) == 0 {
		return "", errScriptExhausted
	}
	reply := f.textScript[0]
	f.textScript = f.textScript[1:]
	return reply.text, reply.err
}

func (f *fakeChat) ChatTextStream(_ context.Context, _ []core.Message, _ core.ChatOptions, onDelta core.StreamFunc) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.streamCalls++

	if len(f.streamScript) == 0 {
		return "", errScriptExhausted
	}
	stream := f.streamScript[0]
	f.streamScript = f.streamScript[1:]

	for _, delta := range stream.deltas {
		if onDelta != nil {
			if err := onDelta(delta); err != nil {
				return "", err
			}
		}
	}
	if stream.err != nil {
		return "", stream.err
	}
	return strings.Join(stream.deltas, ""), nil
}
