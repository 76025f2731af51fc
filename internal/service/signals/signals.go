// Package signals exposes the one slice of the long-term memory substrate
// this runtime consumes: a small mapping of abstract preference signals.
package signals

import (
	"context"
	"time"

	"github.com/sandevgo/bobbin/internal/core"
)

const maxSignals = 8

// allowedKeys is the closed set of signal names the runtime will surface.
// Anything else coming out of storage is ignored.
var allowedKeys = map[string]struct{}{
	"verbosity":     {},
	"formality":     {},
	"humor":         {},
	"detail":        {},
	"directness":    {},
	"code_examples": {},
	"follow_ups":    {},
	"small_talk":    {},
}

// Repository returns unexpired signal rows for a session, newest first.
type Repository interface {
	ActiveSignals(ctx context.Context, sessionID string, now time.Time, limit int) ([]core.StoredSignal, error)
}

type Provider struct {
	repo Repository
}

func NewProvider(repo Repository) *Provider {
	return &Provider{repo: repo}
}

// PreferenceSignals returns at most maxSignals allow-listed, [0,1]-clamped
// entries. Expired rows never surface; unknown keys are dropped.
func (p *Provider) PreferenceSignals(ctx context.Context, sessionID string) (map[string]float64, error) {
	rows, err := p.repo.ActiveSignals(ctx, sessionID, time.Now().UTC(), maxSignals*2)
	if err != nil {
		return nil, err
	}

	out := make(map[string]float64, maxSignals)
	for _, row := range rows {
		if len(out) >= maxSignals {
			break
		}
		if _, ok := allowedKeys[row.Key]; !ok {
			continue
		}
		if _, dup := out[row.Key]; dup {
			continue
		}
		v := row.Value
		if v < 0 {
			v = 0
		}
		if v > 1 {
			v = 1
		}
		out[row.Key] = v
	}
	return out, nil
}
