package turn

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/sandevgo/bobbin/internal/core"
	"github.com/sandevgo/bobbin/internal/state"
	"github.com/sandevgo/bobbin/pkg/log"
)

const continuityAttempts = 2

type continuityUpdate struct {
	ActiveContext   []string `json:"active_context"`
	OpenThreads     []string `json:"open_threads"`
	ResolvedThreads []string `json:"resolved_threads"`
}

// updateContinuity asks the model for a structured continuity update and
// merges it deterministically. The model's output is untrusted free text that
// is expected to contain a JSON object, not be one. Every failure path lands
// on the heuristic fallback; this never errors out of the turn.
func (o *Orchestrator) updateContinuity(ctx context.Context, before state.State, userInput, assistantOutput string) (active, threads []string) {
	logger := log.FromCtx(ctx)

	if strings.TrimSpace(assistantOutput) == "" {
		return copyList(before.ActiveContext), copyList(before.OpenThreads)
	}

	payload := map[string]any{
		"prior_active_context": emptyList(before.ActiveContext),
		"prior_open_threads":   emptyList(before.OpenThreads),
		"user_input":           userInput,
		"assistant_output":     assistantOutput,
	}
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		logger.Error().Err(err).Msg("continuity payload marshal failed")
		return o.fallbackContinuity(before, userInput)
	}

	prompt := fmt.Sprintf("%s\n\nINPUTS:\n%s", continuityUpdatePrompt, payloadJSON)

	for attempt := 0; attempt < continuityAttempts; attempt++ {
		if attempt > 0 {
			prompt = fmt.Sprintf("%s\n\n%s", prompt, continuityCorrection)
		}

		raw, err := o.chat.ChatText(ctx, []core.Message{
			{Role: core.RoleSystem, Content: o.systemPrompt},
			{Role: core.RoleUser, Content: prompt},
		}, core.ChatOptions{Temperature: 0.2, MaxTokens: 500, Timeout: 60 * time.Second})
		if err != nil {
			logger.Warn().Err(err).Msg("continuity update call failed, using fallback")
			return o.fallbackContinuity(before, userInput)
		}

		update, ok := parseContinuityJSON(raw)
		if !ok {
			logger.Debug().Int("attempt", attempt+1).Msg("continuity reply not parseable as JSON object")
			continue
		}

		active = cleanContinuityList(update.ActiveContext, state.MaxActiveContext)
		newThreads := cleanContinuityList(update.OpenThreads, state.MaxOpenThreads)
		resolved := cleanContinuityList(update.ResolvedThreads, state.MaxResolvedThreads)
		threads = mergeOpenThreads(before.OpenThreads, newThreads, resolved, state.MaxOpenThreads)

		// Both lists empty signals total parse/model failure, not a
		// legitimate "nothing changed".
		if len(active) == 0 && len(threads) == 0 {
			return o.fallbackContinuity(before, userInput)
		}
		return active, threads
	}

	return o.fallbackContinuity(before, userInput)
}

var questionSplit = regexp.MustCompile(`(?s)(?:\?)\s+`)

// fallbackContinuity keeps the prior active context and appends up to three
// literal ?-terminated sentences from the user input to the prior threads, so
// open questions are never silently dropped when the model lets us down.
func (o *Orchestrator) fallbackContinuity(before state.State, userInput string) (active, threads []string) {
	active = copyList(before.ActiveContext)
	threads = copyList(before.OpenThreads)

	var questions []string
	for _, chunk := range splitQuestions(userInput) {
		chunk = strings.TrimSpace(chunk)
		if strings.HasSuffix(chunk, "?") {
			questions = append(questions, chunk)
		}
	}
	if len(questions) > 3 {
		questions = questions[:3]
	}
	for _, q := range questions {
		if !containsString(threads, q) {
			threads = append(threads, q)
		}
	}
	return active, threads
}

// splitQuestions splits on whitespace that follows a question mark, keeping
// the question mark with its sentence.
func splitQuestions(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	var out []string
	locs := questionSplit.FindAllStringIndex(text, -1)
	prev := 0
	for _, loc := range locs {
		// keep everything up to and including the "?"
		out = append(out, text[prev:loc[0]+1])
		prev = loc[1]
	}
	if prev < len(text) {
		out = append(out, text[prev:])
	}
	return out
}

// parseContinuityJSON locates the first "{" and last "}" and tries to decode
// the span between them as an object.
func parseContinuityJSON(text string) (continuityUpdate, bool) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 || end <= start {
		return continuityUpdate{}, false
	}

	snippet := text[start : end+1]
	// Reject non-object payloads before field decoding: a bare array or
	// string between stray braces must not pass as an empty update.
	var probe map[string]json.RawMessage
	if err := json.Unmarshal([]byte(snippet), &probe); err != nil {
		return continuityUpdate{}, false
	}

	var update continuityUpdate
	if err := json.Unmarshal([]byte(snippet), &update); err != nil {
		return continuityUpdate{}, false
	}
	return update, true
}

// cleanContinuityList collapses whitespace, drops empties, truncates long
// entries with an ellipsis marker, dedupes by normalized text and caps at
// limit.
func cleanContinuityList(values []string, limit int) []string {
	out := make([]string, 0, limit)
	seen := make(map[string]struct{}, limit)
	for _, v := range values {
		text := strings.Join(strings.Fields(v), " ")
		if text == "" {
			continue
		}
		if r := []rune(text); len(r) > state.MaxEntryLength {
			text = string(r[:state.MaxEntryLength-3]) + "..."
		}
		norm := normalizeEntry(text)
		if _, dup := seen[norm]; dup {
			continue
		}
		seen[norm] = struct{}{}
		out = append(out, text)
		if len(out) >= limit {
			break
		}
	}
	return out
}

// mergeOpenThreads starts from the prior threads, drops resolved and
// duplicate entries, then appends newly reported threads up to the cap.
// Carried-forward entries always precede new ones.
func mergeOpenThreads(prior, reported, resolved []string, limit int) []string {
	if limit < 1 {
		limit = 1
	}
	resolvedNorm := make(map[string]struct{}, len(resolved))
	for _, r := range resolved {
		resolvedNorm[normalizeEntry(r)] = struct{}{}
	}

	kept := make([]string, 0, limit)
	seen := make(map[string]struct{}, limit)

	for _, t := range prior {
		norm := normalizeEntry(t)
		if norm == "" {
			continue
		}
		if _, gone := resolvedNorm[norm]; gone {
			continue
		}
		if _, dup := seen[norm]; dup {
			continue
		}
		kept = append(kept, t)
		seen[norm] = struct{}{}
	}

	for _, t := range reported {
		if len(kept) >= limit {
			break
		}
		norm := normalizeEntry(t)
		if norm == "" {
			continue
		}
		if _, dup := seen[norm]; dup {
			continue
		}
		kept = append(kept, t)
		seen[norm] = struct{}{}
	}

	if len(kept) > limit {
		kept = kept[:limit]
	}
	return kept
}

func normalizeEntry(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}

func containsString(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

func copyList(s []string) []string {
	return append([]string{}, s...)
}

func emptyList(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
