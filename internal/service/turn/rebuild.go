package turn

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sandevgo/bobbin/internal/contextwin"
	"github.com/sandevgo/bobbin/internal/core"
	"github.com/sandevgo/bobbin/pkg/log"
)

const (
	summaryPassFloor   = 256
	summaryPassCeiling = 2000
)

// rebuildSummary compresses the rolling summary plus the full live-chat
// buffer into a fresh summary through two model passes: a coarse neutral
// digest, then a continuity-oriented refinement. Either pass falling over
// degrades to its own input, so the prior summary always survives a fully
// broken chat client. Never returns an error by design.
func (o *Orchestrator) rebuildSummary(ctx context.Context, priorSummary string, liveChat []core.Turn) string {
	transcript := contextwin.RenderPrompt(priorSummary, liveChat, "", "")

	coarse := o.summaryPass(ctx, coarseSummaryInstruction, transcript)
	refined := o.summaryPass(ctx, refineSummaryInstruction, coarse)

	maxSummary := o.window.Budget().SummaryTargetTokens
	if maxSummary < summaryPassFloor {
		maxSummary = summaryPassFloor
	}
	return o.window.Tokenizer().TruncateToTokens(strings.TrimSpace(refined), maxSummary)
}

// summaryPass runs one synchronous compression call. The completion budget is
// whatever headroom the window leaves after the instruction and source text,
// clamped to [256, 2000].
func (o *Orchestrator) summaryPass(ctx context.Context, instruction, sourceText string) string {
	userPayload := fmt.Sprintf("%s\n\nSOURCE:\n%s", instruction, sourceText)

	base := o.window.CountBuckets(contextwin.Input{
		SystemBlock:      o.systemPrompt,
		CurrentUserInput: userPayload,
	})
	available := o.window.Budget().Headroom(base.UsedWithoutReserve)
	maxTokens := available
	if maxTokens < summaryPassFloor {
		maxTokens = summaryPassFloor
	}
	if maxTokens > summaryPassCeiling {
		maxTokens = summaryPassCeiling
	}

	out, err := o.chat.ChatText(ctx, []core.Message{
		{Role: core.RoleSystem, Content: o.systemPrompt},
		{Role: core.RoleUser, Content: userPayload},
	}, core.ChatOptions{Temperature: 0.2, MaxTokens: maxTokens, Timeout: 120 * time.Second})
	if err != nil {
		log.FromCtx(ctx).Warn().Err(err).Msg("summary pass failed, keeping input text")
		return sourceText
	}
	return strings.TrimSpace(out)
}
