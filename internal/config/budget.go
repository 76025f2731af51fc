package config

import (
	"context"

	"github.com/caarlos0/env/v11"
	"github.com/sandevgo/bobbin/internal/tokens"
	"github.com/sandevgo/bobbin/pkg/log"
)

// BudgetConfig holds the four token quotas of the context window plus the
// tokenizer encoding. The targets are advisory; fitting is done by live
// measurement against the model window.
type BudgetConfig struct {
	ModelWindowTokens    int    `env:"MODEL_WINDOW_TOKENS" envDefault:"100000"`
	SummaryTargetTokens  int    `env:"SUMMARY_TARGET_TOKENS" envDefault:"20000"`
	LiveChatTargetTokens int    `env:"LIVE_CHAT_TARGET_TOKENS" envDefault:"50000"`
	ReservedBufferTokens int    `env:"RESERVED_BUFFER_TOKENS" envDefault:"10000"`
	TokenizerEncoding    string `env:"TOKENIZER_ENCODING" envDefault:"cl100k_base"`
}

func NewBudgetConfig(ctx context.Context) *BudgetConfig {
	c := &BudgetConfig{}
	if err := env.Parse(c); err != nil {
		log.FromCtx(ctx).Fatal().Err(err).Msg("failed to parse Budget config")
	}
	return c
}

func (c BudgetConfig) Budget() tokens.Budget {
	return tokens.Budget{
		ModelWindowTokens:    c.ModelWindowTokens,
		SummaryTargetTokens:  c.SummaryTargetTokens,
		LiveChatTargetTokens: c.LiveChatTargetTokens,
		ReservedBufferTokens: c.ReservedBufferTokens,
	}
}
