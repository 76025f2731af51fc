package tokens

// Budget is the immutable token-quota configuration for one model window.
// The three targets are advisory: actual fitting is decided by live
// measurement against ModelWindowTokens, not by the targets summing up.
type Budget struct {
	ModelWindowTokens    int
	SummaryTargetTokens  int
	LiveChatTargetTokens int
	ReservedBufferTokens int
}

// BucketMetrics is the measured occupancy of one candidate window state.
type BucketMetrics struct {
	SystemBlock         int  `json:"system_block"`
	ConversationSummary int  `json:"conversation_summary"`
	LiveChatBuffer      int  `json:"live_chat_buffer"`
	ToolInjections      int  `json:"tool_injections"`
	CurrentUserInput    int  `json:"current_user_input"`
	ReservedBuffer      int  `json:"reserved_buffer"`
	UsedWithoutReserve  int  `json:"used_without_reserve"`
	TotalWithReserve    int  `json:"total_with_reserve"`
	ModelWindow         int  `json:"model_window"`
	Pressure            bool `json:"pressure"`
}

// Evaluate combines precomputed per-bucket counts into a pressure signal.
// Pure arithmetic: it runs once per eviction candidate and never retokenizes.
func (b Budget) Evaluate(system, summary, liveChat, tools, input int) BucketMetrics {
	reserved := b.ReservedBufferTokens
	if reserved < 0 {
		reserved = 0
	}
	used := system + summary + liveChat + tools + input
	total := used + reserved
	return BucketMetrics{
		SystemBlock:         system,
		ConversationSummary: summary,
		LiveChatBuffer:      liveChat,
		ToolInjections:      tools,
		CurrentUserInput:    input,
		ReservedBuffer:      reserved,
		UsedWithoutReserve:  used,
		TotalWithReserve:    total,
		ModelWindow:         b.ModelWindowTokens,
		Pressure:            total > b.ModelWindowTokens,
	}
}

// Headroom is the completion budget left once used tokens and the reserved
// buffer are accounted for. Never negative.
func (b Budget) Headroom(usedWithoutReserve int) int {
	h := b.ModelWindowTokens - usedWithoutReserve - b.ReservedBufferTokens
	if h < 0 {
		return 0
	}
	return h
}
