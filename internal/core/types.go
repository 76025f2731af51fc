package core

const (
	BobbinName      = "Bobbin"
	BobbinUserAgent = "Bobbin-Agent/0.1"
	BobbinVersion   = "0.1.0"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single role/content pair on the chat-completion wire.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Turn is one entry of the live-chat buffer. Identical shape to Message but
// kept as its own type: live chat is persisted state, Message is wire-only.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func UserTurn(content string) Turn {
	return Turn{Role: RoleUser, Content: content}
}

func AssistantTurn(content string) Turn {
	return Turn{Role: RoleAssistant, Content: content}
}
