package core

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single chat-completion turn sent to a ChatModel.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatOptions tune a single completion call. Zero values leave provider defaults.
type ChatOptions struct {
	Temperature *float32
	MaxTokens   int
	// JSON asks the provider for a JSON object response where supported.
	JSON bool
}

func Temperature(t float32) *float32 {
	return &t
}
