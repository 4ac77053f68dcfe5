package domain

// ToolCall is a function invocation requested by the model within one response.
type ToolCall struct {
	ID        string
	Name      string
	Arguments string
}

// ToolResult is what a tool hands back: a JSON-serializable payload for the model
// and any drafts it produced.
type ToolResult struct {
	Payload any
	Drafts  []PostDraft
}
