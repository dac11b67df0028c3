package llm

// Role represents the role of a message sender in a conversation.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message represents a single message in a conversation.
type Message struct {
	Role    Role
	Content string
}

// DefaultMaxTokens is used when a request leaves MaxTokens unset. Rewrites
// return whole pages, so the budget is generous.
const DefaultMaxTokens = 8192

// CompletionRequest contains the parameters for an LLM completion request.
type CompletionRequest struct {
	Model       string
	Messages    []Message
	MaxTokens   int
	Temperature float64
}

func (r CompletionRequest) maxTokens() int {
	if r.MaxTokens > 0 {
		return r.MaxTokens
	}
	return DefaultMaxTokens
}

// CompletionResponse contains the result of an LLM completion request.
type CompletionResponse struct {
	Content      string
	InputTokens  int
	OutputTokens int
	Model        string
	FinishReason string
}

// Truncated reports whether generation stopped at the token limit. Providers
// name this differently: "length" (OpenAI, Ollama) and "MAX_TOKENS" (Gemini).
func (r *CompletionResponse) Truncated() bool {
	switch r.FinishReason {
	case "length", "MAX_TOKENS":
		return true
	}
	return false
}

// Cost estimates the USD cost of the response from its token counts.
func (r *CompletionResponse) Cost() float64 {
	return EstimateCost(r.Model, r.InputTokens, r.OutputTokens)
}
