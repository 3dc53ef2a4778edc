package llm

// Message is one turn of a chat conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the wire shape of a chat-completion call.
type ChatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature float64   `json:"temperature,omitempty"`
}

// ChatResponse is the wire shape of a chat-completion answer.
type ChatResponse struct {
	ID      string `json:"id"`
	Choices []struct {
		Message      Message `json:"message"`
		FinishReason string  `json:"finish_reason"`
	} `json:"choices"`
	Error *APIErrorBody `json:"error,omitempty"`
}

// APIErrorBody is the provider's embedded error object.
type APIErrorBody struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Type    string `json:"type"`
}

func (e *APIErrorBody) Error() string {
	return e.Message
}

// CompletionRequest is what callers hand the client for one translation unit.
type CompletionRequest struct {
	Model        string
	APIKey       string
	SystemPrompt string
	UserMessage  string
	MaxTokens    int
}
