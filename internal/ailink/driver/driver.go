package driver

import (
	"context"

	"github.com/stocklens/stocklens/internal/ailink/content"
)

// Driver defines the interface for AI generation providers.
type Driver interface {
	// Complete sends a generation request and returns the response.
	Complete(ctx context.Context, req *Request) (*Response, error)
	// Name returns the driver identifier (e.g., "gemini").
	Name() string
	// Capabilities returns what this driver supports.
	Capabilities() Capabilities
}

// Capabilities describes driver features.
type Capabilities struct {
	SupportsTools     bool
	SupportsImages    bool
	SupportsGrounding bool
	SupportsThinking  bool
	SupportsStreaming bool
	SupportedModels   []string
}

// ToolGoogleSearch enables provider-side web search grounding.
const ToolGoogleSearch = "google_search"

// Tool represents a server-side tool.
type Tool struct {
	Type   string         `json:"type"`
	Config map[string]any `json:"config,omitempty"`
}

// ThinkingConfig reserves an extended reasoning budget, in tokens.
type ThinkingConfig struct {
	Budget int `json:"budget"`
}

// Usage contains token usage statistics.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Request is a provider-agnostic generation request.
type Request struct {
	Model      string
	Messages   []content.Message
	Tools      []Tool
	Thinking   *ThinkingConfig
	PromptSlug string
	Metadata   map[string]string
}

// HasTool reports whether the request asks for the named tool.
func (r *Request) HasTool(kind string) bool {
	if r == nil {
		return false
	}
	for _, tool := range r.Tools {
		if tool.Type == kind {
			return true
		}
	}
	return false
}

// Response is a provider-agnostic generation response.
type Response struct {
	Content      []content.ContentBlock
	FinishReason string
	Usage        *Usage
	Citations    []content.GroundingChunk
}

// Text concatenates the text blocks of the response.
func (r *Response) Text() string {
	if r == nil {
		return ""
	}
	var out string
	for _, block := range r.Content {
		if block.IsText() {
			out += block.Text
		}
	}
	return out
}
