package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/stocklens/stocklens/internal/ailink/content"
	"github.com/stocklens/stocklens/internal/ailink/driver"
	"github.com/stocklens/stocklens/internal/ailink/encode"
)

const providerName = "openai"

// Client implements the OpenAI-compatible chat completions driver.
//
// Any endpoint speaking the OpenAI wire shape (OpenRouter, xAI, local
// gateways) can be reached by overriding BaseURL.
type Client struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
	Timeout    time.Duration
}

// NewClient returns a client with defaults applied.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		BaseURL: strings.TrimSpace(baseURL),
		APIKey:  strings.TrimSpace(apiKey),
	}
}

// Name returns the driver identifier.
func (c *Client) Name() string {
	return providerName
}

// Capabilities describes supported features.
func (c *Client) Capabilities() driver.Capabilities {
	return driver.Capabilities{
		SupportsTools:     false,
		SupportsImages:    true,
		SupportsGrounding: false,
		SupportsThinking:  true,
		SupportsStreaming: false,
	}
}

// Complete sends a chat completion request.
func (c *Client) Complete(ctx context.Context, req *driver.Request) (*driver.Response, error) {
	if c == nil {
		return nil, fmt.Errorf("openai client not configured")
	}
	if strings.TrimSpace(c.APIKey) == "" {
		return nil, fmt.Errorf("api key is required")
	}

	payload, err := buildChatRequest(req)
	if err != nil {
		return nil, err
	}

	cfg := goopenai.DefaultConfig(c.APIKey)
	if c.BaseURL != "" {
		cfg.BaseURL = strings.TrimRight(c.BaseURL, "/")
	}
	if c.HTTPClient != nil {
		cfg.HTTPClient = c.HTTPClient
	}
	sdk := goopenai.NewClientWithConfig(cfg)

	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := sdk.CreateChatCompletion(ctx, payload)
	entry := driver.TraceEntry{
		Driver:     providerName,
		Endpoint:   "/chat/completions",
		Method:     http.MethodPost,
		Model:      req.Model,
		DurationMs: time.Since(start).Milliseconds(),
	}
	if raw, marshalErr := json.Marshal(redactImages(payload)); marshalErr == nil {
		entry.RequestBody = raw
	}
	if err != nil {
		providerErr := toProviderError(err)
		entry.StatusCode = providerErr.StatusCode
		entry.Error = providerErr.Error()
		driver.Trace(entry)
		return nil, providerErr
	}
	entry.StatusCode = http.StatusOK
	if raw, marshalErr := json.Marshal(resp); marshalErr == nil {
		entry.Response = raw
	}
	driver.Trace(entry)

	return toDriverResponse(resp)
}

func buildChatRequest(req *driver.Request) (goopenai.ChatCompletionRequest, error) {
	var payload goopenai.ChatCompletionRequest
	if req == nil {
		return payload, fmt.Errorf("request is required")
	}
	if strings.TrimSpace(req.Model) == "" {
		return payload, fmt.Errorf("model is required")
	}
	if len(req.Tools) > 0 {
		// Search grounding is a Gemini server-side tool with no chat completions equivalent.
		return payload, fmt.Errorf("tool %q is not supported by openai driver", req.Tools[0].Type)
	}

	messages, err := convertMessages(req.Messages)
	if err != nil {
		return payload, err
	}

	payload.Model = req.Model
	payload.Messages = messages
	if req.Thinking != nil {
		payload.ReasoningEffort = reasoningEffort(req.Thinking.Budget)
	}
	return payload, nil
}

// reasoningEffort maps a token budget onto the coarse effort levels.
func reasoningEffort(budget int) string {
	switch {
	case budget >= 16384:
		return "high"
	case budget >= 4096:
		return "medium"
	case budget > 0:
		return "low"
	default:
		return ""
	}
}

func convertMessages(messages []content.Message) ([]goopenai.ChatCompletionMessage, error) {
	out := make([]goopenai.ChatCompletionMessage, 0, len(messages))
	for _, msg := range messages {
		role := msg.Role
		if role == "" {
			role = goopenai.ChatMessageRoleUser
		}

		hasBinary := false
		for _, block := range msg.Content {
			if !block.IsText() {
				hasBinary = true
				break
			}
		}

		if !hasBinary {
			var text strings.Builder
			for _, block := range msg.Content {
				text.WriteString(block.Text)
			}
			out = append(out, goopenai.ChatCompletionMessage{Role: role, Content: text.String()})
			continue
		}

		parts := make([]goopenai.ChatMessagePart, 0, len(msg.Content))
		for _, block := range msg.Content {
			switch {
			case block.IsText():
				parts = append(parts, goopenai.ChatMessagePart{Type: goopenai.ChatMessagePartTypeText, Text: block.Text})
			case block.IsImage():
				parts = append(parts, goopenai.ChatMessagePart{
					Type:     goopenai.ChatMessagePartTypeImageURL,
					ImageURL: &goopenai.ChatMessageImageURL{URL: encode.DataURL(string(block.Type), block.Data), Detail: goopenai.ImageURLDetailAuto},
				})
			default:
				return nil, fmt.Errorf("unsupported content block %q", block.Type)
			}
		}
		out = append(out, goopenai.ChatCompletionMessage{Role: role, MultiContent: parts})
	}
	return out, nil
}

func toDriverResponse(resp goopenai.ChatCompletionResponse) (*driver.Response, error) {
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("empty response choices")
	}
	choice := resp.Choices[0]
	return &driver.Response{
		Content:      []content.ContentBlock{content.Text(choice.Message.Content)},
		FinishReason: string(choice.FinishReason),
		Usage: &driver.Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
		Citations: []content.GroundingChunk{},
	}, nil
}

func toProviderError(err error) *driver.ProviderError {
	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) {
		raw, _ := json.Marshal(apiErr)
		return &driver.ProviderError{
			Provider:    providerName,
			StatusCode:  apiErr.HTTPStatusCode,
			Message:     strings.TrimSpace(apiErr.Message),
			RawResponse: raw,
			Err:         err,
		}
	}
	var reqErr *goopenai.RequestError
	if errors.As(err, &reqErr) {
		return &driver.ProviderError{
			Provider:   providerName,
			StatusCode: reqErr.HTTPStatusCode,
			Message:    err.Error(),
			Err:        err,
		}
	}
	return &driver.ProviderError{Provider: providerName, Message: err.Error(), Err: err}
}

func redactImages(payload goopenai.ChatCompletionRequest) goopenai.ChatCompletionRequest {
	messages := make([]goopenai.ChatCompletionMessage, len(payload.Messages))
	for i, msg := range payload.Messages {
		if len(msg.MultiContent) > 0 {
			parts := make([]goopenai.ChatMessagePart, len(msg.MultiContent))
			for j, part := range msg.MultiContent {
				if part.ImageURL != nil {
					part.ImageURL = &goopenai.ChatMessageImageURL{URL: "data:[redacted]", Detail: part.ImageURL.Detail}
				}
				parts[j] = part
			}
			msg.MultiContent = parts
		}
		messages[i] = msg
	}
	payload.Messages = messages
	return payload
}
