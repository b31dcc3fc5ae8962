package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"google.golang.org/genai"

	"github.com/stocklens/stocklens/internal/ailink/content"
	"github.com/stocklens/stocklens/internal/ailink/driver"
)

const (
	defaultAPIVersion = "v1beta"
	providerName      = "gemini"
)

// Client implements the Gemini driver on top of the genai SDK.
type Client struct {
	BaseURL    string
	APIKey     string
	APIVersion string
	HTTPClient *http.Client
	Timeout    time.Duration

	once   sync.Once
	sdk    *genai.Client
	sdkErr error
}

// NewClient returns a client with defaults applied.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		BaseURL:    strings.TrimSpace(baseURL),
		APIKey:     strings.TrimSpace(apiKey),
		APIVersion: defaultAPIVersion,
	}
}

// Name returns the driver identifier.
func (c *Client) Name() string {
	return providerName
}

// Capabilities describes supported features.
func (c *Client) Capabilities() driver.Capabilities {
	return driver.Capabilities{
		SupportsTools:     true,
		SupportsImages:    true,
		SupportsGrounding: true,
		SupportsThinking:  true,
		SupportsStreaming: false,
	}
}

// Complete sends a generateContent request.
func (c *Client) Complete(ctx context.Context, req *driver.Request) (*driver.Response, error) {
	if c == nil {
		return nil, fmt.Errorf("gemini client not configured")
	}
	if strings.TrimSpace(c.APIKey) == "" {
		return nil, fmt.Errorf("api key is required")
	}

	contents, cfg, err := buildRequest(req)
	if err != nil {
		return nil, err
	}

	sdk, err := c.client(ctx)
	if err != nil {
		return nil, err
	}

	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := sdk.Models.GenerateContent(ctx, req.Model, contents, cfg)
	entry := driver.TraceEntry{
		Driver:      providerName,
		Endpoint:    "models/" + req.Model + ":generateContent",
		Method:      http.MethodPost,
		Model:       req.Model,
		RequestBody: traceRequest(req),
		DurationMs:  time.Since(start).Milliseconds(),
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

func (c *Client) client(ctx context.Context) (*genai.Client, error) {
	c.once.Do(func() {
		cfg := &genai.ClientConfig{
			APIKey:  c.APIKey,
			Backend: genai.BackendGeminiAPI,
			HTTPOptions: genai.HTTPOptions{
				BaseURL:    c.BaseURL,
				APIVersion: c.APIVersion,
			},
			HTTPClient: c.HTTPClient,
		}
		c.sdk, c.sdkErr = genai.NewClient(ctx, cfg)
		if c.sdkErr != nil {
			c.sdkErr = fmt.Errorf("create gemini client: %w", c.sdkErr)
		}
	})
	return c.sdk, c.sdkErr
}

func buildRequest(req *driver.Request) ([]*genai.Content, *genai.GenerateContentConfig, error) {
	if req == nil {
		return nil, nil, fmt.Errorf("request is required")
	}
	if strings.TrimSpace(req.Model) == "" {
		return nil, nil, fmt.Errorf("model is required")
	}

	cfg := &genai.GenerateContentConfig{}
	var contents []*genai.Content
	for _, msg := range req.Messages {
		parts, err := toParts(msg.Content)
		if err != nil {
			return nil, nil, err
		}
		if len(parts) == 0 {
			continue
		}
		switch msg.Role {
		case "system":
			if cfg.SystemInstruction == nil {
				cfg.SystemInstruction = &genai.Content{}
			}
			cfg.SystemInstruction.Parts = append(cfg.SystemInstruction.Parts, parts...)
		case "assistant", "model":
			contents = append(contents, &genai.Content{Role: "model", Parts: parts})
		default:
			contents = append(contents, &genai.Content{Role: "user", Parts: parts})
		}
	}
	if len(contents) == 0 {
		return nil, nil, fmt.Errorf("at least one user message is required")
	}

	for _, tool := range req.Tools {
		switch tool.Type {
		case driver.ToolGoogleSearch:
			cfg.Tools = append(cfg.Tools, &genai.Tool{GoogleSearch: &genai.GoogleSearch{}})
		default:
			return nil, nil, fmt.Errorf("tool %q is not supported by gemini driver", tool.Type)
		}
	}
	if req.Thinking != nil && req.Thinking.Budget > 0 {
		cfg.ThinkingConfig = &genai.ThinkingConfig{ThinkingBudget: genai.Ptr(int32(req.Thinking.Budget))}
	}
	return contents, cfg, nil
}

func toParts(blocks []content.ContentBlock) ([]*genai.Part, error) {
	parts := make([]*genai.Part, 0, len(blocks))
	for _, block := range blocks {
		switch {
		case block.IsText():
			if strings.TrimSpace(block.Text) == "" {
				continue
			}
			parts = append(parts, &genai.Part{Text: block.Text})
		case len(block.Data) > 0:
			parts = append(parts, &genai.Part{InlineData: &genai.Blob{Data: block.Data, MIMEType: string(block.Type)}})
		default:
			return nil, fmt.Errorf("unsupported content block %q", block.Type)
		}
	}
	return parts, nil
}

func toDriverResponse(resp *genai.GenerateContentResponse) (*driver.Response, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return nil, fmt.Errorf("empty response candidates")
	}

	candidate := resp.Candidates[0]
	out := &driver.Response{
		Content:      []content.ContentBlock{content.Text(resp.Text())},
		FinishReason: string(candidate.FinishReason),
		Citations:    toCitations(candidate.GroundingMetadata),
	}
	if usage := resp.UsageMetadata; usage != nil {
		out.Usage = &driver.Usage{
			PromptTokens:     int(usage.PromptTokenCount),
			CompletionTokens: int(usage.CandidatesTokenCount),
			TotalTokens:      int(usage.TotalTokenCount),
		}
	}
	return out, nil
}

func toCitations(meta *genai.GroundingMetadata) []content.GroundingChunk {
	if meta == nil {
		return nil
	}
	out := make([]content.GroundingChunk, 0, len(meta.GroundingChunks))
	for _, chunk := range meta.GroundingChunks {
		if chunk == nil {
			continue
		}
		var item content.GroundingChunk
		if chunk.Web != nil {
			item.Web = &content.GroundingSource{URI: chunk.Web.URI, Title: chunk.Web.Title}
		}
		if chunk.Maps != nil {
			item.Maps = &content.GroundingSource{URI: chunk.Maps.URI, Title: chunk.Maps.Title}
		}
		out = append(out, item)
	}
	return out
}

func toProviderError(err error) *driver.ProviderError {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		raw, _ := json.Marshal(apiErr)
		return &driver.ProviderError{
			Provider:    providerName,
			StatusCode:  apiErr.Code,
			Message:     strings.TrimSpace(apiErr.Message),
			RawResponse: raw,
			Err:         err,
		}
	}
	return &driver.ProviderError{Provider: providerName, Message: err.Error(), Err: err}
}

// traceRequest records the request shape without inline payload bytes.
func traceRequest(req *driver.Request) json.RawMessage {
	type tracedBlock struct {
		Type  string `json:"type"`
		Text  string `json:"text,omitempty"`
		Bytes int    `json:"bytes,omitempty"`
	}
	type tracedMessage struct {
		Role    string        `json:"role"`
		Content []tracedBlock `json:"content"`
	}
	payload := struct {
		Model    string                 `json:"model"`
		Messages []tracedMessage        `json:"messages"`
		Tools    []driver.Tool          `json:"tools,omitempty"`
		Thinking *driver.ThinkingConfig `json:"thinking,omitempty"`
	}{Model: req.Model, Tools: req.Tools, Thinking: req.Thinking}
	for _, msg := range req.Messages {
		traced := tracedMessage{Role: msg.Role}
		for _, block := range msg.Content {
			traced.Content = append(traced.Content, tracedBlock{Type: string(block.Type), Text: block.Text, Bytes: len(block.Data)})
		}
		payload.Messages = append(payload.Messages, traced)
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil
	}
	return raw
}
