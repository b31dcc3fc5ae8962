package openai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/stocklens/stocklens/internal/ailink/content"
	"github.com/stocklens/stocklens/internal/ailink/driver"
	"github.com/stocklens/stocklens/internal/ailink/encode"
)

func textMessage(role, text string) content.Message {
	return content.Message{Role: role, Content: []content.ContentBlock{content.Text(text)}}
}

func TestClientRequiresAPIKey(t *testing.T) {
	client := NewClient("", "")
	_, err := client.Complete(context.Background(), &driver.Request{Model: "test", Messages: []content.Message{textMessage("user", "hi")}})
	require.Error(t, err)
	require.Contains(t, err.Error(), "api key")
}

func TestClientRejectsSearchTool(t *testing.T) {
	client := NewClient("", "test-key")
	_, err := client.Complete(context.Background(), &driver.Request{
		Model:    "test",
		Messages: []content.Message{textMessage("user", "hi")},
		Tools:    []driver.Tool{{Type: driver.ToolGoogleSearch}},
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "google_search")
}

func TestReasoningEffortThresholds(t *testing.T) {
	require.Equal(t, "high", reasoningEffort(32768))
	require.Equal(t, "medium", reasoningEffort(8000))
	require.Equal(t, "low", reasoningEffort(10))
	require.Empty(t, reasoningEffort(0))
}

func TestClientSendsRequestAndParsesResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat/completions", r.URL.Path)
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)

		var payload map[string]any
		require.NoError(t, json.Unmarshal(body, &payload))
		require.Equal(t, "high", payload["reasoning_effort"])
		_, hasTools := payload["tools"]
		require.False(t, hasTools)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"deep answer"},"finish_reason":"stop"}],"usage":{"prompt_tokens":1,"completion_tokens":2,"total_tokens":3}}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key")
	client.HTTPClient = server.Client()

	resp, err := client.Complete(context.Background(), &driver.Request{
		Model: "test-model",
		Messages: []content.Message{
			textMessage("system", "sys"),
			textMessage("user", "usr"),
		},
		Thinking: &driver.ThinkingConfig{Budget: 32768},
	})
	require.NoError(t, err)
	require.Equal(t, "stop", resp.FinishReason)
	require.NotNil(t, resp.Usage)
	require.Equal(t, 3, resp.Usage.TotalTokens)
	require.Equal(t, "deep answer", resp.Text())
	require.NotNil(t, resp.Citations)
	require.Empty(t, resp.Citations)
}

func TestClientSendsImageAsDataURL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.True(t, strings.Contains(string(body), "data:image/png;base64,AQID"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"chart"},"finish_reason":"stop"}]}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key")
	client.HTTPClient = server.Client()

	resp, err := client.Complete(context.Background(), &driver.Request{
		Model: "vision",
		Messages: []content.Message{{Role: "user", Content: []content.ContentBlock{
			content.Inline([]byte{1, 2, 3}, "image/png"),
			content.Text("what is this"),
		}}},
	})
	require.NoError(t, err)
	require.Equal(t, "chart", resp.Text())
}

func TestClientErrorsOnNon2xx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"bad key","type":"invalid_request_error"}}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key")
	client.HTTPClient = server.Client()

	_, err := client.Complete(context.Background(), &driver.Request{Model: "test", Messages: []content.Message{textMessage("user", "hi")}})
	require.Error(t, err)

	var providerErr *driver.ProviderError
	require.ErrorAs(t, err, &providerErr)
	require.Equal(t, http.StatusUnauthorized, providerErr.StatusCode)
	require.Contains(t, providerErr.Message, "bad key")
}

func TestConvertMessagesBuildsImageDataURL(t *testing.T) {
	data := []byte{0xff, 0xd8, 0xff}
	messages, err := convertMessages([]content.Message{{Content: []content.ContentBlock{
		content.Text("read this chart"),
		content.Inline(data, "image/jpeg"),
	}}})
	require.NoError(t, err)
	require.Len(t, messages, 1)
	require.Equal(t, "user", messages[0].Role)
	require.Len(t, messages[0].MultiContent, 2)

	image := messages[0].MultiContent[1].ImageURL
	require.NotNil(t, image)
	require.Equal(t, encode.DataURL("image/jpeg", data), image.URL)
	require.Equal(t, "data:image/jpeg;base64,/9j/", image.URL)
}
