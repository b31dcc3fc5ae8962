package driver

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/stocklens/stocklens/internal/ailink/content"
)

func TestRequestHasTool(t *testing.T) {
	req := &Request{Tools: []Tool{{Type: ToolGoogleSearch}}}
	require.True(t, req.HasTool(ToolGoogleSearch))
	require.False(t, req.HasTool("code_execution"))

	var nilReq *Request
	require.False(t, nilReq.HasTool(ToolGoogleSearch))
}

func TestResponseTextSkipsBinaryBlocks(t *testing.T) {
	resp := &Response{Content: []content.ContentBlock{
		content.Text("hello "),
		content.Inline([]byte{0x1}, "image/png"),
		content.Text("world"),
	}}
	require.Equal(t, "hello world", resp.Text())

	var nilResp *Response
	require.Empty(t, nilResp.Text())
}

func TestProviderErrorMessage(t *testing.T) {
	err := &ProviderError{Provider: "gemini", StatusCode: 429, Message: "quota"}
	require.Equal(t, "gemini request failed: status 429: quota", err.Error())

	err = &ProviderError{Provider: "gemini", Message: "dial"}
	require.Equal(t, "gemini request failed: dial", err.Error())
}
