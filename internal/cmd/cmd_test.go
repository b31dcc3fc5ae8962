package cmd

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stocklens/stocklens/internal/ailink"
)

// fakeGemini answers generateContent calls with body and records request payloads.
func fakeGemini(t *testing.T, status int, body string) (*httptest.Server, *[]string) {
	t.Helper()
	var requests []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		requests = append(requests, r.URL.Path+" "+string(raw))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &requests
}

func writeConfig(t *testing.T, baseURL string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
ailink:
  default_timeout: 10s
  providers:
    gemini:
      base_url: ` + baseURL + `
      credentials:
        - label: test
          enabled: true
          api_key: test-key
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

// execute runs the root command with args and returns stdout and stderr.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	viper.Reset()
	cfgFile, traceFile = "", ""
	t.Cleanup(viper.Reset)

	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})
	err := rootCmd.Execute()
	return stdout.String(), stderr.String(), err
}

const groundedResponse = `{
	"candidates": [{
		"content": {"role": "model", "parts": [{"text": "삼성전자는 반도체 회복 기대감에 상승했습니다."}]},
		"finishReason": "STOP",
		"groundingMetadata": {"groundingChunks": [
			{"web": {"uri": "https://x.com", "title": "X"}},
			{"web": {"title": "missing uri"}}
		]}
	}]
}`

func TestMarketCommandPrintsAnswerAndSources(t *testing.T) {
	srv, requests := fakeGemini(t, http.StatusOK, groundedResponse)
	cfgPath := writeConfig(t, srv.URL)

	stdout, _, err := execute(t, "--config", cfgPath, "market", "--format", "json", "오늘 삼성전자 주가 전망은?")
	require.NoError(t, err)

	var out struct {
		Operation string `json:"operation"`
		Text      string `json:"text"`
		Links     []struct {
			Index int    `json:"index"`
			Label string `json:"label"`
			URI   string `json:"uri"`
		} `json:"links"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &out))
	assert.Equal(t, "market", out.Operation)
	assert.Contains(t, out.Text, "삼성전자")
	require.Len(t, out.Links, 1)
	assert.Equal(t, "X", out.Links[0].Label)
	assert.Equal(t, "https://x.com", out.Links[0].URI)

	require.Len(t, *requests, 1)
	assert.Contains(t, (*requests)[0], "gemini-2.5-flash")
	assert.Contains(t, (*requests)[0], "googleSearch")
}

func TestMarketCommandFailureShowsFixedMessage(t *testing.T) {
	srv, requests := fakeGemini(t, http.StatusInternalServerError, `{"error":{"code":500,"message":"backend exploded","status":"INTERNAL"}}`)
	cfgPath := writeConfig(t, srv.URL)

	_, stderr, err := execute(t, "--config", cfgPath, "market", "--format", "markdown", "KOSPI")
	require.Error(t, err)
	assert.Contains(t, stderr, "시장 분석 중 오류가 발생했습니다.")
	assert.NotContains(t, stderr, "backend exploded")
	assert.NotEmpty(t, *requests)
}

func TestDeepDiveCommandUsesReasoningModel(t *testing.T) {
	srv, requests := fakeGemini(t, http.StatusOK, `{"candidates":[{"content":{"role":"model","parts":[{"text":"long answer"}]}}]}`)
	cfgPath := writeConfig(t, srv.URL)
	outPath := filepath.Join(t.TempDir(), "out", "deep.md")

	_, _, err := execute(t, "--config", cfgPath, "deepdive", "--format", "markdown", "--out", outPath, "반도체", "사이클")
	require.NoError(t, err)

	written, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.Contains(t, string(written), "long answer")

	require.Len(t, *requests, 1)
	assert.Contains(t, (*requests)[0], "gemini-2.5-pro")
	assert.Contains(t, (*requests)[0], "32768")
	assert.Contains(t, (*requests)[0], "반도체 사이클")
}

func TestImageCommandSendsAttachment(t *testing.T) {
	srv, requests := fakeGemini(t, http.StatusOK, `{"candidates":[{"content":{"role":"model","parts":[{"text":"uptrend"}]}}]}`)
	cfgPath := writeConfig(t, srv.URL)

	imgPath := filepath.Join(t.TempDir(), "chart.png")
	require.NoError(t, os.WriteFile(imgPath, []byte("0123456789"), 0o600))

	stdout, _, err := execute(t, "--config", cfgPath, "image", "--format", "markdown", "--file", imgPath, "추세를 분석해줘")
	require.NoError(t, err)
	assert.Contains(t, stdout, "uptrend")

	require.Len(t, *requests, 1)
	assert.Contains(t, (*requests)[0], "MDEyMzQ1Njc4OQ==")
	assert.Contains(t, (*requests)[0], "image/png")
}

func TestEmptyPromptIssuesNoCall(t *testing.T) {
	srv, requests := fakeGemini(t, http.StatusOK, groundedResponse)
	cfgPath := writeConfig(t, srv.URL)

	_, _, err := execute(t, "--config", cfgPath, "market", "--format", "markdown", "   ")
	require.Error(t, err)
	assert.Empty(t, *requests)
}

func TestPromptFromArgs(t *testing.T) {
	prompt, err := promptFromArgs([]string{" 삼성전자 ", "전망"}, strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, "삼성전자  전망", prompt)

	prompt, err = promptFromArgs([]string{"-"}, strings.NewReader("  from stdin \n"))
	require.NoError(t, err)
	assert.Equal(t, "from stdin", prompt)
}

func TestInspectRoles(t *testing.T) {
	svc, err := ailink.NewService(ailink.Config{
		DefaultProvider: "gemini",
		Routing:         map[string]string{ailink.RoleMarketAnalysis: "work"},
		Providers: map[string]ailink.ProviderInstanceConfig{
			"gemini": {
				Enabled:     true,
				AIProvider:  "gemini",
				Models:      map[string]string{"default": "gemini-2.5-flash", "reasoning": "gemini-2.5-pro"},
				Credentials: []ailink.CredentialConfig{{Enabled: true, Label: "main", APIKey: "k"}},
			},
			"work": {
				Enabled:     true,
				AIProvider:  "openai",
				Models:      map[string]string{"default": "gpt-4o-mini"},
				Credentials: []ailink.CredentialConfig{{Enabled: true, Label: "main", APIKey: "k"}},
			},
		},
	})
	require.NoError(t, err)

	reports := inspectRoles(svc)
	require.Len(t, reports, len(ailink.Roles))

	byRole := map[string]roleReport{}
	for _, r := range reports {
		byRole[r.Role] = r
		assert.True(t, r.OK(), "%s: %v", r.Role, r.Err)
	}

	market := byRole[ailink.RoleMarketAnalysis]
	assert.Equal(t, "work", market.ProviderID)
	assert.Equal(t, "config", market.KeySource)
	assert.NotEmpty(t, market.Warnings)

	deep := byRole[ailink.RoleDeepDive]
	assert.Equal(t, "gemini", deep.ProviderID)
	assert.Equal(t, "gemini-2.5-pro", deep.Model)
	assert.Equal(t, 32768, deep.Thinking)
	assert.Empty(t, deep.Warnings)

	table := renderRoleTable(reports)
	assert.Contains(t, table, "deep-dive")
	assert.Contains(t, table, "32768")
}

func TestStarterConfigLoads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(starterConfig()), 0o600))

	v := viper.New()
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())
	assert.Equal(t, "gemini", v.GetString("ailink.default_provider"))
	assert.Equal(t, "gemini-2.5-pro", v.GetString("ailink.providers.gemini.models.reasoning"))
}

func TestVersionCommand(t *testing.T) {
	SetVersionInfo("1.2.3", "abc", "today")
	stdout, _, err := execute(t, "version", "--extended")
	require.NoError(t, err)
	assert.Contains(t, stdout, "stocklens 1.2.3")
	assert.Contains(t, stdout, "Commit: abc")
	assert.Contains(t, stdout, "Gofulmen:")
}
