package profile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	profiles, err := LoadDefaults()
	require.NoError(t, err)
	require.Len(t, profiles, 3)

	reg, err := NewRegistry(profiles)
	require.NoError(t, err)

	market, err := reg.Get(SlugMarketAnalysis)
	require.NoError(t, err)
	require.Equal(t, TierDefault, market.Tier())
	require.Len(t, market.Config.Tools, 1)
	require.Equal(t, "google_search", market.Config.Tools[0].Type)
	require.Nil(t, market.Config.Thinking)

	image, err := reg.Get(SlugImageAnalysis)
	require.NoError(t, err)
	require.True(t, image.Config.Input.RequiresImage)
	require.True(t, image.AcceptsMediaType("image/png"))
	require.False(t, image.AcceptsMediaType("application/pdf"))
	require.Empty(t, image.Config.Tools)

	deep, err := reg.Get(SlugDeepDive)
	require.NoError(t, err)
	require.Equal(t, TierReasoning, deep.Tier())
	require.NotNil(t, deep.Config.Thinking)
	require.Equal(t, 32768, deep.Config.Thinking.Budget)
}

func TestLoadRejectsSchemaViolations(t *testing.T) {
	_, err := Load("bad.md", []byte("---\nslug: bad\nmodel_tier: turbo\n---\n"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "schema validation failed")

	_, err = Load("bad.md", []byte("---\nslug: bad\ntools:\n  - type: code_execution\n---\n"))
	require.Error(t, err)

	_, err = Load("empty.md", []byte("   "))
	require.Error(t, err)
}

func TestLoadUsesBodyAsSystemTemplate(t *testing.T) {
	profile, err := Load("custom.md", []byte("---\nslug: market-analysis\ntools:\n  - type: google_search\n---\nAnswer in Korean.\n"))
	require.NoError(t, err)
	require.Equal(t, "Answer in Korean.", profile.Config.SystemTemplate)
}

func TestRegistryWithOverridesReplacesBySlug(t *testing.T) {
	dir := t.TempDir()
	override := "---\nslug: deep-dive\nmodel_tier: reasoning\nthinking:\n  budget: 8192\n---\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "deep.md"), []byte(override), 0o600))

	reg, err := RegistryWithOverrides(dir)
	require.NoError(t, err)
	require.Len(t, reg.List(), 3)

	deep, err := reg.Get(SlugDeepDive)
	require.NoError(t, err)
	require.Equal(t, 8192, deep.Config.Thinking.Budget)

	defaults, err := RegistryWithOverrides("")
	require.NoError(t, err)
	deep, err = defaults.Get(SlugDeepDive)
	require.NoError(t, err)
	require.Equal(t, 32768, deep.Config.Thinking.Budget)
}

func TestNewRegistryRejectsDuplicates(t *testing.T) {
	p := &Profile{Config: Config{Slug: "x"}}
	_, err := NewRegistry([]*Profile{p, p})
	require.Error(t, err)

	_, err = NewRegistry([]*Profile{{Config: Config{Slug: " "}}})
	require.Error(t, err)
}
