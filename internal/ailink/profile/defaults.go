package profile

import (
	"embed"
	"fmt"
	"strings"
)

// Slugs of the built-in profiles, one per gateway operation.
const (
	SlugMarketAnalysis = "market-analysis"
	SlugImageAnalysis  = "image-analysis"
	SlugDeepDive       = "deep-dive"
)

//go:embed profiles/*.md
var defaultProfilesFS embed.FS

// LoadDefaults loads the embedded profile set.
func LoadDefaults() ([]*Profile, error) {
	entries, err := defaultProfilesFS.ReadDir("profiles")
	if err != nil {
		return nil, fmt.Errorf("read embedded profiles: %w", err)
	}
	results := make([]*Profile, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".md") {
			continue
		}
		data, err := defaultProfilesFS.ReadFile("profiles/" + entry.Name())
		if err != nil {
			return nil, fmt.Errorf("read embedded profile %s: %w", entry.Name(), err)
		}
		profile, err := Load(entry.Name(), data)
		if err != nil {
			return nil, err
		}
		results = append(results, profile)
	}
	return results, nil
}

// DefaultRegistry builds a registry from embedded profiles.
func DefaultRegistry() (Registry, error) {
	profiles, err := LoadDefaults()
	if err != nil {
		return nil, err
	}
	return NewRegistry(profiles)
}

// RegistryWithOverrides builds a registry from embedded profiles overlaid
// with any profiles found in dir. An empty dir yields the defaults.
func RegistryWithOverrides(dir string) (Registry, error) {
	defaults, err := LoadDefaults()
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(dir) == "" {
		return NewRegistry(defaults)
	}
	overrides, err := LoadFromDir(dir)
	if err != nil {
		return nil, err
	}
	return NewRegistry(Merge(defaults, overrides))
}
