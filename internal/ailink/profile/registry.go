package profile

import (
	"fmt"
	"sort"
	"strings"
)

// Registry provides access to profile definitions.
type Registry interface {
	Get(slug string) (*Profile, error)
	List() []*Profile
}

// InMemoryRegistry stores profiles by slug.
type InMemoryRegistry struct {
	profiles map[string]*Profile
}

// NewRegistry builds a registry from profiles.
func NewRegistry(profiles []*Profile) (*InMemoryRegistry, error) {
	reg := &InMemoryRegistry{profiles: make(map[string]*Profile)}
	for _, profile := range profiles {
		if profile == nil {
			continue
		}
		slug := strings.TrimSpace(profile.Config.Slug)
		if slug == "" {
			return nil, fmt.Errorf("profile missing slug")
		}
		if _, ok := reg.profiles[slug]; ok {
			return nil, fmt.Errorf("duplicate profile slug: %s", slug)
		}
		reg.profiles[slug] = profile
	}
	return reg, nil
}

// Get returns the profile for the slug.
func (r *InMemoryRegistry) Get(slug string) (*Profile, error) {
	if r == nil {
		return nil, fmt.Errorf("profile registry not configured")
	}
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return nil, fmt.Errorf("profile slug is required")
	}
	profile, ok := r.profiles[slug]
	if !ok {
		return nil, fmt.Errorf("profile %q not found", slug)
	}
	return profile, nil
}

// List returns profiles sorted by slug.
func (r *InMemoryRegistry) List() []*Profile {
	if r == nil {
		return nil
	}
	keys := make([]string, 0, len(r.profiles))
	for slug := range r.profiles {
		keys = append(keys, slug)
	}
	sort.Strings(keys)
	result := make([]*Profile, 0, len(keys))
	for _, slug := range keys {
		result = append(result, r.profiles[slug])
	}
	return result
}

// Merge overlays profiles onto base; an overlay replaces a base profile with
// the same slug.
func Merge(base, overlay []*Profile) []*Profile {
	index := make(map[string]int, len(base))
	out := make([]*Profile, 0, len(base)+len(overlay))
	for _, profile := range base {
		if profile == nil {
			continue
		}
		index[profile.Config.Slug] = len(out)
		out = append(out, profile)
	}
	for _, profile := range overlay {
		if profile == nil {
			continue
		}
		if pos, ok := index[profile.Config.Slug]; ok {
			out[pos] = profile
			continue
		}
		index[profile.Config.Slug] = len(out)
		out = append(out, profile)
	}
	return out
}
