package profile

import "strings"

// Tier names the provider model slot a profile runs on.
const (
	TierDefault   = "default"
	TierReasoning = "reasoning"
)

// Config describes a request profile loaded from YAML.
type Config struct {
	Slug           string       `yaml:"slug" json:"slug"`
	Name           string       `yaml:"name,omitempty" json:"name,omitempty"`
	Description    string       `yaml:"description,omitempty" json:"description,omitempty"`
	Version        string       `yaml:"version,omitempty" json:"version,omitempty"`
	Updated        string       `yaml:"updated,omitempty" json:"updated,omitempty"`
	ModelTier      string       `yaml:"model_tier,omitempty" json:"model_tier,omitempty"`
	Model          string       `yaml:"model,omitempty" json:"model,omitempty"`
	Input          InputSpec    `yaml:"input,omitempty" json:"input,omitempty"`
	SystemTemplate string       `yaml:"system_template,omitempty" json:"system_template,omitempty"`
	Tools          []ToolConfig `yaml:"tools,omitempty" json:"tools,omitempty"`
	Thinking       *Thinking    `yaml:"thinking,omitempty" json:"thinking,omitempty"`
}

// InputSpec defines profile input requirements.
type InputSpec struct {
	RequiresImage bool     `yaml:"requires_image,omitempty" json:"requires_image,omitempty"`
	ImageTypes    []string `yaml:"image_types,omitempty" json:"image_types,omitempty"`
}

// ToolConfig represents a server-side tool enabled by the profile.
type ToolConfig struct {
	Type   string         `yaml:"type" json:"type"`
	Config map[string]any `yaml:"config,omitempty" json:"config,omitempty"`
}

// Thinking carries the opaque reasoning budget passed to the provider.
type Thinking struct {
	Budget int `yaml:"budget" json:"budget"`
}

// Profile wraps a validated profile configuration with its source.
type Profile struct {
	Config Config
	Source string
}

// Tier returns the model tier, defaulting to TierDefault.
func (p *Profile) Tier() string {
	if p == nil || p.Config.ModelTier == "" {
		return TierDefault
	}
	return p.Config.ModelTier
}

// AcceptsMediaType reports whether an attachment of the given media type may
// be sent with this profile. An empty allow-list accepts any image type.
func (p *Profile) AcceptsMediaType(mediaType string) bool {
	if p == nil {
		return false
	}
	if len(p.Config.Input.ImageTypes) == 0 {
		return strings.HasPrefix(mediaType, "image/")
	}
	for _, allowed := range p.Config.Input.ImageTypes {
		if allowed == mediaType {
			return true
		}
	}
	return false
}
