// Package appid holds the application identity used for CLI help text,
// config discovery, environment variable prefixes and telemetry naming.
package appid

import "strings"

// Identity describes the application to the rest of the binary.
type Identity struct {
	BinaryName  string
	ConfigName  string
	EnvPrefix   string
	Description string
}

var identity = Identity{
	BinaryName:  "stocklens",
	ConfigName:  "stocklens",
	EnvPrefix:   "STOCKLENS_",
	Description: "AI 주식 투자 헬퍼 - search-grounded market analysis, chart reading and deep dives",
}

// Get returns the application identity.
func Get() Identity {
	return identity
}

// TelemetryNamespace returns the metric namespace derived from the binary name.
func (i Identity) TelemetryNamespace() string {
	name := strings.TrimSpace(i.BinaryName)
	if name == "" {
		return "app"
	}
	return strings.ReplaceAll(strings.ToLower(name), "-", "_")
}
