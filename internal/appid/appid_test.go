package appid

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGet(t *testing.T) {
	identity := Get()

	assert.Equal(t, "stocklens", identity.BinaryName)
	assert.NotEmpty(t, identity.ConfigName)
	assert.True(t, strings.HasSuffix(identity.EnvPrefix, "_"), "env prefix must end with underscore")
	assert.NotEmpty(t, identity.Description)
}

func TestTelemetryNamespace(t *testing.T) {
	assert.Equal(t, "stocklens", Get().TelemetryNamespace())
	assert.Equal(t, "stock_lens", Identity{BinaryName: "Stock-Lens"}.TelemetryNamespace())
	assert.Equal(t, "app", Identity{}.TelemetryNamespace())
}
