package observability

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitMetricsOnFreePort(t *testing.T) {
	if err := InitMetrics("stocklens-test", 0, "stocklens_test"); err != nil {
		msg := strings.ToLower(err.Error())
		if strings.Contains(msg, "permission") || strings.Contains(msg, "not permitted") {
			t.Skipf("loopback listen not permitted: %v", err)
		}
		require.NoError(t, err)
	}
	t.Cleanup(func() { _ = StopMetrics() })

	require.NotNil(t, PrometheusExporter)
	require.NotNil(t, TelemetrySystem)
	assert.NotZero(t, GetMetricsPort())

	require.NoError(t, StopMetrics())
	assert.Nil(t, PrometheusExporter)
	assert.Nil(t, TelemetrySystem)
	assert.Zero(t, GetMetricsPort())
}

func TestResolvePort(t *testing.T) {
	port, err := resolvePort("[::]:9191")
	require.NoError(t, err)
	assert.Equal(t, 9191, port)

	_, err = resolvePort("no-port")
	assert.Error(t, err)
}
