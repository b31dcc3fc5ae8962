package observability

import (
	"testing"

	"github.com/fulmenhq/gofulmen/crucible"
	"github.com/fulmenhq/gofulmen/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestInitCLILogger(t *testing.T) {
	t.Cleanup(func() { CLILogger = nil })

	InitCLILogger("stocklens-test", true)
	require.NotNil(t, CLILogger)
	CLILogger.Debug("verbose cli logger", zap.String("panel", "market"))
}

func TestInitServerLogger(t *testing.T) {
	t.Cleanup(func() { ServerLogger = nil })

	InitServerLogger(ServerLogOptions{Service: "stocklens-test", Level: "debug", Namespace: "stocklens"})
	require.NotNil(t, ServerLogger)
	assert.Same(t, ServerLogger, Active())

	ServerLogger.Info("structured server logger", zap.String("operation", "deep-dive"))
}

func TestServerLoggerConfig(t *testing.T) {
	structured := serverLoggerConfig(ServerLogOptions{Service: "svc", Level: "warn", Namespace: "ns"})
	assert.Equal(t, logging.ProfileStructured, structured.Profile)
	assert.Equal(t, "WARN", structured.DefaultLevel)
	assert.Equal(t, "ns", structured.StaticFields["namespace"])
	require.Len(t, structured.Sinks, 1)
	assert.Equal(t, "json", structured.Sinks[0].Format)
	require.Len(t, structured.Middleware, 1)
	assert.Equal(t, "correlation", structured.Middleware[0].Name)

	simple := serverLoggerConfig(ServerLogOptions{Service: "svc", Profile: "SIMPLE"})
	assert.Equal(t, logging.ProfileSimple, simple.Profile)
	assert.Equal(t, "INFO", simple.DefaultLevel)
	assert.Empty(t, simple.Middleware)
	assert.Empty(t, simple.StaticFields)

	logger, err := logging.New(simple)
	require.NoError(t, err)
	logger.Info("simple profile builds")
}

func TestParseLogLevel(t *testing.T) {
	cases := map[string]string{
		"trace":   "TRACE",
		"DEBUG":   "DEBUG",
		"warning": "WARN",
		"error":   "ERROR",
		"":        "INFO",
		"bogus":   "INFO",
	}
	for in, want := range cases {
		assert.Equal(t, want, parseLogLevel(in), in)
	}
}

func TestActiveFallsBackToCLI(t *testing.T) {
	prevCLI, prevServer := CLILogger, ServerLogger
	t.Cleanup(func() { CLILogger, ServerLogger = prevCLI, prevServer })

	CLILogger, ServerLogger = nil, nil
	assert.Nil(t, Active())

	InitCLILogger("stocklens-test", false)
	assert.Same(t, CLILogger, Active())
}

func TestEmbeddedCrucibleVersion(t *testing.T) {
	version := crucible.GetVersion()
	assert.NotEmpty(t, version.Gofulmen)
	assert.NotEmpty(t, version.Crucible)
}
