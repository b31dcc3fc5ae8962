package observability

import (
	"fmt"
	"os"
	"strings"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/fulmenhq/gofulmen/logging"
)

var (
	// CLILogger is used by the one-shot commands (SIMPLE profile).
	CLILogger *logging.Logger

	// ServerLogger is used by `serve` (STRUCTURED profile unless configured otherwise).
	ServerLogger *logging.Logger
)

// ServerLogOptions configures the server logger.
type ServerLogOptions struct {
	Service   string
	Level     string
	Profile   string
	Namespace string
}

// InitCLILogger initializes the CLI logger with SIMPLE profile
func InitCLILogger(serviceName string, verbose bool) {
	logger, err := logging.NewCLI(serviceName)
	if err != nil {
		exitWithCodeStderr(foundry.ExitConfigInvalid, "Failed to initialize CLI logger", err)
	}
	if verbose {
		logger.SetLevel(logging.DEBUG)
	}
	CLILogger = logger
}

// InitServerLogger initializes ServerLogger. Failure to build the logger is fatal.
func InitServerLogger(opts ServerLogOptions) {
	logger, err := logging.New(serverLoggerConfig(opts))
	if err != nil {
		exitWithCodeStderr(foundry.ExitConfigInvalid, "Failed to initialize server logger", err)
	}
	ServerLogger = logger
}

func serverLoggerConfig(opts ServerLogOptions) *logging.LoggerConfig {
	staticFields := make(map[string]any)
	if opts.Namespace != "" {
		staticFields["namespace"] = opts.Namespace
	}

	profile := logging.ProfileStructured
	format := "json"
	middleware := []logging.MiddlewareConfig{{
		Name:    "correlation",
		Enabled: true,
		Order:   100,
		Config:  make(map[string]any),
	}}
	if strings.EqualFold(strings.TrimSpace(opts.Profile), "simple") {
		profile = logging.ProfileSimple
		format = "console"
		middleware = nil
	}

	return &logging.LoggerConfig{
		Profile:      profile,
		DefaultLevel: parseLogLevel(opts.Level),
		Service:      opts.Service,
		Environment:  "production",
		StaticFields: staticFields,
		Middleware:   middleware,
		Sinks: []logging.SinkConfig{{
			Type:   "console",
			Format: format,
			Console: &logging.ConsoleSinkConfig{
				Stream:   "stderr",
				Colorize: false,
			},
		}},
		EnableCaller:     profile == logging.ProfileStructured,
		EnableStacktrace: profile == logging.ProfileStructured,
	}
}

// parseLogLevel converts a config level to a logging severity name.
func parseLogLevel(levelStr string) string {
	switch strings.ToLower(strings.TrimSpace(levelStr)) {
	case "trace":
		return "TRACE"
	case "debug":
		return "DEBUG"
	case "warn", "warning":
		return "WARN"
	case "error":
		return "ERROR"
	default:
		return "INFO"
	}
}

// exitWithCodeStderr is used before any logger exists.
func exitWithCodeStderr(exitCode foundry.ExitCode, msg string, err error) {
	line := "FATAL: " + msg
	if err != nil {
		line = fmt.Sprintf("%s: %v", line, err)
	}
	info, ok := foundry.GetExitCodeInfo(exitCode)
	if !ok {
		fmt.Fprintf(os.Stderr, "%s (exit code: %d)\n", line, exitCode)
		os.Exit(int(exitCode))
	}
	fmt.Fprintln(os.Stderr, line)
	fmt.Fprintf(os.Stderr, "Exit Code: %d (%s) - %s\n", info.Code, info.Name, info.Description)
	os.Exit(info.Code)
}

// Active returns the server logger when a server is running, else the CLI
// logger. It returns nil when neither has been initialized.
func Active() *logging.Logger {
	if ServerLogger != nil {
		return ServerLogger
	}
	return CLILogger
}
