package cmd

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/fulmenhq/gofulmen/signals"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/stocklens/stocklens/internal/ailink"
	"github.com/stocklens/stocklens/internal/appid"
	"github.com/stocklens/stocklens/internal/config"
	errwrap "github.com/stocklens/stocklens/internal/errors"
	"github.com/stocklens/stocklens/internal/metrics"
	"github.com/stocklens/stocklens/internal/observability"
	"github.com/stocklens/stocklens/internal/panel"
	"github.com/stocklens/stocklens/internal/server"
	"github.com/stocklens/stocklens/internal/server/handlers"
)

// telemetryHealthChecker ensures telemetry system and exporter are available
type telemetryHealthChecker struct{}

func (telemetryHealthChecker) CheckHealth(ctx context.Context) error {
	if observability.TelemetrySystem == nil || observability.PrometheusExporter == nil {
		return errwrap.NewInternalError("telemetry system not initialized")
	}
	return nil
}

// gatewayHealthChecker verifies every role resolves to a provider with a key.
// It never calls the provider.
type gatewayHealthChecker struct {
	svc *ailink.Service
}

func (g gatewayHealthChecker) CheckHealth(ctx context.Context) error {
	for _, role := range ailink.Roles {
		def, err := g.svc.Profiles.Get(role)
		if err != nil {
			return errwrap.NewConfigInvalidError("request profile missing: " + role)
		}
		resolved, err := g.svc.Providers.Resolve(role, def, g.svc.ModelOverride)
		if err != nil {
			return errwrap.NewConfigInvalidError(role + ": " + err.Error())
		}
		if resolved.Credential.APIKey == "" {
			return errwrap.NewConfigInvalidError(role + ": no API key for provider " + resolved.ProviderID)
		}
	}
	return nil
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web UI",
	Long: `Start the three-panel web UI (market, image, deep dive) with graceful
shutdown support.

Signal Handling:
  • Ctrl+C (SIGINT) or SIGTERM: Graceful shutdown
  • Ctrl+C twice within 2s: Force quit
  • SIGHUP: Config reload (log level only; restart for provider changes)`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("host", "localhost", "server host")
	serveCmd.Flags().IntP("port", "p", 8080, "server port")
	serveCmd.Flags().String("model", "", "Model override for every panel")

	_ = viper.BindPFlag("server.host", serveCmd.Flags().Lookup("host"))
	_ = viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return errwrap.Wrap(cmd.Context(), errwrap.CodeConfigInvalid, err, "config load failed")
	}

	identity := appid.Get()
	namespace := identity.TelemetryNamespace()
	observability.InitServerLogger(observability.ServerLogOptions{
		Service:   identity.BinaryName,
		Level:     cfg.Logging.Level,
		Profile:   cfg.Logging.Profile,
		Namespace: namespace,
	})
	logger := observability.ServerLogger

	if cfg.Metrics.Enabled {
		if err := observability.InitMetrics(identity.BinaryName, cfg.Metrics.Port, namespace); err != nil {
			logger.Error("Failed to initialize metrics", zap.Error(err))
			return errwrap.Wrap(cmd.Context(), errwrap.CodeInternal, err, "metrics initialization failed")
		}
	}

	model, _ := cmd.Flags().GetString("model")
	gw, err := newGateway(cfg, model)
	if err != nil {
		return errwrap.Wrap(cmd.Context(), errwrap.CodeConfigInvalid, err, "gateway initialization failed")
	}

	handlers.InitHealthManager(versionInfo.Version)
	hm := handlers.GetHealthManager()
	hm.RegisterChecker("gateway", gatewayHealthChecker{svc: gw})
	if cfg.Metrics.Enabled {
		hm.RegisterChecker("telemetry", telemetryHealthChecker{})
	}
	handlers.SetAppIdentity(identity)

	srv := server.New(server.Options{
		Host:           cfg.Server.Host,
		Port:           cfg.Server.Port,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		Panels:         panel.NewSet(gw, cfg.Upload.MaxBytes),
		MaxUploadBytes: cfg.Upload.MaxBytes,
	})

	logger.Info("Initializing server",
		zap.String("service", identity.BinaryName),
		zap.String("namespace", namespace),
		zap.String("version", versionInfo.Version),
		zap.String("host", cfg.Server.Host),
		zap.Int("port", cfg.Server.Port),
		zap.Bool("metrics", cfg.Metrics.Enabled),
		zap.Int("metrics_port", observability.GetMetricsPort()))

	shutdownTimeout := cfg.Server.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}

	// Shutdown handlers run LIFO: the server stops first, the logger flushes last.
	signals.OnShutdown(func(ctx context.Context) error {
		logger.Info("Flushing logger...")
		if err := logger.Sync(); err != nil {
			logger.Warn("Logger sync returned error (may be benign)", zap.Error(err))
		}
		return nil
	})
	signals.OnShutdown(func(ctx context.Context) error {
		if err := observability.StopMetrics(); err != nil {
			logger.Warn("Metrics exporter stop failed", zap.Error(err))
		}
		return nil
	})
	signals.OnShutdown(func(ctx context.Context) error {
		logger.Info("Shutting down HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return errwrap.Wrap(ctx, errwrap.CodeInternal, err, "server shutdown failed")
		}
		logger.Info("HTTP server stopped gracefully")
		return nil
	})

	signals.OnReload(func(ctx context.Context) error {
		return reloadLogLevel(ctx)
	})

	if err := signals.EnableDoubleTap(signals.DoubleTapConfig{
		Window:  2 * time.Second,
		Message: "Press Ctrl+C again within 2 seconds to force quit",
	}); err != nil {
		logger.Warn("Failed to enable double-tap force quit", zap.Error(err))
	}

	metrics.SetServerStartTime(time.Now().Unix())

	errChan := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP server...",
			zap.String("url", "http://"+srv.Addr()+"/"))
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	go func() {
		if err := signals.Listen(cmd.Context()); err != nil {
			logger.Error("Signal handler error", zap.Error(err))
			errChan <- err
		}
	}()

	if err := <-errChan; err != nil {
		return errwrap.Wrap(cmd.Context(), errwrap.CodeInternal, err, "server error")
	}
	return nil
}

// reloadLogLevel re-reads the config file on SIGHUP and applies the log level.
// Provider and panel settings need a restart.
func reloadLogLevel(ctx context.Context) error {
	logger := observability.ServerLogger
	v := viper.GetViper()
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			logger.Info("No config file found - using defaults and environment variables")
			return nil
		}
		logger.Error("Failed to reload config file", zap.String("file", v.ConfigFileUsed()), zap.Error(err))
		return errwrap.Wrap(ctx, errwrap.CodeConfigInvalid, err, "config reload failed")
	}

	cfg, err := config.Load(v)
	if err != nil {
		return errwrap.Wrap(ctx, errwrap.CodeConfigInvalid, err, "config reload failed")
	}
	observability.InitServerLogger(observability.ServerLogOptions{
		Service:   appid.Get().BinaryName,
		Level:     cfg.Logging.Level,
		Profile:   cfg.Logging.Profile,
		Namespace: appid.Get().TelemetryNamespace(),
	})
	observability.ServerLogger.Info("Configuration reloaded",
		zap.String("file", v.ConfigFileUsed()),
		zap.String("log_level", cfg.Logging.Level))
	return nil
}
