package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/fulmenhq/gofulmen/crucible"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/stocklens/stocklens/internal/ailink"
	"github.com/stocklens/stocklens/internal/ailink/driver"
	"github.com/stocklens/stocklens/internal/appid"
	"github.com/stocklens/stocklens/internal/config"
	"github.com/stocklens/stocklens/internal/observability"
)

// roleReport describes how one gateway operation would be routed.
type roleReport struct {
	Role       string
	ProviderID string
	AIProvider string
	Model      string
	KeySource  string
	Thinking   int
	Warnings   []string
	Err        error
}

// OK reports whether the role resolved without errors.
func (r roleReport) OK() bool { return r.Err == nil }

// inspectRoles resolves every role without calling any provider.
func inspectRoles(svc *ailink.Service) []roleReport {
	reports := make([]roleReport, 0, len(ailink.Roles))
	for _, role := range ailink.Roles {
		report := roleReport{Role: role}

		def, err := svc.Profiles.Get(role)
		if err != nil {
			report.Err = err
			reports = append(reports, report)
			continue
		}
		if def.Config.Thinking != nil {
			report.Thinking = def.Config.Thinking.Budget
		}

		resolved, err := svc.Providers.Resolve(role, def, svc.ModelOverride)
		if err != nil {
			report.Err = err
			reports = append(reports, report)
			continue
		}
		report.ProviderID = resolved.ProviderID
		report.AIProvider = resolved.Provider.AIProvider
		report.Model = resolved.Model
		report.KeySource = resolved.KeySource

		caps := resolved.Driver.Capabilities()
		for _, tool := range def.Config.Tools {
			if tool.Type == driver.ToolGoogleSearch && !caps.SupportsGrounding {
				report.Warnings = append(report.Warnings, "no search grounding; sources will be empty")
			}
		}
		if def.Config.Input.RequiresImage && !caps.SupportsImages {
			report.Warnings = append(report.Warnings, "driver does not accept images")
		}
		if report.Thinking > 0 && !caps.SupportsThinking {
			report.Warnings = append(report.Warnings, "thinking budget is ignored by this driver")
		}
		reports = append(reports, report)
	}
	return reports
}

func renderRoleTable(reports []roleReport) string {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Role", "Provider", "Driver", "Model", "API key", "Thinking", "Notes"})
	for _, r := range reports {
		if r.Err != nil {
			t.AppendRow(table.Row{r.Role, "-", "-", "-", "-", "-", "error: " + r.Err.Error()})
			continue
		}
		thinking := "-"
		if r.Thinking > 0 {
			thinking = fmt.Sprintf("%d", r.Thinking)
		}
		t.AppendRow(table.Row{r.Role, r.ProviderID, r.AIProvider, r.Model, r.KeySource, thinking, strings.Join(r.Warnings, "; ")})
	}
	return t.Render()
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run diagnostic checks",
	Long:  "Check the toolchain, config location and how each operation resolves to a provider, model and API key.",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := observability.CLILogger
		identity := appid.Get()
		logger.Info("=== " + identity.BinaryName + " doctor ===")

		allChecks := true
		const totalChecks = 4

		goVersion := runtime.Version()
		logger.Info(fmt.Sprintf("[1/%d] Go runtime... ✅ %s (%s/%s)", totalChecks, goVersion, runtime.GOOS, runtime.GOARCH),
			zap.String("go_version", goVersion))

		version := crucible.GetVersion()
		if version.Crucible != "" && version.Gofulmen != "" {
			logger.Info(fmt.Sprintf("[2/%d] Gofulmen/Crucible... ✅ %s / %s", totalChecks, version.Gofulmen, version.Crucible))
		} else {
			logger.Warn(fmt.Sprintf("[2/%d] Gofulmen/Crucible... ⚠️  version metadata unavailable", totalChecks))
			allChecks = false
		}

		configPath := config.DefaultConfigPath()
		switch {
		case configPath == "":
			logger.Warn(fmt.Sprintf("[3/%d] Config file... ⚠️  config directory not resolvable", totalChecks))
			allChecks = false
		case fileExists(configPath):
			logger.Info(fmt.Sprintf("[3/%d] Config file... ✅ %s", totalChecks, configPath))
		default:
			logger.Info(fmt.Sprintf("[3/%d] Config file... ✅ defaults (no %s)", totalChecks, configPath))
		}

		cfg, err := loadConfig()
		if err != nil {
			logger.Error(fmt.Sprintf("[4/%d] Gateway routing... ❌ config not loaded", totalChecks), zap.Error(err))
			return err
		}
		model, _ := cmd.Flags().GetString("model")
		svc, err := newGateway(cfg, model)
		if err != nil {
			logger.Error(fmt.Sprintf("[4/%d] Gateway routing... ❌ profiles not loaded", totalChecks), zap.Error(err))
			return err
		}
		reports := inspectRoles(svc)
		failed := 0
		for _, r := range reports {
			if !r.OK() {
				failed++
			}
		}
		if failed == 0 {
			logger.Info(fmt.Sprintf("[4/%d] Gateway routing... ✅ %d operations resolved", totalChecks, len(reports)))
		} else {
			logger.Warn(fmt.Sprintf("[4/%d] Gateway routing... ⚠️  %d of %d operations unresolved", totalChecks, failed, len(reports)))
			logger.Info("       Set GEMINI_API_KEY or configure ailink.providers in " + configPath)
			allChecks = false
		}
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), renderRoleTable(reports))

		if allChecks {
			logger.Info("✅ All checks passed!")
		} else {
			logger.Warn("⚠️  Some checks failed. Review the output above for details.")
		}
		return nil
	},
}

var doctorInitForce bool

var doctorInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter config file",
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath := config.DefaultConfigPath()
		if configPath == "" {
			return fmt.Errorf("config path not resolved")
		}
		if fileExists(configPath) && !doctorInitForce {
			return fmt.Errorf("config file already exists: %s (use --force to overwrite)", configPath)
		}
		if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
		if err := os.WriteFile(configPath, []byte(starterConfig()), 0o600); err != nil {
			return fmt.Errorf("write config file: %w", err)
		}
		observability.CLILogger.Info("Config initialized", zap.String("path", configPath))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(doctorCmd)
	doctorCmd.AddCommand(doctorInitCmd)

	doctorCmd.Flags().String("model", "", "Model override to resolve with")
	doctorInitCmd.Flags().BoolVar(&doctorInitForce, "force", false, "overwrite existing config file")
}

func starterConfig() string {
	prefix := appid.Get().EnvPrefix
	lines := []string{
		"# " + appid.Get().BinaryName + " config - created by 'doctor init'",
		"server:",
		"  host: localhost",
		"  port: 8080",
		"upload:",
		"  max_bytes: 20971520",
		"ailink:",
		"  default_provider: gemini",
		"  default_timeout: 120s",
		"  providers:",
		"    gemini:",
		"      enabled: true",
		"      ai_provider: gemini",
		"      models:",
		"        default: gemini-2.5-flash",
		"        reasoning: gemini-2.5-pro",
		"      credentials:",
		"        - label: default",
		"          enabled: true",
		"          # api_key: \"\"  # or GEMINI_API_KEY / " + prefix + "AILINK_PROVIDERS_GEMINI_CREDENTIALS_0_API_KEY",
		"  # routing:",
		"  #   deep-dive: openai",
	}
	return strings.Join(lines, "\n") + "\n"
}

func fileExists(path string) bool {
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}
