package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/stocklens/stocklens/internal/ailink"
	"github.com/stocklens/stocklens/internal/config"
	errwrap "github.com/stocklens/stocklens/internal/errors"
	"github.com/stocklens/stocklens/internal/output"
	"github.com/stocklens/stocklens/internal/panel"
)

// errPanelFailed carries the user-facing message of a failed submission.
type errPanelFailed struct {
	panel   string
	message string
}

func (e *errPanelFailed) Error() string {
	return e.message
}

// addAnalysisFlags registers the flags shared by market, image and deepdive.
func addAnalysisFlags(cmd *cobra.Command) {
	cmd.Flags().String("format", "markdown", "Output format: markdown, html, json, table")
	cmd.Flags().String("out", "", "Write output to a file instead of stdout")
	cmd.Flags().String("model", "", "Model override (defaults to profile tier and provider config)")
}

func resolveOutputFormat(cmd *cobra.Command) (output.Format, error) {
	value, err := cmd.Flags().GetString("format")
	if err != nil {
		return "", err
	}
	return output.ParseFormat(value)
}

// promptFromArgs joins positional words into one prompt. A single "-" reads
// the prompt from in.
func promptFromArgs(args []string, in io.Reader) (string, error) {
	if len(args) == 1 && args[0] == "-" {
		data, err := io.ReadAll(in)
		if err != nil {
			return "", fmt.Errorf("read prompt from stdin: %w", err)
		}
		return strings.TrimSpace(string(data)), nil
	}
	return strings.TrimSpace(strings.Join(args, " ")), nil
}

// newGateway builds the gateway client with an optional per-call model override.
func newGateway(cfg *config.Config, model string) (*ailink.Service, error) {
	svc, err := ailink.NewService(cfg.AILink)
	if err != nil {
		return nil, fmt.Errorf("load request profiles: %w", err)
	}
	svc.ModelOverride = strings.TrimSpace(model)
	return svc, nil
}

// runPanel submits in and waits for the controller to leave Loading.
func runPanel[In, Out any](ctx context.Context, c *panel.Controller[In, Out], in In) (panel.Snapshot[Out], error) {
	done, ok := c.Submit(ctx, in)
	if !ok {
		return panel.Snapshot[Out]{}, errwrap.NewInvalidInputError("a non-empty prompt is required")
	}
	select {
	case <-done:
	case <-ctx.Done():
		return panel.Snapshot[Out]{}, ctx.Err()
	}

	snap := c.Snapshot()
	if snap.Status == panel.StatusFailed {
		return snap, &errPanelFailed{panel: c.Name(), message: snap.Error}
	}
	return snap, nil
}

// writeResult formats result and writes it to --out or stdout.
func writeResult(cmd *cobra.Command, result *output.Result) error {
	format, err := resolveOutputFormat(cmd)
	if err != nil {
		return err
	}
	rendered, err := output.NewFormatter(format).Format(result)
	if err != nil {
		return err
	}
	if !strings.HasSuffix(rendered, "\n") {
		rendered += "\n"
	}

	outPath, err := cmd.Flags().GetString("out")
	if err != nil {
		return err
	}
	outPath = strings.TrimSpace(outPath)
	if outPath == "" || outPath == "-" {
		_, err = io.WriteString(cmd.OutOrStdout(), rendered)
		return err
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	return os.WriteFile(outPath, []byte(rendered), 0o644)
}

// reportFailure prints the panel's user message and returns an error the root
// command turns into a non-zero exit.
func reportFailure(cmd *cobra.Command, err error) error {
	var failed *errPanelFailed
	if errors.As(err, &failed) {
		_, _ = fmt.Fprintln(cmd.ErrOrStderr(), failed.message)
	}
	return err
}
