package cmd

import (
	"github.com/spf13/cobra"

	"github.com/stocklens/stocklens/internal/output"
	"github.com/stocklens/stocklens/internal/panel"
)

var deepDiveCmd = &cobra.Command{
	Use:     "deepdive <prompt...>",
	Aliases: []string{"deep-dive"},
	Short:   "Long-form analysis on the reasoning model",
	Long: `Run a deep-reasoning query. The reasoning model is slower than the
market and image commands; expect answers to take a minute or more.`,
	Example: `  stocklens deepdive "반도체 업황 사이클과 삼성전자 밸류에이션을 분석해줘"`,
	Args:    cobra.MinimumNArgs(1),
	RunE:    runDeepDive,
}

func init() {
	rootCmd.AddCommand(deepDiveCmd)
	addAnalysisFlags(deepDiveCmd)
}

func runDeepDive(cmd *cobra.Command, args []string) error {
	prompt, err := promptFromArgs(args, cmd.InOrStdin())
	if err != nil {
		return err
	}
	if _, err := resolveOutputFormat(cmd); err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	model, _ := cmd.Flags().GetString("model")
	gw, err := newGateway(cfg, model)
	if err != nil {
		return err
	}

	snap, err := runPanel(cmd.Context(), panel.NewDeepDive(gw), prompt)
	if err != nil {
		return reportFailure(cmd, err)
	}
	return writeResult(cmd, &output.Result{Operation: panel.NameDeepDive, Prompt: prompt, Text: snap.Result})
}
