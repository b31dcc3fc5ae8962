package cmd

import (
	"github.com/spf13/cobra"

	"github.com/stocklens/stocklens/internal/output"
	"github.com/stocklens/stocklens/internal/panel"
)

var marketCmd = &cobra.Command{
	Use:   "market <prompt...>",
	Short: "Search-grounded market analysis with cited sources",
	Long: `Ask a market question answered with live web search.

The answer is followed by its numbered sources. Pass "-" to read the prompt
from stdin.`,
	Example: `  stocklens market "오늘 삼성전자 주가 전망은?"
  stocklens market --format table "KOSPI outlook this week"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runMarket,
}

func init() {
	rootCmd.AddCommand(marketCmd)
	addAnalysisFlags(marketCmd)
}

func runMarket(cmd *cobra.Command, args []string) error {
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

	snap, err := runPanel(cmd.Context(), panel.NewMarket(gw), prompt)
	if err != nil {
		return reportFailure(cmd, err)
	}

	result := &output.Result{Operation: panel.NameMarket, Prompt: prompt}
	if snap.Result != nil {
		result.Text = snap.Result.Text
		result.Sources = snap.Result.Sources
	}
	return writeResult(cmd, result)
}
