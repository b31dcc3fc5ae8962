package cmd

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/stocklens/stocklens/internal/attachment"
	errwrap "github.com/stocklens/stocklens/internal/errors"
	"github.com/stocklens/stocklens/internal/output"
	"github.com/stocklens/stocklens/internal/panel"
)

var imageCmd = &cobra.Command{
	Use:   "image --file <chart.png> <prompt...>",
	Short: "Analyze a chart or screenshot together with a prompt",
	Long: `Send an image and a prompt as one multimodal query. The image is read
and encoded when the query is submitted.`,
	Example: `  stocklens image --file chart.png "이 차트의 추세를 분석해줘"`,
	Args:    cobra.MinimumNArgs(1),
	RunE:    runImage,
}

func init() {
	rootCmd.AddCommand(imageCmd)
	addAnalysisFlags(imageCmd)
	imageCmd.Flags().StringP("file", "f", "", "Image file to analyze (png, jpeg, webp, gif)")
	imageCmd.Flags().String("media-type", "", "Override the media type detected from the file")
	_ = imageCmd.MarkFlagRequired("file")
}

func runImage(cmd *cobra.Command, args []string) error {
	prompt, err := promptFromArgs(args, cmd.InOrStdin())
	if err != nil {
		return err
	}
	if _, err := resolveOutputFormat(cmd); err != nil {
		return err
	}
	path, _ := cmd.Flags().GetString("file")
	if strings.TrimSpace(path) == "" {
		return errwrap.NewInvalidInputError("--file is required")
	}
	file, err := attachment.FromPath(path)
	if err != nil {
		return err
	}
	if mediaType, _ := cmd.Flags().GetString("media-type"); strings.TrimSpace(mediaType) != "" {
		file.MediaType = strings.TrimSpace(mediaType)
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

	p := panel.NewImage(gw, cfg.Upload.MaxBytes)
	p.SelectAttachment(file)
	snap, err := runPanel(cmd.Context(), p.Controller, panel.ImageInput{Prompt: prompt, File: p.Attachment()})
	if err != nil {
		return reportFailure(cmd, err)
	}
	return writeResult(cmd, &output.Result{Operation: panel.NameImage, Prompt: prompt, Text: snap.Result})
}
