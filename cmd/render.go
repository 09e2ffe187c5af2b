package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fakeyudi/annotate/internal/config"
	"github.com/fakeyudi/annotate/internal/report"
)

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Draw the annotated boxes onto copies of the images",
	Long: "Render every image that has a readable record into visual_dir, keeping\n" +
		"the input tree's layout. Records are validated as in the editor but never\n" +
		"written.",
	RunE: func(cmd *cobra.Command, args []string) error {
		boxColor, err := config.ParseColor(cfg.BoxColor)
		if err != nil {
			return err
		}
		results, err := scanDataset(cmd, false)
		if err != nil {
			return err
		}

		style := report.Style{Color: boxColor, LineWidth: cfg.LineWidth, Labels: cfg.WritesLabels()}
		written, err := report.RenderAll(cmd.Context(), results, cfg.VisualDir, style, jobs)
		if err != nil {
			return err
		}
		logger.Info("rendered visualizations", "count", len(written), "dir", cfg.VisualDir)
		fmt.Fprintf(cmd.OutOrStdout(), "rendered %d of %d images to %s\n", len(written), len(results), cfg.VisualDir)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(renderCmd)
}
