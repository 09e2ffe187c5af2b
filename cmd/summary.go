package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/fakeyudi/annotate/internal/report"
)

var summaryOut string

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Print dataset statistics as Markdown",
	RunE: func(cmd *cobra.Command, args []string) error {
		results, err := scanDataset(cmd, false)
		if err != nil {
			return err
		}

		var w io.Writer = cmd.OutOrStdout()
		if summaryOut != "" {
			f, err := os.Create(summaryOut)
			if err != nil {
				return fmt.Errorf("failed to create summary file: %w", err)
			}
			defer f.Close()
			w = f
		}
		if err := report.WriteMarkdown(w, report.Summarize(results), results); err != nil {
			return fmt.Errorf("failed to write summary: %w", err)
		}
		if summaryOut != "" {
			cmd.Printf("summary written to %s\n", summaryOut)
		}
		return nil
	},
}

func init() {
	summaryCmd.Flags().StringVar(&summaryOut, "out", "", "write the report to a file instead of stdout")
	rootCmd.AddCommand(summaryCmd)
}
