package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fakeyudi/annotate/internal/report"
	"github.com/fakeyudi/annotate/internal/session"
)

var fixRecords bool

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate every annotation record without opening the editor",
	Long: "Load and validate the record of every image. Records that would change\n" +
		"on save are listed with their problems; --fix writes the repairs and\n" +
		"creates missing records.",
	RunE: func(cmd *cobra.Command, args []string) error {
		results, err := scanDataset(cmd, fixRecords)
		if err != nil {
			return err
		}

		var pending, fixed, failed int
		out := cmd.OutOrStdout()
		for _, r := range results {
			switch {
			case r.Err != nil:
				failed++
				fmt.Fprintf(out, "ERROR  %s: %v\n", r.Entry.RelativePath, r.Err)
			case r.Fixed:
				fixed++
				fmt.Fprintf(out, "FIXED  %s: %s\n", r.Entry.RelativePath, strings.Join(report.Problems(r), ", "))
			case r.NeedsRepair():
				pending++
				fmt.Fprintf(out, "REPAIR %s: %s\n", r.Entry.RelativePath, strings.Join(report.Problems(r), ", "))
			}
		}
		fmt.Fprintf(out, "checked %d images: %d need repair, %d fixed, %d unreadable\n",
			len(results), pending, fixed, failed)

		if pending > 0 {
			return fmt.Errorf("%d records need repair; run annotate check --fix", pending)
		}
		if failed > 0 {
			return fmt.Errorf("%d images could not be checked", failed)
		}
		return nil
	},
}

// scanDataset lists the configured images and checks their records.
func scanDataset(cmd *cobra.Command, fix bool) ([]report.ImageResult, error) {
	entries, err := listEntries()
	if err != nil {
		return nil, err
	}
	store := session.NewSessionStore(session.WithLogger(logger))
	scanner := report.NewScanner(store,
		report.WithLogger(logger),
		report.WithConcurrency(jobs),
		report.WithFix(fix),
	)
	return scanner.Scan(cmd.Context(), entries)
}

func init() {
	checkCmd.Flags().BoolVar(&fixRecords, "fix", false, "write repaired records and create missing ones")
	rootCmd.AddCommand(checkCmd)
}
