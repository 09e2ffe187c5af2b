package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/x/term"
	"github.com/spf13/cobra"

	"github.com/fakeyudi/annotate/internal/session"
	"github.com/fakeyudi/annotate/internal/tui"
	"github.com/fakeyudi/annotate/internal/workspace"
)

// errNotTerminal is returned when edit is run without an interactive terminal.
var errNotTerminal = errors.New("edit needs an interactive terminal; use check, summary or render in scripts")

var editCmd = &cobra.Command{
	Use:   "edit [image]",
	Short: "Open the annotation editor",
	Long: "Open the interactive editor on the dataset. The optional argument is an\n" +
		"image path relative to the input root to open first.",
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !term.IsTerminal(os.Stdin.Fd()) || !term.IsTerminal(os.Stdout.Fd()) {
			return errNotTerminal
		}

		entries, err := listEntries()
		if err != nil {
			return err
		}
		start := 0
		if len(args) == 1 {
			if start, err = findEntry(entries, args[0]); err != nil {
				return err
			}
		}

		store := session.NewSessionStore(session.WithLogger(logger))
		editor, err := workspace.NewEditor(store, entries, workspace.WithLogger(logger))
		if err != nil {
			return err
		}
		return tui.Run(editor, tui.WithLogger(logger), tui.WithStartImage(start))
	},
}

// findEntry returns the index of the image whose path relative to the input
// root is rel.
func findEntry(entries []workspace.Entry, rel string) (int, error) {
	want := filepath.ToSlash(filepath.Clean(rel))
	for i, e := range entries {
		if e.RelativePath == want {
			return i, nil
		}
	}
	return 0, fmt.Errorf("image not found under %s: %s", cfg.InputDir, rel)
}

func init() {
	rootCmd.AddCommand(editCmd)
}
