package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/fakeyudi/annotate/internal/config"
	"github.com/fakeyudi/annotate/internal/logging"
	"github.com/fakeyudi/annotate/internal/workspace"
)

// cfg holds the merged configuration, populated in PersistentPreRunE.
var cfg config.Config

// logger is the file logger opened in PersistentPreRunE.
var logger = slog.New(slog.DiscardHandler)

var logCloser io.Closer

// Flags that override the configuration files.
var (
	inputDir  string
	outputDir string
	recursive bool
	logFile   string
	verbose   bool
	jobs      int
)

var rootCmd = &cobra.Command{
	Use:           "annotate",
	Short:         "Review and correct per-image bounding-box annotations",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Load and merge config files.
		global, err := config.LoadGlobal()
		if err != nil {
			return fmt.Errorf("loading global config: %w", err)
		}
		project, err := config.LoadProject()
		if err != nil {
			return fmt.Errorf("loading project config: %w", err)
		}
		cfg = config.Merge(global, project)
		if err := config.ApplyEnv(&cfg, config.EnvFile); err != nil {
			return fmt.Errorf("loading environment: %w", err)
		}

		flags := cmd.Flags()
		if flags.Changed("input") {
			cfg.InputDir = inputDir
		}
		if flags.Changed("output") {
			cfg.OutputDir = outputDir
		}
		if flags.Changed("recursive") {
			cfg.Recursive = &recursive
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}

		path := logFile
		if path == "" {
			path = logging.DefaultPath()
		}
		l, closer, err := logging.Open(path, verbose)
		if err != nil {
			return err
		}
		logger, logCloser = l, closer
		logger.Debug("starting", "command", cmd.Name(), "input_dir", cfg.InputDir, "output_dir", cfg.OutputDir)
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if logCloser == nil {
			return nil
		}
		err := logCloser.Close()
		logCloser = nil
		return err
	},
}

// Execute runs the root command. Exits with code 1 on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "annotate:", err)
		os.Exit(1)
	}
}

// GetConfig returns the merged configuration for use by subcommands.
func GetConfig() config.Config {
	return cfg
}

// listEntries discovers the dataset's images under the configured roots.
func listEntries() ([]workspace.Entry, error) {
	return workspace.ListImages(cfg.InputDir, cfg.OutputDir, cfg.Extensions, cfg.IsRecursive())
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&inputDir, "input", "i", "", "image root directory (overrides input_dir)")
	pf.StringVarP(&outputDir, "output", "o", "", "annotation root directory (overrides output_dir)")
	pf.BoolVarP(&recursive, "recursive", "r", false, "search the image root recursively")
	pf.StringVar(&logFile, "log-file", "", "log file path (default $XDG_STATE_HOME/annotate/annotate.log)")
	pf.BoolVarP(&verbose, "verbose", "v", false, "log debug records")
	pf.IntVarP(&jobs, "jobs", "j", runtime.NumCPU(), "images processed concurrently by check, summary and render")
}
