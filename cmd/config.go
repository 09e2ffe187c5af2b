package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fakeyudi/annotate/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the merged configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := cfg.YAML()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "# global:  %s\n", config.GlobalPath())
		fmt.Fprintf(out, "# project: %s or %s\n", config.ProjectFile, config.ProjectYAMLFile)
		_, err = out.Write(data)
		return err
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
}
