// Package cmd implements the serverlessedge CLI: one root command with a
// subcommand per long-running role (computer, router, controller), each
// taking a --config flag pointing at its YAML process configuration.
package cmd

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var logLevel string

var rootCmd = &cobra.Command{
	Use:   "serverlessedge",
	Short: "Edge lambda invocation runtime: computer, router and controller roles",
}

// Execute runs the root command, exiting the process with status 1 on
// any error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (trace, debug, info, warn, error)")
	rootCmd.AddCommand(computerCmd, routerCmd, controllerCmd)
}

// setLogLevel parses and applies the effective log level: levelOverride
// (from the role's own config file) takes precedence over the --log-level
// flag when non-empty.
func setLogLevel(levelOverride string) {
	level := logLevel
	if levelOverride != "" {
		level = levelOverride
	}
	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		logrus.Fatalf("invalid log level: %s", level)
	}
	logrus.SetLevel(parsed)
}
