// Package main provides the taxonomy binary entry point.
// It manages taxonomy vocabularies stored in an event-sourced content
// repository from the command line.
package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"strings"

	"github.com/spf13/cobra"
)

const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "taxonomy"
)

// errNothingFound makes the binary exit with status 1 without further output.
var errNothingFound = errors.New("nothing found")

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := rootCmd().Execute(); err != nil {
		if !errors.Is(err, errNothingFound) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configPath string
	logLevel   string
	dimension  string
}

func rootCmd() *cobra.Command {
	g := &globalFlags{}

	cmd := &cobra.Command{
		Use:   appName,
		Short: "Manage taxonomy vocabularies",
		Long: `Taxonomy manages vocabularies of hierarchical taxonomy terms stored in
an event-sourced content repository.

Vocabularies live below a single taxonomy root and hold trees of terms.
Paths name a vocabulary followed by term names, e.g. "colors/warm/red".
The journal is kept in badger (default), in memory or in a NATS KV bucket.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&g.configPath, "config", "c", "", "Config file path (YAML, default: taxonomy.yaml in current or parent directories)")
	cmd.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "Log level (debug, info, warn, error), overrides the config")
	cmd.PersistentFlags().StringVarP(&g.dimension, "dimension", "d", "", `Dimension space point, e.g. "language=de" (default: first root generalization)`)

	cmd.AddCommand(
		vocabulariesCmd(g),
		showCmd(g),
		treeCmd(g),
		nodeCmd(g),
		vocabularyCmd(g),
		termCmd(g),
		referenceCmd(g),
		configCmd(g),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s version %s (build: %s)\n", appName, Version, BuildTime)
			},
		},
	)

	return cmd
}

func newLogger(level string) *slog.Logger {
	l := slog.LevelInfo
	switch strings.ToLower(level) {
	case "debug":
		l = slog.LevelDebug
	case "warn":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l}))
}
