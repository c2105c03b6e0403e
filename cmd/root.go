// Package cmd contains all the CLI commands for the application,
// built using the Cobra library.
package cmd

import (
	"errors"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/naka-gawa/activity-report/internal/config"
	"github.com/naka-gawa/activity-report/internal/window"
)

// Exit codes.
const (
	exitFailure     = 1
	exitConfigError = 2
)

var rootCmd = &cobra.Command{
	Use:   "activity-report",
	Short: "A CLI tool to report commit and issue activity across repositories.",
	Long: `activity-report fetches commits and issues of a fixed list of GitHub
repositories for a date window, aggregates them into summary statistics,
and writes CSV, Markdown, JSON and HTML reports to disk.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(reportError(os.Stderr, err))
	}
}

// reportError prints err as a single line and returns the exit code for it.
func reportError(w io.Writer, err error) int {
	color.New(color.FgRed).Fprintf(w, "Error: %v\n", err)
	return exitCode(err)
}

// usageError marks a flag that could not be parsed.
type usageError struct{ err error }

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

func exitCode(err error) int {
	var werr *window.Error
	var cerr *config.Error
	var uerr *usageError
	if errors.As(err, &werr) || errors.As(err, &cerr) || errors.As(err, &uerr) {
		return exitConfigError
	}
	return exitFailure
}

func init() {
	// Add a persistent flag for verbose output, available to all commands.
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose/debug logging")
	rootCmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &usageError{err: err}
	})
	rootCmd.PersistentFlags().StringP("config", "c", "", "Path to the YAML config (default $REPORT_CONFIG or "+config.DefaultPath+")")
}
