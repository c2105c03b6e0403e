package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/naka-gawa/activity-report/internal/config"
	"github.com/naka-gawa/activity-report/internal/domain"
	"github.com/naka-gawa/activity-report/internal/gateway"
	"github.com/naka-gawa/activity-report/internal/report"
	"github.com/naka-gawa/activity-report/internal/usecase"
	"github.com/naka-gawa/activity-report/internal/window"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Collects commits and issues for a date window and writes report files",
	Long: `Collects commits and issues of every configured repository for the given
window and writes commits.csv, issues.csv, summary.md, summary.json and
summary.html under <output_dir>/<since>-<until>/.

Issues are only bounded by --since; GitHub has no upper bound for issue listing.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		verbose, _ := cmd.Flags().GetBool("verbose")
		logger := log.New(io.Discard, "", log.LstdFlags) // Default: discard all logs.
		if verbose {
			logger.SetOutput(os.Stderr)
		}

		w, err := resolveWindow(cmd, time.Now())
		if err != nil {
			return err
		}

		configPath, _ := cmd.Flags().GetString("config")
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}

		githubGateway, err := gateway.NewGitHubGateway(cfg.Token, cfg.CacheDir, logger)
		if err != nil {
			return fmt.Errorf("failed to create GitHub gateway: %w", err)
		}
		return run(cmd.Context(), githubGateway, cfg, w, logger)
	},
}

// resolveWindow picks trailing-day mode when --days is set, explicit range otherwise.
func resolveWindow(cmd *cobra.Command, now time.Time) (domain.Window, error) {
	if cmd.Flags().Changed("days") {
		if cmd.Flags().Changed("since") || cmd.Flags().Changed("until") {
			return domain.Window{}, &window.Error{Flag: "days", Err: errors.New("cannot be combined with --since or --until")}
		}
		days, _ := cmd.Flags().GetInt("days")
		return window.Trailing(now, days)
	}
	since, _ := cmd.Flags().GetString("since")
	until, _ := cmd.Flags().GetString("until")
	return window.Resolve(now, since, until)
}

func run(ctx context.Context, fetcher gateway.Fetcher, cfg *config.Config, w domain.Window, logger *log.Logger) error {
	collector := usecase.NewCollector(fetcher, usecase.Options{
		Repositories:               cfg.Repositories,
		LabelsToSkip:               cfg.LabelsToSkip,
		DurationCeilingMinutes:     cfg.DurationCeilingMinutes,
		BugLabel:                   cfg.BugLabel,
		RequireAssigneeForDuration: cfg.RequireAssigneeForDuration,
	}, logger)

	r, err := collector.Collect(ctx, w)
	if err != nil {
		return fmt.Errorf("failed to collect activity: %w", err)
	}

	writer := report.NewWriter(cfg.OutputDir, logger)
	if err := writer.Write(r); err != nil {
		return fmt.Errorf("failed to write some reports: %w", err)
	}
	fmt.Fprintln(os.Stdout, writer.Dir(w))
	return nil
}

func init() {
	rootCmd.AddCommand(reportCmd)
	reportCmd.Flags().String("since", "", "Start date of the window (YYYY-MM-DD)")
	reportCmd.Flags().String("until", "", "End date of the window (YYYY-MM-DD, default now)")
	reportCmd.Flags().Int("days", 0, "Report the trailing N days instead of --since/--until")
}
