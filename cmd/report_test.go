package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/naka-gawa/activity-report/internal/config"
	"github.com/naka-gawa/activity-report/internal/gateway"
	"github.com/naka-gawa/activity-report/internal/window"
)

// stubFetcher serves canned commits and issues per repository.
type stubFetcher struct {
	commits map[string][]gateway.Commit
	issues  map[string][]gateway.Issue
}

func (s *stubFetcher) FetchCommits(_ context.Context, repo string, _, _ time.Time) ([]gateway.Commit, error) {
	return s.commits[repo], nil
}

func (s *stubFetcher) FetchIssues(_ context.Context, repo string, _ time.Time) ([]gateway.Issue, error) {
	return s.issues[repo], nil
}

func (s *stubFetcher) FetchRateLimit(context.Context) (gateway.RateLimit, error) {
	return gateway.RateLimit{Limit: 5000, Remaining: 5000}, nil
}

func newReportFlags(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	c := &cobra.Command{}
	c.Flags().String("since", "", "")
	c.Flags().String("until", "", "")
	c.Flags().Int("days", 0, "")
	require.NoError(t, c.Flags().Parse(args))
	return c
}

func TestResolveWindow(t *testing.T) {
	now := time.Date(2024, 1, 20, 12, 0, 0, 0, time.UTC)

	w, err := resolveWindow(newReportFlags(t, "--since=2024-01-01", "--until=2024-01-14"), now)
	require.NoError(t, err)
	assert.Equal(t, "2024-01-01-2024-01-14", w.Label())

	w, err = resolveWindow(newReportFlags(t, "--days=14"), now)
	require.NoError(t, err)
	assert.Equal(t, "2024-01-06-2024-01-20", w.Label())

	_, err = resolveWindow(newReportFlags(t), now)
	assert.Equal(t, exitConfigError, exitCode(err))

	_, err = resolveWindow(newReportFlags(t, "--since=2024-01-01", "--days=3"), now)
	var werr *window.Error
	assert.True(t, errors.As(err, &werr))
}

func TestExitCode(t *testing.T) {
	testCases := []struct {
		name     string
		err      error
		expected int
	}{
		{name: "window error", err: &window.Error{Flag: "since", Err: errors.New("bad")}, expected: exitConfigError},
		{name: "config error", err: &config.Error{Reason: "no repositories configured"}, expected: exitConfigError},
		{name: "flag error", err: &usageError{err: errors.New("invalid argument")}, expected: exitConfigError},
		{name: "fetch error", err: &gateway.FetchError{Repo: "acme/api", Op: "list commits", Err: errors.New("500")}, expected: exitFailure},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var buf bytes.Buffer
			assert.Equal(t, tc.expected, reportError(&buf, tc.err))
			assert.Contains(t, buf.String(), tc.err.Error())
		})
	}
}

func TestRun_EndToEnd(t *testing.T) {
	created := time.Date(2024, 1, 5, 10, 0, 0, 0, time.UTC)
	closed := created.Add(120 * time.Minute)
	fetcher := &stubFetcher{
		commits: map[string][]gateway.Commit{
			"acme/api": {{Repo: "acme/api", AuthorDate: time.Date(2024, 1, 3, 9, 0, 0, 0, time.UTC), Message: "init $30$"}},
			"acme/web": {{Repo: "acme/web", AuthorDate: time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC), Message: "fix"}},
		},
		issues: map[string][]gateway.Issue{
			"acme/api": {{Repo: "acme/api", State: "open", Assignees: []string{"bob", "carol"}, Labels: []string{"bug"}, CreatedAt: created}},
			"acme/web": {{Repo: "acme/web", State: "closed", CreatedAt: created, ClosedAt: &closed}},
		},
	}

	cfg, err := config.Parse([]byte("repositories: [acme/api, acme/web]\n"))
	require.NoError(t, err)
	cfg.OutputDir = filepath.Join(t.TempDir(), "reports")

	w, err := window.Resolve(time.Now(), "2024-01-01", "2024-01-14")
	require.NoError(t, err)

	require.NoError(t, run(context.Background(), fetcher, cfg, w, log.New(io.Discard, "", 0)))

	dir := filepath.Join(cfg.OutputDir, "2024-01-01-2024-01-14")
	for _, name := range []string{"commits.csv", "issues.csv", "summary.md", "summary.json", "summary.html"} {
		assert.FileExists(t, filepath.Join(dir, name))
	}

	raw, err := os.ReadFile(filepath.Join(dir, "summary.json"))
	require.NoError(t, err)
	var stats map[string]int
	require.NoError(t, json.Unmarshal(raw, &stats))
	assert.Equal(t, 2, stats["commits"])
	assert.Equal(t, 30, stats["billed_minutes"])
	assert.Equal(t, 1, stats["issues_bugs"])
	assert.Equal(t, 1, stats["issues_shared_open"])
	assert.Equal(t, 1, stats["issues_single_closed"])
	assert.Equal(t, 2, stats["issues_single_duration"])
}
