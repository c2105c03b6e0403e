package report

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/naka-gawa/activity-report/internal/domain"
)

func testReport() *domain.Report {
	return &domain.Report{
		Window: domain.Window{
			Since: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			Until: time.Date(2024, 1, 14, 23, 59, 59, 0, time.UTC),
			Days:  13,
		},
		Commits: []domain.CommitRecord{
			{Date: "2024-01-02", Repo: "acme/web", Message: "fix"},
			{Date: "2024-01-03", Repo: "acme/api", Message: "init, with comma $30$", BilledMinutes: 30},
		},
		Issues: []domain.IssueRecord{
			{Repo: "acme/web", State: "closed", Message: "Docs", Duration: 120},
			{Repo: "acme/api", State: "open", Assignees: "bob,carol", Labels: "bug", Message: "a | b <script>alert(1)</script>"},
		},
		Stats: domain.Stats{Days: 13, Commits: 2, BilledMinutes: 30, IssuesBugs: 1, IssuesSharedOpen: 1, IssuesSingleClosed: 1, IssuesSingleDuration: 2},
	}
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestWriter_Write(t *testing.T) {
	base := t.TempDir()
	writer := NewWriter(base, log.New(io.Discard, "", 0))
	r := testReport()

	require.NoError(t, writer.Write(r))

	dir := filepath.Join(base, "2024-01-01-2024-01-14")
	assert.Equal(t, dir, writer.Dir(r.Window))

	commits := readCSV(t, filepath.Join(dir, CommitsCSV))
	assert.Equal(t, [][]string{
		{"repo", "date", "message", "billed_minutes"},
		{"acme/web", "2024-01-02", "fix", "0"},
		{"acme/api", "2024-01-03", "init, with comma $30$", "30"},
	}, commits)

	issues := readCSV(t, filepath.Join(dir, IssuesCSV))
	require.Len(t, issues, 3)
	assert.Equal(t, issueFields, issues[0])
	assert.Equal(t, "closed", issues[1][1])
	assert.Equal(t, "120", issues[1][12])
	assert.Equal(t, "bob,carol", issues[2][3])

	raw, err := os.ReadFile(filepath.Join(dir, SummaryJSON))
	require.NoError(t, err)
	var summary map[string]int
	require.NoError(t, json.Unmarshal(raw, &summary))
	assert.Equal(t, 2, summary["commits"])
	assert.Equal(t, 30, summary["billed_minutes"])
	assert.Equal(t, 1, summary["issues_bugs"])
	assert.Equal(t, 1, summary["issues_shared_open"])
	assert.Equal(t, 1, summary["issues_single_closed"])
	assert.Equal(t, 2, summary["issues_single_duration"])

	md, err := os.ReadFile(filepath.Join(dir, SummaryMD))
	require.NoError(t, err)
	assert.Contains(t, string(md), "- **commits**: 2\n")
	assert.Contains(t, string(md), "| acme/api | 1 | 1 |")
	assert.Contains(t, string(md), `a \| b`)

	html, err := os.ReadFile(filepath.Join(dir, SummaryHTML))
	require.NoError(t, err)
	assert.Contains(t, string(html), "<table>")
	assert.NotContains(t, string(html), "<script>")
}

func TestWriter_Write_Failures(t *testing.T) {
	t.Run("one failing artifact does not stop the others", func(t *testing.T) {
		base := t.TempDir()
		writer := NewWriter(base, log.New(io.Discard, "", 0))
		r := testReport()

		// A directory in place of commits.csv makes that single write fail.
		require.NoError(t, os.MkdirAll(filepath.Join(writer.Dir(r.Window), CommitsCSV), 0o755))

		err := writer.Write(r)
		require.Error(t, err)
		assert.Contains(t, err.Error(), CommitsCSV)
		assert.False(t, strings.Contains(err.Error(), IssuesCSV))
		for _, name := range []string{IssuesCSV, SummaryMD, SummaryJSON, SummaryHTML} {
			assert.FileExists(t, filepath.Join(writer.Dir(r.Window), name))
		}
	})

	t.Run("output directory cannot be created", func(t *testing.T) {
		base := filepath.Join(t.TempDir(), "file")
		require.NoError(t, os.WriteFile(base, nil, 0o644))
		writer := NewWriter(base, log.New(io.Discard, "", 0))

		err := writer.Write(testReport())
		assert.ErrorContains(t, err, "failed to create report directory")
	})
}

func TestMarkdown_Empty(t *testing.T) {
	r := &domain.Report{Window: testReport().Window}
	out := string(Markdown(r))
	assert.Contains(t, out, "# Activity 2024-01-01-2024-01-14")
	assert.NotContains(t, out, "## Repositories")
	assert.NotContains(t, out, "## Issues")
}
