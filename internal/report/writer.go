// Package report writes a collected report to disk as CSV, Markdown, JSON and HTML.
package report

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"

	"github.com/naka-gawa/activity-report/internal/domain"
)

// Artifact names inside the dated output directory.
const (
	CommitsCSV  = "commits.csv"
	IssuesCSV   = "issues.csv"
	SummaryMD   = "summary.md"
	SummaryJSON = "summary.json"
	SummaryHTML = "summary.html"
)

var (
	commitFields = []string{"repo", "date", "message", "billed_minutes"}
	issueFields  = []string{"repo", "state", "creator", "assignees", "message", "labels", "created_at", "updated_at", "closed_at", "comments", "milestone", "url", "duration", "billed_minutes"}
)

// Writer emits reports under baseDir/<since>-<until>/.
type Writer struct {
	baseDir string
	logger  *log.Logger
}

// NewWriter creates a new Writer instance.
func NewWriter(baseDir string, logger *log.Logger) *Writer {
	return &Writer{baseDir: baseDir, logger: logger}
}

// Dir returns the directory a report for w is written to.
func (wr *Writer) Dir(w domain.Window) string {
	return filepath.Join(wr.baseDir, w.Label())
}

// Write creates the output directory and writes every artifact. A failing
// artifact does not stop the others; all failures are returned joined.
func (wr *Writer) Write(r *domain.Report) error {
	dir := wr.Dir(r.Window)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}

	markdown := Markdown(r)
	artifacts := []struct {
		name   string
		render func() ([]byte, error)
	}{
		{CommitsCSV, func() ([]byte, error) { return commitsCSV(r.Commits) }},
		{IssuesCSV, func() ([]byte, error) { return issuesCSV(r.Issues) }},
		{SummaryMD, func() ([]byte, error) { return markdown, nil }},
		{SummaryJSON, func() ([]byte, error) { return json.MarshalIndent(r.Stats, "", "  ") }},
		{SummaryHTML, func() ([]byte, error) { return HTML(markdown) }},
	}

	var errs []error
	for _, a := range artifacts {
		path := filepath.Join(dir, a.name)
		b, err := a.render()
		if err == nil {
			err = os.WriteFile(path, b, 0o644)
		}
		if err != nil {
			wr.logger.Printf("Report: failed to write %s: %v", path, err)
			errs = append(errs, fmt.Errorf("%s: %w", a.name, err))
			continue
		}
		wr.logger.Printf("Report: wrote %s", path)
	}
	return errors.Join(errs...)
}

func commitsCSV(commits []domain.CommitRecord) ([]byte, error) {
	rows := make([][]string, 0, len(commits))
	for _, c := range commits {
		rows = append(rows, []string{c.Repo, c.Date, c.Message, strconv.Itoa(c.BilledMinutes)})
	}
	return encodeCSV(commitFields, rows)
}

func issuesCSV(issues []domain.IssueRecord) ([]byte, error) {
	rows := make([][]string, 0, len(issues))
	for _, i := range issues {
		rows = append(rows, []string{
			i.Repo,
			i.State,
			i.Creator,
			i.Assignees,
			i.Message,
			i.Labels,
			i.CreatedAt,
			i.UpdatedAt,
			i.ClosedAt,
			strconv.Itoa(i.Comments),
			i.Milestone,
			i.URL,
			strconv.Itoa(i.Duration),
			strconv.Itoa(i.BilledMinutes),
		})
	}
	return encodeCSV(issueFields, rows)
}

func encodeCSV(header []string, rows [][]string) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(header); err != nil {
		return nil, err
	}
	if err := w.WriteAll(rows); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
