// Package usecase contains the business logic of the application.
package usecase

import (
	"context"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"github.com/naka-gawa/activity-report/internal/annotate"
	"github.com/naka-gawa/activity-report/internal/domain"
	"github.com/naka-gawa/activity-report/internal/gateway"
)

// Options configures which repositories are collected and how issues are filtered.
type Options struct {
	Repositories           []string
	LabelsToSkip           []string
	DurationCeilingMinutes int
	BugLabel               string
	// RequireAssigneeForDuration leaves unassigned closed issues out of the
	// duration sums while still counting them as closed. By default (false)
	// an unassigned closed issue counts as single and its minutes go into the
	// single duration sum, so the average divides by the same issues it sums.
	RequireAssigneeForDuration bool
}

// Collector is the use case for building an activity report.
// It fans out one fetch per repository and merges the partial results.
type Collector struct {
	fetcher gateway.Fetcher
	opts    Options
	logger  *log.Logger
}

// NewCollector creates a new Collector instance.
func NewCollector(fetcher gateway.Fetcher, opts Options, logger *log.Logger) *Collector {
	return &Collector{
		fetcher: fetcher,
		opts:    opts,
		logger:  logger,
	}
}

// partial is what a single repository task hands back to the merging owner.
type partial[T any] struct {
	records []T
	stats   domain.Stats
}

// Collect runs the commit phase, then the issue phase, and returns the sorted
// records with normalized stats. Any failed repository fetch aborts the run.
func (c *Collector) Collect(ctx context.Context, w domain.Window) (*domain.Report, error) {
	c.logger.Println("Usecase: Starting collection...")
	c.checkBudget(ctx)

	report := &domain.Report{Window: w}
	report.Stats.Days = w.Days

	c.logger.Println("[1/2] Fetching commits...")
	commits, err := fanOut(ctx, c.opts.Repositories, func(ctx context.Context, repo string) (partial[domain.CommitRecord], error) {
		return c.collectCommits(ctx, repo, w)
	})
	if err != nil {
		return nil, err
	}

	c.logger.Println("[2/2] Fetching issues...")
	issues, err := fanOut(ctx, c.opts.Repositories, func(ctx context.Context, repo string) (partial[domain.IssueRecord], error) {
		return c.collectIssues(ctx, repo, w)
	})
	if err != nil {
		return nil, err
	}

	for _, p := range commits {
		report.Commits = append(report.Commits, p.records...)
		report.Stats.Merge(p.stats)
	}
	for _, p := range issues {
		report.Issues = append(report.Issues, p.records...)
		report.Stats.Merge(p.stats)
	}
	report.Stats.Normalize()

	sort.SliceStable(report.Commits, func(i, j int) bool {
		return report.Commits[i].Date < report.Commits[j].Date
	})
	sort.SliceStable(report.Issues, func(i, j int) bool {
		return report.Issues[i].State < report.Issues[j].State
	})

	c.logger.Printf("Usecase: Collected %d commits and %d issues.", len(report.Commits), len(report.Issues))
	return report, nil
}

// fanOut runs fn once per repository and returns the results in repository order.
func fanOut[T any](ctx context.Context, repos []string, fn func(context.Context, string) (T, error)) ([]T, error) {
	results := make([]T, len(repos))
	eg, egCtx := errgroup.WithContext(ctx)
	for i, repo := range repos {
		eg.Go(func() error {
			res, err := fn(egCtx, repo)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// checkBudget logs the remaining API budget. It never fails the run.
func (c *Collector) checkBudget(ctx context.Context) {
	limit, err := c.fetcher.FetchRateLimit(ctx)
	if err != nil {
		c.logger.Printf("Usecase: could not read rate limit: %v", err)
		return
	}
	c.logger.Printf("Usecase: %d/%d API requests left, reset at %s", limit.Remaining, limit.Limit, limit.ResetAt.Format(time.RFC3339))
	if needed := 2 * len(c.opts.Repositories); limit.Remaining < needed {
		c.logger.Printf("Usecase: WARNING: run needs %d requests but only %d are left", needed, limit.Remaining)
	}
}

func (c *Collector) collectCommits(ctx context.Context, repo string, w domain.Window) (partial[domain.CommitRecord], error) {
	commits, err := c.fetcher.FetchCommits(ctx, repo, w.Since, w.Until)
	if err != nil {
		return partial[domain.CommitRecord]{}, err
	}
	// Dates are reported in the window's zone so a commit inside the window
	// never gets a day outside of it.
	loc := w.Since.Location()
	var p partial[domain.CommitRecord]
	for _, commit := range commits {
		record := domain.CommitRecord{
			Date:          commit.AuthorDate.In(loc).Format(domain.DayLayout),
			Repo:          repo,
			Message:       annotate.Normalize(commit.Message),
			BilledMinutes: annotate.BilledMinutes(commit.Message),
		}
		p.records = append(p.records, record)
		p.stats.Commits++
		p.stats.BilledMinutes += record.BilledMinutes
	}
	return p, nil
}

func (c *Collector) collectIssues(ctx context.Context, repo string, w domain.Window) (partial[domain.IssueRecord], error) {
	issues, err := c.fetcher.FetchIssues(ctx, repo, w.Since)
	if err != nil {
		return partial[domain.IssueRecord]{}, err
	}
	var p partial[domain.IssueRecord]
	for _, issue := range issues {
		duration := durationMinutes(issue)
		if c.skipped(issue, duration) {
			p.stats.IssuesSkipped++
			continue
		}
		p.records = append(p.records, projectIssue(issue, duration, w.Since.Location()))
		c.classify(&p.stats, issue, duration)
	}
	return p, nil
}

func (c *Collector) skipped(issue gateway.Issue, duration int) bool {
	if len(issue.Labels) > 0 && lo.Contains(c.opts.LabelsToSkip, issue.Labels[0]) {
		return true
	}
	return duration > c.opts.DurationCeilingMinutes
}

func (c *Collector) classify(s *domain.Stats, issue gateway.Issue, duration int) {
	s.Issues++
	if lo.Contains(issue.Labels, c.opts.BugLabel) {
		s.IssuesBugs++
	}
	closed := issue.State == "closed"
	countDuration := len(issue.Assignees) > 0 || !c.opts.RequireAssigneeForDuration

	if len(issue.Assignees) > 1 {
		if closed {
			s.IssuesSharedClosed++
		} else {
			s.IssuesSharedOpen++
		}
		s.IssuesSharedDuration += duration
		return
	}
	if closed {
		s.IssuesSingleClosed++
	} else {
		s.IssuesSingleOpen++
	}
	if countDuration {
		s.IssuesSingleDuration += duration
	}
}

// durationMinutes is the time from creation to closing, or 0 for open issues.
func durationMinutes(issue gateway.Issue) int {
	if issue.ClosedAt == nil {
		return 0
	}
	return int(issue.ClosedAt.Sub(issue.CreatedAt).Minutes())
}

func projectIssue(issue gateway.Issue, duration int, loc *time.Location) domain.IssueRecord {
	record := domain.IssueRecord{
		Repo:          issue.Repo,
		State:         issue.State,
		Creator:       issue.Creator,
		Assignees:     strings.Join(issue.Assignees, ","),
		Message:       annotate.Normalize(issue.Title),
		Labels:        strings.Join(issue.Labels, ","),
		CreatedAt:     issue.CreatedAt.In(loc).Format(time.RFC3339),
		UpdatedAt:     issue.UpdatedAt.In(loc).Format(time.RFC3339),
		Comments:      issue.Comments,
		Milestone:     issue.Milestone,
		URL:           issue.URL,
		Duration:      duration,
		BilledMinutes: annotate.BilledMinutes(issue.Title),
	}
	if issue.ClosedAt != nil {
		record.ClosedAt = issue.ClosedAt.In(loc).Format(time.RFC3339)
	}
	return record
}
