// Package gateway provides a gateway to the GitHub API,
// abstracting away the underlying REST and GraphQL clients.
package gateway

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/google/go-github/v62/github"
	"github.com/gregjones/httpcache"
	"github.com/gregjones/httpcache/diskcache"
	"github.com/samber/lo"
	"github.com/shurcooL/githubv4"
	"golang.org/x/oauth2"

	"github.com/gofri/go-github-ratelimit/github_ratelimit"

	"github.com/naka-gawa/activity-report/internal/config"
)

// pageSize is the largest page GitHub serves. Only the first page is read.
const pageSize = 100

// Commit is the subset of a GitHub commit the reports use.
type Commit struct {
	Repo       string
	AuthorDate time.Time
	Message    string
}

// Issue is the subset of a GitHub issue the reports use.
type Issue struct {
	Repo      string
	State     string
	Creator   string
	Assignees []string
	Title     string
	Labels    []string
	CreatedAt time.Time
	UpdatedAt time.Time
	ClosedAt  *time.Time
	Comments  int
	Milestone string
	URL       string
}

// RateLimit is the primary API budget reported by GitHub.
type RateLimit struct {
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// FetchError identifies the repository whose fetch failed.
type FetchError struct {
	Repo string
	Op   string
	Err  error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("failed to %s for %s: %v", e.Op, e.Repo, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Fetcher defines the behavior of a gateway for fetching information from GitHub.
type Fetcher interface {
	FetchCommits(ctx context.Context, repo string, since, until time.Time) ([]Commit, error)
	// FetchIssues has no upper bound: GitHub only filters issues by a lower "since".
	FetchIssues(ctx context.Context, repo string, since time.Time) ([]Issue, error)
	FetchRateLimit(ctx context.Context) (RateLimit, error)
}

// GitHubGateway is the concrete implementation of the Fetcher interface.
type GitHubGateway struct {
	restClient    *github.Client
	graphqlClient *githubv4.Client
	logger        *log.Logger
}

type rateLimitQuery struct {
	RateLimit struct {
		Limit     int
		Remaining int
		ResetAt   githubv4.DateTime
	}
}

// NewGitHubGateway is a constructor that creates a new instance of GitHubGateway.
// Responses are cached under cacheDir so repeated runs revalidate with ETags;
// an empty cacheDir disables the cache.
func NewGitHubGateway(token, cacheDir string, logger *log.Logger) (Fetcher, error) {
	httpClient, err := newHTTPClient(token, cacheDir)
	if err != nil {
		return nil, err
	}
	return &GitHubGateway{
		restClient:    github.NewClient(httpClient),
		graphqlClient: githubv4.NewClient(httpClient),
		logger:        logger,
	}, nil
}

// newHTTPClient stacks oauth2 over the secondary rate limit waiter over the
// on-disk response cache.
func newHTTPClient(token, cacheDir string) (*http.Client, error) {
	var base http.RoundTripper = http.DefaultTransport
	if cacheDir != "" {
		base = drainingTransport{base: httpcache.NewTransport(diskcache.New(cacheDir))}
	}
	rateLimitWaiter, err := github_ratelimit.NewRateLimitWaiter(base, github_ratelimit.WithSingleSleepLimit(1*time.Hour, nil))
	if err != nil {
		return nil, fmt.Errorf("failed to create rate limit waiter: %w", err)
	}
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	return &http.Client{
		Transport: &oauth2.Transport{
			Base:   rateLimitWaiter,
			Source: ts,
		},
	}, nil
}

func (g *GitHubGateway) FetchCommits(ctx context.Context, repo string, since, until time.Time) ([]Commit, error) {
	owner, name, err := config.ParseRepository(repo)
	if err != nil {
		return nil, &FetchError{Repo: repo, Op: "list commits", Err: err}
	}
	opts := &github.CommitsListOptions{
		Since:       since,
		Until:       until,
		ListOptions: github.ListOptions{PerPage: pageSize},
	}
	commits, resp, err := g.restClient.Repositories.ListCommits(ctx, owner, name, opts)
	if err != nil {
		return nil, &FetchError{Repo: repo, Op: "list commits", Err: err}
	}
	if resp.NextPage != 0 {
		g.logger.Printf("  %s: more than %d commits in range, only the newest page is reported", repo, pageSize)
	}
	g.logger.Printf("  %s: fetched %d commits", repo, len(commits))

	return lo.Map(commits, func(c *github.RepositoryCommit, _ int) Commit {
		return Commit{
			Repo:       repo,
			AuthorDate: c.GetCommit().GetAuthor().GetDate().Time,
			Message:    c.GetCommit().GetMessage(),
		}
	}), nil
}

func (g *GitHubGateway) FetchIssues(ctx context.Context, repo string, since time.Time) ([]Issue, error) {
	owner, name, err := config.ParseRepository(repo)
	if err != nil {
		return nil, &FetchError{Repo: repo, Op: "list issues", Err: err}
	}
	opts := &github.IssueListByRepoOptions{
		State:       "all",
		Sort:        "updated",
		Since:       since,
		ListOptions: github.ListOptions{PerPage: pageSize},
	}
	issues, resp, err := g.restClient.Issues.ListByRepo(ctx, owner, name, opts)
	if err != nil {
		return nil, &FetchError{Repo: repo, Op: "list issues", Err: err}
	}
	if resp.NextPage != 0 {
		g.logger.Printf("  %s: more than %d issues updated since %s, only the first page is reported", repo, pageSize, since.Format(time.DateOnly))
	}
	g.logger.Printf("  %s: fetched %d issues", repo, len(issues))

	return lo.Map(issues, func(i *github.Issue, _ int) Issue {
		return mapIssue(repo, i)
	}), nil
}

func mapIssue(repo string, i *github.Issue) Issue {
	issue := Issue{
		Repo:    repo,
		State:   i.GetState(),
		Creator: i.GetUser().GetLogin(),
		Assignees: lo.Map(i.Assignees, func(u *github.User, _ int) string {
			return u.GetLogin()
		}),
		Title: i.GetTitle(),
		Labels: lo.Map(i.Labels, func(l *github.Label, _ int) string {
			return l.GetName()
		}),
		CreatedAt: i.GetCreatedAt().Time,
		UpdatedAt: i.GetUpdatedAt().Time,
		Comments:  i.GetComments(),
		Milestone: i.GetMilestone().GetTitle(),
		URL:       i.GetHTMLURL(),
	}
	if i.ClosedAt != nil {
		closed := i.ClosedAt.Time
		issue.ClosedAt = &closed
	}
	return issue
}

// drainingTransport reads every body to EOF on Close. httpcache only stores a
// response once its body hit EOF, and the JSON decoder may stop short of it.
type drainingTransport struct {
	base http.RoundTripper
}

func (t drainingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.base.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	resp.Body = drainingBody{resp.Body}
	return resp, nil
}

type drainingBody struct {
	io.ReadCloser
}

func (b drainingBody) Close() error {
	_, _ = io.Copy(io.Discard, b.ReadCloser)
	return b.ReadCloser.Close()
}

// FetchRateLimit reads the remaining primary API budget through GraphQL.
func (g *GitHubGateway) FetchRateLimit(ctx context.Context) (RateLimit, error) {
	var q rateLimitQuery
	if err := g.graphqlClient.Query(ctx, &q, nil); err != nil {
		return RateLimit{}, fmt.Errorf("failed to execute GraphQL query for rate limit: %w", err)
	}
	return RateLimit{
		Limit:     q.RateLimit.Limit,
		Remaining: q.RateLimit.Remaining,
		ResetAt:   q.RateLimit.ResetAt.Time,
	}, nil
}
