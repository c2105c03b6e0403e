package report

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/samber/lo"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/naka-gawa/activity-report/internal/domain"
)

var (
	md        = goldmark.New(goldmark.WithExtensions(extension.Table))
	sanitizer = bluemonday.UGCPolicy()
	cellFixer = strings.NewReplacer("|", `\|`, "\n", " ", "\r", " ")
)

// Markdown renders the stats as a key/value list followed by per-repository
// counts and the issue listing.
func Markdown(r *domain.Report) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "# Activity %s\n\n", r.Window.Label())
	for _, c := range r.Stats.Counters() {
		fmt.Fprintf(&b, "- **%s**: %d\n", c.Name, c.Value)
	}

	commitsByRepo := lo.CountValuesBy(r.Commits, func(c domain.CommitRecord) string { return c.Repo })
	issuesByRepo := lo.CountValuesBy(r.Issues, func(i domain.IssueRecord) string { return i.Repo })
	repos := lo.Union(lo.Keys(commitsByRepo), lo.Keys(issuesByRepo))
	sort.Strings(repos)

	if len(repos) > 0 {
		b.WriteString("\n## Repositories\n\n| repo | commits | issues |\n| --- | ---: | ---: |\n")
		for _, repo := range repos {
			fmt.Fprintf(&b, "| %s | %d | %d |\n", cell(repo), commitsByRepo[repo], issuesByRepo[repo])
		}
	}

	if len(r.Issues) > 0 {
		b.WriteString("\n## Issues\n\n| repo | state | title | assignees | duration | billed |\n| --- | --- | --- | --- | ---: | ---: |\n")
		for _, i := range r.Issues {
			fmt.Fprintf(&b, "| %s | %s | %s | %s | %d | %d |\n",
				cell(i.Repo), i.State, cell(i.Message), cell(i.Assignees), i.Duration, i.BilledMinutes)
		}
	}
	return b.Bytes()
}

// HTML converts summary Markdown to sanitized HTML.
func HTML(markdown []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := md.Convert(markdown, &buf); err != nil {
		return nil, fmt.Errorf("failed to render markdown: %w", err)
	}
	return sanitizer.SanitizeBytes(buf.Bytes()), nil
}

func cell(s string) string {
	return cellFixer.Replace(s)
}
