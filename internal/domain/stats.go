// Package domain contains the core data structures and domain logic for the application.
package domain

import (
	"github.com/montanaflynn/stats"
)

// Stats holds the aggregate counters of a single report run.
// Counters are accumulated by one owner after each fetch phase completes.
type Stats struct {
	Days                 int `json:"days"`
	Commits              int `json:"commits"`
	BilledMinutes        int `json:"billed_minutes"`
	Issues               int `json:"issues"`
	IssuesSkipped        int `json:"issues_skipped"`
	IssuesBugs           int `json:"issues_bugs"`
	IssuesSingleOpen     int `json:"issues_single_open"`
	IssuesSingleClosed   int `json:"issues_single_closed"`
	IssuesSharedOpen     int `json:"issues_shared_open"`
	IssuesSharedClosed   int `json:"issues_shared_closed"`
	IssuesSingleDuration int `json:"issues_single_duration"`
	IssuesSharedDuration int `json:"issues_shared_duration"`
}

// Counter is a single named stats value, in report order.
type Counter struct {
	Name  string
	Value int
}

// Counters returns the stats as an ordered list of name/value pairs.
func (s *Stats) Counters() []Counter {
	return []Counter{
		{"days", s.Days},
		{"commits", s.Commits},
		{"billed_minutes", s.BilledMinutes},
		{"issues", s.Issues},
		{"issues_skipped", s.IssuesSkipped},
		{"issues_bugs", s.IssuesBugs},
		{"issues_single_open", s.IssuesSingleOpen},
		{"issues_single_closed", s.IssuesSingleClosed},
		{"issues_shared_open", s.IssuesSharedOpen},
		{"issues_shared_closed", s.IssuesSharedClosed},
		{"issues_single_duration", s.IssuesSingleDuration},
		{"issues_shared_duration", s.IssuesSharedDuration},
	}
}

// Merge adds every counter of other into s.
func (s *Stats) Merge(other Stats) {
	s.Commits += other.Commits
	s.BilledMinutes += other.BilledMinutes
	s.Issues += other.Issues
	s.IssuesSkipped += other.IssuesSkipped
	s.IssuesBugs += other.IssuesBugs
	s.IssuesSingleOpen += other.IssuesSingleOpen
	s.IssuesSingleClosed += other.IssuesSingleClosed
	s.IssuesSharedOpen += other.IssuesSharedOpen
	s.IssuesSharedClosed += other.IssuesSharedClosed
	s.IssuesSingleDuration += other.IssuesSingleDuration
	s.IssuesSharedDuration += other.IssuesSharedDuration
}

// Normalize converts the summed duration minutes into the average resolution
// time in hours per closed issue. A bucket without closed issues keeps its raw
// minute sum. Normalize must run exactly once, after all accumulation.
func (s *Stats) Normalize() {
	s.IssuesSingleDuration = averageHours(s.IssuesSingleDuration, s.IssuesSingleClosed)
	s.IssuesSharedDuration = averageHours(s.IssuesSharedDuration, s.IssuesSharedClosed)
}

func averageHours(minutes, closed int) int {
	if closed == 0 {
		return minutes
	}
	rounded, err := stats.Round(float64(minutes)/60/float64(closed), 0)
	if err != nil {
		return minutes
	}
	return int(rounded)
}
