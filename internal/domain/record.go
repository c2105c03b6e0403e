package domain

import "time"

// DayLayout is the day-resolution format used for record dates and report paths.
const DayLayout = "2006-01-02"

// Window is the inclusive [Since, Until] interval a report covers.
type Window struct {
	Since time.Time
	Until time.Time
	// Days is the whole-day span between Since and Until, for display only.
	Days int
}

// Label returns the "<since>-<until>" name used for the output directory.
func (w Window) Label() string {
	return w.Since.Format(DayLayout) + "-" + w.Until.Format(DayLayout)
}

// CommitRecord is the flat projection of one fetched commit.
type CommitRecord struct {
	Date          string `json:"date"`
	Repo          string `json:"repo"`
	Message       string `json:"message"`
	BilledMinutes int    `json:"billed_minutes"`
}

// IssueRecord is the flat projection of one fetched issue.
type IssueRecord struct {
	Repo          string `json:"repo"`
	State         string `json:"state"`
	Creator       string `json:"creator"`
	Assignees     string `json:"assignees"`
	Message       string `json:"message"`
	Labels        string `json:"labels"`
	CreatedAt     string `json:"created_at"`
	UpdatedAt     string `json:"updated_at"`
	ClosedAt      string `json:"closed_at"`
	Comments      int    `json:"comments"`
	Milestone     string `json:"milestone"`
	URL           string `json:"url"`
	Duration      int    `json:"duration"`
	BilledMinutes int    `json:"billed_minutes"`
}

// Report is the complete result of one run, ready to be emitted.
type Report struct {
	Window  Window
	Commits []CommitRecord
	Issues  []IssueRecord
	Stats   Stats
}
