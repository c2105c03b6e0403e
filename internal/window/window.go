// Package window resolves the date interval a report covers.
package window

import (
	"errors"
	"fmt"
	"time"

	"github.com/naka-gawa/activity-report/internal/domain"
)

// Error reports an invalid or missing date argument.
type Error struct {
	Flag  string
	Value string
	Err   error
}

func (e *Error) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("--%s: %v", e.Flag, e.Err)
	}
	return fmt.Sprintf("--%s=%q: %v", e.Flag, e.Value, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

var (
	errMissing  = errors.New("a date in YYYY-MM-DD format is required")
	errInverted = errors.New("must not be before --since")
)

// Resolve builds a window from explicit dates. since is required; an empty
// until means "now". Dates are read in now's location.
func Resolve(now time.Time, since, until string) (domain.Window, error) {
	if since == "" {
		return domain.Window{}, &Error{Flag: "since", Err: errMissing}
	}
	loc := now.Location()
	from, err := time.ParseInLocation(domain.DayLayout, since, loc)
	if err != nil {
		return domain.Window{}, &Error{Flag: "since", Value: since, Err: err}
	}

	to := now
	if until != "" {
		day, err := time.ParseInLocation(domain.DayLayout, until, loc)
		if err != nil {
			return domain.Window{}, &Error{Flag: "until", Value: until, Err: err}
		}
		to = endOfDay(day)
	}
	if to.Before(from) {
		return domain.Window{}, &Error{Flag: "until", Value: until, Err: errInverted}
	}
	return newWindow(from, to), nil
}

// Trailing builds a window covering the last days days up to now.
func Trailing(now time.Time, days int) (domain.Window, error) {
	if days <= 0 {
		return domain.Window{}, &Error{Flag: "days", Value: fmt.Sprint(days), Err: errors.New("must be positive")}
	}
	return newWindow(startOfDay(now.AddDate(0, 0, -days)), now), nil
}

func newWindow(since, until time.Time) domain.Window {
	return domain.Window{
		Since: since,
		Until: until,
		Days:  int(until.Sub(since) / (24 * time.Hour)),
	}
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func endOfDay(t time.Time) time.Time {
	return startOfDay(t).AddDate(0, 0, 1).Add(-time.Nanosecond)
}
