// Package scheduler runs the periodic and one-off background jobs: reminder
// emails and the asynchronous data migration.
package scheduler

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gorhill/cronexpr"
)

// Never is returned by Schedule.Next when a job should not run again.
var Never = time.Unix(4604952467, 0).UTC()

// Schedule knows when a job runs next.
type Schedule struct {
	asString string
	cronExpr *cronexpr.Expression
	interval time.Duration
	manual   bool
}

// Next returns the next run after now. prev is when the previous run
// finished, zero for the first run.
func (s *Schedule) Next(now, prev time.Time) time.Time {
	switch {
	case s.manual:
		return Never
	case s.cronExpr != nil:
		return s.cronExpr.Next(now)
	case prev.IsZero():
		return now
	}
	next := prev.Add(s.interval)
	if next.Before(now) {
		return now
	}
	return next
}

func (s *Schedule) String() string { return s.asString }

// Parse reads a schedule:
//   - a cron expression such as "0 * * * *" or "@hourly" (UTC)
//   - "with 10m interval", measured from the end of the previous run
//   - "manual", never scheduled, only run on demand
func Parse(expr string) (*Schedule, error) {
	expr = strings.TrimSpace(expr)
	switch {
	case expr == "manual":
		return &Schedule{asString: expr, manual: true}, nil
	case strings.HasPrefix(expr, "with "):
		tokens := strings.SplitN(expr, " ", 3)
		if len(tokens) != 3 || tokens[2] != "interval" {
			return nil, errors.New(`scheduler: expecting format "with <duration> interval"`)
		}
		interval, err := time.ParseDuration(tokens[1])
		if err != nil {
			return nil, fmt.Errorf("scheduler: bad duration %q: %w", tokens[1], err)
		}
		if interval <= 0 {
			return nil, fmt.Errorf("scheduler: bad interval %q, it must be positive", tokens[1])
		}
		return &Schedule{asString: expr, interval: interval}, nil
	}
	exp, err := cronexpr.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("scheduler: %w", err)
	}
	return &Schedule{asString: expr, cronExpr: exp}, nil
}
