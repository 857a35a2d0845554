// Package services orchestrates the stores: materializing recurring
// transactions and checking when a template is due.
package services

import (
	"fmt"
	"time"

	"budget/internal/core"
)

// DuenessChecker decides whether a recurring template should produce an
// occurrence. lastRun is the template's most recent materialization;
// start anchors the target day for calendar cadences.
type DuenessChecker interface {
	IsDue(lastRun, now time.Time, start core.Date) bool
}

// DailyChecker fires once per calendar day.
type DailyChecker struct{}

func (DailyChecker) IsDue(lastRun, now time.Time, _ core.Date) bool {
	if lastRun.IsZero() {
		return true
	}
	return lastRun.Format("2006-01-02") != now.Format("2006-01-02")
}

// WeeklyChecker fires when at least 7 days have passed.
type WeeklyChecker struct{}

func (WeeklyChecker) IsDue(lastRun, now time.Time, _ core.Date) bool {
	if lastRun.IsZero() {
		return true
	}
	return now.Sub(lastRun).Hours()/24 >= 7
}

// MonthlyChecker fires once per month on the template's start day,
// clamped into short months.
type MonthlyChecker struct{}

func (MonthlyChecker) IsDue(lastRun, now time.Time, start core.Date) bool {
	if lastRun.IsZero() {
		return true
	}
	if lastRun.Year() == now.Year() && lastRun.Month() == now.Month() {
		return false
	}
	return now.Day() >= clampDay(start.Day(), now)
}

// YearlyChecker fires once per year on the template's start month and day.
type YearlyChecker struct{}

func (YearlyChecker) IsDue(lastRun, now time.Time, start core.Date) bool {
	if lastRun.IsZero() {
		return true
	}
	if lastRun.Year() == now.Year() {
		return false
	}
	if int(now.Month()) < start.Month() {
		return false
	}
	if int(now.Month()) == start.Month() {
		return now.Day() >= clampDay(start.Day(), now)
	}
	return true
}

// IntervalChecker fires every N days.
type IntervalChecker struct {
	Days int
}

func (c IntervalChecker) IsDue(lastRun, now time.Time, _ core.Date) bool {
	if lastRun.IsZero() {
		return true
	}
	return now.Sub(lastRun).Hours()/24 >= float64(c.Days)
}

// clampDay pulls a target day-of-month into now's month, so a template
// anchored on the 31st still fires in February.
func clampDay(day int, now time.Time) int {
	lastDay := time.Date(now.Year(), now.Month()+1, 0, 0, 0, 0, 0, time.UTC).Day()
	if day > lastDay {
		return lastDay
	}
	return day
}

var cadenceCheckers = map[core.Cadence]DuenessChecker{
	core.Daily:   DailyChecker{},
	core.Weekly:  WeeklyChecker{},
	core.Monthly: MonthlyChecker{},
	core.Yearly:  YearlyChecker{},
}

// CheckerFor returns the dueness checker for a recurrence.
func CheckerFor(r core.Recurrence) (DuenessChecker, error) {
	if r.IntervalDays > 0 {
		return IntervalChecker{Days: r.IntervalDays}, nil
	}
	checker, ok := cadenceCheckers[r.Every]
	if !ok {
		return nil, fmt.Errorf("unknown cadence: %s", r.Every)
	}
	return checker, nil
}
