// Package deadline classifies tasks against their effective deadline in a
// fixed calendar timezone.
package deadline

import (
	"time"

	"taskplanner/model"
)

// DefaultTime is used when a task has no time of day or an unparsable one.
const DefaultTime = "23:59"

// soonDays is the UI "due soon" horizon, counted in calendar days from the
// start of today.
const soonDays = 3

type Classification int

const (
	Safe Classification = iota
	Done
	Overdue
	DeadlineToday
	DeadlineSoon
)

func (c Classification) String() string {
	switch c {
	case Done:
		return "done"
	case Overdue:
		return "overdue"
	case DeadlineToday:
		return "deadlineToday"
	case DeadlineSoon:
		return "deadlineSoon"
	default:
		return "safe"
	}
}

// Evaluator carries the calendar timezone every computation is done in.
type Evaluator struct {
	Location *time.Location
}

func NewEvaluator(loc *time.Location) Evaluator {
	if loc == nil {
		loc = time.UTC
	}
	return Evaluator{Location: loc}
}

// ParseClock parses a strict "HH:mm" string.
func ParseClock(hhmm string) (hour, minute int, ok bool) {
	if len(hhmm) != 5 || hhmm[2] != ':' {
		return 0, 0, false
	}
	t, err := time.Parse("15:04", hhmm)
	if err != nil {
		return 0, 0, false
	}
	return t.Hour(), t.Minute(), true
}

// EffectiveDeadline places the calendar date at hhmm in the evaluator's
// location. The date's own Y/M/D is used as-is; it is a date, not an instant.
// Seconds are pinned to 59.999 so the deadline minute counts as not yet
// elapsed until it is over.
func (e Evaluator) EffectiveDeadline(date time.Time, hhmm string) time.Time {
	hour, minute, ok := ParseClock(hhmm)
	if !ok {
		hour, minute, _ = ParseClock(DefaultTime)
	}
	y, m, d := date.Date()
	return time.Date(y, m, d, hour, minute, 59, int(999*time.Millisecond), e.Location)
}

// TaskDeadline returns the effective deadline of a task and false when it
// has none.
func (e Evaluator) TaskDeadline(task model.Tasks) (time.Time, bool) {
	if task.DeadlineDate == nil {
		return time.Time{}, false
	}
	return e.EffectiveDeadline(*task.DeadlineDate, task.Clock()), true
}

// StartOfDay is midnight of t's calendar day in the evaluator's location.
func (e Evaluator) StartOfDay(t time.Time) time.Time {
	y, m, d := t.In(e.Location).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, e.Location)
}

// DigestDate is the YYYY-MM-DD key of now's calendar day.
func (e Evaluator) DigestDate(now time.Time) string {
	return now.In(e.Location).Format("2006-01-02")
}

func (e Evaluator) Classify(task model.Tasks, now time.Time) Classification {
	if task.IsDone() {
		return Done
	}
	due, ok := e.TaskDeadline(task)
	if !ok {
		return Safe
	}
	if now.After(due) {
		return Overdue
	}

	today := e.StartOfDay(now)
	if due.Before(today.AddDate(0, 0, 1)) {
		return DeadlineToday
	}
	if due.Before(today.AddDate(0, 0, soonDays)) {
		return DeadlineSoon
	}
	return Safe
}

func (e Evaluator) IsOverdue(task model.Tasks, now time.Time) bool {
	return e.Classify(task, now) == Overdue
}
