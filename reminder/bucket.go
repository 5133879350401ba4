package reminder

import (
	"sort"
	"time"

	"taskplanner/deadline"
	"taskplanner/model"
)

// UpcomingWindow is how far ahead a task counts as "due soon" for
// notifications and e-mail. It is independent of the evaluator's three-day
// display window.
const UpcomingWindow = 48 * time.Hour

// TaskSummary is the projection of a task carried in buckets and e-mails.
type TaskSummary struct {
	ID           int       `json:"id"`
	Title        string    `json:"title"`
	DeadlineDate string    `json:"deadlineDate"`
	DeadlineTime string    `json:"deadlineTime"`
	Status       string    `json:"status"`
	Priority     string    `json:"priority,omitempty"`
	Complexity   string    `json:"complexity,omitempty"`
	Due          time.Time `json:"-"`
}

type UserBucket struct {
	Overdue  []TaskSummary `json:"overdue"`
	Upcoming []TaskSummary `json:"upcoming"`
}

func (b *UserBucket) OverdueCount() int {
	if b == nil {
		return 0
	}
	return len(b.Overdue)
}

func (b *UserBucket) UpcomingCount() int {
	if b == nil {
		return 0
	}
	return len(b.Upcoming)
}

type Buckets map[uint]*UserBucket

// UserIDs returns the bucket owners in ascending order.
func (b Buckets) UserIDs() []uint {
	ids := make([]uint, 0, len(b))
	for id := range b {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func summarize(t model.Tasks, due time.Time) TaskSummary {
	hhmm := t.Clock()
	if _, _, ok := deadline.ParseClock(hhmm); !ok {
		hhmm = deadline.DefaultTime
	}
	return TaskSummary{
		ID:           t.TaskID,
		Title:        t.TaskName,
		DeadlineDate: t.DeadlineDate.Format("2006-01-02"),
		DeadlineTime: hhmm,
		Status:       t.Status,
		Priority:     t.Priority,
		Complexity:   t.Complexity,
		Due:          due,
	}
}

// Bucket groups tasks per owner into overdue and upcoming lists. The caller
// passes tasks already filtered to non-done ones with a deadline; tasks
// without a deadline or already done are still skipped. Tasks due later than
// UpcomingWindow are dropped.
func Bucket(e deadline.Evaluator, tasks []model.Tasks, now time.Time) Buckets {
	threshold := now.Add(UpcomingWindow)
	out := make(Buckets)

	for _, t := range tasks {
		if t.IsDone() {
			continue
		}
		due, ok := e.TaskDeadline(t)
		if !ok {
			continue
		}

		overdue := due.Before(now)
		upcoming := !overdue && !due.After(threshold)
		if !overdue && !upcoming {
			continue
		}

		b, ok := out[t.CreateBy]
		if !ok {
			b = &UserBucket{}
			out[t.CreateBy] = b
		}
		if overdue {
			b.Overdue = append(b.Overdue, summarize(t, due))
		} else {
			b.Upcoming = append(b.Upcoming, summarize(t, due))
		}
	}

	for _, b := range out {
		sortByDue(b.Overdue)
		sortByDue(b.Upcoming)
	}
	return out
}

func sortByDue(s []TaskSummary) {
	sort.SliceStable(s, func(i, j int) bool {
		if !s[i].Due.Equal(s[j].Due) {
			return s[i].Due.Before(s[j].Due)
		}
		return s[i].ID < s[j].ID
	})
}
