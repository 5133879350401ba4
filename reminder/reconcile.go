package reminder

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"gorm.io/datatypes"

	"taskplanner/model"
)

const (
	countKey       = "count"
	legacyCountKey = "lastCount"
)

// ReadTrackedCount returns the count a DUE_SOON/OVERDUE document was last
// reconciled with. Documents written before the metadata rename carry the
// count under the legacy key.
func ReadTrackedCount(n *model.SystemNotification) int {
	if n == nil || n.TrackingMetadata == nil {
		return 0
	}
	for _, key := range []string{countKey, legacyCountKey} {
		v, ok := n.TrackingMetadata[key]
		if !ok {
			continue
		}
		if c, ok := asInt(v); ok {
			return c
		}
	}
	return 0
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case uint:
		return int(n), true
	case uint64:
		return int(n), true
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return 0, false
		}
		return int(n), true
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, false
		}
		return int(i), true
	}
	return 0, false
}

// Outcome describes what one reconciliation step did to a document.
type Outcome struct {
	Kind         model.NotificationKind
	Written      bool
	BecameUnread bool
	Notification *model.SystemNotification
}

type Reconciler struct {
	store NotificationStore
}

func NewReconciler(store NotificationStore) *Reconciler {
	return &Reconciler{store: store}
}

// ReconcileCounts brings the DUE_SOON and OVERDUE documents of a user in line
// with the bucket. A nil bucket means both counts are zero. Both kinds are
// attempted even when the first fails.
func (r *Reconciler) ReconcileCounts(ctx context.Context, userID uint, b *UserBucket, now time.Time) ([]Outcome, error) {
	var (
		outcomes []Outcome
		errs     []error
	)
	for _, step := range []struct {
		kind  model.NotificationKind
		count int
	}{
		{model.KindDueSoon, b.UpcomingCount()},
		{model.KindOverdue, b.OverdueCount()},
	} {
		o, err := r.reconcileCount(ctx, userID, step.kind, step.count, now)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		outcomes = append(outcomes, o)
	}
	return outcomes, errors.Join(errs...)
}

func (r *Reconciler) reconcileCount(ctx context.Context, userID uint, kind model.NotificationKind, next int, now time.Time) (Outcome, error) {
	out := Outcome{Kind: kind}

	prev, err := r.store.GetSystemNotification(ctx, userID, kind)
	if err != nil {
		return out, fmt.Errorf("loading %s notification for user %d: %w", kind, userID, err)
	}
	previous := ReadTrackedCount(prev)
	existed := prev != nil

	if next == previous {
		out.Notification = prev
		return out, nil
	}

	doc := base(prev, userID, kind)
	doc.Title, doc.Message, doc.Severity = countContent(kind, next)
	doc.LastTriggeredAt = now
	doc.TrackingMetadata = datatypes.JSONMap{countKey: next}

	switch {
	case next > previous, !existed && next > 0:
		doc.Unread = true
	default:
		// A shrinking count keeps whatever read state the user left it in.
		doc.Unread = prev != nil && prev.Unread
	}

	if err := r.store.UpsertSystemNotification(ctx, doc); err != nil {
		return out, fmt.Errorf("upserting %s notification for user %d: %w", kind, userID, err)
	}

	out.Written = true
	out.BecameUnread = doc.Unread && (prev == nil || !prev.Unread)
	out.Notification = doc
	return out, nil
}

// SyncEmailSent mirrors a sent digest-log entry into the user's EMAIL_SENT
// notification. Unchanged content only refreshes LastTriggeredAt; changed
// content is replaced and marked unread. Entries that were not sent are
// ignored.
func (r *Reconciler) SyncEmailSent(ctx context.Context, userID uint, entry *model.DigestLog, now time.Time) (Outcome, error) {
	out := Outcome{Kind: model.KindEmailSent}
	if entry == nil || entry.Status != model.DigestSent {
		return out, nil
	}

	prev, err := r.store.GetSystemNotification(ctx, userID, model.KindEmailSent)
	if err != nil {
		return out, fmt.Errorf("loading %s notification for user %d: %w", model.KindEmailSent, userID, err)
	}

	candidate := base(prev, userID, model.KindEmailSent)
	candidate.Title, candidate.Message, candidate.Severity = emailSentContent(entry)
	candidate.LastTriggeredAt = now

	if prev == nil || !prev.SameContent(*candidate) {
		candidate.Unread = true
	}

	if err := r.store.UpsertSystemNotification(ctx, candidate); err != nil {
		return out, fmt.Errorf("upserting %s notification for user %d: %w", model.KindEmailSent, userID, err)
	}

	out.Written = true
	out.BecameUnread = candidate.Unread && (prev == nil || !prev.Unread)
	out.Notification = candidate
	return out, nil
}

// base copies the persisted document, or starts a new one for the selector.
func base(prev *model.SystemNotification, userID uint, kind model.NotificationKind) *model.SystemNotification {
	if prev == nil {
		return &model.SystemNotification{UserID: userID, Kind: kind}
	}
	doc := *prev
	doc.UserID = userID
	doc.Kind = kind
	return &doc
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

func countContent(kind model.NotificationKind, n int) (title, message string, severity model.Severity) {
	switch kind {
	case model.KindOverdue:
		if n == 0 {
			return "No overdue tasks", "You're all caught up. Nothing is past its deadline.", model.SeverityInfo
		}
		return fmt.Sprintf("%d overdue %s", n, plural(n, "task", "tasks")),
			fmt.Sprintf("%d %s passed %s deadline.", n, plural(n, "task has", "tasks have"), plural(n, "its", "their")),
			model.SeverityCritical
	default:
		if n == 0 {
			return "No tasks due soon", "Nothing is due in the next 48 hours.", model.SeverityInfo
		}
		return fmt.Sprintf("%d %s due soon", n, plural(n, "task", "tasks")),
			fmt.Sprintf("%d %s due within the next 48 hours.", n, plural(n, "task is", "tasks are")),
			model.SeverityWarn
	}
}

func emailSentContent(entry *model.DigestLog) (title, message string, severity model.Severity) {
	return "Daily digest sent",
		fmt.Sprintf("Your digest for %s was e-mailed: %d overdue, %d due soon.",
			entry.DigestDate, entry.OverdueCount, entry.UpcomingCount),
		model.SeverityInfo
}
