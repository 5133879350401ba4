package reminder

import (
	"context"
	"errors"

	"taskplanner/model"
)

var (
	ErrUserNotFound         = errors.New("user not found")
	ErrNotificationNotFound = errors.New("notification not found")
)

// TaskSource reads the tasks that can still become overdue: status other
// than done and a deadline date set.
type TaskSource interface {
	ActiveTasksWithDeadline(ctx context.Context) ([]model.Tasks, error)
	ActiveTasksWithDeadlineForUser(ctx context.Context, userID uint) ([]model.Tasks, error)
}

// UserDirectory returns ErrUserNotFound for unknown ids.
type UserDirectory interface {
	GetUser(ctx context.Context, userID uint) (*model.User, error)
}

// NotificationStore persists one SystemNotification per (user, kind).
// Get returns nil, nil when the document does not exist; marking a missing
// document read returns ErrNotificationNotFound.
type NotificationStore interface {
	GetSystemNotification(ctx context.Context, userID uint, kind model.NotificationKind) (*model.SystemNotification, error)
	UpsertSystemNotification(ctx context.Context, n *model.SystemNotification) error
	ListSystemNotifications(ctx context.Context, userID uint) ([]model.SystemNotification, error)
	ListTrackedUsers(ctx context.Context) ([]uint, error)
	MarkSystemNotificationRead(ctx context.Context, userID uint, kind model.NotificationKind) error
}

// DigestLogStore is append-only. CreateDigestLog reports created=false, and
// no error, when an entry for the same user and day already exists.
type DigestLogStore interface {
	GetDigestLog(ctx context.Context, userID uint, digestDate string) (*model.DigestLog, error)
	CreateDigestLog(ctx context.Context, entry *model.DigestLog) (created bool, err error)
}

type SendResult struct {
	Success   bool
	MessageID string
	Error     error
}

// Mailer is best-effort: failures are reported in SendResult, never panicked.
type Mailer interface {
	Send(ctx context.Context, to, subject, htmlBody string) SendResult
}

// Pusher delivers a device notification when a system notification turns
// unread.
type Pusher interface {
	Push(ctx context.Context, user *model.User, n *model.SystemNotification) error
}
