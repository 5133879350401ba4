package model

import (
	"fmt"
	"strings"
	"time"

	"gorm.io/datatypes"
)

type NotificationKind string

const (
	KindEmailSent NotificationKind = "EMAIL_SENT"
	KindDueSoon   NotificationKind = "DUE_SOON"
	KindOverdue   NotificationKind = "OVERDUE"
)

// NotificationKinds lists every system notification kind. A user owns at
// most one document per kind.
var NotificationKinds = []NotificationKind{KindEmailSent, KindDueSoon, KindOverdue}

// ParseNotificationKind accepts the canonical names as well as lower-case and
// dash separated spellings ("due-soon").
func ParseNotificationKind(s string) (NotificationKind, error) {
	k := NotificationKind(strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), "-", "_")))
	switch k {
	case KindEmailSent, KindDueSoon, KindOverdue:
		return k, nil
	}
	return "", fmt.Errorf("unknown notification kind %q", s)
}

// Counted reports whether the kind is reconciled from task counts rather than
// from content.
func (k NotificationKind) Counted() bool {
	return k == KindDueSoon || k == KindOverdue
}

type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarn     Severity = "warn"
	SeverityCritical Severity = "critical"
)

type SystemNotification struct {
	// (UserID, Kind) is the selector and the only unique key.
	UserID          uint             `gorm:"column:user_id;primaryKey;autoIncrement:false"`
	Kind            NotificationKind `gorm:"column:kind;primaryKey;type:varchar(16)"`
	ID              string           `gorm:"column:id;type:varchar(36);index"`
	Title           string           `gorm:"column:title;type:varchar(255);not null"`
	Message         string           `gorm:"column:message;type:text"`
	Severity        Severity         `gorm:"column:severity;type:varchar(16);not null"`
	Unread          bool             `gorm:"column:unread;not null"`
	LastTriggeredAt time.Time        `gorm:"column:last_triggered_at"`

	// TrackingMetadata only holds state used to detect change (the current
	// count). It is never shown to the user.
	TrackingMetadata datatypes.JSONMap `gorm:"column:tracking_metadata"`
	CreatedAt        time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

func (SystemNotification) TableName() string {
	return "system_notifications"
}

// SameContent compares the user-visible fields.
func (n SystemNotification) SameContent(o SystemNotification) bool {
	return n.Title == o.Title && n.Message == o.Message && n.Severity == o.Severity
}
