package model

import "time"

type DigestStatus string

const (
	DigestSent   DigestStatus = "sent"
	DigestFailed DigestStatus = "failed"
)

// DigestLog records the outcome of one user's e-mail digest for one calendar
// day. (UserID, DigestDate) is unique and rows are never updated.
type DigestLog struct {
	ID            string       `gorm:"column:id;primaryKey;type:varchar(36)"`
	UserID        uint         `gorm:"column:user_id;not null;uniqueIndex:idx_digest_logs_user_date"`
	DigestDate    string       `gorm:"column:digest_date;type:varchar(10);not null;uniqueIndex:idx_digest_logs_user_date"`
	Status        DigestStatus `gorm:"column:status;type:varchar(8);not null"`
	UpcomingCount int          `gorm:"column:upcoming_count;not null"`
	OverdueCount  int          `gorm:"column:overdue_count;not null"`
	SentAt        time.Time    `gorm:"column:sent_at"`
	MessageID     string       `gorm:"column:message_id;type:varchar(255)"`
	Error         string       `gorm:"column:error;type:text"`
	CreatedAt     time.Time    `gorm:"column:created_at;autoCreateTime"`
}

func (DigestLog) TableName() string {
	return "digest_logs"
}
