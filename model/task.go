package model

import (
	"time"
)

// Task status values as stored in the tasks table.
const (
	TaskStatusNotStarted = "0"
	TaskStatusInProgress = "1"
	TaskStatusDone       = "2"
)

type Tasks struct {
	TaskID       int        `gorm:"column:task_id;primaryKey;autoIncrement"`
	CreateBy     uint       `gorm:"column:create_by;not null;index"`
	TaskName     string     `gorm:"column:task_name;type:varchar(255);not null"`
	Description  string     `gorm:"column:description;type:text"`
	Status       string     `gorm:"column:status;type:varchar(1);default:'0';not null;index"`
	Priority     string     `gorm:"column:priority;type:varchar(1)"`
	Complexity   string     `gorm:"column:complexity;type:varchar(16)"`
	DeadlineDate *time.Time `gorm:"column:deadline_date;type:date"`
	DeadlineTime *string    `gorm:"column:deadline_time;type:varchar(5)"`

	// OverdueNotified is a legacy per-task marker. The reminder job keeps
	// aggregate per-user state instead and never reads or writes it.
	OverdueNotified bool      `gorm:"column:overdue_notified;not null"`
	CreateAt        time.Time `gorm:"column:create_at;autoCreateTime"`
}

func (Tasks) TableName() string {
	return "tasks"
}

func (t Tasks) IsDone() bool {
	return t.Status == TaskStatusDone
}

// Clock returns the HH:mm deadline time or "" when none is set.
func (t Tasks) Clock() string {
	if t.DeadlineTime == nil {
		return ""
	}
	return *t.DeadlineTime
}
