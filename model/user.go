package model

import "time"

type User struct {
	UserID   uint   `gorm:"column:user_id;primaryKey;autoIncrement"`
	Name     string `gorm:"column:name;type:varchar(255)"`
	Email    string `gorm:"column:email;type:varchar(255);uniqueIndex"`
	Role     string `gorm:"column:role;type:varchar(16)"`
	IsActive string `gorm:"column:is_active;type:varchar(1)"`

	// EmailNotifications is the user's opt-in for the daily digest mail.
	EmailNotifications bool      `gorm:"column:email_notifications;not null"`
	CreatedAt          time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (User) TableName() string {
	return "user"
}

func (u User) WantsEmailDigest() bool {
	return u.EmailNotifications && u.Email != ""
}
