package dto

type NotificationSettingsRequest struct {
	EmailNotifications *bool `json:"email_notifications" binding:"required"`
}

type NotificationSettingsResponse struct {
	Email              string `json:"email"`
	EmailNotifications bool   `json:"email_notifications"`
}
