package dto

import (
	"time"

	"taskplanner/model"
)

type SystemNotificationResponse struct {
	ID              string    `json:"id"`
	Kind            string    `json:"kind"`
	Title           string    `json:"title"`
	Message         string    `json:"message"`
	Severity        string    `json:"severity"`
	Unread          bool      `json:"unread"`
	LastTriggeredAt time.Time `json:"last_triggered_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// NewSystemNotificationResponse leaves out the tracking metadata, which is
// internal change-detection state.
func NewSystemNotificationResponse(n model.SystemNotification) SystemNotificationResponse {
	return SystemNotificationResponse{
		ID:              n.ID,
		Kind:            string(n.Kind),
		Title:           n.Title,
		Message:         n.Message,
		Severity:        string(n.Severity),
		Unread:          n.Unread,
		LastTriggeredAt: n.LastTriggeredAt,
		UpdatedAt:       n.UpdatedAt,
	}
}

type SystemNotificationsResponse struct {
	Notifications []SystemNotificationResponse `json:"notifications"`
	UnreadCount   int                          `json:"unread_count"`
}
