package notification

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"taskplanner/dto"
	"taskplanner/middleware"
	"taskplanner/model"
	"taskplanner/reminder"
)

// Service is the part of reminder.Service the notification routes use.
type Service interface {
	Notifications(ctx context.Context, userID uint) ([]model.SystemNotification, error)
	MarkRead(ctx context.Context, userID uint, kind model.NotificationKind) error
	RefreshNotificationsForUser(ctx context.Context, userID uint) error
}

func NotificationController(router *gin.Engine, svc Service, jwtSecret string) {
	routes := router.Group("/notification/system", middleware.AccessTokenMiddleware(jwtSecret))
	{
		routes.GET("", func(c *gin.Context) {
			GetSystemNotifications(c, svc)
		})
		routes.PUT("/:kind/read", func(c *gin.Context) {
			MarkSystemNotificationRead(c, svc)
		})
		routes.POST("/refresh", func(c *gin.Context) {
			RefreshSystemNotifications(c, svc)
		})
	}
}

func GetSystemNotifications(c *gin.Context, svc Service) {
	userId := c.MustGet("userId").(uint)

	list, err := svc.Notifications(c.Request.Context(), userId)
	if err != nil {
		log.Printf("notification: listing for user %d: %v", userId, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch notifications"})
		return
	}

	c.JSON(http.StatusOK, toResponse(list))
}

func MarkSystemNotificationRead(c *gin.Context, svc Service) {
	userId := c.MustGet("userId").(uint)

	kind, err := model.ParseNotificationKind(c.Param("kind"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := svc.MarkRead(c.Request.Context(), userId, kind); err != nil {
		if errors.Is(err, reminder.ErrNotificationNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Notification not found"})
			return
		}
		log.Printf("notification: marking %s read for user %d: %v", kind, userId, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update notification"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Notification marked as read", "kind": kind})
}

// RefreshSystemNotifications is called by the app after the caller created,
// updated or deleted a task.
func RefreshSystemNotifications(c *gin.Context, svc Service) {
	userId := c.MustGet("userId").(uint)

	if err := svc.RefreshNotificationsForUser(c.Request.Context(), userId); err != nil {
		log.Printf("notification: refreshing user %d: %v", userId, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to refresh notifications"})
		return
	}

	list, err := svc.Notifications(c.Request.Context(), userId)
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"message": "Notifications refreshed"})
		return
	}
	c.JSON(http.StatusOK, toResponse(list))
}

func toResponse(list []model.SystemNotification) dto.SystemNotificationsResponse {
	resp := dto.SystemNotificationsResponse{Notifications: make([]dto.SystemNotificationResponse, 0, len(list))}
	for _, n := range list {
		resp.Notifications = append(resp.Notifications, dto.NewSystemNotificationResponse(n))
		if n.Unread {
			resp.UnreadCount++
		}
	}
	return resp
}
