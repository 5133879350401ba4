package user

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"taskplanner/dto"
	"taskplanner/middleware"
	"taskplanner/model"
	"taskplanner/reminder"
)

type Store interface {
	GetUser(ctx context.Context, userID uint) (*model.User, error)
	SetEmailNotifications(ctx context.Context, userID uint, enabled bool) error
}

func UserController(router *gin.Engine, store Store, jwtSecret string) {
	routes := router.Group("/user", middleware.AccessTokenMiddleware(jwtSecret))
	{
		routes.GET("/notification-settings", func(c *gin.Context) {
			GetNotificationSettings(c, store)
		})
		routes.PUT("/notification-settings", func(c *gin.Context) {
			UpdateNotificationSettings(c, store)
		})
	}
}

func GetNotificationSettings(c *gin.Context, store Store) {
	userId := c.MustGet("userId").(uint)

	user, err := store.GetUser(c.Request.Context(), userId)
	if err != nil {
		if errors.Is(err, reminder.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, dto.NotificationSettingsResponse{
		Email:              user.Email,
		EmailNotifications: user.EmailNotifications,
	})
}

// UpdateNotificationSettings switches the daily digest e-mail on or off. The
// next digest run honours it; today's digest-log entry is left as it is.
func UpdateNotificationSettings(c *gin.Context, store Store) {
	userId := c.MustGet("userId").(uint)

	var req dto.NotificationSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}

	if _, err := store.GetUser(c.Request.Context(), userId); err != nil {
		if errors.Is(err, reminder.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	if err := store.SetEmailNotifications(c.Request.Context(), userId, *req.EmailNotifications); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update settings"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":             "Notification settings updated",
		"email_notifications": *req.EmailNotifications,
	})
}
