package task

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"taskplanner/middleware"
	"taskplanner/model"
	"taskplanner/services"
)

type Store interface {
	GetTask(ctx context.Context, taskID int) (*model.Tasks, error)
	UpdateTask(ctx context.Context, taskID int, updates map[string]interface{}) error
}

// Refresher recomputes the caller's DUE_SOON and OVERDUE notifications.
type Refresher interface {
	RefreshNotificationsForUser(ctx context.Context, userID uint) error
}

func TaskController(router *gin.Engine, store Store, refresher Refresher, jwtSecret string) {
	routes := router.Group("/task", middleware.AccessTokenMiddleware(jwtSecret))
	{
		routes.PUT("/:taskid/status", func(c *gin.Context) {
			UpdateTaskStatus(c, store, refresher)
		})
		routes.PUT("/:taskid/deadline", func(c *gin.Context) {
			AdjustDeadline(c, store, refresher)
		})
	}
}

// ownedTask loads the task from the path and checks the caller created it.
// It writes the error response itself and returns nil on failure.
func ownedTask(c *gin.Context, store Store) *model.Tasks {
	userId := c.MustGet("userId").(uint)

	taskID, err := strconv.Atoi(c.Param("taskid"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid task ID"})
		return nil
	}

	task, err := store.GetTask(c.Request.Context(), taskID)
	if err != nil {
		if errors.Is(err, services.ErrTaskNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Task not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch task"})
		}
		return nil
	}
	if task.CreateBy != userId {
		c.JSON(http.StatusForbidden, gin.H{"error": "Access denied: not the owner of this task"})
		return nil
	}
	return task
}

// afterChange refreshes the owner's notifications. The task update already
// succeeded, so a refresh failure is reported but not treated as an error.
func afterChange(c *gin.Context, refresher Refresher, task *model.Tasks) bool {
	if err := refresher.RefreshNotificationsForUser(c.Request.Context(), task.CreateBy); err != nil {
		log.Printf("task %d: refreshing notifications for user %d: %v", task.TaskID, task.CreateBy, err)
		return false
	}
	return true
}
