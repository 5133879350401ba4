package task

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"taskplanner/deadline"
	"taskplanner/dto"
)

func AdjustDeadline(c *gin.Context, store Store, refresher Refresher) {
	task := ownedTask(c, store)
	if task == nil {
		return
	}

	var req dto.AdjustDeadlineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input", "details": err.Error()})
		return
	}

	updates := map[string]interface{}{"deadline_date": nil, "deadline_time": nil}
	if req.DeadlineDate != nil {
		date, err := time.Parse(time.DateOnly, *req.DeadlineDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "deadline_date must be YYYY-MM-DD"})
			return
		}
		updates["deadline_date"] = date
		if req.DeadlineTime != nil && *req.DeadlineTime != "" {
			if _, _, ok := deadline.ParseClock(*req.DeadlineTime); !ok {
				c.JSON(http.StatusBadRequest, gin.H{"error": "deadline_time must be HH:mm"})
				return
			}
			updates["deadline_time"] = *req.DeadlineTime
		}
	}

	if err := store.UpdateTask(c.Request.Context(), task.TaskID, updates); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update task deadline"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":               "Task deadline updated successfully",
		"taskID":                task.TaskID,
		"notifications_updated": afterChange(c, refresher, task),
	})
}
