package task

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"taskplanner/dto"
)

func UpdateTaskStatus(c *gin.Context, store Store, refresher Refresher) {
	task := ownedTask(c, store)
	if task == nil {
		return
	}

	var req dto.UpdateTaskStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input", "details": err.Error()})
		return
	}

	if err := store.UpdateTask(c.Request.Context(), task.TaskID, map[string]interface{}{"status": req.Status}); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update task status"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":               "Task status updated successfully",
		"taskID":                task.TaskID,
		"status":                req.Status,
		"notifications_updated": afterChange(c, refresher, task),
	})
}
