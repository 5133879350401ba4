package admin

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"taskplanner/middleware"
	"taskplanner/reminder"
	"taskplanner/scheduler"
)

// Scheduler is implemented by *scheduler.Handle.
type Scheduler interface {
	RunDigestNow(ctx context.Context) (*reminder.DigestResult, error)
	RefreshNow(ctx context.Context) (*reminder.RefreshResult, error)
	Status() []scheduler.JobStatus
}

func AdminController(router *gin.Engine, sched Scheduler, jwtSecret string) {
	routes := router.Group("/admin", middleware.AccessTokenMiddleware(jwtSecret), middleware.AdminMiddleware())
	{
		routes.POST("/digest/run", func(c *gin.Context) {
			RunDigest(c, sched)
		})
		routes.POST("/notification/refresh", func(c *gin.Context) {
			RefreshNotifications(c, sched)
		})
		routes.GET("/scheduler", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"jobs": sched.Status()})
		})
	}
}

// Manual runs are detached from the request so a client disconnect does not
// stop a run halfway through the users.
func RunDigest(c *gin.Context, sched Scheduler) {
	res, err := sched.RunDigestNow(context.WithoutCancel(c.Request.Context()))
	if err != nil {
		jobError(c, "digest", err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func RefreshNotifications(c *gin.Context, sched Scheduler) {
	res, err := sched.RefreshNow(context.WithoutCancel(c.Request.Context()))
	if err != nil {
		jobError(c, "refresh", err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func jobError(c *gin.Context, job string, err error) {
	if errors.Is(err, scheduler.ErrJobRunning) {
		c.JSON(http.StatusConflict, gin.H{"error": "The " + job + " job is already running"})
		return
	}
	log.Printf("admin: manual %s run: %v", job, err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to run " + job + " job"})
}
