package connection

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"taskplanner/config"
	"taskplanner/controller/admin"
	"taskplanner/controller/notification"
	"taskplanner/controller/task"
	"taskplanner/controller/user"
	"taskplanner/reminder"
	"taskplanner/scheduler"
	"taskplanner/services"
)

const shutdownTimeout = 15 * time.Second

// RouterService is what the notification and task routes need from the
// reminder service.
type RouterService interface {
	notification.Service
	task.Refresher
}

// PlannerStore is the planner data the task and user routes update.
type PlannerStore interface {
	task.Store
	user.Store
}

func NewRouter(svc RouterService, sched admin.Scheduler, planner PlannerStore, jwtSecret string) *gin.Engine {
	router := gin.Default()
	router.Use(cors.Default())

	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "Api is running!"})
	})

	notification.NotificationController(router, svc, jwtSecret)
	task.TaskController(router, planner, svc, jwtSecret)
	user.UserController(router, planner, jwtSecret)
	admin.AdminController(router, sched, jwtSecret)
	return router
}

// StartServer wires the stores, the reminder service and the scheduler, then
// serves HTTP until SIGINT or SIGTERM.
func StartServer(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	DB, err := DBConnection(cfg.DSN)
	if err != nil {
		return err
	}
	planner := services.NewPlannerData(DB)

	opts := reminder.Options{
		Tasks:      planner,
		Users:      planner,
		Location:   loc,
		AppBaseURL: cfg.AppBaseURL,
	}

	var FB *firestore.Client
	if cfg.StoreBackend == config.BackendFirestore || cfg.PushEnabled {
		app, client, err := FBConnection(ctx, cfg.Firebase)
		if err != nil {
			return err
		}
		FB = client
		defer FB.Close()

		if cfg.PushEnabled {
			pusher, err := services.NewFCMPusher(ctx, app, FB)
			if err != nil {
				return err
			}
			opts.Pusher = pusher
		}
	}

	switch cfg.StoreBackend {
	case config.BackendFirestore:
		store := services.NewFirestoreNotificationStore(FB)
		opts.Notifications, opts.DigestLogs = store, store
	default:
		store := services.NewSQLNotificationStore(DB)
		opts.Notifications, opts.DigestLogs = store, store
	}

	if cfg.MailEnabled() {
		opts.Mailer = services.NewSMTPMailer(cfg.SMTP)
	} else {
		log.Println("Warning: SMTP not configured, digest e-mails are disabled")
	}

	svc, err := reminder.NewService(opts)
	if err != nil {
		return err
	}

	sched, err := scheduler.Initialize(svc, cfg.Scheduler, loc, log.Default())
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: NewRouter(svc, sched, planner, cfg.JWTSecret),
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Printf("Listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			sched.Stop()
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
		log.Println("Shutting down...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("http shutdown: %v", err)
	}
	if err := sched.Shutdown(shutdownCtx); err != nil {
		log.Printf("scheduler shutdown: %v", err)
	}
	return nil
}
