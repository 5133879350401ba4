package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"taskplanner/config"
	"taskplanner/reminder"
)

const (
	JobDigest  = "digest"
	JobRefresh = "refresh"
)

// ErrJobRunning is returned by a manual trigger while the same job is busy.
var ErrJobRunning = errors.New("job is already running")

// Jobs is the work the scheduler drives. *reminder.Service implements it.
type Jobs interface {
	RunDigest(ctx context.Context) (*reminder.DigestResult, error)
	RefreshOverdue(ctx context.Context) (*reminder.RefreshResult, error)
}

type JobStatus struct {
	Name     string    `json:"name"`
	Schedule string    `json:"schedule"`
	Next     time.Time `json:"next"`
	Prev     time.Time `json:"prev,omitempty"`
	Running  bool      `json:"running"`
}

type entry struct {
	id       cron.EntryID
	schedule string
	mu       sync.Mutex
	running  bool
}

// Handle owns the cron instance. Create it with Initialize and stop it with
// Shutdown when the process exits.
type Handle struct {
	cron    *cron.Cron
	jobs    Jobs
	log     *log.Logger
	ctx     context.Context
	cancel  context.CancelFunc
	digest  *entry
	refresh *entry
}

// Initialize registers the daily digest and the overdue refresh and starts
// the scheduler. Schedules take an optional leading seconds field.
func Initialize(jobs Jobs, cfg config.SchedulerConfig, loc *time.Location, logger *log.Logger) (*Handle, error) {
	if logger == nil {
		logger = log.Default()
	}
	if loc == nil {
		loc = time.Local
	}

	cronLog := cron.PrintfLogger(logger)
	c := cron.New(
		cron.WithParser(cron.NewParser(cron.SecondOptional|cron.Minute|cron.Hour|cron.Dom|cron.Month|cron.Dow|cron.Descriptor)),
		cron.WithLocation(loc),
		cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)),
	)

	ctx, cancel := context.WithCancel(context.Background())
	h := &Handle{
		cron:    c,
		jobs:    jobs,
		log:     logger,
		ctx:     ctx,
		cancel:  cancel,
		digest:  &entry{schedule: cfg.DigestSchedule},
		refresh: &entry{schedule: cfg.RefreshSchedule},
	}

	var err error
	h.digest.id, err = c.AddFunc(cfg.DigestSchedule, func() { h.scheduled(JobDigest) })
	if err != nil {
		cancel()
		return nil, fmt.Errorf("invalid digest schedule %q: %w", cfg.DigestSchedule, err)
	}
	h.refresh.id, err = c.AddFunc(cfg.RefreshSchedule, func() { h.scheduled(JobRefresh) })
	if err != nil {
		cancel()
		return nil, fmt.Errorf("invalid refresh schedule %q: %w", cfg.RefreshSchedule, err)
	}

	c.Start()
	logger.Printf("Scheduler started (digest %q, refresh %q, %s)", cfg.DigestSchedule, cfg.RefreshSchedule, loc)
	return h, nil
}

func (h *Handle) scheduled(name string) {
	var err error
	switch name {
	case JobDigest:
		h.log.Println("Running scheduled digest job...")
		_, err = h.RunDigestNow(h.ctx)
	case JobRefresh:
		h.log.Println("Running scheduled notification refresh...")
		_, err = h.RefreshNow(h.ctx)
	}
	if err != nil {
		h.log.Printf("%s job: %v", name, err)
	}
}

// acquire marks the job running; it fails instead of waiting so a manual
// trigger never queues behind a scheduled run.
func (e *entry) acquire() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running {
		return false
	}
	e.running = true
	return true
}

func (e *entry) release() {
	e.mu.Lock()
	e.running = false
	e.mu.Unlock()
}

func (e *entry) isRunning() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

func (h *Handle) RunDigestNow(ctx context.Context) (*reminder.DigestResult, error) {
	if !h.digest.acquire() {
		return nil, ErrJobRunning
	}
	defer h.digest.release()
	return h.jobs.RunDigest(ctx)
}

func (h *Handle) RefreshNow(ctx context.Context) (*reminder.RefreshResult, error) {
	if !h.refresh.acquire() {
		return nil, ErrJobRunning
	}
	defer h.refresh.release()
	return h.jobs.RefreshOverdue(ctx)
}

func (h *Handle) Status() []JobStatus {
	out := make([]JobStatus, 0, 2)
	for _, j := range []struct {
		name string
		e    *entry
	}{{JobDigest, h.digest}, {JobRefresh, h.refresh}} {
		ce := h.cron.Entry(j.e.id)
		out = append(out, JobStatus{
			Name:     j.name,
			Schedule: j.e.schedule,
			Next:     ce.Next,
			Prev:     ce.Prev,
			Running:  j.e.isRunning(),
		})
	}
	return out
}

// Stop prevents further runs. Jobs already running are left to finish.
func (h *Handle) Stop() {
	h.cron.Stop()
}

// Shutdown stops the scheduler and waits for running jobs. When ctx expires
// first, the running jobs' context is cancelled and ctx's error returned.
func (h *Handle) Shutdown(ctx context.Context) error {
	done := h.cron.Stop()
	defer h.cancel()

	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
