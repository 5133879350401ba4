package scheduler

import (
	"context"
	"io"
	"log"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskplanner/config"
	"taskplanner/reminder"
)

var quietLog = log.New(io.Discard, "", 0)

type fakeJobs struct {
	digests   atomic.Int32
	refreshes atomic.Int32
	block     chan struct{}
	panicky   bool
}

func (f *fakeJobs) RunDigest(ctx context.Context) (*reminder.DigestResult, error) {
	f.digests.Add(1)
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return &reminder.DigestResult{Date: "2024-01-18"}, nil
}

func (f *fakeJobs) RefreshOverdue(context.Context) (*reminder.RefreshResult, error) {
	f.refreshes.Add(1)
	if f.panicky {
		panic("boom")
	}
	return &reminder.RefreshResult{}, nil
}

var daily = config.SchedulerConfig{DigestSchedule: "0 0 8 * * *", RefreshSchedule: "@every 30m"}

func TestInitializeRejectsBadSchedules(t *testing.T) {
	_, err := Initialize(&fakeJobs{}, config.SchedulerConfig{DigestSchedule: "whenever", RefreshSchedule: "@every 30m"}, time.UTC, quietLog)
	assert.Error(t, err)

	_, err = Initialize(&fakeJobs{}, config.SchedulerConfig{DigestSchedule: "0 8 * * *", RefreshSchedule: "@hourly-ish"}, time.UTC, quietLog)
	assert.Error(t, err)
}

func TestStatusReportsNextRunInLocation(t *testing.T) {
	ict := time.FixedZone("ICT", 7*60*60)
	h, err := Initialize(&fakeJobs{}, daily, ict, quietLog)
	require.NoError(t, err)
	defer h.Stop()

	status := h.Status()
	require.Len(t, status, 2)
	assert.Equal(t, JobDigest, status[0].Name)
	assert.Equal(t, "0 0 8 * * *", status[0].Schedule)
	assert.Equal(t, 8, status[0].Next.In(ict).Hour())
	assert.Zero(t, status[0].Next.In(ict).Minute())
	assert.Equal(t, JobRefresh, status[1].Name)
	assert.WithinDuration(t, time.Now().Add(30*time.Minute), status[1].Next, 5*time.Second)
	assert.False(t, status[0].Running)
}

func TestManualTriggersDoNotOverlap(t *testing.T) {
	jobs := &fakeJobs{block: make(chan struct{})}
	h, err := Initialize(jobs, daily, time.UTC, quietLog)
	require.NoError(t, err)
	defer h.Stop()

	done := make(chan error, 1)
	go func() {
		_, err := h.RunDigestNow(context.Background())
		done <- err
	}()

	require.Eventually(t, func() bool { return jobs.digests.Load() == 1 }, time.Second, 10*time.Millisecond)
	assert.True(t, h.Status()[0].Running)

	_, err = h.RunDigestNow(context.Background())
	assert.ErrorIs(t, err, ErrJobRunning)

	// The refresh job is independent.
	_, err = h.RefreshNow(context.Background())
	assert.NoError(t, err)

	close(jobs.block)
	require.NoError(t, <-done)
	assert.EqualValues(t, 1, jobs.digests.Load())

	res, err := h.RunDigestNow(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "2024-01-18", res.Date)
}

func TestPanickingJobKeepsFiring(t *testing.T) {
	if testing.Short() {
		t.Skip("waits for two cron ticks")
	}
	jobs := &fakeJobs{panicky: true}
	h, err := Initialize(jobs, config.SchedulerConfig{DigestSchedule: "0 0 8 * * *", RefreshSchedule: "* * * * * *"}, time.UTC, quietLog)
	require.NoError(t, err)
	defer h.Stop()

	require.Eventually(t, func() bool { return jobs.refreshes.Load() >= 2 }, 4*time.Second, 50*time.Millisecond)
	assert.False(t, h.Status()[1].Running, "a panic releases the running flag")
}

func TestShutdownWaitsForRunningJob(t *testing.T) {
	jobs := &fakeJobs{block: make(chan struct{})}
	h, err := Initialize(jobs, config.SchedulerConfig{DigestSchedule: "* * * * * *", RefreshSchedule: "@every 30m"}, time.UTC, quietLog)
	require.NoError(t, err)

	require.Eventually(t, func() bool { return jobs.digests.Load() >= 1 }, 3*time.Second, 20*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, h.Shutdown(ctx), context.DeadlineExceeded)

	// The cancelled job context lets the blocked run return.
	require.Eventually(t, func() bool { return !h.Status()[0].Running }, time.Second, 10*time.Millisecond)
}
