package reminder

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"taskplanner/deadline"
	"taskplanner/model"
)

type Options struct {
	Tasks         TaskSource
	Users         UserDirectory
	Notifications NotificationStore
	DigestLogs    DigestLogStore
	Mailer        Mailer
	Pusher        Pusher
	Location      *time.Location
	Now           func() time.Time
	AppBaseURL    string
	Logger        *log.Logger
}

// Service runs the daily digest and the notification refresh passes. Users
// are handled one after another; a failure for one user is logged and the
// run moves on.
type Service struct {
	tasks      TaskSource
	users      UserDirectory
	store      NotificationStore
	digests    DigestLogStore
	mailer     Mailer
	pusher     Pusher
	eval       deadline.Evaluator
	reconciler *Reconciler
	now        func() time.Time
	link       string
	log        *log.Logger
}

func NewService(opts Options) (*Service, error) {
	switch {
	case opts.Tasks == nil:
		return nil, errors.New("reminder: task source is required")
	case opts.Users == nil:
		return nil, errors.New("reminder: user directory is required")
	case opts.Notifications == nil:
		return nil, errors.New("reminder: notification store is required")
	case opts.DigestLogs == nil:
		return nil, errors.New("reminder: digest log store is required")
	}

	s := &Service{
		tasks:      opts.Tasks,
		users:      opts.Users,
		store:      opts.Notifications,
		digests:    opts.DigestLogs,
		mailer:     opts.Mailer,
		pusher:     opts.Pusher,
		eval:       deadline.NewEvaluator(opts.Location),
		reconciler: NewReconciler(opts.Notifications),
		now:        opts.Now,
		link:       opts.AppBaseURL,
		log:        opts.Logger,
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.log == nil {
		s.log = log.Default()
	}
	return s, nil
}

func (s *Service) Evaluator() deadline.Evaluator {
	return s.eval
}

type DigestResult struct {
	Date               string    `json:"date"`
	UsersProcessed     int       `json:"users_processed"`
	EmailsSent         int       `json:"emails_sent"`
	EmailsSkipped      int       `json:"emails_skipped"`
	EmailsFailed       int       `json:"emails_failed"`
	NotificationWrites int       `json:"notification_writes"`
	NotificationErrors int       `json:"notification_errors"`
	StartedAt          time.Time `json:"started_at"`
	FinishedAt         time.Time `json:"finished_at"`
}

type RefreshResult struct {
	UsersProcessed     int       `json:"users_processed"`
	NotificationWrites int       `json:"notification_writes"`
	NotificationErrors int       `json:"notification_errors"`
	StartedAt          time.Time `json:"started_at"`
	FinishedAt         time.Time `json:"finished_at"`
}

// notifyCounters is shared by both passes.
type notifyCounters struct {
	writes *int
	errs   *int
}

// RunDigest reconciles every bucketed user's notifications and sends at most
// one digest e-mail per user per calendar day. Only a failure to load tasks
// aborts the run.
func (s *Service) RunDigest(ctx context.Context) (*DigestResult, error) {
	now := s.now()
	res := &DigestResult{Date: s.eval.DigestDate(now), StartedAt: now}
	counters := notifyCounters{writes: &res.NotificationWrites, errs: &res.NotificationErrors}

	tasks, err := s.tasks.ActiveTasksWithDeadline(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading active tasks: %w", err)
	}
	buckets := Bucket(s.eval, tasks, now)

	for _, userID := range buckets.UserIDs() {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		res.UsersProcessed++
		b := buckets[userID]

		outcomes := s.reconcileUser(ctx, userID, b, now, counters)

		user, err := s.users.GetUser(ctx, userID)
		if err != nil {
			s.log.Printf("digest: loading user %d: %v", userID, err)
			res.EmailsFailed++
			continue
		}
		s.push(ctx, user, outcomes)
		s.digestUser(ctx, user, b, res, now, counters)
	}

	s.decay(ctx, buckets, now, counters)

	res.FinishedAt = s.now()
	s.log.Printf("digest %s completed - users: %d, sent: %d, skipped: %d, failed: %d, notification writes: %d, notification errors: %d",
		res.Date, res.UsersProcessed, res.EmailsSent, res.EmailsSkipped, res.EmailsFailed,
		res.NotificationWrites, res.NotificationErrors)
	return res, nil
}

func (s *Service) digestUser(ctx context.Context, user *model.User, b *UserBucket, res *DigestResult, now time.Time, counters notifyCounters) {
	if !user.WantsEmailDigest() || s.mailer == nil {
		res.EmailsSkipped++
		return
	}

	existing, err := s.digests.GetDigestLog(ctx, user.UserID, res.Date)
	if err != nil {
		s.log.Printf("digest: reading digest log for user %d: %v", user.UserID, err)
		res.EmailsFailed++
		return
	}
	if existing != nil {
		res.EmailsSkipped++
		s.syncEmailSent(ctx, user, existing, now, counters)
		return
	}

	entry := &model.DigestLog{
		UserID:        user.UserID,
		DigestDate:    res.Date,
		UpcomingCount: b.UpcomingCount(),
		OverdueCount:  b.OverdueCount(),
	}

	body, err := RenderDigest(user, res.Date, b, s.link)
	var sent SendResult
	if err != nil {
		sent = SendResult{Error: err}
	} else {
		sent = s.mailer.Send(ctx, user.Email, DigestSubject(b), body)
	}

	entry.SentAt = s.now()
	if sent.Success {
		entry.Status = model.DigestSent
		entry.MessageID = sent.MessageID
		res.EmailsSent++
	} else {
		entry.Status = model.DigestFailed
		if sent.Error != nil {
			entry.Error = sent.Error.Error()
		}
		res.EmailsFailed++
		s.log.Printf("digest: sending to user %d failed: %v", user.UserID, sent.Error)
	}

	created, err := s.digests.CreateDigestLog(ctx, entry)
	switch {
	case err != nil:
		s.log.Printf("digest: recording digest log for user %d: %v", user.UserID, err)
	case !created:
		// A concurrent run recorded today's digest first; its entry wins.
		if winner, err := s.digests.GetDigestLog(ctx, user.UserID, res.Date); err == nil && winner != nil {
			entry = winner
		}
	}

	s.syncEmailSent(ctx, user, entry, now, counters)
}

func (s *Service) syncEmailSent(ctx context.Context, user *model.User, entry *model.DigestLog, now time.Time, counters notifyCounters) {
	o, err := s.reconciler.SyncEmailSent(ctx, user.UserID, entry, now)
	if err != nil {
		s.log.Printf("notification: %v", err)
		*counters.errs++
		return
	}
	if o.Written {
		*counters.writes++
	}
	s.push(ctx, user, []Outcome{o})
}

// RefreshOverdue runs the bucketing and count reconciliation without e-mail.
func (s *Service) RefreshOverdue(ctx context.Context) (*RefreshResult, error) {
	now := s.now()
	res := &RefreshResult{StartedAt: now}
	counters := notifyCounters{writes: &res.NotificationWrites, errs: &res.NotificationErrors}

	tasks, err := s.tasks.ActiveTasksWithDeadline(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading active tasks: %w", err)
	}
	buckets := Bucket(s.eval, tasks, now)

	for _, userID := range buckets.UserIDs() {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		res.UsersProcessed++
		outcomes := s.reconcileUser(ctx, userID, buckets[userID], now, counters)
		s.pushFor(ctx, userID, outcomes)
	}
	res.UsersProcessed += s.decay(ctx, buckets, now, counters)

	res.FinishedAt = s.now()
	s.log.Printf("notification refresh completed - users: %d, writes: %d, errors: %d",
		res.UsersProcessed, res.NotificationWrites, res.NotificationErrors)
	return res, nil
}

// RefreshNotificationsForUser recomputes one user's DUE_SOON and OVERDUE
// notifications right after their tasks changed. A user with no qualifying
// tasks left is reconciled to zero.
func (s *Service) RefreshNotificationsForUser(ctx context.Context, userID uint) error {
	now := s.now()
	tasks, err := s.tasks.ActiveTasksWithDeadlineForUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("loading tasks for user %d: %w", userID, err)
	}
	b := Bucket(s.eval, tasks, now)[userID]

	outcomes, err := s.reconciler.ReconcileCounts(ctx, userID, b, now)
	s.pushFor(ctx, userID, outcomes)
	return err
}

func (s *Service) reconcileUser(ctx context.Context, userID uint, b *UserBucket, now time.Time, counters notifyCounters) []Outcome {
	outcomes, err := s.reconciler.ReconcileCounts(ctx, userID, b, now)
	if err != nil {
		s.log.Printf("notification: user %d: %v", userID, err)
		*counters.errs++
	}
	for _, o := range outcomes {
		if o.Written {
			*counters.writes++
		}
	}
	return outcomes
}

// decay zeroes the counts of users who still hold a non-zero DUE_SOON or
// OVERDUE document but no longer appear in any bucket. It returns how many
// users it reconciled.
func (s *Service) decay(ctx context.Context, buckets Buckets, now time.Time, counters notifyCounters) int {
	ids, err := s.store.ListTrackedUsers(ctx)
	if err != nil {
		s.log.Printf("notification: listing tracked users: %v", err)
		*counters.errs++
		return 0
	}

	n := 0
	for _, userID := range ids {
		if _, ok := buckets[userID]; ok {
			continue
		}
		if ctx.Err() != nil {
			break
		}
		n++
		s.reconcileUser(ctx, userID, nil, now, counters)
	}
	return n
}

func needsPush(outcomes []Outcome) bool {
	for _, o := range outcomes {
		if o.BecameUnread {
			return true
		}
	}
	return false
}

func (s *Service) pushFor(ctx context.Context, userID uint, outcomes []Outcome) {
	if s.pusher == nil || !needsPush(outcomes) {
		return
	}
	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		s.log.Printf("push: loading user %d: %v", userID, err)
		return
	}
	s.push(ctx, user, outcomes)
}

func (s *Service) push(ctx context.Context, user *model.User, outcomes []Outcome) {
	if s.pusher == nil {
		return
	}
	for _, o := range outcomes {
		if !o.BecameUnread || o.Notification == nil {
			continue
		}
		if err := s.pusher.Push(ctx, user, o.Notification); err != nil {
			s.log.Printf("push: user %d %s: %v", user.UserID, o.Kind, err)
		}
	}
}
