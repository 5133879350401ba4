package reminder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sort"
	"sync"
	"time"

	"taskplanner/model"
)

var (
	ict        = time.FixedZone("ICT", 7*60*60)
	quietLog   = log.New(io.Discard, "", 0)
	errStoreIO = errors.New("store unavailable")
)

func day(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func hhmm(s string) *string { return &s }

type key struct {
	user uint
	kind model.NotificationKind
}

type memNotifications struct {
	mu      sync.Mutex
	docs    map[key]model.SystemNotification
	upserts int
	failOn  map[model.NotificationKind]bool
	seq     int
}

func newMemNotifications() *memNotifications {
	return &memNotifications{docs: map[key]model.SystemNotification{}, failOn: map[model.NotificationKind]bool{}}
}

func (m *memNotifications) GetSystemNotification(_ context.Context, userID uint, kind model.NotificationKind) (*model.SystemNotification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[key{userID, kind}]
	if !ok {
		return nil, nil
	}
	return &doc, nil
}

func (m *memNotifications) UpsertSystemNotification(_ context.Context, n *model.SystemNotification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failOn[n.Kind] {
		return errStoreIO
	}
	m.upserts++
	if n.ID == "" {
		m.seq++
		n.ID = fmt.Sprintf("n-%d", m.seq)
	}
	m.docs[key{n.UserID, n.Kind}] = *n
	return nil
}

func (m *memNotifications) ListSystemNotifications(_ context.Context, userID uint) ([]model.SystemNotification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.SystemNotification
	for k, doc := range m.docs {
		if k.user == userID {
			out = append(out, doc)
		}
	}
	return out, nil
}

func (m *memNotifications) ListTrackedUsers(_ context.Context) ([]uint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := map[uint]bool{}
	for k, doc := range m.docs {
		doc := doc
		if k.kind.Counted() && ReadTrackedCount(&doc) > 0 {
			seen[k.user] = true
		}
	}
	ids := make([]uint, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (m *memNotifications) MarkSystemNotificationRead(_ context.Context, userID uint, kind model.NotificationKind) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[key{userID, kind}]
	if !ok {
		return ErrNotificationNotFound
	}
	doc.Unread = false
	m.docs[key{userID, kind}] = doc
	return nil
}

func (m *memNotifications) doc(userID uint, kind model.NotificationKind) *model.SystemNotification {
	d, _ := m.GetSystemNotification(context.Background(), userID, kind)
	return d
}

type memDigestLogs struct {
	mu      sync.Mutex
	entries map[string]model.DigestLog
	inserts int
	// preempt simulates another run inserting between Get and Create.
	preempt *model.DigestLog
}

func newMemDigestLogs() *memDigestLogs {
	return &memDigestLogs{entries: map[string]model.DigestLog{}}
}

func logKey(userID uint, date string) string { return fmt.Sprintf("%d_%s", userID, date) }

func (m *memDigestLogs) GetDigestLog(_ context.Context, userID uint, date string) (*model.DigestLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[logKey(userID, date)]
	if !ok {
		return nil, nil
	}
	return &e, nil
}

func (m *memDigestLogs) CreateDigestLog(_ context.Context, entry *model.DigestLog) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.preempt != nil {
		m.entries[logKey(m.preempt.UserID, m.preempt.DigestDate)] = *m.preempt
		m.preempt = nil
	}
	k := logKey(entry.UserID, entry.DigestDate)
	if _, ok := m.entries[k]; ok {
		return false, nil
	}
	m.inserts++
	m.entries[k] = *entry
	return true, nil
}

type fakeTasks struct {
	tasks []model.Tasks
	err   error
}

func (f *fakeTasks) ActiveTasksWithDeadline(context.Context) ([]model.Tasks, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []model.Tasks
	for _, t := range f.tasks {
		if !t.IsDone() && t.DeadlineDate != nil {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeTasks) ActiveTasksWithDeadlineForUser(ctx context.Context, userID uint) ([]model.Tasks, error) {
	all, err := f.ActiveTasksWithDeadline(ctx)
	if err != nil {
		return nil, err
	}
	var out []model.Tasks
	for _, t := range all {
		if t.CreateBy == userID {
			out = append(out, t)
		}
	}
	return out, nil
}

type fakeUsers map[uint]*model.User

func (f fakeUsers) GetUser(_ context.Context, id uint) (*model.User, error) {
	u, ok := f[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return u, nil
}

type sentMail struct {
	to, subject, body string
}

type fakeMailer struct {
	sent   []sentMail
	failTo map[string]bool
}

func (f *fakeMailer) Send(_ context.Context, to, subject, body string) SendResult {
	if f.failTo[to] {
		return SendResult{Error: errors.New("smtp: connection refused")}
	}
	f.sent = append(f.sent, sentMail{to, subject, body})
	return SendResult{Success: true, MessageID: fmt.Sprintf("<%d@planner>", len(f.sent))}
}

type fakePusher struct {
	pushed []model.NotificationKind
}

func (f *fakePusher) Push(_ context.Context, _ *model.User, n *model.SystemNotification) error {
	f.pushed = append(f.pushed, n.Kind)
	return nil
}

type clock struct{ t time.Time }

func (c *clock) Now() time.Time          { return c.t }
func (c *clock) Advance(d time.Duration) { c.t = c.t.Add(d) }
