package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"taskplanner/model"
	"taskplanner/reminder"
)

const (
	systemNotificationsCollection = "SystemNotifications"
	digestLogsCollection          = "DigestLogs"
)

type notificationDoc struct {
	ID               string                 `firestore:"id"`
	UserID           int64                  `firestore:"userId"`
	Kind             string                 `firestore:"kind"`
	Title            string                 `firestore:"title"`
	Message          string                 `firestore:"message"`
	Severity         string                 `firestore:"severity"`
	Unread           bool                   `firestore:"unread"`
	LastTriggeredAt  time.Time              `firestore:"lastTriggeredAt"`
	TrackingMetadata map[string]interface{} `firestore:"trackingMetadata"`
	CreatedAt        time.Time              `firestore:"createdAt"`
	UpdatedAt        time.Time              `firestore:"updatedAt"`
}

type digestLogDoc struct {
	ID            string    `firestore:"id"`
	UserID        int64     `firestore:"userId"`
	DigestDate    string    `firestore:"digestDate"`
	Status        string    `firestore:"status"`
	UpcomingCount int64     `firestore:"upcomingCount"`
	OverdueCount  int64     `firestore:"overdueCount"`
	SentAt        time.Time `firestore:"sentAt"`
	MessageID     string    `firestore:"messageId"`
	Error         string    `firestore:"error"`
	CreatedAt     time.Time `firestore:"createdAt"`
}

func notificationDocID(userID uint, kind model.NotificationKind) string {
	return fmt.Sprintf("%d_%s", userID, kind)
}

func digestLogDocID(userID uint, digestDate string) string {
	return fmt.Sprintf("%d_%s", userID, digestDate)
}

func toNotificationDoc(n *model.SystemNotification) notificationDoc {
	return notificationDoc{
		ID:               n.ID,
		UserID:           int64(n.UserID),
		Kind:             string(n.Kind),
		Title:            n.Title,
		Message:          n.Message,
		Severity:         string(n.Severity),
		Unread:           n.Unread,
		LastTriggeredAt:  n.LastTriggeredAt,
		TrackingMetadata: n.TrackingMetadata,
		CreatedAt:        n.CreatedAt,
		UpdatedAt:        n.UpdatedAt,
	}
}

func (d notificationDoc) model() model.SystemNotification {
	return model.SystemNotification{
		ID:               d.ID,
		UserID:           uint(d.UserID),
		Kind:             model.NotificationKind(d.Kind),
		Title:            d.Title,
		Message:          d.Message,
		Severity:         model.Severity(d.Severity),
		Unread:           d.Unread,
		LastTriggeredAt:  d.LastTriggeredAt,
		TrackingMetadata: d.TrackingMetadata,
		CreatedAt:        d.CreatedAt,
		UpdatedAt:        d.UpdatedAt,
	}
}

func toDigestLogDoc(e *model.DigestLog) digestLogDoc {
	return digestLogDoc{
		ID:            e.ID,
		UserID:        int64(e.UserID),
		DigestDate:    e.DigestDate,
		Status:        string(e.Status),
		UpcomingCount: int64(e.UpcomingCount),
		OverdueCount:  int64(e.OverdueCount),
		SentAt:        e.SentAt,
		MessageID:     e.MessageID,
		Error:         e.Error,
		CreatedAt:     e.CreatedAt,
	}
}

func (d digestLogDoc) model() model.DigestLog {
	return model.DigestLog{
		ID:            d.ID,
		UserID:        uint(d.UserID),
		DigestDate:    d.DigestDate,
		Status:        model.DigestStatus(d.Status),
		UpcomingCount: int(d.UpcomingCount),
		OverdueCount:  int(d.OverdueCount),
		SentAt:        d.SentAt,
		MessageID:     d.MessageID,
		Error:         d.Error,
		CreatedAt:     d.CreatedAt,
	}
}

// FirestoreNotificationStore keeps system notifications and digest logs in
// Firestore. Document ids are derived from the selector, so a document can
// never be duplicated.
type FirestoreNotificationStore struct {
	client *firestore.Client
	now    func() time.Time
}

func NewFirestoreNotificationStore(client *firestore.Client) *FirestoreNotificationStore {
	return &FirestoreNotificationStore{client: client, now: time.Now}
}

func (s *FirestoreNotificationStore) GetSystemNotification(ctx context.Context, userID uint, kind model.NotificationKind) (*model.SystemNotification, error) {
	snap, err := s.client.Collection(systemNotificationsCollection).Doc(notificationDocID(userID, kind)).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s notification: %w", kind, err)
	}

	var d notificationDoc
	if err := snap.DataTo(&d); err != nil {
		return nil, fmt.Errorf("failed to decode %s notification: %w", kind, err)
	}
	n := d.model()
	return &n, nil
}

func (s *FirestoreNotificationStore) UpsertSystemNotification(ctx context.Context, n *model.SystemNotification) error {
	now := s.now()
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = now
	}
	n.UpdatedAt = now

	_, err := s.client.Collection(systemNotificationsCollection).
		Doc(notificationDocID(n.UserID, n.Kind)).
		Set(ctx, toNotificationDoc(n))
	if err != nil {
		return fmt.Errorf("failed to save %s notification: %w", n.Kind, err)
	}
	return nil
}

func (s *FirestoreNotificationStore) collect(iter *firestore.DocumentIterator) ([]model.SystemNotification, error) {
	defer iter.Stop()

	var list []model.SystemNotification
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, err
		}
		var d notificationDoc
		if err := snap.DataTo(&d); err != nil {
			return nil, fmt.Errorf("failed to decode notification %s: %w", snap.Ref.ID, err)
		}
		list = append(list, d.model())
	}
	return list, nil
}

func (s *FirestoreNotificationStore) ListSystemNotifications(ctx context.Context, userID uint) ([]model.SystemNotification, error) {
	iter := s.client.Collection(systemNotificationsCollection).
		Where("userId", "==", int64(userID)).
		Documents(ctx)
	list, err := s.collect(iter)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	return list, nil
}

func (s *FirestoreNotificationStore) ListTrackedUsers(ctx context.Context) ([]uint, error) {
	iter := s.client.Collection(systemNotificationsCollection).
		Where("kind", "in", []string{string(model.KindDueSoon), string(model.KindOverdue)}).
		Documents(ctx)
	list, err := s.collect(iter)
	if err != nil {
		return nil, fmt.Errorf("failed to list tracked notifications: %w", err)
	}

	seen := make(map[uint]struct{})
	for i := range list {
		if reminder.ReadTrackedCount(&list[i]) > 0 {
			seen[list[i].UserID] = struct{}{}
		}
	}
	ids := make([]uint, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (s *FirestoreNotificationStore) MarkSystemNotificationRead(ctx context.Context, userID uint, kind model.NotificationKind) error {
	_, err := s.client.Collection(systemNotificationsCollection).
		Doc(notificationDocID(userID, kind)).
		Update(ctx, []firestore.Update{
			{Path: "unread", Value: false},
			{Path: "updatedAt", Value: s.now()},
		})
	if status.Code(err) == codes.NotFound {
		return reminder.ErrNotificationNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to mark %s notification read: %w", kind, err)
	}
	return nil
}

func (s *FirestoreNotificationStore) GetDigestLog(ctx context.Context, userID uint, digestDate string) (*model.DigestLog, error) {
	snap, err := s.client.Collection(digestLogsCollection).Doc(digestLogDocID(userID, digestDate)).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get digest log: %w", err)
	}

	var d digestLogDoc
	if err := snap.DataTo(&d); err != nil {
		return nil, fmt.Errorf("failed to decode digest log: %w", err)
	}
	e := d.model()
	return &e, nil
}

// CreateDigestLog fails with AlreadyExists when another run wrote the same
// day first; that is reported as created=false.
func (s *FirestoreNotificationStore) CreateDigestLog(ctx context.Context, entry *model.DigestLog) (bool, error) {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = s.now()
	}

	_, err := s.client.Collection(digestLogsCollection).
		Doc(digestLogDocID(entry.UserID, entry.DigestDate)).
		Create(ctx, toDigestLogDoc(entry))
	if status.Code(err) == codes.AlreadyExists {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to save digest log: %w", err)
	}
	return true, nil
}
