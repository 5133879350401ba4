package services

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"taskplanner/model"
	"taskplanner/reminder"
)

// SQLNotificationStore keeps system notifications and digest logs in the
// relational database next to the planner tables.
type SQLNotificationStore struct {
	db *gorm.DB
}

func NewSQLNotificationStore(db *gorm.DB) *SQLNotificationStore {
	return &SQLNotificationStore{db: db}
}

func (s *SQLNotificationStore) GetSystemNotification(ctx context.Context, userID uint, kind model.NotificationKind) (*model.SystemNotification, error) {
	var n model.SystemNotification
	err := s.db.WithContext(ctx).Where("user_id = ? AND kind = ?", userID, kind).First(&n).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s notification: %w", kind, err)
	}
	return &n, nil
}

// UpsertSystemNotification inserts the document or, when (user_id, kind)
// already exists, overwrites its mutable columns in place.
func (s *SQLNotificationStore) UpsertSystemNotification(ctx context.Context, n *model.SystemNotification) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "kind"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"title", "message", "severity", "unread",
			"last_triggered_at", "tracking_metadata", "updated_at",
		}),
	}).Create(n).Error
	if err != nil {
		return fmt.Errorf("failed to save %s notification: %w", n.Kind, err)
	}
	return nil
}

func (s *SQLNotificationStore) ListSystemNotifications(ctx context.Context, userID uint) ([]model.SystemNotification, error) {
	var list []model.SystemNotification
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("kind").Find(&list).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch notifications: %w", err)
	}
	return list, nil
}

// ListTrackedUsers returns users holding a DUE_SOON or OVERDUE document with
// a non-zero count. The count lives in a JSON column, so the filter runs here
// rather than in SQL.
func (s *SQLNotificationStore) ListTrackedUsers(ctx context.Context) ([]uint, error) {
	var rows []model.SystemNotification
	err := s.db.WithContext(ctx).
		Select("user_id", "kind", "tracking_metadata").
		Where("kind IN ?", []model.NotificationKind{model.KindDueSoon, model.KindOverdue}).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch tracked notifications: %w", err)
	}

	seen := make(map[uint]struct{})
	for i := range rows {
		if reminder.ReadTrackedCount(&rows[i]) > 0 {
			seen[rows[i].UserID] = struct{}{}
		}
	}
	ids := make([]uint, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (s *SQLNotificationStore) MarkSystemNotificationRead(ctx context.Context, userID uint, kind model.NotificationKind) error {
	// MySQL reports zero affected rows for an unchanged value, so existence is
	// checked separately.
	n, err := s.GetSystemNotification(ctx, userID, kind)
	if err != nil {
		return err
	}
	if n == nil {
		return reminder.ErrNotificationNotFound
	}
	if !n.Unread {
		return nil
	}
	err = s.db.WithContext(ctx).Model(&model.SystemNotification{}).
		Where("user_id = ? AND kind = ?", userID, kind).
		Update("unread", false).Error
	if err != nil {
		return fmt.Errorf("failed to mark %s notification read: %w", kind, err)
	}
	return nil
}

func (s *SQLNotificationStore) GetDigestLog(ctx context.Context, userID uint, digestDate string) (*model.DigestLog, error) {
	var entry model.DigestLog
	err := s.db.WithContext(ctx).Where("user_id = ? AND digest_date = ?", userID, digestDate).First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch digest log: %w", err)
	}
	return &entry, nil
}

// CreateDigestLog relies on the (user_id, digest_date) unique index: a row
// that already exists leaves RowsAffected at zero.
func (s *SQLNotificationStore) CreateDigestLog(ctx context.Context, entry *model.DigestLog) (bool, error) {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	res := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(entry)
	if res.Error != nil {
		return false, fmt.Errorf("failed to save digest log: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}
