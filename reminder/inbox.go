package reminder

import (
	"context"
	"sort"

	"taskplanner/model"
)

// Notifications returns the user's system notifications in kind order.
func (s *Service) Notifications(ctx context.Context, userID uint) ([]model.SystemNotification, error) {
	list, err := s.store.ListSystemNotifications(ctx, userID)
	if err != nil {
		return nil, err
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Kind < list[j].Kind })
	return list, nil
}

// MarkRead clears the unread flag. Content and tracking metadata are left
// alone, so the next reconciliation only resurfaces it on a real change.
func (s *Service) MarkRead(ctx context.Context, userID uint, kind model.NotificationKind) error {
	return s.store.MarkSystemNotificationRead(ctx, userID, kind)
}
