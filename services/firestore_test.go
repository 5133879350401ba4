package services

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"taskplanner/model"
	"taskplanner/reminder"
)

func TestFirestoreDocIDs(t *testing.T) {
	assert.Equal(t, "42_OVERDUE", notificationDocID(42, model.KindOverdue))
	assert.Equal(t, "42_2024-01-18", digestLogDocID(42, "2024-01-18"))
}

func TestNotificationDocConversion(t *testing.T) {
	at := time.Date(2024, 1, 18, 8, 0, 0, 0, time.UTC)
	n := &model.SystemNotification{
		ID: "abc", UserID: 3, Kind: model.KindDueSoon, Title: "2 tasks due soon",
		Severity: model.SeverityWarn, Unread: true, LastTriggeredAt: at,
		TrackingMetadata: datatypes.JSONMap{"count": int64(2)},
	}

	d := toNotificationDoc(n)
	assert.EqualValues(t, 3, d.UserID)
	assert.Equal(t, "DUE_SOON", d.Kind)

	back := d.model()
	assert.Equal(t, *n, back)
	assert.Equal(t, 2, reminder.ReadTrackedCount(&back))
}

func TestDigestLogDocConversion(t *testing.T) {
	e := &model.DigestLog{
		ID: "x", UserID: 9, DigestDate: "2024-01-18", Status: model.DigestFailed,
		UpcomingCount: 1, OverdueCount: 2, Error: "timeout",
	}
	assert.Equal(t, *e, toDigestLogDoc(e).model())
}

// The remaining tests need the Firestore emulator.
func newEmulatorStore(t *testing.T) *FirestoreNotificationStore {
	t.Helper()
	if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		t.Skip("FIRESTORE_EMULATOR_HOST not set")
	}
	ctx := context.Background()
	client, err := firestore.NewClient(ctx, fmt.Sprintf("taskplanner-test-%d", time.Now().UnixNano()))
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return NewFirestoreNotificationStore(client)
}

func TestFirestoreNotificationStore(t *testing.T) {
	store := newEmulatorStore(t)
	ctx := context.Background()

	got, err := store.GetSystemNotification(ctx, 1, model.KindOverdue)
	require.NoError(t, err)
	assert.Nil(t, got)

	n := &model.SystemNotification{
		UserID: 1, Kind: model.KindOverdue, Title: "1 overdue task", Severity: model.SeverityCritical,
		Unread: true, LastTriggeredAt: time.Now().UTC(), TrackingMetadata: datatypes.JSONMap{"count": 1},
	}
	require.NoError(t, store.UpsertSystemNotification(ctx, n))
	require.NoError(t, store.UpsertSystemNotification(ctx, &model.SystemNotification{
		UserID: 2, Kind: model.KindDueSoon, Title: "none", Severity: model.SeverityInfo,
		TrackingMetadata: datatypes.JSONMap{"count": 0},
	}))

	got, err = store.GetSystemNotification(ctx, 1, model.KindOverdue)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, n.ID, got.ID)
	assert.Equal(t, 1, reminder.ReadTrackedCount(got))

	list, err := store.ListSystemNotifications(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	tracked, err := store.ListTrackedUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, []uint{1}, tracked)

	require.NoError(t, store.MarkSystemNotificationRead(ctx, 1, model.KindOverdue))
	got, err = store.GetSystemNotification(ctx, 1, model.KindOverdue)
	require.NoError(t, err)
	assert.False(t, got.Unread)

	assert.ErrorIs(t, store.MarkSystemNotificationRead(ctx, 1, model.KindEmailSent), reminder.ErrNotificationNotFound)
}

func TestFirestoreDigestLogIsInsertOnce(t *testing.T) {
	store := newEmulatorStore(t)
	ctx := context.Background()

	created, err := store.CreateDigestLog(ctx, &model.DigestLog{UserID: 1, DigestDate: "2024-01-18", Status: model.DigestSent, MessageID: "<a>"})
	require.NoError(t, err)
	assert.True(t, created)

	created, err = store.CreateDigestLog(ctx, &model.DigestLog{UserID: 1, DigestDate: "2024-01-18", Status: model.DigestFailed})
	require.NoError(t, err)
	assert.False(t, created)

	got, err := store.GetDigestLog(ctx, 1, "2024-01-18")
	require.NoError(t, err)
	assert.Equal(t, "<a>", got.MessageID)
}
