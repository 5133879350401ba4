package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"taskplanner/model"
)

func TestPushMessage(t *testing.T) {
	msg := pushMessage("device-token", &model.SystemNotification{
		Kind: model.KindOverdue, Title: "2 overdue tasks", Message: "2 tasks have passed their deadline.",
		Severity: model.SeverityCritical,
	})

	assert.Equal(t, "device-token", msg.Token)
	assert.Equal(t, "2 overdue tasks", msg.Notification.Title)
	assert.Equal(t, "2 tasks have passed their deadline.", msg.Notification.Body)
	assert.Equal(t, map[string]string{"type": "system", "kind": "OVERDUE", "severity": "critical"}, msg.Data)
}
