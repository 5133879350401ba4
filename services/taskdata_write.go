package services

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"taskplanner/model"
)

var ErrTaskNotFound = errors.New("task not found")

func (p *PlannerData) GetTask(ctx context.Context, taskID int) (*model.Tasks, error) {
	var task model.Tasks
	if err := p.db.WithContext(ctx).Where("task_id = ?", taskID).First(&task).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to fetch task %d: %w", taskID, err)
	}
	return &task, nil
}

// UpdateTask applies column updates; a map is used so nil and zero values
// are written too.
func (p *PlannerData) UpdateTask(ctx context.Context, taskID int, updates map[string]interface{}) error {
	res := p.db.WithContext(ctx).Model(&model.Tasks{}).Where("task_id = ?", taskID).Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("failed to update task %d: %w", taskID, res.Error)
	}
	return nil
}

func (p *PlannerData) SetEmailNotifications(ctx context.Context, userID uint, enabled bool) error {
	res := p.db.WithContext(ctx).Model(&model.User{}).Where("user_id = ?", userID).Update("email_notifications", enabled)
	if res.Error != nil {
		return fmt.Errorf("failed to update user %d: %w", userID, res.Error)
	}
	return nil
}
