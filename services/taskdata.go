package services

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"taskplanner/model"
	"taskplanner/reminder"
)

// PlannerData reads tasks and users from the planner's relational database.
type PlannerData struct {
	db *gorm.DB
}

func NewPlannerData(db *gorm.DB) *PlannerData {
	return &PlannerData{db: db}
}

func (p *PlannerData) activeTasks(ctx context.Context) *gorm.DB {
	return p.db.WithContext(ctx).
		Where("status <> ?", model.TaskStatusDone).
		Where("deadline_date IS NOT NULL").
		Order("create_by, task_id")
}

func (p *PlannerData) ActiveTasksWithDeadline(ctx context.Context) ([]model.Tasks, error) {
	var tasks []model.Tasks
	if err := p.activeTasks(ctx).Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch tasks: %w", err)
	}
	return tasks, nil
}

func (p *PlannerData) ActiveTasksWithDeadlineForUser(ctx context.Context, userID uint) ([]model.Tasks, error) {
	var tasks []model.Tasks
	if err := p.activeTasks(ctx).Where("create_by = ?", userID).Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch tasks for user %d: %w", userID, err)
	}
	return tasks, nil
}

func (p *PlannerData) GetUser(ctx context.Context, userID uint) (*model.User, error) {
	var user model.User
	if err := p.db.WithContext(ctx).Where("user_id = ?", userID).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, reminder.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to fetch user %d: %w", userID, err)
	}
	return &user, nil
}
