package dto

type UpdateTaskStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=0 1 2"`
}

// AdjustDeadlineRequest clears the deadline when DeadlineDate is null.
type AdjustDeadlineRequest struct {
	DeadlineDate *string `json:"deadline_date"`
	DeadlineTime *string `json:"deadline_time"`
}
