package tasks

import "time"

const (
	StatusPending    = "pending"
	StatusInProgress = "in-progress"
	StatusCompleted  = "completed"
)

type CreateTaskRequest struct {
	Title       string    `json:"title" binding:"required"`
	Description string    `json:"description"`
	AssignedTo  string    `json:"assignedTo" binding:"required"`
	DueDate     time.Time `json:"dueDate" binding:"required"`
	Status      *string   `json:"status,omitempty"` // 未指定なら pending
}

type UpdateTaskRequest struct {
	Title       *string    `json:"title,omitempty"`
	Description *string    `json:"description,omitempty"`
	AssignedTo  *string    `json:"assignedTo,omitempty"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
	Status      *string    `json:"status,omitempty"`
}

type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

type TaskResponse struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	AssignedTo   string    `json:"assignedTo"`
	EmployeeName string    `json:"employeeName"`
	DueDate      time.Time `json:"dueDate"`
	Status       string    `json:"status"`
}
