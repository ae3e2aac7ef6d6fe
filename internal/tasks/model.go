package tasks

import "time"

// DB行に対応（スキャン用）。担当者名は employees をJOINして取る
type taskRow struct {
	TaskID       string
	Title        string
	Description  string
	AssignedTo   string
	EmployeeName *string // 担当者が消えていてもタスクは残る
	DueDate      time.Time
	Status       string
	CreatedBy    *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Task struct {
	TaskID       string
	Title        string
	Description  string
	AssignedTo   string
	EmployeeName string
	DueDate      time.Time
	Status       string
	CreatedBy    string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (r taskRow) toModel() Task {
	t := Task{
		TaskID:      r.TaskID,
		Title:       r.Title,
		Description: r.Description,
		AssignedTo:  r.AssignedTo,
		DueDate:     r.DueDate.UTC(),
		Status:      r.Status,
		CreatedAt:   r.CreatedAt.UTC(),
		UpdatedAt:   r.UpdatedAt.UTC(),
	}
	if r.EmployeeName != nil {
		t.EmployeeName = *r.EmployeeName
	} else {
		t.EmployeeName = "Unassigned"
	}
	if r.CreatedBy != nil {
		t.CreatedBy = *r.CreatedBy
	}
	return t
}

func (t Task) toDTO() TaskResponse {
	return TaskResponse{
		ID:           t.TaskID,
		Title:        t.Title,
		Description:  t.Description,
		AssignedTo:   t.AssignedTo,
		EmployeeName: t.EmployeeName,
		DueDate:      t.DueDate,
		Status:       t.Status,
	}
}
