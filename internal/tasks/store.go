package tasks

import (
	"context"
	"database/sql"
	"errors"
)

type TaskStore interface {
	List(ctx context.Context) ([]Task, error)
	GetByID(ctx context.Context, taskID string) (*Task, error)
	EmployeeExists(ctx context.Context, employeeID string) (bool, error)
	Insert(ctx context.Context, t Task) error
	Update(ctx context.Context, t Task) (int64, error)
	UpdateStatus(ctx context.Context, taskID, status string) (int64, error)
	Delete(ctx context.Context, taskID string) (int64, error)
}

type Store struct{ db *sql.DB }

func NewStore(conn *sql.DB) *Store { return &Store{db: conn} }

const selectTask = `
SELECT t.task_id, t.title, t.description, t.assigned_to, e.name,
       t.due_date, t.status, t.created_by, t.created_at, t.updated_at
FROM tasks t
LEFT JOIN employees e ON e.employee_id = t.assigned_to
`

func scanTask(sc interface{ Scan(...any) error }) (Task, error) {
	var r taskRow
	err := sc.Scan(
		&r.TaskID, &r.Title, &r.Description, &r.AssignedTo, &r.EmployeeName,
		&r.DueDate, &r.Status, &r.CreatedBy, &r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return Task{}, err
	}
	return r.toModel(), nil
}

func (s *Store) List(ctx context.Context) ([]Task, error) {
	rows, err := s.db.QueryContext(ctx, selectTask+` ORDER BY t.created_at DESC, t.task_id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *Store) GetByID(ctx context.Context, taskID string) (*Task, error) {
	row := s.db.QueryRowContext(ctx, selectTask+` WHERE t.task_id = ? LIMIT 1`, taskID)
	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *Store) EmployeeExists(ctx context.Context, employeeID string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `
	SELECT 1 FROM employees WHERE employee_id = ? LIMIT 1`, employeeID,
	).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) Insert(ctx context.Context, t Task) error {
	createdBy := any(nil)
	if t.CreatedBy != "" {
		createdBy = t.CreatedBy
	}
	_, err := s.db.ExecContext(ctx, `
	INSERT INTO tasks (task_id, title, description, assigned_to, due_date, status, created_by, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, NOW(6), NOW(6))`,
		t.TaskID, t.Title, t.Description, t.AssignedTo, t.DueDate.UTC(), t.Status, createdBy)
	return err
}

func (s *Store) Update(ctx context.Context, t Task) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
	UPDATE tasks
	SET title = ?, description = ?, assigned_to = ?, due_date = ?, status = ?, updated_at = NOW(6)
	WHERE task_id = ?`,
		t.Title, t.Description, t.AssignedTo, t.DueDate.UTC(), t.Status, t.TaskID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *Store) UpdateStatus(ctx context.Context, taskID, status string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
	UPDATE tasks SET status = ?, updated_at = NOW(6) WHERE task_id = ?`,
		status, taskID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *Store) Delete(ctx context.Context, taskID string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE task_id = ?`, taskID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
