package employees

import (
	"context"
	"database/sql"
	"errors"
)

type EmployeeStore interface {
	List(ctx context.Context) ([]Employee, error)
	GetByID(ctx context.Context, employeeID string) (*Employee, error)
	Insert(ctx context.Context, e Employee, passwordHash *string) error
	Update(ctx context.Context, e Employee, passwordHash *string) (int64, error)
	Delete(ctx context.Context, employeeID string) (int64, error)
}

type Store struct{ db *sql.DB }

func NewStore(conn *sql.DB) *Store { return &Store{db: conn} }

const selectEmployee = `
SELECT employee_id, name, email, mobile, role, position, status,
       join_date, password_hash, created_at, updated_at
FROM employees
`

func scanEmployee(sc interface{ Scan(...any) error }) (Employee, error) {
	var r employeeRow
	err := sc.Scan(
		&r.EmployeeID, &r.Name, &r.Email, &r.Mobile, &r.Role, &r.Position,
		&r.Status, &r.JoinDate, &r.PasswordHash, &r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return Employee{}, err
	}
	return r.toModel(), nil
}

func (s *Store) List(ctx context.Context) ([]Employee, error) {
	rows, err := s.db.QueryContext(ctx, selectEmployee+` ORDER BY created_at DESC, employee_id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Employee
	for rows.Next() {
		e, err := scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) GetByID(ctx context.Context, employeeID string) (*Employee, error) {
	row := s.db.QueryRowContext(ctx, selectEmployee+` WHERE employee_id = ? LIMIT 1`, employeeID)
	e, err := scanEmployee(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (s *Store) Insert(ctx context.Context, e Employee, passwordHash *string) error {
	_, err := s.db.ExecContext(ctx, `
	INSERT INTO employees
	(employee_id, name, email, mobile, role, position, status, join_date, password_hash, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, NOW(6), NOW(6))`,
		e.EmployeeID, e.Name, e.Email, e.Mobile, e.Role, e.Position,
		boolToInt(e.Status), e.JoinDate.Format(DateLayout), passwordHash)
	return err
}

// Update: 全カラム更新。password_hash は nil なら据え置き
func (s *Store) Update(ctx context.Context, e Employee, passwordHash *string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
	UPDATE employees
	SET name = ?, email = ?, mobile = ?, role = ?, position = ?, status = ?,
	    join_date = ?, password_hash = COALESCE(?, password_hash), updated_at = NOW(6)
	WHERE employee_id = ?`,
		e.Name, e.Email, e.Mobile, e.Role, e.Position, boolToInt(e.Status),
		e.JoinDate.Format(DateLayout), passwordHash, e.EmployeeID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *Store) Delete(ctx context.Context, employeeID string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM employees WHERE employee_id = ?`, employeeID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
