package attendance

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"parlour-backend/internal/platform/db"
)

// Service から見た打刻ストア。テストではメモリ実装に差し替える
type PunchStore interface {
	GetEmployee(ctx context.Context, employeeID string) (*EmployeeRef, error)
	HasRecent(ctx context.Context, employeeID, punchType string, since time.Time) (bool, error)
	Insert(ctx context.Context, p Punch) error
	GetByID(ctx context.Context, punchID string) (*Punch, error)
	List(ctx context.Context, q ListQuery) ([]Punch, error)
	Update(ctx context.Context, punchID, punchType string, ts time.Time, dateOnly string) (int64, error)
	DeleteByID(ctx context.Context, punchID string) (int64, error)
	DeleteDay(ctx context.Context, employeeID, dateOnly string) (int64, error)
	ReplaceDay(ctx context.Context, employeeID, dateOnly string, punches []Punch) error
}

type Store struct{ db *sql.DB }

func NewStore(conn *sql.DB) *Store { return &Store{db: conn} }

const selectPunch = `
SELECT a.punch_id, a.employee_id, e.name, e.email, a.type,
       a.ts, DATE_FORMAT(a.date_only, '%Y-%m-%d') AS date_only
FROM attendance a
JOIN employees e ON e.employee_id = a.employee_id
`

func (s *Store) GetEmployee(ctx context.Context, employeeID string) (*EmployeeRef, error) {
	var ref EmployeeRef
	err := s.db.QueryRowContext(ctx, `
	SELECT employee_id, name, email FROM employees
	WHERE employee_id = ? LIMIT 1`, employeeID,
	).Scan(&ref.ID, &ref.Name, &ref.Email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ref, nil
}

// HasRecent: 同一従業員・同一種別で since 以降の打刻が存在するか（抑止窓の判定）
func (s *Store) HasRecent(ctx context.Context, employeeID, punchType string, since time.Time) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `
	SELECT 1 FROM attendance
	WHERE employee_id = ? AND type = ? AND ts >= ? LIMIT 1`,
		employeeID, punchType, since.UTC(),
	).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) Insert(ctx context.Context, p Punch) error {
	_, err := s.db.ExecContext(ctx, `
	INSERT INTO attendance (punch_id, employee_id, type, ts, date_only, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, NOW(6), NOW(6))`,
		p.PunchID, p.EmployeeID, p.Type, p.Timestamp.UTC(), p.DateOnly)
	return err
}

func (s *Store) GetByID(ctx context.Context, punchID string) (*Punch, error) {
	row := s.db.QueryRowContext(ctx, selectPunch+` WHERE a.punch_id = ? LIMIT 1`, punchID)
	var r punchRow
	err := row.Scan(&r.PunchID, &r.EmployeeID, &r.EmployeeName, &r.EmployeeEmail, &r.Type, &r.Timestamp, &r.DateOnly)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	p := r.toModel()
	return &p, nil
}

// List: 条件に応じて動的WHERE。新しい打刻が先頭
func (s *Store) List(ctx context.Context, q ListQuery) ([]Punch, error) {
	var (
		buf    bytes.Buffer
		args   []any
		wheres []string
	)

	buf.WriteString(selectPunch)

	if q.EmployeeID != nil && *q.EmployeeID != "" {
		wheres = append(wheres, "a.employee_id = ?")
		args = append(args, *q.EmployeeID)
	}
	if q.Date != nil && *q.Date != "" {
		wheres = append(wheres, "a.date_only = ?")
		args = append(args, *q.Date)
	} else {
		if q.From != nil && *q.From != "" {
			wheres = append(wheres, "a.date_only >= ?")
			args = append(args, *q.From)
		}
		if q.To != nil && *q.To != "" {
			wheres = append(wheres, "a.date_only <= ?")
			args = append(args, *q.To)
		}
	}
	if len(wheres) > 0 {
		buf.WriteString(" WHERE " + strings.Join(wheres, " AND "))
	}
	buf.WriteString(" ORDER BY a.ts DESC, a.punch_id DESC")

	rows, err := s.db.QueryContext(ctx, buf.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Punch
	for rows.Next() {
		var r punchRow
		if err := rows.Scan(&r.PunchID, &r.EmployeeID, &r.EmployeeName, &r.EmployeeEmail, &r.Type, &r.Timestamp, &r.DateOnly); err != nil {
			return nil, err
		}
		out = append(out, r.toModel())
	}
	return out, rows.Err()
}

func (s *Store) Update(ctx context.Context, punchID, punchType string, ts time.Time, dateOnly string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
	UPDATE attendance
	SET type = ?, ts = ?, date_only = ?, updated_at = NOW(6)
	WHERE punch_id = ?`,
		punchType, ts.UTC(), dateOnly, punchID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *Store) DeleteByID(ctx context.Context, punchID string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM attendance WHERE punch_id = ?`, punchID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *Store) DeleteDay(ctx context.Context, employeeID, dateOnly string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
	DELETE FROM attendance WHERE employee_id = ? AND date_only = ?`,
		employeeID, dateOnly)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ReplaceDay: 対象日の打刻を全削除して渡された打刻を入れ直す。
// 全体が1トランザクション。途中で失敗したら元の打刻は残る
func (s *Store) ReplaceDay(ctx context.Context, employeeID, dateOnly string, punches []Punch) error {
	return db.RunInTx(ctx, s.db, nil, func(ctx context.Context, tx db.DBTX) error {
		if _, err := tx.ExecContext(ctx, `
		DELETE FROM attendance WHERE employee_id = ? AND date_only = ?`,
			employeeID, dateOnly); err != nil {
			return err
		}
		for _, p := range punches {
			if _, err := tx.ExecContext(ctx, `
			INSERT INTO attendance (punch_id, employee_id, type, ts, date_only, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, NOW(6), NOW(6))`,
				p.PunchID, p.EmployeeID, p.Type, p.Timestamp.UTC(), p.DateOnly); err != nil {
				return err
			}
		}
		return nil
	})
}
