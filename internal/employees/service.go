package employees

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/oklog/ulid/v2"
	"golang.org/x/crypto/bcrypt"
)

// ===== Error model (attendance/tasks と同型) =====
type Code string

const (
	CodeInvalidArgument Code = "INVALID_ARGUMENT"
	CodeNotFound        Code = "NOT_FOUND"
	CodeConflict        Code = "CONFLICT"
	CodeInternal        Code = "INTERNAL"
)

type APIError struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string      { return fmt.Sprintf("%s: %s", e.Code, e.Message) }
func ErrInvalid(msg string) *APIError  { return &APIError{Code: CodeInvalidArgument, Message: msg} }
func ErrNotFound(msg string) *APIError { return &APIError{Code: CodeNotFound, Message: msg} }
func ErrConflict(msg string) *APIError { return &APIError{Code: CodeConflict, Message: msg} }

func ToHTTPStatus(err error) int {
	var api *APIError
	if errors.As(err, &api) {
		switch api.Code {
		case CodeInvalidArgument:
			return 400
		case CodeNotFound:
			return 404
		case CodeConflict:
			return 409
		default:
			return 500
		}
	}
	return 500
}

const mysqlErrDuplicateEntry = 1062

// ===== Service本体 =====

type Service struct {
	store EmployeeStore
	clock func() time.Time
	newID func() (string, error)
}

func NewService(conn *sql.DB) *Service {
	return &Service{
		store: NewStore(conn),
		clock: time.Now,
		newID: newULID,
	}
}

func newULID() (string, error) {
	t := time.Now().UTC()
	id, err := ulid.New(ulid.Timestamp(t), ulid.Monotonic(rand.Reader, 0))
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

func (s *Service) List(ctx context.Context) ([]EmployeeResponse, error) {
	list, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]EmployeeResponse, 0, len(list))
	for _, e := range list {
		out = append(out, e.toDTO())
	}
	return out, nil
}

func (s *Service) Create(ctx context.Context, in CreateEmployeeRequest) (EmployeeResponse, error) {
	joinDate := s.clock().UTC()
	if in.JoinDate != nil && *in.JoinDate != "" {
		parsed, err := parseDate(*in.JoinDate)
		if err != nil {
			return EmployeeResponse{}, ErrInvalid("joinDate must be YYYY-MM-DD")
		}
		joinDate = parsed
	}

	hash, err := hashPassword(in.Password)
	if err != nil {
		return EmployeeResponse{}, err
	}

	id, err := s.newID()
	if err != nil {
		return EmployeeResponse{}, err
	}

	e := Employee{
		EmployeeID: id,
		Name:       in.Name,
		Email:      in.Email,
		Mobile:     in.Mobile,
		Role:       in.Role,
		Position:   in.Position,
		Status:     in.Status == nil || *in.Status,
		JoinDate:   joinDate,
	}
	if err := s.store.Insert(ctx, e, hash); err != nil {
		if isDuplicate(err) {
			return EmployeeResponse{}, ErrConflict("Employee email already exists")
		}
		return EmployeeResponse{}, err
	}

	e.CreatedAt = s.clock().UTC()
	e.UpdatedAt = e.CreatedAt
	return e.toDTO(), nil
}

func (s *Service) Update(ctx context.Context, employeeID string, in UpdateEmployeeRequest) (EmployeeResponse, error) {
	existing, err := s.store.GetByID(ctx, employeeID)
	if err != nil {
		return EmployeeResponse{}, err
	}
	if existing == nil {
		return EmployeeResponse{}, ErrNotFound("Employee not found")
	}

	e := *existing
	if in.Name != nil {
		e.Name = *in.Name
	}
	if in.Email != nil {
		e.Email = *in.Email
	}
	if in.Mobile != nil {
		e.Mobile = *in.Mobile
	}
	if in.Role != nil {
		e.Role = *in.Role
	}
	if in.Position != nil {
		e.Position = *in.Position
	}
	if in.Status != nil {
		e.Status = *in.Status
	}
	if in.JoinDate != nil && *in.JoinDate != "" {
		parsed, err := parseDate(*in.JoinDate)
		if err != nil {
			return EmployeeResponse{}, ErrInvalid("joinDate must be YYYY-MM-DD")
		}
		e.JoinDate = parsed
	}

	hash, err := hashPassword(in.Password)
	if err != nil {
		return EmployeeResponse{}, err
	}

	if _, err := s.store.Update(ctx, e, hash); err != nil {
		if isDuplicate(err) {
			return EmployeeResponse{}, ErrConflict("Employee email already exists")
		}
		return EmployeeResponse{}, err
	}
	e.UpdatedAt = s.clock().UTC()
	return e.toDTO(), nil
}

func (s *Service) Delete(ctx context.Context, employeeID string) error {
	aff, err := s.store.Delete(ctx, employeeID)
	if err != nil {
		return err
	}
	if aff == 0 {
		return ErrNotFound("Employee not found")
	}
	return nil
}

// ---------- helpers ----------

func parseDate(v string) (time.Time, error) {
	if t, err := time.ParseInLocation(DateLayout, v, time.UTC); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, v)
}

// 元システムは平文保存していたが、ここではログインユーザーと同様にbcryptで持つ
func hashPassword(p *string) (*string, error) {
	if p == nil || *p == "" {
		return nil, nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(*p), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	h := string(hash)
	return &h, nil
}

func isDuplicate(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlErrDuplicateEntry
}
