package tasks

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
)

// ===== Error model (attendance/employees と同型) =====
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

// ステータス変更をダッシュボードへ流すイベント名
const EventTaskUpdate = "task-update"

type Publisher interface {
	Publish(event string, payload any)
}

// ===== Service本体 =====

type Service struct {
	store TaskStore
	pub   Publisher
	newID func() (string, error)
}

func NewService(conn *sql.DB, pub Publisher) *Service {
	return &Service{store: NewStore(conn), pub: pub, newID: newULID}
}

func newULID() (string, error) {
	t := time.Now().UTC()
	id, err := ulid.New(ulid.Timestamp(t), ulid.Monotonic(rand.Reader, 0))
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

func validStatus(s string) bool {
	return s == StatusPending || s == StatusInProgress || s == StatusCompleted
}

func (s *Service) List(ctx context.Context) ([]TaskResponse, error) {
	list, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]TaskResponse, 0, len(list))
	for _, t := range list {
		out = append(out, t.toDTO())
	}
	return out, nil
}

// Create: createdBy はログイン中ユーザー（handlerがcontextから渡す）
func (s *Service) Create(ctx context.Context, in CreateTaskRequest, createdBy string) (TaskResponse, error) {
	status := StatusPending
	if in.Status != nil && *in.Status != "" {
		if !validStatus(*in.Status) {
			return TaskResponse{}, ErrInvalid("Invalid status value")
		}
		status = *in.Status
	}

	exists, err := s.store.EmployeeExists(ctx, in.AssignedTo)
	if err != nil {
		return TaskResponse{}, err
	}
	if !exists {
		return TaskResponse{}, ErrNotFound("Assigned employee not found")
	}

	id, err := s.newID()
	if err != nil {
		return TaskResponse{}, err
	}

	t := Task{
		TaskID:      id,
		Title:       in.Title,
		Description: in.Description,
		AssignedTo:  in.AssignedTo,
		DueDate:     in.DueDate.UTC(),
		Status:      status,
		CreatedBy:   createdBy,
	}
	if err := s.store.Insert(ctx, t); err != nil {
		return TaskResponse{}, err
	}

	// 担当者名は登録直後の返却にも載せる
	created, err := s.store.GetByID(ctx, id)
	if err != nil || created == nil {
		return t.toDTO(), nil
	}
	return created.toDTO(), nil
}

func (s *Service) Update(ctx context.Context, taskID string, in UpdateTaskRequest) (TaskResponse, error) {
	existing, err := s.store.GetByID(ctx, taskID)
	if err != nil {
		return TaskResponse{}, err
	}
	if existing == nil {
		return TaskResponse{}, ErrNotFound("Task not found")
	}

	t := *existing
	if in.Title != nil {
		t.Title = *in.Title
	}
	if in.Description != nil {
		t.Description = *in.Description
	}
	if in.AssignedTo != nil && *in.AssignedTo != t.AssignedTo {
		exists, err := s.store.EmployeeExists(ctx, *in.AssignedTo)
		if err != nil {
			return TaskResponse{}, err
		}
		if !exists {
			return TaskResponse{}, ErrNotFound("Assigned employee not found")
		}
		t.AssignedTo = *in.AssignedTo
	}
	if in.DueDate != nil {
		t.DueDate = in.DueDate.UTC()
	}
	if in.Status != nil {
		if !validStatus(*in.Status) {
			return TaskResponse{}, ErrInvalid("Invalid status value")
		}
		t.Status = *in.Status
	}

	if _, err := s.store.Update(ctx, t); err != nil {
		return TaskResponse{}, err
	}

	updated, err := s.store.GetByID(ctx, taskID)
	if err != nil || updated == nil {
		return t.toDTO(), nil
	}
	return updated.toDTO(), nil
}

// UpdateStatus: 状態変更だけは一般adminにも開放されている操作
func (s *Service) UpdateStatus(ctx context.Context, taskID, status string) (TaskResponse, error) {
	if !validStatus(status) {
		return TaskResponse{}, ErrInvalid("Invalid status value")
	}

	aff, err := s.store.UpdateStatus(ctx, taskID, status)
	if err != nil {
		return TaskResponse{}, err
	}
	if aff == 0 {
		if t, err := s.store.GetByID(ctx, taskID); err != nil || t == nil {
			return TaskResponse{}, ErrNotFound("Task not found")
		}
	}

	t, err := s.store.GetByID(ctx, taskID)
	if err != nil {
		return TaskResponse{}, err
	}
	if t == nil {
		return TaskResponse{}, ErrNotFound("Task not found")
	}

	if s.pub != nil {
		s.pub.Publish(EventTaskUpdate, map[string]any{
			"id":     t.TaskID,
			"status": t.Status,
		})
	}
	return t.toDTO(), nil
}

func (s *Service) Delete(ctx context.Context, taskID string) error {
	aff, err := s.store.Delete(ctx, taskID)
	if err != nil {
		return err
	}
	if aff == 0 {
		return ErrNotFound("Task not found")
	}
	return nil
}
