package attendance

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// ===== Error model (employees/tasks と同型) =====
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
func ErrInternal(msg string) *APIError { return &APIError{Code: CodeInternal, Message: msg} }

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

// ===== インターフェース群 =====

type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

type IDGen interface {
	New() (string, error)
}

type ulidGen struct{}

func (ulidGen) New() (string, error) {
	t := time.Now().UTC()
	entropy := ulid.Monotonic(rand.Reader, 0)
	id, err := ulid.New(ulid.Timestamp(t), entropy)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// Publisher: 打刻や集計の変化を接続中のダッシュボードへ流す口。
// 具体実装は realtime.Hub（購読者が居なくても失敗しない）
type Publisher interface {
	Publish(event string, payload any)
}

// Hub が流すイベント名（socket互換のまま）
const (
	EventUpdate      = "attendance:update"
	EventDailyUpdate = "attendance:daily-update"
	EventDelete      = "attendance:delete"
)

// ===== Service本体 =====

type Service struct {
	store PunchStore
	pub   Publisher
	clock Clock
	id    IDGen
}

func NewService(conn *sql.DB, pub Publisher) *Service {
	return &Service{
		store: NewStore(conn),
		pub:   pub,
		clock: realClock{},
		id:    ulidGen{},
	}
}

// date_only は常に ts のUTC日付から導出する
func dayKey(t time.Time) string {
	return t.UTC().Format(DateLayout)
}

func validType(t string) bool {
	return t == TypeCheckIn || t == TypeCheckOut
}

func (s *Service) publish(event string, payload any) {
	if s.pub != nil {
		s.pub.Publish(event, payload)
	}
}

// 打刻登録（REST POST / socket punch の両方から呼ばれる）
func (s *Service) RecordPunch(ctx context.Context, in CreatePunchRequest) (PunchResponse, error) {
	if in.EmployeeID == "" {
		return PunchResponse{}, ErrInvalid("Employee ID is required")
	}
	if !validType(in.Type) {
		return PunchResponse{}, ErrInvalid("Invalid attendance type. Must be one of: check-in, check-out")
	}

	emp, err := s.store.GetEmployee(ctx, in.EmployeeID)
	if err != nil {
		return PunchResponse{}, err
	}
	if emp == nil {
		return PunchResponse{}, ErrNotFound("Employee not found")
	}

	now := s.clock.Now().UTC()
	ts := now
	if in.Timestamp != nil {
		ts = in.Timestamp.UTC()
	}

	// 抑止窓は「現在時刻から遡って5分」。ts基準ではない
	recent, err := s.store.HasRecent(ctx, in.EmployeeID, in.Type, now.Add(-dupWindow))
	if err != nil {
		return PunchResponse{}, err
	}
	if recent {
		if in.Type == TypeCheckIn {
			return PunchResponse{}, ErrConflict("Already checked in recently")
		}
		return PunchResponse{}, ErrConflict("Already checked out recently")
	}

	id, err := s.id.New()
	if err != nil {
		return PunchResponse{}, err
	}

	p := Punch{
		PunchID:       id,
		EmployeeID:    emp.ID,
		EmployeeName:  emp.Name,
		EmployeeEmail: emp.Email,
		Type:          in.Type,
		Timestamp:     ts,
		DateOnly:      dayKey(ts),
	}
	if err := s.store.Insert(ctx, p); err != nil {
		return PunchResponse{}, err
	}

	res := p.toDTO()
	s.publish(EventUpdate, res)
	s.publish(EventDailyUpdate, dailyChanged(p.EmployeeID, p.DateOnly))
	return res, nil
}

// 生ログ一覧（新しい順）。従業員情報を非正規化して返す
func (s *Service) ListLogs(ctx context.Context, q ListQuery) ([]PunchResponse, error) {
	punches, err := s.store.List(ctx, q)
	if err != nil {
		return nil, err
	}
	out := make([]PunchResponse, 0, len(punches))
	for _, p := range punches {
		dto := p.toDTO()
		dto.Employee = &EmployeeRef{ID: p.EmployeeID, Name: p.EmployeeName, Email: p.EmployeeEmail}
		out = append(out, dto)
	}
	return out, nil
}

// 日次サマリ。保存はせず打刻ログから毎回導出する
func (s *Service) ListDaily(ctx context.Context, q ListQuery) ([]DailySummaryResponse, error) {
	// 日付指定なしは今日（UTC）のみ
	if (q.Date == nil || *q.Date == "") &&
		(q.From == nil || *q.From == "") &&
		(q.To == nil || *q.To == "") {
		today := dayKey(s.clock.Now())
		q.Date = &today
	}

	punches, err := s.store.List(ctx, q)
	if err != nil {
		return nil, err
	}
	return aggregateDaily(punches), nil
}

type groupKey struct {
	employeeID string
	dateOnly   string
}

// aggregateDaily: (従業員, 日) ごとに最初のcheck-in / 最後のcheck-outを取り、
// 両方揃っていれば経過時間を算出する。out が in より前でも負値のまま返す
// （入力ミスを隠さない）
func aggregateDaily(punches []Punch) []DailySummaryResponse {
	groups := make(map[groupKey][]Punch)
	var order []groupKey
	for _, p := range punches {
		k := groupKey{employeeID: p.EmployeeID, dateOnly: p.DateOnly}
		if _, seen := groups[k]; !seen {
			order = append(order, k)
		}
		groups[k] = append(groups[k], p)
	}

	out := make([]DailySummaryResponse, 0, len(order))
	for _, k := range order {
		group := groups[k]

		var firstIn, lastOut *time.Time
		ids := make([]string, 0, len(group))
		for _, p := range group {
			ids = append(ids, p.PunchID)
			ts := p.Timestamp
			switch p.Type {
			case TypeCheckIn:
				if firstIn == nil || ts.Before(*firstIn) {
					firstIn = &ts
				}
			case TypeCheckOut:
				if lastOut == nil || ts.After(*lastOut) {
					lastOut = &ts
				}
			}
		}

		var totalHours *float64
		if firstIn != nil && lastOut != nil {
			h := lastOut.Sub(*firstIn).Hours()
			h = math.Round(h*100) / 100
			totalHours = &h
		}

		day, _ := time.ParseInLocation(DateLayout, k.dateOnly, time.UTC)
		out = append(out, DailySummaryResponse{
			ID:                strings.Join(ids, ","),
			EmployeeID:        k.employeeID,
			EmployeeName:      group[0].EmployeeName,
			Date:              k.dateOnly,
			DateFormatted:     day.Format(dailyDateDisplayLayout),
			CheckInTime:       formatTimePtr(firstIn),
			CheckOutTime:      formatTimePtr(lastOut),
			CheckInTimestamp:  firstIn,
			CheckOutTimestamp: lastOut,
			TotalHours:        totalHours,
			LogIDs:            ids,
		})
	}

	// 日付の降順 → 従業員名の昇順
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date > out[j].Date
		}
		return out[i].EmployeeName < out[j].EmployeeName
	})
	return out
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	v := t.Format(timeDisplayLayout)
	return &v
}

// 単一レコード更新。ts を変えたら date_only も同じ更新で導出し直す
func (s *Service) UpdatePunch(ctx context.Context, punchID string, ts time.Time, punchType string) (PunchResponse, error) {
	if !validType(punchType) {
		return PunchResponse{}, ErrInvalid("Invalid attendance type. Must be one of: check-in, check-out")
	}

	rec, err := s.store.GetByID(ctx, punchID)
	if err != nil {
		return PunchResponse{}, err
	}
	if rec == nil {
		return PunchResponse{}, ErrNotFound("Attendance record not found")
	}

	newDay := dayKey(ts)
	aff, err := s.store.Update(ctx, punchID, punchType, ts.UTC(), newDay)
	if err != nil {
		return PunchResponse{}, err
	}
	if aff == 0 {
		return PunchResponse{}, ErrNotFound("Attendance record not found")
	}

	updated := *rec
	updated.Type = punchType
	updated.Timestamp = ts.UTC()
	updated.DateOnly = newDay

	res := updated.toDTO()
	s.publish(EventUpdate, res)
	s.publish(EventDailyUpdate, dailyChanged(updated.EmployeeID, newDay))
	if rec.DateOnly != newDay {
		// 日付をまたいだ編集は移動元の日も変わっている
		s.publish(EventDailyUpdate, dailyChanged(updated.EmployeeID, rec.DateOnly))
	}
	return res, nil
}

// 日次一括置き換え。対象グループは先頭IDから解決し、date_only は
// グループの値を据え置く（管理者が日またぎの時刻を入力しても当日の枠に入れる）
func (s *Service) ReplaceDaily(ctx context.Context, punchIDs []string, checkIn, checkOut *time.Time) error {
	if len(punchIDs) == 0 || punchIDs[0] == "" {
		return ErrInvalid("Attendance record ID is required")
	}

	first, err := s.store.GetByID(ctx, punchIDs[0])
	if err != nil {
		return err
	}
	if first == nil {
		return ErrNotFound("Attendance record not found")
	}

	var punches []Punch
	for _, rep := range []struct {
		ts *time.Time
		t  string
	}{
		{checkIn, TypeCheckIn},
		{checkOut, TypeCheckOut},
	} {
		if rep.ts == nil {
			continue
		}
		id, err := s.id.New()
		if err != nil {
			return err
		}
		punches = append(punches, Punch{
			PunchID:    id,
			EmployeeID: first.EmployeeID,
			Type:       rep.t,
			Timestamp:  rep.ts.UTC(),
			DateOnly:   first.DateOnly,
		})
	}

	if err := s.store.ReplaceDay(ctx, first.EmployeeID, first.DateOnly, punches); err != nil {
		return ErrInternal("Failed to update attendance records: " + err.Error())
	}

	s.publish(EventDailyUpdate, dailyChanged(first.EmployeeID, first.DateOnly))
	return nil
}

// 削除。単一IDなら1件、カンマ連結ならそのグループ（従業員×日）を全部消す
func (s *Service) DeletePunches(ctx context.Context, punchIDs []string) (int64, error) {
	if len(punchIDs) == 0 || punchIDs[0] == "" {
		return 0, ErrInvalid("Attendance record ID is required")
	}

	first, err := s.store.GetByID(ctx, punchIDs[0])
	if err != nil {
		return 0, err
	}
	if first == nil {
		return 0, ErrNotFound("Attendance record not found")
	}

	var deleted int64
	if len(punchIDs) == 1 {
		aff, err := s.store.DeleteByID(ctx, punchIDs[0])
		if err != nil {
			return 0, err
		}
		if aff == 0 {
			return 0, ErrNotFound("Attendance record not found")
		}
		deleted = aff
		s.publish(EventDelete, map[string]any{
			"id":         first.PunchID,
			"employeeId": first.EmployeeID,
			"dateOnly":   first.DateOnly,
		})
	} else {
		aff, err := s.store.DeleteDay(ctx, first.EmployeeID, first.DateOnly)
		if err != nil {
			return 0, err
		}
		deleted = aff
	}

	s.publish(EventDailyUpdate, map[string]any{
		"employeeId":   first.EmployeeID,
		"employeeName": first.EmployeeName,
		"dateOnly":     first.DateOnly,
		"deleted":      true,
	})
	return deleted, nil
}

func dailyChanged(employeeID, dateOnly string) map[string]any {
	return map[string]any{
		"employeeId": employeeID,
		"dateOnly":   dateOnly,
		"updated":    true,
	}
}
