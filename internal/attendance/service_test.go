package attendance

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ===== テスト用フェイク =====

// memStore: PunchStore のメモリ実装。SQL実装と同じく一覧時に従業員名をJOINする
type memStore struct {
	employees map[string]EmployeeRef
	punches   []Punch

	// ReplaceDay を途中失敗させる（トランザクション失敗の再現）
	failReplace bool
}

func newMemStore() *memStore {
	return &memStore{employees: make(map[string]EmployeeRef)}
}

func (m *memStore) addEmployee(id, name string) {
	m.employees[id] = EmployeeRef{ID: id, Name: name, Email: name + "@parlour.local"}
}

func (m *memStore) GetEmployee(_ context.Context, id string) (*EmployeeRef, error) {
	if e, ok := m.employees[id]; ok {
		return &e, nil
	}
	return nil, nil
}

func (m *memStore) HasRecent(_ context.Context, employeeID, punchType string, since time.Time) (bool, error) {
	for _, p := range m.punches {
		if p.EmployeeID == employeeID && p.Type == punchType && !p.Timestamp.Before(since) {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) Insert(_ context.Context, p Punch) error {
	m.punches = append(m.punches, p)
	return nil
}

func (m *memStore) withName(p Punch) Punch {
	if e, ok := m.employees[p.EmployeeID]; ok {
		p.EmployeeName = e.Name
		p.EmployeeEmail = e.Email
	}
	return p
}

func (m *memStore) GetByID(_ context.Context, id string) (*Punch, error) {
	for _, p := range m.punches {
		if p.PunchID == id {
			p = m.withName(p)
			return &p, nil
		}
	}
	return nil, nil
}

func (m *memStore) List(_ context.Context, q ListQuery) ([]Punch, error) {
	var out []Punch
	for _, p := range m.punches {
		if q.EmployeeID != nil && p.EmployeeID != *q.EmployeeID {
			continue
		}
		if q.Date != nil {
			if p.DateOnly != *q.Date {
				continue
			}
		} else {
			if q.From != nil && p.DateOnly < *q.From {
				continue
			}
			if q.To != nil && p.DateOnly > *q.To {
				continue
			}
		}
		out = append(out, m.withName(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	return out, nil
}

func (m *memStore) Update(_ context.Context, id, punchType string, ts time.Time, dateOnly string) (int64, error) {
	for i := range m.punches {
		if m.punches[i].PunchID == id {
			m.punches[i].Type = punchType
			m.punches[i].Timestamp = ts
			m.punches[i].DateOnly = dateOnly
			return 1, nil
		}
	}
	return 0, nil
}

func (m *memStore) DeleteByID(_ context.Context, id string) (int64, error) {
	for i := range m.punches {
		if m.punches[i].PunchID == id {
			m.punches = append(m.punches[:i], m.punches[i+1:]...)
			return 1, nil
		}
	}
	return 0, nil
}

func (m *memStore) DeleteDay(_ context.Context, employeeID, dateOnly string) (int64, error) {
	var kept []Punch
	var n int64
	for _, p := range m.punches {
		if p.EmployeeID == employeeID && p.DateOnly == dateOnly {
			n++
			continue
		}
		kept = append(kept, p)
	}
	m.punches = kept
	return n, nil
}

func (m *memStore) ReplaceDay(_ context.Context, employeeID, dateOnly string, punches []Punch) error {
	if m.failReplace {
		// 失敗時は一切書き換えない（all-or-nothing）
		return errors.New("tx aborted")
	}
	if _, err := m.DeleteDay(nil, employeeID, dateOnly); err != nil {
		return err
	}
	m.punches = append(m.punches, punches...)
	return nil
}

type capturedEvent struct {
	name    string
	payload any
}

type capturePub struct{ events []capturedEvent }

func (p *capturePub) Publish(event string, payload any) {
	p.events = append(p.events, capturedEvent{name: event, payload: payload})
}

func (p *capturePub) names() []string {
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.name)
	}
	return out
}

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

type seqIDGen struct{ n int }

func (g *seqIDGen) New() (string, error) {
	g.n++
	return fmt.Sprintf("P%04d", g.n), nil
}

var testNow = time.Date(2025, time.June, 2, 10, 0, 0, 0, time.UTC)

func newTestService(now time.Time) (*Service, *memStore, *capturePub) {
	store := newMemStore()
	pub := &capturePub{}
	svc := &Service{
		store: store,
		pub:   pub,
		clock: fixedClock{t: now},
		id:    &seqIDGen{},
	}
	return svc, store, pub
}

func mustPunch(t *testing.T, svc *Service, employeeID, punchType string, ts time.Time) PunchResponse {
	t.Helper()
	res, err := svc.RecordPunch(context.Background(), CreatePunchRequest{
		EmployeeID: employeeID,
		Type:       punchType,
		Timestamp:  &ts,
	})
	require.NoError(t, err)
	return res
}

// seed: 抑止窓に掛からない過去打刻を直接入れる
func seedPunch(store *memStore, id, employeeID, punchType string, ts time.Time) {
	store.punches = append(store.punches, Punch{
		PunchID:    id,
		EmployeeID: employeeID,
		Type:       punchType,
		Timestamp:  ts.UTC(),
		DateOnly:   ts.UTC().Format(DateLayout),
	})
}

// ===== Punch Recorder =====

func TestRecordPunch_DayKeyIsUTCProjection(t *testing.T) {
	svc, store, _ := newTestService(testNow)
	store.addEmployee("E1", "Aiko")

	// UTC-5 の 23:30 はUTCでは翌日
	loc := time.FixedZone("UTC-5", -5*3600)
	ts := time.Date(2025, time.March, 10, 23, 30, 0, 0, loc)

	res := mustPunch(t, svc, "E1", TypeCheckIn, ts)
	assert.Equal(t, "2025-03-11", res.DateOnly)
	assert.Equal(t, ts.UTC(), res.Timestamp)
	assert.Equal(t, "in", res.Action)
	assert.Equal(t, "Aiko", res.EmployeeName)
}

func TestRecordPunch_TimestampDefaultsToNow(t *testing.T) {
	svc, store, _ := newTestService(testNow)
	store.addEmployee("E1", "Aiko")

	res, err := svc.RecordPunch(context.Background(), CreatePunchRequest{EmployeeID: "E1", Type: TypeCheckOut})
	require.NoError(t, err)
	assert.Equal(t, testNow, res.Timestamp)
	assert.Equal(t, "2025-06-02", res.DateOnly)
}

func TestRecordPunch_UnknownEmployee(t *testing.T) {
	svc, _, pub := newTestService(testNow)

	_, err := svc.RecordPunch(context.Background(), CreatePunchRequest{EmployeeID: "nope", Type: TypeCheckIn})
	var api *APIError
	require.ErrorAs(t, err, &api)
	assert.Equal(t, CodeNotFound, api.Code)
	assert.Empty(t, pub.events)
}

func TestRecordPunch_InvalidType(t *testing.T) {
	svc, store, _ := newTestService(testNow)
	store.addEmployee("E1", "Aiko")

	_, err := svc.RecordPunch(context.Background(), CreatePunchRequest{EmployeeID: "E1", Type: "lunch"})
	var api *APIError
	require.ErrorAs(t, err, &api)
	assert.Equal(t, CodeInvalidArgument, api.Code)
}

func TestRecordPunch_DuplicateWindow(t *testing.T) {
	svc, store, _ := newTestService(testNow)
	store.addEmployee("E1", "Aiko")
	store.addEmployee("E2", "Botan")

	mustPunch(t, svc, "E1", TypeCheckIn, testNow.Add(-time.Minute))

	// 同一従業員・同一種別・窓内 → Conflict
	_, err := svc.RecordPunch(context.Background(), CreatePunchRequest{EmployeeID: "E1", Type: TypeCheckIn})
	var api *APIError
	require.ErrorAs(t, err, &api)
	assert.Equal(t, CodeConflict, api.Code)
	assert.Equal(t, "Already checked in recently", api.Message)

	// 別従業員なら同じ秒でも通る
	_, err = svc.RecordPunch(context.Background(), CreatePunchRequest{EmployeeID: "E2", Type: TypeCheckIn})
	assert.NoError(t, err)

	// 同一従業員でも種別が違えば通る
	_, err = svc.RecordPunch(context.Background(), CreatePunchRequest{EmployeeID: "E1", Type: TypeCheckOut})
	assert.NoError(t, err)

	// 窓の外（5分より前）の打刻は抑止に掛からない
	seedPunch(store, "OLD", "E1", TypeCheckIn, testNow.Add(-6*time.Minute))
	// E1のcheck-inは1分前のものが残っているのでまだConflict
	_, err = svc.RecordPunch(context.Background(), CreatePunchRequest{EmployeeID: "E1", Type: TypeCheckIn})
	assert.Error(t, err)
}

func TestRecordPunch_ConflictWritesNothing(t *testing.T) {
	svc, store, pub := newTestService(testNow)
	store.addEmployee("E1", "Aiko")

	mustPunch(t, svc, "E1", TypeCheckIn, testNow.Add(-time.Minute))
	before := len(store.punches)
	pub.events = nil

	_, err := svc.RecordPunch(context.Background(), CreatePunchRequest{EmployeeID: "E1", Type: TypeCheckIn})
	require.Error(t, err)
	assert.Len(t, store.punches, before)
	assert.Empty(t, pub.events)
}

func TestRecordPunch_PublishesUpdateAndDaily(t *testing.T) {
	svc, store, pub := newTestService(testNow)
	store.addEmployee("E1", "Aiko")

	res := mustPunch(t, svc, "E1", TypeCheckIn, testNow)
	require.Equal(t, []string{EventUpdate, EventDailyUpdate}, pub.names())

	payload, ok := pub.events[0].payload.(PunchResponse)
	require.True(t, ok)
	assert.Equal(t, res.ID, payload.ID)
	assert.Equal(t, "Aiko", payload.EmployeeName)

	daily, ok := pub.events[1].payload.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "E1", daily["employeeId"])
	assert.Equal(t, "2025-06-02", daily["dateOnly"])
}

// ===== Daily Aggregator =====

func TestListDaily_FirstInLastOutAndHours(t *testing.T) {
	svc, store, _ := newTestService(testNow)
	store.addEmployee("E1", "Aiko")

	day := time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)
	seedPunch(store, "A", "E1", TypeCheckIn, day.Add(9*time.Hour))
	seedPunch(store, "B", "E1", TypeCheckOut, day.Add(17*time.Hour+30*time.Minute))

	date := "2025-06-01"
	res, err := svc.ListDaily(context.Background(), ListQuery{Date: &date})
	require.NoError(t, err)
	require.Len(t, res, 1)

	s := res[0]
	assert.Equal(t, "E1", s.EmployeeID)
	assert.Equal(t, "Aiko", s.EmployeeName)
	require.NotNil(t, s.CheckInTimestamp)
	require.NotNil(t, s.CheckOutTimestamp)
	assert.Equal(t, day.Add(9*time.Hour), *s.CheckInTimestamp)
	assert.Equal(t, day.Add(17*time.Hour+30*time.Minute), *s.CheckOutTimestamp)
	require.NotNil(t, s.TotalHours)
	assert.Equal(t, 8.5, *s.TotalHours)
	assert.Equal(t, "9:00 AM", *s.CheckInTime)
	assert.Equal(t, "5:30 PM", *s.CheckOutTime)
	assert.ElementsMatch(t, []string{"A", "B"}, s.LogIDs)
	assert.Contains(t, []string{"A,B", "B,A"}, s.ID)
}

func TestListDaily_PicksEarliestInAndLatestOut(t *testing.T) {
	svc, store, _ := newTestService(testNow)
	store.addEmployee("E1", "Aiko")

	day := time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)
	seedPunch(store, "A", "E1", TypeCheckIn, day.Add(10*time.Hour))
	seedPunch(store, "B", "E1", TypeCheckIn, day.Add(9*time.Hour)) // こちらが最初
	seedPunch(store, "C", "E1", TypeCheckOut, day.Add(12*time.Hour))
	seedPunch(store, "D", "E1", TypeCheckOut, day.Add(18*time.Hour)) // こちらが最後

	date := "2025-06-01"
	res, err := svc.ListDaily(context.Background(), ListQuery{Date: &date})
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, day.Add(9*time.Hour), *res[0].CheckInTimestamp)
	assert.Equal(t, day.Add(18*time.Hour), *res[0].CheckOutTimestamp)
	assert.Equal(t, 9.0, *res[0].TotalHours)
	assert.Len(t, res[0].LogIDs, 4)
}

func TestListDaily_CheckInOnly(t *testing.T) {
	svc, store, _ := newTestService(testNow)
	store.addEmployee("E1", "Aiko")

	seedPunch(store, "A", "E1", TypeCheckIn, time.Date(2025, time.June, 1, 9, 0, 0, 0, time.UTC))

	date := "2025-06-01"
	res, err := svc.ListDaily(context.Background(), ListQuery{Date: &date})
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Nil(t, res[0].CheckOutTimestamp)
	assert.Nil(t, res[0].CheckOutTime)
	assert.Nil(t, res[0].TotalHours)
	require.NotNil(t, res[0].CheckInTimestamp)
}

func TestListDaily_NegativeHoursSurfaced(t *testing.T) {
	// out が in より前 → 負値のまま返す（入力ミスを隠さない）
	svc, store, _ := newTestService(testNow)
	store.addEmployee("E1", "Aiko")

	day := time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)
	seedPunch(store, "A", "E1", TypeCheckIn, day.Add(17*time.Hour))
	seedPunch(store, "B", "E1", TypeCheckOut, day.Add(9*time.Hour))

	date := "2025-06-01"
	res, err := svc.ListDaily(context.Background(), ListQuery{Date: &date})
	require.NoError(t, err)
	require.Len(t, res, 1)
	require.NotNil(t, res[0].TotalHours)
	assert.Equal(t, -8.0, *res[0].TotalHours)
}

func TestListDaily_RoundsToTwoDecimals(t *testing.T) {
	svc, store, _ := newTestService(testNow)
	store.addEmployee("E1", "Aiko")

	day := time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)
	seedPunch(store, "A", "E1", TypeCheckIn, day.Add(9*time.Hour))
	seedPunch(store, "B", "E1", TypeCheckOut, day.Add(17*time.Hour+10*time.Minute)) // 8.1666...h

	date := "2025-06-01"
	res, err := svc.ListDaily(context.Background(), ListQuery{Date: &date})
	require.NoError(t, err)
	assert.Equal(t, 8.17, *res[0].TotalHours)
}

func TestListDaily_SortDayDescThenNameAsc(t *testing.T) {
	svc, store, _ := newTestService(testNow)
	store.addEmployee("E1", "Botan")
	store.addEmployee("E2", "Aiko")

	d1 := time.Date(2025, time.June, 1, 9, 0, 0, 0, time.UTC)
	d2 := time.Date(2025, time.June, 2, 9, 0, 0, 0, time.UTC)
	seedPunch(store, "A", "E1", TypeCheckIn, d1)
	seedPunch(store, "B", "E1", TypeCheckIn, d2)
	seedPunch(store, "C", "E2", TypeCheckIn, d2)

	from, to := "2025-06-01", "2025-06-02"
	res, err := svc.ListDaily(context.Background(), ListQuery{From: &from, To: &to})
	require.NoError(t, err)
	require.Len(t, res, 3)
	assert.Equal(t, "2025-06-02", res[0].Date)
	assert.Equal(t, "Aiko", res[0].EmployeeName)
	assert.Equal(t, "2025-06-02", res[1].Date)
	assert.Equal(t, "Botan", res[1].EmployeeName)
	assert.Equal(t, "2025-06-01", res[2].Date)
}

func TestListDaily_DefaultsToToday(t *testing.T) {
	svc, store, _ := newTestService(testNow)
	store.addEmployee("E1", "Aiko")

	seedPunch(store, "A", "E1", TypeCheckIn, testNow.Add(-time.Hour))                // 今日
	seedPunch(store, "B", "E1", TypeCheckIn, testNow.Add(-26*time.Hour))             // 昨日
	seedPunch(store, "C", "E1", TypeCheckOut, testNow.Add(-26*time.Hour+8*time.Hour)) // 昨日

	res, err := svc.ListDaily(context.Background(), ListQuery{})
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, "2025-06-02", res[0].Date)
	assert.Equal(t, []string{"A"}, res[0].LogIDs)
}

// ===== Single-Record Editor =====

func TestUpdatePunch_RederivesDayKey(t *testing.T) {
	svc, store, pub := newTestService(testNow)
	store.addEmployee("E1", "Aiko")
	seedPunch(store, "A", "E1", TypeCheckIn, time.Date(2025, time.June, 1, 9, 0, 0, 0, time.UTC))

	newTS := time.Date(2025, time.June, 3, 8, 30, 0, 0, time.UTC)
	res, err := svc.UpdatePunch(context.Background(), "A", newTS, TypeCheckIn)
	require.NoError(t, err)
	assert.Equal(t, "2025-06-03", res.DateOnly)
	assert.Equal(t, newTS, res.Timestamp)

	stored, _ := store.GetByID(context.Background(), "A")
	assert.Equal(t, "2025-06-03", stored.DateOnly)

	// 移動元と移動先の両方の日次が変わる
	assert.Equal(t, []string{EventUpdate, EventDailyUpdate, EventDailyUpdate}, pub.names())
}

func TestUpdatePunch_NotFound(t *testing.T) {
	svc, _, _ := newTestService(testNow)

	_, err := svc.UpdatePunch(context.Background(), "missing", testNow, TypeCheckIn)
	var api *APIError
	require.ErrorAs(t, err, &api)
	assert.Equal(t, CodeNotFound, api.Code)
}

// ===== Daily Record Editor =====

func TestReplaceDaily_FullReplace(t *testing.T) {
	svc, store, pub := newTestService(testNow)
	store.addEmployee("E1", "Aiko")

	day := time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)
	seedPunch(store, "A", "E1", TypeCheckIn, day.Add(9*time.Hour))
	seedPunch(store, "B", "E1", TypeCheckIn, day.Add(10*time.Hour))
	seedPunch(store, "C", "E1", TypeCheckOut, day.Add(15*time.Hour))

	in := day.Add(8*time.Hour + 30*time.Minute)
	out := day.Add(17 * time.Hour)
	err := svc.ReplaceDaily(context.Background(), []string{"A", "B", "C"}, &in, &out)
	require.NoError(t, err)

	date := "2025-06-01"
	res, err := svc.ListDaily(context.Background(), ListQuery{Date: &date})
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Len(t, res[0].LogIDs, 2)
	assert.Equal(t, in, *res[0].CheckInTimestamp)
	assert.Equal(t, out, *res[0].CheckOutTimestamp)
	assert.Equal(t, 8.5, *res[0].TotalHours)

	assert.Equal(t, []string{EventDailyUpdate}, pub.names())
}

func TestReplaceDaily_DayKeyPinnedToGroup(t *testing.T) {
	// 管理者が日またぎのcheck-out時刻を入れても、対象日の枠に残す
	svc, store, _ := newTestService(testNow)
	store.addEmployee("E1", "Aiko")

	day := time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)
	seedPunch(store, "A", "E1", TypeCheckIn, day.Add(9*time.Hour))

	out := day.Add(25 * time.Hour) // 翌日 01:00
	err := svc.ReplaceDaily(context.Background(), []string{"A"}, nil, &out)
	require.NoError(t, err)

	require.Len(t, store.punches, 1)
	assert.Equal(t, "2025-06-01", store.punches[0].DateOnly)
	assert.Equal(t, out, store.punches[0].Timestamp)
	assert.Equal(t, TypeCheckOut, store.punches[0].Type)
}

func TestReplaceDaily_NotFound(t *testing.T) {
	svc, _, _ := newTestService(testNow)

	in := testNow
	err := svc.ReplaceDaily(context.Background(), []string{"missing"}, &in, nil)
	var api *APIError
	require.ErrorAs(t, err, &api)
	assert.Equal(t, CodeNotFound, api.Code)
}

func TestReplaceDaily_TxFailureLeavesLogIntact(t *testing.T) {
	svc, store, pub := newTestService(testNow)
	store.addEmployee("E1", "Aiko")

	day := time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)
	seedPunch(store, "A", "E1", TypeCheckIn, day.Add(9*time.Hour))
	seedPunch(store, "B", "E1", TypeCheckOut, day.Add(17*time.Hour))
	store.failReplace = true

	in := day.Add(8 * time.Hour)
	err := svc.ReplaceDaily(context.Background(), []string{"A"}, &in, nil)
	require.Error(t, err)
	var api *APIError
	require.ErrorAs(t, err, &api)
	assert.Equal(t, CodeInternal, api.Code)

	// 打刻ログは編集前のまま
	date := "2025-06-01"
	res, listErr := svc.ListDaily(context.Background(), ListQuery{Date: &date})
	require.NoError(t, listErr)
	require.Len(t, res, 1)
	assert.ElementsMatch(t, []string{"A", "B"}, res[0].LogIDs)
	assert.Empty(t, pub.events)
}

// ===== Deleter =====

func TestDeletePunches_SingleByID(t *testing.T) {
	svc, store, pub := newTestService(testNow)
	store.addEmployee("E1", "Aiko")

	day := time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)
	seedPunch(store, "A", "E1", TypeCheckIn, day.Add(9*time.Hour))
	seedPunch(store, "B", "E1", TypeCheckOut, day.Add(17*time.Hour))

	n, err := svc.DeletePunches(context.Background(), []string{"A"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Len(t, store.punches, 1)
	assert.Equal(t, "B", store.punches[0].PunchID)

	assert.Equal(t, []string{EventDelete, EventDailyUpdate}, pub.names())
}

func TestDeletePunches_GroupLeavesOthersUntouched(t *testing.T) {
	svc, store, _ := newTestService(testNow)
	store.addEmployee("E1", "Aiko")
	store.addEmployee("E2", "Botan")

	d1 := time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)
	d2 := time.Date(2025, time.June, 2, 0, 0, 0, 0, time.UTC)
	seedPunch(store, "A", "E1", TypeCheckIn, d1.Add(9*time.Hour))
	seedPunch(store, "B", "E1", TypeCheckOut, d1.Add(17*time.Hour))
	seedPunch(store, "C", "E1", TypeCheckIn, d2.Add(9*time.Hour))  // 別の日
	seedPunch(store, "D", "E2", TypeCheckIn, d1.Add(9*time.Hour))  // 別の従業員

	n, err := svc.DeletePunches(context.Background(), []string{"A", "B"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	var remaining []string
	for _, p := range store.punches {
		remaining = append(remaining, p.PunchID)
	}
	assert.ElementsMatch(t, []string{"C", "D"}, remaining)
}

func TestDeletePunches_NotFound(t *testing.T) {
	svc, _, _ := newTestService(testNow)

	_, err := svc.DeletePunches(context.Background(), []string{"missing"})
	var api *APIError
	require.ErrorAs(t, err, &api)
	assert.Equal(t, CodeNotFound, api.Code)
}
