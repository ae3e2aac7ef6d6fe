package attendance

import "time"

const (
	TypeCheckIn  = "check-in"
	TypeCheckOut = "check-out"

	DateLayout = "2006-01-02"

	// ダッシュボード表示用（en-USロケール相当）
	timeDisplayLayout      = "3:04 PM"
	dateDisplayLayout      = "Jan 2, 2006"
	dailyDateDisplayLayout = "Mon, Jan 2, 2006"

	// 二重打刻の抑止窓。連打やリトライの誤登録をConflictで弾く
	dupWindow = 5 * time.Minute
)

type CreatePunchRequest struct {
	EmployeeID string     `json:"employeeId" binding:"required"`
	Type       string     `json:"type" binding:"required"`
	Timestamp  *time.Time `json:"timestamp,omitempty"`
}

// PUT /attendance/:id は2形態を受ける:
//   - timestamp+type          → 単一レコード更新
//   - checkInTime/checkOutTime → その日の全レコード置き換え
type UpdatePunchRequest struct {
	Timestamp    *time.Time `json:"timestamp,omitempty"`
	Type         *string    `json:"type,omitempty"`
	CheckInTime  *time.Time `json:"checkInTime,omitempty"`
	CheckOutTime *time.Time `json:"checkOutTime,omitempty"`
}

type PunchResponse struct {
	ID           string       `json:"id"`
	EmployeeID   string       `json:"employeeId"`
	EmployeeName string       `json:"employeeName"`
	Type         string       `json:"type"`
	Action       string       `json:"action"` // "in" / "out"（旧クライアント互換）
	Timestamp    time.Time    `json:"timestamp"`
	DateOnly     string       `json:"dateOnly"`
	Time         string       `json:"time"`
	Date         string       `json:"date"`
	Employee     *EmployeeRef `json:"employee,omitempty"`
}

type EmployeeRef struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type ListQuery struct {
	Date       *string // "YYYY-MM-DD"
	From       *string
	To         *string
	EmployeeID *string
}

type DailySummaryResponse struct {
	ID                string     `json:"id"` // 打刻IDのカンマ連結（編集/削除の宛先に使う）
	EmployeeID        string     `json:"employeeId"`
	EmployeeName      string     `json:"employeeName"`
	Date              string     `json:"date"`
	DateFormatted     string     `json:"dateFormatted"`
	CheckInTime       *string    `json:"checkInTime"`
	CheckOutTime      *string    `json:"checkOutTime"`
	CheckInTimestamp  *time.Time `json:"checkInTimestamp"`
	CheckOutTimestamp *time.Time `json:"checkOutTimestamp"`
	TotalHours        *float64   `json:"totalHours"`
	LogIDs            []string   `json:"logIds"`
}
