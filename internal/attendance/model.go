package attendance

import "time"

// DB行に対応（スキャン用）。employees をJOINして表示名も持つ
type punchRow struct {
	PunchID       string
	EmployeeID    string
	EmployeeName  string
	EmployeeEmail string
	Type          string
	Timestamp     time.Time
	DateOnly      string // DATE → "YYYY-MM-DD"
}

// Service ↔ Store で使うモデル（必要最小限）
type Punch struct {
	PunchID       string
	EmployeeID    string
	EmployeeName  string
	EmployeeEmail string
	Type          string
	Timestamp     time.Time
	DateOnly      string
}

func (r punchRow) toModel() Punch {
	return Punch{
		PunchID:       r.PunchID,
		EmployeeID:    r.EmployeeID,
		EmployeeName:  r.EmployeeName,
		EmployeeEmail: r.EmployeeEmail,
		Type:          r.Type,
		Timestamp:     r.Timestamp.UTC(),
		DateOnly:      r.DateOnly,
	}
}

func (p Punch) action() string {
	if p.Type == TypeCheckIn {
		return "in"
	}
	return "out"
}

func (p Punch) toDTO() PunchResponse {
	return PunchResponse{
		ID:           p.PunchID,
		EmployeeID:   p.EmployeeID,
		EmployeeName: p.EmployeeName,
		Type:         p.Type,
		Action:       p.action(),
		Timestamp:    p.Timestamp,
		DateOnly:     p.DateOnly,
		Time:         p.Timestamp.Format(timeDisplayLayout),
		Date:         p.Timestamp.Format(dateDisplayLayout),
	}
}
