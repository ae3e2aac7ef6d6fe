package employees

import "time"

// DB行に対応（スキャン用）
type employeeRow struct {
	EmployeeID   string
	Name         string
	Email        string
	Mobile       string
	Role         string
	Position     string
	Status       int
	JoinDate     time.Time
	PasswordHash *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Employee struct {
	EmployeeID string
	Name       string
	Email      string
	Mobile     string
	Role       string
	Position   string
	Status     bool
	JoinDate   time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (r employeeRow) toModel() Employee {
	return Employee{
		EmployeeID: r.EmployeeID,
		Name:       r.Name,
		Email:      r.Email,
		Mobile:     r.Mobile,
		Role:       r.Role,
		Position:   r.Position,
		Status:     r.Status != 0,
		JoinDate:   r.JoinDate.UTC(),
		CreatedAt:  r.CreatedAt.UTC(),
		UpdatedAt:  r.UpdatedAt.UTC(),
	}
}

func (e Employee) toDTO() EmployeeResponse {
	return EmployeeResponse{
		ID:        e.EmployeeID,
		Name:      e.Name,
		Email:     e.Email,
		Mobile:    e.Mobile,
		Role:      e.Role,
		Position:  e.Position,
		Status:    e.Status,
		JoinDate:  e.JoinDate,
		CreatedAt: e.CreatedAt,
		UpdatedAt: e.UpdatedAt,
	}
}
