package employees

import "time"

const DateLayout = "2006-01-02"

type CreateEmployeeRequest struct {
	Name     string  `json:"name" binding:"required"`
	Email    string  `json:"email" binding:"required"`
	Mobile   string  `json:"mobile" binding:"required"`
	Role     string  `json:"role" binding:"required"`
	Position string  `json:"position" binding:"required"`
	Status   *bool   `json:"status,omitempty"` // 未指定なら在籍扱い
	JoinDate *string `json:"joinDate,omitempty"`
	Password *string `json:"password,omitempty"`
}

type UpdateEmployeeRequest struct {
	Name     *string `json:"name,omitempty"`
	Email    *string `json:"email,omitempty"`
	Mobile   *string `json:"mobile,omitempty"`
	Role     *string `json:"role,omitempty"`
	Position *string `json:"position,omitempty"`
	Status   *bool   `json:"status,omitempty"`
	JoinDate *string `json:"joinDate,omitempty"`
	Password *string `json:"password,omitempty"`
}

type EmployeeResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Mobile    string    `json:"mobile"`
	Role      string    `json:"role"`
	Position  string    `json:"position"`
	Status    bool      `json:"status"`
	JoinDate  time.Time `json:"joinDate"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
