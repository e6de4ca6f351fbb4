package employees

import "time"

type Employee struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	Email     string    `json:"email"`
	RoleID    int64     `json:"role_id"`
	RoleName  string    `json:"role_name"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Request struct {
	Name     string `json:"name" validate:"required,max=200"`
	Phone    string `json:"phone" validate:"max=32"`
	Email    string `json:"email" validate:"omitempty,email,max=200"`
	RoleID   int64  `json:"role_id" validate:"required,gt=0"`
	IsActive *bool  `json:"is_active"`
}

type Filter struct {
	RoleID   int64
	IsActive *bool
}
