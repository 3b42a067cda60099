package models

import (
	"time"
)

const (
	RoleOperator = "operator"
	RoleAdmin    = "admin"
	RoleTourist  = "tourist"
)

// Profile is the auth-side row that carries the user's role.
type Profile struct {
	ID          string    `db:"id" json:"id"`
	Email       string    `db:"email" json:"email"`
	FullName    string    `db:"fullname" json:"fullname"`
	Role        string    `db:"role" json:"role"`
	PhoneNumber string    `db:"phone_number" json:"phone_number"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

type Operator struct {
	ID             string    `db:"id" json:"id"`
	UserID         string    `db:"user_id" json:"user_id"`
	CompanyName    string    `db:"company_name" json:"company_name"`
	Email          string    `db:"email" json:"email"`
	Phone          string    `db:"phone" json:"phone,omitempty"`
	Whatsapp       string    `db:"whatsapp" json:"whatsapp,omitempty"`
	CommissionRate float64   `db:"commission_rate" json:"commission_rate"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}
