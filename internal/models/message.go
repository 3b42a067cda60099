package models

import (
	"time"
)

type SenderType string

const (
	SenderTourist  SenderType = "tourist"
	SenderOperator SenderType = "operator"
	SenderAdmin    SenderType = "admin"
)

type Message struct {
	ID         string     `db:"id" json:"id"`
	BookingID  string     `db:"booking_id" json:"booking_id"`
	SenderType SenderType `db:"sender_type" json:"sender_type" validate:"required,oneof=tourist operator admin"`
	SenderID   string     `db:"sender_id" json:"sender_id" validate:"required"`
	Text       string     `db:"message" json:"message" validate:"required,max=2000"`
	IsRead     bool       `db:"is_read" json:"is_read"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
}
