package models

import (
	"context"

	"github.com/supabase-community/postgrest-go"
)

type MessageRepo interface {
	InsertMessage(ctx context.Context, msg *Message, accessToken string) (*Message, error)
	ListMessages(ctx context.Context, bookingID string, accessToken string) ([]Message, error)
	MarkThreadRead(ctx context.Context, bookingID string, reader SenderType, accessToken string) (int64, error)
}

func (su *SupabaseRepo) InsertMessage(ctx context.Context, msg *Message, accessToken string) (*Message, error) {
	if err := Validate.Struct(msg); err != nil {
		return nil, ValidationError{Field: "message", Msg: err.Error(), Err: err}
	}
	client, err := su.clientFor(accessToken)
	if err != nil {
		return nil, err
	}

	row := map[string]interface{}{
		"booking_id":  msg.BookingID,
		"sender_type": msg.SenderType,
		"sender_id":   msg.SenderID,
		"message":     msg.Text,
		"is_read":     false,
		"created_at":  msg.CreatedAt,
	}

	raw, _, err := client.From(MessagesTable).
		Insert(row, false, "", "representation", "exact").
		Execute()
	if err != nil {
		return nil, postgrestError("send message", err)
	}
	rows, err := decodeRows[Message](raw, "message")
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, UpstreamError{Service: "supabase", Msg: "message was not stored"}
	}
	return &rows[0], nil
}

func (su *SupabaseRepo) ListMessages(ctx context.Context, bookingID string, accessToken string) ([]Message, error) {
	client, err := su.clientFor(accessToken)
	if err != nil {
		return nil, err
	}

	raw, _, err := client.From(MessagesTable).
		Select("*", "", false).
		Eq("booking_id", bookingID).
		Order("created_at", &postgrest.OrderOpts{Ascending: true}).
		Execute()
	if err != nil {
		return nil, postgrestError("list messages", err)
	}
	return decodeRows[Message](raw, "message")
}

// MarkThreadRead flags every unread message in the thread written by the
// other party. It returns how many rows changed.
func (su *SupabaseRepo) MarkThreadRead(ctx context.Context, bookingID string, reader SenderType, accessToken string) (int64, error) {
	client, err := su.clientFor(accessToken)
	if err != nil {
		return 0, err
	}

	_, count, err := client.From(MessagesTable).
		Update(map[string]interface{}{"is_read": true}, "minimal", "exact").
		Eq("booking_id", bookingID).
		Neq("sender_type", string(reader)).
		Eq("is_read", "false").
		Execute()
	if err != nil {
		return 0, postgrestError("mark messages read", err)
	}
	return count, nil
}
