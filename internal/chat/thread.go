// Package chat holds the client-side view of one booking conversation.
package chat

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/joshua-takyi/tourdesk/internal/models"
)

var ErrEmptyDraft = errors.New("message is empty")

// Sender stores a message and returns the row the backend kept.
type Sender interface {
	SendMessage(ctx context.Context, bookingID string, from models.SenderType, senderID, text string) (*models.Message, error)
}

// Entry is one line of the thread. Tentative entries were sent but not yet
// confirmed by the backend; their LocalID is set and Message.ID is empty.
type Entry struct {
	Message   models.Message `json:"message"`
	LocalID   string         `json:"local_id,omitempty"`
	Tentative bool           `json:"tentative"`
}

// Thread is a single-writer conversation view with optimistic sends.
type Thread struct {
	bookingID string
	self      models.SenderType
	selfID    string
	sender    Sender
	now       func() time.Time

	mu      sync.Mutex
	entries []Entry
	draft   string
}

func NewThread(bookingID string, self models.SenderType, selfID string, sender Sender) *Thread {
	return &Thread{
		bookingID: bookingID,
		self:      self,
		selfID:    selfID,
		sender:    sender,
		now:       time.Now,
	}
}

// Load replaces the thread contents with messages fetched from the backend.
func (t *Thread) Load(msgs []models.Message) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries = t.entries[:0]
	for _, m := range msgs {
		t.entries = append(t.entries, Entry{Message: m})
	}
}

func (t *Thread) SetDraft(text string) {
	t.mu.Lock()
	t.draft = text
	t.mu.Unlock()
}

func (t *Thread) Draft() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.draft
}

// Entries returns a copy of the thread in display order.
func (t *Thread) Entries() []Entry {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Entry, len(t.entries))
	copy(out, t.entries)
	return out
}

// Apply merges a message that arrived from the backend, e.g. through a
// realtime insert. It reports false for messages already present.
func (t *Thread) Apply(msg models.Message) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.indexOfID(msg.ID) >= 0 {
		return false
	}
	t.entries = append(t.entries, Entry{Message: msg})
	return true
}

// Send posts the current draft. The entry shows up tentatively right away;
// on success it is swapped for the stored message, on failure it is removed
// and the draft is restored so the user can retry.
func (t *Thread) Send(ctx context.Context) error {
	t.mu.Lock()
	text := strings.TrimSpace(t.draft)
	if text == "" {
		t.mu.Unlock()
		return ErrEmptyDraft
	}
	original := t.draft
	localID := uuid.NewString()
	t.entries = append(t.entries, Entry{
		LocalID:   localID,
		Tentative: true,
		Message: models.Message{
			BookingID:  t.bookingID,
			SenderType: t.self,
			SenderID:   t.selfID,
			Text:       text,
			CreatedAt:  t.now(),
		},
	})
	t.draft = ""
	t.mu.Unlock()

	stored, err := t.sender.SendMessage(ctx, t.bookingID, t.self, t.selfID, text)

	t.mu.Lock()
	defer t.mu.Unlock()
	i := t.indexOfLocal(localID)
	if err != nil || stored == nil {
		if i >= 0 {
			t.entries = append(t.entries[:i], t.entries[i+1:]...)
		}
		// keep anything typed meanwhile
		if t.draft == "" {
			t.draft = original
		}
		if err == nil {
			err = errors.New("message was not stored")
		}
		return err
	}

	if i < 0 {
		return nil
	}
	if t.indexOfID(stored.ID) >= 0 {
		// the realtime echo beat the response
		t.entries = append(t.entries[:i], t.entries[i+1:]...)
		return nil
	}
	t.entries[i] = Entry{Message: *stored}
	return nil
}

func (t *Thread) indexOfID(id string) int {
	if id == "" {
		return -1
	}
	for i, e := range t.entries {
		if !e.Tentative && e.Message.ID == id {
			return i
		}
	}
	return -1
}

func (t *Thread) indexOfLocal(localID string) int {
	for i, e := range t.entries {
		if e.Tentative && e.LocalID == localID {
			return i
		}
	}
	return -1
}
