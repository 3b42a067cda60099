package realtime

import (
	"context"
	"sync"
)

// Subscriber opens subscriptions. *Client implements it.
type Subscriber interface {
	Subscribe(ctx context.Context, f Filter, accessToken string) (*Subscription, error)
}

// Manager tracks live subscriptions by caller-chosen key so each can be
// released explicitly and all of them at shutdown.
type Manager struct {
	client Subscriber

	mu   sync.Mutex
	subs map[string]*Subscription
}

func NewManager(client Subscriber) *Manager {
	return &Manager{client: client, subs: make(map[string]*Subscription)}
}

// Subscribe replaces any subscription already held under key.
func (m *Manager) Subscribe(ctx context.Context, key string, f Filter, accessToken string) (*Subscription, error) {
	m.Close(key)

	sub, err := m.client.Subscribe(ctx, f, accessToken)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	prev := m.subs[key]
	m.subs[key] = sub
	m.mu.Unlock()
	if !sub.setOnClose(func() { m.forget(key, sub) }) {
		m.forget(key, sub)
	}

	// a concurrent Subscribe on the same key may have raced us
	if prev != nil {
		prev.Close()
	}
	return sub, nil
}

func (m *Manager) forget(key string, sub *Subscription) {
	m.mu.Lock()
	if m.subs[key] == sub {
		delete(m.subs, key)
	}
	m.mu.Unlock()
}

func (m *Manager) Close(key string) {
	m.mu.Lock()
	sub := m.subs[key]
	delete(m.subs, key)
	m.mu.Unlock()
	if sub != nil {
		sub.Close()
	}
}

func (m *Manager) CloseAll() {
	m.mu.Lock()
	subs := m.subs
	m.subs = make(map[string]*Subscription)
	m.mu.Unlock()
	for _, sub := range subs {
		sub.Close()
	}
}

func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.subs)
}
