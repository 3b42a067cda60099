// Package realtime subscribes to Supabase Realtime postgres_changes over the
// Phoenix channel protocol. Events only tell callers that something changed;
// they re-fetch rather than patch local state.
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

const (
	phoenixTopic = "phoenix"

	eventJoin      = "phx_join"
	eventLeave     = "phx_leave"
	eventReply     = "phx_reply"
	eventError     = "phx_error"
	eventClose     = "phx_close"
	eventHeartbeat = "heartbeat"
	eventChanges   = "postgres_changes"

	DefaultHeartbeat = 25 * time.Second
	leaveTimeout     = 2 * time.Second
)

var ErrJoinRejected = errors.New("realtime join rejected")

type frame struct {
	Topic   string          `json:"topic"`
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
	Ref     *string         `json:"ref"`
}

type outFrame struct {
	Topic   string `json:"topic"`
	Event   string `json:"event"`
	Payload any    `json:"payload"`
	Ref     string `json:"ref"`
}

type reply struct {
	Status   string          `json:"status"`
	Response json.RawMessage `json:"response"`
}

// Filter selects the rows a subscription listens to.
type Filter struct {
	Channel string
	Event   string // INSERT, UPDATE, DELETE or * (default)
	Schema  string // defaults to public
	Table   string
	Filter  string // PostgREST-style row filter, e.g. operator_id=eq.<id>
}

func (f Filter) topic() string {
	name := f.Channel
	if name == "" {
		name = f.Table
		if f.Filter != "" {
			name += ":" + f.Filter
		}
	}
	return "realtime:" + name
}

func (f Filter) joinConfig() map[string]any {
	event := f.Event
	if event == "" {
		event = "*"
	}
	schema := f.Schema
	if schema == "" {
		schema = "public"
	}
	change := map[string]any{"event": event, "schema": schema, "table": f.Table}
	if f.Filter != "" {
		change["filter"] = f.Filter
	}
	return map[string]any{
		"broadcast":        map[string]any{"self": false},
		"presence":         map[string]any{"key": ""},
		"postgres_changes": []any{change},
	}
}

// Change is one decoded postgres_changes event.
type Change struct {
	Type            string          `json:"type"`
	Schema          string          `json:"schema"`
	Table           string          `json:"table"`
	Record          json.RawMessage `json:"record"`
	OldRecord       json.RawMessage `json:"old_record"`
	CommitTimestamp string          `json:"commit_timestamp"`
}

// Decode unmarshals the new row into v.
func (c Change) Decode(v any) error {
	if len(c.Record) == 0 || string(c.Record) == "null" {
		return errors.New("change has no record")
	}
	return json.Unmarshal(c.Record, v)
}

type Client struct {
	endpoint  string
	dial      DialFunc
	heartbeat time.Duration
	logger    *slog.Logger
}

type Option func(*Client)

func WithDialer(d DialFunc) Option { return func(c *Client) { c.dial = d } }

func WithHeartbeat(d time.Duration) Option { return func(c *Client) { c.heartbeat = d } }

func WithLogger(l *slog.Logger) Option { return func(c *Client) { c.logger = l } }

// NewClient builds a client for a Supabase project URL such as
// https://xyz.supabase.co.
func NewClient(projectURL, apiKey string, opts ...Option) (*Client, error) {
	endpoint, err := Endpoint(projectURL, apiKey)
	if err != nil {
		return nil, err
	}
	c := &Client{
		endpoint:  endpoint,
		dial:      DialWebsocket,
		heartbeat: DefaultHeartbeat,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Endpoint derives the realtime websocket URL from the project URL.
func Endpoint(projectURL, apiKey string) (string, error) {
	u, err := url.Parse(strings.TrimRight(projectURL, "/"))
	if err != nil || u.Host == "" {
		return "", fmt.Errorf("invalid supabase url %q", projectURL)
	}
	switch u.Scheme {
	case "https", "wss":
		u.Scheme = "wss"
	case "http", "ws":
		u.Scheme = "ws"
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/realtime/v1/websocket"
	q := url.Values{}
	q.Set("apikey", apiKey)
	q.Set("vsn", "1.0.0")
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Subscribe opens a socket, joins the channel for f and waits for the join
// reply. ctx bounds the handshake only; the subscription lives until Close
// or until the socket fails.
func (c *Client) Subscribe(ctx context.Context, f Filter, accessToken string) (*Subscription, error) {
	if f.Table == "" {
		return nil, errors.New("realtime filter needs a table")
	}
	conn, err := c.dial(ctx, c.endpoint)
	if err != nil {
		return nil, err
	}

	runCtx, cancel := context.WithCancel(context.Background())
	s := &Subscription{
		topic:  f.topic(),
		conn:   conn,
		events: make(chan Change, 16),
		done:   make(chan struct{}),
		cancel: cancel,
		logger: c.logger.With("topic", f.topic()),
	}

	payload := map[string]any{"config": f.joinConfig()}
	if accessToken != "" {
		payload["access_token"] = accessToken
	}
	joinRef, err := s.send(ctx, s.topic, eventJoin, payload)
	if err != nil {
		cancel()
		conn.Close()
		return nil, fmt.Errorf("failed to join %s: %w", s.topic, err)
	}
	if err := s.awaitReply(ctx, joinRef); err != nil {
		cancel()
		conn.Close()
		return nil, err
	}

	s.wg.Add(2)
	go s.readLoop(runCtx)
	go s.heartbeatLoop(runCtx, c.heartbeat)
	s.logger.Debug("realtime subscribed")
	return s, nil
}

// Subscription is one joined channel on its own socket.
type Subscription struct {
	topic  string
	conn   Conn
	events chan Change
	done   chan struct{}
	cancel context.CancelFunc
	logger *slog.Logger
	ref    atomic.Uint64
	wg     sync.WaitGroup

	writeMu   sync.Mutex
	closeOnce sync.Once
	errMu     sync.Mutex
	err       error
	onClose   func()
}

func (s *Subscription) Topic() string { return s.topic }

// Events is closed once the subscription ends.
func (s *Subscription) Events() <-chan Change { return s.events }

func (s *Subscription) Done() <-chan struct{} { return s.done }

// Err reports why the subscription ended, nil after a clean Close.
func (s *Subscription) Err() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.err
}

// Close leaves the channel and releases the socket. Safe to call repeatedly.
func (s *Subscription) Close() error {
	s.shutdown(nil, true)
	s.wg.Wait()
	return nil
}

func (s *Subscription) shutdown(cause error, leave bool) {
	s.closeOnce.Do(func() {
		if leave {
			ctx, cancel := context.WithTimeout(context.Background(), leaveTimeout)
			if _, err := s.send(ctx, s.topic, eventLeave, map[string]any{}); err != nil {
				s.logger.Debug("realtime leave failed", "error", err)
			}
			cancel()
		}
		s.cancel()
		s.conn.Close()
		s.errMu.Lock()
		s.err = cause
		close(s.done)
		onClose := s.onClose
		s.errMu.Unlock()
		if onClose != nil {
			onClose()
		}
	})
}

// setOnClose registers fn to run once the subscription ends. It reports false
// if the subscription already ended.
func (s *Subscription) setOnClose(fn func()) bool {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	select {
	case <-s.done:
		return false
	default:
	}
	s.onClose = fn
	return true
}

func (s *Subscription) send(ctx context.Context, topic, event string, payload any) (string, error) {
	ref := strconv.FormatUint(s.ref.Add(1), 10)
	data, err := json.Marshal(outFrame{Topic: topic, Event: event, Payload: payload, Ref: ref})
	if err != nil {
		return "", err
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return ref, s.conn.Write(ctx, data)
}

func (s *Subscription) awaitReply(ctx context.Context, ref string) error {
	for {
		data, err := s.conn.Read(ctx)
		if err != nil {
			return fmt.Errorf("failed waiting for join reply: %w", err)
		}
		var fr frame
		if err := json.Unmarshal(data, &fr); err != nil {
			continue
		}
		if fr.Event != eventReply || fr.Ref == nil || *fr.Ref != ref {
			continue
		}
		var r reply
		if err := json.Unmarshal(fr.Payload, &r); err != nil {
			return fmt.Errorf("malformed join reply: %w", err)
		}
		if r.Status != "ok" {
			return fmt.Errorf("%w: %s", ErrJoinRejected, string(r.Response))
		}
		return nil
	}
}

func (s *Subscription) readLoop(ctx context.Context) {
	defer s.wg.Done()
	defer close(s.events)
	for {
		data, err := s.conn.Read(ctx)
		if err != nil {
			if ctx.Err() == nil {
				s.logger.Warn("realtime read failed", "error", err)
				go s.shutdown(err, false)
			}
			return
		}
		var fr frame
		if err := json.Unmarshal(data, &fr); err != nil {
			s.logger.Debug("dropping malformed realtime frame", "error", err)
			continue
		}
		if fr.Topic != s.topic {
			continue
		}
		switch fr.Event {
		case eventChanges:
			var p struct {
				Data Change `json:"data"`
			}
			if err := json.Unmarshal(fr.Payload, &p); err != nil {
				s.logger.Debug("dropping malformed change", "error", err)
				continue
			}
			select {
			case s.events <- p.Data:
			case <-ctx.Done():
				return
			}
		case eventError, eventClose:
			s.logger.Warn("realtime channel closed by server", "event", fr.Event)
			go s.shutdown(fmt.Errorf("channel %s: %s", s.topic, fr.Event), false)
			return
		}
	}
}

func (s *Subscription) heartbeatLoop(ctx context.Context, every time.Duration) {
	defer s.wg.Done()
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.send(ctx, phoenixTopic, eventHeartbeat, map[string]any{}); err != nil {
				if ctx.Err() == nil {
					s.logger.Warn("realtime heartbeat failed", "error", err)
					go s.shutdown(err, false)
				}
				return
			}
		}
	}
}
