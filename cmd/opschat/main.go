// Command opschat is a terminal client for one booking's message thread.
//
//	OPSCHAT_PASSWORD=... opschat -email ops@example.com -booking <booking-id>
//
// Lines typed on stdin are sent as the signed-in operator; messages from the
// other side arrive over Supabase Realtime.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/joshua-takyi/tourdesk/internal/chat"
	"github.com/joshua-takyi/tourdesk/internal/helpers"
	"github.com/joshua-takyi/tourdesk/internal/models"
	"github.com/joshua-takyi/tourdesk/internal/realtime"
	"github.com/joshua-takyi/tourdesk/internal/services"
	"github.com/supabase-community/supabase-go"
)

type options struct {
	supabaseURL string
	anonKey     string
	email       string
	password    string
	token       string
	bookingID   string
	verbose     bool
}

func main() {
	_ = godotenv.Load(".env.local")

	var opts options
	flag.StringVar(&opts.supabaseURL, "url", os.Getenv("SUPABASE_URL"), "Supabase project URL")
	flag.StringVar(&opts.anonKey, "key", os.Getenv("SUPABASE_URL_ANON_KEY"), "Supabase anon key")
	flag.StringVar(&opts.email, "email", "", "operator email to sign in with")
	flag.StringVar(&opts.token, "token", os.Getenv("OPSCHAT_TOKEN"), "access token, skips sign in")
	flag.StringVar(&opts.bookingID, "booking", "", "booking whose thread to open")
	flag.BoolVar(&opts.verbose, "v", false, "log realtime activity")
	flag.Parse()
	opts.password = os.Getenv("OPSCHAT_PASSWORD")

	level := slog.LevelWarn
	if opts.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, opts, os.Stdin, os.Stdout, logger); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintln(os.Stderr, "opschat:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options, in io.Reader, out io.Writer, logger *slog.Logger) error {
	if opts.supabaseURL == "" || opts.anonKey == "" {
		return errors.New("-url and -key (or SUPABASE_URL and SUPABASE_URL_ANON_KEY) are required")
	}
	if opts.bookingID == "" {
		return errors.New("-booking is required")
	}

	client, err := supabase.NewClient(opts.supabaseURL, opts.anonKey, nil)
	if err != nil {
		return fmt.Errorf("failed to create Supabase client: %w", err)
	}
	repo := models.SupabaseNewRepo(client, opts.supabaseURL, opts.anonKey)
	auth := services.NewAuthService(repo)

	token, userID, err := signIn(ctx, auth, opts)
	if err != nil {
		return err
	}

	self := models.SenderOperator
	if profile, err := auth.GetProfile(ctx, userID, token); err == nil && profile.Role == models.RoleAdmin {
		self = models.SenderAdmin
	}

	chats := services.NewChatService(repo, repo)
	thread := chat.NewThread(opts.bookingID, self, userID, chats.For(token))

	history, err := chats.List(ctx, opts.bookingID, token)
	if err != nil {
		return err
	}
	thread.Load(history)
	for _, e := range thread.Entries() {
		printEntry(out, e, self)
	}

	rt, err := realtime.NewClient(opts.supabaseURL, opts.anonKey, realtime.WithLogger(logger))
	if err != nil {
		return err
	}
	sub, err := rt.Subscribe(ctx, realtime.Filter{
		Event:  "INSERT",
		Table:  models.MessagesTable,
		Filter: "booking_id=eq." + opts.bookingID,
	}, token)
	if err != nil {
		return fmt.Errorf("failed to subscribe to messages: %w", err)
	}
	defer sub.Close()

	go receive(sub, thread, out, self, logger)

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-sub.Done():
			return fmt.Errorf("realtime subscription ended: %w", sub.Err())
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if strings.TrimSpace(line) == "" {
				continue
			}
			thread.SetDraft(line)
			if err := thread.Send(ctx); err != nil {
				fmt.Fprintf(out, "! not sent: %v\n", err)
				continue
			}
		}
	}
}

func signIn(ctx context.Context, auth *services.AuthService, opts options) (token, userID string, err error) {
	if opts.token != "" {
		claims, err := helpers.ParseUnverified(opts.token)
		if err != nil {
			return "", "", fmt.Errorf("invalid token: %w", err)
		}
		return opts.token, claims.Subject, nil
	}
	if opts.email == "" || opts.password == "" {
		return "", "", errors.New("-email with OPSCHAT_PASSWORD, or -token, is required")
	}
	res, err := auth.Login(ctx, opts.email, opts.password)
	if err != nil {
		return "", "", fmt.Errorf("sign in failed: %w", err)
	}
	return res.AccessToken, res.User.ID.String(), nil
}

// receive merges realtime inserts into the thread. Our own messages come
// back here too; Apply drops the duplicates.
func receive(sub *realtime.Subscription, thread *chat.Thread, out io.Writer, self models.SenderType, logger *slog.Logger) {
	for change := range sub.Events() {
		var msg models.Message
		if err := change.Decode(&msg); err != nil {
			logger.Warn("Skipping undecodable message", "error", err)
			continue
		}
		if thread.Apply(msg) && msg.SenderType != self {
			printEntry(out, chat.Entry{Message: msg}, self)
		}
	}
}

func printEntry(out io.Writer, e chat.Entry, self models.SenderType) {
	who := string(e.Message.SenderType)
	if e.Message.SenderType == self {
		who = "you"
	}
	stamp := e.Message.CreatedAt.Local().Format("Jan 02 15:04")
	fmt.Fprintf(out, "[%s] %s: %s\n", stamp, who, e.Message.Text)
}
