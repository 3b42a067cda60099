package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/joshua-takyi/tourdesk/internal/dashboard"
	"github.com/joshua-takyi/tourdesk/internal/models"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// DashboardOptions tunes DashboardService. Zero values get defaults.
type DashboardOptions struct {
	Location       *time.Location
	DebounceWindow time.Duration
	SnapshotTTL    time.Duration
	TrackFor       time.Duration
	Clock          Clock
	Logger         *slog.Logger
}

// DashboardResult is a dashboard plus whether it is a fallback copy.
type DashboardResult struct {
	View        *dashboard.View `json:"dashboard"`
	Stale       bool            `json:"stale"`
	StaleReason string          `json:"stale_reason,omitempty"`
	Cached      bool            `json:"-"`
}

type dashboardEntry struct {
	view     *dashboard.View
	builtAt  time.Time
	lastSeen time.Time
	token    string
	gen      uint64 // bumped by Invalidate
}

type DashboardService struct {
	bookings  models.BookingRepo
	tours     models.TourRepo
	snapshots models.SnapshotRepo

	loc         *time.Location
	debounce    time.Duration
	snapshotTTL time.Duration
	trackFor    time.Duration
	clock       Clock
	logger      *slog.Logger

	builds singleflight.Group
	mu     sync.Mutex
	cache  map[string]*dashboardEntry
}

// NewDashboardService wires the dashboard pipeline. snapshots may be nil, in
// which case history is unavailable and refreshes are not recorded.
func NewDashboardService(bookings models.BookingRepo, tours models.TourRepo, snapshots models.SnapshotRepo, opts DashboardOptions) *DashboardService {
	ds := &DashboardService{
		bookings:    bookings,
		tours:       tours,
		snapshots:   snapshots,
		loc:         opts.Location,
		debounce:    opts.DebounceWindow,
		snapshotTTL: opts.SnapshotTTL,
		trackFor:    opts.TrackFor,
		clock:       opts.Clock,
		logger:      opts.Logger,
		cache:       make(map[string]*dashboardEntry),
	}
	if ds.loc == nil {
		ds.loc = time.UTC
	}
	if ds.snapshotTTL <= 0 {
		ds.snapshotTTL = 90 * 24 * time.Hour
	}
	if ds.trackFor <= 0 {
		ds.trackFor = 24 * time.Hour
	}
	if ds.clock == nil {
		ds.clock = realClock{}
	}
	if ds.logger == nil {
		ds.logger = slog.Default()
	}
	return ds
}

// Build returns the operator's dashboard. Within the debounce window the
// previous result is reused unless force is set. When fetching fails the last
// good dashboard is returned marked stale; only a first-ever failure is an
// error. Build counts as a visit: it keeps the operator tracked for scheduled
// refreshes under the given token.
func (ds *DashboardService) Build(ctx context.Context, operatorID, accessToken string, force bool) (*DashboardResult, error) {
	return ds.build(ctx, operatorID, accessToken, force, true)
}

func (ds *DashboardService) build(ctx context.Context, operatorID, accessToken string, force, visit bool) (*DashboardResult, error) {
	if operatorID == "" {
		return nil, models.ValidationError{Field: "operator_id", Msg: "operator id is required"}
	}
	now := ds.clock.Now()

	ds.mu.Lock()
	entry := ds.cache[operatorID]
	if entry == nil {
		entry = &dashboardEntry{}
		ds.cache[operatorID] = entry
	}
	if visit {
		entry.lastSeen = now
		if accessToken != "" {
			entry.token = accessToken
		}
	}
	if !force && entry.view != nil && now.Sub(entry.builtAt) < ds.debounce {
		view := entry.view
		ds.mu.Unlock()
		return &DashboardResult{View: view, Cached: true}, nil
	}
	previous := entry.view
	gen := entry.gen
	ds.mu.Unlock()

	// builds started before an Invalidate are not joined
	key := operatorID + "#" + strconv.FormatUint(gen, 10)
	res, err, _ := ds.builds.Do(key, func() (interface{}, error) {
		return ds.compute(ctx, operatorID, accessToken)
	})
	if err != nil {
		if previous == nil {
			return nil, err
		}
		ds.logger.Warn("Dashboard refresh failed, serving last good copy",
			"operator_id", operatorID,
			"generated_at", previous.GeneratedAt,
			"error", err,
		)
		return &DashboardResult{
			View:        previous,
			Stale:       true,
			StaleReason: "latest changes could not be loaded",
		}, nil
	}

	view := res.(*dashboard.View)
	ds.mu.Lock()
	e := ds.cache[operatorID]
	if e != nil && e.gen == gen && (e.view == nil || !view.GeneratedAt.Before(e.view.GeneratedAt)) {
		e.view = view
		e.builtAt = now
	}
	ds.mu.Unlock()
	return &DashboardResult{View: view}, nil
}

func (ds *DashboardService) compute(ctx context.Context, operatorID, accessToken string) (*dashboard.View, error) {
	var (
		bookings []models.Booking
		tours    []models.Tour
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		bookings, err = ds.bookings.ListBookingsByOperator(gctx, operatorID, accessToken)
		if err != nil {
			return fmt.Errorf("failed to load bookings: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		tours, err = ds.tours.ListTours(gctx, operatorID, accessToken)
		if err != nil {
			return fmt.Errorf("failed to load tours: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	bookings = ds.markUnread(ctx, operatorID, bookings, accessToken)

	now := ds.clock.Now()
	view := dashboard.Build(operatorID, bookings, models.SplitCatalog(tours), dashboard.WindowsFor(now, ds.loc), now)

	for _, grp := range view.Tree.FallbackGroups() {
		ds.logger.Debug("Grouped bookings by name and type",
			"operator_id", operatorID,
			"group", grp.Key,
			"bookings", grp.TotalBookings,
		)
	}
	return view, nil
}

// markUnread flags bookings with unread tourist messages. Failing to load the
// flags does not fail the dashboard.
func (ds *DashboardService) markUnread(ctx context.Context, operatorID string, bookings []models.Booking, accessToken string) []models.Booking {
	if len(bookings) == 0 {
		return bookings
	}
	ids := make([]string, len(bookings))
	for i, b := range bookings {
		ids[i] = b.ID
	}
	unread, err := ds.bookings.UnreadBookingIDs(ctx, ids, models.SenderOperator, accessToken)
	if err != nil {
		ds.logger.Warn("Failed to load unread flags", "operator_id", operatorID, "error", err)
		return bookings
	}
	out := make([]models.Booking, len(bookings))
	for i, b := range bookings {
		b.HasUnread = unread[b.ID]
		out[i] = b
	}
	return out
}

// Tracked lists operators whose dashboard was requested within the tracking
// window. Entries past it are pruned.
func (ds *DashboardService) Tracked() []string {
	cutoff := ds.clock.Now().Add(-ds.trackFor)
	ds.mu.Lock()
	defer ds.mu.Unlock()
	var ids []string
	for id, e := range ds.cache {
		if e.lastSeen.Before(cutoff) {
			delete(ds.cache, id)
			continue
		}
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// RefreshTracked rebuilds every tracked dashboard and records a snapshot of
// each. It returns the number of snapshots written.
func (ds *DashboardService) RefreshTracked(ctx context.Context) (int, error) {
	written := 0
	var firstErr error
	for _, id := range ds.Tracked() {
		ds.mu.Lock()
		token := ""
		if e := ds.cache[id]; e != nil {
			token = e.token
		}
		ds.mu.Unlock()

		res, err := ds.build(ctx, id, token, true, false)
		if err == nil && res.Stale {
			err = fmt.Errorf("dashboard for operator %s could not be refreshed, the stored token may have expired", id)
		}
		if err != nil {
			ds.logger.Error("Scheduled dashboard refresh failed", "operator_id", id, "error", err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		ok, err := ds.saveSnapshot(ctx, res.View)
		if err != nil {
			ds.logger.Error("Failed to save dashboard snapshot", "operator_id", id, "error", err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if ok {
			written++
		}
	}
	return written, firstErr
}

func (ds *DashboardService) saveSnapshot(ctx context.Context, view *dashboard.View) (bool, error) {
	if ds.snapshots == nil {
		return false, nil
	}
	total := 0
	for _, g := range view.Tree.Templates {
		total += g.TotalBookings
	}
	s := view.Summary
	return ds.snapshots.SaveSnapshot(ctx, &models.DashboardSnapshot{
		OperatorID:    view.OperatorID,
		TodayNet:      s.TodayNet,
		WeekNet:       s.WeekNet,
		PendingNet:    s.PendingNet,
		CriticalCount: s.CriticalCount,
		AvgBooking:    s.AvgBooking,
		TotalNet:      s.TotalNet,
		TotalBookings: total,
		UrgentCount:   view.UrgentCount(),
		TakenAt:       view.GeneratedAt,
	}, ds.snapshotTTL)
}

// History lists recorded snapshots, newest first.
func (ds *DashboardService) History(ctx context.Context, operatorID string, limit int) ([]*models.DashboardSnapshot, error) {
	if ds.snapshots == nil {
		return nil, models.UpstreamError{Service: "mongodb", Msg: "dashboard history is not available"}
	}
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	snaps, err := ds.snapshots.ListSnapshots(ctx, operatorID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	return snaps, nil
}

// Invalidate makes the next Build fetch again while keeping the last good
// dashboard as a stale fallback.
func (ds *DashboardService) Invalidate(operatorID string) {
	ds.mu.Lock()
	if e := ds.cache[operatorID]; e != nil {
		e.builtAt = time.Time{}
		e.gen++
	}
	ds.mu.Unlock()
}
