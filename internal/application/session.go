package application

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/paulmach/orb"
	"go.uber.org/zap"

	"github.com/trailview/service-routes/internal/domain/route"
	"github.com/trailview/service-routes/internal/metrics"
	"github.com/trailview/service-routes/internal/platform/apperror"
	"github.com/trailview/service-routes/internal/presentation"
	"github.com/trailview/service-routes/internal/viewsync"
)

// SessionConfig tunes per-session sync behaviour.
type SessionConfig struct {
	Guard           viewsync.GuardConfig
	HoverThresholdM float64
	Clock           viewsync.Clock
}

// DefaultSessionConfig returns production defaults.
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{Guard: viewsync.DefaultGuardConfig(), HoverThresholdM: viewsync.DefaultHoverThresholdM}
}

// ExtentOutcome is what happened to a viewport extent notification.
type ExtentOutcome string

const (
	ExtentApplied    ExtentOutcome = "applied"
	ExtentSuppressed ExtentOutcome = "suppressed"
	ExtentStale      ExtentOutcome = "stale"
	ExtentFailed     ExtentOutcome = "failed"
)

// BrowseSession is one client's view state: filters, visible set, selection and cursor.
// Every mutation runs inside a turn (mu); fetches and spatial queries run between turns
// and re-enter to commit or discard.
type BrowseSession struct {
	id     string
	logger *zap.Logger

	mu        sync.Mutex
	routes    []*route.Route
	index     SpatialIndex
	criteria  route.FilterCriteria
	filtered  []*route.Route
	final     []*route.Route
	visible   viewsync.IDSet
	lang      string
	guard     *viewsync.Guard
	cursor    *viewsync.Cursor
	selection *SelectionController
	sink      presentation.Sink
	observers *Observers

	// extentTicket invalidates in-flight spatial queries.
	extentTicket uint64
	lastActive   time.Time
	now          viewsync.Clock
}

// NewBrowseSession creates a session over a catalog snapshot and renders the initial list.
func NewBrowseSession(
	id string,
	snap Snapshot,
	source route.Source,
	profiles ProfileProvider,
	sink presentation.Sink,
	lang string,
	cfg SessionConfig,
	logger *zap.Logger,
) *BrowseSession {
	now := cfg.Clock
	if now == nil {
		now = time.Now
	}
	s := &BrowseSession{
		id:        id,
		logger:    logger.With(zap.String("session_id", id)),
		routes:    snap.Routes,
		index:     snap.Index,
		visible:   viewsync.NewIDSet(),
		lang:      presentation.NegotiateLanguage(lang),
		guard:     viewsync.NewGuard(cfg.Guard, now),
		cursor:    viewsync.NewCursor(sink, cfg.HoverThresholdM),
		sink:      sink,
		observers: NewObservers(),
		now:       now,
	}
	s.selection = NewSelectionController(&s.mu, id, source, profiles, sink, s.cursor, s.observers,
		func() string { return s.lang }, s.logger)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.filtered = s.criteria.Evaluate(s.routes)
	s.lastActive = now()
	s.renderLocked()
	return s
}

// ID returns the session identifier.
func (s *BrowseSession) ID() string { return s.id }

// Observers returns the session's observer registry.
func (s *BrowseSession) Observers() *Observers { return s.observers }

// ApplyFilter evaluates criteria, engages the sync guard, forces the visible set to the
// filter result, asks the map to fit it and renders once.
func (s *BrowseSession) ApplyFilter(criteria route.FilterCriteria) error {
	if err := criteria.Validate(); err != nil {
		return apperror.NewValidationError(err.Error())
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.touchLocked()

	s.criteria = criteria
	s.filtered = criteria.Evaluate(s.routes)
	if err := s.guard.Engage(); err != nil {
		return err
	}
	s.visible = viewsync.NewIDSet(route.IDs(s.filtered)...)
	s.extentTicket++

	if b, ok := route.BoundOf(s.filtered); ok {
		s.sink.FitBounds(b)
	}
	s.renderLocked()

	metrics.FilterAppliesTotal.Inc()
	s.logger.Debug("filter applied",
		zap.Int("filtered", len(s.filtered)),
		zap.Time("suppress_until", s.guard.Deadline()),
	)
	return nil
}

// OnNavigationSettled reports that the map finished the navigation a filter triggered.
func (s *BrowseSession) OnNavigationSettled() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touchLocked()
	s.guard.NavigationSettled()
}

// OnExternalExtentChange updates the visible set from a stationary viewport. It is
// dropped while the guard suppresses, and discarded if a newer extent or filter arrives
// during the spatial query.
func (s *BrowseSession) OnExternalExtentChange(ctx context.Context, extent orb.Bound) (ExtentOutcome, error) {
	return s.BeginExtentChange(extent)(ctx)
}

// BeginExtentChange records an extent notification in arrival order and returns the
// spatial query that completes it. Suppression and supersession are decided against
// the arrival, so the query may run on another goroutine.
func (s *BrowseSession) BeginExtentChange(extent orb.Bound) func(context.Context) (ExtentOutcome, error) {
	s.mu.Lock()
	s.touchLocked()
	if s.guard.Suppressing() {
		s.mu.Unlock()
		metrics.ExtentChangesTotal.WithLabelValues(string(ExtentSuppressed)).Inc()
		return func(context.Context) (ExtentOutcome, error) { return ExtentSuppressed, nil }
	}
	s.extentTicket++
	ticket := s.extentTicket
	index := s.index
	s.mu.Unlock()

	return func(ctx context.Context) (ExtentOutcome, error) {
		return s.completeExtentChange(ctx, index, ticket, extent)
	}
}

func (s *BrowseSession) completeExtentChange(ctx context.Context, index SpatialIndex, ticket uint64, extent orb.Bound) (ExtentOutcome, error) {
	ids, err := index.VisibleIDs(ctx, extent)
	if err != nil {
		s.logger.Warn("spatial query failed, keeping previous visible set", zap.Error(err))
		metrics.ExtentChangesTotal.WithLabelValues(string(ExtentFailed)).Inc()
		return ExtentFailed, apperror.NewUnavailableError("spatial query failed", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if ticket != s.extentTicket {
		metrics.ExtentChangesTotal.WithLabelValues(string(ExtentStale)).Inc()
		return ExtentStale, nil
	}
	if s.guard.Suppressing() {
		metrics.ExtentChangesTotal.WithLabelValues(string(ExtentSuppressed)).Inc()
		return ExtentSuppressed, nil
	}

	s.visible = viewsync.NewIDSet(ids...)
	s.renderLocked()
	s.observers.extentChanged.notify(ExtentChangedEvent{
		SessionID:  s.id,
		Extent:     extentArray(extent),
		VisibleIDs: ids,
	})
	metrics.ExtentChangesTotal.WithLabelValues(string(ExtentApplied)).Inc()
	return ExtentApplied, nil
}

// SelectRoute selects id and builds its profile.
func (s *BrowseSession) SelectRoute(ctx context.Context, id route.ID) (SelectionResult, error) {
	return s.BeginSelectRoute(id)(ctx)
}

// BeginSelectRoute supersedes any pending selection and returns the fetch and profile
// build that complete this one. Completions of superseded selections have no effect.
func (s *BrowseSession) BeginSelectRoute(id route.ID) func(context.Context) (SelectionResult, error) {
	s.mu.Lock()
	s.touchLocked()
	s.mu.Unlock()
	ticket := s.selection.begin()
	return func(ctx context.Context) (SelectionResult, error) {
		return s.selection.complete(ctx, ticket, id)
	}
}

// ClearSelection drops the current selection.
func (s *BrowseSession) ClearSelection() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touchLocked()
	s.selection.clearLocked()
}

// OnMapHover syncs the chart to a map pointer position in map units.
func (s *BrowseSession) OnMapHover(p orb.Point) viewsync.HoverResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touchLocked()
	return s.cursor.OnMapHover(s.selection.trackLocked(), p)
}

// OnChartHover syncs the map cursor to a chart sample index.
func (s *BrowseSession) OnChartHover(index int) viewsync.HoverResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touchLocked()
	return s.cursor.OnChartHover(s.selection.trackLocked(), index)
}

// SetLanguage negotiates the display language, re-renders and returns the chosen one.
func (s *BrowseSession) SetLanguage(tag string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touchLocked()

	lang := presentation.NegotiateLanguage(tag)
	if lang == s.lang {
		return lang
	}
	s.lang = lang
	s.renderLocked()
	s.selection.rerenderLocked()
	s.observers.languageChanged.notify(LanguageChangedEvent{SessionID: s.id, Language: lang})
	return lang
}

// Close invalidates in-flight selections and spatial queries.
func (s *BrowseSession) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selection.invalidateLocked()
	s.extentTicket++
}

// LastActive returns when the session last handled an operation.
func (s *BrowseSession) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

// SessionSnapshot is the session's sync state.
type SessionSnapshot struct {
	ID            string               `json:"id"`
	Language      string               `json:"language"`
	Criteria      FilterRequest        `json:"criteria"`
	FilteredIDs   []route.ID           `json:"filtered_ids"`
	VisibleIDs    []route.ID           `json:"visible_ids"`
	FinalIDs      []route.ID           `json:"final_ids"`
	Guard         viewsync.GuardState  `json:"guard"`
	GuardDeadline *time.Time           `json:"guard_deadline,omitempty"`
	Selection     SelectionState       `json:"selection"`
	Cursor        viewsync.CursorState `json:"cursor"`
}

// Snapshot returns the current state.
func (s *BrowseSession) Snapshot() SessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	visible := make([]route.ID, 0, s.visible.Len())
	for _, r := range s.routes {
		if s.visible.Has(r.ID()) {
			visible = append(visible, r.ID())
		}
	}
	snap := SessionSnapshot{
		ID:          s.id,
		Language:    s.lang,
		Criteria:    FilterRequestFrom(s.criteria),
		FilteredIDs: route.IDs(s.filtered),
		VisibleIDs:  visible,
		FinalIDs:    route.IDs(s.final),
		Guard:       s.guard.State(),
		Selection:   s.selection.stateLocked(),
		Cursor:      s.cursor.State(),
	}
	if d := s.guard.Deadline(); !d.IsZero() {
		snap.GuardDeadline = &d
	}
	return snap
}

func (s *BrowseSession) touchLocked() { s.lastActive = s.now() }

func (s *BrowseSession) renderLocked() {
	final, fallback := viewsync.Reconcile(s.filtered, s.visible)
	switch fallback {
	case viewsync.FallbackEmptyIntersection:
		s.logger.Warn("visible set does not intersect filter result, showing all filtered routes",
			zap.Int("filtered", len(s.filtered)),
			zap.Int("visible", s.visible.Len()),
		)
		metrics.ReconcileFallbacksTotal.WithLabelValues(string(fallback)).Inc()
	case viewsync.FallbackVisibleUnknown:
		s.logger.Debug("visible set not yet known, showing all filtered routes")
		metrics.ReconcileFallbacksTotal.WithLabelValues(string(fallback)).Inc()
	}
	s.final = final
	s.sink.Render(presentation.NewRouteViews(final, s.lang))
}

// FilterRequest is the wire form of filter criteria.
type FilterRequest struct {
	Difficulty string   `json:"difficulty,omitempty" form:"difficulty"`
	Region     string   `json:"region,omitempty" form:"region"`
	MinKm      *float64 `json:"min_km,omitempty" form:"min_km"`
	MaxKm      *float64 `json:"max_km,omitempty" form:"max_km"`
	Query      string   `json:"q,omitempty" form:"q"`
}

// ToCriteria validates the request and converts it.
func (r FilterRequest) ToCriteria() (route.FilterCriteria, error) {
	c := route.FilterCriteria{
		MinDistanceKm: r.MinKm,
		MaxDistanceKm: r.MaxKm,
		NameQuery:     r.Query,
	}
	if d := strings.TrimSpace(r.Difficulty); d != "" {
		diff, err := route.ParseDifficulty(d)
		if err != nil {
			return c, apperror.NewValidationError(err.Error())
		}
		c.Difficulty = &diff
	}
	if region := strings.TrimSpace(r.Region); region != "" {
		c.RegionCode = &region
	}
	if err := c.Validate(); err != nil {
		return c, apperror.NewValidationError(err.Error())
	}
	return c, nil
}

// FilterRequestFrom converts criteria back to wire form.
func FilterRequestFrom(c route.FilterCriteria) FilterRequest {
	r := FilterRequest{MinKm: c.MinDistanceKm, MaxKm: c.MaxDistanceKm, Query: c.NameQuery}
	if c.Difficulty != nil {
		r.Difficulty = c.Difficulty.String()
	}
	if c.RegionCode != nil {
		r.Region = *c.RegionCode
	}
	return r
}
