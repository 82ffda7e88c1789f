package application

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/trailview/service-routes/internal/domain/profile"
	"github.com/trailview/service-routes/internal/domain/route"
	"github.com/trailview/service-routes/internal/metrics"
	"github.com/trailview/service-routes/internal/platform/apperror"
	"github.com/trailview/service-routes/internal/presentation"
	"github.com/trailview/service-routes/internal/viewsync"
)

// DefaultFitExpand scales the selected route's bound before the map fits to it.
const DefaultFitExpand = 1.5

// SelectionOutcome is how a Select call ended.
type SelectionOutcome string

const (
	SelectionCommitted          SelectionOutcome = "committed"
	SelectionProfileUnavailable SelectionOutcome = "profile_unavailable"
	SelectionGeometryMissing    SelectionOutcome = "geometry_missing"
	SelectionStale              SelectionOutcome = "stale"
)

// SelectionResult describes a finished Select call.
type SelectionResult struct {
	Outcome       SelectionOutcome `json:"outcome"`
	RouteID       route.ID         `json:"route_id"`
	ProfileSource profile.Source   `json:"profile_source,omitempty"`
	Samples       int              `json:"samples"`
}

// SelectionController owns the current selection slot. It shares the session's turn
// lock: state is only touched while holding it, and fetches run outside it.
type SelectionController struct {
	turn      *sync.Mutex
	sessionID string
	source    route.Source
	profiles  ProfileProvider
	sink      presentation.Sink
	cursor    *viewsync.Cursor
	observers *Observers
	language  func() string
	fitExpand float64
	logger    *zap.Logger

	// ticket increments on every Select and Clear; committed is the ticket whose
	// geometry is currently installed.
	ticket        uint64
	committed     uint64
	current       *route.Route
	geometry      route.Geometry
	track         *viewsync.Track
	profileSource profile.Source
}

// NewSelectionController creates a controller with nothing selected.
func NewSelectionController(
	turn *sync.Mutex,
	sessionID string,
	source route.Source,
	profiles ProfileProvider,
	sink presentation.Sink,
	cursor *viewsync.Cursor,
	observers *Observers,
	language func() string,
	logger *zap.Logger,
) *SelectionController {
	return &SelectionController{
		turn:      turn,
		sessionID: sessionID,
		source:    source,
		profiles:  profiles,
		sink:      sink,
		cursor:    cursor,
		observers: observers,
		language:  language,
		fitExpand: DefaultFitExpand,
		logger:    logger,
	}
}

// Select fetches id's geometry, commits it, then builds and installs its profile.
// Completions that belong to a superseded selection are discarded without error.
func (c *SelectionController) Select(ctx context.Context, id route.ID) (SelectionResult, error) {
	return c.complete(ctx, c.begin(), id)
}

// begin issues the ticket of a new selection request. Any request begun earlier is
// superseded from this point on.
func (c *SelectionController) begin() uint64 {
	c.turn.Lock()
	defer c.turn.Unlock()
	c.ticket++
	return c.ticket
}

func (c *SelectionController) complete(ctx context.Context, ticket uint64, id route.ID) (SelectionResult, error) {
	feature, fetchErr := c.source.FetchGeometry(ctx, id)

	c.turn.Lock()
	if ticket != c.ticket {
		c.turn.Unlock()
		return c.stale(id, "geometry"), nil
	}
	if fetchErr != nil {
		c.turn.Unlock()
		c.logger.Error("route geometry fetch failed", zap.Int64("route_id", int64(id)), zap.Error(fetchErr))
		metrics.SelectionsTotal.WithLabelValues(string(SelectionGeometryMissing)).Inc()
		return SelectionResult{Outcome: SelectionGeometryMissing, RouteID: id},
			apperror.NewUnavailableError("failed to fetch route geometry", fetchErr)
	}
	if feature == nil || feature.Route == nil || feature.Geometry.IsEmpty() {
		c.turn.Unlock()
		c.logger.Warn("selected route has no geometry", zap.Int64("route_id", int64(id)))
		metrics.SelectionsTotal.WithLabelValues(string(SelectionGeometryMissing)).Inc()
		return SelectionResult{Outcome: SelectionGeometryMissing, RouteID: id},
			apperror.NewNotFoundError("route geometry", id.String())
	}
	c.installLocked(ticket, feature)
	c.turn.Unlock()

	series, buildErr := c.profiles.Profile(ctx, feature)

	c.turn.Lock()
	defer c.turn.Unlock()

	if c.committed != ticket || c.current == nil || c.current.ID() != id {
		return c.stale(id, "profile"), nil
	}
	if buildErr != nil {
		c.profileSource = profile.SourceNone
		c.sink.ShowProfileUnavailable(id)
		metrics.SelectionsTotal.WithLabelValues(string(SelectionProfileUnavailable)).Inc()
		return SelectionResult{Outcome: SelectionProfileUnavailable, RouteID: id, ProfileSource: profile.SourceNone}, nil
	}

	c.track = &viewsync.Track{Geometry: feature.Geometry, Samples: series.Samples}
	c.profileSource = series.Source
	c.sink.DrawChart(series.Samples)
	metrics.SelectionsTotal.WithLabelValues(string(SelectionCommitted)).Inc()

	c.logger.Debug("route selected",
		zap.String("session_id", c.sessionID),
		zap.Int64("route_id", int64(id)),
		zap.String("profile_source", string(series.Source)),
		zap.Int("samples", series.Len()),
	)
	return SelectionResult{
		Outcome:       SelectionCommitted,
		RouteID:       id,
		ProfileSource: series.Source,
		Samples:       series.Len(),
	}, nil
}

func (c *SelectionController) stale(id route.ID, phase string) SelectionResult {
	c.logger.Debug("discarding stale selection completion",
		zap.String("session_id", c.sessionID),
		zap.Int64("route_id", int64(id)),
		zap.String("phase", phase),
	)
	metrics.SelectionsTotal.WithLabelValues(string(SelectionStale)).Inc()
	return SelectionResult{Outcome: SelectionStale, RouteID: id}
}

func (c *SelectionController) installLocked(ticket uint64, feature *route.Feature) {
	// Drop the previous route's transient state
	c.cursor.Reset()
	c.track = nil
	c.profileSource = ""

	c.committed = ticket
	c.current = feature.Route
	c.geometry = feature.Geometry

	view := presentation.NewRouteView(feature.Route, c.language())
	c.sink.RenderDetails(&view)
	c.sink.ClearChart()
	c.sink.FitBounds(route.ExpandBound(feature.Geometry.Bound(), c.fitExpand))

	c.observers.routeSelected.notify(RouteSelectedEvent{
		SessionID: c.sessionID,
		RouteID:   feature.Route.ID(),
		Name:      feature.Route.Name(),
	})
}

// clearLocked drops the selection and invalidates any in-flight completion.
func (c *SelectionController) clearLocked() {
	c.ticket++
	if c.current == nil {
		return
	}
	id := c.current.ID()

	c.cursor.Reset()
	c.committed = 0
	c.current = nil
	c.geometry = route.Geometry{}
	c.track = nil
	c.profileSource = ""

	c.sink.ClearChart()
	c.sink.RenderDetails(nil)
	c.observers.selectionCleared.notify(SelectionClearedEvent{SessionID: c.sessionID, RouteID: id})
}

// invalidateLocked discards in-flight completions without touching the current selection.
func (c *SelectionController) invalidateLocked() { c.ticket++ }

// rerenderLocked refreshes the detail panel, used after a language change.
func (c *SelectionController) rerenderLocked() {
	if c.current == nil {
		return
	}
	view := presentation.NewRouteView(c.current, c.language())
	c.sink.RenderDetails(&view)
}

// trackLocked returns the selection for cursor sync, or nil until its samples are installed.
func (c *SelectionController) trackLocked() *viewsync.Track { return c.track }

// SelectionState is a read-only view of the selection slot.
type SelectionState struct {
	RouteID       *route.ID      `json:"route_id,omitempty"`
	ProfileSource profile.Source `json:"profile_source,omitempty"`
	Samples       int            `json:"samples"`
	Vertices      int            `json:"vertices"`
}

func (c *SelectionController) stateLocked() SelectionState {
	st := SelectionState{}
	if c.current != nil {
		id := c.current.ID()
		st.RouteID = &id
		st.Vertices = len(c.geometry.Path)
		st.ProfileSource = c.profileSource
	}
	if c.track != nil {
		st.Samples = len(c.track.Samples)
	}
	return st
}
