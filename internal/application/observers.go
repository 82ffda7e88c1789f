package application

import (
	"sync"

	"github.com/paulmach/orb"

	"github.com/trailview/service-routes/internal/domain/route"
)

// RouteSelectedEvent is emitted once a selection's geometry is committed.
type RouteSelectedEvent struct {
	SessionID string   `json:"session_id"`
	RouteID   route.ID `json:"route_id"`
	Name      string   `json:"name"`
}

// SelectionClearedEvent is emitted when the selection is dropped.
type SelectionClearedEvent struct {
	SessionID string   `json:"session_id"`
	RouteID   route.ID `json:"route_id"`
}

// ExtentChangedEvent is emitted after a viewport extent updated the visible set.
type ExtentChangedEvent struct {
	SessionID  string     `json:"session_id"`
	Extent     [4]float64 `json:"extent"`
	VisibleIDs []route.ID `json:"visible_ids"`
}

// LanguageChangedEvent is emitted when a session switches display language.
type LanguageChangedEvent struct {
	SessionID string `json:"session_id"`
	Language  string `json:"language"`
}

func extentArray(b orb.Bound) [4]float64 {
	return [4]float64{b.Min.X(), b.Min.Y(), b.Max.X(), b.Max.Y()}
}

type observerList[E any] struct {
	mu  sync.RWMutex
	fns []func(E)
}

func (l *observerList[E]) subscribe(fn func(E)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.fns = append(l.fns, fn)
}

func (l *observerList[E]) notify(e E) {
	l.mu.RLock()
	fns := l.fns
	l.mu.RUnlock()
	for _, fn := range fns {
		fn(e)
	}
}

// Observers is a typed registry of session callbacks. Callbacks run inside the session's
// turn and must not block.
type Observers struct {
	routeSelected    observerList[RouteSelectedEvent]
	selectionCleared observerList[SelectionClearedEvent]
	extentChanged    observerList[ExtentChangedEvent]
	languageChanged  observerList[LanguageChangedEvent]
}

// NewObservers creates an empty registry.
func NewObservers() *Observers { return &Observers{} }

func (o *Observers) OnRouteSelected(fn func(RouteSelectedEvent)) { o.routeSelected.subscribe(fn) }

func (o *Observers) OnSelectionCleared(fn func(SelectionClearedEvent)) {
	o.selectionCleared.subscribe(fn)
}

func (o *Observers) OnExtentChanged(fn func(ExtentChangedEvent)) { o.extentChanged.subscribe(fn) }

func (o *Observers) OnLanguageChanged(fn func(LanguageChangedEvent)) {
	o.languageChanged.subscribe(fn)
}

// EventSink receives every session event, typically to forward it to a broker.
type EventSink interface {
	RouteSelected(e RouteSelectedEvent)
	SelectionCleared(e SelectionClearedEvent)
	ExtentChanged(e ExtentChangedEvent)
	LanguageChanged(e LanguageChangedEvent)
}

// Forward subscribes sink to every event.
func (o *Observers) Forward(sink EventSink) {
	o.OnRouteSelected(sink.RouteSelected)
	o.OnSelectionCleared(sink.SelectionCleared)
	o.OnExtentChanged(sink.ExtentChanged)
	o.OnLanguageChanged(sink.LanguageChanged)
}
