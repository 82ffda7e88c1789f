package viewsync

import (
	"fmt"
	"sync"
	"time"
)

// GuardState is the state of the viewport sync guard.
type GuardState string

const (
	GuardIdle        GuardState = "idle"
	GuardSuppressing GuardState = "suppressing"
)

// guardTransitions defines the allowed state changes. Re-engaging while suppressing
// re-arms the deadline.
var guardTransitions = map[GuardState][]GuardState{
	GuardIdle:        {GuardSuppressing},
	GuardSuppressing: {GuardSuppressing, GuardIdle},
}

// CanTransitionTo returns true if a transition from this state to target is allowed.
func (s GuardState) CanTransitionTo(target GuardState) bool {
	for _, t := range guardTransitions[s] {
		if t == target {
			return true
		}
	}
	return false
}

// String returns the string representation of the state.
func (s GuardState) String() string { return string(s) }

// Clock returns the current time.
type Clock func() time.Time

// GuardConfig tunes the suppression window.
type GuardConfig struct {
	// Window is how long suppression lasts after the triggered navigation settles.
	Window time.Duration
	// NavigationTimeout bounds how long a navigation may take before it is assumed settled.
	NavigationTimeout time.Duration
}

// DefaultGuardConfig returns the production defaults.
func DefaultGuardConfig() GuardConfig {
	return GuardConfig{Window: 1000 * time.Millisecond, NavigationTimeout: 2000 * time.Millisecond}
}

// Guard suppresses viewport-driven visible-set updates while a navigation triggered by
// the filter pipeline is in flight. Leaving Suppressing is driven only by the deadline;
// the viewport's own settle notification is what is being suppressed and never ends it.
type Guard struct {
	mu       sync.Mutex
	cfg      GuardConfig
	now      Clock
	state    GuardState
	deadline time.Time
}

// NewGuard creates an idle guard. now defaults to time.Now.
func NewGuard(cfg GuardConfig, now Clock) *Guard {
	if now == nil {
		now = time.Now
	}
	return &Guard{cfg: cfg, now: now, state: GuardIdle}
}

// Engage enters Suppressing for a newly triggered navigation. The deadline covers the
// navigation timeout plus the window so a navigation that never reports completion
// still releases the guard.
func (g *Guard) Engage() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.expireLocked()
	if !g.state.CanTransitionTo(GuardSuppressing) {
		return fmt.Errorf("guard cannot transition from %s to %s", g.state, GuardSuppressing)
	}
	g.state = GuardSuppressing
	g.deadline = g.now().Add(g.cfg.NavigationTimeout + g.cfg.Window)
	return nil
}

// NavigationSettled re-arms the deadline to one window after the navigation completed.
// It is a no-op when idle.
func (g *Guard) NavigationSettled() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.expireLocked()
	if g.state != GuardSuppressing {
		return
	}
	g.deadline = g.now().Add(g.cfg.Window)
}

// State returns the current state, applying expiry first.
func (g *Guard) State() GuardState {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.expireLocked()
	return g.state
}

// Suppressing reports whether viewport notifications must be discarded right now.
func (g *Guard) Suppressing() bool {
	return g.State() == GuardSuppressing
}

// Deadline returns the expiry time while suppressing, or the zero time when idle.
func (g *Guard) Deadline() time.Time {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.expireLocked()
	if g.state != GuardSuppressing {
		return time.Time{}
	}
	return g.deadline
}

func (g *Guard) expireLocked() {
	if g.state == GuardSuppressing && !g.now().Before(g.deadline) {
		g.state = GuardIdle
		g.deadline = time.Time{}
	}
}
