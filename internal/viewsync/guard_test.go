package viewsync

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestGuard() (*Guard, *fakeClock) {
	clock := &fakeClock{t: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)}
	return NewGuard(DefaultGuardConfig(), clock.now), clock
}

func TestGuard_StartsIdle(t *testing.T) {
	g, _ := newTestGuard()
	assert.Equal(t, GuardIdle, g.State())
	assert.False(t, g.Suppressing())
	assert.True(t, g.Deadline().IsZero())
}

func TestGuard_SuppressesUntilWindowAfterSettle(t *testing.T) {
	g, clock := newTestGuard()

	require.NoError(t, g.Engage())
	assert.True(t, g.Suppressing())

	clock.advance(400 * time.Millisecond)
	g.NavigationSettled()

	clock.advance(999 * time.Millisecond)
	assert.True(t, g.Suppressing(), "still inside the window")

	clock.advance(time.Millisecond)
	assert.False(t, g.Suppressing(), "window elapsed after settle")
	assert.Equal(t, GuardIdle, g.State())
}

func TestGuard_BoundedWhenNavigationNeverSettles(t *testing.T) {
	g, clock := newTestGuard()
	require.NoError(t, g.Engage())

	clock.advance(2999 * time.Millisecond)
	assert.True(t, g.Suppressing())

	clock.advance(time.Millisecond)
	assert.False(t, g.Suppressing())
}

func TestGuard_ReEngageRearmsDeadline(t *testing.T) {
	g, clock := newTestGuard()
	require.NoError(t, g.Engage())
	first := g.Deadline()

	clock.advance(time.Second)
	require.NoError(t, g.Engage())

	assert.True(t, g.Deadline().After(first))
}

func TestGuard_SettleWhileIdleIsNoop(t *testing.T) {
	g, _ := newTestGuard()
	g.NavigationSettled()
	assert.Equal(t, GuardIdle, g.State())
}

func TestGuardState_Transitions(t *testing.T) {
	assert.True(t, GuardIdle.CanTransitionTo(GuardSuppressing))
	assert.False(t, GuardIdle.CanTransitionTo(GuardIdle))
	assert.True(t, GuardSuppressing.CanTransitionTo(GuardSuppressing))
	assert.True(t, GuardSuppressing.CanTransitionTo(GuardIdle))
}
