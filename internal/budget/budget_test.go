package budget

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeClock(g *Guard, at *time.Time) {
	g.now = func() time.Time { return *at }
}

func TestGuard_ExceededLatches(t *testing.T) {
	g := New(10 * time.Second)
	now := g.start
	fakeClock(g, &now)

	assert.False(t, g.Exceeded())
	assert.Equal(t, 10*time.Second, g.Remaining())

	now = now.Add(10 * time.Second)
	assert.True(t, g.Exceeded())
	assert.Equal(t, time.Duration(0), g.Remaining())

	// The clock going backwards does not un-trip the guard.
	now = g.start
	assert.True(t, g.Exceeded())
	assert.True(t, g.Tripped())
}

func TestGuard_ZeroLimitNeverExpires(t *testing.T) {
	g := New(0)
	now := g.start.Add(time.Hour)
	fakeClock(g, &now)
	assert.False(t, g.Exceeded())
	_, ok := g.Deadline()
	assert.False(t, ok)
}

func TestGuard_ContextCancelledAtDeadline(t *testing.T) {
	g := New(20 * time.Millisecond)
	ctx, cancel := g.Context(context.Background())
	defer cancel()

	select {
	case <-ctx.Done():
		require.ErrorIs(t, ctx.Err(), context.DeadlineExceeded)
	case <-time.After(2 * time.Second):
		t.Fatal("context not cancelled at the deadline")
	}
	assert.True(t, g.Exceeded())
}
