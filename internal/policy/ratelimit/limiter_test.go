package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLimiterSpacesSameHost(t *testing.T) {
	t.Parallel()

	l := New(Config{Interval: 100 * time.Millisecond})
	ctx := context.Background()

	start := time.Now()
	require.NoError(t, l.Wait(ctx, "https://salon.cz/"))
	require.Less(t, time.Since(start), 50*time.Millisecond)

	start = time.Now()
	require.NoError(t, l.Wait(ctx, "https://SALON.cz/cenik"))
	require.GreaterOrEqual(t, time.Since(start), 80*time.Millisecond)
	require.Equal(t, 1, l.Hosts())
}

func TestLimiterHostsIndependent(t *testing.T) {
	t.Parallel()

	l := New(Config{Interval: time.Second})
	ctx := context.Background()

	require.NoError(t, l.Wait(ctx, "https://a.cz/1"))
	start := time.Now()
	require.NoError(t, l.Wait(ctx, "https://b.cz/1"))
	require.Less(t, time.Since(start), 50*time.Millisecond)
	require.Equal(t, 2, l.Hosts())
}

func TestLimiterRespectsContext(t *testing.T) {
	t.Parallel()

	l := New(Config{Interval: time.Hour})
	require.NoError(t, l.Wait(context.Background(), "https://salon.cz"))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	require.Error(t, l.Wait(ctx, "https://salon.cz"))
}

func TestLimiterDisabled(t *testing.T) {
	t.Parallel()

	var nilLimiter *Limiter
	require.NoError(t, nilLimiter.Wait(context.Background(), "https://salon.cz"))

	l := New(Config{})
	for i := 0; i < 5; i++ {
		require.NoError(t, l.Wait(context.Background(), "https://salon.cz"))
	}
	require.Zero(t, l.Hosts())
}
