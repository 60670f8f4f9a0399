package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/wearedev-studio/skillgame-app-sub001/internal/kvstore"
)

func newTestBruteForce(start time.Time) (BruteForceService, *time.Time) {
	clock := start
	store := kvstore.NewMemoryStore()
	store.Now = func() time.Time { return clock }
	return NewBruteForceService(store, 5, 30*time.Minute), &clock
}

func TestLockoutAfterThreshold(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestBruteForce(time.Now())

	for i := 0; i < 5; i++ {
		allowed, _ := svc.CheckAllowed(ctx, "1.2.3.4", "user@example.com")
		require.True(t, allowed, "attempt %d should be allowed", i+1)
		svc.RecordFailure(ctx, "1.2.3.4", "user@example.com")
	}

	allowed, retryAfter := svc.CheckAllowed(ctx, "1.2.3.4", "user@example.com")
	require.False(t, allowed)
	require.Greater(t, retryAfter, time.Duration(0))
	require.LessOrEqual(t, retryAfter, 30*time.Minute)
}

func TestLockoutExpiresWithTTL(t *testing.T) {
	ctx := context.Background()
	svc, clock := newTestBruteForce(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))

	for i := 0; i < 5; i++ {
		svc.RecordFailure(ctx, "1.2.3.4", "user@example.com")
	}
	allowed, _ := svc.CheckAllowed(ctx, "1.2.3.4", "user@example.com")
	require.False(t, allowed)

	*clock = clock.Add(31 * time.Minute)
	allowed, _ = svc.CheckAllowed(ctx, "1.2.3.4", "user@example.com")
	require.True(t, allowed)
}

func TestSuccessResetsCounter(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestBruteForce(time.Now())

	for i := 0; i < 4; i++ {
		svc.RecordFailure(ctx, "1.2.3.4", "user@example.com")
	}
	svc.RecordSuccess(ctx, "1.2.3.4", "user@example.com")

	for i := 0; i < 4; i++ {
		svc.RecordFailure(ctx, "1.2.3.4", "user@example.com")
	}
	allowed, _ := svc.CheckAllowed(ctx, "1.2.3.4", "user@example.com")
	require.True(t, allowed)
}

func TestCounterIsScopedToIPEmailPair(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestBruteForce(time.Now())

	for i := 0; i < 5; i++ {
		svc.RecordFailure(ctx, "1.2.3.4", "victim@example.com")
	}

	// Same IP, different email: not locked out.
	allowed, _ := svc.CheckAllowed(ctx, "1.2.3.4", "other@example.com")
	require.True(t, allowed)

	// Same email, different IP: not locked out.
	allowed, _ = svc.CheckAllowed(ctx, "5.6.7.8", "victim@example.com")
	require.True(t, allowed)

	allowed, _ = svc.CheckAllowed(ctx, "1.2.3.4", "victim@example.com")
	require.False(t, allowed)
}

func TestEmailComparisonIsCaseInsensitive(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestBruteForce(time.Now())

	for i := 0; i < 5; i++ {
		svc.RecordFailure(ctx, "1.2.3.4", "User@Example.COM")
	}
	allowed, _ := svc.CheckAllowed(ctx, "1.2.3.4", "user@example.com")
	require.False(t, allowed)
}

// failingStore simulates an unavailable counter backend.
type failingStore struct {
	kvstore.Store
}

var errStoreDown = errors.New("store down")

func (f *failingStore) Get(context.Context, string) (string, bool, error) {
	return "", false, errStoreDown
}

func (f *failingStore) Incr(context.Context, string, time.Duration) (int64, error) {
	return 0, errStoreDown
}

func TestFailsOpenWhenStoreUnavailable(t *testing.T) {
	ctx := context.Background()
	svc := NewBruteForceService(&failingStore{}, 5, 30*time.Minute)

	allowed, _ := svc.CheckAllowed(ctx, "1.2.3.4", "user@example.com")
	require.True(t, allowed)

	// Recording failures must not panic either.
	svc.RecordFailure(ctx, "1.2.3.4", "user@example.com")
}
