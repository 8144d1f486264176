package permcache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/guildhall-io/guildhall/internal/permissions"
)

type countingComputer struct {
	mu    sync.Mutex
	calls int
	flags permissions.FlagMap
	err   error
}

func (c *countingComputer) Compute(context.Context, string, permissions.ResourceType, string) (permissions.FlagMap, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return c.flags.Clone(), nil
}

type fakeStore struct {
	mu      sync.Mutex
	entries map[string][]byte
	setErr  error
	getErr  error
}

func newFakeStore() *fakeStore {
	return &fakeStore{entries: make(map[string][]byte)}
}

func (s *fakeStore) IncrementWithTTL(context.Context, string, time.Duration) (int64, time.Duration, error) {
	return 0, 0, nil
}

func (s *fakeStore) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	if s.setErr != nil {
		return s.setErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = value
	return nil
}

func (s *fakeStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	if s.getErr != nil {
		return nil, false, s.getErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	raw, ok := s.entries[key]
	return raw, ok, nil
}

func (s *fakeStore) Delete(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range keys {
		delete(s.entries, key)
	}
	return nil
}

func TestCacheRequiresComputer(t *testing.T) {
	_, err := New(nil, newFakeStore(), time.Second)
	require.Error(t, err)
}

func TestCacheComputesOnceWhileFresh(t *testing.T) {
	inner := &countingComputer{flags: permissions.FlagMap{permissions.OpView: true}}
	cache, err := New(inner, newFakeStore(), time.Minute)
	require.NoError(t, err)

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		flags, err := cache.Compute(ctx, "page-1", permissions.ResourcePage, "user-1")
		require.NoError(t, err)
		require.True(t, flags[permissions.OpView])
	}
	require.Equal(t, 1, inner.calls)

	// A different actor misses the cache
	_, err = cache.Compute(ctx, "page-1", permissions.ResourcePage, "user-2")
	require.NoError(t, err)
	require.Equal(t, 2, inner.calls)
}

func TestCacheInvalidateForcesRecompute(t *testing.T) {
	inner := &countingComputer{flags: permissions.FlagMap{permissions.OpView: true}}
	cache, err := New(inner, newFakeStore(), time.Minute)
	require.NoError(t, err)

	ctx := context.Background()
	_, err = cache.Compute(ctx, "page-1", permissions.ResourcePage, "user-1")
	require.NoError(t, err)
	_, err = cache.Compute(ctx, "page-1", permissions.ResourcePage, "")
	require.NoError(t, err)
	require.Equal(t, 2, inner.calls)

	require.NoError(t, cache.Invalidate(ctx, "page-1", permissions.ResourcePage, "user-1"))

	// Both the named actor and the anonymous entry are evicted
	_, err = cache.Compute(ctx, "page-1", permissions.ResourcePage, "user-1")
	require.NoError(t, err)
	_, err = cache.Compute(ctx, "page-1", permissions.ResourcePage, "")
	require.NoError(t, err)
	require.Equal(t, 4, inner.calls)
}

func TestCacheDegradesOnStoreFailure(t *testing.T) {
	inner := &countingComputer{flags: permissions.FlagMap{permissions.OpView: true}}
	store := newFakeStore()
	store.getErr = errors.New("store down")
	store.setErr = errors.New("store down")

	cache, err := New(inner, store, time.Minute)
	require.NoError(t, err)

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		flags, err := cache.Compute(ctx, "page-1", permissions.ResourcePage, "user-1")
		require.NoError(t, err)
		require.True(t, flags[permissions.OpView])
	}
	require.Equal(t, 2, inner.calls)
}

func TestCacheComputeErrorNotCached(t *testing.T) {
	inner := &countingComputer{err: errors.New("boom")}
	cache, err := New(inner, newFakeStore(), time.Minute)
	require.NoError(t, err)

	_, err = cache.Compute(context.Background(), "page-1", permissions.ResourcePage, "user-1")
	require.Error(t, err)
	_, err = cache.Compute(context.Background(), "page-1", permissions.ResourcePage, "user-1")
	require.Error(t, err)
	require.Equal(t, 2, inner.calls)
}

func TestNilStorePassesThrough(t *testing.T) {
	inner := &countingComputer{flags: permissions.FlagMap{permissions.OpView: true}}
	cache, err := New(inner, nil, time.Minute)
	require.NoError(t, err)

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		_, err := cache.Compute(ctx, "page-1", permissions.ResourcePage, "user-1")
		require.NoError(t, err)
	}
	require.Equal(t, 2, inner.calls)
	require.NoError(t, cache.Invalidate(ctx, "page-1", permissions.ResourcePage))
}
