package service

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	appErrors "github.com/skooldesk/skooldesk-api/pkg/errors"
)

type fakeCacheStore struct {
	mu      sync.Mutex
	entries map[string][]byte
	deleted []string
}

func newFakeCacheStore() *fakeCacheStore {
	return &fakeCacheStore{entries: map[string][]byte{}}
}

func (f *fakeCacheStore) Get(ctx context.Context, key string, dest interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	raw, ok := f.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (f *fakeCacheStore) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries[key] = raw
	return nil
}

func (f *fakeCacheStore) DeleteByPattern(ctx context.Context, pattern string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, pattern)
	return nil
}

func TestCacheServiceRoundTrip(t *testing.T) {
	store := newFakeCacheStore()
	svc := NewCacheService(store, time.Minute, true, nil, zap.NewNop())

	var miss string
	require.False(t, svc.Get(context.Background(), "k", &miss))

	svc.Set(context.Background(), "k", "value")

	var hit string
	require.True(t, svc.Get(context.Background(), "k", &hit))
	require.Equal(t, "value", hit)
}

func TestCacheServiceNilReceiverIsSafe(t *testing.T) {
	var svc *CacheService
	require.False(t, svc.Enabled())
	require.False(t, svc.Get(context.Background(), "k", new(string)))
	svc.Set(context.Background(), "k", "value")
	svc.Invalidate(context.Background(), "skooldesk:class:*")

	v, err := svc.Do("k", func() (interface{}, error) { return 42, nil })
	require.NoError(t, err)
	require.Equal(t, 42, v)
}

func TestCacheServiceDoCollapsesConcurrentLoads(t *testing.T) {
	store := newFakeCacheStore()
	svc := NewCacheService(store, time.Minute, true, nil, zap.NewNop())

	var mu sync.Mutex
	calls := 0
	release := make(chan struct{})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := svc.Do("shared-key", func() (interface{}, error) {
				mu.Lock()
				calls++
				mu.Unlock()
				<-release
				return "loaded", nil
			})
			require.NoError(t, err)
			require.Equal(t, "loaded", v)
		}()
	}

	// Let every goroutine reach the flight before releasing the loader.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	require.Equal(t, 1, calls)
}

func TestCacheServiceInvalidatePassesPatternsThrough(t *testing.T) {
	store := newFakeCacheStore()
	svc := NewCacheService(store, time.Minute, true, nil, zap.NewNop())

	svc.Invalidate(context.Background(), "skooldesk:class:*", "skooldesk:subject:*")
	require.Equal(t, []string{"skooldesk:class:*", "skooldesk:subject:*"}, store.deleted)
}
