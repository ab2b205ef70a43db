package redis

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/Gobusters/ectologger/zapadapter"
	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Ramsey-B/bramble/pkg/models"
)

func getTestLogger() ectologger.Logger {
	return zapadapter.NewZapEctoLogger(zap.NewNop(), nil)
}

func newTestClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client, err := NewClient(context.Background(), Config{Host: mr.Host(), Port: mustPort(t, mr)}, getTestLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client, mr
}

func mustPort(t *testing.T, mr *miniredis.Miniredis) int {
	t.Helper()
	port, err := strconv.Atoi(mr.Port())
	require.NoError(t, err)
	return port
}

func TestNewClient_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	port := mustPort(t, mr)
	mr.Close()

	_, err := NewClient(context.Background(), Config{Host: "127.0.0.1", Port: port}, getTestLogger())
	assert.Error(t, err)
}

func TestVisitedSet_Add(t *testing.T) {
	client, mr := newTestClient(t)
	ctx := context.Background()
	visited := NewVisitedSet(client, "run-1", time.Hour)
	item := models.CrawlFrontierItem{ResourceType: "game", ExternalID: 7}

	added, err := visited.Add(ctx, item)
	require.NoError(t, err)
	assert.True(t, added)

	added, err = visited.Add(ctx, item)
	require.NoError(t, err)
	assert.False(t, added)

	added, err = visited.Add(ctx, models.CrawlFrontierItem{ResourceType: "company", ExternalID: 7})
	require.NoError(t, err)
	assert.True(t, added)

	n, err := visited.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	assert.True(t, mr.Exists("bramble:crawl:run-1:visited"))
	assert.Equal(t, time.Hour, mr.TTL("bramble:crawl:run-1:visited"))
}

func TestVisitedSet_RunsAreIsolated(t *testing.T) {
	client, _ := newTestClient(t)
	ctx := context.Background()
	item := models.CrawlFrontierItem{ResourceType: "game", ExternalID: 1}

	added, err := NewVisitedSet(client, "a", 0).Add(ctx, item)
	require.NoError(t, err)
	assert.True(t, added)

	added, err = NewVisitedSet(client, "b", 0).Add(ctx, item)
	require.NoError(t, err)
	assert.True(t, added)
}

func TestVisitedSet_ConcurrentAddsAdmitOne(t *testing.T) {
	client, _ := newTestClient(t)
	visited := NewVisitedSet(client, "run", 0)
	item := models.CrawlFrontierItem{ResourceType: "person", ExternalID: 99}

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			added, err := visited.Add(context.Background(), item)
			assert.NoError(t, err)
			if added {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins.Load())
}

func TestLocker(t *testing.T) {
	client, mr := newTestClient(t)
	ctx := context.Background()
	locker := NewLocker(client, "")

	release, err := locker.Acquire(ctx, "export:game", time.Minute)
	require.NoError(t, err)
	assert.True(t, mr.Exists("bramble:lock:export:game"))

	_, err = locker.Acquire(ctx, "export:game", time.Minute)
	assert.ErrorIs(t, err, ErrLockNotAcquired)

	require.NoError(t, release(ctx))
	assert.False(t, mr.Exists("bramble:lock:export:game"))
	assert.ErrorIs(t, release(ctx), ErrLockNotHeld)

	release, err = locker.Acquire(ctx, "export:game", time.Minute)
	require.NoError(t, err)
	require.NoError(t, release(ctx))
}

func TestLocker_ExpiredLockCannotBeReleasedByOldHolder(t *testing.T) {
	client, mr := newTestClient(t)
	ctx := context.Background()
	locker := NewLocker(client, "")

	stale, err := locker.Acquire(ctx, "export:company", time.Second)
	require.NoError(t, err)
	mr.FastForward(2 * time.Second)

	fresh, err := locker.Acquire(ctx, "export:company", time.Minute)
	require.NoError(t, err)

	assert.ErrorIs(t, stale(ctx), ErrLockNotHeld)
	assert.True(t, mr.Exists("bramble:lock:export:company"))
	require.NoError(t, fresh(ctx))
}

func TestRateLimiter_Allow(t *testing.T) {
	client, _ := newTestClient(t)
	ctx := context.Background()
	limiter := NewRateLimiter(client, "", 2, time.Minute)

	first, err := limiter.Allow(ctx, "games")
	require.NoError(t, err)
	assert.True(t, first.Allowed)
	assert.Equal(t, int64(1), first.Remaining)

	second, err := limiter.Allow(ctx, "games")
	require.NoError(t, err)
	assert.True(t, second.Allowed)
	assert.Equal(t, int64(0), second.Remaining)

	third, err := limiter.Allow(ctx, "games")
	require.NoError(t, err)
	assert.False(t, third.Allowed)
	assert.Greater(t, third.RetryIn, 50*time.Second)

	other, err := limiter.Allow(ctx, "companies")
	require.NoError(t, err)
	assert.True(t, other.Allowed, "keys are limited independently")
}

func TestRateLimiter_Wait(t *testing.T) {
	client, _ := newTestClient(t)
	limiter := NewRateLimiter(client, "", 1, 200*time.Millisecond)

	require.NoError(t, limiter.Wait(context.Background(), "game"))

	start := time.Now()
	require.NoError(t, limiter.Wait(context.Background(), "game"))
	assert.GreaterOrEqual(t, time.Since(start), 100*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, limiter.Wait(ctx, "game"), context.DeadlineExceeded)
}
