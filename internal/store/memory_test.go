// internal/store/memory_test.go
package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClockedStore() (*MemoryStore, *time.Time) {
	st := NewMemoryStore()
	now := time.Unix(1700000000, 0)
	st.Now = func() time.Time { return now }
	return st, &now
}

func TestMemoryStoreGetSet(t *testing.T) {
	st, _ := newClockedStore()
	ctx := context.Background()

	_, ok, err := st.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, st.Set(ctx, "k", "v", 0))
	val, ok, err := st.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "v", val)
}

func TestMemoryStoreTTLExpiry(t *testing.T) {
	st, now := newClockedStore()
	ctx := context.Background()

	require.NoError(t, st.Set(ctx, "k", "v", 10*time.Second))

	*now = now.Add(9 * time.Second)
	ok, err := st.Exists(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)

	*now = now.Add(2 * time.Second)
	ok, err = st.Exists(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok, "key should expire with its TTL")
}

func TestTryAcquireIsExclusive(t *testing.T) {
	st, now := newClockedStore()
	ctx := context.Background()

	ok, err := st.TryAcquire(ctx, "lock", 10*time.Second)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = st.TryAcquire(ctx, "lock", 10*time.Second)
	require.NoError(t, err)
	assert.False(t, ok, "second acquire must fail while the lock lives")

	// Expiry releases the lock; that is the crash-recovery path.
	*now = now.Add(11 * time.Second)
	ok, err = st.TryAcquire(ctx, "lock", 10*time.Second)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestTryAcquireConcurrent(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()

	const racers = 32
	var wg sync.WaitGroup
	results := make(chan bool, racers)
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := st.TryAcquire(ctx, "lock", time.Minute)
			assert.NoError(t, err)
			results <- ok
		}()
	}
	wg.Wait()
	close(results)

	wins := 0
	for ok := range results {
		if ok {
			wins++
		}
	}
	assert.Equal(t, 1, wins)
}

func TestScanKeys(t *testing.T) {
	st, _ := newClockedStore()
	ctx := context.Background()

	require.NoError(t, st.Set(ctx, "lobby:ABCD", "x", 0))
	require.NoError(t, st.Set(ctx, "lobby:ABCD:lock:start", "1", 0))
	require.NoError(t, st.Set(ctx, "lobby:ABCD:events", "[]", 0))
	require.NoError(t, st.Set(ctx, "player:ABCD:p1:heartbeat", "0", 0))

	keys, err := st.ScanKeys(ctx, "lobby:ABCD:*")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"lobby:ABCD:lock:start", "lobby:ABCD:events"}, keys)

	keys, err = st.ScanKeys(ctx, "player:ABCD:*")
	require.NoError(t, err)
	assert.Equal(t, []string{"player:ABCD:p1:heartbeat"}, keys)
}

func TestDelCountsExisting(t *testing.T) {
	st, _ := newClockedStore()
	ctx := context.Background()

	require.NoError(t, st.Set(ctx, "a", "1", 0))
	require.NoError(t, st.Set(ctx, "b", "2", 0))

	n, err := st.Del(ctx, "a", "b", "c")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestClosedStoreErrors(t *testing.T) {
	st, _ := newClockedStore()
	require.NoError(t, st.Close())

	_, _, err := st.Get(context.Background(), "k")
	assert.ErrorIs(t, err, ErrClosed)
}
