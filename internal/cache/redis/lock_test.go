package redis

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/rustyeddy/tradejournal/ledger"
)

func setupRedis(t *testing.T) *Client {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping redis integration test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err, "failed to start redis container")
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	addr, err := container.Endpoint(ctx, "")
	require.NoError(t, err)

	c, err := New(ctx, ClientConfig{Addr: addr})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestLockManager_AcquireRelease(t *testing.T) {
	c := setupRedis(t)
	lm := NewLockManager(c)
	lm.MaxWait = 0
	ctx := context.Background()

	unlock, err := lm.Acquire(ctx, "position:A", time.Minute)
	require.NoError(t, err)

	_, err = lm.Acquire(ctx, "position:A", time.Minute)
	assert.ErrorIs(t, err, ErrLockHeld)

	other, err := lm.Acquire(ctx, "position:B", time.Minute)
	require.NoError(t, err, "locks are per key")
	other()

	unlock()
	unlock()

	again, err := lm.Acquire(ctx, "position:A", time.Minute)
	require.NoError(t, err)
	again()
}

func TestLockManager_StaleUnlockKeepsNewHolder(t *testing.T) {
	c := setupRedis(t)
	lm := NewLockManager(c)
	lm.MaxWait = 0
	ctx := context.Background()

	first, err := lm.Acquire(ctx, "k", 100*time.Millisecond)
	require.NoError(t, err)
	time.Sleep(200 * time.Millisecond)

	second, err := lm.Acquire(ctx, "k", time.Minute)
	require.NoError(t, err, "expired lock can be taken")
	defer second()

	first()
	_, err = lm.Acquire(ctx, "k", time.Minute)
	assert.ErrorIs(t, err, ErrLockHeld, "first holder's unlock must not release the second")
}

func TestLockManager_WaitsForRelease(t *testing.T) {
	c := setupRedis(t)
	lm := NewLockManager(c)
	lm.RetryInterval = 10 * time.Millisecond
	lm.MaxWait = 2 * time.Second
	ctx := context.Background()

	unlock, err := lm.Acquire(ctx, "k", time.Minute)
	require.NoError(t, err)
	time.AfterFunc(100*time.Millisecond, unlock)

	start := time.Now()
	next, err := lm.Acquire(ctx, "k", time.Minute)
	require.NoError(t, err)
	next()
	assert.GreaterOrEqual(t, time.Since(start), 100*time.Millisecond)
}

func TestLockManager_ContextCancelled(t *testing.T) {
	c := setupRedis(t)
	lm := NewLockManager(c)
	lm.RetryInterval = 10 * time.Millisecond

	unlock, err := lm.Acquire(context.Background(), "k", time.Minute)
	require.NoError(t, err)
	defer unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = lm.Acquire(ctx, "k", time.Minute)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

// Two ledgers sharing a store stand in for two processes.
func TestLockManager_SerializesLedgerExits(t *testing.T) {
	c := setupRedis(t)
	lm := NewLockManager(c)
	lm.RetryInterval = 5 * time.Millisecond
	ctx := context.Background()

	store := ledger.NewMemoryStore()
	a := ledger.New(ledger.WithStore(store), ledger.WithLocker(lm, 5*time.Second))
	b := ledger.New(ledger.WithStore(store), ledger.WithLocker(lm, 5*time.Second))

	p, err := a.Open(ctx, ledger.OpenRequest{
		AssetClass: ledger.Stock, Symbol: "AAPL", Direction: ledger.Long,
		EntryPrice: decimal.NewFromInt(100), Quantity: 20,
	})
	require.NoError(t, err)
	require.NoError(t, b.Load(ctx))

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		filled int64
	)
	for i := 0; i < 30; i++ {
		l := a
		if i%2 == 1 {
			l = b
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := l.ApplyExit(ctx, p.ID, ledger.ExitRequest{Quantity: 1, Price: decimal.NewFromInt(101)})
			if err == nil {
				mu.Lock()
				filled++
				mu.Unlock()
				return
			}
			assert.ErrorIs(t, err, ledger.ErrPositionAlreadyClosed)
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(20), filled)
	got, err := store.LoadPosition(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), got.RemainingQuantity)
	assert.Len(t, got.Exits, 20)
	assert.True(t, decimal.NewFromInt(20).Equal(got.TotalRealizedPnL))
}
