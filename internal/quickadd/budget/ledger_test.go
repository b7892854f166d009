package budget

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/giftlist/quickadd/internal/shared/models"
)

// fakeStore applies AddUsage increments under a lock, matching the atomic
// upsert contract of the real store
type fakeStore struct {
	mu      sync.Mutex
	records map[string]*models.UsageRecord
	err     error
}

func newFakeStore() *fakeStore {
	return &fakeStore{records: make(map[string]*models.UsageRecord)}
}

func storeKey(userID, monthKey string) string {
	return userID + "|" + monthKey
}

func (f *fakeStore) GetUsage(ctx context.Context, userID, monthKey string) (*models.UsageRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[storeKey(userID, monthKey)]
	if !ok {
		return nil, nil
	}
	cp := *rec
	return &cp, nil
}

func (f *fakeStore) AddUsage(ctx context.Context, userID, monthKey string, tokens, costCents int) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[storeKey(userID, monthKey)]
	if !ok {
		f.records[storeKey(userID, monthKey)] = &models.UsageRecord{
			UserID:       userID,
			MonthKey:     monthKey,
			TokensUsed:   tokens,
			CostCents:    costCents,
			RequestCount: 1,
		}
		return nil
	}
	rec.TokensUsed += tokens
	rec.CostCents += costCents
	rec.RequestCount++
	return nil
}

func TestMonthKey(t *testing.T) {
	at := time.Date(2026, time.August, 28, 23, 59, 0, 0, time.UTC)
	assert.Equal(t, "2026-08", MonthKey(at))
}

func TestIsWithinBudget(t *testing.T) {
	store := newFakeStore()
	ledger := NewLedger(store, 1000)
	ctx := context.Background()

	// No usage record yet means zero spend
	assert.True(t, ledger.IsWithinBudget(ctx, "user-1"))

	// One cent below the ceiling
	ledger.RecordUsage(ctx, "user-1", 5000, 999)
	assert.True(t, ledger.IsWithinBudget(ctx, "user-1"))

	// At the ceiling
	ledger.RecordUsage(ctx, "user-1", 10, 1)
	assert.False(t, ledger.IsWithinBudget(ctx, "user-1"))
}

func TestIsWithinBudgetFailsClosed(t *testing.T) {
	store := newFakeStore()
	store.err = errors.New("connection refused")
	ledger := NewLedger(store, 1000)

	assert.False(t, ledger.IsWithinBudget(context.Background(), "user-1"))
}

func TestRecordUsageConcurrent(t *testing.T) {
	store := newFakeStore()
	ledger := NewLedger(store, 1000)
	ctx := context.Background()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		ledger.RecordUsage(ctx, "user-1", 800, 3)
	}()
	go func() {
		defer wg.Done()
		ledger.RecordUsage(ctx, "user-1", 600, 2)
	}()
	wg.Wait()

	rec, err := store.GetUsage(ctx, "user-1", MonthKey(time.Now()))
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, 5, rec.CostCents)
	assert.Equal(t, 1400, rec.TokensUsed)
	assert.Equal(t, 2, rec.RequestCount)
}

func TestRecordUsageSwallowsErrors(t *testing.T) {
	store := newFakeStore()
	store.err = errors.New("connection refused")
	ledger := NewLedger(store, 1000)

	// Must not panic or surface the error
	ledger.RecordUsage(context.Background(), "user-1", 800, 3)
}

func TestSnapshot(t *testing.T) {
	store := newFakeStore()
	ledger := NewLedger(store, 1000)
	ctx := context.Background()

	// 10 requests at 50 cents each
	for i := 0; i < 10; i++ {
		ledger.RecordUsage(ctx, "user-1", 1000, 50)
	}

	snap, err := ledger.Snapshot(ctx, "user-1")
	require.NoError(t, err)

	assert.Equal(t, 500, snap.RemainingCents)
	assert.Equal(t, 1000, snap.TotalCents)
	assert.Equal(t, 50, snap.PercentUsed)
	// Observed average is 50 cents per request
	assert.Equal(t, 10, snap.EstimatedRequestsRemaining)
}

func TestSnapshotNoHistoryUsesFallbackEstimate(t *testing.T) {
	store := newFakeStore()
	ledger := NewLedger(store, 1000)

	snap, err := ledger.Snapshot(context.Background(), "user-1")
	require.NoError(t, err)

	assert.Equal(t, 1000, snap.RemainingCents)
	assert.Equal(t, 0, snap.PercentUsed)
	assert.Equal(t, int(math.Floor(1000/EstimatedCostPerRequestCents)), snap.EstimatedRequestsRemaining)
	assert.Equal(t, snap.EstimatedRequestsRemaining, snap.EstimatedTotalRequests)
}

func TestSnapshotOverageIsNotClamped(t *testing.T) {
	store := newFakeStore()
	ledger := NewLedger(store, 1000)
	ctx := context.Background()

	ledger.RecordUsage(ctx, "user-1", 50000, 1200)

	snap, err := ledger.Snapshot(ctx, "user-1")
	require.NoError(t, err)

	assert.Equal(t, 0, snap.RemainingCents)
	assert.Equal(t, 120, snap.PercentUsed)
	assert.Equal(t, 0, snap.EstimatedRequestsRemaining)
}
