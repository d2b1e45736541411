package quota

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memStore is an in-memory UsageStore with the same compare-and-swap contract
// as the profiles table. failCAS forces that many conditional updates to lose
// regardless of whether the stamp matches.
type memStore struct {
	mu        sync.Mutex
	records   map[string]*UsageRecord
	failCAS   int
	gets      int
	swaps     int
	afterSwap func(n int) // called under lock after each swap attempt
}

func newMemStore(recs ...*UsageRecord) *memStore {
	s := &memStore{records: make(map[string]*UsageRecord)}
	for _, r := range recs {
		cp := *r
		s.records[r.UserID] = &cp
	}
	return s
}

func (s *memStore) GetUsage(_ context.Context, userID string) (*UsageRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gets++
	rec, ok := s.records[userID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

func (s *memStore) CompareAndSwapUsage(_ context.Context, userID string, prev, next Stamp) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.swaps++
	if s.afterSwap != nil {
		defer s.afterSwap(s.swaps)
	}
	if s.failCAS > 0 {
		s.failCAS--
		return false, nil
	}
	rec, ok := s.records[userID]
	if !ok {
		return false, nil
	}
	if rec.UsageCount != prev.Count || rec.UsageDate != prev.Date {
		return false, nil
	}
	rec.UsageCount = next.Count
	rec.UsageDate = next.Date
	return true, nil
}

func (s *memStore) record(userID string) UsageRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.records[userID]
}

func fixedClock(day string) func() time.Time {
	t, err := time.Parse("2006-01-02", day)
	if err != nil {
		panic(err)
	}
	return func() time.Time { return t.Add(13 * time.Hour) }
}

const today = "2024-03-15"

func TestCheckAndConsume_FreshRecord(t *testing.T) {
	store := newMemStore(&UsageRecord{UserID: "u1", UsageCount: 0, UsageDate: today})
	gate := NewGate(store, WithClock(fixedClock(today)))

	d, err := gate.CheckAndConsume(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, Allowed, d.Outcome)
	assert.Equal(t, 9, d.Remaining)

	rec := store.record("u1")
	assert.Equal(t, 1, rec.UsageCount)
	assert.Equal(t, today, rec.UsageDate)
}

func TestCheckAndConsume_LastSlotThenDenied(t *testing.T) {
	store := newMemStore(&UsageRecord{UserID: "u1", UsageCount: 9, UsageDate: today})
	gate := NewGate(store, WithClock(fixedClock(today)))

	d, err := gate.CheckAndConsume(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, Allowed, d.Outcome)
	assert.Equal(t, 0, d.Remaining)

	d, err = gate.CheckAndConsume(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, Denied, d.Outcome)
	assert.Equal(t, 10, d.Limit)
}

func TestCheckAndConsume_MonotonicCap(t *testing.T) {
	store := newMemStore(&UsageRecord{UserID: "u1"})
	gate := NewGate(store, WithClock(fixedClock(today)))

	allowed := 0
	for i := 0; i < 25; i++ {
		d, err := gate.CheckAndConsume(context.Background(), "u1")
		require.NoError(t, err)
		if d.Outcome == Allowed {
			allowed++
		}
	}
	assert.Equal(t, 10, allowed)
}

func TestCheckAndConsume_PremiumLimit(t *testing.T) {
	// Same stored count, different tier: free is denied, premium is not.
	store := newMemStore(
		&UsageRecord{UserID: "free", UsageCount: 10, UsageDate: today},
		&UsageRecord{UserID: "prem", IsPremium: true, UsageCount: 10, UsageDate: today},
	)
	gate := NewGate(store, WithClock(fixedClock(today)))

	d, err := gate.CheckAndConsume(context.Background(), "free")
	require.NoError(t, err)
	assert.Equal(t, Denied, d.Outcome)
	assert.Equal(t, 10, d.Limit)

	d, err = gate.CheckAndConsume(context.Background(), "prem")
	require.NoError(t, err)
	assert.Equal(t, Allowed, d.Outcome)
	assert.Equal(t, 89, d.Remaining)
}

func TestCheckAndConsume_PremiumExhaustion(t *testing.T) {
	store := newMemStore(&UsageRecord{UserID: "prem", IsPremium: true, UsageCount: 99, UsageDate: today})
	gate := NewGate(store, WithClock(fixedClock(today)))

	d, err := gate.CheckAndConsume(context.Background(), "prem")
	require.NoError(t, err)
	assert.Equal(t, Allowed, d.Outcome)
	assert.Equal(t, 0, d.Remaining)

	d, err = gate.CheckAndConsume(context.Background(), "prem")
	require.NoError(t, err)
	assert.Equal(t, Denied, d.Outcome)
	assert.Equal(t, 100, d.Limit)
}

func TestCheckAndConsume_DayRollover(t *testing.T) {
	// Yesterday's exhausted count is ignored and overwritten by the grant.
	store := newMemStore(&UsageRecord{UserID: "u1", UsageCount: 10, UsageDate: "2024-03-14"})
	gate := NewGate(store, WithClock(fixedClock(today)))

	d, err := gate.CheckAndConsume(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, Allowed, d.Outcome)
	assert.Equal(t, 9, d.Remaining)

	rec := store.record("u1")
	assert.Equal(t, 1, rec.UsageCount)
	assert.Equal(t, today, rec.UsageDate)
}

func TestCheckAndConsume_FutureDateTreatedAsStale(t *testing.T) {
	// Clock skew: a future usage_date contributes nothing and is folded over.
	store := newMemStore(&UsageRecord{UserID: "u1", UsageCount: 7, UsageDate: "2024-03-20"})
	gate := NewGate(store, WithClock(fixedClock(today)))

	d, err := gate.CheckAndConsume(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, Allowed, d.Outcome)
	assert.Equal(t, 9, d.Remaining)

	rec := store.record("u1")
	assert.Equal(t, 1, rec.UsageCount)
	assert.Equal(t, today, rec.UsageDate)
}

func TestCheckAndConsume_DenialDoesNotMutate(t *testing.T) {
	store := newMemStore(&UsageRecord{UserID: "u1", UsageCount: 10, UsageDate: today})
	gate := NewGate(store, WithClock(fixedClock(today)))

	d, err := gate.CheckAndConsume(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, Denied, d.Outcome)

	rec := store.record("u1")
	assert.Equal(t, 10, rec.UsageCount)
	assert.Equal(t, today, rec.UsageDate)
	assert.Equal(t, 0, store.swaps, "denial must not attempt a write")
}

func TestCheckAndConsume_NotFound(t *testing.T) {
	store := newMemStore()
	gate := NewGate(store, WithClock(fixedClock(today)))

	d, err := gate.CheckAndConsume(context.Background(), "ghost")
	require.NoError(t, err)
	assert.Equal(t, NotFound, d.Outcome)
	assert.Equal(t, 0, store.swaps)
}

func TestCheckAndConsume_RetryWinsSecondAttempt(t *testing.T) {
	store := newMemStore(&UsageRecord{UserID: "u1", UsageCount: 3, UsageDate: today})
	store.failCAS = 1
	gate := NewGate(store, WithClock(fixedClock(today)))

	d, err := gate.CheckAndConsume(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, Allowed, d.Outcome)
	assert.Equal(t, 6, d.Remaining)
	assert.Equal(t, 2, store.swaps)
}

func TestCheckAndConsume_TransientFailureAfterRetryBudget(t *testing.T) {
	store := newMemStore(&UsageRecord{UserID: "u1", UsageCount: 3, UsageDate: today})
	store.failCAS = 2
	gate := NewGate(store, WithClock(fixedClock(today)))

	d, err := gate.CheckAndConsume(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, TransientFailure, d.Outcome)
	// Two attempts, each one read and one losing swap, plus the final
	// reclassification read.
	assert.Equal(t, 3, store.gets)
	assert.Equal(t, 2, store.swaps)
	// Nothing was consumed.
	assert.Equal(t, 3, store.record("u1").UsageCount)
}

func TestCheckAndConsume_ReclassifiesAsDeniedWhenRaceExhaustsQuota(t *testing.T) {
	// Both CAS attempts lose, and by the final read the quota is gone: the
	// gate must report Denied rather than TransientFailure.
	store := newMemStore(&UsageRecord{UserID: "u1", UsageCount: 9, UsageDate: today})
	store.failCAS = 2
	store.afterSwap = func(n int) {
		// A competing request takes the last slot after our retry loses.
		if n == 2 {
			store.records["u1"].UsageCount = 10
		}
	}
	gate := NewGate(store, WithClock(fixedClock(today)))

	d, err := gate.CheckAndConsume(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, Denied, d.Outcome)
	assert.Equal(t, 10, d.Limit)
}

func TestCheckAndConsume_ConcurrentLastSlot(t *testing.T) {
	// K concurrent requests racing for the final slot: exactly one wins.
	const k = 8
	store := newMemStore(&UsageRecord{UserID: "u1", UsageCount: 9, UsageDate: today})
	gate := NewGate(store, WithClock(fixedClock(today)))

	var wg sync.WaitGroup
	decisions := make([]Decision, k)
	for i := 0; i < k; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			d, err := gate.CheckAndConsume(context.Background(), "u1")
			assert.NoError(t, err)
			decisions[idx] = d
		}(i)
	}
	wg.Wait()

	allowed, denied := 0, 0
	for _, d := range decisions {
		switch d.Outcome {
		case Allowed:
			allowed++
			assert.Equal(t, 0, d.Remaining)
		case Denied:
			denied++
			assert.Equal(t, 10, d.Limit)
		default:
			// TransientFailure is acceptable under pathological contention;
			// it must never be a second Allowed.
		}
	}
	assert.Equal(t, 1, allowed, "exactly one racer may take the last slot")
	assert.Equal(t, 10, store.record("u1").UsageCount)
}

func TestCheckAndConsume_ConcurrentNeverOverAllows(t *testing.T) {
	// Hammer a fresh free user with more concurrent requests than the cap
	// and count the grants.
	const workers = 30
	store := newMemStore(&UsageRecord{UserID: "u1"})
	gate := NewGate(store, WithClock(fixedClock(today)))

	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d, err := gate.CheckAndConsume(context.Background(), "u1")
			assert.NoError(t, err)
			if d.Outcome == Allowed {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, allowed, 10)
	assert.LessOrEqual(t, store.record("u1").UsageCount, 10)
}

func TestGate_CustomLimits(t *testing.T) {
	store := newMemStore(&UsageRecord{UserID: "u1", UsageCount: 2, UsageDate: today})
	gate := NewGate(store, WithClock(fixedClock(today)), WithLimits(3, 5))

	d, err := gate.CheckAndConsume(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, Allowed, d.Outcome)
	assert.Equal(t, 0, d.Remaining)

	d, err = gate.CheckAndConsume(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, Denied, d.Outcome)
	assert.Equal(t, 3, d.Limit)
}

func TestEffectiveCount(t *testing.T) {
	tests := []struct {
		name string
		rec  UsageRecord
		want int
	}{
		{"matching date", UsageRecord{UsageCount: 4, UsageDate: today}, 4},
		{"stale date", UsageRecord{UsageCount: 4, UsageDate: "2024-03-01"}, 0},
		{"future date", UsageRecord{UsageCount: 4, UsageDate: "2024-04-01"}, 0},
		{"never used", UsageRecord{UsageCount: 0, UsageDate: ""}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, effectiveCount(&tt.rec, today))
		})
	}
}
