// Package quota enforces the per-user daily AI-call quota. Handlers that are
// about to spend an AI call go through Gate.CheckAndConsume first; the gate
// atomically reserves one unit against the user's profile row or reports why
// it cannot.
package quota

import (
	"context"
	"errors"
	"time"
)

const dateLayout = "2006-01-02"

// Default daily limits per tier
const (
	DefaultFreeLimit    = 10
	DefaultPremiumLimit = 100
)

// ErrNotFound is returned by a UsageStore when no usage record exists for the
// given user. The gate never creates records; profiles are provisioned at
// registration.
var ErrNotFound = errors.New("usage record not found")

// UsageRecord is the per-user row the gate reads and conditionally updates.
// UsageDate is a UTC calendar date in YYYY-MM-DD form; it is empty when the
// user has never consumed quota.
type UsageRecord struct {
	UserID     string
	IsPremium  bool
	UsageCount int
	UsageDate  string
}

// Stamp is the (count, date) pair used as the compare-and-swap precondition.
type Stamp struct {
	Count int
	Date  string
}

// UsageStore is the record store the gate coordinates through. The
// conditional update is the only concurrency primitive the gate relies on:
// CompareAndSwapUsage must commit the new stamp only if the stored row still
// matches prev, and report whether it did.
type UsageStore interface {
	GetUsage(ctx context.Context, userID string) (*UsageRecord, error)
	CompareAndSwapUsage(ctx context.Context, userID string, prev, next Stamp) (bool, error)
}

// Outcome discriminates the gate's decision
type Outcome int

const (
	// Allowed means the call is permitted and one unit has been reserved
	Allowed Outcome = iota
	// Denied means today's quota is exhausted; no mutation happened
	Denied
	// NotFound means no usage profile exists for the user (a provisioning
	// problem upstream, distinct from denial)
	NotFound
	// TransientFailure means the conditional update kept losing races after
	// retrying; the caller must treat the call as not consumed
	TransientFailure
)

// Decision is the result of one CheckAndConsume invocation. Remaining is
// meaningful for Allowed (calls still available today after this one), Limit
// for Denied (the user's daily cap, for upgrade messaging).
type Decision struct {
	Outcome   Outcome
	Remaining int
	Limit     int
}

// Gate decides whether one more AI call is permitted today for a user and, if
// so, reserves it. It is stateless between invocations; every decision is
// derived fresh from the store.
type Gate struct {
	store        UsageStore
	freeLimit    int
	premiumLimit int
	now          func() time.Time
}

// Option configures a Gate
type Option func(*Gate)

// WithLimits overrides the default daily limits
func WithLimits(free, premium int) Option {
	return func(g *Gate) {
		g.freeLimit = free
		g.premiumLimit = premium
	}
}

// WithClock overrides the time source (used by tests)
func WithClock(now func() time.Time) Option {
	return func(g *Gate) {
		g.now = now
	}
}

// NewGate creates a quota gate backed by the given store
func NewGate(store UsageStore, opts ...Option) *Gate {
	g := &Gate{
		store:        store,
		freeLimit:    DefaultFreeLimit,
		premiumLimit: DefaultPremiumLimit,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// CheckAndConsume decides whether the user may spend one AI call today and
// atomically reserves it. Two attempts race through load + conditional
// update; if both lose, the decision is re-derived from a fresh read so the
// result is Denied when the quota genuinely ran out mid-race and
// TransientFailure otherwise. It never allows on ambiguous state.
func (g *Gate) CheckAndConsume(ctx context.Context, userID string) (Decision, error) {
	// Initial attempt plus one bounded retry.
	for attempt := 0; attempt < 2; attempt++ {
		rec, err := g.store.GetUsage(ctx, userID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return Decision{Outcome: NotFound}, nil
			}
			return Decision{}, err
		}

		today := g.today()
		limit := g.limitFor(rec)
		effective := effectiveCount(rec, today)

		if effective >= limit {
			return Decision{Outcome: Denied, Limit: limit}, nil
		}

		ok, err := g.store.CompareAndSwapUsage(ctx, userID,
			Stamp{Count: rec.UsageCount, Date: rec.UsageDate},
			Stamp{Count: effective + 1, Date: today})
		if err != nil {
			return Decision{}, err
		}
		if ok {
			return Decision{Outcome: Allowed, Remaining: limit - effective - 1, Limit: limit}, nil
		}
		// Lost the race; reload and try once more.
	}

	// Both attempts lost. Reclassify from a fresh read: a real exhaustion is
	// Denied, anything else stays ambiguous.
	rec, err := g.store.GetUsage(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Decision{Outcome: NotFound}, nil
		}
		return Decision{}, err
	}

	today := g.today()
	limit := g.limitFor(rec)
	if effectiveCount(rec, today) >= limit {
		return Decision{Outcome: Denied, Limit: limit}, nil
	}

	return Decision{Outcome: TransientFailure, Limit: limit}, nil
}

// Limits returns the configured free and premium daily caps
func (g *Gate) Limits() (free, premium int) {
	return g.freeLimit, g.premiumLimit
}

func (g *Gate) limitFor(rec *UsageRecord) int {
	if rec.IsPremium {
		return g.premiumLimit
	}
	return g.freeLimit
}

// today is always computed in UTC so the reset instant is identical for all
// users regardless of timezone.
func (g *Gate) today() string {
	return g.now().UTC().Format(dateLayout)
}

// effectiveCount is the usage count that applies today. A stored date other
// than today, including a future date from clock skew, contributes nothing;
// the stale row is folded over by the next successful grant rather than
// rewritten eagerly.
func effectiveCount(rec *UsageRecord, today string) int {
	if rec.UsageDate == today {
		return rec.UsageCount
	}
	return 0
}
