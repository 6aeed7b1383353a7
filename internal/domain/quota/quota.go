// Package quota tracks per-player daily refresh budgets.
//
// The quota is deliberately per-player, not per-group: a player enrolled
// in several groups still spends one global daily budget, since every
// refresh hits the same upstream per-player endpoint. Dates compare as
// calendar-day strings, so a refresh just before and just after local
// midnight count against different days.
package quota

import (
	"context"
	"time"
)

// defaultDailyLimit is the number of refreshes a player may trigger per
// calendar date.
const defaultDailyLimit = 2

// DateLayout formats a time.Time into the calendar-day key used by the
// counter store.
const DateLayout = "2006-01-02"

// CounterStore persists (player, date) counters. Counters must survive
// process restarts.
type CounterStore interface {
	// Count returns the current counter, 0 if absent.
	Count(ctx context.Context, playerID, date string) (int, error)

	// Increment adds one to the counter, creating it at 1 if absent.
	Increment(ctx context.Context, playerID, date string) error

	// Clear removes the counter. Clearing an absent counter is a no-op.
	Clear(ctx context.Context, playerID, date string) error
}

// Option applies a configuration option to the Tracker.
type Option func(*Tracker)

// WithDailyLimit overrides the per-day refresh budget.
func WithDailyLimit(n int) Option {
	return func(t *Tracker) {
		if n > 0 {
			t.dailyLimit = n
		}
	}
}

// Tracker limits how many refreshes a player may trigger per calendar
// day. Allow followed by RecordUse is one logical check-then-increment
// unit; two refreshes for the same player racing past the check may
// overspend by at most one, which is accepted rather than locked
// against.
type Tracker struct {
	store      CounterStore
	dailyLimit int
}

// New creates a Tracker over the given counter store.
func New(store CounterStore, opts ...Option) *Tracker {
	t := &Tracker{
		store:      store,
		dailyLimit: defaultDailyLimit,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// DateKey returns the calendar-day key for t.
func DateKey(t time.Time) string {
	return t.Format(DateLayout)
}

// Allow reports whether the player still has budget on the given date.
func (t *Tracker) Allow(ctx context.Context, playerID, date string) (bool, error) {
	n, err := t.store.Count(ctx, playerID, date)
	if err != nil {
		return false, err
	}
	return n < t.dailyLimit, nil
}

// RecordUse spends one unit of the player's budget for the date.
// Incrementing past the limit does not corrupt the counter; the count
// simply grows and stays denied.
func (t *Tracker) RecordUse(ctx context.Context, playerID, date string) error {
	return t.store.Increment(ctx, playerID, date)
}

// Reset clears the counter for the (player, date) pair unconditionally.
// Used by operator overrides; idempotent.
func (t *Tracker) Reset(ctx context.Context, playerID, date string) error {
	return t.store.Clear(ctx, playerID, date)
}

// Remaining returns how much budget the player has left on the date,
// never below zero.
func (t *Tracker) Remaining(ctx context.Context, playerID, date string) (int, error) {
	n, err := t.store.Count(ctx, playerID, date)
	if err != nil {
		return 0, err
	}
	if n >= t.dailyLimit {
		return 0, nil
	}
	return t.dailyLimit - n, nil
}
