// Package finance computes revenue statistics from the raw payments
// collection and exposes the write path used when a new member's first
// payment is recorded.
package finance

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"gymdesk/internal/store"
)

// Aggregator caches the payment rows and the stats derived from them.
type Aggregator struct {
	store store.PaymentStore
	log   *logrus.Logger
	clock func() time.Time

	mu       sync.RWMutex
	payments []store.Payment
	stats    Stats
	loading  bool
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithClock overrides the wall clock, for tests.
func WithClock(clock func() time.Time) Option {
	return func(a *Aggregator) { a.clock = clock }
}

// New creates an aggregator over the given payment store.
func New(s store.PaymentStore, log *logrus.Logger, opts ...Option) *Aggregator {
	a := &Aggregator{
		store:   s,
		log:     log,
		clock:   time.Now,
		loading: true,
	}
	a.stats = ComputeStats(nil, a.clock())
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Load fetches all payments and recomputes the cached stats. On fetch
// failure the previous stats survive (the zero-valued stats on first load)
// and nothing is surfaced beyond the log.
func (a *Aggregator) Load(ctx context.Context) {
	payments, err := a.store.SelectPayments(ctx)

	a.mu.Lock()
	defer a.mu.Unlock()
	a.loading = false
	if err != nil {
		a.log.WithError(err).Error("failed to fetch payments")
		return
	}
	a.payments = payments
	a.stats = ComputeStats(a.payments, a.clock())
}

// Snapshot returns the cached stats and the loading flag.
func (a *Aggregator) Snapshot() (Stats, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.stats, a.loading
}

// RecordPayment persists a payment and, once confirmed, folds it into the
// cached stats.
func (a *Aggregator) RecordPayment(ctx context.Context, p store.Payment) error {
	if p.Amount < 0 {
		return fmt.Errorf("payment amount must be non-negative, got %d", p.Amount)
	}
	if p.TransactionDate == nil {
		now := a.clock()
		p.TransactionDate = &now
	}

	created, err := a.store.InsertPayment(ctx, p)
	if err != nil {
		return fmt.Errorf("failed to record payment: %w", err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.payments = append(a.payments, *created)
	a.stats = ComputeStats(a.payments, a.clock())
	return nil
}
