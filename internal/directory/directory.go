// Package directory holds the member roster as a read-through cache over
// the remote record store. Membership status is derived from the expiry
// date at read time; the persisted status column is ignored because it is
// only written once at creation and drifts.
package directory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"gymdesk/internal/store"
)

// Derived membership status values.
const (
	StatusActive       = "Active"
	StatusExpiringSoon = "Expiring Soon"
	StatusExpired      = "Expired"
)

// Member is a roster entry with its status derived from the clock.
type Member struct {
	store.Member
	// DaysLeft is the number of whole days until expiry; negative once
	// expired.
	DaysLeft int `json:"days_left"`
}

// StatusCounts is the roster broken down by derived status.
type StatusCounts struct {
	Active       int `json:"active"`
	ExpiringSoon int `json:"expiring_soon"`
	Expired      int `json:"expired"`
}

// Directory is the member roster cache.
type Directory struct {
	store    store.MemberStore
	log      *logrus.Logger
	clock    func() time.Time
	warnDays int

	mu      sync.RWMutex
	members []store.Member
	loading bool
}

// Option configures a Directory.
type Option func(*Directory)

// WithClock overrides the wall clock, for tests.
func WithClock(clock func() time.Time) Option {
	return func(d *Directory) { d.clock = clock }
}

// WithWarnDays sets the Expiring Soon window. Default is 7 days.
func WithWarnDays(days int) Option {
	return func(d *Directory) { d.warnDays = days }
}

// New creates a directory over the given member store.
func New(s store.MemberStore, log *logrus.Logger, opts ...Option) *Directory {
	d := &Directory{
		store:    s,
		log:      log,
		clock:    time.Now,
		warnDays: 7,
		loading:  true,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Load fetches the full roster once. A fetch failure is logged and leaves
// the cache empty; callers cannot distinguish an empty gym from a failed
// fetch, which matches the contract the UI was built against.
func (d *Directory) Load(ctx context.Context) {
	members, err := d.store.SelectMembers(ctx)

	d.mu.Lock()
	defer d.mu.Unlock()
	d.loading = false
	if err != nil {
		d.log.WithError(err).Error("failed to fetch member roster")
		d.members = nil
		return
	}
	d.members = members
}

// CreateMember is the directory's write path: it persists the member and,
// once the store confirms, folds the new row into the cached roster.
func (d *Directory) CreateMember(ctx context.Context, m store.NewMember) (*store.Member, error) {
	if m.ExpiryDate.Time().Before(m.StartDate.Time()) {
		return nil, fmt.Errorf("expiry date %s precedes start date %s", m.ExpiryDate, m.StartDate)
	}

	created, err := d.store.InsertMember(ctx, m)
	if err != nil {
		return nil, fmt.Errorf("failed to create member: %w", err)
	}

	d.mu.Lock()
	d.members = append(d.members, *created)
	d.mu.Unlock()
	return created, nil
}

// Snapshot returns the roster with derived statuses and the loading flag.
func (d *Directory) Snapshot() ([]Member, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.derive(d.members), d.loading
}

// Search filters the roster by a case-insensitive substring match on name
// or phone. An empty query returns the full roster.
func (d *Directory) Search(query string) []Member {
	members, _ := d.Snapshot()
	if query == "" {
		return members
	}
	q := strings.ToLower(query)
	var out []Member
	for _, m := range members {
		if strings.Contains(strings.ToLower(m.FullName), q) || strings.Contains(m.Phone, query) {
			out = append(out, m)
		}
	}
	return out
}

// Counts tallies the roster by derived status.
func (d *Directory) Counts() StatusCounts {
	members, _ := d.Snapshot()
	var c StatusCounts
	for _, m := range members {
		switch m.Status {
		case StatusActive:
			c.Active++
		case StatusExpiringSoon:
			c.ExpiringSoon++
		case StatusExpired:
			c.Expired++
		}
	}
	return c
}

// ExpiringWithin lists members already expired or expiring within the next
// days, soonest first.
func (d *Directory) ExpiringWithin(days int) []Member {
	members, _ := d.Snapshot()
	var out []Member
	for _, m := range members {
		if m.DaysLeft <= days {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DaysLeft < out[j].DaysLeft })
	return out
}

func (d *Directory) derive(members []store.Member) []Member {
	today := dateOnly(d.clock())
	out := make([]Member, 0, len(members))
	for _, m := range members {
		expiry := m.ExpiryDate.Time()
		daysLeft := int(expiry.Sub(today).Hours() / 24)

		derived := m
		switch {
		case daysLeft < 0:
			derived.Status = StatusExpired
		case daysLeft <= d.warnDays:
			derived.Status = StatusExpiringSoon
		default:
			derived.Status = StatusActive
		}
		out = append(out, Member{Member: derived, DaysLeft: daysLeft})
	}
	return out
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
