// Package attendance tracks which members are checked in today. Local
// state is patched only after the remote write is confirmed, so no
// rollback path exists: a failed write leaves the ledger untouched and the
// caller sees false.
package attendance

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"gymdesk/internal/metrics"
	"gymdesk/internal/store"
)

// Ledger holds today's check-in state.
type Ledger struct {
	store   store.AttendanceStore
	log     *logrus.Logger
	clock   func() time.Time
	metrics *metrics.Metrics

	mu         sync.Mutex
	todayCount int
	checkedIn  map[uuid.UUID]struct{}
	inFlight   map[uuid.UUID]struct{}
	loading    bool
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithClock overrides the wall clock, for tests.
func WithClock(clock func() time.Time) Option {
	return func(l *Ledger) { l.clock = clock }
}

// WithMetrics attaches prometheus metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(l *Ledger) { l.metrics = m }
}

// New creates a ledger over the given attendance store.
func New(s store.AttendanceStore, log *logrus.Logger, opts ...Option) *Ledger {
	l := &Ledger{
		store:     s,
		log:       log,
		clock:     time.Now,
		checkedIn: make(map[uuid.UUID]struct{}),
		inFlight:  make(map[uuid.UUID]struct{}),
		loading:   true,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Ledger) today() store.Date {
	return store.DateOf(l.clock())
}

// Load fetches today's attendance records. Today is computed from the
// local clock, not the store's. A fetch failure is logged and leaves the
// ledger empty.
func (l *Ledger) Load(ctx context.Context) {
	records, err := l.store.SelectAttendanceByDate(ctx, l.today())

	l.mu.Lock()
	defer l.mu.Unlock()
	l.loading = false
	if err != nil {
		l.log.WithError(err).Error("failed to fetch today's attendance")
		return
	}
	l.checkedIn = make(map[uuid.UUID]struct{}, len(records))
	for _, rec := range records {
		l.checkedIn[rec.MemberID] = struct{}{}
	}
	l.todayCount = len(l.checkedIn)
	l.gauge()
}

// CheckIn records the member as present today. The remote insert happens
// first; local state changes only on confirmation. A second call for the
// same member while the first is unresolved is rejected immediately rather
// than racing the store's uniqueness constraint.
func (l *Ledger) CheckIn(ctx context.Context, memberID uuid.UUID) bool {
	if !l.begin(memberID) {
		l.countFailure()
		return false
	}
	err := l.store.InsertAttendance(ctx, store.AttendanceRecord{
		MemberID:       memberID,
		AttendanceDate: l.today(),
	})
	l.end(memberID)

	if err != nil {
		l.log.WithError(err).WithField("member_id", memberID).Warn("check-in rejected")
		l.countFailure()
		return false
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, present := l.checkedIn[memberID]; !present {
		l.checkedIn[memberID] = struct{}{}
		l.todayCount++
	}
	l.gauge()
	if l.metrics != nil {
		l.metrics.CheckIns.Inc()
	}
	return true
}

// RemoveCheckIn undoes today's check-in for the member. Same contract as
// CheckIn: confirmed remote delete first, then the local patch.
func (l *Ledger) RemoveCheckIn(ctx context.Context, memberID uuid.UUID) bool {
	if !l.begin(memberID) {
		return false
	}
	err := l.store.DeleteAttendance(ctx, memberID, l.today())
	l.end(memberID)

	if err != nil {
		l.log.WithError(err).WithField("member_id", memberID).Warn("check-in removal failed")
		return false
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, present := l.checkedIn[memberID]; present {
		delete(l.checkedIn, memberID)
		if l.todayCount > 0 {
			l.todayCount--
		}
	}
	l.gauge()
	if l.metrics != nil {
		l.metrics.CheckOuts.Inc()
	}
	return true
}

// Snapshot returns today's count, the checked-in member ids and the
// loading flag.
func (l *Ledger) Snapshot() (int, []uuid.UUID, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	ids := make([]uuid.UUID, 0, len(l.checkedIn))
	for id := range l.checkedIn {
		ids = append(ids, id)
	}
	return l.todayCount, ids, l.loading
}

// IsCheckedIn reports whether the member is checked in today.
func (l *Ledger) IsCheckedIn(memberID uuid.UUID) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, present := l.checkedIn[memberID]
	return present
}

// begin claims the in-flight slot for the member. It returns false when a
// previous call for the same member has not resolved yet.
func (l *Ledger) begin(memberID uuid.UUID) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, busy := l.inFlight[memberID]; busy {
		return false
	}
	l.inFlight[memberID] = struct{}{}
	return true
}

func (l *Ledger) end(memberID uuid.UUID) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.inFlight, memberID)
}

func (l *Ledger) countFailure() {
	if l.metrics != nil {
		l.metrics.CheckInFailures.Inc()
	}
}

// gauge mirrors todayCount into the attendance gauge. Caller holds l.mu.
func (l *Ledger) gauge() {
	if l.metrics != nil {
		l.metrics.TodayAttendance.Set(float64(l.todayCount))
	}
}
