package enrollment

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"gymdesk/internal/metrics"
	"gymdesk/internal/store"
)

// expiryPlaceholder is the membership length written at registration
// regardless of the selected duration. Inherited behavior; see DESIGN.md
// for why it is preserved rather than derived from the term.
const expiryPlaceholder = 30 * 24 * time.Hour

// service implements the Service interface.
type service struct {
	members  MemberCreator
	payments PaymentRecorder
	log      *logrus.Logger
	clock    func() time.Time
	limiter  *rate.Limiter
	metrics  *metrics.Metrics
	wg       sync.WaitGroup
}

// Option configures the enrollment service.
type Option func(*service)

// WithClock overrides the wall clock, for tests.
func WithClock(clock func() time.Time) Option {
	return func(s *service) { s.clock = clock }
}

// WithMetrics attaches prometheus metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *service) { s.metrics = m }
}

// WithRateLimit overrides the submission rate limiter.
func WithRateLimit(l *rate.Limiter) Option {
	return func(s *service) { s.limiter = l }
}

// NewService creates the registration workflow service.
func NewService(members MemberCreator, payments PaymentRecorder, log *logrus.Logger, opts ...Option) Service {
	s := &service{
		members:  members,
		payments: payments,
		log:      log,
		clock:    time.Now,
		limiter:  rate.NewLimiter(rate.Every(time.Second), 10),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit inserts the member and, once that is confirmed, transitions the
// form to StepSubmitted and kicks off the payment insert in the
// background. The caller does not wait for the payment: the desk moves on
// as soon as the member exists. A failed payment leaves the member behind
// with no payment row; that is logged and counted but not compensated.
func (s *service) Submit(ctx context.Context, f *Form) (*store.Member, error) {
	if f.Step != StepSettlement {
		return nil, fmt.Errorf("form is at step %s, submission requires settlement", f.Step)
	}
	if f.PaymentMethod != store.MethodCash && f.PaymentMethod != store.MethodMobile {
		return nil, fmt.Errorf("unknown payment method %q", f.PaymentMethod)
	}
	if !s.limiter.Allow() {
		return nil, fmt.Errorf("rate limit exceeded")
	}

	price, err := Quote(f.Category, f.Duration)
	if err != nil {
		return nil, err
	}

	now := s.clock()
	member, err := s.members.CreateMember(ctx, store.NewMember{
		FullName:   f.FullName,
		Phone:      f.Phone,
		Category:   f.Category,
		Duration:   f.Duration,
		StartDate:  store.DateOf(now),
		ExpiryDate: store.DateOf(now.Add(expiryPlaceholder)),
		Status:     "Active",
	})
	if err != nil {
		if s.metrics != nil {
			s.metrics.EnrollmentFailures.Inc()
		}
		return nil, err
	}

	f.Step = StepSubmitted
	if s.metrics != nil {
		s.metrics.Enrollments.Inc()
	}
	s.log.WithFields(logrus.Fields{
		"member_id": member.ID,
		"category":  f.Category,
		"duration":  f.Duration,
	}).Info("member registered")

	payment := store.Payment{
		MemberID:        member.ID,
		Amount:          price,
		PaymentMethod:   f.PaymentMethod,
		TransactionDate: &now,
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		// The payment outlives the request that spawned it.
		if err := s.payments.RecordPayment(context.WithoutCancel(ctx), payment); err != nil {
			s.log.WithError(err).WithField("member_id", member.ID).
				Error("initial payment failed after member creation; member has no payment row")
			if s.metrics != nil {
				s.metrics.OrphanedEnrollments.Inc()
			}
		}
	}()

	return member, nil
}

// Drain waits for in-flight payment writes. Called at shutdown.
func (s *service) Drain() {
	s.wg.Wait()
}
