package enrollment

import (
	"context"

	"gymdesk/internal/store"
)

// MemberCreator is the directory's write path, used for step one of the
// registration transaction.
type MemberCreator interface {
	CreateMember(ctx context.Context, m store.NewMember) (*store.Member, error)
}

// PaymentRecorder is the finance write path the workflow uses for the
// initial payment.
type PaymentRecorder interface {
	RecordPayment(ctx context.Context, p store.Payment) error
}

// Service submits completed registration forms.
type Service interface {
	// Submit runs the two-step registration transaction. On success the
	// form transitions to StepSubmitted and the created member is
	// returned; the initial payment is still being written at that point.
	Submit(ctx context.Context, f *Form) (*store.Member, error)
	// Drain blocks until all in-flight payment writes have settled.
	Drain()
}
