// Package store defines the boundary to the remote record store that owns
// the members, attendance and payments collections. Implementations speak
// a PostgREST-style HTTP protocol (rest.go), plain postgres (postgres.go)
// or hold everything in memory for tests and demos (memory.go).
package store

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Date is a calendar date in ISO 8601 form (2006-01-02), without a time
// component. Records carry dates rather than timestamps because the store
// keys attendance by day.
type Date string

// DateOf truncates t to its calendar date in t's location.
func DateOf(t time.Time) Date {
	return Date(t.Format("2006-01-02"))
}

// Time parses the date back at midnight UTC. Invalid dates yield the zero
// time.
func (d Date) Time() time.Time {
	t, err := time.Parse("2006-01-02", string(d))
	if err != nil {
		return time.Time{}
	}
	return t
}

// Value implements driver.Valuer.
func (d Date) Value() (driver.Value, error) {
	return string(d), nil
}

// Scan implements sql.Scanner. Postgres date columns arrive as time.Time.
func (d *Date) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*d = ""
	case time.Time:
		*d = DateOf(v)
	case []byte:
		*d = Date(v)
	case string:
		*d = Date(v)
	default:
		return fmt.Errorf("cannot scan %T into Date", src)
	}
	return nil
}

// Membership tier names. The store persists them verbatim.
const (
	CategoryStudent       = "Student"
	CategoryHotelResident = "Hotel Resident"
	CategoryNormal        = "Normal Membership"
	CategoryGroup         = "Group Membership"
)

// Membership term names.
const (
	DurationWeekly      = "Weekly"
	DurationMonthly     = "Monthly"
	DurationThreeMonths = "3 Months"
	DurationAnnual      = "Annual"
)

// Recognized payment methods. Anything else is kept in totals but dropped
// from the method breakdown.
const (
	MethodCash   = "Cash"
	MethodMobile = "Mobile Money"
)

// Member is a row in the members collection. Status is persisted at
// creation but derived on read by the directory; consumers should not trust
// the stored value.
type Member struct {
	ID         uuid.UUID `json:"id"`
	FullName   string    `json:"full_name"`
	Phone      string    `json:"phone,omitempty"`
	Category   string    `json:"category"`
	Duration   string    `json:"duration"`
	StartDate  Date      `json:"start_date"`
	ExpiryDate Date      `json:"expiry_date"`
	Status     string    `json:"status"`
}

// NewMember is the insert payload for the members collection. The store
// assigns the ID.
type NewMember struct {
	FullName   string `json:"full_name"`
	Phone      string `json:"phone,omitempty"`
	Category   string `json:"category"`
	Duration   string `json:"duration"`
	StartDate  Date   `json:"start_date"`
	ExpiryDate Date   `json:"expiry_date"`
	Status     string `json:"status"`
}

// AttendanceRecord is a row in the attendance collection. The store
// enforces uniqueness of (member_id, attendance_date).
type AttendanceRecord struct {
	MemberID       uuid.UUID `json:"member_id"`
	AttendanceDate Date      `json:"attendance_date"`
}

// Payment is a row in the payments collection. Amount is in minor currency
// units. TransactionDate may be absent for legacy rows.
type Payment struct {
	MemberID        uuid.UUID  `json:"member_id"`
	Amount          int64      `json:"amount"`
	PaymentMethod   string     `json:"payment_method"`
	TransactionDate *time.Time `json:"transaction_date,omitempty"`
}

// ErrDuplicateAttendance is returned when an attendance insert collides
// with an existing (member_id, attendance_date) pair.
var ErrDuplicateAttendance = errors.New("attendance record already exists for member and date")

// ErrNotFound is returned when a filtered delete matches no rows.
var ErrNotFound = errors.New("record not found")

// MemberStore covers the members collection.
type MemberStore interface {
	SelectMembers(ctx context.Context) ([]Member, error)
	InsertMember(ctx context.Context, m NewMember) (*Member, error)
}

// AttendanceStore covers the attendance collection.
type AttendanceStore interface {
	SelectAttendanceByDate(ctx context.Context, day Date) ([]AttendanceRecord, error)
	InsertAttendance(ctx context.Context, rec AttendanceRecord) error
	DeleteAttendance(ctx context.Context, memberID uuid.UUID, day Date) error
}

// PaymentStore covers the payments collection.
type PaymentStore interface {
	SelectPayments(ctx context.Context) ([]Payment, error)
	InsertPayment(ctx context.Context, p Payment) (*Payment, error)
}

// Store is the full record store surface.
type Store interface {
	MemberStore
	AttendanceStore
	PaymentStore
}
