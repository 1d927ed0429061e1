package store

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// MemoryStore holds the three collections in memory. It backs tests and
// local demo deployments, and mirrors the remote store's uniqueness
// constraint on (member_id, attendance_date) so duplicate check-ins fail
// the same way they would against the real thing.
type MemoryStore struct {
	mu         sync.Mutex
	members    []Member
	attendance map[attendanceKey]struct{}
	payments   []Payment
	nextErr    error
}

type attendanceKey struct {
	memberID uuid.UUID
	day      Date
}

// NewMemoryStore constructs an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{attendance: make(map[attendanceKey]struct{})}
}

// FailNext makes the next store call return err instead of succeeding.
// Used by tests to exercise failure policies.
func (s *MemoryStore) FailNext(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextErr = err
}

func (s *MemoryStore) takeErr() error {
	err := s.nextErr
	s.nextErr = nil
	return err
}

func (s *MemoryStore) SelectMembers(_ context.Context) ([]Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeErr(); err != nil {
		return nil, err
	}
	out := make([]Member, len(s.members))
	copy(out, s.members)
	return out, nil
}

func (s *MemoryStore) InsertMember(_ context.Context, m NewMember) (*Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeErr(); err != nil {
		return nil, err
	}
	created := Member{
		ID:         uuid.New(),
		FullName:   m.FullName,
		Phone:      m.Phone,
		Category:   m.Category,
		Duration:   m.Duration,
		StartDate:  m.StartDate,
		ExpiryDate: m.ExpiryDate,
		Status:     m.Status,
	}
	s.members = append(s.members, created)
	return &created, nil
}

func (s *MemoryStore) SelectAttendanceByDate(_ context.Context, day Date) ([]AttendanceRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeErr(); err != nil {
		return nil, err
	}
	var out []AttendanceRecord
	for key := range s.attendance {
		if key.day == day {
			out = append(out, AttendanceRecord{MemberID: key.memberID, AttendanceDate: key.day})
		}
	}
	return out, nil
}

func (s *MemoryStore) InsertAttendance(_ context.Context, rec AttendanceRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeErr(); err != nil {
		return err
	}
	key := attendanceKey{memberID: rec.MemberID, day: rec.AttendanceDate}
	if _, exists := s.attendance[key]; exists {
		return ErrDuplicateAttendance
	}
	s.attendance[key] = struct{}{}
	return nil
}

func (s *MemoryStore) DeleteAttendance(_ context.Context, memberID uuid.UUID, day Date) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeErr(); err != nil {
		return err
	}
	key := attendanceKey{memberID: memberID, day: day}
	if _, exists := s.attendance[key]; !exists {
		return ErrNotFound
	}
	delete(s.attendance, key)
	return nil
}

func (s *MemoryStore) SelectPayments(_ context.Context) ([]Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeErr(); err != nil {
		return nil, err
	}
	out := make([]Payment, len(s.payments))
	copy(out, s.payments)
	return out, nil
}

func (s *MemoryStore) InsertPayment(_ context.Context, p Payment) (*Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeErr(); err != nil {
		return nil, err
	}
	s.payments = append(s.payments, p)
	created := p
	return &created, nil
}
