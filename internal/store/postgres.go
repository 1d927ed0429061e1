package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// PostgresStore backs the three collections with a plain postgres
// database for self-hosted deployments.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore wraps an open database handle.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) SelectMembers(ctx context.Context) ([]Member, error) {
	query := `
		SELECT id, full_name, COALESCE(phone, ''), category, duration, start_date, expiry_date, status
		FROM members
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("select members: %w", err)
	}
	defer rows.Close()

	var members []Member
	for rows.Next() {
		var m Member
		if err := rows.Scan(&m.ID, &m.FullName, &m.Phone, &m.Category, &m.Duration, &m.StartDate, &m.ExpiryDate, &m.Status); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

func (s *PostgresStore) InsertMember(ctx context.Context, m NewMember) (*Member, error) {
	query := `
		INSERT INTO members (id, full_name, phone, category, duration, start_date, expiry_date, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
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
	_, err := s.db.ExecContext(ctx, query,
		created.ID, created.FullName, created.Phone, created.Category, created.Duration,
		created.StartDate, created.ExpiryDate, created.Status)
	if err != nil {
		return nil, fmt.Errorf("insert member: %w", err)
	}
	return &created, nil
}

func (s *PostgresStore) SelectAttendanceByDate(ctx context.Context, day Date) ([]AttendanceRecord, error) {
	query := `
		SELECT member_id, attendance_date
		FROM attendance
		WHERE attendance_date = $1
	`
	rows, err := s.db.QueryContext(ctx, query, day)
	if err != nil {
		return nil, fmt.Errorf("select attendance: %w", err)
	}
	defer rows.Close()

	var records []AttendanceRecord
	for rows.Next() {
		var rec AttendanceRecord
		if err := rows.Scan(&rec.MemberID, &rec.AttendanceDate); err != nil {
			return nil, fmt.Errorf("scan attendance record: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (s *PostgresStore) InsertAttendance(ctx context.Context, rec AttendanceRecord) error {
	query := `
		INSERT INTO attendance (member_id, attendance_date)
		VALUES ($1, $2)
	`
	_, err := s.db.ExecContext(ctx, query, rec.MemberID, rec.AttendanceDate)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrDuplicateAttendance
		}
		return fmt.Errorf("insert attendance: %w", err)
	}
	return nil
}

func (s *PostgresStore) DeleteAttendance(ctx context.Context, memberID uuid.UUID, day Date) error {
	query := `
		DELETE FROM attendance
		WHERE member_id = $1 AND attendance_date = $2
	`
	res, err := s.db.ExecContext(ctx, query, memberID, day)
	if err != nil {
		return fmt.Errorf("delete attendance: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete attendance: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) SelectPayments(ctx context.Context) ([]Payment, error) {
	query := `
		SELECT member_id, amount, payment_method, transaction_date
		FROM payments
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("select payments: %w", err)
	}
	defer rows.Close()

	var payments []Payment
	for rows.Next() {
		var p Payment
		if err := rows.Scan(&p.MemberID, &p.Amount, &p.PaymentMethod, &p.TransactionDate); err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

func (s *PostgresStore) InsertPayment(ctx context.Context, p Payment) (*Payment, error) {
	query := `
		INSERT INTO payments (member_id, amount, payment_method, transaction_date)
		VALUES ($1, $2, $3, COALESCE($4, NOW()))
	`
	_, err := s.db.ExecContext(ctx, query, p.MemberID, p.Amount, p.PaymentMethod, p.TransactionDate)
	if err != nil {
		return nil, fmt.Errorf("insert payment: %w", err)
	}
	created := p
	return &created, nil
}
