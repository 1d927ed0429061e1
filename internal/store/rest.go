package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"gymdesk/internal/metrics"
)

// RESTStore talks to a PostgREST-compatible record store over HTTP. All
// calls run through a circuit breaker so a dead store fails fast at the
// desk instead of stalling every request.
type RESTStore struct {
	baseURL string
	apiKey  string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
	tracer  trace.Tracer
	metrics *metrics.Metrics
}

// NewRESTStore builds a REST-backed store. metrics may be nil.
func NewRESTStore(baseURL, apiKey string, m *metrics.Metrics) *RESTStore {
	return &RESTStore{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 10 * time.Second},
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "record-store",
			Timeout: 30 * time.Second,
			IsSuccessful: func(err error) bool {
				// Constraint violations are answers from a healthy
				// store, not outages.
				return err == nil || errors.Is(err, ErrDuplicateAttendance) || errors.Is(err, ErrNotFound)
			},
		}),
		tracer:  otel.Tracer("gymdesk/store"),
		metrics: m,
	}
}

func (s *RESTStore) SelectMembers(ctx context.Context) ([]Member, error) {
	var members []Member
	err := s.do(ctx, "members", "select", http.MethodGet, "/members?select=*", nil, http.StatusOK, &members)
	if err != nil {
		return nil, fmt.Errorf("select members: %w", err)
	}
	return members, nil
}

func (s *RESTStore) InsertMember(ctx context.Context, m NewMember) (*Member, error) {
	var created []Member
	err := s.do(ctx, "members", "insert", http.MethodPost, "/members", m, http.StatusCreated, &created)
	if err != nil {
		return nil, fmt.Errorf("insert member: %w", err)
	}
	if len(created) != 1 {
		return nil, fmt.Errorf("insert member: expected 1 created row, got %d", len(created))
	}
	return &created[0], nil
}

func (s *RESTStore) SelectAttendanceByDate(ctx context.Context, day Date) ([]AttendanceRecord, error) {
	path := fmt.Sprintf("/attendance?select=member_id,attendance_date&attendance_date=eq.%s", url.QueryEscape(string(day)))
	var records []AttendanceRecord
	err := s.do(ctx, "attendance", "select", http.MethodGet, path, nil, http.StatusOK, &records)
	if err != nil {
		return nil, fmt.Errorf("select attendance: %w", err)
	}
	return records, nil
}

func (s *RESTStore) InsertAttendance(ctx context.Context, rec AttendanceRecord) error {
	err := s.do(ctx, "attendance", "insert", http.MethodPost, "/attendance", rec, http.StatusCreated, nil)
	if err != nil {
		return fmt.Errorf("insert attendance: %w", err)
	}
	return nil
}

func (s *RESTStore) DeleteAttendance(ctx context.Context, memberID uuid.UUID, day Date) error {
	path := fmt.Sprintf("/attendance?member_id=eq.%s&attendance_date=eq.%s",
		memberID, url.QueryEscape(string(day)))
	err := s.do(ctx, "attendance", "delete", http.MethodDelete, path, nil, http.StatusNoContent, nil)
	if err != nil {
		return fmt.Errorf("delete attendance: %w", err)
	}
	return nil
}

func (s *RESTStore) SelectPayments(ctx context.Context) ([]Payment, error) {
	var payments []Payment
	err := s.do(ctx, "payments", "select", http.MethodGet, "/payments?select=*", nil, http.StatusOK, &payments)
	if err != nil {
		return nil, fmt.Errorf("select payments: %w", err)
	}
	return payments, nil
}

func (s *RESTStore) InsertPayment(ctx context.Context, p Payment) (*Payment, error) {
	var created []Payment
	err := s.do(ctx, "payments", "insert", http.MethodPost, "/payments", p, http.StatusCreated, &created)
	if err != nil {
		return nil, fmt.Errorf("insert payment: %w", err)
	}
	if len(created) != 1 {
		return nil, fmt.Errorf("insert payment: expected 1 created row, got %d", len(created))
	}
	return &created[0], nil
}

// do runs one store request through the breaker, tracing and timing it.
// out, when non-nil, receives the decoded JSON body.
func (s *RESTStore) do(ctx context.Context, collection, operation, method, path string, body any, wantStatus int, out any) error {
	ctx, span := s.tracer.Start(ctx, "store."+operation,
		trace.WithAttributes(
			attribute.String("store.collection", collection),
			attribute.String("http.method", method),
		))
	defer span.End()

	start := time.Now()
	_, err := s.breaker.Execute(func() (interface{}, error) {
		return nil, s.roundTrip(ctx, method, path, body, wantStatus, out)
	})
	if s.metrics != nil {
		s.metrics.StoreRequestLatency.WithLabelValues(collection, operation).Observe(time.Since(start).Seconds())
	}
	if err != nil {
		span.RecordError(err)
		return err
	}
	return nil
}

func (s *RESTStore) roundTrip(ctx context.Context, method, path string, body any, wantStatus int, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if out != nil && method != http.MethodGet {
		req.Header.Set("Prefer", "return=representation")
	}
	if s.apiKey != "" {
		req.Header.Set("apikey", s.apiKey)
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusConflict {
		return ErrDuplicateAttendance
	}
	if resp.StatusCode != wantStatus {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, detail)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}
