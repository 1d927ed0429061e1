// Package console is the HTTP surface the front-desk UI talks to. It
// exposes the read models of the directory, ledger and finance aggregator
// and the check-in / registration actions. Mutations answer with the
// success boolean the UI contract expects; read failures never surface
// here because the caches degrade to empty or stale views instead.
package console

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"gymdesk/internal/attendance"
	"gymdesk/internal/directory"
	"gymdesk/internal/enrollment"
	"gymdesk/internal/finance"
)

// Handler carries the four components behind the HTTP surface.
type Handler struct {
	directory *directory.Directory
	ledger    *attendance.Ledger
	finance   *finance.Aggregator
	enroll    enrollment.Service
	log       *logrus.Logger
}

// NewHandler wires the components into an HTTP handler.
func NewHandler(d *directory.Directory, l *attendance.Ledger, f *finance.Aggregator, e enrollment.Service, log *logrus.Logger) *Handler {
	return &Handler{directory: d, ledger: l, finance: f, enroll: e, log: log}
}

// Routes builds the chi router for the console API.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/members", h.handleMembers)
	r.Get("/members/expiring", h.handleExpiring)
	r.Get("/attendance/today", h.handleAttendanceToday)
	r.Post("/attendance/check-in", h.handleCheckIn)
	r.Delete("/attendance/check-in/{memberID}", h.handleRemoveCheckIn)
	r.Get("/finance/stats", h.handleFinanceStats)
	r.Get("/dashboard", h.handleDashboard)
	r.Post("/enrollment", h.handleEnrollment)
	return r
}

func (h *Handler) handleMembers(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")

	members, loading := h.directory.Snapshot()
	if query != "" {
		members = h.directory.Search(query)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"members": members,
		"loading": loading,
	})
}

func (h *Handler) handleExpiring(w http.ResponseWriter, r *http.Request) {
	days := 7
	if raw := r.URL.Query().Get("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			http.Error(w, "invalid days parameter", http.StatusBadRequest)
			return
		}
		days = parsed
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"members": h.directory.ExpiringWithin(days),
	})
}

func (h *Handler) handleAttendanceToday(w http.ResponseWriter, r *http.Request) {
	count, ids, loading := h.ledger.Snapshot()
	writeJSON(w, http.StatusOK, map[string]any{
		"today_count":    count,
		"checked_in_ids": ids,
		"loading":        loading,
	})
}

func (h *Handler) handleCheckIn(w http.ResponseWriter, r *http.Request) {
	var req struct {
		MemberID uuid.UUID `json:"member_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.MemberID == uuid.Nil {
		http.Error(w, "member_id is required", http.StatusBadRequest)
		return
	}

	ok := h.ledger.CheckIn(r.Context(), req.MemberID)
	status := http.StatusOK
	if !ok {
		status = http.StatusConflict
	}
	writeJSON(w, status, map[string]any{"success": ok})
}

func (h *Handler) handleRemoveCheckIn(w http.ResponseWriter, r *http.Request) {
	memberID, err := uuid.Parse(chi.URLParam(r, "memberID"))
	if err != nil {
		http.Error(w, "invalid member ID", http.StatusBadRequest)
		return
	}

	ok := h.ledger.RemoveCheckIn(r.Context(), memberID)
	status := http.StatusOK
	if !ok {
		status = http.StatusConflict
	}
	writeJSON(w, status, map[string]any{"success": ok})
}

func (h *Handler) handleFinanceStats(w http.ResponseWriter, r *http.Request) {
	stats, loading := h.finance.Snapshot()
	writeJSON(w, http.StatusOK, map[string]any{
		"stats":   stats,
		"loading": loading,
	})
}

// handleDashboard is the composed snapshot the landing screen renders:
// today's attendance, the roster by status, and the revenue totals.
func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	count, _, attendanceLoading := h.ledger.Snapshot()
	counts := h.directory.Counts()
	stats, financeLoading := h.finance.Snapshot()

	writeJSON(w, http.StatusOK, map[string]any{
		"today_count":   count,
		"status_counts": counts,
		"revenue":       stats.Revenue,
		"transactions":  stats.Transactions,
		"loading":       attendanceLoading || financeLoading,
	})
}

func (h *Handler) handleEnrollment(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FullName      string `json:"full_name"`
		Phone         string `json:"phone"`
		Category      string `json:"category"`
		Duration      string `json:"duration"`
		PaymentMethod string `json:"payment_method"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	form := enrollment.NewForm()
	form.FullName = req.FullName
	form.Phone = req.Phone
	if req.Category != "" {
		form.Category = req.Category
	}
	if req.Duration != "" {
		form.Duration = req.Duration
	}
	if req.PaymentMethod != "" {
		form.PaymentMethod = req.PaymentMethod
	}

	// Walk the form through its gates so API submissions obey the same
	// rules as the interactive flow.
	for form.Step != enrollment.StepSettlement {
		if err := form.Next(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	member, err := h.enroll.Submit(r.Context(), &form)
	if err != nil {
		h.log.WithError(err).Error("registration failed")
		writeJSON(w, http.StatusBadGateway, map[string]any{"success": false})
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"member":  member,
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
