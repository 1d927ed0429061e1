package console

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gymdesk/internal/attendance"
	"gymdesk/internal/directory"
	"gymdesk/internal/enrollment"
	"gymdesk/internal/finance"
	"gymdesk/internal/store"
)

var testNow = time.Date(2026, time.August, 29, 10, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

type fixture struct {
	store  *store.MemoryStore
	enroll enrollment.Service
	server *httptest.Server
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)

	mem := store.NewMemoryStore()
	dir := directory.New(mem, log, directory.WithClock(fixedClock))
	ledger := attendance.New(mem, log, attendance.WithClock(fixedClock))
	agg := finance.New(mem, log, finance.WithClock(fixedClock))
	enroll := enrollment.NewService(dir, agg, log, enrollment.WithClock(fixedClock))

	ctx := context.Background()
	dir.Load(ctx)
	ledger.Load(ctx)
	agg.Load(ctx)

	handler := NewHandler(dir, ledger, agg, enroll, log)
	server := httptest.NewServer(handler.Routes())
	t.Cleanup(server.Close)

	return &fixture{store: mem, enroll: enroll, server: server}
}

func (f *fixture) postJSON(t *testing.T, path string, body any) *http.Response {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(f.server.URL+path, "application/json", bytes.NewReader(payload))
	require.NoError(t, err)
	return resp
}

func decode(t *testing.T, resp *http.Response, out any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

func TestCheckInEndpoint(t *testing.T) {
	f := newFixture(t)
	memberID := uuid.New()

	resp := f.postJSON(t, "/attendance/check-in", map[string]any{"member_id": memberID})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var body struct {
		Success bool `json:"success"`
	}
	decode(t, resp, &body)
	assert.True(t, body.Success)

	// Second check-in the same day conflicts.
	resp = f.postJSON(t, "/attendance/check-in", map[string]any{"member_id": memberID})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	decode(t, resp, &body)
	assert.False(t, body.Success)
}

func TestCheckInRequiresMemberID(t *testing.T) {
	f := newFixture(t)
	resp := f.postJSON(t, "/attendance/check-in", map[string]any{})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRemoveCheckInEndpoint(t *testing.T) {
	f := newFixture(t)
	memberID := uuid.New()

	resp := f.postJSON(t, "/attendance/check-in", map[string]any{"member_id": memberID})
	resp.Body.Close()

	req, err := http.NewRequest(http.MethodDelete, f.server.URL+"/attendance/check-in/"+memberID.String(), nil)
	require.NoError(t, err)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var body struct {
		Success bool `json:"success"`
	}
	decode(t, resp, &body)
	assert.True(t, body.Success)

	var today struct {
		TodayCount int `json:"today_count"`
	}
	resp, err = http.Get(f.server.URL + "/attendance/today")
	require.NoError(t, err)
	decode(t, resp, &today)
	assert.Zero(t, today.TodayCount)
}

func TestEnrollmentEndpoint(t *testing.T) {
	f := newFixture(t)

	resp := f.postJSON(t, "/enrollment", map[string]any{
		"full_name":      "A",
		"phone":          "1",
		"category":       store.CategoryStudent,
		"duration":       store.DurationMonthly,
		"payment_method": store.MethodCash,
	})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	var body struct {
		Success bool         `json:"success"`
		Member  store.Member `json:"member"`
	}
	decode(t, resp, &body)
	assert.True(t, body.Success)
	assert.NotEqual(t, uuid.Nil, body.Member.ID)

	f.enroll.Drain()
	payments, err := f.store.SelectPayments(context.Background())
	require.NoError(t, err)
	require.Len(t, payments, 1)
	assert.Equal(t, int64(20000), payments[0].Amount)
}

func TestEnrollmentValidationFailure(t *testing.T) {
	f := newFixture(t)
	resp := f.postJSON(t, "/enrollment", map[string]any{"full_name": "", "phone": ""})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestEnrollmentStoreFailure(t *testing.T) {
	f := newFixture(t)
	f.store.FailNext(errors.New("store down"))

	resp := f.postJSON(t, "/enrollment", map[string]any{
		"full_name": "A",
		"phone":     "1",
	})
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	var body struct {
		Success bool `json:"success"`
	}
	decode(t, resp, &body)
	assert.False(t, body.Success)
}

func TestDashboardComposesReadModels(t *testing.T) {
	f := newFixture(t)

	resp := f.postJSON(t, "/enrollment", map[string]any{
		"full_name":      "A",
		"phone":          "1",
		"category":       store.CategoryNormal,
		"duration":       store.DurationMonthly,
		"payment_method": store.MethodMobile,
	})
	var created struct {
		Member store.Member `json:"member"`
	}
	decode(t, resp, &created)
	f.enroll.Drain()

	resp = f.postJSON(t, "/attendance/check-in", map[string]any{"member_id": created.Member.ID})
	resp.Body.Close()

	var dash struct {
		TodayCount   int   `json:"today_count"`
		Revenue      int64 `json:"revenue"`
		Transactions int   `json:"transactions"`
	}
	get, err := http.Get(f.server.URL + "/dashboard")
	require.NoError(t, err)
	decode(t, get, &dash)
	assert.Equal(t, 1, dash.TodayCount)
	assert.Equal(t, int64(30000), dash.Revenue)
	assert.Equal(t, 1, dash.Transactions)
}

func TestMembersSearch(t *testing.T) {
	f := newFixture(t)
	for i, name := range []string{"Emmanuel Murenzi", "Divine Ingabire"} {
		resp := f.postJSON(t, "/enrollment", map[string]any{
			"full_name": name,
			"phone":     fmt.Sprintf("078800000%d", i),
		})
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		resp.Body.Close()
	}
	f.enroll.Drain()

	var body struct {
		Members []store.Member `json:"members"`
		Loading bool           `json:"loading"`
	}
	resp, err := http.Get(f.server.URL + "/members?q=divine")
	require.NoError(t, err)
	decode(t, resp, &body)
	require.Len(t, body.Members, 1)
	assert.Equal(t, "Divine Ingabire", body.Members[0].FullName)
	assert.False(t, body.Loading)
}

func TestExpiringEndpoint(t *testing.T) {
	f := newFixture(t)

	resp := f.postJSON(t, "/enrollment", map[string]any{"full_name": "A", "phone": "1"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()
	f.enroll.Drain()

	// The placeholder expiry lands 30 days out, inside a 45 day window.
	var body struct {
		Members []store.Member `json:"members"`
	}
	get, err := http.Get(f.server.URL + "/members/expiring?days=45")
	require.NoError(t, err)
	decode(t, get, &body)
	assert.Len(t, body.Members, 1)

	get, err = http.Get(f.server.URL + "/members/expiring?days=7")
	require.NoError(t, err)
	decode(t, get, &body)
	assert.Empty(t, body.Members)
}
