package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gymdesk/internal/attendance"
	"gymdesk/internal/console"
	"gymdesk/internal/directory"
	"gymdesk/internal/enrollment"
	"gymdesk/internal/finance"
	"gymdesk/internal/store"
)

var testNow = time.Date(2026, time.August, 29, 9, 0, 0, 0, time.UTC)

type testSuite struct {
	store  *store.MemoryStore
	enroll enrollment.Service
	server *httptest.Server
}

func setupTestSuite(t *testing.T) *testSuite {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)

	mem := store.NewMemoryStore()
	clock := func() time.Time { return testNow }

	dir := directory.New(mem, log, directory.WithClock(clock))
	ledger := attendance.New(mem, log, attendance.WithClock(clock))
	agg := finance.New(mem, log, finance.WithClock(clock))
	enroll := enrollment.NewService(dir, agg, log, enrollment.WithClock(clock))

	ctx := context.Background()
	dir.Load(ctx)
	ledger.Load(ctx)
	agg.Load(ctx)

	handler := console.NewHandler(dir, ledger, agg, enroll, log)
	server := httptest.NewServer(handler.Routes())
	t.Cleanup(server.Close)

	return &testSuite{store: mem, enroll: enroll, server: server}
}

func TestRegistrationFlow(t *testing.T) {
	ts := setupTestSuite(t)

	// Register a new member.
	registerReq := map[string]string{
		"full_name":      "Test Member",
		"phone":          "0788000000",
		"category":       store.CategoryStudent,
		"duration":       store.DurationMonthly,
		"payment_method": store.MethodCash,
	}
	body, _ := json.Marshal(registerReq)
	resp, err := http.Post(ts.server.URL+"/enrollment", "application/json", bytes.NewBuffer(body))
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created struct {
		Member store.Member `json:"member"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	resp.Body.Close()
	ts.enroll.Drain()

	// The roster shows the member immediately.
	resp, err = http.Get(ts.server.URL + "/members")
	require.NoError(t, err)
	var roster struct {
		Members []store.Member `json:"members"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&roster))
	resp.Body.Close()
	require.Len(t, roster.Members, 1)
	assert.Equal(t, created.Member.ID, roster.Members[0].ID)

	// The payment shows up in the finance stats.
	resp, err = http.Get(ts.server.URL + "/finance/stats")
	require.NoError(t, err)
	var financeBody struct {
		Stats finance.Stats `json:"stats"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&financeBody))
	resp.Body.Close()
	assert.Equal(t, int64(20000), financeBody.Stats.Revenue)
	assert.Equal(t, 1, financeBody.Stats.Transactions)
	assert.Equal(t, int64(20000), financeBody.Stats.CashRevenue)

	// Check the member in, verify the ledger, then undo it.
	checkInReq := map[string]string{"member_id": created.Member.ID.String()}
	body, _ = json.Marshal(checkInReq)
	resp, err = http.Post(ts.server.URL+"/attendance/check-in", "application/json", bytes.NewBuffer(body))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp, err = http.Get(ts.server.URL + "/attendance/today")
	require.NoError(t, err)
	var today struct {
		TodayCount int `json:"today_count"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&today))
	resp.Body.Close()
	assert.Equal(t, 1, today.TodayCount)

	req, err := http.NewRequest(http.MethodDelete, ts.server.URL+"/attendance/check-in/"+created.Member.ID.String(), nil)
	require.NoError(t, err)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp, err = http.Get(ts.server.URL + "/attendance/today")
	require.NoError(t, err)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&today))
	resp.Body.Close()
	assert.Zero(t, today.TodayCount)
}

func TestConcurrentCheckInsProduceOneRecord(t *testing.T) {
	ts := setupTestSuite(t)

	// Register a member to check in.
	body, _ := json.Marshal(map[string]string{"full_name": "Racer", "phone": "1"})
	resp, err := http.Post(ts.server.URL+"/enrollment", "application/json", bytes.NewBuffer(body))
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created struct {
		Member store.Member `json:"member"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	resp.Body.Close()
	ts.enroll.Drain()

	// Hammer the check-in endpoint concurrently for one member. The
	// in-flight guard plus the store's uniqueness constraint must let
	// exactly one attempt through.
	var wg sync.WaitGroup
	successCount := 0
	var mu sync.Mutex
	checkInBody, _ := json.Marshal(map[string]string{"member_id": created.Member.ID.String()})

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := http.Post(ts.server.URL+"/attendance/check-in", "application/json", bytes.NewReader(checkInBody))
			if err == nil {
				if resp.StatusCode == http.StatusOK {
					mu.Lock()
					successCount++
					mu.Unlock()
				}
				resp.Body.Close()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successCount, "only one concurrent check-in should succeed")

	resp, err = http.Get(ts.server.URL + "/attendance/today")
	require.NoError(t, err)
	var today struct {
		TodayCount int `json:"today_count"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&today))
	resp.Body.Close()
	assert.Equal(t, 1, today.TodayCount)

	records, err := ts.store.SelectAttendanceByDate(context.Background(), store.DateOf(testNow))
	require.NoError(t, err)
	assert.Len(t, records, 1)
}
