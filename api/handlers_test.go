/*
handlers_test.go - HTTP-level tests for the dues API

Tests run against the real router with a SQLite :memory: store and a
fixed clock, so responses are reproducible.
*/
package api_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memberly/dues-engine/api"
	"github.com/memberly/dues-engine/membership"
	"github.com/memberly/dues-engine/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestServer(t *testing.T, now time.Time) *httptest.Server {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	svc := membership.NewService(store)
	svc.Now = func() time.Time { return now }
	seq := 0
	svc.NewID = func() string {
		seq++
		return fmt.Sprintf("id-%03d", seq)
	}

	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)

	srv := httptest.NewServer(api.NewRouter(api.NewHandler(svc, log)))
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, method, url string, body any) (*http.Response, []byte) {
	t.Helper()

	var reqBody bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&reqBody).Encode(body))
	}
	req, err := http.NewRequest(method, url, &reqBody)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	return resp, buf.Bytes()
}

// seedAccount creates a monthly 100 plan and an active member joined
// Jan 2024 through the API.
func seedAccount(t *testing.T, base string) {
	t.Helper()

	resp, _ := doJSON(t, http.MethodPost, base+"/api/plans", map[string]any{
		"id": "plan-m", "name": "Standard", "amount": "100", "cadence": "monthly",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodPost, base+"/api/members", map[string]any{
		"id": "m1", "name": "Ada", "status": "active", "plan_id": "plan-m",
		"join_date": "2024-01-01",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
}

// =============================================================================
// PAYMENT + LEDGER FLOW
// =============================================================================

func TestAPI_RecordPayment_ThenDebtAndLedger(t *testing.T) {
	srv := newTestServer(t, time.Date(2024, time.March, 10, 0, 0, 0, 0, time.UTC))
	seedAccount(t, srv.URL)

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/api/members/m1/payments", map[string]any{
		"amount": "250", "paid_at": "2024-02-01T00:00:00Z",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

	var payment api.PaymentDTO
	require.NoError(t, json.Unmarshal(body, &payment))
	assert.Equal(t, "250", payment.Amount)
	assert.Equal(t, "m1", payment.MemberID)

	// Debt: 250 against Jan+Feb+Mar(100 each) leaves 50 open in March.
	resp, body = doJSON(t, http.MethodGet, srv.URL+"/api/members/m1/debt", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var snap api.DebtSnapshotDTO
	require.NoError(t, json.Unmarshal(body, &snap))
	assert.Equal(t, "50", snap.TotalDebt)
	assert.Equal(t, 1, snap.OverdueCount)
	assert.Equal(t, "2024-02-01T00:00:00Z", snap.LastPaymentAt)

	// Ledger: one row, three applications.
	resp, body = doJSON(t, http.MethodGet, srv.URL+"/api/members/m1/ledger", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var rows []api.LedgerRowDTO
	require.NoError(t, json.Unmarshal(body, &rows))
	require.Len(t, rows, 1)
	assert.Len(t, rows[0].Applied, 3)
	assert.Equal(t, "2024-01", rows[0].Applied[0].Period)
	assert.Equal(t, "0", rows[0].Excess)
	assert.Equal(t, "0", rows[0].Unallocated)
}

func TestAPI_RecordPayment_ValidationErrors(t *testing.T) {
	srv := newTestServer(t, time.Date(2024, time.March, 10, 0, 0, 0, 0, time.UTC))
	seedAccount(t, srv.URL)

	// Negative amount -> 400
	resp, _ := doJSON(t, http.MethodPost, srv.URL+"/api/members/m1/payments", map[string]any{
		"amount": "-10",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Malformed target -> 400
	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/api/members/m1/payments", map[string]any{
		"amount": "100", "target_month": 13, "target_year": 2024,
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Unknown member -> 404
	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/api/members/ghost/payments", map[string]any{
		"amount": "100",
	})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPI_RecordPayment_LifecycleGate(t *testing.T) {
	srv := newTestServer(t, time.Date(2024, time.March, 10, 0, 0, 0, 0, time.UTC))
	seedAccount(t, srv.URL)

	resp, _ := doJSON(t, http.MethodPost, srv.URL+"/api/members/m1/status", map[string]any{
		"status": "cancelled",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/api/members/m1/payments", map[string]any{
		"amount": "100",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var errResp api.ErrorResponse
	require.NoError(t, json.Unmarshal(body, &errResp))
	assert.Contains(t, errResp.Details, "cancelled")
}

func TestAPI_DeletePayment(t *testing.T) {
	srv := newTestServer(t, time.Date(2024, time.March, 10, 0, 0, 0, 0, time.UTC))
	seedAccount(t, srv.URL)

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/api/members/m1/payments", map[string]any{
		"amount": "100",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var payment api.PaymentDTO
	require.NoError(t, json.Unmarshal(body, &payment))

	resp, _ = doJSON(t, http.MethodDelete, srv.URL+"/api/payments/"+payment.ID, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodDelete, srv.URL+"/api/payments/"+payment.ID, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

// =============================================================================
// CALENDAR AND REPORTS
// =============================================================================

func TestAPI_Calendar_DefaultsToCurrentYear(t *testing.T) {
	srv := newTestServer(t, time.Date(2024, time.March, 10, 0, 0, 0, 0, time.UTC))
	seedAccount(t, srv.URL)

	resp, body := doJSON(t, http.MethodGet, srv.URL+"/api/members/m1/calendar", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var months []api.MonthStatusDTO
	require.NoError(t, json.Unmarshal(body, &months))
	require.Len(t, months, 12)
	assert.Equal(t, "2024-01", months[0].Period)
	assert.False(t, months[0].Paid)
	assert.True(t, months[3].Future, "April onward is look-ahead")

	resp, _ = doJSON(t, http.MethodGet, srv.URL+"/api/members/m1/calendar?year=abc", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAPI_OverdueReport(t *testing.T) {
	srv := newTestServer(t, time.Date(2024, time.March, 10, 0, 0, 0, 0, time.UTC))
	seedAccount(t, srv.URL)

	resp, _ := doJSON(t, http.MethodPost, srv.URL+"/api/members", map[string]any{
		"id": "m2", "name": "Grace", "status": "active", "plan_id": "plan-m",
		"join_date": "2024-02-01",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	// m2 pays off one of two months; m1 owes all three.
	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/api/members/m2/payments", map[string]any{
		"amount": "100", "paid_at": "2024-02-15T00:00:00Z",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, body := doJSON(t, http.MethodGet, srv.URL+"/api/reports/overdue", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var rows []api.OverdueRowDTO
	require.NoError(t, json.Unmarshal(body, &rows))
	require.Len(t, rows, 2)
	assert.Equal(t, "m1", rows[0].MemberID)
	assert.Equal(t, "300", rows[0].TotalDebt)
	assert.Equal(t, 3, rows[0].OverdueCount)
	assert.Equal(t, "m2", rows[1].MemberID)
	assert.Equal(t, "100", rows[1].TotalDebt)
}

// =============================================================================
// MEMBER / PLAN CRUD
// =============================================================================

func TestAPI_MemberCRUD(t *testing.T) {
	srv := newTestServer(t, time.Date(2024, time.March, 10, 0, 0, 0, 0, time.UTC))

	resp, _ := doJSON(t, http.MethodPost, srv.URL+"/api/members", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "name is required")

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/api/members", map[string]any{
		"name": "Ada",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var member api.MemberDTO
	require.NoError(t, json.Unmarshal(body, &member))
	assert.NotEmpty(t, member.ID)
	assert.Equal(t, "pending", member.Status)

	resp, body = doJSON(t, http.MethodGet, srv.URL+"/api/members/"+member.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodGet, srv.URL+"/api/members/ghost", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, body = doJSON(t, http.MethodGet, srv.URL+"/api/members", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var members []api.MemberDTO
	require.NoError(t, json.Unmarshal(body, &members))
	assert.Len(t, members, 1)
}

func TestAPI_PlanValidation(t *testing.T) {
	srv := newTestServer(t, time.Date(2024, time.March, 10, 0, 0, 0, 0, time.UTC))

	resp, _ := doJSON(t, http.MethodPost, srv.URL+"/api/plans", map[string]any{
		"name": "Bad", "amount": "not-a-number", "cadence": "monthly",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/api/plans", map[string]any{
		"name": "Bad", "amount": "10", "cadence": "weekly",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/api/plans", map[string]any{
		"name": "Yearly", "amount": "1200", "cadence": "yearly",
	})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
}
