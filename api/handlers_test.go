package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dojokit/academy-engine/academy"
	"github.com/dojokit/academy-engine/api"
	"github.com/dojokit/academy-engine/engine"
	"github.com/dojokit/academy-engine/storage"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	e := engine.New(storage.NewMemory(), "dojo")
	require.NoError(t, e.Load(context.Background()))
	return api.NewRouter(api.NewHandler(e))
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out))
	return out
}

// Every weekday, so the class materializes today regardless of the host
// clock.
func createClassBody() api.CreateClassRequest {
	return api.CreateClassRequest{
		ID:         "class-tkd",
		Name:       "Taekwondo",
		Weekdays:   []string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"},
		StartTime:  "18:00",
		EndTime:    "19:00",
		Instructor: "Master Kim",
	}
}

var studentHeaders = map[string]string{
	"X-Actor-ID":   "student-1",
	"X-Actor-Role": "student",
}

// =============================================================================
// CLASSES / CALENDAR
// =============================================================================

func TestAPI_CreateClass_AndCalendar(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/classes", createClassBody(), nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	class := decode[api.ClassDTO](t, rec)
	assert.Equal(t, "class-tkd", class.ID)
	assert.Len(t, class.Weekdays, 7)

	rec = doJSON(t, router, http.MethodGet, "/api/calendar", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	instances := decode[[]api.InstanceDTO](t, rec)
	assert.NotEmpty(t, instances)

	today := academy.Today().String()
	rec = doJSON(t, router, http.MethodGet, "/api/calendar?date="+today, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	onToday := decode[[]api.InstanceDTO](t, rec)
	require.Len(t, onToday, 1)
	assert.Equal(t, today, onToday[0].Date)
	assert.Equal(t, "active", onToday[0].Status)
}

func TestAPI_CreateClass_UnknownWeekday_400(t *testing.T) {
	router := newTestRouter(t)
	body := createClassBody()
	body.Weekdays = []string{"funday"}

	rec := doJSON(t, router, http.MethodPost, "/api/classes", body, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAPI_SetException_CancelShowsOnCalendar(t *testing.T) {
	router := newTestRouter(t)
	require.Equal(t, http.StatusCreated,
		doJSON(t, router, http.MethodPost, "/api/classes", createClassBody(), nil).Code)

	today := academy.Today().String()
	rec := doJSON(t, router, http.MethodPost, "/api/classes/class-tkd/exceptions",
		api.ExceptionRequest{Date: today, Kind: "cancel"}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	onToday := decode[[]api.InstanceDTO](t, doJSON(t, router, http.MethodGet, "/api/calendar?date="+today, nil, nil))
	require.Len(t, onToday, 1)
	assert.Equal(t, "cancelled", onToday[0].Status)
}

func TestAPI_SetException_UnknownClass_404(t *testing.T) {
	router := newTestRouter(t)
	rec := doJSON(t, router, http.MethodPost, "/api/classes/class-nope/exceptions",
		api.ExceptionRequest{Date: "2025-03-03", Kind: "cancel"}, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// =============================================================================
// AUTHORIZATION MAPPING
// =============================================================================

func TestAPI_StudentActor_PrivilegedCommand_403(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/classes", createClassBody(), studentHeaders)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	body := decode[map[string]string](t, rec)
	assert.Contains(t, body["error"], "not allowed")
}

func TestAPI_StudentActor_SelfServicePayment_Allowed(t *testing.T) {
	router := newTestRouter(t)
	require.Equal(t, http.StatusCreated,
		doJSON(t, router, http.MethodPost, "/api/students", api.CreateStudentRequest{ID: "student-1", Name: "Ana"}, nil).Code)

	rec := doJSON(t, router, http.MethodPost, "/api/ledger/payments",
		api.PaymentRequest{StudentID: "student-1", Amount: 50, Method: "cash"}, studentHeaders)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	payment := decode[api.RecordDTO](t, rec)
	assert.Equal(t, "pending_approval", payment.Status)

	// Approving their own payment stays privileged.
	rec = doJSON(t, router, http.MethodPost, "/api/ledger/"+payment.ID+"/approve", nil, studentHeaders)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

// =============================================================================
// LEDGER / BALANCES
// =============================================================================

func TestAPI_ChargePaymentApprove_BalanceFlow(t *testing.T) {
	router := newTestRouter(t)
	require.Equal(t, http.StatusCreated,
		doJSON(t, router, http.MethodPost, "/api/students", api.CreateStudentRequest{ID: "student-1", Name: "Ana"}, nil).Code)

	rec := doJSON(t, router, http.MethodPost, "/api/ledger/charges",
		api.ChargeRequest{StudentID: "student-1", Amount: 100, Category: "Mensualidad"}, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	balance := decode[api.BalanceDTO](t, doJSON(t, router, http.MethodGet, "/api/students/student-1/balance", nil, nil))
	assert.Equal(t, "100", balance.Balance)
	assert.Equal(t, "debtor", balance.Status)

	rec = doJSON(t, router, http.MethodPost, "/api/ledger/payments",
		api.PaymentRequest{StudentID: "student-1", Amount: 100, Method: "transfer"}, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	payment := decode[api.RecordDTO](t, rec)

	rec = doJSON(t, router, http.MethodPost, "/api/ledger/"+payment.ID+"/approve", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	balance = decode[api.BalanceDTO](t, doJSON(t, router, http.MethodGet, "/api/students/student-1/balance", nil, nil))
	assert.Equal(t, "0", balance.Balance)
	assert.Equal(t, "active", balance.Status)
}

func TestAPI_ChargeNonPositiveAmount_400(t *testing.T) {
	router := newTestRouter(t)
	require.Equal(t, http.StatusCreated,
		doJSON(t, router, http.MethodPost, "/api/students", api.CreateStudentRequest{ID: "student-1", Name: "Ana"}, nil).Code)

	rec := doJSON(t, router, http.MethodPost, "/api/ledger/charges",
		api.ChargeRequest{StudentID: "student-1", Amount: 0, Category: "Mensualidad"}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAPI_ApproveCharge_409(t *testing.T) {
	router := newTestRouter(t)
	require.Equal(t, http.StatusCreated,
		doJSON(t, router, http.MethodPost, "/api/students", api.CreateStudentRequest{ID: "student-1", Name: "Ana"}, nil).Code)

	rec := doJSON(t, router, http.MethodPost, "/api/ledger/charges",
		api.ChargeRequest{StudentID: "student-1", Amount: 100, Category: "Mensualidad"}, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	charge := decode[api.RecordDTO](t, rec)

	rec = doJSON(t, router, http.MethodPost, "/api/ledger/"+charge.ID+"/approve", nil, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestAPI_ApproveUnknownRecord_404(t *testing.T) {
	router := newTestRouter(t)
	rec := doJSON(t, router, http.MethodPost, "/api/ledger/no-such-record/approve", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAPI_LedgerFilters(t *testing.T) {
	router := newTestRouter(t)
	for _, id := range []string{"student-1", "student-2"} {
		require.Equal(t, http.StatusCreated,
			doJSON(t, router, http.MethodPost, "/api/students", api.CreateStudentRequest{ID: id, Name: id}, nil).Code)
		require.Equal(t, http.StatusCreated,
			doJSON(t, router, http.MethodPost, "/api/ledger/charges",
				api.ChargeRequest{StudentID: id, Amount: 100, Category: "Mensualidad"}, nil).Code)
	}

	all := decode[[]api.RecordDTO](t, doJSON(t, router, http.MethodGet, "/api/ledger", nil, nil))
	assert.Len(t, all, 2)

	one := decode[[]api.RecordDTO](t, doJSON(t, router, http.MethodGet, "/api/ledger?student=student-1", nil, nil))
	require.Len(t, one, 1)
	assert.Equal(t, "student-1", one[0].StudentID)

	rec := doJSON(t, router, http.MethodGet, "/api/ledger?month=notamonth", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// =============================================================================
// SETTINGS / AUTOMATION
// =============================================================================

func TestAPI_Settings_UpdateAndValidate(t *testing.T) {
	router := newTestRouter(t)

	settings := decode[api.SettingsDTO](t, doJSON(t, router, http.MethodGet, "/api/settings", nil, nil))
	assert.Equal(t, 1, settings.BillingDay)

	rec := doJSON(t, router, http.MethodPut, "/api/settings/trigger-days",
		api.TriggerDaysRequest{BillingDay: 10, LateFeeDay: 5}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "late fee day before billing day")

	rec = doJSON(t, router, http.MethodPut, "/api/settings/trigger-days",
		api.TriggerDaysRequest{BillingDay: 5, LateFeeDay: 15}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	settings = decode[api.SettingsDTO](t, rec)
	assert.Equal(t, 5, settings.BillingDay)
	assert.Equal(t, 15, settings.LateFeeDay)
}

func TestAPI_ManualBilling_ReturnsCount(t *testing.T) {
	router := newTestRouter(t)
	require.Equal(t, http.StatusCreated,
		doJSON(t, router, http.MethodPost, "/api/students", api.CreateStudentRequest{ID: "student-1", Name: "Ana"}, nil).Code)

	run := decode[api.AutomationRunDTO](t, doJSON(t, router, http.MethodPost, "/api/automation/billing", nil, nil))
	assert.Equal(t, 1, run.Created)

	run = decode[api.AutomationRunDTO](t, doJSON(t, router, http.MethodPost, "/api/automation/billing", nil, nil))
	assert.Equal(t, 0, run.Created, "per-month guard blocks the re-run")
}

// =============================================================================
// SCENARIO LOADER
// =============================================================================

func TestAPI_LoadScenario_PopulatesAcademy(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/scenarios/load", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	students := decode[[]api.StudentDTO](t, doJSON(t, router, http.MethodGet, "/api/students", nil, nil))
	assert.Len(t, students, 4)

	balances := decode[[]api.BalanceDTO](t, doJSON(t, router, http.MethodGet, "/api/balances", nil, nil))
	statuses := map[string]string{}
	for _, b := range balances {
		statuses[b.StudentID] = b.Status
	}
	assert.Equal(t, "active", statuses["student-ana"], "paid in full")
	assert.Equal(t, "debtor", statuses["student-leo"], "charged, unpaid")
	assert.Equal(t, "debtor", statuses["student-raul"], "payment still pending")
	assert.Equal(t, "exam_ready", statuses["student-mia"])

	instances := decode[[]api.InstanceDTO](t, doJSON(t, router, http.MethodGet, "/api/calendar", nil, nil))
	assert.NotEmpty(t, instances)
}
