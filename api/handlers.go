/*
handlers.go - HTTP API handlers

PURPOSE:
  Exposes the engine's command and query surface via REST. Handlers parse
  and validate HTTP input, delegate to the engine, and map the error
  taxonomy onto status codes:

    400 ValidationError    (non-positive amount, bad date, bad config)
    403 AuthorizationError (actor lacks the master capability)
    404 NotFoundError
    409 StateError         (illegal ledger transition)
    500 everything else

ACTOR RESOLUTION:
  The acting identity comes from the X-Actor-ID / X-Actor-Role headers.
  Absent headers default to the master actor for local development.
  Credential verification is an external collaborator's job; this layer
  only carries the already-authenticated identity into the engine's
  capability checks.

SEE ALSO:
  - dto.go: Request/response shapes
  - server.go: Router setup and middleware
  - engine/engine.go: The command implementations
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/dojokit/academy-engine/academy"
	"github.com/dojokit/academy-engine/engine"
	"github.com/dojokit/academy-engine/schedule"
)

// Handler holds the engine behind the HTTP surface.
type Handler struct {
	Engine *engine.Engine
}

func NewHandler(e *engine.Engine) *Handler {
	return &Handler{Engine: e}
}

func actorFrom(r *http.Request) academy.Actor {
	id := r.Header.Get("X-Actor-ID")
	role := r.Header.Get("X-Actor-Role")
	if id == "" && role == "" {
		return academy.Actor{ID: "dev", Role: academy.RoleMaster}
	}
	return academy.Actor{ID: id, Role: academy.Role(role)}
}

// =============================================================================
// CALENDAR
// =============================================================================

// GetCalendar returns the materialized instance set, optionally filtered
// to one date (?date=yyyy-mm-dd).
func (h *Handler) GetCalendar(w http.ResponseWriter, r *http.Request) {
	instances := h.Engine.Calendar()

	if q := r.URL.Query().Get("date"); q != "" {
		date, err := academy.ParseDate(q)
		if err != nil {
			writeError(w, err)
			return
		}
		instances = schedule.InstancesOn(instances, date)
	}

	dtos := make([]InstanceDTO, len(instances))
	for i, inst := range instances {
		dtos[i] = instanceDTO(inst)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// CLASSES
// =============================================================================

func (h *Handler) ListClasses(w http.ResponseWriter, r *http.Request) {
	classes := h.Engine.Classes()
	dtos := make([]ClassDTO, len(classes))
	for i, c := range classes {
		dtos[i] = classDTO(c)
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) CreateClass(w http.ResponseWriter, r *http.Request) {
	var req CreateClassRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, academy.NewValidationError("body", "invalid JSON"))
		return
	}

	class, err := classFromRequest(req)
	if err != nil {
		writeError(w, err)
		return
	}

	created, err := h.Engine.DefineClass(r.Context(), actorFrom(r), class)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, classDTO(created))
}

func classFromRequest(req CreateClassRequest) (schedule.ClassDefinition, error) {
	days, err := parseWeekdays(req.Weekdays)
	if err != nil {
		return schedule.ClassDefinition{}, err
	}
	start, err := academy.ParseClock(req.StartTime)
	if err != nil {
		return schedule.ClassDefinition{}, err
	}
	end, err := academy.ParseClock(req.EndTime)
	if err != nil {
		return schedule.ClassDefinition{}, err
	}
	id := req.ID
	if id == "" {
		id = uuid.NewString()
	}
	return schedule.ClassDefinition{
		ID:         academy.ClassID(id),
		Name:       req.Name,
		Weekdays:   days,
		StartTime:  start,
		EndTime:    end,
		Instructor: req.Instructor,
	}, nil
}

func (h *Handler) DeleteClass(w http.ResponseWriter, r *http.Request) {
	id := academy.ClassID(chi.URLParam(r, "id"))
	if err := h.Engine.DeleteClass(r.Context(), actorFrom(r), id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"deleted": string(id)})
}

func (h *Handler) SetException(w http.ResponseWriter, r *http.Request) {
	classID := academy.ClassID(chi.URLParam(r, "id"))

	var req ExceptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, academy.NewValidationError("body", "invalid JSON"))
		return
	}

	exc, err := exceptionFromRequest(req)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.Engine.ModifySessionException(r.Context(), actorFrom(r), classID, exc); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"class_id": string(classID), "date": exc.Date.String()})
}

func exceptionFromRequest(req ExceptionRequest) (schedule.SessionException, error) {
	date, err := academy.ParseDate(req.Date)
	if err != nil {
		return schedule.SessionException{}, err
	}
	exc := schedule.SessionException{
		Date:       date,
		Kind:       schedule.ExceptionKind(req.Kind),
		Instructor: req.Instructor,
	}
	if req.StartTime != nil {
		t, err := academy.ParseClock(*req.StartTime)
		if err != nil {
			return schedule.SessionException{}, err
		}
		exc.StartTime = &t
	}
	if req.EndTime != nil {
		t, err := academy.ParseClock(*req.EndTime)
		if err != nil {
			return schedule.SessionException{}, err
		}
		exc.EndTime = &t
	}
	if req.MovedTo != nil {
		d, err := academy.ParseDate(*req.MovedTo)
		if err != nil {
			return schedule.SessionException{}, err
		}
		exc.MovedTo = &d
	}
	return exc, nil
}

func (h *Handler) EnrollStudent(w http.ResponseWriter, r *http.Request) {
	h.enrollment(w, r, h.Engine.Enroll)
}

func (h *Handler) UnenrollStudent(w http.ResponseWriter, r *http.Request) {
	h.enrollment(w, r, h.Engine.Unenroll)
}

func (h *Handler) enrollment(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, actor academy.Actor, s academy.StudentID, c academy.ClassID) error) {
	classID := academy.ClassID(chi.URLParam(r, "id"))

	var req EnrollRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, academy.NewValidationError("body", "invalid JSON"))
		return
	}

	if err := op(r.Context(), actorFrom(r), academy.StudentID(req.StudentID), classID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"student_id": req.StudentID, "class_id": string(classID)})
}

// =============================================================================
// EVENTS
// =============================================================================

func (h *Handler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var req CreateEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, academy.NewValidationError("body", "invalid JSON"))
		return
	}

	date, err := academy.ParseDate(req.Date)
	if err != nil {
		writeError(w, err)
		return
	}
	start, err := academy.ParseClock(req.StartTime)
	if err != nil {
		writeError(w, err)
		return
	}

	event := schedule.OneOffEvent{
		ID:        academy.EventID(req.ID),
		Name:      req.Name,
		Date:      date,
		StartTime: start,
		Category:  schedule.EventCategory(req.Category),
	}
	if event.ID == "" {
		event.ID = academy.EventID(uuid.NewString())
	}
	if req.EndTime != nil {
		end, err := academy.ParseClock(*req.EndTime)
		if err != nil {
			writeError(w, err)
			return
		}
		event.EndTime = &end
	}

	created, err := h.Engine.AddEvent(r.Context(), actorFrom(r), event)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": string(created.ID)})
}

func (h *Handler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	id := academy.EventID(chi.URLParam(r, "id"))
	if err := h.Engine.DeleteEvent(r.Context(), actorFrom(r), id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"deleted": string(id)})
}

// =============================================================================
// STUDENTS / BALANCES
// =============================================================================

func (h *Handler) ListStudents(w http.ResponseWriter, r *http.Request) {
	students := h.Engine.Students()
	dtos := make([]StudentDTO, len(students))
	for i, s := range students {
		dtos[i] = studentDTO(s)
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) CreateStudent(w http.ResponseWriter, r *http.Request) {
	var req CreateStudentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, academy.NewValidationError("body", "invalid JSON"))
		return
	}
	id := req.ID
	if id == "" {
		id = uuid.NewString()
	}
	created, err := h.Engine.RegisterStudent(r.Context(), actorFrom(r), academy.Student{
		ID:   academy.StudentID(id),
		Name: req.Name,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, studentDTO(created))
}

func (h *Handler) SetStudentStatus(w http.ResponseWriter, r *http.Request) {
	id := academy.StudentID(chi.URLParam(r, "id"))

	var req SetStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, academy.NewValidationError("body", "invalid JSON"))
		return
	}

	if err := h.Engine.SetStudentStatus(r.Context(), actorFrom(r), id, academy.StudentStatus(req.Status)); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"student_id": string(id), "status": req.Status})
}

func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	id := academy.StudentID(chi.URLParam(r, "id"))
	b, err := h.Engine.Balance(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, balanceDTO(b))
}

func (h *Handler) ListBalances(w http.ResponseWriter, r *http.Request) {
	balances := h.Engine.Balances()
	dtos := make([]BalanceDTO, len(balances))
	for i, b := range balances {
		dtos[i] = balanceDTO(b)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// LEDGER
// =============================================================================

// ListLedger returns the ledger, filtered by ?student= and/or ?month=yyyy-mm.
func (h *Handler) ListLedger(w http.ResponseWriter, r *http.Request) {
	studentID := academy.StudentID(r.URL.Query().Get("student"))

	var month *academy.Date
	if q := r.URL.Query().Get("month"); q != "" {
		d, err := academy.ParseDate(q + "-01")
		if err != nil {
			writeError(w, academy.NewValidationError("month", "use yyyy-mm"))
			return
		}
		month = &d
	}

	records := h.Engine.LedgerRecords(studentID, month)
	dtos := make([]RecordDTO, len(records))
	for i, rec := range records {
		dtos[i] = recordDTO(rec)
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) RecordCharge(w http.ResponseWriter, r *http.Request) {
	var req ChargeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, academy.NewValidationError("body", "invalid JSON"))
		return
	}
	date, err := dateOrToday(req.Date)
	if err != nil {
		writeError(w, err)
		return
	}
	rec, err := h.Engine.RecordCharge(r.Context(), actorFrom(r),
		academy.StudentID(req.StudentID), academy.NewMoney(req.Amount), req.Category, date)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, recordDTO(rec))
}

func (h *Handler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	var req PaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, academy.NewValidationError("body", "invalid JSON"))
		return
	}
	date, err := dateOrToday(req.Date)
	if err != nil {
		writeError(w, err)
		return
	}
	rec, err := h.Engine.RecordPayment(r.Context(), actorFrom(r),
		academy.StudentID(req.StudentID), academy.NewMoney(req.Amount), req.Method, date)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, recordDTO(rec))
}

func (h *Handler) ApprovePayment(w http.ResponseWriter, r *http.Request) {
	h.resolvePayment(w, r, h.Engine.ApprovePayment)
}

func (h *Handler) RejectPayment(w http.ResponseWriter, r *http.Request) {
	h.resolvePayment(w, r, h.Engine.RejectPayment)
}

func (h *Handler) resolvePayment(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, actor academy.Actor, id academy.RecordID) error) {
	id := academy.RecordID(chi.URLParam(r, "id"))
	if err := op(r.Context(), actorFrom(r), id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"record_id": string(id)})
}

func dateOrToday(s string) (academy.Date, error) {
	if s == "" {
		return academy.Today(), nil
	}
	return academy.ParseDate(s)
}

// =============================================================================
// AUTOMATION / SETTINGS
// =============================================================================

func (h *Handler) RunBilling(w http.ResponseWriter, r *http.Request) {
	n, err := h.Engine.RunMonthlyBilling(r.Context(), actorFrom(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, AutomationRunDTO{Created: n})
}

func (h *Handler) RunLateFees(w http.ResponseWriter, r *http.Request) {
	n, err := h.Engine.RunLateFees(r.Context(), actorFrom(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, AutomationRunDTO{Created: n})
}

func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, settingsDTO(h.Engine.Settings()))
}

func (h *Handler) UpdateTriggerDays(w http.ResponseWriter, r *http.Request) {
	var req TriggerDaysRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, academy.NewValidationError("body", "invalid JSON"))
		return
	}
	if err := h.Engine.UpdatePaymentTriggerDays(r.Context(), actorFrom(r), req.BillingDay, req.LateFeeDay); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, settingsDTO(h.Engine.Settings()))
}

func (h *Handler) UpdateAmounts(w http.ResponseWriter, r *http.Request) {
	var req AmountsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, academy.NewValidationError("body", "invalid JSON"))
		return
	}
	if err := h.Engine.UpdatePaymentAmounts(r.Context(), actorFrom(r),
		academy.NewMoney(req.MonthlyTuition), academy.NewMoney(req.LateFeeAmount)); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, settingsDTO(h.Engine.Settings()))
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, academy.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, academy.ErrAuthorization):
		status = http.StatusForbidden
	case errors.Is(err, academy.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, academy.ErrState):
		status = http.StatusConflict
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
