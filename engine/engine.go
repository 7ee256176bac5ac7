/*
Package engine wires the derived-state pipeline together.

PURPOSE:
  The Engine owns the local cache of one academy's collections (students,
  classes, events, ledger, settings, watermarks) and exposes the command
  and query surface. Every mutating command:

    1. Checks the actor's capability (AuthorizationError when missing)
    2. Validates input (ValidationError)
    3. Mutates the local cache
    4. Writes the touched collections through to the store
    5. Re-runs the derived computations (calendar materialization,
       balance fold) synchronously

  Derived state - calendar instances and student balances - is recomputed
  wholesale on every relevant change and served as read-only projections.

CONCURRENCY:
  Single logical writer. One mutex serializes commands, queries, and the
  sync coordinator's pull application; the heavy computations are pure and
  never block on I/O while holding partial state.

SEE ALSO:
  - sync.go: Periodic pull, diff, merge, in-flight guard
  - automation/scheduler.go: Evaluated on load and on every sync tick
*/
package engine

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/dojokit/academy-engine/academy"
	"github.com/dojokit/academy-engine/automation"
	"github.com/dojokit/academy-engine/ledger"
	"github.com/dojokit/academy-engine/schedule"
	"github.com/dojokit/academy-engine/storage"
)

// =============================================================================
// ENGINE
// =============================================================================

type Engine struct {
	mu        sync.Mutex
	academyID academy.AcademyID
	store     storage.Store
	now       func() academy.Date

	// Local cache of the authoritative collections.
	students []academy.Student
	classes  []schedule.ClassDefinition
	events   []schedule.OneOffEvent
	records  []ledger.Record
	settings academy.Settings
	marks    automation.Watermarks

	// Derived projections, regenerated on change.
	instances []schedule.CalendarInstance
	balances  map[academy.StudentID]ledger.StudentBalance

	// lastWrite timestamps the most recent local mutation; pulls that
	// started before it are stale and get discarded (see sync.go).
	lastWrite time.Time
}

type Option func(*Engine)

// WithClock overrides the engine's notion of "today" (tests, replays).
func WithClock(now func() academy.Date) Option {
	return func(e *Engine) { e.now = now }
}

func New(store storage.Store, academyID academy.AcademyID, opts ...Option) *Engine {
	e := &Engine{
		store:     store,
		academyID: academyID,
		now:       academy.Today,
		balances:  make(map[academy.StudentID]ledger.StudentBalance),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Load pulls the authoritative collections, seeds defaults for a new
// academy, and builds the initial projections.
func (e *Engine) Load(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	var err error
	if e.students, err = e.store.LoadStudents(ctx, e.academyID); err != nil {
		return err
	}
	if e.classes, err = e.store.LoadClasses(ctx, e.academyID); err != nil {
		return err
	}
	if e.events, err = e.store.LoadEvents(ctx, e.academyID); err != nil {
		return err
	}
	if e.records, err = e.store.LoadLedger(ctx, e.academyID); err != nil {
		return err
	}

	settings, err := e.store.LoadSettings(ctx, e.academyID)
	if err != nil {
		return err
	}
	if settings == nil {
		def := academy.DefaultSettings(e.academyID, string(e.academyID))
		if err := e.store.SaveSettings(ctx, e.academyID, def); err != nil {
			return err
		}
		settings = &def
	}
	e.settings = *settings

	marks, err := e.store.LoadWatermarks(ctx, e.academyID)
	if err != nil {
		return err
	}
	if marks == nil {
		marks = &automation.Watermarks{AcademyID: e.academyID}
	}
	e.marks = *marks

	e.rematerialize()
	return e.recomputeBalances(ctx)
}

// =============================================================================
// CAPABILITY CHECK
// =============================================================================

// requireMaster is the central capability check: a non-master actor
// invoking a privileged command gets an explicit AuthorizationError.
func requireMaster(actor academy.Actor, command string) error {
	if !actor.IsMaster() {
		return &academy.AuthorizationError{ActorID: actor.ID, Command: command}
	}
	return nil
}

// requireMasterOrSelf admits the master or the student acting on their
// own behalf (self-service payments and enrollment).
func requireMasterOrSelf(actor academy.Actor, studentID academy.StudentID, command string) error {
	if actor.IsMaster() || actor.IsSelf(studentID) {
		return nil
	}
	return &academy.AuthorizationError{ActorID: actor.ID, Command: command}
}

// =============================================================================
// SCHEDULE COMMANDS
// =============================================================================

// DefineClass creates or replaces a class definition (matched by id) and
// rematerializes the calendar.
func (e *Engine) DefineClass(ctx context.Context, actor academy.Actor, class schedule.ClassDefinition) (schedule.ClassDefinition, error) {
	if err := requireMaster(actor, "defineClass"); err != nil {
		return schedule.ClassDefinition{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	class.AcademyID = e.academyID
	if err := class.Validate(); err != nil {
		return schedule.ClassDefinition{}, err
	}

	replaced := false
	for i := range e.classes {
		if e.classes[i].ID == class.ID {
			e.classes[i] = class
			replaced = true
			break
		}
	}
	if !replaced {
		e.classes = append(e.classes, class)
	}

	if err := e.saveClasses(ctx); err != nil {
		return schedule.ClassDefinition{}, err
	}
	e.rematerialize()
	return class, nil
}

// ModifySessionException installs a date-scoped exception on a class,
// replacing any existing exception for the same date.
func (e *Engine) ModifySessionException(ctx context.Context, actor academy.Actor, classID academy.ClassID, exc schedule.SessionException) error {
	if err := requireMaster(actor, "modifySessionException"); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := exc.Validate(); err != nil {
		return err
	}

	idx := e.classIndex(classID)
	if idx < 0 {
		return &academy.NotFoundError{Kind: "class", ID: string(classID)}
	}

	// Copy-on-write so projections handed out earlier never see the edit.
	class := e.classes[idx]
	class.Exceptions = append([]schedule.SessionException(nil), class.Exceptions...)
	class.SetException(exc)
	e.classes[idx] = class

	if err := e.saveClasses(ctx); err != nil {
		return err
	}
	e.rematerialize()
	return nil
}

// DeleteClass removes the definition (and with it every derived
// occurrence) and unenrolls all students from the class.
func (e *Engine) DeleteClass(ctx context.Context, actor academy.Actor, classID academy.ClassID) error {
	if err := requireMaster(actor, "deleteClass"); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	idx := e.classIndex(classID)
	if idx < 0 {
		return &academy.NotFoundError{Kind: "class", ID: string(classID)}
	}
	e.classes = append(e.classes[:idx], e.classes[idx+1:]...)

	rosterChanged := false
	for i := range e.students {
		var kept []academy.ClassID
		for _, id := range e.students[i].Enrollments {
			if id != classID {
				kept = append(kept, id)
			}
		}
		if len(kept) != len(e.students[i].Enrollments) {
			e.students[i].Enrollments = kept
			rosterChanged = true
		}
	}

	if err := e.saveClasses(ctx); err != nil {
		return err
	}
	if rosterChanged {
		if err := e.saveStudents(ctx); err != nil {
			return err
		}
	}
	e.rematerialize()
	return nil
}

// AddEvent registers a one-off event (exam, tournament, generic).
func (e *Engine) AddEvent(ctx context.Context, actor academy.Actor, event schedule.OneOffEvent) (schedule.OneOffEvent, error) {
	if err := requireMaster(actor, "addEvent"); err != nil {
		return schedule.OneOffEvent{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	event.AcademyID = e.academyID
	if err := event.Validate(); err != nil {
		return schedule.OneOffEvent{}, err
	}
	e.events = append(e.events, event)

	if err := e.saveEvents(ctx); err != nil {
		return schedule.OneOffEvent{}, err
	}
	e.rematerialize()
	return event, nil
}

// DeleteEvent removes a one-off event and its derived instance.
func (e *Engine) DeleteEvent(ctx context.Context, actor academy.Actor, eventID academy.EventID) error {
	if err := requireMaster(actor, "deleteEvent"); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	for i := range e.events {
		if e.events[i].ID == eventID {
			e.events = append(e.events[:i], e.events[i+1:]...)
			if err := e.saveEvents(ctx); err != nil {
				return err
			}
			e.rematerialize()
			return nil
		}
	}
	return &academy.NotFoundError{Kind: "event", ID: string(eventID)}
}

// =============================================================================
// ROSTER COMMANDS
// =============================================================================

// RegisterStudent adds a student to the roster with status active.
func (e *Engine) RegisterStudent(ctx context.Context, actor academy.Actor, student academy.Student) (academy.Student, error) {
	if err := requireMaster(actor, "registerStudent"); err != nil {
		return academy.Student{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if student.Name == "" {
		return academy.Student{}, academy.NewValidationError("name", "required")
	}
	student.AcademyID = e.academyID
	if student.Status == "" {
		student.Status = academy.StatusActive
	}
	e.students = append(e.students, student)

	if err := e.saveStudents(ctx); err != nil {
		return academy.Student{}, err
	}
	return student, nil
}

// SetStudentStatus handles the manual transitions: exam_ready promotion
// and inactive marking. Debtor is derived and cannot be set by hand.
func (e *Engine) SetStudentStatus(ctx context.Context, actor academy.Actor, studentID academy.StudentID, status academy.StudentStatus) error {
	if err := requireMaster(actor, "setStudentStatus"); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	switch status {
	case academy.StatusActive, academy.StatusExamReady, academy.StatusInactive:
	default:
		return academy.NewValidationError("status", "cannot set status "+string(status)+" manually")
	}

	idx := e.studentIndex(studentID)
	if idx < 0 {
		return &academy.NotFoundError{Kind: "student", ID: string(studentID)}
	}
	e.students[idx].Status = status

	if err := e.saveStudents(ctx); err != nil {
		return err
	}
	// The ledger may immediately flip the new status (e.g. back to debtor).
	return e.recomputeBalances(ctx)
}

// Enroll adds the class to the student's enrollments. Students may enroll
// themselves.
func (e *Engine) Enroll(ctx context.Context, actor academy.Actor, studentID academy.StudentID, classID academy.ClassID) error {
	if err := requireMasterOrSelf(actor, studentID, "enroll"); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	idx := e.studentIndex(studentID)
	if idx < 0 {
		return &academy.NotFoundError{Kind: "student", ID: string(studentID)}
	}
	if e.classIndex(classID) < 0 {
		return &academy.NotFoundError{Kind: "class", ID: string(classID)}
	}
	if e.students[idx].EnrolledIn(classID) {
		return nil
	}
	e.students[idx].Enrollments = append(e.students[idx].Enrollments, classID)

	return e.saveStudents(ctx)
}

// Unenroll removes the class from the student's enrollments.
func (e *Engine) Unenroll(ctx context.Context, actor academy.Actor, studentID academy.StudentID, classID academy.ClassID) error {
	if err := requireMasterOrSelf(actor, studentID, "unenroll"); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	idx := e.studentIndex(studentID)
	if idx < 0 {
		return &academy.NotFoundError{Kind: "student", ID: string(studentID)}
	}
	var kept []academy.ClassID
	for _, id := range e.students[idx].Enrollments {
		if id != classID {
			kept = append(kept, id)
		}
	}
	if len(kept) == len(e.students[idx].Enrollments) {
		return nil
	}
	e.students[idx].Enrollments = kept

	return e.saveStudents(ctx)
}

// =============================================================================
// LEDGER COMMANDS
// =============================================================================

// RecordCharge appends a charge and recomputes balances.
func (e *Engine) RecordCharge(ctx context.Context, actor academy.Actor, studentID academy.StudentID, amount academy.Money, category string, date academy.Date) (ledger.Record, error) {
	if err := requireMaster(actor, "recordCharge"); err != nil {
		return ledger.Record{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.studentIndex(studentID) < 0 {
		return ledger.Record{}, &academy.NotFoundError{Kind: "student", ID: string(studentID)}
	}
	charge, err := ledger.NewCharge(e.academyID, studentID, amount, category, date)
	if err != nil {
		return ledger.Record{}, err
	}
	e.records = append(e.records, charge)

	if err := e.saveLedger(ctx); err != nil {
		return ledger.Record{}, err
	}
	return charge, e.recomputeBalances(ctx)
}

// RecordPayment appends a payment awaiting approval. Students may record
// their own payments.
func (e *Engine) RecordPayment(ctx context.Context, actor academy.Actor, studentID academy.StudentID, amount academy.Money, method string, date academy.Date) (ledger.Record, error) {
	if err := requireMasterOrSelf(actor, studentID, "recordPayment"); err != nil {
		return ledger.Record{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.studentIndex(studentID) < 0 {
		return ledger.Record{}, &academy.NotFoundError{Kind: "student", ID: string(studentID)}
	}
	payment, err := ledger.NewPayment(e.academyID, studentID, amount, method, date, false)
	if err != nil {
		return ledger.Record{}, err
	}
	e.records = append(e.records, payment)

	if err := e.saveLedger(ctx); err != nil {
		return ledger.Record{}, err
	}
	return payment, e.recomputeBalances(ctx)
}

// ApprovePayment moves a pending payment to paid.
func (e *Engine) ApprovePayment(ctx context.Context, actor academy.Actor, recordID academy.RecordID) error {
	return e.resolvePayment(ctx, actor, recordID, "approvePayment", ledger.Approve)
}

// RejectPayment moves a pending payment to rejected.
func (e *Engine) RejectPayment(ctx context.Context, actor academy.Actor, recordID academy.RecordID) error {
	return e.resolvePayment(ctx, actor, recordID, "rejectPayment", ledger.Reject)
}

func (e *Engine) resolvePayment(ctx context.Context, actor academy.Actor, recordID academy.RecordID, command string, op func([]ledger.Record, academy.RecordID) error) error {
	if err := requireMaster(actor, command); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := op(e.records, recordID); err != nil {
		return err
	}
	if err := e.saveLedger(ctx); err != nil {
		return err
	}
	return e.recomputeBalances(ctx)
}

// =============================================================================
// AUTOMATION COMMANDS
// =============================================================================

// RunMonthlyBilling triggers the billing pass manually. The per-month
// duplicate guard still applies, so a re-run inside one month is a no-op
// for already-charged students. Returns the number of charges created.
func (e *Engine) RunMonthlyBilling(ctx context.Context, actor academy.Actor) (int, error) {
	if err := requireMaster(actor, "runMonthlyBilling"); err != nil {
		return 0, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	today := e.now()
	charges := automation.GenerateMonthlyBilling(today, e.settings.Payments, e.students, e.records)
	e.marks.LastBillingRun = &today
	return len(charges), e.applyAutomationCharges(ctx, charges)
}

// RunLateFees triggers the late-fee pass manually, with the same
// per-month duplicate guard as billing.
func (e *Engine) RunLateFees(ctx context.Context, actor academy.Actor) (int, error) {
	if err := requireMaster(actor, "runLateFees"); err != nil {
		return 0, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	today := e.now()
	fees := automation.ApplyLateFees(today, e.settings.Payments, e.students, e.records)
	e.marks.LastFeeRun = &today
	return len(fees), e.applyAutomationCharges(ctx, fees)
}

// EvaluateAutomation runs the watermark-gated scheduler evaluation. It is
// invoked on startup and on every sync tick, and is a no-op when neither
// cadence is due.
func (e *Engine) EvaluateAutomation(ctx context.Context) (automation.Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	res := automation.Evaluate(automation.Input{
		Today:    e.now(),
		Settings: e.settings.Payments,
		Students: e.students,
		Records:  e.records,
		Marks:    e.marks,
	})
	if !res.BillingRan && !res.FeesRan {
		return res, nil
	}

	e.marks = res.Marks
	return res, e.applyAutomationCharges(ctx, res.Created)
}

// applyAutomationCharges appends a batch of generated charges, persists
// the ledger and watermarks, and recomputes. Callers hold the lock and
// have already advanced the relevant watermark.
func (e *Engine) applyAutomationCharges(ctx context.Context, charges []ledger.Record) error {
	e.records = append(e.records, charges...)
	if len(charges) > 0 {
		if err := e.saveLedger(ctx); err != nil {
			return err
		}
	}
	e.marks.AcademyID = e.academyID
	e.markWrite()
	if err := e.store.SaveWatermarks(ctx, e.academyID, e.marks); err != nil {
		return err
	}
	return e.recomputeBalances(ctx)
}

// =============================================================================
// SETTINGS COMMANDS
// =============================================================================

// UpdatePaymentTriggerDays changes the billing/late-fee trigger days.
// Rejects lateFeeDay <= billingDay before anything persists.
func (e *Engine) UpdatePaymentTriggerDays(ctx context.Context, actor academy.Actor, billingDay, lateFeeDay int) error {
	if err := requireMaster(actor, "updatePaymentTriggerDays"); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	updated := e.settings.Payments
	updated.BillingDay = billingDay
	updated.LateFeeDay = lateFeeDay
	if err := updated.Validate(); err != nil {
		return err
	}
	e.settings.Payments = updated

	e.markWrite()
	return e.store.SaveSettings(ctx, e.academyID, e.settings)
}

// UpdatePaymentAmounts changes the tuition and late-fee amounts.
func (e *Engine) UpdatePaymentAmounts(ctx context.Context, actor academy.Actor, tuition, lateFee academy.Money) error {
	if err := requireMaster(actor, "updatePaymentAmounts"); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	updated := e.settings.Payments
	updated.MonthlyTuition = tuition
	updated.LateFeeAmount = lateFee
	if err := updated.Validate(); err != nil {
		return err
	}
	e.settings.Payments = updated

	e.markWrite()
	return e.store.SaveSettings(ctx, e.academyID, e.settings)
}

// =============================================================================
// QUERIES - Read-only projections
// =============================================================================

// Calendar returns the materialized instance set for the rolling window.
func (e *Engine) Calendar() []schedule.CalendarInstance {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]schedule.CalendarInstance, len(e.instances))
	copy(out, e.instances)
	return out
}

// Balances returns every student's derived balance, sorted by student id.
func (e *Engine) Balances() []ledger.StudentBalance {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]ledger.StudentBalance, 0, len(e.balances))
	for _, b := range e.balances {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StudentID < out[j].StudentID })
	return out
}

// Balance returns one student's derived balance.
func (e *Engine) Balance(studentID academy.StudentID) (ledger.StudentBalance, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	b, ok := e.balances[studentID]
	if !ok {
		return ledger.StudentBalance{}, &academy.NotFoundError{Kind: "student", ID: string(studentID)}
	}
	return b, nil
}

// LedgerRecords returns the ledger, optionally filtered by student and/or
// calendar month.
func (e *Engine) LedgerRecords(studentID academy.StudentID, month *academy.Date) []ledger.Record {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]ledger.Record, len(e.records))
	copy(out, e.records)
	if studentID != "" {
		out = ledger.ForStudent(out, studentID)
	}
	if month != nil {
		out = ledger.InMonth(out, *month)
	}
	return out
}

func (e *Engine) Students() []academy.Student {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]academy.Student, len(e.students))
	copy(out, e.students)
	return out
}

func (e *Engine) Classes() []schedule.ClassDefinition {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]schedule.ClassDefinition, len(e.classes))
	copy(out, e.classes)
	return out
}

func (e *Engine) Events() []schedule.OneOffEvent {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]schedule.OneOffEvent, len(e.events))
	copy(out, e.events)
	return out
}

func (e *Engine) Settings() academy.Settings {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.settings
}

func (e *Engine) Watermarks() automation.Watermarks {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.marks
}

// =============================================================================
// INTERNALS - Derived recomputation and write-through
// =============================================================================

// rematerialize regenerates the full calendar projection. Callers hold
// the lock.
func (e *Engine) rematerialize() {
	e.instances = schedule.Materialize(
		schedule.Snapshot{Classes: e.classes, Events: e.events},
		schedule.RollingWindow(e.now()),
	)
}

// recomputeBalances re-runs the ledger fold and applies status flips to
// the roster, persisting the roster when any status changed. Callers hold
// the lock.
func (e *Engine) recomputeBalances(ctx context.Context) error {
	e.balances = ledger.Recompute(e.students, e.records)

	changed := false
	for i := range e.students {
		if b, ok := e.balances[e.students[i].ID]; ok && b.Status != e.students[i].Status {
			e.students[i].Status = b.Status
			changed = true
		}
	}
	if changed {
		return e.saveStudents(ctx)
	}
	return nil
}

func (e *Engine) saveStudents(ctx context.Context) error {
	e.markWrite()
	return e.store.SaveStudents(ctx, e.academyID, e.students)
}

func (e *Engine) saveClasses(ctx context.Context) error {
	e.markWrite()
	return e.store.SaveClasses(ctx, e.academyID, e.classes)
}

func (e *Engine) saveEvents(ctx context.Context) error {
	e.markWrite()
	return e.store.SaveEvents(ctx, e.academyID, e.events)
}

func (e *Engine) saveLedger(ctx context.Context) error {
	e.markWrite()
	return e.store.SaveLedger(ctx, e.academyID, e.records)
}

func (e *Engine) markWrite() {
	e.lastWrite = time.Now()
}

func (e *Engine) classIndex(id academy.ClassID) int {
	for i := range e.classes {
		if e.classes[i].ID == id {
			return i
		}
	}
	return -1
}

func (e *Engine) studentIndex(id academy.StudentID) int {
	for i := range e.students {
		if e.students[i].ID == id {
			return i
		}
	}
	return -1
}
