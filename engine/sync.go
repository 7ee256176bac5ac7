/*
sync.go - Periodic pull / diff / merge against the authoritative store

PURPOSE:
  Background pulls are the only mechanism for observing another session's
  writes. On a fixed interval the coordinator pulls every collection,
  structurally compares each to the local cache, and replaces only the
  collections that actually differ, re-running the derived computations
  that depend on them.

GUARDS:
  1. Overlap guard: a tick is skipped while the previous pull is still
     in flight. An in-flight pull cannot be cancelled, only superseded.
  2. Staleness guard: a pull snapshot is timestamped when it starts; if a
     local mutation lands after that instant, the whole snapshot is
     discarded rather than allowed to overwrite the just-completed write.
     The next tick pulls fresh state, closing the guard window shortly
     after the pull completes.

FAILURES:
  A failed pull is logged and skipped; the next tick retries. Nothing is
  fatal.

SEE ALSO:
  - engine.go: markWrite / lastWrite bookkeeping
  - storage/storage.go: The pull source
*/
package engine

import (
	"context"
	"log"
	"reflect"
	"sync"
	"time"

	"github.com/dojokit/academy-engine/academy"
	"github.com/dojokit/academy-engine/automation"
	"github.com/dojokit/academy-engine/ledger"
	"github.com/dojokit/academy-engine/schedule"
)

// DefaultSyncInterval is how often a session pulls the shared store.
const DefaultSyncInterval = 5 * time.Second

// =============================================================================
// SYNC COORDINATOR
// =============================================================================

type SyncCoordinator struct {
	engine   *Engine
	interval time.Duration

	// EvaluateAutomation runs after each applied pull when true.
	Automation bool

	ticker  *time.Ticker
	stop    chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex
	pulling bool
	started bool
}

func NewSyncCoordinator(e *Engine, interval time.Duration) *SyncCoordinator {
	if interval <= 0 {
		interval = DefaultSyncInterval
	}
	return &SyncCoordinator{
		engine:     e,
		interval:   interval,
		Automation: true,
		stop:       make(chan struct{}),
	}
}

// Start begins the periodic pull loop.
func (sc *SyncCoordinator) Start() {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	if sc.started {
		return
	}
	sc.started = true
	sc.stop = make(chan struct{})
	sc.ticker = time.NewTicker(sc.interval)
	sc.wg.Add(1)
	go sc.run()
	log.Printf("[Sync] Started with interval %v", sc.interval)
}

// Stop halts the loop and waits for any in-flight pull to finish. The
// mutex is released before waiting; an in-flight tick needs it to exit.
func (sc *SyncCoordinator) Stop() {
	sc.mu.Lock()
	if !sc.started {
		sc.mu.Unlock()
		return
	}
	sc.started = false
	sc.ticker.Stop()
	close(sc.stop)
	sc.mu.Unlock()

	sc.wg.Wait()
	log.Println("[Sync] Stopped")
}

func (sc *SyncCoordinator) run() {
	defer sc.wg.Done()
	for {
		select {
		case <-sc.ticker.C:
			sc.tick()
		case <-sc.stop:
			return
		}
	}
}

func (sc *SyncCoordinator) tick() {
	sc.mu.Lock()
	if sc.pulling {
		sc.mu.Unlock()
		return // previous pull still in flight
	}
	sc.pulling = true
	sc.mu.Unlock()

	defer func() {
		sc.mu.Lock()
		sc.pulling = false
		sc.mu.Unlock()
	}()

	if err := sc.PullOnce(context.Background()); err != nil {
		log.Printf("[Sync] Pull failed: %v", err)
	}
}

// PullOnce performs one pull-diff-merge cycle. Exported for tests and for
// an immediate pull on startup.
func (sc *SyncCoordinator) PullOnce(ctx context.Context) error {
	snap, err := sc.engine.pullSnapshot(ctx)
	if err != nil {
		return err
	}
	applied := sc.engine.applyPull(ctx, snap)
	if applied && sc.Automation {
		if _, err := sc.engine.EvaluateAutomation(ctx); err != nil {
			log.Printf("[Sync] Automation evaluation failed: %v", err)
		}
	}
	return nil
}

// =============================================================================
// PULL SNAPSHOT
// =============================================================================

type pullSnapshot struct {
	startedAt time.Time
	students  []academy.Student
	classes   []schedule.ClassDefinition
	events    []schedule.OneOffEvent
	records   []ledger.Record
	settings  *academy.Settings
	marks     *automation.Watermarks
}

// pullSnapshot reads every collection without holding the engine lock;
// the staleness check happens at apply time.
func (e *Engine) pullSnapshot(ctx context.Context) (pullSnapshot, error) {
	snap := pullSnapshot{startedAt: time.Now()}

	var err error
	if snap.students, err = e.store.LoadStudents(ctx, e.academyID); err != nil {
		return snap, err
	}
	if snap.classes, err = e.store.LoadClasses(ctx, e.academyID); err != nil {
		return snap, err
	}
	if snap.events, err = e.store.LoadEvents(ctx, e.academyID); err != nil {
		return snap, err
	}
	if snap.records, err = e.store.LoadLedger(ctx, e.academyID); err != nil {
		return snap, err
	}
	if snap.settings, err = e.store.LoadSettings(ctx, e.academyID); err != nil {
		return snap, err
	}
	if snap.marks, err = e.store.LoadWatermarks(ctx, e.academyID); err != nil {
		return snap, err
	}
	return snap, nil
}

// applyPull merges a pulled snapshot into the cache. Returns false when
// the snapshot was discarded as stale.
func (e *Engine) applyPull(ctx context.Context, snap pullSnapshot) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	// Staleness guard: a local write after the pull started wins.
	if e.lastWrite.After(snap.startedAt) {
		log.Println("[Sync] Discarding stale pull (local write in flight)")
		return false
	}

	scheduleChanged := false
	ledgerChanged := false

	if !reflect.DeepEqual(e.students, snap.students) {
		e.students = snap.students
		ledgerChanged = true
	}
	if !reflect.DeepEqual(e.classes, snap.classes) {
		e.classes = snap.classes
		scheduleChanged = true
	}
	if !reflect.DeepEqual(e.events, snap.events) {
		e.events = snap.events
		scheduleChanged = true
	}
	if !reflect.DeepEqual(e.records, snap.records) {
		e.records = snap.records
		ledgerChanged = true
	}
	if snap.settings != nil && !reflect.DeepEqual(e.settings, *snap.settings) {
		e.settings = *snap.settings
	}
	if snap.marks != nil && !reflect.DeepEqual(e.marks, *snap.marks) {
		e.marks = *snap.marks
	}

	if scheduleChanged {
		e.rematerialize()
	}
	if ledgerChanged {
		// Balance fold only; the remote session already persisted its
		// own status flips, so recompute without write-through here.
		e.balances = ledger.Recompute(e.students, e.records)
		for i := range e.students {
			if b, ok := e.balances[e.students[i].ID]; ok {
				e.students[i].Status = b.Status
			}
		}
	}
	return true
}
