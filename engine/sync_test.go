package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dojokit/academy-engine/academy"
	"github.com/dojokit/academy-engine/ledger"
	"github.com/dojokit/academy-engine/schedule"
	"github.com/dojokit/academy-engine/storage"
)

// =============================================================================
// TEST SETUP
// =============================================================================

var syncToday = academy.NewDate(2025, time.March, 5) // Wednesday

// twoSessions returns two engines sharing one store, modelling two open
// sessions of the same academy.
func twoSessions(t *testing.T) (*Engine, *Engine) {
	t.Helper()
	store := storage.NewMemory()
	clock := func() academy.Date { return syncToday }

	a := New(store, "dojo", WithClock(clock))
	require.NoError(t, a.Load(context.Background()))
	b := New(store, "dojo", WithClock(clock))
	require.NoError(t, b.Load(context.Background()))
	return a, b
}

var syncMaster = academy.Actor{ID: "sensei", Role: academy.RoleMaster}

// =============================================================================
// PULL / DIFF / MERGE
// =============================================================================

func TestSync_PullPicksUpRemoteWrites(t *testing.T) {
	// GIVEN: Session B defines a class and registers a debtor
	// WHEN: Session A pulls once
	// THEN: A's calendar and balances reflect B's writes

	a, b := twoSessions(t)
	ctx := context.Background()

	_, err := b.DefineClass(ctx, syncMaster, schedule.ClassDefinition{
		ID:        "class-tkd",
		Name:      "Taekwondo",
		Weekdays:  []time.Weekday{time.Wednesday},
		StartTime: academy.ClockTime{Hour: 18},
		EndTime:   academy.ClockTime{Hour: 19},
	})
	require.NoError(t, err)
	_, err = b.RegisterStudent(ctx, syncMaster, academy.Student{ID: "student-1", Name: "Ana"})
	require.NoError(t, err)
	_, err = b.RecordCharge(ctx, syncMaster, "student-1", academy.NewMoney(100), ledger.CategoryTuition, syncToday)
	require.NoError(t, err)

	assert.Empty(t, a.Calendar(), "A has not pulled yet")

	sc := NewSyncCoordinator(a, time.Second)
	sc.Automation = false
	require.NoError(t, sc.PullOnce(ctx))

	assert.NotEmpty(t, a.Calendar())
	bal, err := a.Balance("student-1")
	require.NoError(t, err)
	assert.Equal(t, academy.StatusDebtor, bal.Status)
	assert.True(t, bal.Balance.Equal(academy.NewMoney(100)))
}

func TestSync_UnchangedPull_KeepsProjections(t *testing.T) {
	// GIVEN: Two sessions in sync
	// WHEN: Pulling with nothing changed
	// THEN: The structural diff finds no difference and projections are
	//       structurally identical across the pull

	a, b := twoSessions(t)
	ctx := context.Background()

	_, err := b.DefineClass(ctx, syncMaster, schedule.ClassDefinition{
		ID:        "class-tkd",
		Name:      "Taekwondo",
		Weekdays:  []time.Weekday{time.Wednesday},
		StartTime: academy.ClockTime{Hour: 18},
		EndTime:   academy.ClockTime{Hour: 19},
	})
	require.NoError(t, err)

	sc := NewSyncCoordinator(a, time.Second)
	sc.Automation = false
	require.NoError(t, sc.PullOnce(ctx))
	before := a.Calendar()

	require.NoError(t, sc.PullOnce(ctx))
	assert.Equal(t, before, a.Calendar())
}

// =============================================================================
// STALENESS GUARD
// =============================================================================

func TestSync_StalePullDiscarded(t *testing.T) {
	// GIVEN: A pull snapshot taken before a local write landed
	// WHEN: Applying the snapshot
	// THEN: The whole snapshot is discarded; the local write survives

	a, b := twoSessions(t)
	ctx := context.Background()

	_, err := b.RegisterStudent(ctx, syncMaster, academy.Student{ID: "student-remote", Name: "Remote"})
	require.NoError(t, err)

	snap, err := a.pullSnapshot(ctx)
	require.NoError(t, err)

	// Local mutation lands after the snapshot started.
	_, err = a.RegisterStudent(ctx, syncMaster, academy.Student{ID: "student-local", Name: "Local"})
	require.NoError(t, err)

	applied := a.applyPull(ctx, snap)
	assert.False(t, applied)

	students := a.Students()
	require.Len(t, students, 1)
	assert.Equal(t, academy.StudentID("student-local"), students[0].ID)
}

func TestSync_NextPullAppliesAfterGuardWindow(t *testing.T) {
	// The discarded snapshot's successor pulls fresh state, which now
	// includes the local write (write-through) plus the remote one.

	a, b := twoSessions(t)
	ctx := context.Background()

	_, err := a.RegisterStudent(ctx, syncMaster, academy.Student{ID: "student-local", Name: "Local"})
	require.NoError(t, err)

	// Remote session pulls first so its write-through does not clobber
	// A's roster. Memory store serializes; last write wins per collection.
	sc := NewSyncCoordinator(b, time.Second)
	sc.Automation = false
	require.NoError(t, sc.PullOnce(ctx))
	_, err = b.RegisterStudent(ctx, syncMaster, academy.Student{ID: "student-remote", Name: "Remote"})
	require.NoError(t, err)

	scA := NewSyncCoordinator(a, time.Second)
	scA.Automation = false
	require.NoError(t, scA.PullOnce(ctx))

	assert.Len(t, a.Students(), 2)
}

// =============================================================================
// COORDINATOR LIFECYCLE
// =============================================================================

func TestSyncCoordinator_StartStop(t *testing.T) {
	a, _ := twoSessions(t)

	sc := NewSyncCoordinator(a, 10*time.Millisecond)
	sc.Automation = false
	sc.Start()
	sc.Start() // second start is a no-op

	time.Sleep(35 * time.Millisecond) // a few ticks
	sc.Stop()
	sc.Stop() // second stop is a no-op
}

func TestSyncCoordinator_DefaultInterval(t *testing.T) {
	a, _ := twoSessions(t)
	sc := NewSyncCoordinator(a, 0)
	assert.Equal(t, DefaultSyncInterval, sc.interval)
}
