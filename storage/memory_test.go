package storage_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dojokit/academy-engine/academy"
	"github.com/dojokit/academy-engine/schedule"
	"github.com/dojokit/academy-engine/storage"
)

func TestMemory_ReadsNeverAliasStoredState(t *testing.T) {
	// GIVEN: A saved roster and class set
	// WHEN: The caller mutates the slices it saved or loaded
	// THEN: The stored state is unaffected - the store hands out copies,
	//       including the nested enrollment and exception slices

	store := storage.NewMemory()
	ctx := context.Background()

	students := []academy.Student{{
		ID:          "student-1",
		Name:        "Ana",
		Status:      academy.StatusActive,
		Enrollments: []academy.ClassID{"class-a"},
	}}
	require.NoError(t, store.SaveStudents(ctx, "dojo", students))

	// Mutate the slice we saved.
	students[0].Enrollments[0] = "class-tampered"

	loaded, err := store.LoadStudents(ctx, "dojo")
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, academy.ClassID("class-a"), loaded[0].Enrollments[0])

	// Mutate what we loaded; a reload must be untouched.
	loaded[0].Enrollments[0] = "class-tampered"
	reloaded, err := store.LoadStudents(ctx, "dojo")
	require.NoError(t, err)
	assert.Equal(t, academy.ClassID("class-a"), reloaded[0].Enrollments[0])
}

func TestMemory_ClassExceptionsCopied(t *testing.T) {
	store := storage.NewMemory()
	ctx := context.Background()

	classes := []schedule.ClassDefinition{{
		ID:        "class-a",
		Name:      "Adults",
		Weekdays:  []time.Weekday{time.Monday},
		StartTime: academy.ClockTime{Hour: 18},
		EndTime:   academy.ClockTime{Hour: 19},
		Exceptions: []schedule.SessionException{{
			Date: academy.NewDate(2025, time.March, 3),
			Kind: schedule.ExceptionCancel,
		}},
	}}
	require.NoError(t, store.SaveClasses(ctx, "dojo", classes))

	classes[0].Exceptions[0].Kind = schedule.ExceptionReschedule

	loaded, err := store.LoadClasses(ctx, "dojo")
	require.NoError(t, err)
	assert.Equal(t, schedule.ExceptionCancel, loaded[0].Exceptions[0].Kind)
}

func TestMemory_AcademiesIsolated(t *testing.T) {
	store := storage.NewMemory()
	ctx := context.Background()

	require.NoError(t, store.SaveStudents(ctx, "dojo-a",
		[]academy.Student{{ID: "student-1", Name: "Ana", Status: academy.StatusActive}}))

	other, err := store.LoadStudents(ctx, "dojo-b")
	require.NoError(t, err)
	assert.Nil(t, other)
}
