package storage

import (
	"context"
	"sync"

	"github.com/dojokit/academy-engine/academy"
	"github.com/dojokit/academy-engine/automation"
	"github.com/dojokit/academy-engine/ledger"
	"github.com/dojokit/academy-engine/schedule"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (tests/dev)
// =============================================================================

// Memory implements Store with per-academy maps. Reads return copies so
// callers never alias the stored slices.
type Memory struct {
	mu         sync.RWMutex
	students   map[academy.AcademyID][]academy.Student
	classes    map[academy.AcademyID][]schedule.ClassDefinition
	events     map[academy.AcademyID][]schedule.OneOffEvent
	records    map[academy.AcademyID][]ledger.Record
	settings   map[academy.AcademyID]academy.Settings
	watermarks map[academy.AcademyID]automation.Watermarks
}

func NewMemory() *Memory {
	return &Memory{
		students:   make(map[academy.AcademyID][]academy.Student),
		classes:    make(map[academy.AcademyID][]schedule.ClassDefinition),
		events:     make(map[academy.AcademyID][]schedule.OneOffEvent),
		records:    make(map[academy.AcademyID][]ledger.Record),
		settings:   make(map[academy.AcademyID]academy.Settings),
		watermarks: make(map[academy.AcademyID]automation.Watermarks),
	}
}

func (m *Memory) LoadStudents(_ context.Context, id academy.AcademyID) ([]academy.Student, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return copyStudents(m.students[id]), nil
}

func (m *Memory) SaveStudents(_ context.Context, id academy.AcademyID, students []academy.Student) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.students[id] = copyStudents(students)
	return nil
}

func (m *Memory) LoadClasses(_ context.Context, id academy.AcademyID) ([]schedule.ClassDefinition, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return copyClasses(m.classes[id]), nil
}

func (m *Memory) SaveClasses(_ context.Context, id academy.AcademyID, classes []schedule.ClassDefinition) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.classes[id] = copyClasses(classes)
	return nil
}

func (m *Memory) LoadEvents(_ context.Context, id academy.AcademyID) ([]schedule.OneOffEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return copySlice(m.events[id]), nil
}

func (m *Memory) SaveEvents(_ context.Context, id academy.AcademyID, events []schedule.OneOffEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events[id] = copySlice(events)
	return nil
}

func (m *Memory) LoadLedger(_ context.Context, id academy.AcademyID) ([]ledger.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return copySlice(m.records[id]), nil
}

func (m *Memory) SaveLedger(_ context.Context, id academy.AcademyID, records []ledger.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[id] = copySlice(records)
	return nil
}

func (m *Memory) LoadSettings(_ context.Context, id academy.AcademyID) (*academy.Settings, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.settings[id]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (m *Memory) SaveSettings(_ context.Context, id academy.AcademyID, settings academy.Settings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settings[id] = settings
	return nil
}

func (m *Memory) LoadWatermarks(_ context.Context, id academy.AcademyID) (*automation.Watermarks, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	w, ok := m.watermarks[id]
	if !ok {
		return nil, nil
	}
	return &w, nil
}

func (m *Memory) SaveWatermarks(_ context.Context, id academy.AcademyID, marks automation.Watermarks) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.watermarks[id] = marks
	return nil
}

func (m *Memory) Close() error { return nil }

func copySlice[T any](in []T) []T {
	if in == nil {
		return nil
	}
	out := make([]T, len(in))
	copy(out, in)
	return out
}

// Students and classes embed slices of their own (enrollments,
// exceptions); copy those too so callers never alias stored state.

func copyStudents(in []academy.Student) []academy.Student {
	out := copySlice(in)
	for i := range out {
		out[i].Enrollments = copySlice(out[i].Enrollments)
	}
	return out
}

func copyClasses(in []schedule.ClassDefinition) []schedule.ClassDefinition {
	out := copySlice(in)
	for i := range out {
		out[i].Weekdays = copySlice(out[i].Weekdays)
		out[i].Exceptions = copySlice(out[i].Exceptions)
	}
	return out
}
