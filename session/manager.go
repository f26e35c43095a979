package session

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"attendance/clock"
)

// Manager keeps one Machine per device id. A machine is only created when a
// device selects an employee, so anonymous polling holds no memory.
type Manager struct {
	opts Options

	mu       sync.Mutex
	machines map[string]*managed
}

type managed struct {
	machine  *Machine
	lastUsed time.Time
}

func NewManager(opts Options) *Manager {
	return &Manager{opts: opts.withDefaults(), machines: make(map[string]*managed)}
}

// Select selects employeeID on the device's session, creating the session if
// the selection succeeds.
func (m *Manager) Select(ctx context.Context, deviceID, employeeID string) (*Machine, error) {
	if mc, ok := m.Lookup(deviceID); ok {
		return mc, mc.SelectEmployee(ctx, employeeID)
	}

	mc := New(m.opts)
	if err := mc.SelectEmployee(ctx, employeeID); err != nil {
		return nil, err
	}

	m.mu.Lock()
	if existing, ok := m.machines[deviceID]; ok {
		// Another request for the same device won the race.
		existing.lastUsed = m.opts.Clock.Now()
		m.mu.Unlock()
		return existing.machine, existing.machine.SelectEmployee(ctx, employeeID)
	}
	m.machines[deviceID] = &managed{machine: mc, lastUsed: m.opts.Clock.Now()}
	m.mu.Unlock()
	return mc, nil
}

// Lookup returns the device's session if it has one.
func (m *Manager) Lookup(deviceID string) (*Machine, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.machines[deviceID]
	if !ok {
		return nil, false
	}
	entry.lastUsed = m.opts.Clock.Now()
	return entry.machine, true
}

// Snapshot returns the device's session, or an idle one for a device that has
// never selected an employee.
func (m *Manager) Snapshot(deviceID string) Snapshot {
	if mc, ok := m.Lookup(deviceID); ok {
		return mc.Snapshot()
	}
	today := clock.DateKey(m.opts.Clock.Now(), m.opts.Location)
	return Snapshot{
		State:         Idle,
		Today:         today,
		NonWorkingDay: m.opts.Calendar.IsNonWorkingDay(today),
	}
}

func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.machines)
}

// Sweep drops sessions unused for ttl that have no shift in progress and
// returns how many were dropped.
func (m *Manager) Sweep(ttl time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := m.opts.Clock.Now().Add(-ttl)
	n := 0
	for id, entry := range m.machines {
		if entry.lastUsed.After(cutoff) {
			continue
		}
		switch entry.machine.State() {
		case ShiftActive, OnBreak:
			continue
		}
		delete(m.machines, id)
		n++
	}
	return n
}

// Run sweeps every interval until ctx is done.
func (m *Manager) Run(ctx context.Context, interval, ttl time.Duration) {
	ticker := m.opts.Clock.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := m.Sweep(ttl); n > 0 {
				m.opts.Logger.Debug("idle sessions evicted", zap.Int("count", n), zap.Int("remaining", m.Len()))
			}
		}
	}
}

// Close ends every active break and stops every pending timer.
func (m *Manager) Close(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, entry := range m.machines {
		entry.machine.Close(ctx)
	}
}
