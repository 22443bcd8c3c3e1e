//go:build integration

// Package containers manages shared test containers for integration suites.
// Containers start once per test process and are shared across suites; Ryuk
// terminates them when the process exits.
package containers

import (
	"sync"
	"testing"
)

// Manager hands out shared container instances.
type Manager struct {
	mu       sync.Mutex
	postgres *PostgresContainer
}

var manager = &Manager{}

// GetManager returns the process-wide container manager.
func GetManager() *Manager {
	return manager
}

// GetPostgres returns the shared PostgreSQL container, starting it on first
// use.
func (m *Manager) GetPostgres(t *testing.T) *PostgresContainer {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.postgres == nil {
		m.postgres = NewPostgresContainer(t)
	}
	return m.postgres
}
