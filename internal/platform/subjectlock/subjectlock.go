// Package subjectlock serializes engine work per subject. The lifecycle
// check-then-insert and the ledger read-modify-write both race under
// concurrent passes for the same subject; a keyed mutex removes the race
// without any cross-subject contention.
package subjectlock

import (
	"sync"

	id "trailguard/pkg/domain"
)

// KeyedMutex provides one mutex per subject, created on first use. Entries
// are never removed: the tracked-subject population is small and bounded by
// the identity system upstream.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[id.SubjectID]*sync.Mutex
}

func New() *KeyedMutex {
	return &KeyedMutex{locks: make(map[id.SubjectID]*sync.Mutex)}
}

// Lock acquires the subject's mutex, returning the unlock function.
//
//	defer locks.Lock(subjectID)()
func (k *KeyedMutex) Lock(subjectID id.SubjectID) func() {
	k.mu.Lock()
	m, ok := k.locks[subjectID]
	if !ok {
		m = &sync.Mutex{}
		k.locks[subjectID] = m
	}
	k.mu.Unlock()

	m.Lock()
	return m.Unlock
}
