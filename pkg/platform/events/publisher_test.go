package events

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "trailguard/pkg/domain"
)

func TestPublisher_SyncMode(t *testing.T) {
	store := NewInMemoryStore()
	pub := NewPublisher(store)
	defer pub.Close()

	subjectID := id.SubjectID("subject-1")
	err := pub.Emit(context.Background(), Event{
		SubjectID: subjectID,
		Action:    ActionAnomalyCreated,
	})
	require.NoError(t, err)

	got, err := store.ListBySubject(context.Background(), subjectID)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, ActionAnomalyCreated, got[0].Action)
}

func TestPublisher_AsyncDrainsOnClose(t *testing.T) {
	store := NewInMemoryStore()
	pub := NewPublisher(store, WithAsyncBuffer(100))

	subjectID := id.SubjectID("subject-2")
	for i := 0; i < 10; i++ {
		err := pub.Emit(context.Background(), Event{
			SubjectID: subjectID,
			Action:    ActionScoreAdjusted,
		})
		require.NoError(t, err)
	}

	// Close should drain all queued events.
	pub.Close()

	got, err := store.ListBySubject(context.Background(), subjectID)
	require.NoError(t, err)
	assert.Len(t, got, 10, "all events should be drained on close")
}

func TestPublisher_BufferFull_DropsInsteadOfBlocking(t *testing.T) {
	store := NewInMemoryStore()
	pub := NewPublisher(store, WithAsyncBuffer(1))
	defer pub.Close()

	subjectID := id.SubjectID("subject-3")
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = pub.Emit(context.Background(), Event{
				SubjectID: subjectID,
				Action:    ActionAnomalyCreated,
			})
		}()
	}
	wg.Wait()
	// Overflow is dropped; the only guarantee is that Emit never blocks.
}

func TestPublisher_SetsTimestamp(t *testing.T) {
	store := NewInMemoryStore()
	pub := NewPublisher(store)
	defer pub.Close()

	subjectID := id.SubjectID("subject-4")
	before := time.Now()
	err := pub.Emit(context.Background(), Event{
		SubjectID: subjectID,
		Action:    ActionAnomalyResolved,
	})
	require.NoError(t, err)

	got, err := store.ListBySubject(context.Background(), subjectID)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.False(t, got[0].Timestamp.Before(before), "timestamp should default to emission time")
}
