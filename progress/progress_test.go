package progress

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type update struct {
	current, total float64
	description    string
}

func recordingCallback(updates *[]update) Callback {
	return func(current, total float64, description string, data map[string]any) {
		*updates = append(*updates, update{current, total, description})
	}
}

func TestTrackerUpdate(t *testing.T) {
	var updates []update
	tracker := NewTracker(4, recordingCallback(&updates))

	tracker.Update(1, "first", nil)
	tracker.Update(2, "second", nil)

	require.Len(t, updates, 2)
	assert.Equal(t, update{1, 4, "first"}, updates[0])
	assert.Equal(t, update{3, 4, "second"}, updates[1])
}

func TestTrackerClampsAtTotal(t *testing.T) {
	var updates []update
	tracker := NewTracker(2, recordingCallback(&updates))

	tracker.Update(5, "overshoot", nil)
	current, total := tracker.Current()
	assert.Equal(t, 2.0, current)
	assert.Equal(t, 2.0, total)
	require.Len(t, updates, 1)
	assert.Equal(t, 2.0, updates[0].current)
}

func TestChildForwardsToParent(t *testing.T) {
	var updates []update
	parent := NewTracker(10, recordingCallback(&updates))

	// The child's 4 steps are worth 2 parent steps.
	child := parent.Child(4, 2)
	child.Update(2, "halfway", nil)

	require.Len(t, updates, 1)
	assert.Equal(t, 1.0, updates[0].current)
	assert.Equal(t, 10.0, updates[0].total)
	assert.Equal(t, "halfway", updates[0].description)

	child.Complete("done")
	current, _ := parent.Current()
	assert.Equal(t, 2.0, current)
}

func TestChildBundlesProgressData(t *testing.T) {
	var got map[string]any
	parent := NewTracker(1, func(current, total float64, description string, data map[string]any) {
		got = data
	})

	child := parent.Child(2, 1)
	child.Update(1, "step", map[string]any{"detail": "x"})

	require.NotNil(t, got)
	assert.Equal(t, "x", got["detail"])
	assert.Equal(t, 1.0, got["child_current"])
	assert.Equal(t, 2.0, got["child_total"])
}

func TestCompleteIsIdempotent(t *testing.T) {
	var updates []update
	tracker := NewTracker(3, recordingCallback(&updates))

	tracker.Complete("done")
	tracker.Complete("done again")

	require.Len(t, updates, 1)
	current, _ := tracker.Current()
	assert.Equal(t, 3.0, current)
}

func TestConcurrentUpdates(t *testing.T) {
	var mu sync.Mutex
	var count int
	tracker := NewTracker(100, func(current, total float64, description string, data map[string]any) {
		mu.Lock()
		count++
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tracker.Update(1, "tick", nil)
		}()
	}
	wg.Wait()

	current, _ := tracker.Current()
	assert.Equal(t, 100.0, current)
	assert.Equal(t, 100, count)
}
