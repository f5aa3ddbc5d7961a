// Package progress implements a hierarchical progress tracker. Long
// operations hold a tracker; sub-operations get child trackers whose
// advancement rolls up into a fixed share of the parent's steps, so a
// single observer sees smooth overall progress regardless of nesting.
package progress

import "sync"

// Callback observes tracker advancement. Calls on one tracker are
// serialized; callbacks must not call back into the same tracker.
type Callback func(current, total float64, description string, data map[string]any)

// Tracker counts progress toward a fixed number of steps. Safe for
// concurrent use.
type Tracker struct {
	mu          sync.Mutex
	total       float64
	current     float64
	callback    Callback
	parent      *Tracker
	parentSteps float64
}

// NewTracker creates a root tracker over total steps. A nil callback
// is allowed; the tracker then only aggregates for its children.
func NewTracker(total float64, callback Callback) *Tracker {
	if total <= 0 {
		total = 1
	}
	return &Tracker{total: total, callback: callback}
}

// Child creates a nested tracker. Completing all of the child's total
// steps advances this tracker by parentSteps.
func (t *Tracker) Child(total, parentSteps float64) *Tracker {
	child := NewTracker(total, nil)
	child.parent = t
	child.parentSteps = parentSteps
	return child
}

// Update advances the tracker by steps and notifies the callback and
// parent. Progress never exceeds the total: excess advancement clamps.
func (t *Tracker) Update(steps float64, description string, data map[string]any) {
	t.mu.Lock()
	if steps < 0 {
		steps = 0
	}
	if t.current+steps > t.total {
		steps = t.total - t.current
	}
	t.current += steps
	current, total := t.current, t.total
	if t.callback != nil {
		t.callback(current, total, description, data)
	}
	parent, parentSteps := t.parent, t.parentSteps
	t.mu.Unlock()

	if parent != nil && steps > 0 {
		forwarded := make(map[string]any, len(data)+2)
		for k, v := range data {
			forwarded[k] = v
		}
		forwarded["child_current"] = current
		forwarded["child_total"] = total
		parent.Update(steps/total*parentSteps, description, forwarded)
	}
}

// Complete advances the tracker to its total.
func (t *Tracker) Complete(description string) {
	t.mu.Lock()
	remaining := t.total - t.current
	t.mu.Unlock()
	if remaining > 0 {
		t.Update(remaining, description, nil)
	}
}

// Current returns the current and total step counts.
func (t *Tracker) Current() (current, total float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current, t.total
}
