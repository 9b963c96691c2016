package notify

import "sync"

// Detector implements the unread-delta rule shared with the polling client:
// an alert fires if and only if the count increased over a previously
// observed value. The first observation for a user arms the detector without
// firing, so a fresh session never alerts on pre-existing unread messages.
// Multiple messages arriving between two observations coalesce into one
// alert; a drop (mark-read) re-arms the next increase.
type Detector struct {
	mu   sync.Mutex
	last map[int]int
}

// NewDetector creates an empty detector.
func NewDetector() *Detector {
	return &Detector{last: make(map[int]int)}
}

// Observe records a fresh unread count for the user and reports whether an
// alert should fire.
func (d *Detector) Observe(userID, count int) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	prev, seen := d.last[userID]
	d.last[userID] = count
	return seen && count > prev
}

// Forget drops the user's state, e.g. on logout.
func (d *Detector) Forget(userID int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.last, userID)
}
