package watchfolder

import (
	"fmt"
	"sync"
	"time"
)

// FileStabilityCheck is the result of probing one candidate path (§4.7).
type FileStabilityCheck struct {
	Path   string
	Stable bool
	Reason string
}

// pathState is the per-path tracking StabilityTracker maintains across
// scans: last observed size and how many consecutive observations
// found it unchanged.
type pathState struct {
	lastSize    int64
	unchanged   int
	firstSeenAt time.Time
}

// StabilityTracker implements the §4.7 stability algorithm: a file
// must be at least minAge old AND its size unchanged across
// requiredStableChecks consecutive Observe calls. Any size change
// resets the counter.
type StabilityTracker struct {
	mu                   sync.Mutex
	minAge               time.Duration
	requiredStableChecks int
	state                map[string]*pathState
}

// NewStabilityTracker constructs a tracker with the §4.7 defaults
// (10s / 3 checks) when the zero value is passed for either.
func NewStabilityTracker(minAge time.Duration, requiredStableChecks int) *StabilityTracker {
	if minAge <= 0 {
		minAge = 10 * time.Second
	}
	if requiredStableChecks <= 0 {
		requiredStableChecks = 3
	}
	return &StabilityTracker{
		minAge:               minAge,
		requiredStableChecks: requiredStableChecks,
		state:                make(map[string]*pathState),
	}
}

// Observe records one size/mtime sample for path and reports whether
// it is now considered stable.
func (t *StabilityTracker) Observe(path string, size int64, modTime time.Time) FileStabilityCheck {
	t.mu.Lock()
	defer t.mu.Unlock()

	age := time.Since(modTime)
	if age < t.minAge {
		t.state[path] = &pathState{lastSize: size, unchanged: 0, firstSeenAt: modTime}
		return FileStabilityCheck{Path: path, Stable: false,
			Reason: fmt.Sprintf("file age %s below minimum %s", age.Round(time.Second), t.minAge)}
	}

	st, ok := t.state[path]
	if !ok || st.lastSize != size {
		t.state[path] = &pathState{lastSize: size, unchanged: 1, firstSeenAt: modTime}
		if t.requiredStableChecks <= 1 {
			return FileStabilityCheck{Path: path, Stable: true}
		}
		return FileStabilityCheck{Path: path, Stable: false,
			Reason: fmt.Sprintf("size changed or first observation, 1/%d stable checks", t.requiredStableChecks)}
	}

	st.unchanged++
	if st.unchanged >= t.requiredStableChecks {
		return FileStabilityCheck{Path: path, Stable: true}
	}
	return FileStabilityCheck{Path: path, Stable: false,
		Reason: fmt.Sprintf("%d/%d stable checks", st.unchanged, t.requiredStableChecks)}
}

// Forget drops tracking state for path, called once it has been
// ingested so a later re-creation at the same path starts fresh.
func (t *StabilityTracker) Forget(path string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.state, path)
}
