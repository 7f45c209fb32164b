// Package license resolves the process-local license tier and
// enforces per-tier worker admission at heartbeat time (§4.8),
// grounded on _examples/original_source/backend/licensing.
package license

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/Venkmine/proxyforge/internal/apperr"
	"github.com/Venkmine/proxyforge/internal/config"
	"github.com/Venkmine/proxyforge/internal/jobmodel"
)

// tierMaxWorkers hard-codes the §4.8 tier table: free->1,
// freelance->3, facility->unlimited (nil).
func tierMaxWorkers(tier jobmodel.LicenseTier) *int {
	one, three := 1, 3
	switch tier {
	case jobmodel.TierFree:
		return &one
	case jobmodel.TierFreelance:
		return &three
	case jobmodel.TierFacility:
		return nil
	default:
		return &one
	}
}

// fileLicense is the on-disk license file shape.
type fileLicense struct {
	Tier string `json:"tier"`
	Note string `json:"note"`
}

// Resolve determines the license once per process: environment
// variable, then file, then a hard default of free (§3: "Resolved
// once per process from environment then file then default; cached;
// never refetched").
func Resolve(cfg *config.LicenseConfig) *jobmodel.License {
	if tier, ok := config.LicenseTypeFromEnv(); ok {
		t := jobmodel.LicenseTier(tier)
		return &jobmodel.License{Tier: t, MaxWorkers: tierMaxWorkers(t), IssuedAt: time.Now(), Note: "resolved from FORGE_LICENSE_TYPE"}
	}

	if cfg != nil && cfg.FilePath != "" {
		if data, err := os.ReadFile(cfg.FilePath); err == nil {
			var fl fileLicense
			if json.Unmarshal(data, &fl) == nil && fl.Tier != "" {
				t := jobmodel.LicenseTier(fl.Tier)
				return &jobmodel.License{Tier: t, MaxWorkers: tierMaxWorkers(t), IssuedAt: time.Now(), Note: fl.Note}
			}
		}
	}

	return &jobmodel.License{Tier: jobmodel.TierFree, MaxWorkers: tierMaxWorkers(jobmodel.TierFree), IssuedAt: time.Now(), Note: "default"}
}

// RejectedWorker records an explicit admission refusal (§4.8), mirroring
// the original enforcer's RejectedWorker record type.
type RejectedWorker struct {
	WorkerID        string
	Reason          string
	RejectedAt      time.Time
	Tier            jobmodel.LicenseTier
	CurrentWorkers  int
	MaxWorkers      int
}

// Enforcer tracks the active/rejected worker sets for one license
// (§4.8, §5: "guarded for concurrent heartbeats").
type Enforcer struct {
	mu       sync.Mutex
	license  *jobmodel.License
	active   map[string]bool
	rejected map[string]RejectedWorker
}

// NewEnforcer wraps license with empty active/rejected sets.
func NewEnforcer(license *jobmodel.License) *Enforcer {
	return &Enforcer{
		license:  license,
		active:   make(map[string]bool),
		rejected: make(map[string]RejectedWorker),
	}
}

// Heartbeat admits or refuses workerID. Admission is instantaneous and
// lock-free with respect to any external call (§4.8); the internal
// mutex only serialises concurrent heartbeats against each other.
func (e *Enforcer) Heartbeat(workerID string) (admitted bool, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.active[workerID] {
		return true, nil
	}

	if e.license.MaxWorkers == nil || len(e.active) < *e.license.MaxWorkers {
		e.active[workerID] = true
		delete(e.rejected, workerID)
		return true, nil
	}

	max := 0
	if e.license.MaxWorkers != nil {
		max = *e.license.MaxWorkers
	}
	e.rejected[workerID] = RejectedWorker{
		WorkerID:       workerID,
		Reason:         "worker_limit_exceeded",
		RejectedAt:     time.Now(),
		Tier:           e.license.Tier,
		CurrentWorkers: len(e.active),
		MaxWorkers:     max,
	}
	return false, apperr.New(apperr.TagWorkerLimitExceeded,
		fmt.Sprintf("worker limit reached for license tier %q: active=%d max=%d", e.license.Tier, len(e.active), max)).
		WithContext("current_workers", len(e.active)).
		WithContext("max_workers", max)
}

// Deregister removes workerID from the active set on clean shutdown
// (§4.8).
func (e *Enforcer) Deregister(workerID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.active, workerID)
}

// ActiveCount returns the current admitted-worker count.
func (e *Enforcer) ActiveCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.active)
}

// Rejected returns a snapshot of every currently rejected worker.
func (e *Enforcer) Rejected() []RejectedWorker {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]RejectedWorker, 0, len(e.rejected))
	for _, r := range e.rejected {
		out = append(out, r)
	}
	return out
}

// License returns the enforced license value.
func (e *Enforcer) License() *jobmodel.License {
	return e.license
}
