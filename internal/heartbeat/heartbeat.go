// Package heartbeat owns the WorkerStatus lifecycle store used by the
// license enforcer and the monitoring surface (§3, §4.8).
package heartbeat

import (
	"time"

	"github.com/Venkmine/proxyforge/internal/jobmodel"
	"github.com/Venkmine/proxyforge/internal/license"
)

// StatusStore is the subset of store.Store heartbeat needs.
type StatusStore interface {
	SaveWorkerStatus(w *jobmodel.WorkerStatus) error
	ListWorkerStatus() ([]*jobmodel.WorkerStatus, error)
}

// Monitor tracks worker liveness and applies the license enforcer's
// admission decision to each heartbeat.
type Monitor struct {
	store           StatusStore
	enforcer        *license.Enforcer
	offlineThreshold time.Duration
}

// New constructs a Monitor. offlineThreshold is how long since
// last_seen before the monitor marks a worker offline.
func New(store StatusStore, enforcer *license.Enforcer, offlineThreshold time.Duration) *Monitor {
	if offlineThreshold <= 0 {
		offlineThreshold = 30 * time.Second
	}
	return &Monitor{store: store, enforcer: enforcer, offlineThreshold: offlineThreshold}
}

// Heartbeat records a worker's liveness and runs it through the
// license enforcer (§4.8). A worker is created on its first
// heartbeat.
func (m *Monitor) Heartbeat(workerID, hostname string) (*jobmodel.WorkerStatus, error) {
	admitted, err := m.enforcer.Heartbeat(workerID)
	status := jobmodel.WorkerBusy
	if !admitted {
		status = jobmodel.WorkerRejected
	}

	w := &jobmodel.WorkerStatus{
		WorkerID: workerID,
		Hostname: hostname,
		Status:   status,
		LastSeen: time.Now(),
	}
	if saveErr := m.store.SaveWorkerStatus(w); saveErr != nil {
		return w, saveErr
	}
	return w, err
}

// Deregister removes a worker from the license enforcer's active set
// on clean shutdown and marks it offline in the store.
func (m *Monitor) Deregister(workerID, hostname string) error {
	m.enforcer.Deregister(workerID)
	w := &jobmodel.WorkerStatus{WorkerID: workerID, Hostname: hostname, Status: jobmodel.WorkerOffline, LastSeen: time.Now()}
	return m.store.SaveWorkerStatus(w)
}

// SweepOffline transitions every worker whose last_seen exceeds the
// offline threshold to `offline`, purely by the monitor applying the
// threshold (§3) — never by the license enforcer.
func (m *Monitor) SweepOffline() error {
	workers, err := m.store.ListWorkerStatus()
	if err != nil {
		return err
	}
	now := time.Now()
	for _, w := range workers {
		if w.Status == jobmodel.WorkerOffline {
			continue
		}
		if now.Sub(w.LastSeen) > m.offlineThreshold {
			w.Status = jobmodel.WorkerOffline
			m.enforcer.Deregister(w.WorkerID)
			if err := m.store.SaveWorkerStatus(w); err != nil {
				return err
			}
		}
	}
	return nil
}
