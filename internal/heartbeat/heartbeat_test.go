package heartbeat_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Venkmine/proxyforge/internal/heartbeat"
	"github.com/Venkmine/proxyforge/internal/jobmodel"
	"github.com/Venkmine/proxyforge/internal/license"
)

type fakeStatusStore struct {
	byWorker map[string]*jobmodel.WorkerStatus
}

func newFakeStatusStore() *fakeStatusStore {
	return &fakeStatusStore{byWorker: make(map[string]*jobmodel.WorkerStatus)}
}

func (f *fakeStatusStore) SaveWorkerStatus(w *jobmodel.WorkerStatus) error {
	cp := *w
	f.byWorker[w.WorkerID] = &cp
	return nil
}

func (f *fakeStatusStore) ListWorkerStatus() ([]*jobmodel.WorkerStatus, error) {
	out := make([]*jobmodel.WorkerStatus, 0, len(f.byWorker))
	for _, w := range f.byWorker {
		out = append(out, w)
	}
	return out, nil
}

func TestHeartbeatCreatesWorker(t *testing.T) {
	one := 1
	enf := license.NewEnforcer(&jobmodel.License{Tier: jobmodel.TierFree, MaxWorkers: &one})
	store := newFakeStatusStore()
	mon := heartbeat.New(store, enf, time.Minute)

	w, err := mon.Heartbeat("w1", "host-a")
	require.NoError(t, err)
	assert.Equal(t, jobmodel.WorkerBusy, w.Status)
	assert.Equal(t, "w1", store.byWorker["w1"].WorkerID)
}

func TestHeartbeatRejectedWorkerMarkedRejected(t *testing.T) {
	one := 1
	enf := license.NewEnforcer(&jobmodel.License{Tier: jobmodel.TierFree, MaxWorkers: &one})
	store := newFakeStatusStore()
	mon := heartbeat.New(store, enf, time.Minute)

	_, err := mon.Heartbeat("w1", "host-a")
	require.NoError(t, err)

	w2, err := mon.Heartbeat("w2", "host-b")
	require.Error(t, err)
	assert.Equal(t, jobmodel.WorkerRejected, w2.Status)
	assert.Equal(t, jobmodel.WorkerRejected, store.byWorker["w2"].Status)
}

func TestDeregisterMarksOfflineAndFreesSlot(t *testing.T) {
	one := 1
	enf := license.NewEnforcer(&jobmodel.License{Tier: jobmodel.TierFree, MaxWorkers: &one})
	store := newFakeStatusStore()
	mon := heartbeat.New(store, enf, time.Minute)

	_, err := mon.Heartbeat("w1", "host-a")
	require.NoError(t, err)

	require.NoError(t, mon.Deregister("w1", "host-a"))
	assert.Equal(t, jobmodel.WorkerOffline, store.byWorker["w1"].Status)

	w2, err := mon.Heartbeat("w2", "host-b")
	require.NoError(t, err)
	assert.Equal(t, jobmodel.WorkerBusy, w2.Status)
}

func TestSweepOfflineTransitionsStaleWorkers(t *testing.T) {
	five := 5
	enf := license.NewEnforcer(&jobmodel.License{Tier: jobmodel.TierFreelance, MaxWorkers: &five})
	store := newFakeStatusStore()
	mon := heartbeat.New(store, enf, 10*time.Millisecond)

	_, err := mon.Heartbeat("w1", "host-a")
	require.NoError(t, err)
	assert.Equal(t, 1, enf.ActiveCount())

	time.Sleep(20 * time.Millisecond)
	require.NoError(t, mon.SweepOffline())

	assert.Equal(t, jobmodel.WorkerOffline, store.byWorker["w1"].Status)
	assert.Equal(t, 0, enf.ActiveCount())
}

func TestSweepOfflineLeavesFreshWorkersAlone(t *testing.T) {
	five := 5
	enf := license.NewEnforcer(&jobmodel.License{Tier: jobmodel.TierFreelance, MaxWorkers: &five})
	store := newFakeStatusStore()
	mon := heartbeat.New(store, enf, time.Minute)

	_, err := mon.Heartbeat("w1", "host-a")
	require.NoError(t, err)

	require.NoError(t, mon.SweepOffline())
	assert.Equal(t, jobmodel.WorkerBusy, store.byWorker["w1"].Status)
}
