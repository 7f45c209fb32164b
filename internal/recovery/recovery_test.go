package recovery_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Venkmine/proxyforge/internal/database"
	"github.com/Venkmine/proxyforge/internal/jobmodel"
	"github.com/Venkmine/proxyforge/internal/recovery"
	"github.com/Venkmine/proxyforge/internal/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	db, err := database.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return store.New(db)
}

func jobWithStatus(status jobmodel.JobStatus, taskStatus jobmodel.ClipStatus) *jobmodel.Job {
	id := uuid.NewString()
	return &jobmodel.Job{
		ID:     id,
		Status: status,
		Tasks: []*jobmodel.ClipTask{
			{ID: uuid.NewString(), JobID: id, SourcePath: "/in/a.mov", Status: taskStatus},
		},
	}
}

func TestRunFailsRunningJobs(t *testing.T) {
	st := newTestStore(t)
	job := jobWithStatus(jobmodel.JobRunning, jobmodel.ClipRunning)
	require.NoError(t, st.SaveJob(job))

	mgr := recovery.New(st, nil)
	res, err := mgr.Run()
	require.NoError(t, err)
	assert.Equal(t, 1, res.JobsFailed)
	assert.Equal(t, 1, res.TasksFailed)

	reloaded, err := st.GetJob(job.ID)
	require.NoError(t, err)
	assert.Equal(t, jobmodel.JobFailed, reloaded.Status)
	assert.Equal(t, jobmodel.ClipFailed, reloaded.Tasks[0].Status)
	assert.Equal(t, "interrupted_by_restart", reloaded.Tasks[0].FailureReason)

	events, err := st.ListEvents(job.ID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, jobmodel.EventExecutionFailed, events[0].EventType)
}

func TestRunFailsPausedJobs(t *testing.T) {
	st := newTestStore(t)
	job := jobWithStatus(jobmodel.JobPaused, jobmodel.ClipQueued)
	require.NoError(t, st.SaveJob(job))

	mgr := recovery.New(st, nil)
	res, err := mgr.Run()
	require.NoError(t, err)
	assert.Equal(t, 1, res.JobsFailed)

	reloaded, err := st.GetJob(job.ID)
	require.NoError(t, err)
	assert.Equal(t, jobmodel.JobFailed, reloaded.Status)
}

func TestRunLeavesTerminalAndPendingJobsUntouched(t *testing.T) {
	st := newTestStore(t)
	completed := jobWithStatus(jobmodel.JobCompleted, jobmodel.ClipCompleted)
	pending := jobWithStatus(jobmodel.JobPending, jobmodel.ClipQueued)
	cancelled := jobWithStatus(jobmodel.JobCancelled, jobmodel.ClipSkipped)
	require.NoError(t, st.SaveJob(completed))
	require.NoError(t, st.SaveJob(pending))
	require.NoError(t, st.SaveJob(cancelled))

	mgr := recovery.New(st, nil)
	res, err := mgr.Run()
	require.NoError(t, err)
	assert.Equal(t, 0, res.JobsFailed)

	for _, j := range []*jobmodel.Job{completed, pending, cancelled} {
		reloaded, err := st.GetJob(j.ID)
		require.NoError(t, err)
		assert.Equal(t, j.Status, reloaded.Status)
	}
}
