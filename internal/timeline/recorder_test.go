package timeline_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Venkmine/proxyforge/internal/jobmodel"
	"github.com/Venkmine/proxyforge/internal/timeline"
)

type fakeStore struct {
	events    []*jobmodel.ExecutionEvent
	appendErr error
}

func (f *fakeStore) AppendEvent(e *jobmodel.ExecutionEvent) error {
	if f.appendErr != nil {
		return f.appendErr
	}
	f.events = append(f.events, e)
	return nil
}

func (f *fakeStore) ListEvents(jobID string) ([]*jobmodel.ExecutionEvent, error) {
	var out []*jobmodel.ExecutionEvent
	for _, e := range f.events {
		if e.JobID == jobID {
			out = append(out, e)
		}
	}
	return out, nil
}

func TestRecordAppendsEvent(t *testing.T) {
	fs := &fakeStore{}
	r := timeline.New("job-1", fs, nil)

	r.Record(jobmodel.EventJobCreated, "", "")
	r.Record(jobmodel.EventExecutionStarted, "", "")

	events, err := r.Snapshot()
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, jobmodel.EventJobCreated, events[0].EventType)
}

func TestRecordSwallowsStorageErrors(t *testing.T) {
	fs := &fakeStore{appendErr: errors.New("disk full")}
	r := timeline.New("job-1", fs, nil)

	assert.NotPanics(t, func() {
		r.Record(jobmodel.EventClipFailed, "clip-1", "boom")
	})
}
