package ingestion_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Venkmine/proxyforge/internal/apperr"
	"github.com/Venkmine/proxyforge/internal/database"
	"github.com/Venkmine/proxyforge/internal/engine/resolve"
	"github.com/Venkmine/proxyforge/internal/ingestion"
	"github.com/Venkmine/proxyforge/internal/jobmodel"
	"github.com/Venkmine/proxyforge/internal/store"
)

func newTestService(t *testing.T) (*ingestion.Service, *store.Store) {
	t.Helper()
	db, err := database.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	st := store.New(db)
	return ingestion.New(st, nil, nil), st
}

// fakeResolveGate lets tests control the availability/install result
// CreateJob observes without standing up a real Resolve adapter.
type fakeResolveGate struct {
	available bool
	install   *resolve.Installation
	reason    string
}

func (f fakeResolveGate) CheckAvailabilityOnce(ctx context.Context) (bool, *resolve.Installation, string) {
	return f.available, f.install, f.reason
}

func newTestServiceWithGate(t *testing.T, gate ingestion.ResolveGate) (*ingestion.Service, *store.Store) {
	t.Helper()
	db, err := database.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	st := store.New(db)
	return ingestion.New(st, nil, gate), st
}

func writeSourceFile(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("fake media"), 0o644))
	return path
}

func TestCreateJobPersistsPendingJobWithQueuedClips(t *testing.T) {
	svc, st := newTestService(t)
	srcDir := t.TempDir()
	outDir := t.TempDir()
	src := writeSourceFile(t, srcDir, "clip.mov")

	job, err := svc.CreateJob(ingestion.Request{
		SourcePaths:     []string{src},
		OutputDirectory: outDir,
		Settings: jobmodel.DeliverSettings{
			VideoCodec:     "prores",
			AudioCodec:     "pcm_s16le",
			Container:      "mov",
			NamingTemplate: "{source_name}_proxy",
		},
	})
	require.NoError(t, err)
	assert.Equal(t, jobmodel.JobPending, job.Status)
	require.Len(t, job.Tasks, 1)
	assert.Equal(t, jobmodel.ClipQueued, job.Tasks[0].Status)
	assert.Equal(t, jobmodel.EngineFFmpeg, job.Snapshot.Engine)

	loaded, err := st.GetJob(job.ID)
	require.NoError(t, err)
	assert.Equal(t, job.ID, loaded.ID)

	events, err := st.ListEvents(job.ID)
	require.NoError(t, err)
	require.Len(t, events, 2)
}

func TestCreateJobRejectsMissingSource(t *testing.T) {
	svc, _ := newTestService(t)
	outDir := t.TempDir()

	_, err := svc.CreateJob(ingestion.Request{
		SourcePaths:     []string{filepath.Join(outDir, "missing.mov")},
		OutputDirectory: outDir,
		Settings: jobmodel.DeliverSettings{
			VideoCodec:     "prores_proxy",
			Container:      "mov",
			NamingTemplate: "{source_name}_proxy",
		},
	})
	require.Error(t, err)
	ae, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.TagSourceMissingOrNotFile, ae.Tag)
}

func TestCreateJobRejectsAmbiguousMultiClipTemplate(t *testing.T) {
	svc, _ := newTestService(t)
	srcDir := t.TempDir()
	outDir := t.TempDir()
	a := writeSourceFile(t, srcDir, "a.mov")
	b := writeSourceFile(t, srcDir, "b.mov")

	_, err := svc.CreateJob(ingestion.Request{
		SourcePaths:     []string{a, b},
		OutputDirectory: outDir,
		Settings: jobmodel.DeliverSettings{
			VideoCodec:     "prores",
			Container:      "mov",
			NamingTemplate: "fixed_name",
		},
	})
	require.Error(t, err)
	ae, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.TagNamingTemplateAmbiguous, ae.Tag)
}

func TestCreateJobMultiClipAssignsDistinctOutputPaths(t *testing.T) {
	svc, _ := newTestService(t)
	srcDir := t.TempDir()
	outDir := t.TempDir()
	a := writeSourceFile(t, srcDir, "a.mov")
	b := writeSourceFile(t, srcDir, "b.mov")

	job, err := svc.CreateJob(ingestion.Request{
		SourcePaths:     []string{a, b},
		OutputDirectory: outDir,
		Settings: jobmodel.DeliverSettings{
			VideoCodec:     "prores",
			Container:      "mov",
			NamingTemplate: "{source_name}_{index}",
		},
	})
	require.NoError(t, err)
	require.Len(t, job.Tasks, 2)
	assert.NotEqual(t, job.Tasks[0].OutputPath, job.Tasks[1].OutputPath)
}

func TestCreateJobFailsWithZeroTasksWhenResolveUnavailable(t *testing.T) {
	gate := fakeResolveGate{available: false, reason: "resolve scripting bridge not wired in this deployment"}
	svc, st := newTestServiceWithGate(t, gate)
	srcDir := t.TempDir()
	outDir := t.TempDir()
	src := writeSourceFile(t, srcDir, "clip.braw")

	job, err := svc.CreateJob(ingestion.Request{
		SourcePaths:     []string{src},
		OutputDirectory: outDir,
		Settings: jobmodel.DeliverSettings{
			VideoCodec:     "braw",
			Container:      "braw",
			NamingTemplate: "{source_name}_proxy",
			ResolvePreset:  "proxy_render",
		},
	})
	require.NoError(t, err)
	assert.Equal(t, jobmodel.JobFailed, job.Status)
	assert.Empty(t, job.Tasks)

	loaded, err := st.GetJob(job.ID)
	require.NoError(t, err)
	assert.Equal(t, jobmodel.JobFailed, loaded.Status)

	events, err := st.ListEvents(job.ID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, jobmodel.EventExecutionFailed, events[0].EventType)
}

func TestCreateJobSkipsWithZeroTasksOnEditionMismatch(t *testing.T) {
	gate := fakeResolveGate{available: true, install: &resolve.Installation{Version: "19.0.3", IsStudio: true}}
	svc, st := newTestServiceWithGate(t, gate)
	srcDir := t.TempDir()
	outDir := t.TempDir()
	src := writeSourceFile(t, srcDir, "clip.braw")

	job, err := svc.CreateJob(ingestion.Request{
		SourcePaths:     []string{src},
		OutputDirectory: outDir,
		Settings: jobmodel.DeliverSettings{
			VideoCodec:             "braw",
			Container:              "braw",
			NamingTemplate:         "{source_name}_proxy",
			ResolvePreset:          "proxy_render",
			RequiresResolveEdition: jobmodel.EditionFree,
		},
	})
	require.NoError(t, err)
	assert.Equal(t, jobmodel.JobSkipped, job.Status)
	assert.Empty(t, job.Tasks)
	require.NotNil(t, job.SkipMetadata)
	assert.Equal(t, "resolve_free_not_installed", job.SkipMetadata["reason"])
	assert.Equal(t, "studio", job.SkipMetadata["detected"])
	assert.Equal(t, "free", job.SkipMetadata["required"])
	assert.Equal(t, "19.0.3", job.SkipMetadata["version"])

	loaded, err := st.GetJob(job.ID)
	require.NoError(t, err)
	assert.Equal(t, jobmodel.JobSkipped, loaded.Status)
}

func TestCreateJobProceedsNormallyWhenEditionMatches(t *testing.T) {
	gate := fakeResolveGate{available: true, install: &resolve.Installation{Version: "19.0.3", IsStudio: true}}
	svc, _ := newTestServiceWithGate(t, gate)
	srcDir := t.TempDir()
	outDir := t.TempDir()
	src := writeSourceFile(t, srcDir, "clip.braw")

	job, err := svc.CreateJob(ingestion.Request{
		SourcePaths:     []string{src},
		OutputDirectory: outDir,
		Settings: jobmodel.DeliverSettings{
			VideoCodec:             "braw",
			Container:              "braw",
			NamingTemplate:         "{source_name}_proxy",
			ResolvePreset:          "proxy_render",
			RequiresResolveEdition: jobmodel.EditionStudio,
		},
	})
	require.NoError(t, err)
	assert.Equal(t, jobmodel.JobPending, job.Status)
	require.Len(t, job.Tasks, 1)
	assert.Equal(t, jobmodel.EngineResolve, job.Snapshot.Engine)
}
