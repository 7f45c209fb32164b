package watchfolder_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Venkmine/proxyforge/internal/capability"
	"github.com/Venkmine/proxyforge/internal/database"
	"github.com/Venkmine/proxyforge/internal/ingestion"
	"github.com/Venkmine/proxyforge/internal/jobmodel"
	"github.com/Venkmine/proxyforge/internal/store"
	"github.com/Venkmine/proxyforge/internal/watchfolder"
)

const testPresetID = "proxy_h264_standard"

func testPresetResolver(presetID string) (jobmodel.DeliverSettings, bool) {
	profile, ok := capability.GetProfile(presetID)
	if !ok {
		return jobmodel.DeliverSettings{}, false
	}
	return jobmodel.DeliverSettings{
		Engine:       profile.Engine,
		VideoCodec:   profile.Codec,
		Container:    profile.Container,
		ProxyProfile: profile.ID,
	}, true
}

type fakeStarter struct{ calls int }

func (f *fakeStarter) StartExecution() (*jobmodel.Job, error) {
	f.calls++
	return &jobmodel.Job{}, nil
}

func newTestEngine(t *testing.T, starter watchfolder.Starter) (*watchfolder.Engine, *store.Store) {
	t.Helper()
	db, err := database.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	st := store.New(db)
	ing := ingestion.New(st, nil, nil)

	eng := watchfolder.New(watchfolder.Config{
		Store:                st,
		Ingestion:            ing,
		Scheduler:            starter,
		PresetResolver:       testPresetResolver,
		MinAgeSeconds:        0,
		RequiredStableChecks: 1,
		MinFreeDiskGB:        0,
		MaxConcurrentJobs:    1,
	})
	return eng, st
}

func TestScanIngestsStableFileOnce(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "clip.mov")
	require.NoError(t, os.WriteFile(path, []byte("media"), 0o644))
	require.NoError(t, os.Chtimes(path, time.Now().Add(-time.Minute), time.Now().Add(-time.Minute)))

	eng, st := newTestEngine(t, &fakeStarter{})
	wf := &jobmodel.WatchFolder{ID: "wf-1", Path: dir, Enabled: true, PresetID: testPresetID}

	res := eng.Scan([]*jobmodel.WatchFolder{wf})
	assert.Equal(t, 1, res.Ingested)

	jobs, err := st.ListJobs()
	require.NoError(t, err)
	require.Len(t, jobs, 1)

	res2 := eng.Scan([]*jobmodel.WatchFolder{wf})
	assert.Equal(t, 0, res2.Ingested)

	jobs2, err := st.ListJobs()
	require.NoError(t, err)
	assert.Len(t, jobs2, 1)
}

func TestScanSkipsDisabledFolders(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "clip.mov")
	require.NoError(t, os.WriteFile(path, []byte("media"), 0o644))

	eng, _ := newTestEngine(t, &fakeStarter{})
	wf := &jobmodel.WatchFolder{ID: "wf-1", Path: dir, Enabled: false}

	res := eng.Scan([]*jobmodel.WatchFolder{wf})
	assert.Equal(t, 0, res.Ingested)
}

func TestScanSkipsFileWithUnresolvablePreset(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "clip.mov")
	require.NoError(t, os.WriteFile(path, []byte("media"), 0o644))
	require.NoError(t, os.Chtimes(path, time.Now().Add(-time.Minute), time.Now().Add(-time.Minute)))

	eng, st := newTestEngine(t, &fakeStarter{})
	wf := &jobmodel.WatchFolder{ID: "wf-1", Path: dir, Enabled: true, PresetID: "not_a_real_preset"}

	res := eng.Scan([]*jobmodel.WatchFolder{wf})
	assert.Equal(t, 0, res.Ingested)
	assert.Equal(t, 1, res.Errors)

	jobs, err := st.ListJobs()
	require.NoError(t, err)
	assert.Empty(t, jobs)
}

func TestScanIgnoresNonMediaExtensions(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "readme.txt"), []byte("x"), 0o644))

	eng, _ := newTestEngine(t, &fakeStarter{})
	wf := &jobmodel.WatchFolder{ID: "wf-1", Path: dir, Enabled: true}

	res := eng.Scan([]*jobmodel.WatchFolder{wf})
	assert.Equal(t, 0, res.Ingested)
	assert.Equal(t, 0, res.Skipped)
}

func TestScanIgnoresHiddenFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".hidden.mov"), []byte("x"), 0o644))

	eng, _ := newTestEngine(t, &fakeStarter{})
	wf := &jobmodel.WatchFolder{ID: "wf-1", Path: dir, Enabled: true}

	res := eng.Scan([]*jobmodel.WatchFolder{wf})
	assert.Equal(t, 0, res.Ingested)
}
