package server_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Venkmine/proxyforge/internal/database"
	"github.com/Venkmine/proxyforge/internal/engine"
	"github.com/Venkmine/proxyforge/internal/ingestion"
	"github.com/Venkmine/proxyforge/internal/jobmodel"
	"github.com/Venkmine/proxyforge/internal/license"
	"github.com/Venkmine/proxyforge/internal/query"
	"github.com/Venkmine/proxyforge/internal/scheduler"
	"github.com/Venkmine/proxyforge/internal/server"
	"github.com/Venkmine/proxyforge/internal/store"
)

func newTestServer(t *testing.T) (*httptest.Server, func(src string) string) {
	t.Helper()
	db, err := database.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	st := store.New(db)
	ing := ingestion.New(st, nil, nil)
	five := 5
	enf := license.NewEnforcer(&jobmodel.License{Tier: jobmodel.TierFreelance, MaxWorkers: &five})
	sch := scheduler.New(st, map[jobmodel.Engine]engine.Adapter{}, enf, "w1", nil)

	srv := server.New(server.Config{
		Ingestion: ing,
		Scheduler: sch,
		Store:     st,
		Query:     query.New(st, t.TempDir()),
	})

	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)

	srcDir := t.TempDir()
	writeSrc := func(name string) string {
		p := filepath.Join(srcDir, name)
		require.NoError(t, os.WriteFile(p, []byte("media"), 0o644))
		return p
	}
	return ts, writeSrc
}

func TestHealthEndpoint(t *testing.T) {
	ts, _ := newTestServer(t)
	resp, err := http.Get(ts.URL + "/monitor/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestCreateJobThenListAndGet(t *testing.T) {
	ts, writeSrc := newTestServer(t)
	src := writeSrc("clip.mov")
	outDir := t.TempDir()

	body, _ := json.Marshal(map[string]interface{}{
		"source_paths": []string{src},
		"deliver_settings": map[string]interface{}{
			"output_dir": outDir,
			"video":      map[string]string{"codec": "prores"},
			"file": map[string]interface{}{
				"container":       "mov",
				"naming_template": "{source_name}_proxy",
			},
		},
	})

	resp, err := http.Post(ts.URL+"/control/jobs/create", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var created map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	jobID := created["job_id"]
	require.NotEmpty(t, jobID)

	listResp, err := http.Get(ts.URL + "/monitor/jobs")
	require.NoError(t, err)
	defer listResp.Body.Close()
	assert.Equal(t, http.StatusOK, listResp.StatusCode)

	getResp, err := http.Get(ts.URL + "/monitor/jobs/" + jobID)
	require.NoError(t, err)
	defer getResp.Body.Close()
	assert.Equal(t, http.StatusOK, getResp.StatusCode)
}

func TestCreateJobRejectsMissingSourceWith400(t *testing.T) {
	ts, _ := newTestServer(t)
	outDir := t.TempDir()

	body, _ := json.Marshal(map[string]interface{}{
		"source_paths": []string{filepath.Join(outDir, "missing.mov")},
		"deliver_settings": map[string]interface{}{
			"output_dir": outDir,
			"video":      map[string]string{"codec": "prores_proxy"},
			"file": map[string]interface{}{
				"container":       "mov",
				"naming_template": "{source_name}_proxy",
			},
		},
	})

	resp, err := http.Post(ts.URL+"/control/jobs/create", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
