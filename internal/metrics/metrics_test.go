package metrics_test

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Venkmine/proxyforge/internal/jobmodel"
	"github.com/Venkmine/proxyforge/internal/metrics"
)

func gaugeValueFor(families []*dto.MetricFamily, name, label string) (float64, bool) {
	for _, f := range families {
		if f.GetName() != name {
			continue
		}
		for _, m := range f.GetMetric() {
			for _, lp := range m.GetLabel() {
				if lp.GetValue() == label {
					return m.GetGauge().GetValue(), true
				}
			}
		}
	}
	return 0, false
}

func TestObserveJobsSetsCountsPerStatus(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := metrics.New(reg)

	jobs := []*jobmodel.Job{
		{Status: jobmodel.JobRunning},
		{Status: jobmodel.JobRunning},
		{Status: jobmodel.JobCompleted},
	}
	r.ObserveJobs(jobs)

	families, err := reg.Gather()
	require.NoError(t, err)

	running, ok := gaugeValueFor(families, "proxyforge_jobs_by_status", "RUNNING")
	require.True(t, ok)
	assert.Equal(t, float64(2), running)

	pending, ok := gaugeValueFor(families, "proxyforge_jobs_by_status", "PENDING")
	require.True(t, ok)
	assert.Equal(t, float64(0), pending)
}

func TestClipCountersIncrement(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := metrics.New(reg)

	r.ClipCompleted()
	r.ClipCompleted()
	r.ClipFailed()
	r.LicenseRejected()

	families, err := reg.Gather()
	require.NoError(t, err)

	var found int
	for _, f := range families {
		switch f.GetName() {
		case "proxyforge_clips_completed_total", "proxyforge_clips_failed_total", "proxyforge_license_rejections_total":
			found++
		}
	}
	assert.Equal(t, 3, found)
}
