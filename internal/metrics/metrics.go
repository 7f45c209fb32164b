// Package metrics exposes job, task, and worker gauges on the
// /monitor/metrics surface (supplemented ambient observability feature).
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/Venkmine/proxyforge/internal/jobmodel"
)

// Registry holds every gauge/counter the monitoring surface exposes.
// One Registry is created per process and registered against a single
// prometheus.Registerer at startup.
type Registry struct {
	jobsByStatus    *prometheus.GaugeVec
	tasksByStatus   *prometheus.GaugeVec
	workersByStatus *prometheus.GaugeVec
	clipsCompleted  prometheus.Counter
	clipsFailed     prometheus.Counter
	licenseRejected prometheus.Counter
}

// New constructs a Registry and registers its collectors against reg.
func New(reg prometheus.Registerer) *Registry {
	r := &Registry{
		jobsByStatus: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "proxyforge",
			Name:      "jobs_by_status",
			Help:      "Current number of jobs in each status.",
		}, []string{"status"}),
		tasksByStatus: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "proxyforge",
			Name:      "clip_tasks_by_status",
			Help:      "Current number of clip tasks in each status.",
		}, []string{"status"}),
		workersByStatus: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "proxyforge",
			Name:      "workers_by_status",
			Help:      "Current number of workers in each status.",
		}, []string{"status"}),
		clipsCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "proxyforge",
			Name:      "clips_completed_total",
			Help:      "Total clip tasks that reached completed.",
		}),
		clipsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "proxyforge",
			Name:      "clips_failed_total",
			Help:      "Total clip tasks that reached failed.",
		}),
		licenseRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "proxyforge",
			Name:      "license_rejections_total",
			Help:      "Total worker heartbeats refused by the license enforcer.",
		}),
	}
	reg.MustRegister(r.jobsByStatus, r.tasksByStatus, r.workersByStatus, r.clipsCompleted, r.clipsFailed, r.licenseRejected)
	return r
}

// ObserveJobs replaces the job-status gauge set from a full snapshot.
// Statuses absent from jobs are reset to zero so stale series don't
// linger.
func (r *Registry) ObserveJobs(jobs []*jobmodel.Job) {
	counts := map[jobmodel.JobStatus]int{}
	for _, j := range jobs {
		counts[j.Status]++
	}
	for _, s := range []jobmodel.JobStatus{
		jobmodel.JobPending, jobmodel.JobRunning, jobmodel.JobPaused,
		jobmodel.JobCompleted, jobmodel.JobFailed, jobmodel.JobPartial,
		jobmodel.JobCancelled, jobmodel.JobSkipped,
	} {
		r.jobsByStatus.WithLabelValues(string(s)).Set(float64(counts[s]))
	}
}

// ObserveTasks replaces the clip-task-status gauge set.
func (r *Registry) ObserveTasks(tasks []*jobmodel.ClipTask) {
	counts := map[jobmodel.ClipStatus]int{}
	for _, t := range tasks {
		counts[t.Status]++
	}
	for _, s := range []jobmodel.ClipStatus{
		jobmodel.ClipQueued, jobmodel.ClipRunning, jobmodel.ClipCompleted, jobmodel.ClipFailed, jobmodel.ClipSkipped,
	} {
		r.tasksByStatus.WithLabelValues(string(s)).Set(float64(counts[s]))
	}
}

// ObserveWorkers replaces the worker-status gauge set.
func (r *Registry) ObserveWorkers(workers []*jobmodel.WorkerStatus) {
	counts := map[jobmodel.WorkerStatusState]int{}
	for _, w := range workers {
		counts[w.Status]++
	}
	for _, s := range []jobmodel.WorkerStatusState{
		jobmodel.WorkerIdle, jobmodel.WorkerBusy, jobmodel.WorkerOffline, jobmodel.WorkerRejected,
	} {
		r.workersByStatus.WithLabelValues(string(s)).Set(float64(counts[s]))
	}
}

// ClipCompleted increments the completed-clip counter.
func (r *Registry) ClipCompleted() { r.clipsCompleted.Inc() }

// ClipFailed increments the failed-clip counter.
func (r *Registry) ClipFailed() { r.clipsFailed.Inc() }

// LicenseRejected increments the license-rejection counter.
func (r *Registry) LicenseRejected() { r.licenseRejected.Inc() }
