// Package watchfolder periodically scans enabled watch folders,
// stabilises and dedupes candidate files, and ingests each newly
// stable file as a one-clip job (§4.7). Auto-execution is a distinct,
// explicitly-gated concern handled here but dispatched to the
// scheduler; the engine itself never starts encoding.
package watchfolder

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/shirou/gopsutil/v4/disk"

	"github.com/Venkmine/proxyforge/internal/ingestion"
	"github.com/Venkmine/proxyforge/internal/jobmodel"
)

// mediaExtensions is the static allowlist candidates must match (§4.7).
var mediaExtensions = map[string]bool{
	".mov": true, ".mp4": true, ".mxf": true, ".mkv": true,
	".avi": true, ".braw": true, ".r3d": true,
}

// ProcessedStore is the subset of store.Store the engine needs for the
// processed-file ledger.
type ProcessedStore interface {
	IsProcessed(watchFolderID, filePath string) (bool, error)
	MarkProcessed(pf *jobmodel.ProcessedFile) error
	ListJobsByStatus(statuses ...jobmodel.JobStatus) ([]*jobmodel.Job, error)
}

// Starter is implemented by the scheduler, invoked only when a
// folder's auto_execute gate and its safety checks all pass.
type Starter interface {
	StartExecution() (*jobmodel.Job, error)
}

// PresetResolver reports whether a named preset currently resolves to
// usable DeliverSettings, the third auto-execute safety check.
type PresetResolver func(presetID string) (jobmodel.DeliverSettings, bool)

// Engine runs one scan pass over a set of watch folders.
type Engine struct {
	store      ProcessedStore
	ingest     *ingestion.Service
	scheduler  Starter
	stability  *StabilityTracker
	resolver   PresetResolver
	minFreeGB  int
	maxRunning int
	log        hclog.Logger
}

// Config configures an Engine.
type Config struct {
	Store                ProcessedStore
	Ingestion            *ingestion.Service
	Scheduler            Starter
	PresetResolver       PresetResolver
	MinAgeSeconds        int
	RequiredStableChecks int
	MinFreeDiskGB        int
	MaxConcurrentJobs    int
	Logger               hclog.Logger
}

// New constructs an Engine.
func New(cfg Config) *Engine {
	log := cfg.Logger
	if log == nil {
		log = hclog.NewNullLogger()
	}
	minAge := time.Duration(cfg.MinAgeSeconds) * time.Second
	return &Engine{
		store:      cfg.Store,
		ingest:     cfg.Ingestion,
		scheduler:  cfg.Scheduler,
		stability:  NewStabilityTracker(minAge, cfg.RequiredStableChecks),
		resolver:   cfg.PresetResolver,
		minFreeGB:  cfg.MinFreeDiskGB,
		maxRunning: cfg.MaxConcurrentJobs,
		log:        log.Named("watchfolder"),
	}
}

// ScanResult summarises one Scan call across every folder.
type ScanResult struct {
	Ingested int
	Skipped  int
	Errors   int
}

// Scan runs one pass over folders. Failures on individual files or
// folders are logged and do not stop the pass (§4.7: warn-and-continue).
func (e *Engine) Scan(folders []*jobmodel.WatchFolder) ScanResult {
	var res ScanResult
	for _, wf := range folders {
		if !wf.Enabled {
			continue
		}
		n, skipped, errs := e.scanFolder(wf)
		res.Ingested += n
		res.Skipped += skipped
		res.Errors += errs
	}
	return res
}

func (e *Engine) scanFolder(wf *jobmodel.WatchFolder) (ingested, skipped, errs int) {
	candidates, err := e.enumerate(wf)
	if err != nil {
		e.log.Warn("enumeration failed", "watch_folder_id", wf.ID, "path", wf.Path, "error", err)
		return 0, 0, 1
	}

	for _, path := range candidates {
		info, err := os.Lstat(path)
		if err != nil {
			e.log.Warn("stat failed, skipping", "path", path, "error", err)
			errs++
			continue
		}

		already, err := e.store.IsProcessed(wf.ID, path)
		if err != nil {
			e.log.Warn("processed-ledger lookup failed, skipping", "path", path, "error", err)
			errs++
			continue
		}
		if already {
			continue
		}

		check := e.stability.Observe(path, info.Size(), info.ModTime())
		if !check.Stable {
			skipped++
			continue
		}

		settings, ok := e.resolvePresetSettings(wf.PresetID)
		if !ok {
			e.log.Warn("preset does not resolve, skipping", "path", path, "watch_folder_id", wf.ID, "preset_id", wf.PresetID)
			errs++
			continue
		}

		job, err := e.ingest.CreateJob(ingestion.Request{
			SourcePaths:     []string{path},
			OutputDirectory: filepath.Dir(path),
			Settings:        settings,
		})
		if err != nil {
			e.log.Warn("ingestion failed, skipping", "path", path, "watch_folder_id", wf.ID, "error", err)
			errs++
			continue
		}

		if err := e.store.MarkProcessed(&jobmodel.ProcessedFile{
			WatchFolderID: wf.ID, FilePath: path, ProcessedAt: time.Now().UTC(),
		}); err != nil {
			e.log.Warn("failed to record processed file, a future scan may re-ingest", "path", path, "error", err)
		}
		e.stability.Forget(path)
		ingested++

		if wf.AutoExecute {
			e.maybeAutoExecute(wf, job)
		}
	}
	return ingested, skipped, errs
}

// resolvePresetSettings turns a watch folder's preset ID into the
// DeliverSettings the ingestion service needs to route the job
// (§4.7 step 4); a folder with no resolvable preset cannot be ingested.
func (e *Engine) resolvePresetSettings(presetID string) (jobmodel.DeliverSettings, bool) {
	if e.resolver == nil {
		return jobmodel.DeliverSettings{}, false
	}
	settings, ok := e.resolver(presetID)
	if !ok {
		return jobmodel.DeliverSettings{}, false
	}
	if settings.NamingTemplate == "" {
		settings.NamingTemplate = "{source_name}_proxy"
	}
	return settings, true
}

func (e *Engine) enumerate(wf *jobmodel.WatchFolder) ([]string, error) {
	var out []string
	walk := func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if path == wf.Path {
			return nil
		}
		if d.IsDir() {
			if !wf.Recursive {
				return filepath.SkipDir
			}
			if strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") {
			return nil
		}
		if info, err := d.Info(); err == nil && info.Mode()&os.ModeSymlink != 0 {
			return nil
		}
		if !mediaExtensions[strings.ToLower(filepath.Ext(path))] {
			return nil
		}
		out = append(out, path)
		return nil
	}

	if wf.Recursive {
		if err := filepath.WalkDir(wf.Path, walk); err != nil {
			return nil, err
		}
		return out, nil
	}

	entries, err := os.ReadDir(wf.Path)
	if err != nil {
		return nil, err
	}
	for _, ent := range entries {
		_ = walk(filepath.Join(wf.Path, ent.Name()), ent, nil)
	}
	return out, nil
}

// maybeAutoExecute enforces the §4.7 auto-execute gate: disk space,
// no-other-job-running, and preset-resolvable, each logged on denial.
func (e *Engine) maybeAutoExecute(wf *jobmodel.WatchFolder, job *jobmodel.Job) {
	if usage, err := disk.Usage(wf.Path); err != nil {
		e.log.Warn("auto-execute denied: disk usage probe failed", "watch_folder_id", wf.ID, "error", err)
		return
	} else {
		freeGB := int(usage.Free / (1 << 30))
		if freeGB < e.minFreeGB {
			e.log.Info("auto-execute denied: insufficient free disk",
				"watch_folder_id", wf.ID, "free_gb", freeGB, "required_gb", e.minFreeGB)
			return
		}
	}

	running, err := e.store.ListJobsByStatus(jobmodel.JobRunning)
	if err != nil {
		e.log.Warn("auto-execute denied: running-job check failed", "watch_folder_id", wf.ID, "error", err)
		return
	}
	if len(running) >= e.maxRunning {
		e.log.Info("auto-execute denied: another job is running",
			"watch_folder_id", wf.ID, "running_job_id", running[0].ID)
		return
	}

	if wf.PresetID != "" && e.resolver != nil {
		if _, ok := e.resolver(wf.PresetID); !ok {
			e.log.Info("auto-execute denied: preset does not resolve",
				"watch_folder_id", wf.ID, "preset_id", wf.PresetID)
			return
		}
	}

	if _, err := e.scheduler.StartExecution(); err != nil {
		e.log.Warn("auto-execute denied: scheduler refused start_execution",
			"watch_folder_id", wf.ID, "job_id", job.ID, "error", err)
		return
	}
	e.log.Info("auto-execute started job", "watch_folder_id", wf.ID, "job_id", job.ID)
}
