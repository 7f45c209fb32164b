// Command proxyforgectl is the operator-facing CLI: validate a jobspec
// document, run one to completion synchronously, or drive a single
// watch-folder scan loop without the HTTP surface.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"
	"github.com/peterbourgon/ff/v3"

	"github.com/Venkmine/proxyforge/internal/apperr"
	"github.com/Venkmine/proxyforge/internal/capability"
	"github.com/Venkmine/proxyforge/internal/config"
	"github.com/Venkmine/proxyforge/internal/database"
	"github.com/Venkmine/proxyforge/internal/engine"
	"github.com/Venkmine/proxyforge/internal/engine/ffmpeg"
	"github.com/Venkmine/proxyforge/internal/ingestion"
	"github.com/Venkmine/proxyforge/internal/jobmodel"
	"github.com/Venkmine/proxyforge/internal/jobspec"
	"github.com/Venkmine/proxyforge/internal/license"
	"github.com/Venkmine/proxyforge/internal/recovery"
	"github.com/Venkmine/proxyforge/internal/scheduler"
	"github.com/Venkmine/proxyforge/internal/store"
	"github.com/Venkmine/proxyforge/internal/watchfolder"
)

// Exit codes shared by validate and run (§6 CLI surface).
const (
	exitOK              = 0
	exitValidation      = 1
	exitExecutionFailed = 2
	exitPartial         = 3
	exitIOError         = 4
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: proxyforgectl <validate|run|watch> ...")
		os.Exit(exitIOError)
	}

	switch os.Args[1] {
	case "validate":
		os.Exit(runValidate(os.Args[2:]))
	case "run":
		os.Exit(runRun(os.Args[2:]))
	case "watch":
		os.Exit(runWatch(os.Args[2:]))
	default:
		fmt.Fprintf(os.Stderr, "unknown subcommand %q\n", os.Args[1])
		os.Exit(exitIOError)
	}
}

func loadSpec(path string) (*jobspec.JobSpec, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading jobspec file %s: %w", path, err)
	}
	return jobspec.Parse(raw)
}

func runValidate(args []string) int {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	if err := fs.Parse(args); err != nil || fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: proxyforgectl validate <jobspec.json>")
		return exitIOError
	}

	spec, err := loadSpec(fs.Arg(0))
	if err != nil {
		if _, ok := apperr.As(err); ok {
			fmt.Fprintln(os.Stderr, err)
			return exitValidation
		}
		fmt.Fprintln(os.Stderr, err)
		return exitIOError
	}

	fmt.Printf("jobspec valid: jobspec_version=%s sources=%d engine_override=%q\n",
		spec.JobSpecVersion, len(spec.Sources), spec.Engine)
	return exitOK
}

func runRun(args []string) int {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	if err := fs.Parse(args); err != nil || fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: proxyforgectl run <jobspec.json>")
		return exitIOError
	}

	spec, err := loadSpec(fs.Arg(0))
	if err != nil {
		if _, ok := apperr.As(err); ok {
			fmt.Fprintln(os.Stderr, err)
			return exitValidation
		}
		fmt.Fprintln(os.Stderr, err)
		return exitIOError
	}

	cfg, err := config.Load(os.Getenv("FORGE_CONFIG_FILE"))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitIOError
	}

	log := hclog.New(&hclog.LoggerOptions{Name: "proxyforgectl", Level: hclog.Warn})

	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitIOError
	}
	defer db.Close()

	st := store.New(db)
	if _, err := recovery.New(st, log).Run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitIOError
	}

	lic := license.Resolve(&cfg.License)
	enforcer := license.NewEnforcer(lic)
	adapters := map[jobmodel.Engine]engine.Adapter{
		jobmodel.EngineFFmpeg: ffmpeg.New(ffmpeg.Config{
			Logger:         log,
			FFmpegPath:     cfg.Encoders.FFmpegPath,
			FFprobePath:    cfg.Encoders.FFprobePath,
			TerminateGrace: cfg.Encoders.TerminateGrace,
		}),
	}
	var resolveGate ingestion.ResolveGate
	if rg, ok := adapters[jobmodel.EngineResolve].(ingestion.ResolveGate); ok {
		resolveGate = rg
	}

	ing := ingestion.New(st, log, resolveGate)
	job, err := ing.CreateJob(spec.ToRequest())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitValidation
	}

	sch := scheduler.New(st, adapters, enforcer, hostnameOrFallback(), log)

	if _, err := sch.StartExecution(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitExecutionFailed
	}

	final, err := waitForTerminal(st, job.ID)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitExecutionFailed
	}

	fmt.Printf("job %s finished with status %s\n", final.ID, final.Status)
	switch final.Status {
	case jobmodel.JobCompleted:
		return exitOK
	case jobmodel.JobPartial:
		return exitPartial
	default:
		return exitExecutionFailed
	}
}

func waitForTerminal(st *store.Store, jobID string) (*jobmodel.Job, error) {
	for {
		job, err := st.GetJob(jobID)
		if err != nil {
			return nil, err
		}
		if job.Status.IsTerminal() {
			return job, nil
		}
		time.Sleep(200 * time.Millisecond)
	}
}

func runWatch(args []string) int {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	pollSeconds := fs.Int("poll-seconds", 20, "seconds between scan passes")
	maxWorkers := fs.Int("max-workers", 1, "maximum concurrent jobs a scan pass may start")
	once := fs.Bool("once", false, "run a single scan pass and exit")
	preset := fs.String("preset", "", "proxy profile id applied to every file this folder ingests")

	if err := ff.Parse(fs, args, ff.WithEnvVarPrefix("FORGE_WATCH")); err != nil || fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: proxyforgectl watch <folder> --preset <id> [--poll-seconds N] [--max-workers M] [--once]")
		return exitIOError
	}
	folder := fs.Arg(0)

	if _, ok := capability.GetProfile(*preset); !ok {
		fmt.Fprintf(os.Stderr, "unknown --preset %q\n", *preset)
		return exitIOError
	}

	cfg, err := config.Load(os.Getenv("FORGE_CONFIG_FILE"))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitIOError
	}

	log := hclog.New(&hclog.LoggerOptions{Name: "proxyforgectl", Level: hclog.Info})

	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitIOError
	}
	defer db.Close()

	st := store.New(db)
	ing := ingestion.New(st, log, nil)

	lic := license.Resolve(&cfg.License)
	enforcer := license.NewEnforcer(lic)
	adapters := map[jobmodel.Engine]engine.Adapter{
		jobmodel.EngineFFmpeg: ffmpeg.New(ffmpeg.Config{
			Logger:         log,
			FFmpegPath:     cfg.Encoders.FFmpegPath,
			FFprobePath:    cfg.Encoders.FFprobePath,
			TerminateGrace: cfg.Encoders.TerminateGrace,
		}),
	}
	sch := scheduler.New(st, adapters, enforcer, hostnameOrFallback(), log)

	if _, err := ensureWatchFolder(st, folder, *preset); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitIOError
	}

	eng := watchfolder.New(watchfolder.Config{
		Store:     st,
		Ingestion: ing,
		Scheduler: sch,
		PresetResolver: func(presetID string) (jobmodel.DeliverSettings, bool) {
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
		},
		MinAgeSeconds:        cfg.WatchFolders.MinAgeSeconds,
		RequiredStableChecks: cfg.WatchFolders.RequiredStableChecks,
		MinFreeDiskGB:        cfg.Automation.MinFreeDiskGB,
		MaxConcurrentJobs:    *maxWorkers,
		Logger:               log,
	})

	scanOnce := func() {
		folders, err := st.ListWatchFolders()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return
		}
		res := eng.Scan(folders)
		fmt.Printf("scan pass: ingested=%d skipped=%d errors=%d\n", res.Ingested, res.Skipped, res.Errors)
	}

	if *once {
		scanOnce()
		return exitOK
	}

	ticker := time.NewTicker(time.Duration(*pollSeconds) * time.Second)
	defer ticker.Stop()
	scanOnce()
	for range ticker.C {
		scanOnce()
	}
	return exitOK
}

// ensureWatchFolder persists folder as an enabled, non-auto-executing
// watch folder bound to preset if it isn't already tracked; an
// already-tracked folder is rebound to preset and saved. Either way the
// CLI's ad hoc watch command shares the same ledger the HTTP surface
// uses.
func ensureWatchFolder(st *store.Store, folder, preset string) (string, error) {
	existing, err := st.ListWatchFolders()
	if err != nil {
		return "", err
	}
	for _, wf := range existing {
		if wf.Path == folder {
			wf.PresetID = preset
			if err := st.SaveWatchFolder(wf); err != nil {
				return "", err
			}
			return wf.ID, nil
		}
	}
	wf := &jobmodel.WatchFolder{
		ID:        uuid.NewString(),
		Path:      folder,
		Enabled:   true,
		Recursive: true,
		PresetID:  preset,
		CreatedAt: time.Now().UTC(),
	}
	if err := st.SaveWatchFolder(wf); err != nil {
		return "", err
	}
	return wf.ID, nil
}

func hostnameOrFallback() string {
	h, err := os.Hostname()
	if err != nil || h == "" {
		return "proxyforgectl-worker"
	}
	return h
}
