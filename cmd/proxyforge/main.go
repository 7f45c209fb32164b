// Command proxyforge runs the HTTP control and monitoring surface, the
// FIFO scheduler, and the periodic watch-folder scan in one process.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/Venkmine/proxyforge/internal/capability"
	"github.com/Venkmine/proxyforge/internal/config"
	"github.com/Venkmine/proxyforge/internal/database"
	"github.com/Venkmine/proxyforge/internal/engine"
	"github.com/Venkmine/proxyforge/internal/engine/ffmpeg"
	"github.com/Venkmine/proxyforge/internal/engine/resolve"
	"github.com/Venkmine/proxyforge/internal/heartbeat"
	"github.com/Venkmine/proxyforge/internal/ingestion"
	"github.com/Venkmine/proxyforge/internal/jobmodel"
	"github.com/Venkmine/proxyforge/internal/license"
	"github.com/Venkmine/proxyforge/internal/logger"
	"github.com/Venkmine/proxyforge/internal/metrics"
	"github.com/Venkmine/proxyforge/internal/query"
	"github.com/Venkmine/proxyforge/internal/readiness"
	"github.com/Venkmine/proxyforge/internal/recovery"
	"github.com/Venkmine/proxyforge/internal/scheduler"
	"github.com/Venkmine/proxyforge/internal/server"
	"github.com/Venkmine/proxyforge/internal/store"
	"github.com/Venkmine/proxyforge/internal/watchfolder"
)

func main() {
	logger.Info("proxyforge starting")

	cfgPath := os.Getenv("FORGE_CONFIG_FILE")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		logger.Error("failed to load configuration: %v", err)
		os.Exit(1)
	}

	log := hclog.New(&hclog.LoggerOptions{
		Name:  "proxyforge",
		Level: hclog.Info,
	})

	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		logger.Error("failed to open database: %v", err)
		os.Exit(1)
	}
	defer db.Close()

	st := store.New(db)

	recMgr := recovery.New(st, log)
	result, err := recMgr.Run()
	if err != nil {
		logger.Error("startup recovery failed: %v", err)
		os.Exit(1)
	}
	logger.Info("startup recovery complete: jobs_failed=%d tasks_failed=%d", result.JobsFailed, result.TasksFailed)

	lic := license.Resolve(&cfg.License)
	enforcer := license.NewEnforcer(lic)
	workerID := hostnameOrFallback()

	reg := prometheus.NewRegistry()
	metricsRegistry := metrics.New(reg)

	adapters := buildAdapters(cfg, log)
	var resolveGate ingestion.ResolveGate
	if rg, ok := adapters[jobmodel.EngineResolve].(ingestion.ResolveGate); ok {
		resolveGate = rg
	}
	ing := ingestion.New(st, log, resolveGate)
	sch := scheduler.New(st, adapters, enforcer, workerID, log)
	queryLayer := query.New(st, cfg.Database.ReportsDir)

	srv := server.New(server.Config{
		Ingestion:      ing,
		Scheduler:      sch,
		Store:          st,
		Query:          queryLayer,
		Metrics:        metricsRegistry,
		ResolveEnabled: cfg.Encoders.ResolveScriptingURL != "",
		Readiness: readiness.Config{
			FFmpegPath:  cfg.Encoders.FFmpegPath,
			FFprobePath: cfg.Encoders.FFprobePath,
			OutputRoot:  cfg.Database.ReportsDir,
		},
		Logger: log,
	})

	httpSrv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      srv.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go runWatchFolders(st, ing, sch, cfg, log)

	hbMonitor := heartbeat.New(st, enforcer, cfg.Heartbeat.OfflineThreshold)
	stopHeartbeat := make(chan struct{})
	go runHeartbeat(hbMonitor, st, metricsRegistry, workerID, cfg.Heartbeat.Interval, log, stopHeartbeat)

	go func() {
		logger.Info("listening on %s", httpSrv.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("shutting down")
	close(stopHeartbeat)
	if err := hbMonitor.Deregister(workerID, workerID); err != nil {
		logger.Error("worker deregistration error: %v", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error: %v", err)
	}
}

// runHeartbeat is the process's own local worker liveness emitter
// (§5's "heartbeat emitter" execution context): it beats for the
// local worker, sweeps offline workers, and republishes the worker
// gauge set on every tick until stopped.
func runHeartbeat(mon *heartbeat.Monitor, st *store.Store, metricsRegistry *metrics.Registry, workerID string, interval time.Duration, log hclog.Logger, stop <-chan struct{}) {
	hbLog := log.Named("heartbeat")
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if _, err := mon.Heartbeat(workerID, workerID); err != nil {
				hbLog.Warn("heartbeat rejected", "worker_id", workerID, "error", err)
			}
			if err := mon.SweepOffline(); err != nil {
				hbLog.Error("offline sweep failed", "error", err)
				continue
			}
			workers, err := st.ListWorkerStatus()
			if err != nil {
				hbLog.Error("failed to list worker status", "error", err)
				continue
			}
			metricsRegistry.ObserveWorkers(workers)
		}
	}
}

func hostnameOrFallback() string {
	h, err := os.Hostname()
	if err != nil || h == "" {
		return "proxyforge-worker"
	}
	return h
}

// buildAdapters wires the ffmpeg adapter unconditionally and the
// resolve adapter only when a scripting bridge URL is configured; the
// resolve adapter's Availability/Scripting boundaries have no local
// implementation to satisfy otherwise (§4.4).
func buildAdapters(cfg *config.Config, log hclog.Logger) map[jobmodel.Engine]engine.Adapter {
	adapters := map[jobmodel.Engine]engine.Adapter{
		jobmodel.EngineFFmpeg: ffmpeg.New(ffmpeg.Config{
			Logger:         log,
			FFmpegPath:     cfg.Encoders.FFmpegPath,
			FFprobePath:    cfg.Encoders.FFprobePath,
			TerminateGrace: cfg.Encoders.TerminateGrace,
		}),
	}
	if cfg.Encoders.ResolveScriptingURL != "" {
		adapters[jobmodel.EngineResolve] = resolve.New(resolve.Config{
			Logger:       log,
			Availability: noAvailability{},
			Scripting:    noScripting{},
		})
	}
	return adapters
}

// noAvailability/noScripting are placeholders until an operator wires
// a real bridge to a local Resolve installation via Config.Encoders.
// ResolveScriptingURL alone does not produce one.
type noAvailability struct{}

func (noAvailability) Check(ctx context.Context) (bool, *resolve.Installation, string) {
	return false, nil, "resolve scripting bridge not wired in this deployment"
}

type noScripting struct{}

func (noScripting) AvailablePresets(ctx context.Context) ([]string, error) {
	return nil, fmt.Errorf("resolve scripting bridge not wired in this deployment")
}

func (noScripting) Render(ctx context.Context, inputPath, outputPath, preset string, onProgress func(jobmodel.DeliveryStage)) error {
	return fmt.Errorf("resolve scripting bridge not wired in this deployment")
}

func runWatchFolders(st *store.Store, ing *ingestion.Service, sch *scheduler.Scheduler, cfg *config.Config, log hclog.Logger) {
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
		MaxConcurrentJobs:    cfg.Automation.MaxConcurrentJobs,
		Logger:               log,
	})

	ticker := time.NewTicker(cfg.WatchFolders.PollInterval)
	defer ticker.Stop()
	for range ticker.C {
		folders, err := st.ListWatchFolders()
		if err != nil {
			log.Named("watchfolder").Error("failed to list watch folders", "error", err)
			continue
		}
		eng.Scan(folders)
	}
}
