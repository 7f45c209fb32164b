package ffmpeg

import (
	"context"
	"fmt"
	"os"
	"syscall"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/Venkmine/proxyforge/internal/apperr"
	"github.com/Venkmine/proxyforge/internal/engine"
	"github.com/Venkmine/proxyforge/internal/jobmodel"
)

// Adapter implements engine.Adapter for FFmpeg (§4.4).
type Adapter struct {
	log            hclog.Logger
	runner         CommandRunner
	spawner        Spawner
	ffmpegPath     string
	ffprobePath    string
	terminateGrace time.Duration
	caps           capabilities
}

// Config configures an Adapter.
type Config struct {
	Logger         hclog.Logger
	FFmpegPath     string
	FFprobePath    string
	TerminateGrace time.Duration
	Runner         CommandRunner // nil uses DefaultCommandRunner
	Spawner        Spawner       // nil uses DefaultSpawner
}

// New constructs a ready-to-use FFmpeg adapter.
func New(cfg Config) *Adapter {
	if cfg.Runner == nil {
		cfg.Runner = DefaultCommandRunner{}
	}
	if cfg.Spawner == nil {
		cfg.Spawner = DefaultSpawner{}
	}
	if cfg.TerminateGrace <= 0 {
		cfg.TerminateGrace = 5 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = hclog.NewNullLogger()
	}
	return &Adapter{
		log:            cfg.Logger.Named("ffmpeg"),
		runner:         cfg.Runner,
		spawner:        cfg.Spawner,
		ffmpegPath:     cfg.FFmpegPath,
		ffprobePath:    cfg.FFprobePath,
		terminateGrace: cfg.TerminateGrace,
	}
}

// Run executes one clip through ffmpeg to completion (§4.4).
func (a *Adapter) Run(ctx context.Context, params engine.ResolvedParams, onProgress func(engine.ProgressUpdate)) (*engine.ExecutionResult, error) {
	a.caps.probe(ctx, a.runner, a.ffmpegPath)

	task := params.Task
	settings := params.Settings
	started := time.Now()

	argv, err := BuildArgs(task.SourcePath, task.OutputPath, settings)
	if err != nil {
		return nil, apperr.NewWithCause(apperr.TagEngineFailure, "failed to construct ffmpeg arguments", 500, err)
	}

	encoder := a.selectedEncoder(settings)
	if encoder != "" {
		argv = substituteEncoder(argv, settings.VideoCodec, encoder)
	}

	onProgress(engine.ProgressUpdate{Stage: jobmodel.StageStarting})

	durationSecs := probeDuration(ctx, a.runner, a.ffprobePath, task.SourcePath)
	tracker := newProgressTracker(durationSecs)

	proc := a.spawner.Spawn(ctx, a.ffmpegPath, argv...)
	stderr, err := proc.StderrPipe()
	if err != nil {
		return nil, apperr.NewWithCause(apperr.TagEngineFailure, "failed to open ffmpeg stderr pipe", 500, err)
	}
	if err := proc.Start(); err != nil {
		return nil, apperr.NewWithCause(apperr.TagEngineFailure, "failed to start ffmpeg", 500, err)
	}

	onProgress(engine.ProgressUpdate{Stage: jobmodel.StageEncoding})

	var lastTail []string
	scanDone := make(chan error, 1)
	go func() {
		scanDone <- scanStderr(stderr, func(s stderrSample) {
			lastTail = appendTail(lastTail, fmt.Sprintf("time-sample elapsed=%v", s.elapsed))
			pct, eta, crossed := tracker.observe(s)
			if crossed {
				onProgress(engine.ProgressUpdate{Stage: jobmodel.StageEncoding, ProgressPct: pct, ETASeconds: eta})
			}
		})
	}()

	waitDone := make(chan error, 1)
	go func() { waitDone <- proc.Wait() }()

	select {
	case <-ctx.Done():
		a.terminate(proc, waitDone)
		<-scanDone
		_ = os.Remove(task.OutputPath)
		return &engine.ExecutionResult{
			Outcome:     engine.OutcomeCancelled,
			Argv:        argv,
			StartedAt:   started,
			CompletedAt: time.Now(),
		}, nil
	case waitErr := <-waitDone:
		<-scanDone
		onProgress(engine.ProgressUpdate{Stage: jobmodel.StageFinalizing})

		if waitErr != nil {
			return &engine.ExecutionResult{
				Outcome:       engine.OutcomeFailed,
				FailureReason: waitErr.Error(),
				Argv:          argv,
				StartedAt:     started,
				CompletedAt:   time.Now(),
			}, nil
		}

		info, statErr := os.Stat(task.OutputPath)
		if statErr != nil || info.Size() == 0 {
			return &engine.ExecutionResult{
				Outcome:       engine.OutcomeFailed,
				FailureReason: "output_missing",
				Argv:          argv,
				StartedAt:     started,
				CompletedAt:   time.Now(),
			}, nil
		}

		return &engine.ExecutionResult{
			Outcome:          engine.OutcomeSuccess,
			OutputPath:       task.OutputPath,
			Argv:             argv,
			EffectiveEncoder: encoder,
			StartedAt:        started,
			CompletedAt:      time.Now(),
		}, nil
	}
}

// terminate implements the §4.4 cancellation sequence: SIGTERM first,
// then up to terminateGrace for ffmpeg to exit on its own, then
// SIGKILL. It always drains waitDone itself so Run never blocks on a
// channel terminate has already consumed.
func (a *Adapter) terminate(proc Process, waitDone <-chan error) {
	if err := proc.Signal(syscall.SIGTERM); err != nil {
		_ = proc.Kill()
		<-waitDone
		return
	}
	select {
	case <-waitDone:
	case <-time.After(a.terminateGrace):
		_ = proc.Kill()
		<-waitDone
	}
}

func (a *Adapter) selectedEncoder(settings jobmodel.DeliverSettings) string {
	codec := settings.VideoCodec
	switch codec {
	case "h264":
		return firstAvailable(a.caps, h264HardwareEncoders, "libx264")
	case "h265", "hevc":
		return firstAvailable(a.caps, hevcHardwareEncoders, "libx265")
	default:
		return "" // prores/dnxhr/dnxhd: fixed software mapping in args.go, never probed for hardware
	}
}

func firstAvailable(caps capabilities, candidates []string, fallback string) string {
	for _, c := range candidates {
		if caps.has(c) {
			return c
		}
	}
	return fallback
}

func substituteEncoder(argv []string, codec, encoder string) []string {
	for i, a := range argv {
		if a == "-c:v" && i+1 < len(argv) {
			argv[i+1] = encoder
		}
	}
	return argv
}

func appendTail(tail []string, line string) []string {
	const maxTail = 20
	tail = append(tail, line)
	if len(tail) > maxTail {
		tail = tail[len(tail)-maxTail:]
	}
	return tail
}
