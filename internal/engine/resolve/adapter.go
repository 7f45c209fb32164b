// Package resolve implements the Resolve engine.Adapter (§4.4).
// DaVinci Resolve exposes no Go scripting SDK in the example pack (its
// scripting API is a local Python/Lua bridge), so Availability and
// Scripting are boundary interfaces an operator wires to the real
// installation; no fabricated client library is introduced in their
// place (grounded on _examples/original_source/backend/_future/resolve).
package resolve

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/Venkmine/proxyforge/internal/apperr"
	"github.com/Venkmine/proxyforge/internal/engine"
	"github.com/Venkmine/proxyforge/internal/jobmodel"
)

// Installation describes a detected Resolve installation (§4.4, grounded
// on original_source's ResolveInstallation model).
type Installation struct {
	Version  string
	IsStudio bool
}

// Availability is the boundary to Resolve's own availability check.
// The real implementation probes a local installation; tests inject a
// fake.
type Availability interface {
	// Check returns (available, installation, reason). Adapter calls it
	// only through CheckAvailabilityOnce and never retries it.
	Check(ctx context.Context) (bool, *Installation, string)
}

// Scripting is the boundary to Resolve's scripting API: preset
// enumeration and render execution.
type Scripting interface {
	AvailablePresets(ctx context.Context) ([]string, error)
	Render(ctx context.Context, inputPath, outputPath, preset string, onProgress func(jobmodel.DeliveryStage)) error
}

const maxPresetsListed = 20

// Adapter implements engine.Adapter for Resolve.
type Adapter struct {
	log          hclog.Logger
	availability Availability
	scripting    Scripting

	checkedOnce   bool
	cachedOK      bool
	cachedInstall *Installation
	cachedReason  string
}

// Config configures an Adapter.
type Config struct {
	Logger       hclog.Logger
	Availability Availability
	Scripting    Scripting
}

// New constructs a ready-to-use Resolve adapter.
func New(cfg Config) *Adapter {
	if cfg.Logger == nil {
		cfg.Logger = hclog.NewNullLogger()
	}
	return &Adapter{
		log:          cfg.Logger.Named("resolve"),
		availability: cfg.Availability,
		scripting:    cfg.Scripting,
	}
}

// CheckAvailabilityOnce runs the availability probe on its first call
// and caches the result for the adapter's lifetime; later calls, for
// the same job or any later one, return the cached result without
// probing again.
func (a *Adapter) CheckAvailabilityOnce(ctx context.Context) (bool, *Installation, string) {
	if !a.checkedOnce {
		a.cachedOK, a.cachedInstall, a.cachedReason = a.availability.Check(ctx)
		a.checkedOnce = true
	}
	return a.cachedOK, a.cachedInstall, a.cachedReason
}

// Run executes one clip through Resolve (§4.4). Availability and
// edition gating are expected to have already been resolved by the
// ingestion service (through its ResolveGate) via CheckAvailabilityOnce and EvaluateEdition,
// since an unavailable or edition-mismatched job never reaches Run at
// all — no task is created in that case.
func (a *Adapter) Run(ctx context.Context, params engine.ResolvedParams, onProgress func(engine.ProgressUpdate)) (*engine.ExecutionResult, error) {
	task := params.Task
	settings := params.Settings
	started := time.Now()

	presets, err := a.scripting.AvailablePresets(ctx)
	if err != nil {
		return nil, apperr.NewWithCause(apperr.TagEngineFailure, "failed to enumerate resolve presets", 500, err)
	}
	if !contains(presets, settings.ResolvePreset) {
		return &engine.ExecutionResult{
			Outcome:       engine.OutcomeFailed,
			FailureReason: fmt.Sprintf("resolve preset %q not found; available: %s", settings.ResolvePreset, truncateList(presets, maxPresetsListed)),
			StartedAt:     started,
			CompletedAt:   time.Now(),
		}, apperr.New(apperr.TagResolvePresetMissing, "named resolve preset not present").
			WithContext("available_presets", truncateList(presets, maxPresetsListed))
	}

	onProgress(engine.ProgressUpdate{Stage: jobmodel.StageStarting})
	onProgress(engine.ProgressUpdate{Stage: jobmodel.StageEncoding})

	// Progress is indeterminate by contract (§4.4): Resolve does not
	// stream usable percent, so ProgressPct/ETASeconds are never set
	// here, only Stage advances.
	err = a.scripting.Render(ctx, task.SourcePath, task.OutputPath, settings.ResolvePreset, func(stage jobmodel.DeliveryStage) {
		onProgress(engine.ProgressUpdate{Stage: stage})
	})
	if ctx.Err() != nil {
		return &engine.ExecutionResult{
			Outcome:     engine.OutcomeCancelled,
			StartedAt:   started,
			CompletedAt: time.Now(),
		}, nil
	}
	if err != nil {
		return &engine.ExecutionResult{
			Outcome:       engine.OutcomeFailed,
			FailureReason: err.Error(),
			StartedAt:     started,
			CompletedAt:   time.Now(),
		}, nil
	}

	onProgress(engine.ProgressUpdate{Stage: jobmodel.StageFinalizing})
	return &engine.ExecutionResult{
		Outcome:     engine.OutcomeSuccess,
		OutputPath:  task.OutputPath,
		StartedAt:   started,
		CompletedAt: time.Now(),
	}, nil
}

// EvaluateEdition implements the §4.4 edition-gating rule: `either`
// never skips; any mismatch between detected and required edition
// produces a SKIPPED outcome (never FAILED) with explanatory metadata.
func EvaluateEdition(required jobmodel.ResolveEdition, install *Installation) (skip bool, metadata map[string]string) {
	if required == jobmodel.EditionEither || required == "" {
		return false, nil
	}
	detected := jobmodel.EditionFree
	if install != nil && install.IsStudio {
		detected = jobmodel.EditionStudio
	}
	if detected == required {
		return false, nil
	}

	version := ""
	if install != nil {
		version = install.Version
	}
	reason := "resolve_free_not_installed"
	if required == jobmodel.EditionStudio {
		reason = "resolve_studio_not_installed"
	}
	return true, map[string]string{
		"reason":   reason,
		"detected": string(detected),
		"required": string(required),
		"version":  version,
	}
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func truncateList(list []string, max int) string {
	if len(list) <= max {
		return fmt.Sprint(list)
	}
	return fmt.Sprintf("%v (and %d more)", list[:max], len(list)-max)
}
