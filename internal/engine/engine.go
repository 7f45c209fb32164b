// Package engine defines the narrow interface shared by the FFmpeg and
// Resolve adapters (§4.4): given a ClipTask and resolved parameters,
// run it to completion, streaming progress and honouring cancellation.
package engine

import (
	"context"
	"time"

	"github.com/Venkmine/proxyforge/internal/jobmodel"
)

// Outcome is the terminal result of one adapter run.
type Outcome string

const (
	OutcomeSuccess   Outcome = "SUCCESS"
	OutcomeFailed    Outcome = "FAILED"
	OutcomeCancelled Outcome = "CANCELLED"
	OutcomeSkipped   Outcome = "SKIPPED"
)

// ExecutionResult is what an adapter returns once a clip finishes.
type ExecutionResult struct {
	Outcome          Outcome
	OutputPath       string
	FailureReason    string
	Argv             []string // recorded for audit, ffmpeg adapter only
	EffectiveEncoder string
	StartedAt        time.Time
	CompletedAt      time.Time
	SkipMetadata     map[string]string
}

// ProgressUpdate is emitted on stage transitions and 5% crossings,
// never on a fixed timer (§4.4).
type ProgressUpdate struct {
	Stage          jobmodel.DeliveryStage
	ProgressPct    float64 // 0 when indeterminate
	ETASeconds     *float64
}

// ResolvedParams is everything an adapter needs to run one clip,
// already validated and routed by the capability/naming packages.
type ResolvedParams struct {
	Task            *jobmodel.ClipTask
	Settings        jobmodel.DeliverSettings
}

// Adapter is implemented by internal/engine/ffmpeg and
// internal/engine/resolve.
type Adapter interface {
	// Run executes one clip task to completion. onProgress may be
	// called from a goroutine other than Run's; calls are sequential,
	// never concurrent, and callers must not block in it. ctx cancellation is the cooperative-cancellation
	// signal (§5); Run must terminate the underlying process promptly
	// and return OutcomeCancelled.
	Run(ctx context.Context, params ResolvedParams, onProgress func(ProgressUpdate)) (*ExecutionResult, error)
}
