package ffmpeg

import (
	"context"
	"strconv"
	"strings"
	"sync"
)

// h264HardwareEncoders and hevcHardwareEncoders are probed in
// preference order; the first one ffmpeg -encoders reports is used.
// ProRes has no entry here at all: no GPU ProRes encoder exists, so it
// is never offered hardware acceleration (§4.4), independent of what
// -encoders reports.
var h264HardwareEncoders = []string{"h264_videotoolbox", "h264_nvenc", "h264_qsv", "h264_vaapi"}
var hevcHardwareEncoders = []string{"hevc_videotoolbox", "hevc_nvenc", "hevc_qsv", "hevc_vaapi"}

// capabilities is probed once per process and cached, per §4.4
// ("probes hardware capabilities once per process").
type capabilities struct {
	once       sync.Once
	encoderSet map[string]bool
}

func (c *capabilities) probe(ctx context.Context, runner CommandRunner, ffmpegPath string) {
	c.once.Do(func() {
		c.encoderSet = make(map[string]bool)
		out, err := runner.Run(ctx, ffmpegPath, "-hide_banner", "-encoders")
		if err != nil {
			return
		}
		for _, line := range strings.Split(string(out), "\n") {
			fields := strings.Fields(line)
			for _, f := range fields {
				c.encoderSet[f] = true
			}
		}
	})
}

func (c *capabilities) has(encoder string) bool {
	return c.encoderSet[encoder]
}

// probeDuration shells out to ffprobe to obtain the input's duration
// in seconds. Returns 0 (unknown) if ffprobe fails or the value
// cannot be parsed; callers must treat 0 as "progress stays 0" per
// §4.4, never synthesize a duration.
func probeDuration(ctx context.Context, runner CommandRunner, ffprobePath, inputPath string) float64 {
	out, err := runner.Run(ctx, ffprobePath,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		inputPath,
	)
	if err != nil {
		return 0
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(string(out)), 64)
	if err != nil || v < 0 {
		return 0
	}
	return v
}
