package ffmpeg

import (
	"fmt"

	"github.com/Venkmine/proxyforge/internal/capability"
	"github.com/Venkmine/proxyforge/internal/jobmodel"
)

// containerFormats maps a normalised container to its ffmpeg -f value.
var containerFormats = map[string]string{
	"mp4": "mp4",
	"mov": "mov",
	"mkv": "matroska",
	"mxf": "mxf",
}

// videoCodecArgs maps a normalised codec to its ffmpeg -c:v encoder
// name and any fixed profile flags. ProRes always resolves to the
// software encoder: no GPU ProRes encoder exists (§4.4), so this map
// is consulted directly instead of going through a hardware-selection
// helper the way H.264/HEVC might.
var videoCodecArgs = map[string][]string{
	"h264":   {"-c:v", "libx264"},
	"h265":   {"-c:v", "libx265"},
	"prores": {"-c:v", "prores_ks"},
	"dnxhr":  {"-c:v", "dnxhd"}, // ffmpeg's dnxhd encoder also emits DNxHR with -profile:v
	"dnxhd":  {"-c:v", "dnxhd"},
}

func audioCodecArg(codec string) []string {
	switch capability.Normalise(codec) {
	case "aac":
		return []string{"-c:a", "aac"}
	case "pcm":
		return []string{"-c:a", "pcm_s16le"}
	case "", "copy":
		return []string{"-c:a", "copy"}
	default:
		return []string{"-c:a", codec}
	}
}

// BuildArgs constructs the ffmpeg argv deterministically from resolved
// parameters (§4.4). The returned argv is what Run records into
// ExecutionResult.Argv for audit.
func BuildArgs(inputPath, outputPath string, settings jobmodel.DeliverSettings) ([]string, error) {
	if err := capability.CheckCodecContainer(settings.VideoCodec, settings.Container); err != nil {
		return nil, err // defence in depth, re-checked at command-build time
	}

	args := []string{"-y", "-i", inputPath}

	videoArgs, ok := videoCodecArgs[capability.Normalise(settings.VideoCodec)]
	if !ok {
		return nil, fmt.Errorf("no ffmpeg encoder mapping for codec %q", settings.VideoCodec)
	}
	args = append(args, videoArgs...)

	if settings.Resolution != "" && settings.Resolution != "source" {
		args = append(args, "-vf", fmt.Sprintf("scale=%s", settings.Resolution))
	}

	switch settings.FPSMode {
	case "explicit":
		if settings.FPSExplicit > 0 {
			args = append(args, "-r", fmt.Sprintf("%.3f", settings.FPSExplicit))
		}
	case "source", "":
		// no -r flag: ffmpeg preserves source frame rate by default
	}

	args = append(args, audioCodecArg(settings.AudioCodec)...)

	format, ok := containerFormats[capability.Normalise(settings.Container)]
	if !ok {
		return nil, fmt.Errorf("no ffmpeg format mapping for container %q", settings.Container)
	}
	args = append(args, "-f", format, outputPath)

	return args, nil
}
