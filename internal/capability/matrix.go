// Package capability implements the pure, static (container, codec)
// routing table and the codec/container coherence table described in
// §4.2, plus the proxy-profile registry layered on top of them.
package capability

import (
	"fmt"
	"strings"

	"github.com/Venkmine/proxyforge/internal/apperr"
	"github.com/Venkmine/proxyforge/internal/jobmodel"
)

// Normalise lowercases s and strips a single leading dot, matching the
// container/codec normalisation rule in §4.2.
func Normalise(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.TrimPrefix(s, ".")
}

// routeEntry is one (codec, container) -> engine routing fact.
type routeEntry struct {
	codec     string
	container string
	engine    jobmodel.Engine
}

// standardRoutes lists every standard-delivery (codec, container) pair
// that routes to ffmpeg (§4.2).
var standardRoutes = []routeEntry{
	{"h264", "mp4", jobmodel.EngineFFmpeg},
	{"h264", "mov", jobmodel.EngineFFmpeg},
	{"h264", "mkv", jobmodel.EngineFFmpeg},
	{"h265", "mp4", jobmodel.EngineFFmpeg},
	{"h265", "mov", jobmodel.EngineFFmpeg},
	{"h265", "mkv", jobmodel.EngineFFmpeg},
	{"prores", "mov", jobmodel.EngineFFmpeg},
	{"dnxhr", "mov", jobmodel.EngineFFmpeg},
	{"dnxhr", "mxf", jobmodel.EngineFFmpeg},
	{"dnxhd", "mxf", jobmodel.EngineFFmpeg},
}

// cameraProprietaryCodecs route to resolve regardless of container,
// since camera-native wrappers are not meaningfully "containers" in
// the ffmpeg sense (§4.2).
var cameraProprietaryCodecs = map[string]bool{
	"arriraw":       true,
	"redcode":       true,
	"braw":          true,
	"proresraw":     true,
	"cinemadng":     true,
	"sonyvenice":    true,
	"sonyvenice2":   true,
	"sonyxocn":      true,
}

// RouteDecision is the result of routing a (container, codec) pair.
type RouteDecision struct {
	Engine            jobmodel.Engine
	Rejected          bool
	Unknown           bool
	Reason            string
	RecommendedAction string
}

// Route implements the §4.2 routing rule: standard delivery codecs in
// standard containers route to ffmpeg, camera-proprietary formats
// route to resolve, and any unrecognised pair is rejected
// conservatively rather than guessed at.
func Route(container, codec string) RouteDecision {
	c := Normalise(container)
	k := Normalise(codec)

	if cameraProprietaryCodecs[k] {
		return RouteDecision{Engine: jobmodel.EngineResolve}
	}
	for _, r := range standardRoutes {
		if r.codec == k && r.container == c {
			return RouteDecision{Engine: r.engine}
		}
	}

	// A recognised codec in an unlisted container is a coherence
	// rejection, not an unknown pair — CheckCodecContainer gives the
	// precise message; here we only know no route exists.
	if isKnownCodec(k) {
		return RouteDecision{
			Rejected:          true,
			Reason:            fmt.Sprintf("codec %q is not supported in container %q", k, c),
			RecommendedAction: "use a supported codec/container pairing",
		}
	}

	return RouteDecision{
		Unknown:           true,
		Reason:            fmt.Sprintf("no routing rule for codec %q in container %q", k, c),
		RecommendedAction: "confirm the source codec and container are correctly identified",
	}
}

func isKnownCodec(k string) bool {
	if cameraProprietaryCodecs[k] {
		return true
	}
	for _, r := range standardRoutes {
		if r.codec == k {
			return true
		}
	}
	return false
}

// validCodecContainers is the §4.2 coherence table: DNxHD must be MXF
// only; DNxHR accepts MOV or MXF; ProRes accepts MOV only; H.264/H.265
// accept MP4, MOV or MKV.
var validCodecContainers = map[string][]string{
	"dnxhd":  {"mxf"},
	"dnxhr":  {"mov", "mxf"},
	"prores": {"mov"},
	"h264":   {"mp4", "mov", "mkv"},
	"h265":   {"mp4", "mov", "mkv"},
}

// CheckCodecContainer enforces the coherence table independently of
// Route, so the ffmpeg adapter can re-check at command-build time
// (defence in depth, §4.4) without going through the full router.
func CheckCodecContainer(codec, container string) error {
	k := Normalise(codec)
	c := Normalise(container)

	valid, known := validCodecContainers[k]
	if !known {
		return nil // unknown codecs are handled by Route, not this table
	}
	for _, v := range valid {
		if v == c {
			return nil
		}
	}
	return apperr.New(apperr.TagCodecContainerMismatch,
		fmt.Sprintf("codec %q is not valid in container %q; valid containers: %s", k, c, strings.Join(valid, ", "))).
		WithContext("codec", k).
		WithContext("container", c).
		WithContext("valid_containers", valid)
}
