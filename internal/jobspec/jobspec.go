// Package jobspec decodes and validates the versioned JobSpec JSON
// document the CLI surface accepts (§6), and converts it into an
// ingestion.Request.
package jobspec

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/Venkmine/proxyforge/internal/apperr"
	"github.com/Venkmine/proxyforge/internal/ingestion"
	"github.com/Venkmine/proxyforge/internal/jobmodel"
)

// minJobSpecVersion is the lowest jobspec_version this build accepts
// (§6: "Versioned via jobspec_version >= 2.0").
const minJobSpecVersion = "2.0"

// JobSpec is the CLI's job-creation document.
type JobSpec struct {
	JobSpecVersion         string  `json:"jobspec_version"`
	Sources                []string `json:"sources"`
	OutputDirectory        string  `json:"output_directory"`
	Codec                  string  `json:"codec"`
	Container              string  `json:"container"`
	Resolution             string  `json:"resolution"`
	NamingTemplate         string  `json:"naming_template"`
	ProxyProfile           string  `json:"proxy_profile"`
	ResolvePreset          string  `json:"resolve_preset,omitempty"`
	RequiresResolveEdition string  `json:"requires_resolve_edition,omitempty"`
	FPSMode                string  `json:"fps_mode,omitempty"`
	FPSExplicit            float64 `json:"fps_explicit,omitempty"`
	Engine                 string  `json:"engine,omitempty"`
	Prefix                 string  `json:"prefix,omitempty"`
	Suffix                 string  `json:"suffix,omitempty"`
	PreserveSourceDirs     bool    `json:"preserve_source_dirs,omitempty"`
	PreserveDirLevels      int     `json:"preserve_dir_levels,omitempty"`
}

// Parse validates raw JSON against the closed schema, decodes it, then
// checks the minimum jobspec_version. A schema violation or a version
// below the minimum returns an *apperr.AppError tagged
// validation.source_unsupported; input that is not JSON returns one
// tagged validation.source_missing_or_not_file. The CLI maps either to
// exit code 1.
func Parse(raw []byte) (*JobSpec, error) {
	sch, err := schema()
	if err != nil {
		return nil, fmt.Errorf("jobspec: compiling schema: %w", err)
	}
	result, err := sch.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return nil, apperr.New(apperr.TagSourceMissingOrNotFile, fmt.Sprintf("jobspec is not valid JSON: %v", err))
	}
	if !result.Valid() {
		var msgs []string
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return nil, apperr.New(apperr.TagSourceUnsupported, "jobspec failed schema validation").
			WithContext("schema_errors", msgs)
	}

	var spec JobSpec
	if err := json.Unmarshal(raw, &spec); err != nil {
		return nil, apperr.New(apperr.TagSourceMissingOrNotFile, fmt.Sprintf("jobspec unmarshal: %v", err))
	}

	if versionLess(spec.JobSpecVersion, minJobSpecVersion) {
		return nil, apperr.New(apperr.TagSourceUnsupported,
			fmt.Sprintf("jobspec_version %q is below minimum %q", spec.JobSpecVersion, minJobSpecVersion))
	}

	return &spec, nil
}

// versionLess compares two "MAJOR.MINOR" version strings numerically.
func versionLess(a, b string) bool {
	aMaj, aMin := splitVersion(a)
	bMaj, bMin := splitVersion(b)
	if aMaj != bMaj {
		return aMaj < bMaj
	}
	return aMin < bMin
}

func splitVersion(v string) (int, int) {
	parts := strings.SplitN(v, ".", 2)
	var maj, min int
	fmt.Sscanf(parts[0], "%d", &maj)
	if len(parts) > 1 {
		fmt.Sscanf(parts[1], "%d", &min)
	}
	return maj, min
}

// ToDict re-encodes the spec to JSON with default-filled zero values,
// used by the from_dict/to_dict round-trip identity property (§8).
func (s *JobSpec) ToDict() ([]byte, error) {
	return json.Marshal(s)
}

// ToRequest converts a validated JobSpec into an ingestion.Request.
func (s *JobSpec) ToRequest() ingestion.Request {
	engine := jobmodel.Engine("")
	if s.Engine != "" {
		engine = jobmodel.Engine(s.Engine)
	}
	return ingestion.Request{
		SourcePaths:     s.Sources,
		OutputDirectory: s.OutputDirectory,
		EngineOverride:  engine,
		Settings: jobmodel.DeliverSettings{
			VideoCodec:             s.Codec,
			Container:              s.Container,
			Resolution:             s.Resolution,
			NamingTemplate:         s.NamingTemplate,
			ProxyProfile:           s.ProxyProfile,
			ResolvePreset:          s.ResolvePreset,
			RequiresResolveEdition: jobmodel.ResolveEdition(s.RequiresResolveEdition),
			FPSMode:                s.FPSMode,
			FPSExplicit:            s.FPSExplicit,
			Prefix:                 s.Prefix,
			Suffix:                 s.Suffix,
			PreserveSourceDirs:     s.PreserveSourceDirs,
			PreserveDirLevels:      s.PreserveDirLevels,
		},
	}
}
