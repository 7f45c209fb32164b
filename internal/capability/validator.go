package capability

import (
	"fmt"
	"os"
	"strings"

	"github.com/Venkmine/proxyforge/internal/apperr"
	"github.com/Venkmine/proxyforge/internal/jobmodel"
)

// ValidationInput is the engine-agnostic shape both the HTTP ingestion
// path and the CLI JobSpec path reduce to before calling Validate.
type ValidationInput struct {
	SourcePaths      []string
	OutputDirectory  string
	EngineOverride   jobmodel.Engine // "" means "let the codec/container decide"
	ProxyProfile     string          // "" means no profile bound; codec/container drive routing directly
	Codec            string
	Container        string
	NamingTemplate   string
	ResolvePreset    string
	RequiresEdition  jobmodel.ResolveEdition
}

// ValidationResult carries the routing decision a caller needs to
// construct ClipTasks once validation succeeds.
type ValidationResult struct {
	Engine jobmodel.Engine
}

// Validate runs every §4.1/§4.2 precondition and returns the engine
// the job should route to on success, or an *apperr.AppError on
// failure. Nothing is persisted by this function; callers must not
// persist anything if it returns an error.
func Validate(in ValidationInput) (*ValidationResult, error) {
	if len(in.SourcePaths) == 0 {
		return nil, apperr.New(apperr.TagSourceMissingOrNotFile, "source_paths must not be empty")
	}
	for _, p := range in.SourcePaths {
		info, err := os.Stat(p)
		if err != nil || !info.Mode().IsRegular() {
			return nil, apperr.New(apperr.TagSourceMissingOrNotFile,
				fmt.Sprintf("source path %q does not exist or is not a regular file", p)).
				WithContext("path", p)
		}
	}

	if in.OutputDirectory == "" {
		return nil, apperr.New(apperr.TagSourceMissingOrNotFile, "output_directory is required")
	}
	if err := checkWritableDir(in.OutputDirectory); err != nil {
		return nil, err
	}

	if err := CheckCodecContainer(in.Codec, in.Container); err != nil {
		return nil, err
	}

	decision := Route(in.Container, in.Codec)
	if decision.Rejected || decision.Unknown {
		return nil, apperr.New(apperr.TagSourceUnsupported, decision.Reason).
			WithRecommendedAction(decision.RecommendedAction).
			WithContext("codec", Normalise(in.Codec)).
			WithContext("container", Normalise(in.Container))
	}

	engine := decision.Engine
	if in.EngineOverride != "" && in.EngineOverride != engine {
		return nil, apperr.New(apperr.TagSourceUnsupported,
			fmt.Sprintf("engine override %q conflicts with the routing engine %q for codec/container", in.EngineOverride, engine)).
			WithContext("override_engine", in.EngineOverride).
			WithContext("routed_engine", engine)
	}

	if in.ProxyProfile != "" {
		profile, ok := GetProfile(in.ProxyProfile)
		if !ok {
			return nil, apperr.New(apperr.TagProxyProfileMismatch,
				fmt.Sprintf("unknown proxy profile %q", in.ProxyProfile))
		}
		if profile.Engine != engine {
			return nil, apperr.New(apperr.TagProxyProfileMismatch,
				fmt.Sprintf("profile %q is bound to engine %q but source routes to engine %q", profile.ID, profile.Engine, engine)).
				WithContext("profile_engine", profile.Engine).
				WithContext("routed_engine", engine)
		}
	}

	if engine == jobmodel.EngineResolve && in.ResolvePreset == "" {
		// Preset existence itself is checked by the resolve adapter
		// (§4.4), since the set of available presets is only known at
		// adapter probe time; the validator only enforces one was named.
		return nil, apperr.New(apperr.TagResolvePresetMissing, "resolve_preset is required when routing to the resolve engine")
	}

	if len(in.SourcePaths) > 1 {
		if !strings.Contains(in.NamingTemplate, "{index}") && !strings.Contains(in.NamingTemplate, "{source_name}") {
			return nil, apperr.New(apperr.TagNamingTemplateAmbiguous,
				fmt.Sprintf("naming_template %q must contain {index} or {source_name} for multi-clip jobs", in.NamingTemplate))
		}
	}

	return &ValidationResult{Engine: engine}, nil
}

func checkWritableDir(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return apperr.New(apperr.TagSourceMissingOrNotFile,
			fmt.Sprintf("output_directory %q does not exist", dir)).WithContext("path", dir)
	}
	if !info.IsDir() {
		return apperr.New(apperr.TagSourceMissingOrNotFile,
			fmt.Sprintf("output_directory %q is not a directory", dir)).WithContext("path", dir)
	}
	probe := dir + "/.proxyforge-write-check"
	f, err := os.Create(probe)
	if err != nil {
		return apperr.New(apperr.TagSourceMissingOrNotFile,
			fmt.Sprintf("output_directory %q is not writable", dir)).WithContext("path", dir)
	}
	f.Close()
	os.Remove(probe)
	return nil
}
