package capability

import "github.com/Venkmine/proxyforge/internal/jobmodel"

// ProxyProfile binds a symbolic profile id to an engine, codec,
// container, resolution policy and further engine parameters (§4.2).
type ProxyProfile struct {
	ID               string
	Engine           jobmodel.Engine
	Codec            string
	Container        string
	ResolutionPolicy string
	Params           map[string]string
}

var profileRegistry = map[string]ProxyProfile{
	"proxy_h264_low": {
		ID:               "proxy_h264_low",
		Engine:           jobmodel.EngineFFmpeg,
		Codec:            "h264",
		Container:        "mp4",
		ResolutionPolicy: "half",
		Params:           map[string]string{"crf": "28", "preset": "veryfast"},
	},
	"proxy_h264_standard": {
		ID:               "proxy_h264_standard",
		Engine:           jobmodel.EngineFFmpeg,
		Codec:            "h264",
		Container:        "mp4",
		ResolutionPolicy: "source",
		Params:           map[string]string{"crf": "23", "preset": "fast"},
	},
	"proxy_prores_proxy": {
		ID:               "proxy_prores_proxy",
		Engine:           jobmodel.EngineFFmpeg,
		Codec:            "prores",
		Container:        "mov",
		ResolutionPolicy: "quarter",
		Params:           map[string]string{"profile": "0"},
	},
	"proxy_dnxhr_lb": {
		ID:               "proxy_dnxhr_lb",
		Engine:           jobmodel.EngineFFmpeg,
		Codec:            "dnxhr",
		Container:        "mov",
		ResolutionPolicy: "half",
		Params:           map[string]string{"profile": "dnxhr_lb"},
	},
	"proxy_prores_proxy_resolve": {
		ID:               "proxy_prores_proxy_resolve",
		Engine:           jobmodel.EngineResolve,
		Codec:            "prores",
		Container:        "mov",
		ResolutionPolicy: "quarter",
		Params:           map[string]string{"resolve_preset": "ProRes Proxy"},
	},
	"proxy_braw_to_prores_resolve": {
		ID:               "proxy_braw_to_prores_resolve",
		Engine:           jobmodel.EngineResolve,
		Codec:            "prores",
		Container:        "mov",
		ResolutionPolicy: "half",
		Params:           map[string]string{"resolve_preset": "ProRes LT"},
	},
}

// GetProfile looks up a profile by id.
func GetProfile(id string) (ProxyProfile, bool) {
	p, ok := profileRegistry[id]
	return p, ok
}

// ListProfiles returns every registered profile, for CLI/validation
// error messages that enumerate valid choices.
func ListProfiles() []ProxyProfile {
	out := make([]ProxyProfile, 0, len(profileRegistry))
	for _, p := range profileRegistry {
		out = append(out, p)
	}
	return out
}
