package jobspec

import "github.com/xeipuuv/gojsonschema"

// schemaJSON is the closed JSON schema for JobSpec (§6). Unknown top
// level fields are rejected, matching the control-surface's
// closed-schema contract for /control/jobs/create.
const schemaJSON = `{
	"type": "object",
	"properties": {
		"jobspec_version": { "type": "string" },
		"sources": {
			"type": "array",
			"items": { "type": "string", "minLength": 1 },
			"minItems": 1
		},
		"output_directory": { "type": "string", "minLength": 1 },
		"codec": { "type": "string", "minLength": 1 },
		"container": { "type": "string", "minLength": 1 },
		"resolution": { "type": "string", "minLength": 1 },
		"naming_template": { "type": "string", "minLength": 1 },
		"proxy_profile": { "type": "string", "minLength": 1 },
		"resolve_preset": { "type": "string" },
		"requires_resolve_edition": { "type": "string", "enum": ["free", "studio", "either"] },
		"fps_mode": { "type": "string" },
		"fps_explicit": { "type": "number" },
		"engine": { "type": ["string", "null"], "enum": ["ffmpeg", "resolve", null] },
		"prefix": { "type": "string" },
		"suffix": { "type": "string" },
		"preserve_source_dirs": { "type": "boolean" },
		"preserve_dir_levels": { "type": "integer" }
	},
	"required": [
		"jobspec_version", "sources", "output_directory", "codec",
		"container", "resolution", "naming_template", "proxy_profile"
	],
	"additionalProperties": false
}`

var compiledSchema *gojsonschema.Schema

func schema() (*gojsonschema.Schema, error) {
	if compiledSchema != nil {
		return compiledSchema, nil
	}
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(schemaJSON))
	if err != nil {
		return nil, err
	}
	compiledSchema = s
	return compiledSchema, nil
}
