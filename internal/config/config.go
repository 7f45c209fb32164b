// Package config holds the complete application configuration, loaded
// from an optional YAML file and overridden by environment variables,
// following the field-tag convention of the teacher's configuration
// package.
package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration object.
type Config struct {
	Server       ServerConfig       `yaml:"server"`
	Database     DatabaseConfig     `yaml:"database"`
	Encoders     EncodersConfig     `yaml:"encoders"`
	License      LicenseConfig      `yaml:"license"`
	Scheduler    SchedulerConfig    `yaml:"scheduler"`
	WatchFolders WatchFoldersConfig `yaml:"watch_folders"`
	Automation   AutomationConfig   `yaml:"automation"`
	Heartbeat    HeartbeatConfig    `yaml:"heartbeat"`
}

// ServerConfig configures the HTTP control and monitoring surface.
type ServerConfig struct {
	Host         string        `yaml:"host" env:"FORGE_HOST" default:"0.0.0.0"`
	Port         int           `yaml:"port" env:"FORGE_PORT" default:"8080"`
	ReadTimeout  time.Duration `yaml:"read_timeout" env:"FORGE_READ_TIMEOUT" default:"10s"`
	WriteTimeout time.Duration `yaml:"write_timeout" env:"FORGE_WRITE_TIMEOUT" default:"30s"`
}

// DatabaseConfig configures the embedded persistence store (§4.3 / §6).
type DatabaseConfig struct {
	Path       string `yaml:"path" env:"FORGE_DATABASE_PATH" default:"./proxyforge-data/proxyforge.db"`
	ReportsDir string `yaml:"reports_dir" env:"FORGE_REPORTS_DIR" default:"./proxyforge-data/reports"`
}

// EncodersConfig configures the external encoder executables.
type EncodersConfig struct {
	FFmpegPath          string        `yaml:"ffmpeg_path" env:"FORGE_FFMPEG_PATH" default:"ffmpeg"`
	FFprobePath         string        `yaml:"ffprobe_path" env:"FORGE_FFPROBE_PATH" default:"ffprobe"`
	ResolveScriptingURL string        `yaml:"resolve_scripting_url" env:"FORGE_RESOLVE_URL" default:""`
	TerminateGrace      time.Duration `yaml:"terminate_grace" env:"FORGE_TERMINATE_GRACE" default:"5s"`
}

// LicenseConfig configures the local-only license resolution (§4.8).
type LicenseConfig struct {
	FilePath string `yaml:"file_path" env:"FORGE_LICENSE_FILE" default:"./proxyforge-data/license.json"`
}

// SchedulerConfig configures concurrency within and across jobs (§4.5, §9).
type SchedulerConfig struct {
	ClipConcurrencyPerJob int `yaml:"clip_concurrency_per_job" env:"FORGE_CLIP_CONCURRENCY" default:"1"`
	CrossJobConcurrency   int `yaml:"cross_job_concurrency" env:"FORGE_CROSS_JOB_CONCURRENCY" default:"1"`
}

// WatchFoldersConfig configures the periodic watch-folder scan (§4.7).
type WatchFoldersConfig struct {
	PollInterval         time.Duration `yaml:"poll_interval" env:"FORGE_WATCH_POLL_INTERVAL" default:"20s"`
	MinAgeSeconds         int           `yaml:"min_age_seconds" env:"FORGE_WATCH_MIN_AGE" default:"10"`
	RequiredStableChecks int           `yaml:"required_stable_checks" env:"FORGE_WATCH_STABLE_CHECKS" default:"3"`
	StabilityInterval    time.Duration `yaml:"stability_interval" env:"FORGE_WATCH_STABILITY_INTERVAL" default:"5s"`
}

// AutomationConfig makes the §9 Open Question's hard-coded minima
// configurable, preserving the spec's stated defaults.
type AutomationConfig struct {
	MinFreeDiskGB       int `yaml:"min_free_disk_gb" env:"FORGE_MIN_FREE_DISK_GB" default:"10"`
	MaxConcurrentJobs int `yaml:"max_concurrent_jobs" env:"FORGE_MAX_CONCURRENT_JOBS" default:"1"`
}

// HeartbeatConfig configures the local worker's liveness emitter (§5,
// "the heartbeat emitter" execution context; §3 WorkerStatus).
type HeartbeatConfig struct {
	Interval         time.Duration `yaml:"interval" env:"FORGE_HEARTBEAT_INTERVAL" default:"5s"`
	OfflineThreshold time.Duration `yaml:"offline_threshold" env:"FORGE_HEARTBEAT_OFFLINE_THRESHOLD" default:"30s"`
}

var (
	current *Config
	mu      sync.RWMutex
)

// Default returns a Config populated entirely from field defaults.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(reflect.ValueOf(cfg).Elem())
	return cfg
}

// Load reads an optional YAML file at path (ignored if empty or
// missing), applies field defaults for anything left unset, then
// applies environment-variable overrides. The result becomes the
// process-global config returned by Get.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parsing config %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	applyEnvOverrides(reflect.ValueOf(cfg).Elem())

	mu.Lock()
	current = cfg
	mu.Unlock()
	return cfg, nil
}

// Get returns the process-global config, loading defaults if Load was
// never called.
func Get() *Config {
	mu.RLock()
	cfg := current
	mu.RUnlock()
	if cfg != nil {
		return cfg
	}
	cfg, _ = Load("")
	return cfg
}

func applyDefaults(v reflect.Value) {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		fv := v.Field(i)

		if fv.Kind() == reflect.Struct {
			applyDefaults(fv)
			continue
		}

		def, ok := field.Tag.Lookup("default")
		if !ok || !isZero(fv) {
			continue
		}
		setFromString(fv, def)
	}
}

func applyEnvOverrides(v reflect.Value) {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		fv := v.Field(i)

		if fv.Kind() == reflect.Struct {
			applyEnvOverrides(fv)
			continue
		}

		envKey, ok := field.Tag.Lookup("env")
		if !ok {
			continue
		}
		val := os.Getenv(envKey)
		if val == "" {
			continue
		}
		setFromString(fv, val)
	}
}

func isZero(v reflect.Value) bool {
	return v.IsZero()
}

func setFromString(fv reflect.Value, s string) {
	switch fv.Kind() {
	case reflect.String:
		fv.SetString(s)
	case reflect.Int, reflect.Int64:
		if fv.Type() == reflect.TypeOf(time.Duration(0)) {
			if d, err := time.ParseDuration(s); err == nil {
				fv.SetInt(int64(d))
			}
			return
		}
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			fv.SetInt(n)
		}
	case reflect.Bool:
		if b, err := strconv.ParseBool(s); err == nil {
			fv.SetBool(b)
		}
	}
}

// LicenseTypeFromEnv implements the §6 override:
// FORGE_LICENSE_TYPE in {free, freelance, facility}.
func LicenseTypeFromEnv() (string, bool) {
	v := strings.ToLower(strings.TrimSpace(os.Getenv("FORGE_LICENSE_TYPE")))
	switch v {
	case "free", "freelance", "facility":
		return v, true
	default:
		return "", false
	}
}
