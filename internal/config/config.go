// Package config resolves the effective run configuration from the
// command line, the project manifest, the YAML credentials file and
// the environment.
//
// Threshold and analysis fields follow one precedence chain, applied
// per field: an explicitly set flag wins over the manifest, which
// wins over the built-in default. The reporting credentials follow
// their own chain: YAML file, then environment, then default.
//
// Field names are normalized before lookup: lower-case, with "-"
// treated as "_". The flag --max-average and the manifest keys
// max-average and max_average all name the same field.
package config

import (
	"github.com/unbound-force/krypton/internal/grade"
)

// Well-known file names and defaults.
const (
	// DefaultManifest is the project manifest read from the working
	// directory.
	DefaultManifest = "krypton.cfg"

	// ManifestSection is the manifest section holding krypton keys.
	ManifestSection = "krypton"

	// DefaultConfigFile is the YAML credentials file, relative to the
	// first analysis path.
	DefaultConfigFile = ".krypton.yml"

	// DefaultServiceName is reported when no CI service is configured.
	DefaultServiceName = "travis-ci"

	// DefaultPath is analyzed when no path is given.
	DefaultPath = "."
)

// Credentials identify the run to the reporting endpoint.
type Credentials struct {
	RepoToken    string `json:"repo_token"`
	ServiceName  string `json:"service_name"`
	ServiceJobID string `json:"service_job_id"`
}

// EffectiveConfig is the fully merged and validated configuration for
// one run. It is built once by Resolve and read-only afterwards.
type EffectiveConfig struct {
	// AbsoluteThreshold is the worst grade accepted for any block.
	AbsoluteThreshold *grade.Grade `json:"max_absolute,omitempty"`

	// ModuleThreshold is the worst grade accepted for a module average.
	ModuleThreshold *grade.Grade `json:"max_modules,omitempty"`

	// AverageThreshold is the worst grade accepted for the project
	// average.
	AverageThreshold *grade.Grade `json:"max_average,omitempty"`

	// AverageNumThreshold caps the numeric project average. It is
	// checked independently of AverageThreshold.
	AverageNumThreshold *float64 `json:"max_average_num,omitempty"`

	// NoAssert is passed through to the analyzer.
	NoAssert bool `json:"no_assert"`

	// Paths are the analysis roots, in order.
	Paths []string `json:"path" validate:"min=1,dive,required"`

	// Exclude and Ignore are comma-joined glob lists passed through to
	// file discovery.
	Exclude string `json:"exclude,omitempty"`
	Ignore  string `json:"ignore,omitempty"`

	// URL is the reporting endpoint; empty disables reporting.
	URL string `json:"url,omitempty" validate:"omitempty,http_url"`

	// ConfigFile is the resolved path of the YAML credentials file.
	ConfigFile string `json:"config_file"`

	// MetricsFile, when set, receives a Prometheus textfile export.
	MetricsFile string `json:"metrics_file,omitempty"`

	Credentials Credentials `json:"-"`
}
