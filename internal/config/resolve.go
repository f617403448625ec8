package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// CLIArgs is the command-line contribution: flags the user set
// explicitly, keyed by canonical name, and the positional paths.
type CLIArgs struct {
	Values map[string]string
	Paths  []string
}

func (CLIArgs) name() string { return "flag" }

func (c CLIArgs) lookup(key string) (any, bool) {
	if key == "path" {
		if len(c.Paths) == 0 {
			return nil, false
		}
		return c.Paths, true
	}
	v, ok := c.Values[key]
	return v, ok
}

// FromFlags captures the flags changed on fs and the positional args.
// Flags left at their default are not captured, so the manifest can
// still supply those fields.
func FromFlags(fs *pflag.FlagSet, args []string) CLIArgs {
	values := make(map[string]string)
	fs.Visit(func(f *pflag.Flag) {
		values[NormalizeKey(f.Name)] = f.Value.String()
	})
	return CLIArgs{Values: values, Paths: args}
}

// Inputs are the raw sources for one resolution.
type Inputs struct {
	// CLI holds the explicitly supplied flags and paths.
	CLI CLIArgs

	// ManifestPath is the project manifest. Empty or missing means no
	// manifest contribution.
	ManifestPath string

	// Env is a snapshot of the environment used for credentials.
	Env map[string]string
}

// Resolve merges inputs into an EffectiveConfig. Any error aborts the
// whole resolution: callers get either a complete, valid config or a
// *ConfigError.
func Resolve(in Inputs) (*EffectiveConfig, error) {
	manifest := Manifest{}
	if in.ManifestPath != "" {
		m, err := ReadManifest(in.ManifestPath)
		if err != nil {
			return nil, err
		}
		manifest = m
	}

	acc, err := merge(in.CLI, manifest, defaults)
	if err != nil {
		return nil, err
	}
	cfg := acc.cfg

	if len(cfg.Paths) > 0 {
		cfg.ConfigFile = configFilePath(cfg.ConfigFile, cfg.Paths[0])
	}
	cfg.Credentials = resolveCredentials(cfg.ConfigFile, in.Env)

	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// configFilePath anchors a relative credentials file at the first
// analysis path.
func configFilePath(file, root string) string {
	if file == "" || filepath.IsAbs(file) {
		return file
	}
	return filepath.Join(root, file)
}

// credentialsFile is the shape of the YAML credentials file. Pointers
// distinguish an absent key from an empty value.
type credentialsFile struct {
	RepoToken    *string `yaml:"repo_token"`
	ServiceName  *string `yaml:"service_name"`
	ServiceJobID *string `yaml:"service_job_id"`
}

// Environment variables consulted for credentials, in order.
var (
	repoTokenEnv    = []string{"KRYPTON_REPO_TOKEN", "BARIUM_REPO_TOKEN"}
	serviceNameEnv  = []string{"KRYPTON_SERVICE_NAME"}
	serviceJobIDEnv = []string{"KRYPTON_SERVICE_JOB_ID", "TRAVIS_JOB_ID", "CIRCLE_BUILD_NUM", "GITHUB_RUN_ID"}
)

// resolveCredentials applies the credential chain: YAML file value,
// then the first non-empty environment variable, then the default.
// A missing or unreadable YAML file contributes nothing.
func resolveCredentials(path string, env map[string]string) Credentials {
	var yml credentialsFile
	if path != "" {
		if data, err := os.ReadFile(path); err == nil {
			if err := yaml.Unmarshal(data, &yml); err != nil {
				yml = credentialsFile{}
			}
		}
	}
	return Credentials{
		RepoToken:    firstOf(yml.RepoToken, env, repoTokenEnv, ""),
		ServiceName:  firstOf(yml.ServiceName, env, serviceNameEnv, DefaultServiceName),
		ServiceJobID: firstOf(yml.ServiceJobID, env, serviceJobIDEnv, ""),
	}
}

func firstOf(yml *string, env map[string]string, names []string, def string) string {
	if yml != nil {
		return *yml
	}
	for _, n := range names {
		if v := env[n]; v != "" {
			return v
		}
	}
	return def
}

// validate is shared; validator caches struct metadata.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validateConfig runs the checks that span fields or need the merged
// result.
func validateConfig(cfg *EffectiveConfig) error {
	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return formatError(fieldName(fe), describe(fe))
		}
		return &ConfigError{Kind: Format, Msg: "invalid configuration", Err: err}
	}
	if cfg.URL != "" && len(cfg.Paths) > 1 {
		return formatError("url", fmt.Sprintf(
			"reporting to a URL supports a single path, got %d", len(cfg.Paths)))
	}
	return nil
}

// fieldName strips element indexes so "path[1]" reports as "path".
func fieldName(fe validator.FieldError) string {
	name, _, _ := strings.Cut(fe.Field(), "[")
	return name
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "min":
		return "at least one value is required"
	case "required":
		return "empty values are not allowed"
	case "http_url":
		return fmt.Sprintf("%q is not an http(s) URL", fe.Value())
	default:
		return fmt.Sprintf("failed %q check", fe.Tag())
	}
}
