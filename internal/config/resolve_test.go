package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unbound-force/krypton/internal/grade"
)

func writeManifest(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), DefaultManifest)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func cli(paths []string, kv ...string) CLIArgs {
	values := make(map[string]string)
	for i := 0; i+1 < len(kv); i += 2 {
		values[kv[i]] = kv[i+1]
	}
	return CLIArgs{Values: values, Paths: paths}
}

func requireFormatError(t *testing.T, err error, field string) {
	t.Helper()
	require.Error(t, err)
	var cerr *ConfigError
	require.True(t, errors.As(err, &cerr), "expected *ConfigError, got %T", err)
	assert.Equal(t, Format, cerr.Kind)
	assert.Equal(t, field, cerr.Field)
	assert.Contains(t, err.Error(), field)
}

func TestResolve_Defaults(t *testing.T) {
	cfg, err := Resolve(Inputs{})
	require.NoError(t, err)

	assert.Nil(t, cfg.AbsoluteThreshold)
	assert.Nil(t, cfg.ModuleThreshold)
	assert.Nil(t, cfg.AverageThreshold)
	assert.Nil(t, cfg.AverageNumThreshold)
	assert.False(t, cfg.NoAssert)
	assert.Equal(t, []string{"."}, cfg.Paths)
	assert.Equal(t, DefaultConfigFile, cfg.ConfigFile)
	assert.Equal(t, DefaultServiceName, cfg.Credentials.ServiceName)
}

func TestResolve_CLIWinsOverManifest(t *testing.T) {
	manifest := writeManifest(t, `[krypton]
max_absolute = D
max_modules = C
max_average_num = 9
path = ["from-manifest"]
`)
	cfg, err := Resolve(Inputs{
		CLI:          cli([]string{"src"}, "max_absolute", "b", "max_average_num", "3.5"),
		ManifestPath: manifest,
	})
	require.NoError(t, err)

	assert.Equal(t, grade.B, *cfg.AbsoluteThreshold)
	assert.Equal(t, grade.C, *cfg.ModuleThreshold)
	assert.Equal(t, 3.5, *cfg.AverageNumThreshold)
	assert.Equal(t, []string{"src"}, cfg.Paths)
	assert.Equal(t, filepath.Join("src", DefaultConfigFile), cfg.ConfigFile)
}

func TestResolve_ManifestOnly(t *testing.T) {
	manifest := writeManifest(t, `[krypton]
max-absolute = "c"
max-average = 'a'
no-assert = True
path = lib
exclude = ["*_test.go", "gen/**"]
ignore = build
config-file = ci/krypton.yml
metrics-file = out/krypton.prom
`)
	cfg, err := Resolve(Inputs{ManifestPath: manifest})
	require.NoError(t, err)

	assert.Equal(t, grade.C, *cfg.AbsoluteThreshold)
	assert.Equal(t, grade.A, *cfg.AverageThreshold)
	assert.Nil(t, cfg.ModuleThreshold)
	assert.True(t, cfg.NoAssert)
	assert.Equal(t, []string{"lib"}, cfg.Paths)
	assert.Equal(t, "*_test.go,gen/**", cfg.Exclude)
	assert.Equal(t, "build", cfg.Ignore)
	assert.Equal(t, filepath.Join("lib", "ci", "krypton.yml"), cfg.ConfigFile)
	assert.Equal(t, "out/krypton.prom", cfg.MetricsFile)
}

func TestResolve_MissingManifestIsEmpty(t *testing.T) {
	cfg, err := Resolve(Inputs{
		CLI:          cli([]string{"pkg"}, "max_modules", "E"),
		ManifestPath: filepath.Join(t.TempDir(), "absent.cfg"),
	})
	require.NoError(t, err)
	assert.Equal(t, grade.E, *cfg.ModuleThreshold)
}

func TestResolve_ListWithNonString(t *testing.T) {
	manifest := writeManifest(t, "[krypton]\npath = [\"a\",\"b\", true]\n")

	cfg, err := Resolve(Inputs{ManifestPath: manifest})
	assert.Nil(t, cfg)
	requireFormatError(t, err, "path")
}

func TestResolve_DuplicateBeforeFieldValidation(t *testing.T) {
	manifest := writeManifest(t, "[krypton]\nmax_average_num = value_1\nmax_average_num = value_2\n")

	cfg, err := Resolve(Inputs{ManifestPath: manifest})
	assert.Nil(t, cfg)
	require.Error(t, err)

	var cerr *ConfigError
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, Structural, cerr.Kind)
	assert.Contains(t, err.Error(), "contains duplicate parameters")
}

func TestResolve_FieldFormatErrors(t *testing.T) {
	tests := []struct {
		name     string
		manifest string
		field    string
	}{
		{"grade letter", "max_absolute = G", "max_absolute"},
		{"grade word", "max_modules = good", "max_modules"},
		{"float", "max_average_num = lots", "max_average_num"},
		{"bool", "no_assert = maybe", "no_assert"},
		{"exclude list", "exclude = [1, 2]", "exclude"},
		{"ignore nested", "ignore = [[a]]", "ignore"},
		{"empty path list", "path = []", "path"},
		{"url", "url = not a url", "url"},
		{"float infinity", "max_average_num = inf", "max_average_num"},
		{"float nan", "max_average_num = NaN", "max_average_num"},
		{"path mapping", "path = {a: b}", "path"},
		{"path number", "path = 5", "path"},
		{"path bool", "path = true", "path"},
		{"exclude mapping", "exclude = {a: b}", "exclude"},
		{"exclude number", "exclude = 5", "exclude"},
		{"exclude bool", "exclude = true", "exclude"},
		{"ignore mapping", "ignore = {a: b}", "ignore"},
		{"ignore number", "ignore = 5", "ignore"},
		{"ignore bool", "ignore = true", "ignore"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			manifest := writeManifest(t, "[krypton]\n"+tt.manifest+"\n")
			cfg, err := Resolve(Inputs{ManifestPath: manifest})
			assert.Nil(t, cfg)
			requireFormatError(t, err, tt.field)
		})
	}
}

func TestResolve_CLIFormatError(t *testing.T) {
	_, err := Resolve(Inputs{CLI: cli(nil, "max_average", "Z")})
	requireFormatError(t, err, "max_average")
}

func TestResolve_NonFiniteCLIFloat(t *testing.T) {
	for _, v := range []string{"+Inf", "-inf", "NaN"} {
		_, err := Resolve(Inputs{CLI: cli(nil, "max_average_num", v)})
		requireFormatError(t, err, "max_average_num")
	}
}

func TestResolve_PlainGlobsStayStrings(t *testing.T) {
	manifest := writeManifest(t, `[krypton]
path = "5"
exclude = *_test.go,gen/**
ignore = third_*
`)
	cfg, err := Resolve(Inputs{ManifestPath: manifest})
	require.NoError(t, err)
	assert.Equal(t, []string{"5"}, cfg.Paths)
	assert.Equal(t, "*_test.go,gen/**", cfg.Exclude)
	assert.Equal(t, "third_*", cfg.Ignore)
}

func TestResolve_BooleanSpellings(t *testing.T) {
	tests := []struct {
		value string
		want  bool
	}{
		{"yes", true},
		{"On", true},
		{"1", true},
		{"TRUE", true},
		{"no", false},
		{"off", false},
		{"0", false},
		{"False", false},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			manifest := writeManifest(t, "[krypton]\nno_assert = "+tt.value+"\n")
			cfg, err := Resolve(Inputs{ManifestPath: manifest})
			require.NoError(t, err)
			assert.Equal(t, tt.want, cfg.NoAssert)
		})
	}
}

func TestResolve_URLWithSeveralPaths(t *testing.T) {
	_, err := Resolve(Inputs{CLI: cli([]string{"a", "b"}, "url", "https://collector.example/jobs")})
	requireFormatError(t, err, "url")

	cfg, err := Resolve(Inputs{CLI: cli([]string{"a"}, "url", "https://collector.example/jobs")})
	require.NoError(t, err)
	assert.Equal(t, "https://collector.example/jobs", cfg.URL)
}

func TestResolve_GradeRoundTrip(t *testing.T) {
	cfg, err := Resolve(Inputs{CLI: cli(nil, "max_absolute", "'d'", "max_modules", "e", "max_average", `"F"`)})
	require.NoError(t, err)

	again, err := Resolve(Inputs{CLI: cli(nil,
		"max_absolute", cfg.AbsoluteThreshold.String(),
		"max_modules", cfg.ModuleThreshold.String(),
		"max_average", cfg.AverageThreshold.String(),
	)})
	require.NoError(t, err)
	assert.Equal(t, cfg.AbsoluteThreshold, again.AbsoluteThreshold)
	assert.Equal(t, cfg.ModuleThreshold, again.ModuleThreshold)
	assert.Equal(t, cfg.AverageThreshold, again.AverageThreshold)
	assert.Equal(t, grade.D, *again.AbsoluteThreshold)
}

func TestAccumulator_FirstValueWins(t *testing.T) {
	acc := newAccumulator()
	var absolute field
	for _, f := range fields {
		if f.key == "max_absolute" {
			absolute = f
		}
	}

	require.NoError(t, acc.apply(absolute, cli(nil, "max_absolute", "B")))
	require.NoError(t, acc.apply(absolute, Manifest{"max_absolute": "F"}))
	require.NoError(t, acc.apply(absolute, Manifest{"max_absolute": "not even a grade"}))

	assert.Equal(t, grade.B, *acc.cfg.AbsoluteThreshold)
	assert.Equal(t, "flag", acc.from["max_absolute"])
}

func TestMerge_LowerSourceFillsGaps(t *testing.T) {
	acc, err := merge(
		cli(nil, "max_modules", "B"),
		Manifest{"max_modules": "D", "max_average": "C"},
		defaults,
	)
	require.NoError(t, err)

	assert.Equal(t, grade.B, *acc.cfg.ModuleThreshold)
	assert.Equal(t, grade.C, *acc.cfg.AverageThreshold)
	assert.Equal(t, "manifest", acc.from["max_average"])
	assert.Equal(t, "default", acc.from["path"])
}

func TestFromFlags_OnlyChangedFlags(t *testing.T) {
	fs := pflag.NewFlagSet("krypton", pflag.ContinueOnError)
	fs.StringP("max-absolute", "b", "", "")
	fs.StringP("max-modules", "m", "", "")
	fs.Bool("no-assert", false, "")
	fs.StringP("config-file", "c", DefaultConfigFile, "")
	require.NoError(t, fs.Parse([]string{"-b", "c", "--no-assert", "src", "lib"}))

	args := FromFlags(fs, fs.Args())
	assert.Equal(t, map[string]string{"max_absolute": "c", "no_assert": "true"}, args.Values)
	assert.Equal(t, []string{"src", "lib"}, args.Paths)

	_, ok := args.lookup("config_file")
	assert.False(t, ok)
}

func TestResolve_Credentials(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, DefaultConfigFile),
		[]byte("repo_token: from-yaml\nservice_name: circleci\n"), 0o644))

	cfg, err := Resolve(Inputs{
		CLI: cli([]string{root}),
		Env: map[string]string{
			"KRYPTON_REPO_TOKEN": "from-env",
			"TRAVIS_JOB_ID":      "4699301",
		},
	})
	require.NoError(t, err)
	assert.Equal(t, Credentials{
		RepoToken:    "from-yaml",
		ServiceName:  "circleci",
		ServiceJobID: "4699301",
	}, cfg.Credentials)
}

func TestResolve_CredentialsFromEnv(t *testing.T) {
	cfg, err := Resolve(Inputs{
		CLI: cli([]string{t.TempDir()}),
		Env: map[string]string{
			"KRYPTON_REPO_TOKEN":     "",
			"BARIUM_REPO_TOKEN":      "barium",
			"KRYPTON_SERVICE_NAME":   "github-actions",
			"KRYPTON_SERVICE_JOB_ID": "77",
			"TRAVIS_JOB_ID":          "12",
		},
	})
	require.NoError(t, err)
	assert.Equal(t, Credentials{
		RepoToken:    "barium",
		ServiceName:  "github-actions",
		ServiceJobID: "77",
	}, cfg.Credentials)
}

func TestResolve_CredentialsBrokenYAMLIgnored(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, DefaultConfigFile), []byte("repo_token: [unclosed\n"), 0o644))

	cfg, err := Resolve(Inputs{CLI: cli([]string{root}), Env: map[string]string{"BARIUM_REPO_TOKEN": "t"}})
	require.NoError(t, err)
	assert.Equal(t, "t", cfg.Credentials.RepoToken)
	assert.Equal(t, DefaultServiceName, cfg.Credentials.ServiceName)
}

func TestEnviron_DotEnvOverlay(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"),
		[]byte("KRYPTON_TEST_ONLY_DOTENV=dotenv\nKRYPTON_TEST_BOTH=dotenv\n"), 0o644))
	t.Setenv("KRYPTON_TEST_BOTH", "process")

	env, err := Environ(dir)
	require.NoError(t, err)
	assert.Equal(t, "dotenv", env["KRYPTON_TEST_ONLY_DOTENV"])
	assert.Equal(t, "process", env["KRYPTON_TEST_BOTH"])

	_, set := os.LookupEnv("KRYPTON_TEST_ONLY_DOTENV")
	assert.False(t, set)
}

func TestEnviron_NoDotEnv(t *testing.T) {
	t.Setenv("KRYPTON_TEST_PROCESS", "1")
	env, err := Environ(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "1", env["KRYPTON_TEST_PROCESS"])
}
