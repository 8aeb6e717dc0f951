package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ferrors "git.home.luguber.info/inful/refbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/refbuilder/internal/libspec"
	"git.home.luguber.info/inful/refbuilder/internal/retry"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

const minimalConfig = `
libraries:
  - id: javascript
    kind: client-lib
    section_path: /reference/javascript
    sections: spec/common-client-libs-sections.json
    spec: spec/supabase_js_v2.yml
    typedoc: spec/combined.json
`

func TestLoadAppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "refbuilder.yaml")
	writeFile(t, path, minimalConfig)

	cfg, res, err := Load(path)
	require.NoError(t, err)
	require.NotNil(t, res)

	assert.Equal(t, CurrentVersion, cfg.Version)
	assert.Equal(t, filepath.Join(dir, "out"), cfg.Output.Directory)
	assert.Equal(t, filepath.Join(dir, ".refbuilder", "state.db"), cfg.Store.Path)
	assert.Equal(t, DefaultConcurrency, cfg.Build.Concurrency)
	assert.Equal(t, LogLevelInfo, cfg.Logging.Level)
	assert.Equal(t, LogFormatText, cfg.Logging.Format)
	assert.Equal(t, DefaultInterval, cfg.Daemon.Interval)
	assert.Equal(t, DefaultDebounce, cfg.Watch.Debounce)
	assert.Equal(t, DefaultSearchSubject, cfg.Search.NATS.Subject)
	assert.Equal(t, retry.DefaultPolicy(), cfg.Retry.Policy())

	lib, ok := cfg.Library("javascript")
	require.True(t, ok)
	assert.Equal(t, "javascript", lib.Name)
	assert.Equal(t, filepath.Join(dir, "spec", "supabase_js_v2.yml"), lib.Spec)
	assert.Len(t, lib.Inputs(), 3)

	_, ok = cfg.Library("missing")
	assert.False(t, ok)
}

func TestLoadExpandsEnvAndNormalizes(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("REFBUILDER_TEST_OUT", "public/ref")
	writeFile(t, filepath.Join(dir, ".env"), "REFBUILDER_TEST_NATS=nats://127.0.0.1:4222\n")
	t.Cleanup(func() { _ = os.Unsetenv("REFBUILDER_TEST_NATS") })

	path := filepath.Join(dir, "refbuilder.yaml")
	writeFile(t, path, `
output:
  directory: ${REFBUILDER_TEST_OUT}
logging:
  level: WARNING
  format: JSON
retry:
  backoff: Exponential
  initial: 250ms
  max: 2s
  max_retries: 0
search:
  enabled: true
  nats:
    url: ${REFBUILDER_TEST_NATS}
daemon:
  interval: 1h
libraries:
  - id: cli
    kind: CLI
    section_path: /reference/cli
    sections: cli-sections.json
    spec: cli.yml
`)

	cfg, res, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "public", "ref"), cfg.Output.Directory)
	assert.Equal(t, "nats://127.0.0.1:4222", cfg.Search.NATS.URL)
	assert.Equal(t, LogLevelWarn, cfg.Logging.Level)
	assert.Equal(t, LogFormatJSON, cfg.Logging.Format)
	assert.Equal(t, libspec.KindCLI, cfg.Libraries[0].Kind)
	assert.Equal(t, time.Hour, cfg.Daemon.Interval)

	p := cfg.Retry.Policy()
	assert.Equal(t, retry.ModeExponential, p.Mode)
	assert.Equal(t, 250*time.Millisecond, p.Initial)
	assert.Equal(t, 2*time.Second, p.Max)
	assert.Equal(t, 0, p.MaxRetries)

	assert.NotEmpty(t, res.Warnings)
}

func TestLoadLibraryFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "libraries", "clients", "dart.yml"), `
libraries:
  - id: dart
    kind: client-lib
    section_path: /reference/dart
    sections: sections.json
    spec: supabase_dart_v2.yml
`)
	writeFile(t, filepath.Join(dir, "libraries", "api.yml"), `
libraries:
  - id: api
    kind: openapi
    section_path: /reference/api
    sections: source://supabase/apps/docs/spec/common-api-sections.json
    spec: source://supabase/apps/docs/spec/api_v1_openapi.json
`)
	path := filepath.Join(dir, "refbuilder.yaml")
	writeFile(t, path, `
sources:
  - name: supabase
    url: https://github.com/supabase/supabase.git
library_files:
  - libraries/**/*.yml
`)

	cfg, _, err := Load(path)
	require.NoError(t, err)
	require.Len(t, cfg.Libraries, 2)

	dart, ok := cfg.Library("dart")
	require.True(t, ok)
	assert.Equal(t, filepath.Join(dir, "libraries", "clients", "supabase_dart_v2.yml"), dart.Spec)

	api, ok := cfg.Library("api")
	require.True(t, ok)
	assert.Equal(t, libspec.KindAPI, api.Kind)
	assert.Equal(t, "source://supabase/apps/docs/spec/api_v1_openapi.json", api.Spec, "source paths are resolved at fetch time")
	assert.Equal(t, "supabase", SourceName(api.Spec))
	assert.Equal(t, DefaultBranch, cfg.Sources[0].Branch)
}

func TestLoadValidationErrors(t *testing.T) {
	cases := map[string]string{
		"no libraries": `output: {directory: out}`,
		"missing id": `
libraries:
  - kind: cli
    section_path: /cli
    sections: s.json
    spec: cli.yml`,
		"duplicate id": `
libraries:
  - {id: cli, kind: cli, section_path: /cli, sections: s.json, spec: cli.yml}
  - {id: cli, kind: cli, section_path: /cli2, sections: s.json, spec: cli.yml}`,
		"unknown kind": `
libraries:
  - {id: gql, kind: graphql, section_path: /gql, sections: s.json, spec: gql.yml}`,
		"relative section path": `
libraries:
  - {id: cli, kind: cli, section_path: cli, sections: s.json, spec: cli.yml}`,
		"typedoc on cli": `
libraries:
  - {id: cli, kind: cli, section_path: /cli, sections: s.json, spec: cli.yml, typedoc: combined.json}`,
		"unknown source": `
libraries:
  - {id: cli, kind: cli, section_path: /cli, sections: "source://nope/s.json", spec: cli.yml}`,
		"token auth without token": `
sources:
  - name: docs
    url: https://example.com/docs.git
    auth: {type: token}
libraries:
  - {id: cli, kind: cli, section_path: /cli, sections: s.json, spec: cli.yml}`,
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "refbuilder.yaml")
			writeFile(t, path, content)
			_, _, err := Load(path)
			require.Error(t, err)
			assert.True(t, ferrors.HasCategory(err, ferrors.CategoryValidation), "got %v", err)
		})
	}
}

func TestLoadMissingAndMalformed(t *testing.T) {
	_, _, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryConfig))

	path := filepath.Join(t.TempDir(), "bad.yaml")
	writeFile(t, path, "libraries: [")
	_, _, err = Load(path)
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryConfig))
}

func TestInitWritesLoadableConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "refbuilder.yaml")
	require.NoError(t, Init(path, false))

	err := Init(path, false)
	require.Error(t, err, "existing file is not overwritten without force")
	require.NoError(t, Init(path, true))

	cfg, _, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, cfg.Libraries, 3)
	assert.Equal(t, DefaultInterval, cfg.Daemon.Interval)
	assert.True(t, cfg.Build.Incremental)
}

func TestNormalizers(t *testing.T) {
	assert.Equal(t, LogLevelDebug, NormalizeLogLevel(" DEBUG "))
	assert.Equal(t, LogLevelInfo, NormalizeLogLevel("chatty"))
	assert.Equal(t, LogFormatText, NormalizeLogFormat(""))
	assert.Equal(t, LogLevelError.SlogLevel().String(), "ERROR")

	_, err := NormalizeConfig(nil)
	assert.Error(t, err)
}
