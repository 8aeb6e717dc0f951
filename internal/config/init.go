package config

import (
	"os"

	"gopkg.in/yaml.v3"

	ferrors "git.home.luguber.info/inful/refbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/refbuilder/internal/libspec"
	"git.home.luguber.info/inful/refbuilder/internal/retry"
)

// Example returns the configuration written by Init.
func Example() Config {
	return Config{
		Version: CurrentVersion,
		Output:  OutputConfig{Directory: DefaultOutputDir},
		Logging: LoggingConfig{Level: LogLevelInfo, Format: LogFormatText},
		Build:   BuildConfig{Concurrency: DefaultConcurrency, Workspace: DefaultWorkspace, Incremental: true},
		Search: SearchConfig{
			Enabled: true,
			NATS:    NATSConfig{Subject: DefaultSearchSubject},
		},
		Store: StoreConfig{Path: DefaultStorePath},
		Retry: RetryConfig{Backoff: retry.ModeLinear, Initial: retry.DefaultPolicy().Initial, Max: retry.DefaultPolicy().Max},
		Daemon: DaemonConfig{
			Interval:    DefaultInterval,
			MetricsAddr: DefaultMetricsAddr,
		},
		Watch: WatchConfig{Debounce: DefaultDebounce},
		Sources: []Source{{
			Name:   "supabase",
			URL:    "https://github.com/supabase/supabase.git",
			Branch: "master",
		}},
		Libraries: []Library{
			{
				ID:          "javascript",
				Name:        "JavaScript",
				Kind:        libspec.KindClientLib,
				SectionPath: "/reference/javascript",
				Sections:    "source://supabase/apps/docs/spec/common-client-libs-sections.json",
				Spec:        "source://supabase/apps/docs/spec/supabase_js_v2.yml",
				TypeDoc:     "source://supabase/apps/docs/spec/enrichments/tsdoc_v2/combined.json",
			},
			{
				ID:          "cli",
				Name:        "CLI",
				Kind:        libspec.KindCLI,
				SectionPath: "/reference/cli",
				Sections:    "source://supabase/apps/docs/spec/common-cli-sections.json",
				Spec:        "source://supabase/apps/docs/spec/cli_v1_commands.yaml",
			},
			{
				ID:          "api",
				Name:        "Management API",
				Kind:        libspec.KindAPI,
				SectionPath: "/reference/api",
				Sections:    "source://supabase/apps/docs/spec/common-api-sections.json",
				Spec:        "source://supabase/apps/docs/spec/api_v1_openapi.json",
			},
		},
	}
}

// Init writes an example configuration file.
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return ferrors.ConfigError("configuration file already exists (use --force to overwrite)").
			WithContext("path", configPath).Build()
	}
	data, err := yaml.Marshal(Example())
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryInternal, "failed to marshal example config").Build()
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryFileSystem, "failed to write config file").
			WithContext("path", configPath).Build()
	}
	return nil
}
