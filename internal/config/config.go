package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"

	ferrors "git.home.luguber.info/inful/refbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/refbuilder/internal/libspec"
	"git.home.luguber.info/inful/refbuilder/internal/retry"
)

// SourcePrefix marks a path inside a fetched source repository: source://<name>/<path>.
const SourcePrefix = "source://"

// Config is the refbuilder configuration file.
type Config struct {
	Version      string        `yaml:"version"`
	Output       OutputConfig  `yaml:"output"`
	Logging      LoggingConfig `yaml:"logging"`
	Build        BuildConfig   `yaml:"build"`
	Search       SearchConfig  `yaml:"search"`
	Store        StoreConfig   `yaml:"store"`
	Retry        RetryConfig   `yaml:"retry"`
	Daemon       DaemonConfig  `yaml:"daemon"`
	Watch        WatchConfig   `yaml:"watch"`
	Sources      []Source      `yaml:"sources,omitempty"`
	Libraries    []Library     `yaml:"libraries"`
	LibraryFiles []string      `yaml:"library_files,omitempty"` // doublestar globs relative to the config file

	// BaseDir is the directory of the loaded config file; relative paths resolve against it.
	BaseDir string `yaml:"-"`
}

// OutputConfig controls where artifacts are written.
type OutputConfig struct {
	Directory string `yaml:"directory"`
	Clean     bool   `yaml:"clean"` // remove the output directory before a full build
}

// LoggingConfig selects the slog handler.
type LoggingConfig struct {
	Level  LogLevel  `yaml:"level"`
	Format LogFormat `yaml:"format"`
}

// BuildConfig tunes the build pipeline.
type BuildConfig struct {
	Concurrency int    `yaml:"concurrency"` // libraries built in parallel
	Workspace   string `yaml:"workspace"`   // clone directory for sources
	Incremental bool   `yaml:"incremental"` // skip libraries whose inputs did not change
}

// SearchConfig controls search record generation and delivery.
type SearchConfig struct {
	Enabled bool       `yaml:"enabled"`
	Version string     `yaml:"version,omitempty"` // stamped on every record
	NATS    NATSConfig `yaml:"nats"`
}

// NATSConfig enables publishing search records to JetStream when URL is set.
type NATSConfig struct {
	URL     string `yaml:"url,omitempty"`
	Subject string `yaml:"subject"`
}

// StoreConfig locates the SQLite build state.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// RetryConfig configures backoff for git fetches and NATS publishing.
type RetryConfig struct {
	Backoff    retry.Mode    `yaml:"backoff"`
	Initial    time.Duration `yaml:"initial"`
	Max        time.Duration `yaml:"max"`
	MaxRetries *int          `yaml:"max_retries,omitempty"` // nil keeps the default
}

// Policy converts the config into a retry policy.
func (r RetryConfig) Policy() retry.Policy {
	maxRetries := -1
	if r.MaxRetries != nil {
		maxRetries = *r.MaxRetries
	}
	return retry.NewPolicy(r.Backoff, r.Initial, r.Max, maxRetries)
}

// DaemonConfig configures scheduled rebuilds.
type DaemonConfig struct {
	Interval    time.Duration `yaml:"interval"`
	MetricsAddr string        `yaml:"metrics_addr"`
}

// WatchConfig configures file watching.
type WatchConfig struct {
	Debounce time.Duration `yaml:"debounce"`
	Ignore   []string      `yaml:"ignore,omitempty"` // doublestar patterns matched against the path below the watched directory
}

// Source is a git repository fetched before a build.
type Source struct {
	Name   string      `yaml:"name"`
	URL    string      `yaml:"url"`
	Branch string      `yaml:"branch,omitempty"`
	Auth   *AuthConfig `yaml:"auth,omitempty"`
}

// AuthType enumerates git authentication methods.
type AuthType string

const (
	AuthTypeNone  AuthType = "none"
	AuthTypeToken AuthType = "token"
	AuthTypeBasic AuthType = "basic"
	AuthTypeSSH   AuthType = "ssh"
)

// AuthConfig holds git credentials.
type AuthConfig struct {
	Type     AuthType `yaml:"type"`
	Username string   `yaml:"username,omitempty"`
	Password string   `yaml:"password,omitempty"`
	Token    string   `yaml:"token,omitempty"`
	KeyPath  string   `yaml:"key_path,omitempty"`
}

// IsZero reports whether no credentials are configured.
func (a *AuthConfig) IsZero() bool { return a == nil || a.Type == "" || a.Type == AuthTypeNone }

// Library is one documented library.
type Library struct {
	ID          string       `yaml:"id"`
	Name        string       `yaml:"name"`
	Kind        libspec.Kind `yaml:"kind"`
	SectionPath string       `yaml:"section_path"`
	Sections    string       `yaml:"sections"`          // navigation section tree (JSON)
	Spec        string       `yaml:"spec"`              // library spec (YAML or OpenAPI JSON)
	TypeDoc     string       `yaml:"typedoc,omitempty"` // compiled TypeDoc JSON, client libraries only
	Version     string       `yaml:"version,omitempty"`
	// ExcludedTarget hides sections that list this name in their excludes.
	ExcludedTarget string `yaml:"excluded_target,omitempty"`
}

// Inputs lists the library's input files that are set.
func (l Library) Inputs() []string {
	var out []string
	for _, p := range []string{l.Sections, l.Spec, l.TypeDoc} {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// SourceName returns the source a path refers to, or "" for plain paths.
func SourceName(path string) string {
	rest, ok := strings.CutPrefix(path, SourcePrefix)
	if !ok {
		return ""
	}
	name, _, _ := strings.Cut(rest, "/")
	return name
}

// Load reads, expands, normalizes, defaults and validates the configuration at configPath.
func Load(configPath string) (*Config, *NormalizationResult, error) {
	loadEnvFiles(filepath.Dir(configPath))

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, ferrors.ConfigError("configuration file not found").
				WithContext("path", configPath).Build()
		}
		return nil, nil, ferrors.WrapError(err, ferrors.CategoryConfig, "failed to read config file").
			WithContext("path", configPath).Fatal().Build()
	}

	var cfg Config
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &cfg); err != nil {
		return nil, nil, ferrors.WrapError(err, ferrors.CategoryConfig, "failed to unmarshal config").
			WithContext("path", configPath).Fatal().Build()
	}
	cfg.BaseDir, err = filepath.Abs(filepath.Dir(configPath))
	if err != nil {
		return nil, nil, fmt.Errorf("resolve config directory: %w", err)
	}

	if err := cfg.loadLibraryFiles(); err != nil {
		return nil, nil, err
	}

	res, err := NormalizeConfig(&cfg)
	if err != nil {
		return nil, nil, err
	}
	if err := NewDefaultApplier().ApplyDefaults(&cfg); err != nil {
		return nil, nil, err
	}
	cfg.resolvePaths()

	if err := ValidateConfig(&cfg); err != nil {
		return nil, nil, err
	}
	return &cfg, res, nil
}

// libraryFile is the shape of a file matched by library_files.
type libraryFile struct {
	Libraries []Library `yaml:"libraries"`
}

// loadLibraryFiles appends libraries from files matching LibraryFiles. Paths inside each
// file are relative to that file.
func (c *Config) loadLibraryFiles() error {
	for _, pattern := range c.LibraryFiles {
		if !filepath.IsAbs(pattern) {
			pattern = filepath.Join(c.BaseDir, pattern)
		}
		matches, err := doublestar.FilepathGlob(pattern)
		if err != nil {
			return ferrors.WrapError(err, ferrors.CategoryConfig, "invalid library_files pattern").
				WithContext("pattern", pattern).Fatal().Build()
		}
		for _, match := range matches {
			data, err := os.ReadFile(match)
			if err != nil {
				return ferrors.WrapError(err, ferrors.CategoryConfig, "failed to read library file").
					WithContext("path", match).Fatal().Build()
			}
			var f libraryFile
			if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &f); err != nil {
				return ferrors.WrapError(err, ferrors.CategoryConfig, "failed to unmarshal library file").
					WithContext("path", match).Fatal().Build()
			}
			dir := filepath.Dir(match)
			for _, lib := range f.Libraries {
				lib.Sections = resolve(dir, lib.Sections)
				lib.Spec = resolve(dir, lib.Spec)
				lib.TypeDoc = resolve(dir, lib.TypeDoc)
				c.Libraries = append(c.Libraries, lib)
			}
		}
	}
	return nil
}

func (c *Config) resolvePaths() {
	c.Output.Directory = resolve(c.BaseDir, c.Output.Directory)
	c.Store.Path = resolve(c.BaseDir, c.Store.Path)
	c.Build.Workspace = resolve(c.BaseDir, c.Build.Workspace)
	for i := range c.Libraries {
		lib := &c.Libraries[i]
		lib.Sections = resolve(c.BaseDir, lib.Sections)
		lib.Spec = resolve(c.BaseDir, lib.Spec)
		lib.TypeDoc = resolve(c.BaseDir, lib.TypeDoc)
	}
}

// resolve anchors relative paths at dir. Empty paths, source paths and the SQLite
// in-memory path are returned unchanged.
func resolve(dir, p string) string {
	if p == "" || p == ":memory:" || strings.HasPrefix(p, SourcePrefix) || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(dir, p)
}

// Library returns the configured library with the given id.
func (c *Config) Library(id string) (Library, bool) {
	for _, l := range c.Libraries {
		if l.ID == id {
			return l, true
		}
	}
	return Library{}, false
}
