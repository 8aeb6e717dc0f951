package config

import (
	"fmt"
	"time"

	"git.home.luguber.info/inful/refbuilder/internal/libspec"
	"git.home.luguber.info/inful/refbuilder/internal/retry"
)

// Defaults used when the config leaves a field empty.
const (
	DefaultOutputDir     = "./out"
	DefaultStorePath     = ".refbuilder/state.db"
	DefaultWorkspace     = ".refbuilder/sources"
	DefaultConcurrency   = 4
	DefaultSearchSubject = "refbuilder.search"
	DefaultInterval      = 15 * time.Minute
	DefaultMetricsAddr   = ":9090"
	DefaultDebounce      = 500 * time.Millisecond
	DefaultBranch        = "main"
	CurrentVersion       = "1"
)

// DefaultApplier applies defaults for a specific configuration domain.
type DefaultApplier interface {
	ApplyDefaults(cfg *Config) error
	Domain() string
}

// CompositeDefaultApplier applies defaults across all configuration domains.
type CompositeDefaultApplier struct {
	appliers []DefaultApplier
}

// NewDefaultApplier creates a composite applier with all domain appliers.
func NewDefaultApplier() *CompositeDefaultApplier {
	return &CompositeDefaultApplier{
		appliers: []DefaultApplier{
			&OutputDefaultApplier{},
			&BuildDefaultApplier{},
			&SearchDefaultApplier{},
			&DaemonDefaultApplier{},
			&LibraryDefaultApplier{},
		},
	}
}

// ApplyDefaults applies defaults for all configuration domains.
func (c *CompositeDefaultApplier) ApplyDefaults(cfg *Config) error {
	for _, applier := range c.appliers {
		if err := applier.ApplyDefaults(cfg); err != nil {
			return fmt.Errorf("applying defaults for %s: %w", applier.Domain(), err)
		}
	}
	return nil
}

// OutputDefaultApplier handles output, logging and store defaults.
type OutputDefaultApplier struct{}

func (o *OutputDefaultApplier) Domain() string { return "output" }

func (o *OutputDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.Version == "" {
		cfg.Version = CurrentVersion
	}
	if cfg.Output.Directory == "" {
		cfg.Output.Directory = DefaultOutputDir
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = LogLevelInfo
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = LogFormatText
	}
	if cfg.Store.Path == "" {
		cfg.Store.Path = DefaultStorePath
	}
	return nil
}

// BuildDefaultApplier handles build and retry defaults.
type BuildDefaultApplier struct{}

func (b *BuildDefaultApplier) Domain() string { return "build" }

func (b *BuildDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.Build.Concurrency <= 0 {
		cfg.Build.Concurrency = DefaultConcurrency
	}
	if cfg.Build.Workspace == "" {
		cfg.Build.Workspace = DefaultWorkspace
	}
	def := retry.DefaultPolicy()
	if cfg.Retry.Backoff == "" {
		cfg.Retry.Backoff = def.Mode
	}
	if cfg.Retry.Initial <= 0 {
		cfg.Retry.Initial = def.Initial
	}
	if cfg.Retry.Max <= 0 {
		cfg.Retry.Max = def.Max
	}
	for i := range cfg.Sources {
		if cfg.Sources[i].Branch == "" {
			cfg.Sources[i].Branch = DefaultBranch
		}
	}
	return nil
}

// SearchDefaultApplier handles search defaults.
type SearchDefaultApplier struct{}

func (s *SearchDefaultApplier) Domain() string { return "search" }

func (s *SearchDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.Search.NATS.Subject == "" {
		cfg.Search.NATS.Subject = DefaultSearchSubject
	}
	return nil
}

// DaemonDefaultApplier handles daemon and watch defaults.
type DaemonDefaultApplier struct{}

func (d *DaemonDefaultApplier) Domain() string { return "daemon" }

func (d *DaemonDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.Daemon.Interval <= 0 {
		cfg.Daemon.Interval = DefaultInterval
	}
	if cfg.Daemon.MetricsAddr == "" {
		cfg.Daemon.MetricsAddr = DefaultMetricsAddr
	}
	if cfg.Watch.Debounce <= 0 {
		cfg.Watch.Debounce = DefaultDebounce
	}
	return nil
}

// LibraryDefaultApplier fills library names and kinds.
type LibraryDefaultApplier struct{}

func (l *LibraryDefaultApplier) Domain() string { return "libraries" }

func (l *LibraryDefaultApplier) ApplyDefaults(cfg *Config) error {
	for i := range cfg.Libraries {
		lib := &cfg.Libraries[i]
		if lib.Name == "" {
			lib.Name = lib.ID
		}
		if lib.Kind == "" {
			lib.Kind = libspec.KindClientLib
		}
		if lib.Version == "" {
			lib.Version = cfg.Search.Version
		}
	}
	return nil
}
