package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/nobl9/govy/pkg/govy"
	"github.com/nobl9/govy/pkg/rules"

	ferrors "git.home.luguber.info/inful/refbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/refbuilder/internal/libspec"
	"git.home.luguber.info/inful/refbuilder/internal/retry"
)

var authValidator = govy.New(
	govy.For(func(a AuthConfig) AuthType { return a.Type }).
		WithName("type").
		Rules(rules.OneOf(AuthTypeNone, AuthTypeToken, AuthTypeBasic, AuthTypeSSH)),
	govy.For(func(a AuthConfig) string { return a.Token }).
		WithName("token").
		Required().
		When(func(a AuthConfig) bool { return a.Type == AuthTypeToken }),
	govy.For(func(a AuthConfig) string { return a.Username }).
		WithName("username").
		Required().
		When(func(a AuthConfig) bool { return a.Type == AuthTypeBasic }),
)

var sourceValidator = govy.New(
	govy.For(func(s Source) string { return s.Name }).
		WithName("name").
		Required().
		Rules(rules.StringNotEmpty(), govy.NewRule(func(name string) error {
			if strings.ContainsAny(name, "/\\") {
				return fmt.Errorf("must not contain path separators")
			}
			return nil
		})),
	govy.For(func(s Source) string { return s.URL }).
		WithName("url").
		Required(),
	govy.ForPointer(func(s Source) *AuthConfig { return s.Auth }).
		WithName("auth").
		Include(authValidator),
)

var libraryValidator = govy.New(
	govy.For(func(l Library) string { return l.ID }).
		WithName("id").
		Required().
		Rules(rules.StringNotEmpty()),
	govy.For(func(l Library) libspec.Kind { return l.Kind }).
		WithName("kind").
		Required().
		Rules(rules.OneOf(libspec.KindClientLib, libspec.KindCLI, libspec.KindAPI)),
	govy.For(func(l Library) string { return l.SectionPath }).
		WithName("section_path").
		Required().
		Rules(govy.NewRule(func(p string) error {
			if !strings.HasPrefix(p, "/") {
				return fmt.Errorf("must start with '/'")
			}
			return nil
		})),
	govy.For(func(l Library) string { return l.Sections }).
		WithName("sections").
		Required(),
	govy.For(func(l Library) string { return l.Spec }).
		WithName("spec").
		Required(),
	govy.For(func(l Library) string { return l.TypeDoc }).
		WithName("typedoc").
		Rules(govy.NewRule(func(p string) error {
			if p != "" {
				return fmt.Errorf("only client-lib libraries resolve TypeDoc references")
			}
			return nil
		})).
		When(func(l Library) bool { return l.Kind != libspec.KindClientLib }),
).
	WithName("Library")

var configValidator = govy.New(
	govy.For(func(c Config) string { return c.Output.Directory }).
		WithName("output.directory").
		Required(),
	govy.For(func(c Config) string { return c.Store.Path }).
		WithName("store.path").
		Required(),
	govy.For(func(c Config) int { return c.Build.Concurrency }).
		WithName("build.concurrency").
		Rules(rules.GT(0)),
	govy.For(func(c Config) retry.Mode { return c.Retry.Backoff }).
		WithName("retry.backoff").
		Rules(rules.OneOf(retry.Modes...)),
	govy.For(func(c Config) time.Duration { return c.Daemon.Interval }).
		WithName("daemon.interval").
		Rules(rules.GTE(time.Second)),
	govy.For(func(c Config) string { return c.Search.NATS.Subject }).
		WithName("search.nats.subject").
		Required().
		When(func(c Config) bool { return c.Search.NATS.URL != "" }),
	govy.ForSlice(func(c Config) []Source { return c.Sources }).
		WithName("sources").
		Rules(govy.NewRule(uniqueSourceNames)).
		IncludeForEach(sourceValidator),
	govy.ForSlice(func(c Config) []Library { return c.Libraries }).
		WithName("libraries").
		Rules(govy.NewRule(func(libs []Library) error {
			if len(libs) == 0 {
				return fmt.Errorf("at least one library must be configured")
			}
			return nil
		}), govy.NewRule(uniqueLibraryIDs)).
		IncludeForEach(libraryValidator),
	govy.For(func(c Config) Config { return c }).
		WithName("libraries").
		Rules(govy.NewRule(knownSourceReferences)),
).
	WithName("Config")

// ValidateConfig validates the complete configuration.
func ValidateConfig(cfg *Config) error {
	if cfg == nil {
		return ferrors.ValidationError("config is nil").Build()
	}
	if err := configValidator.Validate(*cfg); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryValidation, "invalid configuration").
			Fatal().WithRetry(ferrors.RetryUserAction).Build()
	}
	return nil
}

func uniqueSourceNames(sources []Source) error {
	seen := make(map[string]bool, len(sources))
	for _, s := range sources {
		if s.Name == "" {
			continue
		}
		if seen[s.Name] {
			return fmt.Errorf("duplicate source name %q", s.Name)
		}
		seen[s.Name] = true
	}
	return nil
}

func uniqueLibraryIDs(libs []Library) error {
	seen := make(map[string]bool, len(libs))
	for _, l := range libs {
		if l.ID == "" {
			continue
		}
		if seen[l.ID] {
			return fmt.Errorf("duplicate library id %q", l.ID)
		}
		seen[l.ID] = true
	}
	return nil
}

// knownSourceReferences rejects source:// paths naming a source that is not configured.
func knownSourceReferences(c Config) error {
	names := make(map[string]bool, len(c.Sources))
	for _, s := range c.Sources {
		names[s.Name] = true
	}
	for _, l := range c.Libraries {
		for _, p := range l.Inputs() {
			if name := SourceName(p); name != "" && !names[name] {
				return fmt.Errorf("library %s references unknown source %q", l.ID, name)
			}
		}
	}
	return nil
}
