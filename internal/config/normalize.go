package config

import (
	"fmt"
	"strings"

	"git.home.luguber.info/inful/refbuilder/internal/foundation"
	"git.home.luguber.info/inful/refbuilder/internal/libspec"
	"git.home.luguber.info/inful/refbuilder/internal/retry"
)

// NormalizationResult captures adjustments and warnings from the normalization pass.
type NormalizationResult struct{ Warnings []string }

var kindNormalizer = foundation.NewNormalizer(map[string]libspec.Kind{
	"client-lib": libspec.KindClientLib,
	"client_lib": libspec.KindClientLib,
	"clientlib":  libspec.KindClientLib,
	"sdk":        libspec.KindClientLib,
	"cli":        libspec.KindCLI,
	"api":        libspec.KindAPI,
	"openapi":    libspec.KindAPI,
}, "")

var backoffNormalizer = foundation.NewNormalizer(map[string]retry.Mode{
	"fixed":       retry.ModeFixed,
	"linear":      retry.ModeLinear,
	"exponential": retry.ModeExponential,
}, "")

var authTypeNormalizer = foundation.NewNormalizer(map[string]AuthType{
	"":      AuthTypeNone,
	"none":  AuthTypeNone,
	"token": AuthTypeToken,
	"basic": AuthTypeBasic,
	"ssh":   AuthTypeSSH,
}, "")

// NormalizeConfig canonicalizes enumerated fields before defaults are applied. Unknown
// library kinds and auth types are left as written so validation can report them.
func NormalizeConfig(c *Config) (*NormalizationResult, error) {
	if c == nil {
		return nil, fmt.Errorf("config nil")
	}
	res := &NormalizationResult{}

	if raw := string(c.Logging.Level); raw != "" {
		if lvl := NormalizeLogLevel(raw); string(lvl) != raw {
			res.Warnings = append(res.Warnings, warnChanged("logging.level", raw, lvl))
			c.Logging.Level = lvl
		}
	}
	if raw := string(c.Logging.Format); raw != "" {
		if f := NormalizeLogFormat(raw); string(f) != raw {
			res.Warnings = append(res.Warnings, warnChanged("logging.format", raw, f))
			c.Logging.Format = f
		}
	}
	if raw := string(c.Retry.Backoff); raw != "" {
		if m := backoffNormalizer.Normalize(raw); m == "" {
			res.Warnings = append(res.Warnings, warnUnknown("retry.backoff", raw, string(retry.ModeLinear)))
			c.Retry.Backoff = retry.ModeLinear
		} else {
			c.Retry.Backoff = m
		}
	}

	for i := range c.Libraries {
		lib := &c.Libraries[i]
		lib.ID = strings.TrimSpace(lib.ID)
		if k := kindNormalizer.Normalize(string(lib.Kind)); k != "" && k != lib.Kind {
			res.Warnings = append(res.Warnings, warnChanged(fmt.Sprintf("libraries[%s].kind", lib.ID), lib.Kind, k))
			lib.Kind = k
		}
	}
	for i := range c.Sources {
		src := &c.Sources[i]
		src.Name = strings.TrimSpace(src.Name)
		if src.Auth != nil {
			if a := authTypeNormalizer.Normalize(string(src.Auth.Type)); a != "" {
				src.Auth.Type = a
			}
		}
	}
	c.LibraryFiles = trimStringSlice(c.LibraryFiles)
	c.Watch.Ignore = trimStringSlice(c.Watch.Ignore)
	return res, nil
}

func warnChanged(field string, from, to any) string {
	return fmt.Sprintf("normalized %s from '%v' to '%v'", field, from, to)
}

func warnUnknown(field, value, def string) string {
	return fmt.Sprintf("unknown %s '%s', defaulting to %s", field, value, def)
}

func trimStringSlice(in []string) []string {
	out := in[:0]
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
