package pipeline

import (
	"git.home.luguber.info/inful/refbuilder/internal/libspec"
	"git.home.luguber.info/inful/refbuilder/internal/sections"
	"git.home.luguber.info/inful/refbuilder/internal/typedoc"
)

// ReferenceEntry is one rendered reference page: the spec entry, where it lives in the
// menu, and the parameters resolved from TypeDoc.
type ReferenceEntry struct {
	libspec.Entry
	Slug        string               `json:"slug,omitempty"`
	Href        string               `json:"href"`
	Parameters  []typedoc.Parameter  `json:"parameters,omitempty"`
	Diagnostics []typedoc.Diagnostic `json:"diagnostics,omitempty"`
}

// buildReference joins the flattened sections with their spec entries in section order.
// Sections without an entry render nothing. resolver may be nil.
func buildReference(sectionPath string, flat []sections.Section, spec *libspec.Spec, resolver *typedoc.Resolver) []ReferenceEntry {
	out := make([]ReferenceEntry, 0, len(flat))
	for _, s := range flat {
		if s.IsCategory() {
			continue
		}
		entry, ok := spec.Lookup(s.ID)
		if !ok {
			continue
		}
		re := ReferenceEntry{Entry: entry, Slug: s.Slug, Href: sections.Href(sectionPath, s.Slug)}
		if resolver != nil && entry.Ref != "" {
			before := len(resolver.Diagnostics())
			res := resolver.ResolveFunctionRef(entry.Ref)
			if params, ok := res.Value(); ok {
				re.Parameters = params
			}
			if all := resolver.Diagnostics(); len(all) > before {
				re.Diagnostics = all[before:]
			}
		}
		out = append(out, re)
	}
	return out
}
