// Package libspec loads per-library reference specs (client library YAML, CLI YAML and
// OpenAPI JSON) into a common entry model keyed by id.
package libspec

import (
	"os"

	"github.com/pkg/errors"

	"git.home.luguber.info/inful/refbuilder/internal/sections"
)

// Kind identifies the spec format of a library.
type Kind string

const (
	KindClientLib Kind = "client-lib"
	KindCLI       Kind = "cli"
	KindAPI       Kind = "api"
)

var (
	ErrUnsupportedKind = errors.New("unsupported library spec kind")
	ErrSpecNotFound    = errors.New("library spec file not found")
)

// SectionType returns the navigation section type entries of this kind are listed under.
func (k Kind) SectionType() sections.Type {
	switch k {
	case KindCLI:
		return sections.TypeCLICommand
	case KindAPI:
		return sections.TypeOperation
	default:
		return sections.TypeFunction
	}
}

// Info is the descriptive header of a spec.
type Info struct {
	ID          string `yaml:"id" json:"id,omitempty"`
	Title       string `yaml:"title" json:"title,omitempty"`
	Version     string `yaml:"version" json:"version,omitempty"`
	Description string `yaml:"description" json:"description,omitempty"`
	// Definition points at the TypeDoc JSON for client libraries.
	Definition string `yaml:"definition" json:"definition,omitempty"`
}

// Example is a code sample attached to an entry.
type Example struct {
	ID          string `yaml:"id" json:"id,omitempty"`
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description" json:"description,omitempty"`
	Code        string `yaml:"code" json:"code,omitempty"`
	Response    string `yaml:"response" json:"response,omitempty"`
	IsSpotlight bool   `yaml:"isSpotlight" json:"isSpotlight,omitempty"`
}

// Param is a parameter documented by hand in the spec, overriding TypeDoc output.
type Param struct {
	Name        string `yaml:"name" json:"name"`
	IsOptional  bool   `yaml:"isOptional" json:"isOptional,omitempty"`
	Type        string `yaml:"type" json:"type,omitempty"`
	Description string `yaml:"description" json:"description,omitempty"`
}

// Flag is a CLI flag.
type Flag struct {
	ID           string `yaml:"id" json:"id,omitempty"`
	Name         string `yaml:"name" json:"name"`
	Description  string `yaml:"description" json:"description,omitempty"`
	DefaultValue any    `yaml:"default_value" json:"defaultValue,omitempty"`
	Required     bool   `yaml:"required" json:"required,omitempty"`
}

// Entry is one documented function, command or operation.
type Entry struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Notes       string    `json:"notes,omitempty"`
	Ref         string    `json:"ref,omitempty"`
	Params      []Param   `json:"params,omitempty"`
	Examples    []Example `json:"examples,omitempty"`

	Method string   `json:"method,omitempty"`
	Path   string   `json:"path,omitempty"`
	Tags   []string `json:"tags,omitempty"`

	Usage string `json:"usage,omitempty"`
	Flags []Flag `json:"flags,omitempty"`
}

// Spec is a loaded library spec.
type Spec struct {
	Kind    Kind
	Info    Info
	Entries []Entry
	byID    map[string]int
}

func newSpec(kind Kind, info Info, entries []Entry) *Spec {
	s := &Spec{Kind: kind, Info: info, Entries: entries, byID: make(map[string]int, len(entries))}
	for i, e := range entries {
		if _, dup := s.byID[e.ID]; !dup {
			s.byID[e.ID] = i
		}
	}
	return s
}

// Lookup returns the entry with the given id. Missing ids are not an error: the
// navigation spec may list entries a library does not implement.
func (s *Spec) Lookup(id string) (Entry, bool) {
	i, ok := s.byID[id]
	if !ok {
		return Entry{}, false
	}
	return s.Entries[i], true
}

// IncludeList allows exactly the entries this spec documents.
func (s *Spec) IncludeList() sections.IncludeList {
	ids := make([]string, 0, len(s.Entries))
	for _, e := range s.Entries {
		ids = append(ids, e.ID)
	}
	return sections.IncludeList{Tag: s.Kind.SectionType(), List: ids}
}

// Load reads the spec at path according to kind.
func Load(kind Kind, path string) (*Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrapf(ErrSpecNotFound, "%s", path)
		}
		return nil, errors.Wrapf(err, "read %s", path)
	}
	spec, err := Parse(kind, data)
	if err != nil {
		return nil, errors.Wrapf(err, "parse %s", path)
	}
	return spec, nil
}

// Parse decodes spec data according to kind.
func Parse(kind Kind, data []byte) (*Spec, error) {
	switch kind {
	case KindClientLib:
		return ParseClientLib(data)
	case KindCLI:
		return ParseCLI(data)
	case KindAPI:
		return ParseOpenAPI(data)
	default:
		return nil, errors.Wrapf(ErrUnsupportedKind, "%q", kind)
	}
}
