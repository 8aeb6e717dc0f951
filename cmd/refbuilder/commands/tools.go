package commands

import (
	"encoding/json"
	"fmt"
	"io"

	"git.home.luguber.info/inful/refbuilder/internal/libspec"
	"git.home.luguber.info/inful/refbuilder/internal/sections"
	"git.home.luguber.info/inful/refbuilder/internal/typedoc"
)

// SpecFilter holds the flags shared by commands that filter a navigation file.
type SpecFilter struct {
	Spec           string `help:"Library spec used as the include list" type:"existingfile"`
	Kind           string `help:"Library spec kind" enum:"client-lib,cli,api" default:"client-lib"`
	ExcludedTarget string `name:"excluded-target" help:"Hide sections that exclude this target"`
}

// load reads the navigation file and applies the spec include list and excludes.
func (f SpecFilter) load(path string) ([]sections.Section, error) {
	tree, err := sections.LoadFile(path)
	if err != nil {
		return nil, err
	}
	var include sections.IncludeList
	if f.Spec != "" {
		spec, err := libspec.Load(libspec.Kind(f.Kind), f.Spec)
		if err != nil {
			return nil, err
		}
		include = spec.IncludeList()
	}
	if include.Tag == "" && f.ExcludedTarget == "" {
		return tree, nil
	}
	return sections.FilterExcluded(tree, include, f.ExcludedTarget)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}

// FlattenCmd implements the 'flatten' command.
type FlattenCmd struct {
	Sections string `arg:"" help:"Navigation sections JSON file" type:"existingfile"`
	SpecFilter `embed:""`
}

func (c *FlattenCmd) Run(g *Global) error {
	tree, err := c.load(c.Sections)
	if err != nil {
		return err
	}
	flat, err := sections.Flatten(tree)
	if err != nil {
		return err
	}
	if flat == nil {
		flat = []sections.Section{}
	}
	return writeJSON(g.Stdout, flat)
}

// MenuCmd implements the 'menu' command.
type MenuCmd struct {
	Sections    string `arg:"" help:"Navigation sections JSON file" type:"existingfile"`
	SectionPath string `name:"section-path" help:"URL prefix of menu links" default:"/reference"`
	SpecFilter  `embed:""`
}

func (c *MenuCmd) Run(g *Global) error {
	tree, err := c.load(c.Sections)
	if err != nil {
		return err
	}
	menu := sections.CollectCategories(c.SectionPath, tree, sections.UUIDGenerator{})
	if menu == nil {
		menu = []sections.RefMenuCategory{}
	}
	return writeJSON(g.Stdout, menu)
}

// ResolveCmd implements the 'resolve' command.
type ResolveCmd struct {
	TypeDoc string   `name:"typedoc" short:"t" required:"" help:"Compiled TypeDoc JSON" type:"existingfile"`
	Refs    []string `arg:"" name:"ref" help:"References: library.class.method or library.module.class.method"`
}

type resolveOutput struct {
	Ref        string              `json:"ref"`
	Parameters []typedoc.Parameter `json:"parameters,omitempty"`
	Error      *typedoc.Diagnostic `json:"error,omitempty"`
}

type resolveReport struct {
	Results     []resolveOutput      `json:"results"`
	Diagnostics []typedoc.Diagnostic `json:"diagnostics"`
}

func (c *ResolveCmd) Run(g *Global) error {
	tree, err := typedoc.LoadFile(c.TypeDoc)
	if err != nil {
		return err
	}
	r := typedoc.NewResolver(tree)
	out := resolveReport{Results: make([]resolveOutput, 0, len(c.Refs))}
	for _, ref := range c.Refs {
		res := r.ResolveFunctionRef(ref)
		item := resolveOutput{Ref: ref}
		if params, ok := res.Value(); ok {
			item.Parameters = params
		} else {
			item.Error = res.Error()
		}
		out.Results = append(out.Results, item)
	}
	out.Diagnostics = r.Diagnostics()
	return writeJSON(g.Stdout, out)
}
