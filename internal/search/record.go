package search

import (
	"strings"

	"git.home.luguber.info/inful/refbuilder/internal/libspec"
	"git.home.luguber.info/inful/refbuilder/internal/sections"
)

// RecordType is the record type for generated reference pages.
const RecordType = "reference"

// Hierarchy mirrors the DocSearch lvl0..lvl6 breadcrumb.
type Hierarchy struct {
	Lvl0 string `json:"lvl0"`
	Lvl1 string `json:"lvl1"`
	Lvl2 string `json:"lvl2"`
	Lvl3 string `json:"lvl3,omitempty"`
	Lvl4 string `json:"lvl4,omitempty"`
	Lvl5 string `json:"lvl5,omitempty"`
	Lvl6 string `json:"lvl6,omitempty"`
}

// Record is one search index entry.
type Record struct {
	ObjectID    string    `json:"objectID"`
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	URL         string    `json:"url"`
	Source      string    `json:"source"`
	PageContent string    `json:"pageContent,omitempty"`
	Category    string    `json:"category,omitempty"`
	Version     string    `json:"version,omitempty"`
	Type        string    `json:"type"`
	Hierarchy   Hierarchy `json:"hierarchy"`
}

// Library identifies the library records are built for.
type Library struct {
	ID          string
	Name        string
	Kind        libspec.Kind
	Version     string
	SectionPath string
}

// BuildRecords emits one record per non-category section of the filtered tree, in tree order.
// Descriptions come from the matching spec entry; sections without one get title-only records.
// spec may be nil.
func BuildRecords(lib Library, filtered []sections.Section, spec *libspec.Spec) ([]Record, error) {
	b := recordBuilder{
		lib:  lib,
		spec: spec,
	}
	if err := b.walk(filtered, "", 0); err != nil {
		return nil, err
	}
	return b.records, nil
}

type recordBuilder struct {
	lib     Library
	spec    *libspec.Spec
	records []Record
}

func (b *recordBuilder) walk(list []sections.Section, category string, depth int) error {
	if depth > sections.MaxDepth {
		return sections.ErrMaxDepth
	}
	for _, s := range list {
		if s.IsCategory() {
			if err := b.walk(s.Items, s.Title, depth+1); err != nil {
				return err
			}
			continue
		}
		rec, err := b.record(s, category)
		if err != nil {
			return err
		}
		b.records = append(b.records, rec)
		if err := b.walk(s.Items, category, depth+1); err != nil {
			return err
		}
	}
	return nil
}

func (b *recordBuilder) record(s sections.Section, category string) (Record, error) {
	rec := Record{
		ObjectID: b.lib.ID + ":" + s.ID,
		ID:       s.ID,
		Title:    s.Title,
		URL:      sections.Href(b.lib.SectionPath, s.Slug),
		Source:   string(b.lib.Kind),
		Category: category,
		Version:  b.lib.Version,
		Type:     RecordType,
		Hierarchy: Hierarchy{
			Lvl0: b.lib.Name,
			Lvl1: category,
			Lvl2: s.Title,
		},
	}
	if b.spec == nil {
		return rec, nil
	}
	entry, ok := b.spec.Lookup(s.ID)
	if !ok {
		return rec, nil
	}
	description, err := PlainText(entry.Description)
	if err != nil {
		return Record{}, err
	}
	notes, err := PlainText(entry.Notes)
	if err != nil {
		return Record{}, err
	}
	rec.Description = description
	rec.PageContent = strings.TrimSpace(description + " " + notes)
	return rec, nil
}
