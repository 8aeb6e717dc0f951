package sections

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
)

// Type tags a section. Unknown tags are kept verbatim.
type Type string

const (
	TypeCategory   Type = "category"
	TypeFunction   Type = "function"
	TypeOperation  Type = "operation"
	TypeCLICommand Type = "cli-command"
	TypeMarkdown   Type = "markdown"
)

// MaxDepth bounds recursion over section trees.
const MaxDepth = 64

// ErrMaxDepth is returned when a tree nests deeper than MaxDepth.
var ErrMaxDepth = errors.New("section tree exceeds maximum depth")

// Section is a node of a navigation spec file.
//
// A nil Items slice means the node has no items field. A non-nil empty slice is
// an items field whose entries were all filtered out.
type Section struct {
	ID       string    `json:"id"`
	Type     Type      `json:"type"`
	Title    string    `json:"title"`
	Slug     string    `json:"slug,omitempty"`
	Excludes []string  `json:"excludes,omitempty"`
	Items    []Section `json:"items,omitempty"`
}

// IsCategory reports whether the section is a pure grouping node.
func (s Section) IsCategory() bool {
	return s.Type == TypeCategory
}

// HasItems reports whether the section carries an items field.
func (s Section) HasItems() bool {
	return s.Items != nil
}

// ExcludedFor reports whether target is listed in the section's excludes.
func (s Section) ExcludedFor(target string) bool {
	return target != "" && slices.Contains(s.Excludes, target)
}

// withoutItems returns a copy of the section with no items field.
func (s Section) withoutItems() Section {
	s.Items = nil
	s.Excludes = slices.Clone(s.Excludes)
	return s
}

// MarshalJSON keeps an empty items array on output so filtered categories stay recognisable.
func (s Section) MarshalJSON() ([]byte, error) {
	type plain Section
	out := struct {
		plain
		Items *[]Section `json:"items,omitempty"`
	}{plain: plain(s)}
	if s.Items != nil {
		out.Items = &s.Items
	}
	return json.Marshal(out)
}

// Decode reads a JSON array of sections. A non-array items field is rejected.
func Decode(r io.Reader) ([]Section, error) {
	var out []Section
	if err := json.NewDecoder(r).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode sections: %w", err)
	}
	if err := checkDepth(out, 0); err != nil {
		return nil, err
	}
	return out, nil
}

// LoadFile reads a navigation spec file.
func LoadFile(path string) ([]Section, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	out, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return out, nil
}

func checkDepth(sections []Section, depth int) error {
	if depth > MaxDepth {
		return fmt.Errorf("%w (%d)", ErrMaxDepth, MaxDepth)
	}
	for _, s := range sections {
		if err := checkDepth(s.Items, depth+1); err != nil {
			return err
		}
	}
	return nil
}

// Walk visits every section in pre-order. Returning false from fn skips the children.
func Walk(sections []Section, fn func(s Section, depth int) bool) {
	walk(sections, 0, fn)
}

func walk(sections []Section, depth int, fn func(Section, int) bool) {
	if depth > MaxDepth {
		return
	}
	for _, s := range sections {
		if fn(s, depth) {
			walk(s.Items, depth+1, fn)
		}
	}
}

// CountLeaves counts non-category nodes anywhere in the tree.
func CountLeaves(sections []Section) int {
	n := 0
	Walk(sections, func(s Section, _ int) bool {
		if !s.IsCategory() {
			n++
		}
		return true
	})
	return n
}

// DuplicateIDs lists ids that occur more than once, in first-seen order.
func DuplicateIDs(sections []Section) []string {
	seen := map[string]int{}
	var dups []string
	Walk(sections, func(s Section, _ int) bool {
		if s.ID == "" {
			return true
		}
		seen[s.ID]++
		if seen[s.ID] == 2 {
			dups = append(dups, s.ID)
		}
		return true
	})
	return dups
}
