package sections

import "fmt"

// IncludeList restricts sections of one type to an allowed set of ids.
// A zero IncludeList disables the rule.
type IncludeList struct {
	Tag  Type     `json:"tag" yaml:"tag"`
	List []string `json:"list" yaml:"list"`
}

type includeSet struct {
	tag Type
	ids map[string]struct{}
}

func (l IncludeList) compile() includeSet {
	ids := make(map[string]struct{}, len(l.List))
	for _, id := range l.List {
		ids[id] = struct{}{}
	}
	return includeSet{tag: l.Tag, ids: ids}
}

func (s includeSet) rejects(sec Section) bool {
	if s.tag == "" || sec.Type != s.tag {
		return false
	}
	_, ok := s.ids[sec.ID]
	return !ok
}

// FilterExcluded drops sections hidden for excludedTarget or missing from the include list.
//
// Children are filtered before their parent is checked. A surviving parent that had an
// items field keeps one, possibly empty.
func FilterExcluded(sections []Section, include IncludeList, excludedTarget string) ([]Section, error) {
	return filterLevel(sections, include.compile(), excludedTarget, 0)
}

func filterLevel(sections []Section, include includeSet, target string, depth int) ([]Section, error) {
	if depth > MaxDepth {
		return nil, fmt.Errorf("%w (%d)", ErrMaxDepth, MaxDepth)
	}
	out := make([]Section, 0, len(sections))
	for _, s := range sections {
		node := s.withoutItems()
		if s.HasItems() {
			children, err := filterLevel(s.Items, include, target, depth+1)
			if err != nil {
				return nil, err
			}
			node.Items = children
		}
		if node.ExcludedFor(target) || include.rejects(node) {
			continue
		}
		out = append(out, node)
	}
	return out, nil
}
