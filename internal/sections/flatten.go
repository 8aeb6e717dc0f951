package sections

import "fmt"

// Flatten turns a nested tree into a pre-order list of leaf sections.
//
// A node with items is emitted itself (without items) unless it is a category,
// and is then followed by its flattened children. Nodes without items are kept as-is.
func Flatten(sections []Section) ([]Section, error) {
	out := make([]Section, 0, len(sections))
	if err := flattenInto(&out, sections, 0); err != nil {
		return nil, err
	}
	return out, nil
}

func flattenInto(out *[]Section, sections []Section, depth int) error {
	if depth > MaxDepth {
		return fmt.Errorf("%w (%d)", ErrMaxDepth, MaxDepth)
	}
	for _, s := range sections {
		if !s.HasItems() {
			*out = append(*out, s.withoutItems())
			continue
		}
		if !s.IsCategory() {
			*out = append(*out, s.withoutItems())
		}
		if err := flattenInto(out, s.Items, depth+1); err != nil {
			return err
		}
	}
	return nil
}
