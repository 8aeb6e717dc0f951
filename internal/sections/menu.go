package sections

import (
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// UntitledCategory names the bucket for leaves that precede any category.
const UntitledCategory = "__UNTITLED__"

// RefMenuCategory is one sidebar group.
type RefMenuCategory struct {
	ID    string        `json:"id"`
	Name  string        `json:"name"`
	Items []RefMenuItem `json:"items"`
}

// RefMenuItem is a sidebar link.
type RefMenuItem struct {
	ID    string        `json:"id"`
	Name  string        `json:"name"`
	Href  string        `json:"href"`
	Slug  string        `json:"slug"`
	Items []RefMenuItem `json:"items,omitempty"`
}

// IDGenerator hands out list keys for menu entries. Ids need not be globally unique.
type IDGenerator interface {
	Next() string
}

// UUIDGenerator produces random ids.
type UUIDGenerator struct{}

func (UUIDGenerator) Next() string { return uuid.NewString() }

// SequenceGenerator produces prefix-1, prefix-2, ... and is safe for concurrent use.
type SequenceGenerator struct {
	mu     sync.Mutex
	prefix string
	n      int
}

func NewSequenceGenerator(prefix string) *SequenceGenerator {
	return &SequenceGenerator{prefix: prefix}
}

func (g *SequenceGenerator) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return g.prefix + "-" + strconv.Itoa(g.n)
}

// Href is the page URL of a section: the section path without its trailing slash,
// then "/" and the slug. Menus, reference entries and search records all use it.
func Href(sectionPath, slug string) string {
	return strings.TrimSuffix(sectionPath, "/") + "/" + slug
}

// CollectCategories groups a filtered section list into menu categories.
//
// Category sections open a new group holding their own children. Any other section is
// appended to the most recent group; leaves seen before the first category land in
// an UntitledCategory group.
func CollectCategories(sectionPath string, sections []Section, ids IDGenerator) []RefMenuCategory {
	if ids == nil {
		ids = UUIDGenerator{}
	}
	categories := make([]RefMenuCategory, 0)
	for _, s := range sections {
		if s.IsCategory() {
			categories = append(categories, RefMenuCategory{
				ID:    ids.Next(),
				Name:  s.Title,
				Items: reformatAll(sectionPath, s.Items, ids, 0),
			})
			continue
		}
		if len(categories) == 0 {
			categories = append(categories, RefMenuCategory{
				ID:    ids.Next(),
				Name:  UntitledCategory,
				Items: []RefMenuItem{},
			})
		}
		last := &categories[len(categories)-1]
		last.Items = append(last.Items, reformat(sectionPath, s, ids, 0))
	}
	return categories
}

func reformatAll(sectionPath string, sections []Section, ids IDGenerator, depth int) []RefMenuItem {
	items := make([]RefMenuItem, 0, len(sections))
	for _, s := range sections {
		items = append(items, reformat(sectionPath, s, ids, depth))
	}
	return items
}

func reformat(sectionPath string, s Section, ids IDGenerator, depth int) RefMenuItem {
	item := RefMenuItem{
		ID:   ids.Next(),
		Name: s.Title,
		Href: Href(sectionPath, s.Slug),
		Slug: s.Slug,
	}
	if len(s.Items) > 0 && depth < MaxDepth {
		item.Items = reformatAll(sectionPath, s.Items, ids, depth+1)
	}
	return item
}

// CountMenuItems counts every item in the menu, nested ones included.
func CountMenuItems(categories []RefMenuCategory) int {
	var count func([]RefMenuItem) int
	count = func(items []RefMenuItem) int {
		n := len(items)
		for _, it := range items {
			n += count(it.Items)
		}
		return n
	}
	total := 0
	for _, c := range categories {
		total += count(c.Items)
	}
	return total
}
