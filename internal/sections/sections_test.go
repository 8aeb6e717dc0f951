package sections

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlatten(t *testing.T) {
	flat, err := Flatten(clientLibSections())
	require.NoError(t, err)

	want := []string{
		"introduction", "installing",
		"select", "insert", "using-filters", "eq", "neq",
		"sign-up", "admin-api", "get-user-by-id",
		"subscribe",
	}
	if diff := cmp.Diff(want, ids(flat)); diff != "" {
		t.Fatalf("flatten order mismatch (-want +got):\n%s", diff)
	}
	for _, s := range flat {
		assert.Nil(t, s.Items, "flattened section %s kept items", s.ID)
		assert.False(t, s.IsCategory(), "category %s survived flattening", s.ID)
	}
}

func TestFlattenIsIdempotent(t *testing.T) {
	once, err := Flatten(clientLibSections())
	require.NoError(t, err)
	twice, err := Flatten(once)
	require.NoError(t, err)

	if diff := cmp.Diff(once, twice); diff != "" {
		t.Fatalf("flatten not idempotent (-once +twice):\n%s", diff)
	}
}

func TestFlattenPreservesLeafCount(t *testing.T) {
	tree := clientLibSections()
	flat, err := Flatten(tree)
	require.NoError(t, err)
	assert.Equal(t, CountLeaves(tree), CountLeaves(flat))
	assert.Equal(t, CountLeaves(tree), len(flat))
}

func TestFlattenKeepsCategoryWithoutItems(t *testing.T) {
	in := []Section{{ID: "empty", Type: TypeCategory, Title: "Empty"}}
	flat, err := Flatten(in)
	require.NoError(t, err)
	require.Len(t, flat, 1)
	assert.Equal(t, "empty", flat[0].ID)
}

func TestFlattenDoesNotAliasInput(t *testing.T) {
	tree := clientLibSections()
	flat, err := Flatten(tree)
	require.NoError(t, err)

	flat[3].Excludes[0] = "changed"
	assert.Equal(t, "reference_dart_v1", tree[2].Items[1].Excludes[0])
}

func TestFlattenRejectsRunawayDepth(t *testing.T) {
	node := Section{ID: "leaf", Type: TypeFunction}
	for i := 0; i < MaxDepth+2; i++ {
		node = Section{ID: "c", Type: TypeCategory, Items: []Section{node}}
	}
	_, err := Flatten([]Section{node})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMaxDepth))
}

func TestFilterExcluded(t *testing.T) {
	t.Run("excludes list", func(t *testing.T) {
		out, err := FilterExcluded(clientLibSections(), IncludeList{}, "reference_dart_v1")
		require.NoError(t, err)
		flat, err := Flatten(out)
		require.NoError(t, err)
		assert.NotContains(t, ids(flat), "insert")
		assert.Contains(t, ids(flat), "select")
	})

	t.Run("excluded parent drops subtree", func(t *testing.T) {
		out, err := FilterExcluded(clientLibSections(), IncludeList{}, "reference_python_v2")
		require.NoError(t, err)
		assert.NotContains(t, ids(out), "realtime")
		assert.Equal(t, 0, strings.Count(strings.Join(allIDs(out), ","), "subscribe"))
	})

	t.Run("include list only touches its tag", func(t *testing.T) {
		include := IncludeList{Tag: TypeFunction, List: []string{"select", "sign-up"}}
		out, err := FilterExcluded(clientLibSections(), include, "")
		require.NoError(t, err)

		want := []string{"introduction", "database", "select", "auth", "sign-up", "auth-admin", "admin-api", "realtime"}
		if diff := cmp.Diff(want, allIDs(out)); diff != "" {
			t.Fatalf("filtered tree mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("category keeps empty items", func(t *testing.T) {
		include := IncludeList{Tag: TypeFunction, List: nil}
		out, err := FilterExcluded(clientLibSections(), include, "")
		require.NoError(t, err)

		var realtime *Section
		for i := range out {
			if out[i].ID == "realtime" {
				realtime = &out[i]
			}
		}
		require.NotNil(t, realtime)
		assert.NotNil(t, realtime.Items)
		assert.Empty(t, realtime.Items)

		raw, err := json.Marshal(realtime)
		require.NoError(t, err)
		assert.Contains(t, string(raw), `"items":[]`)
	})

	t.Run("input untouched", func(t *testing.T) {
		tree := clientLibSections()
		_, err := FilterExcluded(tree, IncludeList{Tag: TypeFunction}, "reference_dart_v1")
		require.NoError(t, err)
		if diff := cmp.Diff(clientLibSections(), tree); diff != "" {
			t.Fatalf("input mutated:\n%s", diff)
		}
	})
}

func TestFilterExcludedIsMonotonic(t *testing.T) {
	all := []string{"installing", "select", "insert", "using-filters", "eq", "neq", "sign-up", "get-user-by-id", "subscribe"}
	prev := -1
	for n := 0; n <= len(all); n++ {
		out, err := FilterExcluded(clientLibSections(), IncludeList{Tag: TypeFunction, List: all[:n]}, "")
		require.NoError(t, err)
		kept := len(allIDs(out))
		assert.GreaterOrEqual(t, kept, prev, "growing the include list to %d ids removed sections", n)
		prev = kept
	}
}

func TestCollectCategories(t *testing.T) {
	t.Run("end to end example", func(t *testing.T) {
		in := []Section{
			{ID: "intro", Type: TypeMarkdown, Title: "Intro", Slug: "intro"},
			{ID: "db", Type: TypeCategory, Title: "Database", Items: []Section{
				{ID: "select", Type: TypeFunction, Title: "Select", Slug: "select"},
			}},
		}

		flat, err := Flatten(in)
		require.NoError(t, err)
		assert.Equal(t, []string{"intro", "select"}, ids(flat))

		got := CollectCategories("/js", in, NewSequenceGenerator("id"))
		want := []RefMenuCategory{
			{ID: "id-1", Name: UntitledCategory, Items: []RefMenuItem{
				{ID: "id-2", Name: "Intro", Href: "/js/intro", Slug: "intro"},
			}},
			{ID: "id-3", Name: "Database", Items: []RefMenuItem{
				{ID: "id-4", Name: "Select", Href: "/js/select", Slug: "select"},
			}},
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Fatalf("menu mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("one category with N leaves", func(t *testing.T) {
		leaves := []Section{
			{ID: "a", Type: TypeFunction, Title: "A", Slug: "a"},
			{ID: "b", Type: TypeFunction, Title: "B", Slug: "b"},
			{ID: "c", Type: TypeFunction, Title: "C"},
		}
		got := CollectCategories("/dart", []Section{{ID: "cat", Type: TypeCategory, Title: "Cat", Items: leaves}}, nil)
		require.Len(t, got, 1)
		assert.Len(t, got[0].Items, len(leaves))
		assert.Equal(t, "/dart/", got[0].Items[2].Href)
		assert.Equal(t, "", got[0].Items[2].Slug)
	})

	t.Run("untitled bucket keeps order", func(t *testing.T) {
		leaves := []Section{
			{ID: "x", Type: TypeMarkdown, Title: "X", Slug: "x"},
			{ID: "y", Type: TypeFunction, Title: "Y", Slug: "y"},
			{ID: "z", Type: TypeCLICommand, Title: "Z", Slug: "z"},
		}
		got := CollectCategories("/cli", leaves, nil)
		require.Len(t, got, 1)
		assert.Equal(t, UntitledCategory, got[0].Name)
		var names []string
		for _, it := range got[0].Items {
			names = append(names, it.Name)
		}
		assert.Equal(t, []string{"X", "Y", "Z"}, names)
	})

	t.Run("leaves after a category join it", func(t *testing.T) {
		in := []Section{
			{ID: "db", Type: TypeCategory, Title: "Database", Items: []Section{{ID: "s", Type: TypeFunction, Title: "S", Slug: "s"}}},
			{ID: "late", Type: TypeFunction, Title: "Late", Slug: "late"},
		}
		got := CollectCategories("/js/", in, nil)
		require.Len(t, got, 1)
		require.Len(t, got[0].Items, 2)
		assert.Equal(t, "/js/late", got[0].Items[1].Href)
	})

	t.Run("nested items are reformatted", func(t *testing.T) {
		filtered, err := FilterExcluded(clientLibSections(), IncludeList{}, "")
		require.NoError(t, err)
		got := CollectCategories("/reference/javascript", filtered, nil)

		require.Len(t, got, 4)
		db := got[1]
		assert.Equal(t, "Database", db.Name)
		require.Len(t, db.Items, 3)
		filters := db.Items[2]
		require.Len(t, filters.Items, 2)
		assert.Equal(t, "/reference/javascript/eq", filters.Items[0].Href)
		assert.Equal(t, CountLeaves(filtered)+1, CountMenuItems(got)) // nested "Auth Admin" category is an item too
	})
}

func TestSectionJSON(t *testing.T) {
	t.Run("round trip keeps items presence", func(t *testing.T) {
		raw := `[{"id":"c","type":"category","title":"C","items":[]},{"id":"f","type":"function","title":"F","slug":"f"}]`
		got, err := Decode(strings.NewReader(raw))
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.True(t, got[0].HasItems())
		assert.False(t, got[1].HasItems())

		out, err := json.Marshal(got)
		require.NoError(t, err)
		assert.JSONEq(t, raw, string(out))
	})

	t.Run("non-array items is a contract violation", func(t *testing.T) {
		_, err := Decode(strings.NewReader(`[{"id":"c","type":"category","items":{"id":"x"}}]`))
		require.Error(t, err)
	})

	t.Run("load file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "common-client-libs-sections.json")
		raw, err := json.Marshal(clientLibSections())
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(path, raw, 0o600))

		got, err := LoadFile(path)
		require.NoError(t, err)
		if diff := cmp.Diff(clientLibSections(), got); diff != "" {
			t.Fatalf("loaded tree mismatch:\n%s", diff)
		}
	})
}

func TestDuplicateIDs(t *testing.T) {
	in := append(clientLibSections(), Section{ID: "select", Type: TypeFunction, Title: "Again"})
	assert.Equal(t, []string{"select"}, DuplicateIDs(in))
	assert.Empty(t, DuplicateIDs(clientLibSections()))
}

func allIDs(sections []Section) []string {
	var out []string
	Walk(sections, func(s Section, _ int) bool {
		out = append(out, s.ID)
		return true
	})
	return out
}

func TestHref(t *testing.T) {
	tests := []struct {
		path, slug, want string
	}{
		{"/js", "select", "/js/select"},
		{"/js/", "select", "/js/select"},
		{"/js", "", "/js/"},
		{"/js/", "", "/js/"},
	}
	for _, tt := range tests {
		if got := Href(tt.path, tt.slug); got != tt.want {
			t.Errorf("Href(%q, %q) = %q, want %q", tt.path, tt.slug, got, tt.want)
		}
	}

	menu := CollectCategories("/js/", []Section{{ID: "a", Type: "function", Title: "A", Slug: "a"}}, NewSequenceGenerator("m"))
	assert.Equal(t, Href("/js/", "a"), menu[0].Items[0].Href)
}
