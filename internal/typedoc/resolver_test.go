package typedoc

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadFixture(t *testing.T) *Tree {
	t.Helper()
	tree, err := LoadFile("testdata/combined.json")
	require.NoError(t, err)
	return tree
}

func diagCodes(diags []Diagnostic) []DiagnosticCode {
	out := make([]DiagnosticCode, 0, len(diags))
	for _, d := range diags {
		out = append(out, d.Code)
	}
	return out
}

func TestResolveFunctionRefThreeSegments(t *testing.T) {
	r := NewResolver(loadFixture(t))

	res := r.ResolveFunctionRef("@supabase/postgrest-js.PostgrestQueryBuilder.select")
	require.True(t, res.IsOk(), "unexpected failure: %v", res.Error())
	params := res.Unwrap()
	require.Len(t, params, 5)

	want := []Parameter{
		{Name: "columns", Optional: true, Comment: "The columns to retrieve, separated by commas.", Type: LiteralType{Value: "*"}},
		{Name: "options", Optional: true, Type: InterfaceType{Properties: []Property{
			{Name: "head", Optional: true, Comment: "Only return the count.", Type: IntrinsicType{Name: "boolean"}},
			{Name: "count", Optional: true, Type: UnionType{Members: []TypeDescription{
				LiteralType{Value: "exact"}, LiteralType{Value: "planned"}, LiteralType{Value: "estimated"},
			}}},
		}}},
		{Name: "filters", Type: ArrayType{Element: IntrinsicType{Name: "string"}}},
		{Name: "order", Optional: true, Type: UnionType{Members: []TypeDescription{
			LiteralType{Value: "asc"}, LiteralType{Value: "desc"},
		}}},
		{Name: "callback"},
	}
	if diff := cmp.Diff(want, params); diff != "" {
		t.Fatalf("parameters mismatch (-want +got):\n%s", diff)
	}

	diags := r.Diagnostics()
	require.Len(t, diags, 1)
	assert.Equal(t, DiagUnsupportedType, diags[0].Code)
	assert.Equal(t, "callback", diags[0].Param)
}

func TestResolveFunctionRefFourSegments(t *testing.T) {
	r := NewResolver(loadFixture(t))

	res := r.ResolveFunctionRef("@supabase/auth-js.lib.GoTrueClient.signUp")
	require.True(t, res.IsOk())
	params := res.Unwrap()
	require.Len(t, params, 5)

	assert.Nil(t, params[0].Type, "intersection is not resolved")
	assert.Nil(t, params[1].Type, "cyclic alias is not resolved")
	assert.Equal(t, UnionType{Members: []TypeDescription{IntrinsicType{Name: "string"}}}, params[2].Type)
	assert.Nil(t, params[3].Type, "bare generic has nothing to substitute")
	assert.Nil(t, params[4].Type, "class without a type cannot be dereferenced")

	assert.Equal(t, []DiagnosticCode{
		DiagUnsupportedType,
		DiagCycle,
		DiagUnresolvedReference,
		DiagUnresolvedGeneric,
		DiagUnresolvedReference,
	}, diagCodes(r.Diagnostics()))
}

func TestResolveFunctionRefFailures(t *testing.T) {
	tests := []struct {
		name string
		ref  string
		code DiagnosticCode
	}{
		{"two segments", "a.b", DiagInvalidPath},
		{"five segments", "a.b.c.d.e", DiagInvalidPath},
		{"empty", "", DiagInvalidPath},
		{"missing class", "@supabase/postgrest-js.Nope.select", DiagMissingSegment},
		{"missing library", "nope.PostgrestQueryBuilder.select", DiagMissingSegment},
		{"no signature", "@supabase/postgrest-js.PostgrestQueryBuilder.noSignature", DiagNoSignature},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewResolver(loadFixture(t))
			var res Resolution
			require.NotPanics(t, func() { res = r.ResolveFunctionRef(tt.ref) })
			require.True(t, res.IsErr())
			assert.Equal(t, tt.code, res.Error().Code)
			assert.Equal(t, tt.ref, res.Error().Ref)
			assert.Len(t, r.Diagnostics(), 1)
		})
	}
}

func TestResolveWithoutTree(t *testing.T) {
	r := NewResolver(nil)
	res := r.ResolveFunctionRef("a.b.c")
	require.True(t, res.IsErr())
	assert.Equal(t, DiagMissingSegment, res.Error().Code)
}

func TestDepthBound(t *testing.T) {
	nested := &Type{Type: TagIntrinsic, Name: "string"}
	for i := 0; i < DefaultMaxDepth+5; i++ {
		nested = &Type{Type: TagArray, ElementType: nested}
	}
	root := &Node{Name: "root", Children: []*Node{{
		ID: 1, Name: "lib", Children: []*Node{{
			ID: 2, Name: "Client", Children: []*Node{{
				ID: 3, Name: "deep", Signatures: []*Node{{
					ID: 4, Parameters: []*Node{{ID: 5, Name: "p", Type: nested}},
				}},
			}},
		}},
	}}}

	r := NewResolver(NewTree(root))
	res := r.ResolveFunctionRef("lib.Client.deep")
	require.True(t, res.IsOk())
	assert.Nil(t, res.Unwrap()[0].Type)
	assert.Equal(t, []DiagnosticCode{DiagDepthExceeded}, diagCodes(r.Diagnostics()))
}

func TestParameterJSON(t *testing.T) {
	r := NewResolver(loadFixture(t))
	params := r.ResolveFunctionRef("@supabase/postgrest-js.PostgrestQueryBuilder.select").Unwrap()

	raw, err := json.Marshal(params)
	require.NoError(t, err)

	var decoded []map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, map[string]any{"type": "literal", "value": "*"}, decoded[0]["type"])
	assert.Equal(t, map[string]any{"type": "array", "elementType": map[string]any{"type": "string"}}, decoded[2]["type"])
	assert.Nil(t, decoded[4]["type"])

	options := decoded[1]["type"].(map[string]any)
	assert.Equal(t, "interface", options["type"])
	assert.Len(t, options["properties"], 2)
}

func TestLabel(t *testing.T) {
	tests := []struct {
		in   TypeDescription
		want string
	}{
		{nil, "unknown"},
		{IntrinsicType{Name: "string"}, "string"},
		{LiteralType{Value: "asc"}, `"asc"`},
		{LiteralType{Value: float64(3)}, "3"},
		{LiteralType{Value: nil}, "null"},
		{LiteralType{Value: true}, "true"},
		{ArrayType{Element: IntrinsicType{Name: "number"}}, "number[]"},
		{UnionType{Members: []TypeDescription{LiteralType{Value: "a"}, LiteralType{Value: "b"}}}, `"a" | "b"`},
		{UnionType{Members: []TypeDescription{IntrinsicType{Name: "string"}, LiteralType{Value: nil}}}, "string | null"},
		{ArrayType{Element: UnionType{Members: []TypeDescription{IntrinsicType{Name: "string"}, IntrinsicType{Name: "number"}}}}, "(string | number)[]"},
		{InterfaceType{}, "object"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Label(tt.in))
	}

	values, ok := LiteralSet(UnionType{Members: []TypeDescription{LiteralType{Value: "x"}}})
	assert.True(t, ok)
	assert.Equal(t, []any{"x"}, values)
	_, ok = LiteralSet(UnionType{Members: []TypeDescription{IntrinsicType{Name: "string"}}})
	assert.False(t, ok)
}

func TestTreeIndexAndComments(t *testing.T) {
	tree := loadFixture(t)
	iface := tree.ByID(20)
	require.NotNil(t, iface)
	assert.Equal(t, "SelectOptions", iface.Name)
	assert.Nil(t, tree.ByID(999))

	r := NewResolver(tree)
	method, diag := r.Lookup("@supabase/postgrest-js.PostgrestQueryBuilder.select")
	require.Nil(t, diag)
	assert.Equal(t, "Perform a SELECT query on the table or view.", method.Comment.String())

	_, err := Decode(strings.NewReader("{not json"))
	require.Error(t, err)
}
