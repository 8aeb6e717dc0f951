// Package typedoc loads compiled TypeDoc JSON and resolves dotted function references
// into parameter descriptions.
package typedoc

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Kind is the TypeDoc reflection kind bit.
type Kind int

const (
	KindProject              Kind = 1
	KindModule               Kind = 2
	KindNamespace            Kind = 4
	KindEnum                 Kind = 8
	KindEnumMember           Kind = 16
	KindVariable             Kind = 32
	KindFunction             Kind = 64
	KindClass                Kind = 128
	KindInterface            Kind = 256
	KindConstructor          Kind = 512
	KindProperty             Kind = 1024
	KindMethod               Kind = 2048
	KindCallSignature        Kind = 4096
	KindIndexSignature       Kind = 8192
	KindConstructorSignature Kind = 16384
	KindParameter            Kind = 32768
	KindTypeLiteral          Kind = 65536
	KindTypeParameter        Kind = 131072
	KindAccessor             Kind = 262144
	KindGetSignature         Kind = 524288
	KindSetSignature         Kind = 1048576
	KindTypeAlias            Kind = 2097152
	KindReference            Kind = 4194304
)

// Node is a TypeDoc reflection.
type Node struct {
	ID         int      `json:"id"`
	Name       string   `json:"name"`
	Kind       Kind     `json:"kind"`
	KindString string   `json:"kindString,omitempty"`
	Flags      Flags    `json:"flags"`
	Comment    *Comment `json:"comment,omitempty"`

	Children       []*Node `json:"children,omitempty"`
	Signatures     []*Node `json:"signatures,omitempty"`
	Parameters     []*Node `json:"parameters,omitempty"`
	TypeParameters []*Node `json:"typeParameters,omitempty"`
	// Older TypeDoc releases use the singular key.
	TypeParameter []*Node `json:"typeParameter,omitempty"`

	Type         *Type  `json:"type,omitempty"`
	Default      *Type  `json:"default,omitempty"`
	DefaultValue string `json:"defaultValue,omitempty"`
}

// Flags holds the reflection flags the resolver cares about.
type Flags struct {
	IsOptional bool `json:"isOptional,omitempty"`
	IsRest     bool `json:"isRest,omitempty"`
	IsStatic   bool `json:"isStatic,omitempty"`
}

// Comment covers both the legacy (shortText/text) and current (summary parts) layouts.
type Comment struct {
	ShortText string        `json:"shortText,omitempty"`
	Text      string        `json:"text,omitempty"`
	Summary   []CommentPart `json:"summary,omitempty"`
}

type CommentPart struct {
	Kind string `json:"kind"`
	Text string `json:"text"`
}

// String flattens the comment to markdown text.
func (c *Comment) String() string {
	if c == nil {
		return ""
	}
	if len(c.Summary) > 0 {
		var b strings.Builder
		for _, p := range c.Summary {
			b.WriteString(p.Text)
		}
		return strings.TrimSpace(b.String())
	}
	parts := make([]string, 0, 2)
	for _, s := range []string{c.ShortText, c.Text} {
		if s = strings.TrimSpace(s); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "\n\n")
}

// Is reports whether the node has kind k, falling back to kindString for dumps
// produced without numeric kinds.
func (n *Node) Is(k Kind, kindString string) bool {
	if n.Kind != 0 {
		return n.Kind == k
	}
	return strings.EqualFold(n.KindString, kindString)
}

// Child returns the direct child named name.
func (n *Node) Child(name string) *Node {
	for _, c := range n.Children {
		if c != nil && c.Name == name {
			return c
		}
	}
	return nil
}

func (n *Node) typeParams() []*Node {
	if len(n.TypeParameters) > 0 {
		return n.TypeParameters
	}
	return n.TypeParameter
}

// Type is a TypeDoc type node, tagged by Type.
type Type struct {
	Type string `json:"type"`
	Name string `json:"name,omitempty"`

	Value         any             `json:"value,omitempty"`
	ElementType   *Type           `json:"elementType,omitempty"`
	Types         []*Type         `json:"types,omitempty"`
	TypeArguments []*Type         `json:"typeArguments,omitempty"`
	Target        json.RawMessage `json:"target,omitempty"`
	Declaration   *Node           `json:"declaration,omitempty"`
	Dereferenced  *Node           `json:"dereferenced,omitempty"`

	RefersToTypeParameter bool `json:"refersToTypeParameter,omitempty"`
}

// TargetID returns the numeric reference target, if the dump has one.
func (t *Type) TargetID() (int, bool) {
	if t == nil || len(t.Target) == 0 {
		return 0, false
	}
	id, err := strconv.Atoi(strings.TrimSpace(string(t.Target)))
	if err != nil {
		return 0, false
	}
	return id, true
}

// Type tags handled by the resolver.
const (
	TagIntrinsic     = "intrinsic"
	TagLiteral       = "literal"
	TagArray         = "array"
	TagUnion         = "union"
	TagReference     = "reference"
	TagReflection    = "reflection"
	TagIntersection  = "intersection"
	TagIndexedAccess = "indexedAccess"
	TagTypeOperator  = "typeOperator"
)

// Tree is a loaded TypeDoc project with an id index for reference lookups.
type Tree struct {
	Root *Node
	byID map[int]*Node
}

// NewTree indexes root. The root itself is not mutated.
func NewTree(root *Node) *Tree {
	t := &Tree{Root: root, byID: make(map[int]*Node)}
	t.index(root)
	return t
}

func (t *Tree) index(root *Node) {
	if root == nil {
		return
	}
	stack := []*Node{root}
	seen := make(map[*Node]struct{})
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if n == nil {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		if _, exists := t.byID[n.ID]; !exists && n != root {
			t.byID[n.ID] = n
		}
		stack = append(stack, n.Children...)
		stack = append(stack, n.Signatures...)
		stack = append(stack, n.Parameters...)
		stack = append(stack, n.typeParams()...)
	}
}

// ByID returns the reflection with the given id.
func (t *Tree) ByID(id int) *Node {
	return t.byID[id]
}

// Decode reads a TypeDoc JSON document.
func Decode(r io.Reader) (*Tree, error) {
	var root Node
	if err := json.NewDecoder(r).Decode(&root); err != nil {
		return nil, fmt.Errorf("decode typedoc: %w", err)
	}
	return NewTree(&root), nil
}

// LoadFile reads a TypeDoc JSON file.
func LoadFile(path string) (*Tree, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	tree, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return tree, nil
}
