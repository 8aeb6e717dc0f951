package typedoc

import (
	"fmt"
	"strings"

	"git.home.luguber.info/inful/refbuilder/internal/foundation"
)

// DefaultMaxDepth bounds type recursion.
const DefaultMaxDepth = 32

// Resolution is the outcome of resolving one function reference.
type Resolution = foundation.Result[[]Parameter, *Diagnostic]

// Resolver resolves dotted references against one Tree and collects diagnostics.
// It is not safe for concurrent use.
type Resolver struct {
	tree        *Tree
	maxDepth    int
	diagnostics []Diagnostic
}

// NewResolver creates a resolver over tree.
func NewResolver(tree *Tree) *Resolver {
	return &Resolver{tree: tree, maxDepth: DefaultMaxDepth}
}

// Diagnostics returns every diagnostic recorded so far.
func (r *Resolver) Diagnostics() []Diagnostic {
	out := make([]Diagnostic, len(r.diagnostics))
	copy(out, r.diagnostics)
	return out
}

// Lookup finds the node named by a 3- or 4-segment reference.
func (r *Resolver) Lookup(ref string) (*Node, *Diagnostic) {
	segments := strings.Split(ref, ".")
	if len(segments) != 3 && len(segments) != 4 {
		return nil, r.record(Diagnostic{
			Code:    DiagInvalidPath,
			Ref:     ref,
			Message: fmt.Sprintf("expected library.class.method or library.module.class.method, got %d segments", len(segments)),
		})
	}
	if r.tree == nil || r.tree.Root == nil {
		return nil, r.record(Diagnostic{Code: DiagMissingSegment, Ref: ref, Message: "no type documentation loaded"})
	}

	node := r.tree.Root
	for _, seg := range segments {
		next := node.Child(seg)
		if next == nil {
			return nil, r.record(Diagnostic{
				Code:    DiagMissingSegment,
				Ref:     ref,
				Message: fmt.Sprintf("cannot find %q in %q", seg, node.Name),
			})
		}
		node = next
	}
	return node, nil
}

// ResolveFunctionRef resolves the parameters of the first call signature of ref.
//
// Overloads beyond the first signature are ignored. Parameters whose type cannot be
// resolved are returned with a nil Type and a recorded diagnostic.
func (r *Resolver) ResolveFunctionRef(ref string) Resolution {
	method, diag := r.Lookup(ref)
	if diag != nil {
		return foundation.Err[[]Parameter](diag)
	}
	if len(method.Signatures) == 0 || method.Signatures[0] == nil {
		return foundation.Err[[]Parameter](r.record(Diagnostic{
			Code:    DiagNoSignature,
			Ref:     ref,
			Message: fmt.Sprintf("%q has no call signature", method.Name),
		}))
	}
	sig := method.Signatures[0]

	scope := typeScope{}
	if parent := r.parentOf(ref); parent != nil {
		scope.add(parent.typeParams())
	}
	scope.add(method.typeParams())
	scope.add(sig.typeParams())

	params := make([]Parameter, 0, len(sig.Parameters))
	for _, p := range sig.Parameters {
		if p == nil {
			continue
		}
		w := walk{ref: ref, param: p.Name, scope: scope, visiting: map[int]bool{}}
		desc, _ := r.resolve(&w, p.Type, 0)
		params = append(params, Parameter{
			Name:     p.Name,
			Optional: p.Flags.IsOptional || p.DefaultValue != "",
			Comment:  p.Comment.String(),
			Type:     desc,
		})
	}
	return foundation.Ok[[]Parameter, *Diagnostic](params)
}

// parentOf returns the class node of ref without recording diagnostics.
func (r *Resolver) parentOf(ref string) *Node {
	segments := strings.Split(ref, ".")
	node := r.tree.Root
	for _, seg := range segments[:len(segments)-1] {
		if node = node.Child(seg); node == nil {
			return nil
		}
	}
	return node
}

func (r *Resolver) record(d Diagnostic) *Diagnostic {
	r.diagnostics = append(r.diagnostics, d)
	return &d
}

type typeScope map[string]*Node

func (s typeScope) add(params []*Node) {
	for _, p := range params {
		if p != nil {
			s[p.Name] = p
		}
	}
}

// walk carries per-parameter state through the recursion.
type walk struct {
	ref      string
	param    string
	scope    typeScope
	visiting map[int]bool
}

func (r *Resolver) fail(w *walk, code DiagnosticCode, format string, args ...any) (TypeDescription, bool) {
	r.record(Diagnostic{Code: code, Ref: w.ref, Param: w.param, Message: fmt.Sprintf(format, args...)})
	return nil, false
}

func (r *Resolver) resolve(w *walk, t *Type, depth int) (TypeDescription, bool) {
	if t == nil {
		return r.fail(w, DiagUnsupportedType, "parameter has no type")
	}
	if depth > r.maxDepth {
		return r.fail(w, DiagDepthExceeded, "type nesting deeper than %d", r.maxDepth)
	}

	switch t.Type {
	case TagIntrinsic:
		return IntrinsicType{Name: t.Name}, true
	case TagLiteral:
		return LiteralType{Value: t.Value}, true
	case TagArray:
		elem, ok := r.resolve(w, t.ElementType, depth+1)
		if !ok {
			return nil, false
		}
		return ArrayType{Element: elem}, true
	case TagUnion:
		return r.resolveUnion(w, t, depth)
	case TagReference:
		return r.resolveReference(w, t, depth)
	default:
		// indexedAccess, intersection, reflection, typeOperator and anything newer.
		return r.fail(w, DiagUnsupportedType, "type %q is not supported", t.Type)
	}
}

func (r *Resolver) resolveUnion(w *walk, t *Type, depth int) (TypeDescription, bool) {
	members := make([]TypeDescription, 0, len(t.Types))
	for _, m := range t.Types {
		if desc, ok := r.resolve(w, m, depth+1); ok {
			members = append(members, desc)
		}
	}
	if len(members) == 0 {
		return r.fail(w, DiagUnsupportedType, "union has no resolvable members")
	}
	return UnionType{Members: members}, true
}

func (r *Resolver) resolveReference(w *walk, t *Type, depth int) (TypeDescription, bool) {
	if tp, ok := w.scope[t.Name]; ok && (t.RefersToTypeParameter || t.Dereferenced == nil) {
		return r.resolveTypeParameter(w, tp, depth)
	}

	target := t.Dereferenced
	if target == nil && r.tree != nil {
		if id, ok := t.TargetID(); ok {
			target = r.tree.ByID(id)
		}
	}
	if target == nil {
		return r.fail(w, DiagUnresolvedReference, "reference %q has no resolvable target", t.Name)
	}
	if target.Is(KindTypeParameter, "Type parameter") {
		return r.resolveTypeParameter(w, target, depth)
	}

	if w.visiting[target.ID] {
		return r.fail(w, DiagCycle, "reference %q points back to itself", t.Name)
	}
	w.visiting[target.ID] = true
	defer delete(w.visiting, target.ID)

	if target.Is(KindInterface, "Interface") {
		return r.resolveInterface(w, target, depth), true
	}
	if target.Type != nil {
		return r.resolve(w, target.Type, depth+1)
	}
	return r.fail(w, DiagUnresolvedReference, "%s %q has no type to dereference", kindLabel(target), target.Name)
}

// resolveTypeParameter substitutes a generic with its default, then its constraint.
func (r *Resolver) resolveTypeParameter(w *walk, tp *Node, depth int) (TypeDescription, bool) {
	switch {
	case tp.Default != nil:
		return r.resolve(w, tp.Default, depth+1)
	case tp.Type != nil:
		return r.resolve(w, tp.Type, depth+1)
	default:
		return r.fail(w, DiagUnresolvedGeneric, "type parameter %q has no default or constraint", tp.Name)
	}
}

func (r *Resolver) resolveInterface(w *walk, iface *Node, depth int) TypeDescription {
	props := make([]Property, 0, len(iface.Children))
	for _, child := range iface.Children {
		if child == nil {
			continue
		}
		var desc TypeDescription
		if child.Type != nil {
			desc, _ = r.resolve(w, child.Type, depth+1)
		}
		props = append(props, Property{
			Name:     child.Name,
			Optional: child.Flags.IsOptional,
			Comment:  child.Comment.String(),
			Type:     desc,
		})
	}
	return InterfaceType{Properties: props}
}

func kindLabel(n *Node) string {
	if n.KindString != "" {
		return strings.ToLower(n.KindString)
	}
	return fmt.Sprintf("kind %d", n.Kind)
}
