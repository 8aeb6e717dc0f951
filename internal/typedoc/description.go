package typedoc

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// TypeDescription is the simplified, render-ready form of a parameter type.
// It is one of IntrinsicType, LiteralType, ArrayType, UnionType or InterfaceType.
type TypeDescription interface {
	Tag() string
}

type IntrinsicType struct {
	Name string
}

type LiteralType struct {
	Value any
}

type ArrayType struct {
	Element TypeDescription
}

type UnionType struct {
	Members []TypeDescription
}

type InterfaceType struct {
	Properties []Property
}

// Property is a resolved interface member. Type is nil when it could not be resolved.
type Property struct {
	Name     string          `json:"name"`
	Optional bool            `json:"optional,omitempty"`
	Comment  string          `json:"comment,omitempty"`
	Type     TypeDescription `json:"type"`
}

// Parameter is a resolved function parameter. Type is nil when it could not be resolved.
type Parameter struct {
	Name     string          `json:"name"`
	Optional bool            `json:"optional"`
	Comment  string          `json:"comment,omitempty"`
	Type     TypeDescription `json:"type"`
}

func (IntrinsicType) Tag() string { return "intrinsic" }
func (LiteralType) Tag() string   { return TagLiteral }
func (ArrayType) Tag() string     { return TagArray }
func (UnionType) Tag() string     { return TagUnion }
func (InterfaceType) Tag() string { return "interface" }

func (t IntrinsicType) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]any{"type": t.Name})
}

func (t LiteralType) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]any{"type": TagLiteral, "value": t.Value})
}

func (t ArrayType) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]any{"type": TagArray, "elementType": t.Element})
}

func (t UnionType) MarshalJSON() ([]byte, error) {
	members := t.Members
	if members == nil {
		members = []TypeDescription{}
	}
	return json.Marshal(map[string]any{"type": TagUnion, "members": members})
}

func (t InterfaceType) MarshalJSON() ([]byte, error) {
	props := t.Properties
	if props == nil {
		props = []Property{}
	}
	return json.Marshal(map[string]any{"type": "interface", "properties": props})
}

// LiteralSet returns the literal values of a union made only of literals.
func LiteralSet(u UnionType) ([]any, bool) {
	if len(u.Members) == 0 {
		return nil, false
	}
	values := make([]any, 0, len(u.Members))
	for _, m := range u.Members {
		lit, ok := m.(LiteralType)
		if !ok {
			return nil, false
		}
		values = append(values, lit.Value)
	}
	return values, true
}

// Label renders a type description for humans, e.g. `string[]` or `"asc" | "desc"`.
func Label(t TypeDescription) string {
	switch v := t.(type) {
	case nil:
		return "unknown"
	case IntrinsicType:
		return v.Name
	case LiteralType:
		return literalLabel(v.Value)
	case ArrayType:
		inner := Label(v.Element)
		if _, isUnion := v.Element.(UnionType); isUnion {
			inner = "(" + inner + ")"
		}
		return inner + "[]"
	case UnionType:
		if values, ok := LiteralSet(v); ok {
			labels := make([]string, len(values))
			for i, val := range values {
				labels[i] = literalLabel(val)
			}
			return strings.Join(labels, " | ")
		}
		labels := make([]string, len(v.Members))
		for i, m := range v.Members {
			labels[i] = Label(m)
		}
		return strings.Join(labels, " | ")
	case InterfaceType:
		return "object"
	default:
		return t.Tag()
	}
}

func literalLabel(v any) string {
	switch val := v.(type) {
	case nil:
		return "null"
	case string:
		return strconv.Quote(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		return fmt.Sprint(val)
	}
}
