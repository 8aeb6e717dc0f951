package foundation

import (
	"fmt"
	"slices"
	"strings"
)

// Normalizer maps loosely written config strings onto enum values.
type Normalizer[T comparable] struct {
	values       map[string]T
	defaultValue T
}

// NewNormalizer builds a case- and whitespace-insensitive normalizer.
func NewNormalizer[T comparable](values map[string]T, defaultValue T) *Normalizer[T] {
	normalized := make(map[string]T, len(values))
	for k, v := range values {
		normalized[normalizeKey(k)] = v
	}
	return &Normalizer[T]{values: normalized, defaultValue: defaultValue}
}

func normalizeKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Normalize returns the matching value or the default.
func (n *Normalizer[T]) Normalize(raw string) T {
	if v, ok := n.values[normalizeKey(raw)]; ok {
		return v
	}
	return n.defaultValue
}

// NormalizeWithError returns an error for unrecognized input.
func (n *Normalizer[T]) NormalizeWithError(raw string) (T, error) {
	if v, ok := n.values[normalizeKey(raw)]; ok {
		return v, nil
	}
	var zero T
	return zero, fmt.Errorf("invalid value %q (valid: %s)", raw, strings.Join(n.Keys(), ", "))
}

// Keys lists accepted spellings, sorted.
func (n *Normalizer[T]) Keys() []string {
	keys := make([]string, 0, len(n.values))
	for k := range n.values {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
