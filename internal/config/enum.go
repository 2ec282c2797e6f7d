package config

import (
	"fmt"
	"sort"
	"strings"
)

// enumNormalizer maps case-insensitive user input onto a typed enum value.
type enumNormalizer[T comparable] struct {
	name         string
	values       map[string]T
	defaultValue T
	keys         []string
}

func newEnumNormalizer[T comparable](name string, values map[string]T, defaultValue T) *enumNormalizer[T] {
	n := &enumNormalizer[T]{name: name, values: make(map[string]T, len(values)), defaultValue: defaultValue}
	for k, v := range values {
		key := normalizeKey(k)
		n.values[key] = v
		n.keys = append(n.keys, key)
	}
	sort.Strings(n.keys)
	return n
}

// Normalize returns the default for empty or unknown input.
func (n *enumNormalizer[T]) Normalize(raw string) T {
	if v, ok := n.values[normalizeKey(raw)]; ok {
		return v
	}
	return n.defaultValue
}

// Parse is like Normalize but rejects unknown non-empty input.
func (n *enumNormalizer[T]) Parse(raw string) (T, error) {
	if strings.TrimSpace(raw) == "" {
		return n.defaultValue, nil
	}
	if v, ok := n.values[normalizeKey(raw)]; ok {
		return v, nil
	}
	var zero T
	return zero, fmt.Errorf("invalid %s %q, valid options: %v", n.name, raw, n.keys)
}

func normalizeKey(s string) string { return strings.ToLower(strings.TrimSpace(s)) }
