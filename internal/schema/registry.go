package schema

import (
	"fmt"
	"sort"
	"sync"
)

var (
	registry   = make(map[Kind]Template)
	registryMu sync.RWMutex
)

// Register adds a template to the registry.
// Panics if the kind is already registered or the template is malformed;
// registration only happens from init, so a panic is a programming error.
func Register(t Template) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if _, exists := registry[t.Kind]; exists {
		panic(fmt.Sprintf("template already registered: %s", t.Kind))
	}
	if len(t.Fields) == 0 {
		panic(fmt.Sprintf("template %s has no fields", t.Kind))
	}
	seen := make(map[string]bool, len(t.Fields))
	for _, f := range t.Fields {
		if f.Name == "" {
			panic(fmt.Sprintf("template %s has an unnamed field", t.Kind))
		}
		if seen[f.Name] {
			panic(fmt.Sprintf("template %s repeats column %s", t.Kind, f.Name))
		}
		seen[f.Name] = true
		if f.Type == FieldReference && f.RefKind == "" {
			panic(fmt.Sprintf("template %s: reference column %s has no target kind", t.Kind, f.Name))
		}
	}

	registry[t.Kind] = t
}

// Get returns the template for a kind.
// Returns false if the kind is not registered.
func Get(kind Kind) (Template, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	t, ok := registry[kind]
	return t, ok
}

// All returns every registered template, sorted by kind for stable output.
func All() []Template {
	registryMu.RLock()
	defer registryMu.RUnlock()

	result := make([]Template, 0, len(registry))
	for _, t := range registry {
		result = append(result, t)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Kind < result[j].Kind
	})

	return result
}

// Kinds returns all registered kinds in sorted order.
func Kinds() []Kind {
	registryMu.RLock()
	defer registryMu.RUnlock()

	kinds := make([]Kind, 0, len(registry))
	for k := range registry {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}
