package core

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

var (
	registry   = make(map[string]RuleSet)
	registryMu sync.RWMutex
)

// Register adds a built-in rule set to the registry.
// Panics if a rule set for the same platform is already registered.
func Register(rs RuleSet) {
	registryMu.Lock()
	defer registryMu.Unlock()

	key := strings.ToLower(rs.Platform)
	if _, exists := registry[key]; exists {
		panic(fmt.Sprintf("rule set already registered: %s", key))
	}

	// Stamp the platform on each rule if not set
	for i := range rs.Set {
		if rs.Set[i].Platform == "" {
			rs.Set[i].Platform = key
		}
	}

	rs.Platform = key
	registry[key] = rs
}

// Lookup returns a built-in rule set by platform.
// Returns false if not found.
func Lookup(platform string) (RuleSet, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	rs, ok := registry[strings.ToLower(platform)]
	return rs, ok
}

// Builtins returns all registered rule sets.
// The generic set comes first, then platforms sorted by name.
func Builtins() []RuleSet {
	registryMu.RLock()
	defer registryMu.RUnlock()

	result := make([]RuleSet, 0, len(registry))
	for _, rs := range registry {
		result = append(result, rs)
	}

	sort.Slice(result, func(i, j int) bool {
		gi := result[i].Platform == GenericPlatform
		gj := result[j].Platform == GenericPlatform
		if gi != gj {
			return gi
		}
		return result[i].Platform < result[j].Platform
	})

	return result
}

// Clear removes all registered rule sets.
// Primarily useful for testing.
func Clear() {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry = make(map[string]RuleSet)
}

// NewCatalog builds a catalog from every registered built-in plus the
// given plugin contributions. Rejected contributions are returned as
// warnings; they never fail the build.
func NewCatalog(constraint string, plugins ...SourcedContributor) (*Catalog, []error, error) {
	b, err := NewCatalogBuilder(constraint)
	if err != nil {
		return nil, nil, err
	}

	for _, rs := range Builtins() {
		b.AddBuiltin(rs)
	}

	var warnings []error
	for _, p := range plugins {
		if err := b.Contribute(p, p.Source()); err != nil {
			warnings = append(warnings, err)
		}
	}

	cat, err := b.Build()
	if err != nil {
		return nil, warnings, err
	}
	return cat, warnings, nil
}

// SourcedContributor is a contributor that knows where it was loaded from.
type SourcedContributor interface {
	RuleContributor
	Source() string
}
