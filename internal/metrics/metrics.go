package metrics

import (
	"fmt"
	"sort"
)

// Registry holds the built-in definitions, grouped by feature.
var Registry = &registry{
	features: make(map[string][]Definition),
}

type registry struct {
	features map[string][]Definition
}

func (r *registry) Add(name string, defs []Definition) {
	if _, exists := r.features[name]; exists {
		panic(fmt.Sprintf("already registered of %s", name))
	}

	r.features[name] = defs
}

// Names lists the registered features in sorted order.
func (r *registry) Names() []string {
	names := make([]string, 0, len(r.features))
	for name := range r.features {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Load returns the definitions of the given features in the given order.
func (r *registry) Load(feats ...string) ([]Definition, error) {
	var defs []Definition

	seen := make(map[string]bool, len(feats))
	for _, feat := range feats {
		if feat == "" || seen[feat] {
			continue
		}
		seen[feat] = true

		fd, exists := r.features[feat]
		if !exists {
			return nil, fmt.Errorf("no metrics for feature %s", feat)
		}
		defs = append(defs, fd...)
	}

	return defs, nil
}
