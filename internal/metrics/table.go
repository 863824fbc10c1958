package metrics

import (
	"errors"
	"fmt"

	"github.com/prometheus/common/model"
)

// ErrDuplicateName is returned by NewTable when two definitions share a name.
var ErrDuplicateName = errors.New("duplicate metric name")

// Group is the set of definitions sourced from the same remote call.
type Group struct {
	Call        RemoteCall
	Definitions []*Definition
}

// Table is the validated, read-only set of metric definitions. It is safe for
// concurrent use since nothing mutates it after NewTable returns.
type Table struct {
	defs   []*Definition
	groups []Group
}

// NewTable validates defs and computes the grouping by remote call. Groups are
// ordered by the first definition referencing them.
func NewTable(defs ...Definition) (*Table, error) {
	t := &Table{
		defs: make([]*Definition, 0, len(defs)),
	}

	names := make(map[string]struct{}, len(defs))
	index := make(map[RemoteCall]int)

	for i := range defs {
		d := defs[i]
		if err := validate(&d); err != nil {
			return nil, err
		}

		if _, exists := names[d.Name]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateName, d.Name)
		}
		names[d.Name] = struct{}{}

		if d.Convert == nil {
			d.Convert = Float
		}

		p := &d
		t.defs = append(t.defs, p)

		g, exists := index[d.Call]
		if !exists {
			g = len(t.groups)
			index[d.Call] = g
			t.groups = append(t.groups, Group{Call: d.Call})
		}
		t.groups[g].Definitions = append(t.groups[g].Definitions, p)
	}

	return t, nil
}

// MustNewTable is like NewTable but panics on invalid definitions.
func MustNewTable(defs ...Definition) *Table {
	t, err := NewTable(defs...)
	if err != nil {
		panic(err)
	}
	return t
}

func validate(d *Definition) error {
	if !model.IsValidMetricName(model.LabelValue(d.Name)) {
		return fmt.Errorf("invalid metric name %q", d.Name)
	}
	if d.Kind != Counter && d.Kind != Gauge {
		return fmt.Errorf("metric %s: invalid kind %v", d.Name, d.Kind)
	}
	if d.Call.Service == "" || d.Call.Action == "" {
		return fmt.Errorf("metric %s: remote call needs service and action", d.Name)
	}
	if d.Field == "" {
		return fmt.Errorf("metric %s: missing field", d.Name)
	}
	if d.Help == "" {
		d.Help = d.Name
	}

	return nil
}

// All returns the definitions in table order.
func (t *Table) All() []*Definition {
	out := make([]*Definition, len(t.defs))
	copy(out, t.defs)
	return out
}

// Len returns the number of definitions.
func (t *Table) Len() int {
	return len(t.defs)
}

// Groups returns the remote call groups in table order.
func (t *Table) Groups() []Group {
	out := make([]Group, len(t.groups))
	for i, g := range t.groups {
		out[i] = Group{
			Call:        g.Call,
			Definitions: append([]*Definition(nil), g.Definitions...),
		}
	}
	return out
}

// GroupByRemoteCall returns the definitions keyed by the remote call supplying them.
func (t *Table) GroupByRemoteCall() map[RemoteCall][]*Definition {
	m := make(map[RemoteCall][]*Definition, len(t.groups))
	for _, g := range t.groups {
		m[g.Call] = append([]*Definition(nil), g.Definitions...)
	}
	return m
}
