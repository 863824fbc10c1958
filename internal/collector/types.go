package collector

import (
	"context"
	"errors"

	"fritzbox-exporter/internal/metrics"
)

// ErrFieldMissing marks a definition whose field was not part of an otherwise
// successful response.
var ErrFieldMissing = errors.New("field missing in response")

// Client executes one remote call against the device. Implementations must be
// safe for concurrent use and must honour the deadline of ctx.
type Client interface {
	Call(ctx context.Context, service, action string) (map[string]string, error)
}

// Value is the outcome of a single definition in one scrape.
type Value struct {
	Value float64
	Kind  metrics.Kind
	Err   error
}

// Absent reports whether no value could be obtained.
func (v Value) Absent() bool {
	return v.Err != nil
}

// Result maps every definition name of the table to its outcome. A Result
// belongs to exactly one scrape.
type Result map[string]Value

// Present returns the number of definitions with a value.
func (r Result) Present() int {
	n := 0
	for _, v := range r {
		if !v.Absent() {
			n++
		}
	}
	return n
}
