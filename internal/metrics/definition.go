package metrics

import (
	"fmt"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

// Kind is the numeric kind of a metric. It never changes for a given name.
type Kind int

const (
	Counter Kind = iota + 1
	Gauge
)

func (k Kind) String() string {
	switch k {
	case Counter:
		return "counter"
	case Gauge:
		return "gauge"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// ValueType maps the kind to the prometheus value type.
func (k Kind) ValueType() prometheus.ValueType {
	if k == Counter {
		return prometheus.CounterValue
	}
	return prometheus.GaugeValue
}

// ParseKind parses "counter" or "gauge".
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(s) {
	case "counter":
		return Counter, nil
	case "gauge":
		return Gauge, nil
	default:
		return 0, fmt.Errorf("unknown metric kind %q", s)
	}
}

// RemoteCall identifies one request/response exchange with the device.
type RemoteCall struct {
	Service string
	Action  string
}

func (r RemoteCall) String() string {
	return r.Service + "#" + r.Action
}

// Definition describes a single metric and where its raw value comes from.
type Definition struct {
	Name    string
	Help    string
	Kind    Kind
	Call    RemoteCall
	Field   string
	Convert Converter
}
