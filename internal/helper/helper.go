package helper

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "fritzbox"

func metricStringCleanup(in string) string {
	return strings.NewReplacer("-", "_", " ", "_").Replace(strings.ToLower(in))
}

// MetricName builds the fully qualified name of a device metric.
func MetricName(subsystem, name string) string {
	return prometheus.BuildFQName(namespace, subsystem, metricStringCleanup(name))
}

// Description returns a Desc for an already fully qualified metric name.
func Description(fqName, helpText string, labelNames []string) *prometheus.Desc {
	return prometheus.NewDesc(fqName, helpText, labelNames, nil)
}

// ExporterDescription returns a Desc for metrics about the exporter itself.
func ExporterDescription(name, helpText string, labelNames []string) *prometheus.Desc {
	return prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "exporter", name),
		helpText,
		labelNames,
		nil,
	)
}
