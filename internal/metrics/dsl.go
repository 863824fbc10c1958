package metrics

import "fritzbox-exporter/internal/helper"

func init() {
	Registry.Add("dsl", dslDefinitions())
}

func dslDefinitions() []Definition {
	const prefix = "dsl"

	getInfo := RemoteCall{Service: "WANDSLInterfaceConfig:1", Action: "GetInfo"}

	// rates are reported in kbit/s, noise margins in tenths of a dB
	return []Definition{
		{
			Name:    helper.MetricName(prefix, "upstream_rate_bits"),
			Help:    "Current DSL upstream sync rate, in bits per second",
			Kind:    Gauge,
			Call:    getInfo,
			Field:   "NewUpstreamCurrRate",
			Convert: Scale(1000),
		},
		{
			Name:    helper.MetricName(prefix, "downstream_rate_bits"),
			Help:    "Current DSL downstream sync rate, in bits per second",
			Kind:    Gauge,
			Call:    getInfo,
			Field:   "NewDownstreamCurrRate",
			Convert: Scale(1000),
		},
		{
			Name:    helper.MetricName(prefix, "upstream_noise_margin_db"),
			Help:    "DSL upstream noise margin, in dB",
			Kind:    Gauge,
			Call:    getInfo,
			Field:   "NewUpstreamNoiseMargin",
			Convert: Scale(0.1),
		},
		{
			Name:    helper.MetricName(prefix, "downstream_noise_margin_db"),
			Help:    "DSL downstream noise margin, in dB",
			Kind:    Gauge,
			Call:    getInfo,
			Field:   "NewDownstreamNoiseMargin",
			Convert: Scale(0.1),
		},
		{
			Name:    helper.MetricName(prefix, "up"),
			Help:    "Whether the DSL line is synchronized",
			Kind:    Gauge,
			Call:    getInfo,
			Field:   "NewStatus",
			Convert: Enum(map[string]float64{"Up": 1, "Down": 0, "Initializing": 0, "NoSignal": 0, "Error": 0, "Disabled": 0}),
		},
	}
}
