package metrics

import "fritzbox-exporter/internal/helper"

func init() {
	Registry.Add("wlan", wlanDefinitions())
}

func wlanDefinitions() []Definition {
	return []Definition{
		{
			Name:  helper.MetricName("wlan", "associations"),
			Help:  "Number of clients associated with the first WLAN",
			Kind:  Gauge,
			Call:  RemoteCall{Service: "WLANConfiguration:1", Action: "GetTotalAssociations"},
			Field: "NewTotalAssociations",
		},
		{
			Name:    helper.MetricName("wlan", "enabled"),
			Help:    "Whether the first WLAN is enabled",
			Kind:    Gauge,
			Call:    RemoteCall{Service: "WLANConfiguration:1", Action: "GetInfo"},
			Field:   "NewEnable",
			Convert: Bool,
		},
	}
}
