package metrics

import "fritzbox-exporter/internal/helper"

func init() {
	Registry.Add("lan", []Definition{
		{
			Name:  helper.MetricName("lan", "hosts"),
			Help:  "Number of hosts known to the device",
			Kind:  Gauge,
			Call:  RemoteCall{Service: "Hosts:1", Action: "GetHostNumberOfEntries"},
			Field: "NewHostNumberOfEntries",
		},
	})
}
