package metrics

import "fritzbox-exporter/internal/helper"

func init() {
	Registry.Add("device", deviceDefinitions())
}

func deviceDefinitions() []Definition {
	getInfo := RemoteCall{Service: "DeviceInfo:1", Action: "GetInfo"}

	return []Definition{
		{
			Name:  helper.MetricName("device", "uptime_seconds"),
			Help:  "Time since the last reboot of the device, in seconds",
			Kind:  Counter,
			Call:  getInfo,
			Field: "NewUpTime",
		},
	}
}
