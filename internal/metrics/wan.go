package metrics

import "fritzbox-exporter/internal/helper"

func init() {
	Registry.Add("wan", wanDefinitions())
}

func wanDefinitions() []Definition {
	const prefix = "wan"

	addonInfos := RemoteCall{Service: "WANCommonInterfaceConfig:1", Action: "GetAddonInfos"}
	linkProperties := RemoteCall{Service: "WANCommonInterfaceConfig:1", Action: "GetCommonLinkProperties"}
	statusInfo := RemoteCall{Service: "WANIPConnection:1", Action: "GetStatusInfo"}

	// the classic NewTotalBytes* fields wrap at 32 bits
	return []Definition{
		{
			Name:  helper.MetricName(prefix, "bytes_sent"),
			Help:  "Total bytes sent on the WAN interface",
			Kind:  Counter,
			Call:  addonInfos,
			Field: "NewX_AVM_DE_TotalBytesSent64",
		},
		{
			Name:  helper.MetricName(prefix, "bytes_received"),
			Help:  "Total bytes received on the WAN interface",
			Kind:  Counter,
			Call:  addonInfos,
			Field: "NewX_AVM_DE_TotalBytesReceived64",
		},
		{
			Name:  helper.MetricName(prefix, "send_rate_bytes"),
			Help:  "Current upstream rate, in bytes per second",
			Kind:  Gauge,
			Call:  addonInfos,
			Field: "NewByteSendRate",
		},
		{
			Name:  helper.MetricName(prefix, "receive_rate_bytes"),
			Help:  "Current downstream rate, in bytes per second",
			Kind:  Gauge,
			Call:  addonInfos,
			Field: "NewByteReceiveRate",
		},
		{
			Name:  helper.MetricName(prefix, "max_upstream_bits"),
			Help:  "Maximum upstream rate of the physical link, in bits per second",
			Kind:  Gauge,
			Call:  linkProperties,
			Field: "NewLayer1UpstreamMaxBitRate",
		},
		{
			Name:  helper.MetricName(prefix, "max_downstream_bits"),
			Help:  "Maximum downstream rate of the physical link, in bits per second",
			Kind:  Gauge,
			Call:  linkProperties,
			Field: "NewLayer1DownstreamMaxBitRate",
		},
		{
			Name:    helper.MetricName(prefix, "physical_link_up"),
			Help:    "Whether the physical WAN link is up",
			Kind:    Gauge,
			Call:    linkProperties,
			Field:   "NewPhysicalLinkStatus",
			Convert: Enum(map[string]float64{"Up": 1, "Down": 0, "Initializing": 0, "Unavailable": 0}),
		},
		{
			Name:  helper.MetricName(prefix, "connected"),
			Help:  "Whether the WAN IP connection is established",
			Kind:  Gauge,
			Call:  statusInfo,
			Field: "NewConnectionStatus",
			Convert: Enum(map[string]float64{
				"Connected":         1,
				"Connecting":        0,
				"Authenticating":    0,
				"PendingDisconnect": 0,
				"Disconnecting":     0,
				"Disconnected":      0,
				"Unconfigured":      0,
			}),
		},
		{
			Name:  helper.MetricName(prefix, "connection_uptime_seconds"),
			Help:  "Time since the WAN IP connection was established, in seconds",
			Kind:  Counter,
			Call:  statusInfo,
			Field: "NewUptime",
		},
	}
}
