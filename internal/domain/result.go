package domain

import "time"

// ProbeResult is one probe of one endpoint. Rows are append-only;
// LatencyMS is nil whenever Up is false.
type ProbeResult struct {
	ID         int64      `json:"id"`
	EndpointID EndpointID `json:"endpoint_id"`
	Up         bool       `json:"up"`
	LatencyMS  *float64   `json:"latency_ms"`
	Reason     string     `json:"reason,omitempty"`
	CheckedAt  time.Time  `json:"checked_at"`
}

// Stats summarizes the full recorded history of one endpoint.
type Stats struct {
	EndpointID    EndpointID `json:"endpoint_id"`
	TotalChecks   int64      `json:"total_checks"`
	UptimePercent float64    `json:"uptime_percent"`
	AvgLatencyMS  *float64   `json:"avg_latency_ms"`
	Last24hUptime float64    `json:"last_24h_uptime"`
}
