package types

import "time"

// HealthStatus represents the overall health state.
type HealthStatus int

const (
	// HealthStatusHealthy indicates fresh data and no recorded error.
	HealthStatusHealthy HealthStatus = iota + 1
	// HealthStatusDegraded indicates stale data is being served after a failure.
	HealthStatusDegraded
	// HealthStatusUnhealthy indicates no data is available.
	HealthStatusUnhealthy
)

// String returns the string representation of health status.
func (s HealthStatus) String() string {
	switch s {
	case HealthStatusHealthy:
		return "healthy"
	case HealthStatusDegraded:
		return "degraded"
	case HealthStatusUnhealthy:
		return "unhealthy"
	default:
		return "unknown"
	}
}

// MarshalText renders the status by name.
func (s HealthStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// HealthMetrics contains overall cache health information.
type HealthMetrics struct {
	Timestamp time.Time            `json:"timestamp"`
	Refresh   RefreshHealthMetrics `json:"refresh"`
	Sink      SinkHealthMetrics    `json:"sink"`
	Status    HealthStatus         `json:"status"`
}

// RefreshHealthMetrics describes the refresh loop.
//
//nolint:govet // Metrics struct - logical grouping prioritized for readability
type RefreshHealthMetrics struct {
	LastFetchedAt time.Time     `json:"last_fetched_at"`
	Interval      time.Duration `json:"interval"`
	AgeSeconds    float64       `json:"age_seconds"`
	LastError     string        `json:"last_error,omitempty"`
	MemberCount   int           `json:"member_count"`
	Scheduled     bool          `json:"scheduled"`
	Fetching      bool          `json:"fetching"`
	HasData       bool          `json:"has_data"`
}

// SinkHealthMetrics describes the snapshot export sink.
type SinkHealthMetrics struct {
	Name                string `json:"name"`
	CircuitBreakerState string `json:"circuit_breaker_state"`
	DroppedWrites       int64  `json:"dropped_writes"`
	PendingWrites       int    `json:"pending_writes"`
	Available           bool   `json:"available"`
}

// MetricsSnapshot contains a point-in-time view of refresh metrics.
//
//nolint:govet // Metrics struct with many counters - grouping by category improves readability
type MetricsSnapshot struct {
	Timestamp time.Time

	// Attempt counters by outcome
	Successes           int64
	ConfigurationErrors int64
	TransportErrors     int64
	PermissionErrors    int64
	ParseErrors         int64
	Skipped             int64

	// Sink counters
	SinkErrors     int64
	CircuitChanges int64

	// Last observed member count
	MemberCount int64

	// Fetch latency (milliseconds)
	AvgLatencyMs float64
	P50LatencyMs float64
	P95LatencyMs float64
	P99LatencyMs float64
}

// Failures returns the number of failed attempts of any kind.
func (s *MetricsSnapshot) Failures() int64 {
	return s.ConfigurationErrors + s.TransportErrors + s.PermissionErrors + s.ParseErrors
}

// Attempts returns the number of attempts that were not skipped.
func (s *MetricsSnapshot) Attempts() int64 {
	return s.Successes + s.Failures()
}

// SuccessRatio returns the share of attempts that succeeded.
func (s *MetricsSnapshot) SuccessRatio() float64 {
	total := s.Attempts()
	if total == 0 {
		return 0
	}
	return float64(s.Successes) / float64(total)
}
