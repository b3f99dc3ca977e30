package boardcache

import (
	"github.com/LavishGent/boardcache/internal/types"
)

// Re-export health types from internal/types.
type (
	// HealthStatus represents the overall health state.
	HealthStatus = types.HealthStatus

	// HealthMetrics contains overall cache health information.
	HealthMetrics = types.HealthMetrics

	// RefreshHealthMetrics describes the refresh loop.
	RefreshHealthMetrics = types.RefreshHealthMetrics

	// SinkHealthMetrics describes the snapshot export sink.
	SinkHealthMetrics = types.SinkHealthMetrics

	// MetricsSnapshot contains a point-in-time view of refresh metrics.
	MetricsSnapshot = types.MetricsSnapshot
)

// Re-export health status constants.
const (
	HealthStatusHealthy   = types.HealthStatusHealthy
	HealthStatusDegraded  = types.HealthStatusDegraded
	HealthStatusUnhealthy = types.HealthStatusUnhealthy
)
