package daemon

import "time"

// HealthStatus represents the overall health of the daemon
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusDegraded  HealthStatus = "degraded"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
)

// HealthResponse is served on /healthz.
type HealthResponse struct {
	Status     HealthStatus `json:"status"`
	Daemon     Status       `json:"daemon"`
	Uptime     string       `json:"uptime"`
	LastSync   *SyncSummary `json:"last_sync,omitempty"`
	CheckedAt  time.Time    `json:"checked_at"`
	StoreError string       `json:"store_error,omitempty"`
}

// SyncSummary is the health view of the most recent sync invocation.
type SyncSummary struct {
	RunID    string    `json:"run_id"`
	Mode     Mode      `json:"mode"`
	Commit   string    `json:"commit,omitempty"`
	Changed  bool      `json:"changed"`
	Upserted int       `json:"upserted"`
	Failed   int       `json:"failed"`
	Error    string    `json:"error,omitempty"`
	At       time.Time `json:"at"`
}

// evaluateHealth derives the overall status. A running daemon whose last sync
// failed is degraded; anything but running is unhealthy.
func evaluateHealth(status Status, last *SyncSummary, storeErr error) HealthStatus {
	switch {
	case status != StatusRunning:
		return HealthStatusUnhealthy
	case storeErr != nil:
		return HealthStatusUnhealthy
	case last != nil && last.Error != "":
		return HealthStatusDegraded
	default:
		return HealthStatusHealthy
	}
}
