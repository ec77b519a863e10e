package domain

import "time"

// Status classifies one service's reachability at a point in time.
type Status string

const (
	StatusOnline   Status = "online"
	StatusDegraded Status = "degraded"
	StatusOffline  Status = "offline"
)

// ConnectionResult is the outcome of a single connectivity probe. It is
// produced fresh on every probe and never persisted.
type ConnectionResult struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	// Latency is the observed round-trip time in milliseconds, nil when the
	// probe never reached the point of measuring one.
	Latency *int64 `json:"latencyMs,omitempty"`
	Version string `json:"version,omitempty"`
}

// HealthRecord is the classified health of one configured service for a
// single aggregation pass. Records are replaced wholesale, never mutated.
type HealthRecord struct {
	ServiceID         string     `json:"serviceId"`
	Status            Status     `json:"status"`
	StatusDescription string     `json:"statusDescription,omitempty"`
	LastCheckedAt     *time.Time `json:"lastCheckedAt,omitempty"`
	Latency           *int64     `json:"latencyMs,omitempty"`
	Version           string     `json:"version,omitempty"`
}

// ServicesOverview aggregates one pass of health records into counters.
// It is a pure derived view, recomputed on every read.
type ServicesOverview struct {
	Total          int        `json:"total"`
	Online         int        `json:"online"`
	Offline        int        `json:"offline"`
	Degraded       int        `json:"degraded"`
	Disabled       int        `json:"disabled"`
	PendingConfigs int        `json:"pendingConfigs"`
	LastUpdated    *time.Time `json:"lastUpdated,omitempty"`
}
