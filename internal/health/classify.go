package health

import (
	"fmt"
	"strings"
	"time"

	"github.com/avelinn/mediadeck/internal/domain"
)

// Default thresholds. Both are configurable; these values mirror what the
// backends' own dashboards treat as slow-but-alive versus dead.
const (
	// DefaultLatencyThreshold is the round-trip time above which a reachable
	// service is classified degraded instead of online.
	DefaultLatencyThreshold = 2000 * time.Millisecond

	// DefaultProbeTimeout bounds a single health probe.
	DefaultProbeTimeout = 5 * time.Second
)

// Status descriptions for services that were never actually probed. The
// overview fold matches on these to count pending configurations, so they are
// fixed markers rather than free-form text.
const (
	DescDisabled         = "Service disabled"
	DescUnavailable      = "Status unavailable"
	DescProbeTimeout     = "Health check timeout"
	DescConnectorMissing = "Service connector not found"
)

// descSeparator joins the message, latency and version parts of a status
// description.
const descSeparator = " • "

// Classify derives a health record from a config and an optional probe
// result. It is a total, pure function: identical inputs always produce
// identical output, with `now` passed in rather than read from the clock.
//
// Rules, in order:
//  1. disabled config: offline, no timestamp (distinguishes "disabled" from
//     "checked and failed")
//  2. no result (probe never ran): offline, "Status unavailable", stamped now
//  3. otherwise: offline on failure, degraded on success above the latency
//     threshold, online on success below it
func Classify(cfg domain.ServiceConfig, result *domain.ConnectionResult, threshold time.Duration, now time.Time) domain.HealthRecord {
	record := domain.HealthRecord{ServiceID: cfg.ID}

	if !cfg.Enabled {
		record.Status = domain.StatusOffline
		record.StatusDescription = DescDisabled
		return record
	}

	if result == nil {
		record.Status = domain.StatusOffline
		record.StatusDescription = DescUnavailable
		record.LastCheckedAt = &now
		return record
	}

	record.LastCheckedAt = &now
	record.Latency = result.Latency
	record.Version = result.Version

	highLatency := result.Latency != nil && *result.Latency > threshold.Milliseconds()
	switch {
	case result.Success && highLatency:
		record.Status = domain.StatusDegraded
	case result.Success:
		record.Status = domain.StatusOnline
	default:
		record.Status = domain.StatusOffline
	}

	record.StatusDescription = describeResult(result)
	return record
}

// describeResult builds the human description from the backend message, a
// latency annotation and a version annotation, in that order, omitting absent
// parts.
func describeResult(result *domain.ConnectionResult) string {
	var parts []string

	if result.Message != "" {
		parts = append(parts, result.Message)
	}
	if result.Latency != nil {
		parts = append(parts, fmt.Sprintf("Latency %dms", *result.Latency))
	}
	if result.Version != "" {
		parts = append(parts, fmt.Sprintf("Version %s", result.Version))
	}

	return strings.Join(parts, descSeparator)
}

// Fold computes the aggregate overview from one pass of health records.
// LastUpdated is the most recent check timestamp across all records.
func Fold(configs []domain.ServiceConfig, records []domain.HealthRecord) domain.ServicesOverview {
	byID := make(map[string]domain.ServiceConfig, len(configs))
	for _, cfg := range configs {
		byID[cfg.ID] = cfg
	}

	overview := domain.ServicesOverview{Total: len(records)}
	for _, rec := range records {
		cfg := byID[rec.ServiceID]

		if !cfg.Enabled {
			overview.Disabled++
		}

		switch rec.Status {
		case domain.StatusOnline:
			overview.Online++
		case domain.StatusDegraded:
			overview.Degraded++
		case domain.StatusOffline:
			overview.Offline++
			if cfg.Enabled && isPendingDescription(rec.StatusDescription) {
				overview.PendingConfigs++
			}
		}

		if rec.LastCheckedAt != nil && (overview.LastUpdated == nil || rec.LastCheckedAt.After(*overview.LastUpdated)) {
			t := *rec.LastCheckedAt
			overview.LastUpdated = &t
		}
	}

	return overview
}

// isPendingDescription reports whether a description marks a service that was
// configured but never actually checked, as opposed to reached-then-failed.
func isPendingDescription(desc string) bool {
	for _, marker := range []string{DescUnavailable, DescProbeTimeout, DescConnectorMissing} {
		if strings.Contains(desc, marker) {
			return true
		}
	}
	return false
}
