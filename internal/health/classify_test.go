package health

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avelinn/mediadeck/internal/domain"
)

func int64Ptr(v int64) *int64 { return &v }

func enabledConfig(id string) domain.ServiceConfig {
	return domain.ServiceConfig{
		ID:         id,
		Kind:       domain.KindSonarr,
		Name:       id,
		BaseURL:    "http://localhost:8989",
		Credential: domain.Credential{APIKey: "key"},
		Enabled:    true,
	}
}

func TestClassify(t *testing.T) {
	now := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		enabled    bool
		result     *domain.ConnectionResult
		wantStatus domain.Status
		wantDesc   string
		wantTime   bool
	}{
		{
			name:       "disabled config is offline without a timestamp",
			enabled:    false,
			result:     &domain.ConnectionResult{Success: true},
			wantStatus: domain.StatusOffline,
			wantDesc:   DescDisabled,
			wantTime:   false,
		},
		{
			name:       "missing result is offline and stamped",
			enabled:    true,
			result:     nil,
			wantStatus: domain.StatusOffline,
			wantDesc:   DescUnavailable,
			wantTime:   true,
		},
		{
			name:       "fast success is online",
			enabled:    true,
			result:     &domain.ConnectionResult{Success: true, Latency: int64Ptr(150), Version: "4.0"},
			wantStatus: domain.StatusOnline,
			wantDesc:   "Latency 150ms • Version 4.0",
			wantTime:   true,
		},
		{
			name:       "slow success is degraded",
			enabled:    true,
			result:     &domain.ConnectionResult{Success: true, Latency: int64Ptr(2500), Version: "4.0"},
			wantStatus: domain.StatusDegraded,
			wantDesc:   "Latency 2500ms • Version 4.0",
			wantTime:   true,
		},
		{
			name:       "latency exactly at the threshold stays online",
			enabled:    true,
			result:     &domain.ConnectionResult{Success: true, Latency: int64Ptr(2000)},
			wantStatus: domain.StatusOnline,
			wantDesc:   "Latency 2000ms",
			wantTime:   true,
		},
		{
			name:       "failure is offline with the probe message",
			enabled:    true,
			result:     &domain.ConnectionResult{Success: false, Message: "Connection timed out"},
			wantStatus: domain.StatusOffline,
			wantDesc:   "Connection timed out",
			wantTime:   true,
		},
		{
			name:       "failure with measured latency keeps all parts",
			enabled:    true,
			result:     &domain.ConnectionResult{Success: false, Message: "Authentication rejected, check the configured credentials", Latency: int64Ptr(42)},
			wantStatus: domain.StatusOffline,
			wantDesc:   "Authentication rejected, check the configured credentials • Latency 42ms",
			wantTime:   true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := enabledConfig("svc-1")
			cfg.Enabled = tc.enabled

			rec := Classify(cfg, tc.result, DefaultLatencyThreshold, now)

			assert.Equal(t, "svc-1", rec.ServiceID)
			assert.Equal(t, tc.wantStatus, rec.Status)
			assert.Equal(t, tc.wantDesc, rec.StatusDescription)
			if tc.wantTime {
				require.NotNil(t, rec.LastCheckedAt)
				assert.Equal(t, now, *rec.LastCheckedAt)
			} else {
				assert.Nil(t, rec.LastCheckedAt)
			}
		})
	}
}

func TestClassifyIsDeterministic(t *testing.T) {
	now := time.Now()
	cfg := enabledConfig("svc-1")
	result := &domain.ConnectionResult{Success: true, Latency: int64Ptr(10), Version: "1.2.3"}

	first := Classify(cfg, result, DefaultLatencyThreshold, now)
	second := Classify(cfg, result, DefaultLatencyThreshold, now)
	assert.Equal(t, first, second)
}

func TestFold(t *testing.T) {
	now := time.Now()
	earlier := now.Add(-time.Minute)

	configs := []domain.ServiceConfig{
		enabledConfig("online"),
		enabledConfig("degraded"),
		enabledConfig("failed"),
		enabledConfig("pending"),
	}
	disabled := enabledConfig("disabled")
	disabled.Enabled = false
	configs = append(configs, disabled)

	records := []domain.HealthRecord{
		{ServiceID: "online", Status: domain.StatusOnline, LastCheckedAt: &earlier},
		{ServiceID: "degraded", Status: domain.StatusDegraded, LastCheckedAt: &now},
		{ServiceID: "failed", Status: domain.StatusOffline, StatusDescription: "Service unreachable: connection refused", LastCheckedAt: &now},
		{ServiceID: "pending", Status: domain.StatusOffline, StatusDescription: DescConnectorMissing},
		{ServiceID: "disabled", Status: domain.StatusOffline, StatusDescription: DescDisabled},
	}

	overview := Fold(configs, records)

	assert.Equal(t, 5, overview.Total)
	assert.Equal(t, 1, overview.Online)
	assert.Equal(t, 1, overview.Degraded)
	// Disabled services count as offline too; disabled is a separate axis.
	assert.Equal(t, 3, overview.Offline)
	assert.Equal(t, 1, overview.Disabled)
	// Reached-then-failed is not pending; never-checked is.
	assert.Equal(t, 1, overview.PendingConfigs)
	require.NotNil(t, overview.LastUpdated)
	assert.Equal(t, now, *overview.LastUpdated)
}

func TestFoldPendingMarkers(t *testing.T) {
	for _, marker := range []string{DescUnavailable, DescProbeTimeout, DescConnectorMissing} {
		cfg := enabledConfig("svc-1")
		records := []domain.HealthRecord{
			{ServiceID: "svc-1", Status: domain.StatusOffline, StatusDescription: marker},
		}

		overview := Fold([]domain.ServiceConfig{cfg}, records)
		assert.Equal(t, 1, overview.PendingConfigs, "marker %q must count as pending", marker)
	}

	// A disabled service never counts as a pending configuration.
	cfg := enabledConfig("svc-1")
	cfg.Enabled = false
	records := []domain.HealthRecord{
		{ServiceID: "svc-1", Status: domain.StatusOffline, StatusDescription: DescUnavailable},
	}
	overview := Fold([]domain.ServiceConfig{cfg}, records)
	assert.Equal(t, 0, overview.PendingConfigs)
}

func TestClassifyAndFoldScenario(t *testing.T) {
	// Two configured services: one healthy probe, one disabled.
	now := time.Now()

	healthy := enabledConfig("sonarr-main")
	paused := enabledConfig("radarr-backup")
	paused.Enabled = false

	configs := []domain.ServiceConfig{healthy, paused}
	records := []domain.HealthRecord{
		Classify(healthy, &domain.ConnectionResult{Success: true, Latency: int64Ptr(150), Version: "4.0"}, DefaultLatencyThreshold, now),
		Classify(paused, nil, DefaultLatencyThreshold, now),
	}

	assert.Equal(t, domain.StatusOnline, records[0].Status)
	assert.Equal(t, "Latency 150ms • Version 4.0", records[0].StatusDescription)
	assert.Equal(t, domain.StatusOffline, records[1].Status)
	assert.Equal(t, DescDisabled, records[1].StatusDescription)
	assert.Nil(t, records[1].LastCheckedAt)

	overview := Fold(configs, records)
	assert.Equal(t, 2, overview.Total)
	assert.Equal(t, 1, overview.Online)
	assert.Equal(t, 1, overview.Offline)
	assert.Equal(t, 0, overview.Degraded)
	assert.Equal(t, 1, overview.Disabled)
	assert.Equal(t, 0, overview.PendingConfigs)
}
