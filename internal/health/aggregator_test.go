package health

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avelinn/mediadeck/internal/connector"
	"github.com/avelinn/mediadeck/internal/domain"
	"github.com/avelinn/mediadeck/internal/logger"
	"github.com/avelinn/mediadeck/internal/registry"
)

type staticSource struct {
	configs []domain.ServiceConfig
}

func (s *staticSource) ListConfigs(ctx context.Context) ([]domain.ServiceConfig, error) {
	return s.configs, nil
}

// sonarrServer fakes the status endpoint and counts probe hits.
func sonarrServer(t *testing.T, hits *atomic.Int64) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v3/system/status" {
			http.NotFound(w, r)
			return
		}
		if hits != nil {
			hits.Add(1)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"version":"4.0.1.929"}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func sonarrConfig(id, baseURL string) domain.ServiceConfig {
	return domain.ServiceConfig{
		ID:         id,
		Kind:       domain.KindSonarr,
		Name:       id,
		BaseURL:    baseURL,
		Credential: domain.Credential{APIKey: "key"},
		Enabled:    true,
	}
}

func TestComputeOverviewIsolatesFailures(t *testing.T) {
	healthySrv := sonarrServer(t, nil)

	// The slow backend never answers within the connector's own timeout.
	slowSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(2 * time.Second)
	}))
	t.Cleanup(slowSrv.Close)

	healthy := sonarrConfig("healthy", healthySrv.URL)
	slow := sonarrConfig("slow", slowSrv.URL)
	slow.Timeout = 50 * time.Millisecond

	disabled := sonarrConfig("disabled", healthySrv.URL)
	disabled.Enabled = false

	// Persisted and enabled, but never registered.
	missing := sonarrConfig("missing", healthySrv.URL)

	source := &staticSource{configs: []domain.ServiceConfig{healthy, slow, disabled, missing}}

	reg := registry.New(connector.NewFactory())
	require.NoError(t, reg.Upsert(healthy))
	require.NoError(t, reg.Upsert(slow))

	agg := NewAggregator(source, reg, nil, logger.Nop(), Options{})

	overview, records, err := agg.ComputeOverview(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 4)

	// Records come back in config order.
	assert.Equal(t, "healthy", records[0].ServiceID)
	assert.Equal(t, "slow", records[1].ServiceID)
	assert.Equal(t, "disabled", records[2].ServiceID)
	assert.Equal(t, "missing", records[3].ServiceID)

	assert.Equal(t, domain.StatusOnline, records[0].Status)
	assert.Equal(t, "4.0.1.929", records[0].Version)
	require.NotNil(t, records[0].LastCheckedAt)

	assert.Equal(t, domain.StatusOffline, records[1].Status)
	assert.Equal(t, "Connection timed out", records[1].StatusDescription)

	assert.Equal(t, domain.StatusOffline, records[2].Status)
	assert.Equal(t, DescDisabled, records[2].StatusDescription)
	assert.Nil(t, records[2].LastCheckedAt)

	assert.Equal(t, domain.StatusOffline, records[3].Status)
	assert.Equal(t, DescConnectorMissing, records[3].StatusDescription)
	assert.Nil(t, records[3].LastCheckedAt)

	assert.Equal(t, 4, overview.Total)
	assert.Equal(t, 1, overview.Online)
	assert.Equal(t, 3, overview.Offline)
	assert.Equal(t, 0, overview.Degraded)
	assert.Equal(t, 1, overview.Disabled)
	// Only the never-checked service is pending; the timed-out one was reached.
	assert.Equal(t, 1, overview.PendingConfigs)
	assert.NotNil(t, overview.LastUpdated)
}

func TestComputeOverviewCachesProbeResults(t *testing.T) {
	var hits atomic.Int64
	srv := sonarrServer(t, &hits)

	cfg := sonarrConfig("svc-1", srv.URL)
	source := &staticSource{configs: []domain.ServiceConfig{cfg}}

	reg := registry.New(connector.NewFactory())
	require.NoError(t, reg.Upsert(cfg))

	agg := NewAggregator(source, reg, nil, logger.Nop(), Options{CacheTTL: time.Minute})

	_, _, err := agg.ComputeOverview(context.Background())
	require.NoError(t, err)
	_, _, err = agg.ComputeOverview(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), hits.Load())

	// Invalidation forces a fresh probe on the next pass.
	agg.InvalidateService("svc-1")
	_, _, err = agg.ComputeOverview(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), hits.Load())

	// Refresh bypasses the cache for every service.
	_, _, err = agg.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), hits.Load())
}

func TestComputeOverviewCacheKeyedBySignature(t *testing.T) {
	var hits atomic.Int64
	srv := sonarrServer(t, &hits)

	cfg := sonarrConfig("svc-1", srv.URL)
	source := &staticSource{configs: []domain.ServiceConfig{cfg}}

	reg := registry.New(connector.NewFactory())
	require.NoError(t, reg.Upsert(cfg))

	agg := NewAggregator(source, reg, nil, logger.Nop(), Options{CacheTTL: time.Minute})

	_, _, err := agg.ComputeOverview(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), hits.Load())

	// A credential change alters the signature, so the cached result no longer
	// applies even without an explicit invalidation.
	changed := cfg
	changed.Credential.APIKey = "rotated"
	source.configs = []domain.ServiceConfig{changed}
	require.NoError(t, reg.Upsert(changed))

	_, _, err = agg.ComputeOverview(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), hits.Load())
}

// panicConnector fails its probe by panicking, the way a mapping bug would.
type panicConnector struct{}

func (panicConnector) ServiceID() string        { return "panicky" }
func (panicConnector) Kind() domain.ServiceKind { return domain.KindSonarr }
func (panicConnector) TestConnection(ctx context.Context) domain.ConnectionResult {
	panic("mapping bug")
}

// hangConnector ignores cancellation entirely.
type hangConnector struct{}

func (hangConnector) ServiceID() string        { return "hung" }
func (hangConnector) Kind() domain.ServiceKind { return domain.KindSonarr }
func (hangConnector) TestConnection(ctx context.Context) domain.ConnectionResult {
	time.Sleep(time.Second)
	return domain.ConnectionResult{Success: true}
}

func TestProbeRecoversPanic(t *testing.T) {
	reg := registry.New(connector.NewFactory())
	agg := NewAggregator(&staticSource{}, reg, nil, logger.Nop(), Options{})

	cfg := sonarrConfig("panicky", "http://localhost:1")

	result := agg.probe(context.Background(), cfg, panicConnector{})
	assert.False(t, result.Success)
	assert.Contains(t, result.Message, "Health check failed")
}

func TestProbeBoundsHungConnector(t *testing.T) {
	reg := registry.New(connector.NewFactory())
	agg := NewAggregator(&staticSource{}, reg, nil, logger.Nop(), Options{ProbeTimeout: 50 * time.Millisecond})

	cfg := sonarrConfig("hung", "http://localhost:1")

	start := time.Now()
	result := agg.probe(context.Background(), cfg, hangConnector{})

	assert.Less(t, time.Since(start), 500*time.Millisecond)
	assert.False(t, result.Success)
	assert.Equal(t, DescProbeTimeout, result.Message)
	require.NotNil(t, result.Latency)
	assert.Equal(t, int64(50), *result.Latency)
}

func TestComputeOverviewEmpty(t *testing.T) {
	reg := registry.New(connector.NewFactory())
	agg := NewAggregator(&staticSource{}, reg, nil, logger.Nop(), Options{})

	overview, records, err := agg.ComputeOverview(context.Background())
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.Equal(t, domain.ServicesOverview{}, overview)
}
