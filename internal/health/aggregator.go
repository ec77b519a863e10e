// Package health classifies and aggregates service reachability. The
// aggregator probes every live connector concurrently under a bounded
// per-probe timeout and merges the results with persisted-but-unregistered
// configurations into one consistent overview. It only ever reads the
// registry; a failing or slow backend degrades its own status line and
// nothing else.
package health

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/avelinn/mediadeck/internal/connector"
	"github.com/avelinn/mediadeck/internal/domain"
	"github.com/avelinn/mediadeck/internal/logger"
	"github.com/avelinn/mediadeck/internal/metrics"
	"github.com/avelinn/mediadeck/internal/registry"
)

// ConfigSource is the slice of the configuration store the aggregator needs.
type ConfigSource interface {
	ListConfigs(ctx context.Context) ([]domain.ServiceConfig, error)
}

// Options tune the aggregator; zero values select the defaults.
type Options struct {
	ProbeTimeout     time.Duration
	LatencyThreshold time.Duration
	CacheTTL         time.Duration
}

// Aggregator computes the merged health overview across all configured
// services.
type Aggregator struct {
	source           ConfigSource
	registry         *registry.Registry
	probeTimeout     time.Duration
	latencyThreshold time.Duration
	cache            *ResultCache
	metrics          *metrics.Metrics
	log              logger.Logger
}

// NewAggregator wires an aggregator to the config source and registry.
// Metrics may be nil.
func NewAggregator(source ConfigSource, reg *registry.Registry, m *metrics.Metrics, log logger.Logger, opts Options) *Aggregator {
	if opts.ProbeTimeout <= 0 {
		opts.ProbeTimeout = DefaultProbeTimeout
	}
	if opts.LatencyThreshold <= 0 {
		opts.LatencyThreshold = DefaultLatencyThreshold
	}

	return &Aggregator{
		source:           source,
		registry:         reg,
		probeTimeout:     opts.ProbeTimeout,
		latencyThreshold: opts.LatencyThreshold,
		cache:            NewResultCache(opts.CacheTTL),
		metrics:          m,
		log:              log,
	}
}

// ComputeOverview probes every live connector concurrently and returns the
// folded overview plus one health record per persisted configuration, in
// config order. Probe failures never abort the pass: each is downgraded to an
// offline record for its own service.
func (a *Aggregator) ComputeOverview(ctx context.Context) (domain.ServicesOverview, []domain.HealthRecord, error) {
	configs, err := a.source.ListConfigs(ctx)
	if err != nil {
		return domain.ServicesOverview{}, nil, fmt.Errorf("failed to list service configs: %w", err)
	}

	live := a.registry.Snapshot()
	a.metrics.SetRegistrySize(len(live))

	// Fan out one probe per live connector; results land in a slice indexed
	// by config position so output order stays deterministic.
	results := make([]*domain.ConnectionResult, len(configs))

	var wg sync.WaitGroup
	for i, cfg := range configs {
		conn, ok := live[cfg.ID]
		if !ok {
			continue
		}

		wg.Add(1)
		go func(i int, cfg domain.ServiceConfig, conn connector.Connector) {
			defer wg.Done()
			result := a.probe(ctx, cfg, conn)
			results[i] = &result
		}(i, cfg, conn)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return domain.ServicesOverview{}, nil, err
	}

	now := time.Now()
	records := make([]domain.HealthRecord, 0, len(configs))
	for i, cfg := range configs {
		if _, ok := live[cfg.ID]; !ok && cfg.Enabled {
			// Persisted but never registered: surface it without a timestamp
			// so it reads as "not actually checked".
			records = append(records, domain.HealthRecord{
				ServiceID:         cfg.ID,
				Status:            domain.StatusOffline,
				StatusDescription: DescConnectorMissing,
			})
			continue
		}
		records = append(records, Classify(cfg, results[i], a.latencyThreshold, now))
	}

	return Fold(configs, records), records, nil
}

// Refresh drops all cached probe results and recomputes the overview.
func (a *Aggregator) Refresh(ctx context.Context) (domain.ServicesOverview, []domain.HealthRecord, error) {
	a.cache.Clear()
	return a.ComputeOverview(ctx)
}

// InvalidateService drops cached probe results for one service, typically
// after its configuration changed.
func (a *Aggregator) InvalidateService(serviceID string) {
	a.cache.Invalidate(serviceID)
}

// probe runs one connectivity test with the bounded timeout. The probe
// goroutine writes into a buffered channel, so a test that outlives its
// deadline finishes in the background and its result is discarded rather
// than written into a completed pass.
func (a *Aggregator) probe(ctx context.Context, cfg domain.ServiceConfig, conn connector.Connector) domain.ConnectionResult {
	if cached, ok := a.cache.Get(cfg.ID, cfg.Signature()); ok {
		return cached
	}

	probeCtx, cancel := context.WithTimeout(ctx, a.probeTimeout)
	defer cancel()

	start := time.Now()
	resultCh := make(chan domain.ConnectionResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				resultCh <- domain.ConnectionResult{
					Success: false,
					Message: fmt.Sprintf("Health check failed: %v", r),
				}
			}
		}()
		resultCh <- conn.TestConnection(probeCtx)
	}()

	var result domain.ConnectionResult
	select {
	case result = <-resultCh:
	case <-probeCtx.Done():
		timeoutMs := a.probeTimeout.Milliseconds()
		result = domain.ConnectionResult{
			Success: false,
			Message: DescProbeTimeout,
			Latency: &timeoutMs,
		}
	}

	if !result.Success {
		a.log.Warn("health probe failed",
			logger.String("service_id", cfg.ID),
			logger.String("kind", string(cfg.Kind)),
			logger.String("message", result.Message),
		)
	}

	a.metrics.ObserveProbe(string(cfg.Kind), probeStatus(result), time.Since(start).Seconds())
	a.cache.Set(cfg.ID, cfg.Signature(), result)
	return result
}

func probeStatus(result domain.ConnectionResult) string {
	if result.Success {
		return "success"
	}
	return "failure"
}
