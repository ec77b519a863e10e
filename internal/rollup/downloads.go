// Package rollup composes results from multiple same-kind connectors into
// single aggregate metrics. Each connector is queried concurrently and
// failures are logged and skipped: one unreachable backend reduces coverage,
// it never nulls out the whole rollup.
package rollup

import (
	"context"
	"sync"

	"github.com/avelinn/mediadeck/internal/connector"
	"github.com/avelinn/mediadeck/internal/domain"
	"github.com/avelinn/mediadeck/internal/logger"
	"github.com/avelinn/mediadeck/internal/registry"
)

// DownloadsSummary aggregates queue state across all download clients.
type DownloadsSummary struct {
	Total        int   `json:"total"`
	Active       int   `json:"active"`
	Paused       int   `json:"paused"`
	Completed    int   `json:"completed"`
	Errored      int   `json:"errored"`
	TotalBytes   int64 `json:"totalBytes"`
	DownloadRate int64 `json:"downloadRate"`
	// ClientsQueried / ClientsFailed expose coverage so a partial rollup is
	// distinguishable from a complete one.
	ClientsQueried int `json:"clientsQueried"`
	ClientsFailed  int `json:"clientsFailed"`
}

// Downloads summarizes the queues of every download-client connector in the
// registry.
func Downloads(ctx context.Context, reg *registry.Registry, log logger.Logger) DownloadsSummary {
	connectors := reg.ByKind(domain.KindQBittorrent)

	type listing struct {
		items []domain.DownloadItem
		err   error
	}

	results := make([]listing, len(connectors))

	var wg sync.WaitGroup
	for i, conn := range connectors {
		provider, ok := conn.(connector.DownloadProvider)
		if !ok {
			continue
		}

		wg.Add(1)
		go func(i int, provider connector.DownloadProvider) {
			defer wg.Done()
			items, err := provider.ListDownloads(ctx)
			results[i] = listing{items: items, err: err}
		}(i, provider)
	}
	wg.Wait()

	summary := DownloadsSummary{ClientsQueried: len(connectors)}
	for i, res := range results {
		if res.err != nil {
			summary.ClientsFailed++
			log.Warn("download client rollup skipped a backend",
				logger.String("service_id", connectors[i].ServiceID()),
				logger.Error(res.err),
			)
			continue
		}

		for _, item := range res.items {
			summary.Total++
			summary.TotalBytes += item.Size
			summary.DownloadRate += item.DownloadRate

			switch item.State {
			case domain.DownloadActive:
				summary.Active++
			case domain.DownloadPaused:
				summary.Paused++
			case domain.DownloadCompleted:
				summary.Completed++
			case domain.DownloadErrored:
				summary.Errored++
			}
		}
	}

	return summary
}
