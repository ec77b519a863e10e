package rollup

import (
	"context"
	"sync"

	"github.com/avelinn/mediadeck/internal/connector"
	"github.com/avelinn/mediadeck/internal/domain"
	"github.com/avelinn/mediadeck/internal/logger"
	"github.com/avelinn/mediadeck/internal/registry"
)

// LibrarySummary aggregates media library totals across all series and movie
// managers.
type LibrarySummary struct {
	Series     int   `json:"series"`
	Episodes   int   `json:"episodes"`
	Movies     int   `json:"movies"`
	Monitored  int   `json:"monitored"`
	SizeOnDisk int64 `json:"sizeOnDisk"`

	SourcesQueried int `json:"sourcesQueried"`
	SourcesFailed  int `json:"sourcesFailed"`
}

// Library summarizes the libraries of every series and movie connector in the
// registry, with per-connector failure isolation.
func Library(ctx context.Context, reg *registry.Registry, log logger.Logger) LibrarySummary {
	seriesConns := reg.ByKind(domain.KindSonarr)
	movieConns := reg.ByKind(domain.KindRadarr)

	type partial struct {
		serviceID string
		summary   LibrarySummary
		err       error
	}

	results := make([]partial, len(seriesConns)+len(movieConns))

	var wg sync.WaitGroup
	for i, conn := range seriesConns {
		provider, ok := conn.(connector.SeriesProvider)
		if !ok {
			continue
		}

		wg.Add(1)
		go func(i int, provider connector.SeriesProvider) {
			defer wg.Done()
			series, err := provider.ListSeries(ctx)
			results[i] = partial{serviceID: provider.ServiceID(), err: err}
			for _, s := range series {
				results[i].summary.Series++
				results[i].summary.Episodes += s.EpisodeCount
				results[i].summary.SizeOnDisk += s.SizeOnDisk
				if s.Monitored {
					results[i].summary.Monitored++
				}
			}
		}(i, provider)
	}
	for i, conn := range movieConns {
		provider, ok := conn.(connector.MovieProvider)
		if !ok {
			continue
		}

		wg.Add(1)
		go func(i int, provider connector.MovieProvider) {
			defer wg.Done()
			movies, err := provider.ListMovies(ctx)
			results[i] = partial{serviceID: provider.ServiceID(), err: err}
			for _, m := range movies {
				results[i].summary.Movies++
				results[i].summary.SizeOnDisk += m.SizeOnDisk
				if m.Monitored {
					results[i].summary.Monitored++
				}
			}
		}(len(seriesConns)+i, provider)
	}
	wg.Wait()

	total := LibrarySummary{SourcesQueried: len(seriesConns) + len(movieConns)}
	for _, res := range results {
		if res.err != nil {
			total.SourcesFailed++
			log.Warn("library rollup skipped a backend",
				logger.String("service_id", res.serviceID),
				logger.Error(res.err),
			)
			continue
		}

		total.Series += res.summary.Series
		total.Episodes += res.summary.Episodes
		total.Movies += res.summary.Movies
		total.Monitored += res.summary.Monitored
		total.SizeOnDisk += res.summary.SizeOnDisk
	}

	return total
}
