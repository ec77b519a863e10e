package connector

import (
	"context"

	"github.com/avelinn/mediadeck/internal/domain"
)

// SonarrConnector adapts a Sonarr instance.
type SonarrConnector struct {
	*arrClient
}

// NewSonarrConnector creates a connector bound to the given configuration.
func NewSonarrConnector(cfg domain.ServiceConfig) *SonarrConnector {
	return &SonarrConnector{arrClient: newArrClient(cfg, "Sonarr")}
}

// ListSeries retrieves all series tracked by Sonarr, normalized to the
// canonical model with quality profiles resolved.
func (s *SonarrConnector) ListSeries(ctx context.Context) ([]domain.Series, error) {
	var raw []struct {
		ID               int64      `json:"id"`
		Title            string     `json:"title"`
		Year             int        `json:"year"`
		Monitored        bool       `json:"monitored"`
		QualityProfileID int64      `json:"qualityProfileId"`
		Images           []arrImage `json:"images"`
		Statistics       struct {
			EpisodeFileCount int   `json:"episodeFileCount"`
			SizeOnDisk       int64 `json:"sizeOnDisk"`
		} `json:"statistics"`
	}

	if err := s.get(ctx, "list series", "/api/v3/series", &raw); err != nil {
		return nil, err
	}

	profiles, err := s.qualityProfiles(ctx)
	if err != nil {
		return nil, err
	}

	series := make([]domain.Series, 0, len(raw))
	for _, r := range raw {
		series = append(series, domain.Series{
			ID:           r.ID,
			Title:        r.Title,
			Year:         r.Year,
			Monitored:    r.Monitored,
			EpisodeCount: r.Statistics.EpisodeFileCount,
			SizeOnDisk:   r.Statistics.SizeOnDisk,
			PosterURL:    remotePosterURL(r.Images),
			Profile:      resolveProfile(profiles, r.QualityProfileID),
		})
	}

	return series, nil
}
