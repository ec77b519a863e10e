package connector

import (
	"context"

	"github.com/avelinn/mediadeck/internal/domain"
)

// RadarrConnector adapts a Radarr instance.
type RadarrConnector struct {
	*arrClient
}

// NewRadarrConnector creates a connector bound to the given configuration.
func NewRadarrConnector(cfg domain.ServiceConfig) *RadarrConnector {
	return &RadarrConnector{arrClient: newArrClient(cfg, "Radarr")}
}

// ListMovies retrieves all movies tracked by Radarr, normalized to the
// canonical model with quality profiles resolved.
func (r *RadarrConnector) ListMovies(ctx context.Context) ([]domain.Movie, error) {
	var raw []struct {
		ID               int64      `json:"id"`
		Title            string     `json:"title"`
		Year             int        `json:"year"`
		Monitored        bool       `json:"monitored"`
		HasFile          bool       `json:"hasFile"`
		SizeOnDisk       int64      `json:"sizeOnDisk"`
		QualityProfileID int64      `json:"qualityProfileId"`
		Images           []arrImage `json:"images"`
	}

	if err := r.get(ctx, "list movies", "/api/v3/movie", &raw); err != nil {
		return nil, err
	}

	profiles, err := r.qualityProfiles(ctx)
	if err != nil {
		return nil, err
	}

	movies := make([]domain.Movie, 0, len(raw))
	for _, m := range raw {
		movies = append(movies, domain.Movie{
			ID:         m.ID,
			Title:      m.Title,
			Year:       m.Year,
			Monitored:  m.Monitored,
			HasFile:    m.HasFile,
			SizeOnDisk: m.SizeOnDisk,
			PosterURL:  remotePosterURL(m.Images),
			Profile:    resolveProfile(profiles, m.QualityProfileID),
		})
	}

	return movies, nil
}
