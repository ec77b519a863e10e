package connector

import (
	"context"

	"github.com/avelinn/mediadeck/internal/domain"
)

// Connector adapts one backend instance to the canonical domain model.
// A connector is immutable with respect to its bound configuration: when a
// config changes, the old instance is discarded and a new one constructed.
type Connector interface {
	// ServiceID returns the id of the ServiceConfig this connector is bound to.
	ServiceID() string

	// Kind returns the backend type this connector speaks to.
	Kind() domain.ServiceKind

	// TestConnection issues one lightweight request against the backend's
	// status endpoint and measures wall-clock latency. Failure is a normal
	// return value, never an error: transport failures, rejected credentials,
	// timeouts and malformed responses all collapse into Success=false with a
	// human-readable message.
	TestConnection(ctx context.Context) domain.ConnectionResult
}

// SeriesProvider is implemented by connectors that manage TV series.
type SeriesProvider interface {
	Connector
	ListSeries(ctx context.Context) ([]domain.Series, error)
}

// MovieProvider is implemented by connectors that manage movies.
type MovieProvider interface {
	Connector
	ListMovies(ctx context.Context) ([]domain.Movie, error)
}

// DownloadProvider is implemented by download-client connectors.
type DownloadProvider interface {
	Connector
	ListDownloads(ctx context.Context) ([]domain.DownloadItem, error)
}

// Ensure all connectors implement their capability contracts
var (
	_ SeriesProvider   = (*SonarrConnector)(nil)
	_ MovieProvider    = (*RadarrConnector)(nil)
	_ DownloadProvider = (*QBittorrentConnector)(nil)
)
