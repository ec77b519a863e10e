package domain

// Canonical media entities. Every connector maps its backend's resource
// representation into these shapes; a field the backend does not report stays
// at its zero value (or nil for pointers) rather than a misleading default.
// Identity fields are never defaulted.

// QualityProfile is a backend quality tier referenced by series and movies.
type QualityProfile struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// FallbackQualityProfile stands in for a profile ID that could not be
// resolved, so one dangling reference never fails an entire list fetch.
func FallbackQualityProfile(id int64) QualityProfile {
	return QualityProfile{ID: id, Name: "Unknown"}
}

// Series is a normalized TV series entry.
type Series struct {
	ID           int64          `json:"id"`
	Title        string         `json:"title"`
	Year         int            `json:"year,omitempty"`
	Monitored    bool           `json:"monitored"`
	EpisodeCount int            `json:"episodeCount"`
	SizeOnDisk   int64          `json:"sizeOnDisk"`
	PosterURL    string         `json:"posterUrl,omitempty"`
	Profile      QualityProfile `json:"profile"`
}

// Movie is a normalized movie entry.
type Movie struct {
	ID         int64          `json:"id"`
	Title      string         `json:"title"`
	Year       int            `json:"year,omitempty"`
	Monitored  bool           `json:"monitored"`
	HasFile    bool           `json:"hasFile"`
	SizeOnDisk int64          `json:"sizeOnDisk"`
	PosterURL  string         `json:"posterUrl,omitempty"`
	Profile    QualityProfile `json:"profile"`
}

// DownloadState normalizes the many backend-specific torrent states into a
// small closed set.
type DownloadState string

const (
	DownloadActive    DownloadState = "active"
	DownloadPaused    DownloadState = "paused"
	DownloadCompleted DownloadState = "completed"
	DownloadErrored   DownloadState = "errored"
)

// DownloadItem is a normalized entry in a download client's queue.
type DownloadItem struct {
	Hash     string        `json:"hash"`
	Name     string        `json:"name"`
	State    DownloadState `json:"state"`
	Size     int64         `json:"size"`
	Progress float64       `json:"progress"`
	// DownloadRate is bytes per second; zero when the item is not moving.
	DownloadRate int64 `json:"downloadRate"`
}
