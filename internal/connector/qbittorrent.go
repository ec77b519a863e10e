package connector

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/avelinn/mediadeck/internal/domain"
)

// QBittorrentConnector adapts a qBittorrent instance. Authentication is a
// cookie session established per operation; the jar carries the SID cookie.
type QBittorrentConnector struct {
	serviceID string
	baseURL   string
	username  string
	password  string
	client    *http.Client
}

// NewQBittorrentConnector creates a connector bound to the given configuration.
func NewQBittorrentConnector(cfg domain.ServiceConfig) *QBittorrentConnector {
	cfg = cfg.Normalized()
	jar, _ := cookiejar.New(nil)

	return &QBittorrentConnector{
		serviceID: cfg.ID,
		baseURL:   cfg.BaseURL,
		username:  cfg.Credential.Username,
		password:  cfg.Credential.Password,
		client: &http.Client{
			Timeout: cfg.Timeout,
			Jar:     jar,
		},
	}
}

func (q *QBittorrentConnector) ServiceID() string {
	return q.serviceID
}

func (q *QBittorrentConnector) Kind() domain.ServiceKind {
	return domain.KindQBittorrent
}

// login authenticates with qBittorrent. A 200 with body "Fails." means the
// credentials were rejected; the WebUI does not use HTTP status for that.
func (q *QBittorrentConnector) login(ctx context.Context) error {
	data := url.Values{}
	data.Set("username", q.username)
	data.Set("password", q.password)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, q.baseURL+"/api/v2/auth/login", strings.NewReader(data.Encode()))
	if err != nil {
		return &Error{Kind: KindUnknown, Service: "qBittorrent", Op: "login", Err: err}
	}

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := q.client.Do(req)
	if err != nil {
		return wrapErr("qBittorrent", "login", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return wrapStatus("qBittorrent", "login", resp.StatusCode, string(body))
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
	if strings.TrimSpace(string(body)) == "Fails." {
		return &Error{Kind: KindUnauthorized, Service: "qBittorrent", Op: "login", Err: errAuthRejected}
	}

	return nil
}

// TestConnection logs in and reads the application version endpoint, which
// returns the version as plain text.
func (q *QBittorrentConnector) TestConnection(ctx context.Context) domain.ConnectionResult {
	start := time.Now()

	if err := q.login(ctx); err != nil {
		result := domain.ConnectionResult{Success: false, Message: failureMessage(err)}
		if KindOf(err) == KindUnauthorized {
			latency := time.Since(start).Milliseconds()
			result.Latency = &latency
		}
		return result
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, q.baseURL+"/api/v2/app/version", nil)
	if err != nil {
		return domain.ConnectionResult{Success: false, Message: failureMessage(err)}
	}

	resp, err := q.client.Do(req)
	if err != nil {
		return domain.ConnectionResult{Success: false, Message: failureMessage(wrapErr("qBittorrent", "version", err))}
	}
	defer resp.Body.Close()

	latency := time.Since(start).Milliseconds()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return domain.ConnectionResult{
			Success: false,
			Message: failureMessage(wrapStatus("qBittorrent", "version", resp.StatusCode, string(body))),
			Latency: &latency,
		}
	}

	version, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))

	return domain.ConnectionResult{
		Success: true,
		Latency: &latency,
		Version: strings.TrimPrefix(strings.TrimSpace(string(version)), "v"),
	}
}

// torrentEntry is the subset of /api/v2/torrents/info the rollup needs.
type torrentEntry struct {
	Hash     string  `json:"hash"`
	Name     string  `json:"name"`
	State    string  `json:"state"`
	Size     int64   `json:"size"`
	Progress float64 `json:"progress"`
	DLSpeed  int64   `json:"dlspeed"`
}

// ListDownloads retrieves the torrent queue normalized to DownloadItems.
func (q *QBittorrentConnector) ListDownloads(ctx context.Context) ([]domain.DownloadItem, error) {
	if err := q.login(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, q.baseURL+"/api/v2/torrents/info", nil)
	if err != nil {
		return nil, &Error{Kind: KindUnknown, Service: "qBittorrent", Op: "list torrents", Err: err}
	}

	resp, err := q.client.Do(req)
	if err != nil {
		return nil, wrapErr("qBittorrent", "list torrents", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return nil, wrapStatus("qBittorrent", "list torrents", resp.StatusCode, string(body))
	}

	var torrents []torrentEntry
	if err := json.NewDecoder(resp.Body).Decode(&torrents); err != nil {
		return nil, wrapDecode("qBittorrent", "list torrents", err)
	}

	items := make([]domain.DownloadItem, 0, len(torrents))
	for _, t := range torrents {
		items = append(items, domain.DownloadItem{
			Hash:         t.Hash,
			Name:         t.Name,
			State:        normalizeTorrentState(t.State, t.Progress),
			Size:         t.Size,
			Progress:     t.Progress,
			DownloadRate: t.DLSpeed,
		})
	}

	return items, nil
}

// normalizeTorrentState folds qBittorrent's many state strings into the
// canonical closed set. "stopped" variants arrived in qBittorrent 5.x and
// replace the older "paused" names.
func normalizeTorrentState(state string, progress float64) domain.DownloadState {
	switch state {
	case "error", "missingFiles":
		return domain.DownloadErrored
	case "pausedDL", "stoppedDL":
		return domain.DownloadPaused
	case "pausedUP", "stoppedUP", "uploading", "stalledUP", "queuedUP", "forcedUP", "checkingUP":
		return domain.DownloadCompleted
	}
	if progress >= 1 {
		return domain.DownloadCompleted
	}
	return domain.DownloadActive
}
