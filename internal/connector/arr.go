package connector

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/avelinn/mediadeck/internal/domain"
)

// maxErrorBodyBytes caps how much of a failure body is kept for diagnostics.
const maxErrorBodyBytes = 2048

// arrClient is the shared HTTP client for Sonarr/Radarr; both speak the same
// v3 API structure with an X-Api-Key header.
type arrClient struct {
	serviceID string
	kind      domain.ServiceKind
	appName   string
	baseURL   string
	apiKey    string
	client    *http.Client
}

func newArrClient(cfg domain.ServiceConfig, appName string) *arrClient {
	cfg = cfg.Normalized()
	return &arrClient{
		serviceID: cfg.ID,
		kind:      cfg.Kind,
		appName:   appName,
		baseURL:   cfg.BaseURL,
		apiKey:    cfg.Credential.APIKey,
		client:    &http.Client{Timeout: cfg.Timeout},
	}
}

func (a *arrClient) ServiceID() string {
	return a.serviceID
}

func (a *arrClient) Kind() domain.ServiceKind {
	return a.kind
}

// systemStatus is the subset of /api/v3/system/status the probe cares about.
// Field absence across backend versions is tolerated; everything here is
// optional.
type systemStatus struct {
	Version string `json:"version"`
}

// TestConnection probes the *arr system status endpoint.
func (a *arrClient) TestConnection(ctx context.Context) domain.ConnectionResult {
	start := time.Now()

	var status systemStatus
	err := a.get(ctx, "test", "/api/v3/system/status", &status)
	latency := time.Since(start).Milliseconds()

	if err != nil {
		result := domain.ConnectionResult{Success: false, Message: failureMessage(err)}
		// A rejected or malformed response still measured a round trip.
		if kind := KindOf(err); kind == KindUnauthorized || kind == KindMalformedResponse {
			result.Latency = &latency
		}
		return result
	}

	return domain.ConnectionResult{
		Success: true,
		Latency: &latency,
		Version: status.Version,
	}
}

// get performs a GET request and decodes the JSON payload into result.
func (a *arrClient) get(ctx context.Context, op, endpoint string, result interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+endpoint, nil)
	if err != nil {
		return &Error{Kind: KindUnknown, Service: a.appName, Op: op, Err: err}
	}

	req.Header.Set("X-Api-Key", a.apiKey)

	resp, err := a.client.Do(req)
	if err != nil {
		return wrapErr(a.appName, op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return wrapStatus(a.appName, op, resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return wrapDecode(a.appName, op, err)
	}

	return nil
}

// qualityProfiles fetches the profile table keyed by id. Both *arr backends
// expose the same endpoint.
func (a *arrClient) qualityProfiles(ctx context.Context) (map[int64]domain.QualityProfile, error) {
	var profiles []struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	}

	if err := a.get(ctx, "quality profiles", "/api/v3/qualityprofile", &profiles); err != nil {
		return nil, err
	}

	out := make(map[int64]domain.QualityProfile, len(profiles))
	for _, p := range profiles {
		out[p.ID] = domain.QualityProfile{ID: p.ID, Name: p.Name}
	}

	return out, nil
}

// resolveProfile looks up a referenced profile, falling back to an explicit
// placeholder so one dangling reference never fails an entire list fetch.
func resolveProfile(profiles map[int64]domain.QualityProfile, id int64) domain.QualityProfile {
	if p, ok := profiles[id]; ok {
		return p
	}
	return domain.FallbackQualityProfile(id)
}

// remotePosterURL extracts the poster image from an *arr images array.
// Missing posters stay absent, not empty-string placeholders.
func remotePosterURL(images []arrImage) string {
	for _, img := range images {
		if img.CoverType != "poster" {
			continue
		}
		if img.RemoteURL != "" {
			return img.RemoteURL
		}
		return img.URL
	}
	return ""
}

type arrImage struct {
	CoverType string `json:"coverType"`
	URL       string `json:"url"`
	RemoteURL string `json:"remoteUrl"`
}
