package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avelinn/mediadeck/internal/config"
	"github.com/avelinn/mediadeck/internal/connector"
	"github.com/avelinn/mediadeck/internal/health"
	"github.com/avelinn/mediadeck/internal/logger"
	"github.com/avelinn/mediadeck/internal/metrics"
	"github.com/avelinn/mediadeck/internal/registry"
	"github.com/avelinn/mediadeck/internal/store"
)

// newTestServer stands up the full API over a temp database.
func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	cfg := config.Default()
	cfg.DatabasePath = filepath.Join(t.TempDir(), "mediadeck.db")
	// No probe caching in tests; every list reflects the current state.
	cfg.StatusCacheTTL = 0

	st, err := store.New(cfg.DatabasePath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	factory := connector.NewFactory()
	reg := registry.New(factory)
	m := metrics.New()
	agg := health.NewAggregator(st, reg, m, logger.Nop(), health.Options{
		ProbeTimeout:     cfg.ProbeTimeout,
		LatencyThreshold: cfg.LatencyThreshold,
	})

	srv := New(cfg, st, reg, factory, agg, m, logger.Nop(), "test")

	api := httptest.NewServer(srv.Router())
	t.Cleanup(api.Close)
	return api
}

// fakeSonarr answers the status endpoint so probes and connection tests pass.
func fakeSonarr(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v3/system/status" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"version":"4.0.1.929"}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, method, url string, body interface{}) (*http.Response, []byte) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, payload
}

func createService(t *testing.T, api *httptest.Server, body map[string]interface{}) map[string]interface{} {
	t.Helper()

	resp, payload := doJSON(t, http.MethodPost, api.URL+"/api/services", body)
	require.Equal(t, http.StatusOK, resp.StatusCode, "create failed: %s", payload)

	var created map[string]interface{}
	require.NoError(t, json.Unmarshal(payload, &created))
	return created
}

func TestCreateServiceMasksCredentials(t *testing.T) {
	api := newTestServer(t)

	created := createService(t, api, map[string]interface{}{
		"kind":    "sonarr",
		"name":    "Sonarr",
		"baseUrl": "http://localhost:8989",
		"apiKey":  "super-secret-key",
	})

	require.NotEmpty(t, created["id"])
	cred := created["credential"].(map[string]interface{})
	assert.Equal(t, "****-key", cred["apiKey"])
}

func TestCreateServiceRejectsUnknownKind(t *testing.T) {
	api := newTestServer(t)

	resp, payload := doJSON(t, http.MethodPost, api.URL+"/api/services", map[string]interface{}{
		"kind":    "plex",
		"name":    "Plex",
		"baseUrl": "http://localhost:32400",
	})

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var errResp ErrorResponse
	require.NoError(t, json.Unmarshal(payload, &errResp))
	assert.Equal(t, "unsupported_kind", errResp.Code)
	assert.NotEmpty(t, errResp.Suggestion)
}

func TestCreateServiceRejectsMalformedBody(t *testing.T) {
	api := newTestServer(t)

	resp, err := http.Post(api.URL+"/api/services", "application/json", bytes.NewReader([]byte("{not json")))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestListServicesMergesHealth(t *testing.T) {
	api := newTestServer(t)
	backend := fakeSonarr(t)

	created := createService(t, api, map[string]interface{}{
		"kind":    "sonarr",
		"name":    "Sonarr",
		"baseUrl": backend.URL,
		"apiKey":  "key",
	})

	resp, payload := doJSON(t, http.MethodGet, api.URL+"/api/services", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var listing struct {
		Overview struct {
			Total  int `json:"total"`
			Online int `json:"online"`
		} `json:"overview"`
		Services []struct {
			ID      string `json:"id"`
			Status  string `json:"status"`
			Version string `json:"version"`
		} `json:"services"`
	}
	require.NoError(t, json.Unmarshal(payload, &listing))

	assert.Equal(t, 1, listing.Overview.Total)
	assert.Equal(t, 1, listing.Overview.Online)
	require.Len(t, listing.Services, 1)
	assert.Equal(t, created["id"], listing.Services[0].ID)
	assert.Equal(t, "online", listing.Services[0].Status)
	assert.Equal(t, "4.0.1.929", listing.Services[0].Version)

	// Raw credentials never appear in the listing.
	assert.NotContains(t, string(payload), "key\"")
}

func TestUpdateServiceDisableUnregistersConnector(t *testing.T) {
	api := newTestServer(t)
	backend := fakeSonarr(t)

	created := createService(t, api, map[string]interface{}{
		"kind":    "sonarr",
		"name":    "Sonarr",
		"baseUrl": backend.URL,
		"apiKey":  "key",
	})
	id := created["id"].(string)

	enabled := false
	resp, payload := doJSON(t, http.MethodPut, api.URL+"/api/services/"+id, map[string]interface{}{
		"kind":    "sonarr",
		"name":    "Sonarr",
		"baseUrl": backend.URL,
		"apiKey":  "key",
		"enabled": enabled,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, "update failed: %s", payload)

	resp, payload = doJSON(t, http.MethodGet, api.URL+"/api/services/overview", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var overview struct {
		Total    int `json:"total"`
		Offline  int `json:"offline"`
		Disabled int `json:"disabled"`
	}
	require.NoError(t, json.Unmarshal(payload, &overview))
	assert.Equal(t, 1, overview.Total)
	assert.Equal(t, 1, overview.Offline)
	assert.Equal(t, 1, overview.Disabled)
}

func TestUpdateServiceNotFound(t *testing.T) {
	api := newTestServer(t)

	resp, payload := doJSON(t, http.MethodPut, api.URL+"/api/services/nope", map[string]interface{}{
		"kind":    "sonarr",
		"name":    "Sonarr",
		"baseUrl": "http://localhost:8989",
		"apiKey":  "key",
	})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	var errResp ErrorResponse
	require.NoError(t, json.Unmarshal(payload, &errResp))
	assert.Equal(t, "service_not_found", errResp.Code)
}

func TestDeleteService(t *testing.T) {
	api := newTestServer(t)

	created := createService(t, api, map[string]interface{}{
		"kind":    "sonarr",
		"name":    "Sonarr",
		"baseUrl": "http://localhost:8989",
		"apiKey":  "key",
	})
	id := created["id"].(string)

	resp, _ := doJSON(t, http.MethodDelete, api.URL+"/api/services/"+id, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodDelete, api.URL+"/api/services/"+id, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestTestServiceEndpoint(t *testing.T) {
	api := newTestServer(t)
	backend := fakeSonarr(t)

	created := createService(t, api, map[string]interface{}{
		"kind":    "sonarr",
		"name":    "Sonarr",
		"baseUrl": backend.URL,
		"apiKey":  "key",
	})
	id := created["id"].(string)

	resp, payload := doJSON(t, http.MethodPost, fmt.Sprintf("%s/api/services/%s/test", api.URL, id), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result struct {
		Success bool   `json:"success"`
		Version string `json:"version"`
	}
	require.NoError(t, json.Unmarshal(payload, &result))
	assert.True(t, result.Success)
	assert.Equal(t, "4.0.1.929", result.Version)
}

func TestTestServiceEndpointFailure(t *testing.T) {
	api := newTestServer(t)

	dead := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	dead.Close()

	created := createService(t, api, map[string]interface{}{
		"kind":    "sonarr",
		"name":    "Sonarr",
		"baseUrl": dead.URL,
		"apiKey":  "key",
	})
	id := created["id"].(string)

	resp, payload := doJSON(t, http.MethodPost, fmt.Sprintf("%s/api/services/%s/test", api.URL, id), nil)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)

	var result struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(payload, &result))
	assert.False(t, result.Success)
	assert.Contains(t, result.Message, "Service unreachable")
}

func TestSelfHealthAndMetrics(t *testing.T) {
	api := newTestServer(t)

	resp, payload := doJSON(t, http.MethodGet, api.URL+"/health", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var healthResp struct {
		Status  string `json:"status"`
		Version string `json:"version"`
	}
	require.NoError(t, json.Unmarshal(payload, &healthResp))
	assert.Equal(t, "healthy", healthResp.Status)
	assert.Equal(t, "test", healthResp.Version)

	resp, payload = doJSON(t, http.MethodGet, api.URL+"/metrics", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(payload), "mediadeck_registry_connectors")
}

func TestRollupEndpointsEmpty(t *testing.T) {
	api := newTestServer(t)

	resp, payload := doJSON(t, http.MethodGet, api.URL+"/api/rollups/downloads", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(payload), `"clientsQueried":0`)

	resp, payload = doJSON(t, http.MethodGet, api.URL+"/api/rollups/library", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(payload), `"sourcesQueried":0`)
}
