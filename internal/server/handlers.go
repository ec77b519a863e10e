package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/avelinn/mediadeck/internal/domain"
	"github.com/avelinn/mediadeck/internal/logger"
	"github.com/avelinn/mediadeck/internal/rollup"
	"github.com/avelinn/mediadeck/internal/store"
)

// servicesResponse is the payload of GET /api/services.
type servicesResponse struct {
	Overview domain.ServicesOverview `json:"overview"`
	Services []serviceEntry          `json:"services"`
}

type serviceEntry struct {
	ID                string             `json:"id"`
	Kind              domain.ServiceKind `json:"kind"`
	Name              string             `json:"name"`
	BaseURL           string             `json:"baseUrl"`
	Enabled           bool               `json:"enabled"`
	Status            domain.Status      `json:"status"`
	StatusDescription string             `json:"statusDescription,omitempty"`
	LastCheckedAt     *time.Time         `json:"lastCheckedAt,omitempty"`
	Latency           *int64             `json:"latencyMs,omitempty"`
	Version           string             `json:"version,omitempty"`
}

// HandleSelfHealth reports the health of mediadeck itself, not of the
// configured backends.
func (s *Server) HandleSelfHealth(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	code := http.StatusOK

	dbStatus := "ok"
	if err := s.store.Ping(); err != nil {
		dbStatus = err.Error()
		status = "degraded"
		code = http.StatusServiceUnavailable
	}

	respondJSON(w, code, map[string]interface{}{
		"status":     status,
		"version":    s.version,
		"database":   dbStatus,
		"connectors": s.registry.Len(),
	})
}

// HandleListServices returns the merged health view of every configured
// service plus the aggregate overview.
func (s *Server) HandleListServices(w http.ResponseWriter, r *http.Request) {
	configs, err := s.store.ListConfigs(r.Context())
	if err != nil {
		s.log.Error("failed to list services", logger.Error(err))
		respondError(w, http.StatusInternalServerError, "Failed to list services", "aggregation_failed")
		return
	}

	overview, records, err := s.aggregator.ComputeOverview(r.Context())
	if err != nil {
		s.log.Error("failed to compute overview", logger.Error(err))
		respondError(w, http.StatusInternalServerError, "Failed to compute service overview", "aggregation_failed")
		return
	}

	recordByID := make(map[string]domain.HealthRecord, len(records))
	for _, rec := range records {
		recordByID[rec.ServiceID] = rec
	}

	resp := servicesResponse{Overview: overview, Services: make([]serviceEntry, 0, len(configs))}
	for _, cfg := range configs {
		rec := recordByID[cfg.ID]
		resp.Services = append(resp.Services, serviceEntry{
			ID:                cfg.ID,
			Kind:              cfg.Kind,
			Name:              cfg.Name,
			BaseURL:           cfg.BaseURL,
			Enabled:           cfg.Enabled,
			Status:            rec.Status,
			StatusDescription: rec.StatusDescription,
			LastCheckedAt:     rec.LastCheckedAt,
			Latency:           rec.Latency,
			Version:           rec.Version,
		})
	}

	respondJSON(w, http.StatusOK, resp)
}

// HandleOverview returns only the aggregate counters.
func (s *Server) HandleOverview(w http.ResponseWriter, r *http.Request) {
	overview, _, err := s.aggregator.ComputeOverview(r.Context())
	if err != nil {
		s.log.Error("failed to compute overview", logger.Error(err))
		respondError(w, http.StatusInternalServerError, "Failed to compute service overview", "aggregation_failed")
		return
	}

	respondJSON(w, http.StatusOK, overview)
}

// HandleRefresh drops cached probe results and recomputes the overview.
func (s *Server) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	overview, records, err := s.aggregator.Refresh(r.Context())
	if err != nil {
		s.log.Error("failed to refresh overview", logger.Error(err))
		respondError(w, http.StatusInternalServerError, "Failed to refresh service overview", "aggregation_failed")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"overview": overview,
		"records":  records,
	})
}

// serviceRequest is the mutation payload for creating or updating a service.
type serviceRequest struct {
	Kind      string `json:"kind"`
	Name      string `json:"name"`
	BaseURL   string `json:"baseUrl"`
	APIKey    string `json:"apiKey"`
	Username  string `json:"username"`
	Password  string `json:"password"`
	Enabled   *bool  `json:"enabled"`
	TimeoutMs int64  `json:"timeoutMs"`
}

func (req serviceRequest) toConfig(id string) (domain.ServiceConfig, error) {
	kind, err := domain.ParseKind(req.Kind)
	if err != nil {
		return domain.ServiceConfig{}, err
	}

	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}

	cfg := domain.ServiceConfig{
		ID:      id,
		Kind:    kind,
		Name:    req.Name,
		BaseURL: req.BaseURL,
		Credential: domain.Credential{
			APIKey:   req.APIKey,
			Username: req.Username,
			Password: req.Password,
		},
		Enabled: enabled,
	}
	if req.TimeoutMs > 0 {
		cfg.Timeout = time.Duration(req.TimeoutMs) * time.Millisecond
	}

	return cfg.Normalized(), nil
}

// HandleCreateService persists a new service and registers its connector.
func (s *Server) HandleCreateService(w http.ResponseWriter, r *http.Request) {
	var req serviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body", "parse_error")
		return
	}

	cfg, err := req.toConfig("")
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error(), "unsupported_kind")
		return
	}

	s.upsertService(w, r.Context(), cfg)
}

// HandleUpdateService replaces a service's configuration; the old connector
// instance is always discarded.
func (s *Server) HandleUpdateService(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if _, err := s.store.GetConfig(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respondError(w, http.StatusNotFound, "Service not found", "service_not_found")
			return
		}
		respondError(w, http.StatusInternalServerError, "Failed to load service", "save_failed")
		return
	}

	var req serviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body", "parse_error")
		return
	}

	cfg, err := req.toConfig(id)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error(), "unsupported_kind")
		return
	}

	s.upsertService(w, r.Context(), cfg)
}

func (s *Server) upsertService(w http.ResponseWriter, ctx context.Context, cfg domain.ServiceConfig) {
	saved, err := s.store.SaveConfig(ctx, cfg)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error(), "validation_failed")
		return
	}

	if saved.Enabled {
		if err := s.registry.Upsert(saved); err != nil {
			s.log.Error("failed to register connector", logger.String("service_id", saved.ID), logger.Error(err))
			respondError(w, http.StatusInternalServerError, "Failed to register connector", "save_failed")
			return
		}
	} else {
		s.registry.Remove(saved.ID)
	}
	s.aggregator.InvalidateService(saved.ID)

	saved.Credential = saved.Credential.Masked()
	respondJSON(w, http.StatusOK, saved)
}

// HandleDeleteService removes a service from the store and the registry.
func (s *Server) HandleDeleteService(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := s.store.DeleteConfig(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respondError(w, http.StatusNotFound, "Service not found", "service_not_found")
			return
		}
		s.log.Error("failed to delete service", logger.String("service_id", id), logger.Error(err))
		respondError(w, http.StatusInternalServerError, "Failed to delete service", "delete_failed")
		return
	}

	s.registry.Remove(id)
	s.aggregator.InvalidateService(id)

	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted", "id": id})
}

// HandleTestService runs one connectivity probe against a service, whether or
// not it is currently registered.
func (s *Server) HandleTestService(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	cfg, err := s.store.GetConfig(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respondError(w, http.StatusNotFound, "Service not found", "service_not_found")
			return
		}
		respondError(w, http.StatusInternalServerError, "Failed to load service", "connection_failed")
		return
	}

	conn, err := s.factory.Create(cfg)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error(), "unsupported_kind")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.probeTimeout)
	defer cancel()

	result := conn.TestConnection(ctx)
	if !result.Success {
		respondJSON(w, http.StatusBadGateway, result)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// HandleDownloadsRollup aggregates queue state across all download clients.
func (s *Server) HandleDownloadsRollup(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, rollup.Downloads(r.Context(), s.registry, s.log))
}

// HandleLibraryRollup aggregates library totals across all media managers.
func (s *Server) HandleLibraryRollup(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, rollup.Library(r.Context(), s.registry, s.log))
}
