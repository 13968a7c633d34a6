package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/fundval/fundval-backend/internal/api/request"
	"github.com/fundval/fundval-backend/internal/api/response"
	"github.com/fundval/fundval-backend/internal/apperrors"
	"github.com/fundval/fundval-backend/internal/service"
)

// SystemHandler handles system-related HTTP requests
type SystemHandler struct {
	systemService *service.SystemService
}

// NewSystemHandler creates a new SystemHandler
func NewSystemHandler(systemService *service.SystemService) *SystemHandler {
	return &SystemHandler{
		systemService: systemService,
	}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Error    string `json:"error,omitempty"`
}

// Health checks the health of the system and database connectivity
func (h *SystemHandler) Health(w http.ResponseWriter, r *http.Request) {
	// Check database health
	if err := h.systemService.CheckHealth(); err != nil {
		response := HealthResponse{
			Status:   "unhealthy",
			Database: "disconnected",
			Error:    err.Error(),
		}
		respondJSON(w, http.StatusServiceUnavailable, response)
		return
	}

	// System is healthy
	response := HealthResponse{
		Status:   "healthy",
		Database: "connected",
	}
	respondJSON(w, http.StatusOK, response)
}

// VersionResponse represents the version check response
type VersionResponse struct {
	Version string `json:"version"`
}

// Version handles GET requests to retrieve the application version.
//
// Endpoint: GET /api/system/version
// Response: 200 OK with VersionResponse
func (h *SystemHandler) Version(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, VersionResponse{Version: h.systemService.CheckVersion()})
}

// GetSetting handles GET requests to retrieve a system setting value.
// Secret settings are decrypted before being returned.
//
// Endpoint: GET /api/system/setting/{key}
// Response: 200 OK with {key, value}
// Error: 404 Not Found if the key is unknown
func (h *SystemHandler) GetSetting(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	value, err := h.systemService.GetSetting(key)
	if err != nil {
		if errors.Is(err, apperrors.ErrSettingNotFound) {
			response.RespondError(w, http.StatusNotFound, apperrors.ErrSettingNotFound.Error(), key)
			return
		}
		response.RespondError(w, http.StatusInternalServerError, "failed to retrieve setting", err.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"key": key, "value": value})
}

// SetSetting handles PUT requests to store a system setting. Settings
// flagged secret are encrypted at rest.
//
// Endpoint: PUT /api/system/setting
// Request Body: SetSettingRequest (key, value, secret)
// Response: 204 No Content
// Error: 400 Bad Request if the body is invalid
// Error: 500 Internal Server Error if storing fails
func (h *SystemHandler) SetSetting(w http.ResponseWriter, r *http.Request) {
	req, err := parseJSON[request.SetSettingRequest](r)
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if req.Key == "" {
		response.RespondError(w, http.StatusBadRequest, "key is required", "")
		return
	}

	if err := h.systemService.SetSetting(req.Key, req.Value, req.Secret); err != nil {
		response.RespondError(w, http.StatusInternalServerError, "failed to store setting", err.Error())
		return
	}

	respondJSON(w, http.StatusNoContent, nil)
}
