package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/fundval/fundval-backend/internal/api/response"
	"github.com/fundval/fundval-backend/internal/apperrors"
	"github.com/fundval/fundval-backend/internal/model"
	"github.com/fundval/fundval-backend/internal/service"
	"github.com/fundval/fundval-backend/internal/validation"
)

// PositionHandler handles position-related HTTP requests
type PositionHandler struct {
	positionService *service.PositionService
}

// NewPositionHandler creates a new PositionHandler
func NewPositionHandler(positionService *service.PositionService) *PositionHandler {
	return &PositionHandler{
		positionService: positionService,
	}
}

// GetPositions handles GET requests to retrieve the valued portfolio of
// one account. The account ID "all" returns the merged view across all
// accounts of the user named by the userId query parameter.
//
// Endpoint: GET /api/position/{accountId}?userId=
// Response: 200 OK with PortfolioResponse (summary + positions)
// Error: 400 Bad Request if the account or user ID is invalid
// Error: 500 Internal Server Error if retrieval fails
func (h *PositionHandler) GetPositions(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "accountId")
	userID := r.URL.Query().Get("userId")

	if accountID == model.AccountAll {
		if err := validation.ValidateUUID(userID); err != nil {
			response.RespondError(w, http.StatusBadRequest, "valid userId is required for the merged view", err.Error())
			return
		}
	} else if err := validation.ValidateUUID(accountID); err != nil {
		response.RespondError(w, http.StatusBadRequest, "invalid account ID", err.Error())
		return
	}

	portfolio, err := h.positionService.GetPositions(r.Context(), accountID, userID)
	if err != nil {
		response.RespondError(w, http.StatusInternalServerError, apperrors.ErrFailedToRetrievePositions.Error(), err.Error())
		return
	}

	response.RespondJSON(w, http.StatusOK, portfolio)
}
