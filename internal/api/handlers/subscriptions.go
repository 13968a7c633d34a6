package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/fundval/fundval-backend/internal/api/request"
	"github.com/fundval/fundval-backend/internal/api/response"
	"github.com/fundval/fundval-backend/internal/apperrors"
	"github.com/fundval/fundval-backend/internal/model"
	"github.com/fundval/fundval-backend/internal/service"
	"github.com/fundval/fundval-backend/internal/validation"
)

// SubscriptionHandler handles subscription-related HTTP requests
type SubscriptionHandler struct {
	notificationService *service.NotificationService
}

// NewSubscriptionHandler creates a new SubscriptionHandler
func NewSubscriptionHandler(notificationService *service.NotificationService) *SubscriptionHandler {
	return &SubscriptionHandler{
		notificationService: notificationService,
	}
}

// CreateSubscription handles POST requests to create or update a
// notification subscription. An existing (user, fund, email) triple is
// updated in place without resetting its notification history.
//
// Endpoint: POST /api/subscription
// Request Body: CreateSubscriptionRequest
// Response: 201 Created with Subscription
// Error: 400 Bad Request if validation fails
// Error: 500 Internal Server Error if saving fails
func (h *SubscriptionHandler) CreateSubscription(w http.ResponseWriter, r *http.Request) {
	req, err := parseJSON[request.CreateSubscriptionRequest](r)
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	if err := validation.ValidateCreateSubscription(req); err != nil {
		response.RespondError(w, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	sub, err := h.notificationService.UpsertSubscription(&model.Subscription{
		UserID:           req.UserID,
		Code:             req.Code,
		Email:            req.Email,
		ThresholdUp:      req.ThresholdUp,
		ThresholdDown:    req.ThresholdDown,
		EnableVolatility: req.EnableVolatility,
		EnableDigest:     req.EnableDigest,
		DigestTime:       req.DigestTime,
	})
	if err != nil {
		response.RespondError(w, http.StatusInternalServerError, apperrors.ErrFailedToSaveSubscription.Error(), err.Error())
		return
	}

	response.RespondJSON(w, http.StatusCreated, sub)
}

// SubscriptionsPerUser handles GET requests to retrieve all
// subscriptions belonging to one user.
//
// Endpoint: GET /api/subscription/user/{uuid}
// Response: 200 OK with array of Subscription
// Error: 400 Bad Request if the user ID is invalid (validated by middleware)
// Error: 500 Internal Server Error if retrieval fails
func (h *SubscriptionHandler) SubscriptionsPerUser(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "uuid")

	subs, err := h.notificationService.GetSubscriptionsByUser(userID)
	if err != nil {
		response.RespondError(w, http.StatusInternalServerError, apperrors.ErrFailedToRetrieveSubscriptions.Error(), err.Error())
		return
	}

	response.RespondJSON(w, http.StatusOK, subs)
}

// DeleteSubscription handles DELETE requests to remove a subscription.
//
// Endpoint: DELETE /api/subscription/{uuid}
// Response: 204 No Content
// Error: 400 Bad Request if the subscription ID is invalid (validated by middleware)
// Error: 500 Internal Server Error if deletion fails
func (h *SubscriptionHandler) DeleteSubscription(w http.ResponseWriter, r *http.Request) {
	subID := chi.URLParam(r, "uuid")

	if err := h.notificationService.DeleteSubscription(subID); err != nil {
		response.RespondError(w, http.StatusInternalServerError, "failed to delete subscription", err.Error())
		return
	}

	response.RespondJSON(w, http.StatusNoContent, nil)
}

// CheckSubscriptions handles POST requests to run one notification pass
// immediately, without waiting for the scheduler.
//
// Endpoint: POST /api/subscription/check
// Response: 200 OK with {sent}
// Error: 500 Internal Server Error if the pass fails
func (h *SubscriptionHandler) CheckSubscriptions(w http.ResponseWriter, r *http.Request) {
	sent, err := h.notificationService.CheckSubscriptions(r.Context())
	if err != nil {
		response.RespondError(w, http.StatusInternalServerError, "failed to check subscriptions", err.Error())
		return
	}

	response.RespondJSON(w, http.StatusOK, map[string]int{"sent": sent})
}
