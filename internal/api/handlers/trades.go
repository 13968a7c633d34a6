package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/fundval/fundval-backend/internal/api/request"
	"github.com/fundval/fundval-backend/internal/api/response"
	"github.com/fundval/fundval-backend/internal/apperrors"
	"github.com/fundval/fundval-backend/internal/model"
	"github.com/fundval/fundval-backend/internal/service"
	"github.com/fundval/fundval-backend/internal/validation"
)

// TradeHandler handles HTTP requests for trade endpoints.
// It serves as the HTTP layer adapter, parsing requests and delegating
// business logic to the tradeService.
type TradeHandler struct {
	tradeService *service.TradeService
}

// NewTradeHandler creates a new TradeHandler with the provided service dependency.
func NewTradeHandler(tradeService *service.TradeService) *TradeHandler {
	return &TradeHandler{
		tradeService: tradeService,
	}
}

// CreateTrade handles POST requests to record a buy or sell.
// A trade whose settlement NAV is already published settles immediately;
// otherwise it is stored pending and the response reports pending=true.
//
// Endpoint: POST /api/trade
// Request Body: CreateTradeRequest (accountId, code, opType, amount|shares, tradeTime?)
// Response: 201 Created with TradeResult
// Error: 400 Bad Request if validation fails or the position cannot cover a sell
// Error: 500 Internal Server Error if recording fails
func (h *TradeHandler) CreateTrade(w http.ResponseWriter, r *http.Request) {
	req, err := parseJSON[request.CreateTradeRequest](r)
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	if err := validation.ValidateCreateTrade(req); err != nil {
		response.RespondError(w, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	var tradeTime time.Time
	if req.TradeTime != "" {
		tradeTime, err = time.Parse(time.RFC3339, req.TradeTime)
		if err != nil {
			response.RespondError(w, http.StatusBadRequest, "validation failed", err.Error())
			return
		}
	}

	var result *model.TradeResult
	if req.OpType == model.TradeOpAdd {
		result, err = h.tradeService.AddTrade(r.Context(), req.AccountID, req.Code, req.Amount, tradeTime)
	} else {
		result, err = h.tradeService.ReduceTrade(r.Context(), req.AccountID, req.Code, req.Shares, tradeTime)
	}
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrNonPositiveAmount),
			errors.Is(err, apperrors.ErrNonPositiveShares),
			errors.Is(err, apperrors.ErrInsufficientShares),
			errors.Is(err, apperrors.ErrPositionNotFound):
			response.RespondError(w, http.StatusBadRequest, err.Error(), "")
		default:
			response.RespondError(w, http.StatusInternalServerError, apperrors.ErrFailedToRecordTrade.Error(), err.Error())
		}
		return
	}

	response.RespondJSON(w, http.StatusCreated, result)
}

// ListTrades handles GET requests to retrieve the trade log, newest
// first, optionally filtered by account and fund code.
//
// Endpoint: GET /api/trade?accountId=&code=&limit=
// Response: 200 OK with array of Trade
// Error: 500 Internal Server Error if retrieval fails
func (h *TradeHandler) ListTrades(w http.ResponseWriter, r *http.Request) {
	accountID := r.URL.Query().Get("accountId")
	code := r.URL.Query().Get("code")
	limit := queryInt(r, "limit", 100)

	trades, err := h.tradeService.ListTrades(accountID, code, limit)
	if err != nil {
		response.RespondError(w, http.StatusInternalServerError, apperrors.ErrFailedToRetrieveTrades.Error(), err.Error())
		return
	}

	response.RespondJSON(w, http.StatusOK, trades)
}

// GetTrade handles GET requests to retrieve a single trade by ID.
//
// Endpoint: GET /api/trade/{uuid}
// Response: 200 OK with Trade
// Error: 400 Bad Request if the trade ID is invalid (validated by middleware)
// Error: 404 Not Found if the trade does not exist
// Error: 500 Internal Server Error if retrieval fails
func (h *TradeHandler) GetTrade(w http.ResponseWriter, r *http.Request) {
	tradeID := chi.URLParam(r, "uuid")

	trade, err := h.tradeService.GetTrade(tradeID)
	if err != nil {
		if errors.Is(err, apperrors.ErrTradeNotFound) {
			response.RespondError(w, http.StatusNotFound, apperrors.ErrTradeNotFound.Error(), err.Error())
			return
		}
		response.RespondError(w, http.StatusInternalServerError, apperrors.ErrFailedToRetrieveTrades.Error(), err.Error())
		return
	}

	response.RespondJSON(w, http.StatusOK, trade)
}

// ProcessPending handles POST requests to run one settlement
// reconciliation pass immediately, without waiting for the scheduler.
//
// Endpoint: POST /api/trade/process-pending
// Response: 200 OK with {settled}
// Error: 500 Internal Server Error if the pass fails
func (h *TradeHandler) ProcessPending(w http.ResponseWriter, r *http.Request) {
	settled, err := h.tradeService.ProcessPendingTrades(r.Context())
	if err != nil {
		response.RespondError(w, http.StatusInternalServerError, "failed to process pending trades", err.Error())
		return
	}

	response.RespondJSON(w, http.StatusOK, map[string]int{"settled": settled})
}
