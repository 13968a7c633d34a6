package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/fundval/fundval-backend/internal/api/response"
	"github.com/fundval/fundval-backend/internal/apperrors"
	"github.com/fundval/fundval-backend/internal/service"
)

// FundHandler handles fund-related HTTP requests
type FundHandler struct {
	fundService *service.FundService
}

// NewFundHandler creates a new FundHandler
func NewFundHandler(fundService *service.FundService) *FundHandler {
	return &FundHandler{
		fundService: fundService,
	}
}

// Search handles GET requests to search the fund catalogue by code or
// name fragment.
//
// Endpoint: GET /api/fund/search?q=&limit=
// Response: 200 OK with array of Fund
// Error: 400 Bad Request if q is missing
// Error: 500 Internal Server Error if the search fails
func (h *FundHandler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		response.RespondError(w, http.StatusBadRequest, "q is required", "")
		return
	}

	funds, err := h.fundService.Search(q, queryInt(r, "limit", 20))
	if err != nil {
		response.RespondError(w, http.StatusInternalServerError, apperrors.ErrFailedToSearchFunds.Error(), err.Error())
		return
	}

	response.RespondJSON(w, http.StatusOK, funds)
}

// Detail handles GET requests to retrieve the full detail view of one
// fund: identity, live valuation, NAV history and technical indicators.
//
// Endpoint: GET /api/fund/{code}?history=
// Response: 200 OK with FundDetail
// Error: 400 Bad Request if the fund code is invalid (validated by middleware)
// Error: 404 Not Found if the fund is unknown
// Error: 500 Internal Server Error if retrieval fails
func (h *FundHandler) Detail(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	detail, err := h.fundService.GetDetail(r.Context(), code, queryInt(r, "history", 250))
	if err != nil {
		if errors.Is(err, apperrors.ErrFundNotFound) {
			response.RespondError(w, http.StatusNotFound, apperrors.ErrFundNotFound.Error(), code)
			return
		}
		response.RespondError(w, http.StatusInternalServerError, apperrors.ErrFailedToRetrieveFundHistory.Error(), err.Error())
		return
	}

	response.RespondJSON(w, http.StatusOK, detail)
}

// Valuation handles GET requests to retrieve the current live valuation
// of one fund.
//
// Endpoint: GET /api/fund/{code}/valuation
// Response: 200 OK with Valuation
// Error: 400 Bad Request if the fund code is invalid (validated by middleware)
// Error: 502 Bad Gateway if no provider produced a valuation
func (h *FundHandler) Valuation(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	v, err := h.fundService.GetValuation(r.Context(), code)
	if err != nil {
		response.RespondError(w, http.StatusBadGateway, apperrors.ErrFailedToRetrieveValuation.Error(), code)
		return
	}

	response.RespondJSON(w, http.StatusOK, v)
}

// History handles GET requests to retrieve the cached NAV history of one
// fund in ascending date order.
//
// Endpoint: GET /api/fund/{code}/history?limit=
// Response: 200 OK with array of NavPoint
// Error: 400 Bad Request if the fund code is invalid (validated by middleware)
// Error: 500 Internal Server Error if retrieval fails
func (h *FundHandler) History(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	points, err := h.fundService.GetHistory(r.Context(), code, queryInt(r, "limit", 0))
	if err != nil {
		response.RespondError(w, http.StatusInternalServerError, apperrors.ErrFailedToRetrieveFundHistory.Error(), err.Error())
		return
	}

	response.RespondJSON(w, http.StatusOK, points)
}

// Snapshots handles GET requests to retrieve a fund's intraday estimate
// snapshots for one date (today when the date parameter is omitted).
//
// Endpoint: GET /api/fund/{code}/snapshots?date=
// Response: 200 OK with array of IntradaySnapshot
// Error: 400 Bad Request if the fund code is invalid (validated by middleware)
// Error: 500 Internal Server Error if retrieval fails
func (h *FundHandler) Snapshots(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	snaps, err := h.fundService.GetSnapshots(code, r.URL.Query().Get("date"))
	if err != nil {
		response.RespondError(w, http.StatusInternalServerError, "failed to retrieve snapshots", err.Error())
		return
	}

	response.RespondJSON(w, http.StatusOK, snaps)
}

// RefreshList handles POST requests to reload the fund catalogue from
// the provider.
//
// Endpoint: POST /api/fund/refresh-list
// Response: 200 OK with {loaded}
// Error: 502 Bad Gateway if the provider fetch fails
func (h *FundHandler) RefreshList(w http.ResponseWriter, r *http.Request) {
	n, err := h.fundService.RefreshFundList(r.Context())
	if err != nil {
		response.RespondError(w, http.StatusBadGateway, "failed to refresh fund list", err.Error())
		return
	}

	response.RespondJSON(w, http.StatusOK, map[string]int{"loaded": n})
}
