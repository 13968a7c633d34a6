package middleware

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/fundval/fundval-backend/internal/api/response"
	"github.com/fundval/fundval-backend/internal/validation"
)

// ValidateFundCodeMiddleware validates that the code URL parameter is a
// six-digit fund code. Returns 400 Bad Request if it is missing or
// invalid. Apply it to routes that carry a fund code in the URL path.
func ValidateFundCodeMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		code := chi.URLParam(r, "code")

		if code == "" {
			response.RespondError(w, http.StatusBadRequest, "fund code is required", "")
			return
		}

		if err := validation.ValidateFundCode(code); err != nil {
			response.RespondError(w, http.StatusBadRequest, "invalid fund code", err.Error())
			return
		}

		next.ServeHTTP(w, r)
	})
}
