package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/MohitSaini10/dan-aliph/apperr"
)

// JSON writes payload with the given status.
func JSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// Error writes err as {"error", "code", "details"}. Anything that is not an
// *apperr.AppError becomes a 500 whose cause is logged but not returned.
func Error(w http.ResponseWriter, r *http.Request, err error) {
	ae := apperr.As(err)
	if ae == nil {
		ae = apperr.Internal(err)
	}
	if ae.HTTPStatus >= http.StatusInternalServerError {
		Logger(r.Context()).Error("request failed",
			"code", ae.Code,
			"error", ae.Message,
			"cause", ae.Cause,
		)
	}
	JSON(w, ae.HTTPStatus, ae)
}
