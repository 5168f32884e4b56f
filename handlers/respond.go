package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/MohitSaini10/dan-aliph/apperr"
	"github.com/MohitSaini10/dan-aliph/middleware"
	"github.com/MohitSaini10/dan-aliph/service"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const maxJSONBody = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	middleware.JSON(w, status, v)
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	middleware.Error(w, r, err)
}

type message struct {
	Message string `json:"message"`
}

// decodeJSON reads a JSON body. strict rejects unknown fields, which the
// admin mutations rely on to refuse fields outside their allow-list.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any, strict bool) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	if strict {
		dec.DisallowUnknownFields()
	}
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return apperr.Validation("Request body is required")
		}
		if strings.HasPrefix(err.Error(), "json: unknown field ") {
			field := strings.Trim(strings.TrimPrefix(err.Error(), "json: unknown field "), `"`)
			return apperr.Validation("Unknown field: "+field, apperr.FieldError{Field: field, Message: "not allowed"})
		}
		if isTooLarge(err) {
			return payloadTooLarge("Request body too large")
		}
		return apperr.Validation("Invalid JSON body")
	}
	return nil
}

// isTooLarge reports whether err came from an http.MaxBytesReader limit.
func isTooLarge(err error) bool {
	var mbe *http.MaxBytesError
	return errors.As(err, &mbe) || strings.Contains(err.Error(), "request body too large")
}

func payloadTooLarge(msg string) error {
	return &apperr.AppError{Code: apperr.CodeValidation, Message: msg, HTTPStatus: http.StatusRequestEntityTooLarge}
}

func parseID(raw, what string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(strings.TrimSpace(raw))
	if err != nil {
		return primitive.NilObjectID, apperr.Validation("Invalid " + what + " id")
	}
	return id, nil
}

func pathID(r *http.Request, param, what string) (primitive.ObjectID, error) {
	return parseID(chi.URLParam(r, param), what)
}

// session returns the verified caller. Routes using it sit behind
// RequireAuth or RequireRole, so a miss is reported as unauthenticated.
func session(r *http.Request) (*service.Session, error) {
	s, ok := middleware.SessionFromContext(r.Context())
	if !ok {
		return nil, apperr.Unauthenticated("")
	}
	return s, nil
}
