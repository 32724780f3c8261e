package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/cartageapp/cartage/internal/apperr"
)

type errorBody struct {
	Kind    apperr.Kind `json:"kind"`
	Message string      `json:"message"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeError maps an application error to its status code and body.
// Storage failures keep their detail out of the response.
func (h *Handlers) writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := apperr.KindOf(err)
	status := apperr.HTTPStatus(kind)
	if status >= http.StatusInternalServerError {
		h.loggerFromContext(r.Context()).Error("request failed", "error", err, "path", r.URL.Path)
	}

	writeJSON(w, status, errorResponse{Error: errorBody{
		Kind:    kind,
		Message: apperr.PublicMessage(err),
	}})
}

// decodeJSON reads a bounded request body into dst, rejecting unknown
// fields and trailing garbage.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return apperr.New(apperr.KindInvalidInput, "request body too large")
		}
		return apperr.Wrap(apperr.KindInvalidInput, "invalid request body", err)
	}
	if dec.More() {
		return apperr.New(apperr.KindInvalidInput, "unexpected data after JSON body")
	}
	return nil
}
