package apperr

import (
	"encoding/json"
	"errors"
	"net/http"
)

// HTTPStatus maps a Kind onto a response status.
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindNotFound:
		return http.StatusNotFound
	case KindValidation:
		return http.StatusBadRequest
	case KindUnavailableSlot:
		return http.StatusConflict
	case KindParse:
		return http.StatusUnprocessableEntity
	case KindProvider:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Kind    Kind           `json:"kind"`
	Message string         `json:"message"`
	Detail  map[string]any `json:"detail,omitempty"`
}

// WriteError renders err as a structured JSON error. Internal and provider
// errors never leak their underlying message.
func WriteError(w http.ResponseWriter, err error) {
	kind := KindOf(err)
	body := errorBody{Error: errorDetail{Kind: kind}}

	var appErr *Error
	switch {
	case kind == KindInternal:
		body.Error.Message = "internal error"
	case kind == KindProvider:
		body.Error.Message = "upstream provider failed"
	case errors.As(err, &appErr):
		body.Error.Message = appErr.Message
		if body.Error.Message == "" && appErr.Err != nil {
			body.Error.Message = appErr.Err.Error()
		}
		body.Error.Detail = appErr.Detail
	}
	WriteJSON(w, HTTPStatus(kind), body)
}

// WriteJSON encodes payload with the given status.
func WriteJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
