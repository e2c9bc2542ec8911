// Package handlerutils holds the helpers every feature handler uses to read
// requests and write JSON responses.
package handlerutils

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
)

// APIHandler is an http handler that returns its error instead of writing it,
// leaving the rendering to middlewares.ErrorHandler.
type APIHandler func(w http.ResponseWriter, r *http.Request) error

const maxJSONBodyBytes = 1 << 20

type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
	Errors  any    `json:"errors,omitempty"`
}

// ParseJSON decodes the request body into payload.
func ParseJSON(r *http.Request, payload any) error {
	if r.Body == nil {
		return errors.New("missing request body")
	}

	return json.NewDecoder(io.LimitReader(r.Body, maxJSONBodyBytes)).Decode(payload)
}

func WriteJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

func WriteSuccessJSON(w http.ResponseWriter, status int, message string, data any) error {
	return WriteJSON(
		w,
		status,
		envelope{
			Success: true,
			Message: message,
			Data:    data,
		},
	)
}

func WriteErrorJSON(w http.ResponseWriter, status int, message string, errs any) error {
	return WriteJSON(
		w,
		status,
		envelope{
			Success: false,
			Message: message,
			Errors:  errs,
		},
	)
}
