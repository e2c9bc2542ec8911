package middlewares

import (
	"errors"
	"net/http"

	"github.com/echoesonmars/tabys-back/internal/handlerutils"
	"github.com/echoesonmars/tabys-back/internal/servererrors"
)

// ErrorHandler is a middleware that takes handler that returns an error and
// return a HandlerFunc to create a centralized error handling, logging and etc.
func (mw *middleware) ErrorHandler(h handlerutils.APIHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := h(w, r)
		if err == nil {
			return
		}

		var serverError *servererrors.ServerError
		if !errors.As(err, &serverError) {
			mw.logger.Error("request failed",
				"method", r.Method,
				"path", r.URL.Path,
				"request_id", RequestIDFromContext(r.Context()),
				"error", err,
			)
			handlerutils.WriteErrorJSON(
				w,
				http.StatusInternalServerError,
				"something went wrong: "+err.Error(),
				nil,
			)
			return
		}

		level := mw.logger.Info
		if serverError.StatusCode >= http.StatusInternalServerError {
			level = mw.logger.Error
		}
		level("request rejected",
			"method", r.Method,
			"path", r.URL.Path,
			"status", serverError.StatusCode,
			"request_id", RequestIDFromContext(r.Context()),
			"error", serverError.Error(),
		)

		if serverError.StatusCode == http.StatusServiceUnavailable {
			w.Header().Set("Retry-After", "1")
		}

		handlerutils.WriteErrorJSON(
			w,
			serverError.StatusCode,
			serverError.Error(),
			serverError.Errors,
		)
	}
}
