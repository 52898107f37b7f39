package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/MrSnakeDoc/landing/internal/domain"
	"github.com/MrSnakeDoc/landing/internal/logger"
)

// maxBodyBytes bounds curation request bodies.
const maxBodyBytes = 64 << 10

type errorResponse struct {
	Error   string            `json:"error"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

var errBadRequest = errors.New("invalid request")

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Error: code, Message: message})
}

// writeDomainError maps service errors to status codes and stable error
// codes. Anything unknown is logged and reported as a bare 500.
func writeDomainError(w http.ResponseWriter, r *http.Request, log logger.Logger, err error) {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{
			Error:   "validation_failed",
			Message: "The landing page configuration is invalid",
			Fields:  verr.Fields,
		})
	case errors.Is(err, errBadRequest):
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
	case errors.Is(err, domain.ErrDuplicateLandingPage):
		writeError(w, http.StatusConflict, "duplicate_landing_page", "This resource already has a landing page")
	case errors.Is(err, domain.ErrCannotUnpublish):
		writeError(w, http.StatusUnprocessableEntity, "cannot_unpublish",
			"A published landing page cannot be set back to draft: its DOI must keep resolving")
	case errors.Is(err, domain.ErrCannotDeletePublished):
		writeError(w, http.StatusUnprocessableEntity, "cannot_delete_published",
			"A published landing page cannot be deleted: its DOI must keep resolving")
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", "Not found")
	case errors.Is(err, domain.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden", "Invalid preview token")
	default:
		log.Error("request failed",
			logger.String("method", r.Method),
			logger.String("path", r.URL.Path),
			logger.String("request_id", middleware.GetReqID(r.Context())),
			logger.Error(err))
		writeError(w, http.StatusInternalServerError, "internal_error", "Internal server error")
	}
}

// resourceID reads the numeric {id} route parameter. The route pattern
// already restricts it to digits; overflow still lands here.
func resourceID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.ErrNotFound
	}
	return id, nil
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v); err != nil {
		return fmt.Errorf("%w: request body must be a JSON object", errBadRequest)
	}
	return nil
}
