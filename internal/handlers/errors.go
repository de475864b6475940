package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	log "github.com/sirupsen/logrus"

	"airjump/internal/service"
	"airjump/internal/validation"
)

type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Errorf("Failed to encode response: %v", err)
	}
}

func respondWithError(w http.ResponseWriter, status int, userMsg, logMsg string, err error) {
	if err != nil {
		if logMsg == "" {
			logMsg = userMsg
		}
		log.Errorf("%s: %v", logMsg, err)
	}

	respondJSON(w, status, errorResponse{Error: userMsg})
}

// statusForError maps service errors to HTTP statuses. Unknown errors are 500.
func statusForError(err error) int {
	var vErr validation.ValidationError
	switch {
	case errors.As(err, &vErr),
		errors.Is(err, service.ErrInvalidTokenFormat),
		errors.Is(err, service.ErrNoFreeEntries),
		errors.Is(err, service.ErrOAuthIncomplete):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, service.ErrSessionNotFound),
		errors.Is(err, service.ErrSessionExpired):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrChildNotFound),
		errors.Is(err, service.ErrTokenNotFound),
		errors.Is(err, service.ErrBookingNotFound),
		errors.Is(err, service.ErrTicketNotFound),
		errors.Is(err, service.ErrAlertNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrAlreadyCheckedIn),
		errors.Is(err, service.ErrChildAlreadyInside),
		errors.Is(err, service.ErrNotCheckedIn),
		errors.Is(err, service.ErrAlreadyCheckedOut),
		errors.Is(err, service.ErrInvalidStatusChange),
		errors.Is(err, service.ErrEmailTaken),
		errors.Is(err, service.ErrAlertResolved),
		errors.Is(err, service.ErrDatabaseNotEmpty):
		return http.StatusConflict
	case errors.Is(err, service.ErrTokenExpired),
		errors.Is(err, service.ErrInvalidResetToken),
		errors.Is(err, service.ErrResetTokenUsed):
		return http.StatusGone
	default:
		return http.StatusInternalServerError
	}
}

// respondWithServiceError writes err with its mapped status. Only 500s are logged
// and their message is replaced with a generic one.
func respondWithServiceError(w http.ResponseWriter, logMsg string, err error) {
	status := statusForError(err)
	if status == http.StatusInternalServerError {
		respondWithError(w, status, ErrInternalServerError, logMsg, err)
		return
	}

	resp := errorResponse{Error: err.Error()}
	var vErr validation.ValidationError
	if errors.As(err, &vErr) {
		resp = errorResponse{Error: vErr.Message, Field: vErr.Field}
	}
	respondJSON(w, status, resp)
}

// decodeJSON reads a size-capped JSON body into dst, rejecting unknown fields
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("failed to decode request body: %w", err)
	}
	if dec.Decode(&struct{}{}) != io.EOF {
		return errors.New("request body must contain a single JSON object")
	}
	return nil
}

// pathID parses the {name} path segment as a positive id
func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
