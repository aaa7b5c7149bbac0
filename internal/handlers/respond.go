package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/AnshRaj112/skillswap-backend/internal/services"
	"github.com/AnshRaj112/skillswap-backend/pkg/utils"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 1 << 20

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return false
	}
	return true
}

var statusBySentinel = []struct {
	err    error
	status int
	code   string
}{
	{services.ErrInvalidInput, http.StatusBadRequest, "VALIDATION_ERROR"},
	{services.ErrUnauthenticated, http.StatusUnauthorized, "UNAUTHENTICATED"},
	{services.ErrForbidden, http.StatusForbidden, "FORBIDDEN"},
	{services.ErrNotFound, http.StatusNotFound, "NOT_FOUND"},
	{services.ErrConflict, http.StatusConflict, "CONFLICT"},
	{services.ErrUnavailable, http.StatusServiceUnavailable, "UNAVAILABLE"},
}

// handleServiceError maps service errors onto the response envelope.
// Anything unrecognised is logged and reported as a 500 without detail.
func handleServiceError(w http.ResponseWriter, logger *zap.Logger, err error) {
	var verr *utils.ValidationError
	if errors.As(err, &verr) {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Code:    "VALIDATION_ERROR",
			Message: verr.Message,
			Field:   verr.Field,
		})
		return
	}

	for _, s := range statusBySentinel {
		if errors.Is(err, s.err) {
			msg := strings.TrimPrefix(err.Error(), s.err.Error()+": ")
			if s.status == http.StatusServiceUnavailable {
				logger.Warn("dependency unavailable", zap.Error(err))
				msg = "Service temporarily unavailable"
			}
			writeError(w, s.status, s.code, msg)
			return
		}
	}

	logger.Error("request failed", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Server Error")
}
