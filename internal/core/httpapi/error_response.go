package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/solatis/docupdate/internal/types"
)

// ErrorResponse is the JSON body of every error reply.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// WriteJSONError writes an ErrorResponse with the given status code.
func WriteJSONError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
		Code:    statusCode,
	})
}

// statusCode maps store and engine errors onto HTTP status codes.
func statusCode(err error) int {
	var tooBig *http.MaxBytesError
	switch {
	case errors.As(err, &tooBig), errors.Is(err, types.ErrDocumentTooLarge):
		return http.StatusRequestEntityTooLarge
	case types.IsValidationError(err):
		return http.StatusBadRequest
	case errors.Is(err, types.ErrDocumentNotFound):
		return http.StatusNotFound
	case errors.Is(err, types.ErrVersionConflict):
		return http.StatusConflict
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusServiceUnavailable
	}
}

func writeJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(body)
}
