// Package response writes the JSON envelope shared by every endpoint:
// a success flag, a human-readable message for display, and a stable
// machine error code for clients to branch on.
package response

import (
	"encoding/json"
	"net/http"

	"github.com/smartdoor/doorman/pkg/logger"
)

type Envelope struct {
	Success bool           `json:"success"`
	Message string         `json:"message"`
	Data    map[string]any `json:"data"`
}

// Stable error codes. Messages may change; codes never do.
const (
	CodeInvalidInput         = "INVALID_INPUT"
	CodeUnauthorized         = "UNAUTHORIZED"
	CodeNotFound             = "NOT_FOUND"
	CodeAlreadyExists        = "ALREADY_EXISTS"
	CodeConflict             = "CONFLICT"
	CodeDuplicateActiveVisit = "DUPLICATE_ACTIVE_VISIT"
	CodeExhaustedKeyspace    = "EXHAUSTED_KEYSPACE"
	CodeRateLimit            = "RATE_LIMIT_EXCEEDED"
	CodeUpstreamUnavailable  = "UPSTREAM_UNAVAILABLE"
)

func OK(w http.ResponseWriter, statusCode int, message string, data map[string]any) {
	write(w, statusCode, Envelope{Success: true, Message: message, Data: data})
}

func Error(w http.ResponseWriter, statusCode int, message, code string) {
	ErrorData(w, statusCode, message, code, nil)
}

// ErrorData writes a failure envelope with extra fields alongside the error
// code (e.g. the existing faceId on a duplicate submission).
func ErrorData(w http.ResponseWriter, statusCode int, message, code string, data map[string]any) {
	if data == nil {
		data = map[string]any{}
	}
	data["errorCode"] = code
	write(w, statusCode, Envelope{Success: false, Message: message, Data: data})
}

func write(w http.ResponseWriter, statusCode int, env Envelope) {
	if env.Data == nil {
		env.Data = map[string]any{}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(env); err != nil {
		logger.Error("failed to encode response", "error", err)
	}
}

// Convenience helpers for common failures
func BadRequest(w http.ResponseWriter, message string) {
	Error(w, http.StatusBadRequest, message, CodeInvalidInput)
}

func Unauthorized(w http.ResponseWriter, message string) {
	Error(w, http.StatusUnauthorized, message, CodeUnauthorized)
}

func NotFound(w http.ResponseWriter, message string) {
	Error(w, http.StatusNotFound, message, CodeNotFound)
}

func RateLimit(w http.ResponseWriter, message string) {
	Error(w, http.StatusTooManyRequests, message, CodeRateLimit)
}

func Upstream(w http.ResponseWriter, message string) {
	Error(w, http.StatusInternalServerError, message, CodeUpstreamUnavailable)
}
