package httputil

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"
)

// Machine-readable error codes returned alongside error messages.
const (
	CodeInvalidRequestBody  = "INVALID_REQUEST_BODY"
	CodeInternalError       = "INTERNAL_SERVER_ERROR"
	CodeTooManyRequests     = "TOO_MANY_REQUESTS"
	CodeCooldownActive      = "COOLDOWN_ACTIVE"
	CodeEmailRequired       = "EMAIL_REQUIRED"
	CodeInvalidEmailFormat  = "INVALID_EMAIL"
	CodeNameRequired        = "NAME_REQUIRED"
	CodePasswordRequired    = "PASSWORD_REQUIRED"
	CodePasswordTooShort    = "PASSWORD_TOO_SHORT"
	CodePasswordTooLong     = "PASSWORD_TOO_LONG"
	CodeUserAlreadyExists   = "USER_ALREADY_EXISTS"
	CodeInvalidCredentials  = "INVALID_EMAIL_OR_PASSWORD"
	CodeEmailNotVerified    = "EMAIL_NOT_VERIFIED"
	CodeTokenRequired       = "TOKEN_REQUIRED"
	CodeInvalidToken        = "INVALID_TOKEN"
	CodeTokenExpired        = "TOKEN_EXPIRED"
	CodeAlreadyVerified     = "EMAIL_ALREADY_VERIFIED"
	CodeInvalidCallbackURL  = "INVALID_CALLBACK_URL"
	CodeEmailDeliveryFailed = "EMAIL_DELIVERY_FAILED"
	CodeSessionNotFound     = "SESSION_NOT_FOUND"
	CodeUnauthorized        = "UNAUTHORIZED"
)

// ErrorResponse represents a standard error response
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// RespondJSON sends a JSON response with the given status code.
// Logs encoding errors to avoid silent failures.
func RespondJSON(w http.ResponseWriter, data any, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("ERROR: failed to encode JSON response: %v", err)
	}
}

// RespondError sends a JSON error response with the given message and status code.
func RespondError(w http.ResponseWriter, message string, statusCode int) {
	RespondJSON(w, ErrorResponse{Error: message}, statusCode)
}

// RespondErrorWithCode sends a JSON error response with a machine-readable error code.
func RespondErrorWithCode(w http.ResponseWriter, message string, code string, statusCode int) {
	RespondJSON(w, ErrorResponse{Error: message, Code: code}, statusCode)
}

// ClientIP extracts the client IP address from the request. It prefers
// X-Forwarded-For, then X-Real-IP, then RemoteAddr.
func ClientIP(r *http.Request) string {
	// X-Forwarded-For can contain multiple IPs, take the first one
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	// RemoteAddr format is "IP:port", extract just the IP
	ip := r.RemoteAddr
	if idx := strings.LastIndex(ip, ":"); idx != -1 {
		ip = ip[:idx]
	}
	return ip
}
