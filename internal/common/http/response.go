package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"
)

// ErrorEnvelope is the body of every failed request.
type ErrorEnvelope struct {
	Success  bool   `json:"success"`
	Error    string `json:"error"`
	Code     string `json:"code,omitempty"`
	Redirect string `json:"redirect,omitempty"`
	TraceID  string `json:"traceId,omitempty"`

	GenerateNewTokens bool   `json:"generateNewTokens,omitempty"`
	NewAccessToken    string `json:"newAccessToken,omitempty"`
	NewRefreshToken   string `json:"newRefreshToken,omitempty"`
}

// EnvelopeOption decorates an error envelope before it is written.
type EnvelopeOption func(*ErrorEnvelope)

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func WriteError(w http.ResponseWriter, status int, code, message string) {
	WriteJSON(w, status, ErrorEnvelope{Success: false, Error: message, Code: code})
}

func WriteErrorEnvelope(w http.ResponseWriter, status int, env ErrorEnvelope) {
	env.Success = false
	WriteJSON(w, status, env)
}

func DecodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	return dec.Decode(v)
}

func GetClientIP(r *http.Request) string {
	ip := r.Header.Get("X-Real-IP")
	if ip == "" {
		ip = r.Header.Get("X-Forwarded-For")
		if idx := strings.Index(ip, ","); idx != -1 {
			ip = strings.TrimSpace(ip[:idx])
		}
	}
	if ip == "" {
		ip = r.RemoteAddr
		if idx := strings.LastIndex(ip, ":"); idx != -1 {
			ip = ip[:idx]
		}
	}
	return ip
}

func RequireMethod(method string) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if r.Method != method {
				WriteError(w, http.StatusMethodNotAllowed, CodeMethodNotAllowed, "method not allowed")
				return
			}
			next(w, r)
		}
	}
}

func WithTimeout(timeout time.Duration) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if timeout <= 0 {
				next(w, r)
				return
			}
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()
			next(w, r.WithContext(ctx))
		}
	}
}

// Post wraps a handler with the method check and request timeout every mutation route uses.
func Post(timeout time.Duration, h http.HandlerFunc) http.HandlerFunc {
	return RequireMethod(http.MethodPost)(WithTimeout(timeout)(h))
}
