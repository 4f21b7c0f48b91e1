package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-verify-nosql/internal/domain"
)

// MessageEnvelope is the generic response wrapper.
type MessageEnvelope struct {
	Message     string `json:"message,omitempty"`
	Error       string `json:"error,omitempty"`
	WaitSeconds int    `json:"wait_seconds,omitempty"`
}

// CodeEnvelope is returned after a code has been issued or re-sent.
// The code itself only travels through the delivery channel.
type CodeEnvelope struct {
	Message     string    `json:"message"`
	ExpiresAt   time.Time `json:"expires_at"`
	ResendCount int       `json:"resend_count"`
}

// VerifyEnvelope is returned after a code has been consumed.
type VerifyEnvelope struct {
	Message string `json:"message"`
	Email   string `json:"email"`
	Purpose string `json:"purpose"`
	Grant   string `json:"grant,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, MessageEnvelope{Error: msg})
}

// httpError maps domain errors to HTTP responses. Expired and invalid codes
// share one message so callers cannot tell them apart.
func httpError(w http.ResponseWriter, err error) {
	if wait, ok := domain.WaitSeconds(err); ok {
		w.Header().Set("Retry-After", strconv.Itoa(wait))
		writeJSON(w, http.StatusTooManyRequests, MessageEnvelope{
			Error:       "please wait before requesting another code",
			WaitSeconds: wait,
		})
		return
	}
	switch {
	case errors.Is(err, domain.ErrTooSoon):
		writeError(w, http.StatusTooManyRequests, "please wait before requesting another code")
	case errors.Is(err, domain.ErrArgumentMissing), errors.Is(err, domain.ErrInvalidArgument):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "no pending verification code")
	case errors.Is(err, domain.ErrExpired), errors.Is(err, domain.ErrInvalid):
		writeError(w, http.StatusUnauthorized, "invalid or expired verification code")
	case errors.Is(err, domain.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, "unauthorized")
	default:
		slog.Error("unhandled error", "err", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
