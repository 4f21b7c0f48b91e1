package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-verify-nosql/internal/application/delivery"
	"github.com/go-verify-nosql/internal/application/verification"
	"github.com/go-verify-nosql/internal/domain"
	"github.com/go-verify-nosql/internal/pkg/validate"
	"github.com/go-verify-nosql/internal/transport/http/middleware"
)

// GrantIssuer signs a token proving an (email, purpose) pair was verified.
type GrantIssuer interface {
	SignGrant(email, purpose, recordID string) (string, error)
}

type requestCodeRequest struct {
	Email   string  `json:"email" validate:"required,email"`
	Purpose string  `json:"purpose" validate:"required,purpose"`
	UserID  *string `json:"user_id,omitempty"`
}

type resendCodeRequest struct {
	Email   string `json:"email" validate:"required,email"`
	Purpose string `json:"purpose" validate:"required,purpose"`
}

type verifyCodeRequest struct {
	Email   string `json:"email" validate:"required,email"`
	Purpose string `json:"purpose" validate:"required,purpose"`
	Code    string `json:"code" validate:"required"`
}

// VerificationCodeHandler exposes the verification-code engine over HTTP.
type VerificationCodeHandler struct {
	svc      verification.Service
	delivery delivery.Service
	grants   GrantIssuer
}

// NewVerificationCodeHandler builds the handler. grants may be nil, in which
// case successful verifications carry no grant.
func NewVerificationCodeHandler(svc verification.Service, d delivery.Service, grants GrantIssuer) *VerificationCodeHandler {
	return &VerificationCodeHandler{svc: svc, delivery: d, grants: grants}
}

func (h *VerificationCodeHandler) Action(w http.ResponseWriter, r *http.Request) {
	switch chi.URLParam(r, "action") {
	case "request":
		h.request(w, r)
	case "resend":
		h.resend(w, r)
	case "verify":
		h.verify(w, r)
	default:
		writeError(w, http.StatusBadRequest, "unknown action")
	}
}

func (h *VerificationCodeHandler) request(w http.ResponseWriter, r *http.Request) {
	var req requestCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	if err := validate.Struct(&req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	issued, err := h.svc.Create(r.Context(), verification.CreateInput{
		Email:   req.Email,
		UserID:  req.UserID,
		Purpose: domain.Purpose(req.Purpose),
		Meta: map[string]interface{}{
			"ip":         r.RemoteAddr,
			"user_agent": r.UserAgent(),
		},
	})
	if err != nil {
		httpError(w, err)
		return
	}
	h.deliver(w, r, issued, "verification code sent")
}

func (h *VerificationCodeHandler) resend(w http.ResponseWriter, r *http.Request) {
	var req resendCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	if err := validate.Struct(&req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	issued, err := h.svc.Resend(r.Context(), verification.ResendInput{
		Email:   req.Email,
		Purpose: domain.Purpose(req.Purpose),
	})
	if err != nil {
		httpError(w, err)
		return
	}
	h.deliver(w, r, issued, "verification code re-sent")
}

// deliver hands the code to the mailer. A failed send keeps the record so
// the user can resend once the cooldown has passed.
func (h *VerificationCodeHandler) deliver(w http.ResponseWriter, r *http.Request, issued *verification.Issued, msg string) {
	rec := issued.Record
	if err := h.delivery.SendCode(r.Context(), rec.Email, rec.Purpose, issued.Code, issued.ExpiresAt); err != nil {
		slog.Error("verification code delivery failed", "email", rec.Email, "purpose", rec.Purpose, "record_id", rec.RecordID, "err", err)
		writeError(w, http.StatusBadGateway, "failed to deliver verification code")
		return
	}
	writeJSON(w, http.StatusOK, CodeEnvelope{Message: msg, ExpiresAt: issued.ExpiresAt, ResendCount: rec.ResendCount})
}

func (h *VerificationCodeHandler) verify(w http.ResponseWriter, r *http.Request) {
	var req verifyCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	if err := validate.Struct(&req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	rec, err := h.svc.Verify(r.Context(), verification.VerifyInput{
		Email:   req.Email,
		Purpose: domain.Purpose(req.Purpose),
		Code:    req.Code,
	})
	if err != nil {
		httpError(w, err)
		return
	}
	resp := VerifyEnvelope{Message: "verified", Email: rec.Email, Purpose: string(rec.Purpose)}
	if h.grants != nil {
		grant, err := h.grants.SignGrant(rec.Email, string(rec.Purpose), rec.RecordID)
		if err != nil {
			slog.Error("sign verification grant", "email", rec.Email, "purpose", rec.Purpose, "err", err)
		} else {
			resp.Grant = grant
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// Delete discards any pending code for the (email, purpose) pair named by the
// caller's grant. A grant is only issued once Verify has consumed its record,
// so this never cleans up an abandoned flow: it removes a code requested for
// the same pair after the grant was issued, letting the grant holder cancel a
// flow they started again. Codes for other purposes are untouched.
func (h *VerificationCodeHandler) Delete(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	h.svc.Delete(r.Context(), claims.Email, domain.Purpose(claims.Purpose))
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "verification codes deleted"})
}
