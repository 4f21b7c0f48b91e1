package domain

import (
	"strings"
	"time"
)

// Purpose scopes a verification flow so one email can hold independent codes per flow.
type Purpose string

const (
	PurposePasswordReset       Purpose = "password-reset"
	PurposeTwoStepVerification Purpose = "two-step-verification"
)

// VerificationRecord is a pending verification code.
// Identity: (Email, Purpose). At most one record exists per pair.
// RecordID stays the same across resends and changes on every create.
type VerificationRecord struct {
	RecordID    string                 `json:"id"`
	Email       string                 `json:"email"`
	Purpose     Purpose                `json:"purpose"`
	UserID      *string                `json:"user_id,omitempty"`
	Code        string                 `json:"-"`
	ExpiresAt   time.Time              `json:"expires_at"`
	Meta        map[string]interface{} `json:"meta,omitempty"`
	LastSentAt  *time.Time             `json:"last_sent_at,omitempty"`
	ResendCount int                    `json:"resend_count"`
	CreatedAt   time.Time              `json:"created"`
}

// ExpiredAt reports whether the record is no longer valid at now.
// A record is invalid at or after ExpiresAt.
func (v *VerificationRecord) ExpiredAt(now time.Time) bool {
	return !now.Before(v.ExpiresAt)
}

// NormalizeEmail trims and lowercases an address so it can be used as a key.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// KnownPurpose reports whether p is one of the flows the service issues codes for.
func KnownPurpose(p Purpose) bool {
	switch p {
	case PurposePasswordReset, PurposeTwoStepVerification:
		return true
	}
	return false
}
